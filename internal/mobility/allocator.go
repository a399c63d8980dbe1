package mobility

import "loiter-sim/internal/geom"

// RandomBoxAllocator draws initial positions uniformly inside a box.
type RandomBoxAllocator struct {
	Box    geom.Box
	Stream Stream
}

// Next returns the next position.
func (a RandomBoxAllocator) Next() geom.Vec {
	return geom.Vec{
		X: a.Stream.Value(a.Box.XMin, a.Box.XMax),
		Y: a.Stream.Value(a.Box.YMin, a.Box.YMax),
		Z: a.Stream.Value(a.Box.ZMin, a.Box.ZMax),
	}
}
