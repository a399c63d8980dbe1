// Package rng provides seedable, stream-addressable random number streams.
//
// A stream is identified by (seed, stream number). Two Uniform values with the
// same pair produce the same sequence, which keeps simulation runs
// reproducible while letting each model own an independent stream.
package rng

import (
	"math/rand/v2"
	"sync/atomic"

	"gonum.org/v1/gonum/stat/distuv"
)

// Streams handed out before AssignStreams is called are taken from the top of
// the range so they never collide with explicitly assigned ones.
const autoStreamBase = uint64(1) << 62

var autoStream atomic.Uint64

// Uniform draws uniformly distributed values.
type Uniform struct {
	seed   uint64
	stream uint64
	src    *rand.PCG
}

// NewUniform returns a stream seeded with seed and an automatically assigned
// stream number.
func NewUniform(seed uint64) *Uniform {
	stream := autoStreamBase + autoStream.Add(1)
	return &Uniform{seed: seed, stream: stream, src: rand.NewPCG(seed, stream)}
}

// NewUniformStream returns a stream with an explicit stream number.
func NewUniformStream(seed uint64, stream int64) *Uniform {
	u := &Uniform{seed: seed}
	u.SetStream(stream)
	return u
}

// SetStream restarts the sequence on the given stream number.
func (u *Uniform) SetStream(stream int64) {
	u.stream = uint64(stream)
	u.src = rand.NewPCG(u.seed, u.stream)
}

// Stream returns the current stream number.
func (u *Uniform) Stream() int64 {
	return int64(u.stream)
}

// Value returns a value uniformly distributed between a and b. The bounds may
// be passed in either order.
func (u *Uniform) Value(a, b float64) float64 {
	if b < a {
		a, b = b, a
	}
	if a == b {
		return a
	}
	return distuv.Uniform{Min: a, Max: b, Src: u.src}.Rand()
}
