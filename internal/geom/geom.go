// Package geom provides the 3D primitives shared by the mobility models.
//
// Coordinates are local metres: x east, y north, z up.
package geom

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Vec is a point or displacement in local metres.
type Vec = r3.Vec

// ErrInvalidBox reports a box whose max extent is below its min extent.
var ErrInvalidBox = errors.New("invalid box")

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Vec) float64 {
	return r3.Norm(r3.Sub(a, b))
}

// Box is an axis-aligned box. ZMax may equal ZMin to describe a planar area.
type Box struct {
	XMin, XMax float64
	YMin, YMax float64
	ZMin, ZMax float64
}

// NewBox returns a validated box.
func NewBox(xMin, xMax, yMin, yMax, zMin, zMax float64) (Box, error) {
	b := Box{XMin: xMin, XMax: xMax, YMin: yMin, YMax: yMax, ZMin: zMin, ZMax: zMax}
	if err := b.Validate(); err != nil {
		return Box{}, err
	}
	return b, nil
}

// Validate checks that every max extent is >= its min extent.
func (b Box) Validate() error {
	for _, ax := range []struct {
		name     string
		min, max float64
	}{
		{"x", b.XMin, b.XMax},
		{"y", b.YMin, b.YMax},
		{"z", b.ZMin, b.ZMax},
	} {
		if math.IsNaN(ax.min) || math.IsNaN(ax.max) {
			return fmt.Errorf("%w: %s extent is NaN", ErrInvalidBox, ax.name)
		}
		if ax.max < ax.min {
			return fmt.Errorf("%w: %s max %g < min %g", ErrInvalidBox, ax.name, ax.max, ax.min)
		}
	}
	return nil
}

// Planar reports whether the box has no depth.
func (b Box) Planar() bool {
	return b.ZMax == b.ZMin
}

// Contains reports whether p lies inside b, faces included.
func (b Box) Contains(p Vec) bool {
	return p.X >= b.XMin && p.X <= b.XMax &&
		p.Y >= b.YMin && p.Y <= b.YMax &&
		p.Z >= b.ZMin && p.Z <= b.ZMax
}

// Clamp returns the point of b nearest to p.
func (b Box) Clamp(p Vec) Vec {
	return Vec{
		X: clamp(p.X, b.XMin, b.XMax),
		Y: clamp(p.Y, b.YMin, b.YMax),
		Z: clamp(p.Z, b.ZMin, b.ZMax),
	}
}

// Reflect mirrors p back across whichever faces it lies beyond. Points more
// than one box width outside are clamped after the mirror.
func (b Box) Reflect(p Vec) Vec {
	return b.Clamp(Vec{
		X: mirror(p.X, b.XMin, b.XMax),
		Y: mirror(p.Y, b.YMin, b.YMax),
		Z: mirror(p.Z, b.ZMin, b.ZMax),
	})
}

// Hit describes where a ray leaving a point inside the box meets its boundary.
// X, Y and Z flag the face normals crossed at T (several at an edge or corner).
type Hit struct {
	T       float64
	X, Y, Z bool
}

// Intersect returns the first time at which p + v*t leaves b. ok is false when
// v is zero.
func (b Box) Intersect(p, v Vec) (hit Hit, ok bool) {
	const eps = 1e-9

	tx, okx := exitTime(p.X, v.X, b.XMin, b.XMax)
	ty, oky := exitTime(p.Y, v.Y, b.YMin, b.YMax)
	tz, okz := exitTime(p.Z, v.Z, b.ZMin, b.ZMax)
	if !okx && !oky && !okz {
		return Hit{}, false
	}

	t := math.Inf(1)
	for _, c := range []struct {
		t  float64
		ok bool
	}{{tx, okx}, {ty, oky}, {tz, okz}} {
		if c.ok && c.t < t {
			t = c.t
		}
	}
	hit = Hit{
		T: t,
		X: okx && tx-t <= eps,
		Y: oky && ty-t <= eps,
		Z: okz && tz-t <= eps,
	}
	return hit, true
}

func exitTime(p, v, min, max float64) (float64, bool) {
	switch {
	case v > 0:
		return math.Max(0, (max-p)/v), true
	case v < 0:
		return math.Max(0, (min-p)/v), true
	default:
		return 0, false
	}
}

func clamp(x, min, max float64) float64 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}

func mirror(x, min, max float64) float64 {
	if x < min {
		return 2*min - x
	}
	if x > max {
		return 2*max - x
	}
	return x
}
