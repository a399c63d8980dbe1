// Package kinematics holds constant-velocity motion state.
package kinematics

import (
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"loiter-sim/internal/geom"
)

// Helper tracks a position moving at constant velocity between commits.
//
// Times are simulation times (elapsed since the simulation epoch). The
// position is extrapolated lazily: Update advances it to now, and every
// SetPosition moves the last-update marker so extrapolation restarts from the
// committed point.
type Helper struct {
	pos  geom.Vec
	vel  geom.Vec
	last time.Duration
}

// New returns a helper at rest at pos.
func New(pos geom.Vec, now time.Duration) *Helper {
	return &Helper{pos: pos, last: now}
}

// Position returns the position as of the last update.
func (h *Helper) Position() geom.Vec { return h.pos }

// Velocity returns the current velocity.
func (h *Helper) Velocity() geom.Vec { return h.vel }

// SetPosition commits pos as the position at now.
func (h *Helper) SetPosition(pos geom.Vec, now time.Duration) {
	h.pos = pos
	h.last = now
}

// SetVelocity changes the velocity from the current position onwards.
func (h *Helper) SetVelocity(vel geom.Vec) {
	h.vel = vel
}

// Update extrapolates the position to now. Calls with now at or before the
// last update are no-ops.
func (h *Helper) Update(now time.Duration) {
	dt := now - h.last
	if dt <= 0 {
		return
	}
	h.last = now
	h.pos = r3.Add(h.pos, r3.Scale(dt.Seconds(), h.vel))
}

// UpdateWithBounds extrapolates to now and clamps the result into b.
func (h *Helper) UpdateWithBounds(now time.Duration, b geom.Box) {
	h.Update(now)
	h.pos = b.Clamp(h.pos)
}
