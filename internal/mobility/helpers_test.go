package mobility

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp/cmpopts"

	"loiter-sim/internal/geom"
	"loiter-sim/internal/sim"
)

var approx = cmpopts.EquateApprox(0, 1e-6)

// scriptedStream returns queued values in order, clamped into the requested
// range, and records every request.
type scriptedStream struct {
	vals   []float64
	calls  [][2]float64
	stream int64
}

func (s *scriptedStream) Value(a, b float64) float64 {
	s.calls = append(s.calls, [2]float64{a, b})
	lo, hi := math.Min(a, b), math.Max(a, b)
	if len(s.vals) == 0 {
		return (lo + hi) / 2
	}
	v := s.vals[0]
	s.vals = s.vals[1:]
	return math.Max(lo, math.Min(hi, v))
}

func (s *scriptedStream) SetStream(stream int64) { s.stream = stream }

type scheduled struct {
	id    sim.EventID
	delay time.Duration
	fn    func()
}

// fakeScheduler records scheduling requests without running them.
type fakeScheduler struct {
	now       time.Duration
	lastID    sim.EventID
	scheduled []scheduled
	cancelled []sim.EventID
}

func (f *fakeScheduler) Now() time.Duration { return f.now }

func (f *fakeScheduler) Schedule(delay time.Duration, fn func()) sim.EventID {
	f.lastID++
	f.scheduled = append(f.scheduled, scheduled{id: f.lastID, delay: delay, fn: fn})
	return f.lastID
}

func (f *fakeScheduler) ScheduleNow(fn func()) sim.EventID {
	return f.Schedule(0, fn)
}

func (f *fakeScheduler) Cancel(id sim.EventID) bool {
	f.cancelled = append(f.cancelled, id)
	return true
}

func (f *fakeScheduler) last(t *testing.T) scheduled {
	t.Helper()
	if len(f.scheduled) == 0 {
		t.Fatalf("nothing scheduled")
	}
	return f.scheduled[len(f.scheduled)-1]
}

func planarBox(size float64) geom.Box {
	return geom.Box{XMax: size, YMax: size}
}

func durationNear(got, want time.Duration) bool {
	d := got - want
	if d < 0 {
		d = -d
	}
	return d <= time.Microsecond
}
