package mobility

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"loiter-sim/internal/geom"
	"loiter-sim/internal/kinematics"
	"loiter-sim/internal/rng"
)

func newTestManeuver(start geom.Vec, stream Stream) (*Maneuver, *kinematics.Helper) {
	state := kinematics.New(start, 0)
	p := Params{Bounds: planarBox(1000), Speed: 15, Radius: 1}
	return NewManeuver(p, stream, state), state
}

func TestManeuver_WaypointTravelTimeAndVelocity(t *testing.T) {
	m, state := newTestManeuver(geom.Vec{}, &scriptedStream{})
	m.started = true
	m.destination = geom.Vec{X: 10}

	wait := m.Step(0)
	want := 10 * time.Second / 15
	if !durationNear(wait, want) {
		t.Fatalf("wait=%s want %s", wait, want)
	}
	if diff := cmp.Diff(geom.Vec{X: 15}, state.Velocity(), approx); diff != "" {
		t.Fatalf("velocity mismatch (-want +got):\n%s", diff)
	}
	if m.Mode() != ModeWaypoint {
		t.Fatalf("mode=%s want WAYPOINT", m.Mode())
	}

	// At the computed time the agent is on the waypoint and starts circling.
	m.Step(wait)
	if m.Mode() != ModeStayAt {
		t.Fatalf("mode=%s want STAYAT", m.Mode())
	}
}

func TestManeuver_FirstStepDegenerateDestination(t *testing.T) {
	box := geom.Box{XMax: 200, YMax: 200}
	state := kinematics.New(geom.Vec{X: 50, Y: 50}, 0)
	state.SetVelocity(geom.Vec{X: 3, Y: 4})
	m := NewManeuver(Params{Bounds: box, Speed: 15, Radius: 10}, &scriptedStream{vals: []float64{50, 50}}, state)

	wait := m.Step(0)
	if wait != 0 {
		t.Fatalf("wait=%s want 0", wait)
	}
	v := state.Velocity()
	if v != (geom.Vec{}) || math.IsNaN(v.X) {
		t.Fatalf("velocity=%v want zero", v)
	}
	if diff := cmp.Diff(geom.Vec{X: 50, Y: 50}, m.Destination(), approx); diff != "" {
		t.Fatalf("destination mismatch (-want +got):\n%s", diff)
	}
}

func TestManeuver_ArrivalTruncatesDistance(t *testing.T) {
	cases := []struct {
		name string
		dest geom.Vec
		want Mode
	}{
		{"JustUnderOneMetre", geom.Vec{X: 0.999}, ModeStayAt},
		{"Diagonal", geom.Vec{X: 0.6, Y: 0.6, Z: 0.3}, ModeStayAt},
		{"ExactlyOneMetre", geom.Vec{X: 1}, ModeWaypoint},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, _ := newTestManeuver(geom.Vec{}, &scriptedStream{})
			m.started = true
			m.destination = tc.dest
			m.Step(0)
			if m.Mode() != tc.want {
				t.Fatalf("mode=%s want %s", m.Mode(), tc.want)
			}
		})
	}
}

func TestManeuver_StayAtClosesAfter36Steps(t *testing.T) {
	start := geom.Vec{X: 100, Y: 100}
	m, state := newTestManeuver(start, &scriptedStream{})
	m.started = true
	m.destination = start

	now := time.Duration(0)
	calls := 0
	for !m.stayDone {
		wait := m.Step(now)
		if wait != arcWait {
			t.Fatalf("call %d: wait=%s want %s", calls, wait, arcWait)
		}
		if m.Mode() != ModeStayAt {
			t.Fatalf("call %d: mode=%s want STAYAT", calls, m.Mode())
		}
		calls++
		now += wait
		if calls > 100 {
			t.Fatalf("STAYAT never completed")
		}
	}
	if calls != 36 {
		t.Fatalf("calls=%d want 36", calls)
	}
	// A full revolution of unit steps returns to the start point.
	if diff := cmp.Diff(start, state.Position(), approx); diff != "" {
		t.Fatalf("position mismatch (-want +got):\n%s", diff)
	}

	// The transition happens on the following dispatch.
	m.Step(now)
	if m.Mode() != ModeOval {
		t.Fatalf("mode=%s want OVAL", m.Mode())
	}
	if diff := cmp.Diff(start, m.Origin(), approx); diff != "" {
		t.Fatalf("origin mismatch (-want +got):\n%s", diff)
	}
	if m.Phase() != PhaseArc || m.arcEnd != shortArcDegree {
		t.Fatalf("phase=%s arcEnd=%v want arc/90", m.Phase(), m.arcEnd)
	}
}

func TestManeuver_ArcStepIsUnitLength(t *testing.T) {
	m, state := newTestManeuver(geom.Vec{X: 10, Y: 10}, &scriptedStream{})
	m.beginArc(shortArcDegree)
	m.heading = 80

	done := m.arcStep()
	if done {
		t.Fatalf("arc done after one step")
	}
	if diff := cmp.Diff(geom.Vec{X: 10, Y: 11}, state.Position(), approx); diff != "" {
		t.Fatalf("position mismatch (-want +got):\n%s", diff)
	}
	if state.Velocity() != (geom.Vec{}) {
		t.Fatalf("velocity=%v want zero during arc", state.Velocity())
	}
}

func TestManeuver_OvalCornersAdvanceCounterClockwise(t *testing.T) {
	origin := geom.Vec{X: 100, Y: 100}
	m, _ := newTestManeuver(geom.Vec{X: 150, Y: 150}, &scriptedStream{})
	m.started = true
	m.enterPattern(ModeOval, origin)

	var got []geom.Vec
	for i := 0; i < 5; i++ {
		m.phase = PhaseLeg
		m.moveOval()
		if m.Phase() != PhaseArc || m.arcEnd != shortArcDegree {
			t.Fatalf("leg %d: phase=%s arcEnd=%v", i, m.Phase(), m.arcEnd)
		}
		got = append(got, m.Destination())
	}
	want := []geom.Vec{
		{X: 104, Y: 106},
		{X: 96, Y: 106},
		{X: 96, Y: 94},
		{X: 104, Y: 94},
		origin,
	}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Fatalf("corner sequence mismatch (-want +got):\n%s", diff)
	}
	if !m.closing {
		t.Fatalf("expected closing leg after a full circuit")
	}
}

func TestManeuver_OvalDoesNotLeaveBeforeCircuitCloses(t *testing.T) {
	origin := geom.Vec{X: 100, Y: 100}
	m, state := newTestManeuver(origin, &scriptedStream{})
	m.started = true
	m.enterPattern(ModeOval, origin)
	m.phase = PhaseArc
	m.arcEnd = shortArcDegree

	// Sitting on the origin mid-circuit is not an exit.
	m.Step(0)
	if m.Mode() != ModeOval {
		t.Fatalf("mode=%s want OVAL", m.Mode())
	}

	state.SetPosition(origin, 0)
	m.closing = true
	m.Step(0)
	if m.Mode() != ModeEight {
		t.Fatalf("mode=%s want EIGHT", m.Mode())
	}
	if m.Phase() != PhaseArc {
		t.Fatalf("phase=%s want arc after entry leg", m.Phase())
	}
}

func TestManeuver_EightCornersCrossOrigin(t *testing.T) {
	origin := geom.Vec{X: 100, Y: 100}
	m, _ := newTestManeuver(geom.Vec{X: 150, Y: 150}, &scriptedStream{})
	m.started = true
	m.enterPattern(ModeEight, origin)

	var got []geom.Vec
	for i := 0; i < 5; i++ {
		m.phase = PhaseLeg
		m.moveEight()
		got = append(got, m.Destination())
	}
	want := []geom.Vec{
		{X: 96, Y: 94},
		{X: 96, Y: 106},
		{X: 104, Y: 94},
		{X: 104, Y: 106},
		{X: 96, Y: 94},
	}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Fatalf("corner sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestManeuver_EightArcsAlternate(t *testing.T) {
	origin := geom.Vec{X: 100, Y: 100}
	m, _ := newTestManeuver(geom.Vec{X: 150, Y: 150}, &scriptedStream{})
	m.started = true
	m.enterPattern(ModeEight, origin)
	m.phase = PhaseLeg

	var steps []int
	for len(steps) < 4 {
		m.Step(0)
		n := 0
		for m.Phase() == PhaseArc {
			if w := m.Step(0); w != arcWait {
				t.Fatalf("arc wait=%s want %s", w, arcWait)
			}
			n++
		}
		steps = append(steps, n)
		if m.Mode() != ModeEight {
			t.Fatalf("mode=%s; EIGHT must be absorbing", m.Mode())
		}
	}
	if diff := cmp.Diff([]int{9, 27, 9, 27}, steps); diff != "" {
		t.Fatalf("arc lengths mismatch (-want +got):\n%s", diff)
	}
}

func TestRandomPosition_InsetPlanarBox(t *testing.T) {
	box := geom.Box{XMax: 200, YMax: 200}
	state := kinematics.New(geom.Vec{}, 0)
	m := NewManeuver(Params{Bounds: box, Speed: 15, Radius: 10}, rng.NewUniformStream(1, 0), state)

	for i := 0; i < 10000; i++ {
		p := m.RandomPosition()
		if p.X < 10 || p.X > 190 || p.Y < 10 || p.Y > 190 {
			t.Fatalf("draw %d: %v outside inset range", i, p)
		}
		if p.Z != 0 {
			t.Fatalf("draw %d: z=%v want 0", i, p.Z)
		}
	}
}

func TestRandomPosition_ArgumentOrder(t *testing.T) {
	box := geom.Box{XMax: 200, YMax: 200}
	stream := &scriptedStream{vals: []float64{-50, 500}}
	state := kinematics.New(geom.Vec{}, 0)
	m := NewManeuver(Params{Bounds: box, Speed: 15, Radius: 10}, stream, state)

	p := m.RandomPosition()
	if p.X != 10 || p.Y != 190 {
		t.Fatalf("got %v want extremes (10,190)", p)
	}
	if len(stream.calls) != 2 {
		t.Fatalf("calls=%d want 2 (planar box draws no z)", len(stream.calls))
	}
	for _, c := range stream.calls {
		lo, hi := math.Min(c[0], c[1]), math.Max(c[0], c[1])
		if lo != 10 || hi != 190 {
			t.Fatalf("effective range [%v,%v] want [10,190]", lo, hi)
		}
	}
}

func TestRandomPosition_DepthAndCollapsedAxes(t *testing.T) {
	box := geom.Box{XMax: 10, YMax: 200, ZMin: 0, ZMax: 100}
	state := kinematics.New(geom.Vec{}, 0)
	m := NewManeuver(Params{Bounds: box, Speed: 15, Radius: 6}, rng.NewUniformStream(2, 0), state)

	for i := 0; i < 1000; i++ {
		p := m.RandomPosition()
		if p.X != 5 {
			t.Fatalf("collapsed x=%v want midpoint 5", p.X)
		}
		if p.Z < 6 || p.Z > 94 {
			t.Fatalf("z=%v outside [6,94]", p.Z)
		}
	}
}
