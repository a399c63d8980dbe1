package mobility

import (
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"loiter-sim/internal/geom"
	"loiter-sim/internal/kinematics"
)

const (
	// stepDegree is the heading change of one arc step.
	stepDegree = 10.0

	stayDegree     = 360.0
	shortArcDegree = 90.0
	longArcDegree  = 270.0

	// arcWait is the re-evaluation interval while tracing an arc.
	arcWait = 100 * time.Millisecond

	// Racetrack corners sit at origin + (±cornerDX, ±cornerDY).
	cornerDX = 4.0
	cornerDY = 6.0

	// ovalCorners corner legs make one racetrack circuit.
	ovalCorners = 4
)

// Stream supplies uniform random draws. Bounds may be given in either order.
type Stream interface {
	Value(a, b float64) float64
}

// Params are the settings the maneuvers depend on.
type Params struct {
	Bounds geom.Box
	// Speed is the straight-leg ground speed in m/s.
	Speed float64
	// Radius insets random destinations from the bounds, in metres.
	Radius float64
}

// quadrant is the side of the pattern origin a corner lies on (±1 per axis).
type quadrant struct{ sx, sy float64 }

func sideOf(p, origin geom.Vec) quadrant {
	q := quadrant{sx: 1, sy: 1}
	if p.X <= origin.X {
		q.sx = -1
	}
	if p.Y <= origin.Y {
		q.sy = -1
	}
	return q
}

// ccw returns the next corner counter-clockwise around the origin.
func (q quadrant) ccw() quadrant {
	if q.sx == q.sy {
		q.sx = -q.sx
	} else {
		q.sy = -q.sy
	}
	return q
}

func (q quadrant) opposite() quadrant { return quadrant{sx: -q.sx, sy: -q.sy} }

func (q quadrant) flipY() quadrant { return quadrant{sx: q.sx, sy: -q.sy} }

// Maneuver is the loiter state machine: fly to a random waypoint, circle in
// place once, fly one racetrack circuit, then fly figure-eights forever.
//
// Step is the only entry point. It reads the committed kinematic state,
// advances the mode and phase, updates target and velocity and returns how
// long the host should wait before calling Step again.
type Maneuver struct {
	params Params
	rand   Stream
	state  *kinematics.Helper
	now    time.Duration

	mode        Mode
	phase       Phase
	destination geom.Vec
	origin      geom.Vec

	// heading drives the unit arc step and carries over between arcs so
	// successive turns join up. swept is the angle turned in the current arc.
	heading float64
	swept   float64
	arcEnd  float64

	arcs    int
	legs    int
	corner  quadrant
	closing bool

	started  bool
	stayDone bool
}

// NewManeuver returns a state machine in WAYPOINT mode that has not yet
// picked a destination.
func NewManeuver(p Params, rand Stream, state *kinematics.Helper) *Maneuver {
	return &Maneuver{
		params: p,
		rand:   rand,
		state:  state,
		mode:   ModeWaypoint,
	}
}

// Mode returns the active mode.
func (m *Maneuver) Mode() Mode { return m.mode }

// Phase returns the active OVAL/EIGHT sub-state.
func (m *Maneuver) Phase() Phase { return m.phase }

// Destination returns the current travel target.
func (m *Maneuver) Destination() geom.Vec { return m.destination }

// Origin returns the anchor of the current racetrack or figure-eight.
func (m *Maneuver) Origin() geom.Vec { return m.origin }

// Step advances the state machine at simulation time now and returns the
// delay until the next re-evaluation.
func (m *Maneuver) Step(now time.Duration) time.Duration {
	m.now = now
	m.state.Update(now)
	pos := m.state.Position()

	if !m.started {
		m.started = true
		m.state.SetVelocity(geom.Vec{})
		m.destination = m.RandomPosition()
		return m.moveWaypoint()
	}

	switch m.mode {
	case ModeWaypoint:
		if arrived(m.destination, pos) {
			m.mode = ModeStayAt
			m.destination = pos
			m.heading, m.swept, m.arcEnd = 0, 0, stayDegree
			m.stayDone = false
			return m.moveStayAt()
		}
		return m.moveWaypoint()
	case ModeStayAt:
		if m.stayDone {
			m.enterPattern(ModeOval, pos)
			return m.moveOval()
		}
		return m.moveStayAt()
	case ModeOval:
		if m.closing && arrived(m.origin, pos) {
			m.enterPattern(ModeEight, pos)
			return m.moveEight()
		}
		return m.moveOval()
	default:
		return m.moveEight()
	}
}

// RandomPosition draws a point uniformly inside the bounds inset by Radius.
// z is only drawn when the bounds have depth; a planar box keeps its plane.
func (m *Maneuver) RandomPosition() geom.Vec {
	b, r := m.params.Bounds, m.params.Radius
	p := geom.Vec{
		X: m.inset(b.XMin, b.XMax, r),
		Y: m.inset(b.YMin, b.YMax, r),
		Z: b.ZMin,
	}
	if !b.Planar() {
		p.Z = m.inset(b.ZMin, b.ZMax, r)
	}
	return p
}

func (m *Maneuver) inset(min, max, r float64) float64 {
	hi, lo := max-r, min+r
	if hi < lo {
		return (min + max) / 2
	}
	return m.rand.Value(hi, lo)
}

// arrived truncates the distance to whole metres before comparing, so any
// point closer than 1 m counts as reached.
func arrived(target, pos geom.Vec) bool {
	return int64(geom.Distance(target, pos)) == 0
}

func (m *Maneuver) moveWaypoint() time.Duration {
	cur := m.state.Position()
	delta := r3.Sub(m.destination, cur)
	dist := r3.Norm(delta)
	if dist == 0 {
		m.state.SetVelocity(geom.Vec{})
		return 0
	}
	m.state.SetVelocity(r3.Scale(m.params.Speed/dist, delta))
	return seconds(dist / m.params.Speed)
}

func (m *Maneuver) moveStayAt() time.Duration {
	m.stayDone = m.arcStep()
	return arcWait
}

func (m *Maneuver) enterPattern(mode Mode, pos geom.Vec) {
	m.mode = mode
	m.origin = pos
	m.phase = PhaseEntry
	m.arcs, m.legs = 0, 0
	m.closing = false
}

// entryLeg flies to a fresh random point and queues the first turn.
func (m *Maneuver) entryLeg() time.Duration {
	m.destination = m.RandomPosition()
	wait := m.moveWaypoint()
	m.heading = stepDegree
	m.beginArc(shortArcDegree)
	return wait
}

func (m *Maneuver) moveOval() time.Duration {
	switch m.phase {
	case PhaseEntry:
		return m.entryLeg()
	case PhaseLeg:
		if m.legs >= ovalCorners {
			m.destination = m.origin
			m.closing = true
		} else {
			if m.legs == 0 {
				m.corner = sideOf(m.state.Position(), m.origin)
			} else {
				m.corner = m.corner.ccw()
			}
			m.destination = m.cornerPoint(m.corner)
			m.legs++
		}
		wait := m.moveWaypoint()
		m.beginArc(shortArcDegree)
		return wait
	default:
		if m.arcStep() {
			m.arcs++
			m.phase = PhaseLeg
		}
		return arcWait
	}
}

func (m *Maneuver) moveEight() time.Duration {
	switch m.phase {
	case PhaseEntry:
		return m.entryLeg()
	case PhaseLeg:
		switch {
		case m.legs == 0:
			m.corner = sideOf(m.state.Position(), m.origin).opposite()
		case m.legs%2 == 0:
			m.corner = m.corner.opposite()
		default:
			m.corner = m.corner.flipY()
		}
		m.destination = m.cornerPoint(m.corner)
		m.legs++
		wait := m.moveWaypoint()
		if m.arcs%2 == 0 {
			m.beginArc(shortArcDegree)
		} else {
			m.beginArc(longArcDegree)
		}
		return wait
	default:
		if m.arcStep() {
			m.arcs++
			m.phase = PhaseLeg
		}
		return arcWait
	}
}

func (m *Maneuver) cornerPoint(q quadrant) geom.Vec {
	return geom.Vec{
		X: m.origin.X + q.sx*cornerDX,
		Y: m.origin.Y + q.sy*cornerDY,
		Z: m.origin.Z,
	}
}

func (m *Maneuver) beginArc(end float64) {
	m.phase = PhaseArc
	m.swept = 0
	m.arcEnd = end
}

// arcStep moves one unit step along the current heading after turning it by
// stepDegree, and reports whether the arc is complete. The traced radius
// follows from the step length and angle, not from Params.Radius.
func (m *Maneuver) arcStep() bool {
	cur := m.state.Position()
	m.heading = math.Mod(m.heading+stepDegree, 360)
	m.swept += stepDegree
	rad := m.heading * math.Pi / 180
	next := r3.Add(cur, geom.Vec{X: math.Cos(rad), Y: math.Sin(rad)})
	m.state.SetVelocity(geom.Vec{})
	m.state.SetPosition(next, m.now)
	return m.swept >= m.arcEnd
}

func seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}
