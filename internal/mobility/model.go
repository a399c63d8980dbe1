// Package mobility implements a fixed-wing style loiter mobility model for
// discrete-event simulation.
//
// The agent flies to a random waypoint, circles once where it stopped, flies
// one racetrack circuit around that point and then flies figure-eights
// indefinitely, always inside a bounding box. Maneuver holds the state
// machine; Model binds it to a scheduler, keeps committed positions inside
// the bounds and fields external repositioning.
package mobility

import (
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/bolt/v3"
	"gonum.org/v1/gonum/spatial/r3"

	"loiter-sim/internal/geom"
	"loiter-sim/internal/kinematics"
	"loiter-sim/internal/logging"
	"loiter-sim/internal/sim"
)

var (
	// ErrOutsideBounds reports a position set outside the model bounds.
	ErrOutsideBounds = errors.New("position outside bounds")
	// ErrBoundaryExcursion reports a projected position outside the bounds
	// under PolicyFatal.
	ErrBoundaryExcursion = errors.New("boundary excursion")
)

// Scheduler is the host event loop.
type Scheduler interface {
	Now() time.Duration
	Schedule(delay time.Duration, fn func()) sim.EventID
	ScheduleNow(fn func()) sim.EventID
	Cancel(id sim.EventID) bool
}

// RandomStream is a Stream whose stream number can be reassigned.
type RandomStream interface {
	Stream
	SetStream(stream int64)
}

// Config configures a Model.
type Config struct {
	Bounds geom.Box
	Speed  float64
	Radius float64
	Policy Policy
}

// DefaultConfig returns a 1000 m cube at the origin, 15 m/s and a 1 m radius.
func DefaultConfig() Config {
	return Config{
		Bounds: geom.Box{XMax: 1000, YMax: 1000, ZMax: 1000},
		Speed:  15.0,
		Radius: 1.0,
		Policy: PolicyClamp,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := c.Bounds.Validate(); err != nil {
		return fmt.Errorf("bounds: %w", err)
	}
	if !(c.Speed > 0) {
		return fmt.Errorf("speed must be > 0")
	}
	if c.Radius < 0 {
		return fmt.Errorf("radius must be >= 0")
	}
	switch c.Policy {
	case PolicyClamp, PolicyReflect, PolicyFatal:
	default:
		return fmt.Errorf("unknown boundary policy %d", int(c.Policy))
	}
	return nil
}

// CourseChange is published every time the model commits a new course.
type CourseChange struct {
	Node     string
	At       time.Duration
	Mode     Mode
	Position geom.Vec
	Velocity geom.Vec
}

// Option customizes a Model.
type Option func(*Model)

// WithID names the model in logs and course changes.
func WithID(id string) Option {
	return func(m *Model) { m.id = id }
}

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(l *bolt.Logger) Option {
	return func(m *Model) { m.log = l }
}

// Model drives a Maneuver from a Scheduler.
//
// Each timer callback runs Maneuver.Step, commits the result and re-arms a
// single pending timer for the returned delay. Model is not safe for
// concurrent use; all calls must come from the scheduler's goroutine.
type Model struct {
	id     string
	cfg    Config
	sched  Scheduler
	stream RandomStream
	log    *bolt.Logger

	state    *kinematics.Helper
	maneuver *Maneuver

	event     sim.EventID
	next      geom.Vec
	err       error
	listeners []func(CourseChange)
}

// New creates a model at start and schedules its first step at the current
// simulation time.
func New(cfg Config, sched Scheduler, start geom.Vec, stream RandomStream, opts ...Option) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sched == nil {
		return nil, fmt.Errorf("scheduler is required")
	}
	if stream == nil {
		return nil, fmt.Errorf("random stream is required")
	}
	if !cfg.Bounds.Contains(start) {
		return nil, fmt.Errorf("start %v: %w", start, ErrOutsideBounds)
	}

	m := &Model{cfg: cfg, sched: sched, stream: stream}
	for _, opt := range opts {
		opt(m)
	}
	m.state = kinematics.New(start, sched.Now())
	m.maneuver = NewManeuver(Params{Bounds: cfg.Bounds, Speed: cfg.Speed, Radius: cfg.Radius}, m.stream, m.state)
	m.next = start
	m.event = sched.ScheduleNow(m.onTimer)
	return m, nil
}

// ID returns the model name.
func (m *Model) ID() string { return m.id }

// Mode returns the active maneuver mode.
func (m *Model) Mode() Mode { return m.maneuver.Mode() }

// Err returns the error that halted the model, if any.
func (m *Model) Err() error { return m.err }

// NextPosition returns where the current course is projected to end.
func (m *Model) NextPosition() geom.Vec { return m.next }

// OnCourseChange registers fn to be called after every commit.
func (m *Model) OnCourseChange(fn func(CourseChange)) {
	m.listeners = append(m.listeners, fn)
}

// Position returns the position extrapolated to the current simulation time
// and clamped into the bounds.
func (m *Model) Position() geom.Vec {
	m.state.UpdateWithBounds(m.sched.Now(), m.cfg.Bounds)
	return m.state.Position()
}

// Velocity returns the current velocity.
func (m *Model) Velocity() geom.Vec {
	return m.state.Velocity()
}

// SetPosition moves the agent to p, cancels the pending timer and restarts the
// cycle immediately. The maneuver keeps its mode and context.
func (m *Model) SetPosition(p geom.Vec) error {
	if !m.cfg.Bounds.Contains(p) {
		return fmt.Errorf("set %v: %w", p, ErrOutsideBounds)
	}
	if m.err != nil {
		return fmt.Errorf("model halted: %w", m.err)
	}
	m.state.SetPosition(p, m.sched.Now())
	m.sched.Cancel(m.event)
	m.event = m.sched.ScheduleNow(m.onTimer)
	m.notify()
	return nil
}

// AssignStreams sets the random stream number and returns how many streams
// the model consumes.
func (m *Model) AssignStreams(stream int64) int64 {
	m.stream.SetStream(stream)
	return 1
}

func (m *Model) onTimer() {
	m.event = 0
	before := m.maneuver.Mode()
	wait := m.maneuver.Step(m.sched.Now())
	if after := m.maneuver.Mode(); after != before && m.log != nil {
		m.log.Debug().
			Str(logging.KeyNode, m.id).
			Str("from_mode", before.String()).
			Str("to_mode", after.String()).
			Int64(logging.KeySimTimeMs, m.sched.Now().Milliseconds()).
			Msg("mode transition")
	}
	m.walk(wait)
}

// walk commits the current course and arms the timer for delay, applying the
// boundary policy when the committed or projected position leaves the bounds.
func (m *Model) walk(delay time.Duration) {
	now := m.sched.Now()
	b := m.cfg.Bounds

	pos := m.state.Position()
	if !b.Contains(pos) {
		switch m.cfg.Policy {
		case PolicyFatal:
			m.state.SetPosition(b.Clamp(pos), now)
			m.halt(fmt.Errorf("committed %v: %w", pos, ErrBoundaryExcursion))
			return
		case PolicyReflect:
			pos = b.Reflect(pos)
		default:
			pos = b.Clamp(pos)
		}
		m.state.SetPosition(pos, now)
	}

	vel := flatten(m.state.Velocity(), b)
	m.state.SetVelocity(vel)
	m.next = r3.Add(pos, r3.Scale(delay.Seconds(), vel))
	if b.Contains(m.next) {
		m.event = m.sched.Schedule(delay, m.onTimer)
		m.notify()
		return
	}

	hit, _ := b.Intersect(pos, vel)
	reach := min(seconds(hit.T), delay)
	m.warnExcursion(hit)
	switch m.cfg.Policy {
	case PolicyFatal:
		m.halt(fmt.Errorf("projected %v: %w", m.next, ErrBoundaryExcursion))
		return
	case PolicyReflect:
		m.next = r3.Add(pos, r3.Scale(reach.Seconds(), vel))
		left := delay - reach
		m.event = m.sched.Schedule(reach, func() { m.rebound(hit, left) })
	default:
		m.next = b.Clamp(r3.Add(pos, r3.Scale(reach.Seconds(), vel)))
		m.event = m.sched.Schedule(reach, m.onTimer)
	}
	m.notify()
}

// rebound reflects the velocity off the faces in hit and keeps flying for the
// rest of the requested delay.
func (m *Model) rebound(hit geom.Hit, left time.Duration) {
	m.event = 0
	m.state.UpdateWithBounds(m.sched.Now(), m.cfg.Bounds)
	v := m.state.Velocity()
	if hit.X {
		v.X = -v.X
	}
	if hit.Y {
		v.Y = -v.Y
	}
	if hit.Z {
		v.Z = -v.Z
	}
	m.state.SetVelocity(v)
	m.walk(left)
}

// flatten drops velocity along axes the bounds give no room to move in.
func flatten(v geom.Vec, b geom.Box) geom.Vec {
	if b.XMax == b.XMin {
		v.X = 0
	}
	if b.YMax == b.YMin {
		v.Y = 0
	}
	if b.Planar() {
		v.Z = 0
	}
	return v
}

func (m *Model) halt(err error) {
	m.err = err
	m.state.SetVelocity(geom.Vec{})
	m.next = m.state.Position()
	if m.log != nil {
		m.log.Error().
			Str(logging.KeyNode, m.id).
			Str(logging.KeyMode, m.maneuver.Mode().String()).
			Err(err).
			Msg("mobility model halted")
	}
	m.notify()
}

func (m *Model) warnExcursion(hit geom.Hit) {
	if m.log == nil {
		return
	}
	m.log.Warn().
		Str(logging.KeyNode, m.id).
		Str(logging.KeyMode, m.maneuver.Mode().String()).
		Str("policy", m.cfg.Policy.String()).
		Bool("x", hit.X).
		Bool("y", hit.Y).
		Bool("z", hit.Z).
		Msg("projected position leaves bounds")
}

func (m *Model) notify() {
	if len(m.listeners) == 0 {
		return
	}
	cc := CourseChange{
		Node:     m.id,
		At:       m.sched.Now(),
		Mode:     m.maneuver.Mode(),
		Position: m.state.Position(),
		Velocity: m.state.Velocity(),
	}
	for _, fn := range m.listeners {
		fn(cc)
	}
}
