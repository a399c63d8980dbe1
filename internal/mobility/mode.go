package mobility

import (
	"fmt"
	"strings"
)

// Mode is the top-level maneuver.
type Mode int

const (
	ModeWaypoint Mode = iota + 1
	ModeStayAt
	ModeOval
	ModeEight
)

func (m Mode) String() string {
	switch m {
	case ModeWaypoint:
		return "WAYPOINT"
	case ModeStayAt:
		return "STAYAT"
	case ModeOval:
		return "OVAL"
	case ModeEight:
		return "EIGHT"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Phase is the sub-state of the racetrack and figure-eight modes.
type Phase int

const (
	// PhaseEntry flies the initial random leg when a pattern starts.
	PhaseEntry Phase = iota
	// PhaseLeg flies a straight leg to the next corner.
	PhaseLeg
	// PhaseArc traces a circular arc in unit steps.
	PhaseArc
)

func (p Phase) String() string {
	switch p {
	case PhaseEntry:
		return "entry"
	case PhaseLeg:
		return "leg"
	case PhaseArc:
		return "arc"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Policy selects what happens when a projected position leaves the bounds.
type Policy int

const (
	// PolicyClamp stops the agent at the boundary.
	PolicyClamp Policy = iota
	// PolicyReflect bounces the velocity off the crossed faces.
	PolicyReflect
	// PolicyFatal halts the model with ErrBoundaryExcursion.
	PolicyFatal
)

func (p Policy) String() string {
	switch p {
	case PolicyClamp:
		return "clamp"
	case PolicyReflect:
		return "reflect"
	case PolicyFatal:
		return "fatal"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy converts a policy name into a Policy.
func ParsePolicy(value string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "clamp":
		return PolicyClamp, nil
	case "reflect":
		return PolicyReflect, nil
	case "fatal":
		return PolicyFatal, nil
	default:
		return PolicyClamp, fmt.Errorf("unknown boundary policy %q", value)
	}
}
