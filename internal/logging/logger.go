// Package logging provides structured logging using bolt.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/felixgeelhaar/bolt/v3"
)

// Field keys shared by the simulation packages.
const (
	KeyNode      = "node"
	KeyMode      = "mode"
	KeySimTimeMs = "sim_time_ms"
)

// Config configures a logger.
type Config struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string

	// Format is the output format (json or console).
	Format string

	// Output is the output destination. Defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig returns console logging at info level on stderr.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "console",
		Output: os.Stderr,
	}
}

// ParseLevel converts a level name to a bolt.Level.
func ParseLevel(s string) (bolt.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return bolt.TRACE, nil
	case "debug":
		return bolt.DEBUG, nil
	case "", "info":
		return bolt.INFO, nil
	case "warn":
		return bolt.WARN, nil
	case "error":
		return bolt.ERROR, nil
	default:
		return bolt.INFO, fmt.Errorf("unknown log level %q", s)
	}
}

// New builds a logger from cfg.
func New(cfg Config) (*bolt.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	var handler bolt.Handler
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "json":
		handler = bolt.NewJSONHandler(out)
	case "", "console":
		handler = bolt.NewConsoleHandler(out)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	return bolt.New(handler).SetLevel(level), nil
}

// Field is a function that applies structured data to a log event.
type Field func(*bolt.Event) *bolt.Event

// With applies fields to e.
func With(e *bolt.Event, fields ...Field) *bolt.Event {
	for _, f := range fields {
		e = f(e)
	}
	return e
}

// Node adds the node name.
func Node(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str(KeyNode, id)
	}
}

// Mode adds a maneuver mode.
func Mode(mode fmt.Stringer) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str(KeyMode, mode.String())
	}
}

// SimTime adds a simulation timestamp in milliseconds.
func SimTime(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64(KeySimTimeMs, d.Milliseconds())
	}
}

// Count adds an integer counter.
func Count(name string, n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int(name, n)
	}
}

// ErrorField adds an error field.
func ErrorField(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		if err == nil {
			return e
		}
		return e.Err(err)
	}
}
