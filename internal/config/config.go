package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"loiter-sim/internal/geom"
	"loiter-sim/internal/logging"
	"loiter-sim/internal/mobility"
)

type Config struct {
	Mobility MobilityConfig `yaml:"mobility"`
	Run      RunConfig      `yaml:"run"`
	Log      LogConfig      `yaml:"log"`
	Plot     PlotConfig     `yaml:"plot"`
}

type BoxConfig struct {
	XMin float64 `yaml:"x_min"`
	XMax float64 `yaml:"x_max"`
	YMin float64 `yaml:"y_min"`
	YMax float64 `yaml:"y_max"`
	ZMin float64 `yaml:"z_min"`
	ZMax float64 `yaml:"z_max"`
}

// Box converts the YAML extents into a geom.Box without validating them.
func (b BoxConfig) Box() geom.Box {
	return geom.Box{XMin: b.XMin, XMax: b.XMax, YMin: b.YMin, YMax: b.YMax, ZMin: b.ZMin, ZMax: b.ZMax}
}

func (b BoxConfig) validBox() (geom.Box, error) {
	return geom.NewBox(b.XMin, b.XMax, b.YMin, b.YMax, b.ZMin, b.ZMax)
}

type MobilityConfig struct {
	Bounds *BoxConfig `yaml:"bounds"`
	Speed  float64    `yaml:"speed"`
	// Radius is a pointer so an explicit 0 can be told apart from "unset".
	Radius   *float64 `yaml:"radius"`
	Boundary string   `yaml:"boundary"`
}

type RunConfig struct {
	Duration time.Duration `yaml:"duration"`
	Seed     uint64        `yaml:"seed"`
	Nodes    int           `yaml:"nodes"`
	StartBox *BoxConfig    `yaml:"start_box"`
	Scenario string        `yaml:"scenario"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type PlotConfig struct {
	Enable bool   `yaml:"enable"`
	Path   string `yaml:"path"`
}

// Default returns the configuration an empty file produces.
func Default() Config {
	cfg, err := Parse(nil)
	if err != nil {
		panic(err)
	}
	return cfg
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(b)
}

// Parse decodes a YAML document, applies defaults and validates the result.
func Parse(b []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		if strings.Contains(err.Error(), "not found in type") {
			return Config{}, fmt.Errorf("config contains unknown fields: %w", err)
		}
		return Config{}, err
	}

	// Mobility defaults follow mobility.DefaultConfig.
	def := mobility.DefaultConfig()
	if cfg.Mobility.Bounds == nil {
		b := def.Bounds
		cfg.Mobility.Bounds = &BoxConfig{XMin: b.XMin, XMax: b.XMax, YMin: b.YMin, YMax: b.YMax, ZMin: b.ZMin, ZMax: b.ZMax}
	}
	bounds, err := cfg.Mobility.Bounds.validBox()
	if err != nil {
		return Config{}, fmt.Errorf("mobility.bounds: %w", err)
	}
	if cfg.Mobility.Speed == 0 {
		cfg.Mobility.Speed = def.Speed
	}
	if cfg.Mobility.Speed < 0 {
		return Config{}, fmt.Errorf("mobility.speed must be > 0")
	}
	if cfg.Mobility.Radius == nil {
		r := def.Radius
		cfg.Mobility.Radius = &r
	}
	if *cfg.Mobility.Radius < 0 {
		return Config{}, fmt.Errorf("mobility.radius must be >= 0")
	}
	if _, err := mobility.ParsePolicy(cfg.Mobility.Boundary); err != nil {
		return Config{}, fmt.Errorf("mobility.boundary must be one of clamp, reflect, fatal (got %q)", cfg.Mobility.Boundary)
	}
	if cfg.Mobility.Boundary == "" {
		cfg.Mobility.Boundary = mobility.PolicyClamp.String()
	}

	// Run defaults.
	if cfg.Run.Duration == 0 {
		cfg.Run.Duration = 60 * time.Second
	}
	if cfg.Run.Duration < 0 {
		return Config{}, fmt.Errorf("run.duration must be > 0")
	}
	if cfg.Run.Seed == 0 {
		cfg.Run.Seed = 1
	}
	if cfg.Run.Nodes == 0 {
		cfg.Run.Nodes = 1
	}
	if cfg.Run.Nodes < 0 {
		return Config{}, fmt.Errorf("run.nodes must be > 0")
	}
	if cfg.Run.StartBox == nil {
		sb := *cfg.Mobility.Bounds
		cfg.Run.StartBox = &sb
	}
	start, err := cfg.Run.StartBox.validBox()
	if err != nil {
		return Config{}, fmt.Errorf("run.start_box: %w", err)
	}
	if !bounds.Contains(geom.Vec{X: start.XMin, Y: start.YMin, Z: start.ZMin}) ||
		!bounds.Contains(geom.Vec{X: start.XMax, Y: start.YMax, Z: start.ZMax}) {
		return Config{}, fmt.Errorf("run.start_box must lie inside mobility.bounds")
	}
	cfg.Run.Scenario = strings.TrimSpace(cfg.Run.Scenario)

	// Logging defaults.
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		return Config{}, fmt.Errorf("log.level: %w", err)
	}
	switch cfg.Log.Format {
	case "":
		cfg.Log.Format = "console"
	case "console", "json":
	default:
		return Config{}, fmt.Errorf("log.format must be 'console' or 'json'")
	}

	if cfg.Plot.Path == "" {
		cfg.Plot.Path = "trajectory.png"
	}

	return cfg, nil
}

// ModelConfig returns the mobility model settings. Parse has already
// validated every field.
func (c Config) ModelConfig() mobility.Config {
	policy, _ := mobility.ParsePolicy(c.Mobility.Boundary)
	cfg := mobility.Config{
		Speed:  c.Mobility.Speed,
		Policy: policy,
	}
	if c.Mobility.Bounds != nil {
		cfg.Bounds = c.Mobility.Bounds.Box()
	}
	if c.Mobility.Radius != nil {
		cfg.Radius = *c.Mobility.Radius
	}
	return cfg
}

// StartBox returns the initial placement box.
func (c Config) StartBox() geom.Box {
	if c.Run.StartBox == nil {
		return c.ModelConfig().Bounds
	}
	return c.Run.StartBox.Box()
}
