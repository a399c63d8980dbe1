package main

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/bolt/v3"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"loiter-sim/internal/config"
	"loiter-sim/internal/geom"
	"loiter-sim/internal/logging"
	"loiter-sim/internal/mobility"
	"loiter-sim/internal/rng"
	"loiter-sim/internal/sim"
	"loiter-sim/internal/trajectory"
)

type runOptions struct {
	configPath string
	scenario   string
	duration   time.Duration
	seed       uint64
	nodes      int
	plot       bool
	plotPath   string
	logLevel   string
	logFormat  string
}

func (a *app) newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a loiter simulation",
		Long: `Run the discrete-event simulation and print a summary.

Flags override the matching configuration values.

Examples:
  # Defaults: one node in a 1000 m cube for 60 s
  loiter-sim run

  # Five nodes for ten minutes with a trajectory plot
  loiter-sim run -c loiter.yaml --nodes 5 --duration 10m --plot`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadRunConfig(cmd, opts)
			if err != nil {
				return err
			}
			return a.run(cmd.Context(), cfg)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "Path to YAML config (defaults apply when empty)")
	f.StringVar(&opts.scenario, "scenario", "", "Path to YAML scenario script")
	f.DurationVar(&opts.duration, "duration", 0, "Simulated run length")
	f.Uint64Var(&opts.seed, "seed", 0, "Random seed")
	f.IntVar(&opts.nodes, "nodes", 0, "Number of nodes (ignored with a scenario)")
	f.BoolVar(&opts.plot, "plot", false, "Write a trajectory image")
	f.StringVar(&opts.plotPath, "plot-path", "", "Trajectory image path")
	f.StringVar(&opts.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	f.StringVar(&opts.logFormat, "log-format", "", "Log format (console, json)")

	return cmd
}

func loadRunConfig(cmd *cobra.Command, opts *runOptions) (config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return config.Config{}, fmt.Errorf("config load failed: %w", err)
		}
	}

	f := cmd.Flags()
	if f.Changed("scenario") {
		cfg.Run.Scenario = opts.scenario
	}
	if f.Changed("duration") {
		if opts.duration <= 0 {
			return config.Config{}, fmt.Errorf("--duration must be > 0")
		}
		cfg.Run.Duration = opts.duration
	}
	if f.Changed("seed") {
		cfg.Run.Seed = opts.seed
	}
	if f.Changed("nodes") {
		if opts.nodes <= 0 {
			return config.Config{}, fmt.Errorf("--nodes must be > 0")
		}
		cfg.Run.Nodes = opts.nodes
	}
	if f.Changed("plot") {
		cfg.Plot.Enable = opts.plot
	}
	if f.Changed("plot-path") {
		cfg.Plot.Path = opts.plotPath
		cfg.Plot.Enable = true
	}
	if f.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if f.Changed("log-format") {
		cfg.Log.Format = opts.logFormat
	}
	return cfg, nil
}

func (a *app) run(ctx context.Context, cfg config.Config) error {
	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: a.stderr})
	if err != nil {
		return fmt.Errorf("logger init failed: %w", err)
	}
	bounds := cfg.ModelConfig().Bounds
	sc, err := loadScenario(cfg.Run.Scenario, bounds)
	if err != nil {
		return err
	}

	logger.Info().
		Int("nodes", len(nodeSpecs(cfg, sc))).
		Int64("duration_ms", cfg.Run.Duration.Milliseconds()).
		Int64("seed", int64(cfg.Run.Seed)).
		Str("boundary", cfg.Mobility.Boundary).
		Msg("loiter-sim starting")

	rec := trajectory.NewRecorder()
	var changes []mobility.CourseChange
	models, err := simulate(ctx, cfg, sc, logger, rec.Observe, func(cc mobility.CourseChange) {
		changes = append(changes, cc)
	})
	if err != nil {
		return err
	}

	s := summarizeCourseChanges(changes)
	s.addFinalStates(models)
	printRunSummary(a.stdout, s)

	for _, m := range models {
		p := m.Position()
		e := logging.With(logger.Info(), logging.Node(m.ID()), logging.Mode(m.Mode()), logging.ErrorField(m.Err()))
		e.Str("position", fmt.Sprintf("(%.2f, %.2f, %.2f)", p.X, p.Y, p.Z)).Msg("final state")
	}
	logging.With(logger.Info(),
		logging.Count("course_changes", s.CourseChanges),
		logging.Count("halted", s.Halted),
		logging.SimTime(cfg.Run.Duration),
	).Msg("loiter-sim finished")

	if cfg.Plot.Enable {
		if err := rec.Save(cfg.Plot.Path, bounds); err != nil {
			return fmt.Errorf("plot: %w", err)
		}
		logger.Info().Str("path", cfg.Plot.Path).Msg("trajectory written")
	}
	return nil
}

// loadScenario reads and validates the scenario script at path. An empty path
// means no scenario.
func loadScenario(path string, bounds geom.Box) (*sim.Scenario, error) {
	if path == "" {
		return nil, nil
	}
	script, err := sim.LoadScenarioScript(path)
	if err != nil {
		return nil, fmt.Errorf("scenario load failed: %w", err)
	}
	sc, err := sim.NewScenario(script)
	if err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}
	for i, n := range sc.Nodes() {
		if n.Start != nil && !bounds.Contains(n.Start.Vec()) {
			return nil, fmt.Errorf("scenario: nodes[%d].start: %w", i, mobility.ErrOutsideBounds)
		}
		for j, r := range n.Repositions {
			if !bounds.Contains(r.Point().Vec()) {
				return nil, fmt.Errorf("scenario: nodes[%d].repositions[%d]: %w", i, j, mobility.ErrOutsideBounds)
			}
		}
	}
	return sc, nil
}

// nodeSpecs lists the nodes to create: the scenario's, or run.nodes unnamed
// nodes with IDs derived from the seed.
func nodeSpecs(cfg config.Config, sc *sim.Scenario) []sim.ScenarioNode {
	if sc != nil {
		return sc.Nodes()
	}
	nodes := make([]sim.ScenarioNode, cfg.Run.Nodes)
	for i := range nodes {
		nodes[i].Name = nodeID(cfg.Run.Seed, i)
	}
	return nodes
}

func nodeID(seed uint64, i int) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, fmt.Appendf(nil, "loiter-sim/%d/%d", seed, i)).String()
}

// simulate builds one model per node on a shared simulator and runs it for
// run.duration. Stream 0 places nodes without a scripted start; node i draws
// destinations from stream i+1.
func simulate(ctx context.Context, cfg config.Config, sc *sim.Scenario, logger *bolt.Logger, observers ...func(mobility.CourseChange)) ([]*mobility.Model, error) {
	s := sim.NewSimulator()
	s.StopAt(cfg.Run.Duration)

	placement := mobility.RandomBoxAllocator{
		Box:    cfg.StartBox(),
		Stream: rng.NewUniformStream(cfg.Run.Seed, 0),
	}
	specs := nodeSpecs(cfg, sc)
	models := make([]*mobility.Model, 0, len(specs))
	for i, n := range specs {
		var start geom.Vec
		if n.Start != nil {
			start = n.Start.Vec()
		} else {
			start = placement.Next()
		}

		m, err := mobility.New(cfg.ModelConfig(), s, start, rng.NewUniform(cfg.Run.Seed),
			mobility.WithID(n.Name), mobility.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", n.Name, err)
		}
		m.AssignStreams(int64(i + 1))
		for _, fn := range observers {
			m.OnCourseChange(fn)
		}
		for _, r := range n.Repositions {
			s.Schedule(r.T, func() {
				if err := m.SetPosition(r.Point().Vec()); err != nil && logger != nil {
					logging.With(logger.Warn(), logging.Node(m.ID()), logging.SimTime(s.Now()), logging.ErrorField(err)).
						Msg("reposition rejected")
				}
			})
		}
		models = append(models, m)
	}

	if err := s.Run(ctx); err != nil {
		return models, fmt.Errorf("simulation: %w", err)
	}
	return models, nil
}
