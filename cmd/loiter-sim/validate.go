package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"loiter-sim/internal/config"
)

type validateOptions struct {
	configPath string
	scenario   string
}

func (a *app) newValidateCmd() *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file and scenario script",
		Long: `Validate a run configuration without running it.

This command checks:
  - YAML syntax and unknown keys
  - Bounds, speed, radius and boundary policy
  - Scenario node names, reposition ordering and positions against the bounds

Examples:
  loiter-sim validate -c loiter.yaml
  loiter-sim validate -c loiter.yaml --scenario patrol.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.validate(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to YAML config")
	cmd.Flags().StringVar(&opts.scenario, "scenario", "", "Path to YAML scenario script (overrides run.scenario)")

	return cmd
}

func (a *app) validate(opts *validateOptions) error {
	if opts.configPath == "" {
		return fmt.Errorf("configuration file path is required (-c flag)")
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if opts.scenario != "" {
		cfg.Run.Scenario = opts.scenario
	}
	sc, err := loadScenario(cfg.Run.Scenario, cfg.ModelConfig().Bounds)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Fprintf(a.stdout, "configuration valid: %s\n", opts.configPath)
	fmt.Fprintf(a.stdout, "  nodes: %d\n", len(nodeSpecs(cfg, sc)))
	fmt.Fprintf(a.stdout, "  duration: %s\n", cfg.Run.Duration)
	fmt.Fprintf(a.stdout, "  boundary: %s\n", cfg.Mobility.Boundary)
	if sc != nil {
		fmt.Fprintf(a.stdout, "  scenario: %s (last reposition at %s)\n", cfg.Run.Scenario, sc.Duration())
	}
	return nil
}
