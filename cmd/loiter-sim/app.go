package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

type app struct {
	root   *cobra.Command
	stdout io.Writer
	stderr io.Writer
}

func newApp() *app {
	a := &app{
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	a.root = &cobra.Command{
		Use:   "loiter-sim",
		Short: "Discrete-event simulator for loitering aircraft",
		Long: `loiter-sim flies one or more agents through the loiter pattern:
a random waypoint, one full circle in place, one racetrack circuit and then
figure-eights until the run ends, all inside a 3D bounding box.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	a.root.AddCommand(
		a.newVersionCmd(),
		a.newValidateCmd(),
		a.newRunCmd(),
	)
	return a
}

func (a *app) withOutput(stdout, stderr io.Writer) *app {
	a.stdout = stdout
	a.stderr = stderr
	a.root.SetOut(stdout)
	a.root.SetErr(stderr)
	return a
}

func (a *app) Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return a.root.ExecuteContext(ctx)
}

func (a *app) executeWithArgs(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.Execute(ctx)
}

func (a *app) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "loiter-sim version %s\n", Version)
			fmt.Fprintf(a.stdout, "  Git commit: %s\n", GitCommit)
		},
	}
}
