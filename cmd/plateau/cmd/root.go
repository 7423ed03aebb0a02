// Package cmd provides the command-line interface for replaying loss curves
// through the LR decay and early stopping controllers.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tsawler/go-plateau/training"
)

// envPrefix namespaces environment overrides, e.g. PLATEAU_PATIENCE
const envPrefix = "PLATEAU_"

type options struct {
	training.Config
	LearningRate float64
	Quiet        bool
	StateOut     string
	Resume       string
	EnvFile      string
}

func defaultOptions() *options {
	return &options{
		Config:       training.DefaultConfig(),
		LearningRate: 0.01,
		EnvFile:      ".env",
	}
}

// NewRootCommand builds the plateau command tree
func NewRootCommand() *cobra.Command {
	opts := defaultOptions()

	root := &cobra.Command{
		Use:   "plateau",
		Short: "Replay validation loss curves through LR decay and early stopping.",
		Long: `plateau feeds recorded per-epoch validation losses to the ` +
			`learning rate decay and early stopping controllers and reports ` +
			`when the rate would drop and when training would stop.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return applyEnv(cmd.Flags(), opts.EnvFile)
		},
	}

	flags := root.PersistentFlags()
	flags.IntVar(&opts.Patience, "patience", opts.Patience, "epochs without improvement tolerated by both controllers")
	flags.Float64Var(&opts.MinDelta, "min-delta", opts.MinDelta, "minimum loss decrease counted as an improvement for early stopping")
	flags.Float64Var(&opts.Factor, "factor", opts.Factor, "multiplicative learning rate decay factor")
	flags.Float64Var(&opts.MinLR, "min-lr", opts.MinLR, "learning rate floor")
	flags.Float64Var(&opts.Threshold, "threshold", opts.Threshold, "relative improvement threshold for LR decay")
	flags.IntVar(&opts.Cooldown, "cooldown", opts.Cooldown, "epochs to wait after an LR reduction")
	flags.Float64Var(&opts.LearningRate, "lr", opts.LearningRate, "initial learning rate")
	flags.BoolVarP(&opts.Quiet, "quiet", "q", opts.Quiet, "suppress controller notices")
	flags.StringVar(&opts.EnvFile, "env-file", opts.EnvFile, "dotenv file with PLATEAU_* defaults, ignored if missing")

	root.AddCommand(newReplayCommand(opts))
	return root
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// applyEnv loads envFile if present, then fills every flag the user did not
// set from its PLATEAU_* variable.
func applyEnv(flags *pflag.FlagSet, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	var firstErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Changed || firstErr != nil {
			return
		}
		name := envPrefix + strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
		value, ok := os.LookupEnv(name)
		if !ok {
			return
		}
		if err := flags.Set(f.Name, value); err != nil {
			firstErr = fmt.Errorf("invalid %s: %w", name, err)
		}
	})
	return firstErr
}
