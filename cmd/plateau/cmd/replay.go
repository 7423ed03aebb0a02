package cmd

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tsawler/go-plateau/checkpoints"
	"github.com/tsawler/go-plateau/training"
)

func newReplayCommand(opts *options) *cobra.Command {
	replay := &cobra.Command{
		Use:   "replay <loss-file> [loss-file...]",
		Short: "Replay one or more recorded loss curves.",
		Long: `Each file holds one validation loss per line, optionally ` +
			`preceded by an epoch number ("3,0.412" or "3 0.412"). Blank ` +
			`lines and lines starting with # are skipped. Files are replayed ` +
			`independently and reported in the order given.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (opts.StateOut != "" || opts.Resume != "") && len(args) > 1 {
				return fmt.Errorf("--state-out and --resume take a single loss file, got %d", len(args))
			}
			return runReplay(cmd.OutOrStdout(), opts, args)
		},
	}

	replay.Flags().StringVar(&opts.StateOut, "state-out", "", "write final controller state here (.json for JSON, anything else binary)")
	replay.Flags().StringVar(&opts.Resume, "resume", "", "continue from a controller state written by --state-out")
	return replay
}

func runReplay(out io.Writer, opts *options, files []string) error {
	reports := make([]bytes.Buffer, len(files))

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			losses, err := readLossFile(file)
			if err != nil {
				return err
			}
			if err := replayCurve(&reports[i], opts, losses); err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, file := range files {
		if len(files) > 1 {
			fmt.Fprintf(out, "== %s ==\n", file)
		}
		if _, err := reports[i].WriteTo(out); err != nil {
			return err
		}
	}
	return nil
}

// replayCurve drives one controller pair the way a training loop would:
// LR decay first, then early stopping, halting once stopping fires.
func replayCurve(w io.Writer, opts *options, losses []float64) error {
	cfg := opts.Config
	cfg.Verbose = !opts.Quiet

	optimizer := training.NewSGD(nil, opts.LearningRate, 0, 0)
	decay := cfg.NewLRDecay(optimizer, training.WithOutput(w))
	stop := cfg.NewEarlyStopping()
	stop.SetOutput(w)

	start := 0
	if opts.Resume != "" {
		cp, err := saverFor(opts.Resume).LoadCheckpoint(opts.Resume)
		if err != nil {
			return err
		}
		if err := training.RestoreCheckpoint(cp, decay, stop); err != nil {
			return err
		}
		start = decay.Scheduler().LastEpoch()
	}

	for i, loss := range losses {
		if stop.Stopped() {
			break
		}
		decay.Update(loss)
		stop.Update(loss)

		line := fmt.Sprintf("epoch %4d  loss %.6f  lr %.4e  wait %d", start+i+1, loss, decay.LR(), stop.Counter())
		if stop.Stopped() {
			line += "  STOP"
		}
		fmt.Fprintln(w, line)
	}

	best, _ := stop.Best()
	fmt.Fprintf(w, "best %.6f  final lr %.4e  reductions %d  stopped %v\n", best, decay.LR(), decay.Reductions(), stop.Stopped())

	if opts.StateOut != "" {
		if err := saverFor(opts.StateOut).SaveCheckpoint(training.NewCheckpoint(decay, stop), opts.StateOut); err != nil {
			return err
		}
	}
	return nil
}

func saverFor(path string) *checkpoints.CheckpointSaver {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return checkpoints.NewCheckpointSaver(checkpoints.FormatJSON)
	}
	return checkpoints.NewCheckpointSaver(checkpoints.FormatBinary)
}

func readLossFile(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open loss file: %w", err)
	}
	defer f.Close()

	losses, err := parseLosses(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return losses, nil
}

// parseLosses reads one loss per line, taking the last comma or space
// separated field so "epoch,loss" rows work too.
func parseLosses(r io.Reader) ([]float64, error) {
	var losses []float64

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.FieldsFunc(line, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		})
		if len(fields) == 0 {
			return nil, fmt.Errorf("line %d: no loss value", lineNo)
		}
		loss, err := strconv.ParseFloat(fields[len(fields)-1], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid loss %q", lineNo, fields[len(fields)-1])
		}
		losses = append(losses, loss)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return losses, nil
}
