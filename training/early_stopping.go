package training

import (
	"fmt"
	"io"
	"os"
)

// EarlyStopState is the phase of an EarlyStopping controller
type EarlyStopState int

const (
	EarlyStopInit     EarlyStopState = iota // No loss observed yet
	EarlyStopTracking                       // Best loss recorded, counting bad epochs
	EarlyStopStopped                        // Terminal
)

func (s EarlyStopState) String() string {
	switch s {
	case EarlyStopInit:
		return "INIT"
	case EarlyStopTracking:
		return "TRACKING"
	case EarlyStopStopped:
		return "STOPPED"
	default:
		return "Unknown"
	}
}

// optionalFloat is a float64 that may not have been set yet
type optionalFloat struct {
	value float64
	valid bool
}

// EarlyStopping signals the end of training when the validation loss stops
// improving for Patience consecutive epochs.
//
// An epoch improves when best-loss > MinDelta and regresses when
// best-loss < MinDelta. A loss exactly MinDelta away from the best does
// neither: the counter is left as is.
type EarlyStopping struct {
	Patience int
	MinDelta float64
	Verbose  bool

	best         optionalFloat
	counter      int
	stopped      bool
	epochs       int
	stoppedEpoch int
	out          io.Writer
}

// NewEarlyStopping creates an early stopping controller
func NewEarlyStopping(patience int, minDelta float64, verbose bool) *EarlyStopping {
	if minDelta < 0 {
		minDelta = 0
	}
	return &EarlyStopping{
		Patience: patience,
		MinDelta: minDelta,
		Verbose:  verbose,
		out:      os.Stdout,
	}
}

// DefaultEarlyStopping returns a quiet controller with patience 5 and no minimum delta
func DefaultEarlyStopping() *EarlyStopping {
	return NewEarlyStopping(5, 0, false)
}

// SetOutput redirects the stopping notice
func (e *EarlyStopping) SetOutput(w io.Writer) {
	if w != nil {
		e.out = w
	}
}

// Update records one epoch's validation loss. Calls after stopping are ignored.
func (e *EarlyStopping) Update(loss float64) {
	if e.stopped {
		return
	}
	e.epochs++

	if !e.best.valid {
		e.best = optionalFloat{value: loss, valid: true}
		return
	}

	diff := e.best.value - loss
	if diff > e.MinDelta {
		e.best.value = loss
		// reset counter if validation loss improves
		e.counter = 0
	} else if diff < e.MinDelta {
		e.counter++
		if e.counter >= e.Patience {
			if e.Verbose {
				fmt.Fprintln(e.out, "INFO: Early stopping")
			}
			e.stopped = true
			e.stoppedEpoch = e.epochs
		}
	}
}

// Stopped reports whether training should stop
func (e *EarlyStopping) Stopped() bool {
	return e.stopped
}

// Counter returns the number of consecutive non-improving epochs
func (e *EarlyStopping) Counter() int {
	return e.counter
}

// Best returns the best loss seen and whether one has been recorded
func (e *EarlyStopping) Best() (float64, bool) {
	return e.best.value, e.best.valid
}

// Epochs returns the number of updates counted before stopping
func (e *EarlyStopping) Epochs() int {
	return e.epochs
}

// StoppedEpoch returns the 1-based update at which stopping fired, or 0
func (e *EarlyStopping) StoppedEpoch() int {
	return e.stoppedEpoch
}

// State returns the controller's current phase
func (e *EarlyStopping) State() EarlyStopState {
	switch {
	case e.stopped:
		return EarlyStopStopped
	case e.best.valid:
		return EarlyStopTracking
	default:
		return EarlyStopInit
	}
}
