package training

import (
	"fmt"
	"io"
	"os"
)

// LRDecay lowers an optimizer's learning rate when the validation loss plateaus.
//
// Each Update feeds one epoch's loss to a ReduceLROnPlateauScheduler in "min"
// mode. Once more than Patience consecutive epochs fail to improve on the best
// loss, the rate is multiplied by Factor and clamped at MinLR.
type LRDecay struct {
	optimizer RateAdjustable
	scheduler *ReduceLROnPlateauScheduler
	patience  int
	minLR     float64
	factor    float64
	verbose   bool
	out       io.Writer
}

// LRDecayOption configures an LRDecay
type LRDecayOption func(*LRDecay)

// WithThreshold sets the relative improvement threshold of the plateau policy
func WithThreshold(threshold float64) LRDecayOption {
	return func(d *LRDecay) {
		if threshold >= 0 {
			d.scheduler.Threshold = threshold
		}
	}
}

// WithCooldown sets the number of epochs ignored after each reduction
func WithCooldown(epochs int) LRDecayOption {
	return func(d *LRDecay) {
		if epochs >= 0 {
			d.scheduler.Cooldown = epochs
		}
	}
}

// WithLRDecayVerbose toggles the reduction notice
func WithLRDecayVerbose(verbose bool) LRDecayOption {
	return func(d *LRDecay) {
		d.verbose = verbose
	}
}

// WithOutput redirects notices, which go to stdout by default
func WithOutput(w io.Writer) LRDecayOption {
	return func(d *LRDecay) {
		if w != nil {
			d.out = w
		}
	}
}

// NewLRDecay creates a controller that decays opt's learning rate.
// new_lr = max(old_lr * factor, minLR). Notices are printed unless
// WithLRDecayVerbose(false) is given.
func NewLRDecay(opt RateAdjustable, patience int, minLR, factor float64, opts ...LRDecayOption) *LRDecay {
	scheduler := NewReduceLROnPlateauScheduler(factor, patience, DefaultPlateauThreshold, ModeMin)
	if minLR > 0 {
		scheduler.MinLR = minLR
	}

	d := &LRDecay{
		optimizer: opt,
		scheduler: scheduler,
		patience:  scheduler.Patience,
		minLR:     scheduler.MinLR,
		factor:    scheduler.Factor,
		verbose:   true,
		out:       os.Stdout,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Update informs the plateau policy of the latest validation loss
func (d *LRDecay) Update(metric float64) {
	oldLR := d.optimizer.GetLR()
	newLR := d.scheduler.Step(metric, oldLR)
	if newLR == oldLR {
		return
	}

	d.optimizer.SetLR(newLR)
	if d.verbose && newLR < oldLR {
		fmt.Fprintf(d.out, "Epoch %d: reducing learning rate to %.4e.\n", d.scheduler.LastEpoch(), newLR)
	}
}

// LR returns the optimizer's current learning rate
func (d *LRDecay) LR() float64 {
	return d.optimizer.GetLR()
}

// Patience returns the number of bad epochs tolerated before a reduction
func (d *LRDecay) Patience() int {
	return d.patience
}

// MinLR returns the learning rate floor
func (d *LRDecay) MinLR() float64 {
	return d.minLR
}

// Factor returns the decay factor
func (d *LRDecay) Factor() float64 {
	return d.factor
}

// Reductions returns how many times the learning rate has been lowered
func (d *LRDecay) Reductions() int {
	return d.scheduler.Reductions()
}

// Scheduler exposes the delegated plateau policy
func (d *LRDecay) Scheduler() *ReduceLROnPlateauScheduler {
	return d.scheduler
}
