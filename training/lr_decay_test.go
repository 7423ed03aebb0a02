package training

import (
	"bytes"
	"math"
	"strings"
	"testing"
)

// rateHolder is a bare RateAdjustable used to observe SetLR calls
type rateHolder struct {
	lr   float64
	sets int
}

func (r *rateHolder) GetLR() float64 { return r.lr }
func (r *rateHolder) SetLR(lr float64) {
	r.lr = lr
	r.sets++
}

func TestLRDecayReducesAfterPatience(t *testing.T) {
	opt := &rateHolder{lr: 0.1}
	var out bytes.Buffer
	decay := NewLRDecay(opt, 2, 1e-6, 0.5, WithOutput(&out))

	losses := []float64{1.0, 1.0, 1.0}
	for _, loss := range losses {
		decay.Update(loss)
	}
	if opt.lr != 0.1 || opt.sets != 0 {
		t.Fatalf("Expected LR untouched within patience, got %f after %d sets", opt.lr, opt.sets)
	}

	decay.Update(1.0)
	if math.Abs(opt.lr-0.05) > 1e-12 {
		t.Errorf("Expected LR 0.05 after patience+1 bad epochs, got %f", opt.lr)
	}
	if decay.Reductions() != 1 {
		t.Errorf("Expected 1 reduction, got %d", decay.Reductions())
	}
	if got := out.String(); got != "Epoch 4: reducing learning rate to 5.0000e-02.\n" {
		t.Errorf("Unexpected notice %q", got)
	}
}

func TestLRDecayNeverBelowMinLR(t *testing.T) {
	opt := &rateHolder{lr: 1.0}
	decay := NewLRDecay(opt, 0, 0.2, 0.5, WithLRDecayVerbose(false))

	for i := 0; i < 20; i++ {
		decay.Update(3.0)
		if opt.lr < 0.2 {
			t.Fatalf("Update %d: LR %f dropped below floor", i+1, opt.lr)
		}
	}
	if opt.lr != 0.2 {
		t.Errorf("Expected LR to settle at the floor 0.2, got %f", opt.lr)
	}
	// 1.0 -> 0.5 -> 0.25 -> 0.2
	if decay.Reductions() != 3 {
		t.Errorf("Expected 3 reductions, got %d", decay.Reductions())
	}
}

func TestLRDecayImprovementResets(t *testing.T) {
	opt := &rateHolder{lr: 0.1}
	decay := NewLRDecay(opt, 2, 1e-6, 0.5, WithLRDecayVerbose(false))

	for _, loss := range []float64{1.0, 1.0, 1.0, 0.5, 0.5, 0.5, 0.1} {
		decay.Update(loss)
	}
	if opt.lr != 0.1 {
		t.Errorf("Expected no reduction while the loss keeps improving, got %f", opt.lr)
	}
	if decay.Scheduler().BadEpochs() != 0 {
		t.Errorf("Expected bad epochs reset, got %d", decay.Scheduler().BadEpochs())
	}
}

func TestLRDecayNaNCountsAsBadEpoch(t *testing.T) {
	opt := &rateHolder{lr: 0.1}
	decay := NewLRDecay(opt, 1, 1e-6, 0.5, WithLRDecayVerbose(false))

	decay.Update(1.0)
	decay.Update(math.NaN())
	decay.Update(math.Inf(1))
	if math.Abs(opt.lr-0.05) > 1e-12 {
		t.Errorf("Expected non-finite losses to trigger a reduction, got LR %f", opt.lr)
	}
}

func TestLRDecayQuiet(t *testing.T) {
	opt := &rateHolder{lr: 0.1}
	var out bytes.Buffer
	decay := NewLRDecay(opt, 0, 1e-6, 0.5, WithOutput(&out), WithLRDecayVerbose(false))

	decay.Update(1.0)
	decay.Update(1.0)
	if out.Len() != 0 {
		t.Errorf("Expected no output when quiet, got %q", out.String())
	}
	if decay.LR() != 0.05 {
		t.Errorf("Expected LR 0.05, got %f", decay.LR())
	}
}

func TestLRDecayInvalidArgumentsUseDefaults(t *testing.T) {
	decay := NewLRDecay(&rateHolder{lr: 0.1}, -3, -1, 1.5)

	if decay.Patience() != DefaultPlateauPatience {
		t.Errorf("Expected default patience %d, got %d", DefaultPlateauPatience, decay.Patience())
	}
	if decay.Factor() != DefaultPlateauFactor {
		t.Errorf("Expected default factor %f, got %f", DefaultPlateauFactor, decay.Factor())
	}
	if decay.MinLR() != 0 {
		t.Errorf("Expected no floor for negative min LR, got %f", decay.MinLR())
	}
}

func TestLRDecayCooldownOption(t *testing.T) {
	opt := &rateHolder{lr: 1.0}
	var out bytes.Buffer
	decay := NewLRDecay(opt, 0, 1e-6, 0.5, WithCooldown(1), WithOutput(&out))

	for i := 0; i < 4; i++ {
		decay.Update(1.0)
	}
	// Reductions at epochs 2 and 4, epoch 3 is cooldown
	if decay.Reductions() != 2 {
		t.Errorf("Expected 2 reductions with cooldown, got %d", decay.Reductions())
	}
	if n := strings.Count(out.String(), "reducing learning rate"); n != 2 {
		t.Errorf("Expected 2 notices, got %d: %q", n, out.String())
	}
}
