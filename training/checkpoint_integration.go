package training

import (
	"fmt"
	"math"

	"github.com/tsawler/go-plateau/checkpoints"
)

// Snapshot captures the controller and the optimizer's current learning rate
func (d *LRDecay) Snapshot() *checkpoints.LRDecayState {
	st := d.scheduler.State()
	hasBest := !math.IsInf(st.BestMetric, 0)
	best := st.BestMetric
	if !hasBest {
		best = 0
	}

	return &checkpoints.LRDecayState{
		Patience:     d.patience,
		MinLR:        d.minLR,
		Factor:       d.factor,
		Threshold:    d.scheduler.Threshold,
		Cooldown:     d.scheduler.Cooldown,
		LearningRate: d.optimizer.GetLR(),
		Plateau: checkpoints.PlateauState{
			BestMetric:      best,
			HasBest:         hasBest,
			BadEpochs:       st.BadEpochs,
			CooldownCounter: st.CooldownCounter,
			LastEpoch:       st.LastEpoch,
			Reductions:      st.Reductions,
		},
	}
}

// Restore loads a snapshot and pushes its learning rate into the optimizer
func (d *LRDecay) Restore(st *checkpoints.LRDecayState) error {
	if st == nil {
		return fmt.Errorf("nil LR decay state")
	}
	if st.Factor <= 0 || st.Factor >= 1 {
		return fmt.Errorf("invalid factor %g in LR decay state", st.Factor)
	}
	if st.Patience < 0 {
		return fmt.Errorf("invalid patience %d in LR decay state", st.Patience)
	}

	d.patience = st.Patience
	d.minLR = st.MinLR
	d.factor = st.Factor
	d.scheduler.Patience = st.Patience
	d.scheduler.MinLR = st.MinLR
	d.scheduler.Factor = st.Factor
	d.scheduler.Threshold = st.Threshold
	d.scheduler.Cooldown = st.Cooldown

	best := d.scheduler.worst()
	if st.Plateau.HasBest {
		best = st.Plateau.BestMetric
	}
	d.scheduler.SetState(PlateauState{
		BestMetric:      best,
		BadEpochs:       st.Plateau.BadEpochs,
		CooldownCounter: st.Plateau.CooldownCounter,
		LastEpoch:       st.Plateau.LastEpoch,
		Reductions:      st.Plateau.Reductions,
		CurrentLR:       st.LearningRate,
		Initialized:     st.Plateau.LastEpoch > 0,
	})
	d.optimizer.SetLR(st.LearningRate)
	return nil
}

// Snapshot captures the controller's counters
func (e *EarlyStopping) Snapshot() *checkpoints.EarlyStopState {
	return &checkpoints.EarlyStopState{
		Patience:     e.Patience,
		MinDelta:     e.MinDelta,
		Best:         e.best.value,
		HasBest:      e.best.valid,
		Counter:      e.counter,
		Stopped:      e.stopped,
		Epochs:       e.epochs,
		StoppedEpoch: e.stoppedEpoch,
	}
}

// Restore loads a snapshot taken with Snapshot
func (e *EarlyStopping) Restore(st *checkpoints.EarlyStopState) error {
	if st == nil {
		return fmt.Errorf("nil early stopping state")
	}
	if st.Counter < 0 {
		return fmt.Errorf("invalid counter %d in early stopping state", st.Counter)
	}

	e.Patience = st.Patience
	e.MinDelta = st.MinDelta
	e.best = optionalFloat{value: st.Best, valid: st.HasBest}
	e.counter = st.Counter
	e.stopped = st.Stopped
	e.epochs = st.Epochs
	e.stoppedEpoch = st.StoppedEpoch
	return nil
}

// NewCheckpoint bundles both controllers; either may be nil
func NewCheckpoint(decay *LRDecay, stop *EarlyStopping) *checkpoints.Checkpoint {
	cp := &checkpoints.Checkpoint{}
	if decay != nil {
		cp.LRDecay = decay.Snapshot()
	}
	if stop != nil {
		cp.EarlyStop = stop.Snapshot()
	}
	return cp
}

// RestoreCheckpoint loads whichever controller states the checkpoint carries
func RestoreCheckpoint(cp *checkpoints.Checkpoint, decay *LRDecay, stop *EarlyStopping) error {
	if decay != nil && cp.LRDecay != nil {
		if err := decay.Restore(cp.LRDecay); err != nil {
			return fmt.Errorf("failed to restore LR decay: %w", err)
		}
	}
	if stop != nil && cp.EarlyStop != nil {
		if err := stop.Restore(cp.EarlyStop); err != nil {
			return fmt.Errorf("failed to restore early stopping: %w", err)
		}
	}
	return nil
}
