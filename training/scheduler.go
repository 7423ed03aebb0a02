package training

import (
	"math"
)

// LRScheduler defines the interface for metric-driven learning rate policies
type LRScheduler interface {
	// Step feeds the latest metric and returns the learning rate to use next
	Step(metric float64, currentLR float64) float64

	// GetName returns the scheduler name for logging
	GetName() string
}

// Plateau modes
const (
	ModeMin = "min"
	ModeMax = "max"
)

// Threshold modes
const (
	ThresholdRel = "rel"
	ThresholdAbs = "abs"
)

// Defaults used when a constructor argument is out of range
const (
	DefaultPlateauFactor    = 0.1
	DefaultPlateauPatience  = 10
	DefaultPlateauThreshold = 1e-4
	DefaultPlateauEps       = 1e-8
)

// ReduceLROnPlateauScheduler reduces LR when a metric has stopped improving.
// A reduction happens once the number of consecutive bad epochs exceeds Patience.
type ReduceLROnPlateauScheduler struct {
	Factor        float64 // Factor by which the learning rate will be reduced
	Patience      int     // Number of bad epochs tolerated before reducing
	Threshold     float64 // Threshold for measuring the new optimum
	ThresholdMode string  // "rel" or "abs"
	Mode          string  // One of "min" or "max"
	Cooldown      int     // Epochs to wait after a reduction before counting bad epochs again
	MinLR         float64 // Lower bound on the learning rate
	Eps           float64 // Reductions smaller than this are ignored

	bestMetric      float64
	badEpochs       int
	cooldownCounter int
	lastEpoch       int
	reductions      int
	currentLR       float64
	initialized     bool
}

// PlateauState is the resumable part of a ReduceLROnPlateauScheduler
type PlateauState struct {
	BestMetric      float64
	BadEpochs       int
	CooldownCounter int
	LastEpoch       int
	Reductions      int
	CurrentLR       float64
	Initialized     bool
}

// NewReduceLROnPlateauScheduler creates a plateau-based scheduler
func NewReduceLROnPlateauScheduler(factor float64, patience int, threshold float64, mode string) *ReduceLROnPlateauScheduler {
	if factor <= 0 || factor >= 1 {
		factor = DefaultPlateauFactor
	}
	if patience < 0 {
		patience = DefaultPlateauPatience
	}
	if threshold < 0 {
		threshold = DefaultPlateauThreshold
	}
	if mode != ModeMin && mode != ModeMax {
		mode = ModeMin // Default: minimize loss
	}

	s := &ReduceLROnPlateauScheduler{
		Factor:        factor,
		Patience:      patience,
		Threshold:     threshold,
		ThresholdMode: ThresholdRel,
		Mode:          mode,
		Eps:           DefaultPlateauEps,
	}
	s.reset()
	return s
}

func (s *ReduceLROnPlateauScheduler) reset() {
	s.bestMetric = s.worst()
	s.badEpochs = 0
	s.cooldownCounter = 0
}

func (s *ReduceLROnPlateauScheduler) worst() float64 {
	if s.Mode == ModeMax {
		return math.Inf(-1)
	}
	return math.Inf(1)
}

// isBetter reports whether metric improves on the best seen so far.
// NaN never compares as better.
func (s *ReduceLROnPlateauScheduler) isBetter(metric float64) bool {
	best := s.bestMetric
	switch {
	case s.Mode == ModeMin && s.ThresholdMode == ThresholdAbs:
		return metric < best-s.Threshold
	case s.Mode == ModeMin:
		return metric < best*(1-s.Threshold)
	case s.ThresholdMode == ThresholdAbs:
		return metric > best+s.Threshold
	default:
		return metric > best*(1+s.Threshold)
	}
}

// Step checks if LR should be reduced based on metric.
// This is called once per epoch with the validation metric.
func (s *ReduceLROnPlateauScheduler) Step(metric float64, currentLR float64) float64 {
	// Always start from the optimizer's current rate
	s.currentLR = currentLR
	s.initialized = true
	s.lastEpoch++

	if s.isBetter(metric) {
		s.bestMetric = metric
		s.badEpochs = 0
	} else {
		s.badEpochs++
	}

	if s.cooldownCounter > 0 {
		s.cooldownCounter--
		s.badEpochs = 0
	}

	if s.badEpochs > s.Patience {
		newLR := math.Max(s.currentLR*s.Factor, s.MinLR)
		if s.currentLR-newLR > s.Eps {
			s.currentLR = newLR
			s.reductions++
		}
		s.cooldownCounter = s.Cooldown
		s.badEpochs = 0
	}

	return s.currentLR
}

// GetLR returns the internally tracked LR, or baseLR before the first Step
func (s *ReduceLROnPlateauScheduler) GetLR(baseLR float64) float64 {
	if s.initialized {
		return s.currentLR
	}
	return baseLR
}

func (s *ReduceLROnPlateauScheduler) GetName() string {
	return "ReduceLROnPlateau"
}

// BestMetric returns the best metric seen so far (±Inf before any improvement)
func (s *ReduceLROnPlateauScheduler) BestMetric() float64 {
	return s.bestMetric
}

// BadEpochs returns the current count of consecutive non-improving epochs
func (s *ReduceLROnPlateauScheduler) BadEpochs() int {
	return s.badEpochs
}

// LastEpoch returns how many times Step has been called
func (s *ReduceLROnPlateauScheduler) LastEpoch() int {
	return s.lastEpoch
}

// Reductions returns how many times the learning rate was reduced
func (s *ReduceLROnPlateauScheduler) Reductions() int {
	return s.reductions
}

// State extracts the scheduler's internal counters
func (s *ReduceLROnPlateauScheduler) State() PlateauState {
	return PlateauState{
		BestMetric:      s.bestMetric,
		BadEpochs:       s.badEpochs,
		CooldownCounter: s.cooldownCounter,
		LastEpoch:       s.lastEpoch,
		Reductions:      s.reductions,
		CurrentLR:       s.currentLR,
		Initialized:     s.initialized,
	}
}

// SetState restores counters previously returned by State
func (s *ReduceLROnPlateauScheduler) SetState(st PlateauState) {
	s.bestMetric = st.BestMetric
	s.badEpochs = st.BadEpochs
	s.cooldownCounter = st.CooldownCounter
	s.lastEpoch = st.LastEpoch
	s.reductions = st.Reductions
	s.currentLR = st.CurrentLR
	s.initialized = st.Initialized
}
