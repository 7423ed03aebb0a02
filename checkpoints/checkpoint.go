package checkpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// CheckpointFormat defines the serialization format
type CheckpointFormat int

const (
	FormatJSON CheckpointFormat = iota
	FormatBinary
)

func (cf CheckpointFormat) String() string {
	switch cf {
	case FormatJSON:
		return "JSON"
	case FormatBinary:
		return "Binary"
	default:
		return "Unknown"
	}
}

// ErrEmptyCheckpoint is returned when a checkpoint carries no controller state
var ErrEmptyCheckpoint = errors.New("checkpoint has no controller state")

// Checkpoint captures controller state so an interrupted run can resume
type Checkpoint struct {
	LRDecay   *LRDecayState      `json:"lr_decay,omitempty"`
	EarlyStop *EarlyStopState    `json:"early_stop,omitempty"`
	Metadata  CheckpointMetadata `json:"metadata"`
}

// PlateauState mirrors the plateau policy's counters.
// BestMetric is meaningful only when HasBest is set.
type PlateauState struct {
	BestMetric      float64 `json:"best_metric"`
	HasBest         bool    `json:"has_best"`
	BadEpochs       int     `json:"bad_epochs"`
	CooldownCounter int     `json:"cooldown_counter"`
	LastEpoch       int     `json:"last_epoch"`
	Reductions      int     `json:"reductions"`
}

// LRDecayState captures an LR decay controller
type LRDecayState struct {
	Patience     int          `json:"patience"`
	MinLR        float64      `json:"min_lr"`
	Factor       float64      `json:"factor"`
	Threshold    float64      `json:"threshold"`
	Cooldown     int          `json:"cooldown"`
	LearningRate float64      `json:"learning_rate"`
	Plateau      PlateauState `json:"plateau"`
}

// EarlyStopState captures an early stopping controller.
// Best is meaningful only when HasBest is set.
type EarlyStopState struct {
	Patience     int     `json:"patience"`
	MinDelta     float64 `json:"min_delta"`
	Best         float64 `json:"best"`
	HasBest      bool    `json:"has_best"`
	Counter      int     `json:"counter"`
	Stopped      bool    `json:"stopped"`
	Epochs       int     `json:"epochs"`
	StoppedEpoch int     `json:"stopped_epoch"`
}

// CheckpointMetadata contains checkpoint metadata
type CheckpointMetadata struct {
	Version     string    `json:"version"`
	Framework   string    `json:"framework"`
	CreatedAt   time.Time `json:"created_at"`
	Description string    `json:"description,omitempty"`
}

// CheckpointSaver handles saving controller checkpoints in various formats
type CheckpointSaver struct {
	format CheckpointFormat
}

// NewCheckpointSaver creates a new checkpoint saver for the specified format
func NewCheckpointSaver(format CheckpointFormat) *CheckpointSaver {
	return &CheckpointSaver{
		format: format,
	}
}

// Format returns the saver's serialization format
func (cs *CheckpointSaver) Format() CheckpointFormat {
	return cs.format
}

// Marshal encodes a checkpoint in the saver's format
func (cs *CheckpointSaver) Marshal(checkpoint *Checkpoint) ([]byte, error) {
	if checkpoint.LRDecay == nil && checkpoint.EarlyStop == nil {
		return nil, ErrEmptyCheckpoint
	}
	if checkpoint.Metadata.Framework == "" {
		checkpoint.Metadata.Framework = "go-plateau"
		checkpoint.Metadata.Version = "1.0.0"
		checkpoint.Metadata.CreatedAt = time.Now()
	}

	switch cs.format {
	case FormatJSON:
		data, err := json.MarshalIndent(checkpoint, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode checkpoint: %w", err)
		}
		return data, nil
	case FormatBinary:
		return marshalBinary(checkpoint), nil
	default:
		return nil, fmt.Errorf("unsupported checkpoint format: %s", cs.format.String())
	}
}

// Unmarshal decodes a checkpoint in the saver's format
func (cs *CheckpointSaver) Unmarshal(data []byte) (*Checkpoint, error) {
	var checkpoint Checkpoint

	switch cs.format {
	case FormatJSON:
		if err := json.Unmarshal(data, &checkpoint); err != nil {
			return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
		}
	case FormatBinary:
		if err := unmarshalBinary(data, &checkpoint); err != nil {
			return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported checkpoint format: %s", cs.format.String())
	}

	if checkpoint.LRDecay == nil && checkpoint.EarlyStop == nil {
		return nil, ErrEmptyCheckpoint
	}
	return &checkpoint, nil
}

// SaveCheckpoint writes a checkpoint to path
func (cs *CheckpointSaver) SaveCheckpoint(checkpoint *Checkpoint, path string) error {
	data, err := cs.Marshal(checkpoint)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write checkpoint file: %w", err)
	}
	return nil
}

// LoadCheckpoint reads a checkpoint from path
func (cs *CheckpointSaver) LoadCheckpoint(path string) (*Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint file: %w", err)
	}
	return cs.Unmarshal(data)
}
