package training

import (
	"fmt"
	"sync"

	"github.com/tsawler/go-plateau/tensor"
)

// RateAdjustable is the slice of an optimizer the LR controller needs.
// The controller holds a reference to it, never ownership.
type RateAdjustable interface {
	GetLR() float64   // Gets current learning rate
	SetLR(lr float64) // Sets learning rate
}

// Optimizer interface defines the methods that host-side optimizers implement
type Optimizer interface {
	RateAdjustable
	Step(grads []*tensor.Tensor) error // Updates parameters from gradients
}

// SGD implements Stochastic Gradient Descent over CPU-resident Float32 tensors
type SGD struct {
	parameters   []*tensor.Tensor
	learningRate float64
	momentum     float64
	weightDecay  float64
	velocities   [][]float32
	mutex        sync.RWMutex
}

// NewSGD creates a new SGD optimizer
func NewSGD(parameters []*tensor.Tensor, lr float64, momentum float64, weightDecay float64) *SGD {
	sgd := &SGD{
		parameters:   parameters,
		learningRate: lr,
		momentum:     momentum,
		weightDecay:  weightDecay,
	}

	if momentum > 0 {
		sgd.velocities = make([][]float32, len(parameters))
		for i, param := range parameters {
			sgd.velocities[i] = make([]float32, param.NumElems)
		}
	}

	return sgd
}

// Step performs a single optimization step
func (sgd *SGD) Step(grads []*tensor.Tensor) error {
	sgd.mutex.Lock()
	defer sgd.mutex.Unlock()

	if len(grads) != len(sgd.parameters) {
		return fmt.Errorf("gradient count %d does not match parameter count %d", len(grads), len(sgd.parameters))
	}

	lr := float32(sgd.learningRate)
	for i, param := range sgd.parameters {
		p, err := param.Float32s()
		if err != nil {
			return fmt.Errorf("parameter %d: %w", i, err)
		}
		g, err := grads[i].Float32s()
		if err != nil {
			return fmt.Errorf("gradient %d: %w", i, err)
		}
		if len(g) != len(p) {
			return fmt.Errorf("gradient %d has %d elements, parameter has %d", i, len(g), len(p))
		}

		for j := range p {
			d := g[j] + float32(sgd.weightDecay)*p[j]
			if sgd.momentum > 0 {
				v := sgd.velocities[i]
				v[j] = float32(sgd.momentum)*v[j] + d
				d = v[j]
			}
			p[j] -= lr * d
		}
	}

	return nil
}

// GetLR returns the current learning rate
func (sgd *SGD) GetLR() float64 {
	sgd.mutex.RLock()
	defer sgd.mutex.RUnlock()
	return sgd.learningRate
}

// SetLR sets the learning rate
func (sgd *SGD) SetLR(lr float64) {
	sgd.mutex.Lock()
	defer sgd.mutex.Unlock()
	sgd.learningRate = lr
}
