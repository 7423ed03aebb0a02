package tensor

import (
	"fmt"
)

type DType int

const (
	Float32 DType = iota
	Float16
	Int32
)

func (d DType) String() string {
	switch d {
	case Float32:
		return "Float32"
	case Float16:
		return "Float16"
	case Int32:
		return "Int32"
	default:
		return "Unknown"
	}
}

type DeviceType int

const (
	CPU DeviceType = iota
	GPU
	PersistentGPU
)

func (d DeviceType) String() string {
	switch d {
	case CPU:
		return "CPU"
	case GPU:
		return "GPU"
	case PersistentGPU:
		return "PersistentGPU"
	default:
		return "Unknown"
	}
}

// Tensor is an n-dimensional array tagged with the device that holds it.
// Host-resident tensors keep their values in Data; tensors placed by a
// device Backend keep an opaque buffer instead and Data is nil.
type Tensor struct {
	Shape    []int
	Strides  []int
	DType    DType
	Device   DeviceType
	Data     interface{}
	NumElems int
	buffer   interface{}
}

func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(shape=%v, dtype=%s, device=%s, elements=%d)",
		t.Shape, t.DType, t.Device, t.NumElems)
}

// Buffer returns the device buffer for backend-placed tensors
func (t *Tensor) Buffer() interface{} {
	return t.buffer
}

// Float32s returns the backing slice of a host-resident Float32 tensor.
// Writes through the slice modify the tensor.
func (t *Tensor) Float32s() ([]float32, error) {
	if t.DType != Float32 {
		return nil, fmt.Errorf("tensor has dtype %s, expected Float32", t.DType)
	}
	if t.Data == nil {
		return nil, fmt.Errorf("tensor on %s is not host-visible, call ToCPU first", t.Device)
	}
	data, ok := t.Data.([]float32)
	if !ok {
		return nil, fmt.Errorf("tensor data has type %T, expected []float32", t.Data)
	}
	return data, nil
}

// At returns the element at the given index
func (t *Tensor) At(indices ...int) (float32, error) {
	if len(indices) != len(t.Shape) {
		return 0, fmt.Errorf("got %d indices for tensor of rank %d", len(indices), len(t.Shape))
	}
	data, err := t.Float32s()
	if err != nil {
		return 0, err
	}

	offset := 0
	for i, idx := range indices {
		if idx < 0 || idx >= t.Shape[i] {
			return 0, fmt.Errorf("index %d out of range for dimension %d of size %d", idx, i, t.Shape[i])
		}
		offset += idx * t.Strides[i]
	}
	return data[offset], nil
}

// ToCPU returns a host-resident copy of the tensor, or t itself if it is already on the CPU
func (t *Tensor) ToCPU() (*Tensor, error) {
	if t.Device == CPU {
		return t, nil
	}

	backend, err := backendFor(t.Device)
	if err != nil {
		return nil, err
	}
	data, err := backend.Download(t.buffer, t.NumElems)
	if err != nil {
		return nil, fmt.Errorf("failed to copy tensor from %s: %w", t.Device, err)
	}
	return NewTensor(append([]int(nil), t.Shape...), t.DType, CPU, data)
}

// SelectRows gathers the given first-axis slices into a new tensor on the same device
func (t *Tensor) SelectRows(rows []int) (*Tensor, error) {
	if len(t.Shape) == 0 {
		return nil, fmt.Errorf("cannot select rows of a scalar tensor")
	}

	host, err := t.ToCPU()
	if err != nil {
		return nil, err
	}
	data, err := host.Float32s()
	if err != nil {
		return nil, err
	}

	rowLen := 1
	if len(t.Shape) > 1 {
		rowLen = t.Strides[0]
	}

	out := make([]float32, 0, len(rows)*rowLen)
	for _, r := range rows {
		if r < 0 || r >= t.Shape[0] {
			return nil, fmt.Errorf("row %d out of range for first dimension of size %d", r, t.Shape[0])
		}
		out = append(out, data[r*rowLen:(r+1)*rowLen]...)
	}

	shape := append([]int{len(rows)}, t.Shape[1:]...)
	return NewTensor(shape, Float32, t.Device, out)
}

func calculateStrides(shape []int) []int {
	if len(shape) == 0 {
		return []int{}
	}

	strides := make([]int, len(shape))
	stride := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= shape[i]
	}
	return strides
}

// calculateNumElements treats an empty shape as a scalar
func calculateNumElements(shape []int) int {
	elements := 1
	for _, dim := range shape {
		elements *= dim
	}
	return elements
}

func validateShape(shape []int) error {
	for i, dim := range shape {
		if dim < 0 {
			return fmt.Errorf("invalid shape: dimension %d has size %d, must not be negative", i, dim)
		}
	}
	return nil
}
