package tensor

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
)

// hostBackend keeps "device" buffers in memory and counts transfers
type hostBackend struct {
	uploads   int
	downloads int
	fail      bool
}

func (b *hostBackend) Upload(data []float32, shape []int) (interface{}, error) {
	if b.fail {
		return nil, fmt.Errorf("out of device memory")
	}
	b.uploads++
	buf := make([]float32, len(data))
	copy(buf, data)
	return buf, nil
}

func (b *hostBackend) Download(buffer interface{}, n int) ([]float32, error) {
	b.downloads++
	buf := buffer.([]float32)
	out := make([]float32, n)
	copy(out, buf)
	return out, nil
}

func withBackend(t *testing.T, device DeviceType, backend Backend) {
	t.Helper()
	if err := RegisterBackend(device, backend); err != nil {
		t.Fatalf("Failed to register backend: %v", err)
	}
	t.Cleanup(func() { RegisterBackend(device, nil) })
}

func TestDTypeString(t *testing.T) {
	tests := []struct {
		dtype    DType
		expected string
	}{
		{Float32, "Float32"},
		{Float16, "Float16"},
		{Int32, "Int32"},
		{DType(999), "Unknown"},
	}

	for _, test := range tests {
		result := test.dtype.String()
		if result != test.expected {
			t.Errorf("DType.String() = %s, expected %s", result, test.expected)
		}
	}
}

func TestDeviceTypeString(t *testing.T) {
	tests := []struct {
		device   DeviceType
		expected string
	}{
		{CPU, "CPU"},
		{GPU, "GPU"},
		{PersistentGPU, "PersistentGPU"},
		{DeviceType(999), "Unknown"},
	}

	for _, test := range tests {
		result := test.device.String()
		if result != test.expected {
			t.Errorf("DeviceType.String() = %s, expected %s", result, test.expected)
		}
	}
}

func TestCalculateStrides(t *testing.T) {
	tests := []struct {
		shape    []int
		expected []int
	}{
		{[]int{}, []int{}},
		{[]int{5}, []int{1}},
		{[]int{2, 3}, []int{3, 1}},
		{[]int{2, 3, 4}, []int{12, 4, 1}},
	}

	for _, test := range tests {
		result := calculateStrides(test.shape)
		if !reflect.DeepEqual(result, test.expected) {
			t.Errorf("calculateStrides(%v) = %v, expected %v", test.shape, result, test.expected)
		}
	}
}

func TestCalculateNumElements(t *testing.T) {
	tests := []struct {
		shape    []int
		expected int
	}{
		{[]int{}, 1},
		{[]int{5}, 5},
		{[]int{2, 3}, 6},
		{[]int{0, 3}, 0},
	}

	for _, test := range tests {
		if result := calculateNumElements(test.shape); result != test.expected {
			t.Errorf("calculateNumElements(%v) = %d, expected %d", test.shape, result, test.expected)
		}
	}
}

func TestNewTensorValidation(t *testing.T) {
	if _, err := NewTensor([]int{2, -1}, Float32, CPU, nil); err == nil {
		t.Error("Expected error for negative dimension")
	}
	if _, err := NewTensor([]int{2, 2}, Float32, CPU, []float32{1, 2, 3}); err == nil {
		t.Error("Expected error for data length mismatch")
	}
	if _, err := NewTensor([]int{2}, Float32, CPU, []int32{1, 2}); err == nil {
		t.Error("Expected error for mismatched data type")
	}

	full, err := Full([]int{3}, float32(2.5), Float32, CPU)
	if err != nil {
		t.Fatalf("Full failed: %v", err)
	}
	data, _ := full.Float32s()
	if !reflect.DeepEqual(data, []float32{2.5, 2.5, 2.5}) {
		t.Errorf("Full produced %v", data)
	}
}

func TestTensorAt(t *testing.T) {
	tensor, err := NewTensor([]int{2, 3}, Float32, CPU, []float32{0, 1, 2, 3, 4, 5})
	if err != nil {
		t.Fatalf("NewTensor failed: %v", err)
	}

	v, err := tensor.At(1, 2)
	if err != nil || v != 5 {
		t.Errorf("At(1, 2) = %f, %v; expected 5", v, err)
	}
	if _, err := tensor.At(2, 0); err == nil {
		t.Error("Expected error for out of range index")
	}
	if _, err := tensor.At(1); err == nil {
		t.Error("Expected error for wrong number of indices")
	}
}

func TestDevicePlacement(t *testing.T) {
	backend := &hostBackend{}
	withBackend(t, GPU, backend)

	tensor, err := NewTensor([]int{2}, Float32, GPU, []float32{1, 2})
	if err != nil {
		t.Fatalf("NewTensor on GPU failed: %v", err)
	}
	if backend.uploads != 1 {
		t.Errorf("Expected 1 upload, got %d", backend.uploads)
	}
	if tensor.Data != nil || tensor.Buffer() == nil {
		t.Error("Expected GPU tensor to hold a device buffer and no host data")
	}
	if _, err := tensor.Float32s(); err == nil {
		t.Error("Expected Float32s to fail for a device tensor")
	}

	host, err := tensor.ToCPU()
	if err != nil {
		t.Fatalf("ToCPU failed: %v", err)
	}
	data, _ := host.Float32s()
	if !reflect.DeepEqual(data, []float32{1, 2}) || host.Device != CPU {
		t.Errorf("ToCPU produced %v on %s", data, host.Device)
	}
}

func TestDeviceUnavailable(t *testing.T) {
	_, err := NewTensor([]int{1}, Float32, PersistentGPU, []float32{1})
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("Expected ErrDeviceUnavailable, got %v", err)
	}
	if Available(PersistentGPU) {
		t.Error("PersistentGPU reported available without a backend")
	}
	if !Available(CPU) {
		t.Error("CPU must always be available")
	}
	if err := RegisterBackend(CPU, &hostBackend{}); err == nil {
		t.Error("Expected error registering a CPU backend")
	}
}

func TestUploadFailure(t *testing.T) {
	withBackend(t, GPU, &hostBackend{fail: true})

	if _, err := NewTensor([]int{1}, Float32, GPU, []float32{1}); err == nil {
		t.Error("Expected upload failure to propagate")
	}
}

func TestSelectRows(t *testing.T) {
	tensor, _ := NewTensor([]int{3, 2}, Float32, CPU, []float32{0, 1, 10, 11, 20, 21})

	picked, err := tensor.SelectRows([]int{2, 0})
	if err != nil {
		t.Fatalf("SelectRows failed: %v", err)
	}
	data, _ := picked.Float32s()
	if !reflect.DeepEqual(picked.Shape, []int{2, 2}) || !reflect.DeepEqual(data, []float32{20, 21, 0, 1}) {
		t.Errorf("SelectRows produced shape %v data %v", picked.Shape, data)
	}

	empty, err := tensor.SelectRows(nil)
	if err != nil {
		t.Fatalf("SelectRows with no rows failed: %v", err)
	}
	if !reflect.DeepEqual(empty.Shape, []int{0, 2}) || empty.NumElems != 0 {
		t.Errorf("Expected empty [0 2] tensor, got %v", empty)
	}

	if _, err := tensor.SelectRows([]int{3}); err == nil {
		t.Error("Expected error for out of range row")
	}
}

func TestSelectRowsKeepsDevice(t *testing.T) {
	withBackend(t, GPU, &hostBackend{})

	tensor, _ := NewTensor([]int{3}, Float32, GPU, []float32{5, 6, 7})
	picked, err := tensor.SelectRows([]int{1})
	if err != nil {
		t.Fatalf("SelectRows failed: %v", err)
	}
	if picked.Device != GPU {
		t.Errorf("Expected result on GPU, got %s", picked.Device)
	}
	host, _ := picked.ToCPU()
	data, _ := host.Float32s()
	if !reflect.DeepEqual(data, []float32{6}) {
		t.Errorf("Expected [6], got %v", data)
	}
}
