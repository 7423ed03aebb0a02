package dataset

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/tsawler/go-plateau/tensor"
)

func TestCropFeature(t *testing.T) {
	ref := mat.NewDense(4, 1, []float64{0, 5, 10, 15})
	labels := Slice[string]{"a", "b", "c", "d"}

	cropped, err := CropFeature(ref, 0, 0, 10, Dense{ref}, labels)
	if err != nil {
		t.Fatalf("CropFeature failed: %v", err)
	}
	if len(cropped) != 2 {
		t.Fatalf("Expected 2 cropped arrays, got %d", len(cropped))
	}

	dense := cropped[0].(Dense)
	if got := mat.Col(nil, 0, dense); !reflect.DeepEqual(got, []float64{0, 5}) {
		t.Errorf("Expected reference rows [0 5], got %v", got)
	}
	if got := cropped[1].(Slice[string]); !reflect.DeepEqual(got, Slice[string]{"a", "b"}) {
		t.Errorf("Expected labels [a b], got %v", got)
	}

	// Inputs are untouched
	if ref.At(3, 0) != 15 || labels.Len() != 4 {
		t.Error("CropFeature modified its inputs")
	}
}

func TestCropFeatureEmptyRange(t *testing.T) {
	ref := mat.NewDense(3, 2, []float64{1, 0, 2, 0, 3, 0})
	vec := Vector{mat.NewVecDense(3, []float64{7, 8, 9})}

	cropped, err := CropFeature(ref, 0, 2, 2, Dense{ref}, vec, Slice[int]{1, 2, 3})
	if err != nil {
		t.Fatalf("CropFeature failed: %v", err)
	}
	for i, arr := range cropped {
		if arr.Len() != 0 {
			t.Errorf("Array %d: expected empty result, got %d rows", i, arr.Len())
		}
	}
}

func TestCropFeatureBounds(t *testing.T) {
	ref := mat.NewDense(5, 2, []float64{
		0, -1,
		1, 2,
		2, 3.5,
		3, 4,
		4, math.NaN(),
	})

	tests := []struct {
		name     string
		low      float64
		high     float64
		expected []int
	}{
		{"low inclusive high exclusive", 2, 4, []int{1, 2}},
		{"negative values", -5, 0, []int{0}},
		{"NaN never selected", math.Inf(-1), math.Inf(1), []int{0, 1, 2, 3}},
		{"inverted range", 4, 2, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := SelectRows(ref, 1, tt.low, tt.high)
			if err != nil {
				t.Fatalf("SelectRows failed: %v", err)
			}
			if !reflect.DeepEqual(rows, tt.expected) {
				t.Errorf("Expected rows %v, got %v", tt.expected, rows)
			}
		})
	}
}

func TestCropFeatureErrors(t *testing.T) {
	ref := mat.NewDense(3, 1, []float64{1, 2, 3})

	_, err := CropFeature(ref, 0, 0, 10, Slice[int]{1, 2})
	if !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("Expected ErrLengthMismatch, got %v", err)
	}

	if _, err := CropFeature(ref, 1, 0, 10); err == nil {
		t.Error("Expected error for feature column out of range")
	}
	if _, err := CropFeature(ref, -1, 0, 10); err == nil {
		t.Error("Expected error for negative feature column")
	}
	if _, err := CropFeature(nil, 0, 0, 10); err == nil {
		t.Error("Expected error for nil reference")
	}
}

func TestCropFeatureTensorRows(t *testing.T) {
	ref := mat.NewDense(3, 1, []float64{0.1, 0.9, 0.5})
	images, err := tensor.FromArray([]float32{1, 1, 2, 2, 3, 3}, []int{3, 2}, tensor.CPU)
	if err != nil {
		t.Fatalf("FromArray failed: %v", err)
	}

	cropped, err := CropFeature(ref, 0, 0.4, 1.0, Rows{images})
	if err != nil {
		t.Fatalf("CropFeature failed: %v", err)
	}

	out := cropped[0].(Rows)
	data, _ := out.Float32s()
	if !reflect.DeepEqual(out.Shape, []int{2, 2}) || !reflect.DeepEqual(data, []float32{2, 2, 3, 3}) {
		t.Errorf("Expected rows 1 and 2, got shape %v data %v", out.Shape, data)
	}
}

func TestArrayAdapters(t *testing.T) {
	tests := []struct {
		name string
		arr  Array
		len  int
	}{
		{"empty dense", Dense{&mat.Dense{}}, 0},
		{"nil dense", Dense{}, 0},
		{"dense", Dense{mat.NewDense(2, 3, nil)}, 2},
		{"vector", Vector{mat.NewVecDense(4, nil)}, 4},
		{"nil vector", Vector{}, 0},
		{"slice", Slice[float64]{1, 2}, 2},
		{"nil tensor", Rows{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.arr.Len() != tt.len {
				t.Errorf("Expected length %d, got %d", tt.len, tt.arr.Len())
			}
			if _, err := tt.arr.Take([]int{tt.len}); err == nil {
				t.Error("Expected error taking a row past the end")
			}
		})
	}
}
