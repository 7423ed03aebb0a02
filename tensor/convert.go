package tensor

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// FromArray converts a numeric Go array into a Float32 tensor on device.
//
// Flat slices take their shape from shape, or are treated as 1-D when shape
// is nil. Nested [][]float64 and [][]float32 must be rectangular and default
// to a [rows, cols] shape. Values are copied, so later writes to data do not
// reach the tensor.
func FromArray(data interface{}, shape []int, device DeviceType) (*Tensor, error) {
	values, inferred, err := toFloat32(data)
	if err != nil {
		return nil, err
	}

	if shape == nil {
		shape = inferred
	} else {
		shape = append([]int(nil), shape...)
		if err := validateShape(shape); err != nil {
			return nil, err
		}
		if n := calculateNumElements(shape); n != len(values) {
			return nil, fmt.Errorf("cannot fit %d values into shape %v (size %d)", len(values), shape, n)
		}
	}

	return NewTensor(shape, Float32, device, values)
}

// FromMatrix converts a gonum matrix into a [rows, cols] Float32 tensor on device
func FromMatrix(m mat.Matrix, device DeviceType) (*Tensor, error) {
	if m == nil {
		return nil, fmt.Errorf("cannot convert nil matrix")
	}
	return FromArray(m, nil, device)
}

func toFloat32(data interface{}) ([]float32, []int, error) {
	switch d := data.(type) {
	case []float32:
		out := make([]float32, len(d))
		copy(out, d)
		return out, []int{len(d)}, nil
	case []float64:
		return convertSlice(d), []int{len(d)}, nil
	case []int:
		return convertSlice(d), []int{len(d)}, nil
	case []int32:
		return convertSlice(d), []int{len(d)}, nil
	case []int64:
		return convertSlice(d), []int{len(d)}, nil
	case []uint8:
		return convertSlice(d), []int{len(d)}, nil
	case []bool:
		out := make([]float32, len(d))
		for i, v := range d {
			if v {
				out[i] = 1
			}
		}
		return out, []int{len(d)}, nil
	case [][]float64:
		return convertNested(d)
	case [][]float32:
		return convertNested(d)
	case mat.Matrix:
		rows, cols := d.Dims()
		out := make([]float32, 0, rows*cols)
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				out = append(out, float32(d.At(i, j)))
			}
		}
		return out, []int{rows, cols}, nil
	case nil:
		return nil, nil, fmt.Errorf("cannot convert nil data to Float32")
	default:
		return nil, nil, fmt.Errorf("cannot convert %T to Float32", data)
	}
}

type number interface {
	~float32 | ~float64 | ~int | ~int32 | ~int64 | ~uint8
}

func convertSlice[T number](d []T) []float32 {
	out := make([]float32, len(d))
	for i, v := range d {
		out[i] = float32(v)
	}
	return out
}

func convertNested[T ~float32 | ~float64](d [][]T) ([]float32, []int, error) {
	rows := len(d)
	if rows == 0 {
		return []float32{}, []int{0, 0}, nil
	}

	cols := len(d[0])
	out := make([]float32, 0, rows*cols)
	for i, row := range d {
		if len(row) != cols {
			return nil, nil, fmt.Errorf("ragged array: row %d has %d columns, expected %d", i, len(row), cols)
		}
		for _, v := range row {
			out = append(out, float32(v))
		}
	}
	return out, []int{rows, cols}, nil
}
