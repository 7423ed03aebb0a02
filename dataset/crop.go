package dataset

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrLengthMismatch is returned when an array does not have one row per reference row
var ErrLengthMismatch = errors.New("array length does not match reference rows")

// SelectRows returns, in order, the indices of the rows of ref whose value in
// column feature lies in [low, high). NaN values are never selected.
func SelectRows(ref mat.Matrix, feature int, low, high float64) ([]int, error) {
	if ref == nil {
		return nil, fmt.Errorf("reference matrix is nil")
	}

	rows, cols := ref.Dims()
	if feature < 0 || feature >= cols {
		return nil, fmt.Errorf("feature column %d out of range for %d columns", feature, cols)
	}

	selected := make([]int, 0, rows)
	for i := 0; i < rows; i++ {
		v := ref.At(i, feature)
		if v >= low && v < high {
			selected = append(selected, i)
		}
	}
	return selected, nil
}

// CropFeature keeps the rows whose reference value in column feature lies in
// [low, high) and returns the cropped copy of every array, in the order given.
// The reference matrix itself is only cropped if it is passed among arrays.
func CropFeature(ref mat.Matrix, feature int, low, high float64, arrays ...Array) ([]Array, error) {
	selected, err := SelectRows(ref, feature, low, high)
	if err != nil {
		return nil, err
	}

	rows, _ := ref.Dims()
	for i, arr := range arrays {
		if arr.Len() != rows {
			return nil, fmt.Errorf("array %d: %w: has %d rows, reference has %d", i, ErrLengthMismatch, arr.Len(), rows)
		}
	}

	cropped := make([]Array, 0, len(arrays))
	for i, arr := range arrays {
		out, err := arr.Take(selected)
		if err != nil {
			return nil, fmt.Errorf("failed to crop array %d: %w", i, err)
		}
		cropped = append(cropped, out)
	}
	return cropped, nil
}
