package dataset

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/tsawler/go-plateau/tensor"
)

// Array is a sequence of rows that can be subset by index.
// Take never modifies the receiver.
type Array interface {
	Len() int
	Take(rows []int) (Array, error)
}

// Dense adapts a gonum matrix; rows are matrix rows
type Dense struct {
	*mat.Dense
}

func (d Dense) Len() int {
	if d.Dense == nil || d.Dense.IsEmpty() {
		return 0
	}
	r, _ := d.Dims()
	return r
}

func (d Dense) Take(rows []int) (Array, error) {
	if err := checkRows(rows, d.Len()); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return Dense{Dense: &mat.Dense{}}, nil
	}

	_, cols := d.Dims()
	out := mat.NewDense(len(rows), cols, nil)
	for i, r := range rows {
		out.SetRow(i, mat.Row(nil, r, d.Dense))
	}
	return Dense{Dense: out}, nil
}

// Vector adapts a gonum vector; rows are elements
type Vector struct {
	*mat.VecDense
}

func (v Vector) Len() int {
	if v.VecDense == nil || v.VecDense.IsEmpty() {
		return 0
	}
	return v.VecDense.Len()
}

func (v Vector) Take(rows []int) (Array, error) {
	if err := checkRows(rows, v.Len()); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return Vector{VecDense: &mat.VecDense{}}, nil
	}

	out := mat.NewVecDense(len(rows), nil)
	for i, r := range rows {
		out.SetVec(i, v.AtVec(r))
	}
	return Vector{VecDense: out}, nil
}

// Slice adapts a plain Go slice, e.g. labels or file names
type Slice[T any] []T

func (s Slice[T]) Len() int {
	return len(s)
}

func (s Slice[T]) Take(rows []int) (Array, error) {
	if err := checkRows(rows, len(s)); err != nil {
		return nil, err
	}

	out := make(Slice[T], 0, len(rows))
	for _, r := range rows {
		out = append(out, s[r])
	}
	return out, nil
}

// Rows adapts a tensor; rows are slices along the first axis
type Rows struct {
	*tensor.Tensor
}

func (t Rows) Len() int {
	if t.Tensor == nil || len(t.Shape) == 0 {
		return 0
	}
	return t.Shape[0]
}

func (t Rows) Take(rows []int) (Array, error) {
	if t.Tensor == nil {
		return nil, fmt.Errorf("cannot take rows of a nil tensor")
	}
	out, err := t.SelectRows(rows)
	if err != nil {
		return nil, err
	}
	return Rows{Tensor: out}, nil
}

func checkRows(rows []int, n int) error {
	for _, r := range rows {
		if r < 0 || r >= n {
			return fmt.Errorf("row %d out of range for %d rows", r, n)
		}
	}
	return nil
}
