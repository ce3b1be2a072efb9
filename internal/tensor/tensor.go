// Package tensor holds the small dense tensor type passed between the
// normalizer, the model backends and the classifier, plus the input
// normalization used by the trained digit weights.
package tensor

import (
	"errors"
	"fmt"
	"math"
)

// ErrShape is returned when a requested shape does not match the number
// of elements available.
var ErrShape = errors.New("tensor: shape mismatch")

// Tensor is a row-major float32 tensor.
type Tensor struct {
	shape []int
	data  []float32
}

// FromFloats builds a tensor of the given shape over a copy of data.
// With no shape, the result is rank 1.
func FromFloats(data []float32, shape ...int) (Tensor, error) {
	if len(shape) == 0 {
		shape = []int{len(data)}
	}
	n, err := numElements(shape)
	if err != nil {
		return Tensor{}, err
	}
	if n != len(data) {
		return Tensor{}, fmt.Errorf("%w: %d elements cannot form %v", ErrShape, len(data), shape)
	}
	out := make([]float32, len(data))
	copy(out, data)
	return Tensor{shape: append([]int(nil), shape...), data: out}, nil
}

func numElements(shape []int) (int, error) {
	n := 1
	for _, d := range shape {
		if d <= 0 {
			return 0, fmt.Errorf("%w: non-positive dimension in %v", ErrShape, shape)
		}
		n *= d
	}
	return n, nil
}

// Shape returns a copy of the tensor dimensions.
func (t Tensor) Shape() []int { return append([]int(nil), t.shape...) }

// Rank returns the number of dimensions.
func (t Tensor) Rank() int { return len(t.shape) }

// Len returns the number of elements.
func (t Tensor) Len() int { return len(t.data) }

// Data returns a copy of the underlying elements in row-major order.
func (t Tensor) Data() []float32 {
	out := make([]float32, len(t.data))
	copy(out, t.data)
	return out
}

// Reshape returns a view of t with a new shape. The element count must be
// unchanged; the data is never truncated or padded.
func (t Tensor) Reshape(shape ...int) (Tensor, error) {
	n, err := numElements(shape)
	if err != nil {
		return Tensor{}, err
	}
	if n != len(t.data) {
		return Tensor{}, fmt.Errorf("%w: cannot reshape %v (%d elements) to %v", ErrShape, t.shape, len(t.data), shape)
	}
	return Tensor{shape: append([]int(nil), shape...), data: t.data}, nil
}

// Map applies fn elementwise and returns a new tensor of the same shape.
func (t Tensor) Map(fn func(float32) float32) Tensor {
	out := make([]float32, len(t.data))
	for i, v := range t.data {
		out[i] = fn(v)
	}
	return Tensor{shape: append([]int(nil), t.shape...), data: out}
}

// Finite reports whether every element is neither NaN nor infinite.
func (t Tensor) Finite() bool {
	for _, v := range t.data {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// strides splits the shape around axis into (outer, size, inner) so that
// element (o, i, j) lives at o*size*inner + i*inner + j.
func (t Tensor) strides(axis int) (outer, size, inner int, err error) {
	if axis < 0 || axis >= len(t.shape) {
		return 0, 0, 0, fmt.Errorf("%w: axis %d out of range for %v", ErrShape, axis, t.shape)
	}
	outer, inner = 1, 1
	for i := 0; i < axis; i++ {
		outer *= t.shape[i]
	}
	for i := axis + 1; i < len(t.shape); i++ {
		inner *= t.shape[i]
	}
	return outer, t.shape[axis], inner, nil
}
