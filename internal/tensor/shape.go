package tensor

import (
	"fmt"
	"strconv"
	"strings"
)

// Rank is the number of logical axes every descriptor carries.
const Rank = 4

// Shape represents the logical dimensions of a tensor in NCHW order.
type Shape []int

// NumElements returns the total number of elements in the tensor.
func (s Shape) NumElements() int {
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks that the shape is 4-D with all dimensions > 0.
func (s Shape) Validate() error {
	if len(s) != Rank {
		return &InvalidShapeError{Dims: s.Clone(), Axis: -1, Reason: fmt.Sprintf("rank %d, want %d", len(s), Rank)}
	}
	for i, dim := range s {
		if dim <= 0 {
			return &InvalidShapeError{Dims: s.Clone(), Axis: i, Reason: fmt.Sprintf("dimension %d must be > 0", dim)}
		}
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// String formats the shape as "1x16x4x4".
func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, "x")
}

// ComputeStrides calculates row-major strides for the shape.
// stride[i] = product of all dimensions after i.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}

	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}
