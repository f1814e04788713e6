package tensor

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrInvalidShape  = errors.New("invalid shape")
	ErrShapeMismatch = errors.New("shape mismatch")
)

// InvalidShapeError reports a malformed single-tensor descriptor.
type InvalidShapeError struct {
	Dims   Shape
	Axis   int // Offending axis, -1 when the whole shape is at fault
	Reason string
}

// Error implements the error interface.
func (e *InvalidShapeError) Error() string {
	if e.Axis >= 0 {
		return fmt.Sprintf("invalid shape %v: axis %d: %s", []int(e.Dims), e.Axis, e.Reason)
	}
	return fmt.Sprintf("invalid shape %v: %s", []int(e.Dims), e.Reason)
}

// Unwrap allows errors.Is(err, ErrInvalidShape).
func (e *InvalidShapeError) Unwrap() error { return ErrInvalidShape }

// ShapeMismatchError reports an incompatibility between tensors or stages,
// including a declared output shape that disagrees with the computed one.
type ShapeMismatchError struct {
	Op      string // Stage or check that failed (e.g. "conv", "pool", "pipeline")
	Details string
}

// Error implements the error interface.
func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("%s: shape mismatch: %s", e.Op, e.Details)
}

// Unwrap allows errors.Is(err, ErrShapeMismatch).
func (e *ShapeMismatchError) Unwrap() error { return ErrShapeMismatch }

// Mismatch builds a ShapeMismatchError with a formatted detail message.
func Mismatch(op, format string, args ...any) error {
	return &ShapeMismatchError{Op: op, Details: fmt.Sprintf(format, args...)}
}
