// Package primitive plans the convolution and pooling stages of the fused
// pipeline and defines the Engine boundary that executes them.
//
// A plan is a fully validated descriptor of one primitive: once PlanConv or
// PlanPool returns without error, an Engine can run it without further shape
// checks. All validation failures are reported at plan time.
package primitive

import (
	"fmt"

	"github.com/born-ml/fusion/internal/tensor"
)

// Spatial is a (height, width) pair used for kernels, strides and padding.
type Spatial struct {
	H, W int
}

// Square returns Spatial{v, v}.
func Square(v int) Spatial { return Spatial{H: v, W: v} }

// String formats the pair as "3x3".
func (s Spatial) String() string { return fmt.Sprintf("%dx%d", s.H, s.W) }

// ActivationKind selects the post-op applied after narrowing.
type ActivationKind int

// Supported activations.
const (
	ActivationNone ActivationKind = iota
	ActivationReLU
)

// Activation is the elementwise post-op of the convolution stage.
// NegativeSlope 0 gives standard ReLU; other values give leaky ReLU.
type Activation struct {
	Kind          ActivationKind
	NegativeSlope float32
}

// ReLU returns standard ReLU.
func ReLU() Activation { return Activation{Kind: ActivationReLU} }

// LeakyReLU returns ReLU with the given negative slope.
func LeakyReLU(slope float32) Activation {
	return Activation{Kind: ActivationReLU, NegativeSlope: slope}
}

// String returns a human-readable name for the activation.
func (a Activation) String() string {
	switch {
	case a.Kind == ActivationNone:
		return "none"
	case a.NegativeSlope == 0:
		return "relu"
	default:
		return fmt.Sprintf("leaky_relu(%g)", a.NegativeSlope)
	}
}

// ConvConfig configures the convolution stage.
type ConvConfig struct {
	Kernel     Spatial
	Stride     Spatial
	Padding    Spatial // Symmetric: applied on both sides of each axis.
	Activation Activation

	// OutputType is the destination element type. Undefined means Int32.
	OutputType tensor.DataType
	// OutputLayout is the destination layout. LayoutUndefined means src's layout.
	OutputLayout tensor.Layout
}

// DefaultConvConfig returns a stride-1, unpadded ReLU convolution with
// int32 output.
func DefaultConvConfig(kernel Spatial) ConvConfig {
	return ConvConfig{
		Kernel:     kernel,
		Stride:     Square(1),
		Activation: ReLU(),
		OutputType: tensor.Int32,
	}
}

// Reduction selects the pooling reduction.
type Reduction int

// Supported reductions.
const (
	ReduceMax Reduction = iota
	ReduceAverage
)

// String returns a human-readable name for the reduction.
func (r Reduction) String() string {
	switch r {
	case ReduceMax:
		return "max"
	case ReduceAverage:
		return "avg"
	default:
		return "unknown"
	}
}

// PoolConfig configures the pooling stage.
type PoolConfig struct {
	Kernel    Spatial
	Stride    Spatial
	Padding   Spatial
	Reduction Reduction
}

// DefaultPoolConfig returns an unpadded max pooling whose stride equals its kernel.
func DefaultPoolConfig(kernel Spatial) PoolConfig {
	return PoolConfig{Kernel: kernel, Stride: kernel, Reduction: ReduceMax}
}

// validateWindow checks kernel >= 1, stride >= 1 and padding >= 0 on both axes.
func validateWindow(op string, kernel, stride, padding Spatial) error {
	switch {
	case kernel.H < 1 || kernel.W < 1:
		return tensor.Mismatch(op, "kernel %s must be >= 1", kernel)
	case stride.H < 1 || stride.W < 1:
		return tensor.Mismatch(op, "stride %s must be >= 1", stride)
	case padding.H < 0 || padding.W < 0:
		return tensor.Mismatch(op, "padding %s must be >= 0", padding)
	}
	return nil
}
