package primitive

import "github.com/born-ml/fusion/internal/tensor"

// Engine executes validated primitives over caller-owned buffers.
//
// Implementations:
//   - cpu: pure Go reference engine, data-parallel over output positions
//   - gemm: convolution lowered to tiled matrix multiplication (gonum)
//
// Engines must produce identical output for the same plan and inputs, and
// must not mutate src, weights or bias.
type Engine interface {
	// RunConvolution computes plan into dst.
	RunConvolution(plan *ConvPlan, src, weights, bias, dst *tensor.Buffer) error

	// RunPooling computes plan into dst.
	RunPooling(plan *PoolPlan, src, dst *tensor.Buffer) error

	// Name returns the engine name.
	Name() string
}

// CheckConvBuffers verifies that every buffer matches the plan's descriptors
// and that dst is writable. Engines call it before touching any data.
func CheckConvBuffers(plan *ConvPlan, src, weights, bias, dst *tensor.Buffer) error {
	if err := checkBuffer("conv", "src", plan.Src, src); err != nil {
		return err
	}
	if err := checkBuffer("conv", "weights", plan.Weights, weights); err != nil {
		return err
	}
	if err := checkBuffer("conv", "bias", plan.Bias, bias); err != nil {
		return err
	}
	return checkDst("conv", plan.Dst, dst)
}

// CheckPoolBuffers verifies src and dst against the plan.
func CheckPoolBuffers(plan *PoolPlan, src, dst *tensor.Buffer) error {
	if err := checkBuffer("pool", "src", plan.Src, src); err != nil {
		return err
	}
	return checkDst("pool", plan.Dst, dst)
}

func checkBuffer(op, role string, want tensor.Descriptor, b *tensor.Buffer) error {
	if b == nil {
		return tensor.Mismatch(op, "%s buffer is nil", role)
	}
	if !b.Descriptor().Equal(want) {
		return tensor.Mismatch(op, "%s buffer %s, plan expects %s", role, b.Descriptor(), want)
	}
	if b.Released() {
		return tensor.Mismatch(op, "%s buffer already released", role)
	}
	return nil
}

func checkDst(op string, want tensor.Descriptor, dst *tensor.Buffer) error {
	if err := checkBuffer(op, "dst", want, dst); err != nil {
		return err
	}
	if dst.Sealed() {
		return tensor.Mismatch(op, "dst buffer is sealed")
	}
	return nil
}
