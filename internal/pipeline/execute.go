package pipeline

import (
	"fmt"

	"github.com/born-ml/fusion/internal/primitive"
	"github.com/born-ml/fusion/internal/tensor"
)

// Buffers holds the caller's operands. Dst is optional: when nil, Execute
// allocates the destination.
type Buffers struct {
	Src     *tensor.Buffer
	Weights *tensor.Buffer
	Bias    *tensor.Buffer
	Dst     *tensor.Buffer
}

// Execute runs plan over bufs and returns the destination buffer.
//
// Every buffer is checked against the plan before any compute starts, so a
// failure leaves no partial writes. The convolution writes an intermediate
// buffer that is sealed and then read in place by pooling.
func (c *Context) Execute(plan *FusedPlan, bufs Buffers) (*tensor.Buffer, error) {
	if c.Closed() {
		return nil, ErrContextClosed
	}
	if plan == nil || plan.Conv == nil || plan.Pool == nil {
		return nil, fmt.Errorf("execute: %w", tensor.Mismatch("pipeline", "incomplete plan"))
	}

	mid, err := tensor.NewBuffer(plan.Intermediate())
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}
	defer mid.Release()

	dst, owned := bufs.Dst, false
	if dst == nil {
		if dst, err = tensor.NewBuffer(plan.Output()); err != nil {
			return nil, fmt.Errorf("execute: %w", err)
		}
		owned = true
	}

	if err := primitive.CheckConvBuffers(plan.Conv, bufs.Src, bufs.Weights, bufs.Bias, mid); err != nil {
		return nil, c.fail(dst, owned, err)
	}
	if err := primitive.CheckPoolBuffers(plan.Pool, mid, dst); err != nil {
		return nil, c.fail(dst, owned, err)
	}

	if err := c.engine.RunConvolution(plan.Conv, bufs.Src, bufs.Weights, bufs.Bias, mid); err != nil {
		return nil, c.fail(dst, owned, fmt.Errorf("conv: %w", err))
	}
	mid.Seal()

	if err := c.engine.RunPooling(plan.Pool, mid, dst); err != nil {
		return nil, c.fail(dst, owned, fmt.Errorf("pool: %w", err))
	}

	c.logger.Debug("fused plan executed", "output", dst.Descriptor().String())
	return dst, nil
}

func (c *Context) fail(dst *tensor.Buffer, owned bool, err error) error {
	if owned {
		dst.Release()
	}
	c.logger.Debug("execute failed", "err", err)
	return fmt.Errorf("execute: %w", err)
}
