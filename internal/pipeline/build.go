package pipeline

import (
	"fmt"

	"github.com/born-ml/fusion/internal/primitive"
	"github.com/born-ml/fusion/internal/quant"
	"github.com/born-ml/fusion/internal/tensor"
)

// Stages is everything Build needs: operand descriptors, both stage
// configurations and the quantization policy.
type Stages struct {
	Src     tensor.Descriptor
	Weights tensor.Descriptor
	Bias    tensor.Descriptor
	Conv    primitive.ConvConfig
	Quant   *quant.Policy
	Pool    primitive.PoolConfig

	// Declared is the caller's expected final shape. When set, Build fails
	// with a ShapeMismatchError unless it equals the computed shape.
	Declared tensor.Shape
}

// FusedPlan is the validated conv-then-pool chain. The convolution's
// destination descriptor is the pooling's source descriptor by construction.
type FusedPlan struct {
	Conv *primitive.ConvPlan
	Pool *primitive.PoolPlan
}

// Intermediate returns the descriptor of the buffer shared between stages.
func (p *FusedPlan) Intermediate() tensor.Descriptor { return p.Conv.Dst }

// Output returns the final destination descriptor.
func (p *FusedPlan) Output() tensor.Descriptor { return p.Pool.Dst }

// String summarizes the plan for logs.
func (p *FusedPlan) String() string {
	return fmt.Sprintf("%s -conv(%s,%s)-> %s -pool(%s)-> %s",
		p.Conv.Src, p.Conv.Config.Kernel, p.Conv.Config.Activation,
		p.Intermediate(), p.Pool.Config.Reduction, p.Output())
}

// Build validates the whole pipeline and returns its plan. No buffer is
// touched; every error is returned here rather than during Execute.
func (c *Context) Build(s Stages) (*FusedPlan, error) {
	if c.Closed() {
		return nil, ErrContextClosed
	}

	mid, convPlan, err := primitive.PlanConv(s.Src, s.Weights, s.Bias, s.Conv, s.Quant)
	if err != nil {
		c.logger.Debug("conv plan rejected", "src", s.Src, "err", err)
		return nil, fmt.Errorf("build: %w", err)
	}

	out, poolPlan, err := primitive.PlanPool(mid, s.Pool)
	if err != nil {
		c.logger.Debug("pool plan rejected", "src", mid, "err", err)
		return nil, fmt.Errorf("build: %w", err)
	}

	if s.Declared != nil && !s.Declared.Equal(out.Dims()) {
		err := tensor.Mismatch("pipeline", "declared dst %v, computed %v", []int(s.Declared), []int(out.Dims()))
		c.logger.Debug("declared output rejected", "err", err)
		return nil, fmt.Errorf("build: %w", err)
	}

	plan := &FusedPlan{Conv: convPlan, Pool: poolPlan}
	c.logger.Debug("fused plan built", "plan", plan.String(), "quant", s.Quant.String())
	return plan, nil
}
