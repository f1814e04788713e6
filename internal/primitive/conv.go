package primitive

import (
	"math"

	"github.com/born-ml/fusion/internal/quant"
	"github.com/born-ml/fusion/internal/tensor"
)

// ConvPlan is a validated convolution + bias + scale + activation primitive.
type ConvPlan struct {
	Src     tensor.Descriptor
	Weights tensor.Descriptor
	Bias    tensor.Descriptor
	Dst     tensor.Descriptor
	Config  ConvConfig
	Quant   *quant.Policy
}

// ReductionDepth returns the number of products summed per output element.
func (p *ConvPlan) ReductionDepth() int {
	return p.Weights.C() * p.Weights.H() * p.Weights.W()
}

// maxMagnitude returns the largest |v| representable by a narrow integer type.
func maxMagnitude(dt tensor.DataType) int64 {
	lo, hi := dt.Bounds()
	return int64(math.Max(-lo, hi))
}

// PlanConv validates the operands of a fused convolution and computes its
// destination descriptor.
//
// Output spatial size per axis is floor((in + 2*pad - kernel) / stride) + 1.
// Every failure is a *tensor.ShapeMismatchError except a scale count that
// does not fit the output channels, which is a *quant.InvalidScaleError.
func PlanConv(src, weights, bias tensor.Descriptor, cfg ConvConfig, q *quant.Policy) (tensor.Descriptor, *ConvPlan, error) {
	const op = "conv"

	switch {
	case src.IsZero() || weights.IsZero() || bias.IsZero():
		return tensor.Descriptor{}, nil, tensor.Mismatch(op, "missing operand descriptor")
	case q == nil:
		return tensor.Descriptor{}, nil, tensor.Mismatch(op, "missing quantization policy")
	}
	if err := validateWindow(op, cfg.Kernel, cfg.Stride, cfg.Padding); err != nil {
		return tensor.Descriptor{}, nil, err
	}

	// Operand types.
	if src.DType() != tensor.Uint8 && src.DType() != tensor.Int8 {
		return tensor.Descriptor{}, nil, tensor.Mismatch(op, "src type %s, want u8 or s8", src.DType())
	}
	if weights.DType() != tensor.Int8 && weights.DType() != tensor.Uint8 {
		return tensor.Descriptor{}, nil, tensor.Mismatch(op, "weights type %s, want s8 or u8", weights.DType())
	}
	if bias.DType() != tensor.Int32 {
		return tensor.Descriptor{}, nil, tensor.Mismatch(op, "bias type %s, want s32", bias.DType())
	}

	// Operand shapes.
	outChannels := weights.N()
	if weights.C() != src.C() {
		return tensor.Descriptor{}, nil, tensor.Mismatch(op, "weights input channels %d != src channels %d", weights.C(), src.C())
	}
	if weights.H() != cfg.Kernel.H || weights.W() != cfg.Kernel.W {
		return tensor.Descriptor{}, nil, tensor.Mismatch(op, "weights kernel %dx%d != configured kernel %s",
			weights.H(), weights.W(), cfg.Kernel)
	}
	if bias.NumElements() != outChannels {
		return tensor.Descriptor{}, nil, tensor.Mismatch(op, "bias length %d != output channels %d", bias.NumElements(), outChannels)
	}
	if err := q.Validate(outChannels); err != nil {
		return tensor.Descriptor{}, nil, err
	}

	// The int32 accumulator must hold the widest possible sum of products.
	depth := int64(weights.C()) * int64(weights.H()) * int64(weights.W())
	if worst := depth * maxMagnitude(src.DType()) * maxMagnitude(weights.DType()); worst > math.MaxInt32 {
		return tensor.Descriptor{}, nil, tensor.Mismatch(op, "reduction depth %d overflows the s32 accumulator", depth)
	}

	out := OutputSpatial(Spatial{H: src.H(), W: src.W()}, cfg.Kernel, cfg.Padding, cfg.Stride)
	if out.H < 1 || out.W < 1 {
		return tensor.Descriptor{}, nil, tensor.Mismatch(op, "output %s from input %dx%d, kernel %s, padding %s, stride %s",
			out, src.H(), src.W(), cfg.Kernel, cfg.Padding, cfg.Stride)
	}

	dstType := cfg.OutputType
	if dstType == tensor.Undefined {
		dstType = tensor.Int32
	}
	dstLayout := cfg.OutputLayout
	if dstLayout == tensor.LayoutUndefined {
		dstLayout = src.Layout()
	}
	dst, err := tensor.NewDescriptor(tensor.Shape{src.N(), outChannels, out.H, out.W}, dstLayout, dstType)
	if err != nil {
		return tensor.Descriptor{}, nil, tensor.Mismatch(op, "destination: %v", err)
	}

	cfg.OutputType, cfg.OutputLayout = dstType, dstLayout
	return dst, &ConvPlan{
		Src:     src,
		Weights: weights,
		Bias:    bias,
		Dst:     dst,
		Config:  cfg,
		Quant:   q,
	}, nil
}

// Epilogue turns a raw sum of products for output channel oc into the
// destination value: add bias in the wide domain, scale, round and saturate
// to the destination type, then activate. Activation runs after narrowing,
// so a leaky result is narrowed a second time.
func (p *ConvPlan) Epilogue(sum, bias int32, oc int) float64 {
	acc := int64(sum) + int64(bias)
	if acc > math.MaxInt32 {
		acc = math.MaxInt32
	} else if acc < math.MinInt32 {
		acc = math.MinInt32
	}

	dt := p.Dst.DType()
	v := p.Quant.Apply(int32(acc), oc, dt)

	act := p.Config.Activation
	if act.Kind == ActivationReLU && v < 0 {
		if act.NegativeSlope == 0 {
			return 0
		}
		v = p.Quant.Narrow(v*float64(act.NegativeSlope), dt)
	}
	return v
}
