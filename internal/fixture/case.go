// Package fixture drives the fused pipeline from literal parameter tuples
// (src_dims, conv_kernel, conv_pad, conv_stride, pool_kernel, pool_pad,
// pool_stride, dst_dims), the way a parameterized test harness does.
package fixture

import (
	"fmt"

	"github.com/born-ml/fusion/internal/pipeline"
	"github.com/born-ml/fusion/internal/primitive"
	"github.com/born-ml/fusion/internal/quant"
	"github.com/born-ml/fusion/internal/tensor"
)

// Case is one parameter tuple plus the operand types to run it with.
// Dims are in logical NCHW order; pairs are (height, width).
type Case struct {
	Name       string `yaml:"name"`
	SrcDims    []int  `yaml:"src_dims"`
	ConvKernel []int  `yaml:"conv_kernel"`
	ConvPad    []int  `yaml:"conv_pad"`
	ConvStride []int  `yaml:"conv_stride"`
	PoolKernel []int  `yaml:"pool_kernel"`
	PoolPad    []int  `yaml:"pool_pad"`
	PoolStride []int  `yaml:"pool_stride"`
	DstDims    []int  `yaml:"dst_dims"`

	Types Types `yaml:"types"`

	// Scale is the per-channel output scale applied to every channel.
	Scale         float32 `yaml:"scale"`
	Rounding      string  `yaml:"rounding"`
	NegativeSlope float32 `yaml:"negative_slope"`
	Reduction     string  `yaml:"reduction"`
	Seed          uint64  `yaml:"seed"`
}

// Types names the element types and layouts of the operands.
type Types struct {
	Src           string `yaml:"src"`
	Weights       string `yaml:"weights"`
	Dst           string `yaml:"dst"`
	SrcLayout     string `yaml:"src_layout"`
	WeightsLayout string `yaml:"weights_layout"`
}

// DefaultTypes returns u8 src, s8 weights, s32 dst, channel-last activations
// and channel-first weights.
func DefaultTypes() Types {
	return Types{Src: "u8", Weights: "s8", Dst: "s32", SrcLayout: "nhwc", WeightsLayout: "oihw"}
}

// ConvReluPool is the reference scenario: a 1x16x4x4 input, 3x3 convolution
// and 2x2/2 max pooling, declared to produce 1x16x1x1.
func ConvReluPool() Case {
	return Case{
		Name:       "conv_relu_pool_1x16x4x4",
		SrcDims:    []int{1, 16, 4, 4},
		ConvKernel: []int{3, 3},
		ConvPad:    []int{0, 0},
		ConvStride: []int{1, 1},
		PoolKernel: []int{2, 2},
		PoolPad:    []int{0, 0},
		PoolStride: []int{2, 2},
		DstDims:    []int{1, 16, 1, 1},
		Types:      DefaultTypes(),
		Scale:      1,
	}
}

// withDefaults fills zero-valued optional fields.
func (c Case) withDefaults() Case {
	def := DefaultTypes()
	setDefault(&c.Types.Src, def.Src)
	setDefault(&c.Types.Weights, def.Weights)
	setDefault(&c.Types.Dst, def.Dst)
	setDefault(&c.Types.SrcLayout, def.SrcLayout)
	setDefault(&c.Types.WeightsLayout, def.WeightsLayout)
	setDefault(&c.Rounding, quant.RoundNearest.String())
	setDefault(&c.Reduction, primitive.ReduceMax.String())
	if c.Scale == 0 {
		c.Scale = 1
	}
	return c
}

// Stages converts the tuple into pipeline stages. Malformed tuples (wrong
// arity, unknown type names) are reported as errors, as are invalid
// descriptors and scales.
func (c Case) Stages() (pipeline.Stages, error) {
	c = c.withDefaults()

	src, err := dims4("src_dims", c.SrcDims)
	if err != nil {
		return pipeline.Stages{}, err
	}
	dst, err := dims4("dst_dims", c.DstDims)
	if err != nil {
		return pipeline.Stages{}, err
	}
	convKernel, err1 := pair("conv_kernel", c.ConvKernel)
	convPad, err2 := pair("conv_pad", c.ConvPad)
	convStride, err3 := pair("conv_stride", c.ConvStride)
	poolKernel, err4 := pair("pool_kernel", c.PoolKernel)
	poolPad, err5 := pair("pool_pad", c.PoolPad)
	poolStride, err6 := pair("pool_stride", c.PoolStride)
	for _, e := range []error{err1, err2, err3, err4, err5, err6} {
		if e != nil {
			return pipeline.Stages{}, e
		}
	}

	srcType, err := dataType("src", c.Types.Src)
	if err != nil {
		return pipeline.Stages{}, err
	}
	weiType, err := dataType("weights", c.Types.Weights)
	if err != nil {
		return pipeline.Stages{}, err
	}
	dstType, err := dataType("dst", c.Types.Dst)
	if err != nil {
		return pipeline.Stages{}, err
	}
	srcLayout, err := layout("src", c.Types.SrcLayout)
	if err != nil {
		return pipeline.Stages{}, err
	}
	weiLayout, err := layout("weights", c.Types.WeightsLayout)
	if err != nil {
		return pipeline.Stages{}, err
	}

	rounding := quant.RoundNearest
	switch c.Rounding {
	case quant.RoundNearest.String():
	case quant.RoundTruncate.String():
		rounding = quant.RoundTruncate
	default:
		return pipeline.Stages{}, fmt.Errorf("case %q: unknown rounding %q", c.Name, c.Rounding)
	}
	reduction := primitive.ReduceMax
	switch c.Reduction {
	case primitive.ReduceMax.String():
	case primitive.ReduceAverage.String():
		reduction = primitive.ReduceAverage
	default:
		return pipeline.Stages{}, fmt.Errorf("case %q: unknown reduction %q", c.Name, c.Reduction)
	}

	// Output channels come from the declared destination.
	outChannels := dst[1]

	srcDesc, err := tensor.NewDescriptor(src, srcLayout, srcType)
	if err != nil {
		return pipeline.Stages{}, fmt.Errorf("case %q: src: %w", c.Name, err)
	}
	weiDesc, err := tensor.NewDescriptor(tensor.Shape{outChannels, src[1], convKernel.H, convKernel.W}, weiLayout, weiType)
	if err != nil {
		return pipeline.Stages{}, fmt.Errorf("case %q: weights: %w", c.Name, err)
	}
	biasDesc, err := tensor.NewDescriptor(tensor.Shape{1, outChannels, 1, 1}, tensor.ChannelFirst, tensor.Int32)
	if err != nil {
		return pipeline.Stages{}, fmt.Errorf("case %q: bias: %w", c.Name, err)
	}
	policy, err := quant.PerChannel(c.Scale, outChannels, rounding)
	if err != nil {
		return pipeline.Stages{}, fmt.Errorf("case %q: %w", c.Name, err)
	}

	return pipeline.Stages{
		Src:     srcDesc,
		Weights: weiDesc,
		Bias:    biasDesc,
		Conv: primitive.ConvConfig{
			Kernel:     convKernel,
			Stride:     convStride,
			Padding:    convPad,
			Activation: primitive.LeakyReLU(c.NegativeSlope),
			OutputType: dstType,
		},
		Quant: policy,
		Pool: primitive.PoolConfig{
			Kernel:    poolKernel,
			Stride:    poolStride,
			Padding:   poolPad,
			Reduction: reduction,
		},
		Declared: dst,
	}, nil
}

func setDefault(field *string, val string) {
	if *field == "" {
		*field = val
	}
}

func dims4(field string, v []int) (tensor.Shape, error) {
	if len(v) != tensor.Rank {
		return nil, fmt.Errorf("%s: want %d values, got %d", field, tensor.Rank, len(v))
	}
	return tensor.Shape(append([]int(nil), v...)), nil
}

func pair(field string, v []int) (primitive.Spatial, error) {
	if len(v) != 2 {
		return primitive.Spatial{}, fmt.Errorf("%s: want 2 values, got %d", field, len(v))
	}
	return primitive.Spatial{H: v[0], W: v[1]}, nil
}

func dataType(role, name string) (tensor.DataType, error) {
	dt, ok := tensor.ParseDataType(name)
	if !ok {
		return tensor.Undefined, fmt.Errorf("%s: unknown data type %q", role, name)
	}
	return dt, nil
}

func layout(role, name string) (tensor.Layout, error) {
	l, ok := tensor.ParseLayout(name)
	if !ok {
		return tensor.LayoutUndefined, fmt.Errorf("%s: unknown layout %q", role, name)
	}
	return l, nil
}
