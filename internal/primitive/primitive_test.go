package primitive

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/fusion/internal/quant"
	"github.com/born-ml/fusion/internal/tensor"
)

func convOperands(t *testing.T, src tensor.Shape, outChannels int, kernel Spatial) (s, w, b tensor.Descriptor) {
	t.Helper()
	s = tensor.MustDescriptor(src, tensor.ChannelLast, tensor.Uint8)
	w = tensor.MustDescriptor(tensor.Shape{outChannels, src[1], kernel.H, kernel.W}, tensor.ChannelFirst, tensor.Int8)
	b = tensor.MustDescriptor(tensor.Shape{1, outChannels, 1, 1}, tensor.ChannelFirst, tensor.Int32)
	return s, w, b
}

func TestOutputDim(t *testing.T) {
	tests := []struct {
		in, kernel, pad, stride, want int
	}{
		{4, 3, 0, 1, 2},
		{2, 2, 0, 2, 1},
		{5, 3, 1, 1, 5},
		{7, 3, 1, 2, 4},
		{6, 2, 0, 3, 2},
		{2, 3, 0, 1, 0},
		{1, 4, 0, 2, -1},
		{1, 3, 0, 2, 0},
	}
	for _, tt := range tests {
		got := OutputDim(tt.in, tt.kernel, tt.pad, tt.stride)
		assert.Equal(t, tt.want, got, "in=%d k=%d p=%d s=%d", tt.in, tt.kernel, tt.pad, tt.stride)
	}
}

func TestOutputDim_MatchesFloorFormula(t *testing.T) {
	for in := 1; in <= 9; in++ {
		for k := 1; k <= 5; k++ {
			for p := 0; p <= 2; p++ {
				for s := 1; s <= 3; s++ {
					want := int(math.Floor(float64(in+2*p-k)/float64(s))) + 1
					require.Equal(t, want, OutputDim(in, k, p, s))
				}
			}
		}
	}
}

func TestPlanConv_ReferenceScenario(t *testing.T) {
	src, wei, bias := convOperands(t, tensor.Shape{1, 16, 4, 4}, 16, Square(3))
	q, err := quant.PerChannel(1, 16, quant.RoundNearest)
	require.NoError(t, err)

	dst, plan, err := PlanConv(src, wei, bias, DefaultConvConfig(Square(3)), q)
	require.NoError(t, err)

	assert.Equal(t, tensor.Shape{1, 16, 2, 2}, dst.Dims())
	assert.Equal(t, tensor.ChannelLast, dst.Layout(), "dst inherits src layout")
	assert.Equal(t, tensor.Int32, dst.DType())
	assert.Equal(t, 16*3*3, plan.ReductionDepth())
	assert.True(t, dst.Equal(plan.Dst))
}

func TestPlanConv_OutputOverrides(t *testing.T) {
	src, wei, bias := convOperands(t, tensor.Shape{1, 16, 5, 5}, 16, Square(3))
	cfg := DefaultConvConfig(Square(3))
	cfg.Padding = Square(1)
	cfg.OutputType = tensor.Uint8
	cfg.OutputLayout = tensor.BlockedChannel

	dst, _, err := PlanConv(src, wei, bias, cfg, quant.Identity())
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 16, 5, 5}, dst.Dims())
	assert.Equal(t, tensor.BlockedChannel, dst.Layout())
	assert.Equal(t, tensor.Uint8, dst.DType())
}

func TestPlanConv_Mismatches(t *testing.T) {
	src, wei, bias := convOperands(t, tensor.Shape{1, 16, 4, 4}, 8, Square(3))

	tests := []struct {
		name   string
		mutate func(s, w, b *tensor.Descriptor, cfg *ConvConfig)
	}{
		{"input channels", func(_, w, _ *tensor.Descriptor, _ *ConvConfig) {
			*w = tensor.MustDescriptor(tensor.Shape{8, 4, 3, 3}, tensor.ChannelFirst, tensor.Int8)
		}},
		{"bias length", func(_, _, b *tensor.Descriptor, _ *ConvConfig) {
			*b = tensor.MustDescriptor(tensor.Shape{1, 7, 1, 1}, tensor.ChannelFirst, tensor.Int32)
		}},
		{"kernel vs weights", func(_, _, _ *tensor.Descriptor, cfg *ConvConfig) {
			cfg.Kernel = Square(2)
		}},
		{"output too small", func(s, w, _ *tensor.Descriptor, cfg *ConvConfig) {
			*s = tensor.MustDescriptor(tensor.Shape{1, 16, 2, 2}, tensor.ChannelLast, tensor.Uint8)
		}},
		{"zero stride", func(_, _, _ *tensor.Descriptor, cfg *ConvConfig) {
			cfg.Stride = Spatial{H: 1, W: 0}
		}},
		{"negative padding", func(_, _, _ *tensor.Descriptor, cfg *ConvConfig) {
			cfg.Padding = Spatial{H: -1, W: 0}
		}},
		{"float src", func(s, _, _ *tensor.Descriptor, _ *ConvConfig) {
			*s = tensor.MustDescriptor(tensor.Shape{1, 16, 4, 4}, tensor.ChannelLast, tensor.Float32)
		}},
		{"s8 bias", func(_, _, b *tensor.Descriptor, _ *ConvConfig) {
			*b = tensor.MustDescriptor(tensor.Shape{1, 8, 1, 1}, tensor.ChannelFirst, tensor.Int8)
		}},
		{"blocked dst with 8 channels", func(_, _, _ *tensor.Descriptor, cfg *ConvConfig) {
			cfg.OutputLayout = tensor.BlockedChannel
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, w, b := src, wei, bias
			cfg := DefaultConvConfig(Square(3))
			tt.mutate(&s, &w, &b, &cfg)

			_, plan, err := PlanConv(s, w, b, cfg, quant.Identity())
			require.ErrorIs(t, err, tensor.ErrShapeMismatch)
			assert.Nil(t, plan)
		})
	}
}

func TestPlanConv_ScaleCountMismatch(t *testing.T) {
	src, wei, bias := convOperands(t, tensor.Shape{1, 16, 4, 4}, 8, Square(3))
	q, err := quant.NewPolicy([]float32{1, 1, 1}, quant.RoundNearest)
	require.NoError(t, err)

	_, _, err = PlanConv(src, wei, bias, DefaultConvConfig(Square(3)), q)
	assert.ErrorIs(t, err, quant.ErrInvalidScale)
}

func TestPlanConv_AccumulatorDepthLimit(t *testing.T) {
	// 255 * 128 = 32640 per product; 4096*5*5 products overflow int32.
	src := tensor.MustDescriptor(tensor.Shape{1, 4096, 5, 5}, tensor.ChannelLast, tensor.Uint8)
	wei := tensor.MustDescriptor(tensor.Shape{1, 4096, 5, 5}, tensor.ChannelFirst, tensor.Int8)
	bias := tensor.MustDescriptor(tensor.Shape{1, 1, 1, 1}, tensor.ChannelFirst, tensor.Int32)

	_, _, err := PlanConv(src, wei, bias, DefaultConvConfig(Square(5)), quant.Identity())
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)

	// 4096*4*4 products still fit.
	src = tensor.MustDescriptor(tensor.Shape{1, 4096, 4, 4}, tensor.ChannelLast, tensor.Uint8)
	wei = tensor.MustDescriptor(tensor.Shape{1, 4096, 4, 4}, tensor.ChannelFirst, tensor.Int8)
	_, _, err = PlanConv(src, wei, bias, DefaultConvConfig(Square(4)), quant.Identity())
	assert.NoError(t, err)
}

func TestPlanPool_ReferenceScenario(t *testing.T) {
	src := tensor.MustDescriptor(tensor.Shape{1, 16, 2, 2}, tensor.ChannelLast, tensor.Int32)

	dst, plan, err := PlanPool(src, DefaultPoolConfig(Square(2)))
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 16, 1, 1}, dst.Dims())
	assert.Equal(t, src.Layout(), dst.Layout())
	assert.Equal(t, src.DType(), dst.DType())
	assert.True(t, plan.Src.Equal(src))
}

func TestPlanPool_Rejects(t *testing.T) {
	src := tensor.MustDescriptor(tensor.Shape{1, 4, 3, 3}, tensor.ChannelFirst, tensor.Int32)

	tests := []struct {
		name string
		cfg  PoolConfig
	}{
		{"kernel larger than input", PoolConfig{Kernel: Square(4), Stride: Square(1)}},
		{"padding equals kernel", PoolConfig{Kernel: Square(2), Stride: Square(1), Padding: Spatial{H: 0, W: 2}}},
		{"zero kernel", PoolConfig{Kernel: Spatial{H: 0, W: 2}, Stride: Square(1)}},
		{"unknown reduction", PoolConfig{Kernel: Square(2), Stride: Square(1), Reduction: Reduction(9)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := PlanPool(src, tt.cfg)
			assert.ErrorIs(t, err, tensor.ErrShapeMismatch)
		})
	}
}

func TestPoolPlan_WindowClipsPadding(t *testing.T) {
	src := tensor.MustDescriptor(tensor.Shape{1, 1, 3, 3}, tensor.ChannelFirst, tensor.Int8)
	_, plan, err := PlanPool(src, PoolConfig{Kernel: Square(2), Stride: Square(2), Padding: Square(1)})
	require.NoError(t, err)
	require.Equal(t, 2, plan.Dst.H())

	h0, h1, w0, w1 := plan.Window(0, 0)
	assert.Equal(t, [4]int{0, 1, 0, 1}, [4]int{h0, h1, w0, w1})

	h0, h1, w0, w1 = plan.Window(1, 1)
	assert.Equal(t, [4]int{1, 3, 1, 3}, [4]int{h0, h1, w0, w1})
}

func TestPoolPlan_NoEmptyWindow(t *testing.T) {
	for in := 1; in <= 6; in++ {
		for k := 1; k <= 4; k++ {
			for p := 0; p < k; p++ {
				for s := 1; s <= 3; s++ {
					src := tensor.MustDescriptor(tensor.Shape{1, 1, in, in}, tensor.ChannelFirst, tensor.Int8)
					_, plan, err := PlanPool(src, PoolConfig{Kernel: Square(k), Stride: Square(s), Padding: Square(p)})
					if err != nil {
						continue
					}
					for o := 0; o < plan.Dst.H(); o++ {
						h0, h1, _, _ := plan.Window(o, 0)
						require.Less(t, h0, h1, "in=%d k=%d p=%d s=%d o=%d", in, k, p, s, o)
					}
				}
			}
		}
	}
}

func TestEpilogue_ActivationAfterNarrowing(t *testing.T) {
	src, wei, bias := convOperands(t, tensor.Shape{1, 1, 1, 1}, 1, Square(1))
	q, _ := quant.PerTensor(0.5, quant.RoundNearest)

	cfg := DefaultConvConfig(Square(1))
	cfg.OutputType = tensor.Int8
	_, plan, err := PlanConv(src, wei, bias, cfg, q)
	require.NoError(t, err)

	assert.Equal(t, float64(0), plan.Epilogue(-300, 0, 0), "negative after scaling -> 0")
	assert.Equal(t, float64(10), plan.Epilogue(16, 4, 0), "bias is added before scaling")
	assert.Equal(t, float64(127), plan.Epilogue(1000, 0, 0), "saturates")

	// -1 * 0.5 = -0.5 rounds to -0 under half-to-even: still not positive.
	assert.Equal(t, float64(0), plan.Epilogue(-1, 0, 0))
}

func TestEpilogue_LeakyReLUSaturatesFirst(t *testing.T) {
	src, wei, bias := convOperands(t, tensor.Shape{1, 1, 1, 1}, 1, Square(1))
	cfg := DefaultConvConfig(Square(1))
	cfg.OutputType = tensor.Int8
	cfg.Activation = LeakyReLU(0.5)

	_, plan, err := PlanConv(src, wei, bias, cfg, quant.Identity())
	require.NoError(t, err)

	// -1000 saturates to -128 before the slope: -64, not -500.
	assert.Equal(t, float64(-64), plan.Epilogue(-1000, 0, 0))
	// -5 * 0.5 = -2.5 -> -2 (half to even).
	assert.Equal(t, float64(-2), plan.Epilogue(-5, 0, 0))
	assert.Equal(t, float64(5), plan.Epilogue(5, 0, 0))
}

func TestEpilogue_NoActivationKeepsNegatives(t *testing.T) {
	src, wei, bias := convOperands(t, tensor.Shape{1, 1, 1, 1}, 1, Square(1))
	cfg := DefaultConvConfig(Square(1))
	cfg.Activation = Activation{}

	_, plan, err := PlanConv(src, wei, bias, cfg, quant.Identity())
	require.NoError(t, err)
	assert.Equal(t, float64(-42), plan.Epilogue(-40, -2, 0))
}
