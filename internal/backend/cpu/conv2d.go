package cpu

import (
	"fmt"

	"github.com/born-ml/fusion/internal/parallel"
	"github.com/born-ml/fusion/internal/primitive"
	"github.com/born-ml/fusion/internal/tensor"
)

// RunConvolution performs the fused quantized convolution described by plan.
//
// Src shape:     [N, C_in, H, W]        (any layout)
// Weights shape: [C_out, C_in, K_h, K_w] (any layout)
// Bias:          C_out int32 values
// Dst shape:     [N, C_out, H_out, W_out]
//
// Algorithm: row-wise im2col
//  1. Pack weights once into a [C_out, C_in*K_h*K_w] int32 matrix
//  2. For each output position, gather its input patch into a scratch row
//     (padding contributes zeros)
//  3. Dot the row with every packed weight row in an int32 accumulator
//  4. Run the plan's epilogue: bias, scale, round/saturate, activation
//
// Output positions are split across workers; each worker owns its scratch
// row, and every output element is summed in a fixed order, so results do
// not depend on the worker count.
func (cpu *CPUBackend) RunConvolution(plan *primitive.ConvPlan, src, weights, bias, dst *tensor.Buffer) error {
	if err := primitive.CheckConvBuffers(plan, src, weights, bias, dst); err != nil {
		return err
	}

	switch {
	case src.DType() == tensor.Uint8 && weights.DType() == tensor.Int8:
		conv2d[uint8, int8](plan, src, weights, bias, dst, cpu.parallel)
	case src.DType() == tensor.Int8 && weights.DType() == tensor.Int8:
		conv2d[int8, int8](plan, src, weights, bias, dst, cpu.parallel)
	case src.DType() == tensor.Uint8 && weights.DType() == tensor.Uint8:
		conv2d[uint8, uint8](plan, src, weights, bias, dst, cpu.parallel)
	case src.DType() == tensor.Int8 && weights.DType() == tensor.Uint8:
		conv2d[int8, uint8](plan, src, weights, bias, dst, cpu.parallel)
	default:
		return fmt.Errorf("conv: unsupported operand types %s x %s", src.DType(), weights.DType())
	}
	return nil
}

func conv2d[S, W tensor.Quantized](plan *primitive.ConvPlan, src, weights, bias, dst *tensor.Buffer, cfg parallel.Config) {
	packed := PackWeights[W](plan, weights)
	srcData := tensor.View[S](src)
	biasData := bias.AsInt32()
	store := storer(dst)

	dstDesc := plan.Dst
	K := plan.ReductionDepth()
	COut, HOut, WOut := dstDesc.C(), dstDesc.H(), dstDesc.W()
	positions := dstDesc.N() * HOut * WOut

	parallel.ForRange(positions, func(start, end int) {
		col := make([]int32, K)
		for p := start; p < end; p++ {
			n := p / (HOut * WOut)
			outH := p / WOut % HOut
			outW := p % WOut

			Im2colRow(col, srcData, plan, n, outH, outW)

			for oc := 0; oc < COut; oc++ {
				row := packed[oc*K : (oc+1)*K]
				var sum int32
				for k, v := range col {
					sum += row[k] * v
				}
				store(dstDesc.Offset(n, oc, outH, outW), plan.Epilogue(sum, biasData[oc], oc))
			}
		}
	}, cfg)
}

// PackWeights copies weights of any layout into a row-major
// [C_out, C_in*K_h*K_w] int32 matrix. Column k maps to (c, kh, kw) with
// k = (c*K_h + kh)*K_w + kw.
func PackWeights[W tensor.Quantized](plan *primitive.ConvPlan, weights *tensor.Buffer) []int32 {
	desc := plan.Weights
	data := tensor.View[W](weights)
	COut, CIn, KH, KW := desc.N(), desc.C(), desc.H(), desc.W()
	K := CIn * KH * KW

	packed := make([]int32, COut*K)
	for o := 0; o < COut; o++ {
		row := packed[o*K : (o+1)*K]
		k := 0
		for c := 0; c < CIn; c++ {
			for kh := 0; kh < KH; kh++ {
				for kw := 0; kw < KW; kw++ {
					row[k] = int32(data[desc.Offset(o, c, kh, kw)])
					k++
				}
			}
		}
	}
	return packed
}

// Im2colRow gathers the input patch of output position (n, outH, outW) into
// col, in the same (c, kh, kw) order as PackWeights. Positions in the
// padded border are zero.
func Im2colRow[S tensor.Quantized](col []int32, srcData []S, plan *primitive.ConvPlan, n, outH, outW int) {
	desc := plan.Src
	cfg := plan.Config
	C, H, W := desc.C(), desc.H(), desc.W()
	KH, KW := cfg.Kernel.H, cfg.Kernel.W

	// Top-left corner in input space
	hStart := outH*cfg.Stride.H - cfg.Padding.H
	wStart := outW*cfg.Stride.W - cfg.Padding.W

	k := 0
	for c := 0; c < C; c++ {
		for kh := 0; kh < KH; kh++ {
			h := hStart + kh
			for kw := 0; kw < KW; kw++ {
				w := wStart + kw
				if h >= 0 && h < H && w >= 0 && w < W {
					col[k] = int32(srcData[desc.Offset(n, c, h, w)])
				} else {
					col[k] = 0
				}
				k++
			}
		}
	}
}
