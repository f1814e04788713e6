// Package gemm implements a compute engine that lowers convolution to dense
// matrix multiplication on gonum.
//
// Integer operands are widened to float64 before the multiply. Every
// product and partial sum the planner admits fits in 31 bits, well inside
// float64's 53-bit mantissa, so the result is bit-identical to the integer
// reference engine.
package gemm

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/fusion/internal/backend/cpu"
	"github.com/born-ml/fusion/internal/parallel"
	"github.com/born-ml/fusion/internal/primitive"
	"github.com/born-ml/fusion/internal/tensor"
)

// DefaultTileRows is the number of output positions multiplied per GEMM call.
const DefaultTileRows = 256

// Backend runs convolution as tiled GEMM and delegates pooling to the cpu engine.
type Backend struct {
	pool     *cpu.CPUBackend
	parallel parallel.Config
	tileRows int
}

// Compile-time check that Backend implements primitive.Engine.
var _ primitive.Engine = (*Backend)(nil)

// New creates a GEMM backend with default tiling and parallelism.
func New() *Backend {
	return NewWithConfig(parallel.DefaultConfig(), DefaultTileRows)
}

// NewWithConfig creates a GEMM backend. tileRows <= 0 selects DefaultTileRows.
func NewWithConfig(cfg parallel.Config, tileRows int) *Backend {
	if tileRows <= 0 {
		tileRows = DefaultTileRows
	}
	return &Backend{
		pool:     cpu.NewWithConfig(cfg),
		parallel: cfg,
		tileRows: tileRows,
	}
}

// Name returns the backend name.
func (b *Backend) Name() string {
	return "gemm"
}

// RunPooling delegates to the cpu engine.
func (b *Backend) RunPooling(plan *primitive.PoolPlan, src, dst *tensor.Buffer) error {
	return b.pool.RunPooling(plan, src, dst)
}

// RunConvolution computes plan as dst = epilogue(im2col(src) x weights^T).
//
// Algorithm:
//  1. Pack weights into W: [C_out, C_in*K_h*K_w]
//  2. For each tile of output positions, build A: [tile, C_in*K_h*K_w]
//  3. C = A x W^T: [tile, C_out]
//  4. Epilogue per element, scattered into dst's layout
func (b *Backend) RunConvolution(plan *primitive.ConvPlan, src, weights, bias, dst *tensor.Buffer) error {
	if err := primitive.CheckConvBuffers(plan, src, weights, bias, dst); err != nil {
		return err
	}

	var packed []int32
	switch weights.DType() {
	case tensor.Int8:
		packed = cpu.PackWeights[int8](plan, weights)
	case tensor.Uint8:
		packed = cpu.PackWeights[uint8](plan, weights)
	default:
		return fmt.Errorf("conv: unsupported weights type %s", weights.DType())
	}

	switch src.DType() {
	case tensor.Uint8:
		b.conv(plan, tensor.View[uint8](src), packed, bias, dst)
	case tensor.Int8:
		b.conv(plan, tensor.View[int8](src), packed, bias, dst)
	default:
		return fmt.Errorf("conv: unsupported src type %s", src.DType())
	}
	return nil
}

func (b *Backend) conv(plan *primitive.ConvPlan, srcData any, packed []int32, bias, dst *tensor.Buffer) {
	K := plan.ReductionDepth()
	dstDesc := plan.Dst
	COut, HOut, WOut := dstDesc.C(), dstDesc.H(), dstDesc.W()
	positions := dstDesc.N() * HOut * WOut

	wf := make([]float64, len(packed))
	for i, v := range packed {
		wf[i] = float64(v)
	}
	wMat := mat.NewDense(COut, K, wf)
	biasData := bias.AsInt32()

	tiles := (positions + b.tileRows - 1) / b.tileRows
	parallel.For(tiles, func(t int) {
		first := t * b.tileRows
		rows := min(b.tileRows, positions-first)

		col := make([]int32, K)
		aData := make([]float64, rows*K)
		for r := 0; r < rows; r++ {
			n, outH, outW := position(first+r, HOut, WOut)
			gather(col, srcData, plan, n, outH, outW)
			for k, v := range col {
				aData[r*K+k] = float64(v)
			}
		}

		var c mat.Dense
		c.Mul(mat.NewDense(rows, K, aData), wMat.T())

		for r := 0; r < rows; r++ {
			n, outH, outW := position(first+r, HOut, WOut)
			for oc := 0; oc < COut; oc++ {
				sum := int32(c.At(r, oc))
				dst.Store(dstDesc.Offset(n, oc, outH, outW), plan.Epilogue(sum, biasData[oc], oc))
			}
		}
	}, b.parallel)
}

// position splits a flat output position into (n, h, w).
func position(p, HOut, WOut int) (n, h, w int) {
	return p / (HOut * WOut), p / WOut % HOut, p % WOut
}

func gather(col []int32, srcData any, plan *primitive.ConvPlan, n, outH, outW int) {
	switch data := srcData.(type) {
	case []uint8:
		cpu.Im2colRow(col, data, plan, n, outH, outW)
	case []int8:
		cpu.Im2colRow(col, data, plan, n, outH, outW)
	default:
		panic(fmt.Sprintf("gather: unsupported src slice %T", srcData))
	}
}
