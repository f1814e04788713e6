package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/fusion/internal/parallel"
	"github.com/born-ml/fusion/internal/primitive"
	"github.com/born-ml/fusion/internal/tensor"
)

// RunPooling performs 2D max or average pooling described by plan.
//
// Input shape:  [batch, channels, height, width]
// Output shape: [batch, channels, out_height, out_width]
//
// Padded positions are excluded from the reduction rather than read as
// zero, so a window holding a single negative value returns that value.
// Plan validation guarantees every window has at least one real element.
//
// Example (2x2 max pool, stride=2):
//
//	Input: [[1,2,3,4],    Output: [[6,8],
//	        [5,6,7,8],             [14,16]]
//	        [9,10,11,12],
//	        [13,14,15,16]]
func (cpu *CPUBackend) RunPooling(plan *primitive.PoolPlan, src, dst *tensor.Buffer) error {
	if err := primitive.CheckPoolBuffers(plan, src, dst); err != nil {
		return err
	}

	switch src.DType() {
	case tensor.Int8:
		pool2d[int8](plan, src, dst, cpu.parallel)
	case tensor.Uint8:
		pool2d[uint8](plan, src, dst, cpu.parallel)
	case tensor.Int32:
		pool2d[int32](plan, src, dst, cpu.parallel)
	case tensor.Float32:
		pool2d[float32](plan, src, dst, cpu.parallel)
	default:
		return fmt.Errorf("pool: unsupported dtype %s", src.DType())
	}
	return nil
}

func pool2d[T tensor.Element](plan *primitive.PoolPlan, src, dst *tensor.Buffer, cfg parallel.Config) {
	inputData := tensor.View[T](src)
	outputData := tensor.View[T](dst)
	in, out := plan.Src, plan.Dst
	average := plan.Config.Reduction == primitive.ReduceAverage
	integer := in.DType().IsInteger()

	parallel.ForBatch(out.N(), out.C(), func(n, c int) {
		for outH := 0; outH < out.H(); outH++ {
			for outW := 0; outW < out.W(); outW++ {
				h0, h1, w0, w1 := plan.Window(outH, outW)

				if average {
					var sum float64
					for h := h0; h < h1; h++ {
						for w := w0; w < w1; w++ {
							sum += float64(inputData[in.Offset(n, c, h, w)])
						}
					}
					avg := sum / float64((h1-h0)*(w1-w0))
					if integer {
						avg = math.RoundToEven(avg)
					}
					outputData[out.Offset(n, c, outH, outW)] = T(avg)
					continue
				}

				// Seed with the first real element; padding never competes.
				maxVal := inputData[in.Offset(n, c, h0, w0)]
				for h := h0; h < h1; h++ {
					for w := w0; w < w1; w++ {
						if val := inputData[in.Offset(n, c, h, w)]; val > maxVal {
							maxVal = val
						}
					}
				}
				outputData[out.Offset(n, c, outH, outW)] = maxVal
			}
		}
	}, cfg)
}
