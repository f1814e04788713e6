// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the pure Go reference engine for the fused pipeline.
//
// # Overview
//
// The engine implements:
//   - Integer convolution with a 32-bit accumulator (row-wise im2col)
//   - Bias add, per-channel output scaling, rounding and saturation
//   - ReLU / leaky ReLU applied after narrowing
//   - Max and average pooling that ignore padded positions
//   - Every layout: nchw, nhwc and nChw16c
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/fusion/backend/cpu"
//	    "github.com/born-ml/fusion/fused"
//	)
//
//	func main() {
//	    ctx := fused.NewContext(cpu.New())
//	    defer ctx.Close()
//
//	    plan, err := ctx.Build(stages)
//	    ...
//	    out, err := ctx.Execute(plan, buffers)
//	}
//
// # Thread Safety
//
// The CPU backend is safe for concurrent use. Output positions are split
// across workers and each output element is summed in a fixed order, so
// results do not depend on the worker count.
package cpu
