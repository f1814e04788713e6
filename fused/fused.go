// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package fused composes quantized convolution, bias, output scaling, ReLU
// and max pooling into one inference operator over 4-D tensors.
//
// # Overview
//
// Build validates the whole chain before any compute: operand shapes and
// types, both stages' geometry, the quantization policy, and optionally a
// caller-declared output shape. Execute then runs convolution into an
// intermediate buffer and pools that same buffer into the destination.
//
// # Basic Usage
//
//	ctx := fused.NewContext(cpu.New())
//	defer ctx.Close()
//
//	plan, err := ctx.Build(fused.Stages{
//	    Src:     src,     // 1x16x4x4 nhwc u8
//	    Weights: weights, // 16x16x3x3 oihw s8
//	    Bias:    bias,    // 1x16x1x1 s32
//	    Conv:    fused.DefaultConvConfig(fused.Square(3)),
//	    Quant:   policy,
//	    Pool:    fused.DefaultPoolConfig(fused.Square(2)),
//	    Declared: tensor.Shape{1, 16, 1, 1},
//	})
//	if errors.Is(err, tensor.ErrShapeMismatch) {
//	    // declared and computed shapes disagree, or operands do not fit
//	}
//	out, err := ctx.Execute(plan, fused.Buffers{Src: s, Weights: w, Bias: b})
package fused

import (
	"log/slog"

	"github.com/born-ml/fusion/internal/pipeline"
	"github.com/born-ml/fusion/internal/primitive"
)

// Engine executes validated primitives. See backend/cpu and backend/gemm.
type Engine = primitive.Engine

// Context is the explicit compute context of a pipeline.
type Context = pipeline.Context

// Stages, FusedPlan and Buffers are the Build and Execute arguments.
type (
	Stages    = pipeline.Stages
	FusedPlan = pipeline.FusedPlan
	Buffers   = pipeline.Buffers
)

// Stage configuration types.
type (
	Spatial    = primitive.Spatial
	ConvConfig = primitive.ConvConfig
	PoolConfig = primitive.PoolConfig
	Activation = primitive.Activation
	Reduction  = primitive.Reduction
	ConvPlan   = primitive.ConvPlan
	PoolPlan   = primitive.PoolPlan
)

// Pooling reductions.
const (
	ReduceMax     Reduction = primitive.ReduceMax
	ReduceAverage Reduction = primitive.ReduceAverage
)

// Option configures a Context.
type Option = pipeline.Option

// ErrContextClosed is returned by Build and Execute after Close.
var ErrContextClosed = pipeline.ErrContextClosed

// NewContext creates a compute context around engine.
func NewContext(engine Engine, opts ...Option) *Context {
	return pipeline.NewContext(engine, opts...)
}

// WithLogger sets the context's logger.
func WithLogger(l *slog.Logger) Option {
	return pipeline.WithLogger(l)
}

// Square returns Spatial{v, v}.
func Square(v int) Spatial { return primitive.Square(v) }

// ReLU returns standard ReLU.
func ReLU() Activation { return primitive.ReLU() }

// LeakyReLU returns ReLU with the given negative slope.
func LeakyReLU(slope float32) Activation { return primitive.LeakyReLU(slope) }

// DefaultConvConfig returns a stride-1, unpadded ReLU convolution with s32 output.
func DefaultConvConfig(kernel Spatial) ConvConfig { return primitive.DefaultConvConfig(kernel) }

// DefaultPoolConfig returns unpadded max pooling with stride equal to kernel.
func DefaultPoolConfig(kernel Spatial) PoolConfig { return primitive.DefaultPoolConfig(kernel) }

// OutputDim returns floor((in + 2*pad - kernel) / stride) + 1.
func OutputDim(in, kernel, pad, stride int) int { return primitive.OutputDim(in, kernel, pad, stride) }
