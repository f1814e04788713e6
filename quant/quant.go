// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package quant provides the output quantization policy of the fused
// convolution: per-tensor or per-channel scales plus a rounding mode.
//
// Saturation to the destination type is silent and lossy.
package quant

import (
	"github.com/born-ml/fusion/internal/quant"
)

// Policy holds output scales and a rounding mode.
type Policy = quant.Policy

// RoundingMode selects how scaled accumulators become integers.
type RoundingMode = quant.RoundingMode

// Rounding modes.
const (
	RoundNearest  RoundingMode = quant.RoundNearest
	RoundTruncate RoundingMode = quant.RoundTruncate
)

// InvalidScaleError reports a malformed quantization policy.
type InvalidScaleError = quant.InvalidScaleError

// ErrInvalidScale is the sentinel wrapped by every InvalidScaleError.
var ErrInvalidScale = quant.ErrInvalidScale

// NewPolicy validates and creates a policy.
//
// Example:
//
//	q, err := quant.NewPolicy([]float32{0.5, 0.25}, quant.RoundNearest)
func NewPolicy(scales []float32, mode RoundingMode) (*Policy, error) {
	return quant.NewPolicy(scales, mode)
}

// PerTensor creates a policy with a single scale.
func PerTensor(scale float32, mode RoundingMode) (*Policy, error) {
	return quant.PerTensor(scale, mode)
}

// PerChannel creates a policy repeating scale for every channel.
func PerChannel(scale float32, channels int, mode RoundingMode) (*Policy, error) {
	return quant.PerChannel(scale, channels, mode)
}
