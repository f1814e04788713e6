// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package gemm provides a compute engine that runs convolution as tiled
// matrix multiplication on gonum. Its output is identical to the cpu engine.
package gemm

import (
	"github.com/born-ml/fusion/fused"
	internalgemm "github.com/born-ml/fusion/internal/backend/gemm"
	"github.com/born-ml/fusion/internal/parallel"
)

// Backend represents the GEMM backend implementation.
type Backend = internalgemm.Backend

// Compile-time check that Backend implements fused.Engine.
var _ fused.Engine = (*Backend)(nil)

// DefaultTileRows is the number of output positions multiplied per GEMM call.
const DefaultTileRows = internalgemm.DefaultTileRows

// New creates a GEMM backend with default tiling.
func New() *Backend {
	return internalgemm.New()
}

// NewWithTileRows creates a GEMM backend multiplying tileRows output
// positions per call.
func NewWithTileRows(tileRows int) *Backend {
	return internalgemm.NewWithConfig(parallel.DefaultConfig(), tileRows)
}
