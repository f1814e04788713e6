// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	"github.com/born-ml/fusion/fused"
	internalcpu "github.com/born-ml/fusion/internal/backend/cpu"
	"github.com/born-ml/fusion/internal/parallel"
)

// Backend represents the CPU backend implementation.
type Backend = internalcpu.CPUBackend

// Features lists the host ISA extensions relevant to int8 convolution.
type Features = internalcpu.Features

// Compile-time check that Backend implements fused.Engine.
var _ fused.Engine = (*Backend)(nil)

// New creates a new CPU backend using every core.
//
// Example:
//
//	ctx := fused.NewContext(cpu.New())
//	defer ctx.Close()
func New() *Backend {
	return internalcpu.New()
}

// NewSequential creates a CPU backend that never spawns goroutines.
func NewSequential() *Backend {
	return internalcpu.NewWithConfig(parallel.Sequential())
}

// NewWithWorkers creates a CPU backend limited to n worker goroutines.
func NewWithWorkers(n int) *Backend {
	cfg := parallel.DefaultConfig()
	cfg.NumWorkers = n
	cfg.Enabled = n > 1
	return internalcpu.NewWithConfig(cfg)
}
