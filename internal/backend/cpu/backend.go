// Package cpu implements the pure Go reference compute engine.
package cpu

import (
	"fmt"

	"github.com/born-ml/fusion/internal/parallel"
	"github.com/born-ml/fusion/internal/primitive"
	"github.com/born-ml/fusion/internal/tensor"
)

// CPUBackend executes convolution and pooling plans on the CPU. It holds no
// mutable state and is safe for concurrent use.
type CPUBackend struct {
	parallel parallel.Config
	features Features
}

// Compile-time check that CPUBackend implements primitive.Engine.
var _ primitive.Engine = (*CPUBackend)(nil)

// New creates a new CPU backend with the default parallel configuration.
func New() *CPUBackend {
	return NewWithConfig(parallel.DefaultConfig())
}

// NewWithConfig creates a CPU backend with an explicit parallel configuration.
func NewWithConfig(cfg parallel.Config) *CPUBackend {
	return &CPUBackend{
		parallel: cfg,
		features: DetectFeatures(),
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "cpu"
}

// Parallel returns the backend's parallel configuration.
func (cpu *CPUBackend) Parallel() parallel.Config {
	return cpu.parallel
}

// Features returns the ISA features detected at construction.
func (cpu *CPUBackend) Features() Features {
	return cpu.features
}

// PreferredLayout returns the activation layout this host vectorizes best:
// blocked channels on AVX-512, channel-last otherwise.
func (cpu *CPUBackend) PreferredLayout() tensor.Layout {
	if cpu.features.AVX512F {
		return tensor.BlockedChannel
	}
	return tensor.ChannelLast
}

// storer returns a typed writer for dst, selected once per primitive.
func storer(dst *tensor.Buffer) func(i int, v float64) {
	switch dst.DType() {
	case tensor.Int8:
		data := dst.AsInt8()
		return func(i int, v float64) { data[i] = int8(v) }
	case tensor.Uint8:
		data := dst.AsUint8()
		return func(i int, v float64) { data[i] = uint8(v) }
	case tensor.Int32:
		data := dst.AsInt32()
		return func(i int, v float64) { data[i] = int32(v) }
	case tensor.Float32:
		data := dst.AsFloat32()
		return func(i int, v float64) { data[i] = float32(v) }
	default:
		panic(fmt.Sprintf("store: unsupported dtype %s", dst.DType()))
	}
}
