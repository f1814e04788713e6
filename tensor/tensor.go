// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/fusion/internal/tensor"
)

// DataType represents the element type of a tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	Int8    DataType = tensor.Int8
	Uint8   DataType = tensor.Uint8
	Int32   DataType = tensor.Int32
	Float32 DataType = tensor.Float32
)

// Layout represents the physical ordering of a tensor's axes.
type Layout = tensor.Layout

// Layout constants.
const (
	ChannelFirst   Layout = tensor.ChannelFirst
	ChannelLast    Layout = tensor.ChannelLast
	BlockedChannel Layout = tensor.BlockedChannel
)

// ChannelBlock is the inner channel block width of BlockedChannel.
const ChannelBlock = tensor.ChannelBlock

// Shape represents the logical dimensions of a tensor in NCHW order.
type Shape = tensor.Shape

// Descriptor describes shape, layout and element type of a 4-D tensor.
type Descriptor = tensor.Descriptor

// Buffer is an owned memory block tagged with its Descriptor.
type Buffer = tensor.Buffer

// Error types.
type (
	InvalidShapeError  = tensor.InvalidShapeError
	ShapeMismatchError = tensor.ShapeMismatchError
)

// Sentinel errors.
var (
	ErrInvalidShape  = tensor.ErrInvalidShape
	ErrShapeMismatch = tensor.ErrShapeMismatch
)

// NewDescriptor validates and creates a descriptor.
//
// Example:
//
//	desc, err := tensor.NewDescriptor(tensor.Shape{1, 16, 4, 4}, tensor.ChannelLast, tensor.Uint8)
func NewDescriptor(dims Shape, layout Layout, dtype DataType) (Descriptor, error) {
	return tensor.NewDescriptor(dims, layout, dtype)
}

// NewBuffer allocates a zeroed buffer for desc.
func NewBuffer(desc Descriptor) (*Buffer, error) {
	return tensor.NewBuffer(desc)
}
