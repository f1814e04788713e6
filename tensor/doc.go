// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public descriptor and buffer types of the
// fused convolution pipeline.
//
// # Overview
//
// A Descriptor fixes three things about a 4-D tensor:
//   - Shape: logical dimensions, always in NCHW order ({O, I, KH, KW} for weights)
//   - Layout: physical ordering (nchw, nhwc, or channel-blocked nChw16c)
//   - DataType: s8, u8, s32 or f32
//
// A Buffer is an owned, reference-counted memory block tagged with its
// Descriptor. Typed views check the data type; logical accessors check
// bounds.
//
// # Basic Usage
//
//	import "github.com/born-ml/fusion/tensor"
//
//	desc, err := tensor.NewDescriptor(tensor.Shape{1, 16, 4, 4}, tensor.ChannelLast, tensor.Uint8)
//	if err != nil {
//	    // errors.Is(err, tensor.ErrInvalidShape)
//	}
//	buf, _ := tensor.NewBuffer(desc)
//	buf.Set(0, 3, 1, 2, 200)     // n, c, h, w
//	raw := buf.AsUint8()          // storage order: nhwc
//
// # Errors
//
// Malformed descriptors return *InvalidShapeError (ErrInvalidShape).
// Incompatibilities between tensors or stages return *ShapeMismatchError
// (ErrShapeMismatch).
package tensor
