package tensor

import "fmt"

// Descriptor describes the shape, memory layout and element type of a 4-D
// tensor. It is immutable once created; accessors return copies.
type Descriptor struct {
	dims   Shape
	layout Layout
	dtype  DataType
}

// NewDescriptor validates and creates a descriptor.
//
// dims are always given in logical order ({N, C, H, W} for activations,
// {O, I, KH, KW} for weights). BlockedChannel requires axis 1 to be a
// multiple of ChannelBlock.
func NewDescriptor(dims Shape, layout Layout, dtype DataType) (Descriptor, error) {
	if err := dims.Validate(); err != nil {
		return Descriptor{}, err
	}
	if !layout.Valid() {
		return Descriptor{}, &InvalidShapeError{Dims: dims.Clone(), Axis: -1, Reason: fmt.Sprintf("unknown layout %d", int(layout))}
	}
	if !dtype.Valid() {
		return Descriptor{}, &InvalidShapeError{Dims: dims.Clone(), Axis: -1, Reason: fmt.Sprintf("unknown data type %d", int(dtype))}
	}
	if layout == BlockedChannel && dims[1]%ChannelBlock != 0 {
		return Descriptor{}, &InvalidShapeError{
			Dims:   dims.Clone(),
			Axis:   1,
			Reason: fmt.Sprintf("%d channels not a multiple of block %d", dims[1], ChannelBlock),
		}
	}
	return Descriptor{dims: dims.Clone(), layout: layout, dtype: dtype}, nil
}

// MustDescriptor is like NewDescriptor but panics on error.
// Intended for tests and fixed, known-good shapes.
func MustDescriptor(dims Shape, layout Layout, dtype DataType) Descriptor {
	d, err := NewDescriptor(dims, layout, dtype)
	if err != nil {
		panic(err)
	}
	return d
}

// Dims returns a copy of the logical dimensions.
func (d Descriptor) Dims() Shape { return d.dims.Clone() }

// Layout returns the memory layout.
func (d Descriptor) Layout() Layout { return d.layout }

// DType returns the element type.
func (d Descriptor) DType() DataType { return d.dtype }

// N returns the batch size, or output channels for weights.
func (d Descriptor) N() int { return d.dims[0] }

// C returns the channel count, or input channels for weights.
func (d Descriptor) C() int { return d.dims[1] }

// H returns the height, or kernel height for weights.
func (d Descriptor) H() int { return d.dims[2] }

// W returns the width, or kernel width for weights.
func (d Descriptor) W() int { return d.dims[3] }

// IsZero reports whether d is the zero Descriptor (never validated).
func (d Descriptor) IsZero() bool { return d.dims == nil }

// NumElements returns the total number of elements.
func (d Descriptor) NumElements() int { return d.dims.NumElements() }

// ByteSize returns the storage size in bytes.
func (d Descriptor) ByteSize() int { return d.NumElements() * d.dtype.Size() }

// Offset returns the element index of logical position (n, c, h, w).
// Panics if any index is out of range.
func (d Descriptor) Offset(n, c, h, w int) int {
	if n < 0 || n >= d.dims[0] || c < 0 || c >= d.dims[1] || h < 0 || h >= d.dims[2] || w < 0 || w >= d.dims[3] {
		panic(fmt.Sprintf("tensor: index (%d,%d,%d,%d) out of range for %v", n, c, h, w, d.dims))
	}
	return d.layout.offset(d.dims, n, c, h, w)
}

// Strides returns the element strides of the physical storage axes, in
// storage order: 4 entries for plain layouts, 5 for BlockedChannel.
func (d Descriptor) Strides() []int {
	return d.layout.storageShape(d.dims).ComputeStrides()
}

// WithDims returns a descriptor with the same layout and type but new dims.
func (d Descriptor) WithDims(dims Shape) (Descriptor, error) {
	return NewDescriptor(dims, d.layout, d.dtype)
}

// Equal reports whether two descriptors describe the same memory contract.
func (d Descriptor) Equal(o Descriptor) bool {
	return d.layout == o.layout && d.dtype == o.dtype && d.dims.Equal(o.dims)
}

// String formats the descriptor as "1x16x4x4:nhwc:u8".
func (d Descriptor) String() string {
	return fmt.Sprintf("%s:%s:%s", d.dims, d.layout, d.dtype)
}
