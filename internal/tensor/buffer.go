package tensor

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"
)

// storage is a reference-counted byte block shared by Buffer handles.
type storage struct {
	data     []byte
	refCount atomic.Int32
	sealed   atomic.Bool
	mu       sync.Mutex // For safe deallocation
}

// newStorage creates a new reference-counted block with refCount = 1.
func newStorage(size int) *storage {
	s := &storage{
		data: make([]byte, size),
	}
	s.refCount.Store(1)
	return s
}

func (s *storage) addRef() {
	s.refCount.Add(1)
}

// release decrements the reference count and frees the block at zero.
func (s *storage) release() {
	if s.refCount.Add(-1) == 0 {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.data = nil
	}
}

// Buffer is an owned, contiguous memory block tagged with its Descriptor.
// It replaces raw data pointers: every access goes through the descriptor's
// layout, and typed views are checked against the descriptor's data type.
type Buffer struct {
	storage *storage
	desc    Descriptor
}

// NewBuffer allocates a zeroed buffer for desc.
func NewBuffer(desc Descriptor) (*Buffer, error) {
	if desc.IsZero() {
		return nil, &InvalidShapeError{Axis: -1, Reason: "zero descriptor"}
	}
	return &Buffer{
		storage: newStorage(desc.ByteSize()),
		desc:    desc,
	}, nil
}

// Descriptor returns the buffer's descriptor.
func (b *Buffer) Descriptor() Descriptor { return b.desc }

// DType returns the buffer's element type.
func (b *Buffer) DType() DataType { return b.desc.dtype }

// NumElements returns the total number of elements.
func (b *Buffer) NumElements() int { return b.desc.NumElements() }

// ByteSize returns the total memory size in bytes.
func (b *Buffer) ByteSize() int { return b.desc.ByteSize() }

// Data returns the raw byte slice.
// WARNING: Direct access to underlying memory. Use with caution.
func (b *Buffer) Data() []byte {
	return b.storage.data
}

// AsInt8 interprets the data as []int8.
// Panics if the buffer's dtype is not Int8.
func (b *Buffer) AsInt8() []int8 { return view[int8](b) }

// AsUint8 interprets the data as []uint8.
// Panics if the buffer's dtype is not Uint8.
func (b *Buffer) AsUint8() []uint8 { return view[uint8](b) }

// AsInt32 interprets the data as []int32.
// Panics if the buffer's dtype is not Int32.
func (b *Buffer) AsInt32() []int32 { return view[int32](b) }

// AsFloat32 interprets the data as []float32.
// Panics if the buffer's dtype is not Float32.
func (b *Buffer) AsFloat32() []float32 { return view[float32](b) }

// View returns the data as []T. Panics if T does not match the buffer's dtype.
func View[T Element](b *Buffer) []T { return view[T](b) }

func view[T Element](b *Buffer) []T {
	want := dataTypeOf[T]()
	if b.desc.dtype != want {
		panic(fmt.Sprintf("buffer dtype is %s, not %s", b.desc.dtype, want))
	}
	data := b.storage.data
	if data == nil {
		panic("buffer used after release")
	}
	//nolint:gosec // unsafe.Slice for zero-copy views, bounds checked by NumElements()
	return unsafe.Slice((*T)(unsafe.Pointer(&data[0])), b.desc.NumElements())
}

// At returns the value at logical position (n, c, h, w) as float64.
// Every supported element type converts exactly.
func (b *Buffer) At(n, c, h, w int) float64 {
	return b.Load(b.desc.Offset(n, c, h, w))
}

// Set stores v at logical position (n, c, h, w), saturating it to the
// buffer's type. Integer types truncate any fractional part.
func (b *Buffer) Set(n, c, h, w int, v float64) {
	b.Store(b.desc.Offset(n, c, h, w), v)
}

// Load returns the element at storage index i as float64.
func (b *Buffer) Load(i int) float64 {
	switch b.desc.dtype {
	case Int8:
		return float64(b.AsInt8()[i])
	case Uint8:
		return float64(b.AsUint8()[i])
	case Int32:
		return float64(b.AsInt32()[i])
	case Float32:
		return float64(b.AsFloat32()[i])
	default:
		panic(fmt.Sprintf("load: unsupported dtype %s", b.desc.dtype))
	}
}

// Store writes v at storage index i, saturating it to the buffer's type.
// Panics if the buffer is sealed.
func (b *Buffer) Store(i int, v float64) {
	if b.Sealed() {
		panic("store into sealed buffer")
	}
	v = b.desc.dtype.Saturate(v)
	switch b.desc.dtype {
	case Int8:
		b.AsInt8()[i] = int8(v)
	case Uint8:
		b.AsUint8()[i] = uint8(v)
	case Int32:
		b.AsInt32()[i] = int32(v)
	case Float32:
		b.AsFloat32()[i] = float32(v)
	default:
		panic(fmt.Sprintf("store: unsupported dtype %s", b.desc.dtype))
	}
}

// Seal marks the underlying storage read-only. Engines refuse to write into
// a sealed destination; Store panics.
func (b *Buffer) Seal() { b.storage.sealed.Store(true) }

// Sealed reports whether the storage has been sealed.
func (b *Buffer) Sealed() bool { return b.storage.sealed.Load() }

// Retain returns a new handle sharing the same storage.
// The storage is freed once every handle has been released.
func (b *Buffer) Retain() *Buffer {
	b.storage.addRef()
	return &Buffer{storage: b.storage, desc: b.desc}
}

// Release drops this handle's reference to the storage.
func (b *Buffer) Release() {
	b.storage.release()
}

// Released reports whether the storage has been freed.
func (b *Buffer) Released() bool {
	b.storage.mu.Lock()
	defer b.storage.mu.Unlock()
	return b.storage.data == nil
}

// IsUnique returns true if this handle is the only reference to the storage.
func (b *Buffer) IsUnique() bool {
	return b.storage.refCount.Load() == 1
}

// SameStorage reports whether two handles share the same memory block.
func (b *Buffer) SameStorage(o *Buffer) bool {
	return b.storage == o.storage
}
