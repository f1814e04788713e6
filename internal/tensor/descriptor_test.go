package tensor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDescriptor_Valid(t *testing.T) {
	d, err := NewDescriptor(Shape{1, 16, 4, 4}, ChannelLast, Uint8)
	require.NoError(t, err)

	assert.Equal(t, 1, d.N())
	assert.Equal(t, 16, d.C())
	assert.Equal(t, 4, d.H())
	assert.Equal(t, 4, d.W())
	assert.Equal(t, 256, d.NumElements())
	assert.Equal(t, 256, d.ByteSize())
	assert.Equal(t, "1x16x4x4:nhwc:u8", d.String())
}

func TestNewDescriptor_ByteSizeUsesElementWidth(t *testing.T) {
	d := MustDescriptor(Shape{2, 3, 4, 5}, ChannelFirst, Int32)
	assert.Equal(t, 120, d.NumElements())
	assert.Equal(t, 480, d.ByteSize())
}

func TestDescriptor_AxisAccessors(t *testing.T) {
	d := MustDescriptor(Shape{2, 32, 5, 7}, BlockedChannel, Int8)
	assert.Equal(t, 2, d.N())
	assert.Equal(t, 32, d.C())
	assert.Equal(t, 5, d.H())
	assert.Equal(t, 7, d.W())
}

func TestNewDescriptor_InvalidShape(t *testing.T) {
	tests := []struct {
		name string
		dims Shape
		axis int
	}{
		{"zero batch", Shape{0, 16, 4, 4}, 0},
		{"negative width", Shape{1, 16, 4, -1}, 3},
		{"rank 3", Shape{16, 4, 4}, -1},
		{"rank 5", Shape{1, 1, 16, 4, 4}, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDescriptor(tt.dims, ChannelFirst, Int8)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidShape))

			var shapeErr *InvalidShapeError
			require.ErrorAs(t, err, &shapeErr)
			assert.Equal(t, tt.axis, shapeErr.Axis)
		})
	}
}

func TestNewDescriptor_BlockedNeedsFullBlocks(t *testing.T) {
	_, err := NewDescriptor(Shape{1, 8, 4, 4}, BlockedChannel, Uint8)
	require.ErrorIs(t, err, ErrInvalidShape)

	_, err = NewDescriptor(Shape{1, 32, 4, 4}, BlockedChannel, Uint8)
	require.NoError(t, err)
}

func TestNewDescriptor_RejectsUnknownTags(t *testing.T) {
	_, err := NewDescriptor(Shape{1, 1, 1, 1}, LayoutUndefined, Uint8)
	require.ErrorIs(t, err, ErrInvalidShape)

	_, err = NewDescriptor(Shape{1, 1, 1, 1}, ChannelFirst, Undefined)
	require.ErrorIs(t, err, ErrInvalidShape)
}

func TestDescriptor_IsImmutable(t *testing.T) {
	dims := Shape{1, 2, 3, 4}
	d := MustDescriptor(dims, ChannelFirst, Int8)

	dims[0] = 99
	got := d.Dims()
	got[1] = 99

	assert.Equal(t, Shape{1, 2, 3, 4}, d.Dims())
}

func TestDescriptor_OffsetPerLayout(t *testing.T) {
	dims := Shape{2, 32, 3, 5}

	nchw := MustDescriptor(dims, ChannelFirst, Uint8)
	nhwc := MustDescriptor(dims, ChannelLast, Uint8)
	blocked := MustDescriptor(dims, BlockedChannel, Uint8)

	// (n=1, c=17, h=2, w=3)
	assert.Equal(t, ((1*32+17)*3+2)*5+3, nchw.Offset(1, 17, 2, 3))
	assert.Equal(t, ((1*3+2)*5+3)*32+17, nhwc.Offset(1, 17, 2, 3))
	assert.Equal(t, (((1*2+1)*3+2)*5+3)*16+1, blocked.Offset(1, 17, 2, 3))
}

func TestDescriptor_OffsetIsBijective(t *testing.T) {
	for _, layout := range []Layout{ChannelFirst, ChannelLast, BlockedChannel} {
		d := MustDescriptor(Shape{2, 16, 3, 2}, layout, Int8)
		seen := make([]bool, d.NumElements())
		for n := 0; n < d.N(); n++ {
			for c := 0; c < d.C(); c++ {
				for h := 0; h < d.H(); h++ {
					for w := 0; w < d.W(); w++ {
						i := d.Offset(n, c, h, w)
						require.False(t, seen[i], "%s: offset %d hit twice", layout, i)
						seen[i] = true
					}
				}
			}
		}
	}
}

func TestDescriptor_OffsetOutOfRangePanics(t *testing.T) {
	d := MustDescriptor(Shape{1, 2, 2, 2}, ChannelFirst, Int8)
	assert.Panics(t, func() { d.Offset(0, 2, 0, 0) })
	assert.Panics(t, func() { d.Offset(0, 0, -1, 0) })
}

func TestDescriptor_Strides(t *testing.T) {
	dims := Shape{1, 32, 4, 4}
	assert.Equal(t, []int{512, 16, 4, 1}, MustDescriptor(dims, ChannelFirst, Int8).Strides())
	assert.Equal(t, []int{512, 128, 32, 1}, MustDescriptor(dims, ChannelLast, Int8).Strides())
	assert.Equal(t, []int{512, 256, 64, 16, 1}, MustDescriptor(dims, BlockedChannel, Int8).Strides())
}

func TestDataType_SizeAndBounds(t *testing.T) {
	assert.Equal(t, 1, Int8.Size())
	assert.Equal(t, 1, Uint8.Size())
	assert.Equal(t, 4, Int32.Size())
	assert.Equal(t, 4, Float32.Size())

	assert.Equal(t, float64(127), Int8.Saturate(1000))
	assert.Equal(t, float64(-128), Int8.Saturate(-1000))
	assert.Equal(t, float64(0), Uint8.Saturate(-5))
	assert.Equal(t, float64(255), Uint8.Saturate(300))
	assert.Equal(t, float64(42), Int32.Saturate(42))
}

func TestParseTags(t *testing.T) {
	for _, dt := range []DataType{Int8, Uint8, Int32, Float32} {
		got, ok := ParseDataType(dt.String())
		assert.True(t, ok)
		assert.Equal(t, dt, got)
	}
	for _, l := range []Layout{ChannelFirst, ChannelLast, BlockedChannel} {
		got, ok := ParseLayout(l.String())
		assert.True(t, ok)
		assert.Equal(t, l, got)
	}
	_, ok := ParseLayout("nchw8c")
	assert.False(t, ok)
}
