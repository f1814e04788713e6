package tensor

// Layout describes how the four logical axes of a tensor are ordered in
// memory. Logical indices are always (n, c, h, w); for weights read that as
// (o, i, kh, kw).
type Layout int

// Supported layouts.
const (
	LayoutUndefined Layout = iota
	ChannelFirst           // nchw / oihw
	ChannelLast            // nhwc / ohwi
	BlockedChannel         // nChw16c / OIhw16i
)

// ChannelBlock is the inner block width of BlockedChannel.
const ChannelBlock = 16

// String returns the oneDNN-style format tag for the layout.
func (l Layout) String() string {
	switch l {
	case ChannelFirst:
		return "nchw"
	case ChannelLast:
		return "nhwc"
	case BlockedChannel:
		return "nChw16c"
	default:
		return "undef"
	}
}

// Valid reports whether l is one of the supported layouts.
func (l Layout) Valid() bool {
	return l >= ChannelFirst && l <= BlockedChannel
}

// ParseLayout parses the format tags produced by Layout.String.
func ParseLayout(s string) (Layout, bool) {
	switch s {
	case "nchw", "oihw", "channel-first":
		return ChannelFirst, true
	case "nhwc", "ohwi", "channel-last":
		return ChannelLast, true
	case "nChw16c", "OIhw16i", "blocked":
		return BlockedChannel, true
	default:
		return LayoutUndefined, false
	}
}

// offset maps a logical index to an element index for the given shape.
func (l Layout) offset(s Shape, n, c, h, w int) int {
	C, H, W := s[1], s[2], s[3]
	switch l {
	case ChannelFirst:
		return ((n*C+c)*H+h)*W + w
	case ChannelLast:
		return ((n*H+h)*W+w)*C + c
	case BlockedChannel:
		outer := C / ChannelBlock
		return (((n*outer+c/ChannelBlock)*H+h)*W+w)*ChannelBlock + c%ChannelBlock
	default:
		panic("unknown layout")
	}
}

// storageShape returns the physical dimensions in storage-axis order.
func (l Layout) storageShape(s Shape) Shape {
	N, C, H, W := s[0], s[1], s[2], s[3]
	switch l {
	case ChannelFirst:
		return Shape{N, C, H, W}
	case ChannelLast:
		return Shape{N, H, W, C}
	case BlockedChannel:
		return Shape{N, C / ChannelBlock, H, W, ChannelBlock}
	default:
		panic("unknown layout")
	}
}
