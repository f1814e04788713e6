// Package tensor provides the tensor descriptor, layout and buffer types
// shared by every stage of the fused convolution pipeline.
package tensor

import "math"

// Element is a constraint for the Go types a Buffer can be viewed as.
type Element interface {
	~int8 | ~uint8 | ~int32 | ~float32
}

// Quantized is a constraint for the narrow integer types convolution operands use.
type Quantized interface {
	~int8 | ~uint8
}

// DataType represents runtime type information for tensors.
type DataType int

// Supported data types for tensors.
const (
	Undefined DataType = iota
	Int8
	Uint8
	Int32
	Float32
)

// Size returns the byte size of the data type.
func (dt DataType) Size() int {
	switch dt {
	case Int8, Uint8:
		return 1
	case Int32, Float32:
		return 4
	default:
		panic("unknown data type")
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Int8:
		return "s8"
	case Uint8:
		return "u8"
	case Int32:
		return "s32"
	case Float32:
		return "f32"
	default:
		return "undef"
	}
}

// Valid reports whether dt is one of the supported data types.
func (dt DataType) Valid() bool {
	return dt >= Int8 && dt <= Float32
}

// IsInteger reports whether values of dt are stored as integers.
func (dt DataType) IsInteger() bool {
	return dt == Int8 || dt == Uint8 || dt == Int32
}

// Bounds returns the representable range of the data type. Values written
// to a buffer of this type are clamped to it.
func (dt DataType) Bounds() (lo, hi float64) {
	switch dt {
	case Int8:
		return math.MinInt8, math.MaxInt8
	case Uint8:
		return 0, math.MaxUint8
	case Int32:
		return math.MinInt32, math.MaxInt32
	case Float32:
		return -math.MaxFloat32, math.MaxFloat32
	default:
		panic("unknown data type")
	}
}

// Saturate clamps v to the representable range of dt.
func (dt DataType) Saturate(v float64) float64 {
	lo, hi := dt.Bounds()
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}

// ParseDataType parses the short names produced by DataType.String.
func ParseDataType(s string) (DataType, bool) {
	switch s {
	case "s8", "int8":
		return Int8, true
	case "u8", "uint8":
		return Uint8, true
	case "s32", "int32":
		return Int32, true
	case "f32", "float32":
		return Float32, true
	default:
		return Undefined, false
	}
}

// dataTypeOf infers DataType from a generic type T.
func dataTypeOf[T Element]() DataType {
	var dummy T
	switch any(dummy).(type) {
	case int8:
		return Int8
	case uint8:
		return Uint8
	case int32:
		return Int32
	case float32:
		return Float32
	default:
		panic("unsupported type")
	}
}
