package exr

import (
	"fmt"

	"github.com/ajroetker/go-highway/hwy"
)

// Half is the 16-bit floating point storage type used by HALF channels.
// It is an IEEE 754 binary16 value; use hwy.NewFloat16 and the Float32
// method to convert.
type Half = hwy.Float16

// PixelType identifies how a channel's bytes are interpreted.
// The values match the on-disk encoding in the channel list.
type PixelType int32

const (
	PixelTypeUint  PixelType = 0 // 32-bit unsigned integer
	PixelTypeHalf  PixelType = 1 // 16-bit floating point
	PixelTypeFloat PixelType = 2 // 32-bit floating point
)

// Size returns the storage size of one value in bytes, or 0 if the
// type is not valid.
func (t PixelType) Size() int {
	switch t {
	case PixelTypeUint, PixelTypeFloat:
		return 4
	case PixelTypeHalf:
		return 2
	default:
		return 0
	}
}

// String returns the conventional name of the pixel type.
func (t PixelType) String() string {
	switch t {
	case PixelTypeUint:
		return "uint"
	case PixelTypeHalf:
		return "half"
	case PixelTypeFloat:
		return "float"
	default:
		return fmt.Sprintf("PixelType(%d)", int32(t))
	}
}

// ChannelData is the set of scalar storage types a channel value can
// have in memory. A decoder writes these directly, so the constraint is
// closed: exactly one PixelType tag exists per member.
type ChannelData interface {
	uint32 | float32 | Half
}

// TypeOf returns the PixelType tag for a scalar storage type.
// The mapping is total over ChannelData and fixed at compile time.
func TypeOf[T ChannelData]() PixelType {
	var v T
	switch any(v).(type) {
	case uint32:
		return PixelTypeUint
	case Half:
		return PixelTypeHalf
	default:
		return PixelTypeFloat
	}
}
