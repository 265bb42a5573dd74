package exr

import (
	"fmt"
	"iter"
	"unsafe"
)

// PixelStruct describes how an aggregate pixel type decomposes into an
// ordered sequence of channels. Implementations report, for each index
// i in [0, ChannelCount), the scalar type tag and the byte offset of
// the i-th channel within one aggregate value.
//
// The reported offsets must match the type's actual in-memory layout
// exactly: a decoder writes through raw pointers computed from them, so
// a wrong offset is a memory-safety bug, not just a logic bug. The
// implementations in this package derive offsets with unsafe.Offsetof
// and cannot get this wrong; implement the interface on your own types
// only if you can give the same guarantee.
//
// Methods must be callable on the zero value.
type PixelStruct interface {
	// ChannelCount returns the number of channels in the aggregate.
	ChannelCount() int

	// Channel returns the type and byte offset of channel i.
	// Panics when i is outside [0, ChannelCount); that is a programmer
	// error, not a recoverable condition.
	Channel(i int) (PixelType, uintptr)
}

// Channels returns an iterator over the (type, offset) pairs of P's
// channels, in order. The sequence is finite and can be ranged over
// any number of times.
func Channels[P PixelStruct]() iter.Seq2[PixelType, uintptr] {
	var p P
	return func(yield func(PixelType, uintptr) bool) {
		for i := 0; i < p.ChannelCount(); i++ {
			t, off := p.Channel(i)
			if !yield(t, off) {
				return
			}
		}
	}
}

func badChannelIndex(i, n int) string {
	return fmt.Sprintf("exr: channel index %d out of range for %d-channel pixel", i, n)
}

// Pixel2 is a two-channel aggregate with per-channel scalar types.
// Field order is channel order.
type Pixel2[A, B ChannelData] struct {
	A A
	B B
}

func (Pixel2[A, B]) ChannelCount() int { return 2 }

func (p Pixel2[A, B]) Channel(i int) (PixelType, uintptr) {
	switch i {
	case 0:
		return TypeOf[A](), unsafe.Offsetof(p.A)
	case 1:
		return TypeOf[B](), unsafe.Offsetof(p.B)
	default:
		panic(badChannelIndex(i, 2))
	}
}

// Pixel3 is a three-channel aggregate with per-channel scalar types.
type Pixel3[A, B, C ChannelData] struct {
	A A
	B B
	C C
}

func (Pixel3[A, B, C]) ChannelCount() int { return 3 }

func (p Pixel3[A, B, C]) Channel(i int) (PixelType, uintptr) {
	switch i {
	case 0:
		return TypeOf[A](), unsafe.Offsetof(p.A)
	case 1:
		return TypeOf[B](), unsafe.Offsetof(p.B)
	case 2:
		return TypeOf[C](), unsafe.Offsetof(p.C)
	default:
		panic(badChannelIndex(i, 3))
	}
}

// Pixel4 is a four-channel aggregate with per-channel scalar types.
type Pixel4[A, B, C, D ChannelData] struct {
	A A
	B B
	C C
	D D
}

func (Pixel4[A, B, C, D]) ChannelCount() int { return 4 }

func (p Pixel4[A, B, C, D]) Channel(i int) (PixelType, uintptr) {
	switch i {
	case 0:
		return TypeOf[A](), unsafe.Offsetof(p.A)
	case 1:
		return TypeOf[B](), unsafe.Offsetof(p.B)
	case 2:
		return TypeOf[C](), unsafe.Offsetof(p.C)
	case 3:
		return TypeOf[D](), unsafe.Offsetof(p.D)
	default:
		panic(badChannelIndex(i, 4))
	}
}

// Array1 through Array4 are homogeneous fixed-size aggregates. Element
// order is channel order; element i sits at offset i*sizeof(T).

type Array1[T ChannelData] [1]T

func (Array1[T]) ChannelCount() int { return 1 }

func (a Array1[T]) Channel(i int) (PixelType, uintptr) {
	if i != 0 {
		panic(badChannelIndex(i, 1))
	}
	return TypeOf[T](), 0
}

type Array2[T ChannelData] [2]T

func (Array2[T]) ChannelCount() int { return 2 }

func (a Array2[T]) Channel(i int) (PixelType, uintptr) {
	if i < 0 || i >= 2 {
		panic(badChannelIndex(i, 2))
	}
	return TypeOf[T](), uintptr(i) * unsafe.Sizeof(a[0])
}

type Array3[T ChannelData] [3]T

func (Array3[T]) ChannelCount() int { return 3 }

func (a Array3[T]) Channel(i int) (PixelType, uintptr) {
	if i < 0 || i >= 3 {
		panic(badChannelIndex(i, 3))
	}
	return TypeOf[T](), uintptr(i) * unsafe.Sizeof(a[0])
}

type Array4[T ChannelData] [4]T

func (Array4[T]) ChannelCount() int { return 4 }

func (a Array4[T]) Channel(i int) (PixelType, uintptr) {
	if i < 0 || i >= 4 {
		panic(badChannelIndex(i, 4))
	}
	return TypeOf[T](), uintptr(i) * unsafe.Sizeof(a[0])
}
