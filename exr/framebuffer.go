package exr

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"unsafe"

	"github.com/ajroetker/go-highway/hwy"
)

// Slice describes where and how one channel's values live in caller
// memory. It is the record the decode/encode engine walks: for a pixel
// at (column x, row y) of the data window, the value sits at
// Base + (y/YSampling)*YStride + (x/XSampling)*XStride.
//
// Base is a live pointer into the backing slice, so a Slice keeps that
// memory reachable for as long as it is itself reachable.
type Slice struct {
	// Type is the scalar storage type at each address.
	Type PixelType

	// Base points at the channel's value for the first pixel of the
	// data window.
	Base unsafe.Pointer

	// XStride and YStride are byte distances between horizontally and
	// vertically adjacent values.
	XStride int
	YStride int

	// XSampling and YSampling are subsampling factors; (1,1) means the
	// channel is stored for every pixel.
	XSampling int
	YSampling int

	// FillValue is written to this channel on read when the source
	// image does not contain it.
	FillValue float64

	// XTileCoords and YTileCoords switch the corresponding coordinate
	// to tile-relative addressing. They are carried for the engine's
	// benefit and are always false for bindings made by InsertChannel
	// and InsertPixels.
	XTileCoords bool
	YTileCoords bool
}

// addr returns the address of the value at sampled row r, sampled
// column c. All bounds checks happen at registration time; by
// construction r and c stay inside the backing slice.
func (s *Slice) addr(r, c int) unsafe.Pointer {
	return unsafe.Add(s.Base, r*s.YStride+c*s.XStride)
}

// storeRow copies n values for sampled row r out of little-endian wire
// bytes.
func (s *Slice) storeRow(r int, src []byte, n int) {
	switch s.Type {
	case PixelTypeHalf:
		for c := 0; c < n; c++ {
			*(*Half)(s.addr(r, c)) = Half(binary.LittleEndian.Uint16(src[c*2:]))
		}
	case PixelTypeFloat:
		for c := 0; c < n; c++ {
			*(*float32)(s.addr(r, c)) = math.Float32frombits(binary.LittleEndian.Uint32(src[c*4:]))
		}
	case PixelTypeUint:
		for c := 0; c < n; c++ {
			*(*uint32)(s.addr(r, c)) = binary.LittleEndian.Uint32(src[c*4:])
		}
	}
}

// loadRow copies n values for sampled row r into little-endian wire
// bytes.
func (s *Slice) loadRow(r int, dst []byte, n int) {
	switch s.Type {
	case PixelTypeHalf:
		for c := 0; c < n; c++ {
			binary.LittleEndian.PutUint16(dst[c*2:], uint16(*(*Half)(s.addr(r, c))))
		}
	case PixelTypeFloat:
		for c := 0; c < n; c++ {
			binary.LittleEndian.PutUint32(dst[c*4:], math.Float32bits(*(*float32)(s.addr(r, c))))
		}
	case PixelTypeUint:
		for c := 0; c < n; c++ {
			binary.LittleEndian.PutUint32(dst[c*4:], *(*uint32)(s.addr(r, c)))
		}
	}
}

// fill writes the slice's FillValue to every value of a rows-by-cols
// raster. The read path uses it for registered channels the source
// image lacks.
func (s *Slice) fill(rows, cols int) {
	switch s.Type {
	case PixelTypeHalf:
		v := hwy.NewFloat16FromFloat64(s.FillValue)
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				*(*Half)(s.addr(r, c)) = v
			}
		}
	case PixelTypeFloat:
		v := float32(s.FillValue)
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				*(*float32)(s.addr(r, c)) = v
			}
		}
	case PixelTypeUint:
		v := uint32(s.FillValue)
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				*(*uint32)(s.addr(r, c)) = v
			}
		}
	}
}

// FrameBuffer accumulates named channel bindings over caller-owned
// memory for one read or write call. Width and height are fixed at
// construction and every backing slice is validated against them
// before a binding is made.
//
// A FrameBuffer borrows the backing slice of every binding: it must
// not outlive them, and the slices must not be reallocated while a
// read or write call is using the frame buffer. Close drops the
// bindings; a closed frame buffer cannot be used again.
//
// A FrameBuffer is not safe for concurrent mutation.
type FrameBuffer struct {
	width  int
	height int
	slices map[string]*Slice
	closed bool
}

// NewFrameBuffer returns an empty frame buffer for a width-by-height
// pixel raster. Panics if either dimension is negative.
func NewFrameBuffer(width, height int) *FrameBuffer {
	if width < 0 || height < 0 {
		panic(fmt.Sprintf("exr: invalid frame buffer dimensions %dx%d", width, height))
	}
	return &FrameBuffer{
		width:  width,
		height: height,
		slices: make(map[string]*Slice),
	}
}

// Dimensions returns the width and height the frame buffer was
// constructed with.
func (fb *FrameBuffer) Dimensions() (width, height int) {
	return fb.width, fb.height
}

// Len returns the number of channel bindings.
func (fb *FrameBuffer) Len() int {
	return len(fb.slices)
}

// Names returns the bound channel names in sorted order.
func (fb *FrameBuffer) Names() []string {
	names := make([]string, 0, len(fb.slices))
	for name := range fb.slices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the binding for a channel, or nil if the channel is not
// bound.
func (fb *FrameBuffer) Get(name string) *Slice {
	return fb.slices[name]
}

// Close releases all bindings, ending the frame buffer's borrow of the
// backing slices. It is safe to call more than once; only the first
// call has an effect. After Close the frame buffer cannot accept new
// bindings or be handed to a read or write call.
func (fb *FrameBuffer) Close() error {
	if fb.closed {
		return nil
	}
	fb.closed = true
	fb.slices = nil
	return nil
}

// insert is the single point where a binding enters the frame buffer.
// Callers have already validated the backing slice length, so the
// pointer arithmetic the engine later performs through the Slice is in
// bounds by construction. A binding with a duplicate name replaces the
// earlier one.
func (fb *FrameBuffer) insert(name string, s Slice) {
	if fb.closed {
		panic("exr: insert on closed frame buffer")
	}
	fb.slices[name] = &s
}

func (fb *FrameBuffer) checkBacking(n int) {
	if n != fb.width*fb.height {
		panic(fmt.Sprintf("exr: data size of %d elements cannot back %dx%d frame buffer",
			n, fb.width, fb.height))
	}
}

// InsertChannel binds one named channel to a slice of scalars. The
// slice must hold exactly width*height elements, one per pixel in row
// major order; any other length panics, since a decoder writing
// through the binding could otherwise leave the slice's bounds.
//
// fill is used on read when the source image lacks the channel.
func InsertChannel[T ChannelData](fb *FrameBuffer, name string, fill float64, data []T) {
	fb.checkBacking(len(data))
	size := int(unsafe.Sizeof(*new(T)))
	fb.insert(name, Slice{
		Type:      TypeOf[T](),
		Base:      unsafe.Pointer(unsafe.SliceData(data)),
		XStride:   size,
		YStride:   fb.width * size,
		XSampling: 1,
		YSampling: 1,
		FillValue: fill,
	})
}

// ChannelFill names a channel and the fill value it gets when a source
// image lacks it.
type ChannelFill struct {
	Name string
	Fill float64
}

// InsertPixels binds several channels at once over a slice of
// aggregate pixel values. The slice must hold exactly width*height
// aggregates; any other length panics. Channel names are paired
// positionally with the aggregate's channels: channels[i] binds to the
// offset and type of P's channel i.
//
// When len(channels) differs from P's channel count, only the shorter
// length's worth of bindings is made. This mirrors the flexible-arity
// behavior of the interface this package descends from; pass exactly
// ChannelCount entries to bind every channel.
//
// A zero-area frame buffer has no pixels, so no bindings are made.
func InsertPixels[P PixelStruct](fb *FrameBuffer, channels []ChannelFill, data []P) {
	fb.checkBacking(len(data))
	if len(data) == 0 {
		// A zero-area raster has no pixels to bind and no base
		// address to offset the channels from.
		return
	}
	var p P
	n := p.ChannelCount()
	if len(channels) < n {
		n = len(channels)
	}
	size := int(unsafe.Sizeof(p))
	base := unsafe.Pointer(unsafe.SliceData(data))
	for i := 0; i < n; i++ {
		t, off := p.Channel(i)
		fb.insert(channels[i].Name, Slice{
			Type:      t,
			Base:      unsafe.Add(base, off),
			XStride:   size,
			YStride:   fb.width * size,
			XSampling: 1,
			YSampling: 1,
			FillValue: channels[i].Fill,
		})
	}
}
