package exr

import (
	"bytes"
	stdbinary "encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/robert-malhotra/go-exr/internal/binary"
	"github.com/robert-malhotra/go-exr/internal/compress"
)

// Box2i is an inclusive integer rectangle, as used by the data and
// display windows.
type Box2i struct {
	MinX, MinY int32
	MaxX, MaxY int32
}

// Width returns the number of columns covered by the box.
func (b Box2i) Width() int { return int(b.MaxX) - int(b.MinX) + 1 }

// Height returns the number of rows covered by the box.
func (b Box2i) Height() int { return int(b.MaxY) - int(b.MinY) + 1 }

func (b Box2i) String() string {
	return fmt.Sprintf("(%d, %d)-(%d, %d)", b.MinX, b.MinY, b.MaxX, b.MaxY)
}

// V2f is a 2-component float vector.
type V2f struct {
	X, Y float32
}

// LineOrder describes the order in which scanline chunks appear in the
// file.
type LineOrder uint8

const (
	IncreasingY LineOrder = 0
	DecreasingY LineOrder = 1
	RandomY     LineOrder = 2
)

func (lo LineOrder) String() string {
	switch lo {
	case IncreasingY:
		return "increasing y"
	case DecreasingY:
		return "decreasing y"
	case RandomY:
		return "random y"
	}
	return fmt.Sprintf("lineOrder(%d)", uint8(lo))
}

// Compression identifies the chunk compression method.
type Compression uint8

const (
	CompressionNone  Compression = Compression(compress.None)
	CompressionRLE   Compression = Compression(compress.RLE)
	CompressionZIPS  Compression = Compression(compress.ZIPS)
	CompressionZIP   Compression = Compression(compress.ZIP)
	CompressionPIZ   Compression = Compression(compress.PIZ)
	CompressionPXR24 Compression = Compression(compress.PXR24)
	CompressionB44   Compression = Compression(compress.B44)
	CompressionB44A  Compression = Compression(compress.B44A)
	CompressionDWAA  Compression = Compression(compress.DWAA)
	CompressionDWAB  Compression = Compression(compress.DWAB)
)

func (c Compression) String() string { return compress.Name(uint8(c)) }

// Channel describes one channel of an image.
type Channel struct {
	Name string
	Type PixelType

	// PLinear is a hint for lossy codecs and does not affect decoding.
	PLinear bool

	// XSampling and YSampling describe how sparsely the channel is
	// sampled relative to the data window. A channel stores data only
	// for rows and columns whose window-relative coordinate is an even
	// multiple of the sampling rate.
	XSampling int32
	YSampling int32
}

// ChannelList is a set of channels. The on-disk format requires
// channels sorted by name; the list keeps itself sorted.
type ChannelList struct {
	channels []Channel
}

// Len returns the number of channels.
func (cl *ChannelList) Len() int { return len(cl.channels) }

// At returns the i-th channel in name order.
func (cl *ChannelList) At(i int) Channel { return cl.channels[i] }

// Get looks a channel up by name.
func (cl *ChannelList) Get(name string) (Channel, bool) {
	for _, ch := range cl.channels {
		if ch.Name == name {
			return ch, true
		}
	}
	return Channel{}, false
}

// Add inserts a channel, replacing any existing channel of the same
// name. Zero sampling rates are normalized to 1.
func (cl *ChannelList) Add(ch Channel) {
	if ch.XSampling <= 0 {
		ch.XSampling = 1
	}
	if ch.YSampling <= 0 {
		ch.YSampling = 1
	}
	for i, existing := range cl.channels {
		if existing.Name == ch.Name {
			cl.channels[i] = ch
			return
		}
	}
	cl.channels = append(cl.channels, ch)
	sort.Slice(cl.channels, func(i, j int) bool {
		return cl.channels[i].Name < cl.channels[j].Name
	})
}

// Names returns the channel names in sorted order.
func (cl *ChannelList) Names() []string {
	names := make([]string, len(cl.channels))
	for i, ch := range cl.channels {
		names[i] = ch.Name
	}
	return names
}

// Attribute names and type names used by the required header
// attributes.
const (
	attrChannels           = "channels"
	attrCompression        = "compression"
	attrDataWindow         = "dataWindow"
	attrDisplayWindow      = "displayWindow"
	attrLineOrder          = "lineOrder"
	attrPixelAspectRatio   = "pixelAspectRatio"
	attrScreenWindowCenter = "screenWindowCenter"
	attrScreenWindowWidth  = "screenWindowWidth"

	typeChlist      = "chlist"
	typeCompression = "compression"
	typeBox2i       = "box2i"
	typeLineOrder   = "lineOrder"
	typeFloat       = "float"
	typeV2f         = "v2f"
)

// maxNameLen bounds attribute and channel names, matching the limit
// of current OpenEXR implementations.
const maxNameLen = 255

// Attribute holds a header attribute the library does not interpret.
// The value is kept as raw bytes so unknown attributes survive a
// read/write round trip.
type Attribute struct {
	Name     string
	TypeName string
	Value    []byte
}

// Header holds the metadata of one scanline image.
type Header struct {
	DataWindow         Box2i
	DisplayWindow      Box2i
	Channels           ChannelList
	Compression        Compression
	LineOrder          LineOrder
	PixelAspectRatio   float32
	ScreenWindowCenter V2f
	ScreenWindowWidth  float32

	// extra preserves attributes beyond the required set, keyed by
	// name.
	extra map[string]Attribute
}

// NewHeader creates a header for a width x height image with the
// defaults of the reference implementation: ZIP compression,
// increasing line order, and data and display windows anchored at the
// origin.
func NewHeader(width, height int) *Header {
	if width <= 0 || height <= 0 || width > MaxImageDimension || height > MaxImageDimension {
		panic(fmt.Sprintf("exr: invalid image dimensions %dx%d", width, height))
	}
	win := Box2i{MaxX: int32(width) - 1, MaxY: int32(height) - 1}
	return &Header{
		DataWindow:        win,
		DisplayWindow:     win,
		Compression:       CompressionZIP,
		LineOrder:         IncreasingY,
		PixelAspectRatio:  1,
		ScreenWindowWidth: 1,
	}
}

// SetAttribute stores an uninterpreted attribute. It cannot be used to
// override the required attributes; those are set through the header's
// fields.
func (h *Header) SetAttribute(a Attribute) {
	if h.extra == nil {
		h.extra = make(map[string]Attribute)
	}
	h.extra[a.Name] = a
}

// Attribute returns a stored uninterpreted attribute by name.
func (h *Header) Attribute(name string) (Attribute, bool) {
	a, ok := h.extra[name]
	return a, ok
}

// AttributeNames returns the names of all uninterpreted attributes in
// sorted order.
func (h *Header) AttributeNames() []string {
	names := make([]string, 0, len(h.extra))
	for name := range h.extra {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// validate checks the required attributes before encoding or after
// decoding a header.
func (h *Header) validate() error {
	w, ht := h.DataWindow.Width(), h.DataWindow.Height()
	if w <= 0 || ht <= 0 {
		return fmt.Errorf("data window %s is empty: %w", h.DataWindow, ErrOutOfRange)
	}
	if w > MaxImageDimension || ht > MaxImageDimension {
		return fmt.Errorf("data window %s exceeds %d pixels per side: %w",
			h.DataWindow, MaxImageDimension, ErrOutOfRange)
	}
	if h.Channels.Len() == 0 {
		return fmt.Errorf("header has no channels: %w", ErrBadChannel)
	}
	for _, ch := range h.Channels.channels {
		if ch.Type.Size() == 0 {
			return fmt.Errorf("channel %q has invalid pixel type %d: %w",
				ch.Name, int32(ch.Type), ErrBadChannel)
		}
		if ch.Name == "" || len(ch.Name) > maxNameLen {
			return fmt.Errorf("invalid channel name %q: %w", ch.Name, ErrBadChannel)
		}
	}
	if h.LineOrder > RandomY {
		return fmt.Errorf("invalid line order %d: %w", uint8(h.LineOrder), ErrUnsupported)
	}
	return nil
}

// readHeader decodes the attribute sequence that follows the version
// field. The sequence ends with an empty attribute name.
func readHeader(r *binary.Reader) (*Header, error) {
	h := &Header{}
	seen := make(map[string]bool)

	for {
		name, err := r.ReadString(maxNameLen)
		if err != nil {
			return nil, fmt.Errorf("attribute name: %w", err)
		}
		if name == "" {
			break
		}
		typeName, err := r.ReadString(maxNameLen)
		if err != nil {
			return nil, fmt.Errorf("attribute %q type: %w", name, err)
		}
		size, err := r.ReadInt32()
		if err != nil {
			return nil, fmt.Errorf("attribute %q size: %w", name, err)
		}
		if size < 0 || size > 1<<26 {
			return nil, fmt.Errorf("attribute %q has invalid size %d", name, size)
		}
		value, err := r.ReadBytes(int(size))
		if err != nil {
			return nil, fmt.Errorf("attribute %q value: %w", name, err)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate attribute %q", name)
		}
		seen[name] = true

		if err := h.decodeAttribute(name, typeName, value); err != nil {
			return nil, err
		}
	}

	for _, name := range []string{
		attrChannels, attrCompression, attrDataWindow, attrDisplayWindow,
		attrLineOrder, attrPixelAspectRatio, attrScreenWindowCenter,
		attrScreenWindowWidth,
	} {
		if !seen[name] {
			return nil, fmt.Errorf("required attribute %q: %w", name, ErrMissingAttr)
		}
	}
	if err := h.validate(); err != nil {
		return nil, err
	}
	return h, nil
}

// requiredAttrTypes maps the required attribute names to the type
// names they must carry. A required attribute with any other type name
// is a corrupt header, not an extra attribute.
var requiredAttrTypes = map[string]string{
	attrChannels:           typeChlist,
	attrCompression:        typeCompression,
	attrDataWindow:         typeBox2i,
	attrDisplayWindow:      typeBox2i,
	attrLineOrder:          typeLineOrder,
	attrPixelAspectRatio:   typeFloat,
	attrScreenWindowCenter: typeV2f,
	attrScreenWindowWidth:  typeFloat,
}

func (h *Header) decodeAttribute(name, typeName string, value []byte) error {
	if want, required := requiredAttrTypes[name]; required && typeName != want {
		return fmt.Errorf("attribute %q has type %q, want %q", name, typeName, want)
	}

	vr := binary.NewReader(bytes.NewReader(value))
	switch name {
	case attrChannels:
		return h.decodeChannels(vr, len(value))
	case attrCompression:
		v, err := vr.ReadUint8()
		if err != nil {
			return fmt.Errorf("compression attribute: %w", err)
		}
		h.Compression = Compression(v)
	case attrDataWindow:
		return decodeBox2i(vr, &h.DataWindow)
	case attrDisplayWindow:
		return decodeBox2i(vr, &h.DisplayWindow)
	case attrLineOrder:
		v, err := vr.ReadUint8()
		if err != nil {
			return fmt.Errorf("lineOrder attribute: %w", err)
		}
		h.LineOrder = LineOrder(v)
	case attrPixelAspectRatio:
		v, err := vr.ReadFloat32()
		if err != nil {
			return fmt.Errorf("pixelAspectRatio attribute: %w", err)
		}
		h.PixelAspectRatio = v
	case attrScreenWindowCenter:
		x, err := vr.ReadFloat32()
		if err == nil {
			h.ScreenWindowCenter.X = x
			h.ScreenWindowCenter.Y, err = vr.ReadFloat32()
		}
		if err != nil {
			return fmt.Errorf("screenWindowCenter attribute: %w", err)
		}
	case attrScreenWindowWidth:
		v, err := vr.ReadFloat32()
		if err != nil {
			return fmt.Errorf("screenWindowWidth attribute: %w", err)
		}
		h.ScreenWindowWidth = v
	default:
		h.SetAttribute(Attribute{Name: name, TypeName: typeName, Value: value})
	}
	return nil
}

func decodeBox2i(r *binary.Reader, b *Box2i) error {
	for _, p := range []*int32{&b.MinX, &b.MinY, &b.MaxX, &b.MaxY} {
		v, err := r.ReadInt32()
		if err != nil {
			return fmt.Errorf("box2i attribute: %w", err)
		}
		*p = v
	}
	return nil
}

// decodeChannels parses a chlist value: a sequence of channel entries
// terminated by an empty name.
func (h *Header) decodeChannels(r *binary.Reader, size int) error {
	for {
		if r.Pos() >= int64(size) {
			return fmt.Errorf("channel list is not terminated: %w", ErrTruncated)
		}
		name, err := r.ReadString(maxNameLen)
		if err != nil {
			return fmt.Errorf("channel name: %w", err)
		}
		if name == "" {
			return nil
		}
		var ch Channel
		ch.Name = name

		pixelType, err := r.ReadInt32()
		if err != nil {
			return fmt.Errorf("channel %q type: %w", name, err)
		}
		ch.Type = PixelType(pixelType)
		if ch.Type.Size() == 0 {
			return fmt.Errorf("channel %q has invalid pixel type %d: %w",
				name, pixelType, ErrBadChannel)
		}

		pLinear, err := r.ReadUint8()
		if err != nil {
			return fmt.Errorf("channel %q flags: %w", name, err)
		}
		ch.PLinear = pLinear != 0
		r.Skip(3) // reserved

		if ch.XSampling, err = r.ReadInt32(); err != nil {
			return fmt.Errorf("channel %q x sampling: %w", name, err)
		}
		if ch.YSampling, err = r.ReadInt32(); err != nil {
			return fmt.Errorf("channel %q y sampling: %w", name, err)
		}
		if ch.XSampling <= 0 || ch.YSampling <= 0 {
			return fmt.Errorf("channel %q has invalid sampling %dx%d: %w",
				name, ch.XSampling, ch.YSampling, ErrBadChannel)
		}
		h.Channels.Add(ch)
	}
}

// writeTo encodes the header's attribute sequence, required attributes
// first in name order, then any uninterpreted extras, then the
// terminating null byte.
func (h *Header) writeTo(w *binary.Writer) error {
	if err := h.validate(); err != nil {
		return err
	}

	if err := h.writeChannels(w); err != nil {
		return err
	}
	if err := writeAttr(w, attrCompression, typeCompression, []byte{byte(h.Compression)}); err != nil {
		return err
	}
	if err := writeAttr(w, attrDataWindow, typeBox2i, encodeBox2i(h.DataWindow)); err != nil {
		return err
	}
	if err := writeAttr(w, attrDisplayWindow, typeBox2i, encodeBox2i(h.DisplayWindow)); err != nil {
		return err
	}
	if err := writeAttr(w, attrLineOrder, typeLineOrder, []byte{byte(h.LineOrder)}); err != nil {
		return err
	}
	if err := writeAttr(w, attrPixelAspectRatio, typeFloat, encodeFloat32(h.PixelAspectRatio)); err != nil {
		return err
	}
	center := append(encodeFloat32(h.ScreenWindowCenter.X), encodeFloat32(h.ScreenWindowCenter.Y)...)
	if err := writeAttr(w, attrScreenWindowCenter, typeV2f, center); err != nil {
		return err
	}
	if err := writeAttr(w, attrScreenWindowWidth, typeFloat, encodeFloat32(h.ScreenWindowWidth)); err != nil {
		return err
	}
	for _, name := range h.AttributeNames() {
		a := h.extra[name]
		if err := writeAttr(w, a.Name, a.TypeName, a.Value); err != nil {
			return err
		}
	}
	if err := w.WriteUint8(0); err != nil {
		return fmt.Errorf("header terminator: %w", err)
	}
	return nil
}

func (h *Header) writeChannels(w *binary.Writer) error {
	var buf bytes.Buffer
	for _, ch := range h.Channels.channels {
		buf.WriteString(ch.Name)
		buf.WriteByte(0)
		buf.Write(encodeInt32(int32(ch.Type)))
		if ch.PLinear {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
		buf.Write([]byte{0, 0, 0}) // reserved
		buf.Write(encodeInt32(ch.XSampling))
		buf.Write(encodeInt32(ch.YSampling))
	}
	buf.WriteByte(0)
	return writeAttr(w, attrChannels, typeChlist, buf.Bytes())
}

func encodeInt32(v int32) []byte {
	buf := make([]byte, 4)
	stdbinary.LittleEndian.PutUint32(buf, uint32(v))
	return buf
}

func encodeFloat32(v float32) []byte {
	buf := make([]byte, 4)
	stdbinary.LittleEndian.PutUint32(buf, math.Float32bits(v))
	return buf
}

func encodeBox2i(b Box2i) []byte {
	buf := make([]byte, 0, 16)
	for _, v := range []int32{b.MinX, b.MinY, b.MaxX, b.MaxY} {
		buf = append(buf, encodeInt32(v)...)
	}
	return buf
}

func writeAttr(w *binary.Writer, name, typeName string, value []byte) error {
	if err := w.WriteString(name); err != nil {
		return fmt.Errorf("attribute %q: %w", name, err)
	}
	if err := w.WriteString(typeName); err != nil {
		return fmt.Errorf("attribute %q: %w", name, err)
	}
	if err := w.WriteInt32(int32(len(value))); err != nil {
		return fmt.Errorf("attribute %q: %w", name, err)
	}
	if err := w.WriteBytes(value); err != nil {
		return fmt.Errorf("attribute %q: %w", name, err)
	}
	return nil
}
