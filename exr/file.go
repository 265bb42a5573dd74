package exr

import (
	"fmt"
	"io"
	"os"

	"github.com/robert-malhotra/go-exr/internal/binary"
	"github.com/robert-malhotra/go-exr/internal/compress"
)

// File format constants.
const (
	// magicNumber identifies an EXR file; it is the first little-endian
	// int32 of every file.
	magicNumber = 20000630

	// Version field layout: the low byte is the format version, the
	// rest is a bit field.
	versionMask       = 0xff
	currentVersion    = 2
	tiledFlag         = 0x200
	longNamesFlag     = 0x400
	deepDataFlag      = 0x800
	multipartFlag     = 0x1000
	knownVersionFlags = tiledFlag | longNamesFlag | deepDataFlag | multipartFlag
)

// InputFile reads one scanline image.
type InputFile struct {
	r       *binary.Reader
	file    *os.File
	header  *Header
	codec   compress.Codec
	offsets []uint64
	closed  bool
}

// Open opens an EXR file for reading and parses its header and line
// offset table.
func Open(path string) (*InputFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open exr file: %w", err)
	}
	in, err := OpenReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	in.file = f
	return in, nil
}

// OpenReader parses the header and line offset table of an EXR image
// from r. The reader must remain valid until Close.
func OpenReader(r io.ReaderAt) (*InputFile, error) {
	br := binary.NewReader(r)

	magic, err := br.ReadInt32()
	if err != nil {
		return nil, fmt.Errorf("magic number: %w", err)
	}
	if magic != magicNumber {
		return nil, fmt.Errorf("magic number 0x%08x: %w", uint32(magic), ErrNotEXR)
	}

	version, err := br.ReadInt32()
	if err != nil {
		return nil, fmt.Errorf("version field: %w", err)
	}
	if version&versionMask != currentVersion {
		return nil, fmt.Errorf("format version %d: %w", version&versionMask, ErrUnsupported)
	}
	switch {
	case version&tiledFlag != 0:
		return nil, fmt.Errorf("tiled images: %w", ErrUnsupported)
	case version&deepDataFlag != 0:
		return nil, fmt.Errorf("deep data: %w", ErrUnsupported)
	case version&multipartFlag != 0:
		return nil, fmt.Errorf("multi-part files: %w", ErrUnsupported)
	case version&^(versionMask|knownVersionFlags) != 0:
		return nil, fmt.Errorf("version flags 0x%x: %w", version&^versionMask, ErrUnsupported)
	}

	header, err := readHeader(br)
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}

	codec, err := compress.New(uint8(header.Compression), 0)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrUnsupported)
	}

	chunks := chunkCount(header, codec.LinesPerChunk())
	offsets := make([]uint64, chunks)
	for i := range offsets {
		if offsets[i], err = br.ReadUint64(); err != nil {
			return nil, fmt.Errorf("line offset table: %w", err)
		}
	}

	return &InputFile{r: br, header: header, codec: codec, offsets: offsets}, nil
}

// Header returns the parsed header. The caller must not modify it.
func (f *InputFile) Header() *Header { return f.header }

// Close releases the file. Reading after Close fails with ErrClosed.
func (f *InputFile) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	if f.file != nil {
		return f.file.Close()
	}
	return nil
}

// ReadPixels decodes every chunk of the image through the frame
// buffer's bindings. Channels in the file with no binding are skipped;
// bound channels absent from the file are filled with their binding's
// fill value. The frame buffer's dimensions must match the data
// window.
func (f *InputFile) ReadPixels(fb *FrameBuffer) error {
	if f.closed {
		return fmt.Errorf("read pixels: %w", ErrClosed)
	}
	if err := checkBindings(f.header, fb); err != nil {
		return err
	}

	// Fill bound channels the file does not carry.
	for _, name := range fb.Names() {
		if _, ok := f.header.Channels.Get(name); !ok {
			fb.Get(name).fill(fb.height, fb.width)
		}
	}

	lines := f.codec.LinesPerChunk()
	dw := f.header.DataWindow

	for i, offset := range f.offsets {
		r := f.r.At(int64(offset))

		y, err := r.ReadInt32()
		if err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}
		if y < dw.MinY || y > dw.MaxY || (int(y)-int(dw.MinY))%lines != 0 {
			return fmt.Errorf("chunk %d has invalid start line %d", i, y)
		}
		packedSize, err := r.ReadInt32()
		if err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}
		rawSize := chunkRawSize(f.header, int(y), lines)
		if packedSize < 0 || int(packedSize) > rawSize {
			return fmt.Errorf("chunk %d has invalid packed size %d", i, packedSize)
		}
		packed, err := r.ReadBytes(int(packedSize))
		if err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}

		// Writers store a chunk raw when compression does not shrink
		// it, so only a strictly smaller chunk is packed.
		data := packed
		if int(packedSize) < rawSize {
			if data, err = f.codec.Decompress(packed, rawSize); err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
		}

		if err := f.storeChunk(fb, int(y), lines, data); err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}
	}
	return nil
}

// storeChunk distributes one unpacked chunk into the frame buffer. The
// chunk holds each of its scanlines in turn; within a scanline the
// channels appear in name order.
func (f *InputFile) storeChunk(fb *FrameBuffer, firstY, lines int, data []byte) error {
	dw := f.header.DataWindow
	lastY := firstY + lines - 1
	if lastY > int(dw.MaxY) {
		lastY = int(dw.MaxY)
	}

	off := 0
	for y := firstY; y <= lastY; y++ {
		for i := 0; i < f.header.Channels.Len(); i++ {
			ch := f.header.Channels.At(i)
			if !samplesLine(ch, y-int(dw.MinY)) {
				continue
			}
			n := sampledWidth(ch, dw.Width())
			nb := n * int(ch.Type.Size())
			if off+nb > len(data) {
				return fmt.Errorf("scanline %d channel %q: %w", y, ch.Name, ErrTruncated)
			}
			if s := fb.Get(ch.Name); s != nil {
				s.storeRow((y-int(dw.MinY))/int(ch.YSampling), data[off:off+nb], n)
			}
			off += nb
		}
	}
	return nil
}

// checkBindings validates a frame buffer against a header before a
// read or write call.
func checkBindings(h *Header, fb *FrameBuffer) error {
	if fb.closed {
		return fmt.Errorf("frame buffer: %w", ErrClosed)
	}
	if fb.width != h.DataWindow.Width() || fb.height != h.DataWindow.Height() {
		return fmt.Errorf("frame buffer is %dx%d but the data window is %dx%d: %w",
			fb.width, fb.height, h.DataWindow.Width(), h.DataWindow.Height(), ErrOutOfRange)
	}
	for _, name := range fb.Names() {
		ch, ok := h.Channels.Get(name)
		if !ok {
			continue
		}
		s := fb.Get(name)
		if s.Type != ch.Type {
			return fmt.Errorf("channel %q is %s but bound as %s: %w",
				name, ch.Type, s.Type, ErrBadChannel)
		}
		if s.XSampling != int(ch.XSampling) || s.YSampling != int(ch.YSampling) {
			return fmt.Errorf("channel %q is sampled %dx%d but bound %dx%d: %w",
				name, ch.XSampling, ch.YSampling, s.XSampling, s.YSampling, ErrBadChannel)
		}
		if s.XTileCoords || s.YTileCoords {
			return fmt.Errorf("channel %q uses tile coordinates: %w", name, ErrUnsupported)
		}
	}
	return nil
}

// samplesLine reports whether a channel stores data for the
// window-relative scanline dy.
func samplesLine(ch Channel, dy int) bool {
	return dy%int(ch.YSampling) == 0
}

// sampledWidth returns how many values the channel stores per sampled
// scanline of a width-column data window.
func sampledWidth(ch Channel, width int) int {
	return (width + int(ch.XSampling) - 1) / int(ch.XSampling)
}

// scanlineSize returns the unpacked byte size of window-relative
// scanline dy across all channels.
func scanlineSize(h *Header, dy int) int {
	size := 0
	for i := 0; i < h.Channels.Len(); i++ {
		ch := h.Channels.At(i)
		if samplesLine(ch, dy) {
			size += sampledWidth(ch, h.DataWindow.Width()) * int(ch.Type.Size())
		}
	}
	return size
}

// chunkRawSize returns the unpacked byte size of the chunk starting at
// absolute scanline firstY.
func chunkRawSize(h *Header, firstY, lines int) int {
	dw := h.DataWindow
	size := 0
	for y := firstY; y < firstY+lines && y <= int(dw.MaxY); y++ {
		size += scanlineSize(h, y-int(dw.MinY))
	}
	return size
}

// chunkCount returns how many chunks cover the data window.
func chunkCount(h *Header, lines int) int {
	return (h.DataWindow.Height() + lines - 1) / lines
}
