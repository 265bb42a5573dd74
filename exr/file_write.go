package exr

import (
	"fmt"
	"io"
	"os"

	"github.com/robert-malhotra/go-exr/internal/binary"
	"github.com/robert-malhotra/go-exr/internal/compress"
)

// OutputFile writes one scanline image: the header up front, then the
// pixel chunks, then the line offset table is patched in on Close.
type OutputFile struct {
	w       *binary.Writer
	file    *os.File
	header  *Header
	codec   compress.Codec
	offsets []uint64

	// tablePos is where the line offset table lives; chunk offsets are
	// written there once all chunks exist.
	tablePos int64

	written bool
	closed  bool
}

// Create creates an EXR file at path and writes the header. The header
// is copied by reference and must not change until Close.
func Create(path string, header *Header) (*OutputFile, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create exr file: %w", err)
	}
	out, err := NewWriter(f, header)
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	out.file = f
	return out, nil
}

// NewWriter writes the header of an EXR image to w and prepares for
// WritePixels. Use NewWriterSeeker when only an io.WriteSeeker is
// available.
func NewWriter(w io.WriterAt, header *Header) (*OutputFile, error) {
	codec, err := compress.New(uint8(header.Compression), 0)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrUnsupported)
	}
	if err := header.validate(); err != nil {
		return nil, err
	}

	bw := binary.NewWriter(w)
	if err := bw.WriteInt32(magicNumber); err != nil {
		return nil, fmt.Errorf("magic number: %w", err)
	}
	version := int32(currentVersion)
	if hasLongNames(header) {
		version |= longNamesFlag
	}
	if err := bw.WriteInt32(version); err != nil {
		return nil, fmt.Errorf("version field: %w", err)
	}
	if err := header.writeTo(bw); err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}

	out := &OutputFile{
		w:        bw,
		header:   header,
		codec:    codec,
		offsets:  make([]uint64, chunkCount(header, codec.LinesPerChunk())),
		tablePos: bw.Pos(),
	}
	if err := bw.WriteZeros(8 * len(out.offsets)); err != nil {
		return nil, fmt.Errorf("line offset table: %w", err)
	}
	return out, nil
}

// NewWriterSeeker is NewWriter for destinations that can seek but not
// write at arbitrary offsets.
func NewWriterSeeker(ws io.WriteSeeker, header *Header) (*OutputFile, error) {
	return NewWriter(binary.NewSeekableWriterAt(ws), header)
}

// Header returns the header being written.
func (f *OutputFile) Header() *Header { return f.header }

// WritePixels encodes the whole image from the frame buffer's
// bindings. Header channels with no binding are written as zeros;
// bindings for channels the header does not declare are ignored. The
// frame buffer's dimensions must match the data window.
//
// WritePixels may be called once per file.
func (f *OutputFile) WritePixels(fb *FrameBuffer) error {
	if f.closed {
		return fmt.Errorf("write pixels: %w", ErrClosed)
	}
	if f.written {
		return fmt.Errorf("write pixels: image already written")
	}
	if err := checkBindings(f.header, fb); err != nil {
		return err
	}

	lines := f.codec.LinesPerChunk()
	dw := f.header.DataWindow

	for i := range f.offsets {
		// Decreasing line order stores the bottom chunk first. Each
		// chunk carries its own start line, so the offset table simply
		// follows file order.
		chunk := i
		if f.header.LineOrder == DecreasingY {
			chunk = len(f.offsets) - 1 - i
		}
		firstY := int(dw.MinY) + chunk*lines
		raw := f.loadChunk(fb, firstY, lines)

		packed, err := f.codec.Compress(raw)
		if err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}
		// Store the chunk raw unless compression made it strictly
		// smaller; readers rely on the size to tell the two apart.
		if len(packed) >= len(raw) {
			packed = raw
		}

		f.offsets[i] = uint64(f.w.Pos())
		if err := f.w.WriteInt32(int32(firstY)); err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}
		if err := f.w.WriteInt32(int32(len(packed))); err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}
		if err := f.w.WriteBytes(packed); err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}
	}
	f.written = true
	return nil
}

// loadChunk assembles the unpacked bytes of one chunk from the frame
// buffer, scanline by scanline with channels in name order. Channels
// without a binding contribute zeros.
func (f *OutputFile) loadChunk(fb *FrameBuffer, firstY, lines int) []byte {
	dw := f.header.DataWindow
	raw := make([]byte, chunkRawSize(f.header, firstY, lines))

	off := 0
	for y := firstY; y < firstY+lines && y <= int(dw.MaxY); y++ {
		for i := 0; i < f.header.Channels.Len(); i++ {
			ch := f.header.Channels.At(i)
			if !samplesLine(ch, y-int(dw.MinY)) {
				continue
			}
			n := sampledWidth(ch, dw.Width())
			nb := n * int(ch.Type.Size())
			if s := fb.Get(ch.Name); s != nil {
				s.loadRow((y-int(dw.MinY))/int(ch.YSampling), raw[off:off+nb], n)
			}
			off += nb
		}
	}
	return raw
}

// Close patches the line offset table and closes the file. Closing
// before WritePixels leaves an incomplete file and returns an error.
func (f *OutputFile) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true

	var err error
	if f.written {
		tw := f.w.At(f.tablePos)
		for _, offset := range f.offsets {
			if werr := tw.WriteUint64(offset); werr != nil {
				err = fmt.Errorf("line offset table: %w", werr)
				break
			}
		}
	} else {
		err = fmt.Errorf("close: no pixels were written")
	}

	if f.file != nil {
		if cerr := f.file.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// hasLongNames reports whether any attribute or channel name exceeds
// the 31-character limit of the original format, which readers are
// told about through a version flag.
func hasLongNames(h *Header) bool {
	const shortNameLen = 31
	for _, name := range h.Channels.Names() {
		if len(name) > shortNameLen {
			return true
		}
	}
	for _, name := range h.AttributeNames() {
		a := h.extra[name]
		if len(a.Name) > shortNameLen || len(a.TypeName) > shortNameLen {
			return true
		}
	}
	return false
}
