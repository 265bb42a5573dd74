package compress

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// zipCodec implements the ZIP and ZIPS chunk codecs: the shared
// split-and-delta transform followed by zlib. ZIPS packs one scanline
// per chunk, ZIP sixteen.
type zipCodec struct {
	id    uint8
	lines int
	level int
}

func (c zipCodec) ID() uint8          { return c.id }
func (c zipCodec) LinesPerChunk() int { return c.lines }

func (c zipCodec) Compress(src []byte) ([]byte, error) {
	level := c.level
	if level == 0 {
		level = DefaultZlibLevel
	}

	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("zlib writer: %w", err)
	}
	if _, err := zw.Write(preprocess(src)); err != nil {
		return nil, fmt.Errorf("zlib compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zlib compress: %w", err)
	}
	return buf.Bytes(), nil
}

func (c zipCodec) Decompress(src []byte, expectedSize int) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("zlib reader: %w", err)
	}
	defer zr.Close()

	out := make([]byte, expectedSize)
	if _, err := io.ReadFull(zr, out); err != nil {
		return nil, fmt.Errorf("zlib decompress: %w", err)
	}
	// Anything left over means the chunk does not match the header's
	// declared geometry.
	if n, _ := zr.Read(make([]byte, 1)); n != 0 {
		return nil, fmt.Errorf("zlib output exceeds expected %d bytes", expectedSize)
	}
	return postprocess(out), nil
}
