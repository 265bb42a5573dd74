// Package compress implements OpenEXR chunk codecs.
//
// A codec transforms the raw little-endian pixel data of one chunk
// (a fixed number of scanlines) to and from its packed on-disk form.
// Chunk framing and the store-raw-when-not-smaller rule are handled by
// the caller.
package compress

import "fmt"

// Compression method identifiers as stored in the header's
// compression attribute.
const (
	None  uint8 = 0
	RLE   uint8 = 1
	ZIPS  uint8 = 2
	ZIP   uint8 = 3
	PIZ   uint8 = 4
	PXR24 uint8 = 5
	B44   uint8 = 6
	B44A  uint8 = 7
	DWAA  uint8 = 8
	DWAB  uint8 = 9
)

// DefaultZlibLevel is used when the caller does not configure one.
const DefaultZlibLevel = 6

// Codec is the interface implemented by all chunk codecs.
type Codec interface {
	// ID returns the compression method identifier.
	ID() uint8

	// LinesPerChunk returns how many scanlines one chunk covers.
	LinesPerChunk() int

	// Compress packs one chunk of raw pixel data.
	Compress(src []byte) ([]byte, error)

	// Decompress unpacks one chunk. expectedSize is the raw size the
	// chunk must decode to; a result of any other size is corrupt.
	Decompress(src []byte, expectedSize int) ([]byte, error)
}

// Registry maps compression identifiers to codec constructors. The
// level argument is the zlib level for ZIP-family codecs and ignored
// by the rest.
var Registry = map[uint8]func(level int) Codec{
	None: func(int) Codec { return noneCodec{} },
	RLE:  func(int) Codec { return rleCodec{} },
	ZIPS: func(level int) Codec { return zipCodec{id: ZIPS, lines: 1, level: level} },
	ZIP:  func(level int) Codec { return zipCodec{id: ZIP, lines: 16, level: level} },
}

// methodNames maps known method IDs to their names for better error
// messages.
var methodNames = map[uint8]string{
	None:  "none",
	RLE:   "rle",
	ZIPS:  "zips",
	ZIP:   "zip",
	PIZ:   "piz",
	PXR24: "pxr24",
	B44:   "b44",
	B44A:  "b44a",
	DWAA:  "dwaa",
	DWAB:  "dwab",
}

// Name returns the conventional name of a compression method, or a
// numeric placeholder for unknown values.
func Name(id uint8) string {
	if n, ok := methodNames[id]; ok {
		return n
	}
	return fmt.Sprintf("compression(%d)", id)
}

// New creates the codec for a compression method identifier.
func New(id uint8, level int) (Codec, error) {
	constructor, ok := Registry[id]
	if !ok {
		if n, known := methodNames[id]; known {
			return nil, fmt.Errorf("%s compression is not supported", n)
		}
		return nil, fmt.Errorf("unknown compression method: %d", id)
	}
	return constructor(level), nil
}

// noneCodec stores chunks verbatim, one scanline per chunk.
type noneCodec struct{}

func (noneCodec) ID() uint8          { return None }
func (noneCodec) LinesPerChunk() int { return 1 }

func (noneCodec) Compress(src []byte) ([]byte, error) {
	return src, nil
}

func (noneCodec) Decompress(src []byte, expectedSize int) ([]byte, error) {
	if len(src) != expectedSize {
		return nil, fmt.Errorf("uncompressed chunk is %d bytes, want %d", len(src), expectedSize)
	}
	return src, nil
}
