// Package exr provides a pure Go implementation for reading and writing
// scanline OpenEXR images.
package exr

import "errors"

// Common errors
var (
	ErrNotEXR      = errors.New("not an OpenEXR file")
	ErrUnsupported = errors.New("unsupported feature")
	ErrClosed      = errors.New("file is closed")
	ErrMissingAttr = errors.New("missing required attribute")
	ErrBadChannel  = errors.New("invalid channel description")
	ErrTruncated   = errors.New("truncated pixel data")
	ErrOutOfRange  = errors.New("image geometry out of range")
)

// MaxImageDimension bounds the data window on read. It prevents a
// corrupt header from driving huge allocations.
const MaxImageDimension = 65536
