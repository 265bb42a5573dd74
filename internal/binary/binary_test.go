package binary

import (
	"bytes"
	"errors"
	"testing"
)

// memWriterAt grows on demand so Writer tests need no real file.
type memWriterAt struct {
	buf []byte
}

func (m *memWriterAt) WriteAt(p []byte, off int64) (int, error) {
	end := int(off) + len(p)
	if end > len(m.buf) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}
	copy(m.buf[off:], p)
	return len(p), nil
}

func TestWriteReadRoundTrip(t *testing.T) {
	var mem memWriterAt
	w := NewWriter(&mem)

	if err := w.WriteUint8(0xab); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteUint16(0x1234); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteUint32(0xdeadbeef); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteUint64(0x0102030405060708); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteInt32(-42); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteFloat32(1.5); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteFloat64(-2.25); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteString("hello"); err != nil {
		t.Fatal(err)
	}
	wantPos := int64(1 + 2 + 4 + 8 + 4 + 4 + 8 + 6)
	if w.Pos() != wantPos {
		t.Fatalf("Pos() = %d, want %d", w.Pos(), wantPos)
	}

	r := NewReader(bytes.NewReader(mem.buf))
	if v, err := r.ReadUint8(); err != nil || v != 0xab {
		t.Errorf("ReadUint8 = (%#x, %v)", v, err)
	}
	if v, err := r.ReadUint16(); err != nil || v != 0x1234 {
		t.Errorf("ReadUint16 = (%#x, %v)", v, err)
	}
	if v, err := r.ReadUint32(); err != nil || v != 0xdeadbeef {
		t.Errorf("ReadUint32 = (%#x, %v)", v, err)
	}
	if v, err := r.ReadUint64(); err != nil || v != 0x0102030405060708 {
		t.Errorf("ReadUint64 = (%#x, %v)", v, err)
	}
	if v, err := r.ReadInt32(); err != nil || v != -42 {
		t.Errorf("ReadInt32 = (%d, %v)", v, err)
	}
	if v, err := r.ReadFloat32(); err != nil || v != 1.5 {
		t.Errorf("ReadFloat32 = (%v, %v)", v, err)
	}
	if v, err := r.ReadFloat64(); err != nil || v != -2.25 {
		t.Errorf("ReadFloat64 = (%v, %v)", v, err)
	}
	if s, err := r.ReadString(16); err != nil || s != "hello" {
		t.Errorf("ReadString = (%q, %v)", s, err)
	}
	if r.Pos() != wantPos {
		t.Errorf("reader Pos() = %d, want %d", r.Pos(), wantPos)
	}
}

func TestLittleEndianLayout(t *testing.T) {
	var mem memWriterAt
	w := NewWriter(&mem)
	if err := w.WriteUint32(0x04030201); err != nil {
		t.Fatal(err)
	}
	want := []byte{1, 2, 3, 4}
	if !bytes.Equal(mem.buf, want) {
		t.Errorf("bytes = %v, want %v", mem.buf, want)
	}
}

func TestAtIndependentPosition(t *testing.T) {
	src := bytes.NewReader([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	r := NewReader(src)
	r.Skip(2)

	r2 := r.At(6)
	if v, _ := r2.ReadUint8(); v != 7 {
		t.Errorf("At(6) read %d, want 7", v)
	}
	// The original position is unaffected.
	if v, _ := r.ReadUint8(); v != 3 {
		t.Errorf("original read %d, want 3", v)
	}
}

func TestWriterAtBackpatch(t *testing.T) {
	var mem memWriterAt
	w := NewWriter(&mem)
	if err := w.WriteZeros(8); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteUint32(0x11111111); err != nil {
		t.Fatal(err)
	}
	if err := w.At(0).WriteUint64(0x2222222222222222); err != nil {
		t.Fatal(err)
	}

	r := NewReader(bytes.NewReader(mem.buf))
	if v, _ := r.ReadUint64(); v != 0x2222222222222222 {
		t.Errorf("backpatched value = %#x", v)
	}
	if v, _ := r.ReadUint32(); v != 0x11111111 {
		t.Errorf("following value = %#x", v)
	}
}

func TestReadStringLimits(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte("abcdef\x00")))
	if _, err := r.ReadString(3); !errors.Is(err, ErrStringTooLong) {
		t.Errorf("err = %v, want ErrStringTooLong", err)
	}

	r = NewReader(bytes.NewReader([]byte("abc\x00")))
	if s, err := r.ReadString(3); err != nil || s != "abc" {
		t.Errorf("ReadString = (%q, %v)", s, err)
	}

	r = NewReader(bytes.NewReader([]byte{0}))
	if s, err := r.ReadString(10); err != nil || s != "" {
		t.Errorf("empty string = (%q, %v)", s, err)
	}
}

func TestReadPastEnd(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{1, 2}))
	if _, err := r.ReadUint32(); err == nil {
		t.Error("read past end should fail")
	}
	// A failed read does not advance the position.
	if r.Pos() != 0 {
		t.Errorf("Pos() = %d after failed read, want 0", r.Pos())
	}
}

func TestSeekableWriterAt(t *testing.T) {
	var buf writeSeekBuffer
	w := NewWriter(NewSeekableWriterAt(&buf))
	if err := w.WriteUint32(0xcafebabe); err != nil {
		t.Fatal(err)
	}
	if err := w.At(0).WriteUint8(0xff); err != nil {
		t.Fatal(err)
	}
	want := []byte{0xff, 0xba, 0xfe, 0xca}
	if !bytes.Equal(buf.buf, want) {
		t.Errorf("bytes = %v, want %v", buf.buf, want)
	}
}

// writeSeekBuffer is a minimal io.WriteSeeker.
type writeSeekBuffer struct {
	buf []byte
	pos int64
}

func (b *writeSeekBuffer) Write(p []byte) (int, error) {
	end := int(b.pos) + len(p)
	if end > len(b.buf) {
		grown := make([]byte, end)
		copy(grown, b.buf)
		b.buf = grown
	}
	copy(b.buf[b.pos:], p)
	b.pos += int64(len(p))
	return len(p), nil
}

func (b *writeSeekBuffer) Seek(offset int64, whence int) (int64, error) {
	b.pos = offset
	return b.pos, nil
}
