package compress

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"
)

func TestNewKnownCodecs(t *testing.T) {
	tests := []struct {
		id    uint8
		lines int
	}{
		{None, 1},
		{RLE, 1},
		{ZIPS, 1},
		{ZIP, 16},
	}
	for _, tt := range tests {
		c, err := New(tt.id, 0)
		if err != nil {
			t.Fatalf("New(%d): %v", tt.id, err)
		}
		if c.ID() != tt.id {
			t.Errorf("ID() = %d, want %d", c.ID(), tt.id)
		}
		if c.LinesPerChunk() != tt.lines {
			t.Errorf("LinesPerChunk() = %d, want %d", c.LinesPerChunk(), tt.lines)
		}
	}
}

func TestNewUnsupported(t *testing.T) {
	_, err := New(PIZ, 0)
	if err == nil {
		t.Fatal("expected error for piz compression")
	}
	if !strings.Contains(err.Error(), "piz") {
		t.Errorf("error should name the method: %v", err)
	}

	_, err = New(200, 0)
	if err == nil {
		t.Fatal("expected error for unknown method")
	}
}

func TestPreprocessRoundTrip(t *testing.T) {
	cases := [][]byte{
		nil,
		{0},
		{1, 2},
		{10, 20, 30},
		{0, 255, 0, 255, 7},
	}
	rng := rand.New(rand.NewSource(1))
	long := make([]byte, 1000)
	rng.Read(long)
	cases = append(cases, long)

	for _, src := range cases {
		got := postprocess(preprocess(src))
		if !bytes.Equal(got, src) {
			t.Errorf("postprocess(preprocess(%v)) = %v", src, got)
		}
	}
}

func TestCodecRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	inputs := [][]byte{
		bytes.Repeat([]byte{0}, 512),
		bytes.Repeat([]byte{1, 2, 3}, 100),
		func() []byte {
			b := make([]byte, 2048)
			rng.Read(b)
			return b
		}(),
		{42},
	}

	for _, id := range []uint8{None, RLE, ZIPS, ZIP} {
		c, err := New(id, 0)
		if err != nil {
			t.Fatal(err)
		}
		for _, src := range inputs {
			packed, err := c.Compress(src)
			if err != nil {
				t.Fatalf("%s: Compress: %v", Name(id), err)
			}
			got, err := c.Decompress(packed, len(src))
			if err != nil {
				t.Fatalf("%s: Decompress: %v", Name(id), err)
			}
			if !bytes.Equal(got, src) {
				t.Errorf("%s: round trip mismatch (%d bytes)", Name(id), len(src))
			}
		}
	}
}

func TestRLECompressesRuns(t *testing.T) {
	c, _ := New(RLE, 0)
	src := bytes.Repeat([]byte{0x80}, 1024)
	packed, err := c.Compress(src)
	if err != nil {
		t.Fatal(err)
	}
	if len(packed) >= len(src) {
		t.Errorf("constant input did not shrink: %d >= %d", len(packed), len(src))
	}
}

func TestDecompressBadInput(t *testing.T) {
	rle, _ := New(RLE, 0)
	if _, err := rle.Decompress([]byte{-5 & 0xff}, 5); err == nil {
		t.Error("truncated literal run should fail")
	}
	if _, err := rle.Decompress([]byte{3}, 10); err == nil {
		t.Error("repeat run without value byte should fail")
	}

	zip, _ := New(ZIP, 0)
	if _, err := zip.Decompress([]byte{1, 2, 3}, 10); err == nil {
		t.Error("garbage zlib stream should fail")
	}

	none, _ := New(None, 0)
	if _, err := none.Decompress([]byte{1, 2}, 3); err == nil {
		t.Error("size mismatch should fail")
	}
}
