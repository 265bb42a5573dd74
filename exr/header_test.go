package exr

import (
	"errors"
	"testing"
)

func TestNewHeaderDefaults(t *testing.T) {
	h := NewHeader(64, 32)

	want := Box2i{MinX: 0, MinY: 0, MaxX: 63, MaxY: 31}
	if h.DataWindow != want {
		t.Errorf("DataWindow = %v, want %v", h.DataWindow, want)
	}
	if h.DisplayWindow != want {
		t.Errorf("DisplayWindow = %v, want %v", h.DisplayWindow, want)
	}
	if h.Compression != CompressionZIP {
		t.Errorf("Compression = %v, want zip", h.Compression)
	}
	if h.LineOrder != IncreasingY {
		t.Errorf("LineOrder = %v, want increasing y", h.LineOrder)
	}
	if h.PixelAspectRatio != 1 {
		t.Errorf("PixelAspectRatio = %v, want 1", h.PixelAspectRatio)
	}
	if h.ScreenWindowWidth != 1 {
		t.Errorf("ScreenWindowWidth = %v, want 1", h.ScreenWindowWidth)
	}
	if h.ScreenWindowCenter != (V2f{}) {
		t.Errorf("ScreenWindowCenter = %v, want origin", h.ScreenWindowCenter)
	}
}

func TestNewHeaderInvalidPanics(t *testing.T) {
	for _, dims := range [][2]int{{0, 10}, {10, 0}, {-3, 4}, {MaxImageDimension + 1, 1}} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("NewHeader(%d, %d) did not panic", dims[0], dims[1])
				}
			}()
			NewHeader(dims[0], dims[1])
		}()
	}
}

func TestBox2iDimensions(t *testing.T) {
	b := Box2i{MinX: -10, MinY: 5, MaxX: 9, MaxY: 14}
	if b.Width() != 20 {
		t.Errorf("Width() = %d, want 20", b.Width())
	}
	if b.Height() != 10 {
		t.Errorf("Height() = %d, want 10", b.Height())
	}
}

func TestChannelListSortedAndReplace(t *testing.T) {
	var cl ChannelList
	cl.Add(Channel{Name: "Z", Type: PixelTypeFloat})
	cl.Add(Channel{Name: "A", Type: PixelTypeHalf})
	cl.Add(Channel{Name: "R", Type: PixelTypeHalf})

	want := []string{"A", "R", "Z"}
	got := cl.Names()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Names() = %v, want %v", got, want)
		}
	}

	cl.Add(Channel{Name: "R", Type: PixelTypeUint})
	if cl.Len() != 3 {
		t.Fatalf("Len() = %d after replace, want 3", cl.Len())
	}
	ch, ok := cl.Get("R")
	if !ok || ch.Type != PixelTypeUint {
		t.Errorf("Get(R) = (%v, %v), want replaced uint channel", ch, ok)
	}
}

func TestChannelListNormalizesSampling(t *testing.T) {
	var cl ChannelList
	cl.Add(Channel{Name: "Y", Type: PixelTypeHalf})
	ch, _ := cl.Get("Y")
	if ch.XSampling != 1 || ch.YSampling != 1 {
		t.Errorf("sampling = (%d, %d), want (1, 1)", ch.XSampling, ch.YSampling)
	}
}

func TestHeaderValidate(t *testing.T) {
	h := NewHeader(4, 4)
	if err := h.validate(); !errors.Is(err, ErrBadChannel) {
		t.Errorf("validate with no channels = %v, want ErrBadChannel", err)
	}

	h.Channels.Add(Channel{Name: "R", Type: PixelTypeHalf})
	if err := h.validate(); err != nil {
		t.Errorf("validate = %v, want nil", err)
	}

	h.DataWindow.MaxX = h.DataWindow.MinX - 1
	if err := h.validate(); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("validate with empty window = %v, want ErrOutOfRange", err)
	}
}

func TestHeaderExtraAttributes(t *testing.T) {
	h := NewHeader(4, 4)
	h.SetAttribute(Attribute{Name: "owner", TypeName: "string", Value: []byte("test")})
	h.SetAttribute(Attribute{Name: "comments", TypeName: "string", Value: []byte("hi")})

	names := h.AttributeNames()
	if len(names) != 2 || names[0] != "comments" || names[1] != "owner" {
		t.Errorf("AttributeNames() = %v, want [comments owner]", names)
	}
	a, ok := h.Attribute("owner")
	if !ok || string(a.Value) != "test" {
		t.Errorf("Attribute(owner) = (%v, %v)", a, ok)
	}
	if _, ok := h.Attribute("missing"); ok {
		t.Error("Attribute(missing) should not exist")
	}
}

func TestDecodeAttributeRejectsWrongType(t *testing.T) {
	tests := []struct {
		name     string
		typeName string
		value    []byte
	}{
		{"dataWindow", "box2f", make([]byte, 16)},
		{"displayWindow", "v2i", make([]byte, 16)},
		{"compression", "int", []byte{0, 0, 0, 0}},
		{"channels", "string", []byte{0}},
		{"lineOrder", "compression", []byte{0}},
		{"pixelAspectRatio", "double", make([]byte, 8)},
		{"screenWindowCenter", "box2i", make([]byte, 16)},
		{"screenWindowWidth", "v2f", make([]byte, 8)},
	}
	for _, tt := range tests {
		var h Header
		if err := h.decodeAttribute(tt.name, tt.typeName, tt.value); err == nil {
			t.Errorf("%s typed %q was accepted", tt.name, tt.typeName)
		}
	}

	// The same names with their proper types still decode.
	var h Header
	if err := h.decodeAttribute("dataWindow", "box2i", make([]byte, 16)); err != nil {
		t.Errorf("well-typed dataWindow rejected: %v", err)
	}
	// Non-required attributes keep any type name.
	if err := h.decodeAttribute("owner", "box2f", []byte{1, 2}); err != nil {
		t.Errorf("extra attribute rejected: %v", err)
	}
}

func TestChunkGeometry(t *testing.T) {
	h := NewHeader(10, 33)
	h.Channels.Add(Channel{Name: "G", Type: PixelTypeHalf})
	h.Channels.Add(Channel{Name: "id", Type: PixelTypeUint})

	// 10 half values plus 10 uint values per line.
	if got := scanlineSize(h, 0); got != 10*2+10*4 {
		t.Errorf("scanlineSize = %d, want 60", got)
	}
	if got := chunkCount(h, 16); got != 3 {
		t.Errorf("chunkCount = %d, want 3", got)
	}
	// The last ZIP chunk covers a single line.
	if got := chunkRawSize(h, 32, 16); got != 60 {
		t.Errorf("chunkRawSize(last) = %d, want 60", got)
	}
	if got := chunkRawSize(h, 0, 16); got != 16*60 {
		t.Errorf("chunkRawSize(first) = %d, want %d", got, 16*60)
	}
}

func TestSubsampledGeometry(t *testing.T) {
	h := NewHeader(9, 8)
	h.Channels.Add(Channel{Name: "Y", Type: PixelTypeHalf})
	h.Channels.Add(Channel{Name: "BY", Type: PixelTypeHalf, XSampling: 2, YSampling: 2})

	by, _ := h.Channels.Get("BY")
	if got := sampledWidth(by, 9); got != 5 {
		t.Errorf("sampledWidth = %d, want 5", got)
	}
	if !samplesLine(by, 0) || samplesLine(by, 1) || !samplesLine(by, 2) {
		t.Error("samplesLine wrong for 2x subsampling")
	}
	// Even line: 9 Y halves + 5 BY halves. Odd line: Y only.
	if got := scanlineSize(h, 0); got != 9*2+5*2 {
		t.Errorf("even scanlineSize = %d, want 28", got)
	}
	if got := scanlineSize(h, 1); got != 9*2 {
		t.Errorf("odd scanlineSize = %d, want 18", got)
	}
}
