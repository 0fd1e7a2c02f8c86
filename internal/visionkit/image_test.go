package visionkit

import "testing"

// ── Rect ─────────────────────────────────────────────────────────────────────

func TestRect_EmptyReportsNonPositiveSize(t *testing.T) {
	cases := []struct {
		r    Rect
		want bool
	}{
		{Rect{W: 10, H: 10}, false},
		{Rect{W: 0, H: 10}, true},
		{Rect{W: 10, H: 0}, true},
		{Rect{W: -1, H: 10}, true},
	}
	for _, c := range cases {
		if got := c.r.Empty(); got != c.want {
			t.Errorf("Rect%+v.Empty() = %v, want %v", c.r, got, c.want)
		}
	}
}

func TestRect_CenterRoundsDown(t *testing.T) {
	r := Rect{X: 0, Y: 0, W: 11, H: 11}
	x, y := r.Center()
	if x != 5 || y != 5 {
		t.Errorf("Center() = (%d,%d), want (5,5)", x, y)
	}
}

func TestRect_Contains(t *testing.T) {
	r := Rect{X: 10, Y: 10, W: 5, H: 5}
	if !r.Contains(12, 12) {
		t.Error("expected (12,12) inside rect")
	}
	if r.Contains(15, 15) {
		t.Error("expected (15,15) (the exclusive far corner) outside rect")
	}
	if r.Contains(9, 10) {
		t.Error("expected (9,10) outside rect")
	}
}

func TestRect_OffsetTranslatesAndResizes(t *testing.T) {
	base := Rect{X: 10, Y: 20, W: 30, H: 40}
	off := Rect{X: 1, Y: -1, W: 5, H: -5}
	got := base.Offset(off)
	want := Rect{X: 11, Y: 19, W: 35, H: 35}
	if got != want {
		t.Errorf("Offset() = %+v, want %+v", got, want)
	}
}

// ── Image construction ───────────────────────────────────────────────────────

func TestNewImage_RejectsMismatchedBufferLength(t *testing.T) {
	_, err := NewImage(2, 2, LayoutRGBA, make([]byte, 3))
	if err == nil {
		t.Fatal("expected error for undersized pixel buffer")
	}
}

func TestNewImage_AcceptsExactBufferLength(t *testing.T) {
	img, err := NewImage(2, 2, LayoutRGBA, make([]byte, 2*2*4))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img.Width != 2 || img.Height != 2 {
		t.Errorf("got %dx%d, want 2x2", img.Width, img.Height)
	}
}

func TestNewImage_CopiesInputBuffer(t *testing.T) {
	src := make([]byte, 1*1*4)
	src[0] = 0xAB
	img, err := NewImage(1, 1, LayoutRGBA, src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	src[0] = 0x00
	if img.Pix[0] != 0xAB {
		t.Error("NewImage must copy the input buffer, not alias it")
	}
}

// ── Clone ────────────────────────────────────────────────────────────────────

func TestImage_CloneIsIndependentOfOriginal(t *testing.T) {
	img, _ := NewImage(1, 1, LayoutRGBA, []byte{1, 2, 3, 4})
	clone := img.Clone()
	clone.Pix[0] = 99
	if img.Pix[0] == 99 {
		t.Error("mutating clone mutated the original's backing array")
	}
}

func TestImage_CloneOfNilIsNil(t *testing.T) {
	var img *Image
	if got := img.Clone(); got != nil {
		t.Errorf("Clone() of nil = %v, want nil", got)
	}
}

// ── Encode/Decode round trip ─────────────────────────────────────────────────

func solidImage(w, h int, r, g, b byte) *Image {
	pix := make([]byte, w*h*4)
	for i := 0; i < w*h; i++ {
		pix[i*4] = r
		pix[i*4+1] = g
		pix[i*4+2] = b
		pix[i*4+3] = 0xff
	}
	img, _ := NewImage(w, h, LayoutRGBA, pix)
	return img
}

func TestImage_EncodePNGThenDecodeIsLossless(t *testing.T) {
	img := solidImage(4, 4, 10, 20, 30)
	data, err := img.Encode(EncodedPNG)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := DecodeImage(data)
	if err != nil {
		t.Fatalf("DecodeImage: %v", err)
	}
	if decoded.Width != img.Width || decoded.Height != img.Height {
		t.Fatalf("decoded size %dx%d, want %dx%d", decoded.Width, decoded.Height, img.Width, img.Height)
	}
	for i := range img.Pix {
		if decoded.Pix[i] != img.Pix[i] {
			t.Fatalf("byte %d: decoded %d, want %d (PNG round trip must be lossless)", i, decoded.Pix[i], img.Pix[i])
		}
	}
}

func TestImage_EncodeCachesResultForSameKind(t *testing.T) {
	img := solidImage(2, 2, 1, 2, 3)
	first, err := img.Encode(EncodedPNG)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	second, err := img.Encode(EncodedPNG)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(first) != len(second) {
		t.Error("expected cached encode to return the same blob")
	}
}

func TestImage_EncodeRejectsUnsupportedKind(t *testing.T) {
	img := solidImage(1, 1, 0, 0, 0)
	if _, err := img.Encode("bmp"); err == nil {
		t.Fatal("expected error for unsupported encode kind")
	}
}

// ── Crop ─────────────────────────────────────────────────────────────────────

func TestImage_CropWithinBoundsReturnsSubregion(t *testing.T) {
	img := solidImage(4, 4, 0, 0, 0)
	img.Pix[(1*4+1)*4] = 0x42 // mark pixel at (1,1)'s R channel
	sub := img.Crop(Rect{X: 1, Y: 1, W: 2, H: 2})
	if sub.Width != 2 || sub.Height != 2 {
		t.Fatalf("Crop size = %dx%d, want 2x2", sub.Width, sub.Height)
	}
	if sub.Pix[0] != 0x42 {
		t.Errorf("Crop top-left byte = %#x, want 0x42", sub.Pix[0])
	}
}

func TestImage_CropClampsToImageBounds(t *testing.T) {
	img := solidImage(4, 4, 0, 0, 0)
	sub := img.Crop(Rect{X: 2, Y: 2, W: 100, H: 100})
	if sub.Width != 2 || sub.Height != 2 {
		t.Errorf("Crop size = %dx%d, want clamped 2x2", sub.Width, sub.Height)
	}
}

func TestImage_CropOutsideBoundsReturnsEmptyImage(t *testing.T) {
	img := solidImage(4, 4, 0, 0, 0)
	sub := img.Crop(Rect{X: 10, Y: 10, W: 5, H: 5})
	if sub.Width != 0 || sub.Height != 0 {
		t.Errorf("Crop size = %dx%d, want 0x0 for an out-of-bounds ROI", sub.Width, sub.Height)
	}
}
