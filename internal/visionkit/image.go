// Package visionkit implements the vision adapter contract (spec.md §3
// Image/Rect, §4.3): a uniform "image + params in, recognition results out"
// shape with one file per adapter kind, grounded on the teacher repo's
// internal/tools layout (one capability per file).
package visionkit

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
)

// Rect is an axis-aligned box in device pixels (spec.md §3).
type Rect struct {
	X, Y, W, H int
}

// Empty reports whether the rect carries no area. Neither DirectHit matches
// nor inverse-flag hits use an empty box: they report the first effective
// ROI and the whole frame respectively.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Center returns the rect's midpoint, rounding down.
func (r Rect) Center() (x, y int) {
	return r.X + r.W/2, r.Y + r.H/2
}

// Contains reports whether the point (x,y) falls within r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Offset returns r translated and resized by o, used when a Target carries
// an additional offset rect (spec.md §3 Target).
func (r Rect) Offset(o Rect) Rect {
	return Rect{X: r.X + o.X, Y: r.Y + o.Y, W: r.W + o.W, H: r.H + o.H}
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", r.X, r.Y, r.W, r.H)
}

// PixelLayout names the in-memory pixel format of an Image's raw buffer.
type PixelLayout string

const (
	LayoutRGBA PixelLayout = "RGBA"
	LayoutBGR  PixelLayout = "BGR"
	LayoutGray PixelLayout = "Gray"
)

// EncodedKind names the lossy-safe encoded form cached alongside the raw
// buffer.
type EncodedKind string

const (
	EncodedNone EncodedKind = ""
	EncodedPNG  EncodedKind = "png"
	EncodedJPEG EncodedKind = "jpeg"
)

// Image is an immutable-after-construction pixel buffer (spec.md §3).
// Ownership: the holder of the Image value owns its byte slices; callers
// that need to retain a screenshot beyond the controller's next capture
// must Clone it.
type Image struct {
	Width, Height int
	Layout        PixelLayout
	Pix           []byte // raw pixel bytes, row-major, len == Width*Height*bytesPerPixel(Layout)

	encodedKind EncodedKind
	encoded     []byte // cached encoded blob, lazily populated by Encode
}

func bytesPerPixel(layout PixelLayout) int {
	switch layout {
	case LayoutGray:
		return 1
	case LayoutBGR:
		return 3
	default:
		return 4
	}
}

// NewImage constructs a raw Image from pixel bytes, validating the buffer
// length matches width*height*bytesPerPixel(layout).
func NewImage(width, height int, layout PixelLayout, pix []byte) (*Image, error) {
	want := width * height * bytesPerPixel(layout)
	if len(pix) != want {
		return nil, fmt.Errorf("visionkit: pixel buffer length %d does not match %dx%d %s (want %d)",
			len(pix), width, height, layout, want)
	}
	buf := make([]byte, len(pix))
	copy(buf, pix)
	return &Image{Width: width, Height: height, Layout: layout, Pix: buf}, nil
}

// Clone returns a deep copy, the way controller screenshots are "cloned
// into caller-supplied buffers on demand" per spec.md §3.
func (img *Image) Clone() *Image {
	if img == nil {
		return nil
	}
	out := &Image{Width: img.Width, Height: img.Height, Layout: img.Layout, encodedKind: img.encodedKind}
	out.Pix = append([]byte(nil), img.Pix...)
	out.encoded = append([]byte(nil), img.encoded...)
	return out
}

// toGoImage converts the raw buffer to a stdlib image.Image for codec use.
func (img *Image) toGoImage() (image.Image, error) {
	switch img.Layout {
	case LayoutRGBA:
		dst := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
		copy(dst.Pix, img.Pix)
		return dst, nil
	case LayoutGray:
		dst := image.NewGray(image.Rect(0, 0, img.Width, img.Height))
		copy(dst.Pix, img.Pix)
		return dst, nil
	case LayoutBGR:
		dst := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
		for i := 0; i < img.Width*img.Height; i++ {
			b, g, r := img.Pix[i*3], img.Pix[i*3+1], img.Pix[i*3+2]
			dst.Set(i%img.Width, i/img.Width, color.RGBA{R: r, G: g, B: b, A: 0xff})
		}
		return dst, nil
	default:
		return nil, fmt.Errorf("visionkit: unsupported layout %q", img.Layout)
	}
}

// Encode produces (and caches) an encoded byte blob in the requested kind.
// Round trips through this codec are lossy-safe for JPEG and lossless for
// PNG, per spec.md §3.
func (img *Image) Encode(kind EncodedKind) ([]byte, error) {
	if img.encodedKind == kind && img.encoded != nil {
		return img.encoded, nil
	}
	gimg, err := img.toGoImage()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	switch kind {
	case EncodedPNG:
		if err := png.Encode(&buf, gimg); err != nil {
			return nil, fmt.Errorf("visionkit: png encode: %w", err)
		}
	case EncodedJPEG:
		if err := jpeg.Encode(&buf, gimg, &jpeg.Options{Quality: 90}); err != nil {
			return nil, fmt.Errorf("visionkit: jpeg encode: %w", err)
		}
	default:
		return nil, fmt.Errorf("visionkit: unsupported encode kind %q", kind)
	}
	img.encodedKind = kind
	img.encoded = buf.Bytes()
	return img.encoded, nil
}

// DecodeImage builds an Image from an encoded PNG/JPEG blob, recovering raw
// RGBA pixels.
func DecodeImage(data []byte) (*Image, error) {
	gimg, kind, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("visionkit: decode: %w", err)
	}
	bounds := gimg.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			rgba.Set(x, y, gimg.At(bounds.Min.X+x, bounds.Min.Y+y))
		}
	}
	var encKind EncodedKind
	switch kind {
	case "png":
		encKind = EncodedPNG
	case "jpeg":
		encKind = EncodedJPEG
	}
	return &Image{
		Width: w, Height: h, Layout: LayoutRGBA, Pix: rgba.Pix,
		encodedKind: encKind, encoded: append([]byte(nil), data...),
	}, nil
}

// Crop returns the sub-image within r, clamped to the image bounds. Used by
// adapters to restrict matching to an ROI.
func (img *Image) Crop(r Rect) *Image {
	x0, y0 := clamp(r.X, 0, img.Width), clamp(r.Y, 0, img.Height)
	x1, y1 := clamp(r.X+r.W, 0, img.Width), clamp(r.Y+r.H, 0, img.Height)
	if x1 <= x0 || y1 <= y0 {
		return &Image{Width: 0, Height: 0, Layout: img.Layout}
	}
	bpp := bytesPerPixel(img.Layout)
	w, h := x1-x0, y1-y0
	out := make([]byte, w*h*bpp)
	for row := 0; row < h; row++ {
		srcStart := ((y0+row)*img.Width + x0) * bpp
		dstStart := row * w * bpp
		copy(out[dstStart:dstStart+w*bpp], img.Pix[srcStart:srcStart+w*bpp])
	}
	return &Image{Width: w, Height: h, Layout: img.Layout, Pix: out}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
