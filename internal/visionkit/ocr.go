package visionkit

import (
	"fmt"
	"regexp"
)

// OCRParam parametrizes text recognition. Decode is the opaque model call —
// concrete OCR inference is out of scope per spec.md §1; the adapter only
// owns the filter-by-regex contract described in §4.3.
type OCRParam struct {
	Decode  func(region *Image) ([]Result, error)
	Pattern *regexp.Regexp // optional: survivors must match this regex
}

// OCR delegates recognition to a user/model-supplied Decode function per
// ROI, then applies the declared regex filter, preserving ROI order.
type OCR struct{}

func (*OCR) Kind() string { return "OCR" }

func (*OCR) Analyze(in Input) ([]Result, error) {
	param, ok := in.Param.(OCRParam)
	if !ok {
		return nil, fmt.Errorf("visionkit: OCR requires OCRParam")
	}
	if param.Decode == nil {
		return nil, fmt.Errorf("visionkit: OCR requires a Decode function")
	}

	var results []Result
	for _, roi := range in.EffectiveROIs() {
		region := in.Image.Crop(roi)
		hits, err := param.Decode(region)
		if err != nil {
			return nil, fmt.Errorf("visionkit: OCR decode: %w", err)
		}
		for _, h := range hits {
			if param.Pattern != nil && !param.Pattern.MatchString(h.Text) {
				continue
			}
			h.Box = Rect{X: roi.X + h.Box.X, Y: roi.Y + h.Box.Y, W: h.Box.W, H: h.Box.H}
			results = append(results, h)
		}
	}
	return results, nil
}
