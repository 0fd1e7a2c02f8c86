package visionkit

import "fmt"

// ColorParam parametrizes colour-match recognition: a target RGB and a
// per-channel tolerance. A hit is the bounding box of every matching pixel
// within the ROI.
type ColorParam struct {
	R, G, B   uint8
	Tolerance uint8
}

// ColorMatch scans each ROI for pixels within Tolerance of the target
// colour and reports the bounding rect of the match, if any.
type ColorMatch struct{}

func (*ColorMatch) Kind() string { return "ColorMatch" }

func (*ColorMatch) Analyze(in Input) ([]Result, error) {
	param, ok := in.Param.(ColorParam)
	if !ok {
		return nil, fmt.Errorf("visionkit: ColorMatch requires ColorParam")
	}
	bpp := bytesPerPixel(in.Image.Layout)
	if bpp < 3 {
		return nil, fmt.Errorf("visionkit: ColorMatch requires an RGB(A)/BGR layout")
	}

	var results []Result
	for _, roi := range in.EffectiveROIs() {
		region := in.Image.Crop(roi)
		minX, minY, maxX, maxY, count := -1, -1, -1, -1, 0
		for y := 0; y < region.Height; y++ {
			for x := 0; x < region.Width; x++ {
				i := (y*region.Width + x) * bpp
				var r, g, b byte
				if region.Layout == LayoutBGR {
					b, g, r = region.Pix[i], region.Pix[i+1], region.Pix[i+2]
				} else {
					r, g, b = region.Pix[i], region.Pix[i+1], region.Pix[i+2]
				}
				if withinTolerance(r, param.R, param.Tolerance) &&
					withinTolerance(g, param.G, param.Tolerance) &&
					withinTolerance(b, param.B, param.Tolerance) {
					if minX == -1 || x < minX {
						minX = x
					}
					if minY == -1 || y < minY {
						minY = y
					}
					if x > maxX {
						maxX = x
					}
					if y > maxY {
						maxY = y
					}
					count++
				}
			}
		}
		if count == 0 {
			continue
		}
		box := Rect{X: roi.X + minX, Y: roi.Y + minY, W: maxX - minX + 1, H: maxY - minY + 1}
		results = append(results, Result{Box: box, Score: float64(count) / float64(region.Width*region.Height)})
	}
	return results, nil
}

func withinTolerance(v, target, tol uint8) bool {
	d := int(v) - int(target)
	if d < 0 {
		d = -d
	}
	return d <= int(tol)
}
