package visionkit

import "fmt"

// TemplateParam parametrizes template-match and feature-match recognition
// (spec.md §3 recognition param block): a reference image plus a minimum
// score, scored by normalized pixel similarity within each candidate ROI.
type TemplateParam struct {
	Template *Image
	MinScore float64 // minimum score in [0,1] to count as a hit
}

// Threshold satisfies pipelinekit's threshold-validation contract.
func (p TemplateParam) Threshold() float64 { return p.MinScore }

// TemplateMatch slides the template over each ROI and returns the
// best-scoring placement per ROI that clears Threshold, in ROI order
// (spec.md §4.3: "returns survivors in input-ROI order").
//
// The concrete matching math (out of scope per spec.md §1 — only the
// contract is core) is a plain normalized mean-absolute-difference score,
// sufficient to exercise the dispatcher/engine deterministically in tests
// without depending on an external CV library.
type TemplateMatch struct{}

func (*TemplateMatch) Kind() string { return "TemplateMatch" }

func (*TemplateMatch) Analyze(in Input) ([]Result, error) {
	param, ok := in.Param.(TemplateParam)
	if !ok {
		return nil, fmt.Errorf("visionkit: TemplateMatch requires TemplateParam")
	}
	if param.Template == nil {
		return nil, fmt.Errorf("visionkit: TemplateMatch requires a non-nil template")
	}

	var results []Result
	for _, roi := range in.EffectiveROIs() {
		region := in.Image.Crop(roi)
		box, score, ok := bestPlacement(region, param.Template)
		if !ok || score < param.MinScore {
			continue
		}
		results = append(results, Result{
			Box:   Rect{X: roi.X + box.X, Y: roi.Y + box.Y, W: box.W, H: box.H},
			Score: score,
		})
	}
	return results, nil
}

// bestPlacement scans tmpl over region at a coarse stride and returns the
// highest-scoring placement. Score is 1 - normalized mean absolute
// difference over the overlapping RGBA bytes, in [0,1].
func bestPlacement(region, tmpl *Image) (Rect, float64, bool) {
	if tmpl.Width == 0 || tmpl.Height == 0 || region.Width < tmpl.Width || region.Height < tmpl.Height {
		return Rect{}, 0, false
	}
	stride := 1
	if region.Width*region.Height > 4096 {
		stride = 4
	}
	bestScore := -1.0
	var bestBox Rect
	for y := 0; y+tmpl.Height <= region.Height; y += stride {
		for x := 0; x+tmpl.Width <= region.Width; x += stride {
			score := scorePlacement(region, tmpl, x, y)
			if score > bestScore {
				bestScore = score
				bestBox = Rect{X: x, Y: y, W: tmpl.Width, H: tmpl.Height}
			}
		}
	}
	return bestBox, bestScore, bestScore >= 0
}

func scorePlacement(region, tmpl *Image, ox, oy int) float64 {
	sub := region.Crop(Rect{X: ox, Y: oy, W: tmpl.Width, H: tmpl.Height})
	if len(sub.Pix) != len(tmpl.Pix) || sub.Layout != tmpl.Layout {
		return 0
	}
	var diff int64
	for i := range sub.Pix {
		d := int(sub.Pix[i]) - int(tmpl.Pix[i])
		if d < 0 {
			d = -d
		}
		diff += int64(d)
	}
	maxDiff := float64(len(sub.Pix)) * 255
	if maxDiff == 0 {
		return 1
	}
	return 1 - float64(diff)/maxDiff
}

// FeatureParam parametrizes keypoint-style feature matching. Kept distinct
// from TemplateParam per original_source/source/MaaFramework/Vision, which
// lists FeatureMatch as TemplateMatch's sibling rather than a variant of it.
type FeatureParam struct {
	Template *Image
	MinScore float64 // minimum score in [0,1] to count as a hit
}

// Threshold satisfies pipelinekit's threshold-validation contract.
func (p FeatureParam) Threshold() float64 { return p.MinScore }

// FeatureMatch is contract-compatible with TemplateMatch; the concrete
// keypoint/descriptor algorithm is out of scope per spec.md §1, so it
// reuses the same deterministic scoring as a stand-in matcher that a real
// feature-matching adapter would replace via Registry.Register.
type FeatureMatch struct{}

func (*FeatureMatch) Kind() string { return "FeatureMatch" }

func (*FeatureMatch) Analyze(in Input) ([]Result, error) {
	fp, ok := in.Param.(FeatureParam)
	if !ok {
		return nil, fmt.Errorf("visionkit: FeatureMatch requires FeatureParam")
	}
	return (&TemplateMatch{}).Analyze(Input{
		Image: in.Image, ROIs: in.ROIs, CachedROI: in.CachedROI,
		Param: TemplateParam{Template: fp.Template, MinScore: fp.MinScore},
	})
}
