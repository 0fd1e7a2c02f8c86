package visionkit

import "fmt"

// DetectParam parametrizes the detector adapter. Decode turns the model's
// raw output tensor into boxed results. spec.md §9 flags the concrete
// tensor layout as source-uncertain ("随手写的") and explicitly says it
// "must be validated against actual model shapes, not guessed from code" —
// so Decode is left to the caller entirely; this adapter never assumes a
// YOLO head layout itself.
type DetectParam struct {
	Decode      func(region *Image) ([]Result, error)
	ScoreThresh float64
	ExpectedSet []string // optional label allow-list
}

// Threshold satisfies pipelinekit's threshold-validation contract.
func (p DetectParam) Threshold() float64 { return p.ScoreThresh }

// Detector runs Decode per ROI and filters by score threshold and, if set,
// an expected-label allow-list.
type Detector struct{}

func (*Detector) Kind() string { return "Detect" }

func (*Detector) Analyze(in Input) ([]Result, error) {
	param, ok := in.Param.(DetectParam)
	if !ok {
		return nil, fmt.Errorf("visionkit: Detector requires DetectParam")
	}
	if param.Decode == nil {
		return nil, fmt.Errorf("visionkit: Detector requires a Decode function")
	}

	var results []Result
	for _, roi := range in.EffectiveROIs() {
		region := in.Image.Crop(roi)
		hits, err := param.Decode(region)
		if err != nil {
			return nil, fmt.Errorf("visionkit: Detector decode: %w", err)
		}
		for _, h := range hits {
			if h.Score < param.ScoreThresh {
				continue
			}
			if len(param.ExpectedSet) > 0 && !contains(param.ExpectedSet, h.Label) {
				continue
			}
			h.Box = Rect{X: roi.X + h.Box.X, Y: roi.Y + h.Box.Y, W: h.Box.W, H: h.Box.H}
			results = append(results, h)
		}
	}
	return results, nil
}
