package visionkit

import "fmt"

// ClassifyParam parametrizes the classifier adapter. Infer is the opaque
// model call (out of scope per spec.md §1); Expected restricts survivors to
// a declared label set, per spec.md §4.3's "expected-label set" filter.
type ClassifyParam struct {
	Infer    func(region *Image) (label string, score float64, err error)
	Expected []string // empty means any label survives
}

// Classifier runs Infer over each ROI and keeps results whose label is in
// Expected (or any label, if Expected is empty).
type Classifier struct{}

func (*Classifier) Kind() string { return "Classify" }

func (*Classifier) Analyze(in Input) ([]Result, error) {
	param, ok := in.Param.(ClassifyParam)
	if !ok {
		return nil, fmt.Errorf("visionkit: Classifier requires ClassifyParam")
	}
	if param.Infer == nil {
		return nil, fmt.Errorf("visionkit: Classifier requires an Infer function")
	}

	var results []Result
	for _, roi := range in.EffectiveROIs() {
		region := in.Image.Crop(roi)
		label, score, err := param.Infer(region)
		if err != nil {
			return nil, fmt.Errorf("visionkit: Classifier infer: %w", err)
		}
		if len(param.Expected) > 0 && !contains(param.Expected, label) {
			continue
		}
		results = append(results, Result{Box: roi, Label: label, Score: score})
	}
	return results, nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
