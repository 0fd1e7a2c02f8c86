package visionkit

// DirectHit always returns a single hit whose box is the first effective
// ROI rather than an empty box; only when there is no effective ROI is the
// box the zero Rect. It models the "DirectHit" recognition kind from spec.md §4.4 step 3:
// a TaskData that acts without needing to locate anything first.
type DirectHit struct{}

func (DirectHit) Kind() string { return "DirectHit" }

func (DirectHit) Analyze(in Input) ([]Result, error) {
	rois := in.EffectiveROIs()
	box := Rect{}
	if len(rois) > 0 {
		box = rois[0]
	}
	return []Result{{Box: box, Score: 1}}, nil
}
