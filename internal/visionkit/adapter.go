package visionkit

import "encoding/json"

// Result is one recognition hit (spec.md §3/§4.3): a box plus whatever
// detail the adapter kind attaches (score, label, OCR text, detector class).
type Result struct {
	Box    Rect
	Score  float64
	Label  string
	Text   string
	Detail json.RawMessage
}

// Input bundles everything an Adapter needs (spec.md §4.3): the full frame,
// an optional ROI list, an optional cached ROI that overrides the ROI list,
// and the kind-specific parameter block.
type Input struct {
	Image     *Image
	ROIs      []Rect
	CachedROI []Rect // non-empty overrides ROIs, per §4.3
	Param     any

	// TaskName is the originating TaskData's name, set by the dispatcher.
	// Built-in adapters ignore it; Custom-style adapters use it to label
	// the callback invocation without the caller repeating it in Param.
	TaskName string
}

// EffectiveROIs returns the ROI list an adapter should actually search,
// applying the §4.3 override rule: CachedROI wins if non-empty, empty ROIs
// means "whole image".
func (in Input) EffectiveROIs() []Rect {
	if len(in.CachedROI) > 0 {
		return in.CachedROI
	}
	if len(in.ROIs) == 0 {
		return []Rect{{X: 0, Y: 0, W: in.Image.Width, H: in.Image.Height}}
	}
	return in.ROIs
}

// Adapter is the uniform vision contract (spec.md §4.3): given an image and
// a parameter block, produce zero or more recognition results, already
// filtered and ordered by ROI.
type Adapter interface {
	Kind() string
	Analyze(in Input) ([]Result, error)
}

// Registry resolves a recognition kind name to its Adapter, built once at
// engine construction and shared across all pipeline runs.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry builds a Registry pre-populated with the built-in adapter
// kinds; custom adapters are added via Register.
func NewRegistry() *Registry {
	r := &Registry{adapters: make(map[string]Adapter)}
	r.Register(DirectHit{})
	r.Register(&TemplateMatch{})
	r.Register(&FeatureMatch{})
	r.Register(&ColorMatch{})
	r.Register(&OCR{})
	r.Register(&Classifier{})
	r.Register(&Detector{})
	r.Register(&Custom{})
	return r
}

// Register adds or replaces the adapter for its own Kind(). Used both for
// the built-ins and for user-supplied Custom adapters (spec.md §4.3/§6).
func (r *Registry) Register(a Adapter) {
	r.adapters[a.Kind()] = a
}

// Unregister removes the adapter for kind, if any.
func (r *Registry) Unregister(kind string) {
	delete(r.adapters, kind)
}

// Get returns the adapter for kind, or nil if unregistered.
func (r *Registry) Get(kind string) Adapter {
	return r.adapters[kind]
}
