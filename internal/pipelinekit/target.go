package pipelinekit

import (
	"fmt"

	"github.com/autoloom/autoloom/internal/visionkit"
)

// TargetKind names what a Target resolves against (spec.md §3).
type TargetKind string

const (
	TargetSelf    TargetKind = "Self"
	TargetPreTask TargetKind = "PreTask"
	TargetRegion  TargetKind = "Region"
)

// Target resolves to a concrete rect given the current match and the
// engine's memory of prior matches (spec.md §3).
type Target struct {
	Kind   TargetKind
	Name   string          // PreTask: the name of the referenced node
	Region visionkit.Rect  // Region: the absolute rect
	Offset visionkit.Rect  // added to whatever base rect is resolved
}

// RecBoxLookup resolves a previously-matched node's box, used for
// TargetPreTask. Implemented by the engine's per-run status (spec.md §3
// "Pipeline run status").
type RecBoxLookup func(name string) (visionkit.Rect, bool)

// Resolve computes the concrete rect for a Target given the box the current
// node just matched (self) and a lookup for prior-node boxes.
func (t Target) Resolve(self visionkit.Rect, lookup RecBoxLookup) (visionkit.Rect, error) {
	var base visionkit.Rect
	switch t.Kind {
	case TargetSelf:
		base = self
	case TargetRegion:
		base = t.Region
	case TargetPreTask:
		if lookup == nil {
			return visionkit.Rect{}, fmt.Errorf("pipelinekit: PreTask target %q has no lookup", t.Name)
		}
		box, ok := lookup(t.Name)
		if !ok {
			return visionkit.Rect{}, fmt.Errorf("pipelinekit: PreTask target references unmatched node %q", t.Name)
		}
		base = box
	default:
		return visionkit.Rect{}, fmt.Errorf("pipelinekit: unknown target kind %q", t.Kind)
	}
	return base.Offset(t.Offset), nil
}
