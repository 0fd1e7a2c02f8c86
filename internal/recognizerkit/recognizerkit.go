// Package recognizerkit dispatches a pipeline node's recognition block to
// the right visionkit.Adapter (spec.md §4.3): resolving the ROI cache
// narrowing, running the adapter, applying the inverse flag, and picking
// the single survivor a pipeline node runs its action against.
//
// Modeled on the teacher's internal/roles/perceiver package: one small
// struct wrapping a single external call, with a plain Go error return
// instead of an ok/not-ok enum.
package recognizerkit

import (
	"fmt"
	"log"

	"github.com/autoloom/autoloom/internal/pipelinekit"
	"github.com/autoloom/autoloom/internal/visionkit"
)

// Outcome is what a single recognition attempt produced for a node
// (spec.md §4.3/§4.8 "per-run status"): whether it hit, and — if so — the
// box the action/ROI-cache bookkeeping should remember.
type Outcome struct {
	Hit    bool
	Box    visionkit.Rect
	Result visionkit.Result
}

// Dispatcher runs one node's Recognition against the current frame.
type Dispatcher struct {
	registry *visionkit.Registry
}

// New builds a Dispatcher over the given adapter registry.
func New(registry *visionkit.Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// boxCache resolves a prior node's matched box, for roi_cache_from
// narrowing (spec.md §3/§4.3). Implemented by the engine's per-run status.
type boxCache interface {
	Box(name string) (visionkit.Rect, bool)
}

// Run dispatches node.Recognition against image. frameROIs is the node's own
// declared search ROI list (may be empty, meaning "whole frame"); cache
// resolves roi_cache_from.
func (d *Dispatcher) Run(node *pipelinekit.TaskData, image *visionkit.Image, frameROIs []visionkit.Rect, cache boxCache) (Outcome, error) {
	adapter := d.registry.Get(node.Recognition.Kind)
	if adapter == nil {
		return Outcome{}, fmt.Errorf("recognizerkit: unknown recognition kind %q on node %q", node.Recognition.Kind, node.Name)
	}

	var cachedROI []visionkit.Rect
	if node.ROICacheFrom != "" {
		if cache == nil {
			return Outcome{}, fmt.Errorf("recognizerkit: node %q has roi_cache_from but no box cache", node.Name)
		}
		box, ok := cache.Box(node.ROICacheFrom)
		if !ok {
			// Nothing cached yet for the source node — fall back to the
			// node's own ROI declaration rather than failing the run.
			log.Printf("[REC] node %q: roi_cache_from %q has no cached box yet, using declared ROIs", node.Name, node.ROICacheFrom)
		} else {
			cachedROI = []visionkit.Rect{box}
		}
	}

	results, err := adapter.Analyze(visionkit.Input{
		Image:     image,
		ROIs:      frameROIs,
		CachedROI: cachedROI,
		Param:     node.Recognition.Param,
		TaskName:  node.Name,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("recognizerkit: node %q: %w", node.Name, err)
	}

	if node.Inverse {
		return d.inverse(node, image, results), nil
	}

	if len(results) == 0 {
		log.Printf("[REC] node %q: %s found no hit", node.Name, node.Recognition.Kind)
		return Outcome{Hit: false}, nil
	}
	best := results[0]
	log.Printf("[REC] node %q: %s hit box=%v score=%.3f", node.Name, node.Recognition.Kind, best.Box, best.Score)
	return Outcome{Hit: true, Box: best.Box, Result: best}, nil
}

// inverse implements spec.md §3's inverse flag: the node is considered a
// hit exactly when the underlying adapter found nothing, and the box
// reported is the whole searched frame (there is no match box to report).
func (d *Dispatcher) inverse(node *pipelinekit.TaskData, image *visionkit.Image, results []visionkit.Result) Outcome {
	if len(results) > 0 {
		log.Printf("[REC] node %q: inverse suppressed a hit", node.Name)
		return Outcome{Hit: false}
	}
	box := visionkit.Rect{X: 0, Y: 0, W: image.Width, H: image.Height}
	log.Printf("[REC] node %q: inverse hit (no underlying match)", node.Name)
	return Outcome{Hit: true, Box: box}
}
