package controllerkit

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/autoloom/autoloom/internal/jobqueue"
	"github.com/autoloom/autoloom/internal/visionkit"
)

// freezePollInterval bounds how often WaitFreezes re-screencaps while
// waiting for a region to settle.
const freezePollInterval = 100 * time.Millisecond

// WaitFreezes implements the screen-freeze predicate (spec.md §4.2): it
// repeatedly screencaps and compares rect between consecutive frames using
// method, succeeding once no change larger than threshold has persisted for
// a contiguous window of stableFor. exit, if non-nil, is checked between
// polls so an engine stop() can interrupt a long wait (spec.md §5
// "per-frame" suspension granularity).
func (c *Controller) WaitFreezes(ctx context.Context, rect visionkit.Rect, stableFor time.Duration, threshold float64, method FreezeMethod, exit <-chan struct{}) error {
	var prev *visionkit.Image
	var stableSince time.Time

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("controllerkit: wait_freezes: %w", ctx.Err())
		case <-exit:
			return fmt.Errorf("controllerkit: wait_freezes interrupted")
		default:
		}

		id := c.Screencap()
		status := c.jobs.Wait(id)
		if status != jobqueue.StatusSucceeded {
			return fmt.Errorf("controllerkit: wait_freezes: screencap failed")
		}
		img, _ := c.jobs.Result(id).(*visionkit.Image)
		if img == nil {
			return fmt.Errorf("controllerkit: wait_freezes: screencap produced no image")
		}
		cur := img.Crop(rect)

		if prev != nil {
			diff := compareFrames(prev, cur, method)
			if diff <= threshold {
				if stableSince.IsZero() {
					stableSince = time.Now()
				}
				if time.Since(stableSince) >= stableFor {
					return nil
				}
			} else {
				stableSince = time.Time{}
			}
		}
		prev = cur

		select {
		case <-time.After(freezePollInterval):
		case <-exit:
			return fmt.Errorf("controllerkit: wait_freezes interrupted")
		case <-ctx.Done():
			return fmt.Errorf("controllerkit: wait_freezes: %w", ctx.Err())
		}
	}
}

// compareFrames scores how different a and b are, in [0,1] (0 = identical).
// The concrete similarity math is deliberately simple and deterministic
// (spec.md §1: only the contract, not the CV algorithm, is core) so tests
// can exercise the freeze gate without an external image library.
func compareFrames(a, b *visionkit.Image, method FreezeMethod) float64 {
	switch method {
	case FreezeHistogram:
		return histogramDiff(a, b)
	case FreezeTemplateCorr:
		return 1 - correlation(a, b)
	default:
		return pixelDiff(a, b)
	}
}

func pixelDiff(a, b *visionkit.Image) float64 {
	if len(a.Pix) != len(b.Pix) || len(a.Pix) == 0 {
		return 1
	}
	var sum int64
	for i := range a.Pix {
		d := int(a.Pix[i]) - int(b.Pix[i])
		if d < 0 {
			d = -d
		}
		sum += int64(d)
	}
	return float64(sum) / (float64(len(a.Pix)) * 255)
}

// histogramDiff buckets each image's bytes into 16 intensity bins and
// returns the normalized L1 distance between the two histograms.
func histogramDiff(a, b *visionkit.Image) float64 {
	if len(a.Pix) == 0 || len(b.Pix) == 0 {
		return 1
	}
	const bins = 16
	var ha, hb [bins]int
	for _, v := range a.Pix {
		ha[int(v)*bins/256]++
	}
	for _, v := range b.Pix {
		hb[int(v)*bins/256]++
	}
	var dist float64
	for i := 0; i < bins; i++ {
		fa := float64(ha[i]) / float64(len(a.Pix))
		fb := float64(hb[i]) / float64(len(b.Pix))
		d := fa - fb
		if d < 0 {
			d = -d
		}
		dist += d
	}
	return dist / 2 // L1 distance between two distributions is in [0,2]
}

// correlation returns a Pearson-style correlation coefficient between the
// two byte buffers, in [0,1] after rescaling (1 = perfectly correlated).
func correlation(a, b *visionkit.Image) float64 {
	if len(a.Pix) != len(b.Pix) || len(a.Pix) == 0 {
		return 0
	}
	n := float64(len(a.Pix))
	var sumA, sumB float64
	for i := range a.Pix {
		sumA += float64(a.Pix[i])
		sumB += float64(b.Pix[i])
	}
	meanA, meanB := sumA/n, sumB/n

	var cov, varA, varB float64
	for i := range a.Pix {
		da := float64(a.Pix[i]) - meanA
		db := float64(b.Pix[i]) - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		if varA == varB {
			return 1
		}
		return 0
	}
	r := cov / (math.Sqrt(varA) * math.Sqrt(varB))
	return (r + 1) / 2
}
