package aggregate

import (
	"slices"
	"time"

	"github.com/roman-kulish/linkmap/internal/survey"
)

// DefaultMergeWindow is the maximum time span between a window's anchor and
// any other sample in it.
const DefaultMergeWindow = 6 * time.Second

// Window is a non-empty, time ordered run of samples from one group. The first
// sample is the anchor and every other sample lies within the merge threshold
// of it.
type Window []survey.Sample

// Anchor returns the earliest sample of the window.
func (w Window) Anchor() *survey.Sample {
	return &w[0]
}

// Windows sorts samples by timestamp and partitions them into contiguous merge
// windows. The sort is stable, so samples with equal timestamps keep their
// input order and the first of them becomes the anchor.
//
// A sample joins the current window when its timestamp minus the anchor's
// timestamp is at most threshold (inclusive). Otherwise the window is closed
// and a new one is anchored at the sample. The comparison is always against
// the anchor, never the previous sample.
//
// The input slice is not modified.
func Windows(samples []survey.Sample, threshold time.Duration) []Window {
	if len(samples) == 0 {
		return nil
	}

	sorted := slices.Clone(samples)
	slices.SortStableFunc(sorted, func(a, b survey.Sample) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	var windows []Window
	start := 0
	anchor := sorted[0].Timestamp
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Timestamp.Sub(anchor) <= threshold {
			continue
		}
		windows = append(windows, sorted[start:i:i])
		start = i
		anchor = sorted[i].Timestamp
	}

	return append(windows, sorted[start:])
}
