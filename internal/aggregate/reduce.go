package aggregate

import (
	"github.com/roman-kulish/linkmap/internal/survey"
)

// accumulator folds metric values, skipping missing ones. The mean is kept as
// a running mean so that large values do not overflow an intermediate sum.
type accumulator struct {
	count    int
	mean     float64
	min, max float64
}

func (a *accumulator) add(v *float64) {
	if v == nil {
		return
	}

	a.count++
	if a.count == 1 {
		a.min, a.max, a.mean = *v, *v, *v
		return
	}
	a.min = min(a.min, *v)
	a.max = max(a.max, *v)
	a.mean += (*v - a.mean) / float64(a.count)
}

// stat returns the folded statistic. It is empty when no value was added or
// the mean is not finite, so Min and Max are never set without Mean.
func (a *accumulator) stat() survey.Stat {
	mean := survey.Float(a.mean)
	if a.count == 0 || mean == nil {
		return survey.Stat{}
	}

	lo, hi := a.min, a.max
	return survey.Stat{Mean: mean, Min: &lo, Max: &hi}
}

// Reduce collapses a non-empty window into one aggregate record. For every
// numeric metric the mean, minimum and maximum are computed over the samples
// that carry a value; a metric missing from all samples yields an empty Stat.
// Categorical attributes and the coordinate come from the anchor, whose
// timestamp is the earliest in the window.
func Reduce(w Window) survey.AggregateRecord {
	anchor := w.Anchor()

	var acc [survey.NumMetrics]accumulator
	for i := range w {
		for m, v := range w[i].Metrics {
			acc[m].add(v)
		}
	}

	record := survey.AggregateRecord{
		Timestamp:     anchor.Timestamp,
		Latitude:      anchor.Latitude,
		Longitude:     anchor.Longitude,
		Attributes:    anchor.Attributes,
		SamplesMerged: len(w),
	}
	for m := range acc {
		record.Stats[m] = acc[m].stat()
	}

	return record
}
