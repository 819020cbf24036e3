package aggregate

import (
	"cmp"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/roman-kulish/linkmap/internal/survey"
)

// ErrNoData is returned when there are no valid samples to aggregate, so that
// callers can skip producing an empty visualization.
var ErrNoData = errors.New("no valid samples to aggregate")

// WithMergeWindow sets the anchor-relative merge threshold. Non-positive
// values keep DefaultMergeWindow.
func WithMergeWindow(d time.Duration) func(*Aggregator) {
	return func(a *Aggregator) {
		if d > 0 {
			a.mergeWindow = d
		}
	}
}

// WithWorkers sets the number of goroutines processing location groups.
func WithWorkers(n int) func(*Aggregator) {
	return func(a *Aggregator) {
		if n > 0 {
			a.workers = n
		}
	}
}

// WithLogger sets the logger for the aggregator
func WithLogger(logger *slog.Logger) func(*Aggregator) {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

// Stats summarizes a single aggregation run.
type Stats struct {
	Samples int // Valid input samples
	Groups  int // Distinct locations
	Windows int // Merge windows, equal to the number of records produced
}

// Merged returns the number of samples folded into another sample's record.
func (s Stats) Merged() int {
	return s.Samples - s.Windows
}

// Aggregator groups samples by exact location, partitions every group into
// merge windows and reduces each window into one AggregateRecord.
type Aggregator struct {
	mergeWindow time.Duration
	workers     int
	logger      *slog.Logger
}

// New creates a new Aggregator with a discard logger, the default merge window
// and a single worker.
func New(options ...func(*Aggregator)) *Aggregator {
	a := Aggregator{
		mergeWindow: DefaultMergeWindow,
		workers:     1,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&a)
	}

	return &a
}

// MergeWindow returns the configured merge threshold.
func (a *Aggregator) MergeWindow() time.Duration {
	return a.mergeWindow
}

// Aggregate runs the pipeline over samples. See AggregateWithStats.
func (a *Aggregator) Aggregate(samples []survey.Sample) ([]survey.AggregateRecord, error) {
	records, _, err := a.AggregateWithStats(samples)
	return records, err
}

// AggregateWithStats runs the pipeline over samples and returns one record per
// merge window. Records of one group are emitted in time order and groups in
// order of first appearance, but callers must not rely on the global order;
// use SortByTime when a stable order is needed.
//
// ErrNoData is returned for empty input. Samples are never modified.
func (a *Aggregator) AggregateWithStats(samples []survey.Sample) ([]survey.AggregateRecord, Stats, error) {
	if len(samples) == 0 {
		return nil, Stats{}, ErrNoData
	}

	groups := GroupByLocation(samples)
	results := make([][]survey.AggregateRecord, len(groups))

	if a.workers <= 1 || len(groups) == 1 {
		for i := range groups {
			results[i] = a.aggregateGroup(&groups[i])
		}
	} else {
		a.runParallel(groups, results)
	}

	stats := Stats{Samples: len(samples), Groups: len(groups)}
	for _, r := range results {
		stats.Windows += len(r)
	}

	records := make([]survey.AggregateRecord, 0, stats.Windows)
	for _, r := range results {
		records = append(records, r...)
	}

	a.logger.Debug("aggregation finished",
		slog.Group("stats",
			slog.Int("samples", stats.Samples),
			slog.Int("groups", stats.Groups),
			slog.Int("windows", stats.Windows),
			slog.Int("merged", stats.Merged()),
			slog.Duration("mergeWindow", a.mergeWindow),
		))

	return records, stats, nil
}

func (a *Aggregator) runParallel(groups []Group, results [][]survey.AggregateRecord) {
	jobs := make(chan int)

	var wg sync.WaitGroup
	for range min(a.workers, len(groups)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = a.aggregateGroup(&groups[i]) // each slot is written by one goroutine only
			}
		}()
	}

	for i := range groups {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
}

func (a *Aggregator) aggregateGroup(g *Group) []survey.AggregateRecord {
	windows := Windows(g.Samples, a.mergeWindow)

	records := make([]survey.AggregateRecord, len(windows))
	for i, w := range windows {
		records[i] = Reduce(w)
	}
	return records
}

// SortByTime orders records by timestamp, then latitude and longitude. The sort
// is stable, so records equal on all three keep their relative order.
func SortByTime(records []survey.AggregateRecord) {
	slices.SortStableFunc(records, func(a, b survey.AggregateRecord) int {
		return cmp.Or(
			a.Timestamp.Compare(b.Timestamp),
			cmp.Compare(a.Latitude, b.Latitude),
			cmp.Compare(a.Longitude, b.Longitude),
		)
	})
}
