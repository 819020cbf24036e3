package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/roman-kulish/linkmap/internal/loader"
	"github.com/roman-kulish/linkmap/internal/storage"
	"github.com/roman-kulish/linkmap/internal/survey"
)

// WithMaxBatchSize sets the maximum number of samples stored within a single
// database transaction.
func WithMaxBatchSize(size int) func(*Importer) {
	return func(im *Importer) {
		im.maxBatchSize = size
	}
}

// WithWorkers sets the number of files loaded concurrently.
func WithWorkers(n int) func(*Importer) {
	return func(im *Importer) {
		im.workers = n
	}
}

// Imported describes one file stored as a session.
type Imported struct {
	Path      string
	SessionID int64
	Rows      int
	Samples   int
}

// sessionConfig is recorded with every session.
type sessionConfig struct {
	Path        string `json:"path"`
	Encoding    string `json:"encoding"`
	Rows        int    `json:"rows"`
	Dropped     int    `json:"dropped"`
	HasBitrates bool   `json:"hasBitrates"`
}

// Importer loads survey CSV files and stores each one as a session.
type Importer struct {
	store  storage.Store
	loader *loader.Loader
	logger *slog.Logger

	maxBatchSize int
	workers      int
}

// NewImporter creates a new Importer
func NewImporter(store storage.Store, l *loader.Loader, logger *slog.Logger, options ...func(*Importer)) *Importer {
	im := Importer{
		store:        store,
		loader:       l,
		logger:       logger,
		maxBatchSize: defaultMaxBatchSize,
		workers:      1,
	}

	for _, option := range options {
		option(&im)
	}

	return &im
}

// Run imports every file in paths. A file that fails does not stop the others;
// all failures are returned together. Files without valid samples are skipped.
// The result is in the order of paths.
func (im *Importer) Run(ctx context.Context, paths []string) ([]Imported, error) {
	type outcome struct {
		idx      int
		imported *Imported
		err      error
	}

	jobs := make(chan int)
	outcomes := make(chan outcome, len(paths))

	var wg sync.WaitGroup
	for range max(1, min(im.workers, len(paths))) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				imported, err := im.importFile(ctx, paths[idx])
				outcomes <- outcome{idx: idx, imported: imported, err: err}
			}
		}()
	}

	var err error
	for idx := range paths {
		if err = ctx.Err(); err != nil {
			break
		}
		jobs <- idx
	}
	close(jobs)

	wg.Wait()
	close(outcomes)

	results := make([]*Imported, len(paths))
	errs := []error{err}
	for o := range outcomes {
		if o.err != nil {
			errs = append(errs, fmt.Errorf("importing '%s': %w", paths[o.idx], o.err))
			continue
		}
		results[o.idx] = o.imported
	}

	var imported []Imported
	for _, r := range results {
		if r != nil {
			imported = append(imported, *r)
		}
	}
	return imported, errors.Join(errs...)
}

func (im *Importer) importFile(ctx context.Context, path string) (*Imported, error) {
	result, err := im.loader.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if len(result.Samples) == 0 {
		im.logger.Warn("no valid samples, skipping", slog.String("input", path), slog.Int("rows", result.Rows))
		return nil, nil
	}

	sessionID, err := im.store.CreateSession(ctx, path, sessionConfig{
		Path:        path,
		Encoding:    result.Encoding,
		Rows:        result.Rows,
		Dropped:     result.Dropped,
		HasBitrates: result.HasBitrates,
	})
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	if err = im.storeSamples(ctx, sessionID, result.Samples); err != nil {
		// drop the partial session, even when ctx is cancelled
		if dErr := im.store.DeleteSession(context.WithoutCancel(ctx), sessionID); dErr != nil {
			err = errors.Join(err, fmt.Errorf("deleting session %d: %w", sessionID, dErr))
		}
		return nil, err
	}

	im.logger.Info("imported",
		slog.String("input", path),
		slog.Int64("session", sessionID),
		slog.Group("rows",
			slog.Int("total", result.Rows),
			slog.Int("dropped", result.Dropped),
		),
	)

	return &Imported{
		Path:      path,
		SessionID: sessionID,
		Rows:      result.Rows,
		Samples:   len(result.Samples),
	}, nil
}

func (im *Importer) storeSamples(ctx context.Context, sessionID int64, samples []survey.Sample) error {
	for chunk := range slices.Chunk(samples, im.maxBatchSize) {
		if err := im.store.StoreSamples(ctx, sessionID, chunk); err != nil {
			return fmt.Errorf("storing samples: %w", err)
		}
	}
	return nil
}
