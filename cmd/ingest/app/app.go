package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/linkmap/internal/loader"
	"github.com/roman-kulish/linkmap/internal/storage"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) (err error) {
	loc, err := config.Location()
	if err != nil {
		return err
	}

	paths, err := findInputs(config.Inputs)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return errors.New("no CSV files found in inputs")
	}

	dbPath, err := storagePath(&config.Storage)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}

	store := storage.NewSqliteStore(dbPath)
	defer func() {
		err = errors.Join(err, store.Close())
	}()

	l := loader.New(
		loader.WithColumns(config.Columns),
		loader.WithLocation(loc),
		loader.WithLogger(logger),
	)
	importer := NewImporter(store, l, logger,
		WithMaxBatchSize(config.Storage.MaxBatchSize),
		WithWorkers(config.Workers),
	)

	logger.Info("importing", slog.String("database", dbPath), slog.Int("files", len(paths)))

	imported, err := importer.Run(ctx, paths)

	var samples int
	for _, im := range imported {
		samples += im.Samples
	}
	logger.Info("import finished",
		slog.Int("sessions", len(imported)),
		slog.String("samples", humanize.Comma(int64(samples))),
	)

	return err
}

// findInputs expands directories to the CSV files below them. A file listed
// more than once is imported once.
func findInputs(inputs []string) ([]string, error) {
	seen := make(map[string]bool)

	var paths []string
	for _, input := range inputs {
		files, err := loader.FindCSV(input)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if seen[f] {
				continue
			}
			seen[f] = true
			paths = append(paths, f)
		}
	}
	return paths, nil
}

// storagePath returns the configured database file, or a new timestamped file
// in the data directory.
func storagePath(config *StorageConfig) (string, error) {
	if config.DatabaseFile != "" {
		return config.DatabaseFile, nil
	}

	dir := config.DataDirectory
	if dir == "" {
		dir = defaultStorageDir
	}
	if !filepath.IsAbs(dir) {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get current working directory: %w", err)
		}
		dir = filepath.Join(wd, dir)
	}

	stat, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("storage directory '%s' does not exist: %w", dir, err)
	}
	if !stat.IsDir() {
		return "", fmt.Errorf("invalid storage directory '%s'", dir)
	}

	return filepath.Join(dir, fmt.Sprintf("linkmap_%s.sqlite", time.Now().UTC().Format("20060102_150405"))), nil
}
