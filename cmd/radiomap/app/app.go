package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roman-kulish/linkmap/internal/aggregate"
	"github.com/roman-kulish/linkmap/internal/loader"
	"github.com/roman-kulish/linkmap/internal/render"
	"github.com/roman-kulish/linkmap/internal/storage"
	"github.com/roman-kulish/linkmap/internal/survey"
)

// App turns survey logs into maps.
type App struct {
	config     *Config
	logger     *slog.Logger
	loader     *loader.Loader
	aggregator *aggregate.Aggregator
}

func New(config *Config, logger *slog.Logger) *App {
	return &App{
		config: config,
		logger: logger,
		loader: loader.New(
			loader.WithColumns(config.Columns),
			loader.WithLocation(config.TimeZone),
			loader.WithLogger(logger),
		),
		aggregator: aggregate.New(
			aggregate.WithMergeWindow(config.MergeWindow),
			aggregate.WithWorkers(config.Workers),
			aggregate.WithLogger(logger),
		),
	}
}

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	a := New(config, logger)

	if config.DBPath != "" {
		return a.renderSession(ctx)
	}

	info, err := os.Stat(config.Input)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	if info.IsDir() {
		return a.renderDirectory(ctx, config.Input)
	}

	output := config.Output
	if output == "" {
		output = defaultOutputName + "." + config.Format.Extension()
	}

	err = a.renderFile(config.Input, output)
	if errors.Is(err, aggregate.ErrNoData) {
		logger.Warn("no valid data after preprocessing", slog.String("input", config.Input))
		return nil
	}
	return err
}

// renderDirectory writes <file>.<ext> next to every CSV file below root. A file
// that fails is logged and skipped; the errors are returned together.
func (a *App) renderDirectory(ctx context.Context, root string) error {
	files, err := loader.FindCSV(root)
	if err != nil {
		return err
	}

	a.logger.Info("rendering directory", slog.String("root", root), slog.Int("files", len(files)))

	var generated []string
	var errs []error
	for _, path := range files {
		if err = ctx.Err(); err != nil {
			return err
		}

		output := path + "." + a.config.Format.Extension()
		err = a.renderFile(path, output)
		switch {
		case errors.Is(err, aggregate.ErrNoData):
			a.logger.Warn("no valid data after preprocessing, skipping", slog.String("input", path))
		case err != nil:
			a.logger.Error(err.Error(), slog.String("input", path))
			errs = append(errs, err)
		default:
			generated = append(generated, output)
		}
	}

	if a.config.Index && a.config.Format == render.FormatHTML && len(generated) > 0 {
		if err = a.writeIndex(root, generated); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (a *App) renderFile(path, output string) error {
	result, err := a.loader.LoadFile(path)
	if err != nil {
		return fmt.Errorf("loading input: %w", err)
	}

	a.logger.Info("loaded input",
		slog.String("input", path),
		slog.Group("rows",
			slog.Int("total", result.Rows),
			slog.Int("dropped", result.Dropped),
		),
		slog.String("encoding", result.Encoding),
		slog.Bool("bitrates", result.HasBitrates),
	)

	return a.render(result.Samples, result.HasBitrates, filepath.Base(path), output)
}

func (a *App) renderSession(ctx context.Context) error {
	if _, err := os.Stat(a.config.DBPath); err != nil {
		return fmt.Errorf("database file '%s' does not exist: %w", a.config.DBPath, err)
	}

	store := storage.NewSqliteStore(a.config.DBPath)
	defer store.Close()

	reader, err := store.ReadSamples(ctx, a.config.SessionID)
	if errors.Is(err, storage.ErrNoData) {
		a.logger.Warn("no samples in session", slog.Int64("session", a.config.SessionID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading session: %w", err)
	}
	defer reader.Close()

	samples, err := storage.CollectSamples(ctx, reader)
	if err != nil {
		return fmt.Errorf("reading samples: %w", err)
	}

	session := reader.Session()
	a.logger.Info("loaded session",
		slog.Int64("session", session.ID),
		slog.String("importID", session.ImportID.String()),
		slog.String("source", session.Source),
		slog.Int("samples", len(samples)),
	)

	output := a.config.Output
	if output == "" {
		output = fmt.Sprintf("session_%d.%s", session.ID, a.config.Format.Extension())
	}

	err = a.render(samples, hasBitrates(samples), filepath.Base(session.Source), output)
	if errors.Is(err, aggregate.ErrNoData) {
		a.logger.Warn("no valid data after preprocessing", slog.Int64("session", session.ID))
		return nil
	}
	return err
}

func (a *App) render(samples []survey.Sample, bitrates bool, title, output string) (err error) {
	records, err := a.records(samples)
	if err != nil {
		return err
	}

	renderer, err := render.New(a.config.Format, render.Config{
		Scheme:      a.config.Scheme,
		HasBitrates: bitrates,
		Raw:         a.config.NoMerge,
		Title:       title,
		Location:    a.config.TimeZone,
	})
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}

	out, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	defer func() {
		if cErr := out.Close(); cErr != nil && err == nil {
			err = cErr
		}
	}()

	if err = renderer.Render(out, records); err != nil {
		return fmt.Errorf("rendering: %w", err)
	}

	a.logger.Info("map saved", slog.String("output", output), slog.Int("records", len(records)))
	return nil
}

// records aggregates samples, or wraps every sample in its own record when
// merging is disabled. Records are sorted by time.
func (a *App) records(samples []survey.Sample) ([]survey.AggregateRecord, error) {
	if a.config.NoMerge {
		if len(samples) == 0 {
			return nil, aggregate.ErrNoData
		}
		records := make([]survey.AggregateRecord, len(samples))
		for i := range samples {
			records[i] = survey.FromSample(&samples[i])
		}
		aggregate.SortByTime(records)
		return records, nil
	}

	records, stats, err := a.aggregator.AggregateWithStats(samples)
	if err != nil {
		return nil, err
	}

	a.logger.Info("merged samples",
		slog.Group("stats",
			slog.Int("samples", stats.Samples),
			slog.Int("locations", stats.Groups),
			slog.Int("records", stats.Windows),
			slog.Duration("mergeWindow", a.aggregator.MergeWindow()),
		))

	aggregate.SortByTime(records)
	return records, nil
}

func (a *App) writeIndex(root string, files []string) (err error) {
	path := filepath.Join(root, indexFileName)

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating index: %w", err)
	}
	defer func() {
		if cErr := out.Close(); cErr != nil && err == nil {
			err = cErr
		}
	}()

	if err = render.WriteIndex(out, root, files); err != nil {
		return err
	}

	a.logger.Info("index saved", slog.String("output", path), slog.Int("links", len(files)))
	return nil
}

// hasBitrates reports whether any sample carries both link bitrates
func hasBitrates(samples []survey.Sample) bool {
	for i := range samples {
		if samples[i].Value(survey.TxRate) != nil && samples[i].Value(survey.RxRate) != nil {
			return true
		}
	}
	return false
}
