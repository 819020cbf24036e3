package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/paulmach/orb"

	"github.com/roman-kulish/linkmap/internal/survey"
)

// ReaderOption configures a SampleReader with specific filtering criteria.
type ReaderOption func(*SqliteSampleReader)

// WithStartTime sets the start time filter for the sample reader.
// Samples with timestamps before this time will be excluded.
func WithStartTime(t time.Time) ReaderOption {
	return func(r *SqliteSampleReader) {
		r.startTime = &t
	}
}

// WithEndTime sets the end time filter for the sample reader.
// Samples with timestamps after this time will be excluded.
func WithEndTime(t time.Time) ReaderOption {
	return func(r *SqliteSampleReader) {
		r.endTime = &t
	}
}

// WithTimeRange sets both start and end time filters.
func WithTimeRange(startTime, endTime time.Time) ReaderOption {
	return func(r *SqliteSampleReader) {
		r.startTime = &startTime
		r.endTime = &endTime
	}
}

// WithBounds limits samples to a bounding box. Points are longitude, latitude.
func WithBounds(b orb.Bound) ReaderOption {
	return func(r *SqliteSampleReader) {
		r.bounds = &b
	}
}

func newSqliteSampleReader(ctx context.Context, db *sql.DB, sessionID int64, opts ...ReaderOption) (*SqliteSampleReader, error) {
	sr := &SqliteSampleReader{
		db:        db,
		sessionID: sessionID,
	}
	for _, opt := range opts {
		opt(sr)
	}
	if err := sr.init(ctx); err != nil {
		if errors.Is(err, ErrNoData) {
			return nil, err
		}
		return nil, fmt.Errorf("initializing reader: %w", err)
	}
	return sr, nil
}

// SqliteSampleReader implements SampleReader for SQLite database backend.
type SqliteSampleReader struct {
	db *sql.DB

	sessionID int64
	session   *Session

	startTime *time.Time // Optional start of time range filter
	endTime   *time.Time // Optional end of time range filter
	bounds    *orb.Bound // Optional bounding box filter

	current survey.Sample
	rows    *sql.Rows
	err     error
}

func (sr *SqliteSampleReader) init(ctx context.Context) error {
	if sr.db == nil {
		return errors.New("database connection required")
	}
	if sr.sessionID <= 0 {
		return errors.New("session ID required")
	}

	steps := []struct {
		msg string
		fn  func(context.Context) error
	}{
		{msg: "loading session", fn: sr.loadSession},
		{msg: "initializing filters", fn: sr.initFilters},
		{msg: "initializing query", fn: sr.initQuery},
	}
	for _, s := range steps {
		if err := s.fn(ctx); err != nil {
			if errors.Is(err, ErrNoData) {
				return err
			}
			return fmt.Errorf("%s: %w", s.msg, err)
		}
	}
	return nil
}

func (sr *SqliteSampleReader) loadSession(ctx context.Context) (err error) {
	stmt, err := sr.db.PrepareContext(ctx, selectSessionSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	if sr.session, err = scanSession(stmt.QueryRowContext(ctx, sr.sessionID)); err != nil {
		return fmt.Errorf("querying session: %w", err)
	}
	return
}

// initFilters validates the requested filters and fills the unset ones with the
// session's extent.
func (sr *SqliteSampleReader) initFilters(ctx context.Context) (err error) {
	if sr.startTime != nil && sr.endTime != nil && sr.startTime.After(*sr.endTime) {
		return fmt.Errorf("start time %s is after end time %s", sr.startTime, sr.endTime)
	}
	if sr.bounds != nil && (sr.bounds.Min.X() > sr.bounds.Max.X() || sr.bounds.Min.Y() > sr.bounds.Max.Y()) {
		return fmt.Errorf("invalid bounds %v", *sr.bounds)
	}

	stmt, err := sr.db.PrepareContext(ctx, selectFilterValuesSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	var count, minTime, maxTime int64
	var minLat, maxLat, minLon, maxLon float64
	if err = stmt.QueryRowContext(ctx, sr.sessionID).Scan(&count, &minTime, &maxTime, &minLat, &maxLat, &minLon, &maxLon); err != nil {
		return fmt.Errorf("scanning filters data: %w", err)
	}
	if count == 0 {
		return ErrNoData
	}

	if sr.startTime == nil {
		t := time.Unix(0, minTime)
		sr.startTime = &t
	}
	if sr.endTime == nil {
		t := time.Unix(0, maxTime)
		sr.endTime = &t
	}
	if sr.bounds == nil {
		sr.bounds = &orb.Bound{
			Min: orb.Point{minLon, minLat},
			Max: orb.Point{maxLon, maxLat},
		}
	}

	return nil
}

func (sr *SqliteSampleReader) initQuery(ctx context.Context) (err error) {
	stmt, err := sr.db.PrepareContext(ctx, selectSamplesSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	sr.rows, err = stmt.QueryContext(ctx,
		sr.sessionID,
		sr.startTime.UnixNano(),
		sr.endTime.UnixNano(),
		sr.bounds.Min.Lat(),
		sr.bounds.Max.Lat(),
		sr.bounds.Min.Lon(),
		sr.bounds.Max.Lon(),
	)
	return err
}

func (sr *SqliteSampleReader) scanSample() (survey.Sample, error) {
	var data sampleData
	err := sr.rows.Scan(
		&data.TimestampNs,
		&data.Latitude,
		&data.Longitude,
		&data.Signal,
		&data.Noise,
		&data.RSSI,
		&data.TxPower,
		&data.Distance,
		&data.CCQ,
		&data.TxRate,
		&data.RxRate,
		&data.Heading,
		&data.Channel,
		&data.Frequency,
		&data.OpMode,
	)
	if err != nil {
		return survey.Sample{}, fmt.Errorf("scanning sample: %w", err)
	}
	return data.toSample(), nil
}

func (sr *SqliteSampleReader) Session() *Session {
	return sr.session
}

func (sr *SqliteSampleReader) Next(ctx context.Context) bool {
	if sr.err != nil || sr.rows == nil {
		return false
	}

	select {
	case <-ctx.Done():
		sr.err = ctx.Err()
		return false
	default:
	}

	if !sr.rows.Next() {
		sr.err = ErrNoData
		return false
	}

	sr.current, sr.err = sr.scanSample()
	return sr.err == nil
}

func (sr *SqliteSampleReader) Current() *survey.Sample {
	return &sr.current
}

func (sr *SqliteSampleReader) Error() error {
	if sr.err != nil && !errors.Is(sr.err, ErrNoData) {
		return sr.err
	}
	if sr.rows != nil {
		return sr.rows.Err()
	}
	return nil
}

func (sr *SqliteSampleReader) Close() error {
	if sr.rows != nil {
		err := sr.rows.Close()
		sr.rows = nil
		return err
	}
	return nil
}
