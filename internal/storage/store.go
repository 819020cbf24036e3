package storage

import (
	"context"

	"github.com/roman-kulish/linkmap/internal/survey"
)

// Store provides an interface for persisting survey sessions and their samples.
// All operations that write to the database should be considered atomic.
type Store interface {
	// CreateSession registers a new import and returns its unique identifier.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - source: Origin of the samples, e.g. the CSV file path
	//   - config: Optional import configuration. Can be string, []byte, or JSON-serializable object
	//
	// Returns:
	//   - sessionID: Unique identifier for the created session
	//   - error: If session creation fails or context is cancelled
	CreateSession(ctx context.Context, source string, config any) (sessionID int64, err error)

	// DeleteSession removes a session and all of its samples in a single
	// transaction. Deleting an unknown session is not an error.
	DeleteSession(ctx context.Context, id int64) error

	// Session retrieves a specific session by its ID.
	Session(ctx context.Context, id int64) (session *Session, err error)

	// Sessions returns all sessions ordered by start time.
	Sessions(ctx context.Context) (sessions []*Session, err error)

	// StoreSamples saves samples for a session in a single transaction.
	// Missing metric values are stored as NULL.
	StoreSamples(ctx context.Context, sessionID int64, samples []survey.Sample) error

	// ReadSamples opens a reader over the samples of a session in time order.
	// ErrNoData is returned when the session has no samples.
	ReadSamples(ctx context.Context, sessionID int64, opts ...ReaderOption) (SampleReader, error)

	// Close releases all database connections and resources.
	// It is safe to call Close multiple times.
	Close() error
}

// SampleReader provides an iterator-based interface for reading stored samples.
type SampleReader interface {
	// Session returns metadata about the session this reader is accessing.
	Session() *Session

	// Next advances the iterator and returns true if there is another sample
	// to read, false when the iteration is complete or if an error occurred.
	Next(context.Context) bool

	// Current returns the current sample in the iteration.
	// If called after Next() returns false, the behavior is undefined.
	Current() *survey.Sample

	// Error returns any error that occurred during iteration.
	// If Next() returns false, Error() should be checked to distinguish between
	// end of data and an error condition.
	Error() error

	// Close releases any resources associated with the reader.
	Close() error
}

// CollectSamples drains r into a slice.
func CollectSamples(ctx context.Context, r SampleReader) ([]survey.Sample, error) {
	var samples []survey.Sample
	for r.Next(ctx) {
		samples = append(samples, *r.Current())
	}
	if err := r.Error(); err != nil {
		return nil, err
	}
	return samples, nil
}
