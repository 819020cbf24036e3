package storage

import (
	"time"

	"github.com/google/uuid"
)

// Session describes one imported survey log.
type Session struct {
	ID        int64
	ImportID  uuid.UUID // Stable identifier of the import, unique across databases
	StartTime time.Time
	Source    string  // Where the samples came from, usually the CSV path
	Config    *string // Optional import configuration, JSON encoded
}
