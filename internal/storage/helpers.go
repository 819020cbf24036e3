package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roman-kulish/linkmap/internal/survey"
)

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

// rollbackWithError is a no-op on committed transactions
func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if cErr := rb.Rollback(); cErr != nil && !errors.Is(cErr, sql.ErrTxDone) && *err == nil {
		*err = cErr
	}
}

func toSQLNullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func fromSQLNullFloat(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	return survey.Float(f.Float64)
}

func toSampleData(sessionID int64, s *survey.Sample) *sampleData {
	return &sampleData{
		SessionID:   sessionID,
		TimestampNs: s.Timestamp.UnixNano(),
		Latitude:    s.Latitude,
		Longitude:   s.Longitude,
		Signal:      toSQLNullFloat(s.Value(survey.Signal)),
		Noise:       toSQLNullFloat(s.Value(survey.Noise)),
		RSSI:        toSQLNullFloat(s.Value(survey.RSSI)),
		TxPower:     toSQLNullFloat(s.Value(survey.TxPower)),
		Distance:    toSQLNullFloat(s.Value(survey.Distance)),
		CCQ:         toSQLNullFloat(s.Value(survey.CCQ)),
		TxRate:      toSQLNullFloat(s.Value(survey.TxRate)),
		RxRate:      toSQLNullFloat(s.Value(survey.RxRate)),
		Heading:     toSQLNullFloat(s.Value(survey.Heading)),
		Channel:     s.Attribute(survey.Channel),
		Frequency:   s.Attribute(survey.Frequency),
		OpMode:      s.Attribute(survey.OpMode),
	}
}

// args returns the bound values in insertSamplesSQL column order
func (d *sampleData) args() []any {
	return []any{
		d.SessionID,
		d.TimestampNs,
		d.Latitude,
		d.Longitude,
		d.Signal,
		d.Noise,
		d.RSSI,
		d.TxPower,
		d.Distance,
		d.CCQ,
		d.TxRate,
		d.RxRate,
		d.Heading,
		d.Channel,
		d.Frequency,
		d.OpMode,
	}
}

func (d *sampleData) toSample() survey.Sample {
	s := survey.Sample{
		Timestamp: time.Unix(0, d.TimestampNs).UTC(),
		Latitude:  d.Latitude,
		Longitude: d.Longitude,
	}

	s.Metrics[survey.Signal] = fromSQLNullFloat(d.Signal)
	s.Metrics[survey.Noise] = fromSQLNullFloat(d.Noise)
	s.Metrics[survey.RSSI] = fromSQLNullFloat(d.RSSI)
	s.Metrics[survey.TxPower] = fromSQLNullFloat(d.TxPower)
	s.Metrics[survey.Distance] = fromSQLNullFloat(d.Distance)
	s.Metrics[survey.CCQ] = fromSQLNullFloat(d.CCQ)
	s.Metrics[survey.TxRate] = fromSQLNullFloat(d.TxRate)
	s.Metrics[survey.RxRate] = fromSQLNullFloat(d.RxRate)
	s.Metrics[survey.Heading] = fromSQLNullFloat(d.Heading)

	s.Attributes[survey.Channel] = d.Channel
	s.Attributes[survey.Frequency] = d.Frequency
	s.Attributes[survey.OpMode] = d.OpMode

	return s
}

func (d *sessionData) toSession() (*Session, error) {
	importID, err := uuid.Parse(d.ImportID)
	if err != nil {
		return nil, fmt.Errorf("parsing import ID: %w", err)
	}

	sess := Session{
		ID:        d.ID,
		ImportID:  importID,
		StartTime: time.Unix(0, d.StartTime).UTC(),
		Source:    d.Source,
	}
	if d.Config.Valid {
		sess.Config = &d.Config.String
	}
	return &sess, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var data sessionData
	if err := row.Scan(&data.ID, &data.ImportID, &data.StartTime, &data.Source, &data.Config); err != nil {
		return nil, err
	}
	return data.toSession()
}
