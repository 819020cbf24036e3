package storage

import (
	"database/sql"
)

type sessionData struct {
	ID        int64
	ImportID  string
	StartTime int64
	Source    string
	Config    sql.NullString
}

type sampleData struct {
	SessionID   int64
	TimestampNs int64
	Latitude    float64
	Longitude   float64
	Signal      sql.NullFloat64
	Noise       sql.NullFloat64
	RSSI        sql.NullFloat64
	TxPower     sql.NullFloat64
	Distance    sql.NullFloat64
	CCQ         sql.NullFloat64
	TxRate      sql.NullFloat64
	RxRate      sql.NullFloat64
	Heading     sql.NullFloat64
	Channel     string
	Frequency   string
	OpMode      string
}
