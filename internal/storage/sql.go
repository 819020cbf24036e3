package storage

import (
	_ "embed"
)

const (
	insertSessionSQL = `
INSERT INTO sessions (import_id,
                      start_time,
                      source,
                      config)
VALUES (?, ?, ?, ?)`

	deleteSamplesSQL = `
DELETE FROM samples
WHERE
    session_id = ?`

	deleteSessionSQL = `
DELETE FROM sessions
WHERE
    id = ?`

	selectSessionSQL = `
SELECT
    id,
    import_id,
    start_time,
    source,
    config
FROM sessions
WHERE
    id = ?`

	selectSessionsSQL = `
SELECT
    id,
    import_id,
    start_time,
    source,
    config
FROM sessions
ORDER BY start_time, id`

	// multi-row VALUES tuples are appended by StoreSamples
	insertSamplesSQL = `
INSERT INTO samples (session_id,
                     timestamp_ns,
                     latitude,
                     longitude,
                     wireless_signal,
                     wireless_noisef,
                     wireless_rssi,
                     wireless_txpower,
                     wireless_distance,
                     wireless_ccq,
                     wireless_txrate,
                     wireless_rxrate,
                     heading,
                     wireless_channel,
                     wireless_frequency,
                     wireless_opmode)
VALUES `

	selectFilterValuesSQL = `
SELECT
    COUNT(*),
    COALESCE(MIN(timestamp_ns), 0),
    COALESCE(MAX(timestamp_ns), 0),
    COALESCE(MIN(latitude), 0),
    COALESCE(MAX(latitude), 0),
    COALESCE(MIN(longitude), 0),
    COALESCE(MAX(longitude), 0)
FROM samples
WHERE
    session_id = ?`

	selectSamplesSQL = `
SELECT
    timestamp_ns,
    latitude,
    longitude,
    wireless_signal,
    wireless_noisef,
    wireless_rssi,
    wireless_txpower,
    wireless_distance,
    wireless_ccq,
    wireless_txrate,
    wireless_rxrate,
    heading,
    wireless_channel,
    wireless_frequency,
    wireless_opmode
FROM samples
WHERE
    session_id = ?
    AND timestamp_ns BETWEEN ? AND ?
    AND latitude BETWEEN ? AND ?
    AND longitude BETWEEN ? AND ?
ORDER BY timestamp_ns, id`
)

// sampleColumns is the number of bound values per row of insertSamplesSQL
const sampleColumns = 16

// maxRowsPerInsert keeps a single statement well below SQLite's host parameter limit
const maxRowsPerInsert = 1000

//go:embed schema.sql
var initSchemaSQL string

//go:embed indexes.sql
var initIndexesSQL string
