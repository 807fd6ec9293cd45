package storage

import (
	_ "embed"
)

const (
	insertSessionSQL = `
INSERT INTO sessions (
                      start_time,
                      device_type,
                      device_id,
                      config)
VALUES (CURRENT_TIMESTAMP, ?, ?, ?)`

	selectSessionSQL = `
SELECT
    id,
    start_time,
    device_type,
    device_id,
    config
FROM sessions
WHERE
    id = ?`

	selectSessionsSQL = `
SELECT
    id,
    start_time,
    device_type,
    device_id,
    config
FROM sessions
ORDER BY start_time`

	insertSensorReadingSQL = `
INSERT INTO sensor_readings (session_id,
                             timestamp,
                             crystal_temp_c,
                             board_temp_c,
                             rf_power_w)
VALUES (?, ?, ?, ?, ?)`

	selectSpectraSQL = `
SELECT
    timestamp,
    wavenumber,
    intensity,
    num_averages
FROM spectra
WHERE
    session_id = ?
	AND timestamp BETWEEN ? AND ?
  	AND wavenumber BETWEEN ? AND ?
ORDER BY timestamp, wavenumber`

	selectSpectraFilterValuesSQL = `
SELECT
    MIN(wavenumber),
    MAX(wavenumber),
    MIN(timestamp),
    MAX(timestamp)
FROM spectra
WHERE session_id = ?`
)

//go:embed schema.sql
var schemaSQL string
