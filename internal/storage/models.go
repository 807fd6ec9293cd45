package storage

import (
	"database/sql"
	"time"
)

type spectrumData struct {
	ID          int64
	SessionID   int64
	Timestamp   time.Time
	Wavenumber  float64
	Intensity   sql.NullFloat64
	NumAverages int
	SensorID    sql.NullInt64
}

type sensorReadingData struct {
	ID           int64
	SessionID    int64
	Timestamp    time.Time
	CrystalTempC sql.NullFloat64
	BoardTempC   sql.NullFloat64
	RFPowerW     sql.NullFloat64
}
