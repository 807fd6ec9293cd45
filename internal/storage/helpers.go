package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roman-kulish/mozza-spectro/internal/sensors"
	"github.com/roman-kulish/mozza-spectro/internal/spectrum"
)

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

// rollbackWithError is deferred around commit paths: after a successful
// commit Rollback reports ErrTxDone, which is not a failure.
func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if rErr := rb.Rollback(); rErr != nil && !errors.Is(rErr, sql.ErrTxDone) && *err == nil {
		*err = rErr
	}
}

func toSensorReadingData(sessionID int64, r *sensors.Readings) *sensorReadingData {
	return &sensorReadingData{
		SessionID: sessionID,
		Timestamp: r.Timestamp.UTC(),

		CrystalTempC: sql.NullFloat64{
			Float64: toSQLNullType[float64](r.CrystalTempC),
			Valid:   r.CrystalTempC != nil,
		},
		BoardTempC: sql.NullFloat64{
			Float64: toSQLNullType[float64](r.BoardTempC),
			Valid:   r.BoardTempC != nil,
		},
		RFPowerW: sql.NullFloat64{
			Float64: toSQLNullType[float64](r.RFPowerW),
			Valid:   r.RFPowerW != nil,
		},
	}
}

func toSpectrumData(sessionID int64, sensorID *int64, p spectrum.SpectralPoint, span *spectrum.SpectralSpan) *spectrumData {
	var intensity sql.NullFloat64
	if p.Intensity != nil {
		intensity.Float64 = *p.Intensity
		intensity.Valid = true
	}

	var sID sql.NullInt64
	if sensorID != nil {
		sID.Int64 = *sensorID
		sID.Valid = true
	}

	return &spectrumData{
		SessionID:   sessionID,
		Timestamp:   span.Timestamp.UTC(),
		Wavenumber:  p.Wavenumber,
		Intensity:   intensity,
		NumAverages: p.NumAverages,
		SensorID:    sID,
	}
}

func toSQLNullType[T float64 | int64, Y float64 | int | int64](f *Y) T {
	if f == nil {
		return 0
	}
	return T(*f)
}

// sqliteDatetime scans datetime values that MIN/MAX aggregates return as
// plain strings instead of time.Time.
type sqliteDatetime struct {
	Datetime time.Time
}

func (d *sqliteDatetime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		d.Datetime = v
		return nil

	case string:
		for _, layout := range []string{"2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05", time.RFC3339Nano} {
			if t, err := time.Parse(layout, v); err == nil {
				d.Datetime = t
				return nil
			}
		}
		return fmt.Errorf("parsing datetime %q", v)

	case []byte:
		return d.Scan(string(v))

	default:
		return fmt.Errorf("unsupported datetime type %T", src)
	}
}
