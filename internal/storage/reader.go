package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roman-kulish/mozza-spectro/internal/spectrum"
)

// ReaderOption configures a SpectrumReader with specific filtering
// criteria.
type ReaderOption func(*SpectrumReader)

// WithMinWavenumber sets the minimum wavenumber filter for the reader.
// Points below this value will be excluded.
func WithMinWavenumber(wn float64) ReaderOption {
	return func(r *SpectrumReader) {
		r.minWavenumber = &wn
	}
}

// WithMaxWavenumber sets the maximum wavenumber filter for the reader.
// Points above this value will be excluded.
func WithMaxWavenumber(wn float64) ReaderOption {
	return func(r *SpectrumReader) {
		r.maxWavenumber = &wn
	}
}

// WithWavenumberRange sets both minimum and maximum wavenumber filters.
func WithWavenumberRange(minWn, maxWn float64) ReaderOption {
	return func(r *SpectrumReader) {
		r.minWavenumber = &minWn
		r.maxWavenumber = &maxWn
	}
}

// WithStartTime sets the start time filter for the reader. Spectra
// acquired before this time will be excluded.
func WithStartTime(t time.Time) ReaderOption {
	return func(r *SpectrumReader) {
		r.startTime = &t
	}
}

// WithEndTime sets the end time filter for the reader. Spectra acquired
// after this time will be excluded.
func WithEndTime(t time.Time) ReaderOption {
	return func(r *SpectrumReader) {
		r.endTime = &t
	}
}

// WithTimeRange sets both start and end time filters.
func WithTimeRange(startTime, endTime time.Time) ReaderOption {
	return func(r *SpectrumReader) {
		r.startTime = &startTime
		r.endTime = &endTime
	}
}

func newSpectrumReader(ctx context.Context, db *sql.DB, sessionID int64, opts ...ReaderOption) (*SpectrumReader, error) {
	sr := &SpectrumReader{
		db:        db,
		sessionID: sessionID,
	}
	for _, opt := range opts {
		opt(sr)
	}
	if err := sr.init(ctx); err != nil {
		return nil, fmt.Errorf("initializing reader: %w", err)
	}
	return sr, nil
}

// SpectrumReader provides iterator access to the spectra of one session,
// grouped into time-ordered spectral spans. One span corresponds to one
// acquisition timestamp.
type SpectrumReader struct {
	db *sql.DB

	sessionID int64
	session   *spectrum.ScanSession
	spanLen   int

	startTime     *time.Time // Optional start of time range filter
	endTime       *time.Time // Optional end of time range filter
	minWavenumber *float64   // Optional minimum wavenumber filter
	maxWavenumber *float64   // Optional maximum wavenumber filter

	currentSpan      *spectrum.SpectralSpan
	nextSample       spectrum.SpectralPoint
	nextSampleExists bool
	nextSpanStart    time.Time
	rows             *sql.Rows
	err              error
}

func (sr *SpectrumReader) init(ctx context.Context) error {
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
			return fmt.Errorf("%s: %w", s.msg, err)
		}
	}
	return nil
}

func (sr *SpectrumReader) loadSession(ctx context.Context) (err error) {
	stmt, err := sr.db.PrepareContext(ctx, selectSessionSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	var sess spectrum.ScanSession
	var config sql.NullString
	if err = stmt.QueryRowContext(ctx, sr.sessionID).Scan(&sess.ID, &sess.StartTime, &sess.DeviceType, &sess.DeviceID, &config); err != nil {
		return fmt.Errorf("querying session: %w", err)
	}
	if config.Valid {
		sess.Config = &config.String
	}

	sr.session = &sess
	return
}

func (sr *SpectrumReader) initFilters(ctx context.Context) (err error) {
	timeFiltersSet := sr.startTime != nil && sr.endTime != nil
	wnFiltersSet := sr.minWavenumber != nil && sr.maxWavenumber != nil

	if timeFiltersSet {
		if sr.startTime.After(*sr.endTime) {
			return fmt.Errorf("start time %s is after end time %s", sr.startTime, sr.endTime)
		}
	}
	if wnFiltersSet {
		if *sr.minWavenumber > *sr.maxWavenumber {
			return fmt.Errorf("min wavenumber %f is greater than max wavenumber %f", *sr.minWavenumber, *sr.maxWavenumber)
		}
	}
	if timeFiltersSet && wnFiltersSet {
		return nil
	}

	stmt, err := sr.db.PrepareContext(ctx, selectSpectraFilterValuesSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	var minWn, maxWn float64
	var startTime, endTime sqliteDatetime
	if err = stmt.QueryRowContext(ctx, sr.sessionID).Scan(&minWn, &maxWn, &startTime, &endTime); err != nil {
		return fmt.Errorf("scanning filters data: %w", err)
	}

	if sr.minWavenumber == nil {
		sr.minWavenumber = &minWn
	}
	if sr.maxWavenumber == nil {
		sr.maxWavenumber = &maxWn
	}
	if sr.startTime == nil {
		sr.startTime = &startTime.Datetime
	}
	if sr.endTime == nil {
		sr.endTime = &endTime.Datetime
	}

	return nil
}

func (sr *SpectrumReader) initQuery(ctx context.Context) (err error) {
	stmt, err := sr.db.PrepareContext(ctx, selectSpectraSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	if sr.rows, err = stmt.QueryContext(ctx, sr.sessionID, sr.startTime, sr.endTime, sr.minWavenumber, sr.maxWavenumber); err != nil {
		return err
	}
	return nil
}

func (sr *SpectrumReader) scanSample() (time.Time, spectrum.SpectralPoint, error) {
	var sample spectrumData
	var timestamp sqliteDatetime

	err := sr.rows.Scan(&timestamp, &sample.Wavenumber, &sample.Intensity, &sample.NumAverages)
	if err != nil {
		return time.Time{}, spectrum.SpectralPoint{}, fmt.Errorf("scanning spectrum point: %w", err)
	}

	var intensity *float64
	if sample.Intensity.Valid {
		intensity = &sample.Intensity.Float64
	}

	point := spectrum.SpectralPoint{
		Wavenumber:  sample.Wavenumber,
		Intensity:   intensity,
		NumAverages: sample.NumAverages,
	}
	return timestamp.Datetime, point, nil
}

func (sr *SpectrumReader) completeSpan() {
	last := sr.currentSpan.Samples[len(sr.currentSpan.Samples)-1]
	sr.currentSpan.WavenumberEnd = last.Wavenumber
}

// Session returns metadata about the acquisition session this reader is
// accessing.
func (sr *SpectrumReader) Session() *spectrum.ScanSession {
	return sr.session
}

// Next advances the iterator and returns true if there is another
// spectral span to read, false when the iteration is complete or an
// error occurred.
func (sr *SpectrumReader) Next(ctx context.Context) bool {
	if sr.err != nil || sr.rows == nil {
		return false
	}

	sr.currentSpan = nil

	if sr.nextSampleExists {
		sr.currentSpan = &spectrum.SpectralSpan{
			Timestamp:       sr.nextSpanStart,
			WavenumberStart: sr.nextSample.Wavenumber,
			Samples:         make([]spectrum.SpectralPoint, 0, sr.spanLen),
		}
		sr.currentSpan.Samples = append(sr.currentSpan.Samples, sr.nextSample)
		sr.nextSampleExists = false
	}

	for {
		select {
		case <-ctx.Done():
			sr.err = ctx.Err()
			return false
		default:
		}

		if !sr.rows.Next() {
			if sr.currentSpan != nil && len(sr.currentSpan.Samples) > 0 {
				sr.completeSpan()
				sr.rows = nil
				return true
			}
			return false
		}

		timestamp, sample, err := sr.scanSample()
		if err != nil {
			sr.err = err
			return false
		}

		// If no current span, start a new one
		if sr.currentSpan == nil {
			sr.currentSpan = &spectrum.SpectralSpan{
				Timestamp:       timestamp,
				WavenumberStart: sample.Wavenumber,
				Samples:         make([]spectrum.SpectralPoint, 0, sr.spanLen),
			}
			sr.currentSpan.Samples = append(sr.currentSpan.Samples, sample)
			continue
		}

		// Timestamp change marks the start of the next acquisition
		if !timestamp.Equal(sr.currentSpan.Timestamp) {
			sr.completeSpan()
			if sr.spanLen == 0 {
				sr.spanLen = len(sr.currentSpan.Samples)
			}

			sr.nextSample = sample
			sr.nextSampleExists = true
			sr.nextSpanStart = timestamp
			return true
		}

		sr.currentSpan.Samples = append(sr.currentSpan.Samples, sample)
	}
}

// Current returns the current spectral span in the iteration. If called
// after Next returns false, the behavior is undefined.
func (sr *SpectrumReader) Current() *spectrum.SpectralSpan {
	return sr.currentSpan
}

// Error returns any error that occurred during iteration.
func (sr *SpectrumReader) Error() error {
	if sr.err != nil {
		return sr.err
	}
	if sr.rows != nil {
		return sr.rows.Err()
	}
	return nil
}

// Close releases the database resources held by the reader. After Close
// the reader must not be used.
func (sr *SpectrumReader) Close() error {
	if sr.rows != nil {
		err := sr.rows.Close()
		sr.currentSpan = nil
		sr.nextSampleExists = false
		sr.rows = nil
		return err
	}
	return nil
}
