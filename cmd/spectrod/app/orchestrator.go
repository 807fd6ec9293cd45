package app

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/roman-kulish/mozza-spectro/internal/sensors"
	"github.com/roman-kulish/mozza-spectro/internal/spectrum"
	"github.com/roman-kulish/mozza-spectro/internal/storage"
	"github.com/roman-kulish/mozza-spectro/internal/viewer"
)

const maxBatchSize = 500

// WithMaxBatchSize sets the maximum number of spectrum points to store
// within a single database transaction.
func WithMaxBatchSize(size int) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.maxBatchSize = size
	}
}

// WithInterval sets the time between grabs.
func WithInterval(interval time.Duration) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.interval = interval
	}
}

// WithNAverage sets the number of acquisitions averaged per grab.
func WithNAverage(n int) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.naverage = n
	}
}

// WithSensors enables periodic device health capture through the given
// provider.
func WithSensors(provider sensors.Provider, interval time.Duration) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.sensors = provider
		o.sensorInterval = interval
	}
}

// WithPublisher enables publishing of spectra and sensor readings over
// MQTT.
func WithPublisher(publisher *Publisher) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.publisher = publisher
	}
}

// Orchestrator owns the acquisition loop: it grabs averaged spectra from
// the detector adapter at a fixed interval, persists them, optionally
// captures device sensor readings alongside and publishes both over
// MQTT. An empty grab is a skipped cycle, not an error.
type Orchestrator struct {
	detector  viewer.Detector
	store     *storage.Store
	logger    *slog.Logger
	publisher *Publisher
	sensors   sensors.Provider

	deviceType string
	deviceID   string
	config     any

	interval       time.Duration
	sensorInterval time.Duration
	naverage       int
	maxBatchSize   int
}

// NewOrchestrator creates a new Orchestrator
func NewOrchestrator(detector viewer.Detector, store *storage.Store, logger *slog.Logger, options ...func(*Orchestrator)) *Orchestrator {
	o := Orchestrator{
		detector:     detector,
		store:        store,
		logger:       logger,
		interval:     time.Second,
		naverage:     1,
		maxBatchSize: maxBatchSize,
	}

	for _, option := range options {
		option(&o)
	}

	return &o
}

// SetSession sets the device identity and configuration recorded with
// the acquisition session.
func (o *Orchestrator) SetSession(deviceType, deviceID string, config any) {
	o.deviceType = deviceType
	o.deviceID = deviceID
	o.config = config
}

// Run begins the acquisition loop and blocks until the context is
// cancelled.
func (o *Orchestrator) Run(ctx context.Context) error {
	sessionID, err := o.store.CreateSession(ctx, o.deviceType, o.deviceID, o.config)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}

	o.logger.Info("acquisition started",
		slog.Int64("session", sessionID),
		slog.Duration("interval", o.interval),
		slog.Int("naverage", o.naverage))

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	var sensorC <-chan time.Time
	if o.sensors != nil {
		sensorTicker := time.NewTicker(o.sensorInterval)
		defer sensorTicker.Stop()
		sensorC = sensorTicker.C
	}

	var lastSensorID *int64
	var lastReading *sensors.Readings

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("acquisition stopped", slog.Int64("session", sessionID))
			return nil

		case <-sensorC:
			if id, reading := o.captureSensors(ctx, sessionID); id != nil {
				lastSensorID, lastReading = id, reading
			}

		case <-ticker.C:
			export := o.detector.GrabData(o.naverage)
			if export.Empty() {
				o.logger.Debug("acquisition cycle skipped")
				continue
			}

			if o.sensors != nil && lastSensorID == nil {
				// Grab one reading up front so the first spectra are
				// not left unannotated.
				lastSensorID, lastReading = o.captureSensors(ctx, sessionID)
			}

			span := exportToSpan(export, time.Now().UTC(), lastReading)

			if err := o.storeSpan(ctx, sessionID, lastSensorID, span); err != nil {
				o.logger.Error(err.Error())
			}

			if o.publisher != nil {
				if err := o.publisher.PublishJSON("spectra", span); err != nil {
					o.logger.Error("publishing spectrum failed", "error", err)
				}
			}
		}
	}
}

func (o *Orchestrator) captureSensors(ctx context.Context, sessionID int64) (*int64, *sensors.Readings) {
	reading := o.sensors.Get()
	if reading == nil {
		return nil, nil
	}

	id, err := o.store.StoreSensorReading(ctx, sessionID, reading)
	if err != nil {
		o.logger.Error("storing sensor reading failed", "error", err)
		return nil, nil
	}

	if o.publisher != nil {
		if err := o.publisher.PublishJSON("sensors", reading); err != nil {
			o.logger.Error("publishing sensor reading failed", "error", err)
		}
	}
	return &id, reading
}

func (o *Orchestrator) storeSpan(ctx context.Context, sessionID int64, sensorID *int64, span *spectrum.SpectralSpan) error {
	for chunk := range slices.Chunk(span.Samples, o.maxBatchSize) {
		part := &spectrum.SpectralSpan{
			Timestamp:       span.Timestamp,
			WavenumberStart: span.WavenumberStart,
			WavenumberEnd:   span.WavenumberEnd,
			Samples:         chunk,
		}
		if err := o.store.StoreSpectralSpan(ctx, sessionID, sensorID, part); err != nil {
			return fmt.Errorf("storing spectrum: %w", err)
		}
	}
	return nil
}

// exportToSpan converts a detector data export into a storable spectral
// span, annotated with the most recent sensor reading when one exists.
// For 1D exports the first axis carries the wavenumber table; 0D
// intensity samples are stored as single zero-wavenumber points.
func exportToSpan(export *viewer.DataToExport, timestamp time.Time, reading *sensors.Readings) *spectrum.SpectralSpan {
	data := export.Data[0]

	span := spectrum.SpectralSpan{
		Timestamp: timestamp,
		Sensors:   reading,
		Samples:   make([]spectrum.SpectralPoint, 0, len(data.Data[0])),
	}

	var axis []float64
	if len(data.Axes) > 0 {
		axis = data.Axes[0].Data
	}

	for i, v := range data.Data[0] {
		intensity := v
		point := spectrum.SpectralPoint{
			Intensity:   &intensity,
			NumAverages: data.Averages,
		}
		if i < len(axis) {
			point.Wavenumber = axis[i]
		}
		span.Samples = append(span.Samples, point)
	}

	if len(span.Samples) > 0 {
		span.WavenumberStart = span.Samples[0].Wavenumber
		span.WavenumberEnd = span.Samples[len(span.Samples)-1].Wavenumber
	}
	return &span
}
