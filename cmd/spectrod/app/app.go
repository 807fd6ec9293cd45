package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/mozza-spectro/internal/sensors"
	"github.com/roman-kulish/mozza-spectro/internal/spectro"
	"github.com/roman-kulish/mozza-spectro/internal/spectro/mozza"
	"github.com/roman-kulish/mozza-spectro/internal/spectro/mozza/libmozza"
	"github.com/roman-kulish/mozza-spectro/internal/storage"
	"github.com/roman-kulish/mozza-spectro/internal/viewer"
)

const (
	storageDir = "data"
)

// Run wires the device, detector adapter, storage and publisher together
// and drives the acquisition loop until the context is cancelled.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	store, dbPath, err := createStorage(&config.Storage)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}
	defer store.Close()

	sdk := libmozza.New()
	defer sdk.Free()

	dev := mozza.New(sdk,
		mozza.WithLogger(logger),
		mozza.WithCorrectionDir(config.Device.CorrectionDir))

	det, err := createDetector(dev, config, logger)
	if err != nil {
		return err
	}

	info, err := det.IniDetector()
	if err != nil {
		return fmt.Errorf("failed to initialize detector: %w", err)
	}
	defer func() {
		if cErr := det.Close(); cErr != nil {
			logger.Error("failed to close detector", "error", cErr)
		}
	}()

	logger.Info("detector initialized", slog.String("detector", info))

	if err = dev.Configure(&config.Device); err != nil {
		return fmt.Errorf("failed to configure device: %w", err)
	}

	if config.Device.ExternalTrigger {
		if freq, fErr := dev.ExtTriggerFrequency(); fErr != nil {
			logger.Warn("external trigger frequency unavailable", "error", fErr)
		} else {
			logger.Info("external trigger detected", slog.String("frequency", fmt.Sprintf("%.1f Hz", freq)))
		}
	}

	options := []func(*Orchestrator){
		WithInterval(time.Duration(config.Acquisition.Interval)),
		WithNAverage(config.Acquisition.NAverage),
	}
	if config.Storage.MaxBatchSize > 0 {
		options = append(options, WithMaxBatchSize(config.Storage.MaxBatchSize))
	}
	if config.Sensors.Enabled {
		options = append(options, WithSensors(
			&deviceSensors{dev: dev, logger: logger},
			time.Duration(config.Sensors.Interval)))
	}

	if config.MQTT.Enabled {
		publisher, err := NewPublisher(&config.MQTT)
		if err != nil {
			return fmt.Errorf("failed to create publisher: %w", err)
		}
		defer publisher.Close()

		options = append(options, WithPublisher(publisher))
	}

	orc := NewOrchestrator(det, store, logger, options...)
	orc.SetSession(mozza.DeviceName, config.Device.Serial, &config.Device)

	if err = orc.Run(ctx); err != nil {
		return err
	}

	if stat, sErr := os.Stat(dbPath); sErr == nil {
		logger.Info("session database written",
			slog.String("path", dbPath),
			slog.String("size", humanize.Bytes(uint64(stat.Size()))))
	}
	return nil
}

func createDetector(dev *mozza.Device, config *Config, logger *slog.Logger) (viewer.Detector, error) {
	device := spectro.NewDevice(dev, spectro.WithLogger(logger))

	opts := []viewer.Option{
		viewer.WithLogger(logger),
		viewer.WithWindow(config.Acquisition.WindowStart, config.Acquisition.WindowStop),
	}

	switch config.Acquisition.Mode {
	case ModeViewer0D:
		return viewer.NewViewer0D(device, config.Device.Serial, opts...), nil
	case ModeViewer1D:
		return viewer.NewViewer1D(device, config.Device.Serial, opts...), nil
	default:
		return nil, fmt.Errorf("unknown acquisition mode '%s'", config.Acquisition.Mode)
	}
}

func createStorage(config *StorageConfig) (*storage.Store, string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get current working directory: %w", err)
	}

	var dbPath string
	if config.DataDirectory != "" {
		dbPath = filepath.Join(wd, config.DataDirectory)
	} else {
		dbPath = filepath.Join(wd, storageDir)
	}

	stat, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("storage directory '%s' does not exist: %w", dbPath, err)
		}
		return nil, "", fmt.Errorf("checking storage directory '%s': %w", dbPath, err)
	}
	if !stat.IsDir() {
		return nil, "", fmt.Errorf("invalid storage directory '%s'", dbPath)
	}

	dbPath = filepath.Join(dbPath, fmt.Sprintf("mozza_session_%s.sqlite", time.Now().UTC().Format("20060102_150405")))
	return storage.New(dbPath), dbPath, nil
}

// deviceSensors adapts the device sensor read to the sensors.Provider
// contract. Read failures are logged and yield a nil reading.
type deviceSensors struct {
	dev    *mozza.Device
	logger *slog.Logger
}

func (s *deviceSensors) Get() *sensors.Readings {
	r, err := s.dev.Sensors()
	if err != nil {
		s.logger.Warn("sensor read failed", "error", err)
		return nil
	}
	return r
}
