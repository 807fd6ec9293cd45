package app

import (
	"context"
	"fmt"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"time"

	"github.com/roman-kulish/mozza-spectro/internal/storage"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	if _, err := os.Stat(config.DBPath); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("database file '%s' does not exist: %w", config.DBPath, err)
	}

	store := storage.New(config.DBPath)
	defer store.Close()

	return renderSpectra(ctx, store, config, logger)
}

func renderSpectra(ctx context.Context, store *storage.Store, config *Config, logger *slog.Logger) error {
	var opts []storage.ReaderOption
	var filters []any
	switch {
	case config.MinWavenumber != nil && config.MaxWavenumber != nil:
		opts = append(opts, storage.WithWavenumberRange(*config.MinWavenumber, *config.MaxWavenumber))

		filters = append(filters,
			slog.String("minWn", fmt.Sprintf("%0.1f cm-1", *config.MinWavenumber)),
			slog.String("maxWn", fmt.Sprintf("%0.1f cm-1", *config.MaxWavenumber)))

	case config.MinWavenumber != nil:
		opts = append(opts, storage.WithMinWavenumber(*config.MinWavenumber))
		filters = append(filters, slog.String("minWn", fmt.Sprintf("%0.1f cm-1", *config.MinWavenumber)))

	case config.MaxWavenumber != nil:
		opts = append(opts, storage.WithMaxWavenumber(*config.MaxWavenumber))
		filters = append(filters, slog.String("maxWn", fmt.Sprintf("%0.1f cm-1", *config.MaxWavenumber)))
	}

	switch {
	case config.MinTimestamp != nil && config.MaxTimestamp != nil:
		opts = append(opts, storage.WithTimeRange(config.MinTimestamp.UTC(), config.MaxTimestamp.UTC()))

		filters = append(filters,
			slog.String("minTimestamp", config.MinTimestamp.UTC().Format(time.DateTime)),
			slog.String("maxTimestamp", config.MaxTimestamp.UTC().Format(time.DateTime)))

	case config.MinTimestamp != nil:
		opts = append(opts, storage.WithStartTime(config.MinTimestamp.UTC()))
		filters = append(filters, slog.String("minTimestamp", config.MinTimestamp.UTC().Format(time.DateTime)))

	case config.MaxTimestamp != nil:
		opts = append(opts, storage.WithEndTime(config.MaxTimestamp.UTC()))
		filters = append(filters, slog.String("maxTimestamp", config.MaxTimestamp.UTC().Format(time.DateTime)))
	}

	logger.Info("reader configuration", filters...)

	iter, err := store.ReadSpectra(ctx, config.SessionID, opts...)
	if err != nil {
		return err
	}
	defer iter.Close()

	logger.Info("reading spectra, hold on tight, it may take a while")

	spec := NewSpectrumData(NewSmoothBounds(0.3))
	for iter.Next(ctx) {
		spec.Update(iter.Current())
	}
	if err = iter.Error(); err != nil {
		return err
	}
	if spec.Height == 0 {
		return fmt.Errorf("session %d has no spectra matching the filters", config.SessionID)
	}

	bounds := spec.BoundsTracker.Current()

	logger.Info("finished reading spectra",
		slog.Group("stats",
			slog.String("minTimestamp", spec.TimestampStart.Local().Format(time.DateTime)),
			slog.String("maxTimestamp", spec.TimestampEnd.Local().Format(time.DateTime)),
			slog.String("minWn", fmt.Sprintf("%0.1f cm-1", spec.WavenumberMin)),
			slog.String("maxWn", fmt.Sprintf("%0.1f cm-1", spec.WavenumberMax)),
			slog.String("minIntensity", fmt.Sprintf("%0.2f dB", bounds.Min)),
			slog.String("maxIntensity", fmt.Sprintf("%0.2f dB", bounds.Max)),
		))

	renderer, err := NewSpectrumRenderer(RenderConfig{
		Location:      config.TimeZone,
		ColorTheme:    config.Theme,
		FontPath:      config.FontPath,
		NoAnnotations: config.NoAnnotations,
	})
	if err != nil {
		return fmt.Errorf("creating spectrum renderer: %w", err)
	}

	logger.Info("rendering spectra",
		slog.Group("image",
			slog.String("destination", config.OutputFile),
			slog.String("format", string(config.Format)),
			slog.String("theme", string(config.Theme)),
			slog.Int("width", spec.Width),
			slog.Int("height", spec.Height),
		))

	img, err := renderer.Render(spec)
	if err != nil {
		return fmt.Errorf("rendering spectra: %w", err)
	}

	out, err := os.Create(config.OutputFile)
	if err != nil {
		return err
	}
	defer out.Close()

	switch config.Format {
	case ImagePNG:
		err = png.Encode(out, img)

	case ImageJPEG:
		err = jpeg.Encode(out, img, &jpeg.Options{
			Quality: 98,
		})
	}
	return err
}
