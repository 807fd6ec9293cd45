package spectro

import (
	"io"
	"log/slog"
)

// Window is an inclusive acquisition pixel window [Start, Stop] over
// the device spectral axis, covering Stop-Start+1 pixels. A valid
// window satisfies 0 <= Start < Stop < npixels.
type Window struct {
	Start int
	Stop  int
}

// Backend is the contract every spectrometer backend must satisfy.
// Backends translate these calls into vendor SDK command sequences and
// must not be used directly for acquisition; acquisitions go through
// Device.MakeAcquisition.
type Backend interface {
	// Connect opens the device with the given discovery identifier
	// (e.g. "Mozza#12") and initializes the spectral axis.
	Connect(serial string) error
	Disconnect() error

	// SetExposure sets the exposure time in seconds. Backends without a
	// configurable exposure accept and report zero.
	SetExposure(seconds float64) error
	Exposure() (float64, error)

	SetExternalTrigger(on bool) error
	ExternalTrigger() bool

	// AcquireSpectrum runs a single acquisition over the given window.
	// A (nil, nil) return means the cycle was dropped because another
	// acquisition was in flight; callers must tolerate no data this cycle.
	AcquireSpectrum(w Window, background bool) ([]float64, error)

	NPixels() int
	Lambdas() []float64
	Connected() bool
	Serial() string
	Units() SpectralUnits
}

// WithLogger sets the logger for the device
func WithLogger(logger *slog.Logger) func(d *Device) {
	return func(d *Device) {
		d.logger = logger.With(slog.String("serial", d.backend.Serial()))
	}
}

// Device wraps a Backend and provides the single externally callable
// acquisition entry point. It caches the last resolved window and the
// last acquired spectrum.
type Device struct {
	backend Backend

	window   Window
	spectrum []float64

	logger *slog.Logger
}

// NewDevice creates a new Device instance with a discard logger
func NewDevice(b Backend, options ...func(d *Device)) *Device {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // nil logger

	d := Device{
		backend: b,
		logger:  logger,
	}

	for _, option := range options {
		option(&d)
	}

	return &d
}

// MakeAcquisition acquires spectral intensities over the inclusive
// pixel window [start, stop] and caches the result until the next
// call. Negative indices are resolved
// relative to the backend's pixel count, Python-slice style: a negative
// value means npixels+value. The call blocks for the duration of the
// acquisition; a no-op when the backend is not connected.
func (d *Device) MakeAcquisition(start, stop int, background bool) error {
	if !d.backend.Connected() {
		return nil
	}

	npixels := d.backend.NPixels()
	if stop < 0 {
		stop += npixels
	}
	if start < 0 {
		start += npixels
	}
	if start < 0 || start >= stop || stop >= npixels {
		return &RangeError{Start: start, Stop: stop, NPixels: npixels}
	}

	d.window = Window{Start: start, Stop: stop}
	d.logger.Debug("starting acquisition",
		slog.Int("start", start),
		slog.Int("stop", stop),
		slog.Bool("background", background))

	spectrum, err := d.backend.AcquireSpectrum(d.window, background)
	if err != nil {
		return err
	}

	d.spectrum = spectrum
	return nil
}

// Spectrum returns the spectral intensities of the last acquisition,
// or nil if the last cycle was dropped.
func (d *Device) Spectrum() []float64 {
	return d.spectrum
}

// Window returns the last resolved acquisition window.
func (d *Device) Window() Window {
	return d.window
}

// Lambdas returns the spectral coordinate array in nm corresponding to
// the spectral intensities.
func (d *Device) Lambdas() []float64 {
	return d.backend.Lambdas()
}

// Backend returns the wrapped device backend for settings access.
func (d *Device) Backend() Backend {
	return d.backend
}
