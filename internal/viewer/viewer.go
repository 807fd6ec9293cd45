// Package viewer adapts spectrometer devices to the host detector-plugin
// contract: synchronous init, grab, settings and shutdown calls producing
// labeled 0D/1D data exports. Adapters report backend failures through
// the logger; a failed or dropped acquisition cycle contributes nothing
// to the averaged export.
package viewer

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roman-kulish/mozza-spectro/internal/spectro"
)

// Detector is the host-facing lifecycle of a detector plugin.
type Detector interface {
	// IniDetector connects the underlying device and returns a short
	// status line for the host UI.
	IniDetector() (string, error)

	// GrabData acquires naverage spectra and returns their average as a
	// data export. An empty export means every cycle was dropped.
	GrabData(naverage int) *DataToExport

	// CommitSettings applies one changed setting to the device.
	CommitSettings(p Param) error

	// Stop aborts an ongoing grab, if the backend supports aborting.
	Stop() error

	// Close disconnects the underlying device.
	Close() error
}

// rawAcquirer is the optional backend capability behind raw mode:
// one blocking acquisition returning the separated channel samples.
type rawAcquirer interface {
	AcquireRaw() (signal, reference []float64, err error)
}

// adapter carries the state shared by the 0D and 1D detector adapters.
type adapter struct {
	dev    *spectro.Device
	serial string
	logger *slog.Logger

	start, stop int // acquisition window in pixels; stop -1 selects the axis end
	raw         bool
}

// Option configures a detector adapter.
type Option func(*adapter)

// WithLogger sets the logger for grab-cycle diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(a *adapter) {
		a.logger = logger
	}
}

// WithWindow sets the acquisition window in pixel indices. Negative
// indices select from the end of the calibration axis.
func WithWindow(start, stop int) Option {
	return func(a *adapter) {
		a.start = start
		a.stop = stop
	}
}

func newAdapter(dev *spectro.Device, serial string, opts []Option) adapter {
	a := adapter{
		dev:    dev,
		serial: serial,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		stop:   -1,
	}
	for _, opt := range opts {
		opt(&a)
	}
	return a
}

func (a *adapter) iniDetector() (string, error) {
	b := a.dev.Backend()
	if err := b.Connect(a.serial); err != nil {
		return "", fmt.Errorf("initializing detector: %w", err)
	}
	return fmt.Sprintf("%s: %d pixels, %s axis", b.Serial(), b.NPixels(), b.Units().Quantity()), nil
}

// average runs naverage acquisition cycles and accumulates the spectra
// that survive the backend's drop policy. It returns the averaged
// spectrum and the number of cycles that contributed.
func (a *adapter) average(naverage int) ([]float64, int) {
	if naverage < 1 {
		naverage = 1
	}

	var sum []float64
	var n int

	for i := 0; i < naverage; i++ {
		if err := a.dev.MakeAcquisition(a.start, a.stop, false); err != nil {
			a.logger.Error("acquisition failed", "cycle", i, "error", err)
			continue
		}

		sp := a.dev.Spectrum()
		if sp == nil {
			a.logger.Debug("acquisition cycle dropped", "cycle", i)
			continue
		}

		if sum == nil {
			sum = make([]float64, len(sp))
		}
		if len(sp) != len(sum) {
			a.logger.Error("spectrum length changed mid-grab", "want", len(sum), "got", len(sp))
			continue
		}
		for j, x := range sp {
			sum[j] += x
		}
		n++
	}

	if n == 0 {
		return nil, 0
	}
	for j := range sum {
		sum[j] /= float64(n)
	}
	return sum, n
}

// axis builds the spectral axis for an n-point export in the backend's
// native units.
func (a *adapter) axis(n int) Axis {
	units := a.dev.Backend().Units()
	axis := Axis{
		Label: units.Quantity(),
		Units: units.Label(),
	}

	if wt, ok := a.dev.Backend().(interface{ Wavenumbers() []float64 }); ok && units == spectro.UnitsInverseCentimeters {
		if wnums := wt.Wavenumbers(); len(wnums) == n {
			axis.Data = wnums
			return axis
		}
	}

	w := a.dev.Window()
	lambdas := a.dev.Lambdas()
	if w.Start < 0 || w.Stop >= len(lambdas) || w.Stop-w.Start+1 != n {
		return axis
	}

	axis.Data = make([]float64, n)
	for i := 0; i < n; i++ {
		v := lambdas[w.Start+i]
		if units == spectro.UnitsInverseCentimeters {
			v = spectro.WavelengthToWavenumber(v)
		}
		axis.Data[i] = v
	}
	return axis
}

func (a *adapter) commitSettings(p Param) error {
	b := a.dev.Backend()

	switch p.Name {
	case "exposure":
		v, ok := p.Value.(float64)
		if !ok {
			return fmt.Errorf("viewer: exposure: expected float64, got %T", p.Value)
		}
		return b.SetExposure(v)

	case "external_trigger":
		v, ok := p.Value.(bool)
		if !ok {
			return fmt.Errorf("viewer: external_trigger: expected bool, got %T", p.Value)
		}
		return b.SetExternalTrigger(v)

	case "window_start":
		v, ok := p.Value.(int)
		if !ok {
			return fmt.Errorf("viewer: window_start: expected int, got %T", p.Value)
		}
		a.start = v
		return nil

	case "window_stop":
		v, ok := p.Value.(int)
		if !ok {
			return fmt.Errorf("viewer: window_stop: expected int, got %T", p.Value)
		}
		a.stop = v
		return nil

	case "rf_attenuation":
		v, ok := p.Value.(float64)
		if !ok {
			return fmt.Errorf("viewer: rf_attenuation: expected float64, got %T", p.Value)
		}
		rf, ok := b.(interface{ SetRFAttenuation(db float64) error })
		if !ok {
			return fmt.Errorf("viewer: rf_attenuation: not supported by %s", b.Serial())
		}
		return rf.SetRFAttenuation(v)

	case "amplitude_correction":
		v, ok := p.Value.(bool)
		if !ok {
			return fmt.Errorf("viewer: amplitude_correction: expected bool, got %T", p.Value)
		}
		ac, ok := b.(interface{ SetAmplitudeCorrection(on bool) })
		if !ok {
			return fmt.Errorf("viewer: amplitude_correction: not supported by %s", b.Serial())
		}
		ac.SetAmplitudeCorrection(v)
		return nil

	case "raw_mode":
		v, ok := p.Value.(bool)
		if !ok {
			return fmt.Errorf("viewer: raw_mode: expected bool, got %T", p.Value)
		}
		if _, ok := b.(rawAcquirer); !ok {
			return fmt.Errorf("viewer: raw_mode: not supported by %s", b.Serial())
		}
		a.raw = v
		return nil

	case "measure_offsets":
		v, ok := p.Value.(bool)
		if !ok {
			return fmt.Errorf("viewer: measure_offsets: expected bool, got %T", p.Value)
		}
		if !v {
			return nil
		}
		mo, ok := b.(interface {
			MeasureOffsets() (signal, reference float64, err error)
		})
		if !ok {
			return fmt.Errorf("viewer: measure_offsets: not supported by %s", b.Serial())
		}
		signal, reference, err := mo.MeasureOffsets()
		if err != nil {
			return err
		}
		a.logger.Info("measured channel offsets", "signal", signal, "reference", reference)
		return nil

	case "auto_params":
		v, ok := p.Value.([]int)
		if !ok || len(v) != 2 {
			return fmt.Errorf("viewer: auto_params: expected [triggerToLaserUs, acquisitionTimeUs], got %v", p.Value)
		}
		ap, ok := b.(interface {
			SetAutoParams(triggerToLaserUs, acquisitionTimeUs int) error
		})
		if !ok {
			return fmt.Errorf("viewer: auto_params: not supported by %s", b.Serial())
		}
		return ap.SetAutoParams(v[0], v[1])

	default:
		a.logger.Warn("ignoring unknown setting", "param", p.Name)
		return nil
	}
}

func (a *adapter) stopGrab() error {
	// Overlapping grabs are discarded by the backend drop policy; there
	// is nothing to abort.
	return nil
}

// grabRaw runs one raw acquisition, exporting the separated signal and
// reference channels as two traces of a single data block.
func (a *adapter) grabRaw() *DataToExport {
	ra, ok := a.dev.Backend().(rawAcquirer)
	if !ok {
		return &DataToExport{Name: a.serial}
	}

	signal, reference, err := ra.AcquireRaw()
	if err != nil {
		a.logger.Error("raw acquisition failed", "error", err)
		return &DataToExport{Name: a.serial}
	}
	if signal == nil {
		a.logger.Debug("raw acquisition dropped")
		return &DataToExport{Name: a.serial}
	}

	return &DataToExport{
		Name: a.serial,
		Data: []DataFromPlugins{{
			Name:     "Raw",
			Dim:      Data1D,
			Data:     [][]float64{signal, reference},
			Averages: 1,
		}},
	}
}

func (a *adapter) close() error {
	return a.dev.Backend().Disconnect()
}

// Viewer1D exports averaged spectra with the spectral axis attached.
type Viewer1D struct {
	adapter
}

// NewViewer1D creates a 1D detector adapter for the device identified by
// serial.
func NewViewer1D(dev *spectro.Device, serial string, opts ...Option) *Viewer1D {
	return &Viewer1D{adapter: newAdapter(dev, serial, opts)}
}

func (v *Viewer1D) IniDetector() (string, error) { return v.iniDetector() }
func (v *Viewer1D) CommitSettings(p Param) error { return v.commitSettings(p) }
func (v *Viewer1D) Stop() error                  { return v.stopGrab() }
func (v *Viewer1D) Close() error                 { return v.close() }

func (v *Viewer1D) GrabData(naverage int) *DataToExport {
	if v.raw {
		return v.grabRaw()
	}

	avg, n := v.average(naverage)
	if n == 0 {
		return &DataToExport{Name: v.serial}
	}

	return &DataToExport{
		Name: v.serial,
		Data: []DataFromPlugins{{
			Name:     "Spectrum",
			Dim:      Data1D,
			Data:     [][]float64{avg},
			Axes:     []Axis{v.axis(len(avg))},
			Averages: n,
		}},
	}
}

// Viewer0D exports the mean intensity of each averaged spectrum as a
// single 0D sample.
type Viewer0D struct {
	adapter
}

// NewViewer0D creates a 0D detector adapter for the device identified by
// serial.
func NewViewer0D(dev *spectro.Device, serial string, opts ...Option) *Viewer0D {
	return &Viewer0D{adapter: newAdapter(dev, serial, opts)}
}

func (v *Viewer0D) IniDetector() (string, error) { return v.iniDetector() }
func (v *Viewer0D) CommitSettings(p Param) error { return v.commitSettings(p) }
func (v *Viewer0D) Stop() error                  { return v.stopGrab() }
func (v *Viewer0D) Close() error                 { return v.close() }

func (v *Viewer0D) GrabData(naverage int) *DataToExport {
	avg, n := v.average(naverage)
	if n == 0 {
		return &DataToExport{Name: v.serial}
	}

	var mean float64
	for _, x := range avg {
		mean += x
	}
	mean /= float64(len(avg))

	return &DataToExport{
		Name: v.serial,
		Data: []DataFromPlugins{{
			Name:     "Intensity",
			Dim:      Data0D,
			Data:     [][]float64{{mean}},
			Averages: n,
		}},
	}
}
