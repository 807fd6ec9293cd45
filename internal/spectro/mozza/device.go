package mozza

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/roman-kulish/mozza-spectro/internal/sensors"
	"github.com/roman-kulish/mozza-spectro/internal/spectro"
)

const (
	// DeviceName prefixes discovery identifiers: "Mozza#<serial>"
	DeviceName = "Mozza"

	// Factory calibration limits of the wavenumber axis, cm^-1
	calibrationMinWavenumber = 2000.0
	calibrationMaxWavenumber = 12500.0

	// Spectral resolution of the calibration axis, cm^-1 per pixel
	resolutionCm = 3.0

	// Raw payload bytes produced per table point per trigger
	rawBytesPerPoint = 64

	// Longest acceptable single blocking SDK read; anything above this
	// is read in bounded chunks
	maxBlockingRead = time.Second

	// Settle time between arming the device and the first raw read
	rawSettleDelay = 50 * time.Millisecond
)

// WithLogger sets the logger for the device
func WithLogger(logger *slog.Logger) func(d *Device) {
	return func(d *Device) {
		d.logger = logger.With(slog.String("device", DeviceName))
	}
}

// WithCorrectionDir sets the directory searched for per-serial amplitude
// correction files. Defaults to the working directory.
func WithCorrectionDir(dir string) func(d *Device) {
	return func(d *Device) {
		d.correctionDir = dir
	}
}

// Device is the Mozza spectrometer backend. It owns the SDK handle and
// the raw acquisition buffer exclusively; a single mutex serializes SDK
// command sequences across table loads, offset measurements and
// acquisitions. Acquisition requests arriving while the lock is held are
// dropped, not queued.
type Device struct {
	sdk    SDK
	logger *slog.Logger

	lambdas   []float64
	npixels   int
	connected bool
	serial    string
	serialNum int

	acqParams     AcquisitionParams
	procParams    ProcessParams
	rfAttenuation float64
	trigDelayUs   int

	mu     sync.Mutex
	window spectro.Window
	wnums  []float64
	buffer []byte

	correctionDir string
	correct       correctionFunc
	ampCorrection []float64
	applyAmpCorr  bool
}

// New creates a new Mozza backend around the given SDK handle with a
// discard logger.
func New(sdk SDK, options ...func(d *Device)) *Device {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // nil logger

	d := Device{
		sdk:    sdk,
		logger: logger,
		window: spectro.Window{Start: -1, Stop: -1},
	}

	for _, option := range options {
		option(&d)
	}

	return &d
}

// Serials lists attached Mozza devices as discovery identifiers.
func Serials(sdk SDK) ([]string, error) {
	nums, err := sdk.Serials()
	if err != nil {
		return nil, spectro.NewDeviceError("listing Mozza serials", err)
	}

	serials := make([]string, len(nums))
	for i, num := range nums {
		serials[i] = FormatSerial(num)
	}
	return serials, nil
}

// FormatSerial builds the discovery identifier for a serial number.
func FormatSerial(num int) string {
	return fmt.Sprintf("%s#%d", DeviceName, num)
}

// ParseSerial extracts the serial number from a discovery identifier of
// the form "Mozza#<int>".
func ParseSerial(serial string) (int, error) {
	name, num, ok := strings.Cut(serial, "#")
	if !ok || name != DeviceName {
		return 0, spectro.NewDeviceError(fmt.Sprintf("bad Mozza device string format: %q", serial), nil)
	}

	n, err := strconv.Atoi(num)
	if err != nil {
		return 0, spectro.NewDeviceError(fmt.Sprintf("bad Mozza device string format: %q", serial), err)
	}
	return n, nil
}

// Connect opens the device with the given discovery identifier and
// initializes the wavelength axis from the factory calibration limits.
// A failed sensor probe right after connecting means the device is
// wedged and gets a full reset; a failed reset is fatal. Missing or
// invalid amplitude correction data never fails the connect.
func (d *Device) Connect(serial string) error {
	num, err := ParseSerial(serial)
	if err != nil {
		return err
	}

	if err = d.sdk.Connect(num); err != nil {
		return spectro.NewDeviceError("connecting Mozza device", err)
	}

	// test communication
	if _, err = d.sdk.Sensors(); err != nil {
		d.logger.Warn("sensor probe failed, resetting device", slog.String("error", err.Error()))
		if err = d.sdk.ResetAll(); err != nil {
			return spectro.NewDeviceError("resetting Mozza device", err)
		}
	}

	d.lambdas = calibrationAxis()
	d.npixels = len(d.lambdas)
	d.connected = true
	d.serial = serial
	d.serialNum = num
	d.logger.Debug("Mozza device connected",
		slog.String("serial", serial),
		slog.Int("npixels", d.npixels))

	if err = d.sdk.SetDefaultParams(); err != nil {
		return spectro.NewDeviceError("applying default params", err)
	}
	d.rfAttenuation = d.sdk.RFAttenuation()

	d.LoadAmpCorrection(num)
	return nil
}

// Disconnect releases the SDK handle.
func (d *Device) Disconnect() error {
	d.connected = false
	if err := d.sdk.Disconnect(); err != nil {
		return spectro.NewDeviceError("disconnecting Mozza device", err)
	}
	return nil
}

// SetExposure is a no-op: exposure is fixed by the trigger timing on
// this device family.
func (d *Device) SetExposure(seconds float64) error {
	return nil
}

func (d *Device) Exposure() (float64, error) {
	return 0, nil
}

// SetExternalTrigger toggles the trigger source without touching the
// trigger delay or committing to the device.
func (d *Device) SetExternalTrigger(on bool) error {
	return d.SetTriggerSource(on, false, false)
}

// SetTriggerSource toggles the trigger source. With updateDelay the
// trigger delay is cached when switching to internal (where it is
// meaningless and zeroed) and restored when switching back to external.
// With apply the change is committed to the device immediately.
func (d *Device) SetTriggerSource(external, apply, updateDelay bool) error {
	if external {
		d.acqParams.TriggerSource = TriggerExternal
	} else {
		d.acqParams.TriggerSource = TriggerInternal
	}

	if updateDelay {
		if d.acqParams.TriggerSource == TriggerInternal {
			d.trigDelayUs = d.acqParams.TriggerDelayUs
			d.acqParams.TriggerDelayUs = 0
		} else {
			d.acqParams.TriggerDelayUs = d.trigDelayUs
		}
	}

	if apply {
		d.mu.Lock()
		defer d.mu.Unlock()

		if err := d.sdk.SetAcquisitionParams(d.acqParams); err != nil {
			return spectro.NewDeviceError("setting trigger source", err)
		}
	}
	return nil
}

func (d *Device) ExternalTrigger() bool {
	return d.acqParams.TriggerSource == TriggerExternal
}

// LoadTable programs the device wavenumber table, either from a pixel
// window over the calibration axis or from an explicit wavenumber array.
// A table-write failure ends any in-flight acquisition and resubmits
// exactly once; a second failure is fatal and leaves the raw buffer
// untouched. On success the raw buffer is reallocated to the
// SDK-reported payload size for the new table and, when a correction
// function exists, the correction multipliers are recomputed.
func (d *Device) LoadTable(start, stop int, wnums []float64) error {
	d.logger.Debug("updating table")

	if wnums == nil {
		wnums = linspace(1e7/d.lambdas[start], 1e7/d.lambdas[stop], stop-start+1)
		d.window = spectro.Window{Start: start, Stop: stop}
	} else {
		// explicit tables bypass the pixel axis; invalidate the cached
		// window so the next pixel-window acquisition reprograms it
		d.window = spectro.Window{Start: -1, Stop: -1}
	}

	d.logger.Debug("writing table", slog.Int("points", len(wnums)))

	d.mu.Lock()
	err := d.sdk.SetWavenumberArray(wnums)
	if err != nil {
		// end any in-flight acquisition and resubmit once
		if endErr := d.sdk.EndAcquisition(); endErr == nil {
			err = d.sdk.SetWavenumberArray(wnums)
		}
	}
	d.mu.Unlock()

	if err != nil {
		d.window = spectro.Window{Start: -1, Stop: -1}
		d.logger.Error(err.Error())
		return spectro.NewDeviceError("loading spectral table", err)
	}

	d.buffer = make([]byte, d.sdk.RawDataSize(d.sdk.TableLength()))
	d.wnums = wnums

	// the only condition to build the multipliers: the function exists
	if d.correct != nil {
		d.ampCorrection = d.correct(wnums)
	}
	return nil
}

// readRaw reads the raw acquisition buffer. Externally triggered reads
// first check the live trigger frequency; when the estimated acquisition
// time exceeds maxBlockingRead, the buffer is read in bounded chunks so
// no single SDK call blocks for too long.
func (d *Device) readRaw() ([]byte, error) {
	if d.acqParams.TriggerSource != TriggerExternal {
		return d.sdk.ReadRaw(0)
	}

	freq, err := d.sdk.TriggerFrequency()
	if err != nil {
		return nil, err
	}
	if freq == 0 {
		return nil, spectro.ErrTriggerTimeout
	}

	bufSize := float64(len(d.buffer))
	if acqTime := bufSize / freq / rawBytesPerPoint; acqTime <= maxBlockingRead.Seconds() {
		return d.sdk.ReadRaw(0)
	}

	// acquisition by chunks
	tableLen := d.sdk.TableLength()
	npts := int(math.Round(freq/bufSize*float64(tableLen)*rawBytesPerPoint - 1))
	if npts < 1 {
		npts = 1
	}

	last := 0
	left := tableLen
	for last < len(d.buffer) {
		raw, err := d.sdk.ReadRaw(min(npts, left))
		if err != nil {
			return nil, err
		}

		copy(d.buffer[last:], raw)
		last += len(raw)
		left -= npts
	}
	return d.buffer, nil
}

// AcquireSpectrum runs one acquisition cycle over the given window,
// reprogramming the table first when the window differs from the one
// currently loaded. The cycle uses a non-blocking lock attempt: when
// another SDK sequence is in flight the request is dropped and (nil, nil)
// is returned. SDK errors during begin/read yield no spectrum; the
// cleanup EndAcquisition is always attempted and its own failure is
// swallowed. A trigger timeout surfaces to the caller after cleanup.
func (d *Device) AcquireSpectrum(w spectro.Window, background bool) ([]float64, error) {
	if w != d.window {
		if err := d.LoadTable(w.Start, w.Stop, nil); err != nil {
			return nil, err
		}
	}

	if !d.mu.TryLock() {
		d.logger.Debug("acquisition in flight, dropping request")
		return nil, nil
	}
	defer d.mu.Unlock()

	spectrum, err := d.acquireOnce()

	if endErr := d.sdk.EndAcquisition(); endErr != nil {
		d.logger.Debug("ending acquisition", slog.String("error", endErr.Error()))
	}

	if err != nil {
		if errors.Is(err, spectro.ErrTriggerTimeout) {
			return nil, err
		}
		d.logger.Debug("acquisition error", slog.String("error", err.Error()))
		return nil, nil
	}

	if d.applyAmpCorr && d.ampCorrection != nil {
		for i := range spectrum {
			spectrum[i] *= d.ampCorrection[i]
		}
	}
	return spectrum, nil
}

func (d *Device) acquireOnce() ([]float64, error) {
	if _, err := d.sdk.BeginAcquisition(); err != nil {
		return nil, err
	}

	raw, err := d.readRaw()
	if err != nil {
		return nil, err
	}
	return d.sdk.ProcessSpectrum(raw)
}

// AcquireRaw runs one blocking acquisition and returns the separated
// signal and reference channel samples. SDK errors yield no data; a
// trigger timeout surfaces to the caller. Cleanup mirrors
// AcquireSpectrum.
func (d *Device) AcquireRaw() (signal, reference []float64, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err = d.sdk.BeginAcquisition(); err == nil {
		time.Sleep(rawSettleDelay)

		var raw []byte
		if raw, err = d.readRaw(); err == nil {
			signal, reference, err = d.sdk.SeparateSigRef(raw)
		}
	}

	if endErr := d.sdk.EndAcquisition(); endErr != nil {
		d.logger.Debug("ending acquisition", slog.String("error", endErr.Error()))
	}

	if err != nil {
		if errors.Is(err, spectro.ErrTriggerTimeout) {
			return nil, nil, err
		}
		d.logger.Debug("acquisition error", slog.String("error", err.Error()))
		return nil, nil, nil
	}
	return signal, reference, nil
}

// MeasureOffsets runs the SDK offset measurement routine for the signal
// and reference channels and stores the results into the process
// parameters. The routine perturbs device state, so RF attenuation,
// acquisition and process parameters are pushed back afterwards.
func (d *Device) MeasureOffsets() (signal, reference float64, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	signal, reference, err = d.sdk.MeasureOffsets(d.acqParams.SignalHighGain, d.acqParams.ReferenceHighGain)
	if err != nil {
		return 0, 0, spectro.NewDeviceError("measuring offsets", err)
	}
	d.logger.Debug("measured offsets",
		slog.Float64("signal", signal),
		slog.Float64("reference", reference))

	d.procParams.SignalOffset = signal
	d.procParams.ReferenceOffset = reference

	if err = d.sdk.SetRFAttenuation(d.rfAttenuation); err != nil {
		return 0, 0, spectro.NewDeviceError("restoring RF attenuation", err)
	}
	if err = d.sdk.SetAcquisitionParams(d.acqParams); err != nil {
		return 0, 0, spectro.NewDeviceError("restoring acquisition params", err)
	}
	if err = d.sdk.SetProcessParams(d.procParams); err != nil {
		return 0, 0, spectro.NewDeviceError("restoring process params", err)
	}
	return signal, reference, nil
}

// SetRFAttenuation commits a new RF attenuation to the device and keeps
// the value for restoring after offset measurements.
func (d *Device) SetRFAttenuation(db float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.sdk.SetRFAttenuation(db); err != nil {
		return spectro.NewDeviceError("setting RF attenuation", err)
	}
	d.rfAttenuation = db
	return nil
}

func (d *Device) RFAttenuation() float64 {
	return d.rfAttenuation
}

// Params returns a copy of the local acquisition parameter block.
func (d *Device) Params() AcquisitionParams {
	return d.acqParams
}

// SetParams replaces the local acquisition parameter block without
// committing it to the device; use ApplyAcquisitionParams to commit.
func (d *Device) SetParams(p AcquisitionParams) {
	d.acqParams = p
}

// ProcessParams returns a copy of the local process parameter block.
func (d *Device) ProcessParams() ProcessParams {
	return d.procParams
}

func (d *Device) SetProcessParams(p ProcessParams) {
	d.procParams = p
}

// ApplyAcquisitionParams commits the local acquisition parameters.
func (d *Device) ApplyAcquisitionParams() error {
	if err := d.sdk.SetAcquisitionParams(d.acqParams); err != nil {
		return spectro.NewDeviceError("setting acquisition params", err)
	}
	return nil
}

// ApplyProcessParams commits the local process parameters.
func (d *Device) ApplyProcessParams() error {
	if err := d.sdk.SetProcessParams(d.procParams); err != nil {
		return spectro.NewDeviceError("setting process params", err)
	}
	return nil
}

// SetupGains programs the analog gain stages from the local parameters.
func (d *Device) SetupGains() error {
	d.logger.Debug("setup gains")
	if err := d.sdk.SetupGains(d.acqParams.SignalHighGain, d.acqParams.ReferenceHighGain); err != nil {
		return spectro.NewDeviceError("setting up gains", err)
	}
	return nil
}

// ApplyAllParams commits acquisition, process, RF attenuation and gain
// settings in one locked sequence.
func (d *Device) ApplyAllParams() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.sdk.SetAcquisitionParams(d.acqParams); err != nil {
		return spectro.NewDeviceError("setting acquisition params", err)
	}
	if err := d.sdk.SetProcessParams(d.procParams); err != nil {
		return spectro.NewDeviceError("setting process params", err)
	}
	if err := d.sdk.SetRFAttenuation(d.rfAttenuation); err != nil {
		return spectro.NewDeviceError("setting RF attenuation", err)
	}
	return d.SetupGains()
}

// SetAutoParams runs the SDK auto-configuration routine and adopts the
// parameter blocks it settled on.
func (d *Device) SetAutoParams(triggerToLaserUs, acquisitionTimeUs int) error {
	d.logger.Debug("setting auto params",
		slog.Int("triggerToLaserUs", triggerToLaserUs),
		slog.Int("acquisitionTimeUs", acquisitionTimeUs))

	acq, proc, err := d.sdk.SetAutoParams(AutoParams{
		PointRepetition:   d.acqParams.PointRepetition,
		ReferenceOffset:   d.procParams.ReferenceOffset,
		SignalHighGain:    d.acqParams.SignalHighGain,
		ReferenceHighGain: d.acqParams.ReferenceHighGain,
		TriggerToLaserUs:  triggerToLaserUs,
		AcquisitionTimeUs: acquisitionTimeUs,
	})
	if err != nil {
		return spectro.NewDeviceError("setting auto params", err)
	}

	d.acqParams = acq
	d.procParams = proc
	return nil
}

// ExtTriggerFrequency measures the live external trigger frequency.
func (d *Device) ExtTriggerFrequency() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	freq, err := d.sdk.TriggerFrequency()
	if err != nil {
		return 0, spectro.NewDeviceError("reading trigger frequency", err)
	}
	return freq, nil
}

// Sensors reads the on-board device sensors.
func (d *Device) Sensors() (*sensors.Readings, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, err := d.sdk.Sensors()
	if err != nil {
		return nil, spectro.NewDeviceError("reading sensors", err)
	}

	return &sensors.Readings{
		Timestamp:    time.Now().UTC(),
		CrystalTempC: &r.CrystalTempC,
		BoardTempC:   &r.BoardTempC,
		RFPowerW:     &r.RFPowerW,
	}, nil
}

// SetAmplitudeCorrection toggles elementwise amplitude correction of
// acquired spectra. The toggle has no effect while no correction table
// is loaded.
func (d *Device) SetAmplitudeCorrection(on bool) {
	d.applyAmpCorr = on && d.correct != nil
}

func (d *Device) AmplitudeCorrection() bool {
	return d.applyAmpCorr
}

func (d *Device) NPixels() int {
	return d.npixels
}

func (d *Device) Lambdas() []float64 {
	return d.lambdas
}

func (d *Device) Connected() bool {
	return d.connected
}

func (d *Device) Serial() string {
	return d.serial
}

func (d *Device) Units() spectro.SpectralUnits {
	return spectro.UnitsInverseCentimeters
}

// Wavenumbers returns the currently programmed wavenumber table.
func (d *Device) Wavenumbers() []float64 {
	return d.wnums
}

// BufferSize returns the raw buffer size in bytes for the current table.
func (d *Device) BufferSize() int {
	return len(d.buffer)
}

// calibrationAxis builds the fixed wavelength axis in nm covering the
// factory calibration limits at the device spectral resolution. The
// axis ascends in wavelength (descends in wavenumber).
func calibrationAxis() []float64 {
	n := int(math.Ceil((calibrationMaxWavenumber - calibrationMinWavenumber) / resolutionCm))
	lambdas := make([]float64, n)

	wn := calibrationMaxWavenumber
	for i := range lambdas {
		lambdas[i] = 1e7 / wn
		wn -= resolutionCm
	}
	return lambdas
}

func linspace(start, stop float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}

	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = stop
	return out
}
