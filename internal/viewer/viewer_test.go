package viewer

import (
	"testing"

	"github.com/roman-kulish/mozza-spectro/internal/spectro"
)

// fakeBackend plays back one canned spectrum per grab cycle; nil entries
// simulate dropped cycles.
type fakeBackend struct {
	connected bool
	lambdas   []float64
	units     spectro.SpectralUnits

	spectra [][]float64
	calls   int
	windows []spectro.Window
}

func (f *fakeBackend) Connect(serial string) error { f.connected = true; return nil }
func (f *fakeBackend) Disconnect() error           { f.connected = false; return nil }

func (f *fakeBackend) SetExposure(seconds float64) error { return nil }
func (f *fakeBackend) Exposure() (float64, error)        { return 0, nil }

func (f *fakeBackend) SetExternalTrigger(on bool) error { return nil }
func (f *fakeBackend) ExternalTrigger() bool            { return false }

func (f *fakeBackend) AcquireSpectrum(w spectro.Window, background bool) ([]float64, error) {
	f.windows = append(f.windows, w)
	if f.calls >= len(f.spectra) {
		return nil, nil
	}
	sp := f.spectra[f.calls]
	f.calls++
	return sp, nil
}

func (f *fakeBackend) NPixels() int                 { return len(f.lambdas) }
func (f *fakeBackend) Lambdas() []float64           { return f.lambdas }
func (f *fakeBackend) Connected() bool              { return f.connected }
func (f *fakeBackend) Serial() string               { return "Fake#1" }
func (f *fakeBackend) Units() spectro.SpectralUnits { return f.units }

func newFakeBackend(spectra ...[]float64) *fakeBackend {
	return &fakeBackend{
		connected: true,
		lambdas:   []float64{800, 810, 820, 830, 840, 850, 860, 870, 880, 890},
		units:     spectro.UnitsNanometers,
		spectra:   spectra,
	}
}

func TestGrabDataAveragesAcrossDroppedCycles(t *testing.T) {
	backend := newFakeBackend(
		[]float64{2, 4, 6, 8, 10, 12, 14, 16, 18, 20},
		nil, // dropped cycle
		[]float64{4, 8, 12, 16, 20, 24, 28, 32, 36, 40},
	)
	v := NewViewer1D(spectro.NewDevice(backend), backend.Serial())

	export := v.GrabData(3)
	if export.Empty() {
		t.Fatal("Expected a non-empty export")
	}
	if len(export.Data) != 1 {
		t.Fatalf("Expected 1 data block, got %d", len(export.Data))
	}

	data := export.Data[0]
	if data.Name != "Spectrum" {
		t.Errorf("Expected data block Spectrum, got %q", data.Name)
	}
	if data.Dim != Data1D {
		t.Errorf("Expected 1D data, got %v", data.Dim)
	}
	if data.Averages != 2 {
		t.Errorf("Expected 2 contributing cycles, got %d", data.Averages)
	}

	expected := []float64{3, 6, 9, 12, 15, 18, 21, 24, 27, 30}
	if len(data.Data[0]) != len(expected) {
		t.Fatalf("Expected %d samples, got %d", len(expected), len(data.Data[0]))
	}
	for i, want := range expected {
		if data.Data[0][i] != want {
			t.Errorf("Sample %d: expected %v, got %v", i, want, data.Data[0][i])
		}
	}
}

func TestGrabDataEmptyWhenAllCyclesDropped(t *testing.T) {
	backend := newFakeBackend() // every cycle drops
	v := NewViewer1D(spectro.NewDevice(backend), backend.Serial())

	export := v.GrabData(3)
	if !export.Empty() {
		t.Errorf("Expected an empty export, got %d data blocks", len(export.Data))
	}
	if export.Name != backend.Serial() {
		t.Errorf("Expected export named %q, got %q", backend.Serial(), export.Name)
	}
}

func TestGrabDataAttachesWavelengthAxis(t *testing.T) {
	spectrum := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	backend := newFakeBackend(spectrum)
	v := NewViewer1D(spectro.NewDevice(backend), backend.Serial())

	export := v.GrabData(1)
	if export.Empty() {
		t.Fatal("Expected a non-empty export")
	}

	axes := export.Data[0].Axes
	if len(axes) != 1 {
		t.Fatalf("Expected 1 axis, got %d", len(axes))
	}
	if axes[0].Label != "Wavelength" || axes[0].Units != "nm" {
		t.Errorf("Expected Wavelength axis in nm, got %q in %q", axes[0].Label, axes[0].Units)
	}
	if len(axes[0].Data) != len(spectrum) {
		t.Fatalf("Expected %d axis points, got %d", len(spectrum), len(axes[0].Data))
	}
	for i, want := range backend.lambdas {
		if axes[0].Data[i] != want {
			t.Errorf("Axis point %d: expected %v, got %v", i, want, axes[0].Data[i])
		}
	}
}

func TestViewer0DExportsMeanIntensity(t *testing.T) {
	backend := newFakeBackend([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	v := NewViewer0D(spectro.NewDevice(backend), backend.Serial())

	export := v.GrabData(1)
	if export.Empty() {
		t.Fatal("Expected a non-empty export")
	}

	data := export.Data[0]
	if data.Name != "Intensity" {
		t.Errorf("Expected data block Intensity, got %q", data.Name)
	}
	if data.Dim != Data0D {
		t.Errorf("Expected 0D data, got %v", data.Dim)
	}
	if got := data.Data[0][0]; got != 5.5 {
		t.Errorf("Expected mean intensity 5.5, got %v", got)
	}
}

func TestCommitSettingsWindow(t *testing.T) {
	backend := newFakeBackend([]float64{1, 2, 3, 4})
	v := NewViewer1D(spectro.NewDevice(backend), backend.Serial())

	if err := v.CommitSettings(Param{Name: "window_start", Value: 2}); err != nil {
		t.Fatalf("CommitSettings window_start failed: %v", err)
	}
	if err := v.CommitSettings(Param{Name: "window_stop", Value: 5}); err != nil {
		t.Fatalf("CommitSettings window_stop failed: %v", err)
	}

	v.GrabData(1)
	if len(backend.windows) != 1 {
		t.Fatalf("Expected 1 acquisition, got %d", len(backend.windows))
	}
	if want := (spectro.Window{Start: 2, Stop: 5}); backend.windows[0] != want {
		t.Errorf("Expected window %+v, got %+v", want, backend.windows[0])
	}
}

func TestCommitSettingsRejectsWrongType(t *testing.T) {
	backend := newFakeBackend()
	v := NewViewer1D(spectro.NewDevice(backend), backend.Serial())

	testCases := []struct {
		name  string
		param Param
	}{
		{"exposure as string", Param{Name: "exposure", Value: "0.1"}},
		{"trigger as int", Param{Name: "external_trigger", Value: 1}},
		{"window as float", Param{Name: "window_start", Value: 2.0}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if err := v.CommitSettings(tc.param); err == nil {
				t.Errorf("Expected type error for %q, got nil", tc.param.Name)
			}
		})
	}
}

func TestCommitSettingsIgnoresUnknownParam(t *testing.T) {
	backend := newFakeBackend()
	v := NewViewer1D(spectro.NewDevice(backend), backend.Serial())

	if err := v.CommitSettings(Param{Name: "frobnicate", Value: 1}); err != nil {
		t.Errorf("Expected unknown setting to be ignored, got %v", err)
	}
}

func TestCommitSettingsUnsupportedBackendCapability(t *testing.T) {
	backend := newFakeBackend()
	v := NewViewer1D(spectro.NewDevice(backend), backend.Serial())

	testCases := []struct {
		name  string
		param Param
	}{
		{"rf attenuation", Param{Name: "rf_attenuation", Value: 10.0}},
		{"amplitude correction", Param{Name: "amplitude_correction", Value: true}},
		{"raw mode", Param{Name: "raw_mode", Value: true}},
		{"measure offsets", Param{Name: "measure_offsets", Value: true}},
		{"auto params", Param{Name: "auto_params", Value: []int{10, 200}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if err := v.CommitSettings(tc.param); err == nil {
				t.Errorf("Expected error for %q on a backend without the capability", tc.param.Name)
			}
		})
	}
}

// rawFakeBackend adds the optional raw, offset and auto-parameter
// capabilities on top of fakeBackend.
type rawFakeBackend struct {
	*fakeBackend

	signal, reference []float64
	rawErr            error

	offsetsMeasured bool
	autoArgs        []int
}

func (f *rawFakeBackend) AcquireRaw() ([]float64, []float64, error) {
	return f.signal, f.reference, f.rawErr
}

func (f *rawFakeBackend) MeasureOffsets() (float64, float64, error) {
	f.offsetsMeasured = true
	return 0.25, 0.75, nil
}

func (f *rawFakeBackend) SetAutoParams(triggerToLaserUs, acquisitionTimeUs int) error {
	f.autoArgs = []int{triggerToLaserUs, acquisitionTimeUs}
	return nil
}

func TestCommitSettingsRawModeSwitchesGrab(t *testing.T) {
	backend := &rawFakeBackend{
		fakeBackend: newFakeBackend([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}),
		signal:      []float64{1, 2, 3},
		reference:   []float64{4, 5, 6},
	}
	v := NewViewer1D(spectro.NewDevice(backend), backend.Serial())

	if err := v.CommitSettings(Param{Name: "raw_mode", Value: true}); err != nil {
		t.Fatalf("CommitSettings raw_mode failed: %v", err)
	}

	export := v.GrabData(3)
	if export.Empty() {
		t.Fatal("Expected a non-empty raw export")
	}

	data := export.Data[0]
	if data.Name != "Raw" {
		t.Errorf("Expected data block Raw, got %q", data.Name)
	}
	if data.Averages != 1 {
		t.Errorf("Expected single-shot raw data, got %d averages", data.Averages)
	}
	if len(data.Data) != 2 {
		t.Fatalf("Expected signal and reference traces, got %d", len(data.Data))
	}
	for i, want := range backend.signal {
		if data.Data[0][i] != want {
			t.Errorf("Signal sample %d: expected %v, got %v", i, want, data.Data[0][i])
		}
	}
	for i, want := range backend.reference {
		if data.Data[1][i] != want {
			t.Errorf("Reference sample %d: expected %v, got %v", i, want, data.Data[1][i])
		}
	}
	if len(backend.windows) != 0 {
		t.Errorf("Expected no spectrum acquisitions in raw mode, got %d", len(backend.windows))
	}

	// toggled off: back to averaged spectra
	if err := v.CommitSettings(Param{Name: "raw_mode", Value: false}); err != nil {
		t.Fatalf("CommitSettings raw_mode failed: %v", err)
	}
	export = v.GrabData(1)
	if export.Empty() || export.Data[0].Name != "Spectrum" {
		t.Errorf("Expected a Spectrum export after leaving raw mode, got %+v", export)
	}
}

func TestGrabRawEmptyOnDroppedAcquisition(t *testing.T) {
	backend := &rawFakeBackend{fakeBackend: newFakeBackend()} // nil channels
	v := NewViewer1D(spectro.NewDevice(backend), backend.Serial())

	if err := v.CommitSettings(Param{Name: "raw_mode", Value: true}); err != nil {
		t.Fatalf("CommitSettings raw_mode failed: %v", err)
	}
	if export := v.GrabData(1); !export.Empty() {
		t.Errorf("Expected an empty export for a dropped raw acquisition, got %d blocks", len(export.Data))
	}
}

func TestCommitSettingsMeasureOffsets(t *testing.T) {
	backend := &rawFakeBackend{fakeBackend: newFakeBackend()}
	v := NewViewer1D(spectro.NewDevice(backend), backend.Serial())

	// false is a no-op, not a measurement
	if err := v.CommitSettings(Param{Name: "measure_offsets", Value: false}); err != nil {
		t.Fatalf("CommitSettings measure_offsets failed: %v", err)
	}
	if backend.offsetsMeasured {
		t.Error("Expected no measurement for a false toggle")
	}

	if err := v.CommitSettings(Param{Name: "measure_offsets", Value: true}); err != nil {
		t.Fatalf("CommitSettings measure_offsets failed: %v", err)
	}
	if !backend.offsetsMeasured {
		t.Error("Expected the offset measurement to run")
	}

	if err := v.CommitSettings(Param{Name: "measure_offsets", Value: 1}); err == nil {
		t.Error("Expected type error for a non-bool value")
	}
}

func TestCommitSettingsAutoParams(t *testing.T) {
	backend := &rawFakeBackend{fakeBackend: newFakeBackend()}
	v := NewViewer1D(spectro.NewDevice(backend), backend.Serial())

	if err := v.CommitSettings(Param{Name: "auto_params", Value: []int{10, 200}}); err != nil {
		t.Fatalf("CommitSettings auto_params failed: %v", err)
	}
	if len(backend.autoArgs) != 2 || backend.autoArgs[0] != 10 || backend.autoArgs[1] != 200 {
		t.Errorf("Expected auto params (10, 200), got %v", backend.autoArgs)
	}

	if err := v.CommitSettings(Param{Name: "auto_params", Value: []int{10}}); err == nil {
		t.Error("Expected error for a short parameter list")
	}
	if err := v.CommitSettings(Param{Name: "auto_params", Value: "10,200"}); err == nil {
		t.Error("Expected type error for a non-slice value")
	}
}

func TestStopIsNoop(t *testing.T) {
	backend := newFakeBackend()

	if err := NewViewer1D(spectro.NewDevice(backend), backend.Serial()).Stop(); err != nil {
		t.Errorf("Expected 1D stop to be a no-op, got %v", err)
	}
	if err := NewViewer0D(spectro.NewDevice(backend), backend.Serial()).Stop(); err != nil {
		t.Errorf("Expected 0D stop to be a no-op, got %v", err)
	}
}

func TestIniDetectorStatusLine(t *testing.T) {
	backend := newFakeBackend()
	v := NewViewer1D(spectro.NewDevice(backend), backend.Serial())

	status, err := v.IniDetector()
	if err != nil {
		t.Fatalf("IniDetector failed: %v", err)
	}
	if !backend.connected {
		t.Error("Expected backend to be connected")
	}
	if want := "Fake#1: 10 pixels, Wavelength axis"; status != want {
		t.Errorf("Expected status %q, got %q", want, status)
	}
}
