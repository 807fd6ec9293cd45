package mozza

import (
	"errors"
	"testing"

	"github.com/roman-kulish/mozza-spectro/internal/spectro"
)

// fakeSDK plays back canned responses and counts command calls.
type fakeSDK struct {
	serials      []int
	connectCalls int
	connectErr   error
	sensorsErr   error
	resetCalls   int
	resetErr     error

	wnums              []float64
	setWavenumberErrs  int // fail this many leading SetWavenumberArray calls
	setWavenumberCalls int
	beginErr           error
	beginCalls         int
	endAcqErr          error
	endAcqCalls        int
	readRawErr         error
	readRawPoints      []int
	spectrum           []float64
	processErr         error
	triggerFreq        float64
	triggerFreqErr     error

	rfAtten   float64
	acqParams []AcquisitionParams
	gains     [][2]bool

	autoAcq  AcquisitionParams
	autoProc ProcessParams
	autoErr  error
}

func (f *fakeSDK) Serials() ([]int, error) { return f.serials, nil }

func (f *fakeSDK) Connect(serial int) error {
	f.connectCalls++
	return f.connectErr
}

func (f *fakeSDK) Disconnect() error { return nil }

func (f *fakeSDK) Sensors() (SensorReadings, error) {
	return SensorReadings{CrystalTempC: 42.5, BoardTempC: 31.0, RFPowerW: 1.2}, f.sensorsErr
}

func (f *fakeSDK) ResetAll() error {
	f.resetCalls++
	return f.resetErr
}

func (f *fakeSDK) SetDefaultParams() error { return nil }

func (f *fakeSDK) SetWavenumberArray(wnums []float64) error {
	f.setWavenumberCalls++
	if f.setWavenumberErrs > 0 {
		f.setWavenumberErrs--
		return errors.New("table write failed")
	}
	f.wnums = wnums
	return nil
}

func (f *fakeSDK) TableLength() int { return len(f.wnums) }

func (f *fakeSDK) RawDataSize(tableLength int) int { return tableLength * rawBytesPerPoint }

func (f *fakeSDK) BeginAcquisition() (int, error) {
	f.beginCalls++
	return f.RawDataSize(f.TableLength()), f.beginErr
}

func (f *fakeSDK) EndAcquisition() error {
	f.endAcqCalls++
	return f.endAcqErr
}

func (f *fakeSDK) ReadRaw(points int) ([]byte, error) {
	f.readRawPoints = append(f.readRawPoints, points)
	if f.readRawErr != nil {
		return nil, f.readRawErr
	}
	if points <= 0 {
		points = f.TableLength()
	}
	return make([]byte, points*rawBytesPerPoint), nil
}

func (f *fakeSDK) ProcessSpectrum(raw []byte) ([]float64, error) {
	if f.processErr != nil {
		return nil, f.processErr
	}
	if f.spectrum != nil {
		return append([]float64(nil), f.spectrum...), nil
	}
	return make([]float64, f.TableLength()), nil
}

func (f *fakeSDK) SeparateSigRef(raw []byte) ([]float64, []float64, error) {
	n := len(raw) / rawBytesPerPoint
	return make([]float64, n), make([]float64, n), nil
}

func (f *fakeSDK) MeasureOffsets(signalHighGain, referenceHighGain bool) (float64, float64, error) {
	return 0.25, 0.75, nil
}

func (f *fakeSDK) SetRFAttenuation(db float64) error { f.rfAtten = db; return nil }
func (f *fakeSDK) RFAttenuation() float64            { return f.rfAtten }

func (f *fakeSDK) SetAcquisitionParams(p AcquisitionParams) error {
	f.acqParams = append(f.acqParams, p)
	return nil
}

func (f *fakeSDK) SetProcessParams(p ProcessParams) error { return nil }

func (f *fakeSDK) SetupGains(signalHighGain, referenceHighGain bool) error {
	f.gains = append(f.gains, [2]bool{signalHighGain, referenceHighGain})
	return nil
}

func (f *fakeSDK) SetAutoParams(p AutoParams) (AcquisitionParams, ProcessParams, error) {
	return f.autoAcq, f.autoProc, f.autoErr
}

func (f *fakeSDK) TriggerFrequency() (float64, error) { return f.triggerFreq, f.triggerFreqErr }

func connectedDevice(t *testing.T, sdk *fakeSDK) *Device {
	t.Helper()

	d := New(sdk)
	if err := d.Connect("Mozza#42"); err != nil {
		t.Fatalf("Failed to connect device: %v", err)
	}
	return d
}

func TestParseSerial(t *testing.T) {
	if n, err := ParseSerial("Mozza#12"); err != nil || n != 12 {
		t.Errorf("Expected serial 12, got %d (err: %v)", n, err)
	}

	testCases := []struct {
		name   string
		serial string
	}{
		{"wrong device name", "Foo#12"},
		{"lowercase name", "mozza#12"},
		{"missing separator", "Mozza12"},
		{"non-numeric serial", "Mozza#abc"},
		{"empty string", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseSerial(tc.serial); err == nil {
				t.Errorf("Expected error for %q, got nil", tc.serial)
			}
		})
	}
}

func TestConnectRejectsBadSerialWithoutStateChange(t *testing.T) {
	sdk := &fakeSDK{}
	d := New(sdk)

	err := d.Connect("NotMozza#3")
	if err == nil {
		t.Fatal("Expected error for bad serial format, got nil")
	}

	var devErr *spectro.DeviceError
	if !errors.As(err, &devErr) {
		t.Errorf("Expected *spectro.DeviceError, got %T: %v", err, err)
	}
	if sdk.connectCalls != 0 {
		t.Errorf("Expected no SDK connect attempts, got %d", sdk.connectCalls)
	}
	if d.Connected() {
		t.Error("Expected device to stay disconnected")
	}
	if d.NPixels() != 0 {
		t.Errorf("Expected no spectral axis, got %d pixels", d.NPixels())
	}
}

func TestConnectInitializesCalibrationAxis(t *testing.T) {
	d := connectedDevice(t, &fakeSDK{})

	if !d.Connected() {
		t.Fatal("Expected device to be connected")
	}
	if d.Serial() != "Mozza#42" {
		t.Errorf("Expected serial Mozza#42, got %q", d.Serial())
	}
	if d.Units() != spectro.UnitsInverseCentimeters {
		t.Errorf("Expected wavenumber units, got %v", d.Units())
	}

	lambdas := d.Lambdas()
	if len(lambdas) != d.NPixels() {
		t.Fatalf("Expected %d lambdas, got %d", d.NPixels(), len(lambdas))
	}
	if len(lambdas) == 0 {
		t.Fatal("Expected non-empty calibration axis")
	}
	for i := 1; i < len(lambdas); i++ {
		if lambdas[i] <= lambdas[i-1] {
			t.Fatalf("Expected ascending wavelengths, got %v <= %v at %d", lambdas[i], lambdas[i-1], i)
		}
	}
	if first := 1e7 / lambdas[0]; first != calibrationMaxWavenumber {
		t.Errorf("Expected first pixel at %v cm-1, got %v", calibrationMaxWavenumber, first)
	}
}

func TestConnectResetsWedgedDevice(t *testing.T) {
	sdk := &fakeSDK{sensorsErr: errors.New("usb stall")}
	d := New(sdk)

	if err := d.Connect("Mozza#1"); err != nil {
		t.Fatalf("Expected connect to recover via reset, got %v", err)
	}
	if sdk.resetCalls != 1 {
		t.Errorf("Expected 1 reset, got %d", sdk.resetCalls)
	}

	sdk = &fakeSDK{sensorsErr: errors.New("usb stall"), resetErr: errors.New("reset failed")}
	if err := New(sdk).Connect("Mozza#1"); err == nil {
		t.Error("Expected error when reset fails, got nil")
	}
}

func TestLoadTableReallocatesBuffer(t *testing.T) {
	sdk := &fakeSDK{}
	d := connectedDevice(t, sdk)

	if err := d.LoadTable(0, 100, nil); err != nil {
		t.Fatalf("LoadTable failed: %v", err)
	}

	// a [0, 100] pixel window is a 101-point table
	if got := len(d.Wavenumbers()); got != 101 {
		t.Errorf("Expected 101 table points, got %d", got)
	}
	if got := d.BufferSize(); got != 101*rawBytesPerPoint {
		t.Errorf("Expected %d byte raw buffer, got %d", 101*rawBytesPerPoint, got)
	}

	wnums := d.Wavenumbers()
	for i := 1; i < len(wnums); i++ {
		if wnums[i] >= wnums[i-1] {
			t.Fatalf("Expected descending wavenumbers over the pixel window, got %v >= %v at %d", wnums[i], wnums[i-1], i)
		}
	}
}

func TestLoadTableRetriesOnce(t *testing.T) {
	sdk := &fakeSDK{setWavenumberErrs: 1}
	d := connectedDevice(t, sdk)

	if err := d.LoadTable(0, 10, nil); err != nil {
		t.Fatalf("Expected retry to succeed, got %v", err)
	}
	if sdk.setWavenumberCalls != 2 {
		t.Errorf("Expected 2 table writes, got %d", sdk.setWavenumberCalls)
	}
	if sdk.endAcqCalls != 1 {
		t.Errorf("Expected 1 EndAcquisition between retries, got %d", sdk.endAcqCalls)
	}
	if d.BufferSize() != 11*rawBytesPerPoint {
		t.Errorf("Expected buffer for 11 points, got %d bytes", d.BufferSize())
	}
}

func TestLoadTableSecondFailureIsFatal(t *testing.T) {
	sdk := &fakeSDK{setWavenumberErrs: 2}
	d := connectedDevice(t, sdk)

	err := d.LoadTable(0, 10, nil)
	if err == nil {
		t.Fatal("Expected error after retry exhausted, got nil")
	}

	var devErr *spectro.DeviceError
	if !errors.As(err, &devErr) {
		t.Errorf("Expected *spectro.DeviceError, got %T: %v", err, err)
	}
	if sdk.setWavenumberCalls != 2 {
		t.Errorf("Expected exactly 2 table writes, got %d", sdk.setWavenumberCalls)
	}
	if d.BufferSize() != 0 {
		t.Errorf("Expected raw buffer untouched, got %d bytes", d.BufferSize())
	}
}

func TestLoadTableNoRetryWhenEndAcquisitionFails(t *testing.T) {
	sdk := &fakeSDK{setWavenumberErrs: 1, endAcqErr: errors.New("no acquisition in flight")}
	d := connectedDevice(t, sdk)

	if err := d.LoadTable(0, 10, nil); err == nil {
		t.Fatal("Expected error, got nil")
	}
	if sdk.setWavenumberCalls != 1 {
		t.Errorf("Expected 1 table write, got %d", sdk.setWavenumberCalls)
	}
}

func TestAcquireSpectrumDropsWhenBusy(t *testing.T) {
	sdk := &fakeSDK{}
	d := connectedDevice(t, sdk)

	w := spectro.Window{Start: 0, Stop: 10}
	if err := d.LoadTable(w.Start, w.Stop, nil); err != nil {
		t.Fatalf("LoadTable failed: %v", err)
	}

	d.mu.Lock()
	spectrum, err := d.AcquireSpectrum(w, false)
	d.mu.Unlock()

	if err != nil {
		t.Errorf("Expected no error for dropped request, got %v", err)
	}
	if spectrum != nil {
		t.Errorf("Expected no spectrum for dropped request, got %v", spectrum)
	}
	if sdk.beginCalls != 0 {
		t.Errorf("Expected no acquisition while busy, got %d", sdk.beginCalls)
	}
}

func TestAcquireSpectrumReprogramsChangedWindow(t *testing.T) {
	sdk := &fakeSDK{}
	d := connectedDevice(t, sdk)

	if _, err := d.AcquireSpectrum(spectro.Window{Start: 0, Stop: 10}, false); err != nil {
		t.Fatalf("AcquireSpectrum failed: %v", err)
	}
	if sdk.setWavenumberCalls != 1 {
		t.Fatalf("Expected 1 table write, got %d", sdk.setWavenumberCalls)
	}

	// same window: no reprogramming
	if _, err := d.AcquireSpectrum(spectro.Window{Start: 0, Stop: 10}, false); err != nil {
		t.Fatalf("AcquireSpectrum failed: %v", err)
	}
	if sdk.setWavenumberCalls != 1 {
		t.Errorf("Expected table write to be skipped, got %d writes", sdk.setWavenumberCalls)
	}

	// new window: reprogram
	if _, err := d.AcquireSpectrum(spectro.Window{Start: 5, Stop: 20}, false); err != nil {
		t.Fatalf("AcquireSpectrum failed: %v", err)
	}
	if sdk.setWavenumberCalls != 2 {
		t.Errorf("Expected 2 table writes, got %d", sdk.setWavenumberCalls)
	}
}

func TestAcquireSpectrumSwallowsSDKErrors(t *testing.T) {
	sdk := &fakeSDK{beginErr: errors.New("device busy")}
	d := connectedDevice(t, sdk)

	spectrum, err := d.AcquireSpectrum(spectro.Window{Start: 0, Stop: 10}, false)
	if err != nil {
		t.Errorf("Expected swallowed SDK error, got %v", err)
	}
	if spectrum != nil {
		t.Errorf("Expected no spectrum, got %v", spectrum)
	}
	if sdk.endAcqCalls == 0 {
		t.Error("Expected EndAcquisition cleanup after failure")
	}
}

func TestAcquireSpectrumTriggerTimeout(t *testing.T) {
	sdk := &fakeSDK{triggerFreq: 0}
	d := connectedDevice(t, sdk)

	if err := d.SetExternalTrigger(true); err != nil {
		t.Fatalf("SetExternalTrigger failed: %v", err)
	}

	_, err := d.AcquireSpectrum(spectro.Window{Start: 0, Stop: 10}, false)
	if !errors.Is(err, spectro.ErrTriggerTimeout) {
		t.Errorf("Expected trigger timeout, got %v", err)
	}
	if sdk.endAcqCalls == 0 {
		t.Error("Expected EndAcquisition cleanup after timeout")
	}
}

func TestAcquireSpectrumChunksSlowExternalReads(t *testing.T) {
	sdk := &fakeSDK{triggerFreq: 100}
	d := connectedDevice(t, sdk)

	w := spectro.Window{Start: 0, Stop: 999}
	if err := d.LoadTable(w.Start, w.Stop, nil); err != nil {
		t.Fatalf("LoadTable failed: %v", err)
	}
	if err := d.SetExternalTrigger(true); err != nil {
		t.Fatalf("SetExternalTrigger failed: %v", err)
	}

	// 1000 points at 100 Hz is a 10s acquisition, far beyond the
	// blocking read limit
	sdk.readRawPoints = nil
	spectrum, err := d.AcquireSpectrum(w, false)
	if err != nil {
		t.Fatalf("AcquireSpectrum failed: %v", err)
	}
	if len(spectrum) != 1000 {
		t.Fatalf("Expected 1000 samples, got %d", len(spectrum))
	}

	if len(sdk.readRawPoints) != 11 {
		t.Fatalf("Expected 11 chunked reads, got %d: %v", len(sdk.readRawPoints), sdk.readRawPoints)
	}
	total := 0
	for i, points := range sdk.readRawPoints {
		want := 99
		if i == len(sdk.readRawPoints)-1 {
			want = 10 // remainder
		}
		if points != want {
			t.Errorf("Read %d: expected %d points, got %d", i, want, points)
		}
		total += points
	}
	if total != 1000 {
		t.Errorf("Expected chunks to cover the full 1000-point table, got %d", total)
	}
}

func TestAcquireSpectrumFastExternalReadsWholeBuffer(t *testing.T) {
	sdk := &fakeSDK{triggerFreq: 10000}
	d := connectedDevice(t, sdk)

	w := spectro.Window{Start: 0, Stop: 9}
	if err := d.LoadTable(w.Start, w.Stop, nil); err != nil {
		t.Fatalf("LoadTable failed: %v", err)
	}
	if err := d.SetExternalTrigger(true); err != nil {
		t.Fatalf("SetExternalTrigger failed: %v", err)
	}

	sdk.readRawPoints = nil
	if _, err := d.AcquireSpectrum(w, false); err != nil {
		t.Fatalf("AcquireSpectrum failed: %v", err)
	}
	if len(sdk.readRawPoints) != 1 || sdk.readRawPoints[0] != 0 {
		t.Errorf("Expected a single whole-buffer read, got %v", sdk.readRawPoints)
	}
}

func TestAcquireSpectrumAppliesCorrection(t *testing.T) {
	sdk := &fakeSDK{}
	d := connectedDevice(t, sdk)

	if err := d.LoadTable(0, 2, nil); err != nil {
		t.Fatalf("LoadTable failed: %v", err)
	}

	sdk.spectrum = []float64{1, 2, 4}
	d.correct = func(wnums []float64) []float64 { return []float64{2, 2, 2} }
	d.ampCorrection = d.correct(d.Wavenumbers())
	d.SetAmplitudeCorrection(true)

	spectrum, err := d.AcquireSpectrum(spectro.Window{Start: 0, Stop: 2}, false)
	if err != nil {
		t.Fatalf("AcquireSpectrum failed: %v", err)
	}

	expected := []float64{2, 4, 8}
	if len(spectrum) != len(expected) {
		t.Fatalf("Expected %d samples, got %d", len(expected), len(spectrum))
	}
	for i, want := range expected {
		if spectrum[i] != want {
			t.Errorf("Sample %d: expected %v, got %v", i, want, spectrum[i])
		}
	}

	// toggled off: raw intensities pass through
	d.SetAmplitudeCorrection(false)
	spectrum, err = d.AcquireSpectrum(spectro.Window{Start: 0, Stop: 2}, false)
	if err != nil {
		t.Fatalf("AcquireSpectrum failed: %v", err)
	}
	for i, want := range []float64{1, 2, 4} {
		if spectrum[i] != want {
			t.Errorf("Sample %d: expected %v, got %v", i, want, spectrum[i])
		}
	}
}

func TestAcquireRawSeparatesChannels(t *testing.T) {
	sdk := &fakeSDK{}
	d := connectedDevice(t, sdk)

	if err := d.LoadTable(0, 10, nil); err != nil {
		t.Fatalf("LoadTable failed: %v", err)
	}

	signal, reference, err := d.AcquireRaw()
	if err != nil {
		t.Fatalf("AcquireRaw failed: %v", err)
	}
	if len(signal) != 11 || len(reference) != 11 {
		t.Errorf("Expected 11 samples per channel, got %d and %d", len(signal), len(reference))
	}
	if sdk.endAcqCalls != 1 {
		t.Errorf("Expected 1 EndAcquisition cleanup, got %d", sdk.endAcqCalls)
	}
}

func TestAcquireRawSwallowsSDKErrors(t *testing.T) {
	sdk := &fakeSDK{beginErr: errors.New("device busy")}
	d := connectedDevice(t, sdk)

	signal, reference, err := d.AcquireRaw()
	if err != nil {
		t.Errorf("Expected swallowed SDK error, got %v", err)
	}
	if signal != nil || reference != nil {
		t.Errorf("Expected no channel data, got %v and %v", signal, reference)
	}
	if sdk.endAcqCalls == 0 {
		t.Error("Expected EndAcquisition cleanup after failure")
	}
}

func TestAcquireRawTriggerTimeout(t *testing.T) {
	sdk := &fakeSDK{triggerFreq: 0}
	d := connectedDevice(t, sdk)

	if err := d.SetExternalTrigger(true); err != nil {
		t.Fatalf("SetExternalTrigger failed: %v", err)
	}

	_, _, err := d.AcquireRaw()
	if !errors.Is(err, spectro.ErrTriggerTimeout) {
		t.Errorf("Expected trigger timeout, got %v", err)
	}
	if sdk.endAcqCalls == 0 {
		t.Error("Expected EndAcquisition cleanup after timeout")
	}
}

func TestExtTriggerFrequency(t *testing.T) {
	d := connectedDevice(t, &fakeSDK{triggerFreq: 9876.5})

	freq, err := d.ExtTriggerFrequency()
	if err != nil {
		t.Fatalf("ExtTriggerFrequency failed: %v", err)
	}
	if freq != 9876.5 {
		t.Errorf("Expected 9876.5 Hz, got %v", freq)
	}

	d = connectedDevice(t, &fakeSDK{triggerFreqErr: errors.New("counter stalled")})
	if _, err = d.ExtTriggerFrequency(); err == nil {
		t.Error("Expected error when the frequency read fails, got nil")
	}
}

func TestSetAutoParamsAdoptsResults(t *testing.T) {
	sdk := &fakeSDK{
		autoAcq:  AcquisitionParams{TriggerSource: TriggerExternal, TriggerDelayUs: 77, PointRepetition: 4},
		autoProc: ProcessParams{SignalOffset: 0.5, ReferenceOffset: 0.125},
	}
	d := connectedDevice(t, sdk)

	if err := d.SetAutoParams(10, 200); err != nil {
		t.Fatalf("SetAutoParams failed: %v", err)
	}
	if got := d.Params(); got != sdk.autoAcq {
		t.Errorf("Expected acquisition params %+v adopted, got %+v", sdk.autoAcq, got)
	}
	if got := d.ProcessParams(); got != sdk.autoProc {
		t.Errorf("Expected process params %+v adopted, got %+v", sdk.autoProc, got)
	}
}

func TestSetAutoParamsKeepsParamsOnError(t *testing.T) {
	sdk := &fakeSDK{autoErr: errors.New("auto-configuration failed")}
	d := connectedDevice(t, sdk)

	before := d.Params()
	if err := d.SetAutoParams(10, 200); err == nil {
		t.Fatal("Expected error, got nil")
	}
	if got := d.Params(); got != before {
		t.Errorf("Expected local params untouched, got %+v", got)
	}
}

func TestSetAmplitudeCorrectionRequiresTable(t *testing.T) {
	d := connectedDevice(t, &fakeSDK{})

	d.SetAmplitudeCorrection(true)
	if d.AmplitudeCorrection() {
		t.Error("Expected correction to stay off without a correction table")
	}

	d.correct = func(wnums []float64) []float64 { return make([]float64, len(wnums)) }
	d.SetAmplitudeCorrection(true)
	if !d.AmplitudeCorrection() {
		t.Error("Expected correction to turn on with a correction table")
	}
}

func TestTriggerDelayCachedAcrossSourceSwitches(t *testing.T) {
	d := connectedDevice(t, &fakeSDK{})

	p := d.Params()
	p.TriggerSource = TriggerExternal
	p.TriggerDelayUs = 150
	d.SetParams(p)

	// switching to internal zeroes the delay and caches it
	if err := d.SetTriggerSource(false, false, true); err != nil {
		t.Fatalf("SetTriggerSource failed: %v", err)
	}
	if got := d.Params().TriggerDelayUs; got != 0 {
		t.Errorf("Expected zero delay on internal trigger, got %d", got)
	}
	if d.ExternalTrigger() {
		t.Error("Expected internal trigger source")
	}

	// switching back restores the cached delay
	if err := d.SetTriggerSource(true, false, true); err != nil {
		t.Fatalf("SetTriggerSource failed: %v", err)
	}
	if got := d.Params().TriggerDelayUs; got != 150 {
		t.Errorf("Expected cached delay 150us restored, got %d", got)
	}
	if !d.ExternalTrigger() {
		t.Error("Expected external trigger source")
	}
}

func TestSetTriggerSourceApplyCommitsParams(t *testing.T) {
	sdk := &fakeSDK{}
	d := connectedDevice(t, sdk)

	if err := d.SetTriggerSource(true, true, false); err != nil {
		t.Fatalf("SetTriggerSource failed: %v", err)
	}
	if len(sdk.acqParams) != 1 {
		t.Fatalf("Expected 1 committed parameter block, got %d", len(sdk.acqParams))
	}
	if sdk.acqParams[0].TriggerSource != TriggerExternal {
		t.Errorf("Expected external trigger committed, got %v", sdk.acqParams[0].TriggerSource)
	}
}

func TestMeasureOffsetsRestoresParams(t *testing.T) {
	sdk := &fakeSDK{}
	d := connectedDevice(t, sdk)

	signal, reference, err := d.MeasureOffsets()
	if err != nil {
		t.Fatalf("MeasureOffsets failed: %v", err)
	}
	if signal != 0.25 || reference != 0.75 {
		t.Errorf("Expected offsets (0.25, 0.75), got (%v, %v)", signal, reference)
	}

	p := d.ProcessParams()
	if p.SignalOffset != 0.25 || p.ReferenceOffset != 0.75 {
		t.Errorf("Expected offsets stored in process params, got %+v", p)
	}
	if len(sdk.acqParams) != 1 {
		t.Errorf("Expected acquisition params pushed back after measurement, got %d", len(sdk.acqParams))
	}
}

func TestSerials(t *testing.T) {
	serials, err := Serials(&fakeSDK{serials: []int{3, 17}})
	if err != nil {
		t.Fatalf("Serials failed: %v", err)
	}

	expected := []string{"Mozza#3", "Mozza#17"}
	if len(serials) != len(expected) {
		t.Fatalf("Expected %d serials, got %d", len(expected), len(serials))
	}
	for i, want := range expected {
		if serials[i] != want {
			t.Errorf("Serial %d: expected %q, got %q", i, want, serials[i])
		}
	}
}
