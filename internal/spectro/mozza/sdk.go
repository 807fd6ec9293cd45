package mozza

// TriggerSource selects the acquisition timing mode: device-paced
// (internal) or externally clocked (external).
type TriggerSource uint8

const (
	TriggerInternal TriggerSource = iota
	TriggerExternal
)

func (t TriggerSource) String() string {
	if t == TriggerExternal {
		return "external"
	}
	return "internal"
}

// AcquisitionParams mirrors the SDK acquisition parameter block. The
// backend keeps the authoritative copy and pushes it to the device with
// SetAcquisitionParams.
type AcquisitionParams struct {
	TriggerSource      TriggerSource
	TriggerFrequencyHz int
	TriggerDelayUs     int
	PointRepetition    int
	SignalHighGain     bool
	ReferenceHighGain  bool
}

// ProcessParams mirrors the SDK spectrum processing parameter block.
type ProcessParams struct {
	SignalOffset    float64
	ReferenceOffset float64
}

// AutoParams is the input to the SDK auto-configuration routine.
type AutoParams struct {
	PointRepetition   int
	ReferenceOffset   float64
	SignalHighGain    bool
	ReferenceHighGain bool
	TriggerToLaserUs  int
	AcquisitionTimeUs int
}

// SensorReadings are the on-board device sensor values returned by the
// SDK sensor read.
type SensorReadings struct {
	CrystalTempC float64
	BoardTempC   float64
	RFPowerW     float64
}

// SDK is the vendor USB SDK boundary. The backend is the only caller;
// concurrent use is serialized by the backend lock. Implementations wrap
// the vendor shared library (see the libmozza package) and surface every
// failure as a plain error: the backend does not distinguish SDK error
// kinds.
type SDK interface {
	// Serials lists the serial numbers of attached Mozza devices.
	Serials() ([]int, error)

	Connect(serial int) error
	Disconnect() error

	// Sensors reads the on-board sensors. Used as a liveness probe right
	// after Connect.
	Sensors() (SensorReadings, error)

	// ResetAll performs a full device reset.
	ResetAll() error

	// SetDefaultParams applies the vendor default parameter set.
	SetDefaultParams() error

	// SetWavenumberArray programs the device wavenumber table.
	SetWavenumberArray(wnums []float64) error

	// TableLength reports the length of the currently programmed table.
	TableLength() int

	// RawDataSize reports the raw buffer size in bytes for a table of the
	// given length.
	RawDataSize(tableLength int) int

	// BeginAcquisition arms the device and returns the number of bytes
	// the acquisition will produce.
	BeginAcquisition() (int, error)
	EndAcquisition() error

	// ReadRaw reads raw acquisition data for the given number of table
	// points. A points value <= 0 reads the whole programmed table in one
	// blocking call.
	ReadRaw(points int) ([]byte, error)

	// ProcessSpectrum converts a raw acquisition buffer into spectral
	// intensities over the programmed table.
	ProcessSpectrum(raw []byte) ([]float64, error)

	// SeparateSigRef splits a raw buffer into signal and reference
	// channel samples.
	SeparateSigRef(raw []byte) (signal, reference []float64, err error)

	// MeasureOffsets runs the SDK offset measurement routine for the
	// signal and reference channels. The routine perturbs device state;
	// callers must restore parameters afterwards.
	MeasureOffsets(signalHighGain, referenceHighGain bool) (signal, reference float64, err error)

	SetRFAttenuation(db float64) error
	RFAttenuation() float64

	SetAcquisitionParams(p AcquisitionParams) error
	SetProcessParams(p ProcessParams) error
	SetupGains(signalHighGain, referenceHighGain bool) error

	// SetAutoParams runs the SDK auto-configuration routine and returns
	// the parameter blocks it settled on.
	SetAutoParams(p AutoParams) (AcquisitionParams, ProcessParams, error)

	// TriggerFrequency measures the live external trigger frequency in Hz.
	TriggerFrequency() (float64, error)
}
