//go:build !cgo || !linux

package libmozza

import (
	"errors"

	"github.com/roman-kulish/mozza-spectro/internal/spectro/mozza"
)

// ErrUnsupported is returned by every SDK call when the binary was built
// without the vendor library binding.
var ErrUnsupported = errors.New("libmozza: built without vendor SDK support (requires cgo on linux)")

// SDK is a stub standing in for the vendor SDK binding on platforms
// without it.
type SDK struct{}

func New() *SDK { return &SDK{} }

func (s *SDK) Free() {}

func (s *SDK) Serials() ([]int, error)        { return nil, ErrUnsupported }
func (s *SDK) Connect(serial int) error       { return ErrUnsupported }
func (s *SDK) Disconnect() error              { return ErrUnsupported }
func (s *SDK) ResetAll() error                { return ErrUnsupported }
func (s *SDK) SetDefaultParams() error        { return ErrUnsupported }
func (s *SDK) TableLength() int               { return 0 }
func (s *SDK) RawDataSize(tableLength int) int { return 0 }
func (s *SDK) EndAcquisition() error          { return ErrUnsupported }
func (s *SDK) RFAttenuation() float64         { return 0 }

func (s *SDK) Sensors() (mozza.SensorReadings, error) {
	return mozza.SensorReadings{}, ErrUnsupported
}

func (s *SDK) SetWavenumberArray(wnums []float64) error { return ErrUnsupported }

func (s *SDK) BeginAcquisition() (int, error) { return 0, ErrUnsupported }

func (s *SDK) ReadRaw(points int) ([]byte, error) { return nil, ErrUnsupported }

func (s *SDK) ProcessSpectrum(raw []byte) ([]float64, error) { return nil, ErrUnsupported }

func (s *SDK) SeparateSigRef(raw []byte) (signal, reference []float64, err error) {
	return nil, nil, ErrUnsupported
}

func (s *SDK) MeasureOffsets(signalHighGain, referenceHighGain bool) (signal, reference float64, err error) {
	return 0, 0, ErrUnsupported
}

func (s *SDK) SetRFAttenuation(db float64) error { return ErrUnsupported }

func (s *SDK) SetAcquisitionParams(p mozza.AcquisitionParams) error { return ErrUnsupported }

func (s *SDK) SetProcessParams(p mozza.ProcessParams) error { return ErrUnsupported }

func (s *SDK) SetupGains(signalHighGain, referenceHighGain bool) error { return ErrUnsupported }

func (s *SDK) SetAutoParams(p mozza.AutoParams) (mozza.AcquisitionParams, mozza.ProcessParams, error) {
	return mozza.AcquisitionParams{}, mozza.ProcessParams{}, ErrUnsupported
}

func (s *SDK) TriggerFrequency() (float64, error) { return 0, ErrUnsupported }
