//go:build cgo && linux

// Package libmozza binds the vendor Mozza USB SDK shared library to the
// mozza.SDK interface. The library speaks the USB protocol; this package
// only marshals arguments and error codes across the cgo boundary.
package libmozza

/*
#cgo CFLAGS: -I/usr/local/include
#cgo LDFLAGS: -L/usr/local/lib -lmozza
#include <stdlib.h>
#include <mozza.h>
*/
import "C"
import (
	"fmt"
	"unsafe"

	"github.com/roman-kulish/mozza-spectro/internal/spectro/mozza"
)

const maxDevices = 16

// Error wraps a vendor SDK status code
type Error struct {
	Op   string
	Code int
}

func (e *Error) Error() string {
	return fmt.Sprintf("libmozza: %s failed with code %d", e.Op, e.Code)
}

func status(op string, code C.int) error {
	if code == 0 {
		return nil
	}
	return &Error{Op: op, Code: int(code)}
}

// SDK is a handle to one vendor SDK device context. It is not safe for
// concurrent use; the backend serializes access.
type SDK struct {
	handle C.mozza_handle
}

// New allocates a vendor SDK device context.
func New() *SDK {
	return &SDK{handle: C.mozza_create()}
}

// Free releases the device context. The SDK must not be used afterwards.
func (s *SDK) Free() {
	C.mozza_free(s.handle)
}

func (s *SDK) Serials() ([]int, error) {
	var buf [maxDevices]C.int
	n := C.mozza_get_serials(s.handle, &buf[0], maxDevices)
	if n < 0 {
		return nil, status("get_serials", n)
	}

	serials := make([]int, int(n))
	for i := range serials {
		serials[i] = int(buf[i])
	}
	return serials, nil
}

func (s *SDK) Connect(serial int) error {
	return status("connect", C.mozza_connect(s.handle, C.int(serial)))
}

func (s *SDK) Disconnect() error {
	return status("disconnect", C.mozza_disconnect(s.handle))
}

func (s *SDK) Sensors() (mozza.SensorReadings, error) {
	var raw C.mozza_sensors
	if err := status("get_sensors", C.mozza_get_sensors(s.handle, &raw)); err != nil {
		return mozza.SensorReadings{}, err
	}

	return mozza.SensorReadings{
		CrystalTempC: float64(raw.crystal_temp_c),
		BoardTempC:   float64(raw.board_temp_c),
		RFPowerW:     float64(raw.rf_power_w),
	}, nil
}

func (s *SDK) ResetAll() error {
	return status("reset_all", C.mozza_reset_all(s.handle))
}

func (s *SDK) SetDefaultParams() error {
	return status("set_default_params", C.mozza_set_default_params(s.handle))
}

func (s *SDK) SetWavenumberArray(wnums []float64) error {
	if len(wnums) == 0 {
		return &Error{Op: "set_wavenumber_array", Code: -1}
	}
	return status("set_wavenumber_array",
		C.mozza_set_wavenumber_array(s.handle, (*C.double)(unsafe.Pointer(&wnums[0])), C.size_t(len(wnums))))
}

func (s *SDK) TableLength() int {
	return int(C.mozza_table_length(s.handle))
}

func (s *SDK) RawDataSize(tableLength int) int {
	return int(C.mozza_raw_data_size(s.handle, C.size_t(tableLength)))
}

func (s *SDK) BeginAcquisition() (int, error) {
	n := C.mozza_begin_acquisition(s.handle)
	if n < 0 {
		return 0, status("begin_acquisition", C.int(n))
	}
	return int(n), nil
}

func (s *SDK) EndAcquisition() error {
	return status("end_acquisition", C.mozza_end_acquisition(s.handle))
}

func (s *SDK) ReadRaw(points int) ([]byte, error) {
	var size int
	if points > 0 {
		size = s.RawDataSize(points)
	} else {
		size = s.RawDataSize(s.TableLength())
	}

	buf := make([]byte, size)
	n := C.mozza_read_raw(s.handle, (*C.uchar)(unsafe.Pointer(&buf[0])), C.size_t(size))
	if n < 0 {
		return nil, status("read_raw", C.int(n))
	}
	return buf[:int(n)], nil
}

func (s *SDK) ProcessSpectrum(raw []byte) ([]float64, error) {
	if len(raw) == 0 {
		return nil, &Error{Op: "process_spectrum", Code: -1}
	}

	out := make([]float64, s.TableLength())
	if err := status("process_spectrum",
		C.mozza_process_spectrum(s.handle,
			(*C.uchar)(unsafe.Pointer(&raw[0])), C.size_t(len(raw)),
			(*C.double)(unsafe.Pointer(&out[0])))); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SDK) SeparateSigRef(raw []byte) (signal, reference []float64, err error) {
	if len(raw) == 0 {
		return nil, nil, &Error{Op: "separate_sig_ref", Code: -1}
	}

	n := s.TableLength()
	signal = make([]float64, n)
	reference = make([]float64, n)
	if err = status("separate_sig_ref",
		C.mozza_separate_sig_ref(s.handle,
			(*C.uchar)(unsafe.Pointer(&raw[0])), C.size_t(len(raw)),
			(*C.double)(unsafe.Pointer(&signal[0])),
			(*C.double)(unsafe.Pointer(&reference[0])))); err != nil {
		return nil, nil, err
	}
	return signal, reference, nil
}

func (s *SDK) MeasureOffsets(signalHighGain, referenceHighGain bool) (signal, reference float64, err error) {
	var sig, ref C.double
	if err = status("measure_offsets",
		C.mozza_measure_offsets(s.handle, cbool(signalHighGain), cbool(referenceHighGain), &sig, &ref)); err != nil {
		return 0, 0, err
	}
	return float64(sig), float64(ref), nil
}

func (s *SDK) SetRFAttenuation(db float64) error {
	return status("set_rf_attenuation", C.mozza_set_rf_attenuation(s.handle, C.double(db)))
}

func (s *SDK) RFAttenuation() float64 {
	return float64(C.mozza_get_rf_attenuation(s.handle))
}

func (s *SDK) SetAcquisitionParams(p mozza.AcquisitionParams) error {
	var raw C.mozza_acquisition_params
	raw.trigger_source = C.int(p.TriggerSource)
	raw.trigger_frequency_hz = C.int(p.TriggerFrequencyHz)
	raw.trigger_delay_us = C.int(p.TriggerDelayUs)
	raw.point_repetition = C.int(p.PointRepetition)
	raw.signal_high_gain = cbool(p.SignalHighGain)
	raw.reference_high_gain = cbool(p.ReferenceHighGain)

	return status("set_acquisition_params", C.mozza_set_acquisition_params(s.handle, &raw))
}

func (s *SDK) SetProcessParams(p mozza.ProcessParams) error {
	var raw C.mozza_process_params
	raw.signal_offset = C.double(p.SignalOffset)
	raw.reference_offset = C.double(p.ReferenceOffset)

	return status("set_process_params", C.mozza_set_process_params(s.handle, &raw))
}

func (s *SDK) SetupGains(signalHighGain, referenceHighGain bool) error {
	return status("setup_gains", C.mozza_setup_gains(s.handle, cbool(signalHighGain), cbool(referenceHighGain)))
}

func (s *SDK) SetAutoParams(p mozza.AutoParams) (mozza.AcquisitionParams, mozza.ProcessParams, error) {
	var acq C.mozza_acquisition_params
	var proc C.mozza_process_params

	err := status("set_auto_params",
		C.mozza_set_auto_params(s.handle,
			C.int(p.PointRepetition), C.double(p.ReferenceOffset),
			cbool(p.SignalHighGain), cbool(p.ReferenceHighGain),
			C.int(p.TriggerToLaserUs), C.int(p.AcquisitionTimeUs),
			&acq, &proc))
	if err != nil {
		return mozza.AcquisitionParams{}, mozza.ProcessParams{}, err
	}

	return mozza.AcquisitionParams{
			TriggerSource:      mozza.TriggerSource(acq.trigger_source),
			TriggerFrequencyHz: int(acq.trigger_frequency_hz),
			TriggerDelayUs:     int(acq.trigger_delay_us),
			PointRepetition:    int(acq.point_repetition),
			SignalHighGain:     acq.signal_high_gain != 0,
			ReferenceHighGain:  acq.reference_high_gain != 0,
		}, mozza.ProcessParams{
			SignalOffset:    float64(proc.signal_offset),
			ReferenceOffset: float64(proc.reference_offset),
		}, nil
}

func (s *SDK) TriggerFrequency() (float64, error) {
	var freq C.double
	if err := status("get_trigger_frequency", C.mozza_get_trigger_frequency(s.handle, &freq)); err != nil {
		return 0, err
	}
	return float64(freq), nil
}

func cbool(b bool) C.int {
	if b {
		return 1
	}
	return 0
}
