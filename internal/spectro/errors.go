package spectro

import (
	"errors"
	"fmt"
)

// ErrTriggerTimeout is returned when the device is externally triggered
// but no trigger signal is present (trigger frequency reads as zero)
var ErrTriggerTimeout = errors.New("external trigger timeout: trigger frequency is zero")

// DeviceError is a generic device or backend failure: a malformed serial
// string, an SDK command failure after retries are exhausted, and so on
type DeviceError struct {
	msg string
	err error
}

func NewDeviceError(msg string, err error) *DeviceError {
	return &DeviceError{msg, err}
}

func (e *DeviceError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return fmt.Sprintf("%s: %s", e.msg, e.err)
}

func (e *DeviceError) Unwrap() error {
	return e.err
}

// RangeError is returned when a resolved acquisition window does not
// satisfy 0 <= start < stop < npixels
type RangeError struct {
	Start, Stop int
	NPixels     int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("acquisition window [%d, %d) is not in range 0..%d", e.Start, e.Stop, e.NPixels)
}
