package spectrum

import (
	"time"

	"github.com/roman-kulish/mozza-spectro/internal/sensors"
)

// ScanSession represents a single acquisition session with a specific
// spectrometer. Each session captures metadata about when and how the
// acquisition was performed.
type ScanSession struct {
	ID         int64     `json:"ID"`                      // Unique identifier for the session
	StartTime  time.Time `json:"startTime"`               // When the session began
	DeviceType string    `json:"deviceType"`              // Spectrometer family (e.g. "Mozza")
	DeviceID   string    `json:"deviceID"`                // Discovery identifier (e.g. "Mozza#12")
	Config     *string   `json:"config,omitempty"` // Optional device configuration in JSON format
}

// SpectralPoint represents a single intensity measurement at a specific
// point of the programmed wavenumber table.
type SpectralPoint struct {
	Wavenumber  float64  `json:"wavenumber"`          // Spectral coordinate in cm^-1
	Intensity   *float64 `json:"intensity,omitempty"` // Averaged intensity (nil if every cycle was dropped)
	NumAverages int      `json:"numAverages"`         // Number of acquisitions averaged into this point
}

// SpectralSpan represents one complete spectrum at a point in time: an
// ordered sequence of measurements over the programmed wavenumber table,
// optionally annotated with the sensor readings taken alongside.
type SpectralSpan struct {
	Timestamp       time.Time         `json:"timestamp"`         // When this spectrum was acquired
	WavenumberStart float64           `json:"wavenumberStart"`   // First table point in cm^-1
	WavenumberEnd   float64           `json:"wavenumberEnd"`     // Last table point in cm^-1
	Samples         []SpectralPoint   `json:"samples,omitempty"` // Ordered measurements over the table
	Sensors         *sensors.Readings `json:"sensors,omitempty"` // Device health readings, if captured
}
