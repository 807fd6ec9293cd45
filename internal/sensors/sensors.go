package sensors

import (
	"time"
)

// Provider supplies the latest device health readings, or nil when no
// reading is available.
type Provider interface {
	Get() *Readings
}

// Readings are the on-board spectrometer sensor values
type Readings struct {
	Timestamp    time.Time `json:"timestamp"`              // Timestamp of the sensor read
	CrystalTempC *float64  `json:"crystalTempC,omitempty"` // Acousto-optic crystal temperature in °C
	BoardTempC   *float64  `json:"boardTempC,omitempty"`   // Controller board temperature in °C
	RFPowerW     *float64  `json:"rfPowerW,omitempty"`     // RF driver output power in W
}
