package mozza

import (
	"errors"
	"fmt"
)

const (
	// Default wavenumber table step when building a table from a
	// configured wavenumber range, cm^-1
	DefaultTableStep = 5.0
)

// Config is the configuration of a single Mozza device. The wavenumber
// window selects the table programmed after connecting; trigger and gain
// settings are committed through the acquisition parameter block.
type Config struct {
	// Required
	Serial string `yaml:"serial" json:"serial"` // Discovery identifier, "Mozza#<int>"

	// Wavenumber table window in cm^-1
	WavenumberStart float64 `yaml:"wavenumberStart" json:"wavenumberStart"`
	WavenumberEnd   float64 `yaml:"wavenumberEnd" json:"wavenumberEnd"`
	TableStep       float64 `yaml:"tableStep" json:"tableStep"` // cm^-1 per table point, 0 for default

	// Trigger configuration
	ExternalTrigger    bool `yaml:"externalTrigger" json:"externalTrigger"`
	TriggerFrequencyHz int  `yaml:"triggerFrequencyHz" json:"triggerFrequencyHz"`
	TriggerDelayUs     int  `yaml:"triggerDelayUs" json:"triggerDelayUs"`

	// Analog front end
	RFAttenuationDb   *float64 `yaml:"rfAttenuationDb" json:"rfAttenuationDb"`
	SignalHighGain    bool     `yaml:"signalHighGain" json:"signalHighGain"`
	ReferenceHighGain bool     `yaml:"referenceHighGain" json:"referenceHighGain"`

	// Amplitude correction
	ApplyAmpCorrection bool   `yaml:"applyAmpCorrection" json:"applyAmpCorrection"`
	CorrectionDir      string `yaml:"correctionDir" json:"correctionDir"`
}

func (c *Config) Validate() error {
	if c.Serial != "" {
		if _, err := ParseSerial(c.Serial); err != nil {
			return fmt.Errorf("mozza.Config: %w", err)
		}
	}

	if c.WavenumberStart >= c.WavenumberEnd {
		return errors.New("mozza.Config: wavenumber end must be greater than wavenumber start")
	}
	if c.WavenumberStart < calibrationMinWavenumber || c.WavenumberEnd > calibrationMaxWavenumber {
		return fmt.Errorf("mozza.Config: wavenumber window must be within %0.f..%0.f cm^-1",
			calibrationMinWavenumber, calibrationMaxWavenumber)
	}

	if c.TableStep < 0 {
		return fmt.Errorf("mozza.Config: table step cannot be negative: %f given", c.TableStep)
	}

	if c.ExternalTrigger && c.TriggerFrequencyHz < 0 {
		return fmt.Errorf("mozza.Config: trigger frequency cannot be negative: %d given", c.TriggerFrequencyHz)
	}
	if c.TriggerDelayUs < 0 {
		return fmt.Errorf("mozza.Config: trigger delay cannot be negative: %d given", c.TriggerDelayUs)
	}

	return nil
}

// Wavenumbers builds the wavenumber table selected by the configured
// window, ascending at the configured step.
func (c *Config) Wavenumbers() []float64 {
	step := c.TableStep
	if step == 0 {
		step = DefaultTableStep
	}

	var wnums []float64
	for wn := c.WavenumberStart; wn < c.WavenumberEnd; wn += step {
		wnums = append(wnums, wn)
	}
	return wnums
}

// Configure applies the configuration to a connected device: trigger
// source and timing, analog front end, amplitude correction toggle, and
// finally the wavenumber table.
func (d *Device) Configure(c *Config) error {
	if err := c.Validate(); err != nil {
		return err
	}

	p := d.Params()
	p.TriggerFrequencyHz = c.TriggerFrequencyHz
	p.TriggerDelayUs = c.TriggerDelayUs
	p.SignalHighGain = c.SignalHighGain
	p.ReferenceHighGain = c.ReferenceHighGain
	d.SetParams(p)

	// seed the delay cache so the source switch below keeps the
	// configured delay instead of a stale one
	d.trigDelayUs = c.TriggerDelayUs

	if err := d.SetTriggerSource(c.ExternalTrigger, false, true); err != nil {
		return err
	}
	if c.RFAttenuationDb != nil {
		d.rfAttenuation = *c.RFAttenuationDb
	}

	// one locked sequence commits acquisition, process, RF attenuation
	// and gain settings
	if err := d.ApplyAllParams(); err != nil {
		return err
	}

	d.SetAmplitudeCorrection(c.ApplyAmpCorrection)

	return d.LoadTable(0, 0, c.Wavenumbers())
}
