package app

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/mozza-spectro/internal/spectro/mozza"
)

const (
	ModeViewer0D = "0d"
	ModeViewer1D = "1d"

	defaultInterval  = time.Second
	defaultNAverage  = 1
	defaultMQTTQoS   = 1
	defaultMQTTTopic = "mozza/spectra"
)

// Config represents the main application configuration
type Config struct {
	Settings    Settings          `yaml:"settings"`
	Device      mozza.Config      `yaml:"device"`
	Acquisition AcquisitionConfig `yaml:"acquisition"`
	Sensors     SensorsConfig     `yaml:"sensors"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	Storage     StorageConfig     `yaml:"storage"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel string `yaml:"logLevel"`
}

// Level maps the configured log level onto slog levels, defaulting to
// info for unknown values.
func (s Settings) Level() slog.Level {
	switch strings.ToLower(s.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Duration parses humane duration strings ("500ms", "2s") from YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("parsing duration: %w", err)
	}

	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", s, err)
	}

	*d = Duration(v)
	return nil
}

// AcquisitionConfig drives the grab loop.
type AcquisitionConfig struct {
	Mode        string   `yaml:"mode"`        // "1d" (spectra) or "0d" (intensity samples)
	Interval    Duration `yaml:"interval"`    // time between grabs
	NAverage    int      `yaml:"naverage"`    // acquisitions averaged per grab
	WindowStart int      `yaml:"windowStart"` // pixel window, negative counts from the end
	WindowStop  int      `yaml:"windowStop"`  // 0 selects the full axis
}

// SensorsConfig controls periodic device health capture.
type SensorsConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Interval Duration `yaml:"interval"`
}

// MQTTConfig represents spectra publishing settings
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"` // e.g. tcp://localhost:1883
	ClientID string `yaml:"clientID"`
	Topic    string `yaml:"topic"`
	QoS      byte   `yaml:"qos"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// StorageConfig represents storage settings
type StorageConfig struct {
	DataDirectory string `yaml:"dataDirectory"`
	MaxBatchSize  int    `yaml:"maxBatchSize"`
}

// LoadConfig reads and validates the YAML configuration at path,
// filling in defaults for optional settings.
func LoadConfig(path string) (*Config, error) {
	p, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}

	var config Config
	if err = yaml.Unmarshal(p, &config); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err = config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) validate() error {
	if err := c.Device.Validate(); err != nil {
		return err
	}
	if c.Device.Serial == "" {
		return fmt.Errorf("config: device serial is required")
	}

	switch c.Acquisition.Mode {
	case "":
		c.Acquisition.Mode = ModeViewer1D
	case ModeViewer0D, ModeViewer1D:
	default:
		return fmt.Errorf("config: unknown acquisition mode '%s'", c.Acquisition.Mode)
	}

	if c.Acquisition.Interval < 0 {
		return fmt.Errorf("config: acquisition interval cannot be negative")
	}
	if c.Acquisition.Interval == 0 {
		c.Acquisition.Interval = Duration(defaultInterval)
	}
	if c.Acquisition.NAverage < 0 {
		return fmt.Errorf("config: naverage cannot be negative")
	}
	if c.Acquisition.NAverage == 0 {
		c.Acquisition.NAverage = defaultNAverage
	}
	// A zero stop never names a valid window (start < stop is required);
	// it stands for the last pixel of the axis.
	if c.Acquisition.WindowStop == 0 {
		c.Acquisition.WindowStop = -1
	}

	if c.Sensors.Enabled && c.Sensors.Interval <= 0 {
		return fmt.Errorf("config: sensors interval must be positive when enabled")
	}

	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			return fmt.Errorf("config: mqtt broker is required when mqtt is enabled")
		}
		if c.MQTT.Topic == "" {
			c.MQTT.Topic = defaultMQTTTopic
		}
		if c.MQTT.QoS > 2 {
			return fmt.Errorf("config: mqtt qos must be 0, 1 or 2")
		}
	}

	return nil
}
