package app

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"
)

const (
	ImagePNG  ImageFormat = "png"
	ImageJPEG ImageFormat = "jpeg"
)

type ImageFormat string

type Config struct {
	DBPath     string
	SessionID  int64
	OutputFile string
	FontPath   string
	Format     ImageFormat
	Theme      ColorTheme
	TimeZone   *time.Location

	MinWavenumber *float64
	MaxWavenumber *float64
	MinTimestamp  *time.Time
	MaxTimestamp  *time.Time

	NoAnnotations bool
}

var validImageFormats = map[ImageFormat]struct{}{
	ImagePNG:  {},
	ImageJPEG: {},
}

func NewConfig() *Config {
	return &Config{
		Format:   ImagePNG,
		Theme:    ClassicTheme,
		TimeZone: time.Local,
	}
}

func NewConfigFromCLI() (*Config, error) {
	c := NewConfig()

	var imageFormat, theme, timeZone string
	var minWn, maxWn float64
	var from, to string
	flag.StringVar(&c.DBPath, "db", "", "Path to the session database file")
	flag.Int64Var(&c.SessionID, "s", 1, "Session ID")
	flag.StringVar(&c.OutputFile, "o", "", "Path to the output file, without extension")
	flag.StringVar(&c.FontPath, "font", "", "Path to a TrueType font used for annotations")
	flag.StringVar(&imageFormat, "f", string(ImagePNG), "Output image format. [png, jpeg]")
	flag.StringVar(&theme, "theme", string(ClassicTheme), "Color theme. [classic, grayscale, jungle, thermal, marine]")
	flag.StringVar(&timeZone, "tz", "", "Timezone for time annotations, e.g. Europe/Paris")
	flag.Float64Var(&minWn, "min-wn", 0, "Minimum wavenumber in cm^-1")
	flag.Float64Var(&maxWn, "max-wn", 0, "Maximum wavenumber in cm^-1")
	flag.StringVar(&from, "from", "", "Only render spectra acquired after this time (format 2006-01-02 15:04:05)")
	flag.StringVar(&to, "to", "", "Only render spectra acquired before this time (format 2006-01-02 15:04:05)")
	flag.BoolVar(&c.NoAnnotations, "no-annotations", false, "Disable annotations such as time and wavenumber scales")
	flag.Parse()

	imageFormat = strings.ToLower(imageFormat)

	flag.Visit(func(f *flag.Flag) {
		if f.Name == "min-wn" {
			c.MinWavenumber = &minWn
		}
		if f.Name == "max-wn" {
			c.MaxWavenumber = &maxWn
		}
	})

	var err error
	if c.DBPath == "" {
		err = errors.New("db path is required")
	} else if c.SessionID <= 0 {
		err = errors.New("session id is required")
	} else if c.OutputFile == "" {
		err = errors.New("output file is required")
	} else if !c.NoAnnotations && c.FontPath == "" {
		err = errors.New("font path is required unless annotations are disabled")
	} else if _, ok := validImageFormats[ImageFormat(imageFormat)]; !ok {
		err = fmt.Errorf("invalid image format: %s", imageFormat)
	}

	if err == nil && timeZone != "" {
		c.TimeZone, err = time.LoadLocation(timeZone)
	}
	if err == nil && from != "" {
		var t time.Time
		if t, err = time.ParseInLocation(time.DateTime, from, c.TimeZone); err == nil {
			c.MinTimestamp = &t
		}
	}
	if err == nil && to != "" {
		var t time.Time
		if t, err = time.ParseInLocation(time.DateTime, to, c.TimeZone); err == nil {
			c.MaxTimestamp = &t
		}
	}

	if err != nil {
		flag.Usage()
		return nil, err
	}

	c.Theme = ColorTheme(theme)
	c.Format = ImageFormat(imageFormat)
	c.OutputFile = fmt.Sprintf("%s.%s", c.OutputFile, c.Format)
	return c, nil
}
