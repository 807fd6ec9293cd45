package app

import (
	"image/color"
	"math"
)

// ColorTheme represents a predefined color scheme for intensity
// visualization:
// - ClassicTheme: Traditional spectrum display (blue to red)
// - GrayscaleTheme: Monochrome visualization
// - JungleTheme: Nature-inspired colors for better contrast
// - ThermalTheme: Heat map visualization
// - MarineTheme: Water-depth inspired colors
type ColorTheme string

const (
	ClassicTheme   ColorTheme = "classic"   // Blue to red transition
	GrayscaleTheme ColorTheme = "grayscale" // Black to white transition
	JungleTheme    ColorTheme = "jungle"    // Dark green to yellow transition
	ThermalTheme   ColorTheme = "thermal"   // Black to red to yellow to white
	MarineTheme    ColorTheme = "marine"    // Deep blue to cyan to white

	DefaultColorMapSize = 256 // Default number of colors in the map
)

// ColorMapper provides efficient intensity-to-color mapping with support
// for different color themes and dynamic display range adjustment.
// Lookups happen on the log intensity scale the bounds are tracked on.
type ColorMapper struct {
	colorMap      []color.Color // Pre-computed colors
	theme         func(float64) color.Color
	themeName     ColorTheme
	size          int     // Cache size
	dbPerIndex    float64 // Display range per index step
	boundsMin     float64 // Cached bounds.Min
	boundsRange   float64 // Cached bounds.Max - bounds.Min
}

// NewColorMapper creates a new color mapper with specified theme and
// bounds. Uses default size (256) for the color map.
func NewColorMapper(theme ColorTheme, bounds IntensityBounds) *ColorMapper {
	return NewColorMapperWithSize(theme, bounds, DefaultColorMapSize)
}

// NewColorMapperWithSize creates a new color mapper with specified size.
// Size determines the number of pre-computed colors in the map.
func NewColorMapperWithSize(theme ColorTheme, bounds IntensityBounds, size int) *ColorMapper {
	if size <= 0 {
		size = DefaultColorMapSize
	}

	cm := &ColorMapper{
		colorMap:  make([]color.Color, size),
		theme:     getColorTheme(theme),
		themeName: theme,
		size:      size,
	}
	cm.UpdateBounds(bounds)
	return cm
}

// UpdateBounds updates the display bounds and recomputes the color map
func (cm *ColorMapper) UpdateBounds(bounds IntensityBounds) {
	cm.boundsMin = bounds.Min
	cm.boundsRange = bounds.Max - bounds.Min
	cm.dbPerIndex = cm.boundsRange / float64(cm.size-1)

	// Rebuild color map
	for i := 0; i < cm.size; i++ {
		normalized := float64(i) / float64(cm.size-1)
		cm.colorMap[i] = cm.theme(normalized)
	}
}

// GetColor returns a color for the given raw intensity value
func (cm *ColorMapper) GetColor(intensity *float64) color.Color {
	if intensity == nil {
		return cm.colorMap[0] // Min color for dropped readings
	}

	db, ok := intensityDB(*intensity)
	if !ok {
		return cm.colorMap[0]
	}

	index := int((db - cm.boundsMin) / cm.dbPerIndex)
	if index < 0 {
		return cm.colorMap[0]
	}
	if index >= cm.size {
		return cm.colorMap[cm.size-1]
	}
	return cm.colorMap[index]
}

// ThemeName returns the current color theme name
func (cm *ColorMapper) ThemeName() ColorTheme {
	return cm.themeName
}

// Size returns the color map size
func (cm *ColorMapper) Size() int {
	return cm.size
}

// HSV represents a color in HSV (Hue, Saturation, Value) color space
type HSV struct {
	H float64 // Hue angle in degrees [0-360]
	S float64 // Saturation [0-1]
	V float64 // Value/Brightness [0-1]
}

// RGB converts HSV to RGB color space efficiently
func (hsv HSV) RGB() color.Color {
	// Fast path for grayscale
	if hsv.S <= 0.0 {
		v := uint8(hsv.V * 255)
		return color.RGBA{R: v, G: v, B: v, A: 255}
	}

	// Normalize hue to [0-6)
	h := hsv.H
	if h >= 360 {
		h -= 360
	}
	h /= 60

	i := int(h)
	f := h - float64(i)

	v := uint8(hsv.V * 255)
	p := uint8((hsv.V * (1 - hsv.S)) * 255)
	q := uint8((hsv.V * (1 - (hsv.S * f))) * 255)
	t := uint8((hsv.V * (1 - (hsv.S * (1 - f)))) * 255)

	switch i {
	case 0:
		return color.RGBA{R: v, G: t, B: p, A: 255}
	case 1:
		return color.RGBA{R: q, G: v, B: p, A: 255}
	case 2:
		return color.RGBA{R: p, G: v, B: t, A: 255}
	case 3:
		return color.RGBA{R: p, G: q, B: v, A: 255}
	case 4:
		return color.RGBA{R: t, G: p, B: v, A: 255}
	default: // case 5:
		return color.RGBA{R: v, G: p, B: q, A: 255}
	}
}

// Color theme implementations
func getColorTheme(theme ColorTheme) func(float64) color.Color {
	switch theme {
	case ClassicTheme:
		return func(x float64) color.Color {
			return HSV{
				H: 240 - (x * 240),
				S: 0.9 + (x * 0.1),
				V: math.Pow(x, 0.7),
			}.RGB()
		}

	case GrayscaleTheme:
		return func(x float64) color.Color {
			v := uint8(math.Pow(x, 0.7) * 255)
			return color.RGBA{R: v, G: v, B: v, A: 255}
		}

	case JungleTheme:
		return func(x float64) color.Color {
			return HSV{
				H: 120 - (x * 60),
				S: 1.0,
				V: 0.3 + (math.Pow(x, 0.6) * 0.7),
			}.RGB()
		}

	case ThermalTheme:
		return func(x float64) color.Color {
			if x < 0.33 {
				return color.RGBA{
					R: uint8((x * 3) * 255),
					A: 255,
				}
			}
			if x < 0.66 {
				return color.RGBA{
					R: 255,
					G: uint8(((x - 0.33) * 3) * 255),
					A: 255,
				}
			}
			return color.RGBA{
				R: 255,
				G: 255,
				B: uint8(((x - 0.66) * 3) * 255),
				A: 255,
			}
		}

	case MarineTheme:
		return func(x float64) color.Color {
			return HSV{
				H: 240 - (x * 60),
				S: 1.0 - (x * 0.8),
				V: 0.3 + (math.Pow(x, 0.6) * 0.7),
			}.RGB()
		}

	default: // Enhanced default theme
		return func(x float64) color.Color {
			x = math.Max(0, math.Min(1, x))
			enhanced := math.Pow(x, 0.7)

			switch {
			case x < 0.25:
				return HSV{
					H: 240,
					S: 1.0,
					V: enhanced * 4,
				}.RGB()
			case x < 0.5:
				return HSV{
					H: 240 - ((x - 0.25) * 240),
					S: 1.0,
					V: enhanced * 1.5,
				}.RGB()
			case x < 0.75:
				p := (x - 0.5) * 4
				return HSV{
					H: 180 - (p * 120),
					S: 1.0,
					V: math.Min(1.0, enhanced*1.5),
				}.RGB()
			default:
				p := (x - 0.75) * 4
				return HSV{
					H: 60 - (p * 60),
					S: 1.0,
					V: 1.0,
				}.RGB()
			}
		}
	}
}
