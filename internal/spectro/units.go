package spectro

// SpectralUnits is the device-native spectral coordinate convention.
// Grating spectrometers report wavelengths; acousto-optic devices and
// FTIR report wavenumbers.
type SpectralUnits uint8

const (
	UnitsNanometers SpectralUnits = iota // wavelength in nm
	UnitsInverseCentimeters              // wavenumber in cm^-1
)

// Label returns the axis unit label for the spectral units.
func (u SpectralUnits) Label() string {
	if u == UnitsInverseCentimeters {
		return "cm^-1"
	}
	return "nm"
}

// Quantity returns the physical quantity name for the spectral units.
func (u SpectralUnits) Quantity() string {
	if u == UnitsInverseCentimeters {
		return "Wavenumber"
	}
	return "Wavelength"
}

// WavelengthToWavenumber converts a wavelength in nm to a wavenumber
// in cm^-1. The conversion is its own inverse.
func WavelengthToWavenumber(nm float64) float64 {
	return 1e7 / nm
}
