package mozza

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// correctionFunc evaluates the amplitude correction multipliers for a
// wavenumber table.
type correctionFunc func(wnums []float64) []float64

// LoadAmpCorrection loads the per-serial amplitude correction table
// `<serial:04d>_AmplitudeCorrection.txt` and builds the interpolation
// function over wavenumber. Missing files and invalid correction data
// (negative amplitudes, length mismatch) disable correction with a
// warning instead of failing. Returns whether correction is available.
func (d *Device) LoadAmpCorrection(serialNum int) bool {
	d.correct = nil // reset the correction function

	path := filepath.Join(d.correctionDir, fmt.Sprintf("%04d_AmplitudeCorrection.txt", serialNum))
	wavelength, amplitude, err := readCorrectionFile(path)
	if err != nil {
		d.logger.Warn("amplitude correction unavailable",
			slog.String("serial", FormatSerial(serialNum)),
			slog.String("error", err.Error()))
		d.applyAmpCorr = false
		return false
	}

	d.logger.Debug("making amplitude correction")

	fn, ok := buildCorrection(wavelength, amplitude, d.logger)
	if !ok {
		d.applyAmpCorr = false
		return false
	}

	d.correct = fn
	return true
}

// buildCorrection validates a (wavelength nm, amplitude) calibration
// table and returns the correction function. Amplitudes must be
// non-negative and both columns the same length.
func buildCorrection(wavelength, amplitude []float64, logger *slog.Logger) (correctionFunc, bool) {
	for _, a := range amplitude {
		if a < 0 {
			logger.Warn("amplitude correction < 0 is not allowed")
			return nil, false
		}
	}
	if len(amplitude) != len(wavelength) {
		logger.Warn("amplitude correction arrays are not the same size")
		return nil, false
	}
	if len(amplitude) == 0 {
		logger.Warn("amplitude correction table is empty")
		return nil, false
	}

	// interpolate over wavenumber: 1e7/wavelength, reversed so the
	// sample points ascend
	n := len(wavelength)
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := range wavelength {
		xs[n-1-i] = 1e7 / wavelength[i]
		ys[n-1-i] = amplitude[i]
	}

	return func(wnums []float64) []float64 {
		out := make([]float64, len(wnums))
		for i, x := range wnums {
			out[i] = interp(x, xs, ys)
		}
		return out
	}, true
}

// interp is piecewise linear interpolation over ascending sample points,
// clamped to the end values outside the table.
func interp(x float64, xs, ys []float64) float64 {
	if x <= xs[0] {
		return ys[0]
	}
	if x >= xs[len(xs)-1] {
		return ys[len(ys)-1]
	}

	i := sort.SearchFloat64s(xs, x) // xs[i-1] < x <= xs[i]
	t := (x - xs[i-1]) / (xs[i] - xs[i-1])
	return ys[i-1] + t*(ys[i]-ys[i-1])
}

// readCorrectionFile parses a plain-text table of two whitespace
// separated numeric columns: wavelength in nm and amplitude.
func readCorrectionFile(path string) (wavelength, amplitude []float64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Fields(text)
		if len(fields) < 2 {
			return nil, nil, fmt.Errorf("%s:%d: expected two columns", path, line)
		}

		wl, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("%s:%d: invalid wavelength: %w", path, line, err)
		}
		amp, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("%s:%d: invalid amplitude: %w", path, line, err)
		}

		wavelength = append(wavelength, wl)
		amplitude = append(amplitude, amp)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}

	return wavelength, amplitude, nil
}
