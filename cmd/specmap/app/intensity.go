package app

import "math"

const (
	defaultMinIntensityDB = 0.0
	defaultMaxIntensityDB = 60.0

	// For 20 samples:
	// - 5% percentile  = 1 sample
	// - 95% percentile = 19th sample
	minimumSampleCount = 20
)

// intensityDB maps a raw detector intensity onto a log scale. Intensity
// spans orders of magnitude across the table, so percentile bounds are
// tracked in 1 dB bins regardless of the detector's absolute scale.
func intensityDB(v float64) (float64, bool) {
	if v <= 0 {
		return 0, false
	}
	return 10 * math.Log10(v), true
}

// IntensityBounds represents the calculated display boundaries on the
// log intensity scale.
type IntensityBounds struct {
	Min       float64 // 5th percentile intensity in dB
	Max       float64 // 95th percentile intensity in dB
	Mean      float64 // Mean intensity in dB
	Reference float64 // Reference level for visualization in dB
}

func defaultIntensityBounds() IntensityBounds {
	return IntensityBounds{
		Min:       defaultMinIntensityDB,
		Max:       defaultMaxIntensityDB,
		Mean:      (defaultMinIntensityDB + defaultMaxIntensityDB) / 2,
		Reference: (defaultMinIntensityDB + defaultMaxIntensityDB) / 2,
	}
}

// IntensityHistogram maintains a histogram of log intensity values with
// 1 dB bins
type IntensityHistogram struct {
	bins       map[int]uint32 // Map of bin index to count
	totalCount uint64         // Total number of samples
	minBin     int            // Cache for min bin
	maxBin     int            // Cache for max bin
}

// NewIntensityHistogram creates a new histogram
func NewIntensityHistogram() *IntensityHistogram {
	return &IntensityHistogram{
		bins:   make(map[int]uint32),
		minBin: math.MaxInt32,
		maxBin: math.MinInt32,
	}
}

// getBinIndex converts a log intensity value to bin index
func getBinIndex(db float64) int {
	return int(math.Floor(db)) // 1dB bins
}

// scaleDown scales all bin counts down by factor of 2
func (h *IntensityHistogram) scaleDown() {
	h.minBin = math.MaxInt32
	h.maxBin = math.MinInt32

	for bin := range h.bins {
		h.bins[bin] /= 2
		if h.bins[bin] == 0 {
			delete(h.bins, bin)
		}

		if bin < h.minBin {
			h.minBin = bin
		}
		if bin > h.maxBin {
			h.maxBin = bin
		}
	}
	h.totalCount /= 2
}

// Update adds a new intensity reading to the histogram. Missing and
// non-positive readings are ignored.
func (h *IntensityHistogram) Update(intensity *float64) {
	if intensity == nil {
		return
	}
	db, ok := intensityDB(*intensity)
	if !ok {
		return
	}

	bin := getBinIndex(db)

	if h.bins[bin] == math.MaxUint32 || h.totalCount == math.MaxUint64 {
		h.scaleDown()
	}

	h.bins[bin]++
	h.totalCount++

	if bin < h.minBin {
		h.minBin = bin
	}
	if bin > h.maxBin {
		h.maxBin = bin
	}
}

// Clear resets the histogram
func (h *IntensityHistogram) Clear() {
	h.bins = make(map[int]uint32)
	h.totalCount = 0
	h.minBin = math.MaxInt32
	h.maxBin = math.MinInt32
}

// GetPercentileBounds returns display bounds based on percentiles
func (h *IntensityHistogram) GetPercentileBounds() IntensityBounds {
	if h.totalCount < minimumSampleCount { // Require minimum samples
		return defaultIntensityBounds()
	}

	// Calculate target counts for 5th and 95th percentiles
	target5th := h.totalCount * 5 / 100

	var count uint64
	var min5th, max95th int

	// Find 5th percentile
	for bin := h.minBin; bin <= h.maxBin; bin++ {
		count += uint64(h.bins[bin])
		if count >= target5th {
			min5th = bin
			break
		}
	}

	// Find 95th percentile
	count = 0
	for bin := h.maxBin; bin >= h.minBin; bin-- {
		count += uint64(h.bins[bin])
		if count >= target5th {
			max95th = bin
			break
		}
	}

	// Calculate mean (weighted average of bin centers)
	var sumProduct float64
	for bin := h.minBin; bin <= h.maxBin; bin++ {
		sumProduct += float64(bin) * float64(h.bins[bin])
	}
	mean := sumProduct / float64(h.totalCount)

	// Ensure minimum range of 10dB
	if max95th-min5th < 10 {
		center := (max95th + min5th) / 2
		min5th = center - 5
		max95th = center + 5
	}

	// Add small margin
	margin := (max95th - min5th) * 1 / 10 // 10% margin
	minIntensity := float64(min5th - margin)
	maxIntensity := float64(max95th + margin)

	return IntensityBounds{
		Min:       minIntensity,
		Max:       maxIntensity,
		Mean:      mean,
		Reference: mean,
	}
}

// SmoothBounds represents a smoothed version of the histogram bounds
type SmoothBounds struct {
	hist    *IntensityHistogram
	alpha   float64         // Smoothing factor (0-1)
	current IntensityBounds // Current smoothed bounds
}

// NewSmoothBounds creates a new bounds smoother
func NewSmoothBounds(alpha float64) *SmoothBounds {
	return &SmoothBounds{
		hist:    NewIntensityHistogram(),
		alpha:   alpha,
		current: defaultIntensityBounds(),
	}
}

// Update adds a new intensity reading and returns smoothed bounds
func (s *SmoothBounds) Update(intensity *float64) IntensityBounds {
	if intensity == nil {
		return s.current
	}

	s.hist.Update(intensity)

	newBounds := s.hist.GetPercentileBounds()

	// Apply exponential smoothing
	s.current.Min = s.current.Min*(1-s.alpha) + newBounds.Min*s.alpha
	s.current.Max = s.current.Max*(1-s.alpha) + newBounds.Max*s.alpha
	s.current.Mean = newBounds.Mean // Use new mean directly
	s.current.Reference = newBounds.Reference

	return s.current
}

// Current returns the current smoothed display bounds
func (s *SmoothBounds) Current() IntensityBounds {
	return s.current
}

// Clear resets the histogram and bounds
func (s *SmoothBounds) Clear() {
	s.hist.Clear()
	s.current = defaultIntensityBounds()
}
