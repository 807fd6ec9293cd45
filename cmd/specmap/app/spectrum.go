package app

import (
	"math"
	"time"

	"github.com/roman-kulish/mozza-spectro/internal/spectrum"
)

// SpectrumData accumulates spectral spans into a time x wavenumber
// intensity matrix ready for rendering. One span is one image row.
type SpectrumData struct {
	Width, Height                int
	WavenumberMin, WavenumberMax float64
	TimestampStart, TimestampEnd time.Time
	BoundsTracker                *SmoothBounds
	Spans                        [][]*float64
}

func NewSpectrumData(b *SmoothBounds) *SpectrumData {
	return &SpectrumData{
		WavenumberMin: math.MaxFloat64,
		BoundsTracker: b,
		Spans:         make([][]*float64, 0),
	}
}

func (s *SpectrumData) Update(span *spectrum.SpectralSpan) {
	s.Width = max(s.Width, len(span.Samples))
	s.Height++

	s.WavenumberMin = min(s.WavenumberMin, span.WavenumberStart)
	s.WavenumberMax = max(s.WavenumberMax, span.WavenumberEnd)

	if s.TimestampStart.IsZero() || s.TimestampStart.After(span.Timestamp) {
		s.TimestampStart = span.Timestamp
	}
	if s.TimestampEnd.IsZero() || s.TimestampEnd.Before(span.Timestamp) {
		s.TimestampEnd = span.Timestamp
	}

	intensities := make([]*float64, len(span.Samples))
	for i, sample := range span.Samples {
		intensities[i] = sample.Intensity
		s.BoundsTracker.Update(sample.Intensity)
	}
	s.Spans = append(s.Spans, intensities)
}
