package app

import (
	"testing"
	"time"

	"github.com/roman-kulish/mozza-spectro/internal/sensors"
	"github.com/roman-kulish/mozza-spectro/internal/viewer"
)

func TestExportToSpanAnnotatesSensors(t *testing.T) {
	export := &viewer.DataToExport{
		Name: "Mozza#42",
		Data: []viewer.DataFromPlugins{{
			Name:     "Spectrum",
			Dim:      viewer.Data1D,
			Data:     [][]float64{{1.5, 2.5, 3.5}},
			Axes:     []viewer.Axis{{Label: "Wavenumber", Units: "cm-1", Data: []float64{2000, 2005, 2010}}},
			Averages: 4,
		}},
	}

	temp := 42.5
	reading := &sensors.Readings{Timestamp: time.Now().UTC(), CrystalTempC: &temp}
	timestamp := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	span := exportToSpan(export, timestamp, reading)

	if span.Sensors != reading {
		t.Errorf("Expected span annotated with the sensor reading, got %+v", span.Sensors)
	}
	if !span.Timestamp.Equal(timestamp) {
		t.Errorf("Expected timestamp %v, got %v", timestamp, span.Timestamp)
	}
	if span.WavenumberStart != 2000 || span.WavenumberEnd != 2010 {
		t.Errorf("Expected wavenumber range [2000, 2010], got [%v, %v]",
			span.WavenumberStart, span.WavenumberEnd)
	}

	if len(span.Samples) != 3 {
		t.Fatalf("Expected 3 samples, got %d", len(span.Samples))
	}
	for i, want := range []float64{1.5, 2.5, 3.5} {
		sample := span.Samples[i]
		if sample.Intensity == nil || *sample.Intensity != want {
			t.Errorf("Sample %d: expected intensity %v, got %+v", i, want, sample.Intensity)
		}
		if sample.NumAverages != 4 {
			t.Errorf("Sample %d: expected 4 averages, got %d", i, sample.NumAverages)
		}
	}
}

func TestExportToSpanWithoutSensorReading(t *testing.T) {
	export := &viewer.DataToExport{
		Name: "Mozza#42",
		Data: []viewer.DataFromPlugins{{
			Name:     "Intensity",
			Dim:      viewer.Data0D,
			Data:     [][]float64{{5.5}},
			Averages: 1,
		}},
	}

	span := exportToSpan(export, time.Now().UTC(), nil)

	if span.Sensors != nil {
		t.Errorf("Expected no sensor annotation, got %+v", span.Sensors)
	}
	if len(span.Samples) != 1 {
		t.Fatalf("Expected 1 sample, got %d", len(span.Samples))
	}
	if span.Samples[0].Wavenumber != 0 {
		t.Errorf("Expected zero wavenumber for 0D samples, got %v", span.Samples[0].Wavenumber)
	}
}
