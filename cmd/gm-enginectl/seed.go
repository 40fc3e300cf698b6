package main

import (
	"math"
	"time"

	"github.com/GeoNet/gm-engine/internal/waveform"
)

// seedSyntheticStream builds a three-component accelerometer stream
// with a short synthetic P-then-S burst, sensitivity-only response
// metadata (no pole-zero stages, exercising internal/response's
// accelerometer fallback path) and free-field siting, so the full
// default processing program has something realistic to run against.
func seedSyntheticStream(station string) (*waveform.Stream, error) {
	const (
		dt = 0.01
		n  = 12000 // 120s
	)
	start := time.Now().UTC()

	channels := []struct {
		code    string
		azimuth float64
		dip     float64
	}{
		{"HNZ", 0, -90},
		{"HNN", 0, 0},
		{"HNE", 90, 0},
	}

	var traces []*waveform.Trace
	for _, ch := range channels {
		data := make([]float64, n)
		for i := range data {
			t := float64(i) * dt
			var a float64
			switch {
			case t > 20 && t < 22:
				a = 30 * math.Sin(2*math.Pi*8*(t-20)) // P-wave onset
			case t > 30 && t < 60:
				env := math.Sin(math.Pi * (t - 30) / 30)
				a = 200 * env * math.Sin(2*math.Pi*2*(t-30))
			}
			data[i] = a * 981 / 100 // counts, arbitrary sensitivity below undoes this
		}

		tr, err := waveform.NewTrace(waveform.TraceID{Network: "NZ", Station: station, Location: "10", Channel: ch.code}, start, dt, data)
		if err != nil {
			return nil, err
		}
		tr.Orientation = waveform.Orientation{Azimuth: ch.azimuth, Dip: ch.dip}
		tr.Coordinates = waveform.Coordinates{Latitude: -41.1, Longitude: 174.2, Elevation: 50}
		tr.Standard = waveform.StandardMetadata{
			ProcessLevel:   "raw",
			Units:          "counts",
			UnitsType:      waveform.UnitsCounts,
			InstrumentType: "FBA-23",
			SourceFormat:   "geonet",
		}
		tr.Response = waveform.InstrumentResponse{
			Sensitivity:      9.81,
			SensitivityUnits: "m/s^2",
			HasSensitivity:   true,
		}
		tr.Format = map[string]any{"free_field": true}

		traces = append(traces, tr)
	}

	return waveform.NewStream(traces)
}
