package main

import (
	"fmt"

	"github.com/GeoNet/gm-engine/internal/dsp"
	"github.com/GeoNet/gm-engine/internal/registry"
)

// iaspTravelTimeModel builds a coarse, piecewise-linear P-wave
// travel-time curve loosely following iasp91's near-surface branch
// (roughly 7 km/s apparent velocity out to 100km, rising towards
// 8-9 km/s beyond it). It is a stand-in for a tabulated
// iasp91 model, which no pack dependency ships; good enough to drive
// the travel-time picker and trim_multiple_events wiring in this
// smoke-test binary (see DESIGN.md).
func iaspTravelTimeModel(name string) (registry.TravelTimeModel, error) {
	if name != "iasp91" {
		return registry.TravelTimeModel{}, fmt.Errorf("gm-enginectl: unknown travel-time model %q", name)
	}
	return registry.TravelTimeModel{
		Name:          name,
		DistanceKM:    []float64{0, 50, 100, 200, 400, 800, 1600},
		TravelTimeSec: []float64{0, 7.1, 14.3, 27.8, 53.3, 101.8, 191.4},
	}, nil
}

// konnoOhmachiKernel precomputes Konno-Ohmachi smoothing weights for
// a frequency grid against itself, reusing internal/dsp's
// implementation (same smoothing used directly by internal/snr and
// internal/metrics).
func konnoOhmachiKernel(freqs []float64, b float64) ([]float64, error) {
	ones := make([]float64, len(freqs))
	for i := range ones {
		ones[i] = 1
	}
	return dsp.KonnoOhmachi(freqs, ones, freqs, b), nil
}
