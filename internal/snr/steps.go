package snr

import (
	"github.com/GeoNet/gm-engine/internal/config"
	"github.com/GeoNet/gm-engine/internal/event"
	"github.com/GeoNet/gm-engine/internal/filters"
	"github.com/GeoNet/gm-engine/internal/pipeline"
	"github.com/GeoNet/gm-engine/internal/platform/metrics"
	"github.com/GeoNet/gm-engine/internal/waveform"
)

// MagnitudeTable is the package-level corner-frequency table for the
// "magnitude" selection method, set once at startup the same way
// windowing.Durations is wired (see internal/windowing/steps.go).
var MagnitudeTable []MagnitudeTableEntry

func init() {
	pipeline.Register("snr", stepCompute)
	pipeline.Register("snr_check", stepCheck)
	pipeline.Register("select_corner_frequencies", stepSelectCorners)
	pipeline.Register("ridder_fchp", stepRidderFchp)
}

func stepCompute(stream *waveform.Stream, ev *event.ScalarEvent, params map[string]any, cfg *config.Config) error {
	for _, tr := range stream.Traces {
		if tr.Failed {
			continue
		}
		if err := Compute(tr, params); err != nil {
			return err
		}
	}
	return nil
}

func stepCheck(stream *waveform.Stream, ev *event.ScalarEvent, params map[string]any, cfg *config.Config) error {
	for _, tr := range stream.Traces {
		if tr.Failed {
			continue
		}
		if err := Check(tr, ev, params); err != nil {
			return err
		}
	}
	return nil
}

func stepSelectCorners(stream *waveform.Stream, ev *event.ScalarEvent, params map[string]any, cfg *config.Config) error {
	return SelectCorners(stream, ev, params, MagnitudeTable)
}

// stepRidderFchp refines each trace's already-selected highpass corner
// by Ridder's method (RidderFchp), searching upward from the current
// corner for the smallest fc that brings the displacement trace's
// cubic-fit residual ratio at or below target. It requires
// select_corner_frequencies to have run first.
func stepRidderFchp(stream *waveform.Stream, ev *event.ScalarEvent, params map[string]any, cfg *config.Config) error {
	timer := metrics.Start()
	defer timer.Track("snr.ridder_fchp")

	maxfc := floatParam(params, "max_highpass", 1.0)
	target := floatParam(params, "target", 0.02)
	tol := floatParam(params, "tol", 0.001)
	maxiter := int(floatParam(params, "maxiter", 30))
	toDisplacement := func(data []float64, dt float64) []float64 {
		return filters.Integrate(filters.Integrate(data, dt), dt)
	}

	for _, tr := range stream.Traces {
		if tr.Failed {
			continue
		}
		cp, ok := tr.Parameters.Get(waveform.ParamCornerFrequencies)
		if !ok {
			tr.Fail(waveform.MissingPrereqFailure("snr.ridder_fchp", waveform.ParamCornerFrequencies))
			continue
		}
		corners := cp.(waveform.CornerFrequenciesParam)
		fcInit := corners.Highpass
		if fcInit <= 0 {
			fcInit = 0.01
		}
		if maxfc <= fcInit {
			continue
		}

		fc, refined := RidderFchp(tr.Data, tr.Delta, fcInit, maxfc, target, tol, maxiter, filters.Highpass, toDisplacement)
		if !refined {
			tr.AddProvenance("ridder_fchp", "snr.ridder_fchp", map[string]any{"refined": false})
			continue
		}
		corners.Highpass = fc
		tr.Parameters.Set(waveform.ParamCornerFrequencies, corners)
		tr.AddProvenance("ridder_fchp", "snr.ridder_fchp", map[string]any{"refined": true, "highpass": fc})
	}
	return nil
}
