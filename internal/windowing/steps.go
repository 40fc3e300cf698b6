package windowing

import (
	"github.com/GeoNet/gm-engine/internal/config"
	"github.com/GeoNet/gm-engine/internal/event"
	"github.com/GeoNet/gm-engine/internal/picker"
	"github.com/GeoNet/gm-engine/internal/pipeline"
	"github.com/GeoNet/gm-engine/internal/registry"
	"github.com/GeoNet/gm-engine/internal/waveform"
)

// Pickers, TravelTimePicker and Durations are package-level, set once
// at startup by Configure, the same way a long-lived server sets its
// package-level *sql.DB once in main() before serving requests.
var (
	Pickers         []picker.Picker
	TravelTimePicker picker.Picker
	Durations       DurationModel
)

// Configure wires the shared, read-only resources the windowing steps
// need: the travel-time/kernel registry (internal/registry) and the
// combined picker set.
func Configure(reg *registry.Registry, model string, durations DurationModel) {
	TravelTimePicker = picker.TravelTime{Registry: reg, Model: model}
	Pickers = []picker.Picker{
		picker.ARAIC{},
		picker.Baer{STAWindowSec: 0.5, LTAWindowSec: 5, Threshold: 3},
		picker.Power{STAWindowSec: 1, LTAWindowSec: 10, Threshold: 4},
	}
	Durations = durations
}

func init() {
	pipeline.Register("window_split", stepSplit)
	pipeline.Register("signal_end", stepSignalEnd)
	pipeline.Register("window_checks", stepWindowChecks)
	pipeline.Register("cut", stepCut)
}

func stepSplit(stream *waveform.Stream, ev *event.ScalarEvent, params map[string]any, cfg *config.Config) error {
	for _, tr := range stream.Traces {
		if tr.Failed {
			continue
		}
		if err := PickSplit(tr, ev, cfg, Pickers, TravelTimePicker); err != nil {
			return err
		}
	}
	return nil
}

func stepSignalEnd(stream *waveform.Stream, ev *event.ScalarEvent, params map[string]any, cfg *config.Config) error {
	regime, _ := params["tectonic_regime"].(string)
	for _, tr := range stream.Traces {
		if tr.Failed {
			continue
		}
		if err := SignalEnd(tr, ev, cfg, regime, Durations); err != nil {
			return err
		}
	}
	return nil
}

func stepWindowChecks(stream *waveform.Stream, ev *event.ScalarEvent, params map[string]any, cfg *config.Config) error {
	for _, tr := range stream.Traces {
		if tr.Failed {
			continue
		}
		if err := WindowChecks(tr, cfg); err != nil {
			return err
		}
	}
	return nil
}

func stepCut(stream *waveform.Stream, ev *event.ScalarEvent, params map[string]any, cfg *config.Config) error {
	secBeforeSplit, _ := params["sec_before_split"].(float64)
	for _, tr := range stream.Traces {
		if tr.Failed {
			continue
		}
		if err := Cut(tr, secBeforeSplit); err != nil {
			return err
		}
	}
	return nil
}
