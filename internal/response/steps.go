package response

import (
	"github.com/GeoNet/gm-engine/internal/config"
	"github.com/GeoNet/gm-engine/internal/event"
	"github.com/GeoNet/gm-engine/internal/pipeline"
	"github.com/GeoNet/gm-engine/internal/waveform"
)

func init() {
	pipeline.Register("remove_response", stepRemoveResponse)
}

func floatParam(params map[string]any, key string, def float64) float64 {
	if v, ok := params[key].(float64); ok {
		return v
	}
	return def
}

func stepRemoveResponse(stream *waveform.Stream, ev *event.ScalarEvent, params map[string]any, cfg *config.Config) error {
	p := Params{
		GainTolerance: floatParam(params, "gain_tolerance", 0.1),
		WaterLevel:    floatParam(params, "water_level", 60),
	}
	preFilt, ok := params["pre_filt"].([]any)
	if ok && len(preFilt) == 4 {
		for i, v := range preFilt {
			if f, ok := v.(float64); ok {
				p.PreFilt[i] = f
			}
		}
	} else {
		p.PreFilt = [4]float64{0.001, 0.005, 20, 25}
	}

	for _, tr := range stream.Traces {
		if tr.Failed {
			continue
		}
		if err := Remove(tr, p); err != nil {
			return err
		}
	}
	return nil
}
