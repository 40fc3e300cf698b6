package filters

import (
	"github.com/GeoNet/gm-engine/internal/config"
	"github.com/GeoNet/gm-engine/internal/event"
	"github.com/GeoNet/gm-engine/internal/pipeline"
	"github.com/GeoNet/gm-engine/internal/waveform"
)

func init() {
	pipeline.Register("detrend", stepDetrend)
	pipeline.Register("taper", stepTaper)
	pipeline.Register("lowpass_filter", stepLowpass)
	pipeline.Register("highpass_filter", stepHighpass)
}

func stringParam(params map[string]any, key, def string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return def
}

func intParam(params map[string]any, key string, def int) int {
	if v, ok := params[key].(float64); ok {
		return int(v)
	}
	if v, ok := params[key].(int); ok {
		return v
	}
	return def
}

func floatParam(params map[string]any, key string, def float64) float64 {
	if v, ok := params[key].(float64); ok {
		return v
	}
	return def
}

func stepDetrend(stream *waveform.Stream, ev *event.ScalarEvent, params map[string]any, cfg *config.Config) error {
	method := stringParam(params, "detrending_method", "linear")
	order := intParam(params, "order", 0)
	for _, tr := range stream.Traces {
		if tr.Failed {
			continue
		}
		var splitSec float64
		if sp, ok := tr.Parameters.Get(waveform.ParamSignalSplit); ok {
			splitSec = sp.(waveform.SignalSplitParam).Time
		}
		if err := Detrend(tr, method, splitSec, order); err != nil {
			return err
		}
	}
	return nil
}

func stepTaper(stream *waveform.Stream, ev *event.ScalarEvent, params map[string]any, cfg *config.Config) error {
	width := floatParam(params, "width", 0.05)
	side := Side(stringParam(params, "side", "both"))
	for _, tr := range stream.Traces {
		if tr.Failed {
			continue
		}
		Taper(tr.Data, width, side)
		tr.AddProvenance("taper", "filters.taper", map[string]any{"width": width, "side": string(side)})
	}
	return nil
}

func stepLowpass(stream *waveform.Stream, ev *event.ScalarEvent, params map[string]any, cfg *config.Config) error {
	return runButterworthStep(stream, params, KindLowpass)
}

func stepHighpass(stream *waveform.Stream, ev *event.ScalarEvent, params map[string]any, cfg *config.Config) error {
	return runButterworthStep(stream, params, KindHighpass)
}

// runButterworthStep filters every unfailed trace at its selected
// corner. When padding_factor is > 0 it pads the trace before
// filtering and strips the padding back off afterward, so the filter
// transient settles outside the retained window.
func runButterworthStep(stream *waveform.Stream, params map[string]any, kind Kind) error {
	domain := Domain(stringParam(params, "type", "butterworth"))
	if domain != DomainTime {
		domain = DomainFrequency
	}
	passes := intParam(params, "number_of_passes", 2)
	order := intParam(params, "order", 4)
	paddingFactor := floatParam(params, "padding_factor", 0)

	for _, tr := range stream.Traces {
		if tr.Failed {
			continue
		}
		cp, ok := tr.Parameters.Get(waveform.ParamCornerFrequencies)
		if !ok {
			tr.Fail(waveform.MissingPrereqFailure("filters.butterworth", waveform.ParamCornerFrequencies))
			continue
		}
		corners := cp.(waveform.CornerFrequenciesParam)
		fc := corners.Lowpass
		if kind == KindHighpass {
			fc = corners.Highpass
		}

		data := tr.Data
		var padLen int
		if paddingFactor > 0 {
			fhp := corners.Highpass
			if fhp <= 0 {
				fhp = fc
			}
			data, padLen = Pad(data, tr.Delta, fhp, paddingFactor)
		}
		data = Butterworth(data, tr.Delta, kind, domain, fc, 0, order, passes)
		if padLen > 0 {
			data = Unpad(data, padLen)
		}
		tr.Data = data
		tr.AddProvenance(string(kind)+"_filter", "filters.butterworth", map[string]any{"corner": fc, "order": order, "passes": passes, "domain": string(domain), "padding_factor": paddingFactor})
	}
	return nil
}
