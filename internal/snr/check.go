package snr

import (
	"github.com/GeoNet/gm-engine/internal/dsp"
	"github.com/GeoNet/gm-engine/internal/event"
	"github.com/GeoNet/gm-engine/internal/waveform"
)

// Check fails tr if SNR(f) < threshold anywhere in [min_freq, max_freq].
// min_freq may be the literal "f0", resolved via the Brune
// corner-frequency helper and clamped to [floor, ceiling].
func Check(tr *waveform.Trace, ev *event.ScalarEvent, params map[string]any) error {
	sp, ok := tr.Parameters.Get(waveform.ParamSNR)
	if !ok {
		tr.Fail(waveform.MissingPrereqFailure("snr.check", waveform.ParamSNR))
		return nil
	}
	snrParam := sp.(waveform.SNRParam)

	threshold := floatParam(params, "threshold", 3.0)
	maxFreq := floatParam(params, "max_freq", 5.0)
	minFreq := resolveMinFreq(ev, params)

	for i, f := range snrParam.Freqs {
		if f < minFreq || f > maxFreq {
			continue
		}
		if snrParam.SNR[i] < threshold {
			tr.Fail(waveform.QAFailure("snr.check", "SNR below threshold", snrParam.SNR[i]))
			return nil
		}
	}
	return nil
}

// resolveMinFreq implements the "f0" literal special case: min_freq =
// max(floor, min(ceiling, Brune f0(mag, stress_drop, shear_vel))).
func resolveMinFreq(ev *event.ScalarEvent, params map[string]any) float64 {
	literal, _ := params["min_freq"].(string)
	if literal != "f0" {
		return floatParam(params, "min_freq", 0.1)
	}

	floor := floatParam(params, "f0_floor", 0.1)
	ceiling := floatParam(params, "f0_ceiling", 1.0)
	if ev == nil {
		return floor
	}

	stressDrop := floatParam(params, "stress_drop", 10)
	shearVel := floatParam(params, "shear_velocity", 3.7)
	f0 := dsp.BruneCornerFrequency(ev.Magnitude, stressDrop, shearVel)

	if f0 < floor {
		return floor
	}
	if f0 > ceiling {
		return ceiling
	}
	return f0
}
