// Package snr computes per-trace signal-to-noise ratio spectra, the
// SNR-threshold QA check, corner-frequency selection, and the
// Ridder's-method highpass-corner refinement.
package snr

import (
	"github.com/GeoNet/gm-engine/internal/dsp"
	"github.com/GeoNet/gm-engine/internal/waveform"
)

func floatParam(params map[string]any, key string, def float64) float64 {
	if v, ok := params[key]; ok {
		if f, ok := v.(float64); ok {
			return f
		}
	}
	return def
}

// Compute splits tr into noise/signal windows at its stored split
// time, FFTs both, normalizes by window duration, smooths with
// Konno-Ohmachi (bandwidth b), and stores SNR(f) = smoothed_signal(f)
// / smoothed_noise(f) as a trace parameter.
func Compute(tr *waveform.Trace, params map[string]any) error {
	sp, ok := tr.Parameters.Get(waveform.ParamSignalSplit)
	if !ok {
		tr.Fail(waveform.MissingPrereqFailure("snr.compute", waveform.ParamSignalSplit))
		return nil
	}
	splitIdx := tr.SampleIndex(sp.(waveform.SignalSplitParam).Time)
	if splitIdx < 2 || splitIdx >= tr.NumSamples()-2 {
		tr.Fail(waveform.ProcessingFailure("snr.compute", "split time leaves no usable noise or signal window"))
		return nil
	}

	noise := tr.Data[:splitIdx]
	signal := tr.Data[splitIdx:]

	noiseDur := float64(len(noise)) * tr.Delta
	signalDur := float64(len(signal)) * tr.Delta

	noiseSpec := dsp.ForwardFFT(noise, tr.Delta)
	signalSpec := dsp.ForwardFFT(signal, tr.Delta)

	noiseAmp := squaredAmplitude(noiseSpec.AmplitudeSpectrum(), noiseDur)
	signalAmp := squaredAmplitude(signalSpec.AmplitudeSpectrum(), signalDur)

	b := floatParam(params, "smoothing_parameter", 188.5)

	outFreqs := signalSpec.Freqs
	smoothedSignal := dsp.KonnoOhmachi(signalSpec.Freqs, signalAmp, outFreqs, b)
	smoothedNoise := dsp.KonnoOhmachi(noiseSpec.Freqs, noiseAmp, outFreqs, b)

	snrVals := make([]float64, len(outFreqs))
	peakFreq := 0.0
	peakVal := 0.0
	for i := range outFreqs {
		if smoothedNoise[i] > 0 {
			snrVals[i] = smoothedSignal[i] / smoothedNoise[i]
		}
		if smoothedSignal[i] > peakVal {
			peakVal = smoothedSignal[i]
			peakFreq = outFreqs[i]
		}
	}

	tr.Parameters.Set(waveform.ParamSNR, waveform.SNRParam{Freqs: outFreqs, SNR: snrVals, Peak: peakFreq})
	tr.AddProvenance("snr", "snr.compute", map[string]any{"smoothing_parameter": b})
	return nil
}

func squaredAmplitude(amp []float64, windowDur float64) []float64 {
	out := make([]float64, len(amp))
	for i, a := range amp {
		out[i] = (a * a) / windowDur
	}
	return out
}
