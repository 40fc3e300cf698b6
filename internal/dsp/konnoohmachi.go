package dsp

import "math"

// KonnoOhmachi smooths amp (sampled at freqs) onto outFreqs using the
// Konno-Ohmachi window with bandwidth parameter b (GLOSSARY):
//
//	W(f, fc, b) = [sin(b*log10(f/fc)) / (b*log10(f/fc))]^4
//
// with W(fc, fc, b) = 1. Each output value is a weight-normalized
// average of the input spectrum, grounding the smoothing used by both
// the SNR computation and the FAS metric.
func KonnoOhmachi(freqs, amp, outFreqs []float64, b float64) []float64 {
	out := make([]float64, len(outFreqs))
	for j, fc := range outFreqs {
		if fc <= 0 {
			out[j] = 0
			continue
		}
		var wsum, vsum float64
		for i, f := range freqs {
			w := konnoOhmachiWeight(f, fc, b)
			wsum += w
			vsum += w * amp[i]
		}
		if wsum > 0 {
			out[j] = vsum / wsum
		}
	}
	return out
}

func konnoOhmachiWeight(f, fc, b float64) float64 {
	if f <= 0 {
		return 0
	}
	if f == fc {
		return 1
	}
	x := b * math.Log10(f/fc)
	if x == 0 {
		return 1
	}
	s := math.Sin(x) / x
	return s * s * s * s
}
