package filters

import (
	"math"

	"github.com/GeoNet/gm-engine/internal/dsp"
)

// Kind is the Butterworth filter family.
type Kind string

const (
	KindLowpass  Kind = "lowpass"
	KindHighpass Kind = "highpass"
	KindBandpass Kind = "bandpass"
	KindBandstop Kind = "bandstop"
)

// Domain selects the implementation strategy.
type Domain string

const (
	DomainFrequency Domain = "frequency_domain"
	DomainTime      Domain = "time_domain"
)

// Butterworth filters data at sampling interval dt with the given
// corner(s) (fc2 only used for bandpass/bandstop), filter order, and
// number of passes (1 or 2; 2 applies the filter zero-phase).
func Butterworth(data []float64, dt float64, kind Kind, domain Domain, fc1, fc2 float64, order, passes int) []float64 {
	if domain == DomainTime {
		return timeDomainFilter(data, dt, kind, fc1, fc2, order, passes)
	}
	return frequencyDomainFilter(data, dt, kind, fc1, fc2, order, passes)
}

// magnitudeResponse returns |H(f)| for the given filter kind at
// frequency f (Hz), Butterworth order order, corner(s) fc1 (fc2 used
// for bandpass/bandstop).
func magnitudeResponse(f float64, kind Kind, fc1, fc2 float64, order int) float64 {
	switch kind {
	case KindLowpass:
		return 1 / math.Sqrt(1+math.Pow(safeDiv(f, fc1), 2*float64(order)))
	case KindHighpass:
		if f == 0 {
			return 0
		}
		return 1 / math.Sqrt(1+math.Pow(safeDiv(fc1, f), 2*float64(order)))
	case KindBandpass:
		return magnitudeResponse(f, KindHighpass, fc1, 0, order) * magnitudeResponse(f, KindLowpass, fc2, 0, order)
	case KindBandstop:
		return 1 - magnitudeResponse(f, KindBandpass, fc1, fc2, order)
	default:
		return 1
	}
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return math.Inf(1)
	}
	return a / b
}

// frequencyDomainFilter implements the "frequency_domain" strategy:
// multiply the FFT by the magnitude response (squared for a 2-pass /
// zero-phase application), then inverse FFT.
//
// This applies only the magnitude response, not a causal filter's
// phase response; exact single-pass phase behavior would require
// tracking the analog Butterworth pole/zero phase term. Highpass (used
// by internal/snr) and the default lowpass/highpass filter steps run
// number_of_passes=2 zero-phase filtering; internal/response does not
// call this filter. A 1-pass frequency-domain run gets the magnitude
// response with no phase shift — see DESIGN.md.
func frequencyDomainFilter(data []float64, dt float64, kind Kind, fc1, fc2 float64, order, passes int) []float64 {
	n := len(data)
	spec := dsp.ForwardFFT(data, dt)

	for i, f := range spec.Freqs {
		mag := magnitudeResponse(math.Abs(f), kind, fc1, fc2, order)
		if passes >= 2 {
			mag *= mag
		}
		spec.Coeffs[i] *= complex(mag, 0)
	}

	return dsp.InverseFFT(spec.Coeffs, n)
}

// timeDomainFilter cascades `order` first-order recursive sections
// (the discrete-time analogue of the Butterworth cascade structure) at
// corner fc1 (fc2 for the second leg of bandpass/bandstop), applying
// the cascade forward then in reverse when passes=2 for zero-phase
// output (the "time_domain" strategy: forward then reverse).
func timeDomainFilter(data []float64, dt float64, kind Kind, fc1, fc2 float64, order, passes int) []float64 {
	out := append([]float64(nil), data...)

	apply := func(buf []float64) []float64 {
		switch kind {
		case KindLowpass:
			return cascadeOnePole(buf, dt, fc1, order, false)
		case KindHighpass:
			return cascadeOnePole(buf, dt, fc1, order, true)
		case KindBandpass:
			return cascadeOnePole(cascadeOnePole(buf, dt, fc1, order, true), dt, fc2, order, false)
		case KindBandstop:
			low := cascadeOnePole(buf, dt, fc1, order, false)
			high := cascadeOnePole(buf, dt, fc2, order, true)
			stopped := make([]float64, len(buf))
			for i := range buf {
				stopped[i] = low[i] + high[i]
			}
			return stopped
		default:
			return buf
		}
	}

	out = apply(out)
	if passes >= 2 {
		reverse(out)
		out = apply(out)
		reverse(out)
	}
	return out
}

// cascadeOnePole applies `order` cascaded single-pole recursive
// filters with time constant 1/(2*pi*fc).
func cascadeOnePole(data []float64, dt, fc float64, order int, highpass bool) []float64 {
	out := append([]float64(nil), data...)
	alpha := dt / (1/(2*math.Pi*fc) + dt)

	for s := 0; s < order; s++ {
		next := make([]float64, len(out))
		if len(out) == 0 {
			return next
		}
		if highpass {
			prevIn, prevOut := out[0], 0.0
			next[0] = 0
			for i := 1; i < len(out); i++ {
				next[i] = alpha * (prevOut + out[i] - prevIn)
				prevIn = out[i]
				prevOut = next[i]
			}
		} else {
			next[0] = alpha * out[0]
			for i := 1; i < len(out); i++ {
				next[i] = next[i-1] + alpha*(out[i]-next[i-1])
			}
		}
		out = next
	}
	return out
}

func reverse(data []float64) {
	for i, j := 0, len(data)-1; i < j; i, j = i+1, j-1 {
		data[i], data[j] = data[j], data[i]
	}
}
