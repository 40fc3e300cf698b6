// Package dsp holds the shared signal-processing primitives used by
// the SNR, filter and metric subsystems: FFT, Konno-Ohmachi smoothing,
// and the Brune source corner-frequency helper.
//
// No example repo in the retrieval pack ships an FFT; gonum is the
// de facto standard real-valued FFT for Go and is used here as an
// out-of-pack ecosystem dependency rather than a hand-rolled stdlib
// transform (see DESIGN.md).
package dsp

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Spectrum is a one-sided amplitude spectrum: Freqs[i] is the
// frequency in Hz of Coeffs[i], for i in [0, n/2].
type Spectrum struct {
	Freqs  []float64
	Coeffs []complex128
}

// ForwardFFT computes the one-sided FFT of a real time series sampled
// at interval dt (seconds), returning frequency-tagged complex
// coefficients, satisfying Parseval's theorem with InverseFFT.
func ForwardFFT(data []float64, dt float64) Spectrum {
	n := len(data)
	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, data)

	freqs := make([]float64, len(coeffs))
	for i := range coeffs {
		freqs[i] = fft.Freq(i) / dt
	}

	return Spectrum{Freqs: freqs, Coeffs: coeffs}
}

// InverseFFT reconstructs a real time series of length n from a
// one-sided spectrum produced by (or compatible with) ForwardFFT.
func InverseFFT(coeffs []complex128, n int) []float64 {
	fft := fourier.NewFFT(n)
	return fft.Sequence(nil, coeffs)
}

// AmplitudeSpectrum returns |coeffs[i]| for each coefficient.
func (s Spectrum) AmplitudeSpectrum() []float64 {
	out := make([]float64, len(s.Coeffs))
	for i, c := range s.Coeffs {
		out[i] = cabs(c)
	}
	return out
}

func cabs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}
