package dsp_test

import (
	"math"
	"testing"

	"github.com/GeoNet/gm-engine/internal/dsp"
)

func TestForwardInverseFFTRoundTrips(t *testing.T) {
	n := 256
	data := make([]float64, n)
	for i := range data {
		data[i] = math.Sin(2 * math.Pi * 5 * float64(i) / float64(n))
	}

	spec := dsp.ForwardFFT(data, 0.01)
	back := dsp.InverseFFT(spec.Coeffs, n)

	var maxDiff float64
	for i := range data {
		if d := math.Abs(data[i] - back[i]); d > maxDiff {
			maxDiff = d
		}
	}
	if maxDiff > 1e-9 {
		t.Errorf("round trip max diff = %g, want <= 1e-9", maxDiff)
	}
}

func TestForwardFFTParseval(t *testing.T) {
	// Parseval's theorem: time-domain energy equals frequency-domain
	// energy to within 1e-8 relative tolerance.
	n := 512
	dt := 0.01
	data := make([]float64, n)
	for i := range data {
		data[i] = math.Sin(2*math.Pi*3*float64(i)*dt) + 0.3*math.Cos(2*math.Pi*11*float64(i)*dt)
	}

	var timeEnergy float64
	for _, v := range data {
		timeEnergy += v * v
	}

	spec := dsp.ForwardFFT(data, dt)
	var freqEnergy float64
	for i, c := range spec.Coeffs {
		w := 1.0
		if i != 0 && i != len(spec.Coeffs)-1 {
			w = 2.0 // one-sided spectrum: interior bins carry both +f/-f energy
		}
		freqEnergy += w * (real(c)*real(c) + imag(c)*imag(c))
	}
	freqEnergy /= float64(n)

	rel := math.Abs(timeEnergy-freqEnergy) / timeEnergy
	if rel > 1e-8 {
		t.Errorf("Parseval relative error = %g, want <= 1e-8", rel)
	}
}

func TestKonnoOhmachiFlatSpectrumSmoothsToItself(t *testing.T) {
	freqs := []float64{0.5, 1, 2, 5, 10, 20}
	amp := []float64{1, 1, 1, 1, 1, 1}

	out := dsp.KonnoOhmachi(freqs, amp, freqs, 188.5)
	for i, v := range out {
		if math.Abs(v-1) > 1e-9 {
			t.Errorf("flat spectrum should smooth to itself, got %v at freq %v", v, freqs[i])
		}
	}
}

func TestKonnoOhmachiSmoothsASpike(t *testing.T) {
	freqs := make([]float64, 200)
	amp := make([]float64, 200)
	for i := range freqs {
		freqs[i] = 0.1 + float64(i)*0.1
	}
	amp[100] = 100 // spike at freqs[100] = 10.1

	out := dsp.KonnoOhmachi(freqs, amp, freqs, 20)
	if out[100] >= amp[100] {
		t.Errorf("smoothed peak should be attenuated relative to a single-bin spike, got %v", out[100])
	}
	if out[100] <= 0 {
		t.Errorf("expected some residual energy at the spike's own frequency, got %v", out[100])
	}
}

func TestBruneCornerFrequencyDecreasesWithMagnitude(t *testing.T) {
	f0Small := dsp.BruneCornerFrequency(4.0, 10, 3.7)
	f0Large := dsp.BruneCornerFrequency(7.0, 10, 3.7)

	if f0Large >= f0Small {
		t.Errorf("expected larger events to have lower corner frequency: M4=%v M7=%v", f0Small, f0Large)
	}
}

func TestBufferPoolReuseIsZeroed(t *testing.T) {
	b := dsp.GetBuffer(10)
	for i := range b {
		b[i] = float64(i + 1)
	}
	dsp.PutBuffer(b)

	b2 := dsp.GetBuffer(10)
	for i, v := range b2 {
		if v != 0 {
			t.Errorf("expected zeroed buffer at index %d, got %v", i, v)
		}
	}
}
