package dsp

import "math"

// BruneCornerFrequency returns the source (Brune) corner frequency f0
// in Hz for an earthquake of the given moment magnitude, stress drop
// (bars) and shear-wave velocity (km/s) (GLOSSARY "f0 (Brune corner)").
//
//	M0 = 10^(1.5*Mw + 16.05)             dyne-cm  (Hanks & Kanamori, 1979)
//	f0 = 4.9e6 * beta * (stressDrop/M0)^(1/3)
func BruneCornerFrequency(magnitude, stressDropBars, shearVelKmS float64) float64 {
	m0 := math.Pow(10, 1.5*magnitude+16.05)
	return 4.9e6 * shearVelKmS * math.Cbrt(stressDropBars/m0)
}
