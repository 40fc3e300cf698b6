package filters

// Pad prepends and appends zero-valued samples to data so that each
// side covers at least 1/fhp * paddingFactor seconds at sampling
// interval dt. It returns the padded series and the pad length in
// samples (symmetrical), for Unpad to strip later.
func Pad(data []float64, dt, fhp, paddingFactor float64) (padded []float64, padLen int) {
	if fhp <= 0 {
		fhp = 0.01
	}
	seconds := (1 / fhp) * paddingFactor
	padLen = int(seconds/dt + 0.5)
	if padLen <= 0 {
		return append([]float64(nil), data...), 0
	}

	padded = make([]float64, len(data)+2*padLen)
	copy(padded[padLen:], data)
	return padded, padLen
}

// Unpad strips padLen samples from each end of data, the inverse of Pad.
func Unpad(data []float64, padLen int) []float64 {
	if padLen <= 0 || len(data) <= 2*padLen {
		return data
	}
	return append([]float64(nil), data[padLen:len(data)-padLen]...)
}
