package snr

import "math"

// Integrator converts an acceleration (or velocity) series to
// displacement; internal/filters supplies the concrete frequency- or
// time-domain implementations.
type Integrator func(data []float64, dt float64) []float64

// Highpasser applies a highpass filter at corner fc to data, returning
// the filtered series; internal/filters supplies the concrete
// Butterworth implementation.
type Highpasser func(data []float64, dt, fc float64) []float64

// RidderFchp searches [fcInit, maxfc] by Ridder's method for the
// smallest highpass corner fc such that the ratio of the max absolute
// cubic-fit residual of the displacement trace to the max absolute
// displacement is <= target, within tol, in at most maxiter
// iterations. It returns ok=false if no root is bracketed.
func RidderFchp(data []float64, dt, fcInit, maxfc, target, tol float64, maxiter int, hp Highpasser, integrate Integrator) (fc float64, ok bool) {
	residual := func(fc float64) float64 {
		filtered := hp(data, dt, fc)
		disp := integrate(filtered, dt)
		return cubicResidualRatio(disp) - target
	}

	lo, hi := fcInit, maxfc
	rLo, rHi := residual(lo), residual(hi)
	if rLo == 0 {
		return lo, true
	}
	if rHi == 0 {
		return hi, true
	}
	if (rLo > 0) == (rHi > 0) {
		return 0, false
	}

	for i := 0; i < maxiter; i++ {
		mid := (lo + hi) / 2
		rMid := residual(mid)

		s := math.Sqrt(rMid*rMid - rLo*rHi)
		if s == 0 {
			return mid, true
		}
		sign := 1.0
		if rLo < rHi {
			sign = -1.0
		}
		next := mid + (mid-lo)*sign*rMid/s
		rNext := residual(next)

		if hi-lo < tol {
			return next, true
		}

		switch {
		case (rMid > 0) != (rNext > 0):
			lo, rLo = mid, rMid
			hi, rHi = next, rNext
		case (rLo > 0) != (rNext > 0):
			hi, rHi = next, rNext
		default:
			lo, rLo = next, rNext
		}

		if math.Abs(rNext) < 1e-12 || hi-lo < tol {
			return next, true
		}
	}

	return 0, false
}

// cubicResidualRatio fits a cubic polynomial to disp by least squares
// and returns max|disp-fit| / max|disp|, the criterion RidderFchp
// tests against target.
func cubicResidualRatio(disp []float64) float64 {
	n := len(disp)
	if n < 4 {
		return math.Inf(1)
	}
	x := make([]float64, n)
	for i := range x {
		x[i] = float64(i) / float64(n-1)
	}
	coeffs := polyfit(x, disp, 3)

	var maxResidual, maxDisp float64
	for i, xi := range x {
		fit := coeffs[0] + coeffs[1]*xi + coeffs[2]*xi*xi + coeffs[3]*xi*xi*xi
		if r := math.Abs(disp[i] - fit); r > maxResidual {
			maxResidual = r
		}
		if d := math.Abs(disp[i]); d > maxDisp {
			maxDisp = d
		}
	}
	if maxDisp == 0 {
		return 0
	}
	return maxResidual / maxDisp
}

// polyfit fits a degree-order polynomial to (x, y) by normal equations.
func polyfit(x, y []float64, order int) []float64 {
	m := order + 1
	a := make([][]float64, m)
	for i := range a {
		a[i] = make([]float64, m+1)
	}
	for i := 0; i < m; i++ {
		for j := 0; j < m; j++ {
			var sum float64
			for _, xv := range x {
				sum += math.Pow(xv, float64(i+j))
			}
			a[i][j] = sum
		}
		var sum float64
		for k, xv := range x {
			sum += math.Pow(xv, float64(i)) * y[k]
		}
		a[i][m] = sum
	}
	return gaussianElim(a, m)
}

func gaussianElim(a [][]float64, m int) []float64 {
	for i := 0; i < m; i++ {
		pivot := a[i][i]
		if pivot == 0 {
			pivot = 1e-12
		}
		for j := i; j < m+1; j++ {
			a[i][j] /= pivot
		}
		for k := 0; k < m; k++ {
			if k == i {
				continue
			}
			factor := a[k][i]
			for j := i; j < m+1; j++ {
				a[k][j] -= factor * a[i][j]
			}
		}
	}
	out := make([]float64, m)
	for i := range out {
		out[i] = a[i][m]
	}
	return out
}
