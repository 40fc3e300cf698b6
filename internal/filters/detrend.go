// Package filters implements detrend, taper, Butterworth filtering,
// and zero-padding over trace data.
package filters

import (
	"math"

	"github.com/GeoNet/gm-engine/internal/waveform"
)

// Detrend mutates tr.Data in place per the named method. splitSec is
// only used by "pre" (seconds from trace start to the noise/signal
// split). order is only used by "polynomial" and "spline"; 0 selects
// each method's default order (3 for polynomial, 5 for spline).
func Detrend(tr *waveform.Trace, method string, splitSec float64, order int) error {
	switch method {
	case "demean", "constant":
		subtractMean(tr.Data)
	case "linear":
		detrendLinear(tr.Data)
	case "simple":
		detrendSimple(tr.Data)
	case "polynomial":
		if order <= 0 {
			order = 3
		}
		detrendPolynomial(tr.Data, order)
	case "spline":
		if order <= 0 {
			order = 5 // low-order polynomial stand-in for a smoothing spline
		}
		detrendPolynomial(tr.Data, order)
	case "pre":
		if err := detrendPre(tr, splitSec); err != nil {
			tr.Fail(waveform.ProcessingFailure("filters.detrend", err.Error()))
			return nil
		}
	case "baseline_sixth_order":
		if err := baselineSixthOrder(tr); err != nil {
			tr.Fail(waveform.ProcessingFailure("filters.detrend", err.Error()))
			return nil
		}
	default:
		tr.Fail(waveform.ProcessingFailure("filters.detrend", "unknown detrend method "+method))
		return nil
	}

	prov := map[string]any{"method": method}
	if method == "polynomial" || method == "spline" {
		prov["order"] = order
	}
	tr.AddProvenance("detrend", "filters.detrend", prov)
	return nil
}

func subtractMean(data []float64) {
	if len(data) == 0 {
		return
	}
	var mean float64
	for _, v := range data {
		mean += v
	}
	mean /= float64(len(data))
	for i := range data {
		data[i] -= mean
	}
}

// detrendLinear subtracts the least-squares line fit through the samples.
func detrendLinear(data []float64) {
	n := len(data)
	if n < 2 {
		return
	}
	var sx, sy, sxx, sxy float64
	for i, v := range data {
		x := float64(i)
		sx += x
		sy += v
		sxx += x * x
		sxy += x * v
	}
	fn := float64(n)
	denom := fn*sxx - sx*sx
	if denom == 0 {
		subtractMean(data)
		return
	}
	slope := (fn*sxy - sx*sy) / denom
	intercept := (sy - slope*sx) / fn
	for i := range data {
		data[i] -= intercept + slope*float64(i)
	}
}

// detrendSimple subtracts the straight line connecting the first and
// last sample (ObsPy's "simple" detrend).
func detrendSimple(data []float64) {
	n := len(data)
	if n < 2 {
		return
	}
	slope := (data[n-1] - data[0]) / float64(n-1)
	for i := range data {
		data[i] -= data[0] + slope*float64(i)
	}
}

// detrendPolynomial subtracts a least-squares polynomial of the given
// order, evaluated on normalized x in [0,1] for numerical stability.
func detrendPolynomial(data []float64, order int) {
	n := len(data)
	if n <= order {
		return
	}
	x := make([]float64, n)
	for i := range x {
		x[i] = float64(i) / float64(n-1)
	}
	coeffs := polyfitLS(x, data, order)
	for i, xi := range x {
		data[i] -= evalPoly(coeffs, xi)
	}
}

func detrendPre(tr *waveform.Trace, splitSec float64) error {
	splitIdx := tr.SampleIndex(splitSec)
	if splitIdx < 1 {
		return errNoPreWindow
	}
	var mean float64
	for _, v := range tr.Data[:splitIdx] {
		mean += v
	}
	mean /= float64(splitIdx)
	for i := range tr.Data {
		tr.Data[i] -= mean
	}
	return nil
}

// baselineSixthOrder integrates to displacement, fits a sixth-order
// polynomial, zeroes its constant and linear terms, differentiates
// twice, and subtracts from the acceleration.
//
// Open Question: the integration scheme used to go from
// acceleration to displacement for the fit is decided here as
// time-domain trapezoidal integration with zero initial condition —
// see DESIGN.md.
func baselineSixthOrder(tr *waveform.Trace) error {
	n := len(tr.Data)
	if n < 8 {
		return errTraceTooShort
	}

	vel := trapezoidalIntegrate(tr.Data, tr.Delta, 0)
	disp := trapezoidalIntegrate(vel, tr.Delta, 0)

	x := make([]float64, n)
	for i := range x {
		x[i] = float64(i) / float64(n-1)
	}
	coeffs := polyfitLS(x, disp, 6)
	coeffs[0] = 0
	coeffs[1] = 0

	baselineDisp := make([]float64, n)
	for i, xi := range x {
		baselineDisp[i] = evalPoly(coeffs, xi)
	}
	// Differentiate the baseline polynomial twice in normalized-x
	// space, then rescale back to physical time via the chain rule
	// (d/dt = (1/((n-1)*dt)) d/dx).
	scale := 1.0 / (float64(n-1) * tr.Delta)
	baselineAccel := secondDerivative(baselineDisp, x, scale)

	for i := range tr.Data {
		tr.Data[i] -= baselineAccel[i]
	}

	tr.Parameters.Set(waveform.ParamBaseline, waveform.BaselineParam{Coefficients: [7]float64(coeffsArray(coeffs))})
	return nil
}

func coeffsArray(c []float64) []float64 {
	out := make([]float64, 7)
	copy(out, c)
	return out
}

// trapezoidalIntegrate integrates data by the trapezoidal rule with
// the given initial condition.
func trapezoidalIntegrate(data []float64, dt, initial float64) []float64 {
	out := make([]float64, len(data))
	if len(data) == 0 {
		return out
	}
	out[0] = initial
	for i := 1; i < len(data); i++ {
		out[i] = out[i-1] + dt*(data[i]+data[i-1])/2
	}
	return out
}

// secondDerivative differentiates y(x) twice by central finite
// differences and rescales by scale^2 (chain rule for a variable
// substitution x = t/((n-1)*dt)).
func secondDerivative(y, x []float64, scale float64) []float64 {
	n := len(y)
	out := make([]float64, n)
	if n < 3 {
		return out
	}
	for i := 1; i < n-1; i++ {
		h := x[i+1] - x[i-1]
		if h == 0 {
			continue
		}
		hHalf := h / 2
		out[i] = (y[i+1] - 2*y[i] + y[i-1]) / (hHalf * hHalf)
	}
	out[0] = out[1]
	out[n-1] = out[n-2]
	for i := range out {
		out[i] *= scale * scale
	}
	return out
}

func evalPoly(coeffs []float64, x float64) float64 {
	var v, p float64
	p = 1
	for _, c := range coeffs {
		v += c * p
		p *= x
	}
	return v
}

// polyfitLS fits a least-squares polynomial of the given order to
// (x, y) via the normal equations.
func polyfitLS(x, y []float64, order int) []float64 {
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

type filterError string

func (e filterError) Error() string { return string(e) }

const (
	errNoPreWindow   = filterError("filters.detrend: pre requires a non-empty noise window")
	errTraceTooShort = filterError("filters.detrend: trace too short for baseline_sixth_order")
)
