package metrics

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/GeoNet/gm-engine/internal/dsp"
)

// computeMetric dispatches a named metric type to its implementation,
// returning one subResult per sub-parameter (period/damping pair,
// frequency bin, or duration interval) it produces.
func computeMetric(metricType string, data []float64, dt float64, params map[string]any) []subResult {
	switch metricType {
	case "pga":
		return []subResult{{value: maxAbs(data) / gCmS2, units: "g"}}
	case "pgv":
		vel := cumulativeTrapezoidal(data, dt)
		return []subResult{{value: maxAbs(vel), units: "cm/s"}}
	case "sa", "psa":
		return computeResponseSpectrum(data, dt, params)
	case "fas":
		return computeFAS(data, dt, params)
	case "arias":
		return []subResult{{value: ariasIntensity(data, dt), units: "cm/s"}}
	case "cav":
		return []subResult{{value: cav(data, dt), units: "cm/s"}}
	case "duration":
		return computeDuration(data, dt, params, false)
	case "sorted_duration":
		return computeDuration(data, dt, params, true)
	}
	return nil
}

// computeResponseSpectrum evaluates pseudo-spectral acceleration
// (PSA = omega^2 * |x|_max) over the configured period/damping grid.
// SA and PSA are defined by the same formula, so both metric names
// share this function.
func computeResponseSpectrum(data []float64, dt float64, params map[string]any) []subResult {
	periods := floatSlice(params, "periods", []float64{0.3, 1.0, 3.0})
	dampings := floatSlice(params, "damping", []float64{0.05})
	nsFactor := floatVal(params, "ns_factor", 50)

	var out []subResult
	for _, period := range periods {
		for _, damp := range dampings {
			psaCmS2 := spectralAcceleration(data, dt, period, damp, nsFactor)
			out = append(out, subResult{
				value:   psaCmS2 / gCmS2,
				units:   "g",
				period:  period,
				damping: damp,
			})
		}
	}
	return out
}

// computeFAS returns the Konno-Ohmachi-smoothed Fourier amplitude
// spectrum of data at the configured output frequencies.
func computeFAS(data []float64, dt float64, params map[string]any) []subResult {
	b := floatVal(params, "smoothing_parameter", 188.5)
	freqs := frequencyGrid(params)

	spec := dsp.ForwardFFT(data, dt)
	amp := spec.AmplitudeSpectrum()
	smoothed := dsp.KonnoOhmachi(spec.Freqs, amp, freqs, b)

	out := make([]subResult, len(freqs))
	for i, f := range freqs {
		out[i] = subResult{value: smoothed[i], units: "cm/s", frequency: f}
	}
	return out
}

func frequencyGrid(params map[string]any) []float64 {
	fm, _ := params["frequencies"].(map[string]any)
	start := floatVal(fm, "start", 0.1)
	stop := floatVal(fm, "stop", 50.0)
	num := int(floatVal(fm, "num", 200))
	if num < 2 {
		num = 2
	}
	out := make([]float64, num)
	logStart, logStop := math.Log10(start), math.Log10(stop)
	step := (logStop - logStart) / float64(num-1)
	for i := range out {
		out[i] = math.Pow(10, logStart+step*float64(i))
	}
	return out
}

// ariasIntensity computes (pi/2g) * integral(a(t)^2 dt) in cm/s,
// using gCmS2 so the result is dimensionally consistent with
// acceleration given in cm/s^2.
func ariasIntensity(data []float64, dt float64) float64 {
	sq := make([]float64, len(data))
	for i, v := range data {
		sq[i] = v * v
	}
	total := trapezoidalSum(sq, dt)
	return (math.Pi / (2 * gCmS2)) * total
}

// cav is the cumulative absolute velocity, integral(|a(t)| dt).
func cav(data []float64, dt float64) float64 {
	abs := make([]float64, len(data))
	for i, v := range data {
		abs[i] = math.Abs(v)
	}
	return trapezoidalSum(abs, dt)
}

// computeDuration reports, for each configured "p1-p2" interval, the
// time between the p1% and p2% marks of cumulative Arias intensity.
// sorted_duration differs only in reporting order: it sorts the
// resulting intervals by start percentile rather than config order.
func computeDuration(data []float64, dt float64, params map[string]any, sorted bool) []subResult {
	intervals := stringSlice(params, "intervals", []string{"5-75", "5-95"})

	sq := make([]float64, len(data))
	for i, v := range data {
		sq[i] = v * v
	}
	cum := cumulativeTrapezoidal(sq, dt)
	total := 0.0
	if len(cum) > 0 {
		total = cum[len(cum)-1]
	}

	type di struct {
		label  string
		p1, p2 float64
		dur    float64
	}
	var results []di
	for _, interval := range intervals {
		p1, p2, ok := parseInterval(interval)
		if !ok || total <= 0 {
			continue
		}
		t1 := timeAtFraction(cum, dt, p1/100*total)
		t2 := timeAtFraction(cum, dt, p2/100*total)
		results = append(results, di{label: interval, p1: p1, p2: p2, dur: t2 - t1})
	}

	if sorted {
		sort.Slice(results, func(i, j int) bool {
			if results[i].p1 != results[j].p1 {
				return results[i].p1 < results[j].p1
			}
			return results[i].p2 < results[j].p2
		})
	}

	out := make([]subResult, len(results))
	for i, r := range results {
		out[i] = subResult{value: r.dur, units: "s", interval: r.label}
	}
	return out
}

func parseInterval(s string) (p1, p2 float64, ok bool) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	v1, err1 := strconv.ParseFloat(parts[0], 64)
	v2, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return v1, v2, true
}

// timeAtFraction returns the linearly-interpolated time at which the
// cumulative series first reaches target.
func timeAtFraction(cum []float64, dt, target float64) float64 {
	for i := 1; i < len(cum); i++ {
		if cum[i] >= target {
			span := cum[i] - cum[i-1]
			if span <= 0 {
				return float64(i) * dt
			}
			frac := (target - cum[i-1]) / span
			return (float64(i-1) + frac) * dt
		}
	}
	if len(cum) == 0 {
		return 0
	}
	return float64(len(cum)-1) * dt
}

func trapezoidalSum(data []float64, dt float64) float64 {
	if len(data) < 2 {
		return 0
	}
	sum := 0.0
	for i := 1; i < len(data); i++ {
		sum += (data[i] + data[i-1]) / 2 * dt
	}
	return sum
}

func cumulativeTrapezoidal(data []float64, dt float64) []float64 {
	out := make([]float64, len(data))
	for i := 1; i < len(data); i++ {
		out[i] = out[i-1] + (data[i]+data[i-1])/2*dt
	}
	return out
}

func maxAbs(data []float64) float64 {
	m := 0.0
	for _, v := range data {
		if math.Abs(v) > m {
			m = math.Abs(v)
		}
	}
	return m
}

func floatVal(params map[string]any, key string, def float64) float64 {
	if params == nil {
		return def
	}
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}

func floatSlice(params map[string]any, key string, def []float64) []float64 {
	if params == nil {
		return def
	}
	raw, ok := params[key].([]any)
	if !ok {
		return def
	}
	out := make([]float64, 0, len(raw))
	for _, v := range raw {
		switch n := v.(type) {
		case float64:
			out = append(out, n)
		case int:
			out = append(out, float64(n))
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func stringSlice(params map[string]any, key string, def []string) []string {
	if params == nil {
		return def
	}
	raw, ok := params[key].([]any)
	if !ok {
		return def
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
