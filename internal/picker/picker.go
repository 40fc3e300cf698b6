// Package picker implements the P-wave arrival pickers combined by
// internal/windowing to find a trace's noise/signal split: a
// travel-time picker and three characteristic-function pickers
// (AR-AIC, Baer, power/STA-LTA).
//
// AR-AIC, Baer and power/STA-LTA picking are commonly delegated to a
// compiled picker library; with no such dependency available here,
// each picker is a direct, from-scratch implementation of its
// published characteristic function.
package picker

import (
	"math"
	"time"

	"github.com/GeoNet/gm-engine/internal/event"
	"github.com/GeoNet/gm-engine/internal/geodesy"
	"github.com/GeoNet/gm-engine/internal/registry"
	"github.com/GeoNet/gm-engine/internal/waveform"
)

// Picker produces a candidate P-wave arrival time, or ok=false if it
// could not identify one.
type Picker interface {
	Pick(tr *waveform.Trace, ev *event.ScalarEvent, params map[string]any) (time.Time, bool)
}

func floatParam(params map[string]any, key string, def float64) float64 {
	if v, ok := params[key]; ok {
		if f, ok := v.(float64); ok {
			return f
		}
	}
	return def
}

// TravelTime picks the arrival implied by a configured 1-D travel-time
// model (internal/registry), offset from the event origin time.
type TravelTime struct {
	Registry *registry.Registry
	Model    string
}

func (p TravelTime) Pick(tr *waveform.Trace, ev *event.ScalarEvent, params map[string]any) (time.Time, bool) {
	if ev == nil || p.Registry == nil {
		return time.Time{}, false
	}
	distKM, err := geodesy.HypocentralDistanceKM(ev.Latitude, ev.Longitude, ev.DepthKM, tr.Coordinates.Latitude, tr.Coordinates.Longitude, tr.Coordinates.Elevation)
	if err != nil {
		return time.Time{}, false
	}
	model, err := p.Registry.TravelTimeModelFor(p.Model)
	if err != nil {
		return time.Time{}, false
	}
	travelSec := model.Interpolate(distKM)
	return ev.OriginTime.Add(time.Duration(travelSec * float64(time.Second))), true
}

// ARAIC picks the sample minimizing the Akaike Information Criterion
// characteristic function over the trace (Maeda, 1985; Sleeman & van
// Eck, 1999): AIC(k) = k*log(var(x[0:k])) + (N-k-1)*log(var(x[k:N])).
// The global minimum marks the transition between two stationary
// segments, the standard proxy for a phase arrival.
type ARAIC struct{}

func (ARAIC) Pick(tr *waveform.Trace, ev *event.ScalarEvent, params map[string]any) (time.Time, bool) {
	k, ok := aicMinimum(tr.Data)
	if !ok {
		return time.Time{}, false
	}
	return tr.TimeAt(k), true
}

func aicMinimum(data []float64) (int, bool) {
	n := len(data)
	if n < 4 {
		return 0, false
	}
	best := math.Inf(1)
	bestK := -1
	for k := 2; k < n-2; k++ {
		v1 := variance(data[:k])
		v2 := variance(data[k:])
		if v1 <= 0 || v2 <= 0 {
			continue
		}
		aic := float64(k)*math.Log(v1) + float64(n-k-1)*math.Log(v2)
		if aic < best {
			best = aic
			bestK = k
		}
	}
	if bestK < 0 {
		return 0, false
	}
	return bestK, true
}

func variance(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var mean float64
	for _, v := range x {
		mean += v
	}
	mean /= float64(len(x))
	var sumSq float64
	for _, v := range x {
		d := v - mean
		sumSq += d * d
	}
	return sumSq / float64(len(x))
}

// Baer implements the Baer & Kradolfer (1987) two-stage picker: a
// short-/long-term-average characteristic function built from the
// signal and its derivative, thresholded to find a trigger sample,
// then refined by an AR-AIC search in a short window around it.
type Baer struct {
	STAWindowSec float64
	LTAWindowSec float64
	Threshold    float64
}

func (p Baer) Pick(tr *waveform.Trace, ev *event.ScalarEvent, params map[string]any) (time.Time, bool) {
	sta := floatParam(params, "sta_window", p.STAWindowSec)
	lta := floatParam(params, "lta_window", p.LTAWindowSec)
	thresh := floatParam(params, "threshold", p.Threshold)
	if sta <= 0 {
		sta = 0.5
	}
	if lta <= 0 {
		lta = 5.0
	}
	if thresh <= 0 {
		thresh = 3.0
	}

	cf := baerCharacteristicFunction(tr.Data)
	trigger, ok := staLtaTrigger(cf, int(sta/tr.Delta+0.5), int(lta/tr.Delta+0.5), thresh)
	if !ok {
		return time.Time{}, false
	}

	refineHalfWidth := int(1.0/tr.Delta + 0.5)
	lo := trigger - refineHalfWidth
	if lo < 0 {
		lo = 0
	}
	hi := trigger + refineHalfWidth
	if hi > len(tr.Data) {
		hi = len(tr.Data)
	}
	if hi-lo < 4 {
		return tr.TimeAt(trigger), true
	}
	k, ok := aicMinimum(tr.Data[lo:hi])
	if !ok {
		return tr.TimeAt(trigger), true
	}
	return tr.TimeAt(lo + k), true
}

// baerCharacteristicFunction combines amplitude and its discrete
// derivative, the classic Baer & Kradolfer combination that responds
// to both an amplitude jump and a frequency-content change.
func baerCharacteristicFunction(data []float64) []float64 {
	cf := make([]float64, len(data))
	for i := 1; i < len(data); i++ {
		d := data[i] - data[i-1]
		cf[i] = data[i]*data[i] + d*d
	}
	return cf
}

// Power is an STA/LTA power-ratio picker: the first sample where the
// short-term average power exceeds threshold x the long-term average.
type Power struct {
	STAWindowSec float64
	LTAWindowSec float64
	Threshold    float64
}

func (p Power) Pick(tr *waveform.Trace, ev *event.ScalarEvent, params map[string]any) (time.Time, bool) {
	sta := floatParam(params, "sta_window", p.STAWindowSec)
	lta := floatParam(params, "lta_window", p.LTAWindowSec)
	thresh := floatParam(params, "threshold", p.Threshold)
	if sta <= 0 {
		sta = 1.0
	}
	if lta <= 0 {
		lta = 10.0
	}
	if thresh <= 0 {
		thresh = 4.0
	}

	power := make([]float64, len(tr.Data))
	for i, v := range tr.Data {
		power[i] = v * v
	}
	k, ok := staLtaTrigger(power, int(sta/tr.Delta+0.5), int(lta/tr.Delta+0.5), thresh)
	if !ok {
		return time.Time{}, false
	}
	return tr.TimeAt(k), true
}

// staLtaTrigger scans a characteristic function for the first sample
// where the short-term average exceeds threshold times the long-term
// average, the shared primitive behind Power and Baer.
func staLtaTrigger(cf []float64, staN, ltaN int, threshold float64) (int, bool) {
	if staN < 1 {
		staN = 1
	}
	if ltaN <= staN {
		ltaN = staN + 1
	}
	n := len(cf)
	if n <= ltaN {
		return 0, false
	}

	var staSum, ltaSum float64
	for i := ltaN - staN; i < ltaN; i++ {
		staSum += cf[i]
	}
	for i := 0; i < ltaN; i++ {
		ltaSum += cf[i]
	}

	for i := ltaN; i < n; i++ {
		sta := staSum / float64(staN)
		lta := ltaSum / float64(ltaN)
		if lta > 0 && sta/lta >= threshold {
			return i, true
		}

		staSum += cf[i] - cf[i-staN]
		ltaSum += cf[i] - cf[i-ltaN]
	}
	return 0, false
}
