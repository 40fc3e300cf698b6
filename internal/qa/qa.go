// Package qa implements the quality-assurance checks, each
// registered as a pipeline.StepFunc. A failed check fails the whole
// stream (not just one trace): these are acceptance gates on the
// record as a unit.
package qa

import (
	"math"

	"github.com/GeoNet/gm-engine/internal/event"
	"github.com/GeoNet/gm-engine/internal/geodesy"
	"github.com/GeoNet/gm-engine/internal/registry"
	"github.com/GeoNet/gm-engine/internal/waveform"
)

func floatParam(params map[string]any, key string, def float64) float64 {
	if v, ok := params[key].(float64); ok {
		return v
	}
	return def
}

func intParam(params map[string]any, key string, def int) int {
	if v, ok := params[key].(float64); ok {
		return int(v)
	}
	if v, ok := params[key].(int); ok {
		return v
	}
	return def
}

func boolParam(params map[string]any, key string, def bool) bool {
	if v, ok := params[key].(bool); ok {
		return v
	}
	return def
}

// checkReg and checkModel back trim_multiple_events' travel-time
// lookups. Set once at start-up via Configure (see
// internal/windowing.Configure for the same package-level-singleton
// shape).
var (
	checkReg   *registry.Registry
	checkModel string
)

// Configure wires the shared travel-time registry used by
// trim_multiple_events.
func Configure(reg *registry.Registry, model string) {
	checkReg = reg
	checkModel = model
}

// isFreeField reports whether a trace's format-specific metadata marks
// it sited free-field: a sensor sited so that its record reflects
// ground motion rather than structural response. Readers populate
// tr.Format from source-specific conventions (e.g.
// COSMOS structure codes, where 01 denotes free-field); a trace with
// no such metadata is assumed free-field.
func isFreeField(tr *waveform.Trace) bool {
	if v, ok := tr.Format["free_field"].(bool); ok {
		return v
	}
	if v, ok := tr.Format["structure_code"]; ok {
		switch code := v.(type) {
		case float64:
			return code == 1
		case int:
			return code == 1
		case string:
			return code == "01" || code == "1"
		}
	}
	return true
}

func squaredAmplitude(data []float64) []float64 {
	out := make([]float64, len(data))
	for i, v := range data {
		out[i] = v * v
	}
	return out
}

// maxSTALTA returns the maximum STA/LTA ratio over the trace using
// squared amplitude as the characteristic function, matching
// internal/picker's power-detector characteristic function.
func maxSTALTA(data []float64, dt, staSec, ltaSec float64) float64 {
	cf := squaredAmplitude(data)
	staN := int(staSec/dt + 0.5)
	ltaN := int(ltaSec/dt + 0.5)
	if staN < 1 {
		staN = 1
	}
	if ltaN <= staN {
		ltaN = staN + 1
	}
	if len(cf) <= ltaN {
		return 0
	}

	var staSum, ltaSum float64
	for i := 0; i < ltaN; i++ {
		ltaSum += cf[i]
		if i >= ltaN-staN {
			staSum += cf[i]
		}
	}

	maxRatio := ratio(staSum, ltaSum, staN, ltaN)
	for i := ltaN; i < len(cf); i++ {
		ltaSum += cf[i] - cf[i-ltaN]
		staSum += cf[i] - cf[i-staN]
		if r := ratio(staSum, ltaSum, staN, ltaN); r > maxRatio {
			maxRatio = r
		}
	}
	return maxRatio
}

func ratio(staSum, ltaSum float64, staN, ltaN int) float64 {
	sta := staSum / float64(staN)
	lta := ltaSum / float64(ltaN)
	if lta == 0 {
		return 0
	}
	return sta / lta
}

// zeroCrossingsPerSecond counts sign changes in data and normalizes by
// the trace's duration.
func zeroCrossingsPerSecond(data []float64, dt float64) float64 {
	if len(data) < 2 {
		return 0
	}
	var crossings int
	for i := 1; i < len(data); i++ {
		if (data[i-1] < 0 && data[i] >= 0) || (data[i-1] >= 0 && data[i] < 0) {
			crossings++
		}
	}
	duration := float64(len(data)-1) * dt
	if duration <= 0 {
		return 0
	}
	return float64(crossings) / duration
}

// trapezoidalIntegrate integrates data by the trapezoidal rule with a
// zero initial condition, matching internal/filters' baseline
// integration scheme (see DESIGN.md).
func trapezoidalIntegrate(data []float64, dt float64) []float64 {
	out := make([]float64, len(data))
	for i := 1; i < len(data); i++ {
		out[i] = out[i-1] + dt*(data[i]+data[i-1])/2
	}
	return out
}

func maxAbs(data []float64) float64 {
	var m float64
	for _, v := range data {
		if a := math.Abs(v); a > m {
			m = a
		}
	}
	return m
}

func maxAbsInTail(data []float64, dt, tailSec float64) float64 {
	n := len(data)
	tailN := int(tailSec/dt + 0.5)
	if tailN >= n {
		tailN = n
	}
	if tailN <= 0 {
		return 0
	}
	return maxAbs(data[n-tailN:])
}

// arrivalTimeFor returns the predicted P-arrival time of ev at the
// trace's station, by distance through the configured travel-time
// registry.
func arrivalTimeFor(tr *waveform.Trace, ev *event.ScalarEvent) (float64, bool) {
	if checkReg == nil {
		return 0, false
	}
	model, err := checkReg.TravelTimeModelFor(checkModel)
	if err != nil {
		return 0, false
	}
	distKM, err := geodesy.HypocentralDistanceKM(ev.Latitude, ev.Longitude, ev.DepthKM, tr.Coordinates.Latitude, tr.Coordinates.Longitude, tr.Coordinates.Elevation)
	if err != nil {
		return 0, false
	}
	travelSec := model.Interpolate(distKM)
	arrivalSec := ev.OriginTime.Sub(tr.StartTime).Seconds() + travelSec
	return arrivalSec, true
}
