// Package metrics computes ground-motion intensity measures from a
// processed Stream: peak amplitudes, oscillator response spectra,
// Fourier amplitude spectra and duration/energy measures, combined
// across horizontal components per a configurable component spec
// (raw channels, vector means, or RotD percentiles).
package metrics

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/GeoNet/gm-engine/internal/config"
	"github.com/GeoNet/gm-engine/internal/event"
	"github.com/GeoNet/gm-engine/internal/waveform"
)

// gCmS2 is standard gravity in cm/s^2, used to convert PGA/SA from
// the package's internal cm/s^2 units into g.
const gCmS2 = 981.0

// Packet is a single ground-motion metric value, one row of a
// MetricsCollection.
type Packet struct {
	EventID   string  `json:"event_id"`
	Network   string  `json:"network"`
	Station   string  `json:"station"`
	Location  string  `json:"location"`
	Component string  `json:"component"`

	MetricType string  `json:"metric_type"`
	Period     float64 `json:"period,omitempty"`
	Damping    float64 `json:"damping,omitempty"`
	Frequency  float64 `json:"frequency,omitempty"`
	Interval   string  `json:"interval,omitempty"`
	Percentile float64 `json:"percentile,omitempty"`

	Value float64 `json:"value"`
	Units string  `json:"units"`
}

// MetricsCollection is the full set of metric packets computed for
// one stream.
type MetricsCollection struct {
	Packets []Packet
}

func (c *MetricsCollection) add(p Packet) {
	c.Packets = append(c.Packets, p)
}

// subResult is one scalar output of a metric-type function, tagged
// with whichever sub-parameter (period/damping, frequency, interval)
// distinguishes it from its siblings.
type subResult struct {
	value     float64
	units     string
	period    float64
	damping   float64
	frequency float64
	interval  string
}

// Compute evaluates every metric_type named under each component spec
// in cfg.Metrics.ComponentsAndTypes against stream, returning one
// packet per (component, metric sub-parameter).
func Compute(stream *waveform.Stream, ev *event.ScalarEvent, cfg *config.Config) (MetricsCollection, error) {
	var out MetricsCollection
	if stream.Failed || len(stream.Traces) == 0 {
		return out, nil
	}

	network, station, location := stream.Traces[0].ID.Network, stream.Traces[0].ID.Station, stream.Traces[0].ID.Location
	eventID := ""
	if ev != nil {
		eventID = ev.ID
	}

	for componentStr, metricTypes := range cfg.Metrics.ComponentsAndTypes {
		spec, err := parseComponentSpec(componentStr)
		if err != nil {
			return out, err
		}
		for _, metricType := range metricTypes {
			params := typeParams(cfg, metricType)
			packets, err := computeComponent(stream, spec, metricType, params)
			if err != nil {
				return out, fmt.Errorf("metrics: %s/%s: %w", componentStr, metricType, err)
			}
			for _, p := range packets {
				p.EventID = eventID
				p.Network = network
				p.Station = station
				p.Location = location
				out.add(p)
			}
		}
	}
	return out, nil
}

type componentKind int

const (
	componentChannels componentKind = iota
	componentArithmeticMean
	componentGeometricMean
	componentQuadraticMean
	componentRotD
)

type componentSpec struct {
	kind       componentKind
	percentile float64
	raw        string
}

func parseComponentSpec(s string) (componentSpec, error) {
	switch s {
	case "channels":
		return componentSpec{kind: componentChannels, raw: s}, nil
	case "arithmetic_mean":
		return componentSpec{kind: componentArithmeticMean, raw: s}, nil
	case "geometric_mean":
		return componentSpec{kind: componentGeometricMean, raw: s}, nil
	case "quadratic_mean":
		return componentSpec{kind: componentQuadraticMean, raw: s}, nil
	}
	if strings.HasPrefix(s, "rotd") {
		pct, err := strconv.ParseFloat(strings.TrimPrefix(s, "rotd"), 64)
		if err != nil {
			return componentSpec{}, fmt.Errorf("metrics: bad rotd component %q: %w", s, err)
		}
		return componentSpec{kind: componentRotD, percentile: pct, raw: s}, nil
	}
	return componentSpec{}, fmt.Errorf("metrics: unknown component spec %q", s)
}

func computeComponent(stream *waveform.Stream, spec componentSpec, metricType string, params map[string]any) ([]Packet, error) {
	switch spec.kind {
	case componentChannels:
		var out []Packet
		for _, tr := range stream.Traces {
			if tr.Failed {
				continue
			}
			subs := computeMetric(metricType, tr.Data, tr.Delta, params)
			for _, sub := range subs {
				out = append(out, packetFromSub(metricType, tr.ID.Channel, sub))
			}
		}
		return out, nil

	case componentArithmeticMean, componentGeometricMean, componentQuadraticMean:
		h := stream.HorizontalTraces()
		if len(h) != 2 {
			return nil, fmt.Errorf("need exactly two horizontal traces, got %d", len(h))
		}
		subs1 := computeMetric(metricType, h[0].Data, h[0].Delta, params)
		subs2 := computeMetric(metricType, h[1].Data, h[1].Delta, params)
		if len(subs1) != len(subs2) {
			return nil, fmt.Errorf("horizontal component sub-result counts differ: %d vs %d", len(subs1), len(subs2))
		}
		var out []Packet
		for i := range subs1 {
			v := combine(spec.kind, subs1[i].value, subs2[i].value)
			sub := subs1[i]
			sub.value = v
			out = append(out, packetFromSub(metricType, spec.raw, sub))
		}
		return out, nil

	case componentRotD:
		h := stream.HorizontalTraces()
		if len(h) != 2 {
			return nil, fmt.Errorf("need exactly two horizontal traces, got %d", len(h))
		}
		return rotD(h[0], h[1], metricType, params, spec.percentile, spec.raw)
	}
	return nil, fmt.Errorf("unhandled component kind")
}

func combine(kind componentKind, v1, v2 float64) float64 {
	switch kind {
	case componentArithmeticMean:
		return (v1 + v2) / 2
	case componentGeometricMean:
		return math.Sqrt(math.Abs(v1 * v2))
	case componentQuadraticMean:
		return math.Sqrt((v1*v1 + v2*v2) / 2)
	}
	return 0
}

// rotD synthesizes h1*cos(theta) + h2*sin(theta) across a 1-degree
// rotation grid spanning 0-179 degrees, evaluates metricType on each
// rotated trace, and reports the percentile-th value across rotations
// for each sub-result key.
func rotD(h1, h2 *waveform.Trace, metricType string, params map[string]any, percentile float64, raw string) ([]Packet, error) {
	n := len(h1.Data)
	if len(h2.Data) < n {
		n = len(h2.Data)
	}
	dt := h1.Delta

	var keyed map[string][]float64
	var order []string
	var template map[string]subResult

	for deg := 0; deg < 180; deg++ {
		theta := float64(deg) * math.Pi / 180
		cos, sin := math.Cos(theta), math.Sin(theta)
		rotated := make([]float64, n)
		for i := 0; i < n; i++ {
			rotated[i] = h1.Data[i]*cos + h2.Data[i]*sin
		}
		subs := computeMetric(metricType, rotated, dt, params)
		if keyed == nil {
			keyed = make(map[string][]float64, len(subs))
			template = make(map[string]subResult, len(subs))
		}
		for _, sub := range subs {
			k := subKey(sub)
			if _, ok := template[k]; !ok {
				order = append(order, k)
				template[k] = sub
			}
			keyed[k] = append(keyed[k], sub.value)
		}
	}

	var out []Packet
	for _, k := range order {
		values := append([]float64(nil), keyed[k]...)
		sort.Float64s(values)
		v := percentileOf(values, percentile)
		sub := template[k]
		sub.value = v
		p := packetFromSub(metricType, raw, sub)
		p.Percentile = percentile
		out = append(out, p)
	}
	return out, nil
}

func subKey(s subResult) string {
	return fmt.Sprintf("%g|%g|%g|%s", s.period, s.damping, s.frequency, s.interval)
}

// percentileOf returns the linearly-interpolated pth percentile of a
// pre-sorted slice.
func percentileOf(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := (p / 100) * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo < 0 {
		lo = 0
	}
	if hi >= len(sorted) {
		hi = len(sorted) - 1
	}
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func packetFromSub(metricType, component string, sub subResult) Packet {
	return Packet{
		Component:  component,
		MetricType: metricType,
		Period:     sub.period,
		Damping:    sub.damping,
		Frequency:  sub.frequency,
		Interval:   sub.interval,
		Value:      sub.value,
		Units:      sub.units,
	}
}

// typeParams looks up the type_parameters entry for metricType.
// sorted_duration shares duration's interval list (it differs only in
// how its results are ordered, see computeDuration).
func typeParams(cfg *config.Config, metricType string) map[string]any {
	key := metricType
	if key == "sorted_duration" {
		key = "duration"
	}
	raw, ok := cfg.Metrics.TypeParameters[key]
	if !ok {
		return nil
	}
	m, _ := raw.(map[string]any)
	return m
}
