// Package waveform is the in-memory multi-channel waveform container:
// Trace, Stream, StreamCollection, the per-trace parameter map and
// provenance log.
package waveform

import (
	"fmt"
	"time"
)

// UnitsType enumerates the physical quantity a trace's samples represent.
type UnitsType string

const (
	UnitsAcceleration UnitsType = "acceleration"
	UnitsVelocity     UnitsType = "velocity"
	UnitsDisplacement UnitsType = "displacement"
	UnitsCounts       UnitsType = "counts"
)

// Orientation is the instrument's azimuth and dip in degrees.
type Orientation struct {
	Azimuth float64
	Dip     float64
}

// Coordinates is the sensor location.
type Coordinates struct {
	Latitude  float64
	Longitude float64
	Elevation float64 // meters
}

// StandardMetadata carries the cross-format metadata every reader
// normalizes into.
type StandardMetadata struct {
	ProcessLevel   string // e.g. "raw", "V1", "V2"
	Units          string // display units, e.g. "cm/s^2"
	UnitsType      UnitsType
	InstrumentType string // e.g. "STS-2", "FBA-23"
	SourceFormat   string // e.g. "knet", "geonet", "cosmos"
}

// ResponseStage is one pole-zero stage of an instrument response.
type ResponseStage struct {
	Poles       []complex128
	Zeros       []complex128
	Gain        float64
	InputUnits  string
	OutputUnits string
}

// InstrumentResponse is either a sequence of pole-zero stages, or a
// scalar overall sensitivity. Both may be present; consistency
// between them is a response-removal precondition.
type InstrumentResponse struct {
	Stages             []ResponseStage
	Sensitivity        float64
	SensitivityUnits   string
	HasStages          bool
	HasSensitivity     bool
}

// StageGainProduct returns the product of each stage's gain.
func (r InstrumentResponse) StageGainProduct() float64 {
	g := 1.0
	for _, s := range r.Stages {
		g *= s.Gain
	}
	return g
}

// TraceID identifies a channel uniquely.
type TraceID struct {
	Network  string
	Station  string
	Location string
	Channel  string
}

func (id TraceID) String() string {
	return fmt.Sprintf("%s.%s.%s.%s", id.Network, id.Station, id.Location, id.Channel)
}

// ProvenanceEntry is one tagged record of a mutation applied to a trace.
type ProvenanceEntry struct {
	Activity   string
	ProvID     string
	Timestamp  time.Time
	Parameters map[string]any
}

// ProvenanceLog is the ordered, append-only history of a trace.
type ProvenanceLog []ProvenanceEntry

func (l *ProvenanceLog) Append(e ProvenanceEntry) {
	*l = append(*l, e)
}

// Trace is one channel of evenly sampled data.
type Trace struct {
	ID        TraceID
	StartTime time.Time
	Delta     float64 // sampling interval, seconds
	Data      []float64

	Orientation Orientation
	Coordinates Coordinates
	Standard    StandardMetadata
	Format      map[string]any

	Response InstrumentResponse

	Parameters *ParameterMap
	Provenance ProvenanceLog

	Failed        bool
	FailureReason *FailureReason
}

// NewTrace constructs a Trace and validates the core invariants:
// len(samples) == sample_count, sample_count > 0, delta > 0.
func NewTrace(id TraceID, start time.Time, delta float64, data []float64) (*Trace, error) {
	if delta <= 0 {
		return nil, fmt.Errorf("waveform: invalid sampling interval %v for %s", delta, id)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("waveform: zero-length trace for %s", id)
	}
	return &Trace{
		ID:         id,
		StartTime:  start,
		Delta:      delta,
		Data:       data,
		Format:     make(map[string]any),
		Parameters: NewParameterMap(),
	}, nil
}

// NumSamples is len(Data); invariant NumSamples() == sample_count.
func (t *Trace) NumSamples() int { return len(t.Data) }

// SamplingRate is 1/Delta in Hz.
func (t *Trace) SamplingRate() float64 { return 1.0 / t.Delta }

// Duration is the record length in seconds.
func (t *Trace) Duration() float64 {
	if len(t.Data) == 0 {
		return 0
	}
	return float64(len(t.Data)-1) * t.Delta
}

// EndTime is the time of the last sample.
func (t *Trace) EndTime() time.Time {
	return t.StartTime.Add(time.Duration(t.Duration() * float64(time.Second)))
}

// TimeAt returns the UTC time of sample i.
func (t *Trace) TimeAt(i int) time.Time {
	return t.StartTime.Add(time.Duration(float64(i) * t.Delta * float64(time.Second)))
}

// SampleIndex returns the nearest sample index for elapsed seconds
// since the trace start, clamped to [0, NumSamples()-1].
func (t *Trace) SampleIndex(secondsFromStart float64) int {
	i := int(secondsFromStart/t.Delta + 0.5)
	if i < 0 {
		i = 0
	}
	if n := t.NumSamples(); i >= n {
		i = n - 1
	}
	return i
}

// Fail marks the trace failed and records the first failure reason.
// Idempotent: a trace already failed keeps its original reason, since
// steps must be idempotent on already-failed streams.
func (t *Trace) Fail(reason FailureReason) {
	if t.Failed {
		return
	}
	t.Failed = true
	r := reason
	t.FailureReason = &r
}

// AddProvenance appends a provenance entry in place. Callers append
// exactly one entry per executed step, in program order.
func (t *Trace) AddProvenance(activity, provID string, params map[string]any) {
	t.Provenance.Append(ProvenanceEntry{
		Activity:   activity,
		ProvID:     provID,
		Timestamp:  time.Now().UTC(),
		Parameters: params,
	})
}

// IsAccelerometer reports whether the channel code marks this trace as
// a strong-motion accelerometer (SEED channel convention: second
// character 'N').
func (t *Trace) IsAccelerometer() bool {
	c := t.ID.Channel
	return len(c) >= 2 && c[1] == 'N'
}

// Clone returns a deep-enough copy for steps that must not mutate the
// original (e.g. speculative corner-frequency search).
func (t *Trace) Clone() *Trace {
	c := *t
	c.Data = append([]float64(nil), t.Data...)
	c.Format = make(map[string]any, len(t.Format))
	for k, v := range t.Format {
		c.Format[k] = v
	}
	pm := NewParameterMap()
	if t.Parameters != nil {
		for k, v := range t.Parameters.m {
			pm.Set(k, v)
		}
	}
	c.Parameters = pm
	c.Provenance = append(ProvenanceLog(nil), t.Provenance...)
	return &c
}
