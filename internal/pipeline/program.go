package pipeline

import (
	"github.com/GeoNet/gm-engine/internal/waveform"
)

// Step is one named entry in a processing program, with its
// step-specific parameters taken verbatim from config.Config.Processing.
type Step struct {
	Name   string
	Params map[string]any
}

// Program is an ordered list of steps, compiled once per run via
// Compile before any stream is touched.
type Program []Step

// compiled pairs each Step with its resolved StepFunc so Run never
// has to re-resolve names mid-flight.
type compiled struct {
	name   string
	fn     StepFunc
	params map[string]any
}

// anyTraceFailures mirrors the check_stream.any_trace_failures step
// (internal/waveform.Stream.ApplyAnyTraceFailures) so the scheduler
// can apply it uniformly after every step without requiring it be
// listed explicitly in every program.
func anyTraceFailures(s *waveform.Stream) {
	s.ApplyAnyTraceFailures()
}
