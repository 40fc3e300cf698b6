// Package metrics gathers run-time counters and step timings for the
// processing engine. It is append-only and safe for concurrent access
// from every worker in the pipeline's worker pool, updated via atomic
// counters and reduced at the end of a run.
package metrics

import (
	"sync/atomic"
	"time"
)

// index layout for streamCounters / traceCounters.
const (
	idxStreamsSeen = iota
	idxStreamsPassed
	idxStreamsFailed
	idxCountersLen
)

const (
	idxTracesSeen = iota
	idxTracesFailed
	idxStepInvocations
	idxStepErrors
	idxTraceCountersLen
)

var streamCounters [idxCountersLen]uint64
var streamLast [idxCountersLen]uint64
var streamCurrent [idxCountersLen]uint64

var traceCounters [idxTraceCountersLen]uint64
var traceLast [idxTraceCountersLen]uint64
var traceCurrent [idxTraceCountersLen]uint64

// StreamCounters records stream-level run counters.
type StreamCounters struct {
	// Seen is the count of streams dispatched to a worker.
	Seen uint64

	// Passed is the count of streams that completed the program without failing.
	Passed uint64

	// Failed is the count of streams marked failed by any step.
	Failed uint64

	// At is the time the counters were sampled at.
	At time.Time
}

// TraceCounters records trace-level and step-invocation run counters.
type TraceCounters struct {
	// Seen is the count of traces dispatched to a worker.
	Seen uint64

	// Failed is the count of traces marked failed by any step.
	Failed uint64

	// StepInvocations is the count of step function calls made across all streams.
	StepInvocations uint64

	// StepErrors is the count of step invocations that returned a Go error.
	StepErrors uint64

	// At is the time the counters were sampled at.
	At time.Time
}

// ReadStreamCounters populates m with stream counter delta values
// since the last time it was called.
func ReadStreamCounters(m *StreamCounters) {
	m.At = time.Now().UTC()

	for i := range streamCounters {
		streamCurrent[i] = atomic.LoadUint64(&streamCounters[i])
	}

	m.Seen = streamCurrent[idxStreamsSeen] - streamLast[idxStreamsSeen]
	m.Passed = streamCurrent[idxStreamsPassed] - streamLast[idxStreamsPassed]
	m.Failed = streamCurrent[idxStreamsFailed] - streamLast[idxStreamsFailed]

	for i := range streamCounters {
		streamLast[i] = streamCurrent[i]
	}
}

// ReadTraceCounters populates m with trace/step counter delta values
// since the last time it was called.
func ReadTraceCounters(m *TraceCounters) {
	m.At = time.Now().UTC()

	for i := range traceCounters {
		traceCurrent[i] = atomic.LoadUint64(&traceCounters[i])
	}

	m.Seen = traceCurrent[idxTracesSeen] - traceLast[idxTracesSeen]
	m.Failed = traceCurrent[idxTracesFailed] - traceLast[idxTracesFailed]
	m.StepInvocations = traceCurrent[idxStepInvocations] - traceLast[idxStepInvocations]
	m.StepErrors = traceCurrent[idxStepErrors] - traceLast[idxStepErrors]

	for i := range traceCounters {
		traceLast[i] = traceCurrent[i]
	}
}

// StreamSeen increments the streams-dispatched counter. Safe for concurrent access.
func StreamSeen() {
	atomic.AddUint64(&streamCounters[idxStreamsSeen], 1)
}

// StreamPassed increments the streams-passed counter. Safe for concurrent access.
func StreamPassed() {
	atomic.AddUint64(&streamCounters[idxStreamsPassed], 1)
}

// StreamFailed increments the streams-failed counter. Safe for concurrent access.
func StreamFailed() {
	atomic.AddUint64(&streamCounters[idxStreamsFailed], 1)
}

// TraceSeen increments the traces-dispatched counter. Safe for concurrent access.
func TraceSeen() {
	atomic.AddUint64(&traceCounters[idxTracesSeen], 1)
}

// TraceFailed increments the traces-failed counter. Safe for concurrent access.
func TraceFailed() {
	atomic.AddUint64(&traceCounters[idxTracesFailed], 1)
}

// StepInvocation increments the step-invocation counter. Safe for concurrent access.
func StepInvocation() {
	atomic.AddUint64(&traceCounters[idxStepInvocations], 1)
}

// StepError increments the step-error counter. Safe for concurrent access.
func StepError() {
	atomic.AddUint64(&traceCounters[idxStepErrors], 1)
}
