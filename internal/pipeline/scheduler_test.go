package pipeline

import (
	"context"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/GeoNet/gm-engine/internal/config"
	"github.com/GeoNet/gm-engine/internal/event"
	"github.com/GeoNet/gm-engine/internal/waveform"
)

func l() (loc string) {
	_, _, l, _ := runtime.Caller(1)
	return "L" + strconv.Itoa(l)
}

func init() {
	Register("test.fail_short", func(stream *waveform.Stream, ev *event.ScalarEvent, params map[string]any, cfg *config.Config) error {
		for _, tr := range stream.Traces {
			if tr.NumSamples() < 10 {
				tr.Fail(waveform.ProcessingFailure("test.fail_short", "trace too short"))
			}
		}
		return nil
	})

	Register("test.count_invocations", func(stream *waveform.Stream, ev *event.ScalarEvent, params map[string]any, cfg *config.Config) error {
		n, _ := params["counter"].(*int)
		if n != nil {
			*n++
		}
		return nil
	})
}

func mkStream(t *testing.T, n int) *waveform.Stream {
	t.Helper()
	data := make([]float64, n)
	for i := range data {
		data[i] = float64(i)
	}
	tr, err := waveform.NewTrace(waveform.TraceID{Network: "NZ", Station: "ABC", Location: "10", Channel: "HNZ"}, time.Unix(0, 0).UTC(), 0.01, data)
	if err != nil {
		t.Fatalf("%s: NewTrace: %v", l(), err)
	}
	s, err := waveform.NewStream([]*waveform.Trace{tr})
	if err != nil {
		t.Fatalf("%s: NewStream: %v", l(), err)
	}
	return s
}

func testConfig(anyTraceFailures bool) *config.Config {
	cfg := &config.Config{}
	cfg.CheckStream.AnyTraceFailures = anyTraceFailures
	return cfg
}

func TestCompileRejectsUnknownStepName(t *testing.T) {
	_, err := Compile(Program{{Name: "no_such_step"}}, 1)
	if err == nil {
		t.Fatalf("%s: expected ConfigError for unknown step name", l())
	}
	if _, ok := err.(waveform.ConfigError); !ok {
		t.Errorf("%s: expected waveform.ConfigError, got %T", l(), err)
	}
}

func TestRunAppliesAnyTraceFailures(t *testing.T) {
	sched, err := Compile(Program{{Name: "test.fail_short"}}, 2)
	if err != nil {
		t.Fatalf("%s: Compile: %v", l(), err)
	}

	collection := &waveform.StreamCollection{}
	collection.Add(mkStream(t, 3)) // shorter than 10 samples, will fail its trace

	cfg := testConfig(true)
	if err := sched.Run(context.Background(), collection, nil, cfg); err != nil {
		t.Fatalf("%s: Run: %v", l(), err)
	}

	s := collection.Streams[0]
	if !s.Failed {
		t.Errorf("%s: expected stream failed once any_trace_failures sees a failed trace", l())
	}
}

func TestRunLeavesStreamAloneWhenAnyTraceFailuresDisabled(t *testing.T) {
	sched, err := Compile(Program{{Name: "test.fail_short"}}, 2)
	if err != nil {
		t.Fatalf("%s: Compile: %v", l(), err)
	}

	collection := &waveform.StreamCollection{}
	collection.Add(mkStream(t, 3))

	cfg := testConfig(false)
	if err := sched.Run(context.Background(), collection, nil, cfg); err != nil {
		t.Fatalf("%s: Run: %v", l(), err)
	}

	s := collection.Streams[0]
	if s.Failed {
		t.Errorf("%s: stream should not be failed when any_trace_failures is off", l())
	}
	if !s.Traces[0].Failed {
		t.Errorf("%s: trace itself should still be failed", l())
	}
}

func TestRunSkipsAlreadyFailedStream(t *testing.T) {
	sched, err := Compile(Program{{Name: "test.count_invocations"}}, 2)
	if err != nil {
		t.Fatalf("%s: Compile: %v", l(), err)
	}

	collection := &waveform.StreamCollection{}
	s := mkStream(t, 20)
	s.Fail(waveform.KindDataError, "prior_step", "already dead")
	collection.Add(s)

	var invocations int
	sched.program[0].params = map[string]any{"counter": &invocations}

	cfg := testConfig(true)
	if err := sched.Run(context.Background(), collection, nil, cfg); err != nil {
		t.Fatalf("%s: Run: %v", l(), err)
	}

	if invocations != 0 {
		t.Errorf("%s: step should be a no-op on an already-failed stream, got %d invocations", l(), invocations)
	}
}
