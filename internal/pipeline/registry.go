// Package pipeline runs a configured program of processing steps over
// streams, recording failures on the stream/trace rather than raising
// them, and fans work out across a worker pool.
//
// The step registry generalizes a familiar routes.go pattern: instead
// of registering one HTTP handler per URL at init time, each step
// package registers one StepFunc per step name at init time.
package pipeline

import (
	"fmt"

	"github.com/GeoNet/gm-engine/internal/config"
	"github.com/GeoNet/gm-engine/internal/event"
	"github.com/GeoNet/gm-engine/internal/waveform"
)

// StepFunc is the signature every registered processing step must
// implement. It returns a Go error only for unexpected implementation
// bugs; ordinary step failure is recorded via stream.Fail/trace.Fail.
type StepFunc func(stream *waveform.Stream, ev *event.ScalarEvent, params map[string]any, cfg *config.Config) error

var steps = make(map[string]StepFunc)

// Register adds a step under name. Called from each step package's
// init(); a duplicate name is a programming error and panics at
// program startup, same as net/http.ServeMux.HandleFunc on a
// duplicate pattern.
func Register(name string, fn StepFunc) {
	if _, exists := steps[name]; exists {
		panic(fmt.Sprintf("pipeline: step %q already registered", name))
	}
	steps[name] = fn
}

func lookup(name string) (StepFunc, bool) {
	fn, ok := steps[name]
	return fn, ok
}
