package pipeline

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/GeoNet/gm-engine/internal/config"
	"github.com/GeoNet/gm-engine/internal/event"
	"github.com/GeoNet/gm-engine/internal/platform/metrics"
	"github.com/GeoNet/gm-engine/internal/waveform"
)

// Scheduler compiles a Program once and then runs it over a
// waveform.StreamCollection, fanning work out across a bounded worker
// pool using golang.org/x/sync/errgroup.
type Scheduler struct {
	program     []compiled
	concurrency int
}

// Compile resolves every step name in program against the registry.
// An unknown step name is a waveform.ConfigError, raised before any
// stream is touched.
func Compile(program Program, concurrency int) (*Scheduler, error) {
	compiledSteps := make([]compiled, 0, len(program))
	for _, step := range program {
		fn, ok := lookup(step.Name)
		if !ok {
			return nil, waveform.NewConfigError("pipeline: unknown step %q", step.Name)
		}
		compiledSteps = append(compiledSteps, compiled{name: step.Name, fn: fn, params: step.Params})
	}
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}
	return &Scheduler{program: compiledSteps, concurrency: concurrency}, nil
}

// Run executes the compiled program over every stream in the
// collection. The program runs step-major: for each step, every
// stream is processed (in parallel, bounded by Concurrency) before the
// scheduler advances to the next step: the program iterates steps,
// and for each step iterates streams.
//
// Run returns early only on ctx cancellation or an unexpected Go-level
// error from a StepFunc; ordinary processing failures are recorded on
// the stream/trace and never surface here.
func (s *Scheduler) Run(ctx context.Context, streams *waveform.StreamCollection, ev *event.ScalarEvent, cfg *config.Config) error {
	for range streams.Streams {
		metrics.StreamSeen()
	}

	for _, step := range s.program {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.concurrency)

		for _, stream := range streams.Streams {
			stream := stream
			g.Go(func() error {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}

				metrics.StepInvocation()
				if err := runStep(step, stream, ev, cfg); err != nil {
					metrics.StepError()
					return fmt.Errorf("pipeline: step %q: %w", step.name, err)
				}

				if cfg.CheckStream.AnyTraceFailures {
					anyTraceFailures(stream)
				}
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}
	}

	for _, stream := range streams.Streams {
		if stream.Failed {
			metrics.StreamFailed()
		} else {
			metrics.StreamPassed()
		}
		for _, tr := range stream.Traces {
			metrics.TraceSeen()
			if tr.Failed {
				metrics.TraceFailed()
			}
		}
	}

	return nil
}

// runStep is a no-op on an already-failed stream: steps must be
// idempotent on already-failed streams, so they skip or become
// no-ops.
func runStep(step compiled, stream *waveform.Stream, ev *event.ScalarEvent, cfg *config.Config) error {
	if stream.Failed {
		return nil
	}
	return step.fn(stream, ev, step.params, cfg)
}
