package qa

import (
	"github.com/GeoNet/gm-engine/internal/config"
	"github.com/GeoNet/gm-engine/internal/event"
	"github.com/GeoNet/gm-engine/internal/waveform"
)

// CheckFreeField fails the stream if any trace's format metadata marks
// it non-free-field.
func CheckFreeField(stream *waveform.Stream, ev *event.ScalarEvent, params map[string]any, cfg *config.Config) error {
	if stream.Failed {
		return nil
	}
	for _, tr := range stream.Traces {
		if !isFreeField(tr) {
			stream.Fail(waveform.KindQACheckFail, "check_free_field", "trace is not sited free-field")
			return nil
		}
	}
	return nil
}

// CheckInstrument fails the stream if its trace count is outside
// [n_min, n_max], or require_two_horiz is set and two orthogonal
// horizontal traces aren't present.
func CheckInstrument(stream *waveform.Stream, ev *event.ScalarEvent, params map[string]any, cfg *config.Config) error {
	if stream.Failed {
		return nil
	}
	nMin := intParam(params, "n_min", 1)
	nMax := intParam(params, "n_max", 3)
	n := len(stream.Traces)
	if n < nMin || n > nMax {
		stream.Fail(waveform.KindQACheckFail, "check_instrument", "trace count outside allowed range")
		return nil
	}
	if boolParam(params, "require_two_horiz", false) && len(stream.HorizontalTraces()) < 2 {
		stream.Fail(waveform.KindQACheckFail, "check_instrument", "fewer than two horizontal components present")
	}
	return nil
}

// CheckMaxAmplitude fails the stream if any trace's peak absolute
// sample is outside [min, max]. Only meaningful on raw-count data.
func CheckMaxAmplitude(stream *waveform.Stream, ev *event.ScalarEvent, params map[string]any, cfg *config.Config) error {
	if stream.Failed {
		return nil
	}
	min := floatParam(params, "min", 0)
	max := floatParam(params, "max", 1e9)
	for _, tr := range stream.Traces {
		if tr.Failed {
			continue
		}
		peak := maxAbs(tr.Data)
		if peak < min || peak > max {
			stream.Fail(waveform.KindQACheckFail, "check_max_amplitude", "peak amplitude outside allowed range")
			return nil
		}
	}
	return nil
}

// CheckSTALTA fails the stream if the maximum STA/LTA ratio on any
// trace falls below threshold.
func CheckSTALTA(stream *waveform.Stream, ev *event.ScalarEvent, params map[string]any, cfg *config.Config) error {
	if stream.Failed {
		return nil
	}
	staSec := floatParam(params, "sta_length", 1.0)
	ltaSec := floatParam(params, "lta_length", 30.0)
	threshold := floatParam(params, "threshold", 3.0)
	for _, tr := range stream.Traces {
		if tr.Failed {
			continue
		}
		if maxSTALTA(tr.Data, tr.Delta, staSec, ltaSec) < threshold {
			stream.Fail(waveform.KindQACheckFail, "check_sta_lta", "maximum STA/LTA ratio below threshold")
			return nil
		}
	}
	return nil
}

// CheckZeroCrossings fails the stream if any trace's zero-crossing
// rate is below min_crossings per second.
func CheckZeroCrossings(stream *waveform.Stream, ev *event.ScalarEvent, params map[string]any, cfg *config.Config) error {
	if stream.Failed {
		return nil
	}
	minCrossings := floatParam(params, "min_crossings", 0.1)
	for _, tr := range stream.Traces {
		if tr.Failed {
			continue
		}
		if zeroCrossingsPerSecond(tr.Data, tr.Delta) < minCrossings {
			stream.Fail(waveform.KindQACheckFail, "check_zero_crossings", "zero-crossing rate below minimum")
			return nil
		}
	}
	return nil
}

// CheckTail fails the stream if the tail segment (the last duration
// seconds) carries a disproportionate share of the trace's peak
// velocity or displacement, which usually indicates an unfiltered
// baseline offset or a truncated record.
func CheckTail(stream *waveform.Stream, ev *event.ScalarEvent, params map[string]any, cfg *config.Config) error {
	if stream.Failed {
		return nil
	}
	tailSec := floatParam(params, "duration", 5.0)
	maxVelRatio := floatParam(params, "max_vel_ratio", 0.2)
	maxDisRatio := floatParam(params, "max_dis_ratio", 0.2)

	for _, tr := range stream.Traces {
		if tr.Failed {
			continue
		}
		vel := trapezoidalIntegrate(tr.Data, tr.Delta)
		dis := trapezoidalIntegrate(vel, tr.Delta)

		velPeak, disPeak := maxAbs(vel), maxAbs(dis)
		if velPeak == 0 || disPeak == 0 {
			continue
		}
		velTailRatio := maxAbsInTail(vel, tr.Delta, tailSec) / velPeak
		disTailRatio := maxAbsInTail(dis, tr.Delta, tailSec) / disPeak
		if velTailRatio > maxVelRatio || disTailRatio > maxDisRatio {
			stream.Fail(waveform.KindQACheckFail, "check_tail", "tail velocity or displacement ratio exceeds maximum")
			return nil
		}
	}
	return nil
}

// MinSampleRate fails the stream if any trace's sampling rate is below
// min_sps.
func MinSampleRate(stream *waveform.Stream, ev *event.ScalarEvent, params map[string]any, cfg *config.Config) error {
	if stream.Failed {
		return nil
	}
	minSPS := floatParam(params, "min_sps", 1.0)
	for _, tr := range stream.Traces {
		if tr.SamplingRate() < minSPS {
			stream.Fail(waveform.KindQACheckFail, "min_sample_rate", "sampling rate below minimum")
			return nil
		}
	}
	return nil
}

// MaxTraces fails the stream if it carries more than n_max traces.
func MaxTraces(stream *waveform.Stream, ev *event.ScalarEvent, params map[string]any, cfg *config.Config) error {
	if stream.Failed {
		return nil
	}
	nMax := intParam(params, "n_max", 3)
	if len(stream.Traces) > nMax {
		stream.Fail(waveform.KindQACheckFail, "max_traces", "trace count exceeds maximum")
	}
	return nil
}

// TrimMultipleEvents inspects the catalogue parameter (a []*event.ScalarEvent
// of other nearby events) for P-arrivals that land inside this
// stream's signal window. An arrival within the first
// pct_window_reject fraction of the signal duration rejects the whole
// stream; any later qualifying arrival instead trims the signal end
// back to just before it.
func TrimMultipleEvents(stream *waveform.Stream, ev *event.ScalarEvent, params map[string]any, cfg *config.Config) error {
	if stream.Failed {
		return nil
	}
	catalogue, ok := params["catalogue"].([]*event.ScalarEvent)
	if !ok || len(catalogue) == 0 {
		return nil
	}
	pctWindowReject := floatParam(params, "pct_window_reject", 0.2)

	for _, tr := range stream.Traces {
		if tr.Failed {
			continue
		}
		splitSec, endSec, ok := splitAndEnd(tr)
		if !ok {
			continue
		}
		signalDuration := endSec - splitSec
		if signalDuration <= 0 {
			continue
		}

		var earliest float64
		found := false
		for _, other := range catalogue {
			if other.ID == ev.ID {
				continue
			}
			arrivalSec, ok := arrivalTimeFor(tr, other)
			if !ok || arrivalSec <= splitSec || arrivalSec >= endSec {
				continue
			}
			if !found || arrivalSec < earliest {
				earliest, found = arrivalSec, true
			}
		}
		if !found {
			continue
		}

		if earliest-splitSec < pctWindowReject*signalDuration {
			stream.Fail(waveform.KindQACheckFail, "trim_multiple_events", "another event's arrival falls within the reject window")
			return nil
		}

		newEndSec := earliest - tr.Delta
		tr.Parameters.Set(waveform.ParamSignalEnd, waveform.SignalEndParam{Time: newEndSec, Method: "trim_multiple_events"})
		tr.AddProvenance("trim_multiple_events", "qa.trim_multiple_events", map[string]any{"trimmed_to": newEndSec})
	}
	return nil
}

func splitAndEnd(tr *waveform.Trace) (splitSec, endSec float64, ok bool) {
	sp, okSplit := tr.Parameters.Get(waveform.ParamSignalSplit)
	ep, okEnd := tr.Parameters.Get(waveform.ParamSignalEnd)
	if !okSplit || !okEnd {
		return 0, 0, false
	}
	return sp.(waveform.SignalSplitParam).Time, ep.(waveform.SignalEndParam).Time, true
}
