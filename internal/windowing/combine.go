// Package windowing implements the noise/signal split, signal-end,
// window-duration checks, and the final trim of each trace,
// registering its steps with internal/pipeline.
package windowing

import (
	"fmt"
	"sort"
	"time"

	"github.com/GeoNet/kit/slogger"

	"github.com/GeoNet/gm-engine/internal/config"
	"github.com/GeoNet/gm-engine/internal/event"
	"github.com/GeoNet/gm-engine/internal/picker"
	"github.com/GeoNet/gm-engine/internal/waveform"
)

// disagreementLogger rate-limits the pick_travel_time_warning warning:
// many traces triggering it in the same run collapse into one
// "repeated N times" summary rather than flooding the log.
var disagreementLogger = slogger.NewSmartLogger(10*time.Second, "windowing: picker disagreement beyond pick_travel_time_warning")

// CombinePicks aggregates candidate picks from several pickers by
// median, keeping only those within window seconds of the travel-time
// estimate. If no candidate survives, the travel-time estimate itself
// is returned; it returns ok=false ("no_valid_pick") only when there is
// neither a surviving candidate nor a travel-time estimate.
//
// If params["travel_time_warning"] is positive and a candidate
// disagrees with the travel-time reference by more than that many
// seconds, a rate-limited warning is logged; the median is still
// returned unchanged.
func CombinePicks(tr *waveform.Trace, ev *event.ScalarEvent, pickers []picker.Picker, travelTime picker.Picker, window float64, params map[string]any) (time.Time, bool) {
	ref, haveRef := travelTime.Pick(tr, ev, params)

	var candidates []time.Time
	for _, p := range pickers {
		pt, ok := p.Pick(tr, ev, params)
		if !ok {
			continue
		}
		if haveRef && absSeconds(pt.Sub(ref)) > window {
			continue
		}
		candidates = append(candidates, pt)
	}

	if haveRef {
		warnOnDisagreement(tr, ref, candidates, params)
	}

	if len(candidates) == 0 {
		if haveRef {
			return ref, true
		}
		return time.Time{}, false
	}

	return median(candidates), true
}

// warnOnDisagreement logs once (rate-limited) per call where any
// surviving candidate's offset from the travel-time reference exceeds
// params["travel_time_warning"].
func warnOnDisagreement(tr *waveform.Trace, ref time.Time, candidates []time.Time, params map[string]any) {
	threshold, ok := params["travel_time_warning"].(float64)
	if !ok || threshold <= 0 {
		return
	}
	for _, c := range candidates {
		if d := absSeconds(c.Sub(ref)); d > threshold {
			disagreementLogger.Log(fmt.Sprintf(
				"windowing: picker disagreement beyond pick_travel_time_warning on %s: %.2fs from travel-time reference (threshold %.2fs)",
				tr.ID.String(), d, threshold))
			return
		}
	}
}

func absSeconds(d time.Duration) float64 {
	s := d.Seconds()
	if s < 0 {
		return -s
	}
	return s
}

func median(times []time.Time) time.Time {
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	n := len(times)
	if n%2 == 1 {
		return times[n/2]
	}
	lo, hi := times[n/2-1], times[n/2]
	mid := lo.Add(hi.Sub(lo) / 2)
	return mid
}

// PickSplit computes and sets the per-trace signal-split parameter.
// windows.no_noise sets the split to the record start without
// invoking any picker.
func PickSplit(tr *waveform.Trace, ev *event.ScalarEvent, cfg *config.Config, pickers []picker.Picker, travelTime picker.Picker) error {
	if cfg.Windows.NoNoise {
		tr.Parameters.Set(waveform.ParamSignalSplit, waveform.SignalSplitParam{Time: 0, Method: "no_noise"})
		return nil
	}

	params := map[string]any{
		"sta_window":          cfg.Pickers.Window,
		"travel_time_warning": cfg.Pickers.PickTravelTimeWarning,
	}
	pt, ok := CombinePicks(tr, ev, pickers, travelTime, cfg.Pickers.Window, params)
	if !ok {
		tr.Fail(waveform.DataFailure("windowing.split", "no_valid_pick"))
		return nil
	}

	if cfg.Pickers.PArrivalShift != 0 {
		pt = pt.Add(time.Duration(cfg.Pickers.PArrivalShift * float64(time.Second)))
	}

	splitSec := pt.Sub(tr.StartTime).Seconds()
	tr.Parameters.Set(waveform.ParamSignalSplit, waveform.SignalSplitParam{Time: splitSec, Method: cfg.Pickers.Combine})
	tr.AddProvenance("signal_split", "windowing.split", map[string]any{"time_sec": splitSec, "method": cfg.Pickers.Combine})
	return nil
}
