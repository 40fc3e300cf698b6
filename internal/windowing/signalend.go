package windowing

import (
	"time"

	"github.com/GeoNet/gm-engine/internal/config"
	"github.com/GeoNet/gm-engine/internal/dsp"
	"github.com/GeoNet/gm-engine/internal/event"
	"github.com/GeoNet/gm-engine/internal/geodesy"
	"github.com/GeoNet/gm-engine/internal/waveform"
)

// DurationModel estimates shaking duration Ds(mag, dist) and its
// standard deviation sigma(mag, dist), used by the "model" signal-end
// method. Implementations are supplied by the program that wires the
// engine (cmd/gm-enginectl passes a placeholder model to Configure);
// this package only consumes the interface.
type DurationModel interface {
	Duration(magnitude, distanceKM float64) (ds, sigma float64)
}

// SignalEnd computes and sets the signal-end parameter on tr per the
// method selected by cfg.Windows.SignalEnd (possibly overridden by
// tectonic regime via config.SignalEndMethodFor).
func SignalEnd(tr *waveform.Trace, ev *event.ScalarEvent, cfg *config.Config, regime string, model DurationModel) error {
	method, _ := cfg.SignalEndMethodFor(regime)

	split, ok := tr.Parameters.Get(waveform.ParamSignalSplit)
	if !ok {
		tr.Fail(waveform.MissingPrereqFailure("windowing.signal_end", waveform.ParamSignalSplit))
		return nil
	}
	splitSec := split.(waveform.SignalSplitParam).Time

	var endSec float64
	switch method {
	case "model":
		if ev == nil || model == nil {
			tr.Fail(waveform.MissingPrereqFailure("windowing.signal_end", "event/duration_model"))
			return nil
		}
		distKM, err := geodesy.EpicentralDistanceKM(ev.Latitude, ev.Longitude, tr.Coordinates.Latitude, tr.Coordinates.Longitude)
		if err != nil {
			tr.Fail(waveform.ProcessingFailure("windowing.signal_end", err.Error()))
			return nil
		}
		ds, sigma := model.Duration(ev.Magnitude, distKM)
		endSec = splitSec + ds + cfg.Windows.SignalEnd.Epsilon*sigma

	case "source_path":
		if ev == nil {
			tr.Fail(waveform.MissingPrereqFailure("windowing.signal_end", "event"))
			return nil
		}
		distKM, err := geodesy.EpicentralDistanceKM(ev.Latitude, ev.Longitude, tr.Coordinates.Latitude, tr.Coordinates.Longitude)
		if err != nil {
			tr.Fail(waveform.ProcessingFailure("windowing.signal_end", err.Error()))
			return nil
		}
		fc := dsp.BruneCornerFrequency(ev.Magnitude, cfg.Windows.SignalEnd.StressDrop, 3.7)
		if fc <= 0 {
			tr.Fail(waveform.ProcessingFailure("windowing.signal_end", "non-positive corner frequency"))
			return nil
		}
		endSec = splitSec + 1/fc + cfg.Windows.SignalEnd.Dur0 + cfg.Windows.SignalEnd.Dur1*distKM

	case "velocity":
		if ev == nil {
			tr.Fail(waveform.MissingPrereqFailure("windowing.signal_end", "event"))
			return nil
		}
		distKM, err := geodesy.EpicentralDistanceKM(ev.Latitude, ev.Longitude, tr.Coordinates.Latitude, tr.Coordinates.Longitude)
		if err != nil {
			tr.Fail(waveform.ProcessingFailure("windowing.signal_end", err.Error()))
			return nil
		}
		originSec := ev.OriginTime.Sub(tr.StartTime).Seconds()
		byVel := distKM / cfg.Windows.SignalEnd.Vmin
		if byVel < cfg.Windows.SignalEnd.Floor {
			byVel = cfg.Windows.SignalEnd.Floor
		}
		endSec = originSec + byVel

	case "magnitude":
		if ev == nil {
			tr.Fail(waveform.MissingPrereqFailure("windowing.signal_end", "event"))
			return nil
		}
		originSec := ev.OriginTime.Sub(tr.StartTime).Seconds()
		endSec = originSec + ev.Magnitude/2*60

	case "none", "":
		endSec = tr.Duration()

	default:
		tr.Fail(waveform.ProcessingFailure("windowing.signal_end", "unknown signal_end method "+method))
		return nil
	}

	if endSec > tr.Duration() {
		endSec = tr.Duration()
	}

	tr.Parameters.Set(waveform.ParamSignalEnd, waveform.SignalEndParam{Time: endSec, Method: method})
	tr.AddProvenance("signal_end", "windowing.signal_end", map[string]any{"time_sec": endSec, "method": method})
	return nil
}

// splitAndEndTimes resolves the stored split/signal-end parameters
// back to absolute time.Time values for Cut.
func splitAndEndTimes(tr *waveform.Trace) (split, end time.Time, ok bool) {
	sp, hasSplit := tr.Parameters.Get(waveform.ParamSignalSplit)
	ep, hasEnd := tr.Parameters.Get(waveform.ParamSignalEnd)
	if !hasSplit || !hasEnd {
		return time.Time{}, time.Time{}, false
	}
	splitSec := sp.(waveform.SignalSplitParam).Time
	endSec := ep.(waveform.SignalEndParam).Time
	return tr.StartTime.Add(time.Duration(splitSec * float64(time.Second))),
		tr.StartTime.Add(time.Duration(endSec * float64(time.Second))), true
}
