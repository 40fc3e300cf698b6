package windowing

import (
	"github.com/GeoNet/gm-engine/internal/config"
	"github.com/GeoNet/gm-engine/internal/waveform"
)

// WindowChecks fails the trace if its noise or signal window is
// shorter than the configured floors.
func WindowChecks(tr *waveform.Trace, cfg *config.Config) error {
	if !cfg.Windows.WindowChecks.Enabled {
		return nil
	}

	sp, ok := tr.Parameters.Get(waveform.ParamSignalSplit)
	if !ok {
		tr.Fail(waveform.MissingPrereqFailure("windowing.window_checks", waveform.ParamSignalSplit))
		return nil
	}
	ep, ok := tr.Parameters.Get(waveform.ParamSignalEnd)
	if !ok {
		tr.Fail(waveform.MissingPrereqFailure("windowing.window_checks", waveform.ParamSignalEnd))
		return nil
	}

	splitSec := sp.(waveform.SignalSplitParam).Time
	endSec := ep.(waveform.SignalEndParam).Time

	noiseDuration := splitSec
	signalDuration := endSec - splitSec

	if noiseDuration < cfg.Windows.WindowChecks.MinNoiseDuration {
		tr.Fail(waveform.QAFailure("windowing.window_checks", "noise duration below floor", noiseDuration))
		return nil
	}
	if signalDuration < cfg.Windows.WindowChecks.MinSignalDuration {
		tr.Fail(waveform.QAFailure("windowing.window_checks", "signal duration below floor", signalDuration))
		return nil
	}
	return nil
}
