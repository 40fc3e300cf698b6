package windowing

import (
	"github.com/GeoNet/gm-engine/internal/waveform"
)

// Cut trims tr in place to [split-secBeforeSplit, signal_end] and
// appends a "cut" provenance entry.
//
// Open Question: when split falls at or before the
// record start, there is nothing to subtract secBeforeSplit from. This
// implementation clamps the requested pre-split padding to zero rather
// than substituting a default value, since clamping is lossless and
// windowing.WindowChecks independently enforces the minimum noise
// duration — see DESIGN.md.
func Cut(tr *waveform.Trace, secBeforeSplit float64) error {
	split, end, ok := splitAndEndTimes(tr)
	if !ok {
		tr.Fail(waveform.MissingPrereqFailure("windowing.cut", waveform.ParamSignalSplit))
		return nil
	}

	startOffset := split.Sub(tr.StartTime).Seconds() - secBeforeSplit
	if startOffset < 0 {
		startOffset = 0
	}
	endOffset := end.Sub(tr.StartTime).Seconds()
	if endOffset <= startOffset {
		tr.Fail(waveform.ProcessingFailure("windowing.cut", "signal_end at or before cut start"))
		return nil
	}

	startIdx := tr.SampleIndex(startOffset)
	endIdx := tr.SampleIndex(endOffset)
	if endIdx <= startIdx {
		tr.Fail(waveform.ProcessingFailure("windowing.cut", "cut window collapses to zero samples"))
		return nil
	}

	newStart := tr.TimeAt(startIdx)
	tr.Data = append([]float64(nil), tr.Data[startIdx:endIdx+1]...)
	tr.StartTime = newStart

	tr.AddProvenance("cut", "windowing.cut", map[string]any{
		"start_index": startIdx,
		"end_index":   endIdx,
		"sec_before_split": secBeforeSplit,
	})
	return nil
}
