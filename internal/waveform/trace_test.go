package waveform_test

import (
	"math"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/GeoNet/gm-engine/internal/waveform"
)

// l returns the line of code it was called from.
func l() (loc string) {
	_, _, ln, _ := runtime.Caller(1)
	return "L" + strconv.Itoa(ln)
}

func TestNewTraceInvariants(t *testing.T) {
	id := waveform.TraceID{Network: "NZ", Station: "WEL", Location: "10", Channel: "HN1"}
	start := time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC)

	in := []struct {
		i     string
		delta float64
		data  []float64
		ok    bool
	}{
		{i: l(), delta: 0.01, data: []float64{1, 2, 3}, ok: true},
		{i: l(), delta: 0, data: []float64{1, 2, 3}, ok: false},
		{i: l(), delta: -0.01, data: []float64{1, 2, 3}, ok: false},
		{i: l(), delta: 0.01, data: nil, ok: false},
	}

	for _, v := range in {
		tr, err := waveform.NewTrace(id, start, v.delta, v.data)
		if v.ok && err != nil {
			t.Errorf("%s: unexpected error: %v", v.i, err)
		}
		if !v.ok && err == nil {
			t.Errorf("%s: expected error, got none", v.i)
		}
		if v.ok && tr.NumSamples() != len(v.data) {
			t.Errorf("%s: NumSamples() = %d, want %d", v.i, tr.NumSamples(), len(v.data))
		}
	}
}

func TestTraceFailIsIdempotent(t *testing.T) {
	id := waveform.TraceID{Network: "NZ", Station: "WEL", Location: "10", Channel: "HN1"}
	tr, err := waveform.NewTrace(id, time.Now(), 0.01, []float64{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}

	first := waveform.DataFailure("detrend", "non-finite sample")
	tr.Fail(first)
	tr.Fail(waveform.ProcessingFailure("filter", "unstable filter"))

	if !tr.Failed {
		t.Fatal("expected trace to be failed")
	}
	if tr.FailureReason.Text != first.Text {
		t.Errorf("expected first failure reason to stick, got %q", tr.FailureReason.Text)
	}
}

func TestIsAccelerometer(t *testing.T) {
	in := []struct {
		i       string
		channel string
		want    bool
	}{
		{i: l(), channel: "HNZ", want: true},
		{i: l(), channel: "HHZ", want: false},
		{i: l(), channel: "BNE", want: true},
		{i: l(), channel: "N", want: false},
	}

	for _, v := range in {
		tr := &waveform.Trace{ID: waveform.TraceID{Channel: v.channel}}
		if got := tr.IsAccelerometer(); got != v.want {
			t.Errorf("%s: IsAccelerometer(%q) = %v, want %v", v.i, v.channel, got, v.want)
		}
	}
}

func TestSampleIndexClamps(t *testing.T) {
	id := waveform.TraceID{Network: "NZ", Station: "WEL", Location: "10", Channel: "HN1"}
	tr, err := waveform.NewTrace(id, time.Now(), 0.01, make([]float64, 100))
	if err != nil {
		t.Fatal(err)
	}

	if i := tr.SampleIndex(-1); i != 0 {
		t.Errorf("expected clamp to 0, got %d", i)
	}
	if i := tr.SampleIndex(1000); i != 99 {
		t.Errorf("expected clamp to 99, got %d", i)
	}
	if i := tr.SampleIndex(0.5); i != 50 {
		t.Errorf("expected 50, got %d", i)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	id := waveform.TraceID{Network: "NZ", Station: "WEL", Location: "10", Channel: "HN1"}
	tr, err := waveform.NewTrace(id, time.Now(), 0.01, []float64{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	tr.Parameters.Set(waveform.ParamSignalSplit, waveform.SignalSplitParam{Time: 1.5})

	c := tr.Clone()
	c.Data[0] = 99
	c.Parameters.Set(waveform.ParamSignalSplit, waveform.SignalSplitParam{Time: 9})

	if tr.Data[0] == 99 {
		t.Error("clone mutation leaked into original samples")
	}
	p, _ := tr.Parameters.Get(waveform.ParamSignalSplit)
	if p.(waveform.SignalSplitParam).Time == 9 {
		t.Error("clone mutation leaked into original parameter map")
	}
	if math.Abs(c.Delta-tr.Delta) > 1e-12 {
		t.Error("clone should preserve delta")
	}
}
