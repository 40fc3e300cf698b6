package qa

import (
	"math"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/GeoNet/gm-engine/internal/event"
	"github.com/GeoNet/gm-engine/internal/registry"
	"github.com/GeoNet/gm-engine/internal/waveform"
)

func l() (loc string) {
	_, _, l, _ := runtime.Caller(1)
	return "L" + strconv.Itoa(l)
}

func mkTrace(t *testing.T, channel string, dip float64, data []float64, dt float64) *waveform.Trace {
	t.Helper()
	tr, err := waveform.NewTrace(waveform.TraceID{Network: "NZ", Station: "ABC", Location: "10", Channel: channel}, time.Unix(0, 0).UTC(), dt, data)
	if err != nil {
		t.Fatalf("%s: NewTrace: %v", l(), err)
	}
	tr.Orientation.Dip = dip
	return tr
}

func mkStream(t *testing.T, traces ...*waveform.Trace) *waveform.Stream {
	t.Helper()
	s, err := waveform.NewStream(traces)
	if err != nil {
		t.Fatalf("%s: NewStream: %v", l(), err)
	}
	return s
}

func TestCheckInstrumentFailsOnTooFewTraces(t *testing.T) {
	s := mkStream(t, mkTrace(t, "HNZ", -90, []float64{1, 2, 3}, 0.01))
	if err := CheckInstrument(s, nil, map[string]any{"n_min": 2.0, "n_max": 3.0}, nil); err != nil {
		t.Fatalf("%s: %v", l(), err)
	}
	if !s.Failed {
		t.Fatalf("%s: expected stream to fail with too few traces", l())
	}
}

func TestCheckInstrumentRequiresTwoHoriz(t *testing.T) {
	s := mkStream(t,
		mkTrace(t, "HNZ", -90, []float64{1, 2, 3}, 0.01),
		mkTrace(t, "HNE", 0, []float64{1, 2, 3}, 0.01),
	)
	if err := CheckInstrument(s, nil, map[string]any{"n_min": 1.0, "n_max": 3.0, "require_two_horiz": true}, nil); err != nil {
		t.Fatalf("%s: %v", l(), err)
	}
	if !s.Failed {
		t.Fatalf("%s: expected stream to fail needing two horizontals", l())
	}
}

func TestCheckMaxAmplitudeFailsOutsideRange(t *testing.T) {
	s := mkStream(t, mkTrace(t, "HNZ", -90, []float64{1, 2, 500, 2, 1}, 0.01))
	if err := CheckMaxAmplitude(s, nil, map[string]any{"min": 0.0, "max": 100.0}, nil); err != nil {
		t.Fatalf("%s: %v", l(), err)
	}
	if !s.Failed {
		t.Fatalf("%s: expected stream to fail, peak amplitude 500 exceeds max 100", l())
	}
}

func TestCheckMaxAmplitudePassesWithinRange(t *testing.T) {
	s := mkStream(t, mkTrace(t, "HNZ", -90, []float64{1, 2, 50, 2, 1}, 0.01))
	if err := CheckMaxAmplitude(s, nil, map[string]any{"min": 0.0, "max": 100.0}, nil); err != nil {
		t.Fatalf("%s: %v", l(), err)
	}
	if s.Failed {
		t.Fatalf("%s: unexpected failure", l())
	}
}

func TestMaxSTALTADetectsOnset(t *testing.T) {
	n := 6000
	data := make([]float64, n)
	for i := range data {
		if i > n/2 {
			data[i] = 10.0
		} else {
			data[i] = 0.01
		}
	}
	ratio := maxSTALTA(data, 0.01, 1.0, 30.0)
	if ratio < 10 {
		t.Errorf("%s: expected a large STA/LTA ratio at the onset, got %v", l(), ratio)
	}
}

func TestCheckSTALTAFailsOnFlatNoise(t *testing.T) {
	n := 6000
	data := make([]float64, n)
	for i := range data {
		data[i] = 0.001 * math.Sin(float64(i))
	}
	s := mkStream(t, mkTrace(t, "HNZ", -90, data, 0.01))
	if err := CheckSTALTA(s, nil, map[string]any{"sta_length": 1.0, "lta_length": 30.0, "threshold": 3.0}, nil); err != nil {
		t.Fatalf("%s: %v", l(), err)
	}
	if !s.Failed {
		t.Fatalf("%s: expected stream to fail on flat noise", l())
	}
}

func TestZeroCrossingsPerSecondCountsSignChanges(t *testing.T) {
	dt := 0.01
	n := 1000
	data := make([]float64, n)
	for i := range data {
		data[i] = math.Sin(2 * math.Pi * 1.0 * float64(i) * dt) // 1Hz -> 2 crossings/sec
	}
	rate := zeroCrossingsPerSecond(data, dt)
	if math.Abs(rate-2) > 0.5 {
		t.Errorf("%s: zero-crossing rate = %v, want ~2", l(), rate)
	}
}

func TestCheckTailFailsOnUndecayedTail(t *testing.T) {
	n := 2000
	dt := 0.01
	data := make([]float64, n)
	for i := range data {
		data[i] = 1.0 // constant acceleration never decays, so velocity/displacement both peak in the tail
	}
	s := mkStream(t, mkTrace(t, "HNZ", -90, data, dt))
	if err := CheckTail(s, nil, map[string]any{"duration": 5.0, "max_vel_ratio": 0.2, "max_dis_ratio": 0.2}, nil); err != nil {
		t.Fatalf("%s: %v", l(), err)
	}
	if !s.Failed {
		t.Fatalf("%s: expected stream to fail with an undecayed tail", l())
	}
}

func TestMinSampleRateFailsBelowThreshold(t *testing.T) {
	s := mkStream(t, mkTrace(t, "HNZ", -90, make([]float64, 100), 1.0)) // 1 sps
	if err := MinSampleRate(s, nil, map[string]any{"min_sps": 10.0}, nil); err != nil {
		t.Fatalf("%s: %v", l(), err)
	}
	if !s.Failed {
		t.Fatalf("%s: expected stream to fail on low sample rate", l())
	}
}

func TestMaxTracesFailsWhenExceeded(t *testing.T) {
	s := mkStream(t,
		mkTrace(t, "HNZ", -90, []float64{1, 2}, 0.01),
		mkTrace(t, "HNE", 0, []float64{1, 2}, 0.01),
		mkTrace(t, "HNN", 0, []float64{1, 2}, 0.01),
	)
	if err := MaxTraces(s, nil, map[string]any{"n_max": 2.0}, nil); err != nil {
		t.Fatalf("%s: %v", l(), err)
	}
	if !s.Failed {
		t.Fatalf("%s: expected stream to fail with more than n_max traces", l())
	}
}

func TestCheckClippingFlagsFlatToppedSignal(t *testing.T) {
	n := 2000
	data := make([]float64, n)
	for i := range data {
		v := 100 * math.Sin(2*math.Pi*2*float64(i)*0.01)
		if v > 80 {
			v = 80
		}
		if v < -80 {
			v = -80
		}
		data[i] = v
	}
	s := mkStream(t, mkTrace(t, "HNE", 0, data, 0.01))
	if err := CheckClipping(s, nil, map[string]any{"threshold": 0.5}, nil); err != nil {
		t.Fatalf("%s: %v", l(), err)
	}
	if !s.Failed {
		t.Fatalf("%s: expected a heavily flat-topped signal to be flagged as clipped", l())
	}
}

func TestCheckClippingPassesCleanSinusoid(t *testing.T) {
	n := 2000
	data := make([]float64, n)
	for i := range data {
		data[i] = math.Sin(2 * math.Pi * 2 * float64(i) * 0.01)
	}
	s := mkStream(t, mkTrace(t, "HNE", 0, data, 0.01))
	if err := CheckClipping(s, nil, map[string]any{"threshold": 0.5}, nil); err != nil {
		t.Fatalf("%s: %v", l(), err)
	}
	if s.Failed {
		t.Fatalf("%s: unexpected clipping failure on a clean sinusoid", l())
	}
}

func TestTrimMultipleEventsRejectsEarlyArrival(t *testing.T) {
	reg := registry.New(
		func(name string) (registry.TravelTimeModel, error) {
			return registry.TravelTimeModel{Name: name, DistanceKM: []float64{0, 1000}, TravelTimeSec: []float64{0, 1000}}, nil // 1 km/s
		},
		func(freqs []float64, b float64) ([]float64, error) { return nil, nil },
	)
	Configure(reg, "iasp91")
	defer Configure(nil, "")

	tr := mkTrace(t, "HNZ", -90, make([]float64, 10000), 0.01) // 100s record
	tr.Coordinates = waveform.Coordinates{Latitude: 0, Longitude: 0}
	tr.Parameters.Set(waveform.ParamSignalSplit, waveform.SignalSplitParam{Time: 10, Method: "p_pick"})
	tr.Parameters.Set(waveform.ParamSignalEnd, waveform.SignalEndParam{Time: 90, Method: "model"})
	s := mkStream(t, tr)

	primary := &event.ScalarEvent{ID: "primary", OriginTime: time.Unix(0, 0).UTC(), Latitude: 0, Longitude: 0}
	other := &event.ScalarEvent{ID: "other", OriginTime: time.Unix(0, 0).UTC().Add(12 * time.Second), Latitude: 0, Longitude: 0} // arrives at 12s, well within reject window

	err := TrimMultipleEvents(s, primary, map[string]any{
		"catalogue":         []*event.ScalarEvent{other},
		"pct_window_reject": 0.2,
	}, nil)
	if err != nil {
		t.Fatalf("%s: %v", l(), err)
	}
	if !s.Failed {
		t.Fatalf("%s: expected stream to fail on an early co-located arrival", l())
	}
}

func TestTrimMultipleEventsTrimsLateArrival(t *testing.T) {
	reg := registry.New(
		func(name string) (registry.TravelTimeModel, error) {
			return registry.TravelTimeModel{Name: name, DistanceKM: []float64{0, 1000}, TravelTimeSec: []float64{0, 1000}}, nil
		},
		func(freqs []float64, b float64) ([]float64, error) { return nil, nil },
	)
	Configure(reg, "iasp91")
	defer Configure(nil, "")

	tr := mkTrace(t, "HNZ", -90, make([]float64, 10000), 0.01)
	tr.Coordinates = waveform.Coordinates{Latitude: 0, Longitude: 0}
	tr.Parameters.Set(waveform.ParamSignalSplit, waveform.SignalSplitParam{Time: 10, Method: "p_pick"})
	tr.Parameters.Set(waveform.ParamSignalEnd, waveform.SignalEndParam{Time: 90, Method: "model"})
	s := mkStream(t, tr)

	primary := &event.ScalarEvent{ID: "primary", OriginTime: time.Unix(0, 0).UTC(), Latitude: 0, Longitude: 0}
	other := &event.ScalarEvent{ID: "other", OriginTime: time.Unix(0, 0).UTC().Add(70 * time.Second), Latitude: 0, Longitude: 0} // arrives at 70s, well after the reject window

	err := TrimMultipleEvents(s, primary, map[string]any{
		"catalogue":         []*event.ScalarEvent{other},
		"pct_window_reject": 0.2,
	}, nil)
	if err != nil {
		t.Fatalf("%s: %v", l(), err)
	}
	if s.Failed {
		t.Fatalf("%s: unexpected failure trimming a late arrival", l())
	}
	ep, ok := tr.Parameters.Get(waveform.ParamSignalEnd)
	if !ok {
		t.Fatalf("%s: expected signal-end parameter to be set", l())
	}
	if got := ep.(waveform.SignalEndParam).Time; got >= 70 {
		t.Errorf("%s: signal end = %v, want trimmed before 70s", l(), got)
	}
}
