package response

import (
	"math"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/GeoNet/gm-engine/internal/waveform"
)

func l() (loc string) {
	_, _, l, _ := runtime.Caller(1)
	return "L" + strconv.Itoa(l)
}

func mkTrace(t *testing.T, channel string, data []float64, dt float64) *waveform.Trace {
	t.Helper()
	tr, err := waveform.NewTrace(waveform.TraceID{Network: "NZ", Station: "ABC", Location: "10", Channel: channel}, time.Unix(0, 0).UTC(), dt, data)
	if err != nil {
		t.Fatalf("%s: NewTrace: %v", l(), err)
	}
	return tr
}

func TestDetectInstrumentType(t *testing.T) {
	cases := map[string]InstrumentType{
		"HNZ": Accelerometer,
		"BNE": Accelerometer,
		"HHZ": Seismometer,
		"BHN": Seismometer,
	}
	for channel, want := range cases {
		if got := DetectInstrumentType(channel); got != want {
			t.Errorf("%s: DetectInstrumentType(%q) = %v, want %v", l(), channel, got, want)
		}
	}
}

func wideOpenPreFilt() [4]float64 {
	return [4]float64{0, 0, 1000, 1000}
}

func TestRemoveWithConstantGainStageScalesData(t *testing.T) {
	n := 256
	dt := 0.01
	data := make([]float64, n)
	for i := range data {
		data[i] = math.Sin(2 * math.Pi * 2 * float64(i) * dt)
	}
	tr := mkTrace(t, "HNZ", append([]float64(nil), data...), dt)

	const gain = 500.0
	tr.Response = waveform.InstrumentResponse{
		Stages: []waveform.ResponseStage{
			{Gain: gain, InputUnits: "counts", OutputUnits: "m/s**2"},
		},
		Sensitivity:      gain,
		SensitivityUnits: "m/s**2",
		HasStages:        true,
		HasSensitivity:   true,
	}

	err := Remove(tr, Params{GainTolerance: 0.1, WaterLevel: 60, PreFilt: wideOpenPreFilt()})
	if err != nil {
		t.Fatalf("%s: %v", l(), err)
	}
	if tr.Failed {
		t.Fatalf("%s: unexpected failure %v", l(), tr.FailureReason)
	}

	for i := range data {
		want := data[i] / gain * cmPerM
		if math.Abs(tr.Data[i]-want) > 1e-6 {
			t.Fatalf("%s: sample %d = %v, want %v", l(), i, tr.Data[i], want)
		}
	}
	if tr.Standard.UnitsType != waveform.UnitsAcceleration {
		t.Errorf("%s: UnitsType = %v, want acceleration", l(), tr.Standard.UnitsType)
	}
}

func TestRemoveFailsOnGainMismatch(t *testing.T) {
	tr := mkTrace(t, "HNZ", []float64{1, 2, 3, 4, 5, 6, 7, 8}, 0.01)
	tr.Response = waveform.InstrumentResponse{
		Stages: []waveform.ResponseStage{
			{Gain: 100, OutputUnits: "m/s**2"},
		},
		Sensitivity:    1000, // way outside tolerance of the stage-gain product
		HasStages:      true,
		HasSensitivity: true,
	}

	if err := Remove(tr, Params{GainTolerance: 0.3, WaterLevel: 60, PreFilt: wideOpenPreFilt()}); err != nil {
		t.Fatalf("%s: %v", l(), err)
	}
	if !tr.Failed {
		t.Fatalf("%s: expected trace to fail on gain mismatch", l())
	}
	if tr.FailureReason.Kind != waveform.KindResponseMetadataError {
		t.Errorf("%s: failure kind = %v, want %v", l(), tr.FailureReason.Kind, waveform.KindResponseMetadataError)
	}
}

func TestRemoveFailsOnUnitMismatch(t *testing.T) {
	tr := mkTrace(t, "HNZ", []float64{1, 2, 3, 4, 5, 6, 7, 8}, 0.01)
	tr.Response = waveform.InstrumentResponse{
		Stages: []waveform.ResponseStage{
			{Gain: 100, OutputUnits: "m/s"}, // velocity output on an accelerometer channel
		},
		HasStages: true,
	}

	if err := Remove(tr, Params{GainTolerance: 0.3, WaterLevel: 60, PreFilt: wideOpenPreFilt()}); err != nil {
		t.Fatalf("%s: %v", l(), err)
	}
	if !tr.Failed {
		t.Fatalf("%s: expected trace to fail on unit mismatch", l())
	}
}

func TestRemoveSensitivityOnlyForAccelerometerWithoutStages(t *testing.T) {
	data := []float64{10, 20, -30, 40}
	tr := mkTrace(t, "HNZ", append([]float64(nil), data...), 0.01)
	const sensitivity = 50.0
	tr.Response = waveform.InstrumentResponse{
		Sensitivity:    sensitivity,
		HasSensitivity: true,
	}

	if err := Remove(tr, Params{GainTolerance: 0.1, WaterLevel: 60, PreFilt: wideOpenPreFilt()}); err != nil {
		t.Fatalf("%s: %v", l(), err)
	}
	if tr.Failed {
		t.Fatalf("%s: unexpected failure %v", l(), tr.FailureReason)
	}
	for i := range data {
		want := data[i] / sensitivity * cmPerM
		if math.Abs(tr.Data[i]-want) > 1e-9 {
			t.Errorf("%s: sample %d = %v, want %v", l(), i, tr.Data[i], want)
		}
	}
}

func TestRemoveFailsWithNoUsableStrategy(t *testing.T) {
	tr := mkTrace(t, "HHZ", []float64{1, 2, 3, 4}, 0.01) // seismometer, no stages, no sensitivity
	if err := Remove(tr, Params{GainTolerance: 0.1, WaterLevel: 60, PreFilt: wideOpenPreFilt()}); err != nil {
		t.Fatalf("%s: %v", l(), err)
	}
	if !tr.Failed {
		t.Fatalf("%s: expected trace to fail with no response metadata", l())
	}
	if tr.FailureReason.Kind != waveform.KindResponseMetadataError {
		t.Errorf("%s: failure kind = %v, want %v", l(), tr.FailureReason.Kind, waveform.KindResponseMetadataError)
	}
}

func TestPreFilterTaperShapesEdges(t *testing.T) {
	corners := [4]float64{1, 2, 8, 10}
	if v := preFilterTaper(0.5, corners); v != 0 {
		t.Errorf("%s: below f1 = %v, want 0", l(), v)
	}
	if v := preFilterTaper(5, corners); v != 1 {
		t.Errorf("%s: passband = %v, want 1", l(), v)
	}
	if v := preFilterTaper(11, corners); v != 0 {
		t.Errorf("%s: above f4 = %v, want 0", l(), v)
	}
}
