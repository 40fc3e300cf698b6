package waveform_test

import (
	"testing"
	"time"

	"github.com/GeoNet/gm-engine/internal/waveform"
)

func mkTrace(t *testing.T, net, sta, loc, cha string, start time.Time, delta float64, n int) *waveform.Trace {
	t.Helper()
	data := make([]float64, n)
	tr, err := waveform.NewTrace(waveform.TraceID{Network: net, Station: sta, Location: loc, Channel: cha}, start, delta, data)
	if err != nil {
		t.Fatal(err)
	}
	return tr
}

func TestNewStreamConsistency(t *testing.T) {
	start := time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC)

	in := []struct {
		i      string
		traces []*waveform.Trace
		ok     bool
	}{
		{
			i: l(),
			traces: []*waveform.Trace{
				mkTrace(t, "NZ", "WEL", "10", "HN1", start, 0.01, 1000),
				mkTrace(t, "NZ", "WEL", "10", "HN2", start, 0.01, 1000),
				mkTrace(t, "NZ", "WEL", "10", "HNZ", start, 0.01, 1000),
			},
			ok: true,
		},
		{
			i: l(),
			traces: []*waveform.Trace{
				mkTrace(t, "NZ", "WEL", "10", "HN1", start, 0.01, 1000),
				mkTrace(t, "NZ", "OTH", "10", "HN2", start, 0.01, 1000),
			},
			ok: false,
		},
		{
			i: l(),
			traces: []*waveform.Trace{
				mkTrace(t, "NZ", "WEL", "10", "HN1", start, 0.01, 1000),
				mkTrace(t, "NZ", "WEL", "10", "HH2", start, 0.01, 1000),
			},
			ok: false,
		},
		{
			i: l(),
			traces: []*waveform.Trace{
				mkTrace(t, "NZ", "WEL", "10", "HN1", start, 0.01, 1000),
				mkTrace(t, "NZ", "WEL", "10", "HN2", start.Add(time.Second), 0.01, 1000),
			},
			ok: false,
		},
	}

	for _, v := range in {
		_, err := waveform.NewStream(v.traces)
		if v.ok && err != nil {
			t.Errorf("%s: unexpected error: %v", v.i, err)
		}
		if !v.ok && err == nil {
			t.Errorf("%s: expected error, got none", v.i)
		}
	}
}

func TestApplyAnyTraceFailures(t *testing.T) {
	start := time.Now()
	traces := []*waveform.Trace{
		mkTrace(t, "NZ", "WEL", "10", "HN1", start, 0.01, 100),
		mkTrace(t, "NZ", "WEL", "10", "HN2", start, 0.01, 100),
	}
	s, err := waveform.NewStream(traces)
	if err != nil {
		t.Fatal(err)
	}

	s.ApplyAnyTraceFailures()
	if s.Failed {
		t.Fatal("stream should not be failed yet")
	}

	traces[0].Fail(waveform.DataFailure("cut", "bad window"))
	s.ApplyAnyTraceFailures()
	if !s.Failed {
		t.Fatal("expected stream to fail once a trace failed")
	}
}

func TestDedupePrefersConfiguredProcessLevel(t *testing.T) {
	start := time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC)

	v1 := mkTrace(t, "NZ", "WEL", "10", "HN1", start, 0.01, 1000)
	v1.Standard.ProcessLevel = "V1"
	v2 := mkTrace(t, "NZ", "WEL", "10", "HN1", start, 0.01, 1000)
	v2.Standard.ProcessLevel = "V2"

	s1, _ := waveform.NewStream([]*waveform.Trace{v1})
	s2, _ := waveform.NewStream([]*waveform.Trace{v2})

	coll := &waveform.StreamCollection{}
	coll.Add(s2) // V2 added first
	coll.Add(s1) // V1 added second

	coll.Dedupe(waveform.DedupePreference{
		ProcessLevelRank: map[string]int{"V1": 0, "V2": 1},
	})

	if len(coll.Streams) != 1 {
		t.Fatalf("expected exactly one stream to survive dedupe, got %d", len(coll.Streams))
	}
	if coll.Streams[0].Traces[0].Standard.ProcessLevel != "V1" {
		t.Errorf("expected V1 stream to be kept per configured preference, got %s",
			coll.Streams[0].Traces[0].Standard.ProcessLevel)
	}
}

func TestDedupeMergesStationsWithinDistanceTolerance(t *testing.T) {
	start := time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC)

	near := mkTrace(t, "NZ", "WELA", "10", "HN1", start, 0.01, 1000)
	near.Coordinates = waveform.Coordinates{Latitude: -41.0, Longitude: 174.0}
	near.Standard.ProcessLevel = "V1"

	// A co-located borehole/surface pair sharing the same site but a
	// different station code, a few hundred metres apart.
	colocated := mkTrace(t, "NZ", "WELB", "10", "HN1", start, 0.01, 1000)
	colocated.Coordinates = waveform.Coordinates{Latitude: -41.001, Longitude: 174.001}
	colocated.Standard.ProcessLevel = "V2"

	far := mkTrace(t, "NZ", "OTHR", "10", "HN1", start, 0.01, 1000)
	far.Coordinates = waveform.Coordinates{Latitude: -42.5, Longitude: 175.5}

	s1, _ := waveform.NewStream([]*waveform.Trace{near})
	s2, _ := waveform.NewStream([]*waveform.Trace{colocated})
	s3, _ := waveform.NewStream([]*waveform.Trace{far})

	coll := &waveform.StreamCollection{}
	coll.Add(s1)
	coll.Add(s2)
	coll.Add(s3)

	coll.Dedupe(waveform.DedupePreference{
		ProcessLevelRank:    map[string]int{"V1": 0, "V2": 1},
		DistanceToleranceKM: 0.5,
	})

	if len(coll.Streams) != 2 {
		t.Fatalf("expected the two nearby stations to merge into one, got %d streams", len(coll.Streams))
	}
}
