package waveform

import (
	"math"
	"sort"

	"github.com/GeoNet/gm-engine/internal/geodesy"
)

// StreamFailure is a structured reason a whole stream was rejected,
// distinct from a single trace's FailureReason: zero or more
// structured failure reasons may accumulate on a stream.
type StreamFailure struct {
	Kind  Kind
	Text  string
	Stage string
}

// Stream is an ordered set of one-to-three traces belonging to the
// same sensor instance.
type Stream struct {
	Traces []*Trace

	Failed   bool
	Failures []StreamFailure
}

// NewStream validates cross-trace consistency and returns a Stream.
// Mismatches here are programmer/reader errors (a precondition of
// grouping, not a QA outcome), so they are returned as a plain error
// rather than a FailureReason.
func NewStream(traces []*Trace) (*Stream, error) {
	if len(traces) == 0 {
		return nil, errNoTraces
	}
	if len(traces) > 3 {
		return nil, errTooManyTraces
	}

	first := traces[0]
	for _, tr := range traces[1:] {
		if err := consistent(first, tr); err != nil {
			return nil, err
		}
	}

	return &Stream{Traces: traces}, nil
}

var errNoTraces = simpleErr("waveform: stream requires at least one trace")
var errTooManyTraces = simpleErr("waveform: stream accepts at most three traces")

type simpleErr string

func (e simpleErr) Error() string { return string(e) }

// consistent checks that two traces belong in the same stream:
// identical network/station/first-two-channel-code-chars/location,
// sampling interval, sample count (integer-sample tolerance), and
// start time (half-sample tolerance).
func consistent(a, b *Trace) error {
	if a.ID.Network != b.ID.Network {
		return simpleErr("waveform: mismatched network codes in stream")
	}
	if a.ID.Station != b.ID.Station {
		return simpleErr("waveform: mismatched station codes in stream")
	}
	if a.ID.Location != b.ID.Location {
		return simpleErr("waveform: mismatched location codes in stream")
	}
	if len(a.ID.Channel) < 2 || len(b.ID.Channel) < 2 || a.ID.Channel[:2] != b.ID.Channel[:2] {
		return simpleErr("waveform: mismatched channel band/instrument codes in stream")
	}
	if math.Abs(a.Delta-b.Delta) > 1e-9 {
		return simpleErr("waveform: mismatched sampling interval in stream")
	}
	if diff := a.NumSamples() - b.NumSamples(); diff > 1 || diff < -1 {
		return simpleErr("waveform: sample count mismatch exceeds tolerance in stream")
	}
	halfSample := a.Delta / 2
	if d := a.StartTime.Sub(b.StartTime).Seconds(); d > halfSample || d < -halfSample {
		return simpleErr("waveform: start time mismatch exceeds half-sample tolerance in stream")
	}
	return nil
}

// Fail marks the whole stream failed, appending a reason. Idempotent
// per-reason: calling it repeatedly appends distinct reasons but
// always leaves Failed true.
func (s *Stream) Fail(kind Kind, stage, text string) {
	s.Failed = true
	s.Failures = append(s.Failures, StreamFailure{Kind: kind, Stage: stage, Text: text})
}

// AnyTraceFailed reports whether at least one member trace is failed.
func (s *Stream) AnyTraceFailed() bool {
	for _, t := range s.Traces {
		if t.Failed {
			return true
		}
	}
	return false
}

// ApplyAnyTraceFailures implements the check_stream.any_trace_failures
// policy: if set, any single failed trace fails the whole stream at
// the end of the current step.
func (s *Stream) ApplyAnyTraceFailures() {
	if s.Failed {
		return
	}
	if s.AnyTraceFailed() {
		s.Fail(KindDataError, "check_stream", "one or more traces failed and any_trace_failures is set")
	}
}

// HorizontalTraces returns the (up to two) traces whose dip is
// approximately zero, in stable input order.
func (s *Stream) HorizontalTraces() []*Trace {
	var out []*Trace
	for _, t := range s.Traces {
		if math.Abs(t.Orientation.Dip) < 1e-6 {
			out = append(out, t)
		}
	}
	return out
}

// VerticalTrace returns the trace whose dip is approximately ±90deg, or nil.
func (s *Stream) VerticalTrace() *Trace {
	for _, t := range s.Traces {
		if math.Abs(math.Abs(t.Orientation.Dip)-90) < 1e-6 {
			return t
		}
	}
	return nil
}

// StreamCollection is the set of streams for a single event.
type StreamCollection struct {
	Streams []*Stream
}

// Add appends a stream to the collection.
func (c *StreamCollection) Add(s *Stream) {
	c.Streams = append(c.Streams, s)
}

// DedupePreference orders the tie-break criteria used to keep exactly
// one stream per station.
type DedupePreference struct {
	// ProcessLevelRank maps a process level string (e.g. "V2", "V1",
	// "raw") to a preference rank; lower is preferred.
	ProcessLevelRank map[string]int
	// SourceFormatRank maps a source format string to a preference
	// rank; lower is preferred.
	SourceFormatRank map[string]int
	// PreferredLocationCodes lists location codes in preference order;
	// earlier entries win ties that survive the rest of the order.
	PreferredLocationCodes []string
	// DistanceToleranceKM is the spatial tolerance within which two
	// streams sharing network/station are considered the same sensor.
	DistanceToleranceKM float64
}

// Dedupe resolves duplicate streams for stations that lie within
// pref.DistanceToleranceKM of each other into a single group (exact
// network.station match when DistanceToleranceKM <= 0), then keeps one
// stream per group by the total order: process-level preference,
// source-format preference, earliest start, most samples, highest
// rate, preferred location-code list.
func (c *StreamCollection) Dedupe(pref DedupePreference) {
	var groups [][]*Stream
	for _, s := range c.Streams {
		if len(s.Traces) == 0 {
			continue
		}
		if i := dedupeGroup(groups, s, pref); i >= 0 {
			groups[i] = append(groups[i], s)
		} else {
			groups = append(groups, []*Stream{s})
		}
	}

	var kept []*Stream
	for _, g := range groups {
		sort.SliceStable(g, func(i, j int) bool {
			return better(g[i], g[j], pref)
		})
		kept = append(kept, g[0])
	}
	c.Streams = kept
}

// dedupeGroup returns the index of the existing group s belongs in:
// same network code, and either an exact station match or, when
// pref.DistanceToleranceKM > 0, a station within that distance of the
// group's first member. Returns -1 to start a new group.
func dedupeGroup(groups [][]*Stream, s *Stream, pref DedupePreference) int {
	tr := s.Traces[0]
	for i, g := range groups {
		ref := g[0].Traces[0]
		if ref.ID.Network != tr.ID.Network {
			continue
		}
		if ref.ID.Station == tr.ID.Station {
			return i
		}
		if pref.DistanceToleranceKM <= 0 {
			continue
		}
		d, err := geodesy.EpicentralDistanceKM(ref.Coordinates.Latitude, ref.Coordinates.Longitude, tr.Coordinates.Latitude, tr.Coordinates.Longitude)
		if err == nil && d <= pref.DistanceToleranceKM {
			return i
		}
	}
	return -1
}

// better reports whether a should be preferred over b under pref.
func better(a, b *Stream, pref DedupePreference) bool {
	ra, rb := processRank(a, pref), processRank(b, pref)
	if ra != rb {
		return ra < rb
	}
	fa, fb := formatRank(a, pref), formatRank(b, pref)
	if fa != fb {
		return fa < fb
	}
	sa, sb := a.Traces[0].StartTime, b.Traces[0].StartTime
	if !sa.Equal(sb) {
		return sa.Before(sb)
	}
	na, nb := a.Traces[0].NumSamples(), b.Traces[0].NumSamples()
	if na != nb {
		return na > nb
	}
	ratea, rateb := a.Traces[0].SamplingRate(), b.Traces[0].SamplingRate()
	if ratea != rateb {
		return ratea > rateb
	}
	return locationRank(a, pref) < locationRank(b, pref)
}

func processRank(s *Stream, pref DedupePreference) int {
	if pref.ProcessLevelRank == nil {
		return 0
	}
	if r, ok := pref.ProcessLevelRank[s.Traces[0].Standard.ProcessLevel]; ok {
		return r
	}
	return len(pref.ProcessLevelRank) + 1
}

func formatRank(s *Stream, pref DedupePreference) int {
	if pref.SourceFormatRank == nil {
		return 0
	}
	if r, ok := pref.SourceFormatRank[s.Traces[0].Standard.SourceFormat]; ok {
		return r
	}
	return len(pref.SourceFormatRank) + 1
}

func locationRank(s *Stream, pref DedupePreference) int {
	loc := s.Traces[0].ID.Location
	for i, l := range pref.PreferredLocationCodes {
		if l == loc {
			return i
		}
	}
	return len(pref.PreferredLocationCodes) + 1
}
