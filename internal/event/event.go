// Package event holds the scalar earthquake descriptor passed
// read-only to the windowing engine and the metric engine.
//
// This is a deliberately small subset of the field set a full FDSN
// event web service exposes (minlatitude/maxlatitude/orderby/... query
// parameters for searching a catalogue); the engine only ever needs
// the scalar description of the one event it is processing, not the
// catalogue-search parameters, so this type keeps only that subset.
package event

import "time"

// ScalarEvent is the minimal earthquake descriptor the engine needs.
type ScalarEvent struct {
	ID            string
	OriginTime    time.Time
	Latitude      float64
	Longitude     float64
	DepthKM       float64
	Magnitude     float64
	MagnitudeType string
}
