// Package geodesy wraps github.com/GeoNet/kit/wgs84 to provide the
// epicentral distance computations used by the signal-end models
// ("velocity", "source_path" methods) and by trim_multiple_events.
package geodesy

import (
	"math"

	"github.com/GeoNet/kit/wgs84"
)

// EpicentralDistanceKM returns the great-circle distance in kilometres
// between an event epicentre and a station location on the WGS84
// ellipsoid.
func EpicentralDistanceKM(eventLat, eventLon, stationLat, stationLon float64) (float64, error) {
	distM, _, err := wgs84.DistanceBearing(eventLat, eventLon, stationLat, stationLon)
	if err != nil {
		return 0, err
	}
	return distM / 1000.0, nil
}

// HypocentralDistanceKM folds event depth into the epicentral distance
// via simple Pythagorean combination, which is accurate enough for the
// corner-frequency and signal-duration models that consume it.
func HypocentralDistanceKM(eventLat, eventLon, depthKM, stationLat, stationLon, stationElevationM float64) (float64, error) {
	epi, err := EpicentralDistanceKM(eventLat, eventLon, stationLat, stationLon)
	if err != nil {
		return 0, err
	}
	dz := depthKM + stationElevationM/1000.0
	return math.Sqrt(epi*epi + dz*dz), nil
}
