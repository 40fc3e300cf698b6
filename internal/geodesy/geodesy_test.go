package geodesy_test

import (
	"math"
	"testing"

	"github.com/GeoNet/gm-engine/internal/geodesy"
)

func TestEpicentralDistanceKMKnownPair(t *testing.T) {
	// Wellington to Auckland, NZ: roughly 490km apart.
	d, err := geodesy.EpicentralDistanceKM(-41.2865, 174.7762, -36.8485, 174.7633)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(d-493) > 10 {
		t.Errorf("expected ~493km, got %.1f", d)
	}
}

func TestHypocentralDistanceKMIncludesDepth(t *testing.T) {
	epi, err := geodesy.EpicentralDistanceKM(-41.0, 174.0, -41.0, 174.0)
	if err != nil {
		t.Fatal(err)
	}
	if epi != 0 {
		t.Fatalf("expected zero epicentral distance for identical points, got %v", epi)
	}

	hyp, err := geodesy.HypocentralDistanceKM(-41.0, 174.0, 10, -41.0, 174.0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(hyp-10) > 1e-6 {
		t.Errorf("expected hypocentral distance to equal depth for co-located station, got %.3f", hyp)
	}
}
