package qa

import (
	"math"

	"github.com/GeoNet/gm-engine/internal/config"
	"github.com/GeoNet/gm-engine/internal/event"
	"github.com/GeoNet/gm-engine/internal/waveform"
)

// clippingWeights and clippingBias parameterize a small logistic model
// over three clipping-shaped features, estimating a clipping
// probability over horizontal components without a trained model or a
// neural runtime: a hand-tuned linear model over interpretable
// features rather than a network (see DESIGN.md).
//
// Features: fraction of samples within flatFraction of the trace's
// peak amplitude ("flatTopFraction"), the longest run of consecutive
// samples at that same plateau normalized by trace length
// ("longestFlatRun"), and the ratio of the peak amplitude to the
// signal's RMS ("crestFactor", inverted since clipping compresses the
// crest factor toward 1).
var (
	clippingWeights = [3]float64{6.0, 8.0, -0.6}
	clippingBias    = -5.0
)

const flatFraction = 0.02

// CheckClipping estimates a clipping probability for each horizontal
// trace and fails the stream if it is at or above threshold.
func CheckClipping(stream *waveform.Stream, ev *event.ScalarEvent, params map[string]any, cfg *config.Config) error {
	if stream.Failed {
		return nil
	}
	threshold := floatParam(params, "threshold", 0.5)

	for _, tr := range stream.HorizontalTraces() {
		if tr.Failed {
			continue
		}
		p := clippingProbability(tr.Data)
		tr.Parameters.Set(waveform.ParamClippingProbability, waveform.ClippingProbabilityParam{Probability: p})
		if p >= threshold {
			stream.Fail(waveform.KindQACheckFail, "check_clipping", "estimated clipping probability at or above threshold")
			return nil
		}
	}
	return nil
}

func clippingProbability(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	peak := maxAbs(data)
	if peak == 0 {
		return 0
	}

	var flatCount, longestRun, currentRun int
	var sumSq float64
	flatThreshold := peak * (1 - flatFraction)
	for _, v := range data {
		sumSq += v * v
		if math.Abs(v) >= flatThreshold {
			flatCount++
			currentRun++
			if currentRun > longestRun {
				longestRun = currentRun
			}
		} else {
			currentRun = 0
		}
	}

	flatTopFraction := float64(flatCount) / float64(len(data))
	longestFlatRun := float64(longestRun) / float64(len(data))
	rms := math.Sqrt(sumSq / float64(len(data)))
	crestFactor := 1.0
	if rms > 0 {
		crestFactor = peak / rms
	}

	z := clippingWeights[0]*flatTopFraction +
		clippingWeights[1]*longestFlatRun +
		clippingWeights[2]*crestFactor +
		clippingBias
	return sigmoid(z)
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
