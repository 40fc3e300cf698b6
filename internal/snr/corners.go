package snr

import (
	"math"

	"github.com/GeoNet/gm-engine/internal/event"
	"github.com/GeoNet/gm-engine/internal/waveform"
)

// MagnitudeTableEntry is one row of the piecewise magnitude-selected
// corner table used by the "magnitude" selection method.
type MagnitudeTableEntry struct {
	MinMagnitude     float64
	Highpass, Lowpass float64
}

// SelectCorners implements the three corner-frequency selection
// methods, the same_horiz conservative-pairing rule, and the lowpass
// cap.
func SelectCorners(stream *waveform.Stream, ev *event.ScalarEvent, params map[string]any, table []MagnitudeTableEntry) error {
	method, _ := params["method"].(string)
	sameHoriz, _ := params["same_horiz"].(bool)

	for _, tr := range stream.Traces {
		if tr.Failed {
			continue
		}
		hp, lp, err := selectForTrace(tr, ev, method, params, table)
		if err != nil {
			tr.Fail(waveform.ProcessingFailure("snr.select_corner_frequencies", err.Error()))
			continue
		}
		lp = capLowpass(lp, tr.SamplingRate()/2, params)
		tr.Parameters.Set(waveform.ParamCornerFrequencies, waveform.CornerFrequenciesParam{Highpass: hp, Lowpass: lp, Method: method})
		tr.AddProvenance("corner_frequencies", "snr.select_corner_frequencies", map[string]any{"highpass": hp, "lowpass": lp, "method": method})
	}

	if sameHoriz {
		applySameHoriz(stream)
	}
	return nil
}

func selectForTrace(tr *waveform.Trace, ev *event.ScalarEvent, method string, params map[string]any, table []MagnitudeTableEntry) (hp, lp float64, err error) {
	switch method {
	case "constant":
		return floatParam(params, "highpass", 0.1), floatParam(params, "lowpass", 20), nil

	case "snr":
		sp, ok := tr.Parameters.Get(waveform.ParamSNR)
		if !ok {
			return 0, 0, errMissingSNR
		}
		snrParam := sp.(waveform.SNRParam)
		threshold := floatParam(params, "threshold", 3.0)
		return snrCrossings(snrParam, threshold)

	case "magnitude":
		if ev == nil {
			return 0, 0, errMissingEvent
		}
		return magnitudeTable(ev.Magnitude, table)

	default:
		return 0, 0, errUnknownMethod
	}
}

// snrCrossings finds, below and above the SNR peak frequency, the
// nearest frequency where SNR crosses threshold: the lowest such
// frequency below the peak becomes the highpass corner; the highest
// above the peak becomes the lowpass corner.
func snrCrossings(p waveform.SNRParam, threshold float64) (hp, lp float64, err error) {
	peakIdx := 0
	for i, f := range p.Freqs {
		if f == p.Peak {
			peakIdx = i
			break
		}
	}

	hpFound := false
	for i := peakIdx; i >= 0; i-- {
		if p.SNR[i] < threshold {
			break
		}
		hp = p.Freqs[i]
		hpFound = true
	}

	lpFound := false
	for i := peakIdx; i < len(p.Freqs); i++ {
		if p.SNR[i] < threshold {
			break
		}
		lp = p.Freqs[i]
		lpFound = true
	}

	if !hpFound || !lpFound {
		return 0, 0, errNoSNRCrossing
	}
	return hp, lp, nil
}

func magnitudeTable(mag float64, table []MagnitudeTableEntry) (hp, lp float64, err error) {
	if len(table) == 0 {
		return 0, 0, errEmptyMagnitudeTable
	}
	best := table[0]
	for _, row := range table {
		if mag >= row.MinMagnitude && row.MinMagnitude >= best.MinMagnitude {
			best = row
		}
	}
	return best.Highpass, best.Lowpass, nil
}

// capLowpass implements lowpass <- min(lowpass, fn_fac*f_Nyquist,
// lp_max).
func capLowpass(lp, nyquist float64, params map[string]any) float64 {
	fnFac := floatParam(params, "fn_fac", 0.8)
	lpMax := floatParam(params, "lp_max", math.Inf(1))
	lp = math.Min(lp, fnFac*nyquist)
	return math.Min(lp, lpMax)
}

// applySameHoriz replaces both horizontal traces' corner frequencies
// with the more conservative (narrower passband) of the two.
func applySameHoriz(stream *waveform.Stream) {
	horiz := stream.HorizontalTraces()
	if len(horiz) != 2 {
		return
	}
	a, aok := horiz[0].Parameters.Get(waveform.ParamCornerFrequencies)
	b, bok := horiz[1].Parameters.Get(waveform.ParamCornerFrequencies)
	if !aok || !bok {
		return
	}
	ca := a.(waveform.CornerFrequenciesParam)
	cb := b.(waveform.CornerFrequenciesParam)

	conservative := waveform.CornerFrequenciesParam{
		Highpass: math.Max(ca.Highpass, cb.Highpass),
		Lowpass:  math.Min(ca.Lowpass, cb.Lowpass),
		Method:   ca.Method,
	}
	horiz[0].Parameters.Set(waveform.ParamCornerFrequencies, conservative)
	horiz[1].Parameters.Set(waveform.ParamCornerFrequencies, conservative)
}

type snrError string

func (e snrError) Error() string { return string(e) }

const (
	errMissingSNR          = snrError("snr.select_corner_frequencies requires the snr step to have run")
	errMissingEvent        = snrError("magnitude corner selection requires an event")
	errUnknownMethod       = snrError("unknown corner frequency selection method")
	errNoSNRCrossing       = snrError("no SNR threshold crossing found around the signal peak")
	errEmptyMagnitudeTable = snrError("magnitude corner table is empty")
)
