// Package response implements instrument-response removal: the
// decision flow between full pole-zero deconvolution and
// sensitivity-only correction, gated by stage-gain/sensitivity
// agreement and unit consistency checks.
package response

import (
	"math"
	"math/cmplx"

	"github.com/GeoNet/gm-engine/internal/dsp"
	"github.com/GeoNet/gm-engine/internal/waveform"
)

// InstrumentType is detected from the channel code.
type InstrumentType string

const (
	Accelerometer InstrumentType = "accelerometer"
	Seismometer   InstrumentType = "seismometer"
)

// DetectInstrumentType classifies a channel code: the second character
// is 'N' for accelerometers (e.g. HNZ, BNE), anything else is treated
// as a velocity-output seismometer (e.g. HHZ, BHN).
func DetectInstrumentType(channel string) InstrumentType {
	if len(channel) >= 2 && channel[1] == 'N' {
		return Accelerometer
	}
	return Seismometer
}

// Params configures one remove_response invocation.
type Params struct {
	GainTolerance float64    // relative tolerance between stage-gain product and overall sensitivity
	WaterLevel    float64    // water-level regularization, dB below the response's peak magnitude
	PreFilt       [4]float64 // cosine-taper corner frequencies f1<=f2<=f3<=f4
}

const (
	cmPerM = 100.0
)

// Remove applies instrument-response correction to tr in place,
// failing the trace with a response_metadata_error if no usable
// correction strategy exists. On success tr.Data is in cm/s²
// (acceleration) and tr.Standard.UnitsType/Units are updated.
func Remove(tr *waveform.Trace, p Params) error {
	const stage = "response.remove_response"

	instrument := DetectInstrumentType(tr.ID.Channel)

	resp := tr.Response
	stagesComplete := resp.HasStages && len(resp.Stages) > 0

	if stagesComplete && resp.HasSensitivity {
		product := resp.StageGainProduct()
		if !withinTolerance(product, resp.Sensitivity, p.GainTolerance) {
			tr.Fail(waveform.ResponseMetadataFailure(stage, "stage gain product disagrees with overall sensitivity"))
			return nil
		}
	}

	if stagesComplete && !unitsConsistent(resp, instrument) {
		tr.Fail(waveform.ResponseMetadataFailure(stage, "response units inconsistent with instrument type"))
		return nil
	}

	switch {
	case stagesComplete && p.WaterLevel > 0:
		if err := deconvolve(tr, resp, p); err != nil {
			tr.Fail(waveform.ResponseMetadataFailure(stage, err.Error()))
			return nil
		}
		tr.AddProvenance("remove_response", stage, map[string]any{
			"method":      "deconvolution",
			"water_level": p.WaterLevel,
			"pre_filt":    p.PreFilt,
		})
	case instrument == Accelerometer && resp.HasSensitivity && resp.Sensitivity != 0:
		sensitivityOnly(tr, resp)
		tr.AddProvenance("remove_response", stage, map[string]any{
			"method":      "sensitivity",
			"sensitivity": resp.Sensitivity,
		})
	default:
		tr.Fail(waveform.ResponseMetadataFailure(stage, "bad_response_metadata: no usable response correction strategy"))
		return nil
	}

	tr.Standard.UnitsType = waveform.UnitsAcceleration
	tr.Standard.Units = "cm/s^2"
	return nil
}

func withinTolerance(product, sensitivity, tolerance float64) bool {
	if sensitivity == 0 {
		return false
	}
	if tolerance <= 0 {
		tolerance = 0.1
	}
	return math.Abs(product-sensitivity)/math.Abs(sensitivity) <= tolerance
}

// unitsConsistent checks the final stage's output units (and the
// sensitivity units, if present) match what the instrument type
// implies: m/s² for accelerometers, m/s for seismometers.
func unitsConsistent(resp waveform.InstrumentResponse, instrument InstrumentType) bool {
	want := "m/s"
	if instrument == Accelerometer {
		want = "m/s**2"
	}
	last := resp.Stages[len(resp.Stages)-1]
	if !unitsMatch(last.OutputUnits, want) {
		return false
	}
	if resp.HasSensitivity && resp.SensitivityUnits != "" && !unitsMatch(resp.SensitivityUnits, want) {
		return false
	}
	return true
}

func unitsMatch(got, want string) bool {
	return normalizedUnits(got) == normalizedUnits(want)
}

// sensitivityOnly divides out the scalar overall sensitivity (counts
// to m/s²), rescaling to cm/s².
func sensitivityOnly(tr *waveform.Trace, resp waveform.InstrumentResponse) {
	for i := range tr.Data {
		tr.Data[i] = tr.Data[i] / resp.Sensitivity * cmPerM
	}
}

// deconvolve performs full pole-zero deconvolution: FFT, divide by the
// combined-stage transfer function with water-level regularization and
// a cosine-taper pre-filter, inverse FFT, then differentiate to
// acceleration if the response's final stage outputs velocity or
// displacement.
func deconvolve(tr *waveform.Trace, resp waveform.InstrumentResponse, p Params) error {
	n := len(tr.Data)
	spec := dsp.ForwardFFT(tr.Data, tr.Delta)

	gain := resp.StageGainProduct()
	maxAbsH := 0.0
	hVals := make([]complex128, len(spec.Freqs))
	for i, f := range spec.Freqs {
		h := polesZerosResponse(resp, gain, f)
		hVals[i] = h
		if a := cmplx.Abs(h); a > maxAbsH {
			maxAbsH = a
		}
	}
	if maxAbsH == 0 {
		return errZeroResponse
	}
	waterLevelLinear := maxAbsH * math.Pow(10, -p.WaterLevel/20)

	for i, f := range spec.Freqs {
		h := hVals[i]
		denom := cmplx.Abs(h) * cmplx.Abs(h)
		floor := waterLevelLinear * waterLevelLinear
		if denom < floor {
			denom = floor
		}
		invH := cmplx.Conj(h) / complex(denom, 0)
		taper := preFilterTaper(math.Abs(f), p.PreFilt)
		spec.Coeffs[i] *= invH * complex(taper, 0)
	}

	out := dsp.InverseFFT(spec.Coeffs, n)

	last := resp.Stages[len(resp.Stages)-1]
	switch normalizedUnits(last.OutputUnits) {
	case "m/s**2":
		// already acceleration
	case "m/s":
		out = differentiate(out, tr.Delta)
	default:
		out = differentiate(differentiate(out, tr.Delta), tr.Delta)
	}

	for i := range out {
		tr.Data[i] = out[i] * cmPerM
	}
	return nil
}

func normalizedUnits(s string) string {
	switch s {
	case "m/s**2", "m/s^2", "m/s2", "M/S**2":
		return "m/s**2"
	case "m/s", "M/S":
		return "m/s"
	default:
		return "m"
	}
}

// polesZerosResponse evaluates the combined pole-zero transfer
// function across every stage's poles and zeros pooled together, with
// a single overall normalization of the pooled per-stage gains. A
// multi-stage response is pooled into one transfer function rather
// than composed stage by stage (see DESIGN.md).
func polesZerosResponse(resp waveform.InstrumentResponse, gain, freq float64) complex128 {
	s := complex(0, 2*math.Pi*freq)
	h := complex(gain, 0)
	for _, stage := range resp.Stages {
		for _, z := range stage.Zeros {
			h *= s - z
		}
		for _, pl := range stage.Poles {
			if s == pl {
				continue
			}
			h /= s - pl
		}
	}
	return h
}

// preFilterTaper is a four-corner cosine taper: 0 below f1, ramps to 1
// over [f1,f2], flat through [f2,f3], ramps back to 0 over [f3,f4], 0
// above f4.
func preFilterTaper(f float64, corners [4]float64) float64 {
	f1, f2, f3, f4 := corners[0], corners[1], corners[2], corners[3]
	switch {
	case f4 <= f1:
		return 1
	case f < f1, f > f4:
		return 0
	case f < f2:
		return 0.5 * (1 - math.Cos(math.Pi*(f-f1)/(f2-f1)))
	case f <= f3:
		return 1
	default:
		return 0.5 * (1 + math.Cos(math.Pi*(f-f3)/(f4-f3)))
	}
}

func differentiate(data []float64, dt float64) []float64 {
	n := len(data)
	out := make([]float64, n)
	if n < 2 {
		return out
	}
	out[0] = (data[1] - data[0]) / dt
	for i := 1; i < n-1; i++ {
		out[i] = (data[i+1] - data[i-1]) / (2 * dt)
	}
	out[n-1] = (data[n-1] - data[n-2]) / dt
	return out
}

type responseError string

func (e responseError) Error() string { return string(e) }

const errZeroResponse = responseError("response.deconvolve: combined transfer function is identically zero")
