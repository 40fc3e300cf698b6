package qa

import "github.com/GeoNet/gm-engine/internal/pipeline"

func init() {
	pipeline.Register("check_free_field", CheckFreeField)
	pipeline.Register("check_instrument", CheckInstrument)
	pipeline.Register("check_max_amplitude", CheckMaxAmplitude)
	pipeline.Register("check_clipping", CheckClipping)
	pipeline.Register("check_sta_lta", CheckSTALTA)
	pipeline.Register("check_zero_crossings", CheckZeroCrossings)
	pipeline.Register("check_tail", CheckTail)
	pipeline.Register("min_sample_rate", MinSampleRate)
	pipeline.Register("max_traces", MaxTraces)
	pipeline.Register("trim_multiple_events", TrimMultipleEvents)
}
