package waveform

import "fmt"

// Kind identifies which branch of the error taxonomy a FailureReason
// belongs to. ConfigError is the only kind returned as
// a plain Go error; the rest are always recorded on a trace or stream,
// never raised.
type Kind string

const (
	KindConfigError            Kind = "config_error"
	KindDataError              Kind = "data_error"
	KindProcessingError        Kind = "processing_error"
	KindQACheckFail            Kind = "qa_check_fail"
	KindResponseMetadataError  Kind = "response_metadata_error"
	KindMissingPrereq          Kind = "missing_prereq"
)

// FailureReason is a structured record of why a trace or stream was
// failed. It is attached in place rather than returned as a Go error:
// failures are recorded on the trace/stream, never raised.
type FailureReason struct {
	Kind  Kind
	Text  string
	Stage string // the step name that produced this failure, if any
	Value any    // the offending value, e.g. a measured ratio, for diagnostics
}

func (r FailureReason) Error() string {
	if r.Stage != "" {
		return fmt.Sprintf("%s: %s (%s)", r.Stage, r.Text, r.Kind)
	}
	return fmt.Sprintf("%s (%s)", r.Text, r.Kind)
}

// ConfigError is a typed error surfaced to the caller before any
// stream is touched: a malformed program or configuration, as
// distinct from a per-stream processing failure recorded on the
// stream itself.
type ConfigError struct {
	Err error
}

func (e ConfigError) Error() string { return e.Err.Error() }
func (e ConfigError) Unwrap() error { return e.Err }

func NewConfigError(format string, args ...any) ConfigError {
	return ConfigError{Err: fmt.Errorf(format, args...)}
}

// DataFailure builds a data_error FailureReason.
func DataFailure(stage, text string) FailureReason {
	return FailureReason{Kind: KindDataError, Text: text, Stage: stage}
}

// ProcessingFailure builds a processing_error FailureReason.
func ProcessingFailure(stage, text string) FailureReason {
	return FailureReason{Kind: KindProcessingError, Text: text, Stage: stage}
}

// QAFailure builds a qa_check_fail FailureReason, carrying the
// offending measured value for diagnostics.
func QAFailure(stage, text string, value any) FailureReason {
	return FailureReason{Kind: KindQACheckFail, Text: text, Stage: stage, Value: value}
}

// ResponseMetadataFailure builds a response_metadata_error FailureReason.
func ResponseMetadataFailure(stage, text string) FailureReason {
	return FailureReason{Kind: KindResponseMetadataError, Text: text, Stage: stage}
}

// MissingPrereqFailure builds a missing_prereq FailureReason for a step
// that needs a trace parameter a previous step should have set.
func MissingPrereqFailure(stage, param string) FailureReason {
	return FailureReason{
		Kind:  KindMissingPrereq,
		Text:  fmt.Sprintf("required parameter %q not set", param),
		Stage: stage,
	}
}
