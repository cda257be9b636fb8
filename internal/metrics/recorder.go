package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed"
	ResultFatal   ResultLabel = "fatal"
)

// Build outcomes passed to IncBuildOutcome.
const (
	BuildOutcomeSuccess  = "success"
	BuildOutcomeFailed   = "failed"
	BuildOutcomeCanceled = "canceled"
)

// DerivativeLabel records what happened to one (format, width) derivative.
type DerivativeLabel string

const (
	DerivativeGenerated DerivativeLabel = "generated"
	DerivativeSkipped   DerivativeLabel = "skipped"
)

// Recorder defines observability hooks for build metrics. Implementations
// may forward to Prometheus. NoopRecorder is the default.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	IncBuildOutcome(outcome string) // outcome: success|failed|canceled
	IncDerivative(format string, label DerivativeLabel)
	IncItem(collection string, result ResultLabel)
	IncDataset(collection string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)         {}
func (NoopRecorder) IncStageResult(string, ResultLabel)         {}
func (NoopRecorder) IncBuildOutcome(string)                     {}
func (NoopRecorder) IncDerivative(string, DerivativeLabel)      {}
func (NoopRecorder) IncItem(string, ResultLabel)                {}
func (NoopRecorder) IncDataset(string)                          {}
