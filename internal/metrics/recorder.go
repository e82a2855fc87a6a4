package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultWarning  ResultLabel = "warning"
	ResultFatal    ResultLabel = "fatal"
	ResultCanceled ResultLabel = "canceled"
)

// OutcomeLabel enumerates final run outcomes for counters.
type OutcomeLabel string

const (
	OutcomeSuccess  OutcomeLabel = "success"
	OutcomeWarning  OutcomeLabel = "warning"
	OutcomeFailed   OutcomeLabel = "failed"
	OutcomeCanceled OutcomeLabel = "canceled"
)

// Recorder defines observability hooks for run and stage metrics. Implementations
// may forward to Prometheus, OpenTelemetry, etc. All methods must be safe for nil receivers
// when using the NoopRecorder (allowing optional injection).
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveRunDuration(d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	IncRunOutcome(outcome OutcomeLabel)
	ObserveTranslateDuration(platform string, d time.Duration, success bool)
	IncTranslateResult(success bool)
	SetTranslateConcurrency(n int)
	IncDiagnostic(severity string)
	IncFetchRetry(repo string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration)         {}
func (NoopRecorder) ObserveRunDuration(time.Duration)                   {}
func (NoopRecorder) IncStageResult(string, ResultLabel)                 {}
func (NoopRecorder) IncRunOutcome(OutcomeLabel)                         {}
func (NoopRecorder) ObserveTranslateDuration(string, time.Duration, bool) {}
func (NoopRecorder) IncTranslateResult(bool)                            {}
func (NoopRecorder) SetTranslateConcurrency(int)                        {}
func (NoopRecorder) IncDiagnostic(string)                               {}
func (NoopRecorder) IncFetchRetry(string)                               {}
