package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultFailed   ResultLabel = "failed"
	ResultSkipped  ResultLabel = "skipped"
	ResultCanceled ResultLabel = "canceled"
)

// Recorder defines observability hooks for build, unit and stage metrics.
// Implementations must tolerate being called from several unit goroutines at once.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	IncUnitOutcome(outcome string) // outcome: success|failed|canceled
	AddArtifacts(unit string, n int)
	AddRewrittenImports(unit string, n int)
	AddPackageMarkers(unit string, created, removed int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)         {}
func (NoopRecorder) IncStageResult(string, ResultLabel)         {}
func (NoopRecorder) IncUnitOutcome(string)                      {}
func (NoopRecorder) AddArtifacts(string, int)                   {}
func (NoopRecorder) AddRewrittenImports(string, int)            {}
func (NoopRecorder) AddPackageMarkers(string, int, int)         {}
