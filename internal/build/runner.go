package build

import (
	"context"
	"time"

	"git.home.luguber.info/inful/protoimporter/internal/logfields"
	"git.home.luguber.info/inful/protoimporter/internal/metrics"
	"git.home.luguber.info/inful/protoimporter/internal/observability"
)

// RunStages executes stages in order, recording timing and stopping on the
// first failure. Cancellation is checked before every stage.
func RunStages(ctx context.Context, us *UnitState, stages []StageDef) error {
	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			se := &StageError{Kind: StageErrorCanceled, Stage: st.Name, Unit: us.Plan.Unit.Name, Err: err}
			us.recordStage(st.Name, StageResultCanceled, 0, se)
			return se
		}

		stageCtx := observability.WithStage(ctx, string(st.Name))
		observability.DebugContext(stageCtx, "Stage started")
		t0 := time.Now()
		err := st.Fn(stageCtx, us)
		dur := time.Since(t0)

		if err != nil {
			kind, result := StageErrorFatal, StageResultFailed
			if ctx.Err() != nil {
				kind, result = StageErrorCanceled, StageResultCanceled
			}
			se := &StageError{Kind: kind, Stage: st.Name, Unit: us.Plan.Unit.Name, Err: err}
			us.recordStage(st.Name, result, dur, se)
			observability.ErrorContext(stageCtx, "Stage failed", logfields.DurationMS(ms(dur)), logfields.Error(err))
			return se
		}
		us.recordStage(st.Name, StageResultSuccess, dur, nil)
		observability.DebugContext(stageCtx, "Stage finished", logfields.DurationMS(ms(dur)))
	}
	return nil
}

func (us *UnitState) recordStage(stage StageName, result StageResult, d time.Duration, se *StageError) {
	us.Report.StageDurations[string(stage)] = ms(d)
	us.Report.StageResults[string(stage)] = result
	if se != nil {
		us.Report.FailedStage = string(stage)
		us.Report.Error = se.Err.Error()
	}
	if us.Recorder == nil {
		return
	}
	us.Recorder.ObserveStageDuration(string(stage), d)
	us.Recorder.IncStageResult(string(stage), stageMetricLabel(result))
}

func stageMetricLabel(r StageResult) metrics.ResultLabel {
	switch r {
	case StageResultSuccess:
		return metrics.ResultSuccess
	case StageResultCanceled:
		return metrics.ResultCanceled
	case StageResultSkipped:
		return metrics.ResultSkipped
	default:
		return metrics.ResultFailed
	}
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
