package build

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/protoimporter/internal/config"
	"git.home.luguber.info/inful/protoimporter/internal/foundation/errors"
	"git.home.luguber.info/inful/protoimporter/internal/generator"
	"git.home.luguber.info/inful/protoimporter/internal/logfields"
	"git.home.luguber.info/inful/protoimporter/internal/metrics"
	"git.home.luguber.info/inful/protoimporter/internal/observability"
	"git.home.luguber.info/inful/protoimporter/internal/plan"
)

// BuildService is the entry point every command routes builds through.
type BuildService interface {
	Run(ctx context.Context, req BuildRequest) (*BuildResult, error)
}

// BuildRequest contains all inputs of one run.
type BuildRequest struct {
	Config  *config.Config
	Options BuildOptions
}

// BuildOptions modifies which stages run and for which units.
type BuildOptions struct {
	// NoVerify skips the verify stage.
	NoVerify bool
	// PostprocessOnly skips generation and works on the existing output roots.
	PostprocessOnly bool
	// CheckOnly only verifies the existing output roots.
	CheckOnly bool
	// Units restricts the run to the named units; empty means all.
	Units []string
}

// BuildResult contains the outcome of a run.
type BuildResult struct {
	Status      BuildStatus
	Report      *BuildReport
	Units       int
	UnitsFailed int
	Duration    time.Duration
	StartTime   time.Time
	EndTime     time.Time
}

// BuildStatus represents the outcome of a run.
type BuildStatus string

const (
	BuildStatusSuccess   BuildStatus = "success"
	BuildStatusFailed    BuildStatus = "failed"
	BuildStatusCancelled BuildStatus = "cancelled"
)

// IsSuccess returns true if every unit succeeded.
func (s BuildStatus) IsSuccess() bool { return s == BuildStatusSuccess }

// DefaultBuildService is the standard BuildService.
type DefaultBuildService struct {
	invokerFactory func(unit config.BuildUnit) generator.Invoker
	recorder       metrics.Recorder
}

// NewBuildService returns a service that runs grpc_tools.protoc through each
// unit's interpreter.
func NewBuildService() *DefaultBuildService {
	return &DefaultBuildService{
		invokerFactory: func(unit config.BuildUnit) generator.Invoker {
			return generator.NewProtoc(unit.PythonExe)
		},
		recorder: metrics.NoopRecorder{},
	}
}

// WithInvoker makes every unit use inv.
func (s *DefaultBuildService) WithInvoker(inv generator.Invoker) *DefaultBuildService {
	s.invokerFactory = func(config.BuildUnit) generator.Invoker { return inv }
	return s
}

// WithRecorder sets the metrics recorder.
func (s *DefaultBuildService) WithRecorder(r metrics.Recorder) *DefaultBuildService {
	if r == nil {
		r = metrics.NoopRecorder{}
	}
	s.recorder = r
	return s
}

// Run resolves every selected unit and then runs them concurrently.
func (s *DefaultBuildService) Run(ctx context.Context, req BuildRequest) (*BuildResult, error) {
	start := time.Now()
	result := &BuildResult{StartTime: start}
	finish := func(status BuildStatus) {
		result.Status = status
		result.EndTime = time.Now()
		result.Duration = result.EndTime.Sub(start)
		s.recorder.ObserveBuildDuration(result.Duration)
	}

	buildID := observability.NewBuildID()
	ctx = observability.WithBuildID(ctx, buildID)

	if req.Config == nil {
		finish(BuildStatusFailed)
		return result, errors.ConfigError("config required").Build()
	}
	units, err := SelectUnits(req.Config, req.Options.Units)
	if err != nil {
		finish(BuildStatusFailed)
		return result, err
	}

	// Resolution is side-effect free; finish all of it before any process starts.
	plans := make([]*plan.Plan, len(units))
	for i, u := range units {
		p, err := plan.Resolve(u)
		if err != nil {
			finish(BuildStatusFailed)
			return result, err
		}
		plans[i] = p
	}

	report := NewBuildReport(buildID)
	result.Report = report
	result.Units = len(plans)
	observability.InfoContext(ctx, "Build started", logfields.Count(len(plans)))

	unitErrs := make([]error, len(plans))
	report.Units = make([]*UnitReport, len(plans))
	var g errgroup.Group
	g.SetLimit(max(req.Config.Build.Concurrency, 1))
	for i, p := range plans {
		ur := newUnitReport(p.Unit.Name, p.Unit.Out)
		ur.Sources, ur.Artifacts = len(p.Sources), len(p.Artifacts)
		ur.Filtered, ur.Shadowed = len(p.Filtered), len(p.Shadowed)
		report.Units[i] = ur
		g.Go(func() error {
			unitErrs[i] = s.runUnit(ctx, p, req, ur)
			return nil
		})
	}
	_ = g.Wait()
	report.Finish()

	var failed []error
	for _, err := range unitErrs {
		if err != nil {
			failed = append(failed, err)
		}
	}
	result.UnitsFailed = len(failed)

	switch {
	case ctx.Err() != nil:
		finish(BuildStatusCancelled)
		return result, errors.WrapError(ctx.Err(), errors.CategoryRuntime, "build canceled").Build()
	case len(failed) > 0:
		finish(BuildStatusFailed)
		observability.ErrorContext(ctx, "Build failed", logfields.Count(len(failed)))
		return result, combineUnitErrors(failed, len(plans))
	}
	finish(BuildStatusSuccess)
	observability.InfoContext(ctx, "Build finished", logfields.DurationMS(ms(result.Duration)))
	return result, nil
}

func (s *DefaultBuildService) runUnit(ctx context.Context, p *plan.Plan, req BuildRequest, ur *UnitReport) error {
	ctx = observability.WithUnit(ctx, p.Unit.Name)
	us := &UnitState{
		Plan:           p,
		Invoker:        s.invokerFactory(p.Unit),
		Recorder:       s.recorder,
		Options:        req.Options,
		RewriteWorkers: req.Config.Build.RewriteWorkers,
		Report:         ur,
	}
	err := RunStages(ctx, us, NewUnitPipeline(req.Options).Build())

	var se *StageError
	switch {
	case err == nil:
		ur.Outcome = OutcomeSuccess
	case stderrors.As(err, &se) && se.Kind == StageErrorCanceled:
		ur.Outcome = OutcomeCanceled
	default:
		ur.Outcome = OutcomeFailed
	}
	s.recorder.IncUnitOutcome(string(ur.Outcome))
	if err == nil {
		observability.InfoContext(ctx, "Unit built", logfields.Count(ur.Artifacts), logfields.Path(p.Unit.Out))
	}
	return err
}

// SelectUnits returns the configured units named in names, in configuration
// order, or all units when names is empty.
func SelectUnits(cfg *config.Config, names []string) ([]config.BuildUnit, error) {
	if len(names) == 0 {
		return cfg.Units, nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		if _, ok := cfg.UnitByName(n); !ok {
			return nil, errors.ConfigError("unknown unit").WithContext("unit", n).Build()
		}
		want[n] = true
	}
	var out []config.BuildUnit
	for _, u := range cfg.Units {
		if want[u.Name] {
			out = append(out, u)
		}
	}
	return out, nil
}

// categoryRank orders failure categories by severity for the overall exit status.
func categoryRank(c errors.ErrorCategory) int {
	switch c {
	case errors.CategoryInternal:
		return 6
	case errors.CategoryRuntime:
		return 5
	case errors.CategoryInvocation:
		return 4
	case errors.CategoryFileSystem:
		return 3
	case errors.CategoryRewrite, errors.CategoryAssembly:
		return 2
	case errors.CategoryVerification:
		return 1
	default:
		return 0
	}
}

// combineUnitErrors wraps every unit failure into one error whose category is
// the most severe one seen.
func combineUnitErrors(errs []error, total int) error {
	worst := errors.GetCategory(errs[0])
	for _, err := range errs[1:] {
		if c := errors.GetCategory(err); categoryRank(c) > categoryRank(worst) {
			worst = c
		}
	}
	if len(errs) == 1 {
		return errs[0]
	}
	names := make([]string, 0, len(errs))
	for _, err := range errs {
		var se *StageError
		if stderrors.As(err, &se) {
			names = append(names, se.Unit)
		}
	}
	return errors.WrapError(stderrors.Join(errs...), worst, fmt.Sprintf("%d of %d units failed", len(errs), total)).
		WithContext("units", strings.Join(names, ", ")).Build()
}
