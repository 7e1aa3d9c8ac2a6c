package build

import (
	"context"
	"fmt"
)

// StageName is a strongly-typed identifier for a unit stage.
type StageName string

// Canonical stage names.
const (
	StagePrepareOutput StageName = "prepare_output"
	StageGenerate      StageName = "generate"
	StageRewrite       StageName = "rewrite"
	StageAssemble      StageName = "assemble"
	StageVerify        StageName = "verify"
)

// StageErrorKind classifies the outcome of a failed stage.
type StageErrorKind string

const (
	StageErrorFatal    StageErrorKind = "fatal"    // Unit must abort.
	StageErrorCanceled StageErrorKind = "canceled" // Context cancellation.
)

// StageError identifies the unit and stage that failed.
type StageError struct {
	Kind  StageErrorKind
	Stage StageName
	Unit  string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("unit %s: %s stage %s: %v", e.Unit, e.Kind, e.Stage, e.Err)
}
func (e *StageError) Unwrap() error { return e.Err }

// StageResult captures the high-level outcome of a stage.
type StageResult string

const (
	StageResultSuccess  StageResult = "success"
	StageResultFailed   StageResult = "failed"
	StageResultCanceled StageResult = "canceled"
	StageResultSkipped  StageResult = "skipped"
)

// Stage is one step of a unit pipeline.
type Stage func(ctx context.Context, us *UnitState) error

// StageDef pairs a stage name with its executing function.
type StageDef struct {
	Name StageName
	Fn   Stage
}

// Pipeline is a fluent builder for ordered stage definitions.
type Pipeline struct{ Defs []StageDef }

// NewPipeline creates an empty pipeline.
func NewPipeline() *Pipeline { return &Pipeline{Defs: make([]StageDef, 0, 5)} }

// Add appends a stage unconditionally.
func (p *Pipeline) Add(name StageName, fn Stage) *Pipeline {
	p.Defs = append(p.Defs, StageDef{Name: name, Fn: fn})
	return p
}

// AddIf appends a stage only if cond is true.
func (p *Pipeline) AddIf(cond bool, name StageName, fn Stage) *Pipeline {
	if cond {
		p.Add(name, fn)
	}
	return p
}

// Build returns a copy of the stage definitions.
func (p *Pipeline) Build() []StageDef {
	out := make([]StageDef, len(p.Defs))
	copy(out, p.Defs)
	return out
}

// NewUnitPipeline returns the stages a unit runs under opts.
func NewUnitPipeline(opts BuildOptions) *Pipeline {
	generate := !opts.PostprocessOnly && !opts.CheckOnly
	return NewPipeline().
		Add(StagePrepareOutput, stagePrepareOutput).
		AddIf(generate, StageGenerate, stageGenerate).
		AddIf(!opts.CheckOnly, StageRewrite, stageRewrite).
		AddIf(!opts.CheckOnly, StageAssemble, stageAssemble).
		AddIf(!opts.NoVerify, StageVerify, stageVerify)
}
