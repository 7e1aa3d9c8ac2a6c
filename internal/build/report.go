package build

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/protoimporter/internal/fsutil"
	"git.home.luguber.info/inful/protoimporter/internal/verify"
	"git.home.luguber.info/inful/protoimporter/internal/version"
)

// Outcome is the final state of a unit or a whole build.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
)

// UnitReport records what happened to one unit.
type UnitReport struct {
	Name             string                 `json:"name"`
	Out              string                 `json:"out"`
	Outcome          Outcome                `json:"outcome"`
	Sources          int                    `json:"sources"`
	Artifacts        int                    `json:"artifacts"`
	Filtered         int                    `json:"filtered"`
	Shadowed         int                    `json:"shadowed"`
	Invocations      int                    `json:"invocations"`
	FilesRewritten   int                    `json:"files_rewritten"`
	ImportsRewritten int                    `json:"imports_rewritten"`
	Packages         int                    `json:"packages"`
	MarkersCreated   int                    `json:"markers_created"`
	MarkersRemoved   int                    `json:"markers_removed"`
	Problems         []verify.Problem       `json:"problems,omitempty"`
	StageDurations   map[string]float64     `json:"stage_durations_ms"`
	StageResults     map[string]StageResult `json:"stage_results"`
	FailedStage      string                 `json:"failed_stage,omitempty"`
	Error            string                 `json:"error,omitempty"`
}

func newUnitReport(name, out string) *UnitReport {
	return &UnitReport{
		Name:           name,
		Out:            out,
		StageDurations: make(map[string]float64),
		StageResults:   make(map[string]StageResult),
	}
}

// BuildReport captures one run across all selected units.
type BuildReport struct {
	SchemaVersion int           `json:"schema_version"`
	BuildID       string        `json:"build_id"`
	Version       string        `json:"version"`
	Start         time.Time     `json:"start"`
	End           time.Time     `json:"end"`
	Outcome       Outcome       `json:"outcome"`
	Units         []*UnitReport `json:"units"`
}

// NewBuildReport starts a report for buildID.
func NewBuildReport(buildID string) *BuildReport {
	return &BuildReport{
		SchemaVersion: 1,
		BuildID:       buildID,
		Version:       version.Resolved(),
		Start:         time.Now(),
	}
}

// Finish stamps the end time and derives the overall outcome from the units.
func (r *BuildReport) Finish() {
	r.End = time.Now()
	r.Outcome = OutcomeSuccess
	for _, u := range r.Units {
		switch u.Outcome {
		case OutcomeCanceled:
			r.Outcome = OutcomeCanceled
		case OutcomeFailed:
			if r.Outcome != OutcomeCanceled {
				r.Outcome = OutcomeFailed
			}
		}
	}
}

// Duration is the wall time of the build.
func (r *BuildReport) Duration() time.Duration {
	if r.End.IsZero() {
		return time.Since(r.Start)
	}
	return r.End.Sub(r.Start)
}

// Summary renders a short human-readable report.
func (r *BuildReport) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "build %s: %s in %s\n", r.BuildID, r.Outcome, r.Duration().Round(time.Millisecond))
	for _, u := range r.Units {
		fmt.Fprintf(&b, "  %s -> %s: %s, %d artifacts, %d imports rewritten, %d markers created, %d removed",
			u.Name, u.Out, u.Outcome, u.Artifacts, u.ImportsRewritten, u.MarkersCreated, u.MarkersRemoved)
		if u.FailedStage != "" {
			fmt.Fprintf(&b, " (failed in %s)", u.FailedStage)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Persist writes the report as JSON to path, replacing any previous report atomically.
func (r *BuildReport) Persist(path string) error {
	if r.End.IsZero() {
		r.Finish()
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report json: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("ensure report directory: %w", err)
	}
	if err := fsutil.WriteFileAtomic(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
