package build

import (
	"context"
	"fmt"
	"os"
	"strings"

	"git.home.luguber.info/inful/protoimporter/internal/config"
	"git.home.luguber.info/inful/protoimporter/internal/foundation/errors"
	"git.home.luguber.info/inful/protoimporter/internal/generator"
	"git.home.luguber.info/inful/protoimporter/internal/logfields"
	"git.home.luguber.info/inful/protoimporter/internal/metrics"
	"git.home.luguber.info/inful/protoimporter/internal/observability"
	"git.home.luguber.info/inful/protoimporter/internal/pkgtree"
	"git.home.luguber.info/inful/protoimporter/internal/plan"
	"git.home.luguber.info/inful/protoimporter/internal/rewrite"
	"git.home.luguber.info/inful/protoimporter/internal/verify"
)

// UnitState is the mutable state threaded through one unit's stages. The plan
// itself is never modified.
type UnitState struct {
	Plan           *plan.Plan
	Invoker        generator.Invoker
	Recorder       metrics.Recorder
	Options        BuildOptions
	RewriteWorkers int
	Report         *UnitReport
}

func stagePrepareOutput(_ context.Context, us *UnitState) error {
	out := us.Plan.OutRoot()
	if us.Options.PostprocessOnly || us.Options.CheckOnly {
		info, err := os.Stat(out)
		if err != nil || !info.IsDir() {
			return errors.FileSystemError("output root does not exist").
				WithContext("out", out).Build()
		}
		return nil
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return errors.FileSystemError("create output root").WithCause(err).WithContext("out", out).Build()
	}
	return nil
}

func stageGenerate(ctx context.Context, us *UnitState) error {
	unit := us.Plan.Unit
	flags := flagsFor(unit.Emit)
	for _, g := range us.Plan.Groups() {
		res, err := us.Invoker.Invoke(ctx, generator.Request{
			ProtoPath:    g.ProtoRoot,
			IncludePaths: unit.SourceRoots,
			OutputDir:    g.OutputDir,
			Files:        g.Files,
			Flags:        flags,
		})
		if err != nil {
			return err
		}
		if !res.Success {
			return errors.InvocationError("generator reported failure").
				WithContext("proto_root", g.ProtoRoot).
				WithContext("stderr", strings.TrimSpace(res.Stderr)).Build()
		}
		us.Report.Invocations++
		observability.DebugContext(ctx, "Generator finished", logfields.Root(g.ProtoRoot),
			logfields.Count(len(g.Files)), logfields.DurationMS(ms(res.Duration)))
	}

	rels := make([]string, len(us.Plan.Artifacts))
	for i, a := range us.Plan.Artifacts {
		rels[i] = a.RelPath()
	}
	if missing := generator.MissingOutputs(us.Plan.OutRoot(), rels); len(missing) > 0 {
		return errors.WrapError(fmt.Errorf("%w: %s", generator.ErrMissingArtifact, strings.Join(missing, ", ")),
			errors.CategoryInvocation, "generator output incomplete").
			WithContext("missing", len(missing)).Build()
	}
	us.Recorder.AddArtifacts(unit.Name, len(rels))
	return nil
}

func flagsFor(e config.Emit) generator.Flags {
	return generator.Flags{
		EmitGRPC:          e.GRPC,
		EmitTypeStubs:     e.TypeStubs,
		EmitGRPCTypeStubs: e.GRPC && e.GRPCTypeStubs,
	}
}

func stageRewrite(ctx context.Context, us *UnitState) error {
	opts := rewrite.Options{Workers: us.RewriteWorkers}
	if us.Plan.Unit.Emit.HeaderComment {
		opts.Header = us.Plan.Unit.Emit.HeaderText
	}
	stats, err := rewrite.Tree(ctx, us.Plan, opts)
	us.Report.FilesRewritten = stats.FilesChanged
	us.Report.ImportsRewritten = stats.Imports
	if err != nil {
		return err
	}
	us.Recorder.AddRewrittenImports(us.Plan.Unit.Name, stats.Imports)
	observability.InfoContext(ctx, "Imports rewritten",
		logfields.Count(stats.Imports), logfields.Status(fmt.Sprintf("%d/%d files changed", stats.FilesChanged, stats.Files)))
	return nil
}

func stageAssemble(ctx context.Context, us *UnitState) error {
	res, err := pkgtree.Assemble(us.Plan.OutRoot(), us.Plan.Artifacts, us.Plan.Unit.PackageMode)
	us.Report.MarkersCreated = res.Created
	us.Report.MarkersRemoved = res.Removed
	us.Report.Packages = len(res.Nodes)
	if err != nil {
		return err
	}
	us.Recorder.AddPackageMarkers(us.Plan.Unit.Name, res.Created, res.Removed)
	observability.DebugContext(ctx, "Package tree assembled",
		logfields.Count(len(res.Nodes)), logfields.Status(string(us.Plan.Unit.PackageMode)))
	return nil
}

func stageVerify(ctx context.Context, us *UnitState) error {
	problems, err := verify.Unit(ctx, us.Plan, verify.OptionsFor(us.Plan))
	us.Report.Problems = problems
	return err
}
