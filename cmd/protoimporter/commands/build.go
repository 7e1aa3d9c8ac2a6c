package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/protoimporter/internal/build"
	"git.home.luguber.info/inful/protoimporter/internal/config"
	"git.home.luguber.info/inful/protoimporter/internal/foundation/errors"
	"git.home.luguber.info/inful/protoimporter/internal/generator"
	"git.home.luguber.info/inful/protoimporter/internal/logfields"
	"git.home.luguber.info/inful/protoimporter/internal/metrics"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	NoVerify        bool     `name:"no-verify" help:"Skip the verify stage"`
	PostprocessOnly bool     `name:"postprocess-only" help:"Skip generation; rewrite and assemble the existing output roots"`
	Unit            []string `short:"u" help:"Only build the named unit (repeatable)"`
	Generator       string   `help:"Generator backend" enum:"protoc,fake" default:"protoc"`
	Report          string   `help:"Write a JSON build report to this file" type:"path"`
	MetricsFile     string   `name:"metrics-file" help:"Write Prometheus metrics in textfile format to this file" type:"path"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	ctx, stop := signalContext()
	defer stop()

	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	_, err = runBuild(ctx, g, cfg, b.invocation(build.BuildOptions{
		NoVerify:        b.NoVerify,
		PostprocessOnly: b.PostprocessOnly,
		Units:           b.Unit,
	}))
	return err
}

func (b *BuildCmd) invocation(opts build.BuildOptions) buildInvocation {
	return buildInvocation{
		Options:     opts,
		Generator:   b.Generator,
		ReportPath:  b.Report,
		MetricsPath: b.MetricsFile,
	}
}

// buildInvocation carries the per-run knobs shared by build, check and watch.
type buildInvocation struct {
	Options     build.BuildOptions
	Generator   string
	ReportPath  string
	MetricsPath string
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// newService wires the generator backend and metrics recorder into a build service.
func newService(inv buildInvocation) (*build.DefaultBuildService, *metrics.PrometheusRecorder, error) {
	svc := build.NewBuildService()
	switch inv.Generator {
	case "", "protoc":
	case "fake":
		svc = svc.WithInvoker(generator.NewFake())
	default:
		return nil, nil, errors.ValidationError("unknown generator").WithContext("generator", inv.Generator).Build()
	}
	var rec *metrics.PrometheusRecorder
	if inv.MetricsPath != "" {
		rec = metrics.NewPrometheusRecorder(prom.NewRegistry())
		svc = svc.WithRecorder(rec)
	}
	return svc, rec, nil
}

// runBuild executes one build, prints its summary and writes the optional
// report and metrics files. Those files are written even when the build fails.
func runBuild(ctx context.Context, g *Global, cfg *config.Config, inv buildInvocation) (*build.BuildResult, error) {
	svc, rec, err := newService(inv)
	if err != nil {
		return nil, err
	}
	result, runErr := svc.Run(ctx, build.BuildRequest{Config: cfg, Options: inv.Options})

	if result != nil && result.Report != nil {
		_, _ = fmt.Fprint(g.out(), result.Report.Summary())
		if inv.ReportPath != "" {
			if err := result.Report.Persist(inv.ReportPath); err != nil {
				slog.Warn("Failed to write build report", logfields.Path(inv.ReportPath), logfields.Error(err))
			}
		}
	}
	if rec != nil {
		if err := rec.WriteTextfile(inv.MetricsPath); err != nil {
			slog.Warn("Failed to write metrics", logfields.Path(inv.MetricsPath), logfields.Error(err))
		}
	}
	return result, runErr
}
