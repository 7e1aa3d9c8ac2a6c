package metrics

import (
	"fmt"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "protoimporter"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once          sync.Once
	registry      *prom.Registry
	stageDuration *prom.HistogramVec
	buildDuration prom.Histogram
	stageResults  *prom.CounterVec
	unitOutcomes  *prom.CounterVec
	artifacts     *prom.CounterVec
	rewrites      *prom.CounterVec
	markers       *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics on reg.
// A nil reg gets a private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{registry: reg}
	pr.once.Do(func() {
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual unit stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"})
		pr.buildDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Total build duration across all units",
			Buckets:   prom.DefBuckets,
		})
		pr.stageResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"})
		pr.unitOutcomes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "unit_outcomes_total",
			Help:      "Build unit outcomes by final status",
		}, []string{"outcome"})
		pr.artifacts = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_resolved_total",
			Help:      "Artifacts resolved per build unit",
		}, []string{"unit"})
		pr.rewrites = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "imports_rewritten_total",
			Help:      "Import statements rewritten to relative form",
		}, []string{"unit"})
		pr.markers = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "package_markers_total",
			Help:      "Package markers created or removed",
		}, []string{"unit", "action"})
		reg.MustRegister(pr.stageDuration, pr.buildDuration, pr.stageResults, pr.unitOutcomes, pr.artifacts, pr.rewrites, pr.markers)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil || p.stageResults == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncUnitOutcome(outcome string) {
	if p == nil || p.unitOutcomes == nil {
		return
	}
	p.unitOutcomes.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) AddArtifacts(unit string, n int) {
	if p == nil || p.artifacts == nil {
		return
	}
	p.artifacts.WithLabelValues(unit).Add(float64(n))
}

func (p *PrometheusRecorder) AddRewrittenImports(unit string, n int) {
	if p == nil || p.rewrites == nil {
		return
	}
	p.rewrites.WithLabelValues(unit).Add(float64(n))
}

func (p *PrometheusRecorder) AddPackageMarkers(unit string, created, removed int) {
	if p == nil || p.markers == nil {
		return
	}
	p.markers.WithLabelValues(unit, "created").Add(float64(created))
	p.markers.WithLabelValues(unit, "removed").Add(float64(removed))
}

// WriteTextfile dumps the registry in the node_exporter textfile format.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	if p == nil || p.registry == nil {
		return nil
	}
	if err := prom.WriteToTextfile(path, p.registry); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}
