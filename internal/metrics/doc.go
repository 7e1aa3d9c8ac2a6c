// Package metrics records build and stage measurements.
//
// Components receive a Recorder through injection and default to NoopRecorder,
// so call sites never check for nil. The CLI swaps in a PrometheusRecorder when
// --metrics-file is given and writes the registry out in the textfile format
// after the build:
//
//	rec := metrics.NewPrometheusRecorder(nil)
//	svc := build.NewBuildService().WithRecorder(rec)
//	...
//	_ = rec.WriteTextfile("build.prom")
package metrics
