// Package build runs the per-unit pipeline that turns a configuration into
// importable Python package trees.
//
// Every unit is resolved up front so configuration mistakes abort the run
// before any generator process starts. Units then run concurrently, each as a
// strict sequence of stages: prepare_output, generate, rewrite, assemble and
// verify. A failing unit does not stop the others; the overall error carries
// the most severe category seen.
package build
