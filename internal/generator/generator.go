// Package generator is the boundary to the external protobuf compiler. The
// build pipeline only sees the Invoker interface, so tests and dry runs can
// swap the real grpc_tools.protoc process for an in-process fake.
package generator

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"time"
)

// ErrMissingArtifact is wrapped when the generator reported success but an
// expected output file is absent.
var ErrMissingArtifact = stderrors.New("expected artifact was not generated")

// Flags selects optional generator outputs.
type Flags struct {
	EmitGRPC          bool
	EmitTypeStubs     bool
	EmitGRPCTypeStubs bool
}

// Request is one generator call for the files of a single proto root.
type Request struct {
	ProtoPath    string   // root the Files are relative to
	IncludePaths []string // further roots searched for imports, in precedence order
	OutputDir    string
	Files        []string
	Flags        Flags
}

// Result captures process output. Success is false when the process ran and failed.
type Result struct {
	Success  bool
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Invoker runs the external generator.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (Result, error)
}

// MissingOutputs returns the entries of rels (slash paths below outDir) that do not exist.
func MissingOutputs(outDir string, rels []string) []string {
	var missing []string
	for _, rel := range rels {
		if _, err := os.Stat(filepath.Join(outDir, filepath.FromSlash(rel))); err != nil {
			missing = append(missing, rel)
		}
	}
	return missing
}
