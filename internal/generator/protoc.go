package generator

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/protoimporter/internal/foundation/errors"
)

// Protoc runs `python -m grpc_tools.protoc` through the configured interpreter.
type Protoc struct {
	// PythonExe is the interpreter command. It may carry leading arguments,
	// e.g. "uv run python".
	PythonExe string
}

// NewProtoc returns an invoker using pythonExe (python3 when empty).
func NewProtoc(pythonExe string) *Protoc {
	if strings.TrimSpace(pythonExe) == "" {
		pythonExe = "python3"
	}
	return &Protoc{PythonExe: pythonExe}
}

// Args builds the grpc_tools.protoc argument list for req. Roots keep their
// declared order so an import present in several roots resolves to the first,
// as it does in the plan. ProtoPath is appended only when it is not declared.
func (p *Protoc) Args(req Request) []string {
	args := []string{"-m", "grpc_tools.protoc"}
	declared := false
	for _, inc := range req.IncludePaths {
		if inc == req.ProtoPath {
			declared = true
		}
		args = append(args, "--proto_path="+inc)
	}
	if !declared {
		args = append(args, "--proto_path="+req.ProtoPath)
	}
	args = append(args, "--python_out="+req.OutputDir)
	if req.Flags.EmitGRPC {
		args = append(args, "--grpc_python_out="+req.OutputDir)
	}
	if req.Flags.EmitTypeStubs {
		args = append(args, "--mypy_out="+req.OutputDir)
	}
	if req.Flags.EmitGRPC && req.Flags.EmitGRPCTypeStubs {
		args = append(args, "--mypy_grpc_out="+req.OutputDir)
	}
	return append(args, req.Files...)
}

// Invoke runs the compiler with the proto root as working directory so the
// relative file names exist on disk for protoc to map onto a --proto_path.
func (p *Protoc) Invoke(ctx context.Context, req Request) (Result, error) {
	argv := strings.Fields(p.PythonExe)
	if len(argv) == 0 {
		return Result{}, errors.InvocationError("python interpreter not configured").Build()
	}
	exe, err := exec.LookPath(argv[0])
	if err != nil {
		return Result{}, errors.WrapError(err, errors.CategoryInvocation, "python interpreter not found").
			WithContext("python_exe", p.PythonExe).Build()
	}
	// cmd.Dir moves the child into the proto root, so a relative interpreter
	// path has to be pinned to the caller's working directory first.
	if exe, err = filepath.Abs(exe); err != nil {
		return Result{}, errors.WrapError(err, errors.CategoryInvocation, "resolve python interpreter").
			WithContext("python_exe", p.PythonExe).Build()
	}

	args := append(argv[1:len(argv):len(argv)], p.Args(req)...)
	cmd := exec.CommandContext(ctx, exe, args...)
	cmd.Dir = req.ProtoPath
	cmd.Env = withPathPrefix(os.Environ(), filepath.Dir(exe))
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("Invoking grpc_tools.protoc", slog.String("exe", exe), slog.Any("args", args), slog.String("dir", req.ProtoPath))
	start := time.Now()
	runErr := cmd.Run()
	res := Result{
		Success:  runErr == nil,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	if res.Stderr != "" {
		slog.Debug("grpc_tools.protoc stderr", slog.String("output", res.Stderr))
	}
	if runErr != nil {
		output := strings.TrimSpace(res.Stderr)
		if output == "" {
			output = strings.TrimSpace(res.Stdout)
		}
		cause := runErr
		if output != "" {
			cause = fmt.Errorf("%w: %s", runErr, output)
		}
		return res, errors.WrapError(cause, errors.CategoryInvocation, "grpc_tools.protoc failed").
			WithContext("proto_root", req.ProtoPath).
			WithContext("files", len(req.Files)).
			Build()
	}
	return res, nil
}

// withPathPrefix puts dir in front of PATH so protoc plugins installed next to
// the interpreter (protoc-gen-mypy) are found.
func withPathPrefix(env []string, dir string) []string {
	out := make([]string, 0, len(env)+1)
	found := false
	for _, kv := range env {
		if v, ok := strings.CutPrefix(kv, "PATH="); ok {
			kv = "PATH=" + dir + string(os.PathListSeparator) + v
			found = true
		}
		out = append(out, kv)
	}
	if !found {
		out = append(out, "PATH="+dir)
	}
	return out
}

// CheckAvailable verifies that the interpreter can import grpc_tools.
func CheckAvailable(ctx context.Context, pythonExe string) error {
	argv := strings.Fields(pythonExe)
	if len(argv) == 0 {
		return errors.InvocationError("python interpreter not configured").Build()
	}
	exe, err := exec.LookPath(argv[0])
	if err != nil {
		return errors.WrapError(err, errors.CategoryInvocation, "python interpreter not found").
			WithContext("python_exe", pythonExe).Build()
	}
	args := append(argv[1:len(argv):len(argv)], "-c", "import grpc_tools.protoc")
	out, err := exec.CommandContext(ctx, exe, args...).CombinedOutput()
	if err != nil {
		return errors.WrapError(fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out))),
			errors.CategoryInvocation, "grpc_tools is not importable").
			WithContext("python_exe", pythonExe).Build()
	}
	return nil
}
