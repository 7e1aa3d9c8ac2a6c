package verify

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/protoimporter/internal/foundation/errors"
	"git.home.luguber.info/inful/protoimporter/internal/logfields"
	"git.home.luguber.info/inful/protoimporter/internal/plan"
	"git.home.luguber.info/inful/protoimporter/internal/workspace"
)

const (
	importErrorPrefix   = "IMPORT_ERROR:"
	importSummaryPrefix = "IMPORT_TEST_SUMMARY:"
)

// PackageRoot decides how the output root is imported at runtime. It returns
// the directory to put on PYTHONPATH and the dotted package prefix. When the
// parent of outRoot is itself a package, the tree is imported as parent.out
// from the grandparent.
func PackageRoot(outRoot string) (pythonPath, pkg string) {
	outRoot = filepath.Clean(outRoot)
	name := filepath.Base(outRoot)
	parent := filepath.Dir(outRoot)
	if parent == outRoot {
		return outRoot, ""
	}
	if _, err := os.Stat(parent); err != nil {
		return outRoot, ""
	}
	if _, err := os.Stat(filepath.Join(parent, "__init__.py")); err == nil {
		grand := filepath.Dir(parent)
		if grand != parent {
			return grand, filepath.Base(parent) + "." + name
		}
	}
	return parent, name
}

// ImportScript renders a Python program that imports every module and prints
// one IMPORT_ERROR line per failure to stderr.
func ImportScript(pkg string, modules []string) string {
	var b strings.Builder
	b.WriteString("import importlib\nimport sys\n\nfailed = []\nsucceeded = 0\nmodules = [\n")
	for _, m := range modules {
		full := m
		if pkg != "" {
			full = pkg + "." + m
		}
		fmt.Fprintf(&b, "    (%q, %q),\n", m, full)
	}
	b.WriteString(`]

for short, full in modules:
    try:
        importlib.import_module(full)
        succeeded += 1
    except Exception as e:
        failed.append((short, type(e).__name__ + ": " + str(e).replace("\n", " ")))

print(f"IMPORT_TEST_SUMMARY:succeeded={succeeded},failed={len(failed)},total={len(modules)}", file=sys.stderr)
for short, err in failed:
    print(f"IMPORT_ERROR:{short}:{err}", file=sys.stderr)
sys.exit(1 if failed else 0)
`)
	return b.String()
}

// ParseImportErrors extracts the failures reported by an ImportScript run.
func ParseImportErrors(stderr string) []Problem {
	var problems []Problem
	sc := bufio.NewScanner(strings.NewReader(stderr))
	for sc.Scan() {
		line, ok := strings.CutPrefix(strings.TrimSpace(sc.Text()), importErrorPrefix)
		if !ok {
			continue
		}
		module, detail, _ := strings.Cut(line, ":")
		problems = append(problems, Problem{Artifact: module, Reason: ReasonImportFailed, Detail: detail})
	}
	return problems
}

// ImportCheckOptions configures a runtime import check.
type ImportCheckOptions struct {
	PythonExe    string
	WorkspaceDir string // parent of the scratch directory; os.TempDir when empty
	KeepScript   bool
}

// ImportCheck imports every generated .py module of p with the configured
// interpreter and reports the modules that fail.
func ImportCheck(ctx context.Context, p *plan.Plan, opts ImportCheckOptions) ([]Problem, error) {
	modules := importableModules(p)
	if len(modules) == 0 {
		return nil, nil
	}
	argv, err := command(opts.PythonExe)
	if err != nil {
		return nil, err
	}

	ws := workspace.NewManager(opts.WorkspaceDir, "protoimporter-importcheck")
	if opts.KeepScript {
		ws.Keep()
	}
	if err := ws.Create(); err != nil {
		return nil, errors.FileSystemError("create import-check workspace").WithCause(err).Build()
	}
	defer func() {
		if err := ws.Cleanup(); err != nil {
			slog.Warn("Workspace cleanup failed", logfields.Error(err))
		}
	}()

	pythonPath, pkg := PackageRoot(p.OutRoot())
	script, err := ws.WriteFile("import_check.py", []byte(ImportScript(pkg, modules)))
	if err != nil {
		return nil, errors.FileSystemError("write import-check script").WithCause(err).Build()
	}

	cmd := exec.CommandContext(ctx, argv[0], append(argv[1:], script)...)
	cmd.Dir = ws.Path()
	cmd.Env = withPythonPath(os.Environ(), pythonPath)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("Running import check", logfields.Unit(p.Unit.Name),
		slog.String("pythonpath", pythonPath), slog.String("package", pkg), logfields.Count(len(modules)))
	runErr := cmd.Run()
	problems := ParseImportErrors(stderr.String())
	if runErr != nil && len(problems) == 0 {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.WrapError(fmt.Errorf("%w: %s", runErr, strings.TrimSpace(stderr.String())),
			errors.CategoryVerification, "import check did not run").
			WithContext("unit", p.Unit.Name).Build()
	}
	for _, line := range strings.Split(stderr.String(), "\n") {
		if summary, ok := strings.CutPrefix(strings.TrimSpace(line), importSummaryPrefix); ok {
			slog.Debug("Import check finished", logfields.Unit(p.Unit.Name), slog.String("summary", summary))
		}
	}
	return problems, nil
}

func importableModules(p *plan.Plan) []string {
	var modules []string
	for _, a := range p.Artifacts {
		if !a.Kind.IsStub() {
			modules = append(modules, a.Module.String())
		}
	}
	sort.Strings(modules)
	return modules
}

func withPythonPath(env []string, dir string) []string {
	out := make([]string, 0, len(env)+1)
	found := false
	for _, kv := range env {
		if v, ok := strings.CutPrefix(kv, "PYTHONPATH="); ok {
			if v != "" {
				kv = "PYTHONPATH=" + dir + string(os.PathListSeparator) + v
			} else {
				kv = "PYTHONPATH=" + dir
			}
			found = true
		}
		out = append(out, kv)
	}
	if !found {
		out = append(out, "PYTHONPATH="+dir)
	}
	return out
}

// command splits a configured command line and resolves its executable.
func command(line string) ([]string, error) {
	argv := strings.Fields(line)
	if len(argv) == 0 {
		return nil, errors.VerificationError("no interpreter configured for the import check").Build()
	}
	exe, err := exec.LookPath(argv[0])
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryVerification, "command not found").
			WithContext("command", argv[0]).Build()
	}
	// The check runs inside the scratch workspace; keep relative paths valid.
	if exe, err = filepath.Abs(exe); err != nil {
		return nil, errors.WrapError(err, errors.CategoryVerification, "resolve command").
			WithContext("command", argv[0]).Build()
	}
	argv[0] = exe
	return argv, nil
}
