package verify

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/protoimporter/internal/config"
	"git.home.luguber.info/inful/protoimporter/internal/foundation/errors"
	"git.home.luguber.info/inful/protoimporter/internal/plan"
)

func testPlan(out string, protos ...string) *plan.Plan {
	p := &plan.Plan{Unit: config.BuildUnit{Name: "test", Out: out}}
	for _, rel := range protos {
		src := plan.SourceFile{Root: "/src", RelPath: rel}
		p.Sources = append(p.Sources, src)
		for _, k := range []plan.Kind{plan.KindMessageModule, plan.KindMessageStub} {
			p.Artifacts = append(p.Artifacts, plan.Artifact{Source: src, Module: plan.ModulePathFor(rel, k), Kind: k})
		}
	}
	return p
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, body := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
}

func TestTreeCleanOutput(t *testing.T) {
	out := t.TempDir()
	p := testPlan(out, "a/b/x.proto", "a/c/y.proto", "top.proto")
	writeTree(t, out, map[string]string{
		"a/b/x_pb2.py":  "from ..c import y_pb2 as a_dot_c_dot_y__pb2\nfrom ... import top_pb2\nimport grpc\n",
		"a/b/x_pb2.pyi": "from ..c.y_pb2 import Thing\nfrom .. import c\nimport builtins\n",
		"a/c/y_pb2.py":  "from google.protobuf import descriptor as _descriptor\n",
		"a/c/y_pb2.pyi": "",
		"top_pb2.py":    "from .a.b import x_pb2\n",
		"top_pb2.pyi":   "",
	})

	problems, err := Tree(out, p)
	require.NoError(t, err)
	assert.Empty(t, problems)
}

func TestTreeReportsEveryProblem(t *testing.T) {
	out := t.TempDir()
	p := testPlan(out, "a/x.proto", "a/y.proto", "b/w.proto", "gone.proto")
	writeTree(t, out, map[string]string{
		"a/x_pb2.py": "from ... import y_pb2\nfrom . import missing_pb2\nfrom .nope import z\n" +
			"from ..b import missing_pb2 as b_dot_missing__pb2\nfrom ..b import w_pb2 as b_dot_w__pb2\n" +
			"from .y_pb2 import Money\n",
		"a/x_pb2.pyi": "import a.y_pb2\nfrom a import y_pb2\n",
		"a/y_pb2.py":  "",
		"a/y_pb2.pyi": "",
		"b/w_pb2.py":  "",
		"b/w_pb2.pyi": "",
		// gone_pb2.py and gone_pb2.pyi were never written
	})

	problems, err := Tree(out, p)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryVerification))

	type key struct {
		artifact string
		line     int
		reason   string
	}
	var got []key
	for _, pr := range problems {
		got = append(got, key{pr.Artifact, pr.Line, pr.Reason})
	}
	assert.ElementsMatch(t, []key{
		{"a/x_pb2.py", 1, ReasonEscapesRoot},
		{"a/x_pb2.py", 2, ReasonDangling},
		{"a/x_pb2.py", 3, ReasonDangling},
		{"a/x_pb2.py", 4, ReasonDangling},
		{"a/x_pb2.pyi", 1, ReasonAbsoluteInTree},
		{"a/x_pb2.pyi", 2, ReasonAbsoluteInTree},
		{"gone_pb2.py", 0, ReasonMissingArtifact},
		{"gone_pb2.pyi", 0, ReasonMissingArtifact},
	}, got)
	assert.Contains(t, err.Error(), "a/x_pb2.py:2: relative import does not resolve (from . import missing_pb2)")
}

func TestTreeNamespaceDirectoriesResolve(t *testing.T) {
	out := t.TempDir()
	p := testPlan(out, "a/b/x.proto", "a/c/y.proto")
	writeTree(t, out, map[string]string{
		"a/b/x_pb2.py":  "from .. import c\n",
		"a/b/x_pb2.pyi": "",
		"a/c/y_pb2.py":  "",
		"a/c/y_pb2.pyi": "",
	})
	_, err := Tree(out, p)
	require.NoError(t, err)
}

func TestPackageRoot(t *testing.T) {
	base := t.TempDir()
	out := filepath.Join(base, "gen")
	require.NoError(t, os.MkdirAll(out, 0o755))

	pp, pkg := PackageRoot(out)
	assert.Equal(t, base, pp)
	assert.Equal(t, "gen", pkg)

	nested := filepath.Join(base, "app", "generated")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "app", "__init__.py"), nil, 0o644))
	pp, pkg = PackageRoot(nested)
	assert.Equal(t, base, pp)
	assert.Equal(t, "app.generated", pkg)
}

func TestImportScriptAndParse(t *testing.T) {
	script := ImportScript("gen", []string{"a.x_pb2", "top_pb2"})
	assert.Contains(t, script, `("a.x_pb2", "gen.a.x_pb2"),`)
	assert.Contains(t, script, `("top_pb2", "gen.top_pb2"),`)
	assert.Contains(t, script, "IMPORT_ERROR:")

	problems := ParseImportErrors("IMPORT_TEST_SUMMARY:succeeded=1,failed=1,total=2\n" +
		"IMPORT_ERROR:a.x_pb2:ImportError: attempted relative import beyond top-level package\nnoise\n")
	require.Len(t, problems, 1)
	assert.Equal(t, "a.x_pb2", problems[0].Artifact)
	assert.Equal(t, ReasonImportFailed, problems[0].Reason)
	assert.Equal(t, "ImportError: attempted relative import beyond top-level package", problems[0].Detail)
}

func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte("#!/bin/sh\n"+body), 0o755))
	return p
}

func TestImportCheckParsesFailures(t *testing.T) {
	out := filepath.Join(t.TempDir(), "gen")
	p := testPlan(out, "a/x.proto", "y.proto")
	python := writeScript(t, "python", `
grep -q '"gen.a.x_pb2"' "$1" || exit 3
echo "IMPORT_TEST_SUMMARY:succeeded=1,failed=1,total=2" >&2
echo "IMPORT_ERROR:y_pb2:ModuleNotFoundError: No module named 'grpc'" >&2
exit 1
`)
	require.NoError(t, os.MkdirAll(out, 0o755))

	problems, err := ImportCheck(context.Background(), p, ImportCheckOptions{PythonExe: python, WorkspaceDir: t.TempDir()})
	require.NoError(t, err)
	require.Len(t, problems, 1)
	assert.Equal(t, "y_pb2", problems[0].Artifact)
	assert.Contains(t, problems[0].Detail, "No module named 'grpc'")
}

func TestImportCheckInterpreterCrash(t *testing.T) {
	out := filepath.Join(t.TempDir(), "gen")
	require.NoError(t, os.MkdirAll(out, 0o755))
	python := writeScript(t, "python", "echo boom >&2\nexit 2\n")

	_, err := ImportCheck(context.Background(), testPlan(out, "x.proto"), ImportCheckOptions{PythonExe: python, WorkspaceDir: t.TempDir()})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryVerification))
	assert.Contains(t, err.Error(), "boom")
}

func TestImportCheckRelativeInterpreter(t *testing.T) {
	out := filepath.Join(t.TempDir(), "gen")
	require.NoError(t, os.MkdirAll(out, 0o755))
	python := writeScript(t, "python", "exit 0\n")
	t.Chdir(filepath.Dir(filepath.Dir(python)))
	rel := filepath.Join(filepath.Base(filepath.Dir(python)), "python")

	problems, err := ImportCheck(context.Background(), testPlan(out, "x.proto"), ImportCheckOptions{PythonExe: rel, WorkspaceDir: t.TempDir()})
	require.NoError(t, err)
	assert.Empty(t, problems)
}

func TestRunChecker(t *testing.T) {
	ok := writeScript(t, "mypy", "exit 0\n")
	problems, err := RunChecker(context.Background(), "mypy", []string{ok}, "/out")
	require.NoError(t, err)
	assert.Empty(t, problems)

	bad := writeScript(t, "pyright", "echo \"$1: error: bad\"\nexit 1\n")
	problems, err = RunChecker(context.Background(), "pyright", []string{bad}, "/out")
	require.NoError(t, err)
	require.Len(t, problems, 1)
	assert.Equal(t, ReasonChecker, problems[0].Reason)
	assert.Equal(t, "/out: error: bad", problems[0].Detail)

	_, err = RunChecker(context.Background(), "mypy", []string{"/definitely/not/here"}, "/out")
	assert.True(t, errors.HasCategory(err, errors.CategoryVerification))

	problems, err = RunChecker(context.Background(), "mypy", nil, "/out")
	require.NoError(t, err)
	assert.Nil(t, problems)
}

func TestUnitRunsConfiguredCheckers(t *testing.T) {
	out := t.TempDir()
	p := testPlan(out, "x.proto")
	writeTree(t, out, map[string]string{"x_pb2.py": "", "x_pb2.pyi": ""})
	bad := writeScript(t, "mypy", "echo nope\nexit 1\n")

	problems, err := Unit(context.Background(), p, Options{MypyCmd: []string{bad}})
	require.Error(t, err)
	require.Len(t, problems, 1)
	assert.Equal(t, "mypy", problems[0].Artifact)
}
