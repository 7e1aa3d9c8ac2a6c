package rewrite

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/lithammer/dedent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/protoimporter/internal/config"
	"git.home.luguber.info/inful/protoimporter/internal/foundation/errors"
	"git.home.luguber.info/inful/protoimporter/internal/plan"
)

// testPlan builds a plan for protos without touching the filesystem.
func testPlan(out string, protos []string, filtered ...string) *plan.Plan {
	p := &plan.Plan{Unit: config.BuildUnit{Name: "test", Out: out}}
	for _, rel := range protos {
		src := plan.SourceFile{Root: "/src", RelPath: rel}
		p.Sources = append(p.Sources, src)
		for _, k := range []plan.Kind{plan.KindMessageModule, plan.KindGRPCModule, plan.KindMessageStub} {
			p.Artifacts = append(p.Artifacts, plan.Artifact{Source: src, Module: plan.ModulePathFor(rel, k), Kind: k})
		}
	}
	for _, rel := range filtered {
		p.Filtered = append(p.Filtered, plan.SourceFile{Root: "/src", RelPath: rel})
	}
	return p
}

func mp(s string) plan.ModulePath { return plan.ParseModulePath(s) }

func TestRelativeImport(t *testing.T) {
	cases := []struct {
		importer, target, alias, want string
	}{
		{"payment.payment_pb2", "payment.types_pb2", "", "from . import types_pb2"},
		{"payment.payment_pb2", "payment.types_pb2", "x", "from . import types_pb2 as x"},
		{"payment.payment_pb2", "payment.types_pb2", "types_pb2", "from . import types_pb2"},
		{"a.b.x_pb2", "a.c.y_pb2", "", "from ..c import y_pb2"},
		{"a.b.x_pb2", "y_pb2", "", "from ... import y_pb2"},
		{"x_pb2", "a.b.y_pb2", "", "from .a.b import y_pb2"},
		{"x_pb2", "y_pb2", "", "from . import y_pb2"},
		{"a.x_pb2", "a.b.y_pb2", "", "from .b import y_pb2"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, RelativeImport(mp(tc.importer), mp(tc.target), tc.alias), "%s -> %s", tc.importer, tc.target)
	}
	assert.Equal(t, ".types_pb2", RelativeModule(mp("payment.payment_pb2"), mp("payment.types_pb2")))
	assert.Equal(t, "..c.y_pb2", RelativeModule(mp("a.b.x_pb2"), mp("a.c.y_pb2")))
}

func TestSourceMessageModule(t *testing.T) {
	idx := NewIndex(testPlan("/out", []string{"payment/payment.proto", "payment/types.proto", "common.proto", "user/v1/user.proto"}))
	src := dedent.Dedent(`
		from google.protobuf import descriptor as _descriptor
		from payment import types_pb2 as payment_dot_types__pb2
		import common_pb2 as common__pb2
		from user.v1 import user_pb2 as user_dot_v1_dot_user__pb2
		import grpc
	`)
	out, refs, err := Source(mp("payment.payment_pb2"), src, idx)
	require.NoError(t, err)
	assert.Len(t, refs, 3)
	assert.Equal(t, dedent.Dedent(`
		from google.protobuf import descriptor as _descriptor
		from . import types_pb2 as payment_dot_types__pb2
		from .. import common_pb2 as common__pb2
		from ..user.v1 import user_pb2 as user_dot_v1_dot_user__pb2
		import grpc
	`), out)

	again, refs, err := Source(mp("payment.payment_pb2"), out, idx)
	require.NoError(t, err)
	assert.Empty(t, refs)
	assert.Equal(t, out, again)
}

func TestSourceDottedImportGetsAlias(t *testing.T) {
	idx := NewIndex(testPlan("/out", []string{"payment/payment.proto", "payment/types.proto", "common.proto"}))
	src := dedent.Dedent(`
		import builtins
		import common_pb2
		import payment.types_pb2
		import typing

		class Payment:
		    amount: payment.types_pb2.Money
		    meta: common_pb2.Meta
		    other: xpayment.types_pb2.Nope
		    def f(self) -> typing.Tuple[payment.types_pb2.Money, payment.types_pb2.Currency]: ...
	`)
	out, refs, err := Source(mp("payment.payment_pb2"), src, idx)
	require.NoError(t, err)
	assert.Len(t, refs, 2)
	assert.Equal(t, dedent.Dedent(`
		import builtins
		from .. import common_pb2
		from . import types_pb2 as payment_dot_types__pb2
		import typing

		class Payment:
		    amount: payment_dot_types__pb2.Money
		    meta: common_pb2.Meta
		    other: xpayment.types_pb2.Nope
		    def f(self) -> typing.Tuple[payment_dot_types__pb2.Money, payment_dot_types__pb2.Currency]: ...
	`), out)

	again, _, err := Source(mp("payment.payment_pb2"), out, idx)
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestSourceFromModuleImportsSymbol(t *testing.T) {
	idx := NewIndex(testPlan("/out", []string{"a/b/x.proto", "a/c/y.proto"}))
	out, refs, err := Source(mp("a.b.x_pb2"), "from a.c.y_pb2 import Thing, Other as O\n", idx)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "a.c.y_pb2", refs[0].Target.String())
	assert.Equal(t, 1, refs[0].Line)
	assert.Equal(t, "from ..c.y_pb2 import Thing, Other as O\n", out)
}

func TestSourceFilteredDependency(t *testing.T) {
	idx := NewIndex(testPlan("/out", []string{"app/app.proto"}, "dep/gone.proto", "dep/also.proto"))
	src := "from dep import gone_pb2 as dep_dot_gone__pb2\nimport dep.also_pb2\nimport grpc\n"
	out, refs, err := Source(mp("app.app_pb2"), src, idx)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, ErrUnresolvedImport))
	assert.Contains(t, err.Error(), "line 1")
	assert.Contains(t, err.Error(), "line 2")
	assert.Equal(t, src, out, "failed files are not modified")
	assert.Nil(t, refs)
}

func TestSourceUnplannedModuleInTreePackage(t *testing.T) {
	idx := NewIndex(testPlan("/out", []string{"a/x.proto", "b/y.proto"}))
	for _, src := range []string{
		"from b import z_pb2 as b_dot_z__pb2\n",
		"import b.z_pb2\n",
		"from b import z_pb2_grpc\n",
	} {
		out, refs, err := Source(mp("a.x_pb2"), src, idx)
		require.Error(t, err, src)
		assert.True(t, stderrors.Is(err, ErrUnresolvedImport), src)
		assert.Contains(t, err.Error(), "b.z_pb2")
		assert.Equal(t, src, out)
		assert.Nil(t, refs)
	}

	// A package match alone is not a reason to rewrite.
	src := "from b import helpers\n"
	out, refs, err := Source(mp("a.x_pb2"), src, idx)
	require.NoError(t, err)
	assert.Empty(t, refs)
	assert.Equal(t, src, out)
}

func TestSourceExternalUntouched(t *testing.T) {
	idx := NewIndex(testPlan("/out", []string{"a.proto"}))
	src := "import grpc\nfrom google.protobuf import timestamp_pb2 as google_dot_protobuf_dot_timestamp__pb2\nimport other.thing_pb2\n"
	out, refs, err := Source(mp("a_pb2"), src, idx)
	require.NoError(t, err)
	assert.Empty(t, refs)
	assert.Equal(t, src, out)
}

func TestStampHeader(t *testing.T) {
	assert.Equal(t, "x\n", StampHeader("x\n", ""))
	stamped := StampHeader("x\n", "# pyright: basic")
	assert.Equal(t, "# pyright: basic\nx\n", stamped)
	assert.Equal(t, stamped, StampHeader(stamped, "# pyright: basic"))
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, body := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
}

func TestTreeRewritesAndIsIdempotent(t *testing.T) {
	out := t.TempDir()
	p := testPlan(out, []string{"payment/payment.proto", "payment/types.proto"})
	writeTree(t, out, map[string]string{
		"payment/payment_pb2.py":       "from payment import types_pb2 as payment_dot_types__pb2\n",
		"payment/payment_pb2_grpc.py":  "import grpc\nfrom payment import payment_pb2 as payment_dot_payment__pb2\n",
		"payment/payment_pb2.pyi":      "import payment.types_pb2\nx: payment.types_pb2.Money\n",
		"payment/types_pb2.py":         "from google.protobuf import descriptor as _descriptor\n",
		"payment/types_pb2_grpc.py":    "import grpc\n",
		"payment/types_pb2.pyi":        "import builtins\n",
	})

	stats, err := Tree(context.Background(), p, Options{Workers: 3, Header: "# pyright: basic"})
	require.NoError(t, err)
	assert.Equal(t, 6, stats.Files)
	assert.Equal(t, 6, stats.FilesChanged, "header stamps every file")
	assert.Equal(t, 3, stats.Imports)

	grpcPy, err := os.ReadFile(filepath.Join(out, "payment", "payment_pb2_grpc.py"))
	require.NoError(t, err)
	assert.Equal(t, "# pyright: basic\nimport grpc\nfrom . import payment_pb2 as payment_dot_payment__pb2\n", string(grpcPy))

	stub, err := os.ReadFile(filepath.Join(out, "payment", "payment_pb2.pyi"))
	require.NoError(t, err)
	assert.Equal(t, "# pyright: basic\nfrom . import types_pb2 as payment_dot_types__pb2\nx: payment_dot_types__pb2.Money\n", string(stub))

	stats, err = Tree(context.Background(), p, Options{Workers: 2, Header: "# pyright: basic"})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.FilesChanged)
	assert.Equal(t, 0, stats.Imports)
}

func TestTreeCollectsAllErrors(t *testing.T) {
	out := t.TempDir()
	p := testPlan(out, []string{"a.proto", "b.proto"}, "gone.proto")
	writeTree(t, out, map[string]string{
		"a_pb2.py":      "import gone_pb2 as gone__pb2\n",
		"a_pb2_grpc.py": "import grpc\n",
		"a_pb2.pyi":     "import builtins\n",
		"b_pb2.py":      "import gone_pb2 as gone__pb2\n",
		"b_pb2_grpc.py": "import grpc\n",
		// b_pb2.pyi missing
	})

	_, err := Tree(context.Background(), p, Options{Workers: 4})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryRewrite))
	assert.True(t, stderrors.Is(err, ErrUnresolvedImport))
	assert.Contains(t, err.Error(), "a_pb2.py")
	assert.Contains(t, err.Error(), "b_pb2.py")
	assert.Contains(t, err.Error(), "b_pb2.pyi")
	c, _ := errors.AsClassified(err)
	v, _ := c.Context().Get("failed_files")
	assert.Equal(t, 3, v)
}

func TestTreeHonoursCancellation(t *testing.T) {
	out := t.TempDir()
	p := testPlan(out, []string{"a.proto"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Tree(ctx, p, Options{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestFindImports(t *testing.T) {
	src := dedent.Dedent(`
		import a.b.c_pb2
		from . import x_pb2
		from a.b import c_pb2 as alias
		"""
		import not_code
		"""
		from a.b.c_pb2 import Sym
	`)
	stmts := FindImports(src)
	require.Len(t, stmts, 3)
	assert.Equal(t, "a.b.c_pb2", stmts[0].Module)
	assert.Equal(t, "a.b", stmts[1].Module)
	assert.Equal(t, "alias", stmts[1].Names[0].Alias)
	assert.Equal(t, []string{"Sym"}, []string{stmts[2].Names[0].Name})
}
