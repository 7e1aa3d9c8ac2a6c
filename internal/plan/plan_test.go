package plan

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/protoimporter/internal/config"
	"git.home.luguber.info/inful/protoimporter/internal/foundation/errors"
)

// tree creates empty files below a fresh temp dir and returns the dir.
func tree(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("syntax = \"proto3\";\n"), 0o600))
	}
	return root
}

func unit(roots ...string) config.BuildUnit {
	return config.BuildUnit{
		Name:        "test",
		SourceRoots: roots,
		Out:         filepath.Join(filepath.Dir(roots[0]), "out"),
		PackageMode: config.PackageModePackage,
		Emit:        config.Emit{GRPC: true},
	}
}

func relPaths(p *Plan) []string {
	out := make([]string, len(p.Artifacts))
	for i, a := range p.Artifacts {
		out[i] = a.RelPath()
	}
	return out
}

func TestResolveBasic(t *testing.T) {
	root := tree(t, "payment/payment.proto", "payment/types.proto", "common.proto", "README.md")
	p, err := Resolve(unit(root))
	require.NoError(t, err)

	want := []string{
		"common_pb2.py",
		"common_pb2_grpc.py",
		"payment/payment_pb2.py",
		"payment/payment_pb2_grpc.py",
		"payment/types_pb2.py",
		"payment/types_pb2_grpc.py",
	}
	if diff := cmp.Diff(want, relPaths(p)); diff != "" {
		t.Fatalf("artifacts mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	root := tree(t, "b/x.proto", "a/y.proto", "c.proto", "a/b/c/d.proto")
	u := unit(root)
	first, err := Resolve(u)
	require.NoError(t, err)
	second, err := Resolve(u)
	require.NoError(t, err)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("plans differ:\n%s", diff)
	}
}

func TestResolveIncludeExclude(t *testing.T) {
	root := tree(t,
		"payment/payment.proto",
		"payment/internal/secret.proto",
		"payments/other.proto",
		"user/v1/user.proto",
		"inventory/inventory.proto",
	)
	u := unit(root)
	u.Include = []config.Pattern{
		{Value: "payment", Match: config.MatchPrefix},
		{Value: "user/**/*.proto", Match: config.MatchGlob},
	}
	u.Exclude = []config.Pattern{{Value: "payment/internal", Match: config.MatchPrefix}}
	u.Emit.GRPC = false

	p, err := Resolve(u)
	require.NoError(t, err)
	assert.Equal(t, []string{"payment/payment_pb2.py", "user/v1/user_pb2.py"}, relPaths(p))

	var filtered []string
	for _, s := range p.Filtered {
		filtered = append(filtered, s.RelPath)
	}
	assert.ElementsMatch(t, []string{"payment/internal/secret.proto", "payments/other.proto", "inventory/inventory.proto"}, filtered)
}

func TestResolveEmitKinds(t *testing.T) {
	root := tree(t, "a.proto")
	u := unit(root)
	u.Emit = config.Emit{GRPC: true, TypeStubs: true, GRPCTypeStubs: true}
	p, err := Resolve(u)
	require.NoError(t, err)
	assert.Equal(t, []string{"a_pb2.py", "a_pb2.pyi", "a_pb2_grpc.py", "a_pb2_grpc.pyi"}, relPaths(p))

	arts := p.ArtifactsOf(p.Sources[0])
	require.Len(t, arts, 4)
	assert.Equal(t, []Kind{KindMessageModule, KindGRPCModule, KindMessageStub, KindGRPCStub},
		[]Kind{arts[0].Kind, arts[1].Kind, arts[2].Kind, arts[3].Kind})
}

func TestResolveFirstRootWins(t *testing.T) {
	base := tree(t, "first/common/types.proto", "second/common/types.proto", "second/extra.proto")
	first, second := filepath.Join(base, "first"), filepath.Join(base, "second")
	u := unit(first, second)
	u.Out = filepath.Join(base, "out")

	p, err := Resolve(u)
	require.NoError(t, err)
	idx := p.ModuleIndex()
	require.Contains(t, idx, "common.types_pb2")
	assert.Equal(t, first, idx["common.types_pb2"].Source.Root)
	require.Len(t, p.Shadowed, 1)
	assert.Equal(t, second, p.Shadowed[0].Root)

	groups := p.Groups()
	require.Len(t, groups, 2)
	assert.Equal(t, InvocationGroup{ProtoRoot: first, OutputDir: u.Out, Files: []string{"common/types.proto"}}, groups[0])
	assert.Equal(t, []string{"extra.proto"}, groups[1].Files)
}

func TestResolveDuplicateWithinRoot(t *testing.T) {
	root := tree(t, "foo.v1.proto", "foo/v1.proto")
	_, err := Resolve(unit(root))
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, ErrDuplicateModule))
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestResolveNoSources(t *testing.T) {
	root := tree(t, "a.proto")
	u := unit(root)
	u.Include = []config.Pattern{{Value: "nothing", Match: config.MatchPrefix}}
	_, err := Resolve(u)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, ErrNoSources))
	assert.Equal(t, errors.CategoryConfig, errors.GetCategory(err))
}

func TestResolveMissingRoot(t *testing.T) {
	_, err := Resolve(unit(filepath.Join(t.TempDir(), "missing")))
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, ErrMissingRoot))
}

func TestResolveSkipsHiddenAndOutput(t *testing.T) {
	root := tree(t, "a.proto", ".git/x.proto", "gen/copied.proto")
	u := unit(root)
	u.Out = filepath.Join(root, "gen")
	p, err := Resolve(u)
	require.NoError(t, err)
	require.Len(t, p.Sources, 1)
	assert.Equal(t, "a.proto", p.Sources[0].RelPath)
}

func TestFilteredModules(t *testing.T) {
	root := tree(t, "keep.proto", "dep/gone.proto")
	u := unit(root)
	u.Include = []config.Pattern{{Value: "keep.proto", Match: config.MatchExact}}
	p, err := Resolve(u)
	require.NoError(t, err)
	fm := p.FilteredModules()
	assert.Contains(t, fm, "dep.gone_pb2")
	assert.Contains(t, fm, "dep.gone_pb2_grpc")
	assert.NotContains(t, fm, "keep_pb2")
}

func TestModulePathFor(t *testing.T) {
	cases := []struct {
		in   string
		kind Kind
		want string
		file string
	}{
		{"a/b/c.proto", KindMessageModule, "a.b.c_pb2", "a/b/c_pb2.py"},
		{"a/b/c.proto", KindGRPCStub, "a.b.c_pb2_grpc", "a/b/c_pb2_grpc.pyi"},
		{"my-service.proto", KindMessageModule, "my_service_pb2", "my_service_pb2.py"},
		{"foo.v1.proto", KindGRPCModule, "foo.v1_pb2_grpc", "foo/v1_pb2_grpc.py"},
	}
	for _, tc := range cases {
		m := ModulePathFor(tc.in, tc.kind)
		assert.Equal(t, tc.want, m.String(), tc.in)
		assert.Equal(t, tc.file, m.File(tc.kind.Ext()), tc.in)
	}
	assert.Equal(t, "a/b", ParseModulePath("a.b.c_pb2").Dir())
	assert.Equal(t, "c_pb2", ParseModulePath("a.b.c_pb2").Leaf())
	assert.Nil(t, ParseModulePath(""))
}
