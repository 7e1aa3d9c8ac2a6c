package pyimport

import (
	"testing"

	"github.com/lithammer/dedent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScan(t *testing.T) {
	src := dedent.Dedent(`
		"""
		import not_real
		"""
		import grpc
		import payment.types_pb2
		import common_pb2 as common__pb2  # noqa
		from payment import types_pb2 as payment_dot_types__pb2
		from . import sibling_pb2
		from ..pkg import a, b as c
		from x.y import (
		    Foo,
		)
		if True:
		    from google.protobuf import timestamp_pb2
		import a, b
		x = "import fake"
	`)
	stmts := Scan(src)
	require.Len(t, stmts, 8)

	assert.Equal(t, FormImport, stmts[0].Form)
	assert.Equal(t, "grpc", stmts[0].Module)

	assert.Equal(t, "payment.types_pb2", stmts[1].Module)
	assert.Equal(t, "", stmts[1].Names[0].Alias)

	assert.Equal(t, "common__pb2", stmts[2].Names[0].Alias)
	assert.Equal(t, "# noqa", stmts[2].Comment)

	assert.Equal(t, FormFrom, stmts[3].Form)
	assert.Equal(t, "payment", stmts[3].Module)
	assert.Equal(t, []Name{{Name: "types_pb2", Alias: "payment_dot_types__pb2"}}, stmts[3].Names)

	assert.True(t, stmts[4].Relative())
	assert.Equal(t, 1, stmts[4].Level())

	assert.Equal(t, 2, stmts[5].Level())
	assert.Equal(t, []Name{{Name: "a"}, {Name: "b", Alias: "c"}}, stmts[5].Names)

	assert.True(t, stmts[6].Open)
	assert.Equal(t, "x.y", stmts[6].Module)

	assert.Equal(t, "    ", stmts[7].Indent)
	assert.Equal(t, "google.protobuf", stmts[7].Module)

	// Offsets address the statement text.
	for _, s := range stmts {
		assert.Equal(t, s.Text, src[s.Start:s.End])
	}
}

func TestFormatRoundTrip(t *testing.T) {
	lines := []string{
		"import grpc",
		"import common_pb2 as common__pb2  # noqa",
		"from . import sibling_pb2",
		"from ..pkg import a, b as c",
		"    from google.protobuf import timestamp_pb2",
		"from x.y import (Foo",
	}
	for _, l := range lines {
		stmts := Scan(l + "\n")
		require.Len(t, stmts, 1, l)
		assert.Equal(t, l, Format(stmts[0]))
	}
}
