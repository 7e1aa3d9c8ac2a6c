package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/protoimporter/internal/config"
)

func TestMatchers(t *testing.T) {
	cases := []struct {
		pattern config.Pattern
		path    string
		want    bool
	}{
		{config.Pattern{Value: "a/b.proto", Match: config.MatchExact}, "a/b.proto", true},
		{config.Pattern{Value: "a/b.proto", Match: config.MatchExact}, "a/b.proto.bak", false},
		{config.Pattern{Value: "payment", Match: config.MatchPrefix}, "payment/payment.proto", true},
		{config.Pattern{Value: "payment", Match: config.MatchPrefix}, "payments/x.proto", false},
		{config.Pattern{Value: "payment/x.proto", Match: config.MatchPrefix}, "payment/x.proto", true},
		{config.Pattern{Value: "*.proto", Match: config.MatchGlob}, "top.proto", true},
		{config.Pattern{Value: "*.proto", Match: config.MatchGlob}, "dir/nested.proto", false},
		{config.Pattern{Value: "**/*.proto", Match: config.MatchGlob}, "top.proto", true},
		{config.Pattern{Value: "**/*.proto", Match: config.MatchGlob}, "a/b/c.proto", true},
		{config.Pattern{Value: "user/**", Match: config.MatchGlob}, "user/v1/u.proto", true},
		{config.Pattern{Value: "v?/*.proto", Match: config.MatchGlob}, "v1/a.proto", true},
		{config.Pattern{Value: "v?/*.proto", Match: config.MatchGlob}, "v10/a.proto", false},
		{config.Pattern{Value: "v[12]/a.proto", Match: config.MatchGlob}, "v2/a.proto", true},
		{config.Pattern{Value: "v[!12]/a.proto", Match: config.MatchGlob}, "v3/a.proto", true},
		{config.Pattern{Value: "a.b", Match: config.MatchGlob}, "axb", false},
		{config.Pattern{Value: "user/**/*.proto", Match: config.MatchGlob}, "user/a.proto", true},
		{config.Pattern{Value: "{user,order}/*.proto", Match: config.MatchGlob}, "order/o.proto", true},
		{config.Pattern{Value: "{user,order}/*.proto", Match: config.MatchGlob}, "billing/b.proto", false},
		// Auto-detected strategies.
		{config.Pattern{Value: "user"}, "user/a.proto", true},
		{config.Pattern{Value: "user/*.proto"}, "user/a.proto", true},
	}
	for _, tc := range cases {
		m, err := NewMatcher(tc.pattern)
		require.NoError(t, err)
		assert.Equal(t, tc.want, m.Match(tc.path), "%s vs %s", m, tc.path)
	}
}

func TestMalformedGlob(t *testing.T) {
	_, err := NewMatcher(config.Pattern{Value: "a/[bc.proto", Match: config.MatchGlob})
	require.Error(t, err)
}

func TestFilterReasons(t *testing.T) {
	f, err := NewFilter(
		[]config.Pattern{{Value: "api", Match: config.MatchPrefix}},
		[]config.Pattern{{Value: "api/internal", Match: config.MatchPrefix}},
	)
	require.NoError(t, err)

	ok, _ := f.Include("api/a.proto")
	assert.True(t, ok)

	ok, reason := f.Include("other/a.proto")
	assert.False(t, ok)
	assert.Equal(t, "not_in_includes", reason)

	ok, reason = f.Include("api/internal/x.proto")
	assert.False(t, ok)
	assert.Equal(t, "excluded_by_prefix(api/internal)", reason)

	var nilFilter *Filter
	ok, _ = nilFilter.Include("anything")
	assert.True(t, ok)
}
