package normalization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mode string

const (
	modePackage   mode = "package"
	modeNamespace mode = "namespace"
)

func newModes() *Normalizer[mode] {
	return New("package mode", map[string]mode{
		"package":   modePackage,
		"regular":   modePackage,
		"namespace": modeNamespace,
		"pep420":    modeNamespace,
	}, modePackage)
}

func TestNormalize(t *testing.T) {
	n := newModes()
	tests := []struct {
		in   string
		want mode
	}{
		{"package", modePackage},
		{"  NAMESPACE ", modeNamespace},
		{"pep420", modeNamespace},
		{"regular", modePackage},
		{"", modePackage},
		{"bogus", modePackage},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Normalize(tt.in))
		})
	}
}

func TestParse(t *testing.T) {
	n := newModes()

	got, err := n.Parse("Namespace")
	require.NoError(t, err)
	assert.Equal(t, modeNamespace, got)

	got, err = n.Parse("")
	require.NoError(t, err)
	assert.Equal(t, modePackage, got)

	_, err = n.Parse("flat")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid package mode")
	assert.Contains(t, err.Error(), "namespace, package, pep420, regular")
}

func TestValidKeysIsCopy(t *testing.T) {
	n := newModes()
	keys := n.ValidKeys()
	keys[0] = "mutated"
	assert.NotEqual(t, "mutated", n.ValidKeys()[0])
}
