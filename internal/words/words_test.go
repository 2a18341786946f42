package words

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_HasEnoughForAMatch(t *testing.T) {
	d := Default()
	assert.GreaterOrEqual(t, d.Len(), 300)
}

func TestSample_DistinctAndBounded(t *testing.T) {
	d := Default()
	got := d.Sample(300)
	require.Len(t, got, 300)

	seen := map[string]bool{}
	for _, w := range got {
		if seen[w] {
			t.Fatalf("duplicate word %q in sample", w)
		}
		seen[w] = true
	}
}

func TestSample_SmallDictionary(t *testing.T) {
	d, err := Load(strings.NewReader("one\ntwo\n\ntwo\nthree\n"))
	require.NoError(t, err)
	assert.Equal(t, 3, d.Len())

	got := d.Sample(300)
	assert.ElementsMatch(t, []string{"one", "two", "three"}, got)
	assert.Empty(t, d.Sample(0))
}

func TestLoad_Empty(t *testing.T) {
	_, err := Load(strings.NewReader("\n  \n"))
	assert.ErrorIs(t, err, ErrEmpty)
}
