package region

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/storetrends/internal/types"
)

func TestResolveDefaultsToBaseline(t *testing.T) {
	r, err := Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "us", r.Code)
	assert.Equal(t, "United States", r.Name)
	assert.Equal(t, "$", r.Currency)
}

func TestResolveIsCaseInsensitive(t *testing.T) {
	for _, in := range []string{"DE", "de", " De "} {
		r, err := Resolve(in)
		require.NoError(t, err, in)
		assert.Equal(t, "de", r.Code)
		assert.Equal(t, "€", r.Currency)
	}
}

func TestResolveUnknownListsCatalog(t *testing.T) {
	_, err := Resolve("XX")
	require.Error(t, err)

	var invalid *types.InvalidRegionError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "xx", invalid.Code)
	assert.Equal(t, Codes(), invalid.Available)
	assert.Contains(t, err.Error(), "Region 'xx' is not supported")
	assert.Contains(t, err.Error(), "us, ca, mx")
}

func TestCatalogInvariants(t *testing.T) {
	all := All()
	require.Len(t, all, 58)

	seen := make(map[string]bool)
	for _, r := range all {
		assert.False(t, seen[r.Code], "duplicate code %s", r.Code)
		seen[r.Code] = true
		assert.Regexp(t, `^[a-z]{2}$`, r.Code)
		assert.NotEmpty(t, r.Name)
		assert.NotEmpty(t, r.Currency)
		assert.NotEmpty(t, r.Flag)

		got, ok := Lookup(r.Code)
		assert.True(t, ok)
		assert.Equal(t, r, got)
	}
}

func TestCatalogOrderIsStable(t *testing.T) {
	first := Codes()
	assert.Equal(t, first, Codes())
	assert.Equal(t, "us", first[0])
	assert.Equal(t, "za", first[len(first)-1])

	// Callers get copies; mutating one must not leak into the catalog.
	first[0] = "zz"
	assert.Equal(t, "us", Codes()[0])
	all := All()
	all[0].Name = "changed"
	assert.Equal(t, "United States", All()[0].Name)
}
