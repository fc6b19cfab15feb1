package hook

import (
	"path/filepath"
	"testing"

	"github.com/gitvan-dev/gitvan/pkg/testutil"
	"github.com/stretchr/testify/require"
)

func TestFileBaselineStoreRoundTrip(t *testing.T) {
	dir := testutil.TempDir(t, "hook-baseline")
	path := filepath.Join(dir, "baselines.json")

	store, err := NewFileBaselineStore(path)
	require.NoError(t, err)
	_, ok := store.Get("build-failures")
	require.False(t, ok)

	require.NoError(t, store.Put("build-failures", "abc123"))
	hash, ok := store.Get("build-failures")
	require.True(t, ok)
	require.Equal(t, "abc123", hash)

	reopened, err := NewFileBaselineStore(path)
	require.NoError(t, err)
	hash, ok = reopened.Get("build-failures")
	require.True(t, ok)
	require.Equal(t, "abc123", hash)
}

func TestFileBaselineStoreMissingFileStartsEmpty(t *testing.T) {
	dir := testutil.TempDir(t, "hook-baseline")
	store, err := NewFileBaselineStore(filepath.Join(dir, "nope.json"))
	require.NoError(t, err)
	_, ok := store.Get("anything")
	require.False(t, ok)
}
