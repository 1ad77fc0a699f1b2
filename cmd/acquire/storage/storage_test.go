package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dipdup-net/acquire/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFile(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "cache")

	f, err := NewFile(root)
	require.NoError(t, err)

	c := cache.New(f)

	_, ok, err := c.Get(ctx, "totals", "totals|e1|H0CA00001|2024")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, "totals", "totals|e1|H0CA00001|2024", []byte(`{"results":[]}`)))

	data, ok, err := c.Get(ctx, "totals", "totals|e1|H0CA00001|2024")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"results":[]}`, string(data))

	_, err = os.Stat(filepath.Join(root, filepath.FromSlash(cache.Key("totals", "totals|e1|H0CA00001|2024"))))
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(root, "totals"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFile_Overwrite(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	f, err := NewFile(root)
	require.NoError(t, err)

	key := cache.Key("lookup", "lookup|e1|Jane Doe|CA")
	require.NoError(t, f.Put(ctx, key, []byte(`{"results":[]}`)))
	require.NoError(t, f.Put(ctx, key, []byte(`{"results":[{"candidate_id":"H1"}]}`)))

	data, err := f.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, `{"results":[{"candidate_id":"H1"}]}`, string(data))

	entries, err := os.ReadDir(filepath.Join(root, "lookup"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
