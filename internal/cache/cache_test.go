package cache

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStorage struct {
	items map[string][]byte
	err   error
}

func (m *memoryStorage) Get(ctx context.Context, key string) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	data, ok := m.items[key]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

func (m *memoryStorage) Put(ctx context.Context, key string, data []byte) error {
	if m.err != nil {
		return m.err
	}
	m.items[key] = data
	return nil
}

func TestKey(t *testing.T) {
	a := Key("totals", "totals|e1|H0CA00001|2024")
	b := Key("totals", "totals|e1|H0CA00001|2024")
	c := Key("totals", "totals|e1|H0CA00001|2022")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, "totals/"))
	assert.True(t, strings.HasSuffix(a, ".json"))
}

func TestCache_GetPut(t *testing.T) {
	ctx := context.Background()
	c := New(&memoryStorage{items: make(map[string][]byte)})

	_, ok, err := c.Get(ctx, "lookup", "lookup|e1||0")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, "lookup", "lookup|e1||0", []byte(`{"results":[]}`)))

	data, ok, err := c.Get(ctx, "lookup", "lookup|e1||0")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"results":[]}`, string(data))
}

func TestCache_StorageError(t *testing.T) {
	broken := errors.New("disk failure")
	c := New(&memoryStorage{err: broken})

	_, ok, err := c.Get(context.Background(), "lookup", "lookup|e1||0")
	assert.False(t, ok)
	assert.ErrorIs(t, err, broken)
}

func TestCache_Nil(t *testing.T) {
	var c *Cache

	_, ok, err := c.Get(context.Background(), "lookup", "lookup|e1||0")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, c.Put(context.Background(), "lookup", "lookup|e1||0", nil))
}
