package migrations

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFind(t *testing.T) {
	m, err := Find("entities_table")
	require.NoError(t, err)
	assert.Equal(t, "entities_table", m.Name())

	_, err = Find("thumbnail_columns")
	assert.True(t, errors.Is(err, ErrUnknownMigration))
}

func TestList_UniqueNames(t *testing.T) {
	names := make(map[string]struct{})
	for _, m := range List {
		_, ok := names[m.Name()]
		assert.False(t, ok, m.Name())
		names[m.Name()] = struct{}{}
	}
}
