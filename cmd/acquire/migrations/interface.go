package migrations

import (
	"context"

	"github.com/dipdup-net/acquire/internal/models"
	"github.com/pkg/errors"
)

// errors
var (
	ErrUnknownMigration = errors.New("unknown migration")
)

// Migration -
type Migration interface {
	Do(ctx context.Context, db *models.Database) error
	Name() string
}

// List - available migrations in the order they should be applied
var List = []Migration{
	&EntitiesTable{},
	&FilingsEntityIndex{},
}

// Find -
func Find(name string) (Migration, error) {
	for i := range List {
		if List[i].Name() == name {
			return List[i], nil
		}
	}
	return nil, errors.Wrap(ErrUnknownMigration, name)
}
