package migrations

import (
	"context"

	"github.com/dipdup-net/acquire/internal/models"
	"github.com/go-pg/pg/v10/orm"
)

// EntitiesTable - creates the table the entity list is read from when no list file is configured
type EntitiesTable struct{}

// Name -
func (m *EntitiesTable) Name() string {
	return "entities_table"
}

// Do -
func (m *EntitiesTable) Do(ctx context.Context, db *models.Database) error {
	return db.ModelContext(ctx, (*models.Entity)(nil)).CreateTable(&orm.CreateTableOptions{
		IfNotExists: true,
	})
}
