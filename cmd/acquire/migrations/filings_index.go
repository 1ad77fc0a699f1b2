package migrations

import (
	"context"

	"github.com/dipdup-net/acquire/internal/models"
)

// FilingsEntityIndex -
type FilingsEntityIndex struct{}

// Name -
func (m *FilingsEntityIndex) Name() string {
	return "filings_entity_index"
}

// Do -
func (m *FilingsEntityIndex) Do(ctx context.Context, db *models.Database) error {
	_, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS filings_entity_id_idx ON filings (entity_id)`)
	return err
}
