package models

import (
	"context"

	"github.com/go-pg/pg/v10"
	"github.com/go-pg/pg/v10/orm"
	"github.com/pkg/errors"
)

// Database - postgres sink
type Database struct {
	*pg.DB
}

// NewDatabase -
func NewDatabase(ctx context.Context, url string) (*Database, error) {
	opts, err := pg.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse database url")
	}

	db := pg.Connect(opts)
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping database")
	}

	for _, model := range []interface{}{
		(*Candidate)(nil),
		(*Totals)(nil),
		(*Filing)(nil),
	} {
		if err := db.ModelContext(ctx, model).CreateTable(&orm.CreateTableOptions{
			IfNotExists: true,
		}); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "create table")
		}
	}
	return &Database{db}, nil
}

// HasTerminalData - totals were already stored for the entity
func (db *Database) HasTerminalData(ctx context.Context, entityID string) (bool, error) {
	return db.ModelContext(ctx, (*Totals)(nil)).Where("entity_id = ?", entityID).Exists()
}

// SaveCandidate -
func (db *Database) SaveCandidate(ctx context.Context, candidate Candidate) error {
	_, err := db.ModelContext(ctx, &candidate).
		OnConflict("(entity_id) DO UPDATE").
		Set("candidate_id = EXCLUDED.candidate_id").
		Set("name = EXCLUDED.name").
		Set("state = EXCLUDED.state").
		Set("office = EXCLUDED.office").
		Set("party = EXCLUDED.party").
		Set("cycles = EXCLUDED.cycles").
		Set("updated_at = EXCLUDED.updated_at").
		Insert()
	return err
}

// SaveTotals -
func (db *Database) SaveTotals(ctx context.Context, totals []Totals) error {
	if len(totals) == 0 {
		return nil
	}
	_, err := db.ModelContext(ctx, &totals).
		OnConflict("(entity_id, cycle) DO UPDATE").
		Set("candidate_id = EXCLUDED.candidate_id").
		Set("committee_id = EXCLUDED.committee_id").
		Set("receipts = EXCLUDED.receipts").
		Set("disbursements = EXCLUDED.disbursements").
		Set("cash_on_hand = EXCLUDED.cash_on_hand").
		Set("debts = EXCLUDED.debts").
		Insert()
	return err
}

// SaveFilings -
func (db *Database) SaveFilings(ctx context.Context, filings []Filing) error {
	if len(filings) == 0 {
		return nil
	}
	_, err := db.ModelContext(ctx, &filings).
		OnConflict("(id) DO NOTHING").
		Insert()
	return err
}

// Entities - the external entity list in its natural order
func (db *Database) Entities(ctx context.Context) (entities []Entity, err error) {
	err = db.ModelContext(ctx, &entities).Order("id ASC").Select()
	return
}

// Close -
func (db *Database) Close() error {
	return db.DB.Close()
}
