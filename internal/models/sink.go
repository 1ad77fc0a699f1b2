package models

import "context"

// Sink - persistence of acquired records. Any error returned by a sink is fatal for the run.
type Sink interface {
	HasTerminalData(ctx context.Context, entityID string) (bool, error)
	SaveCandidate(ctx context.Context, candidate Candidate) error
	SaveTotals(ctx context.Context, totals []Totals) error
	SaveFilings(ctx context.Context, filings []Filing) error
	Close() error
}

// EntityRepository -
type EntityRepository interface {
	Entities(ctx context.Context) ([]Entity, error)
}
