package progress

import (
	"time"

	"github.com/dipdup-net/acquire/internal/models"
	"github.com/pkg/errors"
)

// errors
var (
	ErrNotTerminal = errors.New("progress record status is not terminal")
	ErrNoRun       = errors.New("no run in progress")
)

// Store - aggregate root of acquisition progress and the single source of truth for what has been done.
// It is persisted as a whole after every entity transition.
type Store struct {
	LastProcessedIndex  int                              `json:"lastProcessedIndex"`
	LastProcessedEntity string                           `json:"lastProcessedEntity,omitempty"`
	ProcessedEntities   map[string]models.ProgressRecord `json:"processedEntities"`
	LastRunTimestamp    *time.Time                       `json:"lastRunTimestamp"`
	APICallsInLastHour  int                              `json:"apiCallsInLastHour"`
	CompletedCount      int                              `json:"completedCount"`
	Runs                []models.RunRecord               `json:"runs"`

	path string
}

// NewStore - empty store bound to a checkpoint path
func NewStore(path string) *Store {
	return &Store{
		ProcessedEntities: make(map[string]models.ProgressRecord),
		Runs:              make([]models.RunRecord, 0),
		path:              path,
	}
}

// Path -
func (s *Store) Path() string {
	return s.path
}

// Record -
func (s *Store) Record(entityID string) (models.ProgressRecord, bool) {
	record, ok := s.ProcessedEntities[entityID]
	return record, ok
}

// IsTerminal - entity holds a terminal record
func (s *Store) IsTerminal(entityID string) bool {
	record, ok := s.ProcessedEntities[entityID]
	return ok && record.Status.IsTerminal()
}

// Put - replaces the record of the entity wholesale
func (s *Store) Put(entityID string, record models.ProgressRecord) error {
	if !record.Status.IsTerminal() {
		return errors.Wrapf(ErrNotTerminal, "entity=%s status=%s", entityID, record.Status)
	}
	s.ProcessedEntities[entityID] = record
	s.recount()
	return nil
}

// Clear - forgets the entity so it is pending again
func (s *Store) Clear(entityID string) {
	delete(s.ProcessedEntities, entityID)
	s.recount()
}

// BeginRun - appends a run record
func (s *Store) BeginRun(id string, startedAt time.Time, recovery bool) {
	s.Runs = append(s.Runs, models.RunRecord{
		ID:        id,
		StartedAt: startedAt.UTC(),
		Recovery:  recovery,
	})
}

// CurrentRun - the last run record
func (s *Store) CurrentRun() (*models.RunRecord, error) {
	if len(s.Runs) == 0 {
		return nil, ErrNoRun
	}
	return &s.Runs[len(s.Runs)-1], nil
}

// PutRun - replaces the run record with the same id or appends it
func (s *Store) PutRun(run models.RunRecord) {
	for i := len(s.Runs) - 1; i >= 0; i-- {
		if s.Runs[i].ID == run.ID {
			s.Runs[i] = run
			return
		}
	}
	s.Runs = append(s.Runs, run)
}

// Consume - persists rate consumption observed at `now`
func (s *Store) Consume(callsInLastHour int, now time.Time) {
	if callsInLastHour < 0 {
		callsInLastHour = 0
	}
	ts := now.UTC()
	s.LastRunTimestamp = &ts
	s.APICallsInLastHour = callsInLastHour
}

// CountByStatus -
func (s *Store) CountByStatus() map[models.Status]int {
	counts := make(map[models.Status]int)
	for _, record := range s.ProcessedEntities {
		counts[record.Status]++
	}
	return counts
}

func (s *Store) recount() {
	var count int
	for _, record := range s.ProcessedEntities {
		if record.Status.IsTerminal() {
			count++
		}
	}
	s.CompletedCount = count
}
