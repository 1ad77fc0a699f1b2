package selector

import (
	"sort"

	"github.com/dipdup-net/acquire/internal/models"
	"github.com/dipdup-net/acquire/internal/progress"
)

// Mode - selection policy of a run
type Mode int

// modes
const (
	ModeNormal Mode = iota
	ModeRecovery
)

// String -
func (m Mode) String() string {
	switch m {
	case ModeRecovery:
		return "recovery"
	default:
		return "normal"
	}
}

// Reason - why an entity was selected
type Reason string

// reasons
const (
	ReasonPending         Reason = "pending"
	ReasonMissingCoverage Reason = "missing_coverage"
	ReasonNoData          Reason = "no_data"
	ReasonMissingRelated  Reason = "missing_related"
)

// Item - one entry of a run work-list
type Item struct {
	Entity   models.Entity
	Priority int
	Reason   Reason
}

// Select - ordered work-list of a run
func Select(mode Mode, entities []models.Entity, store *progress.Store) []Item {
	if mode == ModeRecovery {
		return Recovery(entities, store)
	}
	return Normal(entities, store)
}

// Normal - entities without a terminal record in list order, resuming right after the last processed entity.
// Entities before the cursor are appended at the end so membership changes of the list never starve anyone.
func Normal(entities []models.Entity, store *progress.Store) []Item {
	start := 0
	if store.LastProcessedEntity != "" {
		for i := range entities {
			if entities[i].ID == store.LastProcessedEntity {
				start = i + 1
				break
			}
		}
	}

	items := make([]Item, 0)
	seen := make(map[string]struct{}, len(entities))
	for offset := 0; offset < len(entities); offset++ {
		entity := entities[(start+offset)%len(entities)]
		if _, ok := seen[entity.ID]; ok {
			continue
		}
		seen[entity.ID] = struct{}{}

		if store.IsTerminal(entity.ID) {
			continue
		}
		items = append(items, Item{
			Entity: entity,
			Reason: ReasonPending,
		})
	}
	return items
}

// Classify - recovery classification of a terminal record. ok is false for complete records.
func Classify(record models.ProgressRecord) (reason Reason, priority int, ok bool) {
	switch {
	case !record.Status.IsTerminal():
		return "", 0, false
	case !record.HasCoverage():
		return ReasonMissingCoverage, 1, true
	case record.Status == models.StatusNoCandidateData && record.CandidateID == "":
		return ReasonNoData, 2, true
	case !record.HasRelated():
		return ReasonMissingRelated, 3, true
	default:
		return "", 0, false
	}
}

// Recovery - terminal entities with incomplete data, priority first. The store is not modified: a selected
// record is replaced only when the entity is checkpointed again.
func Recovery(entities []models.Entity, store *progress.Store) []Item {
	items := make([]Item, 0)
	seen := make(map[string]struct{}, len(entities))
	for i := range entities {
		if _, ok := seen[entities[i].ID]; ok {
			continue
		}
		seen[entities[i].ID] = struct{}{}

		record, ok := store.Record(entities[i].ID)
		if !ok {
			continue
		}
		reason, priority, selected := Classify(record)
		if !selected {
			continue
		}
		items = append(items, Item{
			Entity:   entities[i],
			Priority: priority,
			Reason:   reason,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Priority < items[j].Priority
	})
	return items
}
