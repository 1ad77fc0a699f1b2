package models

import (
	"sort"
	"time"
)

// ProgressRecord - per-entity checkpoint. It is replaced wholesale when the entity is reprocessed.
type ProgressRecord struct {
	Status           Status    `json:"status"`
	StartedAt        time.Time `json:"startedAt"`
	FinishedAt       time.Time `json:"finishedAt"`
	CandidateID      string    `json:"candidateId,omitempty"`
	KnownPeriods     []int     `json:"knownPeriods,omitempty"`
	RetrievedPeriods []int     `json:"retrievedPeriods,omitempty"`
	RelatedID        string    `json:"relatedId,omitempty"`
	RelatedRecords   []string  `json:"relatedRecords,omitempty"`
	RunID            string    `json:"runId"`
	Failure          string    `json:"failure,omitempty"`
}

// MissingPeriods - known periods which were never retrieved, ascending
func (r ProgressRecord) MissingPeriods() []int {
	retrieved := make(map[int]struct{}, len(r.RetrievedPeriods))
	for _, p := range r.RetrievedPeriods {
		retrieved[p] = struct{}{}
	}

	missing := make([]int, 0)
	for _, p := range r.KnownPeriods {
		if _, ok := retrieved[p]; !ok {
			missing = append(missing, p)
		}
	}
	sort.Ints(missing)
	return missing
}

// HasCoverage - every known period was retrieved
func (r ProgressRecord) HasCoverage() bool {
	return len(r.MissingPeriods()) == 0
}

// HasRelated - related records were attached whenever a related id was found
func (r ProgressRecord) HasRelated() bool {
	if r.RelatedID == "" {
		return true
	}
	return len(r.RelatedRecords) > 0
}

// AddRetrieved -
func (r *ProgressRecord) AddRetrieved(period int) {
	for _, p := range r.RetrievedPeriods {
		if p == period {
			return
		}
	}
	r.RetrievedPeriods = append(r.RetrievedPeriods, period)
	sort.Ints(r.RetrievedPeriods)
}

// RunRecord - one scheduler invocation
type RunRecord struct {
	ID        string     `json:"id"`
	StartedAt time.Time  `json:"startedAt"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
	Calls     int        `json:"calls"`
	Entities  int        `json:"entities"`
	Recovery  bool       `json:"recovery"`
	Error     string     `json:"error,omitempty"`
}
