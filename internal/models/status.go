package models

// Status - terminal acquisition status of an entity
type Status string

// statuses
const (
	StatusPending           Status = ""
	StatusSkippedHasData    Status = "skipped_has_data"
	StatusNoCandidateData   Status = "no_candidate_data"
	StatusNoRecentCandidacy Status = "no_recent_candidacy"
	StatusProcessed         Status = "processed"
)

// Statuses - all terminal statuses in report order
var Statuses = []Status{
	StatusProcessed,
	StatusSkippedHasData,
	StatusNoRecentCandidacy,
	StatusNoCandidateData,
}

// String -
func (s Status) String() string {
	if s == StatusPending {
		return "pending"
	}
	return string(s)
}

// IsTerminal -
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSkippedHasData, StatusNoCandidateData, StatusNoRecentCandidacy, StatusProcessed:
		return true
	default:
		return false
	}
}
