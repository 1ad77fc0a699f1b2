package resolver

import (
	"bytes"
	"strings"
	"time"

	"github.com/dipdup-net/acquire/internal/models"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type page[T any] struct {
	Results []T `json:"results"`
}

type candidateResult struct {
	CandidateID string `json:"candidate_id"`
	Name        string `json:"name"`
	State       string `json:"state"`
	Office      string `json:"office"`
	Party       string `json:"party"`
	Cycles      []int  `json:"cycles"`
}

type totalsResult struct {
	CandidateID   string           `json:"candidate_id"`
	CommitteeID   string           `json:"committee_id"`
	Cycle         *int             `json:"cycle"`
	Receipts      decimal.Decimal  `json:"receipts"`
	Disbursements decimal.Decimal  `json:"disbursements"`
	CashOnHand    decimal.Decimal  `json:"cash_on_hand_end_period"`
	Debts         decimal.Decimal  `json:"debts_owed_by_committee"`
	Committees    []committeeEntry `json:"principal_committees"`
}

type committeeEntry struct {
	CommitteeID string `json:"committee_id"`
}

type filingResult struct {
	FileNumber    jsonID          `json:"file_number"`
	CommitteeID   string          `json:"committee_id"`
	Cycle         int             `json:"cycle"`
	FormType      string          `json:"form_type"`
	Receipts      decimal.Decimal `json:"total_receipts_period"`
	Disbursements decimal.Decimal `json:"total_disbursements_period"`
	ReceiptDate   string          `json:"receipt_date"`
}

// jsonID accepts both numeric and string identifiers
type jsonID string

// UnmarshalJSON -
func (id *jsonID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	*id = jsonID(strings.Trim(string(data), `"`))
	return nil
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseDate(value string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func decodePage[T any](data []byte) ([]T, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' || !json.Valid(data) {
		return nil, newError(0, ErrorTypeInvalidJSON, errors.New("invalid json"))
	}
	var p page[T]
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, newError(0, ErrorTypeInvalidJSON, err)
	}
	return p.Results, nil
}

// DecodeCandidates - lookup payload to registry matches, best match first
func DecodeCandidates(entityID string, data []byte) ([]models.Candidate, error) {
	results, err := decodePage[candidateResult](data)
	if err != nil {
		return nil, err
	}

	candidates := make([]models.Candidate, 0, len(results))
	for i := range results {
		if results[i].CandidateID == "" {
			return nil, newError(0, ErrorTypeMissingField, errors.Errorf("candidate #%d: candidate_id", i))
		}
		candidates = append(candidates, models.Candidate{
			EntityID: entityID,
			ID:       results[i].CandidateID,
			Name:     results[i].Name,
			State:    results[i].State,
			Office:   results[i].Office,
			Party:    results[i].Party,
			Cycles:   results[i].Cycles,
		})
	}
	return candidates, nil
}

// DecodeTotals - primary payload to totals and the related committee id, if any
func DecodeTotals(entityID, candidateID string, data []byte) ([]models.Totals, string, error) {
	results, err := decodePage[totalsResult](data)
	if err != nil {
		return nil, "", err
	}

	var relatedID string
	totals := make([]models.Totals, 0, len(results))
	for i := range results {
		if results[i].Cycle == nil {
			return nil, "", newError(0, ErrorTypeMissingField, errors.Errorf("totals #%d: cycle", i))
		}

		committeeID := results[i].CommitteeID
		if committeeID == "" && len(results[i].Committees) > 0 {
			committeeID = results[i].Committees[0].CommitteeID
		}
		if relatedID == "" {
			relatedID = committeeID
		}

		id := results[i].CandidateID
		if id == "" {
			id = candidateID
		}

		totals = append(totals, models.Totals{
			EntityID:      entityID,
			Cycle:         *results[i].Cycle,
			CandidateID:   id,
			CommitteeID:   committeeID,
			Receipts:      results[i].Receipts,
			Disbursements: results[i].Disbursements,
			CashOnHand:    results[i].CashOnHand,
			Debts:         results[i].Debts,
		})
	}
	return totals, relatedID, nil
}

// DecodeFilings - related payload to committee filings
func DecodeFilings(entityID, committeeID string, data []byte) ([]models.Filing, error) {
	results, err := decodePage[filingResult](data)
	if err != nil {
		return nil, err
	}

	filings := make([]models.Filing, 0, len(results))
	for i := range results {
		if results[i].FileNumber == "" {
			return nil, newError(0, ErrorTypeMissingField, errors.Errorf("filing #%d: file_number", i))
		}

		filing := models.Filing{
			ID:            string(results[i].FileNumber),
			EntityID:      entityID,
			CommitteeID:   results[i].CommitteeID,
			Cycle:         results[i].Cycle,
			FormType:      results[i].FormType,
			Receipts:      results[i].Receipts,
			Disbursements: results[i].Disbursements,
		}
		if filing.CommitteeID == "" {
			filing.CommitteeID = committeeID
		}
		if received, ok := parseDate(results[i].ReceiptDate); ok {
			filing.ReceivedAt = received
		}
		filings = append(filings, filing)
	}
	return filings, nil
}
