package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Entity - external subject of acquisition. Read-only for the acquisition engine.
type Entity struct {
	tableName struct{} `pg:"entities" json:"-" yaml:"-"`

	ID           string `pg:"id,pk" json:"id" yaml:"id"`
	Name         string `pg:"name" json:"name" yaml:"name"`
	Jurisdiction string `pg:"jurisdiction" json:"jurisdiction,omitempty" yaml:"jurisdiction,omitempty"`
	Category     string `pg:"category" json:"category,omitempty" yaml:"category,omitempty"`
}

// Candidate - lookup result: a registry match for an entity
type Candidate struct {
	tableName struct{} `pg:"candidates" json:"-"`

	EntityID  string    `pg:"entity_id,pk" json:"-"`
	ID        string    `pg:"candidate_id" json:"candidate_id"`
	Name      string    `pg:"name" json:"name"`
	State     string    `pg:"state" json:"state"`
	Office    string    `pg:"office" json:"office"`
	Party     string    `pg:"party" json:"party"`
	Cycles    []int     `pg:"cycles,array" json:"cycles"`
	UpdatedAt time.Time `pg:"updated_at" json:"-"`
}

// Totals - financial summary of a candidate for one coverage period
type Totals struct {
	tableName struct{} `pg:"totals" json:"-"`

	EntityID      string          `pg:"entity_id,pk" json:"-"`
	Cycle         int             `pg:"cycle,pk,use_zero" json:"cycle"`
	CandidateID   string          `pg:"candidate_id" json:"candidate_id"`
	CommitteeID   string          `pg:"committee_id" json:"committee_id"`
	Receipts      decimal.Decimal `pg:"receipts,type:numeric" json:"receipts"`
	Disbursements decimal.Decimal `pg:"disbursements,type:numeric" json:"disbursements"`
	CashOnHand    decimal.Decimal `pg:"cash_on_hand,type:numeric" json:"cash_on_hand"`
	Debts         decimal.Decimal `pg:"debts,type:numeric" json:"debts"`
}

// Filing - a report filed by the related committee
type Filing struct {
	tableName struct{} `pg:"filings" json:"-"`

	ID            string          `pg:"id,pk" json:"id"`
	EntityID      string          `pg:"entity_id" json:"-"`
	CommitteeID   string          `pg:"committee_id" json:"committee_id"`
	Cycle         int             `pg:"cycle,use_zero" json:"cycle"`
	FormType      string          `pg:"form_type" json:"form_type"`
	Receipts      decimal.Decimal `pg:"receipts,type:numeric" json:"receipts"`
	Disbursements decimal.Decimal `pg:"disbursements,type:numeric" json:"disbursements"`
	ReceivedAt    time.Time       `pg:"received_at" json:"received_at"`
}
