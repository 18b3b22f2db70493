package models

import (
	"strconv"
	"time"
)

// State is the claim lifecycle state, ordinal-indexed on the ledger.
type State int

const (
	StateSubmitted State = iota
	StateUnderReview
	StateApproved
	StateRejected
	StatePaid
)

var stateNames = [...]string{"Submitted", "UnderReview", "Approved", "Rejected", "Paid"}

// String returns the human-readable state name. Out-of-range ordinals
// serialize as "Unknown" rather than panicking.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transition is allowed from s.
// Approved is not terminal: a separate disbursement step advances it to Paid.
func (s State) Terminal() bool {
	return s == StateRejected || s == StatePaid
}

// Decidable reports whether an insurer decision (approve/reject) may be
// applied from s.
func (s State) Decidable() bool {
	return s == StateSubmitted || s == StateUnderReview
}

// CanTransitionTo encodes the forward-only transition table.
func (s State) CanTransitionTo(next State) bool {
	switch s {
	case StateSubmitted:
		return next == StateUnderReview || next == StateApproved || next == StateRejected
	case StateUnderReview:
		return next == StateApproved || next == StateRejected
	case StateApproved:
		return next == StatePaid
	default:
		return false
	}
}

// Claim is the canonical adjudicable unit as read from the ledger.
// Amount is a decimal string of the smallest currency unit; no floats.
type Claim struct {
	ClaimID             uint64
	PolicyID            uint64
	Provider            string
	Beneficiary         string
	Insurer             string
	Amount              string
	EvidenceHash        string // content identifier of uploaded supporting documents, may be empty
	TreatmentCredential string // content identifier of a previously issued treatment credential, optional
	State               State
	SubmitDate          time.Time
	RejectionReason     string // non-empty iff State == StateRejected
}

// View is the external JSON serialization of a claim. It carries both
// `state` and `status` aliases and an ISO createdAt, matching the wire
// shape dashboards consume.
type View struct {
	ClaimID             string `json:"claimId"`
	PolicyID            string `json:"policyId"`
	Provider            string `json:"provider"`
	Beneficiary         string `json:"beneficiary"`
	Insurer             string `json:"insurer"`
	Amount              string `json:"amount"`
	EvidenceHash        string `json:"evidenceHash,omitempty"`
	TreatmentCredential string `json:"treatmentVcCid,omitempty"`
	State               string `json:"state"`
	Status              string `json:"status"`
	SubmitDate          string `json:"submitDate"`
	CreatedAt           string `json:"createdAt"`
	RejectionReason     string `json:"rejectionReason,omitempty"`
}

// ToView converts a ledger claim to its external serialization.
func (c *Claim) ToView() View {
	name := c.State.String()
	return View{
		ClaimID:             strconv.FormatUint(c.ClaimID, 10),
		PolicyID:            strconv.FormatUint(c.PolicyID, 10),
		Provider:            c.Provider,
		Beneficiary:         c.Beneficiary,
		Insurer:             c.Insurer,
		Amount:              c.Amount,
		EvidenceHash:        c.EvidenceHash,
		TreatmentCredential: c.TreatmentCredential,
		State:               name,
		Status:              name,
		SubmitDate:          strconv.FormatInt(c.SubmitDate.Unix(), 10),
		CreatedAt:           c.SubmitDate.UTC().Format(time.RFC3339),
		RejectionReason:     c.RejectionReason,
	}
}
