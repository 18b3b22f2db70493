package handler

import (
	"strconv"
	"strings"

	"claimchain/internal/claims/engine"
	"claimchain/internal/vc"
	dErrors "claimchain/pkg/domain-errors"
)

// HTTP request DTOs. Claim and policy ids travel as decimal strings on the
// wire and are parsed at this boundary.

type ApproveClaimRequest struct {
	ClaimID        string `json:"claimId"`
	InsurerAddress string `json:"insurerAddress"`
	InsurerDID     string `json:"insurerDid"`
	SigningKey     string `json:"signingKey"`
}

func (r *ApproveClaimRequest) Normalize() {
	if r == nil {
		return
	}
	r.ClaimID = strings.TrimSpace(r.ClaimID)
	r.InsurerAddress = strings.TrimSpace(r.InsurerAddress)
	r.InsurerDID = strings.TrimSpace(r.InsurerDID)
	r.SigningKey = strings.TrimSpace(r.SigningKey)
}

func (r *ApproveClaimRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.ClaimID == "" {
		return dErrors.New(dErrors.CodeValidation, "claimId is required")
	}
	if r.InsurerAddress == "" {
		return dErrors.New(dErrors.CodeValidation, "insurerAddress is required")
	}
	return nil
}

type RejectClaimRequest struct {
	ClaimID        string `json:"claimId"`
	InsurerAddress string `json:"insurerAddress"`
	InsurerDID     string `json:"insurerDid"`
	SigningKey     string `json:"signingKey"`
	Reason         string `json:"reason"`
}

func (r *RejectClaimRequest) Normalize() {
	if r == nil {
		return
	}
	r.ClaimID = strings.TrimSpace(r.ClaimID)
	r.InsurerAddress = strings.TrimSpace(r.InsurerAddress)
	r.InsurerDID = strings.TrimSpace(r.InsurerDID)
	r.SigningKey = strings.TrimSpace(r.SigningKey)
	r.Reason = strings.TrimSpace(r.Reason)
}

func (r *RejectClaimRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.ClaimID == "" {
		return dErrors.New(dErrors.CodeValidation, "claimId is required")
	}
	if r.InsurerAddress == "" {
		return dErrors.New(dErrors.CodeValidation, "insurerAddress is required")
	}
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	return nil
}

type SubmitClaimRequest struct {
	PolicyID            string `json:"policyId"`
	Provider            string `json:"provider"`
	Beneficiary         string `json:"beneficiary"`
	Insurer             string `json:"insurer"`
	Amount              string `json:"amount"`
	EvidenceHash        string `json:"evidenceHash"`
	TreatmentCredential string `json:"treatmentVcCid"`
}

func (r *SubmitClaimRequest) Normalize() {
	if r == nil {
		return
	}
	r.PolicyID = strings.TrimSpace(r.PolicyID)
	r.Provider = strings.TrimSpace(r.Provider)
	r.Beneficiary = strings.TrimSpace(r.Beneficiary)
	r.Insurer = strings.TrimSpace(r.Insurer)
	r.Amount = strings.TrimSpace(r.Amount)
	r.EvidenceHash = strings.TrimSpace(r.EvidenceHash)
	r.TreatmentCredential = strings.TrimSpace(r.TreatmentCredential)
}

func (r *SubmitClaimRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.PolicyID == "" {
		return dErrors.New(dErrors.CodeValidation, "policyId is required")
	}
	if _, err := strconv.ParseUint(r.PolicyID, 10, 64); err != nil {
		return dErrors.New(dErrors.CodeValidation, "policyId must be a decimal number")
	}
	if r.Provider == "" {
		return dErrors.New(dErrors.CodeValidation, "provider is required")
	}
	if r.Insurer == "" {
		return dErrors.New(dErrors.CodeValidation, "insurer is required")
	}
	if r.Amount == "" {
		return dErrors.New(dErrors.CodeValidation, "amount is required")
	}
	// Amounts are arbitrary-precision integers of the smallest currency unit;
	// they routinely exceed the uint64 range, so only the digits are checked.
	if !isDigits(r.Amount) {
		return dErrors.New(dErrors.CodeValidation, "amount must be a decimal string of the smallest currency unit")
	}
	return nil
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// actorFrom builds the decision actor from request fields, parsing the
// optional per-request signing key.
func actorFrom(address, did, signingKey string) (engine.Actor, error) {
	actor := engine.Actor{Address: address, DID: did}
	if signingKey != "" {
		key, err := vc.ParseSigningKey(signingKey)
		if err != nil {
			return engine.Actor{}, dErrors.New(dErrors.CodeValidation,
				"signingKey must be a hex-encoded ed25519 seed")
		}
		actor.SigningKey = key
	}
	return actor, nil
}

// parseClaimID converts a wire claim id to a ledger id.
func parseClaimID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "claimId must be a positive decimal number")
	}
	return id, nil
}
