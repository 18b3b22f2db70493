package handler

import (
	"strconv"

	"claimchain/contracts/credential"
	"claimchain/internal/claims/engine"
	"claimchain/internal/claims/models"
)

// HTTP response DTOs. Every mutation response carries an explicit success
// boolean; the provider listing uses `ok`, matching its original wire shape.

// CredentialEnvelope nests a signed outcome credential with its storage id,
// the shape consumers read under settlementVC/rejectionVC.
type CredentialEnvelope struct {
	VC  credential.Credential `json:"vc"`
	JWT string                `json:"jwt"`
	CID string                `json:"cid,omitempty"`
}

type AdjudicationResponse struct {
	Success           bool                  `json:"success"`
	ClaimID           string                `json:"claimId"`
	Status            string                `json:"status"`
	TxHash            string                `json:"txHash,omitempty"`
	SettlementVC      *CredentialEnvelope   `json:"settlementVC,omitempty"`
	RejectionVC       *CredentialEnvelope   `json:"rejectionVC,omitempty"`
	Credential        credential.Credential `json:"credential"`
	CredentialJWT     string                `json:"credentialJwt"`
	CredentialCID     string                `json:"credentialCid,omitempty"`
	ArtifactPersisted bool                  `json:"artifactPersisted"`
	AlreadyDecided    bool                  `json:"alreadyDecided,omitempty"`
}

func toAdjudicationResponse(out *engine.Outcome) *AdjudicationResponse {
	resp := &AdjudicationResponse{
		Success:           true,
		ClaimID:           strconv.FormatUint(out.ClaimID, 10),
		Status:            string(out.Decision),
		TxHash:            out.TxRef.Hash,
		Credential:        out.Credential.Credential,
		CredentialJWT:     out.Credential.JWT,
		CredentialCID:     out.Credential.CID,
		ArtifactPersisted: out.ArtifactPersisted,
		AlreadyDecided:    out.AlreadyDecided,
	}
	env := &CredentialEnvelope{
		VC:  out.Credential.Credential,
		JWT: out.Credential.JWT,
		CID: out.Credential.CID,
	}
	if out.Decision == credential.StatusRejected {
		resp.RejectionVC = env
	} else {
		resp.SettlementVC = env
	}
	return resp
}

type SubmitClaimResponse struct {
	Success bool   `json:"success"`
	ClaimID string `json:"claimId"`
	TxHash  string `json:"txHash"`
}

type ClaimListResponse struct {
	Success bool          `json:"success"`
	Claims  []models.View `json:"claims"`
}

type ProviderClaimsResponse struct {
	OK     bool          `json:"ok"`
	Claims []models.View `json:"claims"`
}

type PolicyCredentialResponse struct {
	Success       bool   `json:"success"`
	PolicyID      string `json:"policyId"`
	ClaimID       string `json:"claimId"`
	Status        string `json:"status"`
	CredentialID  string `json:"credentialId"`
	CredentialJWT string `json:"credentialJwt"`
	CredentialCID string `json:"credentialCid,omitempty"`
	IssuedAt      string `json:"issuedAt"`
}
