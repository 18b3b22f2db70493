package vc

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gowebpki/jcs"

	"claimchain/contracts/credential"
	"claimchain/internal/claims/models"
	"claimchain/internal/evidence"
	"claimchain/internal/vc/index"
	dErrors "claimchain/pkg/domain-errors"
)

// Issuance describes the outcome credential to mint for a resolved claim.
type Issuance struct {
	Claim      *models.Claim
	Status     credential.Status
	Reason     string // rejection only
	InsurerDID string
	Treatment  TreatmentSummary
}

// Issued is the result of an issuance: the signed credential, and whether the
// artifact landed in the evidence store. The ledger decision is final either
// way; callers may retry only the artifact phase.
type Issued struct {
	Signed    credential.Signed
	Persisted bool
}

// Issuer constructs, signs, persists, and indexes outcome credentials.
type Issuer struct {
	signer *Signer
	store  evidence.Store
	index  index.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewIssuer constructs an Issuer.
func NewIssuer(signer *Signer, store evidence.Store, idx index.Store, logger *slog.Logger) *Issuer {
	return &Issuer{
		signer: signer,
		store:  store,
		index:  idx,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the timestamp source, for tests.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// Issue builds and signs the outcome credential, then best-effort persists it
// to the evidence store and records it in the index. Persistence failure does
// not fail the issuance: the signed credential is returned with Persisted false.
func (i *Issuer) Issue(ctx context.Context, iss Issuance, key ed25519.PrivateKey) (*Issued, error) {
	cred := i.buildCredential(iss)

	token, err := i.signer.Sign(cred, key)
	if err != nil {
		return nil, err
	}

	signed := credential.Signed{Credential: cred, JWT: token}

	cid, persistErr := i.persist(ctx, signed)
	if persistErr != nil {
		i.logger.WarnContext(ctx, "credential persistence to evidence store failed, decision stands",
			"claim_id", iss.Claim.ClaimID,
			"status", string(iss.Status),
			"error", persistErr,
		)
	} else {
		signed.CID = string(cid)
	}

	if err := i.index.Save(ctx, &index.Record{
		CredentialID: cred.ID,
		ClaimID:      iss.Claim.ClaimID,
		PolicyID:     iss.Claim.PolicyID,
		Status:       iss.Status,
		JWT:          token,
		CID:          signed.CID,
		IssuedAt:     i.now().UTC(),
	}); err != nil {
		// The index is a lookup convenience; losing it degrades idempotency,
		// not correctness of the issued artifact.
		i.logger.WarnContext(ctx, "credential index save failed",
			"claim_id", iss.Claim.ClaimID,
			"error", err,
		)
	}

	return &Issued{Signed: signed, Persisted: persistErr == nil}, nil
}

func (i *Issuer) buildCredential(iss Issuance) credential.Credential {
	now := i.now().UTC().Format(time.RFC3339)
	claimID := strconv.FormatUint(iss.Claim.ClaimID, 10)
	policyID := strconv.FormatUint(iss.Claim.PolicyID, 10)
	beneficiaryDID := fmt.Sprintf("did:example:%s", iss.Claim.Beneficiary)

	subject := credential.Subject{
		ID:                   beneficiaryDID,
		ClaimID:              claimID,
		PolicyID:             policyID,
		ProviderAddress:      iss.Claim.Provider,
		TreatmentDescription: iss.Treatment.Description,
		BillAmount:           iss.Treatment.BillAmount,
		TreatmentVcCid:       iss.Claim.TreatmentCredential,
		Status:               iss.Status,
		IssuedAt:             now,
	}

	var role string
	switch iss.Status {
	case credential.StatusApproved:
		role = "ClaimSettlement"
		subject.Role = role
		subject.CredentialType = "Claim Settlement Credential"
		subject.SettlementAmount = iss.Claim.Amount
		subject.SettlementDate = now
	default:
		role = "ClaimRejection"
		subject.Role = role
		subject.CredentialType = "Claim Rejection Credential"
		subject.ClaimAmount = iss.Claim.Amount
		subject.RejectionReason = iss.Reason
		subject.RejectionDate = now
	}

	return credential.Credential{
		Context:      credential.DefaultContext,
		ID:           fmt.Sprintf("urn:uuid:%s", uuid.NewString()),
		Type:         []string{"VerifiableCredential", role + "Credential"},
		Issuer:       credential.Issuer{ID: iss.InsurerDID},
		IssuanceDate: now,
		Subject:      subject,
	}
}

// persist canonicalizes the signed credential with JCS before storing so that
// identical credentials always map to identical bytes and therefore one CID.
func (i *Issuer) persist(ctx context.Context, signed credential.Signed) (evidence.CID, error) {
	raw, err := json.Marshal(signed)
	if err != nil {
		return "", err
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", err
	}
	return i.store.Put(ctx, canonical)
}

// LookupByPolicy returns the most recently issued credential for a policy.
func (i *Issuer) LookupByPolicy(ctx context.Context, policyID uint64) (*index.Record, error) {
	rec, err := i.index.FindByPolicy(ctx, policyID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "no credential issued for policy")
	}
	return rec, nil
}

// LookupByClaim returns the issued credential for a claim, if any.
func (i *Issuer) LookupByClaim(ctx context.Context, claimID uint64) (*index.Record, error) {
	return i.index.FindByClaim(ctx, claimID)
}
