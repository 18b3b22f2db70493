package vc

import (
	"context"
	"crypto/ed25519"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimchain/contracts/credential"
	"claimchain/internal/claims/models"
	"claimchain/internal/evidence"
	"claimchain/internal/vc/index"
)

// failingStore simulates an unreachable evidence backend.
type failingStore struct{}

func (failingStore) Put(ctx context.Context, data []byte) (evidence.CID, error) {
	return "", errors.New("backend unreachable")
}

func (failingStore) Get(ctx context.Context, cid evidence.CID) ([]byte, error) {
	return nil, errors.New("backend unreachable")
}

func testClaim() *models.Claim {
	return &models.Claim{
		ClaimID:             7,
		PolicyID:            3,
		Provider:            "0xProvider",
		Beneficiary:         "0xBeneficiary",
		Insurer:             "0xInsurer",
		Amount:              "150000",
		TreatmentCredential: "sha256:abc123",
		State:               models.StateApproved,
		SubmitDate:          time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
}

func newTestIssuer(store evidence.Store, idx index.Store) (*Issuer, ed25519.PrivateKey) {
	key, _ := ParseSigningKey(testSeedHex)
	signer := NewSigner()
	iss := NewIssuer(signer, store, idx, slog.New(slog.NewTextHandler(io.Discard, nil))).
		WithClock(func() time.Time { return time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC) })
	return iss, key
}

func TestIssueSettlementCredential(t *testing.T) {
	store := evidence.NewInMemory()
	idx := index.NewInMemory()
	issuer, key := newTestIssuer(store, idx)

	out, err := issuer.Issue(context.Background(), Issuance{
		Claim:      testClaim(),
		Status:     credential.StatusApproved,
		InsurerDID: "did:example:insurer",
		Treatment:  TreatmentSummary{Description: "Appendectomy", BillAmount: "150000"},
	}, key)
	require.NoError(t, err)
	require.True(t, out.Persisted)
	require.NotEmpty(t, out.Signed.CID)

	sub := out.Signed.Credential.Subject
	assert.Equal(t, "7", sub.ClaimID)
	assert.Equal(t, "3", sub.PolicyID)
	assert.Equal(t, "Claim Settlement Credential", sub.CredentialType)
	assert.Equal(t, "ClaimSettlement", sub.Role)
	assert.Equal(t, "150000", sub.SettlementAmount)
	assert.Empty(t, sub.ClaimAmount)
	assert.Equal(t, "Appendectomy", sub.TreatmentDescription)
	assert.Equal(t, credential.StatusApproved, sub.Status)
	assert.Equal(t, "2026-08-29T12:00:00Z", sub.SettlementDate)
	assert.Empty(t, sub.RejectionDate)
	assert.Contains(t, out.Signed.Credential.Type, "ClaimSettlementCredential")
	assert.Equal(t, "did:example:insurer", out.Signed.Credential.Issuer.ID)

	// The stored artifact must be retrievable under the returned CID.
	_, err = store.Get(context.Background(), evidence.CID(out.Signed.CID))
	assert.NoError(t, err)

	// And the index must know it by claim and by policy.
	rec, err := idx.FindByClaim(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, out.Signed.JWT, rec.JWT)
	rec, err = idx.FindByPolicy(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, string(credential.StatusApproved), string(rec.Status))
}

func TestIssueRejectionCredential(t *testing.T) {
	issuer, key := newTestIssuer(evidence.NewInMemory(), index.NewInMemory())

	claim := testClaim()
	claim.State = models.StateRejected
	out, err := issuer.Issue(context.Background(), Issuance{
		Claim:      claim,
		Status:     credential.StatusRejected,
		Reason:     "policy lapsed",
		InsurerDID: "did:example:insurer",
		Treatment:  DegradedTreatmentSummary(),
	}, key)
	require.NoError(t, err)

	sub := out.Signed.Credential.Subject
	assert.Equal(t, "Claim Rejection Credential", sub.CredentialType)
	assert.Equal(t, "ClaimRejection", sub.Role)
	assert.Equal(t, "150000", sub.ClaimAmount)
	assert.Empty(t, sub.SettlementAmount)
	assert.Equal(t, "policy lapsed", sub.RejectionReason)
	assert.Equal(t, credential.NotAvailable, sub.TreatmentDescription)
	assert.Equal(t, credential.NotAvailable, sub.BillAmount)
	assert.NotEmpty(t, sub.RejectionDate)
	assert.Empty(t, sub.SettlementDate)
}

func TestIssueSurvivesEvidenceOutage(t *testing.T) {
	idx := index.NewInMemory()
	issuer, key := newTestIssuer(failingStore{}, idx)

	out, err := issuer.Issue(context.Background(), Issuance{
		Claim:      testClaim(),
		Status:     credential.StatusApproved,
		InsurerDID: "did:example:insurer",
		Treatment:  DegradedTreatmentSummary(),
	}, key)
	require.NoError(t, err, "evidence outage must not fail issuance")
	assert.False(t, out.Persisted)
	assert.Empty(t, out.Signed.CID)
	assert.NotEmpty(t, out.Signed.JWT, "the signed proof exists regardless of persistence")

	rec, err := idx.FindByClaim(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, rec.CID, "index records the missing artifact for later retry")
}

func TestIssuedProofVerifies(t *testing.T) {
	issuer, key := newTestIssuer(evidence.NewInMemory(), index.NewInMemory())

	out, err := issuer.Issue(context.Background(), Issuance{
		Claim:      testClaim(),
		Status:     credential.StatusApproved,
		InsurerDID: "did:example:insurer",
		Treatment:  TreatmentSummary{Description: "Appendectomy", BillAmount: "150000"},
	}, key)
	require.NoError(t, err)

	res := NewSigner().Verify(out.Signed.JWT, key.Public().(ed25519.PublicKey))
	require.True(t, res.Valid, res.Reason)
	assert.Equal(t, "7", res.Credential.Subject.ClaimID)
}
