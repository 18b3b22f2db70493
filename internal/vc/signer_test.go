package vc

import (
	"crypto/ed25519"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimchain/contracts/credential"
)

const testSeedHex = "9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60"

func testCredential() credential.Credential {
	return credential.Credential{
		Context:      credential.DefaultContext,
		ID:           "urn:uuid:5c3b9aa1-0000-4000-8000-000000000001",
		Type:         []string{"VerifiableCredential", "ClaimSettlementCredential"},
		Issuer:       credential.Issuer{ID: "did:example:insurer"},
		IssuanceDate: "2026-08-29T00:00:00Z",
		Subject: credential.Subject{
			ID:                   "did:example:0xbeneficiary",
			Role:                 "ClaimSettlement",
			CredentialType:       "Claim Settlement Credential",
			ClaimID:              "7",
			PolicyID:             "3",
			ProviderAddress:      "0xProvider",
			SettlementAmount:     "150000",
			TreatmentDescription: "Appendectomy",
			BillAmount:           "150000",
			Status:               credential.StatusApproved,
			IssuedAt:             "2026-08-29T00:00:00Z",
		},
	}
}

func TestParseSigningKey(t *testing.T) {
	key, err := ParseSigningKey(testSeedHex)
	require.NoError(t, err)
	assert.Len(t, key, ed25519.PrivateKeySize)

	_, err = ParseSigningKey("not hex at all")
	assert.Error(t, err)

	_, err = ParseSigningKey("deadbeef")
	assert.Error(t, err, "short seeds must be rejected")
}

func TestSignVerifyRoundTrip(t *testing.T) {
	key, err := ParseSigningKey(testSeedHex)
	require.NoError(t, err)

	signer := NewSigner().WithClock(func() time.Time {
		return time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	})
	token, err := signer.Sign(testCredential(), key)
	require.NoError(t, err)
	assert.Equal(t, 3, len(strings.Split(token, ".")), "proof must be a compact JWT")

	res := signer.Verify(token, key.Public().(ed25519.PublicKey))
	require.True(t, res.Valid, res.Reason)
	require.NotNil(t, res.Credential)
	assert.Equal(t, "7", res.Credential.Subject.ClaimID)
	assert.Equal(t, credential.StatusApproved, res.Credential.Subject.Status)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	key, err := ParseSigningKey(testSeedHex)
	require.NoError(t, err)

	signer := NewSigner()
	token, err := signer.Sign(testCredential(), key)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	res := signer.Verify(tampered, key.Public().(ed25519.PublicKey))
	assert.False(t, res.Valid)
	assert.NotEmpty(t, res.Reason)
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	key, err := ParseSigningKey(testSeedHex)
	require.NoError(t, err)
	otherPub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	signer := NewSigner()
	token, err := signer.Sign(testCredential(), key)
	require.NoError(t, err)

	res := signer.Verify(token, otherPub)
	assert.False(t, res.Valid)
}

func TestVerifyMalformedInputDoesNotPanic(t *testing.T) {
	key, err := ParseSigningKey(testSeedHex)
	require.NoError(t, err)
	pub := key.Public().(ed25519.PublicKey)

	signer := NewSigner()
	for _, tc := range []string{
		"",
		"garbage",
		"a.b",
		"a.b.c",
		"..",
		strings.Repeat("x", 10_000),
	} {
		res := signer.Verify(tc, pub)
		assert.False(t, res.Valid, "input %q must not verify", tc)
		assert.NotEmpty(t, res.Reason)
	}

	res := signer.Verify("a.b.c", ed25519.PublicKey(nil))
	assert.False(t, res.Valid)
}

func TestSignRejectsBadKey(t *testing.T) {
	signer := NewSigner()
	_, err := signer.Sign(testCredential(), ed25519.PrivateKey([]byte("short")))
	assert.Error(t, err)
}
