// Package vc implements credential signing, verification, and issuance.
// Proofs are JWTs signed with the issuer's Ed25519 key, so any holder of the
// issuer's public key can verify a credential without contacting this service.
package vc

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"claimchain/contracts/credential"
	dErrors "claimchain/pkg/domain-errors"
)

// credentialClaims is the JWT claim set carrying the credential payload.
type credentialClaims struct {
	VC credential.Credential `json:"vc"`
	jwt.RegisteredClaims
}

// Signer produces and verifies JWT-proofed credentials.
type Signer struct {
	now func() time.Time
}

// NewSigner constructs a Signer.
func NewSigner() *Signer {
	return &Signer{now: time.Now}
}

// WithClock overrides the timestamp source, for tests.
func (s *Signer) WithClock(now func() time.Time) *Signer {
	s.now = now
	return s
}

// ParseSigningKey decodes a hex-encoded 32-byte Ed25519 seed into a private key.
func ParseSigningKey(hexSeed string) (ed25519.PrivateKey, error) {
	seed, err := hex.DecodeString(hexSeed)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "signing key must be hex encoded")
	}
	if len(seed) != ed25519.SeedSize {
		return nil, dErrors.New(dErrors.CodeInvalidInput,
			fmt.Sprintf("signing key must be %d bytes, got %d", ed25519.SeedSize, len(seed)))
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

// Sign wraps the credential payload in a JWT signed with the issuer key.
func (s *Signer) Sign(cred credential.Credential, key ed25519.PrivateKey) (string, error) {
	if len(key) != ed25519.PrivateKeySize {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid signing key")
	}

	now := s.now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, credentialClaims{
		VC: cred,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   cred.Issuer.ID,
			Subject:  cred.Subject.ID,
			IssuedAt: jwt.NewNumericDate(now),
			ID:       cred.ID,
		},
	})

	signed, err := token.SignedString(key)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not sign credential")
	}
	return signed, nil
}

// VerificationResult reports the outcome of a credential verification.
type VerificationResult struct {
	Valid      bool
	Reason     string
	Credential *credential.Credential
}

// Verify checks a JWT-proofed credential against the issuer's public key.
// Malformed input yields a negative result, never a panic or error.
func (s *Signer) Verify(tokenString string, pub ed25519.PublicKey) VerificationResult {
	if tokenString == "" {
		return VerificationResult{Valid: false, Reason: "empty credential"}
	}
	if len(pub) != ed25519.PublicKeySize {
		return VerificationResult{Valid: false, Reason: "invalid public key"}
	}

	claims := new(credentialClaims)
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodEdDSA.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm %q", t.Method.Alg())
		}
		return pub, nil
	})
	if err != nil {
		return VerificationResult{Valid: false, Reason: err.Error()}
	}
	if !token.Valid {
		return VerificationResult{Valid: false, Reason: "invalid signature"}
	}

	return VerificationResult{Valid: true, Credential: &claims.VC}
}
