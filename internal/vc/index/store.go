// Package index records issued outcome credentials keyed by claim and policy,
// so callers can look up "the credential for policy P" without scanning the
// evidence store, and so issuance can be idempotent per claim.
package index

import (
	"context"
	"time"

	"claimchain/contracts/credential"
)

// Record is an issued outcome credential reference.
type Record struct {
	CredentialID string
	ClaimID      uint64
	PolicyID     uint64
	Status       credential.Status
	JWT          string
	CID          string // empty when evidence-store persistence failed
	IssuedAt     time.Time
}

// Store persists issued-credential records.
//
// Error contract:
//   - FindByClaim and FindByPolicy return sentinel.ErrNotFound when no record exists.
//   - Save overwrites an existing record for the same claim (artifact-phase retries).
type Store interface {
	Save(ctx context.Context, rec *Record) error
	FindByClaim(ctx context.Context, claimID uint64) (*Record, error)
	FindByPolicy(ctx context.Context, policyID uint64) (*Record, error)
}
