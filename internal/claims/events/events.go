// Package events publishes adjudication outcomes to downstream consumers
// (payment processors, dashboards, audit pipelines). Emission is best effort:
// a broker outage never rolls back a ledger-final decision.
package events

import (
	"context"
	"time"
)

// ClaimAdjudicated is emitted once per committed adjudication decision.
type ClaimAdjudicated struct {
	ClaimID           string    `json:"claimId"`
	PolicyID          string    `json:"policyId"`
	Outcome           string    `json:"outcome"` // Approved or Rejected
	Reason            string    `json:"reason,omitempty"`
	TxRef             string    `json:"txRef"`
	CredentialID      string    `json:"credentialId,omitempty"`
	CredentialCID     string    `json:"credentialCid,omitempty"`
	ArtifactPersisted bool      `json:"artifactPersisted"`
	At                time.Time `json:"at"`
}

// Emitter publishes adjudication events. Implementations must be safe for
// concurrent use and should not block beyond their configured timeout.
type Emitter interface {
	EmitClaimAdjudicated(ctx context.Context, ev ClaimAdjudicated) error
	Close() error
}
