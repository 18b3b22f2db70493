// Package ledger adapts the external system of record for claim state.
// The ledger is the serialization point for claim transitions: only one
// decision can be the first to apply, and conflicting attempts fail with
// sentinel.ErrInvalidState. The engine never compensates a committed
// transition.
package ledger

import (
	"context"

	"claimchain/internal/claims/models"
)

// TransitionKind identifies a state-changing ledger transaction.
type TransitionKind string

const (
	TransitionEnterReview TransitionKind = "enter_review"
	TransitionApprove     TransitionKind = "approve"
	TransitionReject      TransitionKind = "reject"
)

// TxRef references a confirmed ledger transaction.
type TxRef struct {
	Hash string `json:"txHash"`
}

// Submission carries the fields of a provider's claim submission.
type Submission struct {
	PolicyID            uint64
	Provider            string
	Beneficiary         string
	Insurer             string
	Amount              string
	EvidenceHash        string
	TreatmentCredential string
}

// Ledger reads claim records and submits state-transition transactions.
//
// Error contract:
//   - GetClaim returns sentinel.ErrNotFound when the claim does not exist.
//   - SubmitTransition returns sentinel.ErrInvalidState for transitions out of
//     terminal states, sentinel.ErrUnauthorizedActor when caller is not the
//     claim's insurer, sentinel.ErrUnavailable when the ledger is unreachable,
//     and context.DeadlineExceeded when confirmation timed out (outcome unknown).
//   - SubmitTransition blocks until the transaction is confirmed or fails.
type Ledger interface {
	GetClaim(ctx context.Context, id uint64) (*models.Claim, error)
	SubmitClaim(ctx context.Context, sub Submission) (uint64, TxRef, error)
	SubmitTransition(ctx context.Context, id uint64, kind TransitionKind, caller string, reason string) (TxRef, error)
}
