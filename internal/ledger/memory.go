package ledger

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"claimchain/internal/claims/models"
	"claimchain/internal/sentinel"
)

// InMemoryLedger is an in-process ledger for development and tests. It
// enforces the same rules the claim contract does: monotonically increasing
// ids starting at 1, immutable insurer and amount, forward-only transitions,
// and insurer-only authorization for decisions.
type InMemoryLedger struct {
	mu     sync.Mutex
	claims map[uint64]*models.Claim
	nextID uint64
	now    func() time.Time
}

// NewInMemory constructs an empty in-memory ledger.
func NewInMemory() *InMemoryLedger {
	return &InMemoryLedger{
		claims: make(map[uint64]*models.Claim),
		nextID: 1,
		now:    time.Now,
	}
}

// WithClock overrides the timestamp source, for tests.
func (l *InMemoryLedger) WithClock(now func() time.Time) *InMemoryLedger {
	l.now = now
	return l
}

func (l *InMemoryLedger) GetClaim(_ context.Context, id uint64) (*models.Claim, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	claim, ok := l.claims[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copyClaim := *claim
	return &copyClaim, nil
}

func (l *InMemoryLedger) SubmitClaim(_ context.Context, sub Submission) (uint64, TxRef, error) {
	if sub.Provider == "" || sub.Insurer == "" || sub.Amount == "" {
		return 0, TxRef{}, fmt.Errorf("%w: provider, insurer and amount are required", sentinel.ErrInvalidState)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextID
	l.nextID++
	l.claims[id] = &models.Claim{
		ClaimID:             id,
		PolicyID:            sub.PolicyID,
		Provider:            sub.Provider,
		Beneficiary:         sub.Beneficiary,
		Insurer:             sub.Insurer,
		Amount:              sub.Amount,
		EvidenceHash:        sub.EvidenceHash,
		TreatmentCredential: sub.TreatmentCredential,
		State:               models.StateSubmitted,
		SubmitDate:          l.now(),
	}
	return id, newTxRef(), nil
}

func (l *InMemoryLedger) SubmitTransition(_ context.Context, id uint64, kind TransitionKind, caller string, reason string) (TxRef, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	claim, ok := l.claims[id]
	if !ok {
		return TxRef{}, sentinel.ErrNotFound
	}
	if !strings.EqualFold(claim.Insurer, caller) {
		return TxRef{}, fmt.Errorf("%w: only the assigned insurer can transition claim %d", sentinel.ErrUnauthorizedActor, id)
	}

	var target models.State
	switch kind {
	case TransitionEnterReview:
		target = models.StateUnderReview
	case TransitionApprove:
		target = models.StateApproved
	case TransitionReject:
		if reason == "" {
			return TxRef{}, fmt.Errorf("%w: rejection requires a reason", sentinel.ErrInvalidState)
		}
		target = models.StateRejected
	default:
		return TxRef{}, fmt.Errorf("%w: unknown transition %q", sentinel.ErrInvalidState, kind)
	}

	if !claim.State.CanTransitionTo(target) {
		return TxRef{}, fmt.Errorf("%w: claim %d is %s, cannot move to %s",
			sentinel.ErrInvalidState, id, claim.State, target)
	}

	claim.State = target
	if target == models.StateRejected {
		claim.RejectionReason = reason
	}
	return newTxRef(), nil
}

// newTxRef fabricates a transaction hash in the ledger's wire format.
func newTxRef() TxRef {
	buf := make([]byte, 32)
	_, _ = rand.Read(buf)
	return TxRef{Hash: "0x" + hex.EncodeToString(buf)}
}
