// Package engine implements claim adjudication: insurer approve and reject
// decisions, evidence enrichment, and outcome credential issuance.
//
// The pipeline is deliberately two-phase. Phase one commits the decision to
// the ledger; once confirmed it is never compensated. Phase two issues and
// persists the outcome credential; its failures degrade the result but never
// undo phase one.
package engine

import (
	"context"
	"crypto/ed25519"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"claimchain/contracts/credential"
	"claimchain/internal/claims/events"
	"claimchain/internal/claims/models"
	"claimchain/internal/claims/tracer"
	"claimchain/internal/evidence"
	"claimchain/internal/ledger"
	"claimchain/internal/platform/metrics"
	"claimchain/internal/sentinel"
	"claimchain/internal/vc"
	dErrors "claimchain/pkg/domain-errors"
)

// Outcome is the result of an adjudication call. TxRef is zero when the
// decision was already committed by an earlier call and only the credential
// was (re)turned.
type Outcome struct {
	ClaimID           uint64
	Decision          credential.Status
	TxRef             ledger.TxRef
	Credential        credential.Signed
	ArtifactPersisted bool
	AlreadyDecided    bool
}

// Actor identifies the insurer making a decision. Address is matched against
// the claim's insurer; DID and SigningKey, when set, override the engine
// defaults so each insurer's credentials carry its own issuer identity.
type Actor struct {
	Address    string
	DID        string
	SigningKey ed25519.PrivateKey
}

// Engine orchestrates the adjudication pipeline.
type Engine struct {
	ledger     ledger.Ledger
	evidence   evidence.Store
	issuer     *vc.Issuer
	signingKey ed25519.PrivateKey
	insurerDID string

	evidenceTimeout time.Duration

	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  tracer.Tracer
	emitter events.Emitter
	now     func() time.Time
}

// Option configures the engine.
type Option func(e *Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithTracer sets the tracer.
func WithTracer(t tracer.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// WithEmitter sets the adjudication event emitter.
func WithEmitter(em events.Emitter) Option {
	return func(e *Engine) { e.emitter = em }
}

// WithClock overrides the timestamp source, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithEvidenceTimeout bounds treatment evidence fetches. Zero leaves the
// caller's deadline in place.
func WithEvidenceTimeout(d time.Duration) Option {
	return func(e *Engine) { e.evidenceTimeout = d }
}

// New constructs an Engine. The signing key and insurer DID are the default
// issuer identity for outcome credentials; an Actor carrying its own DID and
// key takes precedence per call.
func New(l ledger.Ledger, ev evidence.Store, issuer *vc.Issuer, key ed25519.PrivateKey, insurerDID string, opts ...Option) *Engine {
	e := &Engine{
		ledger:     l,
		evidence:   ev,
		issuer:     issuer,
		signingKey: key,
		insurerDID: insurerDID,
		logger:     slog.Default(),
		tracer:     tracer.NewNoop(),
		emitter:    events.NewMemory(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Approve commits an approval decision for the claim and issues a settlement
// credential. The actor must be the claim's insurer.
func (e *Engine) Approve(ctx context.Context, claimID uint64, actor Actor) (*Outcome, error) {
	return e.adjudicate(ctx, claimID, actor, credential.StatusApproved, "")
}

// Reject commits a rejection decision for the claim and issues a rejection
// credential. The actor must be the claim's insurer and reason must be
// non-empty.
func (e *Engine) Reject(ctx context.Context, claimID uint64, actor Actor, reason string) (*Outcome, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "rejection reason is required")
	}
	return e.adjudicate(ctx, claimID, actor, credential.StatusRejected, reason)
}

func (e *Engine) adjudicate(ctx context.Context, claimID uint64, actor Actor, decision credential.Status, reason string) (out *Outcome, err error) {
	start := e.now()
	ctx, span := e.tracer.Start(ctx, tracer.SpanAdjudicate,
		tracer.Uint64(tracer.AttrClaimID, claimID),
		tracer.String(tracer.AttrOutcome, string(decision)),
	)
	defer func() {
		span.End(err)
		e.observeAdjudication(decision, err, e.now().Sub(start))
	}()

	claim, err := e.ledger.GetClaim(ctx, claimID)
	if err != nil {
		return nil, translateLedgerErr(err, "could not load claim")
	}

	// Authorization before any state change. Addresses compare
	// case-insensitively because callers mix checksum and lowercase forms.
	if !strings.EqualFold(claim.Insurer, actor.Address) {
		return nil, dErrors.New(dErrors.CodeForbidden, "caller is not the insurer for this claim")
	}

	if decided, ok := decidedStatus(claim.State); ok {
		if decided != decision {
			return nil, dErrors.New(dErrors.CodeInvalidState,
				"claim was already "+strings.ToLower(string(decided)))
		}
		// Same decision replayed. The ledger transition is already final;
		// return the existing credential, retrying only the artifact phase.
		return e.reissue(ctx, claim, actor, decision, reason)
	}

	if !claim.State.Decidable() {
		return nil, dErrors.New(dErrors.CodeInvalidState,
			"claim in state "+claim.State.String()+" cannot be decided")
	}

	// First decision on a submitted claim moves it into review first, so the
	// ledger history always shows the review step.
	if claim.State == models.StateSubmitted {
		if _, err = e.transition(ctx, claimID, ledger.TransitionEnterReview, actor.Address, ""); err != nil {
			return nil, err
		}
		span.AddEvent(tracer.EventReviewEntered)
	}

	kind := ledger.TransitionApprove
	if decision == credential.StatusRejected {
		kind = ledger.TransitionReject
	}
	txRef, err := e.transition(ctx, claimID, kind, actor.Address, reason)
	if err != nil {
		return nil, err
	}
	span.AddEvent(tracer.EventDecisionCommitted)

	// Decision is final from here. Credential issuance failures are reported
	// as a degraded outcome, never as a rolled-back decision.
	claim.State = models.StateApproved
	claim.RejectionReason = ""
	if decision == credential.StatusRejected {
		claim.State = models.StateRejected
		claim.RejectionReason = reason
	}

	issued, issueErr := e.issue(ctx, claim, actor, decision, reason)
	if issueErr != nil {
		e.logger.ErrorContext(ctx, "decision committed but credential issuance failed",
			"claim_id", claimID,
			"decision", string(decision),
			"tx", txRef.Hash,
			"error", issueErr,
		)
		return &Outcome{ClaimID: claimID, Decision: decision, TxRef: txRef}, dErrors.Wrap(issueErr,
			dErrors.CodeInternal, "decision committed but credential issuance failed")
	}
	span.AddEvent(tracer.EventCredentialIssued)
	span.SetAttributes(tracer.Bool(tracer.AttrArtifactPersisted, issued.Persisted))

	out = &Outcome{
		ClaimID:           claimID,
		Decision:          decision,
		TxRef:             txRef,
		Credential:        issued.Signed,
		ArtifactPersisted: issued.Persisted,
	}
	e.emit(ctx, out, reason)
	return out, nil
}

// reissue handles a replayed decision on an already-decided claim: return the
// indexed credential if present, otherwise mint it now without touching the
// ledger.
func (e *Engine) reissue(ctx context.Context, claim *models.Claim, actor Actor, decision credential.Status, reason string) (*Outcome, error) {
	rec, err := e.issuer.LookupByClaim(ctx, claim.ClaimID)
	if err == nil && rec.CID != "" {
		return &Outcome{
			ClaimID:           claim.ClaimID,
			Decision:          decision,
			Credential:        credential.Signed{JWT: rec.JWT, CID: rec.CID},
			ArtifactPersisted: true,
			AlreadyDecided:    true,
		}, nil
	}
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not look up issued credential")
	}

	// Either never issued, or issued without a persisted artifact. Rebuild
	// and re-sign; identical content re-puts under the same identifier.
	if decision == credential.StatusRejected && reason == "" {
		reason = claim.RejectionReason
	}
	issued, err := e.issue(ctx, claim, actor, decision, reason)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not reissue credential")
	}
	return &Outcome{
		ClaimID:           claim.ClaimID,
		Decision:          decision,
		Credential:        issued.Signed,
		ArtifactPersisted: issued.Persisted,
		AlreadyDecided:    true,
	}, nil
}

func (e *Engine) transition(ctx context.Context, claimID uint64, kind ledger.TransitionKind, caller, reason string) (ref ledger.TxRef, err error) {
	ctx, span := e.tracer.Start(ctx, tracer.SpanLedgerTransition,
		tracer.Uint64(tracer.AttrClaimID, claimID),
		tracer.String("kind", string(kind)),
	)
	defer func() { span.End(err) }()

	ref, err = e.ledger.SubmitTransition(ctx, claimID, kind, caller, reason)
	if err != nil {
		return ledger.TxRef{}, translateLedgerErr(err, "ledger transition "+string(kind)+" failed")
	}
	return ref, nil
}

// issue enriches the claim with treatment evidence and mints the outcome
// credential. Evidence failures degrade to N/A fields.
func (e *Engine) issue(ctx context.Context, claim *models.Claim, actor Actor, decision credential.Status, reason string) (issued *vc.Issued, err error) {
	summary := e.fetchTreatment(ctx, claim)

	start := e.now()
	ctx, span := e.tracer.Start(ctx, tracer.SpanCredentialIssue,
		tracer.Uint64(tracer.AttrClaimID, claim.ClaimID),
		tracer.String(tracer.AttrOutcome, string(decision)),
	)
	defer func() {
		span.SetAttributes(tracer.Duration("elapsed", e.now().Sub(start)))
		span.End(err)
	}()

	did, key := e.issuerIdentity(actor)
	issued, err = e.issuer.Issue(ctx, vc.Issuance{
		Claim:      claim,
		Status:     decision,
		Reason:     reason,
		InsurerDID: did,
		Treatment:  summary,
	}, key)
	if err != nil {
		return nil, err
	}

	if e.metrics != nil {
		e.metrics.CredentialsIssued.WithLabelValues(string(decision)).Inc()
		if !issued.Persisted {
			e.metrics.ArtifactPersistFails.Inc()
		}
	}
	return issued, nil
}

// issuerIdentity resolves the DID and signing key for a credential: the
// actor's own identity when supplied, the configured defaults otherwise.
func (e *Engine) issuerIdentity(actor Actor) (string, ed25519.PrivateKey) {
	did, key := e.insurerDID, e.signingKey
	if actor.DID != "" {
		did = actor.DID
	}
	if len(actor.SigningKey) > 0 {
		key = actor.SigningKey
	}
	return did, key
}

// fetchTreatment loads and parses the linked treatment credential. Every
// failure path returns the degraded summary; adjudication never fails on
// evidence problems.
func (e *Engine) fetchTreatment(ctx context.Context, claim *models.Claim) vc.TreatmentSummary {
	if claim.TreatmentCredential == "" {
		return vc.DegradedTreatmentSummary()
	}

	if e.evidenceTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.evidenceTimeout)
		defer cancel()
	}

	ctx, span := e.tracer.Start(ctx, tracer.SpanEvidenceFetch,
		tracer.Uint64(tracer.AttrClaimID, claim.ClaimID),
	)

	raw, err := e.evidence.Get(ctx, evidence.CID(claim.TreatmentCredential))
	if err != nil {
		span.SetAttributes(tracer.Bool(tracer.AttrEvidenceDegraded, true))
		span.End(nil)
		e.degradeEvidence(ctx, claim.ClaimID, "treatment credential fetch failed", err)
		return vc.DegradedTreatmentSummary()
	}

	summary, err := vc.ParseTreatmentSummary(raw)
	if err != nil {
		span.SetAttributes(tracer.Bool(tracer.AttrEvidenceDegraded, true))
		span.End(nil)
		e.degradeEvidence(ctx, claim.ClaimID, "treatment credential unparseable", err)
		return summary
	}

	span.End(nil)
	return summary
}

func (e *Engine) degradeEvidence(ctx context.Context, claimID uint64, msg string, err error) {
	e.logger.WarnContext(ctx, msg+", continuing with N/A fields",
		"claim_id", claimID,
		"error", err,
	)
	if e.metrics != nil {
		e.metrics.EvidenceDegradations.Inc()
	}
}

func (e *Engine) emit(ctx context.Context, out *Outcome, reason string) {
	ev := events.ClaimAdjudicated{
		ClaimID:           strconv.FormatUint(out.ClaimID, 10),
		PolicyID:          out.Credential.Credential.Subject.PolicyID,
		Outcome:           string(out.Decision),
		Reason:            reason,
		TxRef:             out.TxRef.Hash,
		CredentialID:      out.Credential.Credential.ID,
		CredentialCID:     out.Credential.CID,
		ArtifactPersisted: out.ArtifactPersisted,
		At:                e.now().UTC(),
	}
	if err := e.emitter.EmitClaimAdjudicated(ctx, ev); err != nil {
		e.logger.WarnContext(ctx, "adjudication event emission failed",
			"claim_id", out.ClaimID,
			"error", err,
		)
	}
}

func (e *Engine) observeAdjudication(decision credential.Status, err error, elapsed time.Duration) {
	if e.metrics == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	e.metrics.Adjudications.WithLabelValues(string(decision), result).Inc()
	e.metrics.AdjudicationLatency.Observe(elapsed.Seconds())
}

// decidedStatus maps an already-decided claim state to the credential status
// its decision produced. Paid claims were approved before disbursement.
func decidedStatus(s models.State) (credential.Status, bool) {
	switch s {
	case models.StateApproved, models.StatePaid:
		return credential.StatusApproved, true
	case models.StateRejected:
		return credential.StatusRejected, true
	default:
		return "", false
	}
}

// translateLedgerErr maps adapter sentinel errors onto domain codes once, at
// the engine boundary.
func translateLedgerErr(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "claim not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.Wrap(err, dErrors.CodeInvalidState, msg)
	case errors.Is(err, sentinel.ErrUnauthorizedActor):
		return dErrors.Wrap(err, dErrors.CodeForbidden, msg)
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, msg)
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeIndeterminate,
			"ledger confirmation timed out, decision outcome unknown")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
