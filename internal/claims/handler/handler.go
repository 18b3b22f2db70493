// Package handler exposes the adjudication and query HTTP surface.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"claimchain/internal/claims/engine"
	"claimchain/internal/claims/models"
	"claimchain/internal/ledger"
	"claimchain/internal/platform/middleware"
	"claimchain/internal/vc/index"
	dErrors "claimchain/pkg/domain-errors"
	"claimchain/pkg/platform/httputil"
)

// Adjudicator commits insurer decisions.
type Adjudicator interface {
	Approve(ctx context.Context, claimID uint64, actor engine.Actor) (*engine.Outcome, error)
	Reject(ctx context.Context, claimID uint64, actor engine.Actor, reason string) (*engine.Outcome, error)
}

// Querier answers claim read queries.
type Querier interface {
	ListAll(ctx context.Context) ([]models.View, error)
	ListByProvider(ctx context.Context, wallet string) ([]models.View, error)
	Invalidate(ctx context.Context)
}

// Submitter records new provider claims on the ledger.
type Submitter interface {
	SubmitClaim(ctx context.Context, sub ledger.Submission) (uint64, ledger.TxRef, error)
}

// CredentialIndex looks up issued outcome credentials.
type CredentialIndex interface {
	FindByPolicy(ctx context.Context, policyID uint64) (*index.Record, error)
}

type Handler struct {
	adjudicator Adjudicator
	querier     Querier
	submitter   Submitter
	credentials CredentialIndex
	logger      *slog.Logger
}

func New(a Adjudicator, q Querier, s Submitter, c CredentialIndex, logger *slog.Logger) *Handler {
	return &Handler{
		adjudicator: a,
		querier:     q,
		submitter:   s,
		credentials: c,
		logger:      logger,
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/claims/approve", h.HandleApprove)
	r.Post("/claims/reject", h.HandleReject)
	r.Post("/claims/submit", h.HandleSubmit)
	r.Get("/claims", h.HandleListClaims)
	r.Get("/claims/provider/{wallet}", h.HandleListByProvider)
	r.Get("/vc/policy/{policyId}", h.HandlePolicyCredential)
}

// HandleApprove commits an approval decision and returns the settlement
// credential.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ApproveClaimRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	claimID, err := parseClaimID(req.ClaimID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	actor, err := actorFrom(req.InsurerAddress, req.InsurerDID, req.SigningKey)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	out, err := h.adjudicator.Approve(ctx, claimID, actor)
	if err != nil {
		h.logger.ErrorContext(ctx, "approve failed",
			"error", err, "request_id", requestID, "claim_id", claimID)
		httputil.WriteError(w, err)
		return
	}
	h.querier.Invalidate(ctx)

	httputil.WriteJSON(w, http.StatusOK, toAdjudicationResponse(out))
}

// HandleReject commits a rejection decision and returns the rejection
// credential.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RejectClaimRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	claimID, err := parseClaimID(req.ClaimID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	actor, err := actorFrom(req.InsurerAddress, req.InsurerDID, req.SigningKey)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	out, err := h.adjudicator.Reject(ctx, claimID, actor, req.Reason)
	if err != nil {
		h.logger.ErrorContext(ctx, "reject failed",
			"error", err, "request_id", requestID, "claim_id", claimID)
		httputil.WriteError(w, err)
		return
	}
	h.querier.Invalidate(ctx)

	httputil.WriteJSON(w, http.StatusOK, toAdjudicationResponse(out))
}

// HandleSubmit records a new provider claim on the ledger.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SubmitClaimRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	policyID, _ := strconv.ParseUint(req.PolicyID, 10, 64)

	claimID, txRef, err := h.submitter.SubmitClaim(ctx, ledger.Submission{
		PolicyID:            policyID,
		Provider:            req.Provider,
		Beneficiary:         req.Beneficiary,
		Insurer:             req.Insurer,
		Amount:              req.Amount,
		EvidenceHash:        req.EvidenceHash,
		TreatmentCredential: req.TreatmentCredential,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "claim submission failed",
			"error", err, "request_id", requestID)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, "could not submit claim"))
		return
	}
	h.querier.Invalidate(ctx)

	httputil.WriteJSON(w, http.StatusCreated, &SubmitClaimResponse{
		Success: true,
		ClaimID: strconv.FormatUint(claimID, 10),
		TxHash:  txRef.Hash,
	})
}

// HandleListClaims returns every claim on the ledger.
func (h *Handler) HandleListClaims(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	views, err := h.querier.ListAll(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "claim listing failed",
			"error", err, "request_id", middleware.GetRequestID(ctx))
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &ClaimListResponse{Success: true, Claims: views})
}

// HandleListByProvider returns the claims submitted by a provider wallet.
func (h *Handler) HandleListByProvider(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	wallet := chi.URLParam(r, "wallet")

	views, err := h.querier.ListByProvider(ctx, wallet)
	if err != nil {
		h.logger.ErrorContext(ctx, "provider claim listing failed",
			"error", err, "request_id", middleware.GetRequestID(ctx), "wallet", wallet)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &ProviderClaimsResponse{OK: true, Claims: views})
}

// HandlePolicyCredential looks up the issued outcome credential for a policy.
func (h *Handler) HandlePolicyCredential(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	policyID, err := strconv.ParseUint(chi.URLParam(r, "policyId"), 10, 64)
	if err != nil || policyID == 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "policyId must be a positive decimal number"))
		return
	}

	rec, err := h.credentials.FindByPolicy(ctx, policyID)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeNotFound, "no credential issued for policy"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &PolicyCredentialResponse{
		Success:       true,
		PolicyID:      strconv.FormatUint(rec.PolicyID, 10),
		ClaimID:       strconv.FormatUint(rec.ClaimID, 10),
		Status:        string(rec.Status),
		CredentialID:  rec.CredentialID,
		CredentialJWT: rec.JWT,
		CredentialCID: rec.CID,
		IssuedAt:      rec.IssuedAt.UTC().Format(time.RFC3339),
	})
}
