package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"claimchain/internal/claims/models"
	"claimchain/internal/sentinel"
)

// GatewayClient talks to an external ledger gateway over HTTP. The gateway
// fronts the claim contract and exposes claim reads plus transition
// submission; submission responses arrive only after on-ledger confirmation,
// so a response here means the transition is final.
type GatewayClient struct {
	baseURL string
	client  *http.Client
}

// NewGatewayClient constructs a client with a bounded per-request timeout.
// The timeout covers transaction confirmation, which can take seconds.
func NewGatewayClient(baseURL string, timeout time.Duration) *GatewayClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GatewayClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type claimPayload struct {
	ClaimID             uint64 `json:"claimId"`
	PolicyID            uint64 `json:"policyId"`
	Provider            string `json:"provider"`
	Beneficiary         string `json:"beneficiary"`
	Insurer             string `json:"insurer"`
	Amount              string `json:"amount"`
	EvidenceHash        string `json:"evidenceHash"`
	TreatmentCredential string `json:"treatmentVcCid"`
	State               int    `json:"state"`
	SubmitDate          int64  `json:"submitDate"`
	RejectionReason     string `json:"rejectionReason"`
}

func (g *GatewayClient) GetClaim(ctx context.Context, id uint64) (*models.Claim, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		g.baseURL+"/claims/"+strconv.FormatUint(id, 10), nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, mapTransportErr(err)
	}
	defer resp.Body.Close()

	if err := mapStatus(resp.StatusCode); err != nil {
		return nil, err
	}

	var payload claimPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: malformed claim payload: %v", sentinel.ErrUnavailable, err)
	}
	return &models.Claim{
		ClaimID:             payload.ClaimID,
		PolicyID:            payload.PolicyID,
		Provider:            payload.Provider,
		Beneficiary:         payload.Beneficiary,
		Insurer:             payload.Insurer,
		Amount:              payload.Amount,
		EvidenceHash:        payload.EvidenceHash,
		TreatmentCredential: payload.TreatmentCredential,
		State:               models.State(payload.State),
		SubmitDate:          time.Unix(payload.SubmitDate, 0),
		RejectionReason:     payload.RejectionReason,
	}, nil
}

func (g *GatewayClient) SubmitClaim(ctx context.Context, sub Submission) (uint64, TxRef, error) {
	body, err := json.Marshal(map[string]string{
		"policyId":     strconv.FormatUint(sub.PolicyID, 10),
		"provider":     sub.Provider,
		"beneficiary":  sub.Beneficiary,
		"insurer":      sub.Insurer,
		"amount":       sub.Amount,
		"evidenceHash": sub.EvidenceHash,
		"treatmentVcCid": sub.TreatmentCredential,
	})
	if err != nil {
		return 0, TxRef{}, err
	}

	var out struct {
		ClaimID uint64 `json:"claimId"`
		TxHash  string `json:"txHash"`
	}
	if err := g.post(ctx, "/claims", body, &out); err != nil {
		return 0, TxRef{}, err
	}
	return out.ClaimID, TxRef{Hash: out.TxHash}, nil
}

func (g *GatewayClient) SubmitTransition(ctx context.Context, id uint64, kind TransitionKind, caller string, reason string) (TxRef, error) {
	body, err := json.Marshal(map[string]string{
		"kind":   string(kind),
		"caller": caller,
		"reason": reason,
	})
	if err != nil {
		return TxRef{}, err
	}

	var out struct {
		TxHash string `json:"txHash"`
	}
	path := "/claims/" + strconv.FormatUint(id, 10) + "/transitions"
	if err := g.post(ctx, path, body, &out); err != nil {
		return TxRef{}, err
	}
	return TxRef{Hash: out.TxHash}, nil
}

func (g *GatewayClient) post(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return mapTransportErr(err)
	}
	defer resp.Body.Close()

	if err := mapStatus(resp.StatusCode); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: malformed gateway response: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}

// mapTransportErr distinguishes a timed-out confirmation (outcome unknown,
// must not be silently retried) from plain unreachability.
func mapTransportErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return context.DeadlineExceeded
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return context.DeadlineExceeded
	}
	return fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
}

func mapStatus(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound:
		return sentinel.ErrNotFound
	case status == http.StatusConflict:
		return sentinel.ErrInvalidState
	case status == http.StatusForbidden:
		return sentinel.ErrUnauthorizedActor
	default:
		return fmt.Errorf("%w: ledger gateway returned %d", sentinel.ErrUnavailable, status)
	}
}
