package handler_test

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimchain/internal/claims/engine"
	"claimchain/internal/claims/handler"
	"claimchain/internal/claims/query"
	"claimchain/internal/evidence"
	"claimchain/internal/ledger"
	"claimchain/internal/vc"
	"claimchain/internal/vc/index"
)

const (
	insurerAddr = "0xAAA0000000000000000000000000000000000aaa"
	seedHex     = "9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60"
)

type env struct {
	router *chi.Mux
	ledger *ledger.InMemoryLedger
}

func newEnv(t *testing.T) *env {
	t.Helper()
	key, err := vc.ParseSigningKey(seedHex)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	l := ledger.NewInMemory()
	ev := evidence.NewInMemory()
	idx := index.NewInMemory()
	issuer := vc.NewIssuer(vc.NewSigner(), ev, idx, logger)
	eng := engine.New(l, ev, issuer, key, "did:example:insurer", engine.WithLogger(logger))
	q := query.New(l, query.WithLogger(logger))

	r := chi.NewRouter()
	handler.New(eng, q, l, idx, logger).Register(r)
	return &env{router: r, ledger: l}
}

func (e *env) submit(t *testing.T, policyID uint64) uint64 {
	t.Helper()
	id, _, err := e.ledger.SubmitClaim(context.Background(), ledger.Submission{
		PolicyID: policyID,
		Provider: "0xProvider",
		Insurer:  insurerAddr,
		Amount:   "150000",
	})
	require.NoError(t, err)
	return id
}

func (e *env) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestApproveEndpoint(t *testing.T) {
	e := newEnv(t)
	e.submit(t, 3)

	rec := e.do(t, http.MethodPost, "/claims/approve",
		`{"claimId":"1","insurerAddress":"`+insurerAddr+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "1", body["claimId"])
	assert.Equal(t, "Approved", body["status"])
	assert.NotEmpty(t, body["txHash"])
	assert.NotEmpty(t, body["credentialJwt"])
	assert.Equal(t, true, body["artifactPersisted"])

	cred := body["credential"].(map[string]any)
	subject := cred["credentialSubject"].(map[string]any)
	assert.Equal(t, "1", subject["claimId"])
	assert.Equal(t, "Approved", subject["status"])

	settlement := body["settlementVC"].(map[string]any)
	assert.NotEmpty(t, settlement["jwt"])
	assert.NotEmpty(t, settlement["cid"])
	vcSubject := settlement["vc"].(map[string]any)["credentialSubject"].(map[string]any)
	assert.Equal(t, "1", vcSubject["claimId"])
	assert.Nil(t, body["rejectionVC"])
}

func TestApproveByWrongInsurer(t *testing.T) {
	e := newEnv(t)
	e.submit(t, 3)

	rec := e.do(t, http.MethodPost, "/claims/approve",
		`{"claimId":"1","insurerAddress":"0xBBB0000000000000000000000000000000000bbb"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["error"])
}

func TestApproveMissingClaim(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodPost, "/claims/approve",
		`{"claimId":"42","insurerAddress":"`+insurerAddr+`"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestApproveValidation(t *testing.T) {
	e := newEnv(t)
	for name, body := range map[string]string{
		"empty body":    `{}`,
		"missing actor": `{"claimId":"1"}`,
		"bad id":        `{"claimId":"abc","insurerAddress":"` + insurerAddr + `"}`,
		"not json":      `not json`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := e.do(t, http.MethodPost, "/claims/approve", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestRejectEndpoint(t *testing.T) {
	e := newEnv(t)
	e.submit(t, 3)

	rec := e.do(t, http.MethodPost, "/claims/reject",
		`{"claimId":"1","insurerAddress":"`+insurerAddr+`","reason":"policy lapsed"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, "Rejected", body["status"])
	cred := body["credential"].(map[string]any)
	subject := cred["credentialSubject"].(map[string]any)
	assert.Equal(t, "policy lapsed", subject["rejectionReason"])

	rejection := body["rejectionVC"].(map[string]any)
	assert.NotEmpty(t, rejection["jwt"])
	assert.Nil(t, body["settlementVC"])
}

func TestRejectRequiresReason(t *testing.T) {
	e := newEnv(t)
	e.submit(t, 3)

	rec := e.do(t, http.MethodPost, "/claims/reject",
		`{"claimId":"1","insurerAddress":"`+insurerAddr+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSecondDecisionConflicts(t *testing.T) {
	e := newEnv(t)
	e.submit(t, 3)

	rec := e.do(t, http.MethodPost, "/claims/reject",
		`{"claimId":"1","insurerAddress":"`+insurerAddr+`","reason":"policy lapsed"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodPost, "/claims/approve",
		`{"claimId":"1","insurerAddress":"`+insurerAddr+`"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSubmitEndpoint(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodPost, "/claims/submit",
		`{"policyId":"3","provider":"0xProvider","insurer":"`+insurerAddr+`","amount":"150000"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "1", body["claimId"])
	assert.NotEmpty(t, body["txHash"])
}

func TestSubmitValidatesAmount(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodPost, "/claims/submit",
		`{"policyId":"3","provider":"0xProvider","insurer":"`+insurerAddr+`","amount":"12.50"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitAcceptsAmountBeyondUint64(t *testing.T) {
	// Smallest-unit amounts are arbitrary-precision integers; 2^70 must pass.
	e := newEnv(t)
	rec := e.do(t, http.MethodPost, "/claims/submit",
		`{"policyId":"3","provider":"0xProvider","insurer":"`+insurerAddr+`","amount":"1180591620717411303424"}`)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestApproveSignsUnderRequestIdentity(t *testing.T) {
	e := newEnv(t)
	e.submit(t, 3)

	otherSeed := "4ccd089b28ff96da9db6c346ec114e0f5b8a319f35aba624da8cf6ed4fb8a6fb"
	rec := e.do(t, http.MethodPost, "/claims/approve",
		`{"claimId":"1","insurerAddress":"`+insurerAddr+`","insurerDid":"did:example:acme","signingKey":"`+otherSeed+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	cred := body["credential"].(map[string]any)
	issuer := cred["issuer"].(map[string]any)
	assert.Equal(t, "did:example:acme", issuer["id"])

	key, err := vc.ParseSigningKey(otherSeed)
	require.NoError(t, err)
	jwt := body["credentialJwt"].(string)
	assert.True(t, vc.NewSigner().Verify(jwt, key.Public().(ed25519.PublicKey)).Valid)
}

func TestApproveRejectsMalformedSigningKey(t *testing.T) {
	e := newEnv(t)
	e.submit(t, 3)

	rec := e.do(t, http.MethodPost, "/claims/approve",
		`{"claimId":"1","insurerAddress":"`+insurerAddr+`","signingKey":"not-hex"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListClaimsEndpoint(t *testing.T) {
	e := newEnv(t)
	e.submit(t, 1)
	e.submit(t, 2)
	e.submit(t, 3)

	rec := e.do(t, http.MethodGet, "/claims", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	claims := body["claims"].([]any)
	require.Len(t, claims, 3)
	first := claims[0].(map[string]any)
	assert.Equal(t, "1", first["claimId"])
	assert.Equal(t, "Submitted", first["status"])
}

func TestListByProviderEndpoint(t *testing.T) {
	e := newEnv(t)
	e.submit(t, 1)

	rec := e.do(t, http.MethodGet, "/claims/provider/0xprovider", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.Len(t, body["claims"].([]any), 1)
}

func TestPolicyCredentialEndpoint(t *testing.T) {
	e := newEnv(t)
	e.submit(t, 3)

	rec := e.do(t, http.MethodPost, "/claims/approve",
		`{"claimId":"1","insurerAddress":"`+insurerAddr+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodGet, "/vc/policy/3", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, "3", body["policyId"])
	assert.Equal(t, "1", body["claimId"])
	assert.Equal(t, "Approved", body["status"])
	assert.NotEmpty(t, body["credentialJwt"])
}

func TestPolicyCredentialNotFound(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodGet, "/vc/policy/9", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
