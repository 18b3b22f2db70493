// Mock ledger gateway for local development. Serves the claim-contract HTTP
// API backed by an in-process map, with optional simulated confirmation
// latency so timeout handling can be exercised.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultPort      = "8091"
	defaultLatencyMs = "50"
)

const (
	stateSubmitted = iota
	stateUnderReview
	stateApproved
	stateRejected
	statePaid
)

type claim struct {
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

type store struct {
	mu     sync.Mutex
	claims map[uint64]*claim
	nextID uint64
}

var (
	ledger    = &store{claims: make(map[uint64]*claim), nextID: 1}
	latencyMs = getEnvInt("LATENCY_MS", defaultLatencyMs)
)

func main() {
	port := getEnv("PORT", defaultPort)

	http.HandleFunc("/health", handleHealth)
	http.HandleFunc("/claims", handleClaims)
	http.HandleFunc("/claims/", handleClaimByID)

	log.Printf("mock ledger gateway starting on port %s (confirmation latency %dms)", port, latencyMs)
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Fatal(err)
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "ledger-gateway",
	})
}

func handleClaims(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}

	var req struct {
		PolicyID            string `json:"policyId"`
		Provider            string `json:"provider"`
		Beneficiary         string `json:"beneficiary"`
		Insurer             string `json:"insurer"`
		Amount              string `json:"amount"`
		EvidenceHash        string `json:"evidenceHash"`
		TreatmentCredential string `json:"treatmentVcCid"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.Provider == "" || req.Insurer == "" || req.Amount == "" {
		writeError(w, http.StatusBadRequest, "provider, insurer and amount are required")
		return
	}
	policyID, _ := strconv.ParseUint(req.PolicyID, 10, 64)

	confirmDelay()

	ledger.mu.Lock()
	id := ledger.nextID
	ledger.nextID++
	ledger.claims[id] = &claim{
		ClaimID:             id,
		PolicyID:            policyID,
		Provider:            req.Provider,
		Beneficiary:         req.Beneficiary,
		Insurer:             req.Insurer,
		Amount:              req.Amount,
		EvidenceHash:        req.EvidenceHash,
		TreatmentCredential: req.TreatmentCredential,
		State:               stateSubmitted,
		SubmitDate:          time.Now().Unix(),
	}
	ledger.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{
		"claimId": id,
		"txHash":  newTxHash(),
	})
}

func handleClaimByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/claims/")
	parts := strings.Split(rest, "/")

	id, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, "invalid claim id")
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		handleGetClaim(w, id)
	case len(parts) == 2 && parts[1] == "transitions" && r.Method == http.MethodPost:
		handleTransition(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "unknown route")
	}
}

func handleGetClaim(w http.ResponseWriter, id uint64) {
	ledger.mu.Lock()
	c, ok := ledger.claims[id]
	ledger.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "claim not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func handleTransition(w http.ResponseWriter, r *http.Request, id uint64) {
	var req struct {
		Kind   string `json:"kind"`
		Caller string `json:"caller"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	confirmDelay()

	ledger.mu.Lock()
	defer ledger.mu.Unlock()

	c, ok := ledger.claims[id]
	if !ok {
		writeError(w, http.StatusNotFound, "claim not found")
		return
	}
	if !strings.EqualFold(c.Insurer, req.Caller) {
		writeError(w, http.StatusForbidden, "caller is not the claim insurer")
		return
	}

	var target int
	switch req.Kind {
	case "enter_review":
		target = stateUnderReview
	case "approve":
		target = stateApproved
	case "reject":
		if req.Reason == "" {
			writeError(w, http.StatusConflict, "rejection requires a reason")
			return
		}
		target = stateRejected
	default:
		writeError(w, http.StatusConflict, "unknown transition kind")
		return
	}

	if !canTransition(c.State, target) {
		writeError(w, http.StatusConflict, "illegal transition")
		return
	}

	c.State = target
	if target == stateRejected {
		c.RejectionReason = req.Reason
	}
	writeJSON(w, http.StatusOK, map[string]string{"txHash": newTxHash()})
}

func canTransition(from, to int) bool {
	switch from {
	case stateSubmitted:
		return to == stateUnderReview || to == stateApproved || to == stateRejected
	case stateUnderReview:
		return to == stateApproved || to == stateRejected
	case stateApproved:
		return to == statePaid
	default:
		return false
	}
}

func confirmDelay() {
	if latencyMs > 0 {
		time.Sleep(time.Duration(latencyMs) * time.Millisecond)
	}
}

func newTxHash() string {
	buf := make([]byte, 32)
	_, _ = rand.Read(buf)
	return "0x" + hex.EncodeToString(buf)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg, "code": status})
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key, fallback string) int {
	v := getEnv(key, fallback)
	n, err := strconv.Atoi(v)
	if err != nil {
		n, _ = strconv.Atoi(fallback)
	}
	return n
}
