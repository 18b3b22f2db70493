package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration for the adjudication service.
type Server struct {
	Addr string

	// Ledger gateway. Empty URL selects the in-process ledger (dev mode).
	LedgerGatewayURL     string
	LedgerRequestTimeout time.Duration

	// Evidence store. Backend is "memory" or "s3".
	EvidenceBackend string
	EvidenceBucket  string
	EvidencePrefix  string
	EvidenceTimeout time.Duration

	// Credential index. Empty URL selects the in-memory index.
	DatabaseURL string

	// Adjudication event stream. Empty brokers disables publishing.
	KafkaBrokers string
	KafkaTopic   string

	// Claim enumeration cache. Empty URL disables caching.
	RedisURL      string
	QueryCacheTTL time.Duration

	// Sequential-probe ceiling for claim enumeration.
	ProbeCeiling int

	// Credential issuance identity. The signing key is a hex-encoded
	// 32-byte Ed25519 seed.
	SigningKeyHex string
	InsurerDID    string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	cfg := Server{
		Addr:                 getEnv("CLAIMCHAIN_ADDR", ":8080"),
		LedgerGatewayURL:     os.Getenv("LEDGER_GATEWAY_URL"),
		LedgerRequestTimeout: getDuration("LEDGER_REQUEST_TIMEOUT", 30*time.Second),
		EvidenceBackend:      getEnv("EVIDENCE_BACKEND", "memory"),
		EvidenceBucket:       os.Getenv("EVIDENCE_BUCKET"),
		EvidencePrefix:       getEnv("EVIDENCE_PREFIX", "credentials"),
		EvidenceTimeout:      getDuration("EVIDENCE_TIMEOUT", 10*time.Second),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		KafkaBrokers:         os.Getenv("KAFKA_BROKERS"),
		KafkaTopic:           getEnv("KAFKA_TOPIC", "claims.adjudicated"),
		RedisURL:             os.Getenv("REDIS_URL"),
		QueryCacheTTL:        getDuration("QUERY_CACHE_TTL", 15*time.Second),
		ProbeCeiling:         getInt("CLAIM_PROBE_CEILING", 100),
		SigningKeyHex:        os.Getenv("VC_SIGNING_KEY"),
		InsurerDID:           getEnv("INSURER_DID", "did:example:insurer"),
	}
	cfg.EvidenceBackend = strings.ToLower(cfg.EvidenceBackend)
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
