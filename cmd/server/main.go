package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"claimchain/internal/claims/engine"
	"claimchain/internal/claims/events"
	"claimchain/internal/claims/handler"
	"claimchain/internal/claims/query"
	"claimchain/internal/claims/tracer"
	"claimchain/internal/evidence"
	"claimchain/internal/ledger"
	"claimchain/internal/platform/config"
	"claimchain/internal/platform/database"
	"claimchain/internal/platform/health"
	"claimchain/internal/platform/httpserver"
	"claimchain/internal/platform/logger"
	"claimchain/internal/platform/metrics"
	redisclient "claimchain/internal/platform/redis"
	"claimchain/internal/sentinel"
	httptransport "claimchain/internal/transport/http"
	"claimchain/internal/vc"
	"claimchain/internal/vc/index"
	"claimchain/pkg/platform/circuit"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing claimchain",
		"addr", cfg.Addr,
		"ledger_gateway", cfg.LedgerGatewayURL,
		"evidence_backend", cfg.EvidenceBackend,
	)

	ctx := context.Background()
	hc := health.New()
	m := metrics.New()
	tr := tracer.NewOTel()

	signingKey, err := loadSigningKey(cfg)
	if err != nil {
		log.Error("signing key unusable", "error", err)
		os.Exit(1)
	}

	var claimLedger ledger.Ledger = ledger.NewInMemory()
	if cfg.LedgerGatewayURL != "" {
		gw := ledger.NewGatewayClient(cfg.LedgerGatewayURL, cfg.LedgerRequestTimeout)
		claimLedger = gw
		hc.RegisterCheck("ledger", func() error {
			checkCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			// An empty ledger answers not-found, which still proves reachability.
			_, err := gw.GetClaim(checkCtx, 1)
			if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
				return err
			}
			return nil
		})
	}

	var evidenceStore evidence.Store = evidence.NewInMemory()
	if cfg.EvidenceBackend == "s3" {
		s3Store, err := evidence.NewS3Store(ctx, cfg.EvidenceBucket, cfg.EvidencePrefix)
		if err != nil {
			log.Error("evidence store init failed", "error", err)
			os.Exit(1)
		}
		evidenceStore = evidence.NewResilient(s3Store, circuit.New("evidence-s3"), log)
	}

	var credIndex index.Store = index.NewInMemory()
	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.DatabaseURL
	pool, err := database.New(dbCfg)
	if err != nil {
		log.Error("database init failed", "error", err)
		os.Exit(1)
	}
	if pool != nil {
		defer pool.Close()
		credIndex = index.NewPostgres(pool.DB())
		hc.RegisterCheck("database", func() error {
			checkCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pool.Health(checkCtx)
		})
	}

	var emitter events.Emitter = events.NewMemory()
	if cfg.KafkaBrokers != "" {
		kafkaEmitter, err := events.NewKafka(events.KafkaConfig{
			Brokers: strings.Split(cfg.KafkaBrokers, ","),
			Topic:   cfg.KafkaTopic,
		})
		if err != nil {
			log.Error("kafka emitter init failed", "error", err)
			os.Exit(1)
		}
		defer kafkaEmitter.Close()
		emitter = kafkaEmitter
	}

	cache, err := redisclient.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis init failed", "error", err)
		os.Exit(1)
	}
	if cache != nil {
		defer cache.Close()
		hc.RegisterCheck("redis", func() error {
			checkCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return cache.Health(checkCtx)
		})
	}

	issuer := vc.NewIssuer(vc.NewSigner(), evidenceStore, credIndex, log)
	eng := engine.New(claimLedger, evidenceStore, issuer, signingKey, cfg.InsurerDID,
		engine.WithLogger(log),
		engine.WithMetrics(m),
		engine.WithTracer(tr),
		engine.WithEmitter(emitter),
		engine.WithEvidenceTimeout(cfg.EvidenceTimeout),
	)
	q := query.New(claimLedger,
		query.WithLogger(log),
		query.WithMetrics(m),
		query.WithTracer(tr),
		query.WithProbeCeiling(cfg.ProbeCeiling),
		query.WithCache(cache, cfg.QueryCacheTTL),
	)

	h := handler.New(eng, q, claimLedger, credIndex, log)
	router := httptransport.NewRouter(h, hc, m, log)

	srv := httpserver.New(cfg.Addr, router)
	log.Info("starting http server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown on SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	log.Info("shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}

// loadSigningKey parses the configured issuer key, or generates an ephemeral
// one for development when none is set. Credentials signed with an ephemeral
// key do not verify across restarts.
func loadSigningKey(cfg config.Server) (ed25519.PrivateKey, error) {
	if cfg.SigningKeyHex != "" {
		return vc.ParseSigningKey(cfg.SigningKeyHex)
	}
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, err
	}
	logger.New().Warn("VC_SIGNING_KEY not set, using an ephemeral signing key",
		"public_key", hex.EncodeToString(ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)))
	return ed25519.NewKeyFromSeed(seed), nil
}
