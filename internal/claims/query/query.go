// Package query serves read-side claim listings. The ledger assigns ids
// sequentially from 1 with no gaps, so enumeration probes ascending ids and
// stops at the first absent one. A configurable ceiling bounds the scan.
package query

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"claimchain/internal/claims/models"
	"claimchain/internal/claims/tracer"
	"claimchain/internal/ledger"
	"claimchain/internal/platform/metrics"
	"claimchain/internal/platform/redis"
	"claimchain/internal/sentinel"
	dErrors "claimchain/pkg/domain-errors"
)

// DefaultProbeCeiling bounds enumeration when no ceiling is configured.
const DefaultProbeCeiling = 100

const cacheKeyAll = "claims:all"

// Service answers claim read queries.
type Service struct {
	ledger   ledger.Ledger
	ceiling  int
	cache    *redis.Client
	cacheTTL time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   tracer.Tracer
	group    singleflight.Group
}

// Option configures the query service.
type Option func(s *Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTracer sets the tracer.
func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// WithProbeCeiling overrides the enumeration bound.
func WithProbeCeiling(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.ceiling = n
		}
	}
}

// WithCache enables the shared list cache. A nil client disables caching.
func WithCache(c *redis.Client, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// New constructs a query Service.
func New(l ledger.Ledger, opts ...Option) *Service {
	s := &Service{
		ledger:  l,
		ceiling: DefaultProbeCeiling,
		logger:  slog.Default(),
		tracer:  tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns a single claim by id.
func (s *Service) Get(ctx context.Context, id uint64) (*models.View, error) {
	claim, err := s.ledger.GetClaim(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "claim not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, "could not load claim")
	}
	view := claim.ToView()
	return &view, nil
}

// ListAll returns every claim on the ledger in id order. Concurrent calls
// share one enumeration, and results are served from the cache within its TTL.
func (s *Service) ListAll(ctx context.Context) (out []models.View, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanClaimsList)
	defer func() { span.End(err) }()

	if views, ok := s.cacheGet(ctx); ok {
		span.SetAttributes(tracer.Bool(tracer.AttrCacheHit, true))
		return views, nil
	}
	span.SetAttributes(tracer.Bool(tracer.AttrCacheHit, false))

	v, err, _ := s.group.Do(cacheKeyAll, func() (any, error) {
		// The flight is shared across callers; detach it from the first
		// caller's context so its cancellation cannot fail the followers.
		fctx := context.WithoutCancel(ctx)
		views, err := s.enumerate(fctx)
		if err != nil {
			return nil, err
		}
		s.cacheSet(fctx, views)
		return views, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.View), nil
}

// ListByProvider returns the claims submitted by the given provider wallet.
func (s *Service) ListByProvider(ctx context.Context, wallet string) ([]models.View, error) {
	if strings.TrimSpace(wallet) == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "provider wallet is required")
	}

	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	filtered := make([]models.View, 0, len(all))
	for _, v := range all {
		if strings.EqualFold(v.Provider, wallet) {
			filtered = append(filtered, v)
		}
	}
	return filtered, nil
}

// Invalidate drops the shared list cache. Called after adjudication commits.
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, cacheKeyAll).Err(); err != nil {
		s.logger.WarnContext(ctx, "claim list cache invalidation failed", "error", err)
	}
}

// enumerate probes ids ascending from 1 until the first absent claim or the
// ceiling. A probe error other than not-found ends the scan with what was
// collected so far, logged but not fatal: a partial listing beats none.
func (s *Service) enumerate(ctx context.Context) (views []models.View, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanClaimProbe)
	defer func() { span.End(err) }()

	views = make([]models.View, 0)
	probes := 0
	ceilingHit := true
	for id := uint64(1); id <= uint64(s.ceiling); id++ {
		probes++
		claim, probeErr := s.ledger.GetClaim(ctx, id)
		if probeErr != nil {
			ceilingHit = false
			if !errors.Is(probeErr, sentinel.ErrNotFound) {
				s.logger.WarnContext(ctx, "claim probe failed, truncating listing",
					"claim_id", id,
					"error", probeErr,
				)
				if len(views) == 0 {
					return nil, dErrors.Wrap(probeErr, dErrors.CodeUpstreamUnavailable,
						"could not enumerate claims")
				}
			}
			break
		}
		views = append(views, claim.ToView())
	}

	span.SetAttributes(
		tracer.Int64(tracer.AttrProbeDepth, int64(probes)),
		tracer.Bool(tracer.AttrProbeCeilingHit, ceilingHit),
	)
	if s.metrics != nil {
		s.metrics.ClaimProbeDepth.Observe(float64(probes))
		if ceilingHit {
			s.metrics.ProbeCeilingHits.Inc()
		}
	}
	return views, nil
}

func (s *Service) cacheGet(ctx context.Context) ([]models.View, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, cacheKeyAll).Bytes()
	if err != nil {
		if s.metrics != nil {
			s.metrics.QueryCacheMisses.Inc()
		}
		return nil, false
	}
	var views []models.View
	if err := json.Unmarshal(raw, &views); err != nil {
		s.logger.WarnContext(ctx, "claim list cache entry unreadable", "error", err)
		return nil, false
	}
	if s.metrics != nil {
		s.metrics.QueryCacheHits.Inc()
	}
	return views, true
}

func (s *Service) cacheSet(ctx context.Context, views []models.View) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(views)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKeyAll, raw, s.cacheTTL).Err(); err != nil {
		s.logger.WarnContext(ctx, "claim list cache write failed", "error", err)
	}
}
