package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Adjudication metrics
	Adjudications        *prometheus.CounterVec
	AdjudicationLatency  prometheus.Histogram
	EvidenceDegradations prometheus.Counter
	ArtifactPersistFails prometheus.Counter
	CredentialsIssued    *prometheus.CounterVec

	// Query metrics
	ClaimProbeDepth  prometheus.Histogram
	ProbeCeilingHits prometheus.Counter
	QueryCacheHits   prometheus.Counter
	QueryCacheMisses prometheus.Counter
	EndpointLatency  *prometheus.HistogramVec
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith creates and registers all metrics on the given registerer.
// Tests pass a fresh prometheus.NewRegistry to avoid duplicate registration.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Adjudications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "claimchain_adjudications_total",
			Help: "Total number of claim adjudications, labeled by outcome and result",
		}, []string{"outcome", "result"}),
		AdjudicationLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "claimchain_adjudication_latency_seconds",
			Help:    "End-to-end latency of approve/reject calls in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		EvidenceDegradations: factory.NewCounter(prometheus.CounterOpts{
			Name: "claimchain_evidence_degradations_total",
			Help: "Adjudications that completed with N/A treatment fields because evidence was unavailable",
		}),
		ArtifactPersistFails: factory.NewCounter(prometheus.CounterOpts{
			Name: "claimchain_artifact_persist_failures_total",
			Help: "Signed credentials that could not be persisted to the evidence store",
		}),
		CredentialsIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "claimchain_credentials_issued_total",
			Help: "Total outcome credentials issued, labeled by status",
		}, []string{"status"}),
		ClaimProbeDepth: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "claimchain_claim_probe_depth",
			Help:    "Number of sequential ledger probes per enumeration",
			Buckets: []float64{1, 5, 10, 25, 50, 100},
		}),
		ProbeCeilingHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "claimchain_probe_ceiling_hits_total",
			Help: "Enumerations that stopped at the probe ceiling rather than a gap",
		}),
		QueryCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "claimchain_query_cache_hits_total",
			Help: "Claim list requests served from the cache",
		}),
		QueryCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "claimchain_query_cache_misses_total",
			Help: "Claim list requests that enumerated the ledger",
		}),
		EndpointLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "claimchain_endpoint_latency_seconds",
			Help:    "Latency of endpoints in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
}
