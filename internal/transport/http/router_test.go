package httptransport

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimchain/internal/claims/engine"
	"claimchain/internal/claims/handler"
	"claimchain/internal/claims/query"
	"claimchain/internal/evidence"
	"claimchain/internal/ledger"
	"claimchain/internal/platform/health"
	"claimchain/internal/platform/metrics"
	"claimchain/internal/vc"
	"claimchain/internal/vc/index"
)

func newTestRouter(t *testing.T, m *metrics.Metrics) http.Handler {
	t.Helper()
	key, err := vc.ParseSigningKey("9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	l := ledger.NewInMemory()
	ev := evidence.NewInMemory()
	idx := index.NewInMemory()
	issuer := vc.NewIssuer(vc.NewSigner(), ev, idx, logger)
	eng := engine.New(l, ev, issuer, key, "did:example:insurer", engine.WithLogger(logger))
	q := query.New(l, query.WithLogger(logger))
	h := handler.New(eng, q, l, idx, logger)

	return NewRouter(h, health.New(), m, logger)
}

func TestRouterObservesEndpointLatency(t *testing.T) {
	m := metrics.NewWith(prometheus.NewRegistry())
	router := newTestRouter(t, m)

	for _, path := range []string{"/health", "/claims", "/claims"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	// One series per route pattern, regardless of call count.
	assert.Equal(t, 2, testutil.CollectAndCount(m.EndpointLatency))
}

func TestRouterLabelsByRoutePattern(t *testing.T) {
	m := metrics.NewWith(prometheus.NewRegistry())
	router := newTestRouter(t, m)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/claims/provider/0xabc", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	count := testutil.CollectAndCount(m.EndpointLatency, "claimchain_endpoint_latency_seconds")
	assert.Equal(t, 1, count)
}

func TestRouterNilMetrics(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
