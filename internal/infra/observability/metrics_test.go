package observability_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raycargo/backoffice/internal/infra/observability"
)

func TestMetrics_Counters(t *testing.T) {
	m := observability.NewMetrics()

	m.IncrSettlement("remittance", "skipped_no_ledger")
	m.IncrSettlement("remittance", "skipped_no_ledger")
	m.IncrTransition("package", "DELIVERED", "ok")
	m.IncrCacheHit("provinces")
	m.IncrCacheMiss("provinces")
	m.IncrCacheHit("provinces")

	assert.Equal(t, 2.0, m.SettlementCount("remittance", "skipped_no_ledger"))
	assert.Equal(t, 0.0, m.SettlementCount("recharge", "failed"))
	assert.Equal(t, 1.0, m.TransitionCount("package", "DELIVERED", "ok"))
	assert.InDelta(t, 2.0/3.0, m.CacheHitRate("provinces"), 1e-9)
}

func TestMetrics_NewMetricsTwiceDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		observability.NewMetrics()
		observability.NewMetrics()
	})
}

func TestMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	m := observability.NewMetrics()
	r := chi.NewRouter()
	r.Use(observability.MetricsMiddleware(m))
	r.Get("/packages/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	for _, id := range []string{"a", "b", "c"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/packages/"+id, nil))
		require.Equal(t, http.StatusNoContent, rec.Code)
	}

	n, err := testutil.GatherAndCount(m.Registry, "backoffice_http_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "ids must collapse into one route series")
}
