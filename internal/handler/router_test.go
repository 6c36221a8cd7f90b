package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/raycargo/backoffice/internal/domain"
	"github.com/raycargo/backoffice/internal/handler"
	"github.com/raycargo/backoffice/internal/infra/cache"
	"github.com/raycargo/backoffice/internal/infra/export"
	"github.com/raycargo/backoffice/internal/infra/memory"
	"github.com/raycargo/backoffice/internal/infra/observability"
	"github.com/raycargo/backoffice/internal/infra/resilience"
	"github.com/raycargo/backoffice/internal/port"
	"github.com/raycargo/backoffice/internal/service"
)

type testServer struct {
	router http.Handler
	tokens *service.TokenService
}

func newTestServer(t *testing.T, checkers ...port.HealthChecker) *testServer {
	t.Helper()
	return newTestServerWith(t, handler.Options{HealthCheckers: checkers})
}

// newTestServerWith appends the settlement breaker to opts.Breakers.
func newTestServerWith(t *testing.T, opts handler.Options) *testServer {
	t.Helper()

	store := memory.New()
	memory.SeedDemo(store)
	metrics := observability.NewMetrics()
	logger := zap.NewNop()
	validator := service.NewValidator("CU")

	provinceCache := cache.New[*domain.Province](time.Minute)
	t.Cleanup(provinceCache.Close)

	catalog := service.NewCatalogService(store, store, provinceCache, validator, metrics, logger)
	ledger := service.NewLedgerService(store, catalog, validator, metrics, logger)
	sequences := service.NewSequenceService(memory.NewCounter(), metrics)
	tokens := service.NewTokenService("test-secret", time.Hour)

	settlement := service.NewSettlementService(store, store, ledger, validator, service.SettlementOptions{MaxConcurrency: 4}, metrics, logger)
	opts.Breakers = append(opts.Breakers, settlement.Breaker())

	svc := handler.Services{
		Ledger:     ledger,
		Settlement: settlement,
		Catalog:    catalog,
		Sales:      service.NewSalesService(store, store, store, catalog, validator, logger),
		Tracking:   service.NewTrackingService(store, store, store, store, sequences, validator, metrics, logger),
		Reports:    service.NewReportService(store, store),
		Tokens:     tokens,
	}

	return &testServer{
		router: handler.NewRouter(svc, opts, metrics, logger),
		tokens: tokens,
	}
}

func (s *testServer) do(t *testing.T, role domain.Role, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		token, err := s.tokens.Issue(string(role)+"-1", role)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

type failingPing struct{}

func (failingPing) Name() string { return "postgres" }
func (failingPing) Ping(ctx context.Context) error { return errors.New("connection refused") }

func TestOperationalEndpoints(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz", "/metrics", "/ping"} {
		rec := srv.do(t, "", http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestHealthz_UnhealthyBackend(t *testing.T) {
	srv := newTestServer(t, failingPing{})

	rec := srv.do(t, "", http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	health := decodeBody[domain.HealthStatus](t, rec)
	assert.Equal(t, "unhealthy", health.Status)
	require.Len(t, health.Services, 3)
	assert.Equal(t, "connection refused", health.Services[1].Error)
	assert.Equal(t, "ledger-breaker", health.Services[2].Name)
	assert.Equal(t, "closed", health.Services[2].Breaker)
}

func TestHealthz_OpenBreakerDegrades(t *testing.T) {
	guard := resilience.NewGuard("client-directory", 1)
	for i := 0; i < 5; i++ {
		_ = guard.Do(context.Background(), func(context.Context) error {
			return &domain.ErrExternalService{Service: "client-directory", Err: errors.New("bad gateway")}
		})
	}
	require.Equal(t, "open", guard.State())

	srv := newTestServerWith(t, handler.Options{Breakers: []port.BreakerReporter{guard}})

	rec := srv.do(t, "", http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	health := decodeBody[domain.HealthStatus](t, rec)
	assert.Equal(t, "degraded", health.Status)
	require.Len(t, health.Services, 3)
	assert.Equal(t, "client-directory-breaker", health.Services[1].Name)
	assert.Equal(t, "degraded", health.Services[1].Status)
	assert.Equal(t, "open", health.Services[1].Breaker)
}

func TestAuth(t *testing.T) {
	srv := newTestServer(t)

	t.Run("missing token", func(t *testing.T) {
		rec := srv.do(t, "", http.MethodGet, "/api/finance", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/finance", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		rec := httptest.NewRecorder()
		srv.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("client cannot read finance", func(t *testing.T) {
		rec := srv.do(t, domain.RoleClient, http.MethodGet, "/api/finance", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("client may list remittance sales", func(t *testing.T) {
		rec := srv.do(t, domain.RoleClient, http.MethodGet, "/api/remesas", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("worker cannot manage provinces", func(t *testing.T) {
		rec := srv.do(t, domain.RoleWorker, http.MethodGet, "/api/provinces", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin may not advance packages", func(t *testing.T) {
		rec := srv.do(t, domain.RoleAdmin, http.MethodPut, "/api/packages/any/status",
			map[string]string{"status": "TRANSPORTING", "location": "Havana"})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestManualOperationAndDelete(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, domain.RoleWorker, http.MethodPost, "/api/finance/operation",
		map[string]any{"type": "entrada", "amount": 500, "provinceId": "prov-hav"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := decodeBody[struct {
		Movement domain.Movement `json:"movement"`
	}](t, rec)
	assert.Equal(t, domain.MovementCredit, created.Movement.Type)

	rec = srv.do(t, domain.RoleWorker, http.MethodGet, "/api/finance/province/prov-hav", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decodeBody[domain.LedgerSummary](t, rec)
	assert.True(t, summary.Balance.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, "La Habana", summary.Province.Name)

	rec = srv.do(t, domain.RoleWorker, http.MethodDelete, "/api/finance/operation/prov-hav/"+created.Movement.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ledger := decodeBody[domain.ProvinceLedger](t, rec)
	assert.True(t, ledger.Balance.IsZero())

	rec = srv.do(t, domain.RoleWorker, http.MethodDelete, "/api/finance/operation/prov-hav/"+created.Movement.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestManualOperation_Invalid(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, domain.RoleAdmin, http.MethodPost, "/api/finance/operation",
		map[string]any{"type": "bonus", "amount": 10, "provinceId": "prov-hav"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "type", body["field"])
}

func TestRechargeSettlementFlow(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, domain.RoleWorker, http.MethodPost, "/api/recargas", map[string]string{
		"offerId":             "offer-demo-20",
		"clientId":            "client-demo",
		"phone":               "52345678",
		"destinationProvince": "prov-hol",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sale := decodeBody[domain.RechargeSale](t, rec)
	assert.Equal(t, domain.SalePending, sale.Status)

	rec = srv.do(t, domain.RoleWorker, http.MethodPatch, "/api/recargas/"+sale.ID+"/confirmar", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	settled := decodeBody[domain.RechargeSettlement](t, rec)
	assert.Equal(t, domain.OutcomeRecorded, settled.Result.Outcome)
	assert.Equal(t, domain.SaleDone, settled.Sale.Status)

	rec = srv.do(t, domain.RoleWorker, http.MethodPatch, "/api/recargas/"+sale.ID+"/confirmar", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = srv.do(t, domain.RoleWorker, http.MethodGet, "/api/finance/province/prov-hol", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decodeBody[domain.LedgerSummary](t, rec)
	assert.True(t, summary.Balance.Equal(decimal.NewFromInt(-20)), "balance %s", summary.Balance)

	rec = srv.do(t, domain.RoleWorker, http.MethodDelete, "/api/recargas/"+sale.ID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRechargeEditOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, domain.RoleWorker, http.MethodPost, "/api/recargas", map[string]string{
		"offerId":             "offer-demo-20",
		"clientId":            "client-demo",
		"phone":               "52345678",
		"destinationProvince": "prov-hol",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sale := decodeBody[domain.RechargeSale](t, rec)

	rec = srv.do(t, domain.RoleWorker, http.MethodPut, "/api/recargas/"+sale.ID, map[string]string{"destinationProvince": "prov-scu"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "prov-scu", decodeBody[domain.RechargeSale](t, rec).DestinationProvince)

	rec = srv.do(t, domain.RoleWorker, http.MethodPatch, "/api/recargas/"+sale.ID+"/confirmar", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, domain.RoleWorker, http.MethodPut, "/api/recargas/"+sale.ID, map[string]string{"phone": "52345679"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = srv.do(t, domain.RoleClient, http.MethodPut, "/api/remesas/missing", map[string]any{"amount": 10})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOpenLedger(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, domain.RoleWorker, http.MethodPost, "/api/finance/province/prov-scu", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = srv.do(t, domain.RoleAdmin, http.MethodPost, "/api/finance/province/prov-scu", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := decodeBody[domain.LedgerSummary](t, rec)
	assert.True(t, summary.Balance.IsZero())
	assert.Equal(t, "Santiago de Cuba", summary.Province.Name)

	rec = srv.do(t, domain.RoleAdmin, http.MethodPost, "/api/finance/province/prov-nowhere", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListing_PageFarPastTheEnd(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, domain.RoleWorker, http.MethodGet, "/api/recargas?page=500000000000000000", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	page := decodeBody[domain.ListResponse[domain.RechargeSale]](t, rec)
	assert.Empty(t, page.Data)
	assert.False(t, page.HasMore)
}

func TestPackageLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, domain.RoleWorker, http.MethodPost, "/api/packages", map[string]any{
		"clientId":            "client-demo",
		"recipientId":         "rcpt-demo",
		"weight":              2.5,
		"cost":                30,
		"destinationProvince": "prov-scu",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	pkg := decodeBody[domain.Package](t, rec)
	assert.Equal(t, domain.PackageReceived, pkg.CurrentStatus)
	assert.True(t, strings.HasPrefix(pkg.TrackingNumber, "PX"))

	rec = srv.do(t, domain.RoleWorker, http.MethodPut, "/api/packages/"+pkg.ID+"/status",
		map[string]string{"status": "transporting", "location": "Camagüey"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = srv.do(t, domain.RoleWorker, http.MethodPut, "/api/packages/"+pkg.ID+"/status",
		map[string]string{"status": "RECEIVED", "location": "Camagüey"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = srv.do(t, domain.RoleAdmin, http.MethodGet, "/api/packages/track/"+pkg.TrackingNumber, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tracked := decodeBody[domain.Package](t, rec)
	assert.Equal(t, domain.PackageTransporting, tracked.CurrentStatus)
	assert.Len(t, tracked.StatusHistory, 2)

	rec = srv.do(t, domain.RoleAdmin, http.MethodGet, "/api/packages?status=transporting", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decodeBody[domain.ListResponse[domain.Package]](t, rec)
	assert.Equal(t, 1, page.Total)

	rec = srv.do(t, domain.RoleAdmin, http.MethodGet, "/api/packages/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOperations_FilterAndExport(t *testing.T) {
	srv := newTestServer(t)

	for _, amount := range []int{100, 250} {
		rec := srv.do(t, domain.RoleAdmin, http.MethodPost, "/api/finance/operation",
			map[string]any{"type": "credit", "amount": amount, "provinceId": "prov-hav"})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	today := time.Now().UTC().Format("2006-01-02")
	rec := srv.do(t, domain.RoleAdmin, http.MethodGet,
		"/api/finance/operations?type=credit&startDate="+today+"&endDate="+today, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	page := decodeBody[domain.ListResponse[domain.MovementView]](t, rec)
	assert.Equal(t, 2, page.Total)

	rec = srv.do(t, domain.RoleAdmin, http.MethodGet, "/api/finance/operations?startDate=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, domain.RoleAdmin, http.MethodGet, "/api/finance/operations/export?provinceId=prov-hav", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.ContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")
	assert.NotZero(t, rec.Body.Len())
}
