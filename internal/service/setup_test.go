package service_test

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/raycargo/backoffice/internal/domain"
	"github.com/raycargo/backoffice/internal/infra/cache"
	"github.com/raycargo/backoffice/internal/infra/memory"
	"github.com/raycargo/backoffice/internal/infra/observability"
	"github.com/raycargo/backoffice/internal/service"
)

// fixture wires every service over one seeded memory store.
type fixture struct {
	store      *memory.Store
	metrics    *observability.Metrics
	catalog    *service.CatalogService
	ledger     *service.LedgerService
	sales      *service.SalesService
	settlement *service.SettlementService
	tracking   *service.TrackingService
	reports    *service.ReportService
	sequences  *service.SequenceService
}

func newFixture(t *testing.T, opts service.SettlementOptions) *fixture {
	t.Helper()

	store := memory.New()
	memory.SeedDemo(store)
	metrics := observability.NewMetrics()
	logger := zap.NewNop()
	validator := service.NewValidator("CU")

	provinceCache := cache.New[*domain.Province](time.Minute)
	t.Cleanup(provinceCache.Close)

	if opts.MaxConcurrency == 0 {
		opts.MaxConcurrency = 8
	}

	catalog := service.NewCatalogService(store, store, provinceCache, validator, metrics, logger)
	ledger := service.NewLedgerService(store, catalog, validator, metrics, logger)
	sequences := service.NewSequenceService(memory.NewCounter(), metrics)

	return &fixture{
		store:      store,
		metrics:    metrics,
		catalog:    catalog,
		ledger:     ledger,
		sales:      service.NewSalesService(store, store, store, catalog, validator, logger),
		settlement: service.NewSettlementService(store, store, ledger, validator, opts, metrics, logger),
		tracking:   service.NewTrackingService(store, store, store, store, sequences, validator, metrics, logger),
		reports:    service.NewReportService(store, store),
		sequences:  sequences,
	}
}

func worker() *domain.Actor {
	return &domain.Actor{ID: "worker-1", Role: domain.RoleWorker}
}
