package handler

import (
	"net/http"
	"time"

	"github.com/raycargo/backoffice/internal/domain"
	"github.com/raycargo/backoffice/internal/infra/observability"
	"github.com/raycargo/backoffice/internal/port"
	"github.com/raycargo/backoffice/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Services groups the application services exposed over HTTP.
type Services struct {
	Ledger     *service.LedgerService
	Settlement *service.SettlementService
	Catalog    *service.CatalogService
	Sales      *service.SalesService
	Tracking   *service.TrackingService
	Reports    *service.ReportService
	Tokens     *service.TokenService
}

// Options carries router settings that are not services.
type Options struct {
	AllowedOrigins []string
	HealthCheckers []port.HealthChecker
	Breakers       []port.BreakerReporter
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc Services, opts Options, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.MetricsMiddleware(metrics))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(opts.HealthCheckers, opts.Breakers))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	staff := RequireRoles(domain.RoleAdmin, domain.RoleWorker)

	r.Route("/api", func(r chi.Router) {
		r.Use(JWTAuthMiddleware(svc.Tokens, logger))

		// Finance
		r.Route("/finance", func(r chi.Router) {
			r.Use(staff)
			r.Get("/", listLedgersHandler(svc.Ledger, logger))
			r.Get("/status", financialStatusHandler(svc.Reports, logger))
			r.Get("/operations", listOperationsHandler(svc.Reports, logger))
			r.Get("/operations/export", exportOperationsHandler(svc.Reports, logger))
			r.Post("/operation", addOperationHandler(svc.Ledger, logger))
			r.Delete("/operation/{provinceId}/{operationId}", deleteOperationHandler(svc.Ledger, logger))
			r.Get("/province/{provinceId}", provinceLedgerHandler(svc.Ledger, logger))
			r.With(RequireRoles(domain.RoleAdmin)).Post("/province/{provinceId}", openLedgerHandler(svc.Ledger, logger))
		})

		// Recharge sales
		r.Route("/recargas", func(r chi.Router) {
			r.Use(staff)
			r.Get("/", listRechargesHandler(svc.Sales, logger))
			r.Post("/", createRechargeHandler(svc.Sales, logger))
			r.Get("/{id}", getRechargeHandler(svc.Sales, logger))
			r.Put("/{id}", updateRechargeHandler(svc.Sales, logger))
			r.Delete("/{id}", deleteRechargeHandler(svc.Sales, logger))
			r.Patch("/{id}/confirmar", confirmRechargeHandler(svc.Settlement, logger))
		})

		// Remittance sales, open to any authenticated caller
		r.Route("/remesas", func(r chi.Router) {
			r.Get("/", listRemittanceSalesHandler(svc.Sales, logger))
			r.Post("/", createRemittanceSaleHandler(svc.Sales, logger))
			r.Get("/{id}", getRemittanceSaleHandler(svc.Sales, logger))
			r.Put("/{id}", updateRemittanceSaleHandler(svc.Sales, logger))
			r.Delete("/{id}", deleteRemittanceSaleHandler(svc.Sales, logger))
			r.Put("/{id}/confirmar", confirmRemittanceSaleHandler(svc.Settlement, logger))
		})

		// Recharge offers
		r.Route("/ofertas-recargas", func(r chi.Router) {
			r.Use(staff)
			r.Get("/", listOffersHandler(svc.Catalog, logger))
			r.Post("/", createOfferHandler(svc.Catalog, logger))
			r.Get("/{id}", getOfferHandler(svc.Catalog, logger))
			r.Put("/{id}", updateOfferHandler(svc.Catalog, logger))
			r.Delete("/{id}", deleteOfferHandler(svc.Catalog, logger))
			r.Patch("/{id}/toggle", toggleOfferHandler(svc.Catalog, logger))
		})

		// Provinces
		r.Route("/provinces", func(r chi.Router) {
			r.Use(RequireRoles(domain.RoleAdmin))
			r.Get("/", listProvincesHandler(svc.Catalog, logger))
			r.Post("/", createProvinceHandler(svc.Catalog, logger))
			r.Get("/{id}", getProvinceHandler(svc.Catalog, logger))
		})

		// Tracked packages
		r.Route("/packages", func(r chi.Router) {
			r.With(staff).Post("/", createPackageHandler(svc.Tracking, logger))
			r.With(staff).Get("/", listPackagesHandler(svc.Tracking, logger))
			r.With(staff).Get("/track/{trackingNumber}", trackPackageHandler(svc.Tracking, logger))
			r.With(staff).Get("/{id}", getPackageHandler(svc.Tracking, logger))
			r.With(RequireRoles(domain.RoleWorker)).Put("/{id}/status", advancePackageHandler(svc.Tracking, logger))
		})

		// Tracked remittances
		r.Route("/remittances", func(r chi.Router) {
			r.With(staff).Post("/", createRemittanceHandler(svc.Tracking, logger))
			r.With(staff).Get("/", listRemittancesHandler(svc.Tracking, logger))
			r.With(staff).Get("/track/{trackingNumber}", trackRemittanceHandler(svc.Tracking, logger))
			r.With(staff).Get("/{id}", getRemittanceHandler(svc.Tracking, logger))
			r.With(RequireRoles(domain.RoleWorker)).Put("/{id}/status", advanceRemittanceHandler(svc.Tracking, logger))
		})
	})

	return r
}

// ============================================================
// Operational
// ============================================================

func healthzHandler(checkers []port.HealthChecker, breakers []port.BreakerReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "backoffice-api", Status: "healthy", LastChecked: now},
		}

		for _, c := range checkers {
			start := time.Now()
			err := c.Ping(ctx)
			sh := domain.ServiceHealth{
				Name:        c.Name(),
				Status:      "healthy",
				LatencyMs:   time.Since(start).Milliseconds(),
				LastChecked: now,
			}
			if err != nil {
				sh.Status = "unhealthy"
				sh.Error = err.Error()
			}
			services = append(services, sh)
		}

		// A tripped breaker degrades the service but keeps it in rotation.
		for _, b := range breakers {
			sh := domain.ServiceHealth{
				Name:        b.Name() + "-breaker",
				Status:      "healthy",
				LastChecked: now,
				Breaker:     b.State(),
			}
			if sh.Breaker != "closed" {
				sh.Status = "degraded"
			}
			services = append(services, sh)
		}

		overallStatus := "healthy"
		code := http.StatusOK
		for _, s := range services {
			switch s.Status {
			case "unhealthy":
				overallStatus = "unhealthy"
				code = http.StatusServiceUnavailable
			case "degraded":
				if overallStatus == "healthy" {
					overallStatus = "degraded"
				}
			}
		}

		writeJSON(w, code, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
