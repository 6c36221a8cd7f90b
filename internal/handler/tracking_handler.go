package handler

import (
	"net/http"
	"strings"

	"github.com/raycargo/backoffice/internal/domain"
	"github.com/raycargo/backoffice/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Packages — /api/packages
// ============================================================

func createPackageHandler(svc *service.TrackingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/packages")
		defer span.End()

		var req domain.CreatePackageRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("client.id", req.ClientID))

		pkg, err := svc.CreatePackage(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, pkg)
	}
}

func listPackagesHandler(svc *service.TrackingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/packages")
		defer span.End()

		q := r.URL.Query()
		filter := domain.PackageFilter{
			Status:   domain.PackageStatus(strings.ToUpper(q.Get("status"))),
			ClientID: q.Get("clientId"),
		}

		pkgs, err := svc.ListPackages(ctx, filter)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		page, pageSize := parsePagination(r)
		writeJSON(w, http.StatusOK, domain.Paginate(pkgs, page, pageSize))
	}
}

func getPackageHandler(svc *service.TrackingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/packages/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")
		span.SetAttributes(attribute.String("package.id", id))

		pkg, err := svc.GetPackage(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, pkg)
	}
}

func trackPackageHandler(svc *service.TrackingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/packages/track/{trackingNumber}")
		defer span.End()

		tn := chi.URLParam(r, "trackingNumber")
		span.SetAttributes(attribute.String("tracking_number", tn))

		pkg, err := svc.TrackPackage(ctx, tn)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, pkg)
	}
}

func advancePackageHandler(svc *service.TrackingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /api/packages/{id}/status")
		defer span.End()

		id := chi.URLParam(r, "id")
		var req domain.PackageStatusRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("package.id", id), attribute.String("status", req.Status))

		pkg, err := svc.AdvancePackage(ctx, id, ActorFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, pkg)
	}
}

// ============================================================
// Remittances — /api/remittances
// ============================================================

func createRemittanceHandler(svc *service.TrackingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/remittances")
		defer span.End()

		var req domain.CreateRemittanceRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		req.Currency = strings.ToUpper(req.Currency)
		span.SetAttributes(attribute.String("client.id", req.ClientID), attribute.String("currency", req.Currency))

		rem, err := svc.CreateRemittance(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, rem)
	}
}

func listRemittancesHandler(svc *service.TrackingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/remittances")
		defer span.End()

		q := r.URL.Query()
		filter := domain.RemittanceFilter{
			Status:   domain.RemittanceStatus(strings.ToUpper(q.Get("status"))),
			ClientID: q.Get("clientId"),
			Currency: domain.Currency(strings.ToUpper(q.Get("currency"))),
		}

		rems, err := svc.ListRemittances(ctx, filter)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		page, pageSize := parsePagination(r)
		writeJSON(w, http.StatusOK, domain.Paginate(rems, page, pageSize))
	}
}

func getRemittanceHandler(svc *service.TrackingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/remittances/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")
		span.SetAttributes(attribute.String("remittance.id", id))

		rem, err := svc.GetRemittance(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, rem)
	}
}

func trackRemittanceHandler(svc *service.TrackingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/remittances/track/{trackingNumber}")
		defer span.End()

		tn := chi.URLParam(r, "trackingNumber")
		span.SetAttributes(attribute.String("tracking_number", tn))

		rem, err := svc.TrackRemittance(ctx, tn)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, rem)
	}
}

func advanceRemittanceHandler(svc *service.TrackingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /api/remittances/{id}/status")
		defer span.End()

		id := chi.URLParam(r, "id")
		var req domain.RemittanceStatusRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("remittance.id", id), attribute.String("status", req.Status))

		rem, err := svc.AdvanceRemittance(ctx, id, ActorFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, rem)
	}
}
