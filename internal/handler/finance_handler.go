package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/raycargo/backoffice/internal/domain"
	"github.com/raycargo/backoffice/internal/infra/export"
	"github.com/raycargo/backoffice/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Finance — /api/finance
// ============================================================

func listLedgersHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/finance")
		defer span.End()

		ledgers, err := svc.List(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, ledgers)
	}
}

func financialStatusHandler(svc *service.ReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/finance/status")
		defer span.End()

		status, err := svc.Status(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}

func listOperationsHandler(svc *service.ReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/finance/operations")
		defer span.End()

		filter, err := movementFilter(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		views, err := svc.ListMovements(ctx, filter)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		span.SetAttributes(attribute.Int("movements.count", len(views)))
		page, pageSize := parsePagination(r)
		writeJSON(w, http.StatusOK, domain.Paginate(views, page, pageSize))
	}
}

func exportOperationsHandler(svc *service.ReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/finance/operations/export")
		defer span.End()

		filter, err := movementFilter(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		// Buffered so a failure still produces a JSON error instead of a truncated file.
		var buf bytes.Buffer
		if err := svc.ExportMovements(ctx, filter, &buf); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		filename := fmt.Sprintf("movements-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
		w.Header().Set("Content-Type", export.ContentType)
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
		w.WriteHeader(http.StatusOK)
		if _, err := buf.WriteTo(w); err != nil {
			logger.Warn("export: write failed", zap.Error(err))
		}
	}
}

func addOperationHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/finance/operation")
		defer span.End()

		var req domain.ManualOperationRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(
			attribute.String("province.id", req.ProvinceID),
			attribute.String("movement.type", req.Type),
		)

		ledger, movement, err := svc.AddOperation(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, map[string]any{
			"ledger":   ledger,
			"movement": movement,
		})
	}
}

func deleteOperationHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /api/finance/operation/{provinceId}/{operationId}")
		defer span.End()

		provinceID := chi.URLParam(r, "provinceId")
		operationID := chi.URLParam(r, "operationId")
		span.SetAttributes(attribute.String("province.id", provinceID))

		ledger, err := svc.DeleteMovement(ctx, provinceID, operationID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, ledger)
	}
}

func provinceLedgerHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/finance/province/{provinceId}")
		defer span.End()

		provinceID := chi.URLParam(r, "provinceId")
		span.SetAttributes(attribute.String("province.id", provinceID))

		summary, err := svc.GetByProvince(ctx, provinceID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func openLedgerHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/finance/province/{provinceId}")
		defer span.End()

		provinceID := chi.URLParam(r, "provinceId")
		span.SetAttributes(attribute.String("province.id", provinceID))

		summary, err := svc.GetOrCreate(ctx, provinceID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}
