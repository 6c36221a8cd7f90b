package handler

import (
	"net/http"

	"github.com/raycargo/backoffice/internal/domain"
	"github.com/raycargo/backoffice/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

func saleFilter(r *http.Request) domain.SaleFilter {
	q := r.URL.Query()
	return domain.SaleFilter{
		ClientID:   q.Get("clientId"),
		ProvinceID: q.Get("provinceId"),
		Status:     domain.SaleStatus(q.Get("status")),
	}
}

// ============================================================
// Recharges — /api/recargas
// ============================================================

func listRechargesHandler(svc *service.SalesService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/recargas")
		defer span.End()

		sales, err := svc.ListRecharges(ctx, saleFilter(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		page, pageSize := parsePagination(r)
		writeJSON(w, http.StatusOK, domain.Paginate(sales, page, pageSize))
	}
}

func createRechargeHandler(svc *service.SalesService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/recargas")
		defer span.End()

		var req domain.CreateRechargeRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("offer.id", req.OfferID), attribute.String("client.id", req.ClientID))

		sale, err := svc.CreateRecharge(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, sale)
	}
}

func getRechargeHandler(svc *service.SalesService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/recargas/{id}")
		defer span.End()

		sale, err := svc.GetRecharge(ctx, chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, sale)
	}
}

func updateRechargeHandler(svc *service.SalesService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /api/recargas/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")
		span.SetAttributes(attribute.String("sale.id", id))

		var req domain.UpdateRechargeRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		sale, err := svc.UpdateRecharge(ctx, id, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, sale)
	}
}

func deleteRechargeHandler(svc *service.SalesService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /api/recargas/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")
		if err := svc.DeleteRecharge(ctx, id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "recharge deleted", ID: id})
	}
}

func confirmRechargeHandler(svc *service.SettlementService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /api/recargas/{id}/confirmar")
		defer span.End()

		id := chi.URLParam(r, "id")
		span.SetAttributes(attribute.String("sale.id", id))

		// The confirmation note is optional, so an empty body is accepted.
		var req domain.ConfirmRechargeRequest
		if r.ContentLength != 0 {
			if err := decodeJSON(r, &req); err != nil {
				handleServiceError(w, err, logger)
				return
			}
		}

		result, err := svc.ConfirmRecharge(ctx, id, req.Confirmation)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("settlement.outcome", string(result.Result.Outcome)))
		writeJSON(w, http.StatusOK, result)
	}
}

// ============================================================
// Remittance sales — /api/remesas
// ============================================================

func listRemittanceSalesHandler(svc *service.SalesService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/remesas")
		defer span.End()

		sales, err := svc.ListRemittanceSales(ctx, saleFilter(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		page, pageSize := parsePagination(r)
		writeJSON(w, http.StatusOK, domain.Paginate(sales, page, pageSize))
	}
}

func createRemittanceSaleHandler(svc *service.SalesService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/remesas")
		defer span.End()

		var req domain.CreateRemittanceSaleRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("client.id", req.ClientID))

		sale, err := svc.CreateRemittanceSale(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, sale)
	}
}

func getRemittanceSaleHandler(svc *service.SalesService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/remesas/{id}")
		defer span.End()

		sale, err := svc.GetRemittanceSale(ctx, chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, sale)
	}
}

func updateRemittanceSaleHandler(svc *service.SalesService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /api/remesas/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")
		span.SetAttributes(attribute.String("sale.id", id))

		var req domain.UpdateRemittanceSaleRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		sale, err := svc.UpdateRemittanceSale(ctx, id, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, sale)
	}
}

func deleteRemittanceSaleHandler(svc *service.SalesService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /api/remesas/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")
		if err := svc.DeleteRemittanceSale(ctx, id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "remittance sale deleted", ID: id})
	}
}

func confirmRemittanceSaleHandler(svc *service.SettlementService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /api/remesas/{id}/confirmar")
		defer span.End()

		id := chi.URLParam(r, "id")
		span.SetAttributes(attribute.String("sale.id", id))

		var req domain.ConfirmRemittanceSaleRequest
		if r.ContentLength != 0 {
			if err := decodeJSON(r, &req); err != nil {
				handleServiceError(w, err, logger)
				return
			}
		}

		result, err := svc.ConfirmRemittanceSale(ctx, id, req.Confirmation, req.Beneficiary)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("settlement.outcome", string(result.Result.Outcome)))
		writeJSON(w, http.StatusOK, result)
	}
}
