package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/raycargo/backoffice/internal/domain"
	"github.com/raycargo/backoffice/internal/port"
)

var salesTracer = otel.Tracer("service/sales")

// SalesService takes recharge and remittance sales at the counter. Sales
// start Pending; SettlementService confirms them.
type SalesService struct {
	sales     port.SaleStore
	offers    port.OfferStore
	clients   port.ClientDirectory
	provinces ProvinceResolver
	validator *Validator
	logger    *zap.Logger
	now       func() time.Time
}

// NewSalesService creates a sales service.
func NewSalesService(sales port.SaleStore, offers port.OfferStore, clients port.ClientDirectory, provinces ProvinceResolver, validator *Validator, logger *zap.Logger) *SalesService {
	return &SalesService{
		sales:     sales,
		offers:    offers,
		clients:   clients,
		provinces: provinces,
		validator: validator,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ============================================================
// Recharges
// ============================================================

// CreateRecharge records a pending recharge of an active offer.
func (s *SalesService) CreateRecharge(ctx context.Context, req *domain.CreateRechargeRequest) (*domain.RechargeSale, error) {
	ctx, span := salesTracer.Start(ctx, "SalesService.CreateRecharge")
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	phone, err := s.validator.Phone("phone", req.Phone)
	if err != nil {
		return nil, err
	}
	offer, err := s.offers.GetOffer(ctx, req.OfferID)
	if err != nil {
		return nil, err
	}
	if !offer.Active {
		return nil, &domain.ErrValidation{Field: "offerId", Message: "offer is not active"}
	}
	if _, err := s.clients.GetClient(ctx, req.ClientID); err != nil {
		return nil, err
	}
	if _, err := s.provinces.ResolveProvince(ctx, req.DestinationProvince); err != nil {
		return nil, err
	}

	sale := &domain.RechargeSale{
		ID:                  uuid.NewString(),
		OfferID:             offer.ID,
		ClientID:            req.ClientID,
		Amount:              offer.Price,
		Phone:               phone,
		DestinationProvince: req.DestinationProvince,
		Status:              domain.SalePending,
		Date:                s.now(),
	}
	if err := s.sales.CreateRechargeSale(ctx, sale); err != nil {
		return nil, err
	}
	s.logger.Info("recharge created",
		zap.String("sale_id", sale.ID),
		zap.String("offer_id", sale.OfferID),
		zap.String("province_id", sale.DestinationProvince),
	)
	return sale, nil
}

// GetRecharge returns one recharge sale.
func (s *SalesService) GetRecharge(ctx context.Context, id string) (*domain.RechargeSale, error) {
	ctx, span := salesTracer.Start(ctx, "SalesService.GetRecharge")
	defer span.End()

	return s.sales.GetRechargeSale(ctx, id)
}

// ListRecharges returns recharge sales matching f, newest first.
func (s *SalesService) ListRecharges(ctx context.Context, f domain.SaleFilter) ([]domain.RechargeSale, error) {
	ctx, span := salesTracer.Start(ctx, "SalesService.ListRecharges")
	defer span.End()

	if err := validSaleStatus(f.Status); err != nil {
		return nil, err
	}
	return s.sales.ListRechargeSales(ctx, f)
}

// UpdateRecharge edits a pending recharge. Changing the offer re-prices the
// sale at the new offer's price.
func (s *SalesService) UpdateRecharge(ctx context.Context, id string, req *domain.UpdateRechargeRequest) (*domain.RechargeSale, error) {
	ctx, span := salesTracer.Start(ctx, "SalesService.UpdateRecharge")
	defer span.End()

	var (
		offer *domain.RechargeOffer
		phone string
		err   error
	)
	if req.OfferID != "" {
		if offer, err = s.offers.GetOffer(ctx, req.OfferID); err != nil {
			return nil, err
		}
		if !offer.Active {
			return nil, &domain.ErrValidation{Field: "offerId", Message: "offer is not active"}
		}
	}
	if req.Phone != "" {
		if phone, err = s.validator.Phone("phone", req.Phone); err != nil {
			return nil, err
		}
	}
	if req.ClientID != "" {
		if _, err := s.clients.GetClient(ctx, req.ClientID); err != nil {
			return nil, err
		}
	}
	if req.DestinationProvince != "" {
		if _, err := s.provinces.ResolveProvince(ctx, req.DestinationProvince); err != nil {
			return nil, err
		}
	}

	sale, err := s.sales.UpdateRechargeSale(ctx, id, func(r *domain.RechargeSale) error {
		if r.Status != domain.SalePending {
			return domain.ErrSaleNotPending("recharge", id, "edited")
		}
		if offer != nil && offer.ID != r.OfferID {
			r.OfferID = offer.ID
			r.Amount = offer.Price
		}
		if req.ClientID != "" {
			r.ClientID = req.ClientID
		}
		if phone != "" {
			r.Phone = phone
		}
		if req.DestinationProvince != "" {
			r.DestinationProvince = req.DestinationProvince
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("recharge updated", zap.String("sale_id", sale.ID), zap.String("amount", sale.Amount.String()))
	return sale, nil
}

// DeleteRecharge removes a recharge that has not been confirmed.
func (s *SalesService) DeleteRecharge(ctx context.Context, id string) error {
	ctx, span := salesTracer.Start(ctx, "SalesService.DeleteRecharge")
	defer span.End()

	return s.sales.DeleteRechargeSale(ctx, id, func(r *domain.RechargeSale) error {
		if r.Status != domain.SalePending {
			return domain.ErrSaleNotPending("recharge", id, "deleted")
		}
		return nil
	})
}

// ============================================================
// Remittance sales
// ============================================================

// CreateRemittanceSale records a pending remittance sale. The beneficiary is
// a saved recipient of the client or given inline.
func (s *SalesService) CreateRemittanceSale(ctx context.Context, req *domain.CreateRemittanceSaleRequest) (*domain.RemittanceSale, error) {
	ctx, span := salesTracer.Start(ctx, "SalesService.CreateRemittanceSale")
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	if err := requirePositive("amount", req.Amount); err != nil {
		return nil, err
	}
	if err := requireNonNegative("cost", req.Cost); err != nil {
		return nil, err
	}
	client, err := s.clients.GetClient(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}
	beneficiary, err := s.beneficiary(client, req.BeneficiaryID, req.Beneficiary)
	if err != nil {
		return nil, err
	}
	if _, err := s.provinces.ResolveProvince(ctx, req.DestinationProvince); err != nil {
		return nil, err
	}

	sale := &domain.RemittanceSale{
		ID:                  uuid.NewString(),
		ClientID:            client.ID,
		Amount:              req.Amount,
		Cost:                req.Cost,
		Beneficiary:         *beneficiary,
		DestinationProvince: req.DestinationProvince,
		Description:         strings.TrimSpace(req.Description),
		Status:              domain.SalePending,
		Date:                s.now(),
	}
	if err := s.sales.CreateRemittanceSale(ctx, sale); err != nil {
		return nil, err
	}
	s.logger.Info("remittance sale created",
		zap.String("sale_id", sale.ID),
		zap.String("province_id", sale.DestinationProvince),
		zap.String("amount", sale.Amount.String()),
	)
	return sale, nil
}

func (s *SalesService) beneficiary(client *domain.Client, id string, inline *domain.Beneficiary) (*domain.Beneficiary, error) {
	if id != "" {
		r, ok := client.FindRecipient(id)
		if !ok {
			return nil, &domain.ErrNotFound{Resource: "recipient", ID: id}
		}
		b := &domain.Beneficiary{Name: r.Name, Phone: r.Phone, Address: r.Address}
		if r.BankCardNumber != "" {
			card := r.BankCardNumber
			b.CardNumber = &card
		}
		return b, nil
	}
	if inline == nil {
		return nil, &domain.ErrValidation{Field: "beneficiary", Message: "beneficiaryId or beneficiary is required"}
	}
	return normalizeBeneficiary(s.validator, inline)
}

// GetRemittanceSale returns one remittance sale.
func (s *SalesService) GetRemittanceSale(ctx context.Context, id string) (*domain.RemittanceSale, error) {
	ctx, span := salesTracer.Start(ctx, "SalesService.GetRemittanceSale")
	defer span.End()

	return s.sales.GetRemittanceSale(ctx, id)
}

// ListRemittanceSales returns remittance sales matching f, newest first.
func (s *SalesService) ListRemittanceSales(ctx context.Context, f domain.SaleFilter) ([]domain.RemittanceSale, error) {
	ctx, span := salesTracer.Start(ctx, "SalesService.ListRemittanceSales")
	defer span.End()

	if err := validSaleStatus(f.Status); err != nil {
		return nil, err
	}
	return s.sales.ListRemittanceSales(ctx, f)
}

// UpdateRemittanceSale edits a pending remittance sale. A new beneficiary
// is resolved against the (possibly new) client the same way as at intake.
func (s *SalesService) UpdateRemittanceSale(ctx context.Context, id string, req *domain.UpdateRemittanceSaleRequest) (*domain.RemittanceSale, error) {
	ctx, span := salesTracer.Start(ctx, "SalesService.UpdateRemittanceSale")
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	if req.Amount != nil {
		if err := requirePositive("amount", *req.Amount); err != nil {
			return nil, err
		}
	}
	if req.Cost != nil {
		if err := requireNonNegative("cost", *req.Cost); err != nil {
			return nil, err
		}
	}
	if req.DestinationProvince != "" {
		if _, err := s.provinces.ResolveProvince(ctx, req.DestinationProvince); err != nil {
			return nil, err
		}
	}

	clientID := req.ClientID
	if clientID == "" && req.BeneficiaryID != "" {
		current, err := s.sales.GetRemittanceSale(ctx, id)
		if err != nil {
			return nil, err
		}
		clientID = current.ClientID
	}
	var (
		client      *domain.Client
		beneficiary *domain.Beneficiary
		err         error
	)
	if clientID != "" {
		if client, err = s.clients.GetClient(ctx, clientID); err != nil {
			return nil, err
		}
	}
	if req.BeneficiaryID != "" || req.Beneficiary != nil {
		if beneficiary, err = s.beneficiary(client, req.BeneficiaryID, req.Beneficiary); err != nil {
			return nil, err
		}
	}

	sale, err := s.sales.UpdateRemittanceSale(ctx, id, func(r *domain.RemittanceSale) error {
		if r.Status != domain.SalePending {
			return domain.ErrSaleNotPending("remittance sale", id, "edited")
		}
		if req.ClientID != "" {
			r.ClientID = req.ClientID
		}
		if req.Amount != nil {
			r.Amount = *req.Amount
		}
		if req.Cost != nil {
			r.Cost = *req.Cost
		}
		if beneficiary != nil {
			r.Beneficiary = *beneficiary
		}
		if req.DestinationProvince != "" {
			r.DestinationProvince = req.DestinationProvince
		}
		if req.Description != nil {
			r.Description = strings.TrimSpace(*req.Description)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("remittance sale updated", zap.String("sale_id", sale.ID), zap.String("amount", sale.Amount.String()))
	return sale, nil
}

// DeleteRemittanceSale removes a remittance sale that has not been confirmed.
func (s *SalesService) DeleteRemittanceSale(ctx context.Context, id string) error {
	ctx, span := salesTracer.Start(ctx, "SalesService.DeleteRemittanceSale")
	defer span.End()

	return s.sales.DeleteRemittanceSale(ctx, id, func(r *domain.RemittanceSale) error {
		if r.Status != domain.SalePending {
			return domain.ErrSaleNotPending("remittance sale", id, "deleted")
		}
		return nil
	})
}

func validSaleStatus(st domain.SaleStatus) error {
	switch st {
	case "", domain.SalePending, domain.SaleDone:
		return nil
	}
	return &domain.ErrValidation{Field: "status", Message: "must be Pending or Done"}
}

// normalizeBeneficiary checks an inline beneficiary and rewrites its phone
// in E.164 form.
func normalizeBeneficiary(v *Validator, b *domain.Beneficiary) (*domain.Beneficiary, error) {
	if err := v.Struct(b); err != nil {
		return nil, err
	}
	phone, err := v.Phone("beneficiary.phone", b.Phone)
	if err != nil {
		return nil, err
	}
	out := *b
	out.Phone = phone
	return &out, nil
}
