package service

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/raycargo/backoffice/internal/domain"
	"github.com/raycargo/backoffice/internal/infra/observability"
	"github.com/raycargo/backoffice/internal/infra/resilience"
	"github.com/raycargo/backoffice/internal/port"
)

var settlementTracer = otel.Tracer("service/settlement")

// SettlementOptions tunes settlement behaviour.
type SettlementOptions struct {
	// RemittanceCreatesLedger makes remittance settlements create a missing
	// province ledger instead of skipping the movement.
	RemittanceCreatesLedger bool
	MaxConcurrency          int
}

// SettlementService confirms sales and posts their ledger movements.
// The sale is the source of truth: once it is persisted as done, ledger
// failures are reported in the result and logged, never returned.
type SettlementService struct {
	sales   port.SaleStore
	offers  port.OfferStore
	ledger  *LedgerService
	guard   *resilience.Guard
	valid   *Validator
	opts    SettlementOptions
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewSettlementService creates a settlement service.
func NewSettlementService(sales port.SaleStore, offers port.OfferStore, ledger *LedgerService, validator *Validator, opts SettlementOptions, metrics *observability.Metrics, logger *zap.Logger) *SettlementService {
	return &SettlementService{
		sales:   sales,
		offers:  offers,
		ledger:  ledger,
		guard:   resilience.NewGuard("ledger", opts.MaxConcurrency),
		valid:   validator,
		opts:    opts,
		metrics: metrics,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Breaker exposes the ledger write guard for health reporting.
func (s *SettlementService) Breaker() *resilience.Guard { return s.guard }

// ConfirmRecharge marks a pending recharge as done and debits the offer cost
// from the destination province, creating its ledger if needed.
func (s *SettlementService) ConfirmRecharge(ctx context.Context, saleID, note string) (*domain.RechargeSettlement, error) {
	ctx, span := settlementTracer.Start(ctx, "SettlementService.ConfirmRecharge")
	defer span.End()
	span.SetAttributes(attribute.String("sale.id", saleID))

	current, err := s.sales.GetRechargeSale(ctx, saleID)
	if err != nil {
		return nil, err
	}
	offer, err := s.offers.GetOffer(ctx, current.OfferID)
	if err != nil {
		return nil, err
	}

	sale, err := s.sales.UpdateRechargeSale(ctx, saleID, func(rs *domain.RechargeSale) error {
		return rs.Confirm(note, s.now())
	})
	if err != nil {
		return nil, err
	}

	movement, result := s.post(ctx, "recharge", sale.DestinationProvince, true,
		domain.MovementRechargeSettlement, offer.Cost.Abs().Neg(), sale.ID)
	return &domain.RechargeSettlement{Sale: sale, Movement: movement, Result: result}, nil
}

// ConfirmRemittanceSale marks a pending remittance sale as done, optionally
// replacing its beneficiary, and debits the amount from the destination
// province. Without RemittanceCreatesLedger a province with no ledger gets
// no movement.
func (s *SettlementService) ConfirmRemittanceSale(ctx context.Context, saleID, note string, override *domain.Beneficiary) (*domain.RemittanceSettlement, error) {
	ctx, span := settlementTracer.Start(ctx, "SettlementService.ConfirmRemittanceSale")
	defer span.End()
	span.SetAttributes(attribute.String("sale.id", saleID))

	if override != nil {
		b, err := normalizeBeneficiary(s.valid, override)
		if err != nil {
			return nil, err
		}
		override = b
	}

	sale, err := s.sales.UpdateRemittanceSale(ctx, saleID, func(rs *domain.RemittanceSale) error {
		return rs.Confirm(note, override, s.now())
	})
	if err != nil {
		return nil, err
	}

	movement, result := s.post(ctx, "remittance", sale.DestinationProvince, s.opts.RemittanceCreatesLedger,
		domain.MovementRemittanceSettlement, sale.SettlementAmount(), sale.ID)
	return &domain.RemittanceSettlement{Sale: sale, Movement: movement, Result: result}, nil
}

// post writes the settlement movement and turns every ledger outcome into a
// result.
func (s *SettlementService) post(ctx context.Context, kind, provinceID string, create bool, mt domain.MovementType, amount decimal.Decimal, saleID string) (*domain.Movement, domain.SettlementResult) {
	ref := saleID
	var movement *domain.Movement
	err := s.guard.Do(ctx, func(ctx context.Context) error {
		var err error
		if create {
			_, movement, err = s.ledger.RecordMovement(ctx, provinceID, mt, amount, &ref)
		} else {
			_, movement, err = s.ledger.RecordOnExisting(ctx, provinceID, mt, amount, &ref)
		}
		return err
	})

	fields := []zap.Field{
		zap.String("sale_kind", kind),
		zap.String("sale_id", saleID),
		zap.String("province_id", provinceID),
		zap.String("amount", amount.String()),
	}
	fields = append(fields, observability.TraceFields(ctx)...)

	result := domain.SettlementResult{Settled: true}
	var nf *domain.ErrNotFound
	switch {
	case err == nil:
		result.LedgerUpdated = true
		result.Outcome = domain.OutcomeRecorded
		s.logger.Info("settlement recorded", append(fields, zap.String("movement_id", movement.ID))...)
	case !create && errors.As(err, &nf):
		result.Outcome = domain.OutcomeSkippedNoLedger
		result.Reason = "province has no ledger"
		s.logger.Warn("settlement movement skipped: province has no ledger", fields...)
	default:
		movement = nil
		result.Outcome = domain.OutcomeFailed
		result.Reason = "ledger update failed"
		s.logger.Error("settlement ledger update failed", append(fields, zap.Error(err))...)
	}
	s.metrics.IncrSettlement(kind, string(result.Outcome))
	return movement, result
}
