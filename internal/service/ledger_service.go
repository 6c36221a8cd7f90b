package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/raycargo/backoffice/internal/domain"
	"github.com/raycargo/backoffice/internal/infra/observability"
	"github.com/raycargo/backoffice/internal/port"
)

var ledgerTracer = otel.Tracer("service/ledger")

// ProvinceResolver looks up provinces, usually through a cache.
type ProvinceResolver interface {
	ResolveProvince(ctx context.Context, id string) (*domain.Province, error)
}

// LedgerService owns the province ledgers. Every write goes through one
// atomic store mutation that appends or removes a movement and recomputes
// the balance.
type LedgerService struct {
	store     port.LedgerStore
	provinces ProvinceResolver
	validator *Validator
	metrics   *observability.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewLedgerService creates a ledger service.
func NewLedgerService(store port.LedgerStore, provinces ProvinceResolver, validator *Validator, metrics *observability.Metrics, logger *zap.Logger) *LedgerService {
	return &LedgerService{
		store:     store,
		provinces: provinces,
		validator: validator,
		metrics:   metrics,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RecordMovement appends a signed movement to the province ledger, creating
// the ledger if it does not exist yet.
func (s *LedgerService) RecordMovement(ctx context.Context, provinceID string, kind domain.MovementType, amount decimal.Decimal, operationRef *string) (*domain.ProvinceLedger, *domain.Movement, error) {
	return s.record(ctx, provinceID, true, kind, amount, operationRef)
}

// RecordOnExisting is RecordMovement for a ledger that must already exist;
// it returns *domain.ErrNotFound otherwise.
func (s *LedgerService) RecordOnExisting(ctx context.Context, provinceID string, kind domain.MovementType, amount decimal.Decimal, operationRef *string) (*domain.ProvinceLedger, *domain.Movement, error) {
	return s.record(ctx, provinceID, false, kind, amount, operationRef)
}

func (s *LedgerService) record(ctx context.Context, provinceID string, create bool, kind domain.MovementType, amount decimal.Decimal, operationRef *string) (*domain.ProvinceLedger, *domain.Movement, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.RecordMovement")
	defer span.End()
	span.SetAttributes(
		attribute.String("province.id", provinceID),
		attribute.String("movement.type", string(kind)),
		attribute.Bool("create", create),
	)

	m := domain.Movement{
		ID:           uuid.NewString(),
		Type:         kind,
		Amount:       amount,
		OperationRef: operationRef,
		Date:         s.now(),
	}
	ledger, err := s.store.MutateLedger(ctx, provinceID, create, func(l *domain.ProvinceLedger) error {
		l.Append(m)
		return nil
	})
	if err != nil {
		var nf *domain.ErrNotFound
		if !errors.As(err, &nf) {
			s.metrics.IncrLedgerWrite(string(kind), "error")
			countStoreError(s.metrics, err)
		}
		return nil, nil, err
	}
	s.metrics.IncrLedgerWrite(string(kind), "ok")

	s.logger.Info("ledger movement recorded",
		zap.String("province_id", provinceID),
		zap.String("movement_id", m.ID),
		zap.String("type", string(kind)),
		zap.String("amount", amount.String()),
		zap.String("balance", ledger.Balance.String()),
	)
	return ledger, &m, nil
}

// GetOrCreate returns the ledger of an existing province, opening an empty
// one if needed.
func (s *LedgerService) GetOrCreate(ctx context.Context, provinceID string) (*domain.LedgerSummary, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.GetOrCreate")
	defer span.End()

	p, err := s.provinces.ResolveProvince(ctx, provinceID)
	if err != nil {
		return nil, err
	}
	l, err := s.store.EnsureLedger(ctx, provinceID)
	if err != nil {
		countStoreError(s.metrics, err)
		return nil, err
	}
	return &domain.LedgerSummary{ProvinceLedger: *l, Province: p.Ref()}, nil
}

// AddOperation records a manual entry. Amount is a magnitude; credits are
// stored positive and every other type negative.
func (s *LedgerService) AddOperation(ctx context.Context, req *domain.ManualOperationRequest) (*domain.ProvinceLedger, *domain.Movement, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.AddOperation")
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		return nil, nil, err
	}
	kind, err := domain.ParseMovementType(req.Type)
	if err != nil {
		return nil, nil, err
	}
	if err := requirePositive("amount", req.Amount); err != nil {
		return nil, nil, err
	}
	if _, err := s.provinces.ResolveProvince(ctx, req.ProvinceID); err != nil {
		return nil, nil, err
	}

	return s.RecordMovement(ctx, req.ProvinceID, kind, kind.Signed(req.Amount), nil)
}

// GetByProvince returns the ledger of one province with its name.
func (s *LedgerService) GetByProvince(ctx context.Context, provinceID string) (*domain.LedgerSummary, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.GetByProvince")
	defer span.End()

	l, err := s.store.GetLedger(ctx, provinceID)
	if err != nil {
		return nil, err
	}
	return &domain.LedgerSummary{ProvinceLedger: *l, Province: s.provinceRef(ctx, provinceID)}, nil
}

// List returns every ledger with its province name.
func (s *LedgerService) List(ctx context.Context) ([]domain.LedgerSummary, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.List")
	defer span.End()

	ledgers, err := s.store.ListLedgers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list ledgers: %w", err)
	}
	out := make([]domain.LedgerSummary, 0, len(ledgers))
	for _, l := range ledgers {
		out = append(out, domain.LedgerSummary{ProvinceLedger: l, Province: s.provinceRef(ctx, l.ProvinceID)})
	}
	return out, nil
}

// DeleteMovement removes one movement and recomputes the balance.
func (s *LedgerService) DeleteMovement(ctx context.Context, provinceID, movementID string) (*domain.ProvinceLedger, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.DeleteMovement")
	defer span.End()
	span.SetAttributes(attribute.String("province.id", provinceID), attribute.String("movement.id", movementID))

	ledger, err := s.store.MutateLedger(ctx, provinceID, false, func(l *domain.ProvinceLedger) error {
		if !l.RemoveMovement(movementID) {
			return &domain.ErrNotFound{Resource: "movement", ID: movementID}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ledger movement deleted",
		zap.String("province_id", provinceID),
		zap.String("movement_id", movementID),
		zap.String("balance", ledger.Balance.String()),
	)
	return ledger, nil
}

// provinceRef falls back to the bare id when the province cannot be resolved.
func (s *LedgerService) provinceRef(ctx context.Context, id string) domain.ProvinceRef {
	p, err := s.provinces.ResolveProvince(ctx, id)
	if err != nil {
		return domain.ProvinceRef{ID: id}
	}
	return p.Ref()
}

// countStoreError counts backend failures by the service that raised them.
func countStoreError(m *observability.Metrics, err error) {
	var ext *domain.ErrExternalService
	if errors.As(err, &ext) {
		m.IncrStoreError(ext.Service)
		return
	}
	var to *domain.ErrTimeout
	if errors.As(err, &to) {
		m.IncrStoreError("timeout")
	}
}
