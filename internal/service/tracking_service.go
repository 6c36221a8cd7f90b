package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/raycargo/backoffice/internal/domain"
	"github.com/raycargo/backoffice/internal/infra/observability"
	"github.com/raycargo/backoffice/internal/port"
)

var trackingTracer = otel.Tracer("service/tracking")

// maxTrackingAttempts bounds how many fresh numbers are drawn when a store
// reports a tracking number as taken.
const maxTrackingAttempts = 3

// TrackingService runs the package and remittance lifecycles.
type TrackingService struct {
	packages    port.PackageStore
	remittances port.RemittanceStore
	clients     port.ClientDirectory
	provinces   port.ProvinceStore
	sequences   *SequenceService
	validator   *Validator
	metrics     *observability.Metrics
	logger      *zap.Logger
	now         func() time.Time
}

// NewTrackingService creates a tracking service.
func NewTrackingService(
	packages port.PackageStore,
	remittances port.RemittanceStore,
	clients port.ClientDirectory,
	provinces port.ProvinceStore,
	sequences *SequenceService,
	validator *Validator,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *TrackingService {
	return &TrackingService{
		packages:    packages,
		remittances: remittances,
		clients:     clients,
		provinces:   provinces,
		sequences:   sequences,
		validator:   validator,
		metrics:     metrics,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// ============================================================
// Packages
// ============================================================

// CreatePackage registers a package in RECEIVED at the sender's department
// unless a location is given.
func (s *TrackingService) CreatePackage(ctx context.Context, req *domain.CreatePackageRequest) (*domain.Package, error) {
	ctx, span := trackingTracer.Start(ctx, "TrackingService.CreatePackage")
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	if err := requireNonNegative("weight", req.Weight); err != nil {
		return nil, err
	}
	if err := requireNonNegative("cost", req.Cost); err != nil {
		return nil, err
	}
	if err := requireNonNegative("moneyAmount", req.MoneyAmount); err != nil {
		return nil, err
	}

	client, err := s.clients.GetClient(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}
	recipient, err := resolveRecipient(client, req.RecipientID, req.Recipient)
	if err != nil {
		return nil, err
	}
	if _, err := s.provinces.GetProvince(ctx, req.DestinationProvince); err != nil {
		return nil, err
	}

	location := strings.TrimSpace(req.Location)
	if location == "" {
		location = client.Department
	}

	var pkg *domain.Package
	err = s.insertWithFreshNumber(ctx, domain.KindPackage, func(tn string, now time.Time) error {
		pkg = &domain.Package{
			ID:                  uuid.NewString(),
			TrackingNumber:      tn,
			ClientID:            client.ID,
			Recipient:           *recipient,
			Weight:              req.Weight,
			Cost:                req.Cost,
			MoneyAmount:         req.MoneyAmount,
			DestinationProvince: req.DestinationProvince,
		}
		pkg.Start(location, now)
		return s.packages.CreatePackage(ctx, pkg)
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("tracking_number", pkg.TrackingNumber))
	s.logger.Info("package created",
		zap.String("package_id", pkg.ID),
		zap.String("tracking_number", pkg.TrackingNumber),
		zap.String("client_id", pkg.ClientID),
	)
	return pkg, nil
}

// GetPackage returns a package by id.
func (s *TrackingService) GetPackage(ctx context.Context, id string) (*domain.Package, error) {
	ctx, span := trackingTracer.Start(ctx, "TrackingService.GetPackage")
	defer span.End()

	return s.packages.GetPackage(ctx, id)
}

// TrackPackage returns a package by tracking number.
func (s *TrackingService) TrackPackage(ctx context.Context, trackingNumber string) (*domain.Package, error) {
	ctx, span := trackingTracer.Start(ctx, "TrackingService.TrackPackage")
	defer span.End()

	kind, _, _, err := domain.ParseTrackingNumber(trackingNumber)
	if err != nil {
		return nil, err
	}
	if kind != domain.KindPackage {
		return nil, &domain.ErrNotFound{Resource: "package", ID: trackingNumber}
	}
	return s.packages.GetPackageByTrackingNumber(ctx, trackingNumber)
}

// ListPackages returns packages matching f, newest first.
func (s *TrackingService) ListPackages(ctx context.Context, f domain.PackageFilter) ([]domain.Package, error) {
	ctx, span := trackingTracer.Start(ctx, "TrackingService.ListPackages")
	defer span.End()

	if f.Status != "" && !f.Status.Valid() {
		return nil, &domain.ErrValidation{Field: "status", Message: "unknown package status"}
	}
	return s.packages.ListPackages(ctx, f)
}

// AdvancePackage appends a status event performed by actor.
func (s *TrackingService) AdvancePackage(ctx context.Context, id string, actor *domain.Actor, req *domain.PackageStatusRequest) (*domain.Package, error) {
	ctx, span := trackingTracer.Start(ctx, "TrackingService.AdvancePackage")
	defer span.End()
	span.SetAttributes(attribute.String("package.id", id), attribute.String("status", req.Status))

	if actor == nil {
		return nil, &domain.ErrForbidden{Action: "change package status without an actor"}
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	next := domain.PackageStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	pkg, err := s.packages.UpdatePackage(ctx, id, func(p *domain.Package) error {
		return p.Advance(next, domain.StatusEvent{
			Timestamp:     s.now(),
			Actor:         actor.Ref(),
			Location:      req.Location,
			DeliveryPhoto: req.DeliveryPhoto,
		})
	})
	s.recordTransition("package", string(next), next.Valid(), err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("package status changed",
		zap.String("package_id", pkg.ID),
		zap.String("status", string(pkg.CurrentStatus)),
		zap.String("actor_id", actor.ID),
	)
	return pkg, nil
}

// ============================================================
// Remittances
// ============================================================

// CreateRemittance registers a remittance in PENDING.
func (s *TrackingService) CreateRemittance(ctx context.Context, req *domain.CreateRemittanceRequest) (*domain.Remittance, error) {
	ctx, span := trackingTracer.Start(ctx, "TrackingService.CreateRemittance")
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	if err := requirePositive("amount", req.Amount); err != nil {
		return nil, err
	}
	if err := requireNonNegative("serviceCost", req.ServiceCost); err != nil {
		return nil, err
	}

	client, err := s.clients.GetClient(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}
	recipient, err := resolveRecipient(client, req.RecipientID, req.Recipient)
	if err != nil {
		return nil, err
	}

	var rem *domain.Remittance
	err = s.insertWithFreshNumber(ctx, domain.KindRemittance, func(tn string, now time.Time) error {
		rem = &domain.Remittance{
			ID:              uuid.NewString(),
			TrackingNumber:  tn,
			ClientID:        client.ID,
			Recipient:       *recipient,
			Amount:          req.Amount,
			Currency:        domain.Currency(req.Currency),
			ServiceCost:     req.ServiceCost,
			HomeDelivery:    req.HomeDelivery,
			DeliveryAddress: req.DeliveryAddress,
		}
		rem.Start(now)
		return s.remittances.CreateRemittance(ctx, rem)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("remittance created",
		zap.String("remittance_id", rem.ID),
		zap.String("tracking_number", rem.TrackingNumber),
		zap.String("currency", string(rem.Currency)),
	)
	return rem, nil
}

// GetRemittance returns a remittance by id.
func (s *TrackingService) GetRemittance(ctx context.Context, id string) (*domain.Remittance, error) {
	ctx, span := trackingTracer.Start(ctx, "TrackingService.GetRemittance")
	defer span.End()

	return s.remittances.GetRemittance(ctx, id)
}

// TrackRemittance returns a remittance by tracking number.
func (s *TrackingService) TrackRemittance(ctx context.Context, trackingNumber string) (*domain.Remittance, error) {
	ctx, span := trackingTracer.Start(ctx, "TrackingService.TrackRemittance")
	defer span.End()

	kind, _, _, err := domain.ParseTrackingNumber(trackingNumber)
	if err != nil {
		return nil, err
	}
	if kind != domain.KindRemittance {
		return nil, &domain.ErrNotFound{Resource: "remittance", ID: trackingNumber}
	}
	return s.remittances.GetRemittanceByTrackingNumber(ctx, trackingNumber)
}

// ListRemittances returns remittances matching f, newest first.
func (s *TrackingService) ListRemittances(ctx context.Context, f domain.RemittanceFilter) ([]domain.Remittance, error) {
	ctx, span := trackingTracer.Start(ctx, "TrackingService.ListRemittances")
	defer span.End()

	if f.Status != "" && !f.Status.Valid() {
		return nil, &domain.ErrValidation{Field: "status", Message: "unknown remittance status"}
	}
	return s.remittances.ListRemittances(ctx, f)
}

// AdvanceRemittance appends a status event performed by actor.
func (s *TrackingService) AdvanceRemittance(ctx context.Context, id string, actor *domain.Actor, req *domain.RemittanceStatusRequest) (*domain.Remittance, error) {
	ctx, span := trackingTracer.Start(ctx, "TrackingService.AdvanceRemittance")
	defer span.End()
	span.SetAttributes(attribute.String("remittance.id", id), attribute.String("status", req.Status))

	if actor == nil {
		return nil, &domain.ErrForbidden{Action: "change remittance status without an actor"}
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	next := domain.RemittanceStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	rem, err := s.remittances.UpdateRemittance(ctx, id, func(r *domain.Remittance) error {
		return r.Advance(next, domain.StatusEvent{
			Timestamp: s.now(),
			Actor:     actor.Ref(),
			Notes:     req.Notes,
		})
	})
	s.recordTransition("remittance", string(next), next.Valid(), err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("remittance status changed",
		zap.String("remittance_id", rem.ID),
		zap.String("status", string(rem.CurrentStatus)),
		zap.String("actor_id", actor.ID),
	)
	return rem, nil
}

// ============================================================
// Helpers
// ============================================================

// insertWithFreshNumber draws a tracking number and calls insert, drawing a
// new one when the store reports the number as taken.
func (s *TrackingService) insertWithFreshNumber(ctx context.Context, kind domain.EntityKind, insert func(tn string, now time.Time) error) error {
	var err error
	for attempt := 1; attempt <= maxTrackingAttempts; attempt++ {
		now := s.now()
		var tn string
		tn, err = s.sequences.Next(ctx, kind, now)
		if err != nil {
			return err
		}
		err = insert(tn, now)
		var conflict *domain.ErrConflict
		if !errors.As(err, &conflict) {
			return err
		}
		s.logger.Warn("tracking number already taken, drawing another",
			zap.String("kind", string(kind)),
			zap.String("tracking_number", tn),
			zap.Int("attempt", attempt),
		)
	}
	return fmt.Errorf("issue %s tracking number: %w", kind, err)
}

// recordTransition labels unknown statuses "invalid" so caller input never
// becomes a metric label.
func (s *TrackingService) recordTransition(entity, status string, known bool, err error) {
	result := "ok"
	if err != nil {
		result = "rejected"
	}
	if !known {
		status = "invalid"
	}
	s.metrics.IncrTransition(entity, status, result)
}

// resolveRecipient picks a saved recipient of the client, by id or by
// matching name, phone and address of an inline recipient.
func resolveRecipient(client *domain.Client, id string, inline *domain.Recipient) (*domain.Recipient, error) {
	if id != "" {
		r, ok := client.FindRecipient(id)
		if !ok {
			return nil, &domain.ErrNotFound{Resource: "recipient", ID: id}
		}
		return r, nil
	}
	if inline == nil {
		return nil, &domain.ErrValidation{Field: "recipient", Message: "recipientId or recipient is required"}
	}
	for i := range client.Recipients {
		saved := client.Recipients[i]
		if saved.Name == inline.Name && saved.Phone == inline.Phone && saved.Address == inline.Address {
			return &saved, nil
		}
	}
	return nil, &domain.ErrValidation{Field: "recipient", Message: "is not one of the client's recipients"}
}
