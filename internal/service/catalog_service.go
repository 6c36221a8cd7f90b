package service

import (
	"context"
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

var catalogTracer = otel.Tracer("service/catalog")

const provinceCacheName = "provinces"

// ProvinceCache is the read-through cache used for province lookups.
type ProvinceCache interface {
	GetOrLoad(ctx context.Context, key string, load func(ctx context.Context) (*domain.Province, error)) (*domain.Province, bool, error)
	Delete(key string)
}

// CatalogService manages recharge offers and provinces.
type CatalogService struct {
	offers    port.OfferStore
	provinces port.ProvinceStore
	cache     ProvinceCache
	validator *Validator
	metrics   *observability.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewCatalogService creates a catalog service.
func NewCatalogService(offers port.OfferStore, provinces port.ProvinceStore, cache ProvinceCache, validator *Validator, metrics *observability.Metrics, logger *zap.Logger) *CatalogService {
	return &CatalogService{
		offers:    offers,
		provinces: provinces,
		cache:     cache,
		validator: validator,
		metrics:   metrics,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ============================================================
// Offers
// ============================================================

func (s *CatalogService) validateOffer(req *domain.OfferRequest) ([]domain.Bonus, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	if err := requireNonNegative("price", req.Price); err != nil {
		return nil, err
	}
	if err := requireNonNegative("cost", req.Cost); err != nil {
		return nil, err
	}
	bonuses := make([]domain.Bonus, 0, len(req.Bonuses))
	for _, b := range req.Bonuses {
		kind, err := domain.ParseBonusKind(string(b.Kind))
		if err != nil {
			return nil, err
		}
		bonuses = append(bonuses, domain.Bonus{Title: strings.TrimSpace(b.Title), Kind: kind})
	}
	return bonuses, nil
}

// CreateOffer adds an offer, active unless the request says otherwise.
func (s *CatalogService) CreateOffer(ctx context.Context, req *domain.OfferRequest) (*domain.RechargeOffer, error) {
	ctx, span := catalogTracer.Start(ctx, "CatalogService.CreateOffer")
	defer span.End()

	bonuses, err := s.validateOffer(req)
	if err != nil {
		return nil, err
	}
	now := s.now()
	offer := &domain.RechargeOffer{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Price:       req.Price,
		Cost:        req.Cost,
		Bonuses:     bonuses,
		Active:      req.Active == nil || *req.Active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.offers.CreateOffer(ctx, offer); err != nil {
		return nil, err
	}
	s.logger.Info("offer created", zap.String("offer_id", offer.ID), zap.String("title", offer.Title))
	return offer, nil
}

// GetOffer returns one offer.
func (s *CatalogService) GetOffer(ctx context.Context, id string) (*domain.RechargeOffer, error) {
	ctx, span := catalogTracer.Start(ctx, "CatalogService.GetOffer")
	defer span.End()

	return s.offers.GetOffer(ctx, id)
}

// ListOffers returns all offers, or only active ones.
func (s *CatalogService) ListOffers(ctx context.Context, activeOnly bool) ([]domain.RechargeOffer, error) {
	ctx, span := catalogTracer.Start(ctx, "CatalogService.ListOffers")
	defer span.End()

	return s.offers.ListOffers(ctx, activeOnly)
}

// UpdateOffer replaces the editable fields of an offer. Active is kept when
// the request omits it.
func (s *CatalogService) UpdateOffer(ctx context.Context, id string, req *domain.OfferRequest) (*domain.RechargeOffer, error) {
	ctx, span := catalogTracer.Start(ctx, "CatalogService.UpdateOffer")
	defer span.End()

	bonuses, err := s.validateOffer(req)
	if err != nil {
		return nil, err
	}
	return s.offers.UpdateOffer(ctx, id, func(o *domain.RechargeOffer) error {
		o.Title = strings.TrimSpace(req.Title)
		o.Description = strings.TrimSpace(req.Description)
		o.Price = req.Price
		o.Cost = req.Cost
		o.Bonuses = bonuses
		if req.Active != nil {
			o.Active = *req.Active
		}
		o.UpdatedAt = s.now()
		return nil
	})
}

// ToggleOffer flips the active flag.
func (s *CatalogService) ToggleOffer(ctx context.Context, id string) (*domain.RechargeOffer, error) {
	ctx, span := catalogTracer.Start(ctx, "CatalogService.ToggleOffer")
	defer span.End()

	return s.offers.UpdateOffer(ctx, id, func(o *domain.RechargeOffer) error {
		o.Active = !o.Active
		o.UpdatedAt = s.now()
		return nil
	})
}

// DeleteOffer removes an offer. Confirming a recharge of a deleted offer
// fails with not found.
func (s *CatalogService) DeleteOffer(ctx context.Context, id string) error {
	ctx, span := catalogTracer.Start(ctx, "CatalogService.DeleteOffer")
	defer span.End()

	if err := s.offers.DeleteOffer(ctx, id); err != nil {
		return err
	}
	s.logger.Info("offer deleted", zap.String("offer_id", id))
	return nil
}

// ============================================================
// Provinces
// ============================================================

// CreateProvince adds a province. Name and code are unique, ignoring case.
func (s *CatalogService) CreateProvince(ctx context.Context, req *domain.CreateProvinceRequest) (*domain.Province, error) {
	ctx, span := catalogTracer.Start(ctx, "CatalogService.CreateProvince")
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	p := &domain.Province{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(req.Name),
		Code:      strings.ToUpper(strings.TrimSpace(req.Code)),
		Active:    true,
		CreatedAt: s.now(),
	}
	if err := s.provinces.CreateProvince(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("province created", zap.String("province_id", p.ID), zap.String("code", p.Code))
	return p, nil
}

// GetProvince returns one province from the store.
func (s *CatalogService) GetProvince(ctx context.Context, id string) (*domain.Province, error) {
	ctx, span := catalogTracer.Start(ctx, "CatalogService.GetProvince")
	defer span.End()

	return s.provinces.GetProvince(ctx, id)
}

// ListProvinces returns every province ordered by name.
func (s *CatalogService) ListProvinces(ctx context.Context) ([]domain.Province, error) {
	ctx, span := catalogTracer.Start(ctx, "CatalogService.ListProvinces")
	defer span.End()

	return s.provinces.ListProvinces(ctx)
}

// ResolveProvince returns a province through the TTL cache.
func (s *CatalogService) ResolveProvince(ctx context.Context, id string) (*domain.Province, error) {
	ctx, span := catalogTracer.Start(ctx, "CatalogService.ResolveProvince")
	defer span.End()

	p, hit, err := s.cache.GetOrLoad(ctx, id, func(ctx context.Context) (*domain.Province, error) {
		return s.provinces.GetProvince(ctx, id)
	})
	if hit {
		s.metrics.IncrCacheHit(provinceCacheName)
	} else {
		s.metrics.IncrCacheMiss(provinceCacheName)
	}
	span.SetAttributes(attribute.Bool("cache.hit", hit))
	return p, err
}
