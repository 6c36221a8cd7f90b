package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/raycargo/backoffice/internal/domain"
)

// CreateOffer implements port.OfferStore.
func (s *Store) CreateOffer(ctx context.Context, o *domain.RechargeOffer) error {
	return insertDoc(ctx, s.db, "recharge_offers", "offer", o.ID, o, o.CreatedAt)
}

// GetOffer implements port.OfferStore.
func (s *Store) GetOffer(ctx context.Context, id string) (*domain.RechargeOffer, error) {
	return getDoc[domain.RechargeOffer](ctx, s.db, "recharge_offers", "offer", "id", id)
}

// ListOffers implements port.OfferStore. Newest first.
func (s *Store) ListOffers(ctx context.Context, activeOnly bool) ([]domain.RechargeOffer, error) {
	q := "SELECT doc FROM recharge_offers"
	if activeOnly {
		q += " WHERE (doc->>'active')::boolean"
	}
	return listDocs[domain.RechargeOffer](ctx, s.db, "offers", q+" ORDER BY created_at DESC")
}

// UpdateOffer implements port.OfferStore.
func (s *Store) UpdateOffer(ctx context.Context, id string, fn func(*domain.RechargeOffer) error) (*domain.RechargeOffer, error) {
	return updateDoc(ctx, s.db, "recharge_offers", "offer", id, s.now(), fn)
}

// DeleteOffer implements port.OfferStore.
func (s *Store) DeleteOffer(ctx context.Context, id string) error {
	return deleteDoc(ctx, s.db, "recharge_offers", "offer", id)
}

// CreateProvince implements port.ProvinceStore. Name and code uniqueness is
// enforced by case-insensitive unique indexes.
func (s *Store) CreateProvince(ctx context.Context, p *domain.Province) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode province: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO provinces (id, name, code, doc, version, created_at, updated_at) VALUES ($1, $2, $3, $4, 1, $5, $5)",
		p.ID, p.Name, p.Code, raw, p.CreatedAt)
	if err != nil {
		return mapError(err, "insert province")
	}
	return nil
}

// GetProvince implements port.ProvinceStore.
func (s *Store) GetProvince(ctx context.Context, id string) (*domain.Province, error) {
	return getDoc[domain.Province](ctx, s.db, "provinces", "province", "id", id)
}

// ListProvinces implements port.ProvinceStore, ordered by name.
func (s *Store) ListProvinces(ctx context.Context) ([]domain.Province, error) {
	return listDocs[domain.Province](ctx, s.db, "provinces", "SELECT doc FROM provinces ORDER BY name")
}

// GetClient implements port.ClientDirectory.
func (s *Store) GetClient(ctx context.Context, id string) (*domain.Client, error) {
	return getDoc[domain.Client](ctx, s.db, "clients", "client", "id", id)
}
