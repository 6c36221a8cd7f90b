package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/raycargo/backoffice/internal/domain"
)

// ============================================================
// Offers
// ============================================================

// CreateOffer implements port.OfferStore.
func (s *Store) CreateOffer(_ context.Context, o *domain.RechargeOffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.offers[o.ID]; taken {
		return &domain.ErrConflict{Message: fmt.Sprintf("offer %s already exists", o.ID)}
	}
	s.offers[o.ID] = clone(o)
	return nil
}

// GetOffer implements port.OfferStore.
func (s *Store) GetOffer(_ context.Context, id string) (*domain.RechargeOffer, error) {
	return get(s, s.offers, "offer", id)
}

// ListOffers implements port.OfferStore. Newest first.
func (s *Store) ListOffers(_ context.Context, activeOnly bool) ([]domain.RechargeOffer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.RechargeOffer{}
	for _, o := range s.offers {
		if activeOnly && !o.Active {
			continue
		}
		out = append(out, *clone(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// UpdateOffer implements port.OfferStore.
func (s *Store) UpdateOffer(_ context.Context, id string, fn func(*domain.RechargeOffer) error) (*domain.RechargeOffer, error) {
	return update(s, s.offers, "offer", id, fn)
}

// DeleteOffer implements port.OfferStore.
func (s *Store) DeleteOffer(_ context.Context, id string) error {
	return remove(s, s.offers, "offer", id)
}

// ============================================================
// Provinces and clients
// ============================================================

// CreateProvince implements port.ProvinceStore.
func (s *Store) CreateProvince(_ context.Context, p *domain.Province) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.provinces {
		if strings.EqualFold(existing.Name, p.Name) || strings.EqualFold(existing.Code, p.Code) {
			return &domain.ErrConflict{Message: fmt.Sprintf("province %s (%s) already exists", p.Name, p.Code)}
		}
	}
	s.provinces[p.ID] = clone(p)
	return nil
}

// GetProvince implements port.ProvinceStore.
func (s *Store) GetProvince(_ context.Context, id string) (*domain.Province, error) {
	return get(s, s.provinces, "province", id)
}

// ListProvinces implements port.ProvinceStore, ordered by name.
func (s *Store) ListProvinces(_ context.Context) ([]domain.Province, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Province, 0, len(s.provinces))
	for _, p := range s.provinces {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetClient implements port.ClientDirectory.
func (s *Store) GetClient(_ context.Context, id string) (*domain.Client, error) {
	return get(s, s.clients, "client", id)
}

// PutClient registers a client. Clients are owned by another system; this
// is how seed data and tests make them resolvable.
func (s *Store) PutClient(c *domain.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.ID] = clone(c)
}
