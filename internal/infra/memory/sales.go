package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/raycargo/backoffice/internal/domain"
)

// CreateRechargeSale implements port.SaleStore.
func (s *Store) CreateRechargeSale(_ context.Context, sale *domain.RechargeSale) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.recharges[sale.ID]; taken {
		return &domain.ErrConflict{Message: fmt.Sprintf("recharge %s already exists", sale.ID)}
	}
	s.recharges[sale.ID] = clone(sale)
	return nil
}

// GetRechargeSale implements port.SaleStore.
func (s *Store) GetRechargeSale(_ context.Context, id string) (*domain.RechargeSale, error) {
	return get(s, s.recharges, "recharge", id)
}

// ListRechargeSales implements port.SaleStore. Newest first.
func (s *Store) ListRechargeSales(_ context.Context, f domain.SaleFilter) ([]domain.RechargeSale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.RechargeSale{}
	for _, r := range s.recharges {
		if !matchSale(f, r.ClientID, r.DestinationProvince, r.Status) {
			continue
		}
		out = append(out, *clone(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

// UpdateRechargeSale implements port.SaleStore.
func (s *Store) UpdateRechargeSale(_ context.Context, id string, fn func(*domain.RechargeSale) error) (*domain.RechargeSale, error) {
	return update(s, s.recharges, "recharge", id, fn)
}

// DeleteRechargeSale implements port.SaleStore.
func (s *Store) DeleteRechargeSale(_ context.Context, id string, check func(*domain.RechargeSale) error) error {
	return removeIf(s, s.recharges, "recharge", id, check)
}

// CreateRemittanceSale implements port.SaleStore.
func (s *Store) CreateRemittanceSale(_ context.Context, sale *domain.RemittanceSale) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.remittanceSales[sale.ID]; taken {
		return &domain.ErrConflict{Message: fmt.Sprintf("remittance sale %s already exists", sale.ID)}
	}
	s.remittanceSales[sale.ID] = clone(sale)
	return nil
}

// GetRemittanceSale implements port.SaleStore.
func (s *Store) GetRemittanceSale(_ context.Context, id string) (*domain.RemittanceSale, error) {
	return get(s, s.remittanceSales, "remittance sale", id)
}

// ListRemittanceSales implements port.SaleStore. Newest first.
func (s *Store) ListRemittanceSales(_ context.Context, f domain.SaleFilter) ([]domain.RemittanceSale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.RemittanceSale{}
	for _, r := range s.remittanceSales {
		if !matchSale(f, r.ClientID, r.DestinationProvince, r.Status) {
			continue
		}
		out = append(out, *clone(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

// UpdateRemittanceSale implements port.SaleStore.
func (s *Store) UpdateRemittanceSale(_ context.Context, id string, fn func(*domain.RemittanceSale) error) (*domain.RemittanceSale, error) {
	return update(s, s.remittanceSales, "remittance sale", id, fn)
}

// DeleteRemittanceSale implements port.SaleStore.
func (s *Store) DeleteRemittanceSale(_ context.Context, id string, check func(*domain.RemittanceSale) error) error {
	return removeIf(s, s.remittanceSales, "remittance sale", id, check)
}

func matchSale(f domain.SaleFilter, clientID, provinceID string, status domain.SaleStatus) bool {
	if f.ClientID != "" && clientID != f.ClientID {
		return false
	}
	if f.ProvinceID != "" && provinceID != f.ProvinceID {
		return false
	}
	if f.Status != "" && status != f.Status {
		return false
	}
	return true
}
