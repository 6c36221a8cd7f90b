package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/raycargo/backoffice/internal/domain"
)

// ============================================================
// Packages
// ============================================================

// CreatePackage implements port.PackageStore.
func (s *Store) CreatePackage(_ context.Context, p *domain.Package) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.packagesByTN[p.TrackingNumber]; taken {
		return &domain.ErrConflict{Message: fmt.Sprintf("tracking number %s already exists", p.TrackingNumber)}
	}
	if _, taken := s.packages[p.ID]; taken {
		return &domain.ErrConflict{Message: fmt.Sprintf("package %s already exists", p.ID)}
	}
	s.packages[p.ID] = clone(p)
	s.packagesByTN[p.TrackingNumber] = p.ID
	return nil
}

// GetPackage implements port.PackageStore.
func (s *Store) GetPackage(_ context.Context, id string) (*domain.Package, error) {
	return get(s, s.packages, "package", id)
}

// GetPackageByTrackingNumber implements port.PackageStore.
func (s *Store) GetPackageByTrackingNumber(_ context.Context, trackingNumber string) (*domain.Package, error) {
	s.mu.RLock()
	id, ok := s.packagesByTN[trackingNumber]
	s.mu.RUnlock()
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "package", ID: trackingNumber}
	}
	return get(s, s.packages, "package", id)
}

// ListPackages implements port.PackageStore. Newest first.
func (s *Store) ListPackages(_ context.Context, f domain.PackageFilter) ([]domain.Package, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Package{}
	for _, p := range s.packages {
		if f.Status != "" && p.CurrentStatus != f.Status {
			continue
		}
		if f.ClientID != "" && p.ClientID != f.ClientID {
			continue
		}
		out = append(out, *clone(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// UpdatePackage implements port.PackageStore.
func (s *Store) UpdatePackage(_ context.Context, id string, fn func(*domain.Package) error) (*domain.Package, error) {
	return update(s, s.packages, "package", id, fn)
}

// ============================================================
// Remittances
// ============================================================

// CreateRemittance implements port.RemittanceStore.
func (s *Store) CreateRemittance(_ context.Context, r *domain.Remittance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.remittancesByTN[r.TrackingNumber]; taken {
		return &domain.ErrConflict{Message: fmt.Sprintf("tracking number %s already exists", r.TrackingNumber)}
	}
	if _, taken := s.remittances[r.ID]; taken {
		return &domain.ErrConflict{Message: fmt.Sprintf("remittance %s already exists", r.ID)}
	}
	s.remittances[r.ID] = clone(r)
	s.remittancesByTN[r.TrackingNumber] = r.ID
	return nil
}

// GetRemittance implements port.RemittanceStore.
func (s *Store) GetRemittance(_ context.Context, id string) (*domain.Remittance, error) {
	return get(s, s.remittances, "remittance", id)
}

// GetRemittanceByTrackingNumber implements port.RemittanceStore.
func (s *Store) GetRemittanceByTrackingNumber(_ context.Context, trackingNumber string) (*domain.Remittance, error) {
	s.mu.RLock()
	id, ok := s.remittancesByTN[trackingNumber]
	s.mu.RUnlock()
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "remittance", ID: trackingNumber}
	}
	return get(s, s.remittances, "remittance", id)
}

// ListRemittances implements port.RemittanceStore. Newest first.
func (s *Store) ListRemittances(_ context.Context, f domain.RemittanceFilter) ([]domain.Remittance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Remittance{}
	for _, r := range s.remittances {
		if f.Status != "" && r.CurrentStatus != f.Status {
			continue
		}
		if f.ClientID != "" && r.ClientID != f.ClientID {
			continue
		}
		if f.Currency != "" && r.Currency != f.Currency {
			continue
		}
		out = append(out, *clone(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// UpdateRemittance implements port.RemittanceStore.
func (s *Store) UpdateRemittance(_ context.Context, id string, fn func(*domain.Remittance) error) (*domain.Remittance, error) {
	return update(s, s.remittances, "remittance", id, fn)
}
