package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/raycargo/backoffice/internal/domain"
)

func (s *Store) insertTracked(ctx context.Context, table, resource, id, trackingNumber string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", resource, err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO "+table+" (id, tracking_number, doc, version, created_at, updated_at) VALUES ($1, $2, $3, 1, $4, $4)",
		id, trackingNumber, raw, s.now())
	if err != nil {
		return mapError(err, "insert "+resource)
	}
	return nil
}

// ============================================================
// Packages
// ============================================================

// CreatePackage implements port.PackageStore.
func (s *Store) CreatePackage(ctx context.Context, p *domain.Package) error {
	return s.insertTracked(ctx, "packages", "package", p.ID, p.TrackingNumber, p)
}

// GetPackage implements port.PackageStore.
func (s *Store) GetPackage(ctx context.Context, id string) (*domain.Package, error) {
	return getDoc[domain.Package](ctx, s.db, "packages", "package", "id", id)
}

// GetPackageByTrackingNumber implements port.PackageStore.
func (s *Store) GetPackageByTrackingNumber(ctx context.Context, trackingNumber string) (*domain.Package, error) {
	return getDoc[domain.Package](ctx, s.db, "packages", "package", "tracking_number", trackingNumber)
}

// ListPackages implements port.PackageStore. Newest first.
func (s *Store) ListPackages(ctx context.Context, f domain.PackageFilter) ([]domain.Package, error) {
	var w filter
	w.eq("doc->>'currentStatus'", string(f.Status))
	w.eq("doc->>'clientId'", f.ClientID)
	return listDocs[domain.Package](ctx, s.db, "packages",
		"SELECT doc FROM packages"+w.where()+" ORDER BY created_at DESC", w.args...)
}

// UpdatePackage implements port.PackageStore.
func (s *Store) UpdatePackage(ctx context.Context, id string, fn func(*domain.Package) error) (*domain.Package, error) {
	return updateDoc(ctx, s.db, "packages", "package", id, s.now(), fn)
}

// ============================================================
// Remittances
// ============================================================

// CreateRemittance implements port.RemittanceStore.
func (s *Store) CreateRemittance(ctx context.Context, r *domain.Remittance) error {
	return s.insertTracked(ctx, "remittances", "remittance", r.ID, r.TrackingNumber, r)
}

// GetRemittance implements port.RemittanceStore.
func (s *Store) GetRemittance(ctx context.Context, id string) (*domain.Remittance, error) {
	return getDoc[domain.Remittance](ctx, s.db, "remittances", "remittance", "id", id)
}

// GetRemittanceByTrackingNumber implements port.RemittanceStore.
func (s *Store) GetRemittanceByTrackingNumber(ctx context.Context, trackingNumber string) (*domain.Remittance, error) {
	return getDoc[domain.Remittance](ctx, s.db, "remittances", "remittance", "tracking_number", trackingNumber)
}

// ListRemittances implements port.RemittanceStore. Newest first.
func (s *Store) ListRemittances(ctx context.Context, f domain.RemittanceFilter) ([]domain.Remittance, error) {
	var w filter
	w.eq("doc->>'currentStatus'", string(f.Status))
	w.eq("doc->>'clientId'", f.ClientID)
	w.eq("doc->>'currency'", string(f.Currency))
	return listDocs[domain.Remittance](ctx, s.db, "remittances",
		"SELECT doc FROM remittances"+w.where()+" ORDER BY created_at DESC", w.args...)
}

// UpdateRemittance implements port.RemittanceStore.
func (s *Store) UpdateRemittance(ctx context.Context, id string, fn func(*domain.Remittance) error) (*domain.Remittance, error) {
	return updateDoc(ctx, s.db, "remittances", "remittance", id, s.now(), fn)
}
