package postgres

import (
	"context"

	"github.com/raycargo/backoffice/internal/domain"
)

func saleFilter(f domain.SaleFilter) *filter {
	w := &filter{}
	w.eq("doc->>'clientId'", f.ClientID)
	w.eq("doc->>'destinationProvince'", f.ProvinceID)
	w.eq("doc->>'status'", string(f.Status))
	return w
}

// CreateRechargeSale implements port.SaleStore.
func (s *Store) CreateRechargeSale(ctx context.Context, sale *domain.RechargeSale) error {
	return insertDoc(ctx, s.db, "recharge_sales", "recharge", sale.ID, sale, sale.Date)
}

// GetRechargeSale implements port.SaleStore.
func (s *Store) GetRechargeSale(ctx context.Context, id string) (*domain.RechargeSale, error) {
	return getDoc[domain.RechargeSale](ctx, s.db, "recharge_sales", "recharge", "id", id)
}

// ListRechargeSales implements port.SaleStore. Newest first.
func (s *Store) ListRechargeSales(ctx context.Context, f domain.SaleFilter) ([]domain.RechargeSale, error) {
	w := saleFilter(f)
	return listDocs[domain.RechargeSale](ctx, s.db, "recharges",
		"SELECT doc FROM recharge_sales"+w.where()+" ORDER BY created_at DESC", w.args...)
}

// UpdateRechargeSale implements port.SaleStore.
func (s *Store) UpdateRechargeSale(ctx context.Context, id string, fn func(*domain.RechargeSale) error) (*domain.RechargeSale, error) {
	return updateDoc(ctx, s.db, "recharge_sales", "recharge", id, s.now(), fn)
}

// DeleteRechargeSale implements port.SaleStore.
func (s *Store) DeleteRechargeSale(ctx context.Context, id string, check func(*domain.RechargeSale) error) error {
	return deleteDocIf(ctx, s.db, "recharge_sales", "recharge", id, check)
}

// CreateRemittanceSale implements port.SaleStore.
func (s *Store) CreateRemittanceSale(ctx context.Context, sale *domain.RemittanceSale) error {
	return insertDoc(ctx, s.db, "remittance_sales", "remittance sale", sale.ID, sale, sale.Date)
}

// GetRemittanceSale implements port.SaleStore.
func (s *Store) GetRemittanceSale(ctx context.Context, id string) (*domain.RemittanceSale, error) {
	return getDoc[domain.RemittanceSale](ctx, s.db, "remittance_sales", "remittance sale", "id", id)
}

// ListRemittanceSales implements port.SaleStore. Newest first.
func (s *Store) ListRemittanceSales(ctx context.Context, f domain.SaleFilter) ([]domain.RemittanceSale, error) {
	w := saleFilter(f)
	return listDocs[domain.RemittanceSale](ctx, s.db, "remittance sales",
		"SELECT doc FROM remittance_sales"+w.where()+" ORDER BY created_at DESC", w.args...)
}

// UpdateRemittanceSale implements port.SaleStore.
func (s *Store) UpdateRemittanceSale(ctx context.Context, id string, fn func(*domain.RemittanceSale) error) (*domain.RemittanceSale, error) {
	return updateDoc(ctx, s.db, "remittance_sales", "remittance sale", id, s.now(), fn)
}

// DeleteRemittanceSale implements port.SaleStore.
func (s *Store) DeleteRemittanceSale(ctx context.Context, id string, check func(*domain.RemittanceSale) error) error {
	return deleteDocIf(ctx, s.db, "remittance_sales", "remittance sale", id, check)
}
