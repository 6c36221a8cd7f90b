// Package port defines the interfaces (ports) for storage and other
// external dependencies. Following hexagonal architecture, these ports
// decouple the service layer from the memory, Postgres and Redis adapters.
package port

import (
	"context"

	"github.com/raycargo/backoffice/internal/domain"
)

// LedgerStore persists province ledgers. Every mutation is a single-record
// read-modify-write: writers on the same province serialize, writers on
// different provinces do not block each other.
type LedgerStore interface {
	// GetLedger returns *domain.ErrNotFound when the province has no ledger.
	GetLedger(ctx context.Context, provinceID string) (*domain.ProvinceLedger, error)
	ListLedgers(ctx context.Context) ([]domain.ProvinceLedger, error)

	// EnsureLedger returns the province ledger, creating an empty one if
	// needed. Concurrent calls never create two ledgers for one province.
	EnsureLedger(ctx context.Context, provinceID string) (*domain.ProvinceLedger, error)

	// MutateLedger applies fn to the current ledger and persists the result
	// atomically. With create=false a missing ledger yields *domain.ErrNotFound.
	MutateLedger(ctx context.Context, provinceID string, create bool, fn func(*domain.ProvinceLedger) error) (*domain.ProvinceLedger, error)
}

// SequenceCounter is an atomic increment-and-read counter keyed by name.
// The first call for a key returns 1.
type SequenceCounter interface {
	Next(ctx context.Context, key string) (int64, error)
}

// PackageStore persists packages. CreatePackage returns *domain.ErrConflict
// when the tracking number is taken.
type PackageStore interface {
	CreatePackage(ctx context.Context, p *domain.Package) error
	GetPackage(ctx context.Context, id string) (*domain.Package, error)
	GetPackageByTrackingNumber(ctx context.Context, trackingNumber string) (*domain.Package, error)
	ListPackages(ctx context.Context, filter domain.PackageFilter) ([]domain.Package, error)
	UpdatePackage(ctx context.Context, id string, fn func(*domain.Package) error) (*domain.Package, error)
}

// RemittanceStore persists tracked remittances.
type RemittanceStore interface {
	CreateRemittance(ctx context.Context, r *domain.Remittance) error
	GetRemittance(ctx context.Context, id string) (*domain.Remittance, error)
	GetRemittanceByTrackingNumber(ctx context.Context, trackingNumber string) (*domain.Remittance, error)
	ListRemittances(ctx context.Context, filter domain.RemittanceFilter) ([]domain.Remittance, error)
	UpdateRemittance(ctx context.Context, id string, fn func(*domain.Remittance) error) (*domain.Remittance, error)
}

// SaleStore persists recharge and remittance sales. The Delete methods run
// check against the stored sale and delete it in one atomic step; a non-nil
// error from check aborts the delete and is returned as is.
type SaleStore interface {
	CreateRechargeSale(ctx context.Context, s *domain.RechargeSale) error
	GetRechargeSale(ctx context.Context, id string) (*domain.RechargeSale, error)
	ListRechargeSales(ctx context.Context, filter domain.SaleFilter) ([]domain.RechargeSale, error)
	UpdateRechargeSale(ctx context.Context, id string, fn func(*domain.RechargeSale) error) (*domain.RechargeSale, error)
	DeleteRechargeSale(ctx context.Context, id string, check func(*domain.RechargeSale) error) error

	CreateRemittanceSale(ctx context.Context, s *domain.RemittanceSale) error
	GetRemittanceSale(ctx context.Context, id string) (*domain.RemittanceSale, error)
	ListRemittanceSales(ctx context.Context, filter domain.SaleFilter) ([]domain.RemittanceSale, error)
	UpdateRemittanceSale(ctx context.Context, id string, fn func(*domain.RemittanceSale) error) (*domain.RemittanceSale, error)
	DeleteRemittanceSale(ctx context.Context, id string, check func(*domain.RemittanceSale) error) error
}

// OfferStore persists recharge offers.
type OfferStore interface {
	CreateOffer(ctx context.Context, o *domain.RechargeOffer) error
	GetOffer(ctx context.Context, id string) (*domain.RechargeOffer, error)
	ListOffers(ctx context.Context, activeOnly bool) ([]domain.RechargeOffer, error)
	UpdateOffer(ctx context.Context, id string, fn func(*domain.RechargeOffer) error) (*domain.RechargeOffer, error)
	DeleteOffer(ctx context.Context, id string) error
}

// ProvinceStore persists provinces. Name and code are unique.
type ProvinceStore interface {
	CreateProvince(ctx context.Context, p *domain.Province) error
	GetProvince(ctx context.Context, id string) (*domain.Province, error)
	ListProvinces(ctx context.Context) ([]domain.Province, error)
}

// ClientDirectory resolves clients owned by the client-management system.
type ClientDirectory interface {
	GetClient(ctx context.Context, id string) (*domain.Client, error)
}

// HealthChecker reports whether a backing service is reachable.
type HealthChecker interface {
	Name() string
	Ping(ctx context.Context) error
}

// BreakerReporter exposes a circuit breaker's state ("closed", "half-open",
// "open") for health output.
type BreakerReporter interface {
	Name() string
	State() string
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
