// Package memory is an in-process implementation of every storage port.
// It backs local development and the service and handler tests.
package memory

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/raycargo/backoffice/internal/domain"
)

// Store keeps all records in maps guarded by a RWMutex. Ledger writes take
// an extra per-province lock so different provinces never wait on each other.
type Store struct {
	mu sync.RWMutex

	ledgers     map[string]*domain.ProvinceLedger // by province id
	ledgerLocks map[string]*sync.Mutex

	packages        map[string]*domain.Package
	packagesByTN    map[string]string
	remittances     map[string]*domain.Remittance
	remittancesByTN map[string]string

	recharges       map[string]*domain.RechargeSale
	remittanceSales map[string]*domain.RemittanceSale
	offers          map[string]*domain.RechargeOffer
	provinces       map[string]*domain.Province
	clients         map[string]*domain.Client

	now func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		ledgers:         make(map[string]*domain.ProvinceLedger),
		ledgerLocks:     make(map[string]*sync.Mutex),
		packages:        make(map[string]*domain.Package),
		packagesByTN:    make(map[string]string),
		remittances:     make(map[string]*domain.Remittance),
		remittancesByTN: make(map[string]string),
		recharges:       make(map[string]*domain.RechargeSale),
		remittanceSales: make(map[string]*domain.RemittanceSale),
		offers:          make(map[string]*domain.RechargeOffer),
		provinces:       make(map[string]*domain.Province),
		clients:         make(map[string]*domain.Client),
		now:             time.Now,
	}
}

// Name implements port.HealthChecker.
func (s *Store) Name() string { return "memory" }

// Ping implements port.HealthChecker.
func (s *Store) Ping(_ context.Context) error { return nil }

// clone deep-copies a record through its JSON form so callers never share
// slices or pointers with the stored value.
func clone[T any](v *T) *T {
	b, err := json.Marshal(v)
	if err != nil {
		panic("memory: clone: " + err.Error())
	}
	out := new(T)
	if err := json.Unmarshal(b, out); err != nil {
		panic("memory: clone: " + err.Error())
	}
	return out
}

// update runs the shared read-modify-write for map-backed records.
func update[T any](s *Store, m map[string]*T, resource, id string, fn func(*T) error) (*T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := m[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: resource, ID: id}
	}
	next := clone(cur)
	if err := fn(next); err != nil {
		return nil, err
	}
	m[id] = next
	return clone(next), nil
}

func get[T any](s *Store, m map[string]*T, resource, id string) (*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := m[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: resource, ID: id}
	}
	return clone(v), nil
}

func remove[T any](s *Store, m map[string]*T, resource, id string) error {
	return removeIf[T](s, m, resource, id, nil)
}

// removeIf deletes the record unless check rejects it. Both run under the
// write lock.
func removeIf[T any](s *Store, m map[string]*T, resource, id string, check func(*T) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := m[id]
	if !ok {
		return &domain.ErrNotFound{Resource: resource, ID: id}
	}
	if check != nil {
		if err := check(clone(cur)); err != nil {
			return err
		}
	}
	delete(m, id)
	return nil
}
