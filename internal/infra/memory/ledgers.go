package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/raycargo/backoffice/internal/domain"
)

func (s *Store) ledgerLock(provinceID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lk, ok := s.ledgerLocks[provinceID]
	if !ok {
		lk = &sync.Mutex{}
		s.ledgerLocks[provinceID] = lk
	}
	return lk
}

// GetLedger implements port.LedgerStore.
func (s *Store) GetLedger(_ context.Context, provinceID string) (*domain.ProvinceLedger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.ledgers[provinceID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "ledger", ID: provinceID}
	}
	return l.Clone(), nil
}

// ListLedgers implements port.LedgerStore.
func (s *Store) ListLedgers(_ context.Context) ([]domain.ProvinceLedger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ProvinceLedger, 0, len(s.ledgers))
	for _, l := range s.ledgers {
		out = append(out, *l.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProvinceID < out[j].ProvinceID })
	return out, nil
}

// EnsureLedger implements port.LedgerStore.
func (s *Store) EnsureLedger(_ context.Context, provinceID string) (*domain.ProvinceLedger, error) {
	lk := s.ledgerLock(provinceID)
	lk.Lock()
	defer lk.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.ledgers[provinceID]
	if !ok {
		l = domain.NewProvinceLedger(uuid.NewString(), provinceID, s.now())
		s.ledgers[provinceID] = l
	}
	return l.Clone(), nil
}

// MutateLedger implements port.LedgerStore.
func (s *Store) MutateLedger(_ context.Context, provinceID string, create bool, fn func(*domain.ProvinceLedger) error) (*domain.ProvinceLedger, error) {
	lk := s.ledgerLock(provinceID)
	lk.Lock()
	defer lk.Unlock()

	s.mu.RLock()
	cur, ok := s.ledgers[provinceID]
	s.mu.RUnlock()

	var next *domain.ProvinceLedger
	switch {
	case ok:
		next = cur.Clone()
	case create:
		next = domain.NewProvinceLedger(uuid.NewString(), provinceID, s.now())
		next.Version = 0
	default:
		return nil, &domain.ErrNotFound{Resource: "ledger", ID: provinceID}
	}

	if err := fn(next); err != nil {
		return nil, err
	}
	next.Balance = domain.Recompute(next.Movements)
	next.Version++
	next.UpdatedAt = s.now()

	s.mu.Lock()
	s.ledgers[provinceID] = next
	s.mu.Unlock()

	return next.Clone(), nil
}
