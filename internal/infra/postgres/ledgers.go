package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/raycargo/backoffice/internal/domain"
)

const ledgerColumns = "id, province_id, balance, movements, version, created_at, updated_at"

const insertLedgerIfMissing = `
	INSERT INTO province_ledgers (id, province_id, balance, movements, version, created_at, updated_at)
	VALUES ($1, $2, 0, '[]'::jsonb, 1, $3, $3)
	ON CONFLICT (province_id) DO NOTHING`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLedger(row rowScanner) (*domain.ProvinceLedger, error) {
	var (
		l   domain.ProvinceLedger
		raw []byte
	)
	if err := row.Scan(&l.ID, &l.ProvinceID, &l.Balance, &raw, &l.Version, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &l.Movements); err != nil {
		return nil, fmt.Errorf("decode movements: %w", err)
	}
	if l.Movements == nil {
		l.Movements = []domain.Movement{}
	}
	return &l, nil
}

// GetLedger implements port.LedgerStore.
func (s *Store) GetLedger(ctx context.Context, provinceID string) (*domain.ProvinceLedger, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+ledgerColumns+" FROM province_ledgers WHERE province_id = $1", provinceID)
	l, err := scanLedger(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "ledger", ID: provinceID}
	}
	if err != nil {
		return nil, mapError(err, "get ledger")
	}
	return l, nil
}

// ListLedgers implements port.LedgerStore.
func (s *Store) ListLedgers(ctx context.Context) ([]domain.ProvinceLedger, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+ledgerColumns+" FROM province_ledgers ORDER BY province_id")
	if err != nil {
		return nil, mapError(err, "list ledgers")
	}
	defer rows.Close()

	out := []domain.ProvinceLedger{}
	for rows.Next() {
		l, err := scanLedger(rows)
		if err != nil {
			return nil, mapError(err, "scan ledger")
		}
		out = append(out, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "list ledgers")
	}
	return out, nil
}

// EnsureLedger implements port.LedgerStore. The unique province_id key makes
// concurrent calls converge on a single row.
func (s *Store) EnsureLedger(ctx context.Context, provinceID string) (*domain.ProvinceLedger, error) {
	if _, err := s.db.ExecContext(ctx, insertLedgerIfMissing, uuid.NewString(), provinceID, s.now()); err != nil {
		return nil, mapError(err, "create ledger")
	}
	return s.GetLedger(ctx, provinceID)
}

// MutateLedger implements port.LedgerStore. The province row is locked with
// SELECT ... FOR UPDATE and written back with a version compare-and-swap, so
// same-province writers serialize and other provinces are untouched.
func (s *Store) MutateLedger(ctx context.Context, provinceID string, create bool, fn func(*domain.ProvinceLedger) error) (*domain.ProvinceLedger, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, mapError(err, "begin ledger update")
	}
	defer tx.Rollback()

	now := s.now()
	if create {
		if _, err := tx.ExecContext(ctx, insertLedgerIfMissing, uuid.NewString(), provinceID, now); err != nil {
			return nil, mapError(err, "create ledger")
		}
	}

	row := tx.QueryRowContext(ctx, "SELECT "+ledgerColumns+" FROM province_ledgers WHERE province_id = $1 FOR UPDATE", provinceID)
	ledger, err := scanLedger(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "ledger", ID: provinceID}
	}
	if err != nil {
		return nil, mapError(err, "lock ledger")
	}

	version := ledger.Version
	if err := fn(ledger); err != nil {
		return nil, err
	}
	ledger.Balance = domain.Recompute(ledger.Movements)
	ledger.UpdatedAt = now

	raw, err := json.Marshal(ledger.Movements)
	if err != nil {
		return nil, fmt.Errorf("encode movements: %w", err)
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE province_ledgers
		SET balance = $1, movements = $2, version = version + 1, updated_at = $3
		WHERE province_id = $4 AND version = $5`,
		ledger.Balance, raw, now, provinceID, version)
	if err != nil {
		return nil, mapError(err, "update ledger")
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return nil, &domain.ErrConcurrentModification{Resource: "ledger", ID: provinceID}
	}

	if err := tx.Commit(); err != nil {
		return nil, mapError(err, "commit ledger update")
	}
	ledger.Version = version + 1
	return ledger, nil
}
