package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/raycargo/backoffice/internal/domain"
)

// Shared helpers for the JSONB document tables (id, doc, version, timestamps).

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getDoc[T any](ctx context.Context, q rowQuerier, table, resource, where string, arg any) (*T, error) {
	var raw []byte
	err := q.QueryRowContext(ctx, "SELECT doc FROM "+table+" WHERE "+where+" = $1", arg).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: resource, ID: fmt.Sprint(arg)}
	}
	if err != nil {
		return nil, mapError(err, "get "+resource)
	}

	out := new(T)
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", resource, err)
	}
	return out, nil
}

func listDocs[T any](ctx context.Context, db *sql.DB, resource, query string, args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "list "+resource)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, mapError(err, "scan "+resource)
		}
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", resource, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "list "+resource)
	}
	return out, nil
}

func insertDoc(ctx context.Context, db *sql.DB, table, resource, id string, doc any, createdAt time.Time) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", resource, err)
	}
	_, err = db.ExecContext(ctx,
		"INSERT INTO "+table+" (id, doc, version, created_at, updated_at) VALUES ($1, $2, 1, $3, $3)",
		id, raw, createdAt)
	if err != nil {
		return mapError(err, "insert "+resource)
	}
	return nil
}

// updateDoc locks the row, applies fn and writes it back guarded by the
// version read under the lock.
func updateDoc[T any](ctx context.Context, db *sql.DB, table, resource, id string, now time.Time, fn func(*T) error) (*T, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, mapError(err, "begin "+resource+" update")
	}
	defer tx.Rollback()

	var (
		raw     []byte
		version int64
	)
	err = tx.QueryRowContext(ctx, "SELECT doc, version FROM "+table+" WHERE id = $1 FOR UPDATE", id).Scan(&raw, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: resource, ID: id}
	}
	if err != nil {
		return nil, mapError(err, "lock "+resource)
	}

	doc := new(T)
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", resource, err)
	}
	if err := fn(doc); err != nil {
		return nil, err
	}

	if raw, err = json.Marshal(doc); err != nil {
		return nil, fmt.Errorf("encode %s: %w", resource, err)
	}
	res, err := tx.ExecContext(ctx,
		"UPDATE "+table+" SET doc = $1, version = version + 1, updated_at = $2 WHERE id = $3 AND version = $4",
		raw, now, id, version)
	if err != nil {
		return nil, mapError(err, "update "+resource)
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return nil, &domain.ErrConcurrentModification{Resource: resource, ID: id}
	}

	if err := tx.Commit(); err != nil {
		return nil, mapError(err, "commit "+resource+" update")
	}
	return doc, nil
}

func deleteDoc(ctx context.Context, db *sql.DB, table, resource, id string) error {
	res, err := db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = $1", id)
	if err != nil {
		return mapError(err, "delete "+resource)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.ErrNotFound{Resource: resource, ID: id}
	}
	return nil
}

// deleteDocIf locks the row, lets check veto the delete and removes it in
// the same transaction, so a concurrent updateDoc cannot slip in between.
func deleteDocIf[T any](ctx context.Context, db *sql.DB, table, resource, id string, check func(*T) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return mapError(err, "begin "+resource+" delete")
	}
	defer tx.Rollback()

	var raw []byte
	err = tx.QueryRowContext(ctx, "SELECT doc FROM "+table+" WHERE id = $1 FOR UPDATE", id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.ErrNotFound{Resource: resource, ID: id}
	}
	if err != nil {
		return mapError(err, "lock "+resource)
	}

	doc := new(T)
	if err := json.Unmarshal(raw, doc); err != nil {
		return fmt.Errorf("decode %s: %w", resource, err)
	}
	if check != nil {
		if err := check(doc); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = $1", id); err != nil {
		return mapError(err, "delete "+resource)
	}
	if err := tx.Commit(); err != nil {
		return mapError(err, "commit "+resource+" delete")
	}
	return nil
}

// filter accumulates AND-ed conditions with positional arguments.
type filter struct {
	clauses []string
	args    []any
}

// eq adds "<expr> = $n" when value is non-empty.
func (f *filter) eq(expr, value string) {
	if value == "" {
		return
	}
	f.args = append(f.args, value)
	f.clauses = append(f.clauses, fmt.Sprintf("%s = $%d", expr, len(f.args)))
}

func (f *filter) where() string {
	if len(f.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.clauses, " AND ")
}
