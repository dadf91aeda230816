// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"codeberg.org/collegeblog/backend/internal/database"
	"github.com/vinovest/sqlx"
)

var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a unique constraint would be violated
	ErrConflict = errors.New("record already exists")
	// ErrInvalidReference is returned when a foreign key points nowhere
	ErrInvalidReference = errors.New("referenced record does not exist")
)

// Repository runs hand-written SQL against SQLite or Postgres. Queries are
// written with ? placeholders and rebound for the active driver.
type Repository struct {
	db  *sqlx.DB
	now func() time.Time
}

// New creates a new Repository instance
func New(db *sqlx.DB) *Repository {
	return &Repository{
		db: db,
		now: func() time.Time {
			return time.Now().UTC().Truncate(time.Microsecond)
		},
	}
}

// Ping checks that the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// dbtx is satisfied by both *sqlx.DB and *sqlx.Tx.
type dbtx interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	Rebind(query string) string
}

func get(ctx context.Context, q dbtx, dest any, query string, args ...any) error {
	return wrapError(q.GetContext(ctx, dest, q.Rebind(query), args...))
}

func selectAll(ctx context.Context, q dbtx, dest any, query string, args ...any) error {
	return wrapError(q.SelectContext(ctx, dest, q.Rebind(query), args...))
}

func exec(ctx context.Context, q dbtx, query string, args ...any) (sql.Result, error) {
	res, err := q.ExecContext(ctx, q.Rebind(query), args...)
	return res, wrapError(err)
}

// execAffecting runs a statement that must touch at least one row.
func execAffecting(ctx context.Context, q dbtx, query string, args ...any) error {
	res, err := exec(ctx, q, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// selectIn expands a single IN (?) clause for ids and selects into dest.
func selectIn(ctx context.Context, q dbtx, dest any, query string, ids []int64) error {
	expanded, args, err := sqlx.In(query, ids)
	if err != nil {
		return fmt.Errorf("expanding IN clause: %w", err)
	}
	return selectAll(ctx, q, dest, expanded, args...)
}

func (r *Repository) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// wrapError converts driver errors to repository errors
func wrapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case database.IsUniqueViolation(err):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	case database.IsForeignKeyViolation(err):
		return fmt.Errorf("%w: %w", ErrInvalidReference, err)
	}
	return err
}

// uniqueIDs returns the distinct non-nil ids in order of first appearance.
func uniqueIDs(ids ...*int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id == nil {
			continue
		}
		if _, ok := seen[*id]; ok {
			continue
		}
		seen[*id] = struct{}{}
		out = append(out, *id)
	}
	return out
}
