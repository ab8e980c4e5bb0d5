package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"coconut-erp/internal/core"
)

// querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the PostgreSQL implementation of core.Store.
type Store struct {
	*repo
	pool *pgxpool.Pool
}

var _ core.Store = (*Store)(nil)

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{repo: &repo{q: pool}, pool: pool}
}

// WithinTx runs fn inside a single database transaction. Getters called through the
// repo passed to fn take row locks (SELECT ... FOR UPDATE).
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repo core.Repository) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &repo{q: tx, forUpdate: " FOR UPDATE"}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type repo struct {
	q         querier
	forUpdate string
}

// mapErr translates driver errors into the core sentinels.
func mapErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return core.ErrRecordNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", core.ErrDuplicateRecord, pgErr.ConstraintName)
		case "23503":
			return fmt.Errorf("%w: %s", core.ErrRecordNotFound, pgErr.ConstraintName)
		}
	}
	return err
}

// where accumulates AND-ed conditions with positional arguments.
// Each cond carries a single %d verb for its placeholder number.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(cond, len(w.args)))
}

func (w *where) raw(cond string) {
	w.conds = append(w.conds, cond)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func collect[T any](rows pgx.Rows, scan func(pgx.Row) (T, error)) ([]T, error) {
	defer rows.Close()
	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
