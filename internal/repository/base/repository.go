package base

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/herbalhaven/booking-core/internal/model"
)

// Repository holds the shared pgx pool for the Postgres store adapters.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Pool exposes the underlying connection pool.
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

// QueryRow runs a query expected to return one row. Connectivity failures
// surface from Scan already mapped onto model.ErrStoreUnavailable.
func (r *Repository) QueryRow(ctx context.Context, query string, args ...interface{}) pgx.Row {
	return row{r.pool.QueryRow(ctx, query, args...)}
}

type row struct {
	pgx.Row
}

func (r row) Scan(dest ...interface{}) error {
	return wrapUnavailable(r.Row.Scan(dest...))
}

// Query runs a query returning multiple rows.
func (r *Repository) Query(ctx context.Context, query string, args ...interface{}) (pgx.Rows, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapUnavailable(err)
	}
	return rows, nil
}

// InTx runs fn inside a transaction. The transaction commits only if fn
// returns nil; any error rolls the whole unit of work back.
func (r *Repository) InTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return wrapUnavailable(err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return wrapUnavailable(tx.Commit(ctx))
}

// IsUnavailable reports whether err means the database could not be reached,
// as opposed to a query-level failure.
func IsUnavailable(err error) bool {
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// wrapUnavailable maps connectivity failures onto model.ErrStoreUnavailable.
// Context cancellation and query errors keep their identity.
func wrapUnavailable(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if IsUnavailable(err) {
		return fmt.Errorf("%v: %w", err, model.ErrStoreUnavailable)
	}
	return err
}

// IsNotFound reports whether err is the no-rows result.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsUniqueViolation reports whether err is a Postgres unique constraint
// violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
