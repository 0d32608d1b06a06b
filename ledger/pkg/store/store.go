// Package store persists the fixed-shape ledger records in PostgreSQL. Every
// engine operation runs against one transaction; row locks taken with
// SELECT ... FOR UPDATE give the exclusive-write discipline the engine
// assumes, and any error rolls the whole operation back.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/norugfun/ledger/ledger/pkg/protocol"
)

// RowLock is the lock a record read takes for the rest of its transaction.
// Mutating operations read the rows they change with LockUpdate and the rows
// whose state merely gates them with LockShare, so a gate and the mutation it
// guards are evaluated under the same lock.
type RowLock int

const (
	LockNone RowLock = iota
	LockShare
	LockUpdate
)

func (l RowLock) clause() string {
	switch l {
	case LockShare:
		return " FOR SHARE"
	case LockUpdate:
		return " FOR UPDATE"
	}
	return ""
}

// DB is the subset of pgx satisfied by both *pgxpool.Pool and pgx.Tx. Store
// methods take it so they compose inside or outside a transaction.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Config struct {
	Logger *slog.Logger
	Pool   *pgxpool.Pool
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Pool == nil {
		return errors.New("postgres pool is required")
	}
	return nil
}

type Store struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func New(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Store{log: cfg.Logger, pool: cfg.Pool}, nil
}

// Pool exposes the underlying connection pool for read-only queries that do
// not need a transaction.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// WithTx runs fn inside a single transaction. Any error aborts and rolls
// back every mutation fn attempted; there is no partial commit. Transient
// serialization and deadlock failures surface as ErrWriteConflict so callers
// know to resubmit.
func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return mapConflict(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return mapConflict(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// mapConflict rewrites host-side serialization and deadlock failures into the
// retryable conflict error; all other errors pass through untouched.
func mapConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return fmt.Errorf("%w: %s", protocol.ErrWriteConflict, pgErr.Code)
		}
	}
	return err
}

// isUniqueViolation reports whether err is a unique-constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
