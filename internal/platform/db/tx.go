package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrSerialization marks a transaction aborted by a concurrent update
// (SQLSTATE 40001). The transaction has already rolled back; callers that
// still want the write must re-run WithTx.
var ErrSerialization = errors.New("db: serialization failure")

// WithTx executes fn inside a repeatable-read transaction and rolls back on
// error. Aborts caused by concurrent updates are tagged with
// ErrSerialization so callers can retry with a fresh transaction.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return markSerialization(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return markSerialization(fmt.Errorf("db: commit tx: %w", err))
	}

	return nil
}

// markSerialization tags SQLSTATE 40001 with ErrSerialization, keeping the
// original chain intact for logging.
func markSerialization(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "40001" {
		return fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	return err
}
