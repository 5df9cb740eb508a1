package docnum

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed lookups over issued numbers.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// MaxSequence scans the number registry for the lexicographically greatest
// identifier with the period prefix. Fixed width makes lexicographic and
// numeric order coincide.
func (r *Repository) MaxSequence(ctx context.Context, docType DocumentType, period Period) (int, error) {
	const query = `SELECT number FROM document_numbers WHERE doc_type = $1 AND number LIKE $2 ORDER BY number DESC LIMIT 1`
	var number string
	err := r.pool.QueryRow(ctx, query, string(docType), period.String()+"-%").Scan(&number)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("docnum: max sequence: %w", err)
	}
	idx := strings.LastIndex(number, "-")
	if idx < 0 || idx+1 >= len(number) {
		return 0, fmt.Errorf("docnum: malformed registry number %q", number)
	}
	seq, err := strconv.Atoi(number[idx+1:])
	if err != nil {
		return 0, fmt.Errorf("docnum: malformed registry number %q", number)
	}
	return seq, nil
}

// Sequences adapts a pgx transaction to the TxSequences port so document
// repositories can allocate numbers inside their own transactions.
func Sequences(tx pgx.Tx) TxSequences {
	return txSequences{tx: tx}
}

type txSequences struct {
	tx pgx.Tx
}

func (s txSequences) NextSequence(ctx context.Context, docType DocumentType, period Period) (int, error) {
	const query = `INSERT INTO document_counters (doc_type, period, last_seq)
		VALUES ($1, $2, 1)
		ON CONFLICT (doc_type, period)
		DO UPDATE SET last_seq = document_counters.last_seq + 1
		RETURNING last_seq`
	var seq int
	if err := s.tx.QueryRow(ctx, query, string(docType), period.String()).Scan(&seq); err != nil {
		// Under repeatable read a losing concurrent bump of the same
		// counter row aborts with SQLSTATE 40001 rather than a
		// duplicate key. Both mean the same thing here: someone else
		// took the number first.
		if isSerializationFailure(err) {
			return 0, fmt.Errorf("%w: %s %s", ErrIdentifierCollision, docType, period)
		}
		return 0, fmt.Errorf("docnum: next sequence: %w", err)
	}
	return seq, nil
}

func (s txSequences) RecordIdentifier(ctx context.Context, docType DocumentType, id Identifier) error {
	const query = `INSERT INTO document_numbers (doc_type, number) VALUES ($1, $2)`
	if _, err := s.tx.Exec(ctx, query, string(docType), string(id)); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s %s", ErrIdentifierCollision, docType, id)
		}
		return fmt.Errorf("docnum: record identifier: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}
