package receiving

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/supplyhub/supplyhub/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const receivingColumns = `id, item_id, supplier_id, quantity, reference, date_received, received_by, status, created_at`

// GetReceiving returns one record.
func (r *Repository) GetReceiving(ctx context.Context, id int64) (ReceivingRecord, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+receivingColumns+` FROM receivings WHERE id = $1`, id)
	rec, err := scanReceiving(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ReceivingRecord{}, ErrNotFound
		}
		return ReceivingRecord{}, fmt.Errorf("receiving: get: %w", err)
	}
	return rec, nil
}

// ListFilters narrows receiving listings.
type ListFilters struct {
	Status     string
	ItemID     int64
	SupplierID int64
	From       time.Time
	To         time.Time
}

// ListReceivings returns records newest first.
func (r *Repository) ListReceivings(ctx context.Context, limit, offset int, filters ListFilters) ([]ReceivingRecord, int, error) {
	countSQL := `SELECT COUNT(*) FROM receivings WHERE 1=1`
	dataSQL := `SELECT ` + receivingColumns + ` FROM receivings WHERE 1=1`

	var clauses string
	args := []any{}
	if filters.Status != "" {
		args = append(args, filters.Status)
		clauses += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filters.ItemID > 0 {
		args = append(args, filters.ItemID)
		clauses += fmt.Sprintf(" AND item_id = $%d", len(args))
	}
	if filters.SupplierID > 0 {
		args = append(args, filters.SupplierID)
		clauses += fmt.Sprintf(" AND supplier_id = $%d", len(args))
	}
	if !filters.From.IsZero() {
		args = append(args, filters.From)
		clauses += fmt.Sprintf(" AND date_received >= $%d", len(args))
	}
	if !filters.To.IsZero() {
		args = append(args, filters.To)
		clauses += fmt.Sprintf(" AND date_received <= $%d", len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, countSQL+clauses, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	dataSQL += clauses + fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []ReceivingRecord
	for rows.Next() {
		rec, err := scanReceiving(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("receiving: scan: %w", err)
		}
		records = append(records, rec)
	}
	return records, total, rows.Err()
}

func (tx *txRepo) InsertReceiving(ctx context.Context, rec ReceivingRecord) (int64, error) {
	const query = `INSERT INTO receivings
		(item_id, supplier_id, quantity, reference, date_received, received_by, status, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	RETURNING id`
	var id int64
	err := tx.tx.QueryRow(ctx, query, rec.ItemID, rec.SupplierID, rec.Quantity, rec.Reference,
		rec.DateReceived, rec.ReceivedBy, string(rec.Status)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("receiving: insert: %w", err)
	}
	return id, nil
}

func (tx *txRepo) UpdateReceivingStatus(ctx context.Context, id int64, status Status) error {
	_, err := tx.tx.Exec(ctx, `UPDATE receivings SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return fmt.Errorf("receiving: update status: %w", err)
	}
	return nil
}

func scanReceiving(row pgx.Row) (ReceivingRecord, error) {
	var rec ReceivingRecord
	err := row.Scan(&rec.ID, &rec.ItemID, &rec.SupplierID, &rec.Quantity, &rec.Reference,
		&rec.DateReceived, &rec.ReceivedBy, &rec.Status, &rec.CreatedAt)
	return rec, err
}
