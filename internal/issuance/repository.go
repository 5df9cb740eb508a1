package issuance

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

const issuanceColumns = `id, batch_id, item_id, quantity, recipient, department, fund_cluster, designation,
	purpose, approver, approver_designation, date_issued, issued_by, status, created_at`

// GetIssuance returns one record.
func (r *Repository) GetIssuance(ctx context.Context, id int64) (IssuanceRecord, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+issuanceColumns+` FROM issuances WHERE id = $1`, id)
	rec, err := scanIssuance(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return IssuanceRecord{}, ErrNotFound
		}
		return IssuanceRecord{}, fmt.Errorf("issuance: get: %w", err)
	}
	return rec, nil
}

// ListFilters narrows issuance listings.
type ListFilters struct {
	Status    string
	ItemID    int64
	Recipient string
	From      time.Time
	To        time.Time
}

// ListIssuances returns records newest first.
func (r *Repository) ListIssuances(ctx context.Context, limit, offset int, filters ListFilters) ([]IssuanceRecord, int, error) {
	countSQL := `SELECT COUNT(*) FROM issuances WHERE 1=1`
	dataSQL := `SELECT ` + issuanceColumns + ` FROM issuances WHERE 1=1`

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
	if filters.Recipient != "" {
		args = append(args, "%"+filters.Recipient+"%")
		clauses += fmt.Sprintf(" AND recipient ILIKE $%d", len(args))
	}
	if !filters.From.IsZero() {
		args = append(args, filters.From)
		clauses += fmt.Sprintf(" AND date_issued >= $%d", len(args))
	}
	if !filters.To.IsZero() {
		args = append(args, filters.To)
		clauses += fmt.Sprintf(" AND date_issued <= $%d", len(args))
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

	var records []IssuanceRecord
	for rows.Next() {
		rec, err := scanIssuance(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("issuance: scan: %w", err)
		}
		records = append(records, rec)
	}
	return records, total, rows.Err()
}

func (tx *txRepo) InsertIssuance(ctx context.Context, rec IssuanceRecord) (int64, error) {
	const query = `INSERT INTO issuances
		(batch_id, item_id, quantity, recipient, department, fund_cluster, designation, purpose,
		 approver, approver_designation, date_issued, issued_by, status, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
	RETURNING id`
	var id int64
	err := tx.tx.QueryRow(ctx, query, rec.BatchID, rec.ItemID, rec.Quantity, rec.Recipient, rec.Department,
		rec.FundCluster, rec.Designation, rec.Purpose, rec.Approver, rec.ApproverDesignation,
		rec.DateIssued, rec.IssuedBy, string(rec.Status)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("issuance: insert: %w", err)
	}
	return id, nil
}

func (tx *txRepo) UpdateIssuanceStatus(ctx context.Context, id int64, status Status) error {
	_, err := tx.tx.Exec(ctx, `UPDATE issuances SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return fmt.Errorf("issuance: update status: %w", err)
	}
	return nil
}

func scanIssuance(row pgx.Row) (IssuanceRecord, error) {
	var rec IssuanceRecord
	err := row.Scan(&rec.ID, &rec.BatchID, &rec.ItemID, &rec.Quantity, &rec.Recipient, &rec.Department,
		&rec.FundCluster, &rec.Designation, &rec.Purpose, &rec.Approver, &rec.ApproverDesignation,
		&rec.DateIssued, &rec.IssuedBy, &rec.Status, &rec.CreatedAt)
	return rec, err
}
