package items

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	catshared "github.com/supplyhub/supplyhub/internal/catalog/shared"
	"github.com/supplyhub/supplyhub/internal/shared"
)

type Repository interface {
	List(ctx context.Context, filters catshared.ListFilters) ([]Item, int, error)
	Get(ctx context.Context, id int64) (Item, error)
	Create(ctx context.Context, item Item) (Item, error)
	Update(ctx context.Context, id int64, item Item) error
	Delete(ctx context.Context, id int64) error
	AdjustStock(ctx context.Context, id int64, delta int64) (int64, error)
	ListBelowThreshold(ctx context.Context, threshold int64) ([]Item, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const itemColumns = `id, stock_number, name, description, unit, unit_cost::text, stock_level, category_id, created_at, updated_at`

func (r *repository) List(ctx context.Context, filters catshared.ListFilters) ([]Item, int, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		query += ` AND (name ILIKE $` + strconv.Itoa(argCount) + ` OR stock_number ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filters.Search+"%")
	}

	countQuery := `SELECT COUNT(*) FROM items WHERE 1=1`
	countArgs := []any{}
	if filters.Search != "" {
		countArgs = append(countArgs, "%"+filters.Search+"%")
		countQuery += ` AND (name ILIKE $1 OR stock_number ILIKE $1)`
	}

	var total int
	if err := r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += " ORDER BY " + sortOrder(filters.SortBy, filters.SortDir)

	if filters.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.Limit)

		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		args = append(args, filters.Offset())
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	return items, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Item, error) {
	row := r.db.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, shared.ErrNotFound
		}
		return Item{}, err
	}
	return item, nil
}

func (r *repository) Create(ctx context.Context, item Item) (Item, error) {
	query := `INSERT INTO items (stock_number, name, description, unit, unit_cost, stock_level, category_id, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8) RETURNING id`
	now := time.Now()
	err := r.db.QueryRow(ctx, query, item.StockNumber, item.Name, item.Description, item.Unit,
		item.UnitCost.String(), item.StockLevel, item.CategoryID, now).Scan(&item.ID)
	if err != nil {
		return Item{}, err
	}
	item.CreatedAt = now
	item.UpdatedAt = now
	return item, nil
}

func (r *repository) Update(ctx context.Context, id int64, item Item) error {
	query := `UPDATE items SET stock_number = $1, name = $2, description = $3, unit = $4,
		unit_cost = $5, stock_level = $6, category_id = $7, updated_at = $8 WHERE id = $9`
	_, err := r.db.Exec(ctx, query, item.StockNumber, item.Name, item.Description, item.Unit,
		item.UnitCost.String(), item.StockLevel, item.CategoryID, time.Now(), id)
	return err
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	return err
}

// AdjustStock applies a signed delta and returns the new level.
func (r *repository) AdjustStock(ctx context.Context, id int64, delta int64) (int64, error) {
	var level int64
	err := r.db.QueryRow(ctx, `UPDATE items SET stock_level = stock_level + $1, updated_at = NOW() WHERE id = $2 RETURNING stock_level`, delta, id).Scan(&level)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shared.ErrNotFound
		}
		return 0, fmt.Errorf("items: adjust stock: %w", err)
	}
	return level, nil
}

func (r *repository) ListBelowThreshold(ctx context.Context, threshold int64) ([]Item, error) {
	rows, err := r.db.Query(ctx, `SELECT `+itemColumns+` FROM items WHERE stock_level < $1 ORDER BY stock_level`, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanItem(row pgx.Row) (Item, error) {
	var (
		item    Item
		costRaw string
	)
	err := row.Scan(&item.ID, &item.StockNumber, &item.Name, &item.Description, &item.Unit,
		&costRaw, &item.StockLevel, &item.CategoryID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return Item{}, err
	}
	if item.UnitCost, err = decimal.NewFromString(costRaw); err != nil {
		return Item{}, fmt.Errorf("items: parse unit cost: %w", err)
	}
	return item, nil
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == "desc" {
		dir = "DESC"
	}
	switch sortBy {
	case "stock_number":
		return "stock_number " + dir
	case "stock_level":
		return "stock_level " + dir
	case "created_at":
		return "created_at " + dir
	default:
		return "name " + dir
	}
}
