package items

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item represents a catalog item with its running stock level.
type Item struct {
	ID          int64           `json:"id"`
	StockNumber string          `json:"stock_number"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Unit        string          `json:"unit"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	StockLevel  int64           `json:"stock_level"`
	CategoryID  int64           `json:"category_id"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
