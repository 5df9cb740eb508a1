package orders

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/supplyhub/supplyhub/internal/dispatch"
	"github.com/supplyhub/supplyhub/internal/docnum"
	"github.com/supplyhub/supplyhub/internal/shared"
)

// Purchase order lifecycle statuses.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusSubmitted Status = "SUBMITTED"
	StatusAmended   Status = "AMENDED"
	StatusArchived  Status = "ARCHIVED"
)

// Requester identifies who the purchase is for.
type Requester struct {
	EndUser     string `json:"end_user"`
	Department  string `json:"department"`
	Designation string `json:"designation"`
}

// LineItem is one ordered article. Lines are owned by their purchase order
// and removed with it. Kind-specific detail sub-records sit on the line so
// classification carries typed data instead of side-channel maps.
type LineItem struct {
	ID          int64           `json:"id"`
	OrderID     int64           `json:"order_id"`
	StockNumber string          `json:"stock_number"`
	Unit        string          `json:"unit"`
	Description string          `json:"description"`
	Quantity    int64           `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`

	Flags           dispatch.Flags                  `json:"flags"`
	Custodian       *dispatch.CustodianDetail       `json:"custodian,omitempty"`
	Acknowledgement *dispatch.AcknowledgementDetail `json:"acknowledgement,omitempty"`
	Requisition     *dispatch.RequisitionDetail     `json:"requisition,omitempty"`
	Inspection      *dispatch.InspectionDetail      `json:"inspection,omitempty"`
}

// Amount is quantity times unit cost.
func (l LineItem) Amount() decimal.Decimal {
	return l.UnitCost.Mul(decimal.NewFromInt(l.Quantity))
}

// PurchaseOrder is the procurement header. Number stays empty until the
// order is submitted.
type PurchaseOrder struct {
	ID              int64             `json:"id"`
	Number          docnum.Identifier `json:"number,omitempty"`
	SupplierID      int64             `json:"supplier_id"`
	OrderDate       time.Time         `json:"order_date"`
	ProcurementMode string            `json:"procurement_mode"`
	FundCluster     string            `json:"fund_cluster"`
	Requester       Requester         `json:"requester"`
	Status          Status            `json:"status"`
	Items           []LineItem        `json:"items"`
	GrandTotal      decimal.Decimal   `json:"grand_total"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// ComputeGrandTotal recomputes the total from the lines.
func (o *PurchaseOrder) ComputeGrandTotal() {
	total := decimal.Zero
	for _, line := range o.Items {
		total = total.Add(line.Amount())
	}
	o.GrandTotal = total
}

// Period returns the identifier period derived from the order date.
func (o PurchaseOrder) Period() docnum.Period {
	return docnum.PeriodOf(o.OrderDate)
}

// ClassifiedDocument is a persisted dispatch header attached to an order.
type ClassifiedDocument struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	Header    dispatch.Header `json:"header"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Sentinel errors wrap the shared kinds so HTTP mapping stays uniform.
var (
	// ErrNotFound indicates record missing.
	ErrNotFound = fmt.Errorf("orders: %w", shared.ErrNotFound)
	// ErrInvalidState occurs when action violates the status workflow.
	ErrInvalidState = fmt.Errorf("orders: %w", shared.ErrInvalidState)
	// ErrValidation indicates invalid input.
	ErrValidation = fmt.Errorf("orders: %w", shared.ErrValidation)
)
