package receiving

import (
	"fmt"
	"time"

	"github.com/supplyhub/supplyhub/internal/shared"
)

// Receiving record statuses. Like issuance, transitions are unconstrained;
// a pending delivery can be received or cancelled and corrected either way.
type Status string

const (
	StatusReceived  Status = "RECEIVED"
	StatusPending   Status = "PENDING"
	StatusCancelled Status = "CANCELLED"
)

// Valid reports whether the status is one of the known values.
func (s Status) Valid() bool {
	switch s {
	case StatusReceived, StatusPending, StatusCancelled:
		return true
	}
	return false
}

// ReceivingRecord is one inbound stock movement from a supplier. Its
// lifecycle is independent from issuance.
type ReceivingRecord struct {
	ID           int64     `json:"id"`
	ItemID       int64     `json:"item_id"`
	SupplierID   int64     `json:"supplier_id"`
	Quantity     int64     `json:"quantity"`
	Reference    string    `json:"reference,omitempty"`
	DateReceived time.Time `json:"date_received"`
	ReceivedBy   int64     `json:"received_by"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// Sentinel errors wrap the shared kinds so HTTP mapping stays uniform.
var (
	// ErrNotFound indicates record missing.
	ErrNotFound = fmt.Errorf("receiving: %w", shared.ErrNotFound)
	// ErrValidation indicates invalid input.
	ErrValidation = fmt.Errorf("receiving: %w", shared.ErrValidation)
)
