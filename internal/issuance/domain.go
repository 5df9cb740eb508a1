package issuance

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/supplyhub/supplyhub/internal/shared"
)

// Issuance record statuses. Transitions are deliberately unconstrained;
// a cancelled record can be flipped back to issued by a correcting user.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusIssued    Status = "ISSUED"
	StatusCancelled Status = "CANCELLED"
)

// Valid reports whether the status is one of the known values.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusIssued, StatusCancelled:
		return true
	}
	return false
}

// IssuanceRecord is one item handed out to a recipient. Records created in
// the same batch share the recipient metadata; their statuses move
// independently afterwards.
type IssuanceRecord struct {
	ID                  int64     `json:"id"`
	BatchID             uuid.UUID `json:"batch_id"`
	ItemID              int64     `json:"item_id"`
	Quantity            int64     `json:"quantity"`
	Recipient           string    `json:"recipient"`
	Department          string    `json:"department,omitempty"`
	FundCluster         string    `json:"fund_cluster,omitempty"`
	Designation         string    `json:"designation,omitempty"`
	Purpose             string    `json:"purpose,omitempty"`
	Approver            string    `json:"approver,omitempty"`
	ApproverDesignation string    `json:"approver_designation,omitempty"`
	DateIssued          time.Time `json:"date_issued"`
	IssuedBy            int64     `json:"issued_by"`
	Status              Status    `json:"status"`
	CreatedAt           time.Time `json:"created_at"`
}

// Sentinel errors wrap the shared kinds so HTTP mapping stays uniform.
var (
	// ErrNotFound indicates record missing.
	ErrNotFound = fmt.Errorf("issuance: %w", shared.ErrNotFound)
	// ErrValidation indicates invalid input.
	ErrValidation = fmt.Errorf("issuance: %w", shared.ErrValidation)
)
