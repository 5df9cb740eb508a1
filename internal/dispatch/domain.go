package dispatch

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/supplyhub/supplyhub/internal/docnum"
)

// Kind names a secondary property document a line item can be routed to.
type Kind string

const (
	// KindCustodian routes to an Inventory Custodian Slip.
	KindCustodian Kind = "CUSTODIAN"
	// KindAcknowledgement routes to a Property Acknowledgement Receipt.
	KindAcknowledgement Kind = "ACKNOWLEDGEMENT"
	// KindRequisition routes to a Requisition and Issue Slip.
	KindRequisition Kind = "REQUISITION"
	// KindInspection routes to an Inspection and Acceptance Report.
	KindInspection Kind = "INSPECTION"
)

// Kinds lists every kind in emission order.
var Kinds = []Kind{KindCustodian, KindAcknowledgement, KindRequisition, KindInspection}

// DocumentType maps the kind onto its identifier sequence space.
func (k Kind) DocumentType() docnum.DocumentType {
	switch k {
	case KindCustodian:
		return docnum.TypeCustodianSlip
	case KindAcknowledgement:
		return docnum.TypeAcknowledgementReceipt
	case KindRequisition:
		return docnum.TypeRequisitionSlip
	case KindInspection:
		return docnum.TypeInspectionReport
	}
	return ""
}

// Flags marks which document kinds a line item must appear on. Any subset
// is valid, including none.
type Flags struct {
	Custodian       bool `json:"custodian"`
	Acknowledgement bool `json:"acknowledgement"`
	Requisition     bool `json:"requisition"`
	Inspection      bool `json:"inspection"`
}

// Has reports whether the flag for the given kind is set.
func (f Flags) Has(k Kind) bool {
	switch k {
	case KindCustodian:
		return f.Custodian
	case KindAcknowledgement:
		return f.Acknowledgement
	case KindRequisition:
		return f.Requisition
	case KindInspection:
		return f.Inspection
	}
	return false
}

// Any reports whether at least one flag is set.
func (f Flags) Any() bool {
	return f.Custodian || f.Acknowledgement || f.Requisition || f.Inspection
}

// CustodianDetail carries ICS-only item fields.
type CustodianDetail struct {
	EstimatedUsefulLife string `json:"estimated_useful_life"`
}

// AcknowledgementDetail carries PAR-only item fields.
type AcknowledgementDetail struct {
	PropertyNumber string `json:"property_number"`
	SerialNumber   string `json:"serial_number"`
}

// RequisitionDetail carries RIS-only item fields.
type RequisitionDetail struct {
	StockAvailable bool   `json:"stock_available"`
	Remarks        string `json:"remarks"`
}

// InspectionDetail carries IAR-only item fields.
type InspectionDetail struct {
	BatchNumber   string    `json:"batch_number"`
	DateInspected time.Time `json:"date_inspected"`
}

// Item is the dispatcher's view of a purchase order line. Kind-specific
// details sit on the item itself as optional sub-records so the association
// is type-checked rather than carried in a side-channel map.
type Item struct {
	StockNumber     string
	Description     string
	Unit            string
	Quantity        int64
	UnitCost        decimal.Decimal
	Flags           Flags
	Custodian       *CustodianDetail
	Acknowledgement *AcknowledgementDetail
	Requisition     *RequisitionDetail
	Inspection      *InspectionDetail
}

// Amount is quantity times unit cost.
func (i Item) Amount() decimal.Decimal {
	return i.UnitCost.Mul(decimal.NewFromInt(i.Quantity))
}

// Signatory is one named role on a printed form.
type Signatory struct {
	Role        string    `json:"role"`
	Name        string    `json:"name"`
	Designation string    `json:"designation"`
	Date        time.Time `json:"date"`
}

// HeaderMeta is the shared descriptive metadata the caller supplies per kind.
type HeaderMeta struct {
	EntityName  string
	FundCluster string
	Signatories []Signatory
}

// ClassifiedItem is a line item projected into one document kind's shape.
// Only the fields relevant to the kind are populated.
type ClassifiedItem struct {
	StockNumber string          `json:"stock_number"`
	Description string          `json:"description"`
	Unit        string          `json:"unit"`
	Quantity    int64           `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	Amount      decimal.Decimal `json:"amount"`

	EstimatedUsefulLife string `json:"estimated_useful_life,omitempty"`

	PropertyNumber string `json:"property_number,omitempty"`
	SerialNumber   string `json:"serial_number,omitempty"`

	StockAvailable bool   `json:"stock_available,omitempty"`
	Remarks        string `json:"remarks,omitempty"`

	BatchNumber   string     `json:"batch_number,omitempty"`
	DateInspected *time.Time `json:"date_inspected,omitempty"`
}

// Header is one emitted classified document. A header of a given kind only
// exists when at least one item carries that kind's flag.
type Header struct {
	Kind         Kind              `json:"kind"`
	Number       docnum.Identifier `json:"number"`
	EntityName   string            `json:"entity_name"`
	FundCluster  string            `json:"fund_cluster"`
	Signatories  []Signatory       `json:"signatories"`
	Items        []ClassifiedItem  `json:"items"`
	Incomplete   bool              `json:"incomplete"`
	MissingRoles []string          `json:"missing_roles,omitempty"`
}

// requiredRoles lists the signatory roles each printed form expects.
var requiredRoles = map[Kind][]string{
	KindCustodian:       {"Received From", "Received By"},
	KindAcknowledgement: {"Issued By", "Received By"},
	KindRequisition:     {"Requested By", "Approved By", "Issued By", "Received By"},
	KindInspection:      {"Inspection Officer", "Property Officer"},
}

// ErrUnknownKind indicates a kind outside the four known forms.
var ErrUnknownKind = errors.New("dispatch: unknown document kind")
