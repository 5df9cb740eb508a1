package docnum

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// DocumentType identifies a numbered form. Each type owns its own
// sequence space per period.
type DocumentType string

const (
	// TypePurchaseOrder numbers purchase orders.
	TypePurchaseOrder DocumentType = "PO"
	// TypeCustodianSlip numbers inventory custodian slips.
	TypeCustodianSlip DocumentType = "ICS"
	// TypeAcknowledgementReceipt numbers property acknowledgement receipts.
	TypeAcknowledgementReceipt DocumentType = "PAR"
	// TypeRequisitionSlip numbers requisition and issue slips.
	TypeRequisitionSlip DocumentType = "RIS"
	// TypeInspectionReport numbers inspection and acceptance reports.
	TypeInspectionReport DocumentType = "IAR"
)

// Valid reports whether the document type is one of the known forms.
func (t DocumentType) Valid() bool {
	switch t {
	case TypePurchaseOrder, TypeCustodianSlip, TypeAcknowledgementReceipt, TypeRequisitionSlip, TypeInspectionReport:
		return true
	}
	return false
}

// Period is the calendar year-month an identifier sequence is scoped to.
// Sequences restart at 1 on every new period.
type Period struct {
	Year  int
	Month time.Month
}

// PeriodOf derives the period from a point in time.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// ParsePeriod parses the YYYY-MM form.
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, fmt.Errorf("docnum: parse period %q: %w", s, err)
	}
	return PeriodOf(t), nil
}

// String renders the period as YYYY-MM.
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// IsZero reports an unset period.
func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// Identifier is a human-readable document number: YYYY-MM-NNNN.
type Identifier string

// maxSequence is the largest sequence the fixed 4-digit width can carry.
const maxSequence = 9999

var identifierPattern = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{4})$`)

// FormatIdentifier builds the identifier for a period and sequence.
func FormatIdentifier(p Period, seq int) Identifier {
	return Identifier(fmt.Sprintf("%s-%04d", p, seq))
}

// ParseIdentifier splits an identifier into its period and sequence.
func ParseIdentifier(id Identifier) (Period, int, error) {
	m := identifierPattern.FindStringSubmatch(string(id))
	if m == nil {
		return Period{}, 0, fmt.Errorf("docnum: malformed identifier %q", id)
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	seq, _ := strconv.Atoi(m[3])
	if month < 1 || month > 12 {
		return Period{}, 0, fmt.Errorf("docnum: identifier %q has invalid month", id)
	}
	return Period{Year: year, Month: time.Month(month)}, seq, nil
}

// String returns the raw identifier text.
func (id Identifier) String() string {
	return string(id)
}

var (
	// ErrUnknownType indicates an unsupported document type.
	ErrUnknownType = errors.New("docnum: unknown document type")
	// ErrSequenceExhausted indicates the 4-digit sequence ran out within one period.
	ErrSequenceExhausted = errors.New("docnum: sequence exhausted for period")
	// ErrIdentifierCollision indicates two allocations resolved to the same number.
	ErrIdentifierCollision = errors.New("docnum: identifier collision")
)
