package dispatch

import (
	"context"
	"log/slog"
	"strings"

	"github.com/supplyhub/supplyhub/internal/docnum"
)

// AllocateFunc hands out the next identifier for a document type. Callers
// running inside a transaction pass a closure over their transactional
// sequence port so header numbers commit atomically with the headers.
type AllocateFunc func(ctx context.Context, docType docnum.DocumentType, period docnum.Period) (docnum.Identifier, error)

// Classifier partitions purchase order lines into classified document
// headers keyed by per-item flags.
type Classifier struct {
	logger *slog.Logger
}

// NewClassifier constructs a Classifier.
func NewClassifier(logger *slog.Logger) *Classifier {
	return &Classifier{logger: logger}
}

// Input bundles everything one classification pass needs.
type Input struct {
	Period docnum.Period
	Items  []Item
	// Meta supplies shared header metadata per kind. Missing or partial
	// metadata never rejects the pass; the header is emitted incomplete.
	Meta map[Kind]HeaderMeta
	// Existing pins identifiers already allocated on a previous pass.
	// Kinds present here are never re-allocated.
	Existing map[Kind]docnum.Identifier
}

// Classify emits one header per kind that has at least one flagged item.
// A single item may appear on several headers, projected differently for
// each. Kinds with no flagged items emit nothing.
func (c *Classifier) Classify(ctx context.Context, input Input, allocate AllocateFunc) ([]Header, error) {
	var headers []Header
	for _, kind := range Kinds {
		var items []ClassifiedItem
		for _, item := range input.Items {
			if !item.Flags.Has(kind) {
				continue
			}
			items = append(items, project(kind, item))
		}
		if len(items) == 0 {
			continue
		}

		meta := input.Meta[kind]
		header := Header{
			Kind:        kind,
			EntityName:  meta.EntityName,
			FundCluster: meta.FundCluster,
			Signatories: normalizeSignatories(kind, meta.Signatories),
			Items:       items,
		}
		header.MissingRoles = missingRoles(kind, header.Signatories)
		header.Incomplete = len(header.MissingRoles) > 0

		if number, ok := input.Existing[kind]; ok {
			header.Number = number
		} else {
			number, err := allocate(ctx, kind.DocumentType(), input.Period)
			if err != nil {
				return nil, err
			}
			header.Number = number
		}

		if header.Incomplete && c.logger != nil {
			c.logger.Warn("classified document missing signatories",
				slog.String("kind", string(kind)),
				slog.String("number", header.Number.String()),
				slog.String("roles", strings.Join(header.MissingRoles, ", ")))
		}
		headers = append(headers, header)
	}
	return headers, nil
}

// project restricts an item to the fields the kind's printed form carries.
func project(kind Kind, item Item) ClassifiedItem {
	out := ClassifiedItem{
		StockNumber: item.StockNumber,
		Description: item.Description,
		Unit:        item.Unit,
		Quantity:    item.Quantity,
		UnitCost:    item.UnitCost,
		Amount:      item.Amount(),
	}
	switch kind {
	case KindCustodian:
		if item.Custodian != nil {
			out.EstimatedUsefulLife = item.Custodian.EstimatedUsefulLife
		}
	case KindAcknowledgement:
		if item.Acknowledgement != nil {
			out.PropertyNumber = item.Acknowledgement.PropertyNumber
			out.SerialNumber = item.Acknowledgement.SerialNumber
		}
	case KindRequisition:
		if item.Requisition != nil {
			out.StockAvailable = item.Requisition.StockAvailable
			out.Remarks = item.Requisition.Remarks
		}
	case KindInspection:
		if item.Inspection != nil {
			out.BatchNumber = item.Inspection.BatchNumber
			if !item.Inspection.DateInspected.IsZero() {
				d := item.Inspection.DateInspected
				out.DateInspected = &d
			}
		}
	}
	return out
}

// normalizeSignatories keeps supplied signatories and fills empty slots for
// required roles not supplied, so the persisted header always carries the
// full role set for its form.
func normalizeSignatories(kind Kind, supplied []Signatory) []Signatory {
	byRole := make(map[string]Signatory, len(supplied))
	for _, s := range supplied {
		byRole[s.Role] = s
	}
	out := make([]Signatory, 0, len(requiredRoles[kind]))
	for _, role := range requiredRoles[kind] {
		if s, ok := byRole[role]; ok {
			out = append(out, s)
			delete(byRole, role)
			continue
		}
		out = append(out, Signatory{Role: role})
	}
	// Preserve extra roles the caller supplied beyond the required set.
	for _, s := range supplied {
		if _, ok := byRole[s.Role]; ok {
			out = append(out, s)
			delete(byRole, s.Role)
		}
	}
	return out
}

func missingRoles(kind Kind, signatories []Signatory) []string {
	named := make(map[string]bool, len(signatories))
	for _, s := range signatories {
		if strings.TrimSpace(s.Name) != "" {
			named[s.Role] = true
		}
	}
	var missing []string
	for _, role := range requiredRoles[kind] {
		if !named[role] {
			missing = append(missing, role)
		}
	}
	return missing
}
