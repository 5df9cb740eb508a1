package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/supplyhub/supplyhub/internal/dispatch"
	"github.com/supplyhub/supplyhub/internal/docnum"
	"github.com/supplyhub/supplyhub/internal/platform/db"
	"github.com/supplyhub/supplyhub/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetOrder(ctx context.Context, id int64) (PurchaseOrder, error)
	ListOrders(ctx context.Context, limit, offset int, filters ListFilters) ([]OrderListItem, int, error)
	ListClassifiedDocs(ctx context.Context, orderID int64) ([]ClassifiedDocument, error)
}

// TxRepository exposes transactional operations. Embedding the sequence
// port keeps number allocation inside the same transaction as the document
// that carries the number.
type TxRepository interface {
	docnum.TxSequences
	CreateOrder(ctx context.Context, po PurchaseOrder) (int64, error)
	UpdateOrderHeader(ctx context.Context, po PurchaseOrder) error
	SetNumber(ctx context.Context, id int64, number docnum.Identifier) error
	UpdateStatus(ctx context.Context, id int64, status Status) error
	InsertLine(ctx context.Context, line LineItem) (int64, error)
	DeleteLines(ctx context.Context, orderID int64) error
	InsertClassifiedDoc(ctx context.Context, doc ClassifiedDocument) (int64, error)
	UpdateClassifiedDoc(ctx context.Context, doc ClassifiedDocument) error
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ServiceConfig groups defaults applied to emitted documents.
type ServiceConfig struct {
	EntityName string
}

// Service orchestrates the purchase order lifecycle.
type Service struct {
	repo        RepositoryPort
	classifier  *dispatch.Classifier
	audit       AuditPort
	idempotency *shared.IdempotencyStore
	entityName  string
}

// NewService constructs the orders service.
func NewService(repo RepositoryPort, classifier *dispatch.Classifier, audit AuditPort, idem *shared.IdempotencyStore, cfg ServiceConfig) *Service {
	return &Service{repo: repo, classifier: classifier, audit: audit, idempotency: idem, entityName: cfg.EntityName}
}

// LineItemInput describes one requested line.
type LineItemInput struct {
	StockNumber string          `json:"stock_number" validate:"required"`
	Unit        string          `json:"unit" validate:"required"`
	Description string          `json:"description" validate:"required"`
	Quantity    int64           `json:"quantity" validate:"gte=0"`
	UnitCost    decimal.Decimal `json:"unit_cost"`

	Flags           dispatch.Flags                  `json:"flags"`
	Custodian       *dispatch.CustodianDetail       `json:"custodian,omitempty"`
	Acknowledgement *dispatch.AcknowledgementDetail `json:"acknowledgement,omitempty"`
	Requisition     *dispatch.RequisitionDetail     `json:"requisition,omitempty"`
	Inspection      *dispatch.InspectionDetail      `json:"inspection,omitempty"`
}

// CreateOrderInput describes the creation payload.
type CreateOrderInput struct {
	SupplierID      int64           `json:"supplier_id" validate:"required,gt=0"`
	OrderDate       time.Time       `json:"order_date"`
	ProcurementMode string          `json:"procurement_mode" validate:"required"`
	FundCluster     string          `json:"fund_cluster" validate:"required"`
	Requester       Requester       `json:"requester"`
	Items           []LineItemInput `json:"items" validate:"min=1,dive"`
}

func validateOrderInput(input CreateOrderInput) shared.FieldErrors {
	errs := shared.ValidateStruct(input)
	if errs == nil {
		errs = make(shared.FieldErrors)
	}
	if input.Requester.EndUser == "" {
		errs["requester.end_user"] = "required"
	}
	for i, line := range input.Items {
		if line.UnitCost.IsNegative() {
			errs[fmt.Sprintf("items[%d].unit_cost", i)] = "must not be negative"
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func buildLines(orderID int64, inputs []LineItemInput) []LineItem {
	lines := make([]LineItem, 0, len(inputs))
	for _, in := range inputs {
		lines = append(lines, LineItem{
			OrderID:         orderID,
			StockNumber:     in.StockNumber,
			Unit:            in.Unit,
			Description:     in.Description,
			Quantity:        in.Quantity,
			UnitCost:        in.UnitCost,
			Flags:           in.Flags,
			Custodian:       in.Custodian,
			Acknowledgement: in.Acknowledgement,
			Requisition:     in.Requisition,
			Inspection:      in.Inspection,
		})
	}
	return lines
}

// CreateDraft validates and persists a new draft order with its lines.
// Nothing is persisted unless the whole input validates.
func (s *Service) CreateDraft(ctx context.Context, input CreateOrderInput) (PurchaseOrder, error) {
	if errs := validateOrderInput(input); errs != nil {
		return PurchaseOrder{}, errs
	}
	po := PurchaseOrder{
		SupplierID:      input.SupplierID,
		OrderDate:       defaultTime(input.OrderDate),
		ProcurementMode: input.ProcurementMode,
		FundCluster:     input.FundCluster,
		Requester:       input.Requester,
		Status:          StatusDraft,
		Items:           buildLines(0, input.Items),
	}
	po.ComputeGrandTotal()

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		orderID, err := tx.CreateOrder(ctx, po)
		if err != nil {
			return err
		}
		po.ID = orderID
		for i := range po.Items {
			po.Items[i].OrderID = orderID
			lineID, err := tx.InsertLine(ctx, po.Items[i])
			if err != nil {
				return err
			}
			po.Items[i].ID = lineID
		}
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, "PO_CREATE", po.ID, map[string]any{"supplier_id": po.SupplierID, "total": po.GrandTotal.String()})
	return po, nil
}

// UpdateDraft replaces a draft order's header fields and lines.
func (s *Service) UpdateDraft(ctx context.Context, orderID int64, input CreateOrderInput) (PurchaseOrder, error) {
	po, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if po.Status != StatusDraft {
		return PurchaseOrder{}, ErrInvalidState
	}
	if errs := validateOrderInput(input); errs != nil {
		return PurchaseOrder{}, errs
	}
	po.SupplierID = input.SupplierID
	po.OrderDate = defaultTime(input.OrderDate)
	po.ProcurementMode = input.ProcurementMode
	po.FundCluster = input.FundCluster
	po.Requester = input.Requester
	po.Items = buildLines(orderID, input.Items)
	po.ComputeGrandTotal()

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.UpdateOrderHeader(ctx, po); err != nil {
			return err
		}
		if err := tx.DeleteLines(ctx, orderID); err != nil {
			return err
		}
		for i := range po.Items {
			lineID, err := tx.InsertLine(ctx, po.Items[i])
			if err != nil {
				return err
			}
			po.Items[i].ID = lineID
		}
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, "PO_UPDATE", po.ID, map[string]any{"total": po.GrandTotal.String()})
	return po, nil
}

// retryableAllocation reports contention on number allocation: either the
// registry caught a duplicate, or the transaction lost a concurrent counter
// bump and aborted. Both resolve on a fresh attempt.
func retryableAllocation(err error) bool {
	return errors.Is(err, docnum.ErrIdentifierCollision) || errors.Is(err, db.ErrSerialization)
}

// Submit allocates the PO number, dispatches classification and persists
// everything in one transaction. Allocation contention is retried once
// before surfacing.
func (s *Service) Submit(ctx context.Context, orderID int64, meta map[dispatch.Kind]dispatch.HeaderMeta, actorID int64) (PurchaseOrder, []ClassifiedDocument, error) {
	po, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return PurchaseOrder{}, nil, err
	}
	if po.Status != StatusDraft {
		return PurchaseOrder{}, nil, ErrInvalidState
	}

	key := fmt.Sprintf("PO-SUBMIT:%d", orderID)
	inserted := false
	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, key, "orders.submit"); err != nil {
			return PurchaseOrder{}, nil, err
		}
		inserted = true
	}

	var docs []ClassifiedDocument
	attempt := func() error {
		docs = nil
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			number, err := docnum.AllocateTx(ctx, tx, docnum.TypePurchaseOrder, po.Period())
			if err != nil {
				return err
			}
			if err := tx.SetNumber(ctx, orderID, number); err != nil {
				return err
			}
			if err := tx.UpdateStatus(ctx, orderID, StatusSubmitted); err != nil {
				return err
			}
			po.Number = number
			po.Status = StatusSubmitted

			headers, err := s.classifier.Classify(ctx, dispatch.Input{
				Period: po.Period(),
				Items:  dispatchItems(po.Items),
				Meta:   s.fillMeta(meta, po),
			}, func(ctx context.Context, docType docnum.DocumentType, period docnum.Period) (docnum.Identifier, error) {
				return docnum.AllocateTx(ctx, tx, docType, period)
			})
			if err != nil {
				return err
			}
			for _, header := range headers {
				doc := ClassifiedDocument{OrderID: orderID, Header: header}
				docID, err := tx.InsertClassifiedDoc(ctx, doc)
				if err != nil {
					return err
				}
				doc.ID = docID
				docs = append(docs, doc)
			}
			return nil
		})
	}

	err = attempt()
	if retryableAllocation(err) {
		err = attempt()
	}
	if err != nil {
		if inserted {
			_ = s.idempotency.Delete(ctx, key)
		}
		return PurchaseOrder{}, nil, err
	}
	s.recordAuditAs(ctx, actorID, "PO_SUBMIT", orderID, map[string]any{"number": po.Number.String(), "documents": len(docs)})
	return po, docs, nil
}

// AmendInput carries the replacement order content for an amendment.
type AmendInput struct {
	CreateOrderInput
}

// Amend updates an already-submitted order. The PO number is never
// re-allocated; classified documents that already exist keep their
// identifiers even when their item sets change, and only kinds gaining
// their first flagged item are allocated.
func (s *Service) Amend(ctx context.Context, orderID int64, input AmendInput, meta map[dispatch.Kind]dispatch.HeaderMeta, actorID int64) (PurchaseOrder, []ClassifiedDocument, error) {
	po, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return PurchaseOrder{}, nil, err
	}
	if po.Status != StatusSubmitted && po.Status != StatusAmended {
		return PurchaseOrder{}, nil, ErrInvalidState
	}
	if errs := validateOrderInput(input.CreateOrderInput); errs != nil {
		return PurchaseOrder{}, nil, errs
	}

	existingDocs, err := s.repo.ListClassifiedDocs(ctx, orderID)
	if err != nil {
		return PurchaseOrder{}, nil, err
	}
	existing := make(map[dispatch.Kind]docnum.Identifier, len(existingDocs))
	docIDs := make(map[dispatch.Kind]int64, len(existingDocs))
	for _, doc := range existingDocs {
		existing[doc.Header.Kind] = doc.Header.Number
		docIDs[doc.Header.Kind] = doc.ID
	}

	po.SupplierID = input.SupplierID
	po.ProcurementMode = input.ProcurementMode
	po.FundCluster = input.FundCluster
	po.Requester = input.Requester
	po.Items = buildLines(orderID, input.Items)
	po.ComputeGrandTotal()

	var docs []ClassifiedDocument
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.UpdateOrderHeader(ctx, po); err != nil {
			return err
		}
		if err := tx.DeleteLines(ctx, orderID); err != nil {
			return err
		}
		for i := range po.Items {
			lineID, err := tx.InsertLine(ctx, po.Items[i])
			if err != nil {
				return err
			}
			po.Items[i].ID = lineID
		}
		if err := tx.UpdateStatus(ctx, orderID, StatusAmended); err != nil {
			return err
		}
		po.Status = StatusAmended

		headers, err := s.classifier.Classify(ctx, dispatch.Input{
			Period:   po.Period(),
			Items:    dispatchItems(po.Items),
			Meta:     s.fillMeta(meta, po),
			Existing: existing,
		}, func(ctx context.Context, docType docnum.DocumentType, period docnum.Period) (docnum.Identifier, error) {
			return docnum.AllocateTx(ctx, tx, docType, period)
		})
		if err != nil {
			return err
		}
		for _, header := range headers {
			doc := ClassifiedDocument{OrderID: orderID, Header: header}
			if id, ok := docIDs[header.Kind]; ok {
				doc.ID = id
				if err := tx.UpdateClassifiedDoc(ctx, doc); err != nil {
					return err
				}
			} else {
				docID, err := tx.InsertClassifiedDoc(ctx, doc)
				if err != nil {
					return err
				}
				doc.ID = docID
			}
			docs = append(docs, doc)
		}
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, nil, err
	}
	s.recordAuditAs(ctx, actorID, "PO_AMEND", orderID, map[string]any{"number": po.Number.String(), "documents": len(docs)})
	return po, docs, nil
}

// Archive closes out a submitted or amended order.
func (s *Service) Archive(ctx context.Context, orderID int64, actorID int64) error {
	po, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if po.Status != StatusSubmitted && po.Status != StatusAmended {
		return ErrInvalidState
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateStatus(ctx, orderID, StatusArchived)
	})
	if err != nil {
		return err
	}
	s.recordAuditAs(ctx, actorID, "PO_ARCHIVE", orderID, map[string]any{"number": po.Number.String()})
	return nil
}

// Get loads an order with its lines.
func (s *Service) Get(ctx context.Context, orderID int64) (PurchaseOrder, error) {
	return s.repo.GetOrder(ctx, orderID)
}

// Documents lists an order's classified documents.
func (s *Service) Documents(ctx context.Context, orderID int64) ([]ClassifiedDocument, error) {
	return s.repo.ListClassifiedDocs(ctx, orderID)
}

// List pages through orders.
func (s *Service) List(ctx context.Context, limit, offset int, filters ListFilters) ([]OrderListItem, int, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.repo.ListOrders(ctx, limit, offset, filters)
}

// fillMeta defaults entity name and fund cluster from the order so emitted
// headers are always complete on the descriptive side.
func (s *Service) fillMeta(meta map[dispatch.Kind]dispatch.HeaderMeta, po PurchaseOrder) map[dispatch.Kind]dispatch.HeaderMeta {
	out := make(map[dispatch.Kind]dispatch.HeaderMeta, len(dispatch.Kinds))
	for _, kind := range dispatch.Kinds {
		m := meta[kind]
		if m.EntityName == "" {
			m.EntityName = s.entityName
		}
		if m.FundCluster == "" {
			m.FundCluster = po.FundCluster
		}
		out[kind] = m
	}
	return out
}

func dispatchItems(lines []LineItem) []dispatch.Item {
	items := make([]dispatch.Item, 0, len(lines))
	for _, line := range lines {
		items = append(items, dispatch.Item{
			StockNumber:     line.StockNumber,
			Description:     line.Description,
			Unit:            line.Unit,
			Quantity:        line.Quantity,
			UnitCost:        line.UnitCost,
			Flags:           line.Flags,
			Custodian:       line.Custodian,
			Acknowledgement: line.Acknowledgement,
			Requisition:     line.Requisition,
			Inspection:      line.Inspection,
		})
	}
	return items
}

func (s *Service) recordAudit(ctx context.Context, action string, entityID int64, meta map[string]any) {
	s.recordAuditAs(ctx, shared.ActorFromContext(ctx), action, entityID, meta)
}

func (s *Service) recordAuditAs(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: action, Entity: "orders", EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
}

func defaultTime(value time.Time) time.Time {
	if value.IsZero() {
		return time.Now()
	}
	return value
}
