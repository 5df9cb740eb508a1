package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/supplyhub/supplyhub/internal/dispatch"
	"github.com/supplyhub/supplyhub/internal/docnum"
	"github.com/supplyhub/supplyhub/internal/platform/db"
	"github.com/supplyhub/supplyhub/internal/shared"
)

type memoryOrdersRepo struct {
	orders   map[int64]PurchaseOrder
	lines    map[int64][]LineItem
	docs     map[int64]ClassifiedDocument
	counters map[string]int
	registry map[string]bool
	nextID   int64

	failRecordIdentifier int
	failSerialization    int
}

func newMemoryOrdersRepo() *memoryOrdersRepo {
	return &memoryOrdersRepo{
		orders:   make(map[int64]PurchaseOrder),
		lines:    make(map[int64][]LineItem),
		docs:     make(map[int64]ClassifiedDocument),
		counters: make(map[string]int),
		registry: make(map[string]bool),
	}
}

func (r *memoryOrdersRepo) snapshot() *memoryOrdersRepo {
	c := newMemoryOrdersRepo()
	c.nextID = r.nextID
	for k, v := range r.orders {
		c.orders[k] = v
	}
	for k, v := range r.lines {
		c.lines[k] = append([]LineItem(nil), v...)
	}
	for k, v := range r.docs {
		c.docs[k] = v
	}
	for k, v := range r.counters {
		c.counters[k] = v
	}
	for k, v := range r.registry {
		c.registry[k] = v
	}
	return c
}

func (r *memoryOrdersRepo) restore(s *memoryOrdersRepo) {
	r.orders, r.lines, r.docs = s.orders, s.lines, s.docs
	r.counters, r.registry, r.nextID = s.counters, s.registry, s.nextID
}

func (r *memoryOrdersRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	before := r.snapshot()
	if err := fn(ctx, &memoryOrdersTx{repo: r}); err != nil {
		r.restore(before)
		return err
	}
	if r.failSerialization > 0 {
		r.failSerialization--
		r.restore(before)
		return fmt.Errorf("%w: commit tx", db.ErrSerialization)
	}
	return nil
}

func (r *memoryOrdersRepo) GetOrder(ctx context.Context, id int64) (PurchaseOrder, error) {
	po, ok := r.orders[id]
	if !ok {
		return PurchaseOrder{}, ErrNotFound
	}
	po.Items = append([]LineItem(nil), r.lines[id]...)
	return po, nil
}

func (r *memoryOrdersRepo) ListOrders(ctx context.Context, limit, offset int, filters ListFilters) ([]OrderListItem, int, error) {
	var items []OrderListItem
	for _, po := range r.orders {
		items = append(items, OrderListItem{ID: po.ID, Number: po.Number, Status: po.Status, GrandTotal: po.GrandTotal})
	}
	return items, len(items), nil
}

func (r *memoryOrdersRepo) ListClassifiedDocs(ctx context.Context, orderID int64) ([]ClassifiedDocument, error) {
	var docs []ClassifiedDocument
	for _, doc := range r.docs {
		if doc.OrderID == orderID {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

type memoryOrdersTx struct {
	repo *memoryOrdersRepo
}

func (t *memoryOrdersTx) NextSequence(ctx context.Context, docType docnum.DocumentType, period docnum.Period) (int, error) {
	key := string(docType) + ":" + period.String()
	t.repo.counters[key]++
	return t.repo.counters[key], nil
}

func (t *memoryOrdersTx) RecordIdentifier(ctx context.Context, docType docnum.DocumentType, id docnum.Identifier) error {
	if t.repo.failRecordIdentifier > 0 {
		t.repo.failRecordIdentifier--
		return fmt.Errorf("%w: %s %s", docnum.ErrIdentifierCollision, docType, id)
	}
	key := string(docType) + ":" + string(id)
	if t.repo.registry[key] {
		return fmt.Errorf("%w: %s %s", docnum.ErrIdentifierCollision, docType, id)
	}
	t.repo.registry[key] = true
	return nil
}

func (t *memoryOrdersTx) CreateOrder(ctx context.Context, po PurchaseOrder) (int64, error) {
	t.repo.nextID++
	po.ID = t.repo.nextID
	po.Items = nil
	t.repo.orders[po.ID] = po
	return po.ID, nil
}

func (t *memoryOrdersTx) UpdateOrderHeader(ctx context.Context, po PurchaseOrder) error {
	stored, ok := t.repo.orders[po.ID]
	if !ok {
		return ErrNotFound
	}
	stored.SupplierID = po.SupplierID
	stored.OrderDate = po.OrderDate
	stored.ProcurementMode = po.ProcurementMode
	stored.FundCluster = po.FundCluster
	stored.Requester = po.Requester
	stored.GrandTotal = po.GrandTotal
	t.repo.orders[po.ID] = stored
	return nil
}

func (t *memoryOrdersTx) SetNumber(ctx context.Context, id int64, number docnum.Identifier) error {
	po, ok := t.repo.orders[id]
	if !ok {
		return ErrNotFound
	}
	po.Number = number
	t.repo.orders[id] = po
	return nil
}

func (t *memoryOrdersTx) UpdateStatus(ctx context.Context, id int64, status Status) error {
	po, ok := t.repo.orders[id]
	if !ok {
		return ErrNotFound
	}
	po.Status = status
	t.repo.orders[id] = po
	return nil
}

func (t *memoryOrdersTx) InsertLine(ctx context.Context, line LineItem) (int64, error) {
	t.repo.nextID++
	line.ID = t.repo.nextID
	t.repo.lines[line.OrderID] = append(t.repo.lines[line.OrderID], line)
	return line.ID, nil
}

func (t *memoryOrdersTx) DeleteLines(ctx context.Context, orderID int64) error {
	delete(t.repo.lines, orderID)
	return nil
}

func (t *memoryOrdersTx) InsertClassifiedDoc(ctx context.Context, doc ClassifiedDocument) (int64, error) {
	t.repo.nextID++
	doc.ID = t.repo.nextID
	t.repo.docs[doc.ID] = doc
	return doc.ID, nil
}

func (t *memoryOrdersTx) UpdateClassifiedDoc(ctx context.Context, doc ClassifiedDocument) error {
	if _, ok := t.repo.docs[doc.ID]; !ok {
		return ErrNotFound
	}
	t.repo.docs[doc.ID] = doc
	return nil
}

func newTestService(repo *memoryOrdersRepo) *Service {
	return NewService(repo, dispatch.NewClassifier(nil), nil, nil, ServiceConfig{EntityName: "Provincial Office"})
}

func draftInput() CreateOrderInput {
	return CreateOrderInput{
		SupplierID:      7,
		OrderDate:       time.Date(2025, time.December, 5, 0, 0, 0, 0, time.UTC),
		ProcurementMode: "Shopping",
		FundCluster:     "01",
		Requester:       Requester{EndUser: "J. Dela Cruz", Department: "Accounting", Designation: "Clerk II"},
		Items: []LineItemInput{
			{StockNumber: "A", Unit: "pc", Description: "Office chair", Quantity: 2, UnitCost: decimal.NewFromInt(1500),
				Flags: dispatch.Flags{Custodian: true}, Custodian: &dispatch.CustodianDetail{EstimatedUsefulLife: "5 years"}},
			{StockNumber: "B", Unit: "ream", Description: "Bond paper", Quantity: 10, UnitCost: decimal.NewFromInt(250),
				Flags:       dispatch.Flags{Requisition: true, Inspection: true},
				Requisition: &dispatch.RequisitionDetail{StockAvailable: true},
				Inspection:  &dispatch.InspectionDetail{BatchNumber: "B-77"}},
			{StockNumber: "C", Unit: "pc", Description: "Stapler", Quantity: 1, UnitCost: decimal.NewFromInt(300)},
		},
	}
}

func TestCreateDraftComputesGrandTotal(t *testing.T) {
	repo := newMemoryOrdersRepo()
	svc := newTestService(repo)

	po, err := svc.CreateDraft(context.Background(), draftInput())
	require.NoError(t, err)
	require.Equal(t, StatusDraft, po.Status)
	require.Empty(t, po.Number)
	require.True(t, po.GrandTotal.Equal(decimal.NewFromInt(2*1500+10*250+300)))
	require.Len(t, repo.lines[po.ID], 3)
}

func TestCreateDraftValidationIsAllOrNothing(t *testing.T) {
	repo := newMemoryOrdersRepo()
	svc := newTestService(repo)

	input := draftInput()
	input.SupplierID = 0
	input.Items[1].UnitCost = decimal.NewFromInt(-5)

	_, err := svc.CreateDraft(context.Background(), input)
	require.Error(t, err)
	require.ErrorIs(t, err, shared.ErrValidation)

	var fields shared.FieldErrors
	require.ErrorAs(t, err, &fields)
	require.Contains(t, fields, "SupplierID")
	require.Contains(t, fields, "items[1].unit_cost")
	require.Empty(t, repo.orders, "nothing may persist when validation fails")
}

func TestSubmitAllocatesNumberAndDispatches(t *testing.T) {
	repo := newMemoryOrdersRepo()
	svc := newTestService(repo)

	po, err := svc.CreateDraft(context.Background(), draftInput())
	require.NoError(t, err)

	submitted, docs, err := svc.Submit(context.Background(), po.ID, nil, 1)
	require.NoError(t, err)
	require.Equal(t, StatusSubmitted, submitted.Status)
	require.Equal(t, docnum.Identifier("2025-12-0001"), submitted.Number)

	require.Len(t, docs, 3)
	kinds := make(map[dispatch.Kind]ClassifiedDocument, len(docs))
	for _, doc := range docs {
		kinds[doc.Header.Kind] = doc
	}
	require.Contains(t, kinds, dispatch.KindCustodian)
	require.Contains(t, kinds, dispatch.KindRequisition)
	require.Contains(t, kinds, dispatch.KindInspection)
	require.NotContains(t, kinds, dispatch.KindAcknowledgement)

	// Each kind draws from its own sequence space.
	require.Equal(t, docnum.Identifier("2025-12-0001"), kinds[dispatch.KindCustodian].Header.Number)
	require.Equal(t, docnum.Identifier("2025-12-0001"), kinds[dispatch.KindRequisition].Header.Number)

	// Entity defaults applied, incomplete flagged for later completion.
	require.Equal(t, "Provincial Office", kinds[dispatch.KindCustodian].Header.EntityName)
	require.Equal(t, "01", kinds[dispatch.KindCustodian].Header.FundCluster)
	require.True(t, kinds[dispatch.KindCustodian].Header.Incomplete)
}

func TestSubmitSecondOrderIncrementsSequence(t *testing.T) {
	repo := newMemoryOrdersRepo()
	svc := newTestService(repo)

	first, err := svc.CreateDraft(context.Background(), draftInput())
	require.NoError(t, err)
	second, err := svc.CreateDraft(context.Background(), draftInput())
	require.NoError(t, err)

	a, _, err := svc.Submit(context.Background(), first.ID, nil, 1)
	require.NoError(t, err)
	b, _, err := svc.Submit(context.Background(), second.ID, nil, 1)
	require.NoError(t, err)

	require.Equal(t, docnum.Identifier("2025-12-0001"), a.Number)
	require.Equal(t, docnum.Identifier("2025-12-0002"), b.Number)
}

func TestSubmitRejectsNonDraft(t *testing.T) {
	repo := newMemoryOrdersRepo()
	svc := newTestService(repo)

	po, err := svc.CreateDraft(context.Background(), draftInput())
	require.NoError(t, err)
	_, _, err = svc.Submit(context.Background(), po.ID, nil, 1)
	require.NoError(t, err)

	_, _, err = svc.Submit(context.Background(), po.ID, nil, 1)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestSubmitRetriesCollisionOnce(t *testing.T) {
	repo := newMemoryOrdersRepo()
	repo.failRecordIdentifier = 1
	svc := newTestService(repo)

	po, err := svc.CreateDraft(context.Background(), draftInput())
	require.NoError(t, err)

	submitted, _, err := svc.Submit(context.Background(), po.ID, nil, 1)
	require.NoError(t, err)
	require.NotEmpty(t, submitted.Number)
}

func TestSubmitGivesUpAfterSecondCollision(t *testing.T) {
	repo := newMemoryOrdersRepo()
	repo.failRecordIdentifier = 2
	svc := newTestService(repo)

	po, err := svc.CreateDraft(context.Background(), draftInput())
	require.NoError(t, err)

	_, _, err = svc.Submit(context.Background(), po.ID, nil, 1)
	require.ErrorIs(t, err, docnum.ErrIdentifierCollision)

	stored, err := svc.Get(context.Background(), po.ID)
	require.NoError(t, err)
	require.Equal(t, StatusDraft, stored.Status)
	require.Empty(t, stored.Number)
}

func TestSubmitRetriesSerializationAbortOnce(t *testing.T) {
	repo := newMemoryOrdersRepo()
	svc := newTestService(repo)

	po, err := svc.CreateDraft(context.Background(), draftInput())
	require.NoError(t, err)
	repo.failSerialization = 1

	submitted, _, err := svc.Submit(context.Background(), po.ID, nil, 1)
	require.NoError(t, err)
	require.Equal(t, docnum.Identifier("2025-12-0001"), submitted.Number)
}

func TestSubmitGivesUpWhenSerializationAbortRepeats(t *testing.T) {
	repo := newMemoryOrdersRepo()
	svc := newTestService(repo)

	po, err := svc.CreateDraft(context.Background(), draftInput())
	require.NoError(t, err)
	repo.failSerialization = 2

	_, _, err = svc.Submit(context.Background(), po.ID, nil, 1)
	require.ErrorIs(t, err, db.ErrSerialization)

	stored, err := svc.Get(context.Background(), po.ID)
	require.NoError(t, err)
	require.Equal(t, StatusDraft, stored.Status)
	require.Empty(t, stored.Number)
}

func TestAmendKeepsIdentifiersAndAllocatesNewKinds(t *testing.T) {
	repo := newMemoryOrdersRepo()
	svc := newTestService(repo)

	po, err := svc.CreateDraft(context.Background(), draftInput())
	require.NoError(t, err)
	submitted, docs, err := svc.Submit(context.Background(), po.ID, nil, 1)
	require.NoError(t, err)

	originalNumbers := make(map[dispatch.Kind]docnum.Identifier)
	for _, doc := range docs {
		originalNumbers[doc.Header.Kind] = doc.Header.Number
	}

	amend := AmendInput{CreateOrderInput: draftInput()}
	// Item C now needs a PAR, and the custodian item set changes.
	amend.Items[2].Flags = dispatch.Flags{Acknowledgement: true}
	amend.Items[2].Acknowledgement = &dispatch.AcknowledgementDetail{SerialNumber: "SN-001"}
	amend.Items = append(amend.Items, LineItemInput{
		StockNumber: "D", Unit: "pc", Description: "Filing cabinet", Quantity: 1,
		UnitCost: decimal.NewFromInt(4000), Flags: dispatch.Flags{Custodian: true},
	})

	amended, newDocs, err := svc.Amend(context.Background(), po.ID, amend, nil, 1)
	require.NoError(t, err)
	require.Equal(t, StatusAmended, amended.Status)
	require.Equal(t, submitted.Number, amended.Number, "amend must not re-allocate the PO number")

	byKind := make(map[dispatch.Kind]ClassifiedDocument)
	for _, doc := range newDocs {
		byKind[doc.Header.Kind] = doc
	}

	// Existing kinds keep their identifiers even though item sets changed.
	require.Equal(t, originalNumbers[dispatch.KindCustodian], byKind[dispatch.KindCustodian].Header.Number)
	require.Equal(t, originalNumbers[dispatch.KindRequisition], byKind[dispatch.KindRequisition].Header.Number)
	require.Equal(t, originalNumbers[dispatch.KindInspection], byKind[dispatch.KindInspection].Header.Number)
	require.Len(t, byKind[dispatch.KindCustodian].Header.Items, 2)

	// The newly flagged kind gets its first identifier.
	require.Contains(t, byKind, dispatch.KindAcknowledgement)
	require.Equal(t, docnum.Identifier("2025-12-0001"), byKind[dispatch.KindAcknowledgement].Header.Number)
}

func TestAmendRejectsDraftAndArchived(t *testing.T) {
	repo := newMemoryOrdersRepo()
	svc := newTestService(repo)

	po, err := svc.CreateDraft(context.Background(), draftInput())
	require.NoError(t, err)

	_, _, err = svc.Amend(context.Background(), po.ID, AmendInput{CreateOrderInput: draftInput()}, nil, 1)
	require.ErrorIs(t, err, ErrInvalidState)

	_, _, err = svc.Submit(context.Background(), po.ID, nil, 1)
	require.NoError(t, err)
	require.NoError(t, svc.Archive(context.Background(), po.ID, 1))

	_, _, err = svc.Amend(context.Background(), po.ID, AmendInput{CreateOrderInput: draftInput()}, nil, 1)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestArchiveRequiresSubmitted(t *testing.T) {
	repo := newMemoryOrdersRepo()
	svc := newTestService(repo)

	po, err := svc.CreateDraft(context.Background(), draftInput())
	require.NoError(t, err)
	require.ErrorIs(t, svc.Archive(context.Background(), po.ID, 1), ErrInvalidState)

	_, _, err = svc.Submit(context.Background(), po.ID, nil, 1)
	require.NoError(t, err)
	require.NoError(t, svc.Archive(context.Background(), po.ID, 1))

	stored, err := svc.Get(context.Background(), po.ID)
	require.NoError(t, err)
	require.Equal(t, StatusArchived, stored.Status)
}
