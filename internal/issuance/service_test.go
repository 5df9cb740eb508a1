package issuance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/supplyhub/supplyhub/internal/shared"
)

type memoryIssuanceRepo struct {
	records map[int64]IssuanceRecord
	nextID  int64

	failInsertAt int
	inserts      int
}

func newMemoryIssuanceRepo() *memoryIssuanceRepo {
	return &memoryIssuanceRepo{records: map[int64]IssuanceRecord{}, nextID: 1}
}

func (m *memoryIssuanceRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapshot := make(map[int64]IssuanceRecord, len(m.records))
	for id, rec := range m.records {
		snapshot[id] = rec
	}
	snapID := m.nextID
	if err := fn(ctx, (*memoryIssuanceTx)(m)); err != nil {
		m.records = snapshot
		m.nextID = snapID
		return err
	}
	return nil
}

func (m *memoryIssuanceRepo) GetIssuance(_ context.Context, id int64) (IssuanceRecord, error) {
	rec, ok := m.records[id]
	if !ok {
		return IssuanceRecord{}, ErrNotFound
	}
	return rec, nil
}

func (m *memoryIssuanceRepo) ListIssuances(_ context.Context, limit, offset int, _ ListFilters) ([]IssuanceRecord, int, error) {
	var records []IssuanceRecord
	for _, rec := range m.records {
		records = append(records, rec)
	}
	return records, len(records), nil
}

type memoryIssuanceTx memoryIssuanceRepo

func (m *memoryIssuanceTx) InsertIssuance(_ context.Context, rec IssuanceRecord) (int64, error) {
	m.inserts++
	if m.failInsertAt > 0 && m.inserts == m.failInsertAt {
		return 0, errors.New("insert failed")
	}
	rec.ID = m.nextID
	rec.CreatedAt = time.Now()
	m.nextID++
	m.records[rec.ID] = rec
	return rec.ID, nil
}

func (m *memoryIssuanceTx) UpdateIssuanceStatus(_ context.Context, id int64, status Status) error {
	rec, ok := m.records[id]
	if !ok {
		return ErrNotFound
	}
	rec.Status = status
	m.records[id] = rec
	return nil
}

type stubCatalog struct {
	names map[int64]string
}

func (s stubCatalog) GetItemName(_ context.Context, itemID int64) (string, error) {
	name, ok := s.names[itemID]
	if !ok {
		return "", shared.ErrNotFound
	}
	return name, nil
}

func newTestIssuanceService() (*Service, *memoryIssuanceRepo) {
	repo := newMemoryIssuanceRepo()
	catalog := stubCatalog{names: map[int64]string{
		101: "Bond Paper A4",
		102: "Stapler Heavy Duty",
	}}
	return NewService(repo, catalog, nil), repo
}

func batchInput() BatchInput {
	return BatchInput{
		Recipient:   "J. Dela Cruz",
		Department:  "Accounting",
		FundCluster: "01",
		Purpose:     "Office use",
		IssuedBy:    7,
		Items: []BatchItem{
			{ItemID: 101, Quantity: 5},
			{ItemID: 102, Quantity: 2},
		},
	}
}

func TestIssueBatchCreatesOneRecordPerItem(t *testing.T) {
	svc, repo := newTestIssuanceService()

	records, err := svc.IssueBatch(context.Background(), batchInput())
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.Equal(t, int64(101), records[0].ItemID)
	require.Equal(t, int64(5), records[0].Quantity)
	require.Equal(t, int64(102), records[1].ItemID)
	require.Equal(t, int64(2), records[1].Quantity)

	require.NotEqual(t, uuid.Nil, records[0].BatchID)
	require.Equal(t, records[0].BatchID, records[1].BatchID)

	for _, rec := range records {
		require.Equal(t, "J. Dela Cruz", rec.Recipient)
		require.Equal(t, "Accounting", rec.Department)
		require.Equal(t, StatusIssued, rec.Status)
		require.Equal(t, int64(7), rec.IssuedBy)
		require.False(t, rec.DateIssued.IsZero())
	}
	require.Len(t, repo.records, 2)
}

func TestIssueBatchZeroQuantityRejectsWholeBatch(t *testing.T) {
	svc, repo := newTestIssuanceService()

	input := batchInput()
	input.Items = []BatchItem{
		{ItemID: 101, Quantity: 5},
		{ItemID: 102, Quantity: 0},
	}

	_, err := svc.IssueBatch(context.Background(), input)
	require.Error(t, err)

	var fields shared.FieldErrors
	require.ErrorAs(t, err, &fields)
	require.Contains(t, fields, "items[1].quantity")
	require.NotContains(t, fields, "items[0].quantity")
	require.Empty(t, repo.records)
}

func TestIssueBatchRequiresRecipient(t *testing.T) {
	svc, repo := newTestIssuanceService()

	input := batchInput()
	input.Recipient = ""

	_, err := svc.IssueBatch(context.Background(), input)
	var fields shared.FieldErrors
	require.ErrorAs(t, err, &fields)
	require.Contains(t, fields, "Recipient")
	require.Empty(t, repo.records)
}

func TestIssueBatchUnknownItemRejected(t *testing.T) {
	svc, repo := newTestIssuanceService()

	input := batchInput()
	input.Items = append(input.Items, BatchItem{ItemID: 999, Quantity: 1})

	_, err := svc.IssueBatch(context.Background(), input)
	var fields shared.FieldErrors
	require.ErrorAs(t, err, &fields)
	require.Contains(t, fields, "items[2].item_id")
	require.Empty(t, repo.records)
}

func TestIssueBatchInsertFailureRetainsNothing(t *testing.T) {
	svc, repo := newTestIssuanceService()
	repo.failInsertAt = 2

	_, err := svc.IssueBatch(context.Background(), batchInput())
	require.Error(t, err)
	require.Empty(t, repo.records)
}

func TestSetStatusMovesFreelyBetweenKnownStatuses(t *testing.T) {
	svc, _ := newTestIssuanceService()

	records, err := svc.IssueBatch(context.Background(), batchInput())
	require.NoError(t, err)
	id := records[0].ID

	require.NoError(t, svc.SetStatus(context.Background(), id, StatusCancelled))
	rec, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, rec.Status)

	// Cancelled back to issued is allowed; no transition is forbidden.
	require.NoError(t, svc.SetStatus(context.Background(), id, StatusIssued))
	rec, err = svc.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, StatusIssued, rec.Status)

	require.NoError(t, svc.SetStatus(context.Background(), id, StatusPending))
}

func TestSetStatusRejectsUnknownStatus(t *testing.T) {
	svc, _ := newTestIssuanceService()

	records, err := svc.IssueBatch(context.Background(), batchInput())
	require.NoError(t, err)

	err = svc.SetStatus(context.Background(), records[0].ID, Status("SHIPPED"))
	var fields shared.FieldErrors
	require.ErrorAs(t, err, &fields)
	require.Contains(t, fields, "status")
}

func TestSetStatusUnknownRecord(t *testing.T) {
	svc, _ := newTestIssuanceService()

	err := svc.SetStatus(context.Background(), 404, StatusCancelled)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
