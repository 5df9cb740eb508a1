package receiving

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/supplyhub/supplyhub/internal/shared"
)

type memoryReceivingRepo struct {
	records map[int64]ReceivingRecord
	nextID  int64
}

func newMemoryReceivingRepo() *memoryReceivingRepo {
	return &memoryReceivingRepo{records: map[int64]ReceivingRecord{}, nextID: 1}
}

func (m *memoryReceivingRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapshot := make(map[int64]ReceivingRecord, len(m.records))
	for id, rec := range m.records {
		snapshot[id] = rec
	}
	snapID := m.nextID
	if err := fn(ctx, (*memoryReceivingTx)(m)); err != nil {
		m.records = snapshot
		m.nextID = snapID
		return err
	}
	return nil
}

func (m *memoryReceivingRepo) GetReceiving(_ context.Context, id int64) (ReceivingRecord, error) {
	rec, ok := m.records[id]
	if !ok {
		return ReceivingRecord{}, ErrNotFound
	}
	return rec, nil
}

func (m *memoryReceivingRepo) ListReceivings(_ context.Context, limit, offset int, _ ListFilters) ([]ReceivingRecord, int, error) {
	var records []ReceivingRecord
	for _, rec := range m.records {
		records = append(records, rec)
	}
	return records, len(records), nil
}

type memoryReceivingTx memoryReceivingRepo

func (m *memoryReceivingTx) InsertReceiving(_ context.Context, rec ReceivingRecord) (int64, error) {
	rec.ID = m.nextID
	rec.CreatedAt = time.Now()
	m.nextID++
	m.records[rec.ID] = rec
	return rec.ID, nil
}

func (m *memoryReceivingTx) UpdateReceivingStatus(_ context.Context, id int64, status Status) error {
	rec, ok := m.records[id]
	if !ok {
		return ErrNotFound
	}
	rec.Status = status
	m.records[id] = rec
	return nil
}

type stubCatalog struct {
	items     map[int64]string
	suppliers map[int64]string
}

func (s stubCatalog) GetItemName(_ context.Context, itemID int64) (string, error) {
	name, ok := s.items[itemID]
	if !ok {
		return "", shared.ErrNotFound
	}
	return name, nil
}

func (s stubCatalog) GetSupplierName(_ context.Context, supplierID int64) (string, error) {
	name, ok := s.suppliers[supplierID]
	if !ok {
		return "", shared.ErrNotFound
	}
	return name, nil
}

func newTestReceivingService() (*Service, *memoryReceivingRepo) {
	repo := newMemoryReceivingRepo()
	catalog := stubCatalog{
		items:     map[int64]string{101: "Bond Paper A4"},
		suppliers: map[int64]string{11: "ABC Trading"},
	}
	return NewService(repo, catalog, nil), repo
}

func TestReceiveCreatesRecord(t *testing.T) {
	svc, repo := newTestReceivingService()

	rec, err := svc.Receive(context.Background(), ReceiveInput{
		ItemID:     101,
		SupplierID: 11,
		Quantity:   50,
		Reference:  "DR-2025-118",
		ReceivedBy: 3,
	})
	require.NoError(t, err)
	require.Equal(t, StatusReceived, rec.Status)
	require.Equal(t, int64(50), rec.Quantity)
	require.False(t, rec.DateReceived.IsZero())
	require.Len(t, repo.records, 1)
}

func TestReceiveRejectsNonPositiveQuantity(t *testing.T) {
	svc, repo := newTestReceivingService()

	_, err := svc.Receive(context.Background(), ReceiveInput{
		ItemID:     101,
		SupplierID: 11,
		Quantity:   0,
	})
	var fields shared.FieldErrors
	require.ErrorAs(t, err, &fields)
	require.Contains(t, fields, "Quantity")
	require.Empty(t, repo.records)
}

func TestReceiveRejectsUnknownReferences(t *testing.T) {
	svc, repo := newTestReceivingService()

	_, err := svc.Receive(context.Background(), ReceiveInput{
		ItemID:     999,
		SupplierID: 12,
		Quantity:   5,
	})
	var fields shared.FieldErrors
	require.ErrorAs(t, err, &fields)
	require.Contains(t, fields, "item_id")
	require.Contains(t, fields, "supplier_id")
	require.Empty(t, repo.records)
}

func TestReceivingStatusMovesFreely(t *testing.T) {
	svc, _ := newTestReceivingService()

	rec, err := svc.Receive(context.Background(), ReceiveInput{
		ItemID:     101,
		SupplierID: 11,
		Quantity:   10,
	})
	require.NoError(t, err)

	require.NoError(t, svc.SetStatus(context.Background(), rec.ID, StatusCancelled))
	require.NoError(t, svc.SetStatus(context.Background(), rec.ID, StatusPending))
	require.NoError(t, svc.SetStatus(context.Background(), rec.ID, StatusReceived))

	got, err := svc.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	require.Equal(t, StatusReceived, got.Status)

	err = svc.SetStatus(context.Background(), rec.ID, Status("LOST"))
	var fields shared.FieldErrors
	require.ErrorAs(t, err, &fields)
	require.Contains(t, fields, "status")
}

func TestReceivingStatusUnknownRecord(t *testing.T) {
	svc, _ := newTestReceivingService()

	err := svc.SetStatus(context.Background(), 404, StatusCancelled)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
