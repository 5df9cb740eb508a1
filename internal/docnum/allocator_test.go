package docnum

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memorySequences struct {
	counters map[string]int
	registry map[string]bool
}

func newMemorySequences() *memorySequences {
	return &memorySequences{counters: make(map[string]int), registry: make(map[string]bool)}
}

func (m *memorySequences) MaxSequence(ctx context.Context, docType DocumentType, period Period) (int, error) {
	return m.counters[string(docType)+":"+period.String()], nil
}

func (m *memorySequences) NextSequence(ctx context.Context, docType DocumentType, period Period) (int, error) {
	key := string(docType) + ":" + period.String()
	m.counters[key]++
	return m.counters[key], nil
}

func (m *memorySequences) RecordIdentifier(ctx context.Context, docType DocumentType, id Identifier) error {
	key := string(docType) + ":" + string(id)
	if m.registry[key] {
		return fmt.Errorf("%w: %s %s", ErrIdentifierCollision, docType, id)
	}
	m.registry[key] = true
	return nil
}

func TestAllocateSequenceStartsAtOne(t *testing.T) {
	seqs := newMemorySequences()
	period, err := ParsePeriod("2025-12")
	require.NoError(t, err)

	id, err := AllocateTx(context.Background(), seqs, TypePurchaseOrder, period)
	require.NoError(t, err)
	require.Equal(t, Identifier("2025-12-0001"), id)

	id, err = AllocateTx(context.Background(), seqs, TypePurchaseOrder, period)
	require.NoError(t, err)
	require.Equal(t, Identifier("2025-12-0002"), id)
}

func TestAllocateNoGapsOrRepeats(t *testing.T) {
	seqs := newMemorySequences()
	period := Period{Year: 2025, Month: time.March}

	for i := 1; i <= 25; i++ {
		id, err := AllocateTx(context.Background(), seqs, TypeRequisitionSlip, period)
		require.NoError(t, err)
		require.Equal(t, FormatIdentifier(period, i), id)
	}
}

func TestAllocateTypesAreIndependent(t *testing.T) {
	seqs := newMemorySequences()
	period := Period{Year: 2025, Month: time.December}

	po, err := AllocateTx(context.Background(), seqs, TypePurchaseOrder, period)
	require.NoError(t, err)
	ics, err := AllocateTx(context.Background(), seqs, TypeCustodianSlip, period)
	require.NoError(t, err)
	require.Equal(t, Identifier("2025-12-0001"), po)
	require.Equal(t, Identifier("2025-12-0001"), ics)
}

func TestAllocatePeriodsAreIndependent(t *testing.T) {
	seqs := newMemorySequences()

	dec, err := AllocateTx(context.Background(), seqs, TypePurchaseOrder, Period{Year: 2025, Month: time.December})
	require.NoError(t, err)
	jan, err := AllocateTx(context.Background(), seqs, TypePurchaseOrder, Period{Year: 2026, Month: time.January})
	require.NoError(t, err)
	require.Equal(t, Identifier("2025-12-0001"), dec)
	require.Equal(t, Identifier("2026-01-0001"), jan)
}

func TestNextPreviewsWithoutReserving(t *testing.T) {
	seqs := newMemorySequences()
	alloc := NewAllocator(seqs)
	period := Period{Year: 2025, Month: time.December}

	id, err := alloc.Next(context.Background(), TypePurchaseOrder, period)
	require.NoError(t, err)
	require.Equal(t, Identifier("2025-12-0001"), id)

	// Nothing persisted, so the preview stays put.
	id, err = alloc.Next(context.Background(), TypePurchaseOrder, period)
	require.NoError(t, err)
	require.Equal(t, Identifier("2025-12-0001"), id)
}

func TestAllocateRejectsUnknownType(t *testing.T) {
	seqs := newMemorySequences()
	_, err := AllocateTx(context.Background(), seqs, DocumentType("XX"), Period{Year: 2025, Month: time.May})
	require.ErrorIs(t, err, ErrUnknownType)
}

func TestAllocateSequenceExhausted(t *testing.T) {
	seqs := newMemorySequences()
	period := Period{Year: 2025, Month: time.June}
	seqs.counters[string(TypeInspectionReport)+":"+period.String()] = maxSequence

	_, err := AllocateTx(context.Background(), seqs, TypeInspectionReport, period)
	require.ErrorIs(t, err, ErrSequenceExhausted)

	alloc := NewAllocator(seqs)
	_, err = alloc.Next(context.Background(), TypeInspectionReport, period)
	require.ErrorIs(t, err, ErrSequenceExhausted)
}

func TestParseIdentifier(t *testing.T) {
	period, seq, err := ParseIdentifier("2025-12-0042")
	require.NoError(t, err)
	require.Equal(t, Period{Year: 2025, Month: time.December}, period)
	require.Equal(t, 42, seq)

	for _, bad := range []Identifier{"2025-12-42", "2025-13-0001", "PO-2025-12-0001", "2025-12-00011", ""} {
		_, _, err := ParseIdentifier(bad)
		require.Error(t, err, "identifier %q should not parse", bad)
	}
}

func TestPeriodRoundTrip(t *testing.T) {
	p := PeriodOf(time.Date(2025, time.February, 7, 10, 0, 0, 0, time.UTC))
	require.Equal(t, "2025-02", p.String())

	parsed, err := ParsePeriod("2025-02")
	require.NoError(t, err)
	require.Equal(t, p, parsed)

	_, err = ParsePeriod("2025/02")
	require.Error(t, err)
}
