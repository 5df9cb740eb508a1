package jobs

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/supplyhub/supplyhub/internal/catalog/items"
)

type fakeStockLister struct {
	threshold int64
	low       []items.Item
}

func (f *fakeStockLister) ListBelowThreshold(_ context.Context, threshold int64) ([]items.Item, error) {
	f.threshold = threshold
	return f.low, nil
}

func TestLowStockScanUsesPayloadThreshold(t *testing.T) {
	lister := &fakeStockLister{low: []items.Item{{ID: 1, StockNumber: "SN-1", StockLevel: 3}}}
	job := NewLowStockScanJob(lister, slog.New(slog.NewTextHandler(io.Discard, nil)), nil, 10)

	body, err := json.Marshal(LowStockScanPayload{Threshold: 25})
	require.NoError(t, err)

	err = job.Handle(context.Background(), asynq.NewTask(TaskStockLowScan, body))
	require.NoError(t, err)
	require.Equal(t, int64(25), lister.threshold)
}

func TestLowStockScanFallsBackToDefaultThreshold(t *testing.T) {
	lister := &fakeStockLister{}
	job := NewLowStockScanJob(lister, slog.New(slog.NewTextHandler(io.Discard, nil)), nil, 10)

	body, err := json.Marshal(LowStockScanPayload{})
	require.NoError(t, err)

	err = job.Handle(context.Background(), asynq.NewTask(TaskStockLowScan, body))
	require.NoError(t, err)
	require.Equal(t, int64(10), lister.threshold)
}
