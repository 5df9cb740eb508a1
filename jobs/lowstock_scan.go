package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/supplyhub/supplyhub/internal/catalog/items"
	jobmetrics "github.com/supplyhub/supplyhub/internal/jobs"
)

// StockLister exposes the catalog query the scan needs.
type StockLister interface {
	ListBelowThreshold(ctx context.Context, threshold int64) ([]items.Item, error)
}

// LowStockScanJob sweeps the catalog and logs items under the threshold.
type LowStockScanJob struct {
	Items            StockLister
	Logger           *slog.Logger
	Metrics          *jobmetrics.Metrics
	DefaultThreshold int64
}

// NewLowStockScanJob initialises the low-stock scan handler.
func NewLowStockScanJob(lister StockLister, logger *slog.Logger, metrics *jobmetrics.Metrics, threshold int64) *LowStockScanJob {
	return &LowStockScanJob{Items: lister, Logger: logger, Metrics: metrics, DefaultThreshold: threshold}
}

// Handle executes the scan.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Items == nil {
		return errors.New("low stock scan: handler not configured")
	}
	var payload LowStockScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Threshold <= 0 {
		payload.Threshold = j.DefaultThreshold
	}

	tracker := j.Metrics.Track(TaskStockLowScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	low, err := j.Items.ListBelowThreshold(ctx, payload.Threshold)
	if err != nil {
		resultErr = err
		j.Logger.Error("low stock scan failed", slog.Any("error", err))
		return resultErr
	}
	j.Metrics.SetLowStockCount(len(low))
	for _, item := range low {
		j.Logger.Warn("item below stock threshold",
			slog.Int64("item_id", item.ID),
			slog.String("stock_number", item.StockNumber),
			slog.Int64("stock_level", item.StockLevel),
			slog.Int64("threshold", payload.Threshold))
	}
	j.Logger.Info("low stock scan complete",
		slog.Int64("threshold", payload.Threshold),
		slog.Int("items_flagged", len(low)))
	return nil
}
