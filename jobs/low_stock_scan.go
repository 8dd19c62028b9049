package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/assetdesk/assetdesk/internal/inventory"
	"github.com/assetdesk/assetdesk/internal/observability"
)

// LowStockSource lists items that have fallen to or below their minimum.
type LowStockSource interface {
	LowStock(ctx context.Context) ([]inventory.Item, error)
}

// LowStockScanJob logs every item at or below its minimum stock level so
// operators can reorder before dispensing starts failing.
type LowStockScanJob struct {
	source  LowStockSource
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewLowStockScanJob constructs the job. metrics may be nil.
func NewLowStockScanJob(source LowStockSource, logger *slog.Logger, metrics *observability.Metrics) *LowStockScanJob {
	return &LowStockScanJob{source: source, logger: logger, metrics: metrics}
}

// Handle processes TaskLowStockScan tasks.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload ScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	items, err := j.source.LowStock(ctx)
	if err != nil {
		j.metrics.ObserveJob(TaskLowStockScan, "error")
		return err
	}
	for _, item := range items {
		j.logger.Warn("item below minimum stock",
			slog.Int64("item_id", item.ID),
			slog.String("name", item.Name),
			slog.Int64("quantity", item.Quantity),
			slog.Int64("min_stock_level", item.MinStockLevel))
	}
	j.logger.Info("low stock scan complete", slog.Int("flagged", len(items)))
	j.metrics.ObserveJob(TaskLowStockScan, "ok")
	return nil
}
