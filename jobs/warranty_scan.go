package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/assetdesk/assetdesk/internal/assets"
	"github.com/assetdesk/assetdesk/internal/observability"
)

// WarrantySource lists assets whose warranty lapses within a window.
type WarrantySource interface {
	ExpiringWarranties(ctx context.Context, within time.Duration) ([]assets.Asset, error)
}

// WarrantyExpiryScanJob reports assets whose warranty runs out inside the
// configured window.
type WarrantyExpiryScanJob struct {
	source  WarrantySource
	window  time.Duration
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewWarrantyExpiryScanJob constructs the job. metrics may be nil.
func NewWarrantyExpiryScanJob(source WarrantySource, window time.Duration, logger *slog.Logger, metrics *observability.Metrics) *WarrantyExpiryScanJob {
	if window <= 0 {
		window = 90 * 24 * time.Hour
	}
	return &WarrantyExpiryScanJob{source: source, window: window, logger: logger, metrics: metrics}
}

// Handle processes TaskWarrantyExpiryScan tasks.
func (j *WarrantyExpiryScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload ScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	expiring, err := j.source.ExpiringWarranties(ctx, j.window)
	if err != nil {
		j.metrics.ObserveJob(TaskWarrantyExpiryScan, "error")
		return err
	}
	for _, asset := range expiring {
		j.logger.Warn("warranty expiring",
			slog.String("asset_id", asset.ID),
			slog.String("asset_tag", asset.AssetTag),
			slog.String("warranty_expiry", asset.WarrantyExpiry.String()))
	}
	j.logger.Info("warranty scan complete", slog.Int("flagged", len(expiring)))
	j.metrics.ObserveJob(TaskWarrantyExpiryScan, "ok")
	return nil
}
