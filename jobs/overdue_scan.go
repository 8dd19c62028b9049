package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/assetdesk/assetdesk/internal/borrowing"
	"github.com/assetdesk/assetdesk/internal/observability"
)

// OverdueMarker flags open loans past their due date.
type OverdueMarker interface {
	MarkOverdue(ctx context.Context, asOf time.Time) ([]borrowing.Record, error)
}

// OverdueBorrowScanJob flips loans past their due date to overdue and logs
// each one for follow-up.
type OverdueBorrowScanJob struct {
	marker  OverdueMarker
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewOverdueBorrowScanJob constructs the job. metrics may be nil.
func NewOverdueBorrowScanJob(marker OverdueMarker, logger *slog.Logger, metrics *observability.Metrics) *OverdueBorrowScanJob {
	return &OverdueBorrowScanJob{marker: marker, logger: logger, metrics: metrics}
}

// Handle processes TaskOverdueBorrowScan tasks.
func (j *OverdueBorrowScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload ScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	records, err := j.marker.MarkOverdue(ctx, time.Now().UTC())
	if err != nil {
		j.metrics.ObserveJob(TaskOverdueBorrowScan, "error")
		return err
	}
	for _, record := range records {
		j.logger.Warn("loan overdue",
			slog.String("record_id", record.ID),
			slog.String("asset_id", record.AssetID),
			slog.String("borrower", record.BorrowerName))
	}
	j.logger.Info("overdue loan scan complete", slog.Int("flagged", len(records)))
	j.metrics.ObserveJob(TaskOverdueBorrowScan, "ok")
	return nil
}
