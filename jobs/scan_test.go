package jobs

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/assetdesk/assetdesk/internal/borrowing"
	"github.com/assetdesk/assetdesk/internal/inventory"
)

type stubLowStock struct {
	items []inventory.Item
	err   error
	calls int
}

func (s *stubLowStock) LowStock(ctx context.Context) ([]inventory.Item, error) {
	s.calls++
	return s.items, s.err
}

type stubOverdue struct {
	records []borrowing.Record
	asOf    time.Time
}

func (s *stubOverdue) MarkOverdue(ctx context.Context, asOf time.Time) ([]borrowing.Record, error) {
	s.asOf = asOf
	return s.records, nil
}

func TestLowStockScanHandle(t *testing.T) {
	source := &stubLowStock{items: []inventory.Item{
		{ID: 1, Name: "Cable", Quantity: 2, MinStockLevel: 5},
	}}
	job := NewLowStockScanJob(source, slog.Default(), nil)

	task, err := NewLowStockScanTask(time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 1, source.calls)
}

func TestLowStockScanSkipsRetryOnBadPayload(t *testing.T) {
	source := &stubLowStock{}
	job := NewLowStockScanJob(source, slog.Default(), nil)

	task := asynq.NewTask(TaskLowStockScan, []byte("not json"))
	err := job.Handle(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.Zero(t, source.calls)
}

func TestOverdueBorrowScanHandle(t *testing.T) {
	marker := &stubOverdue{records: []borrowing.Record{
		{ID: "BOR-1", AssetID: "AST-001", BorrowerName: "Dana Reyes", Status: borrowing.StatusOverdue},
	}}
	job := NewOverdueBorrowScanJob(marker, slog.Default(), nil)

	task, err := NewOverdueBorrowScanTask(time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.False(t, marker.asOf.IsZero())
}
