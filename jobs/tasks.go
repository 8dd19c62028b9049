package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLowStockScan flags inventory items at or below their minimum level.
	TaskLowStockScan = "inventory:low_stock_scan"
	// TaskOverdueBorrowScan flips open loans past their due date to overdue.
	TaskOverdueBorrowScan = "borrowing:overdue_scan"
	// TaskWarrantyExpiryScan reports assets whose warranty lapses soon.
	TaskWarrantyExpiryScan = "assets:warranty_scan"
)

// ScanPayload carries scheduling metadata shared by the periodic scans.
type ScanPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewLowStockScanTask constructs an Asynq task for the low stock scan.
func NewLowStockScanTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(ScanPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, body, asynq.Queue(QueueDefault)), nil
}

// NewOverdueBorrowScanTask constructs an Asynq task for the overdue loan scan.
func NewOverdueBorrowScanTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(ScanPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOverdueBorrowScan, body, asynq.Queue(QueueDefault)), nil
}

// NewWarrantyExpiryScanTask constructs an Asynq task for the warranty scan.
func NewWarrantyExpiryScanTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(ScanPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWarrantyExpiryScan, body, asynq.Queue(QueueDefault)), nil
}
