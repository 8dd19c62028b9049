package borrowing

import (
	"context"
	"strings"
	"time"

	"github.com/assetdesk/assetdesk/internal/assets"
	"github.com/assetdesk/assetdesk/internal/shared"
)

// RepositoryPort defines data access methods for borrow records.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context, filter ListFilter) ([]Record, error)
	Get(ctx context.Context, id string) (Record, error)
	MarkOverdue(ctx context.Context, asOf time.Time) ([]Record, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles asset loans. Checkout and checkin each run as one
// transaction that locks the asset row, so a popular asset cannot be lent
// twice.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service. audit may be nil.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// Checkout lends an asset out. The asset must be in stock and flagged
// loanable, and must not have an open borrow record.
func (s *Service) Checkout(ctx context.Context, input CheckoutInput) (Record, error) {
	if strings.TrimSpace(input.BorrowerName) == "" {
		return Record{}, ErrBorrowerRequired
	}
	if input.CheckoutDate.IsZero() {
		input.CheckoutDate = shared.DateOnly{Time: time.Now().UTC()}
	}
	if input.DueDate != nil && input.DueDate.Before(input.CheckoutDate.Time) {
		return Record{}, ErrDueBeforeCheckout
	}

	var record Record
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		asset, err := tx.GetAssetForUpdate(ctx, input.AssetID)
		if err != nil {
			return err
		}
		if asset.Status != assets.StatusInStock || !asset.IsLoanable {
			return ErrAssetNotLoanable
		}
		open, err := tx.HasOpenRecord(ctx, input.AssetID)
		if err != nil {
			return err
		}
		if open {
			return ErrAlreadyCheckedOut
		}
		record, err = tx.InsertRecord(ctx, Record{
			ID:              shared.NewID("BOR"),
			AssetID:         input.AssetID,
			BorrowerName:    input.BorrowerName,
			BorrowerContact: input.BorrowerContact,
			CheckoutDate:    input.CheckoutDate,
			DueDate:         input.DueDate,
			Status:          StatusCheckedOut,
			Location:        input.Location,
			Purpose:         input.Purpose,
			Notes:           input.Notes,
		})
		if err != nil {
			return err
		}
		return tx.SetAssetStatus(ctx, input.AssetID, assets.StatusInUse)
	})
	if err != nil {
		return Record{}, err
	}
	s.recordAudit(ctx, "borrowing:checkout", record)
	return record, nil
}

// Checkin closes an open borrow record and puts the asset back in stock.
func (s *Service) Checkin(ctx context.Context, id string) (Record, error) {
	var record Record
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		open, err := tx.GetRecordForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if open.Status == StatusReturned {
			return ErrAlreadyReturned
		}
		record, err = tx.CloseRecord(ctx, id, shared.DateOnly{Time: time.Now().UTC()})
		if err != nil {
			return err
		}
		return tx.SetAssetStatus(ctx, record.AssetID, assets.StatusInStock)
	})
	if err != nil {
		return Record{}, err
	}
	s.recordAudit(ctx, "borrowing:checkin", record)
	return record, nil
}

// List returns borrow records matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Record, error) {
	return s.repo.List(ctx, filter)
}

// Get returns one borrow record by id.
func (s *Service) Get(ctx context.Context, id string) (Record, error) {
	return s.repo.Get(ctx, id)
}

// MarkOverdue flags open records past their due date. The worker calls this
// on a schedule.
func (s *Service) MarkOverdue(ctx context.Context, asOf time.Time) ([]Record, error) {
	return s.repo.MarkOverdue(ctx, asOf)
}

func (s *Service) recordAudit(ctx context.Context, action string, record Record) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Actor:    record.BorrowerName,
		Action:   action,
		Entity:   "borrow_record",
		EntityID: record.ID,
		Meta: map[string]any{
			"asset_id": record.AssetID,
			"status":   record.Status,
		},
	})
}
