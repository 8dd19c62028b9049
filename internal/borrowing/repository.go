package borrowing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/assetdesk/assetdesk/internal/platform/db"
	"github.com/assetdesk/assetdesk/internal/shared"
)

// LockedAsset is the slice of an asset row the checkout transaction locks.
type LockedAsset struct {
	ID         string
	Status     string
	IsLoanable bool
}

// TxRepository is the data access surface available inside a loan
// transaction. The asset row is locked first so concurrent checkouts of the
// same asset serialize.
type TxRepository interface {
	GetAssetForUpdate(ctx context.Context, assetID string) (LockedAsset, error)
	SetAssetStatus(ctx context.Context, assetID, status string) error
	HasOpenRecord(ctx context.Context, assetID string) (bool, error)
	InsertRecord(ctx context.Context, record Record) (Record, error)
	GetRecordForUpdate(ctx context.Context, id string) (Record, error)
	CloseRecord(ctx context.Context, id string, checkinDate shared.DateOnly) (Record, error)
}

// Repository provides PostgreSQL backed persistence for borrow records.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const recordColumns = `id, asset_id, borrower_name, COALESCE(borrower_contact, ''),
	checkout_date, due_date, checkin_date, status, COALESCE(location, ''),
	COALESCE(purpose, ''), COALESCE(notes, ''), created_at, updated_at`

// List returns borrow records matching the filter, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Record, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT ` + recordColumns + ` FROM asset_borrowing`)
	var clauses []string
	var args []any
	if filter.Status != "" && filter.Status != "all" {
		args = append(args, filter.Status)
		clauses = append(clauses, fmt.Sprintf(`status = $%d`, len(args)))
	}
	if filter.AssetID != "" {
		args = append(args, filter.AssetID)
		clauses = append(clauses, fmt.Sprintf(`asset_id = $%d`, len(args)))
	}
	if len(clauses) > 0 {
		query.WriteString(" WHERE " + strings.Join(clauses, " AND "))
	}
	query.WriteString(" ORDER BY created_at DESC")

	rows, err := r.pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

// Get returns one borrow record by id.
func (r *Repository) Get(ctx context.Context, id string) (Record, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM asset_borrowing WHERE id = $1`, id)
	record, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrRecordNotFound
	}
	return record, err
}

// MarkOverdue flips open records past their due date to overdue and returns
// them. The scheduled scan uses the result for notification logging.
func (r *Repository) MarkOverdue(ctx context.Context, asOf time.Time) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE asset_borrowing
		SET status = $1, updated_at = NOW()
		WHERE status = $2 AND due_date IS NOT NULL AND due_date < $3
		RETURNING `+recordColumns,
		StatusOverdue, StatusCheckedOut, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) GetAssetForUpdate(ctx context.Context, assetID string) (LockedAsset, error) {
	row := r.tx.QueryRow(ctx, `SELECT id, status, is_loanable FROM assets WHERE id = $1 FOR UPDATE`, assetID)
	var asset LockedAsset
	if err := row.Scan(&asset.ID, &asset.Status, &asset.IsLoanable); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LockedAsset{}, ErrAssetNotFound
		}
		return LockedAsset{}, err
	}
	return asset, nil
}

func (r *txRepository) SetAssetStatus(ctx context.Context, assetID, status string) error {
	_, err := r.tx.Exec(ctx, `UPDATE assets SET status = $2, updated_at = NOW() WHERE id = $1`, assetID, status)
	return err
}

func (r *txRepository) HasOpenRecord(ctx context.Context, assetID string) (bool, error) {
	row := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM asset_borrowing WHERE asset_id = $1 AND status IN ($2, $3))`,
		assetID, StatusCheckedOut, StatusOverdue)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

func (r *txRepository) InsertRecord(ctx context.Context, record Record) (Record, error) {
	now := time.Now().UTC()
	row := r.tx.QueryRow(ctx, `
		INSERT INTO asset_borrowing (id, asset_id, borrower_name, borrower_contact,
			checkout_date, due_date, checkin_date, status, location, purpose, notes,
			created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, NULL, $7, NULLIF($8, ''), NULLIF($9, ''), NULLIF($10, ''), $11, $11)
		RETURNING `+recordColumns,
		record.ID, record.AssetID, record.BorrowerName, record.BorrowerContact,
		record.CheckoutDate.Time, dueDateArg(record.DueDate), record.Status,
		record.Location, record.Purpose, record.Notes, now)
	return scanRecord(row)
}

func (r *txRepository) GetRecordForUpdate(ctx context.Context, id string) (Record, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+recordColumns+` FROM asset_borrowing WHERE id = $1 FOR UPDATE`, id)
	record, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrRecordNotFound
	}
	return record, err
}

func (r *txRepository) CloseRecord(ctx context.Context, id string, checkinDate shared.DateOnly) (Record, error) {
	row := r.tx.QueryRow(ctx, `
		UPDATE asset_borrowing
		SET status = $2, checkin_date = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING `+recordColumns,
		id, StatusReturned, checkinDate.Time)
	return scanRecord(row)
}

func dueDateArg(d *shared.DateOnly) any {
	if d == nil {
		return nil
	}
	return d.Time
}

func scanRecord(row pgx.Row) (Record, error) {
	var record Record
	var checkout time.Time
	var due, checkin *time.Time
	err := row.Scan(&record.ID, &record.AssetID, &record.BorrowerName, &record.BorrowerContact,
		&checkout, &due, &checkin, &record.Status, &record.Location,
		&record.Purpose, &record.Notes, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		return Record{}, err
	}
	record.CheckoutDate = shared.DateOnly{Time: checkout}
	if due != nil {
		record.DueDate = shared.NewDateOnly(*due)
	}
	if checkin != nil {
		record.CheckinDate = shared.NewDateOnly(*checkin)
	}
	return record, nil
}
