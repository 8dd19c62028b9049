package patches

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/assetdesk/assetdesk/internal/shared"
)

// Repository provides PostgreSQL backed persistence for patch records.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const patchColumns = `id, asset_id, patch_status, last_patch_check,
	COALESCE(operating_system, ''), vulnerabilities, pending_updates,
	critical_updates, security_updates, COALESCE(notes, ''), next_check_date,
	created_at, updated_at`

// List returns patch records matching the filter, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Record, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT ` + patchColumns + ` FROM patch_records`)
	var clauses []string
	var args []any
	if filter.Status != "" && filter.Status != "all" {
		args = append(args, filter.Status)
		clauses = append(clauses, fmt.Sprintf(`patch_status = $%d`, len(args)))
	}
	if filter.AssetID != "" {
		args = append(args, filter.AssetID)
		clauses = append(clauses, fmt.Sprintf(`asset_id = $%d`, len(args)))
	}
	if filter.CriticalOnly {
		clauses = append(clauses, `critical_updates > 0`)
	}
	if len(clauses) > 0 {
		query.WriteString(" WHERE " + strings.Join(clauses, " AND "))
	}
	query.WriteString(" ORDER BY updated_at DESC")

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

// Get returns one patch record by id.
func (r *Repository) Get(ctx context.Context, id string) (Record, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+patchColumns+` FROM patch_records WHERE id = $1`, id)
	record, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrRecordNotFound
	}
	return record, err
}

// Create inserts a new patch record.
func (r *Repository) Create(ctx context.Context, record Record) (Record, error) {
	now := time.Now().UTC()
	row := r.pool.QueryRow(ctx, `
		INSERT INTO patch_records (id, asset_id, patch_status, last_patch_check,
			operating_system, vulnerabilities, pending_updates, critical_updates,
			security_updates, notes, next_check_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, NULLIF($10, ''), $11, $12, $12)
		RETURNING `+patchColumns,
		record.ID, record.AssetID, record.PatchStatus, dateArg(record.LastPatchCheck),
		record.OperatingSystem, record.Vulnerabilities, record.PendingUpdates,
		record.CriticalUpdates, record.SecurityUpdates, record.Notes,
		dateArg(record.NextCheckDate), now)
	return scanRecord(row)
}

// Update rewrites a patch record's mutable fields.
func (r *Repository) Update(ctx context.Context, record Record) (Record, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE patch_records SET patch_status = $2, last_patch_check = $3,
			operating_system = NULLIF($4, ''), vulnerabilities = $5, pending_updates = $6,
			critical_updates = $7, security_updates = $8, notes = NULLIF($9, ''),
			next_check_date = $10, updated_at = NOW()
		WHERE id = $1
		RETURNING `+patchColumns,
		record.ID, record.PatchStatus, dateArg(record.LastPatchCheck),
		record.OperatingSystem, record.Vulnerabilities, record.PendingUpdates,
		record.CriticalUpdates, record.SecurityUpdates, record.Notes,
		dateArg(record.NextCheckDate))
	updated, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrRecordNotFound
	}
	return updated, err
}

// Delete removes a patch record.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM patch_records WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func dateArg(d *shared.DateOnly) any {
	if d == nil {
		return nil
	}
	return d.Time
}

func scanRecord(row pgx.Row) (Record, error) {
	var record Record
	var lastCheck, nextCheck *time.Time
	err := row.Scan(&record.ID, &record.AssetID, &record.PatchStatus, &lastCheck,
		&record.OperatingSystem, &record.Vulnerabilities, &record.PendingUpdates,
		&record.CriticalUpdates, &record.SecurityUpdates, &record.Notes, &nextCheck,
		&record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		return Record{}, err
	}
	if lastCheck != nil {
		record.LastPatchCheck = shared.NewDateOnly(*lastCheck)
	}
	if nextCheck != nil {
		record.NextCheckDate = shared.NewDateOnly(*nextCheck)
	}
	return record, nil
}
