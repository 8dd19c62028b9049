package assets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/assetdesk/assetdesk/internal/shared"
)

// Repository provides PostgreSQL backed persistence for assets.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const assetColumns = `id, asset_tag, type,
	COALESCE(manufacturer, ''), COALESCE(model, ''), COALESCE(serial_number, ''),
	purchase_date, purchase_price::text, COALESCE(supplier, ''), warranty_expiry,
	COALESCE(assigned_user, ''), COALESCE(location, ''), COALESCE(department, ''),
	status, COALESCE(operating_system, ''), COALESCE(processor, ''),
	COALESCE(memory, ''), COALESCE(storage, ''), COALESCE(hostname, ''),
	COALESCE(ip_address, ''), COALESCE(mac_address, ''), is_loanable,
	COALESCE(condition, ''), COALESCE(description, ''), COALESCE(notes, ''),
	created_at, updated_at`

// List returns assets matching the filter, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Asset, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT ` + assetColumns + ` FROM assets`)
	var clauses []string
	var args []any
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf(`(asset_tag ILIKE $%d OR serial_number ILIKE $%d OR manufacturer ILIKE $%d OR model ILIKE $%d)`, n, n, n, n))
	}
	if filter.Status != "" && filter.Status != "all" {
		args = append(args, filter.Status)
		clauses = append(clauses, fmt.Sprintf(`status = $%d`, len(args)))
	}
	if filter.Type != "" && filter.Type != "all" {
		args = append(args, filter.Type)
		clauses = append(clauses, fmt.Sprintf(`type = $%d`, len(args)))
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
	var out []Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, asset)
	}
	return out, rows.Err()
}

// Get returns one asset by id.
func (r *Repository) Get(ctx context.Context, id string) (Asset, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+assetColumns+` FROM assets WHERE id = $1`, id)
	asset, err := scanAsset(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Asset{}, ErrAssetNotFound
	}
	return asset, err
}

// Create inserts a new asset.
func (r *Repository) Create(ctx context.Context, asset Asset) (Asset, error) {
	now := time.Now().UTC()
	row := r.pool.QueryRow(ctx, `
		INSERT INTO assets (id, asset_tag, type, manufacturer, model, serial_number,
			purchase_date, purchase_price, supplier, warranty_expiry, assigned_user,
			location, department, status, operating_system, processor, memory, storage,
			hostname, ip_address, mac_address, is_loanable, condition, description, notes,
			created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''),
			$7, $8, NULLIF($9, ''), $10, NULLIF($11, ''),
			NULLIF($12, ''), NULLIF($13, ''), $14, NULLIF($15, ''), NULLIF($16, ''),
			NULLIF($17, ''), NULLIF($18, ''), NULLIF($19, ''), NULLIF($20, ''),
			NULLIF($21, ''), $22, NULLIF($23, ''), NULLIF($24, ''), NULLIF($25, ''),
			$26, $26)
		RETURNING `+assetColumns,
		asset.ID, asset.AssetTag, asset.Type, asset.Manufacturer, asset.Model, asset.SerialNumber,
		dateArg(asset.PurchaseDate), priceArg(asset.PurchasePrice), asset.Supplier, dateArg(asset.WarrantyExpiry), asset.AssignedUser,
		asset.Location, asset.Department, asset.Status, asset.OperatingSystem, asset.Processor,
		asset.Memory, asset.Storage, asset.Hostname, asset.IPAddress, asset.MACAddress,
		asset.IsLoanable, asset.Condition, asset.Description, asset.Notes, now)
	created, err := scanAsset(row)
	return created, translateErr(err)
}

// Update rewrites an asset's mutable fields.
func (r *Repository) Update(ctx context.Context, asset Asset) (Asset, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE assets SET asset_tag = $2, type = $3, manufacturer = NULLIF($4, ''),
			model = NULLIF($5, ''), serial_number = NULLIF($6, ''), purchase_date = $7,
			purchase_price = $8, supplier = NULLIF($9, ''), warranty_expiry = $10,
			assigned_user = NULLIF($11, ''), location = NULLIF($12, ''),
			department = NULLIF($13, ''), status = $14, operating_system = NULLIF($15, ''),
			processor = NULLIF($16, ''), memory = NULLIF($17, ''), storage = NULLIF($18, ''),
			hostname = NULLIF($19, ''), ip_address = NULLIF($20, ''), mac_address = NULLIF($21, ''),
			is_loanable = $22, condition = NULLIF($23, ''), description = NULLIF($24, ''),
			notes = NULLIF($25, ''), updated_at = NOW()
		WHERE id = $1
		RETURNING `+assetColumns,
		asset.ID, asset.AssetTag, asset.Type, asset.Manufacturer, asset.Model, asset.SerialNumber,
		dateArg(asset.PurchaseDate), priceArg(asset.PurchasePrice), asset.Supplier, dateArg(asset.WarrantyExpiry),
		asset.AssignedUser, asset.Location, asset.Department, asset.Status, asset.OperatingSystem,
		asset.Processor, asset.Memory, asset.Storage, asset.Hostname, asset.IPAddress,
		asset.MACAddress, asset.IsLoanable, asset.Condition, asset.Description, asset.Notes)
	updated, err := scanAsset(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Asset{}, ErrAssetNotFound
	}
	return updated, translateErr(err)
}

// SetStatus flips an asset's status field.
func (r *Repository) SetStatus(ctx context.Context, id, status string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE assets SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAssetNotFound
	}
	return nil
}

// Delete removes an asset and its history rows.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM assets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAssetNotFound
	}
	return nil
}

// History returns an asset's change history, newest first.
func (r *Repository) History(ctx context.Context, assetID string) ([]HistoryEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, asset_id, action, COALESCE(field_changed, ''), COALESCE(old_value, ''),
			COALESCE(new_value, ''), change_date, COALESCE(changed_by_user_id, '')
		FROM asset_history
		WHERE asset_id = $1
		ORDER BY change_date DESC`, assetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []HistoryEvent
	for rows.Next() {
		var ev HistoryEvent
		if err := rows.Scan(&ev.ID, &ev.AssetID, &ev.Action, &ev.FieldChanged,
			&ev.OldValue, &ev.NewValue, &ev.ChangeDate, &ev.ChangedByUserID); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// RecordHistory appends change events for an asset.
func (r *Repository) RecordHistory(ctx context.Context, events []HistoryEvent) error {
	for _, ev := range events {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO asset_history (asset_id, action, field_changed, old_value, new_value, change_date, changed_by_user_id)
			VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, NULLIF($7, ''))`,
			ev.AssetID, ev.Action, ev.FieldChanged, ev.OldValue, ev.NewValue, ev.ChangeDate, ev.ChangedByUserID)
		if err != nil {
			return err
		}
	}
	return nil
}

// ExpiringWarranties returns active assets whose warranty lapses within the window.
func (r *Repository) ExpiringWarranties(ctx context.Context, within time.Duration) ([]Asset, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+assetColumns+`
		FROM assets
		WHERE warranty_expiry IS NOT NULL
		  AND warranty_expiry <= NOW() + $1::interval
		  AND warranty_expiry >= NOW()
		  AND status <> $2
		ORDER BY warranty_expiry ASC`,
		fmt.Sprintf("%d days", int(within.Hours()/24)), StatusRetired)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, asset)
	}
	return out, rows.Err()
}

// FleetStats aggregates the asset dashboard numbers. Loan counts read
// asset_borrowing directly; importing the borrowing package here would cycle.
func (r *Repository) FleetStats(ctx context.Context, windowDays int) (FleetStats, error) {
	stats := FleetStats{DaysWindow: windowDays}

	row := r.pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = $1),
			COUNT(*) FILTER (WHERE status = $2),
			COUNT(*) FILTER (WHERE status = $3),
			COUNT(*) FILTER (WHERE status = $4)
		FROM assets`,
		StatusInStock, StatusInUse, StatusMaintenance, StatusRetired)
	if err := row.Scan(&stats.StatusCounts.Total, &stats.StatusCounts.InStock,
		&stats.StatusCounts.InUse, &stats.StatusCounts.Maintenance,
		&stats.StatusCounts.Retired); err != nil {
		return FleetStats{}, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT type, COUNT(*)
		FROM assets
		GROUP BY type
		ORDER BY COUNT(*) DESC, type ASC
		LIMIT 5`)
	if err != nil {
		return FleetStats{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var tc TypeCount
		if err := rows.Scan(&tc.Type, &tc.Count); err != nil {
			return FleetStats{}, err
		}
		stats.TypeCounts = append(stats.TypeCounts, tc)
	}
	if err := rows.Err(); err != nil {
		return FleetStats{}, err
	}

	row = r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE status = 'checked-out'),
			COUNT(*) FILTER (WHERE status = 'overdue')
		FROM asset_borrowing`)
	if err := row.Scan(&stats.Loans.CheckedOut, &stats.Loans.Overdue); err != nil {
		return FleetStats{}, err
	}

	warrantyRows, err := r.pool.Query(ctx, `
		SELECT id, asset_tag, COALESCE(model, ''), warranty_expiry::date,
			GREATEST(0, warranty_expiry::date - CURRENT_DATE)
		FROM assets
		WHERE warranty_expiry IS NOT NULL
		  AND warranty_expiry::date BETWEEN CURRENT_DATE AND CURRENT_DATE + make_interval(days => $1)
		ORDER BY warranty_expiry ASC
		LIMIT 50`, windowDays)
	if err != nil {
		return FleetStats{}, err
	}
	defer warrantyRows.Close()
	for warrantyRows.Next() {
		var summary WarrantySummary
		var expiry time.Time
		if err := warrantyRows.Scan(&summary.ID, &summary.AssetTag, &summary.Model,
			&expiry, &summary.DaysLeft); err != nil {
			return FleetStats{}, err
		}
		summary.WarrantyExpiry = shared.DateOnly{Time: expiry}
		stats.ExpiringWarranties = append(stats.ExpiringWarranties, summary)
	}
	if err := warrantyRows.Err(); err != nil {
		return FleetStats{}, err
	}
	return stats, nil
}

func translateErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrAssetTagTaken
	}
	return err
}

func dateArg(d *shared.DateOnly) any {
	if d == nil {
		return nil
	}
	return d.Time
}

func priceArg(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func scanAsset(row pgx.Row) (Asset, error) {
	var asset Asset
	var purchaseDate, warrantyExpiry *time.Time
	var price *string
	err := row.Scan(&asset.ID, &asset.AssetTag, &asset.Type,
		&asset.Manufacturer, &asset.Model, &asset.SerialNumber,
		&purchaseDate, &price, &asset.Supplier, &warrantyExpiry,
		&asset.AssignedUser, &asset.Location, &asset.Department,
		&asset.Status, &asset.OperatingSystem, &asset.Processor,
		&asset.Memory, &asset.Storage, &asset.Hostname,
		&asset.IPAddress, &asset.MACAddress, &asset.IsLoanable,
		&asset.Condition, &asset.Description, &asset.Notes,
		&asset.CreatedAt, &asset.UpdatedAt)
	if err != nil {
		return Asset{}, err
	}
	if purchaseDate != nil {
		asset.PurchaseDate = shared.NewDateOnly(*purchaseDate)
	}
	if warrantyExpiry != nil {
		asset.WarrantyExpiry = shared.NewDateOnly(*warrantyExpiry)
	}
	if price != nil {
		parsed, err := decimal.NewFromString(*price)
		if err != nil {
			return Asset{}, fmt.Errorf("parse purchase price: %w", err)
		}
		asset.PurchasePrice = &parsed
	}
	return asset, nil
}
