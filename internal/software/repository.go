package software

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/assetdesk/assetdesk/internal/shared"
)

// Repository provides PostgreSQL backed persistence for software licenses.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const licenseColumns = `id, software_name, COALESCE(publisher, ''), COALESCE(version, ''),
	COALESCE(license_key, ''), COALESCE(license_type, ''), purchase_date, expiry_date,
	licenses_total, licenses_assigned, COALESCE(category, ''), COALESCE(description, ''),
	COALESCE(notes, ''), status, created_at, updated_at`

// List returns licenses matching the filter, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]License, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT ` + licenseColumns + ` FROM software_licenses`)
	var clauses []string
	var args []any
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf(`(software_name ILIKE $%d OR publisher ILIKE $%d)`, n, n))
	}
	if filter.Status != "" && filter.Status != "all" {
		args = append(args, filter.Status)
		clauses = append(clauses, fmt.Sprintf(`status = $%d`, len(args)))
	}
	if filter.Type != "" && filter.Type != "all" {
		args = append(args, filter.Type)
		clauses = append(clauses, fmt.Sprintf(`license_type = $%d`, len(args)))
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
	var out []License
	for rows.Next() {
		license, err := scanLicense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, license)
	}
	return out, rows.Err()
}

// Get returns one license by id.
func (r *Repository) Get(ctx context.Context, id string) (License, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+licenseColumns+` FROM software_licenses WHERE id = $1`, id)
	license, err := scanLicense(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return License{}, ErrLicenseNotFound
	}
	return license, err
}

// Create inserts a new license.
func (r *Repository) Create(ctx context.Context, license License) (License, error) {
	now := time.Now().UTC()
	row := r.pool.QueryRow(ctx, `
		INSERT INTO software_licenses (id, software_name, publisher, version, license_key,
			license_type, purchase_date, expiry_date, licenses_total, licenses_assigned,
			category, description, notes, status, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''),
			$7, $8, $9, $10, NULLIF($11, ''), NULLIF($12, ''), NULLIF($13, ''), $14, $15, $15)
		RETURNING `+licenseColumns,
		license.ID, license.SoftwareName, license.Publisher, license.Version, license.LicenseKey,
		license.LicenseType, dateArg(license.PurchaseDate), dateArg(license.ExpiryDate),
		license.LicensesTotal, license.LicensesAssigned, license.Category,
		license.Description, license.Notes, license.Status, now)
	created, err := scanLicense(row)
	return created, translateErr(err)
}

// Update rewrites a license's mutable fields.
func (r *Repository) Update(ctx context.Context, license License) (License, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE software_licenses SET software_name = $2, publisher = NULLIF($3, ''),
			version = NULLIF($4, ''), license_key = NULLIF($5, ''), license_type = NULLIF($6, ''),
			purchase_date = $7, expiry_date = $8, licenses_total = $9, licenses_assigned = $10,
			category = NULLIF($11, ''), description = NULLIF($12, ''), notes = NULLIF($13, ''),
			status = $14, updated_at = NOW()
		WHERE id = $1
		RETURNING `+licenseColumns,
		license.ID, license.SoftwareName, license.Publisher, license.Version, license.LicenseKey,
		license.LicenseType, dateArg(license.PurchaseDate), dateArg(license.ExpiryDate),
		license.LicensesTotal, license.LicensesAssigned, license.Category,
		license.Description, license.Notes, license.Status)
	updated, err := scanLicense(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return License{}, ErrLicenseNotFound
	}
	return updated, translateErr(err)
}

// Delete removes a license record.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM software_licenses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLicenseNotFound
	}
	return nil
}

func translateErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrLicenseKeyTaken
	}
	return err
}

func dateArg(d *shared.DateOnly) any {
	if d == nil {
		return nil
	}
	return d.Time
}

func scanLicense(row pgx.Row) (License, error) {
	var license License
	var purchase, expiry *time.Time
	err := row.Scan(&license.ID, &license.SoftwareName, &license.Publisher, &license.Version,
		&license.LicenseKey, &license.LicenseType, &purchase, &expiry,
		&license.LicensesTotal, &license.LicensesAssigned, &license.Category,
		&license.Description, &license.Notes, &license.Status,
		&license.CreatedAt, &license.UpdatedAt)
	if err != nil {
		return License{}, err
	}
	if purchase != nil {
		license.PurchaseDate = shared.NewDateOnly(*purchase)
	}
	if expiry != nil {
		license.ExpiryDate = shared.NewDateOnly(*expiry)
	}
	return license, nil
}
