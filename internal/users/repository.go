package users

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

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, first_name, last_name, email,
	COALESCE(phone, ''), COALESCE(department, ''), COALESCE(role, ''),
	COALESCE(location, ''), COALESCE(employee_id, ''), COALESCE(manager, ''),
	start_date, status, created_at, updated_at`

// List returns users matching the filter, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]User, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT ` + userColumns + ` FROM users`)
	var clauses []string
	var args []any
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf(`(first_name || ' ' || last_name ILIKE $%d OR email ILIKE $%d OR department ILIKE $%d)`, n, n, n))
	}
	if filter.Status != "" && filter.Status != "all" {
		args = append(args, filter.Status)
		clauses = append(clauses, fmt.Sprintf(`status = $%d`, len(args)))
	}
	if filter.Department != "" && filter.Department != "all" {
		args = append(args, filter.Department)
		clauses = append(clauses, fmt.Sprintf(`department = $%d`, len(args)))
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
	var out []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, user)
	}
	return out, rows.Err()
}

// Get returns one user by id.
func (r *Repository) Get(ctx context.Context, id string) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	return user, err
}

// Create inserts a new user.
func (r *Repository) Create(ctx context.Context, user User) (User, error) {
	now := time.Now().UTC()
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, first_name, last_name, email, phone, department, role, location, employee_id, manager, start_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), NULLIF($10, ''), $11, $12, $13, $13)
		RETURNING `+userColumns,
		user.ID, user.FirstName, user.LastName, user.Email, user.Phone, user.Department,
		user.Role, user.Location, user.EmployeeID, user.Manager, dateArg(user.StartDate), user.Status, now)
	created, err := scanUser(row)
	return created, translateErr(err)
}

// Update rewrites a user's mutable fields.
func (r *Repository) Update(ctx context.Context, user User) (User, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users SET first_name = $2, last_name = $3, email = $4,
			phone = NULLIF($5, ''), department = NULLIF($6, ''), role = NULLIF($7, ''),
			location = NULLIF($8, ''), employee_id = NULLIF($9, ''), manager = NULLIF($10, ''),
			start_date = $11, status = $12, updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns,
		user.ID, user.FirstName, user.LastName, user.Email, user.Phone, user.Department,
		user.Role, user.Location, user.EmployeeID, user.Manager, dateArg(user.StartDate), user.Status)
	updated, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	return updated, translateErr(err)
}

// Delete removes a user record.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func translateErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrEmailConflict
	}
	return err
}

func dateArg(d *shared.DateOnly) any {
	if d == nil {
		return nil
	}
	return d.Time
}

func scanUser(row pgx.Row) (User, error) {
	var user User
	var startDate *time.Time
	err := row.Scan(&user.ID, &user.FirstName, &user.LastName, &user.Email,
		&user.Phone, &user.Department, &user.Role, &user.Location,
		&user.EmployeeID, &user.Manager, &startDate, &user.Status,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	if startDate != nil {
		user.StartDate = shared.NewDateOnly(*startDate)
	}
	return user, nil
}
