package inventory

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository persists the item catalog and the transaction ledger in
// PostgreSQL. Monetary columns are numeric; they travel as text and are
// parsed into decimals so no float ever touches a price.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the operations available inside a movement
// transaction. The ledger is append-only: there is no update or delete.
type TxRepository interface {
	GetItemForUpdate(ctx context.Context, id int64) (Item, error)
	FindItemByBarcodeForUpdate(ctx context.Context, barcode string) (Item, error)
	FindItemByNameForUpdate(ctx context.Context, name string) (Item, error)
	CreateItem(ctx context.Context, item Item) (Item, error)
	UpdateItemStock(ctx context.Context, id, quantity int64, price decimal.Decimal) error
	AppendEntry(ctx context.Context, entry LedgerEntry) (LedgerEntry, error)
}

type txRepository struct {
	tx pgx.Tx
}

const itemColumns = `id, COALESCE(barcode, ''), name, quantity, price_per_unit::text, min_stock_level,
COALESCE(location, ''), COALESCE(category, ''), COALESCE(description, ''), COALESCE(image_url, ''),
is_active, created_at, updated_at`

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("inventory repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return translateErr(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return translateErr(err)
	}
	return nil
}

// GetItem fetches one item by id regardless of its active flag.
func (r *Repository) GetItem(ctx context.Context, id int64) (Item, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE id=$1`, id)
	return scanItem(row)
}

// GetItemByBarcode fetches one active item by exact barcode match.
func (r *Repository) GetItemByBarcode(ctx context.Context, barcode string) (Item, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE barcode=$1 AND is_active`, barcode)
	return scanItem(row)
}

// ListItems returns a page of active items ordered by name plus the unpaged
// total.
func (r *Repository) ListItems(ctx context.Context, filter ListFilter) ([]Item, int, error) {
	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}

	where := `WHERE is_active`
	args := []any{}
	if filter.Search != "" {
		where += ` AND (name ILIKE $1 OR barcode ILIKE $1 OR category ILIKE $1)`
		args = append(args, "%"+filter.Search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM inventory_items `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limitArg := strconv.Itoa(len(args) + 1)
	offsetArg := strconv.Itoa(len(args) + 2)
	args = append(args, perPage, (page-1)*perPage)
	rows, err := r.pool.Query(ctx, `SELECT `+itemColumns+` FROM inventory_items `+where+
		` ORDER BY name ASC LIMIT $`+limitArg+` OFFSET $`+offsetArg, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// LowStock returns active items at or below their minimum stock level.
func (r *Repository) LowStock(ctx context.Context) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+itemColumns+`
		FROM inventory_items
		WHERE is_active AND quantity <= min_stock_level
		ORDER BY quantity ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// UpdateItemDetails applies a metadata edit without touching quantity or
// price. Barcode uniqueness violations surface as ErrBarcodeConflict.
func (r *Repository) UpdateItemDetails(ctx context.Context, id int64, edit ItemEdit) (Item, error) {
	row := r.pool.QueryRow(ctx, `UPDATE inventory_items
SET name=$1, barcode=NULLIF($2, ''), location=NULLIF($3, ''), category=NULLIF($4, ''),
    description=NULLIF($5, ''), image_url=NULLIF($6, ''), min_stock_level=$7, updated_at=NOW()
WHERE id=$8
RETURNING `+itemColumns,
		edit.Name, edit.Barcode, edit.Location, edit.Category, edit.Description, edit.ImageURL, edit.MinStockLevel, id)
	item, err := scanItem(row)
	if err != nil {
		return Item{}, translateErr(err)
	}
	return item, nil
}

// DeactivateItem flips is_active off, preserving ledger history.
func (r *Repository) DeactivateItem(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE inventory_items SET is_active=false, updated_at=NOW() WHERE id=$1 AND is_active`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

// History returns a page of one item's ledger, newest first, plus the unpaged
// entry count and the running total of value_change over the whole ledger.
func (r *Repository) History(ctx context.Context, filter HistoryFilter) ([]LedgerEntry, int, decimal.Decimal, error) {
	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 50
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}

	var total int
	var runningText string
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(value_change), 0)::text
FROM inventory_transactions WHERE item_id=$1`, filter.ItemID).Scan(&total, &runningText)
	if err != nil {
		return nil, 0, decimal.Zero, err
	}
	running, err := decimal.NewFromString(runningText)
	if err != nil {
		return nil, 0, decimal.Zero, fmt.Errorf("inventory: parse running total: %w", err)
	}

	rows, err := r.pool.Query(ctx, `SELECT id, item_id, transaction_type, quantity_change,
price_per_unit::text, value_change::text, COALESCE(user_id, ''), COALESCE(notes, ''), transaction_date
FROM inventory_transactions
WHERE item_id=$1
ORDER BY transaction_date DESC, id DESC
LIMIT $2 OFFSET $3`, filter.ItemID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, decimal.Zero, err
	}
	defer rows.Close()

	entries := []LedgerEntry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, 0, decimal.Zero, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, decimal.Zero, err
	}
	return entries, total, running, nil
}

// Report returns ledger rows joined with item name and actor, newest first.
func (r *Repository) Report(ctx context.Context, filter ReportFilter) ([]ReportRow, error) {
	query := `SELECT t.id, i.name, COALESCE(NULLIF(TRIM(u.first_name || ' ' || u.last_name), ''), t.user_id, 'System'),
t.transaction_type, t.quantity_change, t.price_per_unit::text, t.value_change::text,
COALESCE(t.notes, ''), t.transaction_date
FROM inventory_transactions t
JOIN inventory_items i ON t.item_id = i.id
LEFT JOIN users u ON t.user_id = u.id`

	where := []string{}
	args := []any{}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		where = append(where, fmt.Sprintf("t.transaction_date >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		where = append(where, fmt.Sprintf("t.transaction_date <= $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		where = append(where, fmt.Sprintf("t.transaction_type = $%d", len(args)))
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		where = append(where, fmt.Sprintf("t.user_id = $%d", len(args)))
	}
	for i, clause := range where {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}
	query += " ORDER BY t.transaction_date DESC, t.id DESC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	report := []ReportRow{}
	for rows.Next() {
		var row ReportRow
		var priceText, valueText string
		if err := rows.Scan(&row.ID, &row.ItemName, &row.UserName, &row.Type, &row.QuantityChange,
			&priceText, &valueText, &row.Notes, &row.TransactionDate); err != nil {
			return nil, err
		}
		if row.PricePerUnit, err = decimal.NewFromString(priceText); err != nil {
			return nil, fmt.Errorf("inventory: parse report price: %w", err)
		}
		if row.ValueChange, err = decimal.NewFromString(valueText); err != nil {
			return nil, fmt.Errorf("inventory: parse report value: %w", err)
		}
		report = append(report, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return report, nil
}

// DashboardStats computes the headline KPIs over active items.
func (r *Repository) DashboardStats(ctx context.Context) (DashboardStats, error) {
	var stats DashboardStats
	var valueText string
	err := r.pool.QueryRow(ctx, `SELECT
COALESCE(SUM(quantity * price_per_unit), 0)::text,
COUNT(*) FILTER (WHERE quantity <= min_stock_level),
COUNT(*),
COALESCE(SUM(quantity), 0)
FROM inventory_items WHERE is_active`).Scan(&valueText, &stats.ItemsRunningLow, &stats.TotalUniqueItems, &stats.TotalQuantity)
	if err != nil {
		return DashboardStats{}, err
	}
	if stats.TotalStockValue, err = decimal.NewFromString(valueText); err != nil {
		return DashboardStats{}, fmt.Errorf("inventory: parse stock value: %w", err)
	}
	return stats, nil
}

// ValueByCategory returns the top categories by held stock value.
func (r *Repository) ValueByCategory(ctx context.Context, limit int) ([]CategoryValue, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := r.pool.Query(ctx, `SELECT category, COALESCE(SUM(quantity * price_per_unit), 0)::text
FROM inventory_items
WHERE is_active AND category IS NOT NULL AND category <> ''
GROUP BY category
ORDER BY SUM(quantity * price_per_unit) DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := []CategoryValue{}
	for rows.Next() {
		var cv CategoryValue
		var valueText string
		if err := rows.Scan(&cv.Category, &valueText); err != nil {
			return nil, err
		}
		if cv.Value, err = decimal.NewFromString(valueText); err != nil {
			return nil, fmt.Errorf("inventory: parse category value: %w", err)
		}
		values = append(values, cv)
	}
	return values, rows.Err()
}

// MostDispensed ranks items by dispensed volume inside the trailing window.
func (r *Repository) MostDispensed(ctx context.Context, window time.Duration, limit int) ([]DispensedItem, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := r.pool.Query(ctx, `SELECT i.name, ABS(SUM(t.quantity_change))
FROM inventory_transactions t
JOIN inventory_items i ON t.item_id = i.id
WHERE t.transaction_type = 'dispense' AND t.transaction_date >= $1
GROUP BY i.name
ORDER BY ABS(SUM(t.quantity_change)) DESC
LIMIT $2`, time.Now().UTC().Add(-window), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []DispensedItem{}
	for rows.Next() {
		var di DispensedItem
		if err := rows.Scan(&di.Name, &di.DispensedCount); err != nil {
			return nil, err
		}
		items = append(items, di)
	}
	return items, rows.Err()
}

func (r *txRepository) GetItemForUpdate(ctx context.Context, id int64) (Item, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE id=$1 FOR UPDATE`, id)
	return scanItem(row)
}

func (r *txRepository) FindItemByBarcodeForUpdate(ctx context.Context, barcode string) (Item, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE barcode=$1 FOR UPDATE`, barcode)
	return scanItem(row)
}

func (r *txRepository) FindItemByNameForUpdate(ctx context.Context, name string) (Item, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE name ILIKE $1 FOR UPDATE`, name)
	return scanItem(row)
}

func (r *txRepository) CreateItem(ctx context.Context, item Item) (Item, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO inventory_items
(barcode, name, quantity, price_per_unit, min_stock_level, location, category, description, image_url, is_active, created_at, updated_at)
VALUES (NULLIF($1, ''), $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), true, NOW(), NOW())
RETURNING `+itemColumns,
		item.Barcode, item.Name, item.Quantity, item.PricePerUnit.String(), item.MinStockLevel,
		item.Location, item.Category, item.Description, item.ImageURL)
	return scanItem(row)
}

func (r *txRepository) UpdateItemStock(ctx context.Context, id, quantity int64, price decimal.Decimal) error {
	tag, err := r.tx.Exec(ctx, `UPDATE inventory_items SET quantity=$1, price_per_unit=$2, updated_at=NOW() WHERE id=$3`,
		quantity, price.String(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *txRepository) AppendEntry(ctx context.Context, entry LedgerEntry) (LedgerEntry, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO inventory_transactions
(item_id, transaction_type, quantity_change, price_per_unit, value_change, user_id, notes, transaction_date)
VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), NOW())
RETURNING id, transaction_date`,
		entry.ItemID, string(entry.Type), entry.QuantityChange, entry.PricePerUnit.String(),
		entry.ValueChange.String(), entry.UserID, entry.Notes)
	if err := row.Scan(&entry.ID, &entry.TransactionDate); err != nil {
		return LedgerEntry{}, err
	}
	return entry, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (Item, error) {
	var item Item
	var priceText string
	err := row.Scan(&item.ID, &item.Barcode, &item.Name, &item.Quantity, &priceText, &item.MinStockLevel,
		&item.Location, &item.Category, &item.Description, &item.ImageURL,
		&item.IsActive, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrItemNotFound
		}
		return Item{}, err
	}
	if item.PricePerUnit, err = decimal.NewFromString(priceText); err != nil {
		return Item{}, fmt.Errorf("inventory: parse item price: %w", err)
	}
	return item, nil
}

func scanEntry(row rowScanner) (LedgerEntry, error) {
	var entry LedgerEntry
	var priceText, valueText string
	err := row.Scan(&entry.ID, &entry.ItemID, &entry.Type, &entry.QuantityChange,
		&priceText, &valueText, &entry.UserID, &entry.Notes, &entry.TransactionDate)
	if err != nil {
		return LedgerEntry{}, err
	}
	if entry.PricePerUnit, err = decimal.NewFromString(priceText); err != nil {
		return LedgerEntry{}, fmt.Errorf("inventory: parse entry price: %w", err)
	}
	if entry.ValueChange, err = decimal.NewFromString(valueText); err != nil {
		return LedgerEntry{}, fmt.Errorf("inventory: parse entry value: %w", err)
	}
	return entry, nil
}

// translateErr converts a unique-constraint violation on the barcode column
// into the domain conflict error instead of leaking the pg error code.
func translateErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrBarcodeConflict
	}
	return err
}
