package inventory

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/assetdesk/assetdesk/internal/platform/httpx"
)

// MovementType enumerates supported stock movements.
type MovementType string

const (
	// MovementReceive represents stock received into the catalog.
	MovementReceive MovementType = "receive"
	// MovementDispense represents stock handed out.
	MovementDispense MovementType = "dispense"
	// MovementReturn represents previously dispensed stock coming back.
	MovementReturn MovementType = "return"
	// MovementAdjust represents a manual correction to a counted quantity.
	MovementAdjust MovementType = "adjust"
)

// Valid reports whether t is one of the four recognised movement types.
func (t MovementType) Valid() bool {
	switch t {
	case MovementReceive, MovementDispense, MovementReturn, MovementAdjust:
		return true
	}
	return false
}

// Item is one stock-keeping unit. Quantity and PricePerUnit are mutated only
// by the transaction engine; PricePerUnit is the running weighted-average
// cost, recomputed on receive movements only.
type Item struct {
	ID            int64           `json:"id"`
	Barcode       string          `json:"barcode,omitempty"`
	Name          string          `json:"name"`
	Quantity      int64           `json:"quantity"`
	PricePerUnit  decimal.Decimal `json:"price_per_unit"`
	MinStockLevel int64           `json:"min_stock_level"`
	Location      string          `json:"location,omitempty"`
	Category      string          `json:"category,omitempty"`
	Description   string          `json:"description,omitempty"`
	ImageURL      string          `json:"image_url,omitempty"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// LedgerEntry is one immutable record of a quantity/value change against an
// item. PricePerUnit is the unit price in effect for this specific entry: the
// batch acquisition cost for receives, the current average otherwise.
type LedgerEntry struct {
	ID              int64           `json:"id"`
	ItemID          int64           `json:"item_id"`
	Type            MovementType    `json:"transaction_type"`
	QuantityChange  int64           `json:"quantity_change"`
	PricePerUnit    decimal.Decimal `json:"price_per_unit"`
	ValueChange     decimal.Decimal `json:"value_change"`
	UserID          string          `json:"user_id,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	TransactionDate time.Time       `json:"transaction_date"`
}

// ReceiveInput describes a stock receipt. The item is matched by barcode
// (name fallback) and created when absent. UnitPrice nil means "keep the
// current average" for an existing item and is rejected for a new one.
type ReceiveInput struct {
	Barcode       string
	Name          string
	Quantity      int64
	UnitPrice     *decimal.Decimal
	Location      string
	Category      string
	Description   string
	ImageURL      string
	MinStockLevel int64
	UserID        string
	Notes         string
}

// DispenseInput describes stock handed out against an existing item.
type DispenseInput struct {
	ItemID   int64
	Quantity int64
	UserID   string
	Notes    string
}

// ReturnInput describes previously dispensed stock coming back.
type ReturnInput struct {
	ItemID   int64
	Quantity int64
	UserID   string
	Notes    string
}

// AdjustInput describes a correction to an absolute counted quantity. The
// engine derives the signed delta; Notes must carry the reason.
type AdjustInput struct {
	ItemID      int64
	NewQuantity int64
	UserID      string
	Notes       string
}

// ItemEdit carries the metadata fields a direct edit may touch. Quantity and
// price are deliberately absent: all stock mutation goes through movements.
type ItemEdit struct {
	Name          string
	Barcode       string
	Location      string
	Category      string
	Description   string
	ImageURL      string
	MinStockLevel int64
}

// ListFilter filters catalog listings.
type ListFilter struct {
	Search  string
	Page    int
	PerPage int
}

// HistoryFilter selects a page of one item's ledger.
type HistoryFilter struct {
	ItemID  int64
	Page    int
	PerPage int
}

// ReportFilter bounds the transaction report.
type ReportFilter struct {
	From   time.Time
	To     time.Time
	Type   MovementType
	UserID string
	Limit  int
}

// ReportRow is one ledger entry joined with its item name and actor.
type ReportRow struct {
	ID              int64           `json:"id"`
	ItemName        string          `json:"item_name"`
	UserName        string          `json:"user_name"`
	Type            MovementType    `json:"transaction_type"`
	QuantityChange  int64           `json:"quantity_change"`
	PricePerUnit    decimal.Decimal `json:"price_per_unit"`
	ValueChange     decimal.Decimal `json:"value_change"`
	Notes           string          `json:"notes,omitempty"`
	TransactionDate time.Time       `json:"transaction_date"`
}

// DashboardStats are the headline KPI numbers over active items.
type DashboardStats struct {
	TotalStockValue  decimal.Decimal `json:"total_stock_value"`
	ItemsRunningLow  int64           `json:"items_running_low"`
	TotalUniqueItems int64           `json:"total_unique_items"`
	TotalQuantity    int64           `json:"total_quantity"`
}

// CategoryValue is the stock value held in one category.
type CategoryValue struct {
	Category string          `json:"category"`
	Value    decimal.Decimal `json:"value"`
}

// DispensedItem is an item ranked by dispensed volume in the report window.
type DispensedItem struct {
	Name           string `json:"name"`
	DispensedCount int64  `json:"dispensed_count"`
}

// Dashboard aggregates the read-only reporting views.
type Dashboard struct {
	Stats           DashboardStats  `json:"stats"`
	ValueByCategory []CategoryValue `json:"value_by_category"`
	MostDispensed   []DispensedItem `json:"most_dispensed"`
}

// Sentinel errors. Each wraps an httpx kind so the HTTP layer maps it to a
// status code without inspecting message text.
var (
	ErrItemNotFound         = fmt.Errorf("inventory: item not found: %w", httpx.ErrNotFound)
	ErrInsufficientStock    = fmt.Errorf("inventory: cannot dispense more than available stock: %w", httpx.ErrInsufficientStock)
	ErrInvalidQuantity      = fmt.Errorf("inventory: quantity must be positive: %w", httpx.ErrValidation)
	ErrInvalidUnitPrice     = fmt.Errorf("inventory: unit price must be zero or greater: %w", httpx.ErrValidation)
	ErrUnitPriceRequired    = fmt.Errorf("inventory: unit price is required when receiving a new item: %w", httpx.ErrValidation)
	ErrNameRequired         = fmt.Errorf("inventory: item name is required: %w", httpx.ErrValidation)
	ErrAdjustReasonRequired = fmt.Errorf("inventory: a reason is required for adjustments: %w", httpx.ErrValidation)
	ErrNoAdjustment         = fmt.Errorf("inventory: new quantity equals the current quantity: %w", httpx.ErrValidation)
	ErrBarcodeConflict      = fmt.Errorf("inventory: an item with this barcode already exists: %w", httpx.ErrConflict)
)
