package assets

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/assetdesk/assetdesk/internal/platform/httpx"
	"github.com/assetdesk/assetdesk/internal/shared"
)

// Asset statuses. A loan through borrowing moves an asset between
// StatusInStock and StatusInUse; the other two are set by hand.
const (
	StatusInStock     = "in-stock"
	StatusInUse       = "in-use"
	StatusMaintenance = "maintenance"
	StatusRetired     = "retired"
)

// Asset is a tracked hardware asset.
type Asset struct {
	ID              string           `json:"id"`
	AssetTag        string           `json:"assetTag"`
	Type            string           `json:"type"`
	Manufacturer    string           `json:"manufacturer,omitempty"`
	Model           string           `json:"model,omitempty"`
	SerialNumber    string           `json:"serialNumber,omitempty"`
	PurchaseDate    *shared.DateOnly `json:"purchaseDate,omitempty"`
	PurchasePrice   *decimal.Decimal `json:"purchasePrice,omitempty"`
	Supplier        string           `json:"supplier,omitempty"`
	WarrantyExpiry  *shared.DateOnly `json:"warrantyExpiry,omitempty"`
	AssignedUser    string           `json:"assignedUser,omitempty"`
	Location        string           `json:"location,omitempty"`
	Department      string           `json:"department,omitempty"`
	Status          string           `json:"status"`
	OperatingSystem string           `json:"operatingSystem,omitempty"`
	Processor       string           `json:"processor,omitempty"`
	Memory          string           `json:"memory,omitempty"`
	Storage         string           `json:"storage,omitempty"`
	Hostname        string           `json:"hostname,omitempty"`
	IPAddress       string           `json:"ipAddress,omitempty"`
	MACAddress      string           `json:"macAddress,omitempty"`
	IsLoanable      bool             `json:"isLoanable"`
	Condition       string           `json:"condition,omitempty"`
	Description     string           `json:"description,omitempty"`
	Notes           string           `json:"notes,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// HistoryEvent is one field-level change recorded against an asset.
type HistoryEvent struct {
	ID              int64     `json:"id"`
	AssetID         string    `json:"assetId"`
	Action          string    `json:"action"`
	FieldChanged    string    `json:"fieldChanged,omitempty"`
	OldValue        string    `json:"oldValue,omitempty"`
	NewValue        string    `json:"newValue,omitempty"`
	ChangeDate      time.Time `json:"changeDate"`
	ChangedByUserID string    `json:"changedByUserId,omitempty"`
}

// ListFilter narrows an asset listing.
type ListFilter struct {
	Search string
	Status string
	Type   string
}

// StatusCounts is the fleet headcount by lifecycle status.
type StatusCounts struct {
	Total       int `json:"total"`
	InStock     int `json:"inStock"`
	InUse       int `json:"inUse"`
	Maintenance int `json:"maintenance"`
	Retired     int `json:"retired"`
}

// TypeCount is the number of assets of one hardware type.
type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// LoanCounts summarises open loans against the fleet.
type LoanCounts struct {
	CheckedOut int `json:"checkedOut"`
	Overdue    int `json:"overdue"`
}

// WarrantySummary is one asset whose warranty lapses inside the window.
type WarrantySummary struct {
	ID             string          `json:"id"`
	AssetTag       string          `json:"assetTag"`
	Model          string          `json:"model,omitempty"`
	WarrantyExpiry shared.DateOnly `json:"warrantyExpiry"`
	DaysLeft       int             `json:"daysLeft"`
}

// FleetStats is the asset dashboard payload. Computed per request; the fleet
// changes far less often than stock does.
type FleetStats struct {
	StatusCounts       StatusCounts      `json:"statusCounts"`
	TypeCounts         []TypeCount       `json:"typeCounts"`
	Loans              LoanCounts        `json:"loans"`
	ExpiringWarranties []WarrantySummary `json:"expiringWarranties"`
	DaysWindow         int               `json:"daysWindow"`
}

var (
	ErrAssetNotFound = fmt.Errorf("asset: %w", httpx.ErrNotFound)
	ErrAssetTagTaken = fmt.Errorf("asset tag already in use: %w", httpx.ErrConflict)
	ErrInvalidStatus = fmt.Errorf("unknown asset status: %w", httpx.ErrValidation)
)

func validStatus(status string) bool {
	switch status {
	case StatusInStock, StatusInUse, StatusMaintenance, StatusRetired:
		return true
	}
	return false
}
