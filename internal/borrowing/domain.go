package borrowing

import (
	"fmt"
	"time"

	"github.com/assetdesk/assetdesk/internal/platform/httpx"
	"github.com/assetdesk/assetdesk/internal/shared"
)

// Record statuses.
const (
	StatusCheckedOut = "checked-out"
	StatusReturned   = "returned"
	StatusOverdue    = "overdue"
)

// Record is one loan of an asset to a borrower.
type Record struct {
	ID              string           `json:"id"`
	AssetID         string           `json:"assetId"`
	BorrowerName    string           `json:"borrowerName"`
	BorrowerContact string           `json:"borrowerContact,omitempty"`
	CheckoutDate    shared.DateOnly  `json:"checkoutDate"`
	DueDate         *shared.DateOnly `json:"dueDate,omitempty"`
	CheckinDate     *shared.DateOnly `json:"checkinDate,omitempty"`
	Status          string           `json:"status"`
	Location        string           `json:"location,omitempty"`
	Purpose         string           `json:"purpose,omitempty"`
	Notes           string           `json:"notes,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// CheckoutInput describes a checkout request.
type CheckoutInput struct {
	AssetID         string
	BorrowerName    string
	BorrowerContact string
	CheckoutDate    shared.DateOnly
	DueDate         *shared.DateOnly
	Location        string
	Purpose         string
	Notes           string
}

// ListFilter narrows a borrow record listing.
type ListFilter struct {
	Status  string
	AssetID string
}

var (
	ErrRecordNotFound    = fmt.Errorf("borrow record: %w", httpx.ErrNotFound)
	ErrAssetNotFound     = fmt.Errorf("asset: %w", httpx.ErrNotFound)
	ErrAssetNotLoanable  = fmt.Errorf("asset is not available for borrowing: %w", httpx.ErrValidation)
	ErrAlreadyCheckedOut = fmt.Errorf("asset is already checked out: %w", httpx.ErrConflict)
	ErrAlreadyReturned   = fmt.Errorf("record is already checked in: %w", httpx.ErrValidation)
	ErrDueBeforeCheckout = fmt.Errorf("due date must be on or after checkout date: %w", httpx.ErrValidation)
	ErrBorrowerRequired  = fmt.Errorf("borrower is required: %w", httpx.ErrValidation)
)
