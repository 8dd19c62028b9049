package software

import (
	"fmt"
	"time"

	"github.com/assetdesk/assetdesk/internal/platform/httpx"
	"github.com/assetdesk/assetdesk/internal/shared"
)

// License is one software license pool.
type License struct {
	ID               string           `json:"id"`
	SoftwareName     string           `json:"softwareName"`
	Publisher        string           `json:"publisher,omitempty"`
	Version          string           `json:"version,omitempty"`
	LicenseKey       string           `json:"licenseKey,omitempty"`
	LicenseType      string           `json:"licenseType,omitempty"`
	PurchaseDate     *shared.DateOnly `json:"purchaseDate,omitempty"`
	ExpiryDate       *shared.DateOnly `json:"expiryDate,omitempty"`
	LicensesTotal    int              `json:"licensesTotal"`
	LicensesAssigned int              `json:"licensesAssigned"`
	Category         string           `json:"category,omitempty"`
	Description      string           `json:"description,omitempty"`
	Notes            string           `json:"notes,omitempty"`
	Status           string           `json:"status"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// ListFilter narrows a license listing.
type ListFilter struct {
	Search string
	Status string
	Type   string
}

var (
	ErrLicenseNotFound   = fmt.Errorf("software license: %w", httpx.ErrNotFound)
	ErrLicenseKeyTaken   = fmt.Errorf("license key already registered: %w", httpx.ErrConflict)
	ErrSeatsExceeded     = fmt.Errorf("assigned seats exceed total licenses: %w", httpx.ErrValidation)
	ErrNegativeSeatCount = fmt.Errorf("seat counts cannot be negative: %w", httpx.ErrValidation)
)
