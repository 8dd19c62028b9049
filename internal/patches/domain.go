package patches

import (
	"fmt"
	"time"

	"github.com/assetdesk/assetdesk/internal/platform/httpx"
	"github.com/assetdesk/assetdesk/internal/shared"
)

// Patch statuses.
const (
	StatusUpToDate    = "up-to-date"
	StatusNeedsReview = "needs-review"
	StatusOutOfDate   = "out-of-date"
	StatusUnknown     = "unknown"
)

// Record is the patch posture snapshot for one asset.
type Record struct {
	ID              string           `json:"id"`
	AssetID         string           `json:"assetId"`
	PatchStatus     string           `json:"patchStatus"`
	LastPatchCheck  *shared.DateOnly `json:"lastPatchCheck,omitempty"`
	OperatingSystem string           `json:"operatingSystem,omitempty"`
	Vulnerabilities int              `json:"vulnerabilities"`
	PendingUpdates  int              `json:"pendingUpdates"`
	CriticalUpdates int              `json:"criticalUpdates"`
	SecurityUpdates int              `json:"securityUpdates"`
	Notes           string           `json:"notes,omitempty"`
	NextCheckDate   *shared.DateOnly `json:"nextCheckDate,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// ListFilter narrows a patch record listing.
type ListFilter struct {
	Status       string
	AssetID      string
	CriticalOnly bool
}

var (
	ErrRecordNotFound = fmt.Errorf("patch record: %w", httpx.ErrNotFound)
	ErrInvalidStatus  = fmt.Errorf("unknown patch status: %w", httpx.ErrValidation)
	ErrNegativeCount  = fmt.Errorf("update counts cannot be negative: %w", httpx.ErrValidation)
)

func validStatus(status string) bool {
	switch status {
	case StatusUpToDate, StatusNeedsReview, StatusOutOfDate, StatusUnknown:
		return true
	}
	return false
}
