package users

import (
	"fmt"
	"time"

	"github.com/assetdesk/assetdesk/internal/platform/httpx"
	"github.com/assetdesk/assetdesk/internal/shared"
)

// User is an employee record assets and stock movements are attributed to.
type User struct {
	ID         string           `json:"id"`
	FirstName  string           `json:"firstName"`
	LastName   string           `json:"lastName"`
	Email      string           `json:"email"`
	Phone      string           `json:"phone,omitempty"`
	Department string           `json:"department,omitempty"`
	Role       string           `json:"role,omitempty"`
	Location   string           `json:"location,omitempty"`
	EmployeeID string           `json:"employeeId,omitempty"`
	Manager    string           `json:"manager,omitempty"`
	StartDate  *shared.DateOnly `json:"startDate,omitempty"`
	Status     string           `json:"status"`
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`
}

// ListFilter narrows a user listing.
type ListFilter struct {
	Search     string
	Status     string
	Department string
}

var (
	ErrUserNotFound  = fmt.Errorf("user: %w", httpx.ErrNotFound)
	ErrEmailConflict = fmt.Errorf("user email already registered: %w", httpx.ErrConflict)
)
