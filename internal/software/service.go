package software

import (
	"context"

	"github.com/assetdesk/assetdesk/internal/shared"
)

// RepositoryPort defines data access methods for software licenses.
type RepositoryPort interface {
	List(ctx context.Context, filter ListFilter) ([]License, error)
	Get(ctx context.Context, id string) (License, error)
	Create(ctx context.Context, license License) (License, error)
	Update(ctx context.Context, license License) (License, error)
	Delete(ctx context.Context, id string) error
}

// Service handles software license business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns licenses matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]License, error) {
	return s.repo.List(ctx, filter)
}

// Get returns one license by id.
func (s *Service) Get(ctx context.Context, id string) (License, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a license pool with a generated id.
func (s *Service) Create(ctx context.Context, license License) (License, error) {
	if err := validateSeats(license); err != nil {
		return License{}, err
	}
	license.ID = shared.NewID("SW")
	if license.Status == "" {
		license.Status = "active"
	}
	return s.repo.Create(ctx, license)
}

// Update rewrites an existing license.
func (s *Service) Update(ctx context.Context, license License) (License, error) {
	if err := validateSeats(license); err != nil {
		return License{}, err
	}
	return s.repo.Update(ctx, license)
}

// Delete removes a license record.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func validateSeats(license License) error {
	if license.LicensesTotal < 0 || license.LicensesAssigned < 0 {
		return ErrNegativeSeatCount
	}
	if license.LicensesAssigned > license.LicensesTotal {
		return ErrSeatsExceeded
	}
	return nil
}
