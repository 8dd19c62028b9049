package patches

import (
	"context"

	"github.com/assetdesk/assetdesk/internal/shared"
)

// RepositoryPort defines data access methods for patch records.
type RepositoryPort interface {
	List(ctx context.Context, filter ListFilter) ([]Record, error)
	Get(ctx context.Context, id string) (Record, error)
	Create(ctx context.Context, record Record) (Record, error)
	Update(ctx context.Context, record Record) (Record, error)
	Delete(ctx context.Context, id string) error
}

// Service handles patch posture business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns patch records matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Record, error) {
	return s.repo.List(ctx, filter)
}

// Get returns one patch record by id.
func (s *Service) Get(ctx context.Context, id string) (Record, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a patch snapshot with a generated id.
func (s *Service) Create(ctx context.Context, record Record) (Record, error) {
	if err := validate(record); err != nil {
		return Record{}, err
	}
	record.ID = shared.NewID("PATCH")
	if record.PatchStatus == "" {
		record.PatchStatus = StatusUnknown
	}
	return s.repo.Create(ctx, record)
}

// Update rewrites an existing patch record.
func (s *Service) Update(ctx context.Context, record Record) (Record, error) {
	if err := validate(record); err != nil {
		return Record{}, err
	}
	return s.repo.Update(ctx, record)
}

// Delete removes a patch record.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func validate(record Record) error {
	if record.PatchStatus != "" && !validStatus(record.PatchStatus) {
		return ErrInvalidStatus
	}
	if record.Vulnerabilities < 0 || record.PendingUpdates < 0 ||
		record.CriticalUpdates < 0 || record.SecurityUpdates < 0 {
		return ErrNegativeCount
	}
	return nil
}
