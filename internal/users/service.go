package users

import (
	"context"
	"strings"

	"github.com/assetdesk/assetdesk/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	List(ctx context.Context, filter ListFilter) ([]User, error)
	Get(ctx context.Context, id string) (User, error)
	Create(ctx context.Context, user User) (User, error)
	Update(ctx context.Context, user User) (User, error)
	Delete(ctx context.Context, id string) error
}

// Service handles user business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns users matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]User, error) {
	return s.repo.List(ctx, filter)
}

// Get returns one user by id.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a new user with a generated id.
func (s *Service) Create(ctx context.Context, user User) (User, error) {
	user.ID = shared.NewID("USR")
	if user.Status == "" {
		user.Status = "active"
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	return s.repo.Create(ctx, user)
}

// Update rewrites an existing user's profile fields.
func (s *Service) Update(ctx context.Context, user User) (User, error) {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	return s.repo.Update(ctx, user)
}

// Delete removes a user record.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
