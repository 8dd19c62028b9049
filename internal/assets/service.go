package assets

import (
	"context"
	"strings"
	"time"

	"github.com/assetdesk/assetdesk/internal/shared"
)

// RepositoryPort defines data access methods for assets.
type RepositoryPort interface {
	List(ctx context.Context, filter ListFilter) ([]Asset, error)
	Get(ctx context.Context, id string) (Asset, error)
	Create(ctx context.Context, asset Asset) (Asset, error)
	Update(ctx context.Context, asset Asset) (Asset, error)
	SetStatus(ctx context.Context, id, status string) error
	Delete(ctx context.Context, id string) error
	History(ctx context.Context, assetID string) ([]HistoryEvent, error)
	RecordHistory(ctx context.Context, events []HistoryEvent) error
	FleetStats(ctx context.Context, windowDays int) (FleetStats, error)
}

// Service handles asset business logic and keeps the field-level change
// history current.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns assets matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Asset, error) {
	return s.repo.List(ctx, filter)
}

// Get returns one asset by id.
func (s *Service) Get(ctx context.Context, id string) (Asset, error) {
	return s.repo.Get(ctx, id)
}

// Create registers an asset. The asset tag doubles as the id when present,
// matching what physical labels already say; a missing tag gets a generated
// one.
func (s *Service) Create(ctx context.Context, asset Asset, actor string) (Asset, error) {
	asset.AssetTag = strings.TrimSpace(asset.AssetTag)
	if asset.AssetTag == "" {
		asset.AssetTag = shared.NewID("AST")
	}
	asset.ID = asset.AssetTag
	if asset.Status == "" {
		asset.Status = StatusInStock
	}
	if !validStatus(asset.Status) {
		return Asset{}, ErrInvalidStatus
	}
	created, err := s.repo.Create(ctx, asset)
	if err != nil {
		return Asset{}, err
	}
	_ = s.repo.RecordHistory(ctx, []HistoryEvent{{
		AssetID:         created.ID,
		Action:          "created",
		ChangeDate:      time.Now().UTC(),
		ChangedByUserID: actor,
	}})
	return created, nil
}

// Update rewrites an asset and records which fields changed.
func (s *Service) Update(ctx context.Context, asset Asset, actor string) (Asset, error) {
	if asset.Status != "" && !validStatus(asset.Status) {
		return Asset{}, ErrInvalidStatus
	}
	before, err := s.repo.Get(ctx, asset.ID)
	if err != nil {
		return Asset{}, err
	}
	updated, err := s.repo.Update(ctx, asset)
	if err != nil {
		return Asset{}, err
	}
	if events := diffAssets(before, updated, actor); len(events) > 0 {
		_ = s.repo.RecordHistory(ctx, events)
	}
	return updated, nil
}

// SetStatus flips an asset's status and records the transition. Borrowing
// uses this when checking assets out and back in.
func (s *Service) SetStatus(ctx context.Context, id, status, actor string) error {
	if !validStatus(status) {
		return ErrInvalidStatus
	}
	before, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if before.Status == status {
		return nil
	}
	if err := s.repo.SetStatus(ctx, id, status); err != nil {
		return err
	}
	_ = s.repo.RecordHistory(ctx, []HistoryEvent{{
		AssetID:         id,
		Action:          "status-changed",
		FieldChanged:    "status",
		OldValue:        before.Status,
		NewValue:        status,
		ChangeDate:      time.Now().UTC(),
		ChangedByUserID: actor,
	}})
	return nil
}

// Delete removes an asset.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Dashboard returns fleet-wide stats. days bounds the warranty window and is
// clamped to [1, 365], defaulting to 60.
func (s *Service) Dashboard(ctx context.Context, days int) (FleetStats, error) {
	if days <= 0 {
		days = 60
	}
	if days > 365 {
		days = 365
	}
	return s.repo.FleetStats(ctx, days)
}

// History returns the asset's change log.
func (s *Service) History(ctx context.Context, id string) ([]HistoryEvent, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.History(ctx, id)
}

func diffAssets(before, after Asset, actor string) []HistoryEvent {
	now := time.Now().UTC()
	fields := []struct {
		name     string
		old, new string
	}{
		{"asset_tag", before.AssetTag, after.AssetTag},
		{"type", before.Type, after.Type},
		{"manufacturer", before.Manufacturer, after.Manufacturer},
		{"model", before.Model, after.Model},
		{"serial_number", before.SerialNumber, after.SerialNumber},
		{"status", before.Status, after.Status},
		{"assigned_user", before.AssignedUser, after.AssignedUser},
		{"location", before.Location, after.Location},
		{"department", before.Department, after.Department},
		{"condition", before.Condition, after.Condition},
		{"purchase_date", dateString(before.PurchaseDate), dateString(after.PurchaseDate)},
		{"warranty_expiry", dateString(before.WarrantyExpiry), dateString(after.WarrantyExpiry)},
	}
	var events []HistoryEvent
	for _, f := range fields {
		if f.old == f.new {
			continue
		}
		events = append(events, HistoryEvent{
			AssetID:         after.ID,
			Action:          "updated",
			FieldChanged:    f.name,
			OldValue:        f.old,
			NewValue:        f.new,
			ChangeDate:      now,
			ChangedByUserID: actor,
		})
	}
	return events
}

func dateString(d *shared.DateOnly) string {
	if d == nil {
		return ""
	}
	return d.String()
}
