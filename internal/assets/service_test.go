package assets

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	assets  map[string]Asset
	history []HistoryEvent
	window  int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{assets: make(map[string]Asset)}
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Asset, error) {
	var out []Asset
	for _, asset := range r.assets {
		out = append(out, asset)
	}
	return out, nil
}

func (r *memoryRepo) Get(ctx context.Context, id string) (Asset, error) {
	asset, ok := r.assets[id]
	if !ok {
		return Asset{}, ErrAssetNotFound
	}
	return asset, nil
}

func (r *memoryRepo) Create(ctx context.Context, asset Asset) (Asset, error) {
	for _, existing := range r.assets {
		if existing.AssetTag == asset.AssetTag {
			return Asset{}, ErrAssetTagTaken
		}
	}
	r.assets[asset.ID] = asset
	return asset, nil
}

func (r *memoryRepo) Update(ctx context.Context, asset Asset) (Asset, error) {
	if _, ok := r.assets[asset.ID]; !ok {
		return Asset{}, ErrAssetNotFound
	}
	r.assets[asset.ID] = asset
	return asset, nil
}

func (r *memoryRepo) SetStatus(ctx context.Context, id, status string) error {
	asset, ok := r.assets[id]
	if !ok {
		return ErrAssetNotFound
	}
	asset.Status = status
	r.assets[id] = asset
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.assets[id]; !ok {
		return ErrAssetNotFound
	}
	delete(r.assets, id)
	return nil
}

func (r *memoryRepo) History(ctx context.Context, assetID string) ([]HistoryEvent, error) {
	var out []HistoryEvent
	for _, ev := range r.history {
		if ev.AssetID == assetID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (r *memoryRepo) RecordHistory(ctx context.Context, events []HistoryEvent) error {
	r.history = append(r.history, events...)
	return nil
}

func (r *memoryRepo) FleetStats(ctx context.Context, windowDays int) (FleetStats, error) {
	r.window = windowDays
	stats := FleetStats{DaysWindow: windowDays}
	for _, asset := range r.assets {
		stats.StatusCounts.Total++
		switch asset.Status {
		case StatusInStock:
			stats.StatusCounts.InStock++
		case StatusInUse:
			stats.StatusCounts.InUse++
		case StatusMaintenance:
			stats.StatusCounts.Maintenance++
		case StatusRetired:
			stats.StatusCounts.Retired++
		}
	}
	return stats, nil
}

func TestCreateUsesAssetTagAsID(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, Asset{AssetTag: "LT-0042", Type: "laptop"}, "admin")
	require.NoError(t, err)
	require.Equal(t, "LT-0042", created.ID)
	require.Equal(t, StatusInStock, created.Status)

	events, err := svc.History(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "created", events[0].Action)
}

func TestCreateGeneratesTagWhenMissing(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	created, err := svc.Create(context.Background(), Asset{AssetTag: "  ", Type: "monitor"}, "admin")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(created.AssetTag, "AST-"), "got %q", created.AssetTag)
	require.Equal(t, created.AssetTag, created.ID)
}

func TestCreateRejectsUnknownStatus(t *testing.T) {
	svc := NewService(newMemoryRepo())

	_, err := svc.Create(context.Background(), Asset{AssetTag: "LT-1", Type: "laptop", Status: "lost"}, "admin")
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestUpdateRecordsFieldChanges(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, Asset{AssetTag: "LT-7", Type: "laptop", Location: "HQ"}, "admin")
	require.NoError(t, err)

	updated := created
	updated.Location = "Warehouse"
	updated.Status = StatusMaintenance
	_, err = svc.Update(ctx, updated, "admin")
	require.NoError(t, err)

	events, err := svc.History(ctx, created.ID)
	require.NoError(t, err)

	changed := map[string]HistoryEvent{}
	for _, ev := range events {
		if ev.Action == "updated" {
			changed[ev.FieldChanged] = ev
		}
	}
	require.Len(t, changed, 2)
	require.Equal(t, "HQ", changed["location"].OldValue)
	require.Equal(t, "Warehouse", changed["location"].NewValue)
	require.Equal(t, StatusMaintenance, changed["status"].NewValue)
}

func TestDashboardClampsWindow(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, Asset{AssetTag: "LT-1", Type: "laptop"}, "admin")
	require.NoError(t, err)

	stats, err := svc.Dashboard(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, 60, stats.DaysWindow)
	require.Equal(t, 1, stats.StatusCounts.Total)
	require.Equal(t, 1, stats.StatusCounts.InStock)

	_, err = svc.Dashboard(ctx, 1000)
	require.NoError(t, err)
	require.Equal(t, 365, repo.window)
}
