package inventory

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	dispensedWindow = 90 * 24 * time.Hour
	topN            = 5
)

// ReportsRepositoryPort abstracts the read-only aggregation queries.
type ReportsRepositoryPort interface {
	DashboardStats(ctx context.Context) (DashboardStats, error)
	ValueByCategory(ctx context.Context, limit int) ([]CategoryValue, error)
	MostDispensed(ctx context.Context, window time.Duration, limit int) ([]DispensedItem, error)
	Report(ctx context.Context, filter ReportFilter) ([]ReportRow, error)
}

// Reports serves the read-only aggregations over catalog and ledger. The
// dashboard is cached and singleflight-guarded; it reflects committed state
// at query time, nothing stronger.
type Reports struct {
	repo  ReportsRepositoryPort
	cache *Cache
	group singleflight.Group
}

// NewReports builds Reports. cache may be nil.
func NewReports(repo ReportsRepositoryPort, cache *Cache) *Reports {
	return &Reports{repo: repo, cache: cache}
}

// Dashboard returns the KPI aggregate, served from cache when warm.
func (r *Reports) Dashboard(ctx context.Context) (Dashboard, error) {
	key, err := r.cache.BuildKey(ctx, "inventory", "dashboard")
	if err != nil {
		return Dashboard{}, err
	}

	resultChan := r.group.DoChan(key, func() (any, error) {
		var dashboard Dashboard
		err := r.cache.FetchJSON(ctx, key, &dashboard, func(ctx context.Context) (any, error) {
			return r.buildDashboard(ctx)
		})
		return dashboard, err
	})

	select {
	case <-ctx.Done():
		return Dashboard{}, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return Dashboard{}, res.Err
		}
		return res.Val.(Dashboard), nil
	}
}

// Report returns the filtered transaction report. Never cached: it is the
// audit surface and filters are too varied to be worth keying.
func (r *Reports) Report(ctx context.Context, filter ReportFilter) ([]ReportRow, error) {
	return r.repo.Report(ctx, filter)
}

func (r *Reports) buildDashboard(ctx context.Context) (Dashboard, error) {
	stats, err := r.repo.DashboardStats(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	byCategory, err := r.repo.ValueByCategory(ctx, topN)
	if err != nil {
		return Dashboard{}, err
	}
	dispensed, err := r.repo.MostDispensed(ctx, dispensedWindow, topN)
	if err != nil {
		return Dashboard{}, err
	}
	return Dashboard{Stats: stats, ValueByCategory: byCategory, MostDispensed: dispensed}, nil
}
