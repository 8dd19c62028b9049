package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/assetdesk/assetdesk/internal/assets"
	"github.com/assetdesk/assetdesk/internal/borrowing"
	"github.com/assetdesk/assetdesk/internal/inventory"
	"github.com/assetdesk/assetdesk/internal/observability"
	"github.com/assetdesk/assetdesk/internal/patches"
	"github.com/assetdesk/assetdesk/internal/software"
	"github.com/assetdesk/assetdesk/internal/users"
	"github.com/assetdesk/assetdesk/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	InventoryHandler *inventory.Handler
	AssetsHandler    *assets.Handler
	BorrowingHandler *borrowing.Handler
	SoftwareHandler  *software.Handler
	UsersHandler     *users.Handler
	PatchesHandler   *patches.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router serving the JSON API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/inventory", params.InventoryHandler.MountRoutes)
		if params.AssetsHandler != nil {
			r.Route("/assets", params.AssetsHandler.MountRoutes)
		}
		if params.BorrowingHandler != nil {
			r.Route("/borrowing", params.BorrowingHandler.MountRoutes)
		}
		if params.SoftwareHandler != nil {
			r.Route("/software", params.SoftwareHandler.MountRoutes)
		}
		if params.UsersHandler != nil {
			r.Route("/users", params.UsersHandler.MountRoutes)
		}
		if params.PatchesHandler != nil {
			r.Route("/patches", params.PatchesHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}
