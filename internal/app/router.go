package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/klinika/klinika/internal/auth"
	"github.com/klinika/klinika/internal/inventory"
	"github.com/klinika/klinika/internal/observability"
	"github.com/klinika/klinika/internal/parties"
	"github.com/klinika/klinika/internal/sales"
	"github.com/klinika/klinika/internal/sgk"
	"github.com/klinika/klinika/internal/shared"
	"github.com/klinika/klinika/jobs"
	"github.com/klinika/klinika/report"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	SessionManager   *shared.SessionManager
	CSRFManager      *shared.CSRFManager
	AuthHandler      *auth.Handler
	PartiesHandler   *parties.Handler
	InventoryHandler *inventory.Handler
	SalesHandler     *sales.Handler
	SGKHandler       *sgk.Handler
	ReportHandler    *report.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router for the gateway.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
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

	r.Route("/api/v1", func(api chi.Router) {
		api.Route("/auth", func(ar chi.Router) {
			params.AuthHandler.MountRoutes(ar)
		})

		if params.JobHandler != nil {
			api.Route("/jobs", func(jr chi.Router) {
				jr.Use(RequireAuth)
				params.JobHandler.MountRoutes(jr)
			})
		}

		api.Group(func(private chi.Router) {
			private.Use(RequireAuth)
			params.PartiesHandler.MountRoutes(private)
			params.InventoryHandler.MountRoutes(private)
			params.SalesHandler.MountRoutes(private)
			params.SGKHandler.MountRoutes(private)
			if params.ReportHandler != nil {
				private.Route("/reports", func(rr chi.Router) {
					params.ReportHandler.MountRoutes(rr)
				})
			}
		})
	})

	return r
}
