package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/supplyhub/supplyhub/internal/catalog/categories"
	"github.com/supplyhub/supplyhub/internal/catalog/items"
	"github.com/supplyhub/supplyhub/internal/catalog/suppliers"
	"github.com/supplyhub/supplyhub/internal/docnum"
	"github.com/supplyhub/supplyhub/internal/issuance"
	"github.com/supplyhub/supplyhub/internal/observability"
	"github.com/supplyhub/supplyhub/internal/orders"
	"github.com/supplyhub/supplyhub/internal/receiving"
	"github.com/supplyhub/supplyhub/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config
	Pool   *pgxpool.Pool

	OrdersHandler     *orders.Handler
	DocnumHandler     *docnum.Handler
	IssuanceHandler   *issuance.Handler
	ReceivingHandler  *receiving.Handler
	ItemsHandler      *items.Handler
	SuppliersHandler  *suppliers.Handler
	CategoriesHandler *categories.Handler
	JobsHandler       *jobs.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with SupplyHub defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)
	if params.Metrics != nil {
		r.Use(params.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if params.Pool != nil {
			if err := params.Pool.Ping(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(api chi.Router) {
		if params.OrdersHandler != nil {
			params.OrdersHandler.MountRoutes(api)
		}
		if params.DocnumHandler != nil {
			params.DocnumHandler.MountRoutes(api)
		}
		if params.IssuanceHandler != nil {
			params.IssuanceHandler.MountRoutes(api)
		}
		if params.ReceivingHandler != nil {
			params.ReceivingHandler.MountRoutes(api)
		}
		if params.ItemsHandler != nil {
			params.ItemsHandler.MountRoutes(api)
		}
		if params.SuppliersHandler != nil {
			params.SuppliersHandler.MountRoutes(api)
		}
		if params.CategoriesHandler != nil {
			params.CategoriesHandler.MountRoutes(api)
		}
		if params.JobsHandler != nil {
			api.Route("/jobs", params.JobsHandler.MountRoutes)
		}
	})

	return r
}
