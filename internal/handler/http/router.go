package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/middleware"
)

// RouterConfig carries the settings the router's middleware needs.
type RouterConfig struct {
	ServiceName string
	CORS        middleware.CORSConfig
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(
	cfg RouterConfig,
	engine *catalog.Engine,
	feed NotificationFeed,
	stats StatsSource,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(chimw.Timeout(30 * time.Second))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	catalogHandler := NewCatalogHandler(engine, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", catalogHandler.ListProducts)
			r.Post("/refresh", catalogHandler.Refresh)
			r.Get("/{idOrSlug}", catalogHandler.GetProduct)
		})
		r.Get("/categories", catalogHandler.ListCategories)
		r.Get("/favorites", catalogHandler.ListFavorites)
		r.Get("/notifications", ListNotifications(feed))
		r.Get("/users/{id}/stats", UserStats(stats))
	})

	return r
}
