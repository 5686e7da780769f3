package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pannatron/Bakugan-Dashboard-sub000/internal/service"
	"github.com/pannatron/Bakugan-Dashboard-sub000/pkg/health"
	"github.com/pannatron/Bakugan-Dashboard-sub000/pkg/middleware"
)

// Component is the service name used for metrics and traces.
const Component = "catalog-service"

// RouterConfig holds the tunable parts of the HTTP surface.
type RouterConfig struct {
	CORS middleware.CORSConfig

	// ReadMaxAge is the Cache-Control max-age, in seconds, for GET
	// responses under /api.
	ReadMaxAge int

	// WriteRPS and WriteBurst rate-limit admin writes per client IP.
	// WriteRPS <= 0 disables the limit.
	WriteRPS   float64
	WriteBurst int
}

// NewRouter creates a chi router with all catalog routes registered.
func NewRouter(
	catalogService *service.CatalogService,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Tracing(Component))
	r.Use(middleware.PrometheusMetrics(Component))

	// Health check and metrics endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	h := NewCatalogHandler(catalogService, logger)
	writeLimit := middleware.RateLimit(cfg.WriteRPS, cfg.WriteBurst, logger)

	r.Route("/api/bakugan", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.CacheControl(cfg.ReadMaxAge))

			r.Get("/", h.Search)
			r.Get("/{id}", h.Get)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.NoStore)
			r.Use(writeLimit)

			r.Post("/", h.Create)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
			r.Post("/{id}/prices", h.RecordPrice)
			r.Delete("/{id}/prices/{priceId}", h.DeletePrice)
		})
	})

	r.With(middleware.NoStore, writeLimit).Post("/admin/reindex", h.Reindex)

	return r
}
