package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DeyanBora/ElasticSearch.API/internal/docs"
	"github.com/DeyanBora/ElasticSearch.API/internal/service"
	"github.com/DeyanBora/ElasticSearch.API/pkg/health"
	"github.com/DeyanBora/ElasticSearch.API/pkg/middleware"
)

// RouterConfig holds the transport settings that vary per deployment.
type RouterConfig struct {
	ServiceName    string
	CORS           middleware.CORSConfig
	RequestTimeout time.Duration
	// PprofCIDRs enables /debug/pprof for the listed networks when not empty.
	PprofCIDRs []string
}

// NewRouter creates a chi router with all product routes registered.
func NewRouter(
	productService *service.ProductService,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(cfg.RequestTimeout))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/swagger/doc.json", docs.ServeSpec)
	r.Get("/swagger", http.RedirectHandler("/swagger/", http.StatusMovedPermanently).ServeHTTP)
	r.Get("/swagger/", docs.ServeUI)

	if len(cfg.PprofCIDRs) > 0 {
		middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)
	}

	productHandler := NewProductHandler(productService, logger)

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", productHandler.ListProducts)
		r.Get("/{id}", productHandler.GetProduct)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireJSON)
			r.Post("/", productHandler.CreateProduct)
			r.Post("/bulk", productHandler.BulkAddProducts)
			r.Put("/{id}", productHandler.UpdateProduct)
			r.Delete("/{id}", productHandler.DeleteProduct)
		})
	})

	return r
}
