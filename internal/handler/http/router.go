package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mpro775/tagdod-promo-engine/internal/service"
	"github.com/mpro775/tagdod-promo-engine/pkg/health"
	"github.com/mpro775/tagdod-promo-engine/pkg/middleware"
)

// NewRouter creates a chi router with all promo engine routes registered.
func NewRouter(
	pricingService *service.PricingService,
	couponService *service.CouponService,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(CORS)
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("promo"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	pricingHandler := NewPricingHandler(pricingService, logger)
	couponHandler := NewCouponHandler(couponService, logger)

	r.Route("/api/v1/pricing", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/quote", pricingHandler.Quote)
		r.Post("/line", pricingHandler.PriceLine)
	})

	r.Route("/api/v1/coupons", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/validate", couponHandler.Validate)
		r.Post("/redeem", couponHandler.Redeem)
		r.Post("/release", couponHandler.Release)
	})

	return r
}
