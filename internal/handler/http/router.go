package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oakmart/review-service/internal/event"
	"github.com/oakmart/review-service/internal/repository"
	"github.com/oakmart/review-service/internal/service"
	"github.com/oakmart/review-service/pkg/health"
	"github.com/oakmart/review-service/pkg/middleware"
)

// NewRouter creates a chi router with all review service routes registered.
func NewRouter(
	reviewService *service.ReviewService,
	replicaService event.ReplicaApplier,
	replicas repository.ReplicaStore,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics("review"))

	// Health check and metrics endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Pub/sub subscription discovery and event delivery
	eventHandler := NewEventHandler(replicaService, logger)
	r.Get("/dapr/subscribe", eventHandler.ListSubscriptions)
	r.Post("/events", eventHandler.OnTopicEvent)

	// Review API endpoints
	reviewHandler := NewReviewHandler(reviewService, logger)

	r.Route("/api/v1/reviews", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Get("/", reviewHandler.ListReviews)
		r.Get("/{id}", reviewHandler.GetReview)
		r.Post("/", reviewHandler.CreateReview)
		r.Patch("/{id}", reviewHandler.UpdateReview)
		r.Delete("/{id}", reviewHandler.DeleteReview)
	})

	// Entity resolution endpoints for cross-service references
	entityHandler := NewEntityHandler(replicas, reviewService, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Get("/users/{id}", entityHandler.GetUser)
		r.Get("/users/{id}/reviews", entityHandler.ListUserReviews)
		r.Get("/products/{id}", entityHandler.GetProduct)
		r.Get("/product-variants/{id}", entityHandler.GetProductVariant)
		r.Get("/product-variants/{id}/reviews", entityHandler.ListProductVariantReviews)
	})

	return r
}
