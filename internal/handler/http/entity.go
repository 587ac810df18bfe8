package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/oakmart/review-service/internal/domain"
	"github.com/oakmart/review-service/internal/repository"
	"github.com/oakmart/review-service/internal/service"
	apperrors "github.com/oakmart/review-service/pkg/errors"
	"github.com/oakmart/review-service/pkg/httputil"
	"github.com/oakmart/review-service/pkg/pagination"
)

// EntityHandler resolves replicated foreign entities by ID, the lookup other
// services use to follow references into this one.
type EntityHandler struct {
	replicas repository.ReplicaStore
	reviews  *service.ReviewService
	logger   *slog.Logger
}

// NewEntityHandler creates a new entity resolution HTTP handler.
func NewEntityHandler(replicas repository.ReplicaStore, reviews *service.ReviewService, logger *slog.Logger) *EntityHandler {
	return &EntityHandler{
		replicas: replicas,
		reviews:  reviews,
		logger:   logger,
	}
}

// ProductVariantResponse is a product variant stub enriched with its average
// rating over visible reviews. AverageRating is null when the variant has no
// visible reviews.
type ProductVariantResponse struct {
	domain.ProductVariantStub
	AverageRating *float32 `json:"average_rating"`
}

// GetUser handles GET /api/v1/users/{id}.
func (h *EntityHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	exists, err := h.replicas.Exists(r.Context(), domain.KindUser, id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if !exists {
		httputil.WriteError(w, r, apperrors.NotFound("user", id.String()), h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: domain.UserStub{ID: id}})
}

// GetProduct handles GET /api/v1/products/{id}.
func (h *EntityHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	exists, err := h.replicas.Exists(r.Context(), domain.KindProduct, id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if !exists {
		httputil.WriteError(w, r, apperrors.NotFound("product", id.String()), h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: domain.ProductStub{ID: id}})
}

// GetProductVariant handles GET /api/v1/product-variants/{id}. The response
// includes the average rating over the variant's visible reviews.
func (h *EntityHandler) GetProductVariant(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	variant, err := h.replicas.GetProductVariant(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	avg, err := h.reviews.AverageRatingForVariant(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: ProductVariantResponse{ProductVariantStub: *variant, AverageRating: avg},
	})
}

// ListProductVariantReviews handles GET /api/v1/product-variants/{id}/reviews.
func (h *EntityHandler) ListProductVariantReviews(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	filter := domain.ReviewFilter{ProductVariantID: &id}
	page, err := h.reviews.ListReviews(r.Context(), filter, pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: page})
}

// ListUserReviews handles GET /api/v1/users/{id}/reviews.
func (h *EntityHandler) ListUserReviews(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	filter := domain.ReviewFilter{UserID: &id}
	page, err := h.reviews.ListReviews(r.Context(), filter, pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: page})
}
