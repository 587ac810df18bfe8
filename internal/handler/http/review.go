package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/oakmart/review-service/internal/domain"
	"github.com/oakmart/review-service/internal/service"
	"github.com/oakmart/review-service/pkg/httputil"
	"github.com/oakmart/review-service/pkg/pagination"
	"github.com/oakmart/review-service/pkg/validator"
)

// userIDHeader carries the gateway-verified identity of the acting user.
const userIDHeader = "X-User-ID"

// ReviewHandler handles HTTP requests for review endpoints.
type ReviewHandler struct {
	service *service.ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc *service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateReviewRequest is the JSON request body for creating a review.
type CreateReviewRequest struct {
	UserID           string `json:"user_id" validate:"required,uuid"`
	ProductVariantID string `json:"product_variant_id" validate:"required,uuid"`
	Body             string `json:"body" validate:"max=10000"`
	Rating           int16  `json:"rating" validate:"required,gte=1,lte=5"`
	IsVisible        *bool  `json:"is_visible"`
}

// UpdateReviewRequest is the JSON request body for a partial review update.
type UpdateReviewRequest struct {
	Body      *string `json:"body" validate:"omitempty,max=10000"`
	Rating    *int16  `json:"rating" validate:"omitempty,gte=1,lte=5"`
	IsVisible *bool   `json:"is_visible"`
}

// --- Handlers ---

// ListReviews handles GET /api/v1/reviews. It supports `first`, `skip`,
// `order_by`, `direction` pagination parameters and equality filters on
// `user_id` and `product_variant_id`.
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	filter := domain.ReviewFilter{}
	if v := r.URL.Query().Get("user_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "user_id must be a valid UUID"},
			})
			return
		}
		filter.UserID = &id
	}
	if v := r.URL.Query().Get("product_variant_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "product_variant_id must be a valid UUID"},
			})
			return
		}
		filter.ProductVariantID = &id
	}

	page, err := h.service.ListReviews(r.Context(), filter, pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: page})
}

// GetReview handles GET /api/v1/reviews/{id}.
func (h *ReviewHandler) GetReview(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	review, err := h.service.GetReview(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: review})
}

// CreateReview handles POST /api/v1/reviews.
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CreateReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	// UUID format is already validated by the struct tags.
	userID := uuid.MustParse(req.UserID)
	variantID := uuid.MustParse(req.ProductVariantID)

	input := &service.CreateReviewInput{
		UserID:           userID,
		ProductVariantID: variantID,
		Body:             req.Body,
		Rating:           domain.Rating(req.Rating),
		IsVisible:        req.IsVisible,
	}

	review, err := h.service.CreateReview(r.Context(), r.Header.Get(userIDHeader), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: review})
}

// UpdateReview handles PATCH /api/v1/reviews/{id}. All fields are optional;
// absent fields are left untouched.
func (h *ReviewHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req UpdateReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	update := domain.ReviewUpdate{
		Body:      req.Body,
		IsVisible: req.IsVisible,
	}
	if req.Rating != nil {
		rating := domain.Rating(*req.Rating)
		update.Rating = &rating
	}

	review, err := h.service.UpdateReview(r.Context(), r.Header.Get(userIDHeader), id, update)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: review})
}

// DeleteReview handles DELETE /api/v1/reviews/{id}. The response reports
// whether a review was actually deleted.
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	deleted, err := h.service.DeleteReview(r.Context(), r.Header.Get(userIDHeader), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]bool{"deleted": deleted}})
}
