package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/oakmart/review-service/internal/auth"
	"github.com/oakmart/review-service/internal/domain"
	"github.com/oakmart/review-service/internal/event"
	"github.com/oakmart/review-service/internal/service"
	apperrors "github.com/oakmart/review-service/pkg/errors"
	pkgkafka "github.com/oakmart/review-service/pkg/kafka"
	"github.com/oakmart/review-service/pkg/pagination"
)

// =============================================================================
// Mock repositories
// =============================================================================

type mockReviewRepo struct {
	mock.Mock
}

func (m *mockReviewRepo) Create(ctx context.Context, review *domain.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *mockReviewRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepo) ExistsForUserAndVariant(ctx context.Context, userID, productVariantID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID, productVariantID)
	return args.Bool(0), args.Error(1)
}

func (m *mockReviewRepo) List(ctx context.Context, filter domain.ReviewFilter, params pagination.Params) ([]domain.Review, uint64, error) {
	args := m.Called(ctx, filter, params)
	return args.Get(0).([]domain.Review), args.Get(1).(uint64), args.Error(2)
}

func (m *mockReviewRepo) Update(ctx context.Context, id uuid.UUID, update domain.ReviewUpdate, lastUpdatedAt time.Time) (*domain.Review, error) {
	args := m.Called(ctx, id, update, lastUpdatedAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type mockReplicas struct {
	mock.Mock
}

func (m *mockReplicas) Upsert(ctx context.Context, kind domain.EntityKind, id uuid.UUID) error {
	args := m.Called(ctx, kind, id)
	return args.Error(0)
}

func (m *mockReplicas) UpsertProductVariant(ctx context.Context, stub domain.ProductVariantStub) error {
	args := m.Called(ctx, stub)
	return args.Error(0)
}

func (m *mockReplicas) Exists(ctx context.Context, kind domain.EntityKind, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, kind, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockReplicas) GetProductVariant(ctx context.Context, id uuid.UUID) (*domain.ProductVariantStub, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProductVariantStub), args.Error(1)
}

// =============================================================================
// Helpers
// =============================================================================

func newTestReviewService(reviews *mockReviewRepo, replicas *mockReplicas) *service.ReviewService {
	logger := newTestLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	producer := event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)
	return service.NewReviewService(reviews, replicas, auth.SelfAuthorizer{}, producer, nil, logger)
}

func newTestRouter(svc *service.ReviewService) http.Handler {
	r := chi.NewRouter()
	handler := NewReviewHandler(svc, newTestLogger())
	r.Get("/api/v1/reviews", handler.ListReviews)
	r.Get("/api/v1/reviews/{id}", handler.GetReview)
	r.Post("/api/v1/reviews", handler.CreateReview)
	r.Patch("/api/v1/reviews/{id}", handler.UpdateReview)
	r.Delete("/api/v1/reviews/{id}", handler.DeleteReview)
	return r
}

func testReview(userID uuid.UUID) *domain.Review {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	return &domain.Review{
		ID:             uuid.New(),
		User:           domain.UserStub{ID: userID},
		ProductVariant: domain.ProductVariantStub{ID: uuid.New(), ProductID: uuid.New()},
		Body:           "Does the job.",
		Rating:         domain.FourStars,
		CreatedAt:      now,
		LastUpdatedAt:  now,
		IsVisible:      true,
	}
}

// =============================================================================
// Tests
// =============================================================================

func TestCreateReviewHandler_Success(t *testing.T) {
	reviews := new(mockReviewRepo)
	replicas := new(mockReplicas)
	router := newTestRouter(newTestReviewService(reviews, replicas))

	userID := uuid.New()
	variant := &domain.ProductVariantStub{ID: uuid.New(), ProductID: uuid.New()}

	replicas.On("GetProductVariant", mock.Anything, variant.ID).Return(variant, nil)
	replicas.On("Exists", mock.Anything, domain.KindUser, userID).Return(true, nil)
	reviews.On("ExistsForUserAndVariant", mock.Anything, userID, variant.ID).Return(false, nil)
	reviews.On("Create", mock.Anything, mock.AnythingOfType("*domain.Review")).Return(nil)

	body, _ := json.Marshal(CreateReviewRequest{
		UserID:           userID.String(),
		ProductVariantID: variant.ID.String(),
		Body:             "Love it.",
		Rating:           5,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews", bytes.NewReader(body))
	req.Header.Set(userIDHeader, userID.String())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	reviews.AssertExpectations(t)
}

func TestCreateReviewHandler_ValidationFailure(t *testing.T) {
	reviews := new(mockReviewRepo)
	replicas := new(mockReplicas)
	router := newTestRouter(newTestReviewService(reviews, replicas))

	// rating out of range and user_id not a UUID
	body := []byte(`{"user_id": "not-a-uuid", "product_variant_id": "` + uuid.New().String() + `", "rating": 9}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	reviews.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateReviewHandler_Duplicate_Conflict(t *testing.T) {
	reviews := new(mockReviewRepo)
	replicas := new(mockReplicas)
	router := newTestRouter(newTestReviewService(reviews, replicas))

	userID := uuid.New()
	variant := &domain.ProductVariantStub{ID: uuid.New(), ProductID: uuid.New()}

	replicas.On("GetProductVariant", mock.Anything, variant.ID).Return(variant, nil)
	replicas.On("Exists", mock.Anything, domain.KindUser, userID).Return(true, nil)
	reviews.On("ExistsForUserAndVariant", mock.Anything, userID, variant.ID).Return(true, nil)

	body, _ := json.Marshal(CreateReviewRequest{
		UserID:           userID.String(),
		ProductVariantID: variant.ID.String(),
		Rating:           3,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews", bytes.NewReader(body))
	req.Header.Set(userIDHeader, userID.String())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetReviewHandler_NotFound(t *testing.T) {
	reviews := new(mockReviewRepo)
	replicas := new(mockReplicas)
	router := newTestRouter(newTestReviewService(reviews, replicas))

	id := uuid.New()
	reviews.On("GetByID", mock.Anything, id).Return(nil, apperrors.NotFound("review", id.String()))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reviews/"+id.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListReviewsHandler_PaginationParams(t *testing.T) {
	reviews := new(mockReviewRepo)
	replicas := new(mockReplicas)
	router := newTestRouter(newTestReviewService(reviews, replicas))

	first := int32(2)
	expectedParams := pagination.Params{
		First:     &first,
		Skip:      4,
		OrderBy:   "rating",
		Direction: pagination.Desc,
	}
	node := *testReview(uuid.New())
	reviews.On("List", mock.Anything, domain.ReviewFilter{}, expectedParams).
		Return([]domain.Review{node, node}, uint64(10), nil)

	url := "/api/v1/reviews?first=2&skip=4&order_by=rating&direction=desc"
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data pagination.Page[domain.Review] `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint64(10), resp.Data.TotalCount)
	assert.True(t, resp.Data.HasNextPage)
	assert.Len(t, resp.Data.Nodes, 2)
	reviews.AssertExpectations(t)
}

func TestDeleteReviewHandler_ReportsDeleted(t *testing.T) {
	reviews := new(mockReviewRepo)
	replicas := new(mockReplicas)
	router := newTestRouter(newTestReviewService(reviews, replicas))

	userID := uuid.New()
	existing := testReview(userID)

	reviews.On("GetByID", mock.Anything, existing.ID).Return(existing, nil)
	reviews.On("Delete", mock.Anything, existing.ID).Return(true, nil)

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/v1/reviews/%s", existing.ID), nil)
	req.Header.Set(userIDHeader, userID.String())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data map[string]bool `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Data["deleted"])
}

func TestUpdateReviewHandler_Forbidden(t *testing.T) {
	reviews := new(mockReviewRepo)
	replicas := new(mockReplicas)
	router := newTestRouter(newTestReviewService(reviews, replicas))

	existing := testReview(uuid.New())
	reviews.On("GetByID", mock.Anything, existing.ID).Return(existing, nil)

	body := []byte(`{"body": "edited"}`)
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/reviews/"+existing.ID.String(), bytes.NewReader(body))
	req.Header.Set(userIDHeader, uuid.New().String())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	reviews.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
