package service

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/oakmart/review-service/internal/auth"
	"github.com/oakmart/review-service/internal/domain"
	"github.com/oakmart/review-service/internal/event"
	apperrors "github.com/oakmart/review-service/pkg/errors"
	pkgkafka "github.com/oakmart/review-service/pkg/kafka"
	"github.com/oakmart/review-service/pkg/pagination"
)

// --- Mock repositories ---

type mockReviewRepository struct {
	mock.Mock
}

func (m *mockReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *mockReviewRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepository) ExistsForUserAndVariant(ctx context.Context, userID, productVariantID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID, productVariantID)
	return args.Bool(0), args.Error(1)
}

func (m *mockReviewRepository) List(ctx context.Context, filter domain.ReviewFilter, params pagination.Params) ([]domain.Review, uint64, error) {
	args := m.Called(ctx, filter, params)
	return args.Get(0).([]domain.Review), args.Get(1).(uint64), args.Error(2)
}

func (m *mockReviewRepository) Update(ctx context.Context, id uuid.UUID, update domain.ReviewUpdate, lastUpdatedAt time.Time) (*domain.Review, error) {
	args := m.Called(ctx, id, update, lastUpdatedAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type mockReplicaStore struct {
	mock.Mock
}

func (m *mockReplicaStore) Upsert(ctx context.Context, kind domain.EntityKind, id uuid.UUID) error {
	args := m.Called(ctx, kind, id)
	return args.Error(0)
}

func (m *mockReplicaStore) UpsertProductVariant(ctx context.Context, stub domain.ProductVariantStub) error {
	args := m.Called(ctx, stub)
	return args.Error(0)
}

func (m *mockReplicaStore) Exists(ctx context.Context, kind domain.EntityKind, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, kind, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockReplicaStore) GetProductVariant(ctx context.Context, id uuid.UUID) (*domain.ProductVariantStub, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProductVariantStub), args.Error(1)
}

// --- Test helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestService(reviews *mockReviewRepository, replicas *mockReplicaStore) *ReviewService {
	logger := newTestLogger()
	// Create a Kafka producer that will fail silently in tests (no real broker).
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	kafkaProducer := pkgkafka.NewProducer(kafkaCfg, logger)
	producer := event.NewProducer(kafkaProducer, logger)
	return NewReviewService(reviews, replicas, auth.SelfAuthorizer{}, producer, nil, logger)
}

func ratingPtr(r domain.Rating) *domain.Rating { return &r }
func boolPtr(b bool) *bool                     { return &b }

func sampleReview(userID, variantID uuid.UUID) *domain.Review {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	return &domain.Review{
		ID:             uuid.New(),
		User:           domain.UserStub{ID: userID},
		ProductVariant: domain.ProductVariantStub{ID: variantID, ProductID: uuid.New()},
		Body:           "Solid build quality.",
		Rating:         domain.FourStars,
		CreatedAt:      now,
		LastUpdatedAt:  now,
		IsVisible:      true,
	}
}

// --- CreateReview ---

func TestCreateReview_Success(t *testing.T) {
	reviews := new(mockReviewRepository)
	replicas := new(mockReplicaStore)
	svc := newTestService(reviews, replicas)
	ctx := context.Background()

	userID := uuid.New()
	variant := &domain.ProductVariantStub{ID: uuid.New(), ProductID: uuid.New()}

	replicas.On("GetProductVariant", ctx, variant.ID).Return(variant, nil)
	replicas.On("Exists", ctx, domain.KindUser, userID).Return(true, nil)
	reviews.On("ExistsForUserAndVariant", ctx, userID, variant.ID).Return(false, nil)
	reviews.On("Create", ctx, mock.AnythingOfType("*domain.Review")).Return(nil)

	input := &CreateReviewInput{
		UserID:           userID,
		ProductVariantID: variant.ID,
		Body:             "Great fit.",
		Rating:           domain.FiveStars,
	}

	review, err := svc.CreateReview(ctx, userID.String(), input)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, review.ID)
	assert.Equal(t, userID, review.User.ID)
	assert.Equal(t, *variant, review.ProductVariant)
	assert.Equal(t, domain.FiveStars, review.Rating)
	assert.True(t, review.IsVisible)
	assert.Equal(t, review.CreatedAt, review.LastUpdatedAt)
	reviews.AssertExpectations(t)
	replicas.AssertExpectations(t)
}

func TestCreateReview_VariantNotFound_NoWrite(t *testing.T) {
	reviews := new(mockReviewRepository)
	replicas := new(mockReplicaStore)
	svc := newTestService(reviews, replicas)
	ctx := context.Background()

	userID := uuid.New()
	variantID := uuid.New()

	replicas.On("GetProductVariant", ctx, variantID).
		Return(nil, apperrors.NotFound("product variant", variantID.String()))

	input := &CreateReviewInput{
		UserID:           userID,
		ProductVariantID: variantID,
		Rating:           domain.ThreeStars,
	}

	review, err := svc.CreateReview(ctx, userID.String(), input)
	assert.Nil(t, review)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	reviews.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	replicas.AssertExpectations(t)
}

func TestCreateReview_UserNotFound_NoWrite(t *testing.T) {
	reviews := new(mockReviewRepository)
	replicas := new(mockReplicaStore)
	svc := newTestService(reviews, replicas)
	ctx := context.Background()

	userID := uuid.New()
	variant := &domain.ProductVariantStub{ID: uuid.New(), ProductID: uuid.New()}

	replicas.On("GetProductVariant", ctx, variant.ID).Return(variant, nil)
	replicas.On("Exists", ctx, domain.KindUser, userID).Return(false, nil)

	input := &CreateReviewInput{
		UserID:           userID,
		ProductVariantID: variant.ID,
		Rating:           domain.ThreeStars,
	}

	review, err := svc.CreateReview(ctx, userID.String(), input)
	assert.Nil(t, review)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	reviews.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateReview_Duplicate_Conflict(t *testing.T) {
	reviews := new(mockReviewRepository)
	replicas := new(mockReplicaStore)
	svc := newTestService(reviews, replicas)
	ctx := context.Background()

	userID := uuid.New()
	variant := &domain.ProductVariantStub{ID: uuid.New(), ProductID: uuid.New()}

	replicas.On("GetProductVariant", ctx, variant.ID).Return(variant, nil)
	replicas.On("Exists", ctx, domain.KindUser, userID).Return(true, nil)
	reviews.On("ExistsForUserAndVariant", ctx, userID, variant.ID).Return(true, nil)

	input := &CreateReviewInput{
		UserID:           userID,
		ProductVariantID: variant.ID,
		Rating:           domain.OneStar,
	}

	review, err := svc.CreateReview(ctx, userID.String(), input)
	assert.Nil(t, review)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	reviews.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateReview_OtherUser_Forbidden(t *testing.T) {
	reviews := new(mockReviewRepository)
	replicas := new(mockReplicaStore)
	svc := newTestService(reviews, replicas)
	ctx := context.Background()

	input := &CreateReviewInput{
		UserID:           uuid.New(),
		ProductVariantID: uuid.New(),
		Rating:           domain.FiveStars,
	}

	review, err := svc.CreateReview(ctx, uuid.New().String(), input)
	assert.Nil(t, review)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	replicas.AssertNotCalled(t, "GetProductVariant", mock.Anything, mock.Anything)
}

func TestCreateReview_MissingIdentity_Unauthorized(t *testing.T) {
	reviews := new(mockReviewRepository)
	replicas := new(mockReplicaStore)
	svc := newTestService(reviews, replicas)
	ctx := context.Background()

	input := &CreateReviewInput{
		UserID:           uuid.New(),
		ProductVariantID: uuid.New(),
		Rating:           domain.FiveStars,
	}

	review, err := svc.CreateReview(ctx, "", input)
	assert.Nil(t, review)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestCreateReview_InvalidRating(t *testing.T) {
	reviews := new(mockReviewRepository)
	replicas := new(mockReplicaStore)
	svc := newTestService(reviews, replicas)
	ctx := context.Background()

	userID := uuid.New()
	input := &CreateReviewInput{
		UserID:           userID,
		ProductVariantID: uuid.New(),
		Rating:           domain.Rating(6),
	}

	review, err := svc.CreateReview(ctx, userID.String(), input)
	assert.Nil(t, review)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

// --- UpdateReview ---

func TestUpdateReview_PartialFieldsShareTimestamp(t *testing.T) {
	reviews := new(mockReviewRepository)
	replicas := new(mockReplicaStore)
	svc := newTestService(reviews, replicas)
	ctx := context.Background()

	userID := uuid.New()
	existing := sampleReview(userID, uuid.New())
	update := domain.ReviewUpdate{Body: nil, Rating: ratingPtr(domain.TwoStars), IsVisible: boolPtr(false)}

	var capturedTS time.Time
	reviews.On("GetByID", ctx, existing.ID).Return(existing, nil)
	reviews.On("Update", ctx, existing.ID, update, mock.AnythingOfType("time.Time")).
		Run(func(args mock.Arguments) {
			capturedTS = args.Get(3).(time.Time)
		}).
		Return(existing, nil)

	_, err := svc.UpdateReview(ctx, userID.String(), existing.ID, update)
	require.NoError(t, err)
	assert.False(t, capturedTS.IsZero())
	assert.Equal(t, time.UTC, capturedTS.Location())
	reviews.AssertExpectations(t)
}

func TestUpdateReview_EmptyUpdate_NoWrite(t *testing.T) {
	reviews := new(mockReviewRepository)
	replicas := new(mockReplicaStore)
	svc := newTestService(reviews, replicas)
	ctx := context.Background()

	userID := uuid.New()
	existing := sampleReview(userID, uuid.New())

	reviews.On("GetByID", ctx, existing.ID).Return(existing, nil)

	result, err := svc.UpdateReview(ctx, userID.String(), existing.ID, domain.ReviewUpdate{})
	require.NoError(t, err)
	assert.Equal(t, existing, result)
	reviews.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateReview_NotOwner_Forbidden(t *testing.T) {
	reviews := new(mockReviewRepository)
	replicas := new(mockReplicaStore)
	svc := newTestService(reviews, replicas)
	ctx := context.Background()

	existing := sampleReview(uuid.New(), uuid.New())
	reviews.On("GetByID", ctx, existing.ID).Return(existing, nil)

	result, err := svc.UpdateReview(ctx, uuid.New().String(), existing.ID, domain.ReviewUpdate{Body: strPtr("sneaky edit")})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	reviews.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateReview_NotFound(t *testing.T) {
	reviews := new(mockReviewRepository)
	replicas := new(mockReplicaStore)
	svc := newTestService(reviews, replicas)
	ctx := context.Background()

	id := uuid.New()
	reviews.On("GetByID", ctx, id).Return(nil, apperrors.NotFound("review", id.String()))

	result, err := svc.UpdateReview(ctx, uuid.New().String(), id, domain.ReviewUpdate{Body: strPtr("x")})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// --- DeleteReview ---

func TestDeleteReview_Success(t *testing.T) {
	reviews := new(mockReviewRepository)
	replicas := new(mockReplicaStore)
	svc := newTestService(reviews, replicas)
	ctx := context.Background()

	userID := uuid.New()
	existing := sampleReview(userID, uuid.New())

	reviews.On("GetByID", ctx, existing.ID).Return(existing, nil)
	reviews.On("Delete", ctx, existing.ID).Return(true, nil)

	deleted, err := svc.DeleteReview(ctx, userID.String(), existing.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	reviews.AssertExpectations(t)
}

func TestDeleteReview_NotOwner_Forbidden(t *testing.T) {
	reviews := new(mockReviewRepository)
	replicas := new(mockReplicaStore)
	svc := newTestService(reviews, replicas)
	ctx := context.Background()

	existing := sampleReview(uuid.New(), uuid.New())
	reviews.On("GetByID", ctx, existing.ID).Return(existing, nil)

	deleted, err := svc.DeleteReview(ctx, uuid.New().String(), existing.ID)
	assert.False(t, deleted)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	reviews.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

// --- ListReviews / AverageRating ---

func TestListReviews_PageMetadata(t *testing.T) {
	reviews := new(mockReviewRepository)
	replicas := new(mockReplicaStore)
	svc := newTestService(reviews, replicas)
	ctx := context.Background()

	nodes := []domain.Review{
		*sampleReview(uuid.New(), uuid.New()),
		*sampleReview(uuid.New(), uuid.New()),
		*sampleReview(uuid.New(), uuid.New()),
		*sampleReview(uuid.New(), uuid.New()),
	}
	first := int32(4)
	params := pagination.Params{First: &first, Skip: 3, Direction: pagination.Asc}

	reviews.On("List", ctx, domain.ReviewFilter{}, params).Return(nodes, uint64(10), nil)

	page, err := svc.ListReviews(ctx, domain.ReviewFilter{}, params)
	require.NoError(t, err)
	assert.Len(t, page.Nodes, 4)
	assert.Equal(t, uint64(10), page.TotalCount)
	assert.True(t, page.HasNextPage) // 3 skipped + 4 returned < 10 total
}

func TestAverageRating_SkipsHiddenReviews(t *testing.T) {
	hidden := *sampleReview(uuid.New(), uuid.New())
	hidden.Rating = domain.OneStar
	hidden.IsVisible = false

	visible1 := *sampleReview(uuid.New(), uuid.New())
	visible1.Rating = domain.FiveStars
	visible2 := *sampleReview(uuid.New(), uuid.New())
	visible2.Rating = domain.FiveStars

	avg := AverageRating([]domain.Review{visible1, hidden, visible2})
	require.NotNil(t, avg)
	assert.InDelta(t, 5.0, float64(*avg), 1e-6)
}

func TestAverageRating_Empty_Nil(t *testing.T) {
	assert.Nil(t, AverageRating(nil))

	hidden := *sampleReview(uuid.New(), uuid.New())
	hidden.IsVisible = false
	assert.Nil(t, AverageRating([]domain.Review{hidden}))
}

func TestAverageRating_FractionalMean(t *testing.T) {
	r1 := *sampleReview(uuid.New(), uuid.New())
	r1.Rating = domain.FourStars
	r2 := *sampleReview(uuid.New(), uuid.New())
	r2.Rating = domain.FiveStars

	avg := AverageRating([]domain.Review{r1, r2})
	require.NotNil(t, avg)
	assert.InDelta(t, 4.5, float64(*avg), 1e-6)
}

func TestAverageRatingForVariant_Uncached(t *testing.T) {
	reviews := new(mockReviewRepository)
	replicas := new(mockReplicaStore)
	svc := newTestService(reviews, replicas)
	ctx := context.Background()

	variantID := uuid.New()
	node := *sampleReview(uuid.New(), variantID)
	node.Rating = domain.ThreeStars

	filter := domain.ReviewFilter{ProductVariantID: &variantID}
	reviews.On("List", ctx, filter, pagination.Params{}).Return([]domain.Review{node}, uint64(1), nil)

	avg, err := svc.AverageRatingForVariant(ctx, variantID)
	require.NoError(t, err)
	require.NotNil(t, avg)
	assert.InDelta(t, 3.0, float64(*avg), 1e-6)
}

func strPtr(s string) *string { return &s }
