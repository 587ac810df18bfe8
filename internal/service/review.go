package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/oakmart/review-service/internal/auth"
	"github.com/oakmart/review-service/internal/cache"
	"github.com/oakmart/review-service/internal/domain"
	"github.com/oakmart/review-service/internal/event"
	"github.com/oakmart/review-service/internal/repository"
	apperrors "github.com/oakmart/review-service/pkg/errors"
	"github.com/oakmart/review-service/pkg/pagination"
)

// ReviewService implements the business logic for review operations.
type ReviewService struct {
	reviews    repository.ReviewRepository
	replicas   repository.ReplicaStore
	authorizer auth.Authorizer
	producer   *event.Producer
	ratings    *cache.RatingCache
	logger     *slog.Logger
}

// NewReviewService creates a new review service.
func NewReviewService(
	reviews repository.ReviewRepository,
	replicas repository.ReplicaStore,
	authorizer auth.Authorizer,
	producer *event.Producer,
	ratings *cache.RatingCache,
	logger *slog.Logger,
) *ReviewService {
	return &ReviewService{
		reviews:    reviews,
		replicas:   replicas,
		authorizer: authorizer,
		producer:   producer,
		ratings:    ratings,
		logger:     logger,
	}
}

// CreateReviewInput holds the parameters for creating a review.
type CreateReviewInput struct {
	UserID           uuid.UUID
	ProductVariantID uuid.UUID
	Body             string
	Rating           domain.Rating
	IsVisible        *bool
}

// CreateReview creates a new review after checking that the referenced user
// and product variant are known and that the user has not already reviewed
// the variant. Nothing is written when any check fails.
func (s *ReviewService) CreateReview(ctx context.Context, actingUserID string, input *CreateReviewInput) (*domain.Review, error) {
	if err := s.authorizer.Authorize(ctx, actingUserID, input.UserID); err != nil {
		return nil, err
	}
	if !input.Rating.Valid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("rating must be between 1 and 5, got %d", input.Rating))
	}

	variant, err := s.replicas.GetProductVariant(ctx, input.ProductVariantID)
	if err != nil {
		return nil, fmt.Errorf("resolve product variant: %w", err)
	}

	userExists, err := s.replicas.Exists(ctx, domain.KindUser, input.UserID)
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}
	if !userExists {
		return nil, apperrors.NotFound("user", input.UserID.String())
	}

	// Pre-check for a friendlier conflict message; the unique index on
	// (user_id, product_variant_id) closes the race between concurrent
	// creates.
	exists, err := s.reviews.ExistsForUserAndVariant(ctx, input.UserID, input.ProductVariantID)
	if err != nil {
		return nil, fmt.Errorf("check existing review: %w", err)
	}
	if exists {
		return nil, apperrors.Conflict(fmt.Sprintf(
			"user %s has already written a review for product variant %s",
			input.UserID, input.ProductVariantID,
		))
	}

	isVisible := true
	if input.IsVisible != nil {
		isVisible = *input.IsVisible
	}

	now := time.Now().UTC()
	review := &domain.Review{
		ID:             uuid.New(),
		User:           domain.UserStub{ID: input.UserID},
		ProductVariant: *variant,
		Body:           input.Body,
		Rating:         input.Rating,
		CreatedAt:      now,
		LastUpdatedAt:  now,
		IsVisible:      isVisible,
	}

	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}

	if err := s.producer.PublishReviewCreated(ctx, review); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.created event",
			slog.String("review_id", review.ID.String()),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}
	s.invalidateRating(ctx, review.ProductVariant.ID)

	s.logger.InfoContext(ctx, "review created",
		slog.String("review_id", review.ID.String()),
		slog.String("user_id", review.User.ID.String()),
		slog.String("product_variant_id", review.ProductVariant.ID.String()),
	)

	return review, nil
}

// GetReview retrieves a review by its ID.
func (s *ReviewService) GetReview(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	review, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get review by id: %w", err)
	}
	return review, nil
}

// ListReviews returns a page of reviews matching the filter.
func (s *ReviewService) ListReviews(ctx context.Context, filter domain.ReviewFilter, params pagination.Params) (pagination.Page[domain.Review], error) {
	nodes, total, err := s.reviews.List(ctx, filter, params)
	if err != nil {
		return pagination.Page[domain.Review]{}, fmt.Errorf("list reviews: %w", err)
	}
	return pagination.NewPage(nodes, total, params.Skip), nil
}

// UpdateReview applies a partial update to a review owned by the acting user.
// All fields changed by one call share a single new last_updated_at.
func (s *ReviewService) UpdateReview(ctx context.Context, actingUserID string, id uuid.UUID, update domain.ReviewUpdate) (*domain.Review, error) {
	existing, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get review for update: %w", err)
	}
	if err := s.authorizer.Authorize(ctx, actingUserID, existing.User.ID); err != nil {
		return nil, err
	}
	if update.Rating != nil && !update.Rating.Valid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("rating must be between 1 and 5, got %d", *update.Rating))
	}
	if update.IsZero() {
		return existing, nil
	}

	updated, err := s.reviews.Update(ctx, id, update, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}

	if err := s.producer.PublishReviewUpdated(ctx, updated); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.updated event",
			slog.String("review_id", updated.ID.String()),
			slog.String("error", err.Error()),
		)
	}
	s.invalidateRating(ctx, updated.ProductVariant.ID)

	s.logger.InfoContext(ctx, "review updated",
		slog.String("review_id", updated.ID.String()),
	)

	return updated, nil
}

// DeleteReview removes a review owned by the acting user, reporting whether
// a review was deleted.
func (s *ReviewService) DeleteReview(ctx context.Context, actingUserID string, id uuid.UUID) (bool, error) {
	existing, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("get review for delete: %w", err)
	}
	if err := s.authorizer.Authorize(ctx, actingUserID, existing.User.ID); err != nil {
		return false, err
	}

	deleted, err := s.reviews.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete review: %w", err)
	}
	if !deleted {
		return false, nil
	}

	if err := s.producer.PublishReviewDeleted(ctx, existing); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.deleted event",
			slog.String("review_id", existing.ID.String()),
			slog.String("error", err.Error()),
		)
	}
	s.invalidateRating(ctx, existing.ProductVariant.ID)

	s.logger.InfoContext(ctx, "review deleted",
		slog.String("review_id", existing.ID.String()),
	)

	return true, nil
}

// AverageRatingForVariant computes the average rating over the visible
// reviews of a product variant, consulting the Redis cache first. It returns
// nil when the variant has no visible reviews.
func (s *ReviewService) AverageRatingForVariant(ctx context.Context, productVariantID uuid.UUID) (*float32, error) {
	if avg, hit, err := s.ratings.Get(ctx, productVariantID); err != nil {
		s.logger.WarnContext(ctx, "rating cache read failed",
			slog.String("product_variant_id", productVariantID.String()),
			slog.String("error", err.Error()),
		)
	} else if hit {
		return avg, nil
	}

	filter := domain.ReviewFilter{ProductVariantID: &productVariantID}
	nodes, _, err := s.reviews.List(ctx, filter, pagination.Params{})
	if err != nil {
		return nil, fmt.Errorf("list reviews for rating: %w", err)
	}

	avg := AverageRating(nodes)
	if err := s.ratings.Set(ctx, productVariantID, avg); err != nil {
		s.logger.WarnContext(ctx, "rating cache write failed",
			slog.String("product_variant_id", productVariantID.String()),
			slog.String("error", err.Error()),
		)
	}
	return avg, nil
}

// AverageRating computes the arithmetic mean rating over the visible reviews
// in the slice. Hidden reviews do not count. It returns nil when no visible
// review exists, which is distinct from a rating of zero.
func AverageRating(reviews []domain.Review) *float32 {
	var sum, count int64
	for _, r := range reviews {
		if !r.IsVisible {
			continue
		}
		sum += int64(r.Rating)
		count++
	}
	if count == 0 {
		return nil
	}
	avg := float32(sum) / float32(count)
	return &avg
}

func (s *ReviewService) invalidateRating(ctx context.Context, productVariantID uuid.UUID) {
	if err := s.ratings.Invalidate(ctx, productVariantID); err != nil {
		s.logger.WarnContext(ctx, "rating cache invalidation failed",
			slog.String("product_variant_id", productVariantID.String()),
			slog.String("error", err.Error()),
		)
	}
}
