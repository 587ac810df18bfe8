package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/oakmart/review-service/internal/domain"
	pkgkafka "github.com/oakmart/review-service/pkg/kafka"
)

// Kafka topic constants for review domain events.
const (
	TopicReviewCreated = "ecommerce.review.created"
	TopicReviewUpdated = "ecommerce.review.updated"
	TopicReviewDeleted = "ecommerce.review.deleted"
)

// Aggregate type constant.
const AggregateTypeReview = "review"

// Source identifier for events originating from the review service.
const SourceReviewService = "review-service"

// ReviewEventData is the payload shared by review.created and review.updated
// events.
type ReviewEventData struct {
	ID               string `json:"id"`
	UserID           string `json:"user_id"`
	ProductVariantID string `json:"product_variant_id"`
	ProductID        string `json:"product_id"`
	Rating           int16  `json:"rating"`
	IsVisible        bool   `json:"is_visible"`
}

// ReviewDeletedData is the payload for a review.deleted event.
type ReviewDeletedData struct {
	ID               string `json:"id"`
	UserID           string `json:"user_id"`
	ProductVariantID string `json:"product_variant_id"`
}

// Producer publishes review domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the review service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

func reviewEventData(review *domain.Review) ReviewEventData {
	return ReviewEventData{
		ID:               review.ID.String(),
		UserID:           review.User.ID.String(),
		ProductVariantID: review.ProductVariant.ID.String(),
		ProductID:        review.ProductVariant.ProductID.String(),
		Rating:           int16(review.Rating),
		IsVisible:        review.IsVisible,
	}
}

func (p *Producer) publish(ctx context.Context, topic string, review *domain.Review, data any) error {
	event, err := pkgkafka.NewEvent(topic, review.ID.String(), AggregateTypeReview, SourceReviewService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	p.logger.DebugContext(ctx, "published review event",
		slog.String("topic", topic),
		slog.String("review_id", review.ID.String()),
	)
	return nil
}

// PublishReviewCreated publishes a review.created event.
func (p *Producer) PublishReviewCreated(ctx context.Context, review *domain.Review) error {
	return p.publish(ctx, TopicReviewCreated, review, reviewEventData(review))
}

// PublishReviewUpdated publishes a review.updated event.
func (p *Producer) PublishReviewUpdated(ctx context.Context, review *domain.Review) error {
	return p.publish(ctx, TopicReviewUpdated, review, reviewEventData(review))
}

// PublishReviewDeleted publishes a review.deleted event.
func (p *Producer) PublishReviewDeleted(ctx context.Context, review *domain.Review) error {
	data := ReviewDeletedData{
		ID:               review.ID.String(),
		UserID:           review.User.ID.String(),
		ProductVariantID: review.ProductVariant.ID.String(),
	}
	return p.publish(ctx, TopicReviewDeleted, review, data)
}
