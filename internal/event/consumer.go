package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	pkgkafka "github.com/oakmart/review-service/pkg/kafka"
)

// Kafka topics consumed by the review service.
const (
	TopicUserCreated           = "ecommerce.user.created"
	TopicProductCreated        = "ecommerce.product.created"
	TopicProductVariantCreated = "ecommerce.product-variant.created"
)

// ReplicaApplier defines the interface required by the event consumer.
type ReplicaApplier interface {
	ApplyUserCreated(ctx context.Context, id uuid.UUID) error
	ApplyProductCreated(ctx context.Context, id uuid.UUID) error
	ApplyProductVariantCreated(ctx context.Context, id, productID uuid.UUID) error
}

// UserCreatedData is the expected payload of a user.created event.
type UserCreatedData struct {
	ID string `json:"id"`
}

// ProductCreatedData is the expected payload of a product.created event.
type ProductCreatedData struct {
	ID string `json:"id"`
}

// ProductVariantCreatedData is the expected payload of a
// product-variant.created event.
type ProductVariantCreatedData struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
}

// Consumer processes incoming Kafka events for the review service.
type Consumer struct {
	logger  *slog.Logger
	service ReplicaApplier
}

// NewConsumer creates a new event consumer for the review service.
func NewConsumer(service ReplicaApplier, logger *slog.Logger) *Consumer {
	return &Consumer{
		service: service,
		logger:  logger,
	}
}

// HandleUserCreated processes user.created events by upserting the user
// replica.
func (c *Consumer) HandleUserCreated(ctx context.Context, event *pkgkafka.Event) error {
	var data UserCreatedData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal user.created data: %w", err)
	}
	id, err := uuid.Parse(data.ID)
	if err != nil {
		return fmt.Errorf("parse user id %q: %w", data.ID, err)
	}

	c.logger.InfoContext(ctx, "processing user.created event",
		slog.String("user_id", data.ID),
	)

	if err := c.service.ApplyUserCreated(ctx, id); err != nil {
		return fmt.Errorf("apply user.created for %s: %w", data.ID, err)
	}
	return nil
}

// HandleProductCreated processes product.created events by upserting the
// product replica.
func (c *Consumer) HandleProductCreated(ctx context.Context, event *pkgkafka.Event) error {
	var data ProductCreatedData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal product.created data: %w", err)
	}
	id, err := uuid.Parse(data.ID)
	if err != nil {
		return fmt.Errorf("parse product id %q: %w", data.ID, err)
	}

	c.logger.InfoContext(ctx, "processing product.created event",
		slog.String("product_id", data.ID),
	)

	if err := c.service.ApplyProductCreated(ctx, id); err != nil {
		return fmt.Errorf("apply product.created for %s: %w", data.ID, err)
	}
	return nil
}

// HandleProductVariantCreated processes product-variant.created events by
// upserting the product variant replica.
func (c *Consumer) HandleProductVariantCreated(ctx context.Context, event *pkgkafka.Event) error {
	var data ProductVariantCreatedData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal product-variant.created data: %w", err)
	}
	id, err := uuid.Parse(data.ID)
	if err != nil {
		return fmt.Errorf("parse product variant id %q: %w", data.ID, err)
	}
	productID, err := uuid.Parse(data.ProductID)
	if err != nil {
		return fmt.Errorf("parse product id %q: %w", data.ProductID, err)
	}

	c.logger.InfoContext(ctx, "processing product-variant.created event",
		slog.String("product_variant_id", data.ID),
		slog.String("product_id", data.ProductID),
	)

	if err := c.service.ApplyProductVariantCreated(ctx, id, productID); err != nil {
		return fmt.Errorf("apply product-variant.created for %s: %w", data.ID, err)
	}
	return nil
}
