package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/oakmart/review-service/internal/domain"
	"github.com/oakmart/review-service/internal/repository"
)

// ReplicaService applies upstream entity-created events to the local replica
// store. Applies are idempotent, so redelivered events are safe regardless of
// transport.
type ReplicaService struct {
	store  repository.ReplicaStore
	logger *slog.Logger
}

// NewReplicaService creates a new replica service.
func NewReplicaService(store repository.ReplicaStore, logger *slog.Logger) *ReplicaService {
	return &ReplicaService{
		store:  store,
		logger: logger,
	}
}

// ApplyUserCreated records that a user exists upstream.
func (s *ReplicaService) ApplyUserCreated(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Upsert(ctx, domain.KindUser, id); err != nil {
		return fmt.Errorf("apply user created: %w", err)
	}
	s.logger.DebugContext(ctx, "user replica upserted", slog.String("user_id", id.String()))
	return nil
}

// ApplyProductCreated records that a product exists upstream.
func (s *ReplicaService) ApplyProductCreated(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Upsert(ctx, domain.KindProduct, id); err != nil {
		return fmt.Errorf("apply product created: %w", err)
	}
	s.logger.DebugContext(ctx, "product replica upserted", slog.String("product_id", id.String()))
	return nil
}

// ApplyProductVariantCreated records that a product variant exists upstream,
// together with its owning product.
func (s *ReplicaService) ApplyProductVariantCreated(ctx context.Context, id, productID uuid.UUID) error {
	stub := domain.ProductVariantStub{ID: id, ProductID: productID}
	if err := s.store.UpsertProductVariant(ctx, stub); err != nil {
		return fmt.Errorf("apply product variant created: %w", err)
	}
	s.logger.DebugContext(ctx, "product variant replica upserted",
		slog.String("product_variant_id", id.String()),
		slog.String("product_id", productID.String()),
	)
	return nil
}
