package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/oakmart/review-service/internal/domain"
	"github.com/oakmart/review-service/pkg/pagination"
)

// ReplicaStore persists existence stubs for foreign entities. Upserts are
// atomic insert-if-absent: replaying the same event any number of times
// leaves exactly one stub, and concurrent duplicates cannot race.
type ReplicaStore interface {
	// Upsert inserts a stub for the given kind if none exists. First writer
	// wins; an existing stub is never overwritten.
	Upsert(ctx context.Context, kind domain.EntityKind, id uuid.UUID) error

	// UpsertProductVariant inserts a product variant stub with its owning
	// product, if none exists.
	UpsertProductVariant(ctx context.Context, stub domain.ProductVariantStub) error

	// Exists reports whether a stub of the given kind is known.
	Exists(ctx context.Context, kind domain.EntityKind, id uuid.UUID) (bool, error)

	// GetProductVariant retrieves a product variant stub.
	GetProductVariant(ctx context.Context, id uuid.UUID) (*domain.ProductVariantStub, error)
}

// ReviewRepository persists reviews and answers paginated queries over them.
type ReviewRepository interface {
	// Create inserts a new review. A (user, product variant) uniqueness
	// violation is reported as a conflict.
	Create(ctx context.Context, review *domain.Review) error

	// GetByID retrieves a review by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Review, error)

	// ExistsForUserAndVariant reports whether the user has already reviewed
	// the product variant.
	ExistsForUserAndVariant(ctx context.Context, userID, productVariantID uuid.UUID) (bool, error)

	// List returns reviews matching the filter, ordered and bounded by the
	// pagination parameters, together with the total number of matches
	// ignoring skip and limit.
	List(ctx context.Context, filter domain.ReviewFilter, params pagination.Params) ([]domain.Review, uint64, error)

	// Update applies a partial update and returns the updated review. All
	// updated fields share the single last_updated_at timestamp provided by
	// the caller.
	Update(ctx context.Context, id uuid.UUID, update domain.ReviewUpdate, lastUpdatedAt time.Time) (*domain.Review, error)

	// Delete removes a review, reporting whether a row was deleted.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}
