package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/oakmart/review-service/internal/domain"
	"github.com/oakmart/review-service/pkg/database"
	apperrors "github.com/oakmart/review-service/pkg/errors"
)

// ReplicaRepository implements the foreign-entity replica store on
// PostgreSQL. One table per entity kind; rows are immutable after insertion.
type ReplicaRepository struct {
	pool database.DBTX
}

// NewReplicaRepository creates a PostgreSQL-backed replica store.
func NewReplicaRepository(pool database.DBTX) *ReplicaRepository {
	return &ReplicaRepository{pool: pool}
}

// tableFor maps an entity kind to its table. The mapping is closed; an
// unknown kind is a programming error surfaced as such.
func tableFor(kind domain.EntityKind) (string, error) {
	switch kind {
	case domain.KindUser:
		return "users", nil
	case domain.KindProduct:
		return "products", nil
	case domain.KindProductVariant:
		return "product_variants", nil
	default:
		return "", fmt.Errorf("unknown entity kind %q", kind)
	}
}

// Upsert inserts a stub if absent. ON CONFLICT DO NOTHING makes replayed and
// concurrent duplicate events no-ops, so ingestion stays idempotent without a
// dedup log.
func (r *ReplicaRepository) Upsert(ctx context.Context, kind domain.EntityKind, id uuid.UUID) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`INSERT INTO %s (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, table)
	if _, err := r.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("upsert %s stub: %w", kind, err)
	}
	return nil
}

// UpsertProductVariant inserts a product variant stub with its owning product
// if absent.
func (r *ReplicaRepository) UpsertProductVariant(ctx context.Context, stub domain.ProductVariantStub) error {
	query := `
		INSERT INTO product_variants (id, product_id)
		VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING`

	if _, err := r.pool.Exec(ctx, query, stub.ID, stub.ProductID); err != nil {
		return fmt.Errorf("upsert product variant stub: %w", err)
	}
	return nil
}

// Exists reports whether a stub of the given kind is present.
func (r *ReplicaRepository) Exists(ctx context.Context, kind domain.EntityKind, id uuid.UUID) (bool, error) {
	table, err := tableFor(kind)
	if err != nil {
		return false, err
	}

	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE id = $1)`, table)

	var exists bool
	if err := r.pool.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check %s stub: %w", kind, err)
	}
	return exists, nil
}

// GetProductVariant retrieves a product variant stub by ID.
func (r *ReplicaRepository) GetProductVariant(ctx context.Context, id uuid.UUID) (*domain.ProductVariantStub, error) {
	query := `SELECT id, product_id FROM product_variants WHERE id = $1`

	var stub domain.ProductVariantStub
	err := r.pool.QueryRow(ctx, query, id).Scan(&stub.ID, &stub.ProductID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound(string(domain.KindProductVariant), id.String())
		}
		return nil, fmt.Errorf("get product variant stub: %w", err)
	}
	return &stub, nil
}
