package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oakmart/review-service/internal/domain"
	"github.com/oakmart/review-service/pkg/database"
	apperrors "github.com/oakmart/review-service/pkg/errors"
	"github.com/oakmart/review-service/pkg/pagination"
)

const reviewColumns = "id, user_id, product_variant_id, product_id, body, rating, created_at, last_updated_at, is_visible"

// ReviewRepository implements review persistence on PostgreSQL. The
// denormalized user and product variant snapshots of a review are stored as
// flat columns and reassembled on scan.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Create inserts a new review. The unique index on
// (user_id, product_variant_id) closes the race between concurrent creates
// for the same pair: the loser surfaces as a conflict, never a second row.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	query := `
		INSERT INTO reviews (` + reviewColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		review.ID,
		review.User.ID,
		review.ProductVariant.ID,
		review.ProductVariant.ProductID,
		review.Body,
		review.Rating,
		review.CreatedAt,
		review.LastUpdatedAt,
		review.IsVisible,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict(fmt.Sprintf(
				"user %s has already written a review for product variant %s",
				review.User.ID, review.ProductVariant.ID,
			))
		}
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

// GetByID retrieves a review by ID.
func (r *ReviewRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE id = $1`

	review, err := scanReview(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("review", id.String())
		}
		return nil, fmt.Errorf("get review: %w", err)
	}
	return review, nil
}

// ExistsForUserAndVariant reports whether the user has already reviewed the
// product variant.
func (r *ReviewRepository) ExistsForUserAndVariant(ctx context.Context, userID, productVariantID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM reviews WHERE user_id = $1 AND product_variant_id = $2)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, userID, productVariantID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check existing review: %w", err)
	}
	return exists, nil
}

// List returns reviews matching the filter, sorted by the requested order
// field, with skip/first applied, plus the total match count ignoring
// skip/first. No secondary sort key is added: rows sharing the sort value
// fall back to storage order.
func (r *ReviewRepository) List(ctx context.Context, filter domain.ReviewFilter, params pagination.Params) ([]domain.Review, uint64, error) {
	where, args := buildReviewFilter(filter)

	column := domain.ParseReviewOrderField(params.OrderBy).Column()

	var sb strings.Builder
	sb.WriteString(`SELECT ` + reviewColumns + ` FROM reviews`)
	sb.WriteString(where)
	fmt.Fprintf(&sb, " ORDER BY %s %s", column, params.Direction.SQL())

	queryArgs := append([]any(nil), args...)
	if params.First != nil {
		queryArgs = append(queryArgs, *params.First)
		fmt.Fprintf(&sb, " LIMIT $%d", len(queryArgs))
	}
	queryArgs = append(queryArgs, params.Skip)
	fmt.Fprintf(&sb, " OFFSET $%d", len(queryArgs))

	rows, err := r.pool.Query(ctx, sb.String(), queryArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []domain.Review
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, *review)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate review rows: %w", err)
	}

	// Total count over the same filter, ignoring skip and limit.
	var total uint64
	countQuery := `SELECT COUNT(*) FROM reviews` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}

	return reviews, total, nil
}

// Update applies the non-nil fields of the update in a single statement, all
// sharing one last_updated_at timestamp, and returns the updated review.
func (r *ReviewRepository) Update(ctx context.Context, id uuid.UUID, update domain.ReviewUpdate, lastUpdatedAt time.Time) (*domain.Review, error) {
	sets := make([]string, 0, 4)
	args := []any{id}

	appendSet := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.Body != nil {
		appendSet("body", *update.Body)
	}
	if update.Rating != nil {
		appendSet("rating", *update.Rating)
	}
	if update.IsVisible != nil {
		appendSet("is_visible", *update.IsVisible)
	}
	appendSet("last_updated_at", lastUpdatedAt)

	query := fmt.Sprintf(
		`UPDATE reviews SET %s WHERE id = $1 RETURNING `+reviewColumns,
		strings.Join(sets, ", "),
	)

	review, err := scanReview(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("review", id.String())
		}
		return nil, fmt.Errorf("update review: %w", err)
	}
	return review, nil
}

// Delete removes a review by ID, reporting whether a row was deleted.
func (r *ReviewRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete review: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// buildReviewFilter renders the filter as a WHERE clause and its arguments.
func buildReviewFilter(filter domain.ReviewFilter) (string, []any) {
	var conds []string
	var args []any

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.ProductVariantID != nil {
		args = append(args, *filter.ProductVariantID)
		conds = append(conds, fmt.Sprintf("product_variant_id = $%d", len(args)))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// scanReview reads one review row, reassembling the embedded stubs.
func scanReview(row pgx.Row) (*domain.Review, error) {
	var review domain.Review
	err := row.Scan(
		&review.ID,
		&review.User.ID,
		&review.ProductVariant.ID,
		&review.ProductVariant.ProductID,
		&review.Body,
		&review.Rating,
		&review.CreatedAt,
		&review.LastUpdatedAt,
		&review.IsVisible,
	)
	if err != nil {
		return nil, err
	}
	return &review, nil
}
