package domain

// ReviewOrderField names a field reviews can be ordered by. The mapping to
// storage columns is closed; unknown values fall back to the default.
type ReviewOrderField string

const (
	OrderByID             ReviewOrderField = "id"
	OrderByUserID         ReviewOrderField = "user_id"
	OrderByProductVariant ReviewOrderField = "product_variant"
	OrderByRating         ReviewOrderField = "rating"
	OrderByCreatedAt      ReviewOrderField = "created_at"
)

// Column translates the order field to its storage column. The created_at
// order field sorts by last_updated_at, matching the platform's established
// query contract.
func (f ReviewOrderField) Column() string {
	switch f {
	case OrderByUserID:
		return "user_id"
	case OrderByProductVariant:
		return "product_variant_id"
	case OrderByRating:
		return "rating"
	case OrderByCreatedAt:
		return "last_updated_at"
	default:
		return "id"
	}
}

// ParseReviewOrderField maps a query-string value to an order field,
// defaulting to ordering by ID.
func ParseReviewOrderField(s string) ReviewOrderField {
	switch ReviewOrderField(s) {
	case OrderByUserID, OrderByProductVariant, OrderByRating, OrderByCreatedAt:
		return ReviewOrderField(s)
	default:
		return OrderByID
	}
}
