package domain

import (
	"time"

	"github.com/google/uuid"
)

// Rating is a review rating in 1-5 stars.
type Rating int16

const (
	OneStar    Rating = 1
	TwoStars   Rating = 2
	ThreeStars Rating = 3
	FourStars  Rating = 4
	FiveStars  Rating = 5
)

// Valid reports whether the rating is within the 1-5 star range.
func (r Rating) Valid() bool {
	return r >= OneStar && r <= FiveStars
}

// Review is a user's review of a product variant. The embedded user and
// product variant are denormalized snapshots taken at creation time; they do
// not follow later replica changes.
type Review struct {
	ID             uuid.UUID          `json:"id"`
	User           UserStub           `json:"user"`
	ProductVariant ProductVariantStub `json:"product_variant"`
	Body           string             `json:"body"`
	Rating         Rating             `json:"rating"`
	CreatedAt      time.Time          `json:"created_at"`
	LastUpdatedAt  time.Time          `json:"last_updated_at"`
	IsVisible      bool               `json:"is_visible"`
}

// ReviewUpdate carries the fields of a partial review update. Nil fields are
// left untouched.
type ReviewUpdate struct {
	Body      *string
	Rating    *Rating
	IsVisible *bool
}

// IsZero reports whether the update would change nothing.
func (u ReviewUpdate) IsZero() bool {
	return u.Body == nil && u.Rating == nil && u.IsVisible == nil
}

// ReviewFilter restricts a review listing. Nil fields do not filter.
type ReviewFilter struct {
	UserID           *uuid.UUID
	ProductVariantID *uuid.UUID
}
