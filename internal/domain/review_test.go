package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRating_Valid(t *testing.T) {
	for r := OneStar; r <= FiveStars; r++ {
		assert.True(t, r.Valid(), "rating %d should be valid", r)
	}
	assert.False(t, Rating(0).Valid())
	assert.False(t, Rating(6).Valid())
	assert.False(t, Rating(-1).Valid())
}

func TestReviewUpdate_IsZero(t *testing.T) {
	assert.True(t, ReviewUpdate{}.IsZero())

	body := "updated"
	assert.False(t, ReviewUpdate{Body: &body}.IsZero())

	rating := ThreeStars
	assert.False(t, ReviewUpdate{Rating: &rating}.IsZero())

	visible := false
	assert.False(t, ReviewUpdate{IsVisible: &visible}.IsZero())
}

func TestReviewOrderField_Column(t *testing.T) {
	tests := []struct {
		field  ReviewOrderField
		column string
	}{
		{OrderByID, "id"},
		{OrderByUserID, "user_id"},
		{OrderByProductVariant, "product_variant_id"},
		{OrderByRating, "rating"},
		{OrderByCreatedAt, "last_updated_at"},
		{ReviewOrderField("unknown"), "id"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.column, tt.field.Column())
	}
}

func TestParseReviewOrderField(t *testing.T) {
	assert.Equal(t, OrderByRating, ParseReviewOrderField("rating"))
	assert.Equal(t, OrderByCreatedAt, ParseReviewOrderField("created_at"))
	assert.Equal(t, OrderByID, ParseReviewOrderField(""))
	assert.Equal(t, OrderByID, ParseReviewOrderField("nonsense"))
}
