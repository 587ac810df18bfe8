// Package cache caches computed average ratings in Redis so hot product
// variant pages do not recompute them on every request.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// noneSentinel marks a variant known to have no visible reviews, so the
// absence of a rating is cached too.
const noneSentinel = "none"

// RatingCache stores computed average ratings per product variant. A nil
// *RatingCache is valid and behaves as a cache that never hits.
type RatingCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRatingCache creates a rating cache backed by the given Redis client.
func NewRatingCache(client *redis.Client, ttl time.Duration) *RatingCache {
	return &RatingCache{
		client: client,
		ttl:    ttl,
	}
}

func ratingKey(productVariantID uuid.UUID) string {
	return "review:avg_rating:" + productVariantID.String()
}

// Get returns the cached average rating for a product variant. The boolean
// reports a cache hit; on a hit the rating may still be nil when the variant
// has no visible reviews.
func (c *RatingCache) Get(ctx context.Context, productVariantID uuid.UUID) (*float32, bool, error) {
	if c == nil || c.client == nil {
		return nil, false, nil
	}

	val, err := c.client.Get(ctx, ratingKey(productVariantID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get cached rating: %w", err)
	}
	if val == noneSentinel {
		return nil, true, nil
	}

	f, err := strconv.ParseFloat(val, 32)
	if err != nil {
		return nil, false, fmt.Errorf("parse cached rating %q: %w", val, err)
	}
	rating := float32(f)
	return &rating, true, nil
}

// Set caches the average rating for a product variant. A nil rating records
// that the variant currently has no visible reviews.
func (c *RatingCache) Set(ctx context.Context, productVariantID uuid.UUID, rating *float32) error {
	if c == nil || c.client == nil {
		return nil
	}

	val := noneSentinel
	if rating != nil {
		val = strconv.FormatFloat(float64(*rating), 'f', -1, 32)
	}
	if err := c.client.Set(ctx, ratingKey(productVariantID), val, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache rating: %w", err)
	}
	return nil
}

// Invalidate drops the cached rating for a product variant. Called after any
// review mutation touching the variant.
func (c *RatingCache) Invalidate(ctx context.Context, productVariantID uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Del(ctx, ratingKey(productVariantID)).Err(); err != nil {
		return fmt.Errorf("invalidate cached rating: %w", err)
	}
	return nil
}
