package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisSlotCache keeps the last computed availability for a venue and date.
// Entries serve degraded reads only and are dropped on every booking write.
type RedisSlotCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisSlotCache(client redis.Cmdable, ttl time.Duration) *RedisSlotCache {
	if ttl <= 0 {
		ttl = models.SlotCacheTTL
	}
	return &RedisSlotCache{client: client, ttl: ttl}
}

func slotCacheKey(venueID string, date time.Time) string {
	return fmt.Sprintf("slots:%s:%s", venueID, date.Format(models.DateLayout))
}

func (c *RedisSlotCache) Get(ctx context.Context, venueID string, date time.Time) ([]models.SlotAvailability, bool, error) {
	if c.client == nil {
		return nil, false, errNilClient
	}
	val, err := c.client.Get(ctx, slotCacheKey(venueID, date)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read slot cache: %w", err)
	}

	var slots []models.SlotAvailability
	if err := json.Unmarshal(val, &slots); err != nil {
		return nil, false, fmt.Errorf("failed to decode slot cache: %w", err)
	}
	return slots, true, nil
}

func (c *RedisSlotCache) Set(ctx context.Context, venueID string, date time.Time, slots []models.SlotAvailability) error {
	if c.client == nil {
		return errNilClient
	}
	data, err := json.Marshal(slots)
	if err != nil {
		return fmt.Errorf("failed to encode slots: %w", err)
	}
	if err := c.client.Set(ctx, slotCacheKey(venueID, date), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write slot cache: %w", err)
	}
	return nil
}

func (c *RedisSlotCache) Invalidate(ctx context.Context, venueID string, date time.Time) error {
	if c.client == nil {
		return errNilClient
	}
	if err := c.client.Del(ctx, slotCacheKey(venueID, date)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate slot cache: %w", err)
	}
	return nil
}
