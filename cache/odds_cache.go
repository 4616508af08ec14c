package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/htc101524/BoardGameMondays-sub002/models"
	"github.com/htc101524/BoardGameMondays-sub002/service"
)

// Connect opens a Redis client and verifies the connection
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return rdb, nil
}

// OddsCache is the Redis read-path cache for odds sheets. Odds are immutable
// once a bet exists, so staleness only matters across regeneration and
// resolution, both of which invalidate explicitly; the TTL is a backstop.
type OddsCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewOddsCache creates a new odds cache
func NewOddsCache(rdb *redis.Client, ttl time.Duration) service.OddsCache {
	return &OddsCache{rdb: rdb, ttl: ttl}
}

func sessionKey(sessionID int64) string {
	return fmt.Sprintf("odds:session:%d", sessionID)
}

// GetOdds returns the cached odds sheet; found is false on a miss
func (c *OddsCache) GetOdds(ctx context.Context, sessionID int64) ([]*models.OddsEntry, bool, error) {
	b, err := c.rdb.Get(ctx, sessionKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read odds cache: %w", err)
	}

	var entries []*models.OddsEntry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached odds: %w", err)
	}
	return entries, true, nil
}

// SetOdds stores an odds sheet
func (c *OddsCache) SetOdds(ctx context.Context, sessionID int64, entries []*models.OddsEntry) error {
	b, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode odds: %w", err)
	}
	return c.rdb.Set(ctx, sessionKey(sessionID), b, c.ttl).Err()
}

// Invalidate drops a cached odds sheet
func (c *OddsCache) Invalidate(ctx context.Context, sessionID int64) error {
	return c.rdb.Del(ctx, sessionKey(sessionID)).Err()
}
