package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// GetJSON decodes the value under key into v. An undecodable entry is
// dropped and reported as absent.
func GetJSON(ctx context.Context, c CacheService, key string, v any) bool {
	raw, ok := c.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		slog.Warn("cache: dropping undecodable entry", "key", key, "error", err)
		_ = c.Delete(ctx, key)
		return false
	}
	return true
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, c CacheService, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, raw, ttl)
}
