package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fieldcase/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const userKeyPattern = "user:%d"

// UserTTL bounds how stale a cached profile can be.
const UserTTL = 5 * time.Minute

// UserKey is the cache key for a user profile.
func UserKey(userID uint) string {
	return fmt.Sprintf(userKeyPattern, userID)
}

// Aside implements read-through caching. On a hit dest is filled from Redis.
// On a miss fetch fills dest and the result is stored for ttl. Redis failures
// degrade to calling fetch directly.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	if client == nil {
		return fetch()
	}

	raw, err := client.Get(ctx, key).Bytes()
	if err == nil {
		if jerr := json.Unmarshal(raw, dest); jerr == nil {
			return nil
		}
		// Corrupt entry; fall through and overwrite it.
	} else if !errors.Is(err, redis.Nil) {
		middleware.Logger.DebugContext(ctx, "cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	}

	if err := fetch(); err != nil {
		return err
	}

	payload, err := json.Marshal(dest)
	if err != nil {
		return nil
	}
	if err := client.Set(ctx, key, payload, ttl).Err(); err != nil {
		middleware.Logger.DebugContext(ctx, "cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return nil
}

// Invalidate deletes key. Errors are ignored; entries expire on their own.
func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

// InvalidateUser drops the cached profile for userID.
func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}
