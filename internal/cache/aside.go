package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"alumnihub/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// Aside reads key into dest, falling back to fetch on a miss and storing the
// result for ttl. Without a client, or on Redis errors, it calls fetch
// directly. Errors from fetch are returned unchanged and never cached.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	if client == nil {
		return fetch()
	}

	raw, err := client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if jsonErr := json.Unmarshal(raw, dest); jsonErr == nil {
			return nil
		}
		Invalidate(ctx, key)
	case !errors.Is(err, redis.Nil):
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
