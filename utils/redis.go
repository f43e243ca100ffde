package utils

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to addr. It returns nil when addr is empty or the
// server does not answer; callers then fall back to in-process or database
// stores.
func NewRedisClient(addr, password string, db int, logger *slog.Logger) *redis.Client {
	addr = strings.ReplaceAll(strings.TrimSpace(addr), " ", "")
	if addr == "" {
		return nil
	}
	rc := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping failed, continuing without redis", "addr", addr, "err", err)
		_ = rc.Close()
		return nil
	}
	return rc
}
