package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/glory03023/datura-ai-fastapi-task/internal/adapter/metrics"
	goredis "github.com/redis/go-redis/v9"
)

const startupPingTimeout = 2 * time.Second

// NewClient parses redisURL and installs the metrics and circuit breaker hooks.
// An unreachable server is logged, not returned: the dividend cache treats
// every Redis failure as a miss, so the gateway can start without it.
func NewClient(ctx context.Context, redisURL string, m *metrics.RedisMetrics) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	rdb := goredis.NewClient(opts)
	rdb.AddHook(&MetricsHook{metrics: m})
	rdb.AddHook(NewCircuitBreakerHook(m))

	pingCtx, cancel := context.WithTimeout(ctx, startupPingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		slog.WarnContext(ctx, "Redis unreachable, serving dividends uncached until it recovers",
			"addr", opts.Addr, "error", err)
	}

	return rdb, nil
}
