package redis

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/glory03023/datura-ai-fastapi-task/internal/adapter/metrics"
	"github.com/glory03023/datura-ai-fastapi-task/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

const dividendKeyPrefix = "tao_dividend:"

// DividendCache stores encoded dividend results with a per-key TTL. Backend
// failures are logged and surface as misses.
type DividendCache struct {
	rdb     goredis.Cmdable
	metrics *metrics.CacheMetrics
}

var _ domain.DividendCache = (*DividendCache)(nil)

func NewDividendCache(rdb goredis.Cmdable, m *metrics.CacheMetrics) *DividendCache {
	return &DividendCache{rdb: rdb, metrics: m}
}

func (c *DividendCache) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := c.rdb.Get(ctx, dividendKeyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			slog.WarnContext(ctx, "Dividend cache GET failed", "key", key, "error", err)
			c.countError("get")
		}
		c.count(key, false)
		return nil, false
	}

	c.count(key, true)
	return data, true
}

func (c *DividendCache) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := c.rdb.Set(ctx, dividendKeyPrefix+key, value, ttl).Err(); err != nil {
		slog.WarnContext(ctx, "Dividend cache SET failed", "key", key, "error", err)
		c.countError("set")
	}
}

func (c *DividendCache) count(key string, hit bool) {
	if c.metrics == nil {
		return
	}
	shape, _, _ := strings.Cut(key, ":")
	if hit {
		c.metrics.Hits.WithLabelValues(shape).Inc()
	} else {
		c.metrics.Misses.WithLabelValues(shape).Inc()
	}
}

func (c *DividendCache) countError(op string) {
	if c.metrics != nil {
		c.metrics.Errors.WithLabelValues(op).Inc()
	}
}

// Ping reports whether Redis is reachable, for readiness checks.
func (c *DividendCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
