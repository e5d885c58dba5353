package domain

import (
	"context"
	"time"
)

// DividendCache never returns errors: an unavailable backend reads as a miss
// and writes are dropped.
type DividendCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration)
}
