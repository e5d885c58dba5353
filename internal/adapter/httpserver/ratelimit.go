package httpserver

import (
	"math"
	"strconv"
	"time"

	apperrors "github.com/glory03023/datura-ai-fastapi-task/internal/platform/errors"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// Idle client buckets are dropped after this long.
const limiterBucketTTL = 5 * time.Minute

// authLimiter throttles credential endpoints per client IP.
type authLimiter struct {
	perSecond float64
	burst     int
	// onDeny receives the route template of every rejected request. May be nil.
	onDeny func(route string)
}

// newAuthLimiter derives the burst from the rate so a client can always make
// at least one request.
func newAuthLimiter(perSecond float64, onDeny func(route string)) authLimiter {
	return authLimiter{
		perSecond: perSecond,
		burst:     max(1, int(math.Ceil(perSecond))),
		onDeny:    onDeny,
	}
}

func (l authLimiter) middleware() echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(l.perSecond),
		Burst:     l.burst,
		ExpiresIn: limiterBucketTTL,
	})

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: l.deny,
	})
}

func (l authLimiter) deny(c echo.Context, clientIP string, _ error) error {
	if l.onDeny != nil {
		l.onDeny(c.Path())
	}
	c.Response().Header().Set("Retry-After", strconv.Itoa(l.retryAfterSeconds()))
	return HandleError(c, apperrors.RateLimitedError("rate limit exceeded").WithField("client_ip", clientIP))
}

// retryAfterSeconds is the time until one token refills, rounded up.
func (l authLimiter) retryAfterSeconds() int {
	if l.perSecond <= 0 {
		return int(limiterBucketTTL.Seconds())
	}
	return max(1, int(math.Ceil(1/l.perSecond)))
}
