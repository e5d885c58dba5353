package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glory03023/datura-ai-fastapi-task/internal/adapter/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failing(err error) goredis.ProcessHook {
	return func(ctx context.Context, cmd goredis.Cmder) error { return err }
}

func trip(t *testing.T, hook *CircuitBreakerHook, n int) {
	t.Helper()
	ctx := context.Background()
	for range n {
		_ = hook.ProcessHook(failing(errors.New("redis down")))(ctx, goredis.NewStringCmd(ctx, "get", "key"))
	}
}

func TestCircuitBreakerHook_NormalOperation(t *testing.T) {
	hook := NewCircuitBreakerHook(nil)
	ctx := context.Background()

	for range 10 {
		err := hook.ProcessHook(failing(nil))(ctx, goredis.NewStringCmd(ctx, "get", "key"))
		assert.NoError(t, err)
	}

	assert.Equal(t, gobreaker.StateClosed, hook.GetState())
	counts := hook.GetCounts()
	assert.Equal(t, uint32(10), counts.Requests)
	assert.Equal(t, uint32(10), counts.TotalSuccesses)
}

func TestCircuitBreakerHook_CacheMissIsNotAFailure(t *testing.T) {
	hook := NewCircuitBreakerHook(nil)
	ctx := context.Background()

	for range 10 {
		err := hook.ProcessHook(failing(goredis.Nil))(ctx, goredis.NewStringCmd(ctx, "get", "missing"))
		assert.ErrorIs(t, err, goredis.Nil)
	}

	assert.Equal(t, gobreaker.StateClosed, hook.GetState())
	assert.Equal(t, uint32(0), hook.GetCounts().TotalFailures)
}

func TestCircuitBreakerHook_TransientFailuresStayClosed(t *testing.T) {
	hook := NewCircuitBreakerHook(nil)
	trip(t, hook, 2)
	assert.Equal(t, gobreaker.StateClosed, hook.GetState())
}

func TestCircuitBreakerHook_OpensAndFailsFast(t *testing.T) {
	reg := metrics.NewRegistry()
	m := metrics.NewRedisMetrics(reg)
	hook := NewCircuitBreakerHook(m)

	trip(t, hook, 5)
	require.Equal(t, gobreaker.StateOpen, hook.GetState())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BreakerState))

	called := false
	ctx := context.Background()
	err := hook.ProcessHook(func(ctx context.Context, cmd goredis.Cmder) error {
		called = true
		return nil
	})(ctx, goredis.NewStatusCmd(ctx, "set", "key", "value"))

	require.Error(t, err)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Contains(t, err.Error(), "circuit breaker open")
	assert.False(t, called, "Redis should not be called when circuit is open")
}

func TestCircuitBreakerHook_PipelineFailsWhenOpen(t *testing.T) {
	hook := NewCircuitBreakerHook(nil)
	trip(t, hook, 5)

	ctx := context.Background()
	err := hook.ProcessPipelineHook(func(ctx context.Context, cmds []goredis.Cmder) error {
		t.Fatal("Redis pipeline should not be called")
		return nil
	})(ctx, []goredis.Cmder{goredis.NewStringCmd(ctx, "get", "k1")})

	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestCircuitBreakerHook_RecoversAfterTimeout(t *testing.T) {
	hook := &CircuitBreakerHook{
		cb: gobreaker.NewCircuitBreaker(breakerSettings(nil, time.Minute, 50*time.Millisecond, 3)),
	}
	trip(t, hook, 3)
	require.Equal(t, gobreaker.StateOpen, hook.GetState())

	time.Sleep(80 * time.Millisecond)

	ctx := context.Background()
	require.NoError(t, hook.ProcessHook(failing(nil))(ctx, goredis.NewStringCmd(ctx, "get", "key")))
	assert.Equal(t, gobreaker.StateHalfOpen, hook.GetState())

	for range 2 {
		require.NoError(t, hook.ProcessHook(failing(nil))(ctx, goredis.NewStringCmd(ctx, "get", "key")))
	}
	assert.Equal(t, gobreaker.StateClosed, hook.GetState())
}

func TestStateToFloat(t *testing.T) {
	tests := []struct {
		state    gobreaker.State
		expected float64
	}{
		{gobreaker.StateClosed, 0},
		{gobreaker.StateHalfOpen, 1},
		{gobreaker.StateOpen, 2},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, stateToFloat(tt.state))
		})
	}
}
