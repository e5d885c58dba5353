package httpserver

import (
	"context"
	"testing"
	"time"

	"github.com/glory03023/datura-ai-fastapi-task/internal/adapter/metrics"
	"github.com/glory03023/datura-ai-fastapi-task/internal/app"
	"github.com/glory03023/datura-ai-fastapi-task/internal/domain"
	"github.com/glory03023/datura-ai-fastapi-task/internal/platform/config"
	"github.com/glory03023/datura-ai-fastapi-task/internal/sentiment"
	"github.com/google/uuid"
)

type mockAppService struct {
	registerFn       func(ctx context.Context, r app.Registration) (*domain.User, error)
	loginFn          func(ctx context.Context, username, password string) (app.AccessToken, error)
	authenticateFn   func(ctx context.Context, token string) (*domain.User, error)
	queryDividendsFn func(ctx context.Context, user *domain.User, req app.DividendRequest) (app.DividendReport, error)
	sentimentFn      func() sentiment.Reading
	listActionsFn    func(ctx context.Context, user *domain.User, limit int) ([]domain.TradingAction, error)
}

func (m *mockAppService) Register(ctx context.Context, r app.Registration) (*domain.User, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, r)
	}
	return &domain.User{ID: uuid.New(), Username: r.Username}, nil
}

func (m *mockAppService) Login(ctx context.Context, username, password string) (app.AccessToken, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, username, password)
	}
	return app.AccessToken{Token: "token", Type: "bearer", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (m *mockAppService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	if m.authenticateFn != nil {
		return m.authenticateFn(ctx, token)
	}
	return testUser, nil
}

func (m *mockAppService) QueryDividends(ctx context.Context, user *domain.User, req app.DividendRequest) (app.DividendReport, error) {
	if m.queryDividendsFn != nil {
		return m.queryDividendsFn(ctx, user, req)
	}
	return app.DividendReport{Message: app.NoQueryMessage}, nil
}

func (m *mockAppService) CurrentSentiment() sentiment.Reading {
	if m.sentimentFn != nil {
		return m.sentimentFn()
	}
	return sentiment.Reading{}
}

func (m *mockAppService) ListTradingActions(ctx context.Context, user *domain.User, limit int) ([]domain.TradingAction, error) {
	if m.listActionsFn != nil {
		return m.listActionsFn(ctx, user, limit)
	}
	return nil, nil
}

var testUser = &domain.User{
	ID:       uuid.MustParse("6f1c2a8e-3b4d-4e5f-8a9b-0c1d2e3f4a5b"),
	Username: "alice",
	FullName: "Alice Example",
	Email:    "alice@example.com",
}

type testServerOption func(*testServerOptions)

type testServerOptions struct {
	healthChecks  []HealthCheck
	authRateLimit float64
	httpMetrics   *metrics.HTTPMetrics
}

func withHealthChecks(checks ...HealthCheck) testServerOption {
	return func(o *testServerOptions) { o.healthChecks = checks }
}

func withAuthRateLimit(rps float64) testServerOption {
	return func(o *testServerOptions) { o.authRateLimit = rps }
}

func withHTTPMetrics(m *metrics.HTTPMetrics) testServerOption {
	return func(o *testServerOptions) { o.httpMetrics = m }
}

func newTestServer(t *testing.T, svc appService, opts ...testServerOption) *Server {
	t.Helper()

	o := testServerOptions{authRateLimit: 1000}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := &config.Config{
		AppEnv:        "test",
		Port:          "0",
		AuthRateLimit: o.authRateLimit,
	}
	return NewServer(cfg, svc, o.healthChecks, nil, o.httpMetrics)
}
