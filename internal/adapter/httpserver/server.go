package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/glory03023/datura-ai-fastapi-task/internal/adapter/metrics"
	"github.com/glory03023/datura-ai-fastapi-task/internal/app"
	"github.com/glory03023/datura-ai-fastapi-task/internal/domain"
	"github.com/glory03023/datura-ai-fastapi-task/internal/platform/config"
	"github.com/glory03023/datura-ai-fastapi-task/internal/sentiment"
	"github.com/labstack/echo/v4"
)

type appService interface {
	Register(ctx context.Context, r app.Registration) (*domain.User, error)
	Login(ctx context.Context, username, password string) (app.AccessToken, error)
	Authenticate(ctx context.Context, token string) (*domain.User, error)
	QueryDividends(ctx context.Context, user *domain.User, req app.DividendRequest) (app.DividendReport, error)
	CurrentSentiment() sentiment.Reading
	ListTradingActions(ctx context.Context, user *domain.User, limit int) ([]domain.TradingAction, error)
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	app            appService
	healthChecks   []HealthCheck
	metricsHandler http.Handler
	httpMetrics    *metrics.HTTPMetrics
	startTime      time.Time
}

// NewServer wires routes and middleware. metricsHandler and httpMetrics may be nil.
func NewServer(cfg *config.Config, svc appService, healthChecks []HealthCheck, metricsHandler http.Handler, httpMetrics *metrics.HTTPMetrics) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:           e,
		config:         cfg,
		app:            svc,
		healthChecks:   healthChecks,
		metricsHandler: metricsHandler,
		httpMetrics:    httpMetrics,
		startTime:      time.Now(),
	}

	e.HTTPErrorHandler = srv.handleHTTPError
	srv.registerRoutes()

	return srv
}

// Handler exposes the router, mainly for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// handleHTTPError renders router and binder errors in the same JSON shape as
// application errors.
func (s *Server) handleHTTPError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		err = WrapHTTPError(httpErr)
	}
	if herr := HandleError(c, err); herr != nil {
		slog.ErrorContext(c.Request().Context(), "Failed to write error response", "error", herr)
	}
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
