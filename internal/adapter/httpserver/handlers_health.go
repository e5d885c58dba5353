package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/glory03023/datura-ai-fastapi-task/internal/platform/version"
	"github.com/labstack/echo/v4"
)

const (
	startupProbeTimeout   = 2 * time.Second
	readinessProbeTimeout = 5 * time.Second
)

// HealthCheck is a named health check function. A failing Degradable check
// is reported but keeps the instance ready: the gateway still answers, only
// slower or with absent values.
type HealthCheck struct {
	Name       string
	Check      func(ctx context.Context) error
	Degradable bool
}

func (s *Server) registerHealthRoutes() {
	s.echo.GET("/health/startup", s.handleStartup)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/version", s.handleVersion)
}

func (s *Server) handleStartup(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), startupProbeTimeout)
	defer cancel()

	return s.runHealthChecks(c, ctx)
}

func (s *Server) handleLiveness(c echo.Context) error {
	response := map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startTime).Seconds(),
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to write liveness response: %w", err)
	}
	return nil
}

func (s *Server) handleReadiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessProbeTimeout)
	defer cancel()

	return s.runHealthChecks(c, ctx)
}

// runHealthChecks runs every check and reports each one, so a chain outage
// does not hide a broken database. Only non-degradable failures return 503.
func (s *Server) runHealthChecks(c echo.Context, ctx context.Context) error {
	checks := make(map[string]string, len(s.healthChecks))
	status, code := "ready", http.StatusOK

	for _, hc := range s.healthChecks {
		err := hc.Check(ctx)
		switch {
		case err == nil:
			checks[hc.Name] = "ok"
		case hc.Degradable:
			checks[hc.Name] = "degraded: " + err.Error()
			if code == http.StatusOK {
				status = "degraded"
			}
		default:
			checks[hc.Name] = err.Error()
			status, code = "unhealthy", http.StatusServiceUnavailable
		}
	}

	response := map[string]any{
		"status": status,
		"checks": checks,
	}
	if err := c.JSON(code, response); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleVersion(c echo.Context) error {
	if err := c.JSON(http.StatusOK, version.Get()); err != nil {
		return fmt.Errorf("failed to write version response: %w", err)
	}
	return nil
}
