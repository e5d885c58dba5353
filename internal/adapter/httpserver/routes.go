package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// unmeteredRoutes are left out of request metrics: scrapes and probes would
// drown out API traffic.
var unmeteredRoutes = []string{"/metrics", "/health/*", "/version"}

func (s *Server) registerRoutes() {
	s.echo.Use(correlationMiddleware)
	s.echo.Use(s.setupRequestLoggerMiddleware())
	s.echo.Use(middleware.Recover())
	if s.httpMetrics != nil {
		s.echo.Use(s.httpMetrics.Middleware(unmeteredRoutes...))
	}
	s.echo.Use(ErrorHandlingMiddleware())
	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            63072000, // 2 years; only sent over HTTPS
		HSTSPreloadEnabled:    true,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		ReferrerPolicy:        "no-referrer",
	}))

	s.echo.GET("/", s.handleRoot)

	s.registerHealthRoutes()
	if s.metricsHandler != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metricsHandler))
	}
	s.registerAuthRoutes()
	s.registerAPIRoutes()
}

func (s *Server) registerAuthRoutes() {
	limiter := newAuthLimiter(s.config.AuthRateLimit, s.httpMetrics.ObserveThrottled).middleware()

	s.echo.POST("/api/v1/register", s.handleRegister, limiter)
	s.echo.POST("/api/v1/login", s.handleLogin, limiter)
}

func (s *Server) registerAPIRoutes() {
	api := s.echo.Group("/api/v1", s.requireBearer)
	api.GET("/tao_dividends", s.handleTaoDividends)
	api.GET("/sentiment", s.handleSentiment)
	api.GET("/trading_actions", s.handleTradingActions)
}

func (s *Server) setupRequestLoggerMiddleware() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/health/live"
		},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			slog.InfoContext(c.Request().Context(), "Request", attrs...)
			return nil
		},
	})
}

func (s *Server) handleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": "Please refer to the API documentation"})
}
