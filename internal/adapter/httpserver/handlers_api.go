package httpserver

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/glory03023/datura-ai-fastapi-task/internal/app"
	"github.com/glory03023/datura-ai-fastapi-task/internal/domain"
	apperrors "github.com/glory03023/datura-ai-fastapi-task/internal/platform/errors"
	"github.com/labstack/echo/v4"
)

type dividendResponse struct {
	Netuid           *domain.Netuid `json:"netuid"`
	Hotkey           *string        `json:"hotkey"`
	Dividend         any            `json:"dividend"`
	Cached           bool           `json:"cached"`
	StakeTxTriggered bool           `json:"stake_tx_triggered"`
}

type sentimentResponse struct {
	Score      float64    `json:"score"`
	ComputedAt *time.Time `json:"computed_at"`
}

type tradingActionsResponse struct {
	Actions []domain.TradingAction `json:"actions"`
}

func (s *Server) handleTaoDividends(c echo.Context) error {
	req, err := parseDividendRequest(c)
	if err != nil {
		return err
	}

	report, err := s.app.QueryDividends(c.Request().Context(), currentUser(c), req)
	if err != nil {
		return err
	}

	if report.Message != "" {
		if err := c.JSON(http.StatusOK, map[string]string{"message": report.Message}); err != nil {
			return fmt.Errorf("failed to write dividend response: %w", err)
		}
		return nil
	}

	response := dividendResponse{
		Netuid:           report.Netuid,
		Hotkey:           report.Hotkey,
		Dividend:         dividendBody(report.Dividend),
		Cached:           report.Cached,
		StakeTxTriggered: report.StakeTxTriggered,
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to write dividend response: %w", err)
	}
	return nil
}

// parseDividendRequest reads netuid, hotkey and trade. Empty parameters count
// as absent.
func parseDividendRequest(c echo.Context) (app.DividendRequest, error) {
	var req app.DividendRequest

	if raw := c.QueryParam("netuid"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 16)
		if err != nil {
			return req, apperrors.ValidationError("netuid must be an integer between 0 and 65535").
				WithField("netuid", raw)
		}
		netuid := domain.Netuid(n)
		req.Netuid = &netuid
	}

	if hotkey := c.QueryParam("hotkey"); hotkey != "" {
		req.Hotkey = &hotkey
	}

	if raw := c.QueryParam("trade"); raw != "" {
		trade, err := strconv.ParseBool(raw)
		if err != nil {
			return req, apperrors.ValidationError("trade must be a boolean").WithField("trade", raw)
		}
		req.Trade = trade
	}

	return req, nil
}

// dividendBody renders a partition as a list of single-entry {hotkey: value}
// objects so the chain's iteration order survives JSON encoding.
func dividendBody(dividend any) any {
	entries, ok := dividend.([]domain.DividendEntry)
	if !ok {
		return dividend
	}
	body := make([]map[string]domain.Rao, 0, len(entries))
	for _, e := range entries {
		body = append(body, map[string]domain.Rao{e.Hotkey: e.Value})
	}
	return body
}

func (s *Server) handleSentiment(c echo.Context) error {
	reading := s.app.CurrentSentiment()

	response := sentimentResponse{Score: reading.Value}
	if !reading.ComputedAt.IsZero() {
		at := reading.ComputedAt.UTC()
		response.ComputedAt = &at
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to write sentiment response: %w", err)
	}
	return nil
}

func (s *Server) handleTradingActions(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return apperrors.ValidationError("limit must be a positive integer").WithField("limit", raw)
		}
		limit = n
	}

	actions, err := s.app.ListTradingActions(c.Request().Context(), currentUser(c), limit)
	if err != nil {
		return err
	}
	if actions == nil {
		actions = []domain.TradingAction{}
	}

	if err := c.JSON(http.StatusOK, tradingActionsResponse{Actions: actions}); err != nil {
		return fmt.Errorf("failed to write trading actions response: %w", err)
	}
	return nil
}
