package httpserver

import (
	"fmt"
	"net/http"

	"github.com/glory03023/datura-ai-fastapi-task/internal/app"
	apperrors "github.com/glory03023/datura-ai-fastapi-task/internal/platform/errors"
	"github.com/labstack/echo/v4"
)

type registerRequest struct {
	Username string `json:"username" form:"username" query:"username"`
	FullName string `json:"full_name" form:"full_name" query:"full_name"`
	Email    string `json:"email" form:"email" query:"email"`
	Password string `json:"password" form:"password" query:"password"`
}

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// handleRegister accepts the registration fields as a JSON or form body, or
// as query parameters.
func (s *Server) handleRegister(c echo.Context) error {
	var req registerRequest
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &req); err != nil {
		return apperrors.ValidationError("invalid query parameters")
	}
	if c.Request().ContentLength != 0 {
		if err := (&echo.DefaultBinder{}).BindBody(c, &req); err != nil {
			return apperrors.ValidationError("invalid request body")
		}
	}

	user, err := s.app.Register(c.Request().Context(), app.Registration{
		Username: req.Username,
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	response := map[string]any{
		"result": map[string]string{
			"message": fmt.Sprintf("User created successfully with ID: %s", user.ID),
		},
	}
	if err := c.JSON(http.StatusCreated, response); err != nil {
		return fmt.Errorf("failed to write register response: %w", err)
	}
	return nil
}

// handleLogin is the OAuth2 password grant: form fields username and password.
// A JSON body is accepted too.
func (s *Server) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := (&echo.DefaultBinder{}).BindBody(c, &req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.Username == "" || req.Password == "" {
		return apperrors.ValidationError("username and password are required")
	}

	token, err := s.app.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, tokenResponse{AccessToken: token.Token, TokenType: token.Type}); err != nil {
		return fmt.Errorf("failed to write token response: %w", err)
	}
	return nil
}
