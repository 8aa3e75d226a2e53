package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"cuentas/internal/auth"
	"cuentas/internal/errors"
	"cuentas/internal/model"
	"cuentas/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	accountService service.AccountService
	jwtService     *auth.JWTService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(accountService service.AccountService, jwtService *auth.JWTService) *AuthHandler {
	return &AuthHandler{accountService: accountService, jwtService: jwtService}
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse represents an authentication response.
type AuthResponse struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	ExpiresIn   int            `json:"expires_in"`
	Account     *model.Account `json:"account"`
}

// Login godoc
// @Summary Login with username and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	account, err := h.accountService.ValidateCredentials(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return toHTTPError(err)
	}

	token, err := h.jwtService.GenerateAccessToken(account.ID, account.Role)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, errors.ErrorResponse{
			Error: "failed to issue token",
			Code:  "LOGIN_FAILED",
		})
	}

	return c.JSON(http.StatusOK, AuthResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(auth.AccessTokenExpiry.Seconds()),
		Account:     account,
	})
}

// Me godoc
// @Summary Get the authenticated account
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.Account
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	_, id, err := claimsFrom(c)
	if err != nil {
		return err
	}

	account, err := h.accountService.GetByID(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, account)
}
