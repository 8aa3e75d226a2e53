package handler

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"cuentas/internal/auth"
	"cuentas/internal/errors"
)

// ClaimsContextKey is where the JWT middleware stores the validated *auth.Claims.
const ClaimsContextKey = "user"

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator returns the request validator installed on the echo instance.
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// bind decodes and validates the request body into req.
func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_REQUEST",
		})
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: err.Error(),
			Code:  "VALIDATION_ERROR",
		})
	}
	return nil
}

// toHTTPError renders a service error through MapErrorToHTTP.
func toHTTPError(err error) error {
	httpErr := errors.MapErrorToHTTP(err)
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.Response)
}

func claimsFrom(c echo.Context) (*auth.Claims, uint, error) {
	claims, ok := c.Get(ClaimsContextKey).(*auth.Claims)
	if !ok {
		return nil, 0, unauthorized()
	}
	id, err := claims.AccountID()
	if err != nil {
		return nil, 0, unauthorized()
	}
	return claims, id, nil
}

func unauthorized() error {
	return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
		Error: "invalid token",
		Code:  "UNAUTHORIZED",
	})
}

func forbidden() error {
	return echo.NewHTTPError(http.StatusForbidden, errors.ErrorResponse{
		Error: "not allowed to access this account",
		Code:  "FORBIDDEN",
	})
}

// requireSelfOrAdmin allows the owner of account id and administrators.
func requireSelfOrAdmin(c echo.Context, id uint) (*auth.Claims, error) {
	claims, callerID, err := claimsFrom(c)
	if err != nil {
		return nil, err
	}
	if callerID != id && !claims.IsAdmin() {
		return nil, forbidden()
	}
	return claims, nil
}

func parseID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid account ID",
			Code:  "INVALID_ID",
		})
	}
	return uint(id), nil
}
