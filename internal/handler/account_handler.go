package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"cuentas/internal/errors"
	"cuentas/internal/model"
	"cuentas/internal/service"
)

// AccountHandler handles account endpoints.
type AccountHandler struct {
	accountService service.AccountService
}

// NewAccountHandler creates a new account handler.
func NewAccountHandler(accountService service.AccountService) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

// CreateAccountRequest represents an account registration request.
// Field rules are enforced by the account service so every client sees the same messages.
type CreateAccountRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Age       int    `json:"age" validate:"gte=0"`
	Role      int    `json:"role" validate:"gte=0"`
}

// UpdateAccountRequest represents an account update request. An empty password keeps
// the current one.
type UpdateAccountRequest struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Age       int    `json:"age"`
	Role      int    `json:"role" validate:"gte=0"`
}

// CreatedResponse is returned after a successful registration.
type CreatedResponse struct {
	Message string `json:"message"`
	ID      uint   `json:"id"`
}

// AccountSummary is the subset of an account echoed after an update.
type AccountSummary struct {
	ID        uint   `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Role      int    `json:"role"`
}

// UpdatedResponse is returned after a successful update.
type UpdatedResponse struct {
	Message string         `json:"message"`
	Data    AccountSummary `json:"data"`
}

// DeletedResponse is returned after a successful deletion.
type DeletedResponse struct {
	Message string `json:"message"`
	ID      uint   `json:"id"`
}

// ListAccounts godoc
// @Summary List all accounts
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.Account
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /accounts [get]
func (h *AccountHandler) ListAccounts(c echo.Context) error {
	claims, _, err := claimsFrom(c)
	if err != nil {
		return err
	}
	if !claims.IsAdmin() {
		return forbidden()
	}

	accounts, err := h.accountService.ListAll(c.Request().Context())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, accounts)
}

// GetAccount godoc
// @Summary Get account by id
// @Description Callers may read their own account; administrators may read any.
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Account ID"
// @Success 200 {object} model.Account
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /accounts/{id} [get]
func (h *AccountHandler) GetAccount(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if _, err := requireSelfOrAdmin(c, id); err != nil {
		return err
	}

	account, err := h.accountService.GetByID(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, account)
}

// GetAccountsByRole godoc
// @Summary List accounts with a role
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param role path int true "Role code (1 admin, 2 doctor, 3 patient)"
// @Success 200 {array} model.Account
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /accounts/role/{role} [get]
func (h *AccountHandler) GetAccountsByRole(c echo.Context) error {
	role, err := strconv.Atoi(c.Param("role"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid role",
			Code:  "INVALID_ROLE",
		})
	}

	accounts, err := h.accountService.GetByRole(c.Request().Context(), role)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, accounts)
}

// GetAccountByUsername godoc
// @Summary Get account by username
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param username path string true "Username"
// @Success 200 {object} model.Account
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /accounts/username/{username} [get]
func (h *AccountHandler) GetAccountByUsername(c echo.Context) error {
	account, err := h.accountService.GetByUsername(c.Request().Context(), c.Param("username"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, account)
}

// CreateAccount godoc
// @Summary Register a new account
// @Description Role defaults to patient. Administrator accounts cannot self-register.
// @Tags accounts
// @Accept json
// @Produce json
// @Param request body CreateAccountRequest true "Account data"
// @Success 201 {object} CreatedResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /accounts [post]
func (h *AccountHandler) CreateAccount(c echo.Context) error {
	var req CreateAccountRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	role := req.Role
	switch role {
	case 0:
		role = model.RolePatient
	case model.RoleAdmin:
		return echo.NewHTTPError(http.StatusForbidden, errors.ErrorResponse{
			Error: "administrator accounts cannot self-register",
			Code:  "FORBIDDEN",
		})
	}

	id, err := h.accountService.Create(c.Request().Context(), service.CreateAccountInput{
		Username:  req.Username,
		Password:  req.Password,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Age:       req.Age,
		Role:      role,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusCreated, CreatedResponse{
		Message: "account created successfully",
		ID:      id,
	})
}

// UpdateAccount godoc
// @Summary Update an account
// @Description Only administrators may change the role; it is ignored for everyone else.
// @Tags accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Account ID"
// @Param request body UpdateAccountRequest true "Account data"
// @Success 200 {object} UpdatedResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /accounts/{id} [put]
func (h *AccountHandler) UpdateAccount(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	claims, err := requireSelfOrAdmin(c, id)
	if err != nil {
		return err
	}

	var req UpdateAccountRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if !claims.IsAdmin() {
		req.Role = 0
	}

	updated, err := h.accountService.Update(c.Request().Context(), id, service.UpdateAccountInput{
		ID:        req.ID,
		Username:  req.Username,
		Password:  req.Password,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Age:       req.Age,
		Role:      req.Role,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, UpdatedResponse{
		Message: "account updated successfully",
		Data: AccountSummary{
			ID:        updated.ID,
			FirstName: updated.FirstName,
			LastName:  updated.LastName,
			Email:     updated.Email,
			Role:      updated.Role,
		},
	})
}

// DeleteAccount godoc
// @Summary Delete an account and its dependent records
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Account ID"
// @Success 200 {object} DeletedResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /accounts/{id} [delete]
func (h *AccountHandler) DeleteAccount(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if _, err := requireSelfOrAdmin(c, id); err != nil {
		return err
	}

	deleted, err := h.accountService.Delete(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, DeletedResponse{
		Message: "account deleted successfully",
		ID:      deleted,
	})
}
