package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/api/metrics"
	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/api/middleware"
	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/domain"
	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/ports"
)

// CookieOptions controls the token cookie written on login.
type CookieOptions struct {
	TTL    time.Duration
	Secure bool
}

type AuthHandler struct {
	accounts ports.AccountService
	cookie   CookieOptions
}

func NewAuthHandler(accounts ports.AccountService, cookie CookieOptions) *AuthHandler {
	return &AuthHandler{accounts: accounts, cookie: cookie}
}

// Register creates a pending account gated by an invitation code.
//
// @Summary      Register with an invitation code
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Registration details"
// @Success      201   {object}  registerResponse
// @Failure      400   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		return err
	}

	account, err := h.accounts.Register(c.Request().Context(), toRegisterInput(req))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmailTaken):
			metrics.RegistrationsTotal.WithLabelValues("email_taken").Inc()
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "email already registered", Reason: "email_taken"})
		case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrNotFound):
			reason := domain.CodeRejectionReason(err)
			if reason == "" {
				reason = "invalid"
			}
			metrics.RegistrationsTotal.WithLabelValues(reason).Inc()
			return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Reason: reason})
		case errors.Is(err, domain.ErrValidation):
			metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		default:
			metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		}
		return err
	}

	metrics.RegistrationsTotal.WithLabelValues("created").Inc()
	return c.JSON(http.StatusCreated, registerResponse{
		User:    toAccountResponse(account),
		Status:  string(account.Status),
		Message: "registration received, waiting for admin approval",
	})
}

// Login authenticates a member, returns a bearer token and sets the token cookie.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	token, account, err := h.accounts.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnauthorized):
			metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		case errors.Is(err, domain.ErrForbidden):
			metrics.LoginsTotal.WithLabelValues("blocked").Inc()
		default:
			metrics.LoginsTotal.WithLabelValues("error").Inc()
		}
		return err
	}

	metrics.LoginsTotal.WithLabelValues("ok").Inc()
	c.SetCookie(h.tokenCookie(token, int(h.cookie.TTL.Seconds())))
	return c.JSON(http.StatusOK, loginResponse{
		User:      toAccountResponse(account),
		Token:     token,
		ExpiresIn: int64(h.cookie.TTL.Seconds()),
	})
}

// Logout clears the token cookie. Issued tokens stay valid until they expire.
//
// @Summary      Logout
// @Tags         auth
// @Success      204
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(h.tokenCookie("", -1))
	return c.NoContent(http.StatusNoContent)
}

// Me returns the live account behind the presented token.
//
// @Summary      Current account
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  accountResponse
// @Failure      401  {object}  errorResponse
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}
	account, err := h.accounts.Get(c.Request().Context(), claims.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrUnauthenticated
		}
		return err
	}
	return c.JSON(http.StatusOK, toAccountResponse(account))
}

// CheckStatus reports the live registration status for an email.
//
// @Summary      Registration status
// @Tags         auth
// @Produce      json
// @Param        email  query     string  true  "Registered email"
// @Success      200    {object}  statusResponse
// @Failure      400    {object}  errorResponse
// @Failure      404    {object}  errorResponse
// @Router       /auth/check-status [get]
func (h *AuthHandler) CheckStatus(c echo.Context) error {
	account, err := h.accounts.CheckStatus(c.Request().Context(), c.QueryParam("email"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, statusResponse{
		Email:  account.Email,
		Status: string(account.Status),
		Role:   string(account.Role),
	})
}

func (h *AuthHandler) tokenCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
