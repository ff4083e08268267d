package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/api/metrics"
	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/domain"
	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/ports"
)

const (
	defaultPendingLimit = 100
	defaultAuditLimit   = 50
)

// AdminHandler serves the account back office.
type AdminHandler struct {
	accounts ports.AccountService
	stats    ports.StatsService
	audit    ports.AuditService
}

func NewAdminHandler(accounts ports.AccountService, stats ports.StatsService, audit ports.AuditService) *AdminHandler {
	return &AdminHandler{accounts: accounts, stats: stats, audit: audit}
}

// PendingUsers lists accounts waiting for approval, oldest first.
//
// @Summary      Pending registrations
// @Tags         admin-users
// @Produce      json
// @Security     BearerAuth
// @Param        limit  query     int  false  "Max items (default 100)"
// @Success      200    {object}  accountListResponse
// @Failure      403    {object}  errorResponse
// @Router       /admin/pending-users [get]
func (h *AdminHandler) PendingUsers(c echo.Context) error {
	limit, err := queryInt(c, "limit", defaultPendingLimit)
	if err != nil {
		return err
	}
	accounts, err := h.accounts.ListPending(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountListResponse(accounts))
}

// GetUser returns one account.
//
// @Summary      Get an account
// @Tags         admin-users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Account id"
// @Success      200  {object}  accountResponse
// @Failure      404  {object}  errorResponse
// @Router       /admin/users/{id} [get]
func (h *AdminHandler) GetUser(c echo.Context) error {
	account, err := h.accounts.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountResponse(account))
}

// Approve activates a pending or suspended account.
//
// @Summary      Approve an account
// @Tags         admin-users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      userActionRequest  true  "Target account"
// @Success      200   {object}  accountResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /admin/approve-user [post]
func (h *AdminHandler) Approve(c echo.Context) error {
	return h.act(c, "approve", func(ctx context.Context, actor *domain.Account, req userActionRequest) (*domain.Account, error) {
		return h.accounts.Approve(ctx, actor, req.UserID)
	})
}

// Reject closes a pending registration.
//
// @Summary      Reject an account
// @Tags         admin-users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      userActionRequest  true  "Target account and reason"
// @Success      200   {object}  accountResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /admin/reject-user [post]
func (h *AdminHandler) Reject(c echo.Context) error {
	return h.act(c, "reject", func(ctx context.Context, actor *domain.Account, req userActionRequest) (*domain.Account, error) {
		return h.accounts.Reject(ctx, actor, req.UserID, req.Reason)
	})
}

// Suspend blocks an active account.
//
// @Summary      Suspend an account
// @Tags         admin-users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      userActionRequest  true  "Target account and reason"
// @Success      200   {object}  accountResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /admin/suspend-user [post]
func (h *AdminHandler) Suspend(c echo.Context) error {
	return h.act(c, "suspend", func(ctx context.Context, actor *domain.Account, req userActionRequest) (*domain.Account, error) {
		return h.accounts.Suspend(ctx, actor, req.UserID, req.Reason)
	})
}

// Promote grants ADMIN to an active account.
//
// @Summary      Promote to admin
// @Tags         admin-users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      userActionRequest  true  "Target account"
// @Success      200   {object}  accountResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /admin/promote-user [post]
func (h *AdminHandler) Promote(c echo.Context) error {
	return h.act(c, "promote", func(ctx context.Context, actor *domain.Account, req userActionRequest) (*domain.Account, error) {
		return h.accounts.Promote(ctx, actor, req.UserID)
	})
}

// MarkFounder flags an account as founder.
//
// @Summary      Mark as founder
// @Tags         admin-users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      userActionRequest  true  "Target account"
// @Success      200   {object}  accountResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /admin/mark-founder [post]
func (h *AdminHandler) MarkFounder(c echo.Context) error {
	return h.act(c, "mark_founder", func(ctx context.Context, actor *domain.Account, req userActionRequest) (*domain.Account, error) {
		return h.accounts.MarkFounder(ctx, actor, req.UserID)
	})
}

// Stats returns the cached lifecycle overview.
//
// @Summary      Lifecycle statistics
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  statsResponse
// @Router       /admin/stats [get]
func (h *AdminHandler) Stats(c echo.Context) error {
	stats, err := h.stats.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toStatsResponse(stats))
}

// AuditLogs returns the newest audit entries.
//
// @Summary      Audit log
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        limit  query     int  false  "Max items (default 50, max 500)"
// @Success      200    {object}  auditListResponse
// @Router       /admin/audit-logs [get]
func (h *AdminHandler) AuditLogs(c echo.Context) error {
	limit, err := queryInt(c, "limit", defaultAuditLimit)
	if err != nil {
		return err
	}
	entries, err := h.audit.Recent(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAuditListResponse(entries))
}

type accountAction func(ctx context.Context, actor *domain.Account, req userActionRequest) (*domain.Account, error)

// act runs one state machine action for the live actor and records the outcome.
func (h *AdminHandler) act(c echo.Context, name string, fn accountAction) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	var req userActionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	account, err := fn(c.Request().Context(), actor, req)
	if err != nil {
		metrics.AccountTransitionsTotal.WithLabelValues(name, "error").Inc()
		return err
	}
	metrics.AccountTransitionsTotal.WithLabelValues(name, "ok").Inc()
	return c.JSON(http.StatusOK, toAccountResponse(account))
}
