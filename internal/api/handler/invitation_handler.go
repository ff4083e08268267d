package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/api/metrics"
	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/domain"
	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/ports"
)

// InvitationHandler serves the invitation code ledger.
type InvitationHandler struct {
	ledger ports.LedgerService
}

func NewInvitationHandler(ledger ports.LedgerService) *InvitationHandler {
	return &InvitationHandler{ledger: ledger}
}

// Validate checks a code without consuming it. Unusable codes answer 200
// with valid=false and the reason.
//
// @Summary      Validate an invitation code
// @Tags         invitations
// @Accept       json
// @Produce      json
// @Param        body  body      validateCodeRequest  true  "Code to check"
// @Success      200   {object}  validateCodeResponse
// @Failure      400   {object}  errorResponse
// @Router       /invitations/validate [post]
func (h *InvitationHandler) Validate(c echo.Context) error {
	var req validateCodeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ic, err := h.ledger.Validate(c.Request().Context(), req.Code)
	if err != nil {
		if reason := domain.CodeRejectionReason(err); reason != "" {
			return c.JSON(http.StatusOK, validateCodeResponse{Valid: false, Reason: reason})
		}
		return err
	}

	expires := ic.ExpiresAt.UTC()
	return c.JSON(http.StatusOK, validateCodeResponse{
		Valid:         true,
		Role:          string(ic.Role),
		RemainingUses: ic.RemainingUses(),
		ExpiresAt:     &expires,
	})
}

// Generate creates a batch of sequential PREFIX-NNN codes.
//
// @Summary      Generate a batch of codes
// @Tags         admin-codes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      generateCodesRequest  true  "Batch parameters"
// @Success      201   {object}  codeListResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /admin/generate-code [post]
func (h *InvitationHandler) Generate(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	var req generateCodesRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	codes, err := h.ledger.Generate(c.Request().Context(), actor, toGenerateInput(req))
	if err != nil {
		return err
	}
	metrics.CodesGeneratedTotal.WithLabelValues("batch").Add(float64(len(codes)))
	return c.JSON(http.StatusCreated, toCodeListResponse(codes))
}

// GenerateInvitation creates one random PREFIX-XXXX-XXXX code.
//
// @Summary      Generate a random invitation code
// @Tags         admin-codes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      generateInvitationRequest  true  "Code parameters"
// @Success      201   {object}  codeResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /admin/invitations/generate [post]
func (h *InvitationHandler) GenerateInvitation(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	var req generateInvitationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ic, err := h.ledger.GenerateInvitation(c.Request().Context(), actor, toGenerateInvitationInput(req))
	if err != nil {
		return err
	}
	metrics.CodesGeneratedTotal.WithLabelValues("random").Inc()
	return c.JSON(http.StatusCreated, toCodeResponse(ic))
}

// CreateLegacy stores a hand-picked founder code.
//
// @Summary      Create a legacy founder code
// @Tags         admin-codes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      legacyCodeRequest  true  "Legacy code"
// @Success      201   {object}  codeResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /admin/legacy-code [post]
func (h *InvitationHandler) CreateLegacy(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	var req legacyCodeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ic, err := h.ledger.CreateLegacy(c.Request().Context(), actor, toLegacyInput(req))
	if err != nil {
		return err
	}
	metrics.CodesGeneratedTotal.WithLabelValues("legacy").Inc()
	return c.JSON(http.StatusCreated, toCodeResponse(ic))
}

// List returns ledger codes, newest first.
//
// @Summary      List invitation codes
// @Tags         admin-codes
// @Produce      json
// @Security     BearerAuth
// @Param        active  query     bool  false  "Only active codes"
// @Success      200     {object}  codeListResponse
// @Failure      400     {object}  errorResponse
// @Router       /admin/codes [get]
func (h *InvitationHandler) List(c echo.Context) error {
	activeOnly := false
	if raw := c.QueryParam("active"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return domain.NewValidationError("active", "must be true or false")
		}
		activeOnly = v
	}

	codes, err := h.ledger.List(c.Request().Context(), activeOnly)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCodeListResponse(codes))
}

// Edit changes max uses, expiry, description or the active flag.
//
// @Summary      Edit an invitation code
// @Tags         admin-codes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        code  path      string           true  "Invitation code"
// @Param        body  body      editCodeRequest  true  "Fields to change"
// @Success      200   {object}  codeResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /admin/codes/{code} [patch]
func (h *InvitationHandler) Edit(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	var req editCodeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	ic, err := h.ledger.Edit(c.Request().Context(), actor, c.Param("code"), toEditInput(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCodeResponse(ic))
}

// Deactivate switches a code off without deleting it.
//
// @Summary      Deactivate an invitation code
// @Tags         admin-codes
// @Produce      json
// @Security     BearerAuth
// @Param        code  path      string  true  "Invitation code"
// @Success      200   {object}  codeResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /admin/codes/{code}/deactivate [post]
func (h *InvitationHandler) Deactivate(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	ic, err := h.ledger.Deactivate(c.Request().Context(), actor, c.Param("code"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCodeResponse(ic))
}

// Delete removes a code from the ledger.
//
// @Summary      Delete an invitation code
// @Tags         admin-codes
// @Security     BearerAuth
// @Param        code  path  string  true  "Invitation code"
// @Success      204
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /admin/codes/{code} [delete]
func (h *InvitationHandler) Delete(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	if err := h.ledger.Delete(c.Request().Context(), actor, c.Param("code")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
