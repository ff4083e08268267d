package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/api/middleware"
	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/domain"
)

// ctxClaims returns the token claims injected by the Auth middleware.
func ctxClaims(c echo.Context) (*domain.Claims, error) {
	claims, _ := c.Get(middleware.ClaimsKey).(*domain.Claims)
	if claims == nil || claims.AccountID == "" {
		return nil, domain.ErrUnauthenticated
	}
	return claims, nil
}

// ctxActor returns the live account loaded by the Require middleware. Every
// admin handler authorizes against this record, never against claims.
func ctxActor(c echo.Context) (*domain.Account, error) {
	actor, _ := c.Get(middleware.ActorKey).(*domain.Account)
	if actor == nil {
		return nil, domain.ErrUnauthenticated
	}
	return actor, nil
}

// queryInt parses an optional integer query parameter.
func queryInt(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, domain.NewValidationError(name, "must be a non-negative integer")
	}
	return n, nil
}
