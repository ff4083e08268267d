package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/domain"
	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/ports"
)

// Require loads the live account named by the token and applies
// domain.Authorize. Token claims only identify the caller; role and status
// always come from the stored record. Must run after Auth.
func Require(accounts ports.AccountFinder, role domain.Role, status domain.AccountStatus) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, _ := c.Get(ClaimsKey).(*domain.Claims)
			if claims == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, domain.ErrUnauthenticated.Error())
			}

			actor, err := accounts.FindByID(c.Request().Context(), claims.AccountID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return echo.NewHTTPError(http.StatusUnauthorized, domain.ErrUnauthenticated.Error())
				}
				return err
			}

			if err := domain.Authorize(actor, role, status); err != nil {
				return echo.NewHTTPError(http.StatusForbidden, err.Error())
			}

			c.Set(ActorKey, actor)
			c.Set(RoleKey, string(actor.Role))
			return next(c)
		}
	}
}
