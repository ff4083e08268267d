package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/ports"
)

// Context keys populated by Auth and Require.
const (
	ClaimsKey    = "claims"
	AccountIDKey = "account_id"
	RoleKey      = "role"
	ActorKey     = "actor"
)

// TokenCookie is read when no Authorization header is present.
const TokenCookie = "token"

var (
	errMissingToken  = errors.New("missing authorization token")
	errInvalidHeader = errors.New("invalid authorization header")
)

// Auth verifies the bearer token and injects its claims into the context.
// The token is taken from the Authorization header, falling back to the
// token cookie.
func Auth(verifier ports.TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := bearerToken(c)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
			}

			claims, err := verifier.Verify(raw)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(ClaimsKey, claims)
			c.Set(AccountIDKey, claims.AccountID)
			c.Set(RoleKey, string(claims.Role))

			return next(c)
		}
	}
}

func bearerToken(c echo.Context) (string, error) {
	if header := c.Request().Header.Get(echo.HeaderAuthorization); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", errInvalidHeader
		}
		return strings.TrimSpace(parts[1]), nil
	}
	if ck, err := c.Cookie(TokenCookie); err == nil && ck.Value != "" {
		return ck.Value, nil
	}
	return "", errMissingToken
}
