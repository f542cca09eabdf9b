package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// HeaderAccountID carries the caller's account, set by the gateway after it
// authenticates the request.
const HeaderAccountID = "Ax-Account-Id"

const accountKey = "account_id"

// RequireAccount rejects requests without a well formed Ax-Account-Id and
// stores the id on the context for handlers.
func RequireAccount() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := strings.TrimSpace(c.Request().Header.Get(HeaderAccountID))
			if id == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"message": "missing " + HeaderAccountID})
			}
			if !reHex32.MatchString(id) {
				return c.JSON(http.StatusUnauthorized, map[string]string{"message": "invalid " + HeaderAccountID})
			}
			c.Set(accountKey, id)
			return next(c)
		}
	}
}

// AccountID returns the id stored by RequireAccount, or "".
func AccountID(c echo.Context) string {
	id, _ := c.Get(accountKey).(string)
	return id
}
