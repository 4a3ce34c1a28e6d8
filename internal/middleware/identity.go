package middleware

// identity.go holds accessors for the values JWTAuth leaves in the Echo
// context.  Handlers behind JWTAuth can rely on the ok result being true.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bearer-auth-api/internal/model"
	"github.com/iliyamo/bearer-auth-api/internal/utils"
)

// CurrentUser returns the authenticated user.
func CurrentUser(c echo.Context) (model.User, bool) {
	u, ok := c.Get(ctxUser).(model.User)
	return u, ok
}

// CurrentClaims returns the decoded claims of the presented token.
func CurrentClaims(c echo.Context) (*utils.TokenClaims, bool) {
	cl, ok := c.Get(ctxClaims).(*utils.TokenClaims)
	return cl, ok && cl != nil
}

// userID returns the authenticated user id for access logs, or "guest".
func userID(c echo.Context) string {
	if id, ok := c.Get(ctxUserID).(uint64); ok {
		return strconv.FormatUint(id, 10)
	}
	return "guest"
}
