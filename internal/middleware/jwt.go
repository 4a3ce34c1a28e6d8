package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bearer-auth-api/internal/logging"
	"github.com/iliyamo/bearer-auth-api/internal/service"
)

// Context keys set by JWTAuth.
const (
	ctxUser   = "auth.user"
	ctxClaims = "auth.claims"
	ctxToken  = "auth.token"
	ctxUserID = "user_id"
)

// Authenticator is satisfied by *service.Guard.
type Authenticator interface {
	Authenticate(ctx context.Context, header string) (service.Principal, error)
}

// JWTAuth returns an Echo middleware that runs the guard against the
// Authorization header.  Rejections are answered with 401 and a JSON body
// carrying the message and reason; anything else is a 500.  On success the
// user, claims and raw token are stored in the Echo context for handlers.
func JWTAuth(guard Authenticator, logger *slog.Logger) echo.MiddlewareFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			p, err := guard.Authenticate(ctx, c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				var rej *service.Rejection
				if errors.As(err, &rej) {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": rej.Message, "reason": string(rej.Reason)})
				}
				logging.LogError(ctx, logger, "authentication failed", err)
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
			}

			c.Set(ctxUser, p.User)
			c.Set(ctxClaims, p.Claims)
			c.Set(ctxToken, p.Token)
			c.Set(ctxUserID, p.User.ID)
			return next(c)
		}
	}
}
