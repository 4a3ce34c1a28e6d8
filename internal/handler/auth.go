package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bearer-auth-api/internal/config"
	"github.com/iliyamo/bearer-auth-api/internal/logging"
	"github.com/iliyamo/bearer-auth-api/internal/middleware"
	"github.com/iliyamo/bearer-auth-api/internal/model"
	"github.com/iliyamo/bearer-auth-api/internal/service"
)

const requestTimeout = 5 * time.Second

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Auth      *service.AuthService
	Reset     *service.ResetService
	Transport string // config.TransportBody | TransportHeader | TransportBoth
	Logger    *slog.Logger
}

func NewAuthHandler(auth *service.AuthService, reset *service.ResetService, transport string, logger *slog.Logger) *AuthHandler {
	if transport == "" {
		transport = config.TransportBody
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{Auth: auth, Reset: reset, Transport: transport, Logger: logger}
}

// ----- DTOs -----

type userParams struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Token     string `json:"token"`
}

// authReq accepts both {"user": {...}} and the flat shape.  Nested values
// win when both are present.
type authReq struct {
	User *userParams `json:"user"`
	userParams
}

func (r authReq) params() userParams {
	p := r.userParams
	if r.User == nil {
		return p
	}
	pick := func(nested, flat string) string {
		if nested != "" {
			return nested
		}
		return flat
	}
	return userParams{
		Email:     pick(r.User.Email, p.Email),
		Password:  pick(r.User.Password, p.Password),
		FirstName: pick(r.User.FirstName, p.FirstName),
		LastName:  pick(r.User.LastName, p.LastName),
		Token:     pick(r.User.Token, p.Token),
	}
}

type userPart struct {
	ID        uint64    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type authResp struct {
	User  userPart `json:"user"`
	Token string   `json:"token,omitempty"`
}

func toUserPart(u model.User) userPart {
	return userPart{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		CreatedAt: u.CreatedAt.UTC(),
		UpdatedAt: u.UpdatedAt.UTC(),
	}
}

func (h *AuthHandler) bind(c echo.Context) (userParams, error) {
	var req authReq
	if err := c.Bind(&req); err != nil {
		return userParams{}, err
	}
	return req.params(), nil
}

// session writes the user and the bearer token according to the configured
// transport.
func (h *AuthHandler) session(c echo.Context, status int, s service.Session) error {
	resp := authResp{User: toUserPart(s.User)}
	if h.Transport == config.TransportBody || h.Transport == config.TransportBoth {
		resp.Token = s.Token.Token
	}
	if h.Transport == config.TransportHeader || h.Transport == config.TransportBoth {
		c.Response().Header().Set(echo.HeaderAuthorization, "Bearer "+s.Token.Token)
	}
	return c.JSON(status, resp)
}

func (h *AuthHandler) internalError(c echo.Context, msg string, err error) error {
	logging.LogError(c.Request().Context(), h.Logger, msg, err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
}

func invalidBody(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
}

// Register: create user and return a token immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	p, err := h.bind(c)
	if err != nil {
		return invalidBody(c)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	s, err := h.Auth.Register(ctx, model.NewUser{
		Email:     p.Email,
		Password:  p.Password,
		FirstName: p.FirstName,
		LastName:  p.LastName,
	})
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"errors": verr.Messages})
	}
	if err != nil {
		return h.internalError(c, "register failed", err)
	}
	return h.session(c, http.StatusCreated, s)
}

// Login: verify credentials and return a fresh token.
func (h *AuthHandler) Login(c echo.Context) error {
	p, err := h.bind(c)
	if err != nil {
		return invalidBody(c)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	s, err := h.Auth.Login(ctx, p.Email, p.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid email or password"})
	}
	if err != nil {
		return h.internalError(c, "login failed", err)
	}
	return h.session(c, http.StatusOK, s)
}

// Logout revokes every token of the current user (protected).
func (h *AuthHandler) Logout(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Not authenticated"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if _, err := h.Auth.RevokeAll(ctx, u); err != nil {
		return h.internalError(c, "logout failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Logged out successfully"})
}

// RevokeCurrent deny-lists only the presented token (protected).
func (h *AuthHandler) RevokeCurrent(c echo.Context) error {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Not authenticated"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Auth.RevokeToken(ctx, claims); err != nil {
		return h.internalError(c, "session revoke failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Session revoked successfully"})
}

// Me: the authenticated user (protected).
func (h *AuthHandler) Me(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Not authenticated"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user": toUserPart(u)})
}

// ForgotPassword answers identically whether or not the email is known.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	p, err := h.bind(c)
	if err != nil {
		return invalidBody(c)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Reset.RequestReset(ctx, p.Email); err != nil {
		return h.internalError(c, "password reset request failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": service.ForgotPasswordMessage})
}

// ResetPassword consumes a reset token and sets the new password.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	p, err := h.bind(c)
	if err != nil {
		return invalidBody(c)
	}
	token := strings.TrimSpace(p.Token)
	if token == "" {
		token = strings.TrimSpace(c.QueryParam("token"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	err = h.Reset.ConsumeReset(ctx, token, p.Password)
	var verr *service.ValidationError
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, echo.Map{"message": "Password reset successfully"})
	case errors.Is(err, service.ErrResetTokenInvalid):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "Invalid or expired reset token"})
	case errors.As(err, &verr):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"errors": verr.Messages})
	default:
		return h.internalError(c, "password reset failed", err)
	}
}

// ValidateResetToken lets the frontend check a link before showing the form.
func (h *AuthHandler) ValidateResetToken(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	ok, err := h.Reset.ValidateToken(ctx, strings.TrimSpace(c.QueryParam("token")))
	if err != nil {
		return h.internalError(c, "reset token validation failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"valid": ok})
}
