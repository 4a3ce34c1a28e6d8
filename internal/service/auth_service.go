package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/iliyamo/bearer-auth-api/internal/metrics"
	"github.com/iliyamo/bearer-auth-api/internal/model"
	"github.com/iliyamo/bearer-auth-api/internal/repository"
	"github.com/iliyamo/bearer-auth-api/internal/utils"
)

// Session is an authenticated user together with a freshly issued token.
type Session struct {
	User  model.User
	Token utils.AccessToken
}

// AuthService issues and revokes bearer tokens.
type AuthService struct {
	creds   *Credentials
	codec   *utils.TokenCodec
	deny    repository.DenyList
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewAuthService creates an AuthService.  m and logger may be nil.
func NewAuthService(creds *Credentials, codec *utils.TokenCodec, deny repository.DenyList, m *metrics.Metrics, logger *slog.Logger) (*AuthService, error) {
	if creds == nil {
		return nil, oops.Errorf("credentials are required")
	}
	if codec == nil {
		return nil, oops.Errorf("token codec is required")
	}
	if deny == nil {
		return nil, oops.Errorf("deny list is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{creds: creds, codec: codec, deny: deny, metrics: m, logger: logger, now: time.Now}, nil
}

// Register creates the account and signs its first token.
func (s *AuthService) Register(ctx context.Context, in model.NewUser) (Session, error) {
	u, err := s.creds.Create(ctx, in)
	if err != nil {
		return Session{}, err
	}
	tok, err := s.codec.Issue(u)
	if err != nil {
		return Session{}, oops.Code("AUTH_TOKEN_ISSUE_FAILED").With("user_id", u.ID).Wrap(err)
	}
	s.metrics.TokenIssued("register")
	s.logger.InfoContext(ctx, "user registered", "user_id", u.ID)
	return Session{User: u, Token: tok}, nil
}

// Login checks credentials and signs a new token.  Unknown email and wrong
// password both return ErrInvalidCredentials after one bcrypt comparison.
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	u, err := s.creds.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		s.creds.burnPassword(password)
		return Session{}, oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
	}
	if err != nil {
		return Session{}, oops.Code("AUTH_LOGIN_FAILED").With("operation", "GetByEmail").Wrap(err)
	}
	if !s.creds.VerifyPassword(u, password) {
		return Session{}, oops.Code("AUTH_INVALID_CREDENTIALS").With("user_id", u.ID).Wrap(ErrInvalidCredentials)
	}

	tok, err := s.codec.Issue(u)
	if err != nil {
		return Session{}, oops.Code("AUTH_TOKEN_ISSUE_FAILED").With("user_id", u.ID).Wrap(err)
	}
	s.metrics.TokenIssued("login")
	return Session{User: u, Token: tok}, nil
}

// RevokeAll invalidates every token issued to u so far by bumping its
// token_version.  No token list is scanned; old tokens fail their next
// version check.
func (s *AuthService) RevokeAll(ctx context.Context, u model.User) (model.User, error) {
	updated, err := s.creds.IncrementTokenVersion(ctx, u.ID)
	if err != nil {
		return model.User{}, oops.Code("AUTH_REVOKE_FAILED").With("user_id", u.ID).Wrap(err)
	}
	s.metrics.Revoked("all")
	s.logger.InfoContext(ctx, "all tokens revoked", "user_id", u.ID, "token_version", updated.TokenVersion)
	return updated, nil
}

// RevokeToken deny-lists a single token until its natural expiry.  An
// already expired token needs no entry.
func (s *AuthService) RevokeToken(ctx context.Context, claims *utils.TokenClaims) error {
	if claims == nil || claims.ID == "" {
		return oops.Code("AUTH_REVOKE_FAILED").Errorf("token has no jti")
	}
	if claims.ExpiresAt == nil || !claims.ExpiresAt.After(s.now()) {
		return nil
	}
	if err := s.deny.Deny(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return oops.Code("AUTH_REVOKE_FAILED").With("user_id", claims.UserID).Wrap(err)
	}
	s.metrics.Revoked("token")
	return nil
}
