package service

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/iliyamo/bearer-auth-api/internal/metrics"
	"github.com/iliyamo/bearer-auth-api/internal/model"
	"github.com/iliyamo/bearer-auth-api/internal/queue"
	"github.com/iliyamo/bearer-auth-api/internal/repository"
	"github.com/iliyamo/bearer-auth-api/internal/utils"
)

// ForgotPasswordMessage is returned for every reset request, whether or not
// the email belongs to an account.
const ForgotPasswordMessage = "If an account with that email exists, password reset instructions have been sent"

// MailQueue accepts reset mail for asynchronous delivery.  Enqueue must not
// block on delivery and has no failure result.
type MailQueue interface {
	Enqueue(ctx context.Context, ev queue.PasswordResetRequested)
}

// ResetService implements the password reset flow:
// NoToken -> TokenIssued (RequestReset) -> Consumed (ConsumeReset).
type ResetService struct {
	creds       *Credentials
	mail        MailQueue
	window      time.Duration
	frontendURL string
	metrics     *metrics.Metrics
	logger      *slog.Logger
	now         func() time.Time
}

// NewResetService creates a ResetService.  m and logger may be nil.
func NewResetService(creds *Credentials, mail MailQueue, window time.Duration, frontendURL string, m *metrics.Metrics, logger *slog.Logger) (*ResetService, error) {
	if creds == nil {
		return nil, oops.Errorf("credentials are required")
	}
	if mail == nil {
		return nil, oops.Errorf("mail queue is required")
	}
	if window <= 0 {
		return nil, oops.Errorf("reset window must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ResetService{
		creds:       creds,
		mail:        mail,
		window:      window,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		metrics:     m,
		logger:      logger,
		now:         time.Now,
	}, nil
}

// ResetURL is the link mailed to the user.
func (s *ResetService) ResetURL(token string) string {
	return s.frontendURL + "/reset-password?token=" + url.QueryEscape(token)
}

// RequestReset issues a reset token for email and queues the mail.  An
// unknown email is not an error and changes nothing; callers must answer
// both cases identically.
func (s *ResetService) RequestReset(ctx context.Context, email string) error {
	email = model.NormalizeEmail(email)
	if email == "" {
		s.metrics.PasswordReset("unknown_email")
		return nil
	}

	u, err := s.creds.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		s.metrics.PasswordReset("unknown_email")
		return nil
	}
	if err != nil {
		return oops.Code("RESET_REQUEST_FAILED").With("operation", "GetByEmail").Wrap(err)
	}

	raw, digest, err := utils.NewResetToken()
	if err != nil {
		return oops.Code("RESET_REQUEST_FAILED").With("operation", "NewResetToken").Wrap(err)
	}
	now := s.now().UTC()
	if err := s.creds.Store().SetResetToken(ctx, u.ID, digest, now); err != nil {
		return oops.Code("RESET_REQUEST_FAILED").With("operation", "SetResetToken").With("user_id", u.ID).Wrap(err)
	}

	s.mail.Enqueue(ctx, queue.PasswordResetRequested{
		UserID:      u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		ResetURL:    s.ResetURL(raw),
		ExpiresIn:   s.window,
		RequestedAt: now,
	})
	s.metrics.PasswordReset("requested")
	s.logger.InfoContext(ctx, "password reset requested", "user_id", u.ID)
	return nil
}

// ValidateToken reports whether token belongs to a user and was issued no
// more than the reset window ago.
func (s *ResetService) ValidateToken(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	u, err := s.creds.Store().GetByResetToken(ctx, utils.HashResetToken(token))
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, oops.Code("RESET_VALIDATE_FAILED").With("operation", "GetByResetToken").Wrap(err)
	}
	return u.ResetValidAt(s.now(), s.window), nil
}

// ConsumeReset sets a new password.  The token is checked first, then the
// password policy; a policy failure leaves the token usable.  The password
// change and token removal happen in one conditional update, so a token can
// be consumed once.
func (s *ResetService) ConsumeReset(ctx context.Context, token, newPassword string) error {
	valid, err := s.ValidateToken(ctx, token)
	if err != nil {
		return err
	}
	if !valid {
		s.metrics.PasswordReset("rejected")
		return oops.Code("RESET_TOKEN_INVALID").Wrap(ErrResetTokenInvalid)
	}

	if msgs := validatePassword(newPassword); len(msgs) > 0 {
		return &ValidationError{Messages: msgs}
	}

	hash, err := s.creds.HashPassword(newPassword)
	if err != nil {
		return err
	}
	notBefore := s.now().Add(-s.window)
	err = s.creds.Store().ConsumeResetToken(ctx, utils.HashResetToken(token), hash, notBefore)
	if errors.Is(err, repository.ErrNotFound) {
		// consumed or expired between the check and the update
		s.metrics.PasswordReset("rejected")
		return oops.Code("RESET_TOKEN_INVALID").Wrap(ErrResetTokenInvalid)
	}
	if err != nil {
		return oops.Code("RESET_PASSWORD_FAILED").With("operation", "ConsumeResetToken").Wrap(err)
	}
	s.metrics.PasswordReset("consumed")
	s.logger.InfoContext(ctx, "password reset completed")
	return nil
}
