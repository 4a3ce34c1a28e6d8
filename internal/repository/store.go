package repository

import (
	"context"
	"time"

	"github.com/iliyamo/bearer-auth-api/internal/model"
)

// UserStore is the persistence contract for accounts.  Implementations must
// make IncrementTokenVersion and ConsumeResetToken atomic with respect to
// concurrent callers.
type UserStore interface {
	// Create inserts an already validated and hashed user and returns the
	// stored row.  Email must be normalized by the caller.
	Create(ctx context.Context, u model.User) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	// IncrementTokenVersion bumps token_version by one and returns the
	// user as it is after the increment.
	IncrementTokenVersion(ctx context.Context, id uint64) (model.User, error)
	// SetResetToken stores a reset token digest and its issue time,
	// replacing any earlier pending token.
	SetResetToken(ctx context.Context, id uint64, digest string, sentAt time.Time) error
	GetByResetToken(ctx context.Context, digest string) (model.User, error)
	// ConsumeResetToken sets the new password hash and clears both reset
	// fields in one step, provided the digest matches and was issued at or
	// after notBefore.  ErrNotFound means the token is unknown, expired or
	// already used.
	ConsumeResetToken(ctx context.Context, digest, passwordHash string, notBefore time.Time) error
}

// DenyList records individually revoked tokens by jti until they expire.
type DenyList interface {
	Deny(ctx context.Context, jti string, expiresAt time.Time) error
	IsDenied(ctx context.Context, jti string) (bool, error)
}

// Purger is implemented by deny-lists that do not expire entries on their
// own and need a periodic sweep.
type Purger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
