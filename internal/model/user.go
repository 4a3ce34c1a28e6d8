package model

import (
	"strings"
	"time"
)

// User represents an account record as stored in the `users` table.
// The json tags are omitted because handlers render their own response
// shape; secrets (hash, reset digest) must never reach a client.
//
// Fields:
//
//	ID                  – primary key identifier of the user.
//	Email               – unique email address, always lowercased.
//	PasswordHash        – bcrypt hashed password.
//	FirstName/LastName  – required profile fields.
//	TokenVersion        – revocation epoch; starts at 1 and only grows.
//	ResetPasswordToken  – SHA‑256 digest of the emailed reset token (nil when none).
//	ResetPasswordSentAt – when the reset token was issued (nil when none).
//	CreatedAt           – timestamp of creation.
//	UpdatedAt           – timestamp of last update.
type User struct {
	ID                  uint64     // users.id
	Email               string     // users.email
	PasswordHash        string     // users.password_hash
	FirstName           string     // users.first_name
	LastName            string     // users.last_name
	TokenVersion        int64      // users.token_version
	ResetPasswordToken  *string    // users.reset_password_token (nullable)
	ResetPasswordSentAt *time.Time // users.reset_password_sent_at (nullable)
	CreatedAt           time.Time  // users.created_at
	UpdatedAt           time.Time  // users.updated_at
}

// HasPendingReset reports whether a reset token is outstanding.
func (u User) HasPendingReset() bool {
	return u.ResetPasswordToken != nil && u.ResetPasswordSentAt != nil
}

// ResetValidAt reports whether the outstanding reset token is still inside
// window at time now.  The boundary itself is inclusive.
func (u User) ResetValidAt(now time.Time, window time.Duration) bool {
	if !u.HasPendingReset() {
		return false
	}
	return now.Sub(*u.ResetPasswordSentAt) <= window
}

// NewUser is the registration input.  Password is plain text and is hashed
// before it reaches the store.
type NewUser struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Normalize trims whitespace and lowercases the email.
func (n NewUser) Normalize() NewUser {
	return NewUser{
		Email:     NormalizeEmail(n.Email),
		Password:  n.Password,
		FirstName: strings.TrimSpace(n.FirstName),
		LastName:  strings.TrimSpace(n.LastName),
	}
}

// NormalizeEmail is the canonical form used for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DeniedToken models an entry in the `jwt_denylist` table.  A token whose
// jti is listed is rejected until ExpiresAt, after which the row is purged.
type DeniedToken struct {
	JTI       string    // jwt_denylist.jti
	ExpiresAt time.Time // jwt_denylist.expires_at
}
