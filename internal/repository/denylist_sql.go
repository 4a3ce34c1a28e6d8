package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/samber/oops"
)

// SQLDenyList persists revoked token ids in the jwt_denylist table.
// Expired rows are harmless but accumulate; PurgeExpired removes them.
type SQLDenyList struct {
	DB  *sql.DB
	now func() time.Time
}

func NewSQLDenyList(db *sql.DB) *SQLDenyList { return &SQLDenyList{DB: db, now: time.Now} }

var (
	_ DenyList = (*SQLDenyList)(nil)
	_ Purger   = (*SQLDenyList)(nil)
)

// Deny inserts a jti row.  Denying the same jti twice is a no-op.
func (r *SQLDenyList) Deny(ctx context.Context, jti string, expiresAt time.Time) error {
	if !expiresAt.After(r.now()) {
		return nil
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT IGNORE INTO jwt_denylist (jti, expires_at) VALUES (?,?)",
		jti, expiresAt.UTC())
	if err != nil {
		return oops.In("denylist").With("jti", jti).Wrapf(err, "deny token")
	}
	return nil
}

// IsDenied reports whether a non-expired row exists for jti.
func (r *SQLDenyList) IsDenied(ctx context.Context, jti string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM jwt_denylist WHERE jti=? AND expires_at > ? LIMIT 1",
		jti, r.now().UTC()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, oops.In("denylist").With("jti", jti).Wrapf(err, "lookup token")
	}
	return true, nil
}

// PurgeExpired deletes rows whose token has expired by now.
func (r *SQLDenyList) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM jwt_denylist WHERE expires_at <= ?", now.UTC())
	if err != nil {
		return 0, oops.In("denylist").Wrapf(err, "purge expired")
	}
	return res.RowsAffected()
}
