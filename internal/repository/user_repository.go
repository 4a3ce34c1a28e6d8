package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/samber/oops"

	"github.com/iliyamo/bearer-auth-api/internal/database"
	"github.com/iliyamo/bearer-auth-api/internal/model"
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

const userColumns = "id,email,password_hash,first_name,last_name,token_version,reset_password_token,reset_password_sent_at,created_at,updated_at"

// UserRepo is the MySQL UserStore.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var _ UserStore = (*UserRepo)(nil)

// Create inserts the user and reads the stored row back.
func (r *UserRepo) Create(ctx context.Context, u model.User) (model.User, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, first_name, last_name) VALUES (?,?,?,?)",
		u.Email, u.PasswordHash, u.FirstName, u.LastName)
	if err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
			return model.User{}, ErrEmailExists
		}
		return model.User{}, oops.In("user_repository").With("email", u.Email).Wrapf(err, "insert user")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, oops.In("user_repository").Wrapf(err, "last insert id")
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return getUser(ctx, r.DB, "email=?", model.NormalizeEmail(email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return getUser(ctx, r.DB, "id=?", id)
}

// GetByResetToken fetches the user holding a reset token digest.
func (r *UserRepo) GetByResetToken(ctx context.Context, digest string) (model.User, error) {
	return getUser(ctx, r.DB, "reset_password_token=?", digest)
}

// IncrementTokenVersion bumps the counter and re-reads it in the same
// transaction so the returned version is the one this call produced.
func (r *UserRepo) IncrementTokenVersion(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := database.WithTx(ctx, r.DB, nil, func(ctx context.Context, tx database.DBTX) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE users SET token_version = token_version + 1 WHERE id=?", id)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return ErrNotFound
		}
		u, err = getUser(ctx, tx, "id=?", id)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, oops.In("user_repository").With("user_id", id).Wrapf(err, "increment token version")
	}
	return u, nil
}

// SetResetToken stores a new reset digest, overwriting a pending one.
func (r *UserRepo) SetResetToken(ctx context.Context, id uint64, digest string, sentAt time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET reset_password_token=?, reset_password_sent_at=? WHERE id=?",
		digest, sentAt.UTC(), id)
	if err != nil {
		return oops.In("user_repository").With("user_id", id).Wrapf(err, "set reset token")
	}
	if n, err := res.RowsAffected(); err != nil {
		return oops.In("user_repository").Wrapf(err, "rows affected")
	} else if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ConsumeResetToken changes the password and clears the token in a single
// conditional UPDATE; two concurrent consumers cannot both succeed.
func (r *UserRepo) ConsumeResetToken(ctx context.Context, digest, passwordHash string, notBefore time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET password_hash=?, reset_password_token=NULL, reset_password_sent_at=NULL
		 WHERE reset_password_token=? AND reset_password_sent_at >= ?`,
		passwordHash, digest, notBefore.UTC())
	if err != nil {
		return oops.In("user_repository").Wrapf(err, "consume reset token")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return oops.In("user_repository").Wrapf(err, "rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func getUser(ctx context.Context, q database.DBTX, where string, arg any) (model.User, error) {
	var (
		u      model.User
		digest sql.NullString
		sentAt sql.NullTime
	)
	err := q.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE "+where+" LIMIT 1", arg).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.TokenVersion,
			&digest, &sentAt, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, oops.In("user_repository").With("where", where).Wrapf(err, "select user")
	}
	if digest.Valid {
		d := digest.String
		u.ResetPasswordToken = &d
	}
	if sentAt.Valid {
		t := sentAt.Time.UTC()
		u.ResetPasswordSentAt = &t
	}
	return u, nil
}
