package service

import (
	"context"
	"errors"

	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/bearer-auth-api/internal/model"
	"github.com/iliyamo/bearer-auth-api/internal/repository"
	"github.com/iliyamo/bearer-auth-api/internal/utils"
)

// Credentials is the credential store: validation and hashing in front of
// a repository.UserStore.
type Credentials struct {
	store     repository.UserStore
	cost      int
	dummyHash string
}

// NewCredentials builds the store.  The dummy hash lets password checks
// for unknown emails cost the same as for real ones.
func NewCredentials(store repository.UserStore, bcryptCost int) (*Credentials, error) {
	if store == nil {
		return nil, oops.Errorf("user store is required")
	}
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	dummy, err := utils.HashPassword("not-a-real-password", bcryptCost)
	if err != nil {
		return nil, oops.Wrapf(err, "bcrypt cost %d", bcryptCost)
	}
	return &Credentials{store: store, cost: bcryptCost, dummyHash: dummy}, nil
}

// Store exposes the underlying repository for read paths.
func (c *Credentials) Store() repository.UserStore { return c.store }

// Create validates, hashes and persists a new account.  Policy failures,
// including a taken email, come back as *ValidationError.
func (c *Credentials) Create(ctx context.Context, in model.NewUser) (model.User, error) {
	in = in.Normalize()
	msgs := validateRegistration(in)

	if in.Email != "" && emailPattern.MatchString(in.Email) {
		_, err := c.store.GetByEmail(ctx, in.Email)
		switch {
		case err == nil:
			msgs = append([]string{msgEmailTaken}, msgs...)
		case !errors.Is(err, repository.ErrNotFound):
			return model.User{}, oops.Code("AUTH_REGISTER_FAILED").With("operation", "GetByEmail").Wrap(err)
		}
	}
	if err := newValidationError(msgs); err != nil {
		return model.User{}, err
	}

	hash, err := c.HashPassword(in.Password)
	if err != nil {
		return model.User{}, err
	}
	u, err := c.store.Create(ctx, model.User{
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
	})
	if errors.Is(err, repository.ErrEmailExists) {
		// lost a race with a concurrent registration
		return model.User{}, &ValidationError{Messages: []string{msgEmailTaken}}
	}
	if err != nil {
		return model.User{}, oops.Code("AUTH_REGISTER_FAILED").With("operation", "Create").Wrap(err)
	}
	return u, nil
}

// HashPassword hashes with the configured cost.
func (c *Credentials) HashPassword(plain string) (string, error) {
	hash, err := utils.HashPassword(plain, c.cost)
	if err != nil {
		return "", oops.Code("AUTH_HASH_FAILED").Wrap(err)
	}
	return hash, nil
}

// GetByEmail looks up a user by the normalized form of email.
func (c *Credentials) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return c.store.GetByEmail(ctx, model.NormalizeEmail(email))
}

func (c *Credentials) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return c.store.GetByID(ctx, id)
}

// VerifyPassword compares candidate against the user's hash.
func (c *Credentials) VerifyPassword(u model.User, candidate string) bool {
	return utils.VerifyPassword(u.PasswordHash, candidate)
}

// burnPassword spends one bcrypt comparison for an unknown account.
func (c *Credentials) burnPassword(candidate string) {
	_ = utils.VerifyPassword(c.dummyHash, candidate)
}

func (c *Credentials) IncrementTokenVersion(ctx context.Context, id uint64) (model.User, error) {
	return c.store.IncrementTokenVersion(ctx, id)
}
