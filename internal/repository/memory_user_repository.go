package repository

import (
	"context"
	"sync"
	"time"

	"github.com/iliyamo/bearer-auth-api/internal/model"
)

// MemoryUserRepo is a process-local UserStore for development and tests.
// A single mutex serializes every mutation, which gives the same atomicity
// the MySQL store gets from its UPDATE statements.
type MemoryUserRepo struct {
	mu      sync.Mutex
	nextID  uint64
	byID    map[uint64]model.User
	byEmail map[string]uint64
	now     func() time.Time
}

func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{
		byID:    make(map[uint64]model.User),
		byEmail: make(map[string]uint64),
		now:     time.Now,
	}
}

var _ UserStore = (*MemoryUserRepo)(nil)

func (r *MemoryUserRepo) Create(_ context.Context, u model.User) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := model.NormalizeEmail(u.Email)
	if _, ok := r.byEmail[email]; ok {
		return model.User{}, ErrEmailExists
	}
	r.nextID++
	now := r.now().UTC()
	u.ID = r.nextID
	u.Email = email
	u.TokenVersion = 1
	u.ResetPasswordToken = nil
	u.ResetPasswordSentAt = nil
	u.CreatedAt, u.UpdatedAt = now, now
	r.byID[u.ID] = u
	r.byEmail[email] = u.ID
	return clone(u), nil
}

func (r *MemoryUserRepo) GetByID(_ context.Context, id uint64) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return clone(u), nil
}

func (r *MemoryUserRepo) GetByEmail(_ context.Context, email string) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byEmail[model.NormalizeEmail(email)]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return clone(r.byID[id]), nil
}

func (r *MemoryUserRepo) GetByResetToken(_ context.Context, digest string) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.ResetPasswordToken != nil && *u.ResetPasswordToken == digest {
			return clone(u), nil
		}
	}
	return model.User{}, ErrNotFound
}

func (r *MemoryUserRepo) IncrementTokenVersion(_ context.Context, id uint64) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	u.TokenVersion++
	u.UpdatedAt = r.now().UTC()
	r.byID[id] = u
	return clone(u), nil
}

func (r *MemoryUserRepo) SetResetToken(_ context.Context, id uint64, digest string, sentAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	// the column is unique; a digest collision would be a broken RNG
	for otherID, other := range r.byID {
		if otherID != id && other.ResetPasswordToken != nil && *other.ResetPasswordToken == digest {
			other.ResetPasswordToken, other.ResetPasswordSentAt = nil, nil
			r.byID[otherID] = other
		}
	}
	sent := sentAt.UTC()
	u.ResetPasswordToken = &digest
	u.ResetPasswordSentAt = &sent
	u.UpdatedAt = r.now().UTC()
	r.byID[id] = u
	return nil
}

func (r *MemoryUserRepo) ConsumeResetToken(_ context.Context, digest, passwordHash string, notBefore time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, u := range r.byID {
		if u.ResetPasswordToken == nil || *u.ResetPasswordToken != digest {
			continue
		}
		if u.ResetPasswordSentAt == nil || u.ResetPasswordSentAt.Before(notBefore) {
			return ErrNotFound
		}
		u.PasswordHash = passwordHash
		u.ResetPasswordToken, u.ResetPasswordSentAt = nil, nil
		u.UpdatedAt = r.now().UTC()
		r.byID[id] = u
		return nil
	}
	return ErrNotFound
}

// clone detaches the nullable fields so callers cannot mutate stored state.
func clone(u model.User) model.User {
	if u.ResetPasswordToken != nil {
		d := *u.ResetPasswordToken
		u.ResetPasswordToken = &d
	}
	if u.ResetPasswordSentAt != nil {
		t := *u.ResetPasswordSentAt
		u.ResetPasswordSentAt = &t
	}
	return u
}
