package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bearer-auth-api/internal/errutil"
	"github.com/iliyamo/bearer-auth-api/internal/model"
	"github.com/iliyamo/bearer-auth-api/internal/repository"
	"github.com/iliyamo/bearer-auth-api/internal/utils"
)

func assertRejected(t *testing.T, err error, reason Reason, msg string) {
	t.Helper()
	var rej *Rejection
	require.True(t, errors.As(err, &rej), "expected Rejection, got %v", err)
	assert.Equal(t, reason, rej.Reason)
	assert.Equal(t, msg, rej.Message)
}

func TestGuardAuthenticatesCurrentToken(t *testing.T) {
	f := newFixture(t)
	s := f.register(t)

	p, err := f.guard.Authenticate(context.Background(), "Bearer "+s.Token.Token)
	require.NoError(t, err)
	assert.Equal(t, s.User.ID, p.User.ID)
	assert.Equal(t, s.Token.Claims.ID, p.Claims.ID)
	assert.Equal(t, s.Token.Token, p.Token)
}

func TestGuardMissingToken(t *testing.T) {
	f := newFixture(t)
	s := f.register(t)

	for _, h := range []string{"", "Token abc", "bearer " + s.Token.Token, "Bearer"} {
		_, err := f.guard.Authenticate(context.Background(), h)
		assertRejected(t, err, ReasonMissingToken, "Missing authorization token")
	}
}

func TestGuardUndecodableToken(t *testing.T) {
	f := newFixture(t)

	other, err := utils.NewTokenCodec("other-secret", time.Hour)
	require.NoError(t, err)
	forged, err := other.Issue(model.User{ID: 1, Email: "a@b.com", TokenVersion: 1})
	require.NoError(t, err)

	for _, tok := range []string{"", "garbage", forged.Token} {
		_, err := f.guard.Authenticate(context.Background(), "Bearer "+tok)
		assertRejected(t, err, ReasonInvalidToken, "Invalid or expired token")
	}
}

func TestGuardDeletedUser(t *testing.T) {
	f := newFixture(t)
	tok, err := f.codec.Issue(model.User{ID: 999, Email: "ghost@b.com", TokenVersion: 1})
	require.NoError(t, err)

	_, err = f.guard.Authenticate(context.Background(), "Bearer "+tok.Token)
	assertRejected(t, err, ReasonInvalidToken, "Invalid token")
}

func TestGuardExpiredTokenReadsAsRevoked(t *testing.T) {
	f := newFixture(t)
	s := f.register(t)

	f.clock.Advance(24*time.Hour - time.Minute)
	_, err := f.guard.Authenticate(context.Background(), "Bearer "+s.Token.Token)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Minute)
	_, err = f.guard.Authenticate(context.Background(), "Bearer "+s.Token.Token)
	assertRejected(t, err, ReasonRevoked, "Token revoked")
}

func TestGuardStaleVersion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.register(t)

	_, err := f.auth.RevokeAll(ctx, s.User)
	require.NoError(t, err)
	_, err = f.guard.Authenticate(ctx, "Bearer "+s.Token.Token)
	assertRejected(t, err, ReasonRevoked, "Token revoked")

	fresh, err := f.auth.Login(ctx, "a@b.com", "password123")
	require.NoError(t, err)
	_, err = f.guard.Authenticate(ctx, "Bearer "+fresh.Token.Token)
	assert.NoError(t, err)
}

func TestGuardChecksVersionEvenWithValidSignature(t *testing.T) {
	f := newFixture(t)
	s := f.register(t)

	claims := s.Token.Claims
	claims.TokenVersion = 7
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = f.guard.Authenticate(context.Background(), "Bearer "+signed)
	assertRejected(t, err, ReasonRevoked, "Token revoked")
}

type failingStore struct {
	mock.Mock
	repository.UserStore
}

func (s *failingStore) GetByID(ctx context.Context, id uint64) (model.User, error) {
	args := s.Called(ctx, id)
	return args.Get(0).(model.User), args.Error(1)
}

type failingDenyList struct{}

func (failingDenyList) Deny(context.Context, string, time.Time) error { return errors.New("redis down") }
func (failingDenyList) IsDenied(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func TestGuardStoreFailuresAreNotRejections(t *testing.T) {
	f := newFixture(t)
	tok, err := f.codec.Issue(model.User{ID: 1, Email: "a@b.com", TokenVersion: 1})
	require.NoError(t, err)

	store := &failingStore{}
	store.On("GetByID", mock.Anything, uint64(1)).Return(model.User{}, errors.New("db down"))
	g, err := NewGuard(store, f.codec, nil, nil)
	require.NoError(t, err)
	g.now = f.clock.Now

	_, err = g.Authenticate(context.Background(), "Bearer "+tok.Token)
	require.Error(t, err)
	var rej *Rejection
	assert.False(t, errors.As(err, &rej))
	errutil.AssertErrorCode(t, err, "AUTH_GUARD_FAILED")
	store.AssertExpectations(t)
}

func TestGuardDenyListFailure(t *testing.T) {
	f := newFixture(t)
	s := f.register(t)
	g, err := NewGuard(f.store, f.codec, failingDenyList{}, nil)
	require.NoError(t, err)
	g.now = f.clock.Now

	_, err = g.Authenticate(context.Background(), "Bearer "+s.Token.Token)
	require.Error(t, err)
	errutil.AssertErrorContext(t, err, "operation", "IsDenied")
}

func TestGuardWithoutDenyList(t *testing.T) {
	f := newFixture(t)
	s := f.register(t)
	g, err := NewGuard(f.store, f.codec, nil, nil)
	require.NoError(t, err)
	g.now = f.clock.Now

	_, err = g.Authenticate(context.Background(), "Bearer "+s.Token.Token)
	assert.NoError(t, err)
}
