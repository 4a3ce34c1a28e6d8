package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bearer-auth-api/internal/errutil"
)

func TestRegisterIssuesTokenForVersionOne(t *testing.T) {
	f := newFixture(t)
	s := f.register(t)

	claims, err := f.codec.Decode(s.Token.Token)
	require.NoError(t, err)
	assert.Equal(t, s.User.ID, claims.UserID)
	assert.Equal(t, int64(1), claims.TokenVersion)
	assert.Equal(t, s.User.TokenVersion, claims.TokenVersion)
	assert.Equal(t, "a@b.com", claims.Email)
	assert.WithinDuration(t, f.clock.Now().Add(24*time.Hour), claims.ExpiresAt.Time, 2*time.Second)
}

func TestLoginIssuesFreshTokenWithSamePayload(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t)

	s, err := f.auth.Login(context.Background(), "A@b.com", "password123")
	require.NoError(t, err)
	assert.NotEqual(t, reg.Token.Token, s.Token.Token)

	a, err := f.codec.Decode(reg.Token.Token)
	require.NoError(t, err)
	b, err := f.codec.Decode(s.Token.Token)
	require.NoError(t, err)
	assert.Equal(t, a.UserID, b.UserID)
	assert.Equal(t, a.TokenVersion, b.TokenVersion)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	f.register(t)

	_, wrongPassword := f.auth.Login(context.Background(), "a@b.com", "wrong-password")
	_, unknownEmail := f.auth.Login(context.Background(), "nobody@b.com", "password123")

	for _, err := range []error{wrongPassword, unknownEmail} {
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidCredentials))
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_CREDENTIALS")
	}
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestRevokeAllTwiceAddsTwoAndInvalidatesImmediately(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.register(t)

	u, err := f.auth.RevokeAll(ctx, s.User)
	require.NoError(t, err)
	assert.Equal(t, int64(2), u.TokenVersion)

	_, err = f.guard.Authenticate(ctx, "Bearer "+s.Token.Token)
	assertRejected(t, err, ReasonRevoked, "Token revoked")

	u, err = f.auth.RevokeAll(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, int64(3), u.TokenVersion)
}

func TestRevokeAllSurvivesConcurrentLogouts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.register(t)

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			_, err := f.auth.RevokeAll(ctx, s.User)
			assert.NoError(t, err)
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
	u, err := f.store.GetByID(ctx, s.User.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(11), u.TokenVersion)
}

func TestRevokeTokenOnlyAffectsThatToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first := f.register(t)
	second, err := f.auth.Login(ctx, "a@b.com", "password123")
	require.NoError(t, err)

	require.NoError(t, f.auth.RevokeToken(ctx, &first.Token.Claims))

	_, err = f.guard.Authenticate(ctx, "Bearer "+first.Token.Token)
	assertRejected(t, err, ReasonRevoked, "Token revoked")

	p, err := f.guard.Authenticate(ctx, "Bearer "+second.Token.Token)
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, p.User.ID)
}

func TestRevokeTokenIgnoresExpiredTokens(t *testing.T) {
	f := newFixture(t)
	s := f.register(t)
	f.clock.Advance(25 * time.Hour)

	require.NoError(t, f.auth.RevokeToken(context.Background(), &s.Token.Claims))
	denied, err := f.deny.IsDenied(context.Background(), s.Token.Claims.ID)
	require.NoError(t, err)
	assert.False(t, denied)
}

func TestRevokeTokenRequiresJTI(t *testing.T) {
	f := newFixture(t)
	s := f.register(t)
	claims := s.Token.Claims
	claims.ID = ""
	assert.Error(t, f.auth.RevokeToken(context.Background(), &claims))
}

func TestNewAuthServiceValidatesDependencies(t *testing.T) {
	f := newFixture(t)
	_, err := NewAuthService(nil, f.codec, f.deny, nil, nil)
	assert.Error(t, err)
	_, err = NewAuthService(f.creds, nil, f.deny, nil, nil)
	assert.Error(t, err)
	_, err = NewAuthService(f.creds, f.codec, nil, nil, nil)
	assert.Error(t, err)
}
