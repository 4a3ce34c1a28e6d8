package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bearer-auth-api/internal/model"
	"github.com/iliyamo/bearer-auth-api/internal/queue"
	"github.com/iliyamo/bearer-auth-api/internal/repository"
	"github.com/iliyamo/bearer-auth-api/internal/utils"
)

const testSecret = "test-secret"

type fixture struct {
	store *repository.MemoryUserRepo
	deny  *repository.MemoryDenyList
	creds *Credentials
	codec *utils.TokenCodec
	auth  *AuthService
	guard *Guard
	reset *ResetService
	mail  *recordingQueue
	clock *clock
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingQueue struct {
	mu     sync.Mutex
	events []queue.PasswordResetRequested
}

func (q *recordingQueue) Enqueue(_ context.Context, ev queue.PasswordResetRequested) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, ev)
}

func (q *recordingQueue) last(t *testing.T) queue.PasswordResetRequested {
	t.Helper()
	q.mu.Lock()
	defer q.mu.Unlock()
	require.NotEmpty(t, q.events)
	return q.events[len(q.events)-1]
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: repository.NewMemoryUserRepo(),
		deny:  repository.NewMemoryDenyList(),
		mail:  &recordingQueue{},
		clock: &clock{now: time.Now().UTC()},
	}
	var err error
	f.creds, err = NewCredentials(f.store, 4)
	require.NoError(t, err)
	codec, err := utils.NewTokenCodec(testSecret, 24*time.Hour)
	require.NoError(t, err)
	f.codec = codec.WithClock(f.clock.Now)

	f.auth, err = NewAuthService(f.creds, f.codec, f.deny, nil, nil)
	require.NoError(t, err)
	f.auth.now = f.clock.Now

	f.guard, err = NewGuard(f.store, f.codec, f.deny, nil)
	require.NoError(t, err)
	f.guard.now = f.clock.Now

	f.reset, err = NewResetService(f.creds, f.mail, 2*time.Hour, "http://localhost:3000/", nil, nil)
	require.NoError(t, err)
	f.reset.now = f.clock.Now
	return f
}

func validNewUser() model.NewUser {
	return model.NewUser{Email: "a@b.com", Password: "password123", FirstName: "J", LastName: "D"}
}

func (f *fixture) register(t *testing.T) Session {
	t.Helper()
	s, err := f.auth.Register(context.Background(), validNewUser())
	require.NoError(t, err)
	return s
}
