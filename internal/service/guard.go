package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/iliyamo/bearer-auth-api/internal/metrics"
	"github.com/iliyamo/bearer-auth-api/internal/model"
	"github.com/iliyamo/bearer-auth-api/internal/repository"
	"github.com/iliyamo/bearer-auth-api/internal/utils"
)

// Reason is the machine readable cause of a rejection.
type Reason string

const (
	ReasonMissingToken Reason = "missing_token"
	ReasonInvalidToken Reason = "invalid_token"
	ReasonRevoked      Reason = "revoked"
)

const bearerPrefix = "Bearer "

// Rejection is returned by Guard.Authenticate when a request must be
// answered with 401.  Any other error is a system failure.
type Rejection struct {
	Reason  Reason
	Message string
}

func (r *Rejection) Error() string { return string(r.Reason) + ": " + r.Message }

var (
	rejectMissing = &Rejection{Reason: ReasonMissingToken, Message: "Missing authorization token"}
	rejectDecode  = &Rejection{Reason: ReasonInvalidToken, Message: "Invalid or expired token"}
	rejectNoUser  = &Rejection{Reason: ReasonInvalidToken, Message: "Invalid token"}
	// expired, superseded and deny-listed tokens are indistinguishable to clients
	rejectRevoked = &Rejection{Reason: ReasonRevoked, Message: "Token revoked"}
)

// Principal is the outcome of a successful authentication.
type Principal struct {
	User   model.User
	Claims *utils.TokenClaims
	Token  string
}

// Guard decides whether a request's Authorization header identifies a
// current user.  It holds no locks and has no side effects on success.
type Guard struct {
	users   repository.UserStore
	codec   *utils.TokenCodec
	deny    repository.DenyList
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewGuard creates a Guard.  deny may be nil when point revocation is not
// used; m may be nil.
func NewGuard(users repository.UserStore, codec *utils.TokenCodec, deny repository.DenyList, m *metrics.Metrics) (*Guard, error) {
	if users == nil {
		return nil, oops.Errorf("user store is required")
	}
	if codec == nil {
		return nil, oops.Errorf("token codec is required")
	}
	return &Guard{users: users, codec: codec, deny: deny, metrics: m, now: time.Now}, nil
}

// Authenticate runs the checks in order: bearer prefix, signature, user
// lookup, expiry, token_version, deny-list.  The first failing check
// determines the Rejection.
func (g *Guard) Authenticate(ctx context.Context, header string) (Principal, error) {
	p, err := g.authenticate(ctx, header)
	var rej *Rejection
	switch {
	case err == nil:
		g.metrics.GuardDecision("authenticated", "")
	case errors.As(err, &rej):
		g.metrics.GuardDecision("rejected", string(rej.Reason))
	default:
		g.metrics.GuardDecision("error", "")
	}
	return p, err
}

func (g *Guard) authenticate(ctx context.Context, header string) (Principal, error) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return Principal{}, rejectMissing
	}
	raw := strings.TrimSpace(header[len(bearerPrefix):])

	claims, err := g.codec.Decode(raw)
	if err != nil {
		return Principal{}, rejectDecode
	}

	u, err := g.users.GetByID(ctx, claims.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return Principal{}, rejectNoUser
	}
	if err != nil {
		return Principal{}, oops.Code("AUTH_GUARD_FAILED").With("operation", "GetByID").Wrap(err)
	}

	if !claims.ExpiresAt.After(g.now()) {
		return Principal{}, rejectRevoked
	}
	if claims.TokenVersion != u.TokenVersion {
		return Principal{}, rejectRevoked
	}
	if g.deny != nil && claims.ID != "" {
		denied, err := g.deny.IsDenied(ctx, claims.ID)
		if err != nil {
			return Principal{}, oops.Code("AUTH_GUARD_FAILED").With("operation", "IsDenied").Wrap(err)
		}
		if denied {
			return Principal{}, rejectRevoked
		}
	}

	return Principal{User: u, Claims: claims, Token: raw}, nil
}
