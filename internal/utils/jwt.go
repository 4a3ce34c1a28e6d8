package utils // package utils provides helpers for bearer token creation, hashing and passwords

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iliyamo/bearer-auth-api/internal/model"
)

// ErrTokenDecode is returned for every token that cannot be decoded:
// malformed input, a bad signature or a foreign signing algorithm.
var ErrTokenDecode = errors.New("token decode failed")

// TokenClaims is the bearer token payload.  Besides the user identity it
// carries the token_version the token was minted under, which is how a
// logout-everywhere invalidates it, and a jti for single-token revocation.
type TokenClaims struct {
	UserID       uint64 `json:"user_id"`
	Email        string `json:"email"`
	TokenVersion int64  `json:"token_version"`
	jwt.RegisteredClaims
}

// AccessToken represents a signed bearer token along with its claims.
// Exp duplicates Claims.ExpiresAt for callers that only need the expiry.
type AccessToken struct {
	Token  string      // the serialized JWT string
	Exp    time.Time   // the UTC expiration time
	Claims TokenClaims // payload that was signed
}

// TokenCodec signs and decodes bearer tokens with a single HS256 secret.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenCodec builds a codec.  An empty secret is refused; tokens signed
// with it would be forgeable.
func NewTokenCodec(secret string, ttl time.Duration) (*TokenCodec, error) {
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	if ttl <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	return &TokenCodec{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// WithClock returns a copy of the codec reading time from now.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	cp := *c
	cp.now = now
	return &cp
}

// TTL is the lifetime given to issued tokens.
func (c *TokenCodec) TTL() time.Duration { return c.ttl }

// Issue signs a token for u.  Every call produces a distinct token string
// because each carries a fresh jti.
func (c *TokenCodec) Issue(u model.User) (AccessToken, error) {
	iat := c.now().UTC().Truncate(time.Second)
	exp := iat.Add(c.ttl)
	claims := TokenClaims{
		UserID:       u.ID,
		Email:        u.Email,
		TokenVersion: u.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(iat),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp, Claims: claims}, nil
}

// Decode verifies the signature and structure of token and returns its
// claims.  Expiry is deliberately not checked here: the guard reports an
// expired token as revoked, after the user lookup.
func (c *TokenCodec) Decode(token string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenDecode, err)
	}
	if !parsed.Valid {
		return nil, ErrTokenDecode
	}
	if claims.UserID == 0 || claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing user_id or exp", ErrTokenDecode)
	}
	return claims, nil
}
