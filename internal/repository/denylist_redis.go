package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
)

// RedisDenyList keeps one key per revoked jti with a TTL equal to the
// token's remaining lifetime, so Redis expires entries itself.
type RedisDenyList struct {
	rdb    redis.Cmdable
	prefix string
	now    func() time.Time
}

func NewRedisDenyList(rdb redis.Cmdable, prefix string) *RedisDenyList {
	if prefix == "" {
		prefix = "denylist"
	}
	return &RedisDenyList{rdb: rdb, prefix: prefix, now: time.Now}
}

var _ DenyList = (*RedisDenyList)(nil)

func (r *RedisDenyList) key(jti string) string { return r.prefix + ":" + jti }

func (r *RedisDenyList) Deny(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	if err := r.rdb.Set(ctx, r.key(jti), expiresAt.Unix(), ttl).Err(); err != nil {
		return oops.In("denylist").With("jti", jti).Wrapf(err, "deny token")
	}
	return nil
}

func (r *RedisDenyList) IsDenied(ctx context.Context, jti string) (bool, error) {
	n, err := r.rdb.Exists(ctx, r.key(jti)).Result()
	if err != nil {
		return false, oops.In("denylist").With("jti", jti).Wrapf(err, "lookup token")
	}
	return n > 0, nil
}
