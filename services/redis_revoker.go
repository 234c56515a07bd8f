package services

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rpupo63/foodgram-backend/errs"
)

type redisKV interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisRevoker keeps revoked token ids as keys that expire together with the token.
type RedisRevoker struct {
	client redisKV
	prefix string
	now    func() time.Time
}

func NewRedisRevoker(client redisKV) *RedisRevoker {
	return &RedisRevoker{client: client, prefix: "foodgram:revoked:", now: time.Now}
}

// NewRedisClient parses a redis:// URL.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errs.NewConfigError("REDIS_URL", err)
	}
	return redis.NewClient(opts), nil
}

func (r *RedisRevoker) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, r.prefix+jti, 1, ttl).Err(); err != nil {
		return errs.NewServiceUnreachableError("redis", err)
	}
	return nil
}

func (r *RedisRevoker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, r.prefix+jti).Result()
	if err != nil {
		return false, errs.NewServiceUnreachableError("redis", err)
	}
	return n > 0, nil
}
