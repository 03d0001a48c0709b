package services

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"

	"github.com/AnshRaj112/propertyhub-backend/internal/provider"
)

const (
	TokenCacheKeyPrefix  = "token_user:"
	DefaultTokenCacheTTL = 60 * time.Second
)

// TokenCache remembers which account a bearer token belongs to so that every
// authenticated request does not cost a provider round trip. A nil *TokenCache
// is valid and caches nothing.
type TokenCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewTokenCache(client *redis.Client, ttl time.Duration) *TokenCache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = DefaultTokenCacheTTL
	}
	return &TokenCache{client: client, ttl: ttl}
}

// Fingerprint is a hex blake2b-256 digest. Raw tokens never reach Redis and raw emails never key audit entries.
func Fingerprint(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached user, or nil on a miss.
func (c *TokenCache) Get(ctx context.Context, token string) (*provider.User, error) {
	if c == nil {
		return nil, nil
	}
	val, err := c.client.Get(ctx, TokenCacheKeyPrefix+Fingerprint(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var user provider.User
	if err := json.Unmarshal(val, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *TokenCache) Set(ctx context.Context, token string, user *provider.User) error {
	if c == nil || user == nil {
		return nil
	}
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, TokenCacheKeyPrefix+Fingerprint(token), data, c.ttl).Err()
}

// Evict drops a token, e.g. after logout.
func (c *TokenCache) Evict(ctx context.Context, token string) error {
	if c == nil || token == "" {
		return nil
	}
	return c.client.Del(ctx, TokenCacheKeyPrefix+Fingerprint(token)).Err()
}
