package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Guyuepp/clip-board/domain"
)

const KeyIdentity = "clipboard:identity:%s"

type identityCache struct {
	client *redis.Client
}

var _ domain.IdentityCache = (*identityCache)(nil)

func NewIdentityCache(client *redis.Client) *identityCache {
	return &identityCache{
		client,
	}
}

// identityKey never stores the raw token
func identityKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return fmt.Sprintf(KeyIdentity, hex.EncodeToString(sum[:]))
}

func (c *identityCache) Get(ctx context.Context, token string) (res domain.User, err error) {
	data, err := c.client.Get(ctx, identityKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.User{}, domain.ErrCacheMiss
	} else if err != nil {
		return domain.User{}, err
	}
	if err = json.Unmarshal(data, &res); err != nil {
		return domain.User{}, err
	}
	return
}

func (c *identityCache) Set(ctx context.Context, token string, u domain.User, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, identityKey(token), data, ttl).Err()
}
