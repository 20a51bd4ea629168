package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Guyuepp/clip-board/domain"
	"github.com/Guyuepp/clip-board/internal/repository/cache"
)

const KeyPost = "clipboard:post:%d"

// hardTTLFactor keeps logically expired copies around long enough to be rebuilt
const hardTTLFactor = 2

type postCache struct {
	client *redis.Client
}

var _ domain.PostCache = (*postCache)(nil)

func NewPostCache(client *redis.Client) *postCache {
	return &postCache{
		client,
	}
}

func (c *postCache) GetPost(ctx context.Context, id int64) (domain.Post, bool, error) {
	data, err := c.client.Get(ctx, fmt.Sprintf(KeyPost, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Post{}, false, domain.ErrCacheMiss
	} else if err != nil {
		return domain.Post{}, false, err
	}

	var wrapped cache.DataWithLogicalExpire[domain.Post]
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return domain.Post{}, false, err
	}
	return wrapped.Data, wrapped.IsLogicalExpired(), nil
}

func (c *postCache) SetPost(ctx context.Context, p *domain.Post, ttl time.Duration) error {
	// viewer state must never leak into the shared copy
	post := p.Clone()
	post.Liked = false
	post.Saved = false

	data, err := json.Marshal(cache.NewDataWithLogicalExpire(post, ttl))
	if err != nil {
		return err
	}
	return c.client.Set(ctx, fmt.Sprintf(KeyPost, p.ID), data, ttl*hardTTLFactor).Err()
}

func (c *postCache) DeletePost(ctx context.Context, id int64) error {
	return c.client.Del(ctx, fmt.Sprintf(KeyPost, id)).Err()
}
