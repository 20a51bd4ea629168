package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/Guyuepp/clip-board/domain"
)

// DefaultPostTTL is the logical lifetime of a cached post
const DefaultPostTTL = 10 * time.Minute

// postRepository coordinates the post cache and the database
type postRepository struct {
	db           domain.PostRepository
	cache        domain.PostCache
	ttl          time.Duration
	rebuildGroup singleflight.Group
}

var _ domain.PostRepository = (*postRepository)(nil)

// NewPostRepository wraps db with a read-through cache for single posts
func NewPostRepository(db domain.PostRepository, cache domain.PostCache, ttl time.Duration) *postRepository {
	if ttl <= 0 {
		ttl = DefaultPostTTL
	}
	return &postRepository{
		db:    db,
		cache: cache,
		ttl:   ttl,
	}
}

// Fetch goes straight to the database, feed pages are filter dependent.
func (r *postRepository) Fetch(ctx context.Context, viewerID int64, params domain.QueryParams, cursor string) ([]domain.Post, string, error) {
	return r.db.Fetch(ctx, viewerID, params, cursor)
}

// GetByID serves a logically expired copy while one caller rebuilds it in the background
func (r *postRepository) GetByID(ctx context.Context, id int64) (domain.Post, error) {
	post, expired, err := r.cache.GetPost(ctx, id)
	if err == nil {
		if expired {
			go func() {
				if _, err := r.load(context.Background(), id); err != nil {
					logrus.Warnf("failed to rebuild post cache %d: %v", id, err)
				}
			}()
		}
		return post, nil
	}
	if !errors.Is(err, domain.ErrCacheMiss) {
		logrus.Warnf("post cache get error: %v", err)
	}

	return r.load(ctx, id)
}

// load reads one post from the database and refreshes the cache, deduplicated per id
func (r *postRepository) load(ctx context.Context, id int64) (domain.Post, error) {
	result, err, _ := r.rebuildGroup.Do(strconv.FormatInt(id, 10), func() (any, error) {
		post, err := r.db.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := r.cache.SetPost(ctx, &post, r.ttl); err != nil {
			logrus.Warnf("failed to set post cache: %v", err)
		}
		return post, nil
	})
	if err != nil {
		return domain.Post{}, err
	}
	return result.(domain.Post).Clone(), nil
}

func (r *postRepository) FetchViewerState(ctx context.Context, viewerID int64, postIDs []int64) (map[int64]bool, map[int64]bool, error) {
	return r.db.FetchViewerState(ctx, viewerID, postIDs)
}

// ApplyPatch answers with the row read back by the patch transaction, never with a
// cached or shared load that may predate the commit.
func (r *postRepository) ApplyPatch(ctx context.Context, viewerID int64, id int64, patch domain.PostPatch) (domain.Post, error) {
	post, err := r.db.ApplyPatch(ctx, viewerID, id, patch)
	if err != nil {
		return domain.Post{}, err
	}
	r.evict(ctx, id)
	return post, nil
}

func (r *postRepository) Delete(ctx context.Context, id int64) error {
	if err := r.db.Delete(ctx, id); err != nil {
		return err
	}
	r.evict(ctx, id)
	return nil
}

// evict drops the cached copy and detaches any load already running, so later
// readers start a fresh one.
func (r *postRepository) evict(ctx context.Context, id int64) {
	r.rebuildGroup.Forget(strconv.FormatInt(id, 10))
	if err := r.cache.DeletePost(ctx, id); err != nil {
		logrus.Warnf("failed to delete post cache %d: %v", id, err)
	}
}
