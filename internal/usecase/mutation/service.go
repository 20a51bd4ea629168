package mutation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Guyuepp/clip-board/domain"
)

// DefaultTimeout bounds a single remote write
const DefaultTimeout = 30 * time.Second

// AuthErrorHandler is notified when a write fails for authorization reasons.
type AuthErrorHandler interface {
	HandleError(ctx context.Context, err error) bool
}

type flightKey struct {
	postID int64
	kind   Kind
}

// Service applies commands to the feed cache before the server confirms them.
type Service struct {
	cache   domain.FeedCache
	client  domain.PostClient
	auth    AuthErrorHandler
	timeout time.Duration

	mu       sync.Mutex
	inFlight map[flightKey]struct{}
}

// NewService will create a new optimistic mutation service. auth may be nil.
func NewService(cache domain.FeedCache, client domain.PostClient, auth AuthErrorHandler, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{
		cache:    cache,
		client:   client,
		auth:     auth,
		timeout:  timeout,
		inFlight: make(map[flightKey]struct{}),
	}
}

// Execute patches the cached post for params right away, then sends the write.
// The returned Pending resolves with the server's canonical post.
//
// Errors returned directly mean nothing was changed and nothing was sent:
// a validation error, ErrMutationInFlight, or ErrNotFound when the post is not cached.
func (s *Service) Execute(ctx context.Context, params domain.QueryParams, cmd Command) (*Pending, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	key := flightKey{postID: cmd.Target(), kind: cmd.Kind()}
	if !s.acquire(key) {
		return nil, domain.ErrMutationInFlight
	}

	var (
		snapshot domain.Post
		patch    domain.PostPatch
	)
	// the stamp comes from the same critical section as the optimistic write
	gen, found := s.cache.PatchItem(params, cmd.Target(), func(p domain.Post) domain.Post {
		snapshot = p.Clone()
		next, pt := cmd.Apply(p)
		patch = pt
		return next
	})
	if !found {
		s.release(key)
		logrus.Debugf("mutation %s on post %d ignored: not cached for %s", cmd.Kind(), cmd.Target(), params.Key())
		return nil, domain.ErrNotFound
	}

	pending := newPending(cmd.Target(), cmd.Kind())
	go s.dispatch(context.WithoutCancel(ctx), params, gen, cmd, snapshot, patch, pending, key)
	return pending, nil
}

func (s *Service) dispatch(ctx context.Context, params domain.QueryParams, gen uint64, cmd Command,
	snapshot domain.Post, patch domain.PostPatch, pending *Pending, key flightKey) {
	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.client.Mutate(reqCtx, cmd.Target(), patch)
	if err != nil {
		logrus.Errorf("failed to %s post %d: %v", cmd.Kind(), cmd.Target(), err)
		s.reconcile(params, gen, cmd, snapshot)
		s.release(key)
		if errors.Is(err, domain.ErrUnauthorized) && s.auth != nil {
			s.auth.HandleError(ctx, err)
		}
		pending.resolve(domain.Post{}, err)
		return
	}

	s.reconcile(params, gen, cmd, res)
	s.release(key)
	pending.resolve(res, nil)
}

// reconcile writes the owned fields of src back into the cache unless the entry was
// recreated or dropped since dispatch.
func (s *Service) reconcile(params domain.QueryParams, gen uint64, cmd Command, src domain.Post) {
	ok := s.cache.PatchItemAt(params, gen, cmd.Target(), func(p domain.Post) domain.Post {
		return cmd.Merge(p, src)
	})
	if !ok {
		logrus.Debugf("mutation %s on post %d: %v, cache left alone", cmd.Kind(), cmd.Target(), domain.ErrStale)
	}
}

// Delete removes the post on the server, then from every cached feed.
func (s *Service) Delete(ctx context.Context, postID int64) error {
	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.client.Delete(reqCtx, postID); err != nil {
		logrus.Errorf("failed to delete post %d: %v", postID, err)
		if errors.Is(err, domain.ErrUnauthorized) && s.auth != nil {
			s.auth.HandleError(ctx, err)
		}
		return err
	}
	s.cache.RemoveItem(postID)
	return nil
}

// InFlight reports whether a command of kind is waiting for the server on postID.
func (s *Service) InFlight(postID int64, kind Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inFlight[flightKey{postID: postID, kind: kind}]
	return ok
}

func (s *Service) acquire(key flightKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[key]; busy {
		return false
	}
	s.inFlight[key] = struct{}{}
	return true
}

func (s *Service) release(key flightKey) {
	s.mu.Lock()
	delete(s.inFlight, key)
	s.mu.Unlock()
}
