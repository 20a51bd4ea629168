package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/Guyuepp/clip-board/domain"
)

// DefaultViewerTTL is how long a loaded viewer is served before it is revalidated
const DefaultViewerTTL = 5 * time.Minute

type viewerState struct {
	accounts domain.AccountClient
	twitch   domain.TwitchUsers
	ttl      time.Duration

	mu        sync.Mutex
	cached    *domain.Viewer
	fetchedAt time.Time
	gen       uint64
	group     singleflight.Group
}

// WithAccounts enables Viewer. twitch may be nil, the viewer then has no Twitch profile.
func (s *Service) WithAccounts(accounts domain.AccountClient, twitch domain.TwitchUsers, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultViewerTTL
	}
	s.viewers = &viewerState{accounts: accounts, twitch: twitch, ttl: ttl}
	return s
}

// Viewer returns the signed in user with its Twitch profile and broadcaster relation.
// A copy older than the TTL is served while a refresh runs in the background. The zero
// Viewer is returned when nobody is signed in.
func (s *Service) Viewer(ctx context.Context) (domain.Viewer, error) {
	v := s.viewers
	if v == nil {
		return domain.Viewer{}, nil
	}

	v.mu.Lock()
	cached, fetchedAt, gen := v.cached, v.fetchedAt, v.gen
	v.mu.Unlock()

	if cached != nil {
		if time.Since(fetchedAt) >= v.ttl {
			go func() {
				if _, err := s.loadViewer(context.WithoutCancel(ctx), gen); err != nil {
					logrus.Warnf("failed to revalidate viewer: %v", err)
				}
			}()
		}
		return *cached, nil
	}
	return s.loadViewer(ctx, gen)
}

func (s *Service) loadViewer(ctx context.Context, gen uint64) (domain.Viewer, error) {
	v := s.viewers
	res, err, _ := v.group.Do("viewer", func() (any, error) {
		viewer, err := s.fetchViewer(ctx)
		if err != nil {
			return nil, err
		}

		v.mu.Lock()
		// a login or logout since the load began makes the result stale
		if v.gen == gen {
			v.cached = &viewer
			v.fetchedAt = time.Now()
		}
		v.mu.Unlock()
		return viewer, nil
	})
	if err != nil {
		return domain.Viewer{}, err
	}
	return res.(domain.Viewer), nil
}

func (s *Service) fetchViewer(ctx context.Context) (domain.Viewer, error) {
	v := s.viewers
	token, err := s.store.Token(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Viewer{}, nil
	} else if err != nil {
		return domain.Viewer{}, err
	}

	var viewer domain.Viewer
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := v.accounts.Me(gctx)
		if err != nil {
			return err
		}
		viewer.User = u
		return nil
	})
	if v.twitch != nil {
		g.Go(func() error {
			viewer.Twitch, viewer.Follower, viewer.Subscriber = s.fetchTwitch(gctx, token)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if s.HandleError(ctx, err) {
			return domain.Viewer{}, err
		}
		logrus.Errorf("failed to load viewer: %v", err)
		return domain.Viewer{}, err
	}
	return viewer, nil
}

// fetchTwitch degrades to an empty profile, Twitch status is decoration only.
func (s *Service) fetchTwitch(ctx context.Context, token string) (domain.TwitchProfile, bool, bool) {
	twitch := s.viewers.twitch
	profile, err := twitch.User(ctx, token)
	if err != nil {
		logrus.Warnf("failed to load Twitch profile: %v", err)
		return domain.TwitchProfile{}, false, false
	}

	var follower, subscriber bool
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ok, err := twitch.IsFollower(gctx, token, profile.ID)
		if err != nil {
			logrus.Warnf("failed to load follower status: %v", err)
		}
		follower = ok
		return nil
	})
	g.Go(func() error {
		ok, err := twitch.IsSubscriber(gctx, token, profile.ID)
		if err != nil {
			logrus.Warnf("failed to load subscriber status: %v", err)
		}
		subscriber = ok
		return nil
	})
	_ = g.Wait()
	return profile, follower, subscriber
}

// forgetViewer drops the cached viewer and detaches loads already running.
func (s *Service) forgetViewer() {
	v := s.viewers
	if v == nil {
		return
	}
	v.mu.Lock()
	v.cached = nil
	v.gen++
	v.mu.Unlock()
	v.group.Forget("viewer")
}
