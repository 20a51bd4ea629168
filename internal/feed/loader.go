package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/Guyuepp/clip-board/domain"
)

// DefaultTimeout bounds a single page fetch
const DefaultTimeout = 30 * time.Second

// AuthErrorHandler is notified when a fetch fails for authorization reasons.
type AuthErrorHandler interface {
	HandleError(ctx context.Context, err error) bool
}

// Loader feeds the visible list from the feed cache and pulls further pages when the
// sentinel after the last item becomes visible.
type Loader struct {
	cache   domain.FeedCache
	client  domain.PostClient
	auth    AuthErrorHandler
	timeout time.Duration

	firstPage singleflight.Group

	mu       sync.Mutex
	inFlight map[string]bool
	lastErr  map[string]error
}

// NewLoader creates a loader. auth may be nil.
func NewLoader(cache domain.FeedCache, client domain.PostClient, auth AuthErrorHandler, timeout time.Duration) *Loader {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Loader{
		cache:    cache,
		client:   client,
		auth:     auth,
		timeout:  timeout,
		inFlight: make(map[string]bool),
		lastErr:  make(map[string]error),
	}
}

// Load returns the entry for params, fetching the first page when nothing is cached.
// Concurrent loads of the same params share one request.
func (l *Loader) Load(ctx context.Context, params domain.QueryParams) (domain.FeedEntry, error) {
	if e, ok := l.cache.GetEntry(params); ok {
		return e, nil
	}

	key := params.Key()
	_, err, _ := l.firstPage.Do(key, func() (any, error) {
		if _, ok := l.cache.GetEntry(params); ok {
			return nil, nil
		}
		reqCtx, cancel := context.WithTimeout(ctx, l.timeout)
		defer cancel()

		page, err := l.client.Fetch(reqCtx, params)
		if err != nil {
			return nil, err
		}
		page.Posts = dedupe(page.Posts, nil)
		l.cache.AppendPage(params, page)
		return nil, nil
	})
	if err != nil {
		l.fail(ctx, key, err)
		return domain.FeedEntry{}, err
	}
	l.setErr(key, nil)

	e, ok := l.cache.GetEntry(params)
	if !ok {
		return domain.FeedEntry{}, domain.ErrStale
	}
	return e, nil
}

// Items returns the posts to render for params in display order.
func (l *Loader) Items(params domain.QueryParams) []domain.Post {
	e, ok := l.cache.GetEntry(params)
	if !ok {
		return nil
	}
	return e.Posts()
}

// Refresh drops the cached entry and loads the first page again.
func (l *Loader) Refresh(ctx context.Context, params domain.QueryParams) (domain.FeedEntry, error) {
	l.cache.Invalidate(&params)
	return l.Load(ctx, params)
}

// OnSentinelVisibility is called on every visibility change of the sentinel. A fetch of
// the next page starts when the sentinel is visible, a cursor exists and no fetch for
// params is in flight. The returned channel yields the fetch result; it is nil when no
// fetch was started.
func (l *Loader) OnSentinelVisibility(ctx context.Context, params domain.QueryParams, visible bool) <-chan error {
	if !visible {
		return nil
	}
	cursor, gen, ok := l.begin(params)
	if !ok {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		err := l.fetchNext(context.WithoutCancel(ctx), params, cursor, gen)
		done <- err
		close(done)
	}()
	return done
}

// FetchNext fetches and appends the next page synchronously, honouring the same
// in-flight guard as OnSentinelVisibility. It returns false when nothing was fetched.
func (l *Loader) FetchNext(ctx context.Context, params domain.QueryParams) (bool, error) {
	cursor, gen, ok := l.begin(params)
	if !ok {
		return false, nil
	}
	return true, l.fetchNext(ctx, params, cursor, gen)
}

// Fetching reports whether a next page fetch runs for params.
func (l *Loader) Fetching(params domain.QueryParams) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inFlight[params.Key()]
}

// LastError returns the error of the latest fetch for params.
func (l *Loader) LastError(params domain.QueryParams) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr[params.Key()]
}

func (l *Loader) begin(params domain.QueryParams) (string, uint64, bool) {
	key := params.Key()

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inFlight[key] {
		return "", 0, false
	}
	e, ok := l.cache.GetEntry(params)
	if !ok || !e.HasNext() {
		return "", 0, false
	}
	l.inFlight[key] = true
	return e.NextCursor(), e.Generation, true
}

func (l *Loader) fetchNext(ctx context.Context, params domain.QueryParams, cursor string, gen uint64) error {
	key := params.Key()
	defer func() {
		l.mu.Lock()
		delete(l.inFlight, key)
		l.mu.Unlock()
	}()

	reqCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	page, err := l.client.FetchNext(reqCtx, params, cursor)
	if err != nil {
		l.fail(ctx, key, err)
		return err
	}
	l.setErr(key, nil)

	e, ok := l.cache.GetEntry(params)
	if !ok || e.Generation != gen || e.NextCursor() != cursor {
		logrus.Debugf("next page for %s: %v", key, domain.ErrStale)
		return nil
	}

	seen := make(map[int64]bool)
	for _, p := range e.Posts() {
		seen[p.ID] = true
	}
	page.Posts = dedupe(page.Posts, seen)
	l.cache.AppendPage(params, page)
	return nil
}

func (l *Loader) fail(ctx context.Context, key string, err error) {
	logrus.Errorf("failed to fetch posts for %s: %v", key, err)
	l.setErr(key, err)
	if errors.Is(err, domain.ErrUnauthorized) && l.auth != nil {
		l.auth.HandleError(ctx, err)
	}
}

func (l *Loader) setErr(key string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err == nil {
		delete(l.lastErr, key)
		return
	}
	l.lastErr[key] = err
}

// dedupe drops posts already in seen or repeated within posts, keeping server order.
func dedupe(posts []domain.Post, seen map[int64]bool) []domain.Post {
	if seen == nil {
		seen = make(map[int64]bool, len(posts))
	}
	res := make([]domain.Post, 0, len(posts))
	for _, p := range posts {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		res = append(res, p)
	}
	return res
}
