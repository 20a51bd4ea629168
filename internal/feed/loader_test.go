package feed_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Guyuepp/clip-board/domain"
	"github.com/Guyuepp/clip-board/internal/feed"
	"github.com/Guyuepp/clip-board/internal/feedcache"
)

type postClientMock struct {
	mock.Mock
}

func (m *postClientMock) Fetch(ctx context.Context, params domain.QueryParams) (domain.Page, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(domain.Page), args.Error(1)
}

func (m *postClientMock) FetchNext(ctx context.Context, params domain.QueryParams, cursor string) (domain.Page, error) {
	args := m.Called(ctx, params, cursor)
	return args.Get(0).(domain.Page), args.Error(1)
}

func (m *postClientMock) Mutate(ctx context.Context, id int64, patch domain.PostPatch) (domain.Post, error) {
	args := m.Called(ctx, id, patch)
	return args.Get(0).(domain.Post), args.Error(1)
}

func (m *postClientMock) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type authHandlerStub struct {
	calls atomic.Int32
}

func (a *authHandlerStub) HandleError(context.Context, error) bool {
	a.calls.Add(1)
	return true
}

var home = domain.QueryParams{Limit: 3}

func page(cursor string, ids ...int64) domain.Page {
	p := domain.Page{NextCursor: cursor}
	for _, id := range ids {
		p.Posts = append(p.Posts, domain.Post{ID: id})
	}
	return p
}

func postIDs(ps []domain.Post) []int64 {
	res := make([]int64, len(ps))
	for i, p := range ps {
		res[i] = p.ID
	}
	return res
}

func wait(t *testing.T, ch <-chan error) error {
	t.Helper()
	require.NotNil(t, ch)
	select {
	case err := <-ch:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("fetch did not resolve")
		return nil
	}
}

func TestLoadSharesFirstPage(t *testing.T) {
	cache := feedcache.New(8)
	client := new(postClientMock)
	l := feed.NewLoader(cache, client, nil, time.Second)

	release := make(chan struct{})
	client.On("Fetch", mock.Anything, home).
		Run(func(mock.Arguments) { <-release }).
		Return(page("C1", 1, 2, 2, 3), nil).Once()

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, err := l.Load(context.Background(), home)
			assert.NoError(t, err)
			assert.Equal(t, []int64{1, 2, 3}, postIDs(e.Posts()))
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	// cached now, no further request
	_, err := l.Load(context.Background(), home)
	require.NoError(t, err)
	client.AssertNumberOfCalls(t, "Fetch", 1)
}

func TestSentinelTriggersOneFetch(t *testing.T) {
	cache := feedcache.New(8)
	client := new(postClientMock)
	l := feed.NewLoader(cache, client, nil, time.Second)
	require.True(t, cache.AppendPage(home, page("C1", 1, 2, 3)))

	release := make(chan struct{})
	client.On("FetchNext", mock.Anything, home, "C1").
		Run(func(mock.Arguments) { <-release }).
		Return(page("", 3, 4, 5), nil).Once()

	first := l.OnSentinelVisibility(context.Background(), home, true)
	require.NotNil(t, first)
	for range 10 {
		assert.Nil(t, l.OnSentinelVisibility(context.Background(), home, false))
		assert.Nil(t, l.OnSentinelVisibility(context.Background(), home, true))
	}
	assert.True(t, l.Fetching(home))

	close(release)
	require.NoError(t, wait(t, first))
	assert.False(t, l.Fetching(home))
	client.AssertNumberOfCalls(t, "FetchNext", 1)

	// overlapping id 3 is dropped, server order kept
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, postIDs(l.Items(home)))

	// no cursor left
	assert.Nil(t, l.OnSentinelVisibility(context.Background(), home, true))
}

func TestSentinelWithoutEntryOrCursor(t *testing.T) {
	cache := feedcache.New(8)
	client := new(postClientMock)
	l := feed.NewLoader(cache, client, nil, time.Second)

	assert.Nil(t, l.OnSentinelVisibility(context.Background(), home, true))
	require.True(t, cache.AppendPage(home, page("", 1)))
	assert.Nil(t, l.OnSentinelVisibility(context.Background(), home, true))

	fetched, err := l.FetchNext(context.Background(), home)
	assert.False(t, fetched)
	assert.NoError(t, err)
	client.AssertNotCalled(t, "FetchNext", mock.Anything, mock.Anything, mock.Anything)
}

func TestStalePageIsDiscarded(t *testing.T) {
	cache := feedcache.New(8)
	client := new(postClientMock)
	l := feed.NewLoader(cache, client, nil, time.Second)
	require.True(t, cache.AppendPage(home, page("C1", 1)))

	release := make(chan struct{})
	client.On("FetchNext", mock.Anything, home, "C1").
		Run(func(mock.Arguments) { <-release }).
		Return(page("", 2), nil).Once()

	ch := l.OnSentinelVisibility(context.Background(), home, true)
	cache.Invalidate(&home)
	require.True(t, cache.AppendPage(home, page("C9", 7)))
	close(release)
	require.NoError(t, wait(t, ch))

	assert.Equal(t, []int64{7}, postIDs(l.Items(home)))
}

func TestFetchErrorIsKeptAndRetryable(t *testing.T) {
	cache := feedcache.New(8)
	client := new(postClientMock)
	auth := &authHandlerStub{}
	l := feed.NewLoader(cache, client, auth, time.Second)
	require.True(t, cache.AppendPage(home, page("C1", 1)))

	client.On("FetchNext", mock.Anything, home, "C1").Return(domain.Page{}, domain.ErrUnauthorized).Once()
	client.On("FetchNext", mock.Anything, home, "C1").Return(page("", 2), nil).Once()

	fetched, err := l.FetchNext(context.Background(), home)
	assert.True(t, fetched)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.ErrorIs(t, l.LastError(home), domain.ErrUnauthorized)
	assert.EqualValues(t, 1, auth.calls.Load())

	require.NoError(t, wait(t, l.OnSentinelVisibility(context.Background(), home, true)))
	assert.NoError(t, l.LastError(home))
	assert.Equal(t, []int64{1, 2}, postIDs(l.Items(home)))
}

func TestRefresh(t *testing.T) {
	cache := feedcache.New(8)
	client := new(postClientMock)
	l := feed.NewLoader(cache, client, nil, time.Second)
	require.True(t, cache.AppendPage(home, page("C1", 1, 2)))

	client.On("Fetch", mock.Anything, home).Return(page("", 9), nil).Once()
	e, err := l.Refresh(context.Background(), home)
	require.NoError(t, err)
	assert.Equal(t, []int64{9}, postIDs(e.Posts()))
}
