package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Guyuepp/clip-board/domain"
	"github.com/Guyuepp/clip-board/internal/feed"
	"github.com/Guyuepp/clip-board/internal/feedcache"
	"github.com/Guyuepp/clip-board/internal/usecase/mutation"
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

type sessionStub struct {
	viewer  domain.Viewer
	logouts int
}

func (s *sessionStub) Viewer(context.Context) (domain.Viewer, error) {
	return s.viewer, nil
}

func (s *sessionStub) Logout(context.Context) error {
	s.logouts++
	return nil
}

func (s *sessionStub) SavePreferences(context.Context, domain.UIPreferences) error {
	return nil
}

var (
	member    = domain.Viewer{User: domain.User{ID: 2, DisplayName: "member", Role: domain.RoleUser}}
	moderator = domain.Viewer{
		User:     domain.User{ID: 3, DisplayName: "mod", Role: domain.RoleModerator},
		Twitch:   domain.TwitchProfile{ID: "52341091", DisplayName: "Caliebre"},
		Follower: true,
	}
)

func page(cursor string, ids ...int64) domain.Page {
	p := domain.Page{NextCursor: cursor}
	for _, id := range ids {
		p.Posts = append(p.Posts, domain.Post{ID: id, Title: "clip", Likes: 1})
	}
	return p
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// run executes cmd and every command batched inside it, feeding the messages to m.
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		return m
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			m = run(t, m, c)
		}
		return m
	}
	if msg == nil {
		return m
	}
	next, follow := m.Update(msg)
	m = next.(Model)
	if _, ok := msg.(feedLoadedMsg); ok {
		m = run(t, m, follow)
	}
	return m
}

func update(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func newModel(t *testing.T, client *postClientMock) Model {
	t.Helper()
	return newModelAs(t, client, nil)
}

func newModelAs(t *testing.T, client *postClientMock, session Session) Model {
	t.Helper()
	cache := feedcache.New(8)
	loader := feed.NewLoader(cache, client, nil, time.Second)
	mutations := mutation.NewService(cache, client, nil, time.Second)

	m := New(context.Background(), loader, mutations, session, domain.UIPreferences{})
	m, _ = update(m, tea.WindowSizeMsg{Width: 80, Height: 40})
	return m
}

func TestInitLoadsFirstPage(t *testing.T) {
	client := new(postClientMock)
	client.On("Fetch", mock.Anything, domain.QueryParams{}).Return(page("C1", 3, 2, 1), nil).Once()

	m := newModel(t, client)
	m = run(t, m, m.Init())

	assert.Len(t, m.list.Items(), 3)
	assert.Empty(t, m.callout)
	client.AssertExpectations(t)
}

func TestSentinelFetchesNextPageOnce(t *testing.T) {
	client := new(postClientMock)
	release := make(chan time.Time)
	client.On("Fetch", mock.Anything, domain.QueryParams{}).Return(page("C1", 5, 4, 3), nil).Once()
	client.On("FetchNext", mock.Anything, domain.QueryParams{}, "C1").
		WaitUntil(release).Return(page("", 2, 1), nil).Once()

	m := newModel(t, client)
	m = run(t, m, m.Init())

	m, cmd := update(m, runes("G"))
	require.NotNil(t, cmd)
	assert.True(t, m.fetching)

	// visibility toggles while the first fetch is in flight
	m, _ = update(m, runes("k"))
	m, again := update(m, runes("G"))
	assert.Nil(t, again)

	close(release)
	m = run(t, m, cmd)

	assert.False(t, m.fetching)
	assert.Len(t, m.list.Items(), 5)
	client.AssertNumberOfCalls(t, "FetchNext", 1)
}

func TestLikeIsOptimistic(t *testing.T) {
	client := new(postClientMock)
	release := make(chan time.Time)
	liked := true
	client.On("Fetch", mock.Anything, domain.QueryParams{}).Return(page("", 1), nil).Once()
	client.On("Mutate", mock.Anything, int64(1), domain.PostPatch{Liked: &liked}).
		WaitUntil(release).Return(domain.Post{ID: 1, Likes: 2, Liked: true}, nil).Once()

	m := newModel(t, client)
	m = run(t, m, m.Init())

	m, cmd := update(m, runes("l"))
	require.NotNil(t, cmd)

	p, ok := m.selected()
	require.True(t, ok)
	assert.True(t, p.Liked)
	assert.EqualValues(t, 2, p.Likes)

	close(release)
	m = run(t, m, cmd)
	p, _ = m.selected()
	assert.True(t, p.Liked)
	assert.Empty(t, m.callout)
}

func TestCategoryConflictShowsCallout(t *testing.T) {
	client := new(postClientMock)
	client.On("Fetch", mock.Anything, domain.QueryParams{}).Return(page("", 1), nil).Once()

	m := newModelAs(t, client, &sessionStub{viewer: moderator})
	m = run(t, m, m.Init())

	m, _ = update(m, runes("c"))
	assert.Equal(t, modeCategories, m.mode)
	m.input.SetValue("DIAMANTE,ORO")
	m, cmd := update(m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.Equal(t, []string{"Cannot have a post with DIAMANTE and ORO at the same time"}, m.callout)
	client.AssertNotCalled(t, "Mutate", mock.Anything, mock.Anything, mock.Anything)
}

func TestSearchChangesParams(t *testing.T) {
	client := new(postClientMock)
	client.On("Fetch", mock.Anything, domain.QueryParams{}).Return(page("", 1), nil).Once()
	client.On("Fetch", mock.Anything, domain.QueryParams{TitleQuery: "kekw"}).Return(page("", 9, 8), nil).Once()

	m := newModel(t, client)
	m = run(t, m, m.Init())

	m, _ = update(m, runes("/"))
	m.input.SetValue("kekw")
	m, cmd := update(m, tea.KeyMsg{Type: tea.KeyEnter})
	m = run(t, m, cmd)

	assert.Equal(t, "kekw", m.Params().TitleQuery)
	assert.Len(t, m.list.Items(), 2)
	client.AssertExpectations(t)
}

func TestModeratorKeysNeedModerator(t *testing.T) {
	client := new(postClientMock)
	client.On("Fetch", mock.Anything, domain.QueryParams{}).Return(page("", 1), nil).Once()

	m := newModelAs(t, client, &sessionStub{viewer: member})
	m = run(t, m, m.Init())
	require.True(t, m.viewer.SignedIn())

	m, cmd := update(m, runes("c"))
	assert.Nil(t, cmd)
	assert.Equal(t, modeBrowse, m.mode)

	m, cmd = update(m, runes("m"))
	assert.Nil(t, cmd)
	assert.Equal(t, "Only moderators can approve posts", m.status)

	// the post belongs to someone else
	m, cmd = update(m, runes("x"))
	assert.Nil(t, cmd)
	assert.Contains(t, m.status, "Only the author")

	assert.NotContains(t, m.help(), "c: categories")
	assert.NotContains(t, m.help(), "x: delete")
	client.AssertNotCalled(t, "Mutate", mock.Anything, mock.Anything, mock.Anything)
	client.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestAuthorMayDeleteOwnPost(t *testing.T) {
	client := new(postClientMock)
	own := page("", 1)
	own.Posts[0].User = member.User
	client.On("Fetch", mock.Anything, domain.QueryParams{}).Return(own, nil).Once()
	client.On("Delete", mock.Anything, int64(1)).Return(nil).Once()

	m := newModelAs(t, client, &sessionStub{viewer: member})
	m = run(t, m, m.Init())
	assert.Contains(t, m.help(), "x: delete")

	m, cmd := update(m, runes("x"))
	require.NotNil(t, cmd)
	m = run(t, m, cmd)
	assert.Equal(t, "Deleted post 1", m.status)
	assert.Empty(t, m.list.Items())
}

func TestViewShowsViewerStatus(t *testing.T) {
	client := new(postClientMock)
	client.On("Fetch", mock.Anything, domain.QueryParams{}).Return(page("", 1), nil).Twice()

	m := newModelAs(t, client, &sessionStub{viewer: moderator})
	m = run(t, m, m.Init())
	assert.Equal(t, "Caliebre (MODERATOR) • following", m.viewerLine())
	assert.Contains(t, m.help(), "m: approve")

	m, cmd := update(m, ReloadMsg{})
	assert.False(t, m.viewer.SignedIn())
	assert.Equal(t, "Not signed in, run with -login <token>", m.viewerLine())
	m = run(t, m, cmd)
	// the stub still reports the moderator, a reload reads it again
	assert.True(t, m.viewer.SignedIn())
}

func TestReloadDropsViewerFilters(t *testing.T) {
	client := new(postClientMock)
	client.On("Fetch", mock.Anything, domain.QueryParams{}).Return(page("", 1), nil).Once()

	m := newModel(t, client)
	m.params.Liked = true
	m, cmd := update(m, ReloadMsg{})
	m = run(t, m, cmd)

	assert.False(t, m.Params().Liked)
	assert.Equal(t, "Logged out", m.status)
	client.AssertExpectations(t)
}
