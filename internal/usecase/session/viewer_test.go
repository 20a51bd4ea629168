package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Guyuepp/clip-board/domain"
	"github.com/Guyuepp/clip-board/internal/feedcache"
	"github.com/Guyuepp/clip-board/internal/usecase/session"
)

type accountsMock struct {
	mock.Mock
}

func (m *accountsMock) Me(ctx context.Context) (domain.User, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.User), args.Error(1)
}

type twitchUsersMock struct {
	mock.Mock
}

func (m *twitchUsersMock) User(ctx context.Context, token string) (domain.TwitchProfile, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(domain.TwitchProfile), args.Error(1)
}

func (m *twitchUsersMock) IsFollower(ctx context.Context, token, userID string) (bool, error) {
	args := m.Called(ctx, token, userID)
	return args.Bool(0), args.Error(1)
}

func (m *twitchUsersMock) IsSubscriber(ctx context.Context, token, userID string) (bool, error) {
	args := m.Called(ctx, token, userID)
	return args.Bool(0), args.Error(1)
}

var moderator = domain.User{ID: 4, DisplayName: "caliebre", Role: domain.RoleModerator}

var profile = domain.TwitchProfile{ID: "52341091", Login: "caliebre", DisplayName: "Caliebre"}

func TestViewerLoadsAccountAndTwitchStatus(t *testing.T) {
	store := new(tokenStoreMock)
	accounts := new(accountsMock)
	twitch := new(twitchUsersMock)
	svc := session.NewService(store, new(validatorMock), feedcache.New(1), nil).
		WithAccounts(accounts, twitch, time.Hour)

	store.On("Token", mock.Anything).Return("tok", nil).Once()
	accounts.On("Me", mock.Anything).Return(moderator, nil).Once()
	twitch.On("User", mock.Anything, "tok").Return(profile, nil).Once()
	twitch.On("IsFollower", mock.Anything, "tok", "52341091").Return(true, nil).Once()
	twitch.On("IsSubscriber", mock.Anything, "tok", "52341091").Return(false, errors.New("helix down")).Once()

	v, err := svc.Viewer(context.Background())
	require.NoError(t, err)
	assert.True(t, v.SignedIn())
	assert.True(t, v.User.CanModerate())
	assert.Equal(t, "Caliebre", v.Name())
	assert.True(t, v.Follower)
	assert.False(t, v.Subscriber)

	// served from memory within the TTL
	again, err := svc.Viewer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, v, again)
	accounts.AssertNumberOfCalls(t, "Me", 1)
}

func TestViewerAnonymous(t *testing.T) {
	store := new(tokenStoreMock)
	accounts := new(accountsMock)
	svc := session.NewService(store, new(validatorMock), feedcache.New(1), nil).
		WithAccounts(accounts, nil, 0)

	store.On("Token", mock.Anything).Return("", domain.ErrNotFound).Once()
	v, err := svc.Viewer(context.Background())
	require.NoError(t, err)
	assert.False(t, v.SignedIn())
	accounts.AssertNotCalled(t, "Me", mock.Anything)
}

func TestViewerRevalidatesInBackground(t *testing.T) {
	store := new(tokenStoreMock)
	accounts := new(accountsMock)
	svc := session.NewService(store, new(validatorMock), feedcache.New(1), nil).
		WithAccounts(accounts, nil, time.Nanosecond)

	promoted := moderator
	promoted.Role = domain.RoleAdmin
	store.On("Token", mock.Anything).Return("tok", nil)
	accounts.On("Me", mock.Anything).Return(moderator, nil).Once()
	accounts.On("Me", mock.Anything).Return(promoted, nil)

	v, err := svc.Viewer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.RoleModerator, v.User.Role)

	// the stale copy is served, the refresh lands later
	v, err = svc.Viewer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.RoleModerator, v.User.Role)

	assert.Eventually(t, func() bool {
		v, err := svc.Viewer(context.Background())
		return err == nil && v.User.Role == domain.RoleAdmin
	}, 2*time.Second, 10*time.Millisecond)
}

func TestViewerUnauthorizedLogsOut(t *testing.T) {
	store := new(tokenStoreMock)
	accounts := new(accountsMock)
	reloads := 0
	svc := session.NewService(store, new(validatorMock), feedcache.New(1), func() { reloads++ }).
		WithAccounts(accounts, nil, time.Hour)

	store.On("Token", mock.Anything).Return("tok", nil).Once()
	store.On("Clear", mock.Anything).Return(nil).Once()
	accounts.On("Me", mock.Anything).Return(domain.User{}, domain.ErrUnauthorized).Once()

	_, err := svc.Viewer(context.Background())
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, 1, reloads)

	// nothing was cached, the next call sees the cleared store
	store.On("Token", mock.Anything).Return("", domain.ErrNotFound).Once()
	v, err := svc.Viewer(context.Background())
	require.NoError(t, err)
	assert.False(t, v.SignedIn())
	store.AssertExpectations(t)
}

func TestLogoutForgetsViewer(t *testing.T) {
	store := new(tokenStoreMock)
	accounts := new(accountsMock)
	svc := session.NewService(store, new(validatorMock), feedcache.New(1), nil).
		WithAccounts(accounts, nil, time.Hour)

	store.On("Token", mock.Anything).Return("tok", nil).Once()
	accounts.On("Me", mock.Anything).Return(moderator, nil).Once()
	v, err := svc.Viewer(context.Background())
	require.NoError(t, err)
	require.True(t, v.SignedIn())

	store.On("Clear", mock.Anything).Return(nil).Once()
	require.NoError(t, svc.Logout(context.Background()))

	store.On("Token", mock.Anything).Return("", domain.ErrNotFound).Once()
	v, err = svc.Viewer(context.Background())
	require.NoError(t, err)
	assert.False(t, v.SignedIn())
}

func TestViewerWithoutAccounts(t *testing.T) {
	v, err := session.NewService(new(tokenStoreMock), new(validatorMock), feedcache.New(1), nil).Viewer(context.Background())
	require.NoError(t, err)
	assert.False(t, v.SignedIn())
}
