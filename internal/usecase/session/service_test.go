package session_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Guyuepp/clip-board/domain"
	"github.com/Guyuepp/clip-board/internal/feedcache"
	"github.com/Guyuepp/clip-board/internal/usecase/session"
)

type tokenStoreMock struct {
	mock.Mock
}

func (m *tokenStoreMock) SaveToken(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *tokenStoreMock) Token(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *tokenStoreMock) SavePreferences(ctx context.Context, prefs domain.UIPreferences) error {
	return m.Called(ctx, prefs).Error(0)
}

func (m *tokenStoreMock) Preferences(ctx context.Context) (domain.UIPreferences, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.UIPreferences), args.Error(1)
}

func (m *tokenStoreMock) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type validatorMock struct {
	mock.Mock
}

func (m *validatorMock) Validate(ctx context.Context, token string) (bool, error) {
	args := m.Called(ctx, token)
	return args.Bool(0), args.Error(1)
}

func (m *validatorMock) Identify(ctx context.Context, token string) (domain.TokenIdentity, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(domain.TokenIdentity), args.Error(1)
}

func filledCache(t *testing.T) *feedcache.Cache {
	c := feedcache.New(4)
	require.True(t, c.AppendPage(domain.QueryParams{}, domain.Page{Posts: []domain.Post{{ID: 1}}}))
	return c
}

func TestLogin(t *testing.T) {
	store := new(tokenStoreMock)
	validator := new(validatorMock)
	cache := filledCache(t)
	svc := session.NewService(store, validator, cache, nil)

	validator.On("Validate", mock.Anything, "good").Return(true, nil).Once()
	validator.On("Validate", mock.Anything, "bad").Return(false, nil).Once()
	store.On("SaveToken", mock.Anything, "good").Return(nil).Once()

	require.NoError(t, svc.Login(context.Background(), "good"))
	assert.Zero(t, cache.Len())
	assert.ErrorIs(t, svc.Login(context.Background(), "bad"), domain.ErrUnauthorized)

	store.AssertExpectations(t)
	store.AssertNotCalled(t, "SaveToken", mock.Anything, "bad")
}

func TestHandleErrorLogsOut(t *testing.T) {
	store := new(tokenStoreMock)
	validator := new(validatorMock)
	cache := filledCache(t)
	reloads := 0
	svc := session.NewService(store, validator, cache, func() { reloads++ })

	assert.False(t, svc.HandleError(context.Background(), errors.New("timeout")))
	assert.Equal(t, 1, cache.Len())

	store.On("Clear", mock.Anything).Return(nil).Once()
	assert.True(t, svc.HandleError(context.Background(), domain.ErrUnauthorized))
	assert.Zero(t, cache.Len())
	assert.Equal(t, 1, reloads)
	store.AssertExpectations(t)
}

func TestCheck(t *testing.T) {
	t.Run("no token", func(t *testing.T) {
		store := new(tokenStoreMock)
		svc := session.NewService(store, new(validatorMock), feedcache.New(1), nil)
		store.On("Token", mock.Anything).Return("", domain.ErrNotFound).Once()

		ok, err := svc.Check(context.Background())
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("expired token logs out", func(t *testing.T) {
		store := new(tokenStoreMock)
		validator := new(validatorMock)
		cache := filledCache(t)
		svc := session.NewService(store, validator, cache, nil)
		store.On("Token", mock.Anything).Return("old", nil).Once()
		store.On("Clear", mock.Anything).Return(nil).Once()
		validator.On("Validate", mock.Anything, "old").Return(false, nil).Once()

		ok, err := svc.Check(context.Background())
		assert.NoError(t, err)
		assert.False(t, ok)
		assert.Zero(t, cache.Len())
		store.AssertExpectations(t)
	})

	t.Run("valid token", func(t *testing.T) {
		store := new(tokenStoreMock)
		validator := new(validatorMock)
		svc := session.NewService(store, validator, feedcache.New(1), nil)
		store.On("Token", mock.Anything).Return("tok", nil).Once()
		validator.On("Validate", mock.Anything, "tok").Return(true, nil).Once()

		ok, err := svc.Check(context.Background())
		assert.NoError(t, err)
		assert.True(t, ok)
	})
}
