package session

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Guyuepp/clip-board/domain"
)

// Service owns the login state of the client
type Service struct {
	store     domain.TokenStore
	validator domain.TokenValidator
	cache     domain.FeedCache
	reload    func()
	viewers   *viewerState

	mu sync.Mutex
}

// NewService will create a new session service. reload runs after every logout and may be nil.
func NewService(store domain.TokenStore, validator domain.TokenValidator, cache domain.FeedCache, reload func()) *Service {
	return &Service{
		store:     store,
		validator: validator,
		cache:     cache,
		reload:    reload,
	}
}

// Login validates token with the OAuth provider and persists it.
func (s *Service) Login(ctx context.Context, token string) error {
	ok, err := s.validator.Validate(ctx, token)
	if err != nil {
		logrus.Errorf("failed to validate token: %v", err)
		return err
	}
	if !ok {
		return domain.ErrUnauthorized
	}
	if err := s.store.SaveToken(ctx, token); err != nil {
		logrus.Errorf("failed to SaveToken: %v", err)
		return err
	}
	// feeds are viewer-relative
	s.cache.Invalidate(nil)
	s.forgetViewer()
	return nil
}

// Token returns the persisted access token.
func (s *Service) Token(ctx context.Context) (string, error) {
	return s.store.Token(ctx)
}

// Check validates the persisted token and logs out when the provider rejects it.
// It returns false when no valid session exists.
func (s *Service) Check(ctx context.Context) (bool, error) {
	token, err := s.store.Token(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	} else if err != nil {
		return false, err
	}

	ok, err := s.validator.Validate(ctx, token)
	if err != nil {
		// provider unreachable, keep the session
		logrus.Warnf("failed to validate stored token: %v", err)
		return true, err
	}
	if !ok {
		return false, s.Logout(ctx)
	}
	return true, nil
}

// Logout clears the persisted token and preferences, drops every cached feed and reloads.
func (s *Service) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.store.Clear(ctx)
	if err != nil {
		logrus.Errorf("failed to clear token store: %v", err)
	}
	s.cache.Invalidate(nil)
	s.forgetViewer()
	if s.reload != nil {
		s.reload()
	}
	return err
}

// HandleError runs the logout flow for authorization failures. It reports whether err
// was handled.
func (s *Service) HandleError(ctx context.Context, err error) bool {
	if !errors.Is(err, domain.ErrUnauthorized) {
		return false
	}
	logrus.Warnf("authorization failed, logging out: %v", err)
	_ = s.Logout(ctx)
	return true
}

func (s *Service) Preferences(ctx context.Context) (domain.UIPreferences, error) {
	return s.store.Preferences(ctx)
}

func (s *Service) SavePreferences(ctx context.Context, prefs domain.UIPreferences) error {
	return s.store.SavePreferences(ctx, prefs)
}
