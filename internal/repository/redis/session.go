package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Guyuepp/clip-board/domain"
)

const (
	KeyAccessToken   = "clipboard:%s:twitch_access_token"
	KeyUIPreferences = "clipboard:%s:ui_preferences"
)

// tokenStore keeps the persisted client state of one device under fixed keys
type tokenStore struct {
	client *redis.Client
	device string
}

var _ domain.TokenStore = (*tokenStore)(nil)

func NewTokenStore(client *redis.Client, device string) *tokenStore {
	return &tokenStore{
		client: client,
		device: device,
	}
}

func (s *tokenStore) tokenKey() string {
	return fmt.Sprintf(KeyAccessToken, s.device)
}

func (s *tokenStore) preferencesKey() string {
	return fmt.Sprintf(KeyUIPreferences, s.device)
}

func (s *tokenStore) SaveToken(ctx context.Context, token string) error {
	return s.client.Set(ctx, s.tokenKey(), token, domain.TokenTTL).Err()
}

func (s *tokenStore) Token(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, s.tokenKey()).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrNotFound
	} else if err != nil {
		return "", err
	}
	return token, nil
}

func (s *tokenStore) SavePreferences(ctx context.Context, prefs domain.UIPreferences) error {
	data, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.preferencesKey(), string(data), 0).Err()
}

func (s *tokenStore) Preferences(ctx context.Context) (res domain.UIPreferences, err error) {
	data, err := s.client.Get(ctx, s.preferencesKey()).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.UIPreferences{}, nil
	} else if err != nil {
		return domain.UIPreferences{}, err
	}
	if err = json.Unmarshal(data, &res); err != nil {
		return domain.UIPreferences{}, err
	}
	return
}

func (s *tokenStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.tokenKey(), s.preferencesKey()).Err()
}
