package user

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/Guyuepp/clip-board/domain"
)

const DefaultIdentityTTL = 5 * time.Minute

type Service struct {
	userRepo   domain.UserRepository
	validator  domain.TokenValidator
	identities domain.IdentityCache
	ttl        time.Duration
	sf         singleflight.Group
}

var _ domain.UserUsecase = (*Service)(nil)

// NewService maps Twitch tokens to local users. identities may be nil.
func NewService(u domain.UserRepository, v domain.TokenValidator, identities domain.IdentityCache, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultIdentityTTL
	}
	return &Service{
		userRepo:   u,
		validator:  v,
		identities: identities,
		ttl:        ttl,
	}
}

func (s *Service) Authenticate(ctx context.Context, token string) (domain.User, error) {
	if token == "" {
		return domain.User{}, domain.ErrUnauthorized
	}

	if s.identities != nil {
		u, err := s.identities.Get(ctx, token)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, domain.ErrCacheMiss) {
			logrus.Warnf("identity cache get error: %v", err)
		}
	}

	// concurrent requests carrying the same token share one Twitch round trip
	v, err, _ := s.sf.Do(token, func() (any, error) {
		return s.identify(ctx, token)
	})
	if err != nil {
		return domain.User{}, err
	}
	return v.(domain.User), nil
}

func (s *Service) identify(ctx context.Context, token string) (domain.User, error) {
	id, err := s.validator.Identify(ctx, token)
	if err != nil {
		return domain.User{}, err
	}

	u, err := s.resolve(ctx, id)
	if err != nil {
		return domain.User{}, err
	}

	if s.identities != nil {
		ttl := s.ttl
		if id.ExpiresIn > 0 && id.ExpiresIn < ttl {
			ttl = id.ExpiresIn
		}
		if err := s.identities.Set(ctx, token, u, ttl); err != nil {
			logrus.Warnf("failed to set identity cache: %v", err)
		}
	}
	return u, nil
}

// resolve finds the local account of a Twitch user, creating it as a plain USER on first sight.
func (s *Service) resolve(ctx context.Context, id domain.TokenIdentity) (domain.User, error) {
	u, err := s.userRepo.GetByTwitchID(ctx, id.TwitchID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		logrus.Errorf("failed to get user by twitch id %s: %v", id.TwitchID, err)
		return domain.User{}, err
	}

	u = domain.User{
		TwitchID:    id.TwitchID,
		DisplayName: id.Login,
		Role:        domain.RoleUser,
	}
	err = s.userRepo.Insert(ctx, &u)
	if errors.Is(err, domain.ErrConflict) {
		// another request created it first
		return s.userRepo.GetByTwitchID(ctx, id.TwitchID)
	}
	if err != nil {
		logrus.Errorf("failed to insert user %s: %v", id.TwitchID, err)
		return domain.User{}, err
	}
	return u, nil
}
