package domain

import (
	"context"
	"time"
)

// Role is the authorization level of a user
type Role string

const (
	RoleUser      Role = "USER"
	RoleModerator Role = "MODERATOR"
	RoleAdmin     Role = "ADMIN"
)

var roleRank = map[Role]int{
	RoleUser:      1,
	RoleModerator: 2,
	RoleAdmin:     3,
}

// AtLeast reports whether r grants every permission of min.
func (r Role) AtLeast(min Role) bool {
	return roleRank[r] >= roleRank[min] && roleRank[r] > 0
}

// User represents a user entity in the system.
// Users are identified by their Twitch account.
type User struct {
	ID          int64     `json:"id"`          // Unique identifier
	TwitchID    string    `json:"twitchId"`    // Twitch user id
	DisplayName string    `json:"displayName"` // Display name
	Role        Role      `json:"role"`        // Authorization level
	CreatedAt   time.Time `json:"createdAt"`   // Account creation timestamp
}

// CanModerate reports whether the user may edit categories and approve posts.
func (u User) CanModerate() bool {
	return u.Role.AtLeast(RoleModerator)
}

// CanDelete reports whether the user may delete p.
func (u User) CanDelete(p Post) bool {
	return u.ID != 0 && (p.User.ID == u.ID || u.CanModerate())
}

// UserRepository defines the contract for user data persistence.
type UserRepository interface {
	// GetByID retrieves a user by their ID.
	// Returns ErrNotFound if the user doesn't exist.
	GetByID(ctx context.Context, id int64) (User, error)

	// GetByTwitchID retrieves a user by their Twitch id.
	// Returns ErrNotFound if the user doesn't exist.
	GetByTwitchID(ctx context.Context, twitchID string) (User, error)

	// Insert creates a new user account.
	// Backfills the ID in the provided User object upon success.
	Insert(ctx context.Context, u *User) error

	GetByIDs(ctx context.Context, userIDs []int64) ([]User, error)
}

// TokenIdentity is what the OAuth provider reports for a valid token
type TokenIdentity struct {
	TwitchID  string
	Login     string
	ExpiresIn time.Duration
}

// TokenValidator presents a bearer token to the OAuth provider.
type TokenValidator interface {
	// Validate reports whether the token is currently valid.
	Validate(ctx context.Context, token string) (bool, error)

	// Identify returns the owner of a valid token.
	// Returns ErrUnauthorized if the token is not valid.
	Identify(ctx context.Context, token string) (TokenIdentity, error)
}

// UserUsecase resolves the caller of a request.
type UserUsecase interface {
	// Authenticate validates token and returns the local user owning it, creating the
	// account on first sight.
	// Returns ErrUnauthorized if the token is not valid.
	Authenticate(ctx context.Context, token string) (User, error)
}

// IdentityCache remembers which local user owns a token.
type IdentityCache interface {
	// Get returns ErrCacheMiss when nothing is cached for token.
	Get(ctx context.Context, token string) (User, error)
	Set(ctx context.Context, token string, u User, ttl time.Duration) error
}
