package domain

import "context"

// TwitchProfile is the public Twitch account behind an access token
type TwitchProfile struct {
	ID              string `json:"id"`
	Login           string `json:"login"`
	DisplayName     string `json:"display_name"`
	ProfileImageURL string `json:"profile_image_url"`
}

// Viewer is the signed in user as the client shows it. The zero value is an anonymous viewer.
type Viewer struct {
	User       User
	Twitch     TwitchProfile
	Follower   bool // follows the broadcaster
	Subscriber bool // subscribed to the broadcaster
}

func (v Viewer) SignedIn() bool {
	return v.User.ID != 0
}

// Name is the Twitch display name, falling back to the board account name.
func (v Viewer) Name() string {
	if v.Twitch.DisplayName != "" {
		return v.Twitch.DisplayName
	}
	return v.User.DisplayName
}

// AccountClient loads the board account of the token holder.
type AccountClient interface {
	// Me returns ErrUnauthorized when the server rejects the token.
	Me(ctx context.Context) (User, error)
}

// TwitchUsers reads the token holder's Twitch account and its relation to the broadcaster.
type TwitchUsers interface {
	User(ctx context.Context, token string) (TwitchProfile, error)
	IsFollower(ctx context.Context, token, userID string) (bool, error)
	IsSubscriber(ctx context.Context, token, userID string) (bool, error)
}
