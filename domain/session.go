package domain

import (
	"context"
	"time"
)

// TokenTTL is how long the access token is persisted on the device
const TokenTTL = 365 * 24 * time.Hour

// UIPreferences is the persisted client UI state
type UIPreferences struct {
	ColorScheme string     `json:"colorScheme,omitempty"`
	TitleQuery  string     `json:"titleQuery,omitempty"`
	Categories  []Category `json:"categories,omitempty"`
	Liked       bool       `json:"liked,omitempty"`
	Saved       bool       `json:"saved,omitempty"`
}

// TokenStore persists the OAuth access token and the UI preferences across sessions.
type TokenStore interface {
	SaveToken(ctx context.Context, token string) error
	// Token returns ErrNotFound if no token is stored.
	Token(ctx context.Context) (string, error)
	SavePreferences(ctx context.Context, prefs UIPreferences) error
	// Preferences returns zero preferences when nothing is stored.
	Preferences(ctx context.Context) (UIPreferences, error)
	// Clear removes both the token and the preferences.
	Clear(ctx context.Context) error
}
