package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Guyuepp/clip-board/domain"
)

// DefaultTwitchHelixURL is the base of the Twitch Helix API
const DefaultTwitchHelixURL = "https://api.twitch.tv/helix"

// TwitchHelix reads the token holder's Twitch account and its relation to one broadcaster
type TwitchHelix struct {
	baseURL       string
	clientID      string
	broadcasterID string
	client        *http.Client
}

var _ domain.TwitchUsers = (*TwitchHelix)(nil)

// NewTwitchHelix creates a Helix client. Follower and subscriber checks report false
// when broadcasterID is empty.
func NewTwitchHelix(baseURL, clientID, broadcasterID string, httpClient *http.Client) *TwitchHelix {
	if baseURL == "" {
		baseURL = DefaultTwitchHelixURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &TwitchHelix{
		baseURL:       strings.TrimRight(baseURL, "/"),
		clientID:      clientID,
		broadcasterID: broadcasterID,
		client:        httpClient,
	}
}

type helixList[T any] struct {
	Data []T `json:"data"`
}

type helixChannel struct {
	BroadcasterID string `json:"broadcaster_id"`
}

// User returns the Twitch account owning token.
func (h *TwitchHelix) User(ctx context.Context, token string) (domain.TwitchProfile, error) {
	var res helixList[domain.TwitchProfile]
	found, err := h.get(ctx, token, "/users", nil, &res)
	if err != nil {
		return domain.TwitchProfile{}, err
	}
	if !found || len(res.Data) == 0 {
		return domain.TwitchProfile{}, domain.ErrNotFound
	}
	return res.Data[0], nil
}

// IsFollower reports whether userID follows the broadcaster.
func (h *TwitchHelix) IsFollower(ctx context.Context, token, userID string) (bool, error) {
	if h.broadcasterID == "" || userID == "" {
		return false, nil
	}
	q := url.Values{"user_id": {userID}, "broadcaster_id": {h.broadcasterID}}
	var res helixList[helixChannel]
	found, err := h.get(ctx, token, "/channels/followed", q, &res)
	if err != nil {
		return false, err
	}
	return found && len(res.Data) > 0, nil
}

// IsSubscriber reports whether userID is subscribed to the broadcaster. Helix answers
// 404 for a user without subscription.
func (h *TwitchHelix) IsSubscriber(ctx context.Context, token, userID string) (bool, error) {
	if h.broadcasterID == "" || userID == "" {
		return false, nil
	}
	q := url.Values{"user_id": {userID}, "broadcaster_id": {h.broadcasterID}}
	var res helixList[helixChannel]
	found, err := h.get(ctx, token, "/subscriptions/user", q, &res)
	if err != nil {
		return false, err
	}
	return found && len(res.Data) > 0, nil
}

// get decodes a 200 answer into out and reports false for 404.
func (h *TwitchHelix) get(ctx context.Context, token, path string, q url.Values, out any) (bool, error) {
	target := h.baseURL + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Client-Id", h.clientID)

	resp, err := h.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("sending request to Twitch: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return false, nil
	case http.StatusUnauthorized:
		return false, &APIError{StatusCode: resp.StatusCode, Msgs: []string{"Twitch rejected the access token"}}
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<12))
		return false, fmt.Errorf("Twitch helix error (status %d): %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("decoding response: %w", err)
	}
	return true, nil
}
