package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Guyuepp/clip-board/domain"
)

// DefaultTwitchValidateURL is the Twitch OAuth token validation endpoint
const DefaultTwitchValidateURL = "https://id.twitch.tv/oauth2/validate"

type twitchValidation struct {
	ClientID  string   `json:"client_id"`
	Login     string   `json:"login"`
	Scopes    []string `json:"scopes"`
	UserID    string   `json:"user_id"`
	ExpiresIn int64    `json:"expires_in"`
}

// TwitchValidator checks access tokens against Twitch
type TwitchValidator struct {
	validateURL string
	client      *http.Client
}

var _ domain.TokenValidator = (*TwitchValidator)(nil)

func NewTwitchValidator(validateURL string, httpClient *http.Client) *TwitchValidator {
	if validateURL == "" {
		validateURL = DefaultTwitchValidateURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &TwitchValidator{
		validateURL: validateURL,
		client:      httpClient,
	}
}

// Validate reports whether Twitch accepts the token
func (v *TwitchValidator) Validate(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	_, ok, err := v.validate(ctx, token)
	return ok, err
}

// Identify returns the Twitch account owning the token
func (v *TwitchValidator) Identify(ctx context.Context, token string) (domain.TokenIdentity, error) {
	if token == "" {
		return domain.TokenIdentity{}, domain.ErrUnauthorized
	}
	res, ok, err := v.validate(ctx, token)
	if err != nil {
		return domain.TokenIdentity{}, err
	}
	if !ok || res.UserID == "" {
		return domain.TokenIdentity{}, domain.ErrUnauthorized
	}
	return domain.TokenIdentity{
		TwitchID:  res.UserID,
		Login:     res.Login,
		ExpiresIn: time.Duration(res.ExpiresIn) * time.Second,
	}, nil
}

func (v *TwitchValidator) validate(ctx context.Context, token string) (twitchValidation, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.validateURL, nil)
	if err != nil {
		return twitchValidation{}, false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "OAuth "+token)

	resp, err := v.client.Do(req)
	if err != nil {
		return twitchValidation{}, false, fmt.Errorf("sending request to Twitch: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return twitchValidation{}, false, nil
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<12))
		return twitchValidation{}, false, fmt.Errorf("Twitch validate error (status %d): %s", resp.StatusCode, string(body))
	}

	var res twitchValidation
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return twitchValidation{}, false, fmt.Errorf("decoding response: %w", err)
	}
	return res, true, nil
}
