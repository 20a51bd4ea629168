package remote_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Guyuepp/clip-board/domain"
	"github.com/Guyuepp/clip-board/internal/remote"
)

func twitchServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("Authorization") {
		case "OAuth good":
			_, _ = io.WriteString(w, `{"client_id":"cid","login":"caliebre","scopes":[],"user_id":"52341091","expires_in":3600}`)
		case "OAuth broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"status":401,"message":"invalid access token"}`)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTwitchValidate(t *testing.T) {
	v := remote.NewTwitchValidator(twitchServer(t).URL, nil)
	ctx := context.Background()

	ok, err := v.Validate(ctx, "good")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = v.Validate(ctx, "expired")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = v.Validate(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = v.Validate(ctx, "broken")
	assert.Error(t, err)
}

func TestTwitchIdentify(t *testing.T) {
	v := remote.NewTwitchValidator(twitchServer(t).URL, nil)

	id, err := v.Identify(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "52341091", id.TwitchID)
	assert.Equal(t, "caliebre", id.Login)
	assert.Equal(t, time.Hour, id.ExpiresIn)

	_, err = v.Identify(context.Background(), "expired")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
