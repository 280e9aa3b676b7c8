package oauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/mindkeep/internal/core/domain"
)

type tokenServer struct {
	*httptest.Server
	lastForm url.Values
}

func newTokenServer(t *testing.T, status int, body string) *tokenServer {
	t.Helper()
	ts := &tokenServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		ts.lastForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newRefresher(t *testing.T, srv *httptest.Server) *GoogleRefresher {
	t.Helper()
	r, err := NewGoogleRefresher(GoogleConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		Endpoint: &oauth2.Endpoint{
			AuthURL:   srv.URL + "/auth",
			TokenURL:  srv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	})
	require.NoError(t, err)
	return r
}

func TestNewGoogleRefresher_RequiresClientID(t *testing.T) {
	_, err := NewGoogleRefresher(GoogleConfig{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNewGoogleRefresher_DefaultScope(t *testing.T) {
	r, err := NewGoogleRefresher(GoogleConfig{ClientID: "c"})
	require.NoError(t, err)
	assert.Equal(t, []string{GmailReadonlyScope}, r.cfg.Scopes)
}

func TestAuthCodeURL_CarriesPKCEAndState(t *testing.T) {
	srv := newTokenServer(t, http.StatusOK, `{}`)
	r := newRefresher(t, srv.Server)

	raw := r.AuthCodeURL(domain.AuthorizationRequest{
		State:        "state-1",
		CodeVerifier: "verifier-verifier-verifier-verifier-verifier-x",
		RedirectURL:  "http://127.0.0.1:8765/callback",
	})

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "state-1", q.Get("state"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.NotEmpty(t, q.Get("code_challenge"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "http://127.0.0.1:8765/callback", q.Get("redirect_uri"))
	assert.Equal(t, GmailReadonlyScope, q.Get("scope"))
}

func TestExchange_SendsVerifier(t *testing.T) {
	srv := newTokenServer(t, http.StatusOK,
		`{"access_token":"at","refresh_token":"rt","token_type":"Bearer","expires_in":3600}`)
	r := newRefresher(t, srv.Server)

	creds, err := r.Exchange(context.Background(), "code-1", domain.AuthorizationRequest{
		CodeVerifier: "v1",
		RedirectURL:  "http://127.0.0.1/callback",
	})

	require.NoError(t, err)
	assert.Equal(t, "at", creds.AccessToken)
	assert.Equal(t, "rt", creds.RefreshToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), creds.Expiry, time.Minute)
	assert.Equal(t, "authorization_code", srv.lastForm.Get("grant_type"))
	assert.Equal(t, "code-1", srv.lastForm.Get("code"))
	assert.Equal(t, "v1", srv.lastForm.Get("code_verifier"))
}

func TestExchange_RejectedCodeRequiresAuth(t *testing.T) {
	srv := newTokenServer(t, http.StatusBadRequest, `{"error":"invalid_grant","error_description":"Bad code"}`)
	r := newRefresher(t, srv.Server)

	_, err := r.Exchange(context.Background(), "bad", domain.AuthorizationRequest{})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAuthRequired)
	assert.Contains(t, err.Error(), "invalid_grant")
}

func TestRefresh_Success(t *testing.T) {
	srv := newTokenServer(t, http.StatusOK, `{"access_token":"new","expires_in":60}`)
	r := newRefresher(t, srv.Server)

	creds, err := r.Refresh(context.Background(), "rt")

	require.NoError(t, err)
	assert.Equal(t, "new", creds.AccessToken)
	assert.Equal(t, "Bearer", creds.TokenType)
	assert.Equal(t, "refresh_token", srv.lastForm.Get("grant_type"))
	assert.Equal(t, "rt", srv.lastForm.Get("refresh_token"))
}

func TestRefresh_Failure(t *testing.T) {
	srv := newTokenServer(t, http.StatusBadRequest, `{"error":"invalid_grant"}`)
	r := newRefresher(t, srv.Server)

	_, err := r.Refresh(context.Background(), "revoked")

	assert.ErrorIs(t, err, domain.ErrTokenRefreshFailed)
	assert.Contains(t, err.Error(), "invalid_grant")
}

func TestRefresh_EmptyToken(t *testing.T) {
	r, err := NewGoogleRefresher(GoogleConfig{ClientID: "c"})
	require.NoError(t, err)

	_, err = r.Refresh(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrTokenRefreshFailed)
}
