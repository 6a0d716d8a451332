package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ons-backend/internal/domain"
)

func newTestWorkOS(tokenURL string) *WorkOS {
	return NewWorkOS(Config{
		ClientID:     "client_123",
		APIKey:       "sk_test",
		RedirectURI:  "http://localhost:3001/api/auth/callback",
		AuthorizeURL: "https://auth.example.com/user_management/authorize",
		TokenURL:     tokenURL,
	})
}

func TestAuthorizationURL(t *testing.T) {
	w := newTestWorkOS("https://auth.example.com/token")

	raw, err := w.AuthorizationURL("google", "state-1")
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "GoogleOAuth", q.Get("provider"))
	assert.Equal(t, "client_123", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "state-1", q.Get("state"))
	assert.Equal(t, "http://localhost:3001/api/auth/callback", q.Get("redirect_uri"))

	_, err = w.AuthorizationURL("myspace", "s")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestExchange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		assert.Equal(t, "client_123", r.PostForm.Get("client_id"))
		assert.Equal(t, "sk_test", r.PostForm.Get("client_secret"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "remote-access",
			"refresh_token": "remote-refresh",
			"user": map[string]any{
				"id":                  "user_01",
				"email":               "jane@example.com",
				"first_name":          "Jane",
				"last_name":           "Doe",
				"email_verified":      true,
				"profile_picture_url": "https://img.example.com/jane.png",
			},
		})
	}))
	defer srv.Close()

	p, err := newTestWorkOS(srv.URL).Exchange(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", p.Email)
	assert.Equal(t, "Jane", p.FirstName)
	assert.Equal(t, "Doe", p.LastName)
	assert.Equal(t, "https://img.example.com/jane.png", p.ProfilePictureURL)
}

func TestExchangeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	_, err := newTestWorkOS(srv.URL).Exchange(context.Background(), "bad")
	assert.Error(t, err)
}

func TestNotConfigured(t *testing.T) {
	w := NewWorkOS(Config{})
	_, err := w.AuthorizationURL("google", "s")
	assert.ErrorIs(t, err, domain.ErrIdentityUnavailable)
	_, err = w.Exchange(context.Background(), "c")
	assert.ErrorIs(t, err, domain.ErrIdentityUnavailable)
}
