package handler

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ons-backend/internal/domain"
	"ons-backend/internal/service"
)

func cookie(r *reply, name string) string {
	for _, c := range r.Header.Values("Set-Cookie") {
		if strings.HasPrefix(c, name+"=") {
			return c
		}
	}
	return ""
}

func TestRegisterLoginFlow(t *testing.T) {
	s := newTestServer(t)
	admin := s.seedUser("admin@example.com", domain.RoleAdmin, true)

	r := s.call(http.MethodPost, "/api/auth/register", map[string]any{
		"email": "New@Example.com", "password": "abc12345", "name": "Newbie", "phone": "040 123 4567",
	}, "")
	require.Equal(t, http.StatusCreated, r.Status, r.Raw)
	var reg struct {
		User domain.User `json:"user"`
	}
	r.into(t, &reg)
	assert.Equal(t, "new@example.com", reg.User.Email)
	assert.False(t, reg.User.IsActive)

	r = s.call(http.MethodPost, "/api/auth/register", map[string]any{
		"email": "new@example.com", "password": "abc12345", "name": "Again",
	}, "")
	assert.Equal(t, http.StatusConflict, r.Status)

	login := map[string]any{"email": "new@example.com", "password": "abc12345"}
	r = s.call(http.MethodPost, "/api/auth/login", login, "")
	assert.Equal(t, http.StatusUnauthorized, r.Status)
	assert.Equal(t, "ACCOUNT_DEACTIVATED", r.code())

	r = s.call(http.MethodPut, "/admin/v1/users/"+reg.User.ID+"/activate", map[string]any{"isActive": true}, s.token(admin))
	require.Equal(t, http.StatusOK, r.Status, r.Raw)

	r = s.call(http.MethodPost, "/api/auth/login", login, "")
	require.Equal(t, http.StatusOK, r.Status, r.Raw)
	assert.Equal(t, "Login successful", r.Message)
	var out authOut
	r.into(t, &out)
	assert.NotEmpty(t, out.AccessToken)
	assert.Equal(t, int64(900), out.ExpiresIn)
	assert.Contains(t, cookie(r, "access_token"), "Max-Age=86400")
	assert.Contains(t, cookie(r, "access_token"), "HttpOnly")
	assert.Contains(t, cookie(r, "refresh_token"), "Max-Age=2592000")

	login["rememberMe"] = true
	r = s.call(http.MethodPost, "/api/auth/login", login, "")
	assert.Contains(t, cookie(r, "access_token"), "Max-Age=2592000")

	r = s.call(http.MethodGet, "/api/auth/profile", nil, out.AccessToken)
	require.Equal(t, http.StatusOK, r.Status)
	var me domain.User
	r.into(t, &me)
	assert.Equal(t, "Newbie", me.Name)
	require.NotNil(t, me.Phone)
	assert.Equal(t, "+358401234567", *me.Phone)

	r = s.call(http.MethodPut, "/api/auth/profile", map[string]any{"name": "Renamed", "phone": ""}, out.AccessToken)
	require.Equal(t, http.StatusOK, r.Status, r.Raw)
	r.into(t, &me)
	assert.Equal(t, "Renamed", me.Name)
	assert.Nil(t, me.Phone)

	r = s.call(http.MethodPut, "/api/auth/profile", map[string]any{"profileImage": "not a url"}, out.AccessToken)
	assert.Equal(t, http.StatusBadRequest, r.Status)
}

func TestLoginWrongPassword(t *testing.T) {
	s := newTestServer(t)
	s.seedUser("member@example.com", domain.RoleMember, true)

	r := s.call(http.MethodPost, "/api/auth/login", map[string]any{"email": "member@example.com", "password": "nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, r.Status)
	assert.Equal(t, "UNAUTHORIZED", r.code())

	r = s.call(http.MethodPost, "/api/auth/login", map[string]any{"email": "not-an-email"}, "")
	assert.Equal(t, http.StatusBadRequest, r.Status)
	assert.Equal(t, "VALIDATION_ERROR", r.code())
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t)
	r := s.call(http.MethodPost, "/api/auth/register", map[string]any{
		"email": "x@example.com", "password": "onlyletters", "name": "X",
	}, "")
	require.Equal(t, http.StatusBadRequest, r.Status)
	tags := map[string]string{}
	for _, d := range r.Error.Details {
		tags[d.Field] = d.Tag
	}
	assert.Equal(t, "password", tags["password"])
	assert.Equal(t, "min", tags["name"])
}

func TestRefresh(t *testing.T) {
	s := newTestServer(t)
	u := s.seedUser("member@example.com", domain.RoleMember, true)
	pair, err := s.jwt.IssuePair(u)
	require.NoError(t, err)

	r := s.call(http.MethodPost, "/api/auth/refresh", nil, "")
	assert.Equal(t, http.StatusUnauthorized, r.Status)
	assert.Equal(t, "REFRESH_TOKEN_REQUIRED", r.code())

	r = s.call(http.MethodPost, "/api/auth/refresh", map[string]any{"refreshToken": pair.RefreshToken}, "")
	require.Equal(t, http.StatusOK, r.Status, r.Raw)
	assert.NotEmpty(t, cookie(r, "access_token"))

	req := newRequest(http.MethodPost, "/api/auth/refresh")
	req.AddCookie(&http.Cookie{Name: refreshTokenCookie, Value: pair.RefreshToken})
	r = s.send(req, "")
	assert.Equal(t, http.StatusOK, r.Status)

	r = s.call(http.MethodPost, "/api/auth/refresh", map[string]any{"refreshToken": pair.AccessToken}, "")
	assert.Equal(t, http.StatusUnauthorized, r.Status)
	assert.Equal(t, "INVALID_TOKEN", r.code())
}

func TestLogoutClearsCookies(t *testing.T) {
	s := newTestServer(t)
	r := s.call(http.MethodPost, "/api/auth/logout", nil, "")
	require.Equal(t, http.StatusOK, r.Status)
	assert.Contains(t, cookie(r, "access_token"), "Max-Age=0")
	assert.Contains(t, cookie(r, "refresh_token"), "Max-Age=0")
}

func TestProfileRequiresToken(t *testing.T) {
	s := newTestServer(t)
	r := s.call(http.MethodGet, "/api/auth/profile", nil, "")
	assert.Equal(t, http.StatusUnauthorized, r.Status)
}

func TestOAuthLogin(t *testing.T) {
	s := newTestServer(t)

	r := s.call(http.MethodGet, "/api/auth/login/twitter", nil, "")
	assert.Equal(t, http.StatusBadRequest, r.Status)
	assert.Equal(t, "INVALID_PROVIDER", r.code())

	r = s.call(http.MethodGet, "/api/auth/login/google?redirect_uri="+url.QueryEscape(frontendURL+"/events"), nil, "")
	require.Equal(t, http.StatusOK, r.Status, r.Raw)
	var out struct {
		AuthURL  string `json:"authUrl"`
		Provider string `json:"provider"`
	}
	r.into(t, &out)
	assert.Equal(t, "google", out.Provider)
	u, err := url.Parse(out.AuthURL)
	require.NoError(t, err)
	st, err := service.DecodeOAuthState(u.Query().Get("state"))
	require.NoError(t, err)
	assert.Equal(t, frontendURL+"/events", st.RedirectURI)
}

func TestOAuthCallback(t *testing.T) {
	s := newTestServer(t)
	state := service.OAuthState{Provider: "google", RedirectURI: frontendURL + "/welcome"}.Encode()

	r := s.call(http.MethodGet, "/api/auth/callback?error=access_denied", nil, "")
	assert.Equal(t, http.StatusBadRequest, r.Status)
	assert.Equal(t, "OAUTH_ERROR", r.code())

	r = s.call(http.MethodGet, "/api/auth/callback?state="+state, nil, "")
	assert.Equal(t, http.StatusBadRequest, r.Status)
	assert.Equal(t, "MISSING_CODE", r.code())

	r = s.call(http.MethodGet, "/api/auth/callback?code=good&state="+state, nil, "")
	require.Equal(t, http.StatusFound, r.Status)
	assert.Equal(t, frontendURL+"/welcome?auth=success&new_user=true", r.Header.Get("Location"))
	assert.Contains(t, cookie(r, "access_token"), "Max-Age=604800")

	r = s.call(http.MethodGet, "/api/auth/callback?code=good&state="+state, nil, "")
	require.Equal(t, http.StatusFound, r.Status)
	assert.Equal(t, frontendURL+"/welcome?auth=success", r.Header.Get("Location"))

	evil := service.OAuthState{Provider: "google", RedirectURI: "https://evil.example.com/steal"}.Encode()
	r = s.call(http.MethodGet, "/api/auth/callback?code=good&state="+evil, nil, "")
	require.Equal(t, http.StatusFound, r.Status)
	assert.True(t, strings.HasPrefix(r.Header.Get("Location"), frontendURL+"?"), r.Header.Get("Location"))

	r = s.call(http.MethodGet, "/api/auth/callback?code=bad&state="+state, nil, "")
	require.Equal(t, http.StatusFound, r.Status)
	assert.Equal(t, frontendURL+"?auth=error&message=Authentication+failed", r.Header.Get("Location"))
}

func TestAuthHealth(t *testing.T) {
	s := newTestServer(t)
	r := s.call(http.MethodGet, "/api/auth/health", nil, "")
	require.Equal(t, http.StatusOK, r.Status)
	var out struct {
		Service string `json:"service"`
		OAuth   struct {
			Configured bool `json:"configured"`
		} `json:"oauth"`
		JWT struct {
			Configured bool `json:"configured"`
		} `json:"jwt"`
	}
	r.into(t, &out)
	assert.Equal(t, "authentication", out.Service)
	assert.True(t, out.OAuth.Configured)
	assert.True(t, out.JWT.Configured)
}
