package handler

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ons-backend/internal/core/auth"
	"ons-backend/internal/core/identity"
	"ons-backend/internal/domain"
	"ons-backend/internal/service"
	"ons-backend/internal/transport/http/ez"
	"ons-backend/internal/transport/http/middleware"
)

const (
	refreshTokenCookie = "refresh_token"
	day                = 24 * time.Hour
)

type CookieOptions struct {
	Secure bool
	Domain string
}

type AuthHandler struct {
	svc         *service.AuthService
	cookies     CookieOptions
	frontendURL string
	log         *zap.Logger
}

func NewAuthHandler(svc *service.AuthService, cookies CookieOptions, frontendURL string, log *zap.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, cookies: cookies, frontendURL: frontendURL, log: log.Named("auth")}
}

type authOut struct {
	User         *domain.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	ExpiresIn    int64        `json:"expiresIn"`
}

func newAuthOut(u *domain.User, p *auth.TokenPair) authOut {
	return authOut{User: u, AccessToken: p.AccessToken, RefreshToken: p.RefreshToken, ExpiresIn: p.ExpiresIn}
}

func (h *AuthHandler) Mount(e ez.EZ, g Guards) {
	a := e.Group("/auth")

	a.Raw(http.MethodGet, "/health", h.health)
	a.Raw(http.MethodGet, "/callback", append(chain(g.AuthLimit), h.callback)...)

	type oauthQ struct {
		RedirectURI string `form:"redirect_uri"`
	}
	type oauthOut struct {
		AuthURL  string `json:"authUrl"`
		Provider string `json:"provider"`
	}
	ez.RegisterAction(a, ez.Action[oauthQ, oauthOut]{
		Method: http.MethodGet,
		Path:   "/login/:provider",
		Binder: ez.BindQuery,
		Use:    chain(g.AuthLimit),
		Handler: func(c *gin.Context, in *oauthQ) (oauthOut, error) {
			provider := c.Param("provider")
			if !identity.ProviderSupported(provider) {
				return oauthOut{}, ez.BadRequest("INVALID_PROVIDER", "Supported providers: google, facebook")
			}
			redirect := in.RedirectURI
			if redirect == "" {
				redirect = h.frontendURL
			}
			u, err := h.svc.OAuthURL(provider, redirect)
			if err != nil {
				return oauthOut{}, err
			}
			return oauthOut{AuthURL: u, Provider: provider}, nil
		},
	})

	type loginIn struct {
		Email      string `json:"email" binding:"required,email"`
		Password   string `json:"password" binding:"required"`
		RememberMe bool   `json:"rememberMe"`
	}
	ez.RegisterAction(a, ez.Action[loginIn, authOut]{
		Method:  http.MethodPost,
		Path:    "/login",
		Binder:  ez.BindJSON,
		Use:     chain(g.AuthLimit),
		Message: "Login successful",
		Handler: func(c *gin.Context, in *loginIn) (authOut, error) {
			u, pair, err := h.svc.Login(c.Request.Context(), in.Email, in.Password)
			if err != nil {
				return authOut{}, err
			}
			ttl := day
			if in.RememberMe {
				ttl = 30 * day
			}
			h.setTokenCookies(c, pair, ttl)
			return newAuthOut(u, pair), nil
		},
	})

	type registerIn struct {
		Email    string `json:"email" binding:"required,email,max=191"`
		Password string `json:"password" binding:"required,min=8,max=128,password"`
		Name     string `json:"name" binding:"required,min=2,max=100"`
		Phone    string `json:"phone" binding:"omitempty,phone"`
	}
	type registerOut struct {
		User *domain.User `json:"user"`
	}
	ez.RegisterAction(a, ez.Action[registerIn, registerOut]{
		Method:  http.MethodPost,
		Path:    "/register",
		Binder:  ez.BindJSON,
		Use:     chain(g.AuthLimit),
		Status:  http.StatusCreated,
		Message: "Registration successful. Your account is pending activation.",
		Handler: func(c *gin.Context, in *registerIn) (registerOut, error) {
			u, err := h.svc.Register(c.Request.Context(), service.RegisterInput{
				Email: in.Email, Password: in.Password, Name: in.Name, Phone: in.Phone,
			})
			if err != nil {
				return registerOut{}, err
			}
			return registerOut{User: u}, nil
		},
	})

	ez.RegisterAction(a, ez.Action[struct{}, struct{}]{
		Method:  http.MethodPost,
		Path:    "/logout",
		Binder:  ez.BindNone,
		Message: "Logout successful",
		Handler: func(c *gin.Context, _ *struct{}) (struct{}, error) {
			h.clearTokenCookies(c)
			return struct{}{}, nil
		},
	})

	ez.RegisterAction(a, ez.Action[struct{}, authOut]{
		Method: http.MethodPost,
		Path:   "/refresh",
		Binder: ez.BindNone,
		Use:    chain(g.AuthLimit),
		Handler: func(c *gin.Context, _ *struct{}) (authOut, error) {
			token, err := refreshTokenFrom(c)
			if err != nil {
				return authOut{}, err
			}
			if token == "" {
				return authOut{}, ez.New(http.StatusUnauthorized, "REFRESH_TOKEN_REQUIRED", "Refresh token is required")
			}
			u, pair, err := h.svc.Refresh(c.Request.Context(), token)
			if err != nil {
				return authOut{}, err
			}
			h.setTokenCookies(c, pair, day)
			return newAuthOut(u, pair), nil
		},
	})

	ez.RegisterAction(a, ez.Action[struct{}, *domain.User]{
		Method: http.MethodGet,
		Path:   "/profile",
		Binder: ez.BindNone,
		Use:    chain(g.Auth),
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.User, error) {
			return h.svc.Profile(c.Request.Context(), ez.CurrentUser(c).ID)
		},
	})

	type profileIn struct {
		Name         *string `json:"name" binding:"omitempty,min=2,max=100"`
		Phone        *string `json:"phone" binding:"omitempty,phone"`
		ProfileImage *string `json:"profileImage" binding:"omitempty,max=512"`
	}
	ez.RegisterAction(a, ez.Action[profileIn, *domain.User]{
		Method:  http.MethodPut,
		Path:    "/profile",
		Binder:  ez.BindJSON,
		Use:     chain(g.Auth),
		Auth:    true,
		Message: "Profile updated successfully",
		Handler: func(c *gin.Context, in *profileIn) (*domain.User, error) {
			if in.ProfileImage != nil && *in.ProfileImage != "" {
				if u, err := url.ParseRequestURI(*in.ProfileImage); err != nil || u.Host == "" {
					return nil, ez.Invalid("Validation failed", []ez.FieldError{{Field: "profileImage", Message: "profileImage must be a valid URL", Tag: "url"}})
				}
			}
			return h.svc.UpdateProfile(c.Request.Context(), ez.CurrentUser(c).ID, service.ProfileInput{
				Name: in.Name, Phone: in.Phone, ProfileImage: in.ProfileImage,
			})
		},
	})
}

// refreshTokenFrom 请求体里的 refreshToken 优先，其次 cookie；空请求体合法
func refreshTokenFrom(c *gin.Context) (string, error) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
			return "", ez.Invalid("Invalid request: "+err.Error(), nil)
		}
	}
	if body.RefreshToken != "" {
		return body.RefreshToken, nil
	}
	v, _ := c.Cookie(refreshTokenCookie)
	return v, nil
}

func (h *AuthHandler) health(c *gin.Context) {
	type status struct {
		Configured bool     `json:"configured"`
		Providers  []string `json:"providers,omitempty"`
	}
	hs := h.svc.Health()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"service": "authentication",
			"status":  "healthy",
			"oauth":   status{Configured: hs.OAuthConfigured, Providers: hs.Providers},
			"jwt":     status{Configured: hs.JWTConfigured},
		},
		"timestamp": hs.Timestamp,
	})
}

// callback 授权回调：成功写 cookie 后重定向前端，失败重定向并带 auth=error
func (h *AuthHandler) callback(c *gin.Context) {
	if e := c.Query("error"); e != "" {
		ez.Abort(c, ez.BadRequest("OAUTH_ERROR", "OAuth error: "+e))
		return
	}
	code := c.Query("code")
	if code == "" {
		ez.Abort(c, ez.BadRequest("MISSING_CODE", "Authorization code is required"))
		return
	}
	res, err := h.svc.OAuthCallback(c.Request.Context(), code, c.Query("state"))
	if err != nil {
		h.log.Warn("oauth callback failed", zap.Error(err))
		c.Redirect(http.StatusFound, h.frontendRedirect("", url.Values{
			"auth": {"error"}, "message": {"Authentication failed"},
		}))
		return
	}
	h.setTokenCookies(c, res.Tokens, 7*day)
	q := url.Values{"auth": {"success"}}
	if res.IsNew {
		q.Set("new_user", "true")
	}
	c.Redirect(http.StatusFound, h.frontendRedirect(res.State.RedirectURI, q))
}

// frontendRedirect 只允许跳回前端同源地址，其它一律落到前端首页
func (h *AuthHandler) frontendRedirect(target string, q url.Values) string {
	base, err := url.Parse(h.frontendURL)
	if err != nil {
		base = &url.URL{Path: "/"}
	}
	u := base
	if target != "" {
		if t, err := url.Parse(target); err == nil && t.Scheme == base.Scheme && t.Host == base.Host {
			u = t
		}
	}
	out := *u
	vals := out.Query()
	for k, v := range q {
		vals[k] = v
	}
	out.RawQuery = vals.Encode()
	return out.String()
}

func (h *AuthHandler) setTokenCookies(c *gin.Context, p *auth.TokenPair, accessTTL time.Duration) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, p.AccessToken, int(accessTTL/time.Second), "/", h.cookies.Domain, h.cookies.Secure, true)
	c.SetCookie(refreshTokenCookie, p.RefreshToken, int(30*day/time.Second), "/", h.cookies.Domain, h.cookies.Secure, true)
}

func (h *AuthHandler) clearTokenCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, "", -1, "/", h.cookies.Domain, h.cookies.Secure, true)
	c.SetCookie(refreshTokenCookie, "", -1, "/", h.cookies.Domain, h.cookies.Secure, true)
}
