package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ons-backend/internal/core/auth"
	"ons-backend/internal/domain"
	"ons-backend/internal/transport/http/ez"
	resp "ons-backend/internal/transport/http/response"
)

const AccessTokenCookie = "access_token"

type AccessTokenParser interface {
	ParseAccess(token string) (*auth.Claims, error)
}

type UserLoader interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
}

// bearerToken 先取 Authorization 头，再取 access_token cookie
func bearerToken(c *gin.Context) string {
	if ah := c.GetHeader("Authorization"); strings.HasPrefix(ah, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(ah, "Bearer "))
	}
	if v, err := c.Cookie(AccessTokenCookie); err == nil {
		return v
	}
	return ""
}

func resolveUser(c *gin.Context, tokens AccessTokenParser, users UserLoader) (*domain.User, error) {
	tok := bearerToken(c)
	if tok == "" {
		return nil, ez.Unauthorized("Access token required")
	}
	claims, err := tokens.ParseAccess(tok)
	if err != nil {
		if errors.Is(err, domain.ErrTokenExpired) {
			return nil, ez.New(http.StatusUnauthorized, resp.CodeTokenExpired, "Access token has expired")
		}
		return nil, ez.New(http.StatusUnauthorized, resp.CodeInvalidToken, "Invalid access token")
	}
	u, err := users.FindByID(c.Request.Context(), claims.UserID)
	if err != nil {
		return nil, ez.Internal("load user failed", err)
	}
	if u == nil {
		return nil, ez.Unauthorized("User not found")
	}
	if !u.IsActive {
		return nil, ez.New(http.StatusUnauthorized, resp.CodeAccountDeactivated, "Account is deactivated")
	}
	return u, nil
}

// Authenticate 必须登录；用户每次从库里读，停用/改角色立即生效
func Authenticate(tokens AccessTokenParser, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := resolveUser(c, tokens, users)
		if err != nil {
			ez.Abort(c, err)
			return
		}
		ez.SetUser(c, u)
		c.Next()
	}
}

// OptionalAuth token 有效就挂上用户，否则按游客继续
func OptionalAuth(tokens AccessTokenParser, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		if u, err := resolveUser(c, tokens, users); err == nil {
			ez.SetUser(c, u)
		}
		c.Next()
	}
}

func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := ez.CurrentUser(c)
		if u == nil {
			ez.Abort(c, ez.Unauthorized("Authentication required"))
			return
		}
		if !ez.HasRole(u, roles...) {
			ez.Abort(c, ez.Forbidden("Insufficient permissions"))
			return
		}
		c.Next()
	}
}
