package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ons-backend/internal/core/config"
	"ons-backend/internal/domain"
)

const (
	kindAccess  = "access"
	kindRefresh = "refresh"
)

type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Kind   string `json:"kind"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"` // access token 有效秒数
}

// JWTer 签发/校验 access 与 refresh 两种 token，各自独立密钥
type JWTer struct {
	AccessSecret  []byte
	RefreshSecret []byte
	Issuer        string
	Audience      string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	now func() time.Time
}

// NewJWTer 用户端和管理端共用同一组密钥
func NewJWTer(c config.JWT) (*JWTer, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &JWTer{
		AccessSecret:  []byte(c.Secret),
		RefreshSecret: []byte(c.RefreshSecret),
		Issuer:        c.Issuer,
		Audience:      c.Audience,
		AccessTTL:     time.Duration(c.AccessTokenTTLMin) * time.Minute,
		RefreshTTL:    time.Duration(c.RefreshTokenTTLDay) * 24 * time.Hour,
	}, nil
}

// Configured 两个密钥都在才算可用
func (j *JWTer) Configured() bool {
	return j != nil && len(j.AccessSecret) > 0 && len(j.RefreshSecret) > 0
}

func (j *JWTer) clock() time.Time {
	if j.now != nil {
		return j.now()
	}
	return time.Now()
}

func (j *JWTer) issue(u *domain.User, kind string, secret []byte, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("empty signing secret")
	}
	now := j.clock()
	claims := Claims{
		UserID: u.ID,
		Email:  u.Email,
		Role:   u.Role,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    j.Issuer,
			Audience:  jwt.ClaimStrings{j.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (j *JWTer) IssuePair(u *domain.User) (*TokenPair, error) {
	access, err := j.issue(u, kindAccess, j.AccessSecret, j.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := j.issue(u, kindRefresh, j.RefreshSecret, j.RefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: int64(j.AccessTTL / time.Second)}, nil
}

func (j *JWTer) ParseAccess(tokenStr string) (*Claims, error) {
	return j.parse(tokenStr, kindAccess, j.AccessSecret)
}

func (j *JWTer) ParseRefresh(tokenStr string) (*Claims, error) {
	return j.parse(tokenStr, kindRefresh, j.RefreshSecret)
}

// parse 过期返回 domain.ErrTokenExpired，其余失败一律 domain.ErrInvalidToken
func (j *JWTer) parse(tokenStr, kind string, secret []byte) (*Claims, error) {
	if len(secret) == 0 {
		return nil, domain.ErrInvalidToken
	}
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected alg %v", token.Header["alg"])
		}
		return secret, nil
	},
		jwt.WithIssuer(j.Issuer),
		jwt.WithAudience(j.Audience),
		jwt.WithTimeFunc(j.clock),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid || c.Kind != kind || c.UserID == "" {
		return nil, domain.ErrInvalidToken
	}
	return c, nil
}
