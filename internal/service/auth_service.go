package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"ons-backend/internal/core/auth"
	"ons-backend/internal/core/identity"
	"ons-backend/internal/domain"
	"ons-backend/pkg/utils"
)

type TokenIssuer interface {
	IssuePair(u *domain.User) (*auth.TokenPair, error)
	ParseRefresh(token string) (*auth.Claims, error)
	Configured() bool
}

type IdentityProvider interface {
	Configured() bool
	AuthorizationURL(provider, state string) (string, error)
	Exchange(ctx context.Context, code string) (*identity.Profile, error)
}

type AuthService struct {
	users  domain.UserRepository
	tokens TokenIssuer
	idp    IdentityProvider
	log    *zap.Logger
	now    func() time.Time
}

func NewAuthService(users domain.UserRepository, tokens TokenIssuer, idp IdentityProvider, log *zap.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, idp: idp, log: log.Named("auth"), now: time.Now}
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Phone    string
}

// Register 新账号默认未激活、未验证邮箱，需要管理员审核
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	email := normalizeEmail(in.Email)
	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrEmailTaken
	}
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &domain.User{
		ID:           utils.NewID(),
		Email:        email,
		PasswordHash: &hash,
		Name:         strings.TrimSpace(in.Name),
		Role:         domain.RoleMember,
	}
	if p := strings.TrimSpace(in.Phone); p != "" {
		p = utils.NormalizePhone(p)
		u.Phone = &p
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.log.Info("user registered", zap.String("user_id", u.ID))
	return u, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, *auth.TokenPair, error) {
	u, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, nil, fmt.Errorf("find user: %w", err)
	}
	if u == nil {
		return nil, nil, domain.ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, nil, domain.ErrAccountInactive
	}
	if u.PasswordHash == nil || *u.PasswordHash == "" {
		return nil, nil, domain.ErrPasswordlessAccount
	}
	if !utils.CheckPassword(password, *u.PasswordHash) {
		return nil, nil, domain.ErrInvalidCredentials
	}
	now := s.now()
	if err := s.users.TouchLogin(ctx, u.ID, now); err != nil {
		return nil, nil, fmt.Errorf("touch login: %w", err)
	}
	u.LastLoginAt = &now
	pair, err := s.tokens.IssuePair(u)
	if err != nil {
		return nil, nil, err
	}
	return u, pair, nil
}

// Refresh 轮换两个 token；旧 refresh token 不作废
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.User, *auth.TokenPair, error) {
	if refreshToken == "" {
		return nil, nil, domain.ErrUnauthorized
	}
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, nil, err
	}
	u, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("find user: %w", err)
	}
	if u == nil || !u.IsActive {
		return nil, nil, domain.ErrInvalidToken
	}
	pair, err := s.tokens.IssuePair(u)
	if err != nil {
		return nil, nil, err
	}
	return u, pair, nil
}

func (s *AuthService) Profile(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

type ProfileInput struct {
	Name         *string
	Phone        *string
	ProfileImage *string
}

func (s *AuthService) UpdateProfile(ctx context.Context, id string, in ProfileInput) (*domain.User, error) {
	u, err := s.Profile(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		u.Name = strings.TrimSpace(*in.Name)
	}
	if in.Phone != nil {
		if p := strings.TrimSpace(*in.Phone); p == "" {
			u.Phone = nil
		} else {
			p = utils.NormalizePhone(p)
			u.Phone = &p
		}
	}
	if in.ProfileImage != nil {
		if v := strings.TrimSpace(*in.ProfileImage); v == "" {
			u.ProfileImage = nil
		} else {
			u.ProfileImage = &v
		}
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return u, nil
}

// OAuthState 随授权请求往返的状态，base64(JSON)
type OAuthState struct {
	Provider    string `json:"provider"`
	RedirectURI string `json:"redirect_uri,omitempty"`
	Timestamp   int64  `json:"timestamp"`
}

func (st OAuthState) Encode() string {
	b, _ := json.Marshal(st)
	return base64.RawURLEncoding.EncodeToString(b)
}

func DecodeOAuthState(raw string) (OAuthState, error) {
	var st OAuthState
	if raw == "" {
		return st, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return st, domain.Invalid("malformed oauth state")
	}
	if err := json.Unmarshal(b, &st); err != nil {
		return st, domain.Invalid("malformed oauth state")
	}
	return st, nil
}

func (s *AuthService) OAuthURL(provider, redirectURI string) (string, error) {
	if !identity.ProviderSupported(provider) {
		return "", domain.Invalid("unsupported provider: " + provider)
	}
	st := OAuthState{Provider: provider, RedirectURI: redirectURI, Timestamp: s.now().UnixMilli()}
	return s.idp.AuthorizationURL(provider, st.Encode())
}

type OAuthResult struct {
	User   *domain.User
	Tokens *auth.TokenPair
	IsNew  bool
	State  OAuthState
}

// OAuthCallback 用授权码换资料；新邮箱直接建号（已激活、已验证）
func (s *AuthService) OAuthCallback(ctx context.Context, code, state string) (*OAuthResult, error) {
	if code == "" {
		return nil, domain.Invalid("authorization code is required")
	}
	st, err := DecodeOAuthState(state)
	if err != nil {
		return nil, err
	}
	profile, err := s.idp.Exchange(ctx, code)
	if err != nil {
		s.log.Warn("oauth exchange failed", zap.Error(err))
		return nil, err
	}

	email := normalizeEmail(profile.Email)
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	now := s.now()
	isNew := u == nil
	if isNew {
		u = &domain.User{
			ID:            utils.NewID(),
			Email:         email,
			Name:          displayName(profile),
			Role:          domain.RoleMember,
			IsActive:      true,
			EmailVerified: true,
			LastLoginAt:   &now,
		}
		if profile.ProfilePictureURL != "" {
			pic := profile.ProfilePictureURL
			u.ProfileImage = &pic
		}
		if err := s.users.Create(ctx, u); err != nil {
			return nil, err
		}
		s.log.Info("user created from oauth", zap.String("user_id", u.ID), zap.String("provider", st.Provider))
	} else {
		u.LastLoginAt = &now
		if profile.ProfilePictureURL != "" {
			pic := profile.ProfilePictureURL
			u.ProfileImage = &pic
		}
		if err := s.users.Update(ctx, u); err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
	}

	pair, err := s.tokens.IssuePair(u)
	if err != nil {
		return nil, err
	}
	return &OAuthResult{User: u, Tokens: pair, IsNew: isNew, State: st}, nil
}

type AuthHealth struct {
	OAuthConfigured bool     `json:"oauthConfigured"`
	JWTConfigured   bool     `json:"jwtConfigured"`
	Providers       []string `json:"providers"`
	Timestamp       string   `json:"timestamp"`
}

func (s *AuthService) Health() AuthHealth {
	return AuthHealth{
		OAuthConfigured: s.idp != nil && s.idp.Configured(),
		JWTConfigured:   s.tokens != nil && s.tokens.Configured(),
		Providers:       []string{"google", "facebook"},
		Timestamp:       s.now().UTC().Format(time.RFC3339),
	}
}

func displayName(p *identity.Profile) string {
	if n := strings.TrimSpace(p.FirstName + " " + p.LastName); n != "" {
		return n
	}
	if at := strings.IndexByte(p.Email, '@'); at > 0 {
		return p.Email[:at]
	}
	return p.Email
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
