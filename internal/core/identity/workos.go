package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"ons-backend/internal/domain"
)

var ErrUnknownProvider = errors.New("unsupported oauth provider")

// 对外的 provider 名到身份服务连接类型的映射
var providers = map[string]string{
	"google":   "GoogleOAuth",
	"facebook": "FacebookOAuth",
}

func ProviderSupported(p string) bool {
	_, ok := providers[p]
	return ok
}

// Profile 身份服务返回的用户资料
type Profile struct {
	ID                string `json:"id"`
	Email             string `json:"email"`
	FirstName         string `json:"first_name"`
	LastName          string `json:"last_name"`
	EmailVerified     bool   `json:"email_verified"`
	ProfilePictureURL string `json:"profile_picture_url"`
}

type Config struct {
	ClientID     string
	APIKey       string
	RedirectURI  string
	AuthorizeURL string
	TokenURL     string
}

// WorkOS 通过标准 OAuth2 授权码流程对接 user_management 接口
type WorkOS struct {
	conf   *oauth2.Config
	client *http.Client
}

func NewWorkOS(cfg Config) *WorkOS {
	return &WorkOS{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.APIKey,
			RedirectURL:  cfg.RedirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthorizeURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (w *WorkOS) Configured() bool {
	return w != nil && w.conf.ClientID != "" && w.conf.ClientSecret != ""
}

func (w *WorkOS) AuthorizationURL(provider, state string) (string, error) {
	if !w.Configured() {
		return "", domain.ErrIdentityUnavailable
	}
	conn, ok := providers[provider]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
	return w.conf.AuthCodeURL(state, oauth2.SetAuthURLParam("provider", conn)), nil
}

// Exchange 用授权码换取用户资料；token 响应里的 "user" 字段即资料
func (w *WorkOS) Exchange(ctx context.Context, code string) (*Profile, error) {
	if !w.Configured() {
		return nil, domain.ErrIdentityUnavailable
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, w.client)
	tok, err := w.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	raw := tok.Extra("user")
	if raw == nil {
		return nil, errors.New("exchange code: response has no user")
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	var p Profile
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("decode user profile: %w", err)
	}
	if p.Email == "" {
		return nil, errors.New("exchange code: profile has no email")
	}
	return &p, nil
}
