package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"ons-backend/internal/domain"
)

// DefaultSignedURLTTL 签名下载链接默认有效期
const DefaultSignedURLTTL = time.Hour

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// R2 基于 minio-go 的 S3 兼容对象存储（Cloudflare R2 / MinIO）
type R2 struct {
	client *minio.Client
	bucket string
}

func NewR2(cfg Config) (*R2, error) {
	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" || cfg.Bucket == "" {
		return nil, domain.ErrStorageNotConfigured
	}
	endpoint, secure := splitEndpoint(cfg.Endpoint, cfg.UseSSL)
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &R2{client: client, bucket: cfg.Bucket}, nil
}

// splitEndpoint 允许配置里写完整 URL（https://xxx.r2.cloudflarestorage.com）
func splitEndpoint(raw string, useSSL bool) (string, bool) {
	if !strings.Contains(raw, "://") {
		return strings.TrimSuffix(raw, "/"), useSSL
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw, useSSL
	}
	return u.Host, u.Scheme == "https"
}

func (s *R2) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

func (s *R2) Remove(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", key, err)
	}
	return nil
}

func (s *R2) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultSignedURLTTL
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return u.String(), nil
}

// Unconfigured 缺少凭据时的占位实现，所有调用都返回 ErrStorageNotConfigured
type Unconfigured struct{}

func (Unconfigured) Put(context.Context, string, []byte, string) error { return domain.ErrStorageNotConfigured }
func (Unconfigured) Remove(context.Context, string) error              { return domain.ErrStorageNotConfigured }
func (Unconfigured) SignedURL(context.Context, string, time.Duration) (string, error) {
	return "", domain.ErrStorageNotConfigured
}
