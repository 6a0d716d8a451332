package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"ons-backend/internal/core/database"
	"ons-backend/internal/core/identity"
	"ons-backend/internal/core/mailer"
	"ons-backend/internal/domain"
	"ons-backend/internal/repo"
	"ons-backend/pkg/utils"
)

var ctx = context.Background()

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewGorm(database.Opts{Driver: "sqlite", DSN: "file::memory:", LogLevel: "silent"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email, role string) *domain.User {
	t.Helper()
	u := &domain.User{ID: utils.NewID(), Email: email, Name: "User " + email, Role: role, IsActive: true}
	require.NoError(t, repo.NewUserRepo(db).Create(ctx, u))
	return u
}

// memStore 内存对象存储
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	puts    int
	failPut bool
	// signHost 换掉它可以区分新签与库里存的旧链接
	signHost string
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (s *memStore) Put(_ context.Context, key string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPut {
		return errors.New("bucket unavailable")
	}
	s.puts++
	s.objects[key] = data
	s.types[key] = contentType
	return nil
}

func (s *memStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memStore) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	s.mu.Lock()
	host := s.signHost
	s.mu.Unlock()
	if host == "" {
		host = "signed.example.com"
	}
	return "https://" + host + "/" + key + "?ttl=" + ttl.String(), nil
}

func (s *memStore) resign(host string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signHost = host
}

func (s *memStore) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.objects))
	for k := range s.objects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type fakeIdP struct {
	profile *identity.Profile
	err     error
}

func (f *fakeIdP) Configured() bool { return true }

func (f *fakeIdP) AuthorizationURL(provider, state string) (string, error) {
	return "https://idp.example.com/authorize?provider=" + provider + "&state=" + state, nil
}

func (f *fakeIdP) Exchange(context.Context, string) (*identity.Profile, error) {
	return f.profile, f.err
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []mailer.RegistrationMail
	err  error
}

func (m *recordingMailer) SendRegistrationConfirmation(_ context.Context, msg mailer.RegistrationMail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.err
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

var nop = zap.NewNop()
