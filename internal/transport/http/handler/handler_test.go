package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"ons-backend/internal/core/auth"
	"ons-backend/internal/core/cache"
	"ons-backend/internal/core/database"
	"ons-backend/internal/core/identity"
	"ons-backend/internal/core/imaging"
	"ons-backend/internal/core/mailer"
	"ons-backend/internal/core/storage"
	"ons-backend/internal/domain"
	"ons-backend/internal/repo"
	"ons-backend/internal/service"
	"ons-backend/internal/transport/http/ez"
	"ons-backend/internal/transport/http/middleware"
	"ons-backend/pkg/utils"
)

func init() { gin.SetMode(gin.TestMode) }

const frontendURL = "http://localhost:3000"

var nop = zap.NewNop()

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (s *memStore) Put(_ context.Context, key string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *memStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memStore) SignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://signed.example.com/" + key, nil
}

type fakeIdP struct {
	profile *identity.Profile
}

func (fakeIdP) Configured() bool { return true }

func (fakeIdP) AuthorizationURL(provider, state string) (string, error) {
	return "https://idp.example.com/authorize?provider=" + provider + "&state=" + state, nil
}

func (f fakeIdP) Exchange(_ context.Context, code string) (*identity.Profile, error) {
	if code != "good" {
		return nil, domain.ErrIdentityUnavailable
	}
	return f.profile, nil
}

type testServer struct {
	t      *testing.T
	engine *gin.Engine
	db     *gorm.DB
	users  *repo.UserRepo
	jwt    *auth.JWTer
	store  *memStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := database.NewGorm(database.Opts{Driver: "sqlite", DSN: "file::memory:", LogLevel: "silent"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	jw := &auth.JWTer{
		AccessSecret:  []byte("access"),
		RefreshSecret: []byte("refresh"),
		Issuer:        "ons-webapp",
		Audience:      "ons-webapp-users",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
	}
	users := repo.NewUserRepo(db)
	contents := repo.NewContentRepo(db)
	store := &memStore{objects: map[string][]byte{}}
	idp := fakeIdP{profile: &identity.Profile{Email: "Social@Example.com", FirstName: "Sam", LastName: "Social"}}

	counter := cache.NewMemoryWindow()
	g := Guards{
		Auth:              middleware.Authenticate(jw, users),
		OptionalAuth:      middleware.OptionalAuth(jw, users),
		AuthLimit:         middleware.WindowLimit(counter, middleware.WindowRule{Name: "auth", Max: 50, Window: time.Minute, SkipSuccessful: true}, nop),
		UploadLimit:       middleware.WindowLimit(counter, middleware.WindowRule{Name: "upload", Max: 50, Window: time.Minute}, nop),
		RegistrationLimit: middleware.WindowLimit(counter, middleware.WindowRule{Name: "register", Max: 50, Window: time.Minute}, nop),
	}

	r := gin.New()
	e := ez.NewEZ(r.Group("/api"), nop)
	NewAuthHandler(service.NewAuthService(users, jw, idp, nop), CookieOptions{}, frontendURL, nop).Mount(e, g)
	NewContentHandler(service.NewContentService(contents, nop)).Mount(e, g)
	NewEventHandler(service.NewEventService(contents, repo.NewRegistrationRepo(db), mailer.Noop{Log: nop}, nop)).Mount(e, g)
	NewMediaHandler(service.NewMediaService(repo.NewMediaRepo(db), store, storage.NewCDN("https://cdn.example.com"),
		imaging.NewProcessor(), service.DefaultMediaLimits(), nop)).Mount(e, g)

	admin := r.Group("/admin/v1", g.Auth, middleware.RequireRole(domain.RoleAdmin))
	NewAdminHandler(service.NewUserService(users, nop)).Mount(ez.NewEZ(admin, nop))

	return &testServer{t: t, engine: r, db: db, users: users, jwt: jw, store: store}
}

func (s *testServer) seedUser(email, role string, active bool) *domain.User {
	s.t.Helper()
	hash, err := utils.HashPassword("secret123")
	require.NoError(s.t, err)
	u := &domain.User{ID: utils.NewID(), Email: email, Name: "User", Role: role, IsActive: active, PasswordHash: &hash}
	require.NoError(s.t, s.users.Create(context.Background(), u))
	return u
}

func (s *testServer) token(u *domain.User) string {
	s.t.Helper()
	p, err := s.jwt.IssuePair(u)
	require.NoError(s.t, err)
	return p.AccessToken
}

type reply struct {
	Status     int             `json:"-"`
	Header     http.Header     `json:"-"`
	Raw        string          `json:"-"`
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Pagination *struct {
		Page  int   `json:"page"`
		Total int64 `json:"total"`
	} `json:"pagination"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details []struct {
			Field string `json:"field"`
			Tag   string `json:"tag"`
		} `json:"details"`
	} `json:"error"`
}

func (r *reply) code() string {
	if r.Error == nil {
		return ""
	}
	return r.Error.Code
}

func (r *reply) into(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Data, v), string(r.Data))
}

func (s *testServer) send(req *http.Request, token string) *reply {
	s.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	out := &reply{Status: w.Code, Header: w.Header(), Raw: w.Body.String()}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
	}
	return out
}

func (s *testServer) call(method, path string, body any, token string) *reply {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.send(req, token)
}

type part struct {
	field, name, mime string
	data              []byte
}

func (s *testServer) upload(path string, token string, parts ...part) *reply {
	s.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="`+p.field+`"; filename="`+p.name+`"`)
		h.Set("Content-Type", p.mime)
		w, err := mw.CreatePart(h)
		require.NoError(s.t, err)
		_, err = w.Write(p.data)
		require.NoError(s.t, err)
	}
	require.NoError(s.t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.send(req, token)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 5), G: uint8(y * 5), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}
