package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"release-tracker/internal/repository/sqlite"
	"release-tracker/internal/security"
	"release-tracker/internal/service"
	"release-tracker/internal/storage"
)

const registrationSecret = "let-me-in"

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeStorage) Upload(_ context.Context, name string, body io.Reader, _ int64, opts storage.UploadOptions) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	key := storage.JoinKey(opts.KeyPrefix, name)
	f.mu.Lock()
	f.objects[key] = data
	f.mu.Unlock()
	return key, nil
}

func (f *fakeStorage) DeletePrefix(_ context.Context, _, prefix string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			delete(f.objects, k)
		}
	}
	return nil
}

func (f *fakeStorage) GetObjectURL(_ context.Context, bucket, key string, _ time.Duration) (string, error) {
	return fmt.Sprintf("https://%s.example/%s", bucket, key), nil
}

type testServer struct {
	router  *gin.Engine
	objects *fakeStorage
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	objects := &fakeStorage{objects: map[string][]byte{}}
	srv := newTestServerWithStorage(t, objects)
	srv.objects = objects
	return srv
}

func newTestServerWithStorage(t *testing.T, objects storage.Service) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.NewUserRepository(db).Init(ctx))
	require.NoError(t, sqlite.NewReleaseRepository(db).Init(ctx))
	store := sqlite.NewStore(db)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	handler := NewHandler(Config{
		Users:         service.NewUserService(store, registrationSecret),
		Releases:      service.NewReleaseService(service.ReleaseConfig{Bucket: "artifacts", KeyPrefix: "releases", Logger: logger}, store, objects),
		Authenticator: security.NewAuthenticator(security.NewUserLookup(store)),
		Tokens:        security.NewTokenIssuer("test-secret", time.Hour),
		Logger:        logger,
		Now:           func() time.Time { return time.Date(2024, time.June, 20, 12, 0, 0, 0, time.UTC) },
	})

	router := gin.New()
	handler.RegisterRoutes(router)
	return &testServer{router: router}
}

func (s *testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) doJSON(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.do(t, req)
}

func (s *testServer) register(t *testing.T, username, password string) {
	t.Helper()
	rec := s.doJSON(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username":              username,
		"password":              password,
		"registration_password": registrationSecret,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func (s *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	rec := s.doJSON(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": username, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "Bearer", resp.TokenType)
	return resp.AccessToken
}

func (s *testServer) postRelease(t *testing.T, token string, fields map[string]string, artifact string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if artifact != "" {
		part, err := w.CreateFormFile("artifact", "app.tar.gz")
		require.NoError(t, err)
		_, err = part.Write([]byte(artifact))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/releases", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return s.do(t, req)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthAndRequestID(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec = srv.do(t, req)
	require.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
}

func TestLogin(t *testing.T) {
	srv := newTestServer(t)
	srv.register(t, "alice", "password1")

	t.Run("username is case insensitive", func(t *testing.T) {
		token := srv.login(t, "ALICE", "password1")

		rec := srv.doJSON(t, http.MethodGet, "/api/me", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "alice", decode[UserResponse](t, rec).Username)
	})

	t.Run("unknown user and wrong password look the same", func(t *testing.T) {
		unknown := srv.doJSON(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": "ghost", "password": "password1"})
		wrong := srv.doJSON(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": "alice", "password": "nope-nope"})

		require.Equal(t, http.StatusUnauthorized, unknown.Code)
		require.Equal(t, http.StatusUnauthorized, wrong.Code)
		require.JSONEq(t, unknown.Body.String(), wrong.Body.String())
	})

	t.Run("padded password logs in as typed", func(t *testing.T) {
		srv.register(t, "carol", " password123 ")
		srv.login(t, "carol", " password123 ")
		srv.login(t, "carol", "password123")
	})

	t.Run("duplicate registration", func(t *testing.T) {
		rec := srv.doJSON(t, http.MethodPost, "/api/auth/register", "", gin.H{
			"username":              "Alice",
			"password":              "password2",
			"registration_password": registrationSecret,
		})
		require.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("short password", func(t *testing.T) {
		rec := srv.doJSON(t, http.MethodPost, "/api/auth/register", "", gin.H{
			"username":              "bob",
			"password":              "short",
			"registration_password": registrationSecret,
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("protected routes need a token", func(t *testing.T) {
		rec := srv.doJSON(t, http.MethodGet, "/api/releases", "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = srv.doJSON(t, http.MethodGet, "/api/releases", "garbage", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestUserStatus(t *testing.T) {
	srv := newTestServer(t)
	srv.register(t, "admin", "password1")
	srv.register(t, "bob", "password1")
	token := srv.login(t, "admin", "password1")

	bobToken := srv.login(t, "bob", "password1")
	rec := srv.doJSON(t, http.MethodGet, "/api/me", bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.doJSON(t, http.MethodPut, "/api/users/BOB/status", token, gin.H{"enabled": true, "locked": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.True(t, decode[UserResponse](t, rec).Locked)

	// tokens issued before the lock stop working
	rec = srv.doJSON(t, http.MethodGet, "/api/me", bobToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.JSONEq(t, `{"error":"account locked"}`, rec.Body.String())

	rec = srv.doJSON(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": "bob", "password": "password1"})
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), "account locked")

	rec = srv.doJSON(t, http.MethodPut, "/api/users/Admin/status", token, gin.H{"enabled": false})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.doJSON(t, http.MethodPut, "/api/users/ghost/status", token, gin.H{"enabled": true})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReleaseLifecycle(t *testing.T) {
	srv := newTestServer(t)
	srv.register(t, "alice", "password1")
	token := srv.login(t, "alice", "password1")

	rec := srv.postRelease(t, token, map[string]string{"version": "2024.6.1", "name": "June"}, "binary")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[ReleaseResponse](t, rec)
	require.Equal(t, "2024.6.1", created.Version)
	require.True(t, created.HasArtifact)
	require.Equal(t, int64(6), created.ArtifactSize)

	rec = srv.postRelease(t, token, map[string]string{"version": "2024.6.2"}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, "2024.6.2", decode[ReleaseResponse](t, rec).Name)

	rec = srv.postRelease(t, token, map[string]string{"version": "2024.6.1"}, "")
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = srv.doJSON(t, http.MethodGet, "/api/releases/2024.6.1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "June", decode[ReleaseResponse](t, rec).Name)

	rec = srv.doJSON(t, http.MethodGet, "/api/releases", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]ReleaseResponse](t, rec)
	require.Len(t, list, 2)
	require.Equal(t, "2024.6.2", list[0].Version)

	rec = srv.doJSON(t, http.MethodGet, "/api/releases?since=2024.6.2", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]ReleaseResponse](t, rec), 1)

	rec = srv.doJSON(t, http.MethodGet, "/api/next-version", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"version":"2024.6.3"}`, rec.Body.String())

	rec = srv.doJSON(t, http.MethodGet, "/api/releases/2024.6.1/artifact", token, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	require.Contains(t, rec.Header().Get("Location"), "releases/2024.6.1/")

	rec = srv.doJSON(t, http.MethodGet, "/api/releases/2024.6.2/artifact", token, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.doJSON(t, http.MethodDelete, "/api/releases/2024.6.1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"deleted":"2024.6.1"}`, rec.Body.String())
	require.Empty(t, srv.objects.objects)

	rec = srv.doJSON(t, http.MethodGet, "/api/releases/2024.6.1", token, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReleaseWithoutStorage(t *testing.T) {
	srv := newTestServerWithStorage(t, nil)
	srv.register(t, "alice", "password1")
	token := srv.login(t, "alice", "password1")

	rec := srv.postRelease(t, token, map[string]string{"version": "2024.6.1"}, "binary")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = srv.postRelease(t, token, map[string]string{"version": "2024.6.1"}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = srv.doJSON(t, http.MethodGet, "/api/releases/2024.6.1/artifact", token, nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestReleaseVersionBinding(t *testing.T) {
	srv := newTestServer(t)
	srv.register(t, "alice", "password1")
	token := srv.login(t, "alice", "password1")

	t.Run("empty version is absent", func(t *testing.T) {
		rec := srv.postRelease(t, token, map[string]string{"version": "", "name": "x"}, "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "version is required")
	})

	t.Run("surrounding space is ignored", func(t *testing.T) {
		rec := srv.postRelease(t, token, map[string]string{"version": " 2024.6.1 "}, "")
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		require.Equal(t, "2024.6.1", decode[ReleaseResponse](t, rec).Version)

		rec = srv.doJSON(t, http.MethodGet, "/api/releases?since=%202024.6.1", token, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.Len(t, decode[[]ReleaseResponse](t, rec), 1)
	})

	t.Run("malformed form field", func(t *testing.T) {
		for _, v := range []string{"2024.6", "2024.6.1.2", "a.b.c"} {
			rec := srv.postRelease(t, token, map[string]string{"version": v}, "")
			require.Equal(t, http.StatusBadRequest, rec.Code, v)
		}
	})

	t.Run("malformed query", func(t *testing.T) {
		rec := srv.doJSON(t, http.MethodGet, "/api/releases?since=2024", token, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed path", func(t *testing.T) {
		for _, v := range []string{"2024.6", "1.2.3.4", "x.y.z"} {
			rec := srv.doJSON(t, http.MethodGet, "/api/releases/"+v, token, nil)
			require.Equal(t, http.StatusBadRequest, rec.Code, v)
			require.JSONEq(t, `{"error":"invalid version"}`, rec.Body.String())
		}
	})

	t.Run("locale does not change the format", func(t *testing.T) {
		rec := srv.postRelease(t, token, map[string]string{"version": "2024.12.10"}, "")
		require.Equal(t, http.StatusCreated, rec.Code)

		req := httptest.NewRequest(http.MethodGet, "/api/releases/2024.12.10?lang=de", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept-Language", "fr-CH, fr;q=0.9")
		rec = srv.do(t, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "2024.12.10", decode[ReleaseResponse](t, rec).Version)
	})
}

func TestResolveLocale(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		url, accept, want string
	}{
		{"/", "", "en"},
		{"/?lang=de", "fr", "de"},
		{"/", "fr-CH, fr;q=0.9", "fr-CH"},
		{"/?lang=!!", "ja", "ja"},
	}
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, tc.url, nil)
		if tc.accept != "" {
			c.Request.Header.Set("Accept-Language", tc.accept)
		}
		require.Equal(t, tc.want, resolveLocale(c).String(), tc.url)
	}
}
