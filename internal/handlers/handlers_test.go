package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testlab/testplan-backend-service/internal/auth"
	"github.com/testlab/testplan-backend-service/internal/storage"
)

// testServer bundles everything a handler test needs.
type testServer struct {
	router  *chi.Mux
	storage storage.Storage
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := storage.NewMemoryStorage()
	sessions := auth.NewSessionStore(time.Hour)
	files, err := NewFileStore(t.TempDir(), 10<<20)
	require.NoError(t, err)

	return &testServer{
		router:  NewRouter(store, sessions, time.Hour, files, nil, "test"),
		storage: store,
	}
}

// do sends a request through the router and returns the recorder.
func (s *testServer) do(t *testing.T, method, path string, body interface{}, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// doMultipart sends a multipart request carrying one file plus extra fields.
func (s *testServer) doMultipart(t *testing.T, path, field, filename string, content []byte,
	fields map[string]string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if cookie != nil {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// register creates an account and returns its session cookie.
func (s *testServer) register(t *testing.T, username string) *http.Cookie {
	t.Helper()

	rec := s.do(t, http.MethodPost, "/api/auth/register",
		map[string]string{"username": username, "password": "secret123"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, "register failed: %s", rec.Body.String())

	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			return c
		}
	}
	t.Fatal("register response carried no session cookie")
	return nil
}

// createProject makes a project and returns its id.
func (s *testServer) createProject(t *testing.T, cookie *http.Cookie, name string) string {
	t.Helper()

	rec := s.do(t, http.MethodPost, "/api/projects", map[string]string{"name": name}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, "create project failed: %s", rec.Body.String())

	var project map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &project))
	return project["id"].(string)
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func decodeJSONList(t *testing.T, rec *httptest.ResponseRecorder) []interface{} {
	t.Helper()
	var out []interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	rec := srv.do(t, http.MethodGet, "/health", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "testplan-backend-service", body["service"])
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	for _, path := range []string{"/api/projects", "/api/test-items"} {
		rec := srv.do(t, http.MethodGet, path, nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "path %s", path)
		assert.Equal(t, "로그인이 필요합니다", decodeJSON(t, rec)["error"])
	}
}
