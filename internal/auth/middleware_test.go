package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func protectedEcho(t *testing.T) (http.Handler, *uuid.UUID) {
	t.Helper()
	var seen uuid.UUID
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserIDFromContext(r.Context())
		require.True(t, ok, "user id must be in context behind the middleware")
		seen = userID
		w.WriteHeader(http.StatusOK)
	})
	return handler, &seen
}

func TestMiddlewareAllowsValidSession(t *testing.T) {
	t.Parallel()

	store := NewSessionStore(time.Minute)
	userID := uuid.New()
	token := store.Create(userID)

	handler, seen := protectedEcho(t)
	srv := Middleware(store)(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID, *seen)
}

func TestMiddlewareRejectsMissingCookie(t *testing.T) {
	t.Parallel()

	store := NewSessionStore(time.Minute)
	handler, _ := protectedEcho(t)
	srv := Middleware(store)(handler)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/projects", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"로그인이 필요합니다"}`, rec.Body.String())
}

func TestMiddlewareRejectsStaleToken(t *testing.T) {
	t.Parallel()

	store := NewSessionStore(time.Minute)
	token := store.Create(uuid.New())
	store.Destroy(token)

	handler, _ := protectedEcho(t)
	srv := Middleware(store)(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionCookieRoundTrip(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	SetSessionCookie(rec, "tok-123", 30*time.Minute)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, SessionCookieName, c.Name)
	assert.Equal(t, "tok-123", c.Value)
	assert.Equal(t, "/", c.Path)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, int((30 * time.Minute).Seconds()), c.MaxAge)

	rec = httptest.NewRecorder()
	ClearSessionCookie(rec)
	cookies = rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}
