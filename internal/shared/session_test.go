package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "dash_session", time.Hour, false), mr
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == "dash_session" {
			return cookie
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func TestSessionRoundTrip(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	sess, err := manager.Load(ctx, req)
	require.NoError(t, err)
	require.Empty(t, sess.UserID())

	sess.SetUser("user-7")
	rec := httptest.NewRecorder()
	require.NoError(t, manager.Commit(ctx, rec, req, sess))
	cookie := sessionCookie(t, rec)
	require.Equal(t, sess.ID, cookie.Value)
	require.True(t, cookie.HttpOnly)

	next := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	next.AddCookie(cookie)
	loaded, err := manager.Load(ctx, next)
	require.NoError(t, err)
	require.Equal(t, "user-7", loaded.UserID())
}

func TestSessionUnknownCookieIsAnonymous(t *testing.T) {
	manager, _ := newTestManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "dash_session", Value: "stale-id"})

	sess, err := manager.Load(context.Background(), req)
	require.NoError(t, err)
	require.Empty(t, sess.UserID())
	require.NotEqual(t, "stale-id", sess.ID, "stale cookie gets a fresh session")
}

func TestSessionDestroy(t *testing.T) {
	manager, mr := newTestManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	sess, err := manager.Load(ctx, req)
	require.NoError(t, err)
	sess.SetUser("user-7")
	require.NoError(t, manager.Commit(ctx, httptest.NewRecorder(), req, sess))
	require.True(t, mr.Exists("dash:session:"+sess.ID))

	sess.Destroy()
	rec := httptest.NewRecorder()
	require.NoError(t, manager.Commit(ctx, rec, req, sess))
	require.False(t, mr.Exists("dash:session:"+sess.ID))
	require.Equal(t, -1, sessionCookie(t, rec).MaxAge)
}

func TestSessionExpiry(t *testing.T) {
	manager, mr := newTestManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	sess, err := manager.Load(ctx, req)
	require.NoError(t, err)
	sess.SetUser("user-7")
	rec := httptest.NewRecorder()
	require.NoError(t, manager.Commit(ctx, rec, req, sess))

	mr.FastForward(2 * time.Hour)

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(sessionCookie(t, rec))
	loaded, err := manager.Load(ctx, next)
	require.NoError(t, err)
	require.Empty(t, loaded.UserID(), "expired session resolves anonymous")
}
