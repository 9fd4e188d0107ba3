package shared

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "dash:session:"

// SessionManager orchestrates cookie based sessions backed by Redis. It is the
// authentication collaborator of the catalog engine: it supplies the caller's
// user id, and distinguishes "no session" from "session without rights".
type SessionManager struct {
	client     *redis.Client
	cookieName string
	ttl        time.Duration
	secure     bool
}

// Session holds per-request session data.
type Session struct {
	ID        string
	userID    string
	isNew     bool
	dirty     bool
	destroyed bool
}

type sessionPayload struct {
	UserID string `json:"user_id"`
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(client *redis.Client, cookieName string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{
		client:     client,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
	}
}

// TTL returns the configured session lifetime.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Load resolves the session referenced by the request cookie, creating a fresh
// anonymous session when the cookie is absent or stale.
func (m *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return m.newSession(), nil
	}

	raw, err := m.client.Get(ctx, sessionKeyPrefix+cookie.Value).Result()
	if errors.Is(err, redis.Nil) {
		return m.newSession(), nil
	}
	if err != nil {
		return nil, err
	}

	var payload sessionPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return m.newSession(), nil
	}

	return &Session{ID: cookie.Value, userID: payload.UserID}, nil
}

// Commit persists session state and sets the cookie when needed.
func (m *SessionManager) Commit(ctx context.Context, w http.ResponseWriter, _ *http.Request, sess *Session) error {
	if sess == nil {
		return nil
	}
	if sess.destroyed {
		if err := m.client.Del(ctx, sessionKeyPrefix+sess.ID).Err(); err != nil {
			return err
		}
		http.SetCookie(w, m.cookie(sess.ID, -1))
		return nil
	}
	if !sess.dirty && !sess.isNew {
		return nil
	}
	payload, err := json.Marshal(sessionPayload{UserID: sess.userID})
	if err != nil {
		return err
	}
	if err := m.client.Set(ctx, sessionKeyPrefix+sess.ID, payload, m.ttl).Err(); err != nil {
		return err
	}
	if sess.isNew || sess.dirty {
		http.SetCookie(w, m.cookie(sess.ID, int(m.ttl.Seconds())))
	}
	sess.isNew = false
	sess.dirty = false
	return nil
}

func (m *SessionManager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     m.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (m *SessionManager) newSession() *Session {
	return &Session{ID: uuid.NewString(), isNew: true}
}

// UserID returns the authenticated user id, empty for anonymous sessions.
func (s *Session) UserID() string {
	if s == nil {
		return ""
	}
	return s.userID
}

// SetUser binds the session to a user.
func (s *Session) SetUser(userID string) {
	s.userID = userID
	s.dirty = true
}

// Destroy marks the session for deletion on commit.
func (s *Session) Destroy() {
	s.destroyed = true
}
