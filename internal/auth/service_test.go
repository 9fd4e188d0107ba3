package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noiddea/dash/internal/shared"
)

type memRepo struct {
	users    map[string]*User
	sessions map[string]string
}

func newMemRepo() *memRepo {
	return &memRepo{users: make(map[string]*User), sessions: make(map[string]string)}
}

func (m *memRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	if user, ok := m.users[email]; ok {
		return user, nil
	}
	return nil, fmt.Errorf("auth: user %s: %w", email, shared.ErrNotFound)
}

func (m *memRepo) CreateSession(_ context.Context, id, userID string, _ time.Time, _, _ string) error {
	m.sessions[id] = userID
	return nil
}

func (m *memRepo) DeleteSession(_ context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

func seedUser(t *testing.T, repo *memRepo, email, password string, active bool) *User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := &User{ID: "u-" + email, Email: email, PasswordHash: string(hash), IsActive: active}
	repo.users[email] = user
	return user
}

func TestAuthenticate(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)
	ctx := context.Background()

	seeded := seedUser(t, repo, "owner@dash.test", "correcthorse", true)

	user, err := svc.Authenticate(ctx, "owner@dash.test", "correcthorse")
	require.NoError(t, err)
	require.Equal(t, seeded.ID, user.ID)

	_, err = svc.Authenticate(ctx, "owner@dash.test", "wrong")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody@dash.test", "correcthorse")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateInactiveUser(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)
	seedUser(t, repo, "gone@dash.test", "correcthorse", false)

	_, err := svc.Authenticate(context.Background(), "gone@dash.test", "correcthorse")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestSessionLifecycle(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)
	ctx := context.Background()

	require.NoError(t, svc.RegisterSession(ctx, "s-1", "u-1", time.Now().Add(time.Hour), "127.0.0.1", "test"))
	require.Equal(t, "u-1", repo.sessions["s-1"])

	require.NoError(t, svc.RemoveSession(ctx, "s-1"))
	require.NotContains(t, repo.sessions, "s-1")
}
