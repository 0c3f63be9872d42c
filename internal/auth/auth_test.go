package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skobelev/storefront/internal/domain/user"
)

type mockUserRepo struct {
	user.Repository

	byEmail map[string]*user.User
	byID    map[string]*user.User
	updated *user.User
}

func (m *mockUserRepo) FindByEmail(_ context.Context, email string) (*user.User, error) {
	u, ok := m.byEmail[email]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*user.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

func (m *mockUserRepo) Update(_ context.Context, u *user.User) error {
	m.updated = u
	return nil
}

type mockSessionRepo struct {
	byToken map[string]*Session
	deleted string
}

func (m *mockSessionRepo) Create(_ context.Context, s *Session) error {
	if m.byToken == nil {
		m.byToken = make(map[string]*Session)
	}
	m.byToken[s.Token] = s
	return nil
}

func (m *mockSessionRepo) Get(_ context.Context, token string) (*Session, error) {
	s, ok := m.byToken[token]
	if !ok {
		return nil, ErrNoSession
	}
	return s, nil
}

func (m *mockSessionRepo) Delete(_ context.Context, token string) error {
	m.deleted = token
	delete(m.byToken, token)
	return nil
}

func (m *mockSessionRepo) DeleteExpired(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func newFixture(t *testing.T) (*Service, *mockUserRepo, *mockSessionRepo) {
	t.Helper()

	hash, err := HashPassword("sw0rdfish")
	require.NoError(t, err)

	admin := &user.User{ID: "u1", Email: "admin@example.com", PasswordHash: hash}
	users := &mockUserRepo{
		byEmail: map[string]*user.User{"admin@example.com": admin},
		byID:    map[string]*user.User{"u1": admin},
	}
	sessions := &mockSessionRepo{}
	return NewService(users, sessions, time.Hour), users, sessions
}

func TestService_SignIn(t *testing.T) {
	svc, _, _ := newFixture(t)

	t.Run("valid credentials", func(t *testing.T) {
		sess, err := svc.SignIn(context.Background(), "admin@example.com", "sw0rdfish")
		require.NoError(t, err)
		assert.Equal(t, "u1", sess.UserID)
		assert.NotEmpty(t, sess.Token)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.SignIn(context.Background(), "admin@example.com", "nope")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email reports the same error", func(t *testing.T) {
		_, err := svc.SignIn(context.Background(), "ghost@example.com", "sw0rdfish")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestService_CurrentUser(t *testing.T) {
	svc, _, sessions := newFixture(t)

	sess, err := svc.SignIn(context.Background(), "admin@example.com", "sw0rdfish")
	require.NoError(t, err)

	u, err := svc.CurrentUser(context.Background(), sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", u.Email)

	_, err = svc.CurrentUser(context.Background(), "bogus")
	require.ErrorIs(t, err, ErrNoSession)

	// Expired sessions do not resolve.
	sessions.byToken[sess.Token].ExpiresAt = time.Now().Add(-time.Minute)
	_, err = svc.CurrentUser(context.Background(), sess.Token)
	require.ErrorIs(t, err, ErrNoSession)
}

func TestService_SignOut(t *testing.T) {
	svc, _, sessions := newFixture(t)

	sess, err := svc.SignIn(context.Background(), "admin@example.com", "sw0rdfish")
	require.NoError(t, err)

	require.NoError(t, svc.SignOut(context.Background(), sess.Token))
	assert.Equal(t, sess.Token, sessions.deleted)

	_, err = svc.CurrentUser(context.Background(), sess.Token)
	require.ErrorIs(t, err, ErrNoSession)
}

func TestService_PasswordReset(t *testing.T) {
	svc, users, _ := newFixture(t)

	token, err := svc.IssueResetToken(context.Background(), "admin@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NotNil(t, users.updated.ResetToken)

	t.Run("wrong token rejected", func(t *testing.T) {
		err := svc.ResetPassword(context.Background(), "admin@example.com", "bogus", "newpass1")
		require.ErrorIs(t, err, ErrResetTokenInvalid)
	})

	t.Run("valid token replaces password and clears token", func(t *testing.T) {
		require.NoError(t, svc.ResetPassword(context.Background(), "admin@example.com", token, "newpass1"))
		assert.Nil(t, users.updated.ResetToken)

		_, err := svc.SignIn(context.Background(), "admin@example.com", "newpass1")
		require.NoError(t, err)
	})
}
