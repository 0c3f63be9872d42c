// Package auth implements credential sign-in and token sessions for the
// admin surface.
package auth

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/skobelev/storefront/internal/domain/user"
)

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong
	// password. The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrNoSession is returned when a session token is unknown or expired.
	ErrNoSession = errors.New("no active session")
	// ErrResetTokenInvalid is returned for an unknown or expired password
	// reset token.
	ErrResetTokenInvalid = errors.New("reset token is invalid or expired")
)

// Session is an authenticated admin session.
type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// SessionRepository persists sessions.
type SessionRepository interface {
	Create(ctx context.Context, s *Session) error
	// Get returns ErrNoSession for unknown tokens.
	Get(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Service signs users in and out and resolves session tokens to users.
type Service struct {
	users    user.Repository
	sessions SessionRepository
	ttl      time.Duration
	resetTTL time.Duration
	now      func() time.Time
}

// NewService creates an auth Service. Sessions live for ttl after creation.
func NewService(users user.Repository, sessions SessionRepository, ttl time.Duration) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		ttl:      ttl,
		resetTTL: time.Hour,
		now:      time.Now,
	}
}

// HashPassword produces a bcrypt hash for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "hash password")
	}
	return string(hash), nil
}

// SignIn verifies the credentials and creates a session.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, "find user")
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	sess := &Session{
		Token:     uuid.New().String(),
		UserID:    u.ID,
		ExpiresAt: s.now().Add(s.ttl),
		CreatedAt: s.now(),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, errors.Wrap(err, "create session")
	}
	return sess, nil
}

// SignOut deletes the session for the given token. Unknown tokens are not
// an error.
func (s *Service) SignOut(ctx context.Context, token string) error {
	if err := s.sessions.Delete(ctx, token); err != nil && !errors.Is(err, ErrNoSession) {
		return errors.Wrap(err, "delete session")
	}
	return nil
}

// CurrentUser resolves a session token to its user, with roles and
// permissions loaded.
func (s *Service) CurrentUser(ctx context.Context, token string) (*user.User, error) {
	sess, err := s.sessions.Get(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return nil, ErrNoSession
		}
		return nil, errors.Wrap(err, "get session")
	}
	if s.now().After(sess.ExpiresAt) {
		return nil, ErrNoSession
	}

	u, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrNoSession
		}
		return nil, errors.Wrap(err, "load user")
	}
	return u, nil
}

// IssueResetToken attaches a fresh password reset token to the account and
// returns it. Unknown emails return user.ErrNotFound; callers typically
// hide that from the requester.
func (s *Service) IssueResetToken(ctx context.Context, email string) (string, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	token := uuid.New().String()
	expires := s.now().Add(s.resetTTL)
	u.ResetToken = &token
	u.ResetExpiresAt = &expires

	if err := s.users.Update(ctx, u); err != nil {
		return "", errors.Wrap(err, "store reset token")
	}
	return token, nil
}

// ResetPassword verifies the reset token for the account and replaces the
// password, clearing the token.
func (s *Service) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrResetTokenInvalid
		}
		return errors.Wrap(err, "find user")
	}

	if u.ResetToken == nil || *u.ResetToken != token {
		return ErrResetTokenInvalid
	}
	if u.ResetExpiresAt == nil || s.now().After(*u.ResetExpiresAt) {
		return ErrResetTokenInvalid
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.ResetToken = nil
	u.ResetExpiresAt = nil

	return errors.Wrap(s.users.Update(ctx, u), "update password")
}
