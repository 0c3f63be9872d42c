package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skobelev/storefront/internal/auth"
)

const (
	insertSessionSQL = `INSERT INTO sessions (token, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)`

	getSessionSQL = `SELECT token, user_id, expires_at, created_at FROM sessions WHERE token = $1`

	deleteSessionSQL = `DELETE FROM sessions WHERE token = $1`

	deleteExpiredSessionsSQL = `DELETE FROM sessions WHERE expires_at < $1`
)

var _ auth.SessionRepository = (*SessionRepository)(nil)

// SessionRepository implements auth.SessionRepository backed by PostgreSQL.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository returns a SessionRepository that uses the given pool.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create persists a new session.
func (r *SessionRepository) Create(ctx context.Context, s *auth.Session) error {
	_, err := r.pool.Exec(ctx, insertSessionSQL, s.Token, s.UserID, s.ExpiresAt, s.CreatedAt)
	if err != nil {
		return errors.Wrap(err, "creating session")
	}
	return nil
}

// Get returns the session for the token, or auth.ErrNoSession.
func (r *SessionRepository) Get(ctx context.Context, token string) (*auth.Session, error) {
	var s auth.Session
	err := r.pool.QueryRow(ctx, getSessionSQL, token).
		Scan(&s.Token, &s.UserID, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrNoSession
		}
		return nil, errors.Wrap(err, "getting session")
	}
	return &s, nil
}

// Delete removes the session for the token. Unknown tokens are not an error.
func (r *SessionRepository) Delete(ctx context.Context, token string) error {
	if _, err := r.pool.Exec(ctx, deleteSessionSQL, token); err != nil {
		return errors.Wrap(err, "deleting session")
	}
	return nil
}

// DeleteExpired removes all sessions that expired before now and returns how
// many were deleted.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, deleteExpiredSessionsSQL, now)
	if err != nil {
		return 0, errors.Wrap(err, "deleting expired sessions")
	}
	return tag.RowsAffected(), nil
}
