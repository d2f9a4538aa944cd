package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/creator-marketplace/internal/model"
)

// SessionRepo persists login sessions (single row per login; the
// access_token column is rotated in place).
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

// CreateSession inserts a session row keyed by its refresh token and
// returns the new id. The access token is stamped on afterwards, once
// it has been minted with this id embedded.
func (r *SessionRepo) CreateSession(ctx context.Context, userID uint64, refreshToken string) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO sessions (user_id, refresh_token) VALUES (?,?)",
		userID, refreshToken)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// SessionByRefreshToken fetches a session by its refresh token.
func (r *SessionRepo) SessionByRefreshToken(ctx context.Context, refreshToken string) (model.Session, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT id,user_id,refresh_token,access_token,expired,created_at FROM sessions WHERE refresh_token=? LIMIT 1",
		refreshToken))
}

// SessionByAccessToken fetches a session by its current access token.
func (r *SessionRepo) SessionByAccessToken(ctx context.Context, accessToken string) (model.Session, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT id,user_id,refresh_token,access_token,expired,created_at FROM sessions WHERE access_token=? LIMIT 1",
		accessToken))
}

// SetAccessToken stamps the first access token onto a session.
func (r *SessionRepo) SetAccessToken(ctx context.Context, sessionID uint64, accessToken string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET access_token=? WHERE id=?",
		accessToken, sessionID)
	return err
}

// SwapAccessToken rotates the access token only while the stored
// value still equals prev, so concurrent rotations resolve to exactly
// one winner. The loser gets ErrConflict.
func (r *SessionRepo) SwapAccessToken(ctx context.Context, sessionID uint64, prev, next string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET access_token=? WHERE id=? AND access_token=?",
		next, sessionID, prev)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// ExpireSession marks a session expired. Expiry is terminal.
func (r *SessionRepo) ExpireSession(ctx context.Context, sessionID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET expired=1 WHERE id=?", sessionID)
	return err
}

// ExpireUserSessions marks every active session of a user expired.
func (r *SessionRepo) ExpireUserSessions(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET expired=1 WHERE user_id=? AND expired=0", userID)
	return err
}

func (r *SessionRepo) scanOne(row *sql.Row) (model.Session, error) {
	var (
		s      model.Session
		access sql.NullString
	)
	err := row.Scan(&s.ID, &s.UserID, &s.RefreshToken, &access, &s.Expired, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, ErrNotFound
	}
	if err != nil {
		return model.Session{}, err
	}
	// A null access token means the login crashed between the two
	// writes of session creation; such a row can never authenticate.
	s.AccessToken = access.String
	return s, nil
}
