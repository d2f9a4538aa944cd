package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/creator-marketplace/internal/model"
)

// RecoveryRepo persists one-time password-reset grants.
type RecoveryRepo struct{ DB *sql.DB }

func NewRecoveryRepo(db *sql.DB) *RecoveryRepo { return &RecoveryRepo{DB: db} }

// CreateRecoveryToken inserts a recovery grant.
func (r *RecoveryRepo) CreateRecoveryToken(ctx context.Context, userID uint64, tok string, createdAt time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO recovery_tokens (user_id, token, created_at) VALUES (?,?,?)",
		userID, tok, createdAt)
	return err
}

// RecoveryToken fetches a grant by its opaque token value.
func (r *RecoveryRepo) RecoveryToken(ctx context.Context, tok string) (model.RecoveryToken, error) {
	var rt model.RecoveryToken
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,user_id,token,expired,created_at FROM recovery_tokens WHERE token=? LIMIT 1",
		tok).Scan(&rt.ID, &rt.UserID, &rt.Token, &rt.Expired, &rt.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RecoveryToken{}, ErrNotFound
	}
	if err != nil {
		return model.RecoveryToken{}, err
	}
	return rt, nil
}

// ConsumeRecoveryToken marks a grant spent. A consumed token never
// authorizes a further reset.
func (r *RecoveryRepo) ConsumeRecoveryToken(ctx context.Context, tok string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE recovery_tokens SET expired=1 WHERE token=?", tok)
	return err
}
