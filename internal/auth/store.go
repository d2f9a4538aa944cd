package auth

import (
	"context"
	"time"

	"github.com/iliyamo/creator-marketplace/internal/model"
)

// The session manager talks to persistence through these interfaces.
// The MySQL implementations live in internal/repository; tests swap in
// in-memory fakes. All lookups return repository.ErrNotFound when the
// row is absent.

// UserStore persists identity records.
type UserStore interface {
	CreateUser(ctx context.Context, email, passwordHash, displayName string, role model.Role) (uint64, error)
	UserByEmail(ctx context.Context, email string) (model.User, error)
	UserByID(ctx context.Context, id uint64) (model.User, error)
	UpdatePassword(ctx context.Context, id uint64, passwordHash string) error
}

// SessionStore persists login sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, userID uint64, refreshToken string) (uint64, error)
	SessionByRefreshToken(ctx context.Context, refreshToken string) (model.Session, error)
	SessionByAccessToken(ctx context.Context, accessToken string) (model.Session, error)
	// SetAccessToken stamps the first access token onto a freshly
	// created session row.
	SetAccessToken(ctx context.Context, sessionID uint64, accessToken string) error
	// SwapAccessToken rotates the access token conditionally: the
	// update only applies while the stored value still equals prev.
	// Returns repository.ErrConflict when another rotation won.
	SwapAccessToken(ctx context.Context, sessionID uint64, prev, next string) error
	ExpireSession(ctx context.Context, sessionID uint64) error
	ExpireUserSessions(ctx context.Context, userID uint64) error
}

// RecoveryStore persists one-time password-reset grants.
type RecoveryStore interface {
	CreateRecoveryToken(ctx context.Context, userID uint64, tok string, createdAt time.Time) error
	RecoveryToken(ctx context.Context, tok string) (model.RecoveryToken, error)
	ConsumeRecoveryToken(ctx context.Context, tok string) error
}
