package model

import "time"

// Session mirrors the `sessions` table.  One row per login: the
// refresh token is fixed for the session's lifetime, the access
// token is rotated in place on refresh.  Expiry is terminal; an
// expired session is never reactivated.
type Session struct {
	ID           uint64    // sessions.id
	UserID       uint64    // sessions.user_id
	RefreshToken string    // sessions.refresh_token (unique)
	AccessToken  string    // sessions.access_token (current issuance)
	Expired      bool      // sessions.expired
	CreatedAt    time.Time // sessions.created_at
}

// RecoveryToken mirrors the `recovery_tokens` table.  A row is a
// one-time password-reset grant: once Expired is set it never
// authorizes another reset, regardless of age.
type RecoveryToken struct {
	ID        uint64    // recovery_tokens.id
	UserID    uint64    // recovery_tokens.user_id
	Token     string    // recovery_tokens.token (opaque hex)
	Expired   bool      // recovery_tokens.expired (consumed flag)
	CreatedAt time.Time // recovery_tokens.created_at
}
