// Package auth implements the session lifecycle: login, request
// authentication, access-token rotation, logout and password
// recovery. It owns the decision logic only; persistence sits behind
// the store interfaces and token signing behind internal/token.
package auth

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/creator-marketplace/internal/model"
	"github.com/iliyamo/creator-marketplace/internal/repository"
	"github.com/iliyamo/creator-marketplace/internal/token"
)

// TokenPair is what a successful login hands back to the client.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RegisterInput carries the registration form.
type RegisterInput struct {
	Email           string
	Password        string
	ConfirmPassword string
	DisplayName     string
	Artist          bool
}

// Manager drives the session state machine. A session is created on
// login and only ever moves active -> expired; the trigger is an
// explicit logout, a refresh-token failure discovered during
// authenticate, or a password reset revoking every session.
type Manager struct {
	users    UserStore
	sessions SessionStore
	recovery RecoveryStore

	access  *token.Codec // short TTL, embeds session id + role
	refresh *token.Codec // long TTL, embeds user id + client + role

	bcryptCost  int
	recoveryTTL time.Duration
}

// NewManager wires the manager's collaborators. recoveryTTL bounds how
// long a password-recovery token stays usable.
func NewManager(users UserStore, sessions SessionStore, recovery RecoveryStore, access, refresh *token.Codec, bcryptCost int, recoveryTTL time.Duration) *Manager {
	return &Manager{
		users:       users,
		sessions:    sessions,
		recovery:    recovery,
		access:      access,
		refresh:     refresh,
		bcryptCost:  bcryptCost,
		recoveryTTL: recoveryTTL,
	}
}

// Register validates the form and creates a new identity. Artists
// self-select at registration; admin accounts are never created here.
func (m *Manager) Register(ctx context.Context, in RegisterInput) (model.Identity, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if !checkEmail(email) {
		return model.Identity{}, ErrInvalidEmail
	}
	if !checkPassword(in.Password) {
		return model.Identity{}, ErrWeakPassword
	}
	if in.Password != in.ConfirmPassword {
		return model.Identity{}, ErrPasswordMismatch
	}

	role := model.RoleUser
	if in.Artist {
		role = model.RoleArtist
	}
	hash, err := HashPassword(in.Password, m.bcryptCost)
	if err != nil {
		return model.Identity{}, err
	}
	id, err := m.users.CreateUser(ctx, email, hash, strings.TrimSpace(in.DisplayName), role)
	if err != nil {
		return model.Identity{}, err
	}
	return model.Identity{ID: id, Email: email, DisplayName: strings.TrimSpace(in.DisplayName), Role: role}, nil
}

// Login verifies the credentials and opens a session. The persist /
// mint / persist-again sequence is deliberate: the access token embeds
// the session id, which does not exist until the row is created.
func (m *Manager) Login(ctx context.Context, email, password, client string) (TokenPair, model.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := m.users.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return TokenPair{}, model.Identity{}, ErrInvalidCredentials
		}
		return TokenPair{}, model.Identity{}, err
	}
	if u.DeletedAt != nil || !VerifyPassword(u.PasswordHash, password) {
		return TokenPair{}, model.Identity{}, ErrInvalidCredentials
	}

	refreshTok, err := m.refresh.Sign(jwt.MapClaims{
		"sub":    u.ID,
		"client": client,
		"role":   string(u.Role),
	})
	if err != nil {
		return TokenPair{}, model.Identity{}, err
	}
	sid, err := m.sessions.CreateSession(ctx, u.ID, refreshTok)
	if err != nil {
		return TokenPair{}, model.Identity{}, err
	}
	accessTok, err := m.mintAccess(sid, u.Role)
	if err != nil {
		return TokenPair{}, model.Identity{}, err
	}
	if err := m.sessions.SetAccessToken(ctx, sid, accessTok); err != nil {
		return TokenPair{}, model.Identity{}, err
	}
	return TokenPair{AccessToken: accessTok, RefreshToken: refreshTok}, u.Identity(), nil
}

// Authenticate resolves a bearer access token to an identity. If the
// session's parent refresh token no longer verifies, the session is
// eagerly expired before failing: a stale access token must revoke
// rather than silently succeed.
func (m *Manager) Authenticate(ctx context.Context, accessToken string) (model.Identity, error) {
	if accessToken == "" {
		return model.Identity{}, ErrUnauthenticated
	}
	if _, err := m.access.Verify(accessToken); err != nil {
		return model.Identity{}, ErrUnauthenticated
	}

	s, err := m.sessions.SessionByAccessToken(ctx, accessToken)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Identity{}, ErrSessionExpired
		}
		return model.Identity{}, err
	}
	if s.Expired {
		return model.Identity{}, ErrSessionExpired
	}
	if _, err := m.refresh.Verify(s.RefreshToken); err != nil {
		if err := m.sessions.ExpireSession(ctx, s.ID); err != nil {
			log.Printf("auth: expiring session %d after refresh failure: %v", s.ID, err)
		}
		return model.Identity{}, ErrSessionExpired
	}

	u, err := m.users.UserByID(ctx, s.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Identity{}, ErrSessionExpired
		}
		return model.Identity{}, err
	}
	if u.DeletedAt != nil {
		if err := m.sessions.ExpireSession(ctx, s.ID); err != nil {
			log.Printf("auth: expiring session %d of deleted user: %v", s.ID, err)
		}
		return model.Identity{}, ErrSessionExpired
	}
	return u.Identity(), nil
}

// Refresh rotates the access token of the session owning
// refreshToken. The presented access token must equal the session's
// currently stored one: an old access token alongside a valid refresh
// token signals replay and is rejected. Rotation itself is a
// conditional swap keyed on the previous value, so of two concurrent
// refreshes exactly one wins and the loser fails here, not later.
func (m *Manager) Refresh(ctx context.Context, refreshToken, presentedAccess string) (string, model.Identity, error) {
	claims, err := m.refresh.Verify(refreshToken)
	if err != nil {
		return "", model.Identity{}, ErrSessionExpired
	}
	s, err := m.sessions.SessionByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", model.Identity{}, ErrCorruptedToken
		}
		return "", model.Identity{}, err
	}
	if s.Expired {
		return "", model.Identity{}, ErrSessionExpired
	}
	// The sub claim and the row's owner must agree; a token that
	// resolves to a differently-owned session is corrupt.
	if sub, ok := token.Uint64Claim(claims, "sub"); !ok || sub != s.UserID {
		return "", model.Identity{}, ErrCorruptedToken
	}
	if s.AccessToken != presentedAccess {
		return "", model.Identity{}, ErrCorruptedToken
	}

	u, err := m.users.UserByID(ctx, s.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", model.Identity{}, ErrSessionExpired
		}
		return "", model.Identity{}, err
	}
	if u.DeletedAt != nil {
		return "", model.Identity{}, ErrSessionExpired
	}

	next, err := m.mintAccess(s.ID, u.Role)
	if err != nil {
		return "", model.Identity{}, err
	}
	if err := m.sessions.SwapAccessToken(ctx, s.ID, presentedAccess, next); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return "", model.Identity{}, ErrCorruptedToken
		}
		return "", model.Identity{}, err
	}
	return next, u.Identity(), nil
}

// Logout marks the owning session expired. Logging out an already
// expired or unknown session is not an error.
func (m *Manager) Logout(ctx context.Context, accessToken string) error {
	if _, err := m.access.Verify(accessToken); err != nil {
		return ErrUnauthenticated
	}
	s, err := m.sessions.SessionByAccessToken(ctx, accessToken)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	return m.sessions.ExpireSession(ctx, s.ID)
}

// User returns the sanitized view of an identity by id.
func (m *Manager) User(ctx context.Context, id uint64) (model.Identity, error) {
	u, err := m.users.UserByID(ctx, id)
	if err != nil {
		return model.Identity{}, err
	}
	if u.DeletedAt != nil {
		return model.Identity{}, repository.ErrNotFound
	}
	return u.Identity(), nil
}

// ForgotPassword creates a one-time recovery grant and returns the
// opaque token. The caller must answer identically whether or not the
// email exists; only the returned token (handed to the notification
// pipeline, never the HTTP response) differs.
func (m *Manager) ForgotPassword(ctx context.Context, email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !checkEmail(email) {
		return "", ErrInvalidEmail
	}
	u, err := m.users.UserByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if u.DeletedAt != nil {
		return "", repository.ErrNotFound
	}
	tok, err := token.RandomHex(32)
	if err != nil {
		return "", err
	}
	if err := m.recovery.CreateRecoveryToken(ctx, u.ID, tok, time.Now().UTC()); err != nil {
		return "", err
	}
	return tok, nil
}

// ResetPassword consumes a recovery token and replaces the password.
// The token is single-use on success: a mismatched confirmation fails
// before the token is touched and leaves it usable for one further
// correct attempt. Every session of the identity is revoked.
func (m *Manager) ResetPassword(ctx context.Context, rawToken, password, confirm string) error {
	if !checkPassword(password) {
		return ErrWeakPassword
	}
	if password != confirm {
		return ErrPasswordMismatch
	}

	rt, err := m.recovery.RecoveryToken(ctx, rawToken)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidRecovery
		}
		return err
	}
	if rt.Expired || time.Since(rt.CreatedAt) > m.recoveryTTL {
		return ErrInvalidRecovery
	}

	hash, err := HashPassword(password, m.bcryptCost)
	if err != nil {
		return err
	}
	if err := m.users.UpdatePassword(ctx, rt.UserID, hash); err != nil {
		return err
	}
	if err := m.recovery.ConsumeRecoveryToken(ctx, rawToken); err != nil {
		return err
	}
	if err := m.sessions.ExpireUserSessions(ctx, rt.UserID); err != nil {
		log.Printf("auth: revoking sessions of user %d after reset: %v", rt.UserID, err)
	}
	return nil
}

func (m *Manager) mintAccess(sessionID uint64, role model.Role) (string, error) {
	return m.access.Sign(jwt.MapClaims{
		"sid":  sessionID,
		"role": string(role),
	})
}
