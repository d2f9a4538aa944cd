package auth

import "errors"

// Failure taxonomy for the session lifecycle. Handlers map these onto
// HTTP statuses; messages stay deliberately low-information so a
// caller cannot tell an unknown email from a wrong password.
var (
	// ErrInvalidCredentials: unknown email or wrong password at login.
	ErrInvalidCredentials = errors.New("invalid user credentials")

	// ErrUnauthenticated: missing or unparseable bearer token.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrSessionExpired: token format was fine but the session is
	// revoked, expired, or no longer backed by a valid refresh token.
	// Clients must discard both tokens and log in again.
	ErrSessionExpired = errors.New("invalid or expired session")

	// ErrCorruptedToken: the presented access/refresh pairing does not
	// match stored session state. Treated as potential token replay.
	ErrCorruptedToken = errors.New("corrupted token")

	// ErrPasswordMismatch: password and confirm_password differ.
	ErrPasswordMismatch = errors.New("passwords do not match")

	// ErrInvalidEmail: email fails format validation.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrWeakPassword: password fails the strength policy.
	ErrWeakPassword = errors.New("invalid password format: 6+ characters, upper and lower case, and a number or symbol")

	// ErrInvalidRecovery: recovery token is unknown, already consumed,
	// or older than the retention window.
	ErrInvalidRecovery = errors.New("invalid or expired recovery token")
)
