// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers and the chat engine to distinguish failure scenarios without
// inspecting raw database errors.
package repository

import "errors"

// ErrNotFound is returned when a referenced row (user, session, room,
// message, recovery token) does not exist. Handlers translate this
// into an HTTP 404 or, for auth lookups, into the session taxonomy.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they are not a participant of or do not own. Handlers
// translate this into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a conditional update loses its race,
// such as rotating an access token whose stored value has already
// moved on. The session layer treats this as token corruption.
var ErrConflict = errors.New("conflict")

// ErrEmailExists is returned on registration when the email is already
// taken by a non-deleted account.
var ErrEmailExists = errors.New("email already exists")
