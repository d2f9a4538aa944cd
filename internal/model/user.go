package model

import "time"

// Role is the closed set of account roles.  Roles are compared by
// value in the authorization layer; anything outside this set is
// rejected at parse time rather than silently treated as a user.
type Role string

const (
	RoleUser   Role = "user"
	RoleArtist Role = "artist"
	RoleAdmin  Role = "admin"
)

// ParseRole maps a raw string onto a Role.  The second return value
// reports whether the input named a known role.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleUser, RoleArtist, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

// User mirrors the `users` table.  Accounts are never physically
// removed; DeletedAt carries the soft-delete tombstone and a user
// with a non-nil DeletedAt must not authenticate.
type User struct {
	ID           uint64     // users.id
	Email        string     // users.email (unique among non-deleted rows)
	PasswordHash string     // users.password_hash (bcrypt)
	DisplayName  string     // users.display_name
	Role         Role       // users.role
	DeletedAt    *time.Time // users.deleted_at (nullable tombstone)
	CreatedAt    time.Time  // users.created_at
	UpdatedAt    time.Time  // users.updated_at
}

// Identity is the sanitized view of a User handed to handlers and
// guards after authentication.  It never carries the password hash
// or the tombstone.
type Identity struct {
	ID          uint64 `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        Role   `json:"role"`
}

// Identity strips the sensitive fields from a User.
func (u User) Identity() Identity {
	return Identity{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName, Role: u.Role}
}
