package middleware // middleware provides shared request processing for handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/creator-marketplace/internal/auth"
	"github.com/iliyamo/creator-marketplace/internal/model"
	"github.com/iliyamo/creator-marketplace/internal/repository"
)

// identityKey is where IsAuthenticated stashes the resolved identity
// in the echo context.
const identityKey = "identity"

// Guard is one composable authorization predicate. A nil return
// admits the request; a non-nil error rejects it with that reason.
type Guard func(c echo.Context) error

// Chain evaluates guards left to right with all-must-pass semantics.
// The first rejecting guard short-circuits evaluation and its reason
// becomes the response; later guards are never invoked.
func Chain(guards ...Guard) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			for _, g := range guards {
				if err := g(c); err != nil {
					return rejectGuard(c, err)
				}
			}
			return next(c)
		}
	}
}

// CurrentIdentity returns the identity stashed by IsAuthenticated.
func CurrentIdentity(c echo.Context) (model.Identity, bool) {
	id, ok := c.Get(identityKey).(model.Identity)
	return id, ok
}

// IsAuthenticated resolves the Authorization bearer token through the
// session manager and attaches the identity to the request context.
func IsAuthenticated(sm *auth.Manager) Guard {
	return func(c echo.Context) error {
		header := c.Request().Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			return auth.ErrUnauthenticated
		}
		raw := strings.TrimPrefix(header, "Bearer ")

		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()
		id, err := sm.Authenticate(ctx, raw)
		if err != nil {
			return err
		}
		c.Set(identityKey, id)
		return nil
	}
}

// IsRole admits when the identity's role is in the allowed set.
// Membership is tested over the closed Role type, never by ad hoc
// string comparison.
func IsRole(roles ...model.Role) Guard {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c echo.Context) error {
		id, ok := CurrentIdentity(c)
		if !ok {
			return auth.ErrUnauthenticated
		}
		if !allowed[id.Role] {
			return repository.ErrForbidden
		}
		return nil
	}
}

// IsOwnerOf admits when the identity's id matches any of the
// candidate owner-reference fields, looked up first among path
// parameters and then in the JSON request body. Different resources
// name their owner column differently (user_id, owner_id, sender_id,
// a :user path segment), so the guard takes the candidate set rather
// than one fixed name.
func IsOwnerOf(fields ...string) Guard {
	return func(c echo.Context) error {
		id, ok := CurrentIdentity(c)
		if !ok {
			return auth.ErrUnauthenticated
		}
		if ownerMatch(c, id.ID, fields) {
			return nil
		}
		return repository.ErrForbidden
	}
}

// IsOwnerOrRole admits on an owner-field match or on role membership.
func IsOwnerOrRole(fields []string, roles ...model.Role) Guard {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c echo.Context) error {
		id, ok := CurrentIdentity(c)
		if !ok {
			return auth.ErrUnauthenticated
		}
		if allowed[id.Role] || ownerMatch(c, id.ID, fields) {
			return nil
		}
		return repository.ErrForbidden
	}
}

func ownerMatch(c echo.Context, userID uint64, fields []string) bool {
	me := strconv.FormatUint(userID, 10)
	for _, f := range fields {
		if v := c.Param(f); v != "" && v == me {
			return true
		}
	}
	body := bodyFields(c)
	for _, f := range fields {
		if v, ok := body[f]; ok && fieldMatches(v, userID, me) {
			return true
		}
	}
	return false
}

// bodyFields reads the JSON body into a flat map and restores the
// request body so the downstream handler can still bind it.
func bodyFields(c echo.Context) map[string]any {
	req := c.Request()
	if req.Body == nil {
		return nil
	}
	buf, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	req.Body = io.NopCloser(bytes.NewReader(buf))
	if err != nil || len(buf) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(buf, &m); err != nil {
		return nil
	}
	return m
}

func fieldMatches(v any, userID uint64, me string) bool {
	switch t := v.(type) {
	case string:
		return t == me
	case float64:
		return t >= 0 && uint64(t) == userID
	}
	return false
}

// rejectGuard translates a guard failure into the HTTP response. The
// messages stay stable and low-information.
func rejectGuard(c echo.Context, err error) error {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated),
		errors.Is(err, auth.ErrSessionExpired):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
