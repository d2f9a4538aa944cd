package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/creator-marketplace/internal/auth"
	"github.com/iliyamo/creator-marketplace/internal/model"
	"github.com/iliyamo/creator-marketplace/internal/repository"
	"github.com/iliyamo/creator-marketplace/internal/token"
)

// asIdentity is a test guard that plants an identity the way
// IsAuthenticated would, without a session manager behind it.
func asIdentity(id model.Identity) Guard {
	return func(c echo.Context) error {
		c.Set(identityKey, id)
		return nil
	}
}

func runChained(t *testing.T, req *http.Request, pathParams map[string]string, guards ...Guard) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if len(pathParams) > 0 {
		names := make([]string, 0, len(pathParams))
		values := make([]string, 0, len(pathParams))
		for k, v := range pathParams {
			names = append(names, k)
			values = append(values, v)
		}
		c.SetParamNames(names...)
		c.SetParamValues(values...)
	}

	h := Chain(guards...)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	return rec
}

func TestChainShortCircuits(t *testing.T) {
	t.Parallel()

	secondRan := false
	reject := func(echo.Context) error { return repository.ErrForbidden }
	second := func(echo.Context) error {
		secondRan = true
		return nil
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := runChained(t, req, nil, reject, second)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, secondRan, "guards after the rejecting one must not run")
}

func TestChainAllPass(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	pass := func(echo.Context) error { return nil }
	rec := runChained(t, req, nil, pass, pass)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIsRole(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		role    model.Role
		allowed []model.Role
		want    int
	}{
		{"member", model.RoleAdmin, []model.Role{model.RoleAdmin}, http.StatusOK},
		{"one of several", model.RoleArtist, []model.Role{model.RoleArtist, model.RoleAdmin}, http.StatusOK},
		{"outside the set", model.RoleUser, []model.Role{model.RoleArtist, model.RoleAdmin}, http.StatusForbidden},
		{"empty set admits nobody", model.RoleAdmin, nil, http.StatusForbidden},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := runChained(t, req, nil,
				asIdentity(model.Identity{ID: 7, Role: tc.role}),
				IsRole(tc.allowed...),
			)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestIsRoleWithoutIdentity(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := runChained(t, req, nil, IsRole(model.RoleAdmin))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestIsOwnerOfPathParam(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/v1/users/7", nil)
	rec := runChained(t, req, map[string]string{"user": "7"},
		asIdentity(model.Identity{ID: 7, Role: model.RoleUser}),
		IsOwnerOf("user", "user_id"),
	)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = runChained(t, req, map[string]string{"user": "8"},
		asIdentity(model.Identity{ID: 7, Role: model.RoleUser}),
		IsOwnerOf("user", "user_id"),
	)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestIsOwnerOfBodyField(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
		want int
	}{
		{"numeric match", `{"user_id": 7}`, http.StatusOK},
		{"string match", `{"owner_id": "7"}`, http.StatusOK},
		{"wrong owner", `{"user_id": 8}`, http.StatusForbidden},
		{"field absent", `{"title": "x"}`, http.StatusForbidden},
		{"malformed body", `{nope`, http.StatusForbidden},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := runChained(t, req, nil,
				asIdentity(model.Identity{ID: 7, Role: model.RoleUser}),
				IsOwnerOf("user_id", "owner_id"),
			)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestIsOwnerOfPreservesBody(t *testing.T) {
	t.Parallel()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"user_id": 7, "title": "hello"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var bound struct {
		Title string `json:"title"`
	}
	h := Chain(
		asIdentity(model.Identity{ID: 7}),
		IsOwnerOf("user_id"),
	)(func(c echo.Context) error {
		// The handler must still be able to bind after the guard
		// inspected the body.
		if err := c.Bind(&bound); err != nil {
			return err
		}
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", bound.Title)
}

func TestIsOwnerOrRole(t *testing.T) {
	t.Parallel()

	fields := []string{"user"}

	// Admin passes regardless of ownership.
	req := httptest.NewRequest(http.MethodGet, "/v1/users/99", nil)
	rec := runChained(t, req, map[string]string{"user": "99"},
		asIdentity(model.Identity{ID: 1, Role: model.RoleAdmin}),
		IsOwnerOrRole(fields, model.RoleAdmin),
	)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Non-admin owner passes on the ownership arm.
	rec = runChained(t, req, map[string]string{"user": "99"},
		asIdentity(model.Identity{ID: 99, Role: model.RoleUser}),
		IsOwnerOrRole(fields, model.RoleAdmin),
	)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Neither owner nor privileged.
	rec = runChained(t, req, map[string]string{"user": "99"},
		asIdentity(model.Identity{ID: 7, Role: model.RoleUser}),
		IsOwnerOrRole(fields, model.RoleAdmin),
	)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestIsAuthenticatedRejectsBadBearer(t *testing.T) {
	t.Parallel()

	// Nil stores are fine here: both the missing-header and the
	// unverifiable-token paths fail before any store is touched.
	sm := auth.NewManager(nil, nil, nil,
		token.NewCodec("s1", time.Minute), token.NewCodec("s2", time.Hour),
		4, time.Hour)
	guard := IsAuthenticated(sm)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := runChained(t, req, nil, guard)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = runChained(t, req, nil, guard)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRejectGuardMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"unauthenticated", auth.ErrUnauthenticated, http.StatusUnauthorized},
		{"session expired", auth.ErrSessionExpired, http.StatusUnauthorized},
		{"forbidden", repository.ErrForbidden, http.StatusForbidden},
		{"anything else", assert.AnError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := runChained(t, req, nil, func(echo.Context) error { return tc.err })
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}
