package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/creator-marketplace/internal/auth"
	"github.com/iliyamo/creator-marketplace/internal/config"
	"github.com/iliyamo/creator-marketplace/internal/middleware"
	"github.com/iliyamo/creator-marketplace/internal/model"
	"github.com/iliyamo/creator-marketplace/internal/queue"
	"github.com/iliyamo/creator-marketplace/internal/repository"
)

// refreshCookie is the cookie carrying the refresh token. Clients may
// present the token either this way or as a request-body field; both
// transports are accepted.
const refreshCookie = "refresh_token"

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Sessions *auth.Manager
}

func NewAuthHandler(cfg config.Config, sm *auth.Manager) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Sessions: sm}
}

// ----- DTOs -----

type registerReq struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	DisplayName     string `json:"display_name"`
	IsArtist        bool   `json:"is_artist"`
	Client          string `json:"client"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Client   string `json:"client"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
	AccessToken  string `json:"access_token"`
}
type forgotReq struct {
	Email string `json:"email"`
}
type resetReq struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type authResp struct {
	User         model.Identity `json:"user"`
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
}

// Register creates an account and logs it straight in, returning the
// fresh token pair alongside the sanitized user.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Sessions.Register(ctx, auth.RegisterInput{
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		DisplayName:     req.DisplayName,
		Artist:          req.IsArtist,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		case errors.Is(err, auth.ErrInvalidEmail),
			errors.Is(err, auth.ErrWeakPassword),
			errors.Is(err, auth.ErrPasswordMismatch):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	_ = queue.Publish(ctx, queue.NotificationEvent{
		Kind:       queue.KindUserRegistered,
		UserID:     id.ID,
		Email:      id.Email,
		Role:       string(id.Role),
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	})

	pair, user, err := h.Sessions.Login(ctx, req.Email, req.Password, req.Client)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	h.setRefreshCookie(c, pair.RefreshToken)
	return c.JSON(http.StatusCreated, authResp{User: user, AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

// Login verifies credentials and opens a session.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	pair, user, err := h.Sessions.Login(ctx, req.Email, req.Password, req.Client)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}
	h.setRefreshCookie(c, pair.RefreshToken)
	return c.JSON(http.StatusOK, authResp{User: user, AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

// Refresh rotates the access token. The refresh token is read from
// the body or from the signed-in cookie; the currently held access
// token must be presented too, via body field or bearer header.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)

	refresh := strings.TrimSpace(req.RefreshToken)
	if refresh == "" {
		if ck, err := c.Cookie(refreshCookie); err == nil {
			refresh = ck.Value
		}
	}
	access := strings.TrimSpace(req.AccessToken)
	if access == "" {
		access = bearerToken(c)
	}
	if refresh == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	next, user, err := h.Sessions.Refresh(ctx, refresh, access)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrCorruptedToken):
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "corrupted token"})
		case errors.Is(err, auth.ErrSessionExpired):
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired session"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refresh failed"})
	}
	return c.JSON(http.StatusOK, authResp{User: user, AccessToken: next, RefreshToken: refresh})
}

// Logout expires the session owning the presented access token.
// Logging out twice is not an error.
func (h *AuthHandler) Logout(c echo.Context) error {
	access := bearerToken(c)
	if access == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "bearer token required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Sessions.Logout(ctx, access); err != nil {
		if errors.Is(err, auth.ErrUnauthenticated) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	h.clearRefreshCookie(c)
	return c.NoContent(http.StatusNoContent)
}

// ForgotPassword issues a recovery grant. The response is identical
// whether or not the email belongs to an account; the token only
// travels through the notification pipeline.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tok, err := h.Sessions.ForgotPassword(ctx, req.Email)
	switch {
	case err == nil:
		_ = queue.Publish(ctx, queue.NotificationEvent{
			Kind:       queue.KindRecoveryRequested,
			Email:      strings.ToLower(strings.TrimSpace(req.Email)),
			Recovery:   tok,
			OccurredAt: time.Now().UTC().Format(time.RFC3339),
		})
	case errors.Is(err, auth.ErrInvalidEmail):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrNotFound):
		// fall through to the generic accepted response
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "recovery failed"})
	}
	return c.JSON(http.StatusAccepted, echo.Map{
		"message": "if the account exists, a recovery token has been issued",
	})
}

// ResetPassword consumes a recovery token and replaces the password.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Sessions.ResetPassword(ctx, req.Token, req.Password, req.ConfirmPassword); err != nil {
		switch {
		case errors.Is(err, auth.ErrWeakPassword), errors.Is(err, auth.ErrPasswordMismatch):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		case errors.Is(err, auth.ErrInvalidRecovery):
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reset failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated identity.
func (h *AuthHandler) Me(c echo.Context) error {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user": id})
}

// User returns the public view of one account. Route access is gated
// by the owner-or-admin guard chain.
func (h *AuthHandler) User(c echo.Context) error {
	uid, err := strconv.ParseUint(c.Param("user"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Sessions.User(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user": id})
}

func (h *AuthHandler) setRefreshCookie(c echo.Context, tok string) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookie,
		Value:    tok,
		Path:     "/v1/auth",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Now().UTC().Add(time.Duration(h.Cfg.RefreshTTLDays) * 24 * time.Hour),
	})
}

func (h *AuthHandler) clearRefreshCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookie,
		Value:    "",
		Path:     "/v1/auth",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// bearerToken pulls the raw access token out of the Authorization
// header, or "" when no bearer credential is present.
func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}
