package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/creator-marketplace/internal/auth"
	"github.com/iliyamo/creator-marketplace/internal/handler"
	"github.com/iliyamo/creator-marketplace/internal/middleware"
	"github.com/iliyamo/creator-marketplace/internal/model"
)

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication endpoints. Unauthenticated
// operations live under /v1/auth behind the rate limiter; protected
// endpoints sit behind the guard chain.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, sm *auth.Manager, limiter echo.MiddlewareFunc) {
	// Credential endpoints: no session yet, rate limited to slow
	// brute-force attempts.
	g := e.Group("/v1/auth", limiter)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)
	g.POST("/forgot-password", a.ForgotPassword)
	g.POST("/reset-password", a.ResetPassword)

	// Who-am-I for any authenticated caller.
	e.GET("/v1/me", a.Me, middleware.Chain(middleware.IsAuthenticated(sm)))

	// Account lookup: the owner (matched against the :user segment or
	// a user_id body field) or an admin.
	e.GET("/v1/users/:user", a.User, middleware.Chain(
		middleware.IsAuthenticated(sm),
		middleware.IsOwnerOrRole([]string{"user", "user_id"}, model.RoleAdmin),
	))
}

// RegisterChat registers the chat REST surface and the websocket
// endpoint. Every route requires a resolved identity; room-level
// participant checks happen inside the engine.
func RegisterChat(e *echo.Echo, ch *handler.ChatHandler, sm *auth.Manager) {
	authed := middleware.Chain(middleware.IsAuthenticated(sm))

	e.GET("/v1/chats", ch.Rooms, authed)
	e.POST("/v1/chats", ch.StartRoom, authed)
	e.GET("/v1/chats/:id", ch.Room, authed)
	e.GET("/v1/chat/ws", ch.ServeWS, authed)
}
