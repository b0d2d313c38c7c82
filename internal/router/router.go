package router

import (
	"database/sql"

	"github.com/labstack/echo/v4"

	"github.com/avierra/space-reservation/internal/handler"
	"github.com/avierra/space-reservation/internal/middleware"
	"github.com/avierra/space-reservation/internal/model"
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers all authentication-related routes and applies the
// necessary middleware.  Unauthenticated operations live under /v1/auth,
// while protected endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Rotates the refresh token.
	g.POST("/refresh", a.Refresh)
	// Issues a new access token without rotating the refresh token.
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout accepts a refresh_token body or a bearer header; it does not
	// require the JWT middleware so expired sessions can still log out.
	g.POST("/logout", a.Logout)
	e.POST("/v1/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole(model.RoleClient, model.RoleOperator, model.RoleAdmin))
	auth.GET("/me", a.Me)
}

// RegisterSpaces registers the space catalogue, availability and quote
// endpoints.  These are browse endpoints and do not require a session.
func RegisterSpaces(e *echo.Echo, s *handler.SpaceHandler) {
	e.GET("/v1/spaces", s.List)
	e.GET("/v1/spaces/:id", s.Get)
	// Check whether an interval is free: ?start_date&end_date[&start_time&end_time]
	e.GET("/v1/spaces/:id/availability", s.Availability)
	// Price an interval without reserving anything.
	e.POST("/v1/spaces/:id/quote", s.Quote)
}

// RegisterReservations registers the reservation lifecycle endpoints.  All
// of them require a valid access token; finer-grained authorization (who
// may read, confirm or cancel which reservation) happens in the service.
func RegisterReservations(e *echo.Echo, r *handler.ReservationHandler, jwtSecret string) {
	g := e.Group("/v1/reservations")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(model.RoleClient, model.RoleOperator, model.RoleAdmin))

	g.POST("", r.Create)
	g.GET("", r.List)
	g.GET("/:id", r.Get)
	g.PATCH("/:id", r.Update)
	g.POST("/:id/confirm", r.Confirm)
	g.POST("/:id/complete", r.Complete)
	g.POST("/:id/cancel", r.Cancel)
}
