// Package router wires HTTP routes to their handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/Dilaxno/photomark-backend/internal/handler"
	"github.com/Dilaxno/photomark-backend/internal/middleware"
)

// RegisterRoutes registers routes that carry no middleware at all.
// Currently that is only the health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterPublic registers the visitor-facing booking flow under /v1.
// Every route is rate-limited; the availability listing additionally runs
// through the short-TTL response cache.
func RegisterPublic(e *echo.Echo, h *handler.PublicHandler, limit, cache echo.MiddlewareFunc) {
	g := e.Group("/v1", limit)
	g.GET("/dates/:id/slots", h.ListDateSlots, cache)
	g.POST("/slots/:id/hold", h.PlaceHold)
	g.PUT("/slots/:id/hold", h.RenewHold)
	g.DELETE("/slots/:id/hold", h.ReleaseHold)
	g.POST("/slots/:id/confirm", h.ConfirmSlot)
	g.POST("/sessions/:id/waitlist", h.JoinWaitlist)
}

// RegisterOwner registers studio management endpoints under /v1/owner.
// All routes require a valid JWT with the OWNER role.
func RegisterOwner(e *echo.Echo, h *handler.OwnerHandler, jwtSecret string) {
	g := e.Group(
		"/v1/owner",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("OWNER"),
	)
	g.POST("/sessions", h.CreateSession)
	g.GET("/sessions", h.ListSessions)
	g.GET("/sessions/:id", h.GetSession)
	g.PATCH("/sessions/:id", h.UpdateSession)
	g.POST("/sessions/:id/dates", h.CreateDate)
	g.DELETE("/dates/:id", h.DeleteDate)
	g.GET("/dates/:id/bookings", h.ListDateBookings)
	g.DELETE("/bookings/:id", h.CancelBooking)
}
