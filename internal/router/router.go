// Package router wires the HTTP routes of the checkout service.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticket-checkout/internal/handler"
)

// Handlers groups everything RegisterRoutes mounts.
type Handlers struct {
	Health   *handler.HealthHandler
	Catalog  *handler.CatalogHandler
	Booking  *handler.BookingHandler
	Checkout *handler.CheckoutHandler
}

// Middleware groups the route-level middleware.  Session must resolve
// the session before RateLimit keys on it; Cache wraps only catalog reads.
type Middleware struct {
	Session   echo.MiddlewareFunc
	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
}

// RegisterRoutes mounts the health check, the catalog views and the
// session-scoped booking and checkout views.
func RegisterRoutes(e *echo.Echo, h Handlers, mw Middleware) {
	e.GET("/healthz", h.Health.Health)

	// Catalog reads do not depend on the session and may be cached.
	catalogMW := []echo.MiddlewareFunc{mw.Session, mw.RateLimit, mw.Cache}
	e.GET("/", h.Catalog.ListMovies, catalogMW...)
	e.GET("/v1/movies", h.Catalog.ListMovies, catalogMW...)
	e.GET("/v1/movies/:movieId", h.Catalog.GetMovie, catalogMW...)

	v1 := e.Group("/v1", mw.Session, mw.RateLimit)
	v1.GET("/booking/:movieId/:screenId", h.Booking.GetSeatMap)
	v1.POST("/booking/:movieId/:screenId/seats/:seatId", h.Booking.ToggleSeat)
	v1.POST("/booking/:movieId/:screenId/proceed", h.Booking.Proceed)

	v1.GET("/checkout", h.Checkout.GetPayment)
	v1.POST("/checkout", h.Checkout.SubmitPayment)
	v1.GET("/confirmation/:bookingId", h.Checkout.GetConfirmation)
}
