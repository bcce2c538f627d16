package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-ticket-checkout/internal/fare"
	"github.com/iliyamo/cinema-ticket-checkout/internal/middleware"
	"github.com/iliyamo/cinema-ticket-checkout/internal/model"
	"github.com/iliyamo/cinema-ticket-checkout/internal/service"
)

// BookingHandler serves the seat booking view of one show.  The show is
// addressed by movie and screen path parameters and the ?time= query.
type BookingHandler struct {
	Bookings *service.BookingService
	Log      logrus.FieldLogger
}

// NewBookingHandler panics if a dependency is missing.
func NewBookingHandler(bookings *service.BookingService, log logrus.FieldLogger) *BookingHandler {
	if bookings == nil || log == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Bookings: bookings, Log: log}
}

// GetSeatMap returns the seat grid and booking summary.
func (h *BookingHandler) GetSeatMap(c echo.Context) error {
	view, err := h.Bookings.OpenShow(c.Request().Context(), middleware.SessionID(c),
		c.Param("movieId"), c.Param("screenId"), c.QueryParam("time"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, view)
}

// ToggleSeat applies a click on :seatId.  Clicks on booked or held seats
// succeed with changed=false.
func (h *BookingHandler) ToggleSeat(c echo.Context) error {
	view, changed, err := h.Bookings.ToggleSeat(c.Request().Context(), middleware.SessionID(c),
		c.Param("movieId"), c.Param("screenId"), c.QueryParam("time"), model.SeatID(c.Param("seatId")))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"changed": changed, "seatMap": view})
}

// Proceed stores the selection as the session's draft and points the
// client at the payment view.
func (h *BookingHandler) Proceed(c echo.Context) error {
	d, err := h.Bookings.ProceedToPayment(c.Request().Context(), middleware.SessionID(c),
		c.Param("movieId"), c.Param("screenId"), c.QueryParam("time"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	c.Response().Header().Set(echo.HeaderLocation, "/v1/checkout")
	return c.JSON(http.StatusCreated, echo.Map{"draft": d, "fare": fare.ForDraft(d)})
}
