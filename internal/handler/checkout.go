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

// CheckoutHandler serves the payment and confirmation views.
type CheckoutHandler struct {
	Checkout *service.CheckoutService
	Bookings *service.BookingService
	Log      logrus.FieldLogger
}

// NewCheckoutHandler panics if a dependency is missing.
func NewCheckoutHandler(checkout *service.CheckoutService, bookings *service.BookingService, log logrus.FieldLogger) *CheckoutHandler {
	if checkout == nil || bookings == nil || log == nil {
		panic("nil dependency passed to NewCheckoutHandler")
	}
	return &CheckoutHandler{Checkout: checkout, Bookings: bookings, Log: log}
}

type paymentView struct {
	Draft model.BookingDraft    `json:"draft"`
	Fare  fare.Fare             `json:"fare"`
	State service.CheckoutState `json:"state"`
}

type submitPaymentRequest struct {
	PaymentMethod model.PaymentMethod `json:"paymentMethod"`
}

// GetPayment returns the draft awaiting payment.  With no draft the
// client is sent home.
func (h *CheckoutHandler) GetPayment(c echo.Context) error {
	session := middleware.SessionID(c)
	d, f, err := h.Checkout.PaymentSummary(c.Request().Context(), session)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, paymentView{Draft: d, Fare: f, State: h.Checkout.State(session)})
}

// SubmitPayment pays for the draft.  The request blocks for the gateway's
// processing time; a client that disconnects abandons the attempt.
func (h *CheckoutHandler) SubmitPayment(c echo.Context) error {
	var req submitPaymentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	session := middleware.SessionID(c)
	conf, err := h.Checkout.Submit(c.Request().Context(), session, req.PaymentMethod)
	if err != nil && conf.BookingID == "" {
		return respondError(c, h.Log, err)
	}
	// conf with an error means the booking stands but the draft was not
	// cleared; the client still gets its confirmation.
	h.Bookings.Forget(session)
	c.Response().Header().Set(echo.HeaderLocation, "/v1/confirmation/"+conf.BookingID)
	return c.JSON(http.StatusCreated, conf)
}

// GetConfirmation returns the session's confirmation for :bookingId.  An
// unknown or foreign id sends the client home.
func (h *CheckoutHandler) GetConfirmation(c echo.Context) error {
	conf, err := h.Checkout.Verify(c.Request().Context(), middleware.SessionID(c), c.Param("bookingId"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"confirmation": conf, "fare": fare.ForDraft(conf.BookingDraft)})
}
