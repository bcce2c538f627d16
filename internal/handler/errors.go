// Package handler exposes the booking views over HTTP.  Error kinds map to
// status codes here; absence and mismatch send the client home with 303.
package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-ticket-checkout/internal/catalog"
	"github.com/iliyamo/cinema-ticket-checkout/internal/holds"
	"github.com/iliyamo/cinema-ticket-checkout/internal/repository"
	"github.com/iliyamo/cinema-ticket-checkout/internal/service"
)

// HomePath is where absent drafts and unknown confirmations send the client.
const HomePath = "/"

func goHome(c echo.Context) error {
	return c.Redirect(http.StatusSeeOther, HomePath)
}

// respondError writes the response for err, logging anything unexpected.
func respondError(c echo.Context, log logrus.FieldLogger, err error) error {
	switch {
	case errors.Is(err, catalog.ErrMovieNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
	case errors.Is(err, catalog.ErrScreenNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "screen not found"})
	case errors.Is(err, catalog.ErrShowtimeNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "showtime not found"})
	case errors.Is(err, repository.ErrDraftAbsent),
		errors.Is(err, repository.ErrConfirmationAbsent),
		errors.Is(err, service.ErrConfirmationMismatch):
		return goHome(c)
	case errors.Is(err, service.ErrEmptySelection):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no seats selected"})
	case errors.Is(err, service.ErrInvalidPaymentMethod):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment method must be card or upi"})
	case errors.Is(err, service.ErrPaymentDeclined):
		return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "payment declined"})
	case errors.Is(err, service.ErrPaymentInProgress):
		return c.JSON(http.StatusConflict, echo.Map{"error": "payment already in progress"})
	case errors.Is(err, holds.ErrHoldLost):
		return c.JSON(http.StatusConflict, echo.Map{"error": "seats are no longer held for this session"})
	case errors.Is(err, service.ErrCheckoutAbandoned):
		return c.JSON(http.StatusRequestTimeout, echo.Map{"error": "checkout abandoned"})
	}
	log.WithError(err).WithField("path", c.Request().URL.Path).Error("request failed")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
