package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-ticket-checkout/internal/utils"
)

const (
	SessionCookie = "booking_session"
	SessionHeader = "X-Booking-Session"

	sessionKey = "session_id"
)

// Session resolves the browsing session of each request.  The token is
// read from the booking_session cookie, then the X-Booking-Session
// header.  A missing or invalid token gets a fresh session, returned in
// both the cookie and the header.  With secure set the cookie is
// HTTPS-only.  Handlers read the id with SessionID.
func Session(secret string, ttl time.Duration, secure bool, log logrus.FieldLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := c.Request().Header.Get(SessionHeader)
			if ck, err := c.Cookie(SessionCookie); err == nil && ck.Value != "" {
				raw = ck.Value
			}
			if raw != "" {
				if id, err := utils.ParseSessionToken(secret, raw); err == nil {
					c.Set(sessionKey, id)
					return next(c)
				}
			}

			tok, err := utils.NewSessionToken(secret, utils.NewSessionID(), ttl, time.Now())
			if err != nil {
				log.WithError(err).Error("issue session token")
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session unavailable"})
			}
			c.SetCookie(&http.Cookie{
				Name:     SessionCookie,
				Value:    tok.Token,
				Path:     "/",
				Expires:  tok.Exp,
				HttpOnly: true,
				Secure:   secure,
				SameSite: http.SameSiteLaxMode,
			})
			c.Response().Header().Set(SessionHeader, tok.Token)
			c.Set(sessionKey, tok.SessionID)
			return next(c)
		}
	}
}

// SessionID returns the session resolved by Session, or "".
func SessionID(c echo.Context) string {
	if s, ok := c.Get(sessionKey).(string); ok {
		return s
	}
	return ""
}
