package router

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-ticket-checkout/internal/catalog"
	"github.com/iliyamo/cinema-ticket-checkout/internal/handler"
	"github.com/iliyamo/cinema-ticket-checkout/internal/holds"
	"github.com/iliyamo/cinema-ticket-checkout/internal/middleware"
	"github.com/iliyamo/cinema-ticket-checkout/internal/repository"
	"github.com/iliyamo/cinema-ticket-checkout/internal/service"
)

func passthrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

func newServer(t *testing.T) *echo.Echo {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	cat, err := catalog.Default()
	require.NoError(t, err)
	slots := repository.NewMemorySlotStore()
	drafts := repository.NewDraftRepo(slots, 0)
	confs := repository.NewConfirmationRepo(slots, 0)
	auth := holds.NewMemoryAuthority()

	bookings := service.NewBookingService(cat, drafts, auth, log)
	checkout := service.NewCheckoutService(drafts, confs, service.NewSimulatedGateway(0, 0),
		service.WithHoldAuthority(auth), service.WithCheckoutLogger(log))
	t.Cleanup(checkout.Wait)

	e := echo.New()
	RegisterRoutes(e, Handlers{
		Health:   handler.NewHealthHandler(nil),
		Catalog:  handler.NewCatalogHandler(cat),
		Booking:  handler.NewBookingHandler(bookings, log),
		Checkout: handler.NewCheckoutHandler(checkout, bookings, log),
	}, Middleware{
		Session:   middleware.Session("test-secret", time.Hour, false, log),
		RateLimit: passthrough,
		Cache:     passthrough,
	})
	return e
}

// client replays the session cookie it was issued.
type client struct {
	e      *echo.Echo
	cookie *http.Cookie
}

func (c *client) do(method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	rec := httptest.NewRecorder()
	c.e.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == middleware.SessionCookie {
			c.cookie = ck
		}
	}
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

var showQuery = "?time=" + url.QueryEscape("12:00 PM")

func TestCheckoutFlow(t *testing.T) {
	e := newServer(t)
	alice := &client{e: e}

	// no draft yet: the payment view sends the client home
	rec := alice.do(http.MethodGet, "/v1/checkout", "")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))
	require.NotNil(t, alice.cookie)

	rec = alice.do(http.MethodGet, "/v1/booking/m1/s3"+showQuery, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "INOX Nariman Point", decode(t, rec)["theatreName"])

	rec = alice.do(http.MethodPost, "/v1/booking/m1/s3/seats/A1"+showQuery, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["changed"])

	rec = alice.do(http.MethodPost, "/v1/booking/m1/s3/seats/B2"+showQuery, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["changed"], "B2 is sold")

	rec = alice.do(http.MethodPost, "/v1/booking/m1/s3/seats/A2"+showQuery, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = alice.do(http.MethodPost, "/v1/booking/m1/s3/proceed"+showQuery, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "/v1/checkout", rec.Header().Get(echo.HeaderLocation))

	rec = alice.do(http.MethodGet, "/v1/checkout", "")
	require.Equal(t, http.StatusOK, rec.Code)
	fare := decode(t, rec)["fare"].(map[string]any)
	assert.Equal(t, "400", fare["subtotal"])
	assert.Equal(t, "420", fare["total"])

	rec = alice.do(http.MethodPost, "/v1/checkout", `{"paymentMethod":"wallet"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = alice.do(http.MethodPost, "/v1/checkout", `{"paymentMethod":"upi"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	conf := decode(t, rec)
	id, _ := conf["bookingId"].(string)
	assert.Regexp(t, regexp.MustCompile(`^BMS[0-9A-F]{32}$`), id)
	assert.Equal(t, "/v1/confirmation/"+id, rec.Header().Get(echo.HeaderLocation))
	assert.Equal(t, []any{"A1", "A2"}, conf["selectedSeats"])

	rec = alice.do(http.MethodGet, "/v1/confirmation/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "upi", decode(t, rec)["confirmation"].(map[string]any)["paymentMethod"])

	rec = alice.do(http.MethodGet, "/v1/confirmation/BMS0", "")
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	// the draft was consumed
	rec = alice.do(http.MethodGet, "/v1/checkout", "")
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	// other sessions see the seats as sold and cannot read alice's booking
	bob := &client{e: e}
	rec = bob.do(http.MethodPost, "/v1/booking/m1/s3/seats/A1"+showQuery, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["changed"])
	rec = bob.do(http.MethodGet, "/v1/confirmation/"+id, "")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestBookingNotFound(t *testing.T) {
	e := newServer(t)
	c := &client{e: e}

	cases := []struct{ target, want string }{
		{"/v1/booking/m9/s3" + showQuery, "movie not found"},
		{"/v1/booking/m1/s2" + showQuery, "screen not found"},
		{"/v1/booking/m1/s3?time=" + url.QueryEscape("4 AM"), "showtime not found"},
	}
	for _, tc := range cases {
		target, want := tc.target, tc.want
		rec := c.do(http.MethodGet, target, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
		assert.Equal(t, want, decode(t, rec)["error"], target)
	}
}

func TestProceedWithoutSeats(t *testing.T) {
	c := &client{e: newServer(t)}
	rec := c.do(http.MethodPost, "/v1/booking/m1/s3/proceed"+showQuery, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHomeListsMovies(t *testing.T) {
	c := &client{e: newServer(t)}
	rec := c.do(http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["items"])

	rec = c.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
