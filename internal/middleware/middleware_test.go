package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-ticket-checkout/internal/config"
	"github.com/iliyamo/cinema-ticket-checkout/internal/utils"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func sessionEcho() *echo.Echo {
	e := echo.New()
	e.Use(Session("k", time.Hour, false, quietLogger()))
	e.GET("/", func(c echo.Context) error { return c.String(http.StatusOK, SessionID(c)) })
	return e
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSessionIssuedAndReused(t *testing.T) {
	e := sessionEcho()

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	id := rec.Body.String()
	require.NotEmpty(t, id)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, cookies[0].Value, rec.Header().Get(SessionHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec = serve(e, req)
	assert.Equal(t, id, rec.Body.String())
	assert.Empty(t, rec.Result().Cookies(), "a valid session is not reissued")

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(SessionHeader, cookies[0].Value)
	assert.Equal(t, id, serve(e, req).Body.String())
}

func TestSessionCookieSecureFlag(t *testing.T) {
	for _, secure := range []bool{true, false} {
		e := echo.New()
		e.Use(Session("k", time.Hour, secure, quietLogger()))
		e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

		rec := serve(e, httptest.NewRequest(http.MethodGet, "/", nil))
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, secure, cookies[0].Secure)
		assert.True(t, cookies[0].HttpOnly)
		assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
	}
}

func TestSessionInvalidTokenGetsFreshSession(t *testing.T) {
	e := sessionEcho()
	foreign, err := utils.NewSessionToken("other-key", "stolen", time.Hour, time.Now())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: foreign.Token})
	rec := serve(e, req)
	assert.NotEqual(t, "stolen", rec.Body.String())
	assert.NotEmpty(t, rec.Body.String())
	assert.Len(t, rec.Result().Cookies(), 1)
}

// fakeScripter answers every script call with the next queued result.
type fakeScripter struct {
	redis.Scripter
	results []interface{}
	err     error
	keys    []string
}

func (f *fakeScripter) EvalSha(ctx context.Context, _ string, keys []string, _ ...interface{}) *redis.Cmd {
	return f.next(ctx, keys)
}

func (f *fakeScripter) Eval(ctx context.Context, _ string, keys []string, _ ...interface{}) *redis.Cmd {
	return f.next(ctx, keys)
}

func (f *fakeScripter) next(ctx context.Context, keys []string) *redis.Cmd {
	f.keys = append(f.keys, keys...)
	cmd := redis.NewCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	cmd.SetVal(f.results[0])
	f.results = f.results[1:]
	return cmd
}

func limitedEcho(rdb redis.Scripter) *echo.Echo {
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 5, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute, Prefix: "rl", KeyStrategy: "session"}
	e := echo.New()
	e.Use(Session("k", time.Hour, false, quietLogger()))
	e.Use(NewTokenBucket(cfg, rdb, quietLogger()))
	e.GET("/v1/movies", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	return e
}

func TestTokenBucketAllowsThenBlocks(t *testing.T) {
	rdb := &fakeScripter{results: []interface{}{
		[]interface{}{int64(1), int64(4), int64(0)},
		[]interface{}{int64(0), int64(0), int64(1500)},
	}}
	e := limitedEcho(rdb)

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/v1/movies", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/v1/movies", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))

	require.Len(t, rdb.keys, 2)
	assert.Contains(t, rdb.keys[0], "rl:session:")
}

func TestTokenBucketFailsOpen(t *testing.T) {
	e := limitedEcho(&fakeScripter{err: errors.New("connection refused")})
	rec := serve(e, httptest.NewRequest(http.MethodGet, "/v1/movies", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

type fakeCache struct {
	data map[string][]byte
}

func (f *fakeCache) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(v), nil)
}

func (f *fakeCache) SetEx(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	f.data[key] = append([]byte(nil), value.([]byte)...)
	return redis.NewStatusResult("OK", nil)
}

func TestRedisCacheMissThenHit(t *testing.T) {
	store := &fakeCache{data: map[string][]byte{}}
	cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute, Prefix: "cache"}
	calls := 0
	e := echo.New()
	e.Use(Session("k", time.Hour, false, quietLogger()))
	e.GET("/v1/movies", func(c echo.Context) error {
		calls++
		c.Response().Header().Set("X-Catalog", "embedded")
		return c.JSON(http.StatusOK, echo.Map{"items": []string{"m1"}})
	}, NewRedisCache(cfg, store))

	first := serve(e, httptest.NewRequest(http.MethodGet, "/v1/movies", nil))
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	require.Len(t, store.data, 1)
	for _, payload := range store.data {
		assert.False(t, bytes.Contains(payload, []byte(SessionHeader)), "session headers are not cached")
		assert.False(t, bytes.Contains(payload, []byte("Set-Cookie")))
	}

	second := serve(e, httptest.NewRequest(http.MethodGet, "/v1/movies", nil))
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, "embedded", second.Header().Get("X-Catalog"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, calls)
	assert.NotEqual(t, first.Header().Get(SessionHeader), second.Header().Get(SessionHeader))
}

func TestRedisCacheSkipsErrors(t *testing.T) {
	store := &fakeCache{data: map[string][]byte{}}
	cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute, Prefix: "cache"}
	e := echo.New()
	e.GET("/v1/movies/:movieId", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
	}, NewRedisCache(cfg, store))

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/v1/movies/m9", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, store.data)
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"a":1}`))
	require.NoError(t, err)
	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, hdr, got)
	assert.Equal(t, `{"a":1}`, string(body))

	_, _, _, ok = decodePayload(bs[:6])
	assert.False(t, ok)
}

func TestRequestLog(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.JSONFormatter{})

	e := echo.New()
	e.Use(RequestLog(l))
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	serve(e, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Contains(t, buf.String(), `"path":"/healthz"`)
	assert.Contains(t, buf.String(), `"status":200`)
}
