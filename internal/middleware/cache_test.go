package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/avierra/space-reservation/internal/config"
)

func newEchoContext(t *testing.T, method, target string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath(req.URL.Path)
	return c, rec
}

func TestCacheEntryRoundTrip(t *testing.T) {
	hdr := http.Header{}
	hdr.Set("Content-Type", "application/json")
	body := []byte(`{"items":[]}`)

	entry, err := encodeEntry(http.StatusOK, hdr, body)
	require.NoError(t, err)

	status, gotHdr, gotBody, ok := decodeEntry(entry)
	require.True(t, ok)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "application/json", gotHdr.Get("Content-Type"))
	require.Equal(t, body, gotBody)
}

func TestDecodeEntryRejectsGarbage(t *testing.T) {
	for _, entry := range [][]byte{nil, []byte("short"), {0, 0, 0, 200, 0xFF, 0xFF, 0xFF, 0xFF}} {
		_, _, _, ok := decodeEntry(entry)
		require.False(t, ok)
	}
}

func TestResponseRecorderOverflow(t *testing.T) {
	rec := &responseRecorder{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK, limit: 4}

	_, err := rec.Write([]byte("ab"))
	require.NoError(t, err)
	require.False(t, rec.overflowed)

	_, err = rec.Write([]byte("cdef"))
	require.NoError(t, err)
	require.True(t, rec.overflowed)
}

func TestCacheKeyVariesByQuery(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "route_query"}

	c1, _ := newEchoContext(t, http.MethodGet, "/v1/spaces?active=true")
	c2, _ := newEchoContext(t, http.MethodGet, "/v1/spaces?active=false")
	c3, _ := newEchoContext(t, http.MethodGet, "/v1/spaces?active=true")

	require.NotEqual(t, cacheKey(cfg, c1), cacheKey(cfg, c2))
	require.Equal(t, cacheKey(cfg, c1), cacheKey(cfg, c3))
}

func TestCacheSkipsAuthorizedRequests(t *testing.T) {
	cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}
	// A nil client disables the middleware entirely.
	mw := NewRedisCache(cfg, nil)

	called := false
	h := mw(func(c echo.Context) error {
		called = true
		return c.String(http.StatusOK, "ok")
	})

	c, _ := newEchoContext(t, http.MethodGet, "/v1/spaces")
	require.NoError(t, h(c))
	require.True(t, called)
}

func TestRateKeyStrategies(t *testing.T) {
	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user_route"}

	c, _ := newEchoContext(t, http.MethodPost, "/v1/reservations")
	c.Set("user_id", "user-1")
	require.Equal(t, "rl:user:user-1:route:POST /v1/reservations", rateKey(cfg, c))

	anon, _ := newEchoContext(t, http.MethodPost, "/v1/reservations")
	require.Equal(t, "rl:user:anon:route:POST /v1/reservations", rateKey(cfg, anon))
}

func TestTokenBucketPassThroughWithoutRedis(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1}
	mw := NewTokenBucket(cfg, nil)

	called := false
	h := mw(func(c echo.Context) error {
		called = true
		return nil
	})

	c, _ := newEchoContext(t, http.MethodGet, "/healthz")
	require.NoError(t, h(c))
	require.True(t, called)
}
