package httpmiddleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serve(h http.Handler, prepare func(r *http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	if prepare != nil {
		prepare(req)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func fromAddr(addr string) func(r *http.Request) {
	return func(r *http.Request) { r.RemoteAddr = addr }
}

func withToken(token string) func(r *http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func TestRateLimit_UnderLimit(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 5, Window: time.Minute})(okHandler())

	for i := range 5 {
		w := serve(h, nil)
		assert.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}
}

func TestRateLimit_OverLimit(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 2, Window: time.Minute})(okHandler())

	for range 2 {
		require.Equal(t, http.StatusOK, serve(h, nil).Code)
	}
	w := serve(h, nil)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, float64(429), body["code"])
	assert.Equal(t, "rate limit exceeded", body["message"])
}

func TestRateLimit_KeyedByClient(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 1, Window: time.Minute})(okHandler())

	assert.Equal(t, http.StatusOK, serve(h, fromAddr("10.0.0.1:1234")).Code)
	assert.Equal(t, http.StatusOK, serve(h, fromAddr("10.0.0.2:1234")).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(h, fromAddr("10.0.0.1:5678")).Code)

	// Signed-in clients get their own budget regardless of address.
	assert.Equal(t, http.StatusOK, serve(h, withToken("alpha")).Code)
	assert.Equal(t, http.StatusOK, serve(h, withToken("beta")).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(h, withToken("alpha")).Code)
}

func TestRateLimit_XForwardedFor(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 1, Window: time.Minute})(okHandler())
	forwarded := func(addr string) func(r *http.Request) {
		return func(r *http.Request) {
			r.RemoteAddr = addr
			r.Header.Set("X-Forwarded-For", "203.0.113.50, 70.41.3.18")
		}
	}

	assert.Equal(t, http.StatusOK, serve(h, forwarded("192.168.1.1:4444")).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(h, forwarded("192.168.1.2:5555")).Code)
}

func TestRateLimit_Skip(t *testing.T) {
	h := RateLimit(RateLimitConfig{
		Max:    1,
		Window: time.Minute,
		Skip:   func(r *http.Request) bool { return r.URL.Path == "/livez" },
	})(okHandler())

	liveness := func(r *http.Request) { r.URL.Path = "/livez" }
	for range 3 {
		w := serve(h, liveness)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}
}

func TestRateLimiter_Evict(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{Max: 1, Window: time.Second})
	now := time.Now()

	_, _, ok := rl.allow("k", now)
	require.True(t, ok)
	_, _, ok = rl.allow("k", now)
	require.False(t, ok)

	rl.evict(now.Add(3 * time.Second))
	assert.Empty(t, rl.windows)
}
