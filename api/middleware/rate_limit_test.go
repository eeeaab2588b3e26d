package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newMemoryCounter() *memoryCounter {
	return &memoryCounter{counts: map[string]int64{}}
}

func (c *memoryCounter) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	if c.err != nil {
		return false, 0, c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[scope]++
	return c.counts[scope] <= limit, c.counts[scope], nil
}

func limitedHandler(t *testing.T, policy RateLimitPolicy, counter rateCounter) http.Handler {
	t.Helper()
	return RateLimit(policy, counter, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}))
}

func postLogin(handler http.Handler, ip, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.RemoteAddr = ip + ":5050"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitKeepsBodyForHandler(t *testing.T) {
	policy := RateLimitPolicy{Surface: "login", Window: time.Minute, Keys: []RateLimitKey{ByClientIP(5), ByBodyEmail(5)}}
	handler := limitedHandler(t, policy, newMemoryCounter())

	rec := postLogin(handler, "10.0.0.1", `{"email":"owner@roastery.test","password":"pw"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "owner@roastery.test")
}

func TestRateLimitEmailCounterIgnoresCaseAndAddress(t *testing.T) {
	counter := newMemoryCounter()
	policy := RateLimitPolicy{Surface: "login", Window: time.Minute, Keys: []RateLimitKey{ByBodyEmail(2)}}
	handler := limitedHandler(t, policy, counter)

	require.Equal(t, http.StatusOK, postLogin(handler, "10.0.0.1", `{"email":"Owner@Roastery.test"}`).Code)
	require.Equal(t, http.StatusOK, postLogin(handler, "10.0.0.2", `{"email":"owner@roastery.test "}`).Code)

	rec := postLogin(handler, "10.0.0.3", `{"email":"owner@roastery.test"}`)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "60", rec.Header().Get("Retry-After"))
	require.Contains(t, rec.Body.String(), "RATE_LIMIT_EXCEEDED")

	for key := range counter.counts {
		require.True(t, strings.HasPrefix(key, "login:email:"))
		require.NotContains(t, key, "roastery")
	}
}

func TestRateLimitIPCounterIsPerSurface(t *testing.T) {
	counter := newMemoryCounter()
	support := limitedHandler(t, RateLimitPolicy{Surface: "support", Window: time.Minute, Keys: []RateLimitKey{ByClientIP(1)}}, counter)
	login := limitedHandler(t, RateLimitPolicy{Surface: "login", Window: time.Minute, Keys: []RateLimitKey{ByClientIP(1)}}, counter)

	require.Equal(t, http.StatusOK, postLogin(support, "10.0.0.9", `{}`).Code)
	require.Equal(t, http.StatusTooManyRequests, postLogin(support, "10.0.0.9", `{}`).Code)
	require.Equal(t, http.StatusOK, postLogin(login, "10.0.0.9", `{}`).Code)
	require.Equal(t, http.StatusOK, postLogin(support, "10.0.0.10", `{}`).Code)
}

func TestRateLimitPrefersForwardedAddress(t *testing.T) {
	counter := newMemoryCounter()
	handler := limitedHandler(t, RateLimitPolicy{Surface: "support", Window: time.Minute, Keys: []RateLimitKey{ByClientIP(3)}}, counter)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/support", strings.NewReader(`{}`))
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, int64(1), counter.counts["support:ip:203.0.113.7"])
}

func TestRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	counter := newMemoryCounter()
	handler := limitedHandler(t, RateLimitPolicy{Surface: "register", Keys: []RateLimitKey{ByClientIP(1)}}, counter)

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, postLogin(handler, "10.0.0.1", `{}`).Code)
	}
	require.Empty(t, counter.counts)
}

func TestRateLimitCounterFailureIsDependencyError(t *testing.T) {
	counter := newMemoryCounter()
	counter.err = errors.New("redis down")
	handler := limitedHandler(t, RateLimitPolicy{Surface: "login", Window: time.Minute, Keys: []RateLimitKey{ByClientIP(3)}}, counter)

	rec := postLogin(handler, "10.0.0.1", `{}`)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
