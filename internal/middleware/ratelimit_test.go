package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitMiddleware_UnlimitedGeneral(t *testing.T) {
	mw := NewRateLimitMiddleware(-1, 1)
	handler := mw.Handler(okHandler())

	for i := 0; i < 200; i++ {
		req := httptest.NewRequest(http.MethodGet, "/teams", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}
}

func TestRateLimitMiddleware_LimitedAuth(t *testing.T) {
	mw := NewRateLimitMiddleware(-1, 1)
	handler := mw.Handler(okHandler())

	// Burst equals the per-minute limit, so the second immediate request fails.
	req1 := httptest.NewRequest(http.MethodPost, "/signin", nil)
	rec1 := httptest.NewRecorder()
	handler.ServeHTTP(rec1, req1)
	assert.Equal(t, http.StatusOK, rec1.Code)

	req2 := httptest.NewRequest(http.MethodPost, "/refresh-token", nil)
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)
	assert.Equal(t, http.StatusTooManyRequests, rec2.Code)
	assert.Equal(t, "60", rec2.Header().Get("Retry-After"))

	// A different client has its own bucket.
	req3 := httptest.NewRequest(http.MethodPost, "/signin", nil)
	req3.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	rec3 := httptest.NewRecorder()
	handler.ServeHTTP(rec3, req3)
	assert.Equal(t, http.StatusOK, rec3.Code)
}

func TestRateLimitMiddleware_Configuration(t *testing.T) {
	mw := NewRateLimitMiddleware(-1, 0)
	assert.Equal(t, -1, mw.generalRPM)
	assert.Equal(t, 10, mw.authRPM)

	mw = NewRateLimitMiddleware(0, 5)
	assert.Equal(t, 100, mw.generalRPM)

	mw = NewRateLimitMiddleware(1, -1)
	assert.Equal(t, -1, mw.authRPM)
}

func TestRateLimitMiddleware_UnlimitedAuth(t *testing.T) {
	mw := NewRateLimitMiddleware(1, -1)
	handler := mw.Handler(okHandler())

	for i := 0; i < 50; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/signin", nil))
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}

	// The general bucket still applies.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/teams", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/teams", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

type fakeRedis struct {
	mu      sync.Mutex
	counts  map[string]int64
	expires map[string]time.Duration
	err     error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{counts: map[string]int64{}, expires: map[string]time.Duration{}}
}

func (f *fakeRedis) Incr(ctx context.Context, key string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	f.counts[key]++
	return redis.NewIntResult(f.counts[key], nil)
}

func (f *fakeRedis) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expires[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func TestRedisRateBackend_FixedWindow(t *testing.T) {
	client := newFakeRedis()
	backend := NewRedisRateBackend(client, "test")
	backend.now = func() time.Time { return time.Unix(600, 0) }

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		allowed, err := backend.Allow(ctx, "auth:1.2.3.4", 3)
		require.NoError(t, err)
		require.True(t, allowed)
	}

	allowed, err := backend.Allow(ctx, "auth:1.2.3.4", 3)
	require.NoError(t, err)
	require.False(t, allowed)
	require.Equal(t, 2*time.Minute, client.expires["test:auth:1.2.3.4:10"])

	backend.now = func() time.Time { return time.Unix(660, 0) }
	allowed, err = backend.Allow(ctx, "auth:1.2.3.4", 3)
	require.NoError(t, err)
	require.True(t, allowed, "a new window starts a new count")
}

func TestRateLimitMiddleware_FallsBackWhenRedisFails(t *testing.T) {
	client := newFakeRedis()
	client.err = errors.New("connection refused")

	mw := NewRateLimitMiddleware(-1, 1, WithRateBackend(NewRedisRateBackend(client, "")))
	handler := mw.Handler(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/signin", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/signin", nil))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}
