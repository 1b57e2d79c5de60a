package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/rafaelguerrae/TeamSync/internal/model"
)

const (
	bucketGeneral = "general"
	bucketAuth    = "auth"
)

// authPaths share the stricter bucket; they are the credential-guessing and
// token-minting surface.
var authPaths = map[string]struct{}{
	"/signin":        {},
	"/signup":        {},
	"/refresh-token": {},
	"/signout":       {},
}

// RateBackend decides whether one more request fits in key's per-minute
// budget.
type RateBackend interface {
	Allow(ctx context.Context, key string, perMinute int) (bool, error)
}

type RateLimitMiddleware struct {
	generalRPM int
	authRPM    int
	backend    RateBackend
	fallback   *LocalRateBackend
}

type RateLimitOption func(*RateLimitMiddleware)

// WithRateBackend shares limits across instances. When the backend errors the
// request is judged by the in-process limiter instead.
func WithRateBackend(backend RateBackend) RateLimitOption {
	return func(m *RateLimitMiddleware) {
		if backend != nil {
			m.backend = backend
		}
	}
}

// NewRateLimitMiddleware limits each client IP to generalRPM requests per
// minute, or authRPM on the session endpoints. A negative limit disables its
// bucket; zero selects the default.
func NewRateLimitMiddleware(generalRPM int, authRPM int, opts ...RateLimitOption) *RateLimitMiddleware {
	if generalRPM == 0 {
		generalRPM = 100
	}
	if authRPM == 0 {
		authRPM = 10
	}

	local := NewLocalRateBackend()
	m := &RateLimitMiddleware{
		generalRPM: generalRPM,
		authRPM:    authRPM,
		backend:    local,
		fallback:   local,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bucket, limit := bucketGeneral, m.generalRPM
		if _, ok := authPaths[strings.ToLower(r.URL.Path)]; ok {
			bucket, limit = bucketAuth, m.authRPM
		}
		if limit < 0 {
			next.ServeHTTP(w, r)
			return
		}

		key := bucket + ":" + extractClientIP(r)
		allowed, err := m.backend.Allow(r.Context(), key, limit)
		if err != nil {
			slog.Warn("rate limit backend unavailable, using local limiter", "error", err)
			allowed, _ = m.fallback.Allow(r.Context(), key, limit)
		}

		if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(60))
			writeFailure(w, http.StatusTooManyRequests, model.RateLimited)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type localLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LocalRateBackend keeps one token bucket per key in process memory.
type LocalRateBackend struct {
	mu       sync.Mutex
	limiters map[string]*localLimiter
}

func NewLocalRateBackend() *LocalRateBackend {
	return &LocalRateBackend{limiters: map[string]*localLimiter{}}
}

func (b *LocalRateBackend) Allow(_ context.Context, key string, perMinute int) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, exists := b.limiters[key]
	if !exists {
		entry = &localLimiter{
			limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
		}
		b.limiters[key] = entry
	}
	entry.lastSeen = time.Now()
	b.gcLocked()

	return entry.limiter.Allow(), nil
}

func (b *LocalRateBackend) gcLocked() {
	if len(b.limiters) < 1000 {
		return
	}

	cutoff := time.Now().Add(-10 * time.Minute)
	for key, entry := range b.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(b.limiters, key)
		}
	}
}

func extractClientIP(r *http.Request) string {
	forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For"))
	if forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	realIP := strings.TrimSpace(r.Header.Get("X-Real-IP"))
	if realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}

	if strings.TrimSpace(r.RemoteAddr) == "" {
		return "unknown"
	}

	return r.RemoteAddr
}
