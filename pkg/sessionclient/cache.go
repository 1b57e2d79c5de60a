package sessionclient

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Cache holds the current access token in memory only. It never verifies the
// signature; it only reads the exp claim to know when the token goes stale.
type Cache struct {
	mu        sync.RWMutex
	token     string
	expiresAt time.Time
	now       func() time.Time
}

func NewCache(now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{now: now}
}

// Set stores token and its expiry. A token whose expiry cannot be read leaves
// the cache empty, exactly as if Set had never been called, and Set reports
// false.
func (c *Cache) Set(token string) bool {
	expiresAt, ok := readExpiry(token)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !ok {
		c.token, c.expiresAt = "", time.Time{}
		return false
	}
	c.token, c.expiresAt = token, expiresAt
	return true
}

func (c *Cache) Clear() {
	c.mu.Lock()
	c.token, c.expiresAt = "", time.Time{}
	c.mu.Unlock()
}

// Invalidate clears the cache only while it still holds token, so a stale
// request cannot discard a token another caller has just refreshed.
func (c *Cache) Invalidate(token string) {
	c.mu.Lock()
	if c.token == token {
		c.token, c.expiresAt = "", time.Time{}
	}
	c.mu.Unlock()
}

func (c *Cache) Valid() bool {
	_, ok := c.Token()
	return ok
}

// Token returns the cached token while now is strictly before its expiry.
func (c *Cache) Token() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.token == "" || !c.now().Before(c.expiresAt) {
		return "", false
	}
	return c.token, true
}

func (c *Cache) ExpiresAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.expiresAt
}

func readExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}

	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
