package handler

import (
	"net/http"
	"time"
)

const RefreshCookieName = "refresh_token"

// RefreshCookie builds the refresh cookie. Setting and clearing share every
// attribute except lifetime; browsers ignore a clear that differs in path,
// SameSite or Secure.
type RefreshCookie struct {
	sameSite http.SameSite
	ttl      time.Duration
}

// NewRefreshCookie uses SameSite=None in production, where the frontend is
// served from another site, and SameSite=Strict elsewhere.
func NewRefreshCookie(production bool, ttl time.Duration) RefreshCookie {
	sameSite := http.SameSiteStrictMode
	if production {
		sameSite = http.SameSiteNoneMode
	}
	return RefreshCookie{sameSite: sameSite, ttl: ttl}
}

func (c RefreshCookie) base() *http.Cookie {
	return &http.Cookie{
		Name:     RefreshCookieName,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: c.sameSite,
	}
}

func (c RefreshCookie) Set(w http.ResponseWriter, token string, expiresAt time.Time) {
	cookie := c.base()
	cookie.Value = token
	cookie.MaxAge = int(c.ttl / time.Second)
	cookie.Expires = expiresAt.UTC()
	http.SetCookie(w, cookie)
}

func (c RefreshCookie) Clear(w http.ResponseWriter) {
	cookie := c.base()
	cookie.MaxAge = -1
	cookie.Expires = time.Unix(0, 0).UTC()
	http.SetCookie(w, cookie)
}

// Read returns the refresh token or "" when the cookie is absent.
func (c RefreshCookie) Read(r *http.Request) string {
	cookie, err := r.Cookie(RefreshCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
