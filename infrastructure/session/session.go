// Package session names the portal session cookie and its lifetime.
package session

import (
	"net/http"
	"strings"
	"time"
)

const CookieName = "X-Session-Token"

// DefaultTTL applies when the configured session lifetime is unset.
const DefaultTTL = 12 * time.Hour

// Secure reports whether r reached the portal over TLS, directly or through
// the App Service front end.
func Secure(r *http.Request) bool {
	if r == nil {
		return false
	}
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// Cookie carries token until expires. A zero expires clears the cookie.
func Cookie(r *http.Request, token string, expires time.Time) *http.Cookie {
	c := &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   Secure(r),
	}
	if expires.IsZero() {
		c.MaxAge = -1
		return c
	}
	c.MaxAge = int(time.Until(expires).Seconds())
	return c
}

// Clear removes the session cookie.
func Clear(r *http.Request) *http.Cookie {
	return Cookie(r, "", time.Time{})
}

// Expiry is the expiry time of a session created now.
func Expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return time.Now().Add(ttl)
}
