package http

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	sessioncookie "github.com/Taikiy49/FS-Geolabs/infrastructure/session"
)

const (
	csrfCookieName = "X-CSRF-Token"
	csrfHeaderName = "X-CSRF-Token"
	csrfFormField  = "_csrf"
)

// CSRFMiddleware issues the double-submit cookie and checks it on unsafe
// methods. Requests without a token pass only when they are same-origin.
func (s *Server) CSRFMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ensureCSRFToken(w, r)
		if isSafeMethod(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		provided := providedCSRFToken(r)
		switch {
		case provided == "" && sameOrigin(r):
		case provided != "" && subtle.ConstantTimeCompare([]byte(token), []byte(provided)) == 1:
		default:
			slog.Warn("csrf rejected", slog.String("path", r.URL.Path), slog.Bool("token_present", provided != ""))
			http.Error(w, "invalid csrf token", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func providedCSRFToken(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(csrfHeaderName)); v != "" {
		return v
	}
	// Multipart uploads are parsed here so the queue handlers find the form
	// already read.
	return strings.TrimSpace(r.FormValue(csrfFormField))
}

// sameOrigin accepts script-issued requests whose Origin, or failing that
// Referer, names this host.
func sameOrigin(r *http.Request) bool {
	src := strings.TrimSpace(r.Header.Get("Origin"))
	if src == "" || src == "null" {
		src = strings.TrimSpace(r.Header.Get("Referer"))
	}
	if src == "" {
		return false
	}
	u, err := url.Parse(src)
	if err != nil || u.Host == "" {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}

func ensureCSRFToken(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(csrfCookieName); err == nil && strings.TrimSpace(c.Value) != "" {
		return c.Value
	}
	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: false,
		Secure:   sessioncookie.Secure(r),
		SameSite: http.SameSiteLaxMode,
	})
	return token
}
