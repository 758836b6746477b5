package login

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
)

// CreateLoginHandler signs the request principal in and issues a session
// cookie.
func CreateLoginHandler(id *Identity) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := id.SignIn(w, r); err != nil {
			if errors.Is(err, ErrNoPrincipal) {
				http.Redirect(w, r, "/login?error="+url.QueryEscape("sign in with your Geolabs Microsoft account first"), http.StatusSeeOther)
				return
			}
			slog.Error("sign in failed", slog.Any("err", err))
			http.Redirect(w, r, "/login?error="+url.QueryEscape("failed to create session"), http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, "/portal", http.StatusSeeOther)
	}
}
