package login

import (
	"net/http"

	"github.com/Taikiy49/FS-Geolabs/infrastructure/cache"
	sessioncookie "github.com/Taikiy49/FS-Geolabs/infrastructure/session"
)

// ProviderLogoutPath ends the identity provider session.
const ProviderLogoutPath = "/.auth/logout?post_logout_redirect_uri=%2Flogin"

// LogoutHandler removes session state, tears down the workspace and clears
// the cookie.
func LogoutHandler(id *Identity, workspaces *cache.WorkspaceCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessioncookie.CookieName)
		if err == nil && cookie.Value != "" {
			id.SessionCache.DeleteSessionBySessionToken(cookie.Value)
			workspaces.Close(cookie.Value)
			_ = DeleteSessionByToken(r.Context(), id.DB, cookie.Value)
		}
		http.SetCookie(w, sessioncookie.Clear(r))
		if id.FromProvider(r) {
			http.Redirect(w, r, ProviderLogoutPath, http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	}
}
