package login

import "net/http"

// ProviderLoginPath starts the identity provider sign-in.
const ProviderLoginPath = "/.auth/login/aad?post_login_redirect_uri=%2Fportal"

// GetLoginScreenHandler renders the login screen.
func GetLoginScreenHandler(id *Identity) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email, _ := id.Principal(r)
		data := LoginScreenData{
			Email:        email,
			ErrorMessage: r.URL.Query().Get("error"),
			ProviderURL:  ProviderLoginPath,
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := GetLoginScreen(data).Render(r.Context(), w); err != nil {
			http.Error(w, "failed to render login screen", http.StatusInternalServerError)
			return
		}
	}
}
