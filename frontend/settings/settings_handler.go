package settings

import (
	"log/slog"
	"net/http"

	"github.com/Taikiy49/FS-Geolabs/frontend/shared/context"
	"github.com/Taikiy49/FS-Geolabs/frontend/shared/nav"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/sqlite"
)

const basePath = "/portal/settings"

type PageData struct {
	Top          nav.TopNavData
	Prefs        Preferences
	Status       string
	ErrorMessage string
}

func SettingsPageQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := context.GetSessionFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		data := PageData{
			Top:          nav.BuildTopNavData(session, basePath),
			Status:       r.URL.Query().Get("status"),
			ErrorMessage: r.URL.Query().Get("error"),
		}
		prefs, err := LoadPreferences(r.Context(), db, session.Email)
		if err != nil {
			slog.Error("settings: load failed", slog.String("email", session.Email), slog.Any("err", err))
			data.ErrorMessage = "failed to load your settings"
		}
		data.Prefs = prefs
		if ws, ok := context.GetWorkspaceFromContext(r.Context()); ok {
			data.Top.SelectedDB = ws.SelectedDatabase()
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := SettingsPage(data).Render(r.Context(), w); err != nil {
			http.Error(w, "failed to render settings page", http.StatusInternalServerError)
			return
		}
	}
}

func SettingsUpdateCommandHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := context.GetSessionFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Redirect(w, r, basePath+"?error=invalid+form", http.StatusSeeOther)
			return
		}
		prefs := Preferences{
			AskUseCache: r.FormValue("ask_use_cache") == "1",
			AskUseWeb:   r.FormValue("ask_use_web") == "1",
		}
		if err := SavePreferences(r.Context(), db, session.Email, prefs); err != nil {
			slog.Error("settings: save failed", slog.String("email", session.Email), slog.Any("err", err))
			http.Redirect(w, r, basePath+"?error=save+failed", http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, basePath+"?status=saved", http.StatusSeeOther)
	}
}
