package home

import (
	"log/slog"
	"net/http"

	"github.com/Taikiy49/FS-Geolabs/frontend/shared/context"
	"github.com/Taikiy49/FS-Geolabs/frontend/shared/nav"
)

const basePath = "/portal"

func HomePageQueryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := context.GetSessionFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		data := PageData{
			Top:          nav.BuildTopNavData(session, basePath),
			Groups:       Groups(session),
			Status:       r.URL.Query().Get("status"),
			ErrorMessage: r.URL.Query().Get("error"),
		}
		if ws, ok := context.GetWorkspaceFromContext(r.Context()); ok {
			data.Top.SelectedDB = ws.SelectedDatabase()
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := HomePage(data).Render(r.Context(), w); err != nil {
			slog.Error("home: render failed", slog.Any("err", err))
			http.Error(w, "failed to render home page", http.StatusInternalServerError)
		}
	}
}
