package databases

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/Taikiy49/FS-Geolabs/frontend/shared/context"
	"github.com/Taikiy49/FS-Geolabs/frontend/shared/listview"
	"github.com/Taikiy49/FS-Geolabs/frontend/shared/nav"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/backend"
)

const basePath = "/portal/databases"

// DatabasesPageQueryHandler lists document databases. ?open=<db> expands
// its files and ?inspect=<db> shows table samples.
func DatabasesPageQueryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := context.GetSessionFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		ws, ok := context.GetWorkspaceFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if listview.ApplyQuery(w, r, ws.Databases, basePath) {
			return
		}
		if r.URL.Query().Get("reload") == "1" {
			ws.InvalidateDatabases()
		}
		listview.Refresh(r.Context(), ws.Databases, "databases")

		query := r.URL.Query()
		data := PageData{
			Top:          nav.BuildTopNavData(session, basePath),
			List:         ws.Databases.Snapshot(),
			Selected:     ws.SelectedDatabase(),
			Open:         strings.TrimSpace(query.Get("open")),
			Inspect:      strings.TrimSpace(query.Get("inspect")),
			Status:       query.Get("status"),
			ErrorMessage: query.Get("error"),
		}
		data.Top.SelectedDB = data.Selected

		if data.Open != "" {
			files, err := ws.Backend.ListFiles(r.Context(), data.Open)
			if err != nil {
				slog.Warn("databases: list files failed", slog.String("db", data.Open), slog.Any("err", err))
				data.FilesErr = backend.UserMessage(err)
			}
			data.Files = files
		}
		if data.Inspect != "" {
			tables, err := ws.Backend.InspectDatabase(r.Context(), data.Inspect)
			if err != nil {
				slog.Warn("databases: inspect failed", slog.String("db", data.Inspect), slog.Any("err", err))
				data.InspectEr = backend.UserMessage(err)
			}
			data.Tables = tables
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := DatabasesPage(data).Render(r.Context(), w); err != nil {
			http.Error(w, "failed to render databases page", http.StatusInternalServerError)
			return
		}
	}
}

// SelectDatabaseCommandHandler makes the posted database the active one
// for Ask AI. The redirect target defaults to the viewer.
func SelectDatabaseCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := context.GetWorkspaceFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Redirect(w, r, basePath+"?error="+url.QueryEscape("invalid form data"), http.StatusSeeOther)
			return
		}
		db := strings.TrimSpace(r.FormValue("db"))
		ws.SelectDatabase(db)
		back := r.FormValue("back")
		if !strings.HasPrefix(back, "/portal") {
			back = basePath
		}
		http.Redirect(w, r, back, http.StatusSeeOther)
	}
}
