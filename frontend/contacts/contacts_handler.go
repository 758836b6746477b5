package contacts

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/Taikiy49/FS-Geolabs/frontend/exports"
	"github.com/Taikiy49/FS-Geolabs/frontend/shared/context"
	"github.com/Taikiy49/FS-Geolabs/frontend/shared/listview"
	"github.com/Taikiy49/FS-Geolabs/frontend/shared/nav"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/backend"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/graph"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/sqlite"
)

const basePath = "/portal/contacts"

// ContactsPageQueryHandler lists Graph contacts from the chosen source.
// ?source= switches the source.
func ContactsPageQueryHandler() http.HandlerFunc {
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
		query := r.URL.Query()
		if source := query.Get("source"); source != "" {
			ws.SetContactSource(source)
			http.Redirect(w, r, basePath, http.StatusSeeOther)
			return
		}
		if listview.ApplyQuery(w, r, ws.Contacts, basePath) {
			return
		}
		listview.Refresh(r.Context(), ws.Contacts, "contacts")

		data := PageData{
			Top:          nav.BuildTopNavData(session, basePath),
			List:         ws.Contacts.Snapshot(),
			Source:       ws.ContactSource(),
			Status:       query.Get("status"),
			ErrorMessage: query.Get("error"),
		}
		data.Top.SelectedDB = ws.SelectedDatabase()
		data.NoToken = errors.Is(data.List.Err, graph.ErrNoToken)

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := ContactsPage(data).Render(r.Context(), w); err != nil {
			http.Error(w, "failed to render contacts page", http.StatusInternalServerError)
			return
		}
	}
}

// ExportQueryHandler downloads the filtered, sorted contacts across every
// page.
func ExportQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := context.GetWorkspaceFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		format, err := exports.ParseFormat(r.URL.Query().Get("format"))
		if err != nil {
			http.Redirect(w, r, basePath+"?error="+url.QueryEscape(err.Error()), http.StatusSeeOther)
			return
		}
		cs, err := ws.AllContacts(r.Context())
		if err != nil {
			slog.Error("contacts: export load failed", slog.Any("err", err))
			http.Redirect(w, r, basePath+"?error="+url.QueryEscape(backend.UserMessage(err)), http.StatusSeeOther)
			return
		}
		exports.Serve(w, r, db, ws.Email, format, Table(cs))
	}
}
