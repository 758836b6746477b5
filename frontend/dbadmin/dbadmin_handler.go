package dbadmin

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/Taikiy49/FS-Geolabs/frontend/shared/context"
	"github.com/Taikiy49/FS-Geolabs/frontend/shared/nav"
	"github.com/Taikiy49/FS-Geolabs/frontend/shared/uploads"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/audit"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/backend"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/config"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/events"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/sqlite"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/uploadlog"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/uploadqueue"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/workspace"
)

const basePath = "/portal/dbadmin"

// Uploads is the database ingest queue of this screen.
func Uploads(cfg config.UploadConfig) uploads.Queue {
	return uploads.Queue{
		Path:   basePath,
		Pick:   func(ws *workspace.Workspace) *uploadqueue.Queue { return ws.DatabaseUploads },
		Dest:   destination,
		Config: cfg,
	}
}

func destination(r *http.Request, ws *workspace.Workspace) (string, map[string]string, error) {
	mode := r.FormValue("mode")
	if mode != ModeNew {
		mode = ModeAppend
	}
	existing, err := ws.AllDatabases(r.Context())
	if err != nil {
		return "", nil, errors.New(backend.UserMessage(err))
	}
	db, err := ResolveTarget(mode, r.FormValue("title"), r.FormValue("db"), existing)
	if err != nil {
		return "", nil, err
	}
	return db, map[string]string{workspace.ParamMode: mode}, nil
}

// DBAdminPageQueryHandler renders the upload queue, delete controls and
// upload history.
func DBAdminPageQueryHandler(db *sqlite.DB, cfg config.UploadConfig) http.HandlerFunc {
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

		data := PageData{
			Top:          nav.BuildTopNavData(session, basePath),
			Queue:        uploads.NewStatus(ws.DatabaseUploads),
			AcceptedExt:  cfg.AcceptedExt,
			Status:       r.URL.Query().Get("status"),
			ErrorMessage: r.URL.Query().Get("error"),
		}
		data.Top.SelectedDB = ws.SelectedDatabase()

		dbs, err := ws.AllDatabases(r.Context())
		if err != nil {
			data.LoadError = backend.UserMessage(err)
		}
		for _, name := range dbs {
			data.Databases = append(data.Databases, DatabaseView{Name: name, DisplayName: workspace.DisplayName(name)})
		}

		history, err := ws.Backend.UploadHistory(r.Context())
		if err != nil {
			slog.Warn("dbadmin: upload history failed", slog.Any("err", err))
			data.HistoryError = backend.UserMessage(err)
		}
		data.History = workspace.GroupUploads(history)

		runs, err := uploadlog.Recent(r.Context(), db, events.ChannelDatabase, 25)
		if err != nil {
			slog.Error("dbadmin: load upload runs failed", slog.Any("err", err))
		}
		data.Runs = runs

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := DBAdminPage(data).Render(r.Context(), w); err != nil {
			http.Error(w, "failed to render db admin page", http.StatusInternalServerError)
			return
		}
	}
}

// DeleteDatabaseCommandHandler deletes a database after the exact typed
// confirmation.
func DeleteDatabaseCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
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
		if err := r.ParseForm(); err != nil {
			http.Redirect(w, r, basePath+"?error="+url.QueryEscape("invalid form data"), http.StatusSeeOther)
			return
		}

		name := strings.TrimSpace(r.FormValue("db"))
		typed := r.FormValue("confirmation")
		if err := CheckConfirmation(name, typed); err != nil {
			http.Redirect(w, r, basePath+"?error="+url.QueryEscape(err.Error()), http.StatusSeeOther)
			return
		}
		if workspace.IsSystemDatabase(name) {
			http.Redirect(w, r, basePath+"?error="+url.QueryEscape(ErrSystemDatabase.Error()), http.StatusSeeOther)
			return
		}

		msg, err := ws.Backend.DeleteDatabase(r.Context(), name, typed)
		if err != nil {
			slog.Error("dbadmin: delete database failed", slog.String("db", name), slog.Any("err", err))
			http.Redirect(w, r, basePath+"?error="+url.QueryEscape(backend.UserMessage(err)), http.StatusSeeOther)
			return
		}
		if err := auditSvc.Record(r.Context(), db, session.Email, audit.ActionDeleteDatabase, "database", name, map[string]string{"db": name}, nil); err != nil {
			slog.Error("dbadmin: audit delete failed", slog.String("db", name), slog.Any("err", err))
		}

		ws.InvalidateDatabases()
		if ws.SelectedDatabase() == name {
			ws.SelectDatabase("")
		}
		if msg == "" {
			msg = "deleted " + name
		}
		http.Redirect(w, r, basePath+"?status="+url.QueryEscape(msg), http.StatusSeeOther)
	}
}
