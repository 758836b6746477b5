package s3files

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/Taikiy49/FS-Geolabs/frontend/shared/context"
	"github.com/Taikiy49/FS-Geolabs/frontend/shared/listview"
	"github.com/Taikiy49/FS-Geolabs/frontend/shared/nav"
	"github.com/Taikiy49/FS-Geolabs/frontend/shared/uploads"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/audit"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/backend"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/config"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/s3storage"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/sqlite"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/uploadqueue"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/workspace"
)

const basePath = "/portal/s3"

func redirectError(w http.ResponseWriter, r *http.Request, msg string) {
	http.Redirect(w, r, basePath+"?error="+url.QueryEscape(msg), http.StatusSeeOther)
}

func redirectStatus(w http.ResponseWriter, r *http.Request, msg string) {
	http.Redirect(w, r, basePath+"?status="+url.QueryEscape(msg), http.StatusSeeOther)
}

// Uploads is the S3 upload queue of this screen.
func Uploads(cfg config.UploadConfig) uploads.Queue {
	return uploads.Queue{
		Path:   basePath,
		Pick:   func(ws *workspace.Workspace) *uploadqueue.Queue { return ws.S3Uploads },
		Dest:   destination,
		Config: cfg,
	}
}

func destination(r *http.Request, _ *workspace.Workspace) (string, map[string]string, error) {
	db := strings.TrimSpace(r.FormValue("db"))
	if db == "" {
		return "", nil, ErrDatabaseRequired
	}
	index := "0"
	if r.FormValue("index") == "1" {
		index = "1"
	}
	prefix := strings.Trim(strings.TrimSpace(r.FormValue("prefix")), "/")
	return prefix, map[string]string{
		workspace.ParamDB:    db,
		workspace.ParamIndex: index,
		workspace.ParamMode:  NormalizeMode(r.FormValue("mode")),
	}, nil
}

// S3PageQueryHandler renders the object list and, for editors, the upload
// queue and bulk actions.
func S3PageQueryHandler(cfg config.UploadConfig) http.HandlerFunc {
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
		if listview.ApplyQuery(w, r, ws.S3, basePath) {
			return
		}
		if r.URL.Query().Get("reload") == "1" {
			ws.InvalidateS3()
		}
		listview.Refresh(r.Context(), ws.S3, "s3")

		snap := ws.S3.Snapshot()
		data := PageData{
			Top:          nav.BuildTopNavData(session, basePath),
			List:         snap,
			Prefix:       snap.Query.Filter(workspace.S3FilterPrefix),
			CanEdit:      session.HasScreen(EditCode),
			Selected:     ws.SelectedDatabase(),
			Accepted:     cfg.AcceptedExt,
			Status:       r.URL.Query().Get("status"),
			ErrorMessage: r.URL.Query().Get("error"),
		}
		data.Top.SelectedDB = data.Selected
		if data.CanEdit {
			data.Queue = uploads.NewStatus(ws.S3Uploads)
			dbs, err := ws.AllDatabases(r.Context())
			if err != nil {
				slog.Warn("s3: load databases failed", slog.Any("err", err))
			}
			data.Databases = dbs
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := S3Page(data).Render(r.Context(), w); err != nil {
			http.Error(w, "failed to render s3 page", http.StatusInternalServerError)
			return
		}
	}
}

// DownloadQueryHandler redirects to a download link for ?key=. Links are
// presigned locally when storage is configured, else the backend url is
// used.
func DownloadQueryHandler(storage *s3storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := context.GetWorkspaceFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		key := r.URL.Query().Get("key")
		if key == "" {
			redirectError(w, r, "missing file key")
			return
		}
		if storage != nil {
			link, err := storage.PresignDownload(r.Context(), key)
			if err == nil {
				http.Redirect(w, r, link, http.StatusFound)
				return
			}
			slog.Warn("s3: presign failed, using backend url", slog.String("key", key), slog.Any("err", err))
		}
		obj, found, err := ws.S3Object(r.Context(), key)
		if err != nil {
			redirectError(w, r, backend.UserMessage(err))
			return
		}
		if !found || obj.URL == "" {
			redirectError(w, r, "no download link for "+key)
			return
		}
		http.Redirect(w, r, obj.URL, http.StatusFound)
	}
}

// SelectCommandHandler replaces the selection with the posted keys.
func SelectCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := context.GetWorkspaceFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if err := r.ParseForm(); err != nil {
			redirectError(w, r, "invalid form data")
			return
		}
		if r.FormValue("none") == "1" {
			ws.S3.ClearSelection()
		} else {
			listview.ApplySelection(r, ws.S3)
		}
		http.Redirect(w, r, basePath, http.StatusSeeOther)
	}
}

// DeleteCommandHandler deletes the selected objects after the typed
// confirmation.
func DeleteCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
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
			redirectError(w, r, "invalid form data")
			return
		}
		keys := selectedKeys(ws)
		if err := CheckDelete(len(keys), r.FormValue("confirmation")); err != nil {
			redirectError(w, r, err.Error())
			return
		}
		if err := ws.Backend.S3Delete(r.Context(), keys); err != nil {
			slog.Error("s3: delete failed", slog.Int("count", len(keys)), slog.Any("err", err))
			redirectError(w, r, backend.UserMessage(err))
			return
		}
		if err := auditSvc.Record(r.Context(), db, session.Email, audit.ActionDeleteObjects, "s3", strings.Join(keys, ","), map[string]any{"keys": keys}, nil); err != nil {
			slog.Error("s3: audit delete failed", slog.Any("err", err))
		}
		ws.S3.ClearSelection()
		ws.InvalidateS3()
		redirectStatus(w, r, fmt.Sprintf("%d file(s) deleted", len(keys)))
	}
}

// MoveCommandHandler renames one object within its top-level folder.
func MoveCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
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
			redirectError(w, r, "invalid form data")
			return
		}
		src := r.FormValue("key")
		dst, err := MoveDestination(src, r.FormValue("to"))
		if err != nil {
			redirectError(w, r, err.Error())
			return
		}
		if err := ws.Backend.S3Move(r.Context(), src, dst); err != nil {
			slog.Error("s3: move failed", slog.String("src", src), slog.String("dst", dst), slog.Any("err", err))
			redirectError(w, r, backend.UserMessage(err))
			return
		}
		if err := auditSvc.Record(r.Context(), db, session.Email, audit.ActionMoveObject, "s3", src, map[string]string{"key": src}, map[string]string{"key": dst}); err != nil {
			slog.Error("s3: audit move failed", slog.Any("err", err))
		}
		ws.InvalidateS3()
		redirectStatus(w, r, "moved to "+dst)
	}
}

// ReindexCommandHandler indexes the selected objects into a database.
func ReindexCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
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
			redirectError(w, r, "invalid form data")
			return
		}
		keys := selectedKeys(ws)
		if r.FormValue("key") != "" {
			keys = []string{r.FormValue("key")}
		}
		if len(keys) == 0 {
			redirectError(w, r, ErrNothingSelected.Error())
			return
		}
		target := ReindexDatabase(r.FormValue("db"), keys)
		mode := NormalizeMode(r.FormValue("mode"))
		if err := ws.Backend.S3Reindex(r.Context(), keys, target, mode); err != nil {
			slog.Error("s3: reindex failed", slog.String("db", target), slog.Any("err", err))
			redirectError(w, r, backend.UserMessage(err))
			return
		}
		if err := auditSvc.Record(r.Context(), db, session.Email, audit.ActionReindexObjects, "database", target, nil, map[string]any{"keys": keys, "mode": mode}); err != nil {
			slog.Error("s3: audit reindex failed", slog.Any("err", err))
		}
		redirectStatus(w, r, "indexing started for "+target)
	}
}

func selectedKeys(ws *workspace.Workspace) []string {
	rows := ws.S3.SelectedRows()
	keys := make([]string, 0, len(rows))
	for _, o := range rows {
		keys = append(keys, o.Key)
	}
	return keys
}
