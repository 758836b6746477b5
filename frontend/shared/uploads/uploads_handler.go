// Package uploads serves the upload queue controls shared by the database
// and S3 admin screens.
package uploads

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Taikiy49/FS-Geolabs/frontend/shared/context"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/config"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/uploadqueue"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/workspace"
)

const maxMemory = 32 << 20

// Picker selects the queue a screen drives.
type Picker func(ws *workspace.Workspace) *uploadqueue.Queue

// Destination reads the upload target and its options from the posted
// form. It runs before any file is spooled.
type Destination func(r *http.Request, ws *workspace.Workspace) (target string, params map[string]string, err error)

// Queue binds one workspace queue to a screen.
type Queue struct {
	// Path is the screen the commands redirect back to.
	Path   string
	Pick   Picker
	Dest   Destination
	Config config.UploadConfig
}

// Mount registers the queue commands under prefix, relative to r.
func (q Queue) Mount(r chi.Router, prefix string) {
	r.Post(prefix+"/uploads", q.EnqueueCommandHandler())
	r.Post(prefix+"/uploads/start", q.StartCommandHandler())
	r.Post(prefix+"/uploads/cancel", q.CancelCommandHandler())
	r.Post(prefix+"/uploads/retry", q.RetryCommandHandler())
	r.Post(prefix+"/uploads/remove", q.RemoveCommandHandler())
	r.Post(prefix+"/uploads/clear", q.ClearCommandHandler())
	r.Get(prefix+"/uploads/status", q.StatusQueryHandler())
}

func (q Queue) redirect(w http.ResponseWriter, r *http.Request, key, msg string) {
	target := q.Path
	if msg != "" {
		target += "?" + key + "=" + url.QueryEscape(msg)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (q Queue) workspace(w http.ResponseWriter, r *http.Request) (*workspace.Workspace, bool) {
	ws, ok := context.GetWorkspaceFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return nil, false
	}
	return ws, true
}

// EnqueueCommandHandler spools the posted "files" and queues them. With
// start=1 the queue runs straight away.
func (q Queue) EnqueueCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := q.workspace(w, r)
		if !ok {
			return
		}
		if err := r.ParseMultipartForm(maxMemory); err != nil {
			q.redirect(w, r, "error", "invalid upload form")
			return
		}
		defer func() {
			if r.MultipartForm != nil {
				_ = r.MultipartForm.RemoveAll()
			}
		}()

		target, params, err := q.Dest(r, ws)
		if err != nil {
			q.redirect(w, r, "error", err.Error())
			return
		}
		queue := q.Pick(ws)

		var (
			files   []uploadqueue.File
			skipped []string
		)
		for _, fh := range r.MultipartForm.File["files"] {
			if !queue.Accepts(fh.Filename) {
				skipped = append(skipped, fh.Filename)
				continue
			}
			src, err := fh.Open()
			if err != nil {
				slog.Error("open posted file failed", slog.String("file", fh.Filename), slog.Any("err", err))
				skipped = append(skipped, fh.Filename)
				continue
			}
			f, err := uploadqueue.Spool(q.Config.SpoolDir, fh.Filename, src, q.Config.MaxFileBytes)
			_ = src.Close()
			if err != nil {
				if !errors.Is(err, uploadqueue.ErrTooLarge) {
					slog.Error("spool upload failed", slog.String("file", fh.Filename), slog.Any("err", err))
				}
				skipped = append(skipped, fh.Filename)
				continue
			}
			f.Target = target
			f.Params = params
			files = append(files, f)
		}
		if len(files) == 0 && len(skipped) == 0 {
			q.redirect(w, r, "error", "choose at least one file")
			return
		}

		added, dup := queue.Enqueue(files...)
		skipped = append(skipped, dup...)
		if r.FormValue("start") == "1" && len(added) > 0 {
			if err := ws.StartUploads(queue); err != nil && !errors.Is(err, uploadqueue.ErrNoFiles) {
				q.redirect(w, r, "error", err.Error())
				return
			}
		}
		q.redirect(w, r, "status", Summary(len(added), skipped))
	}
}

// Summary describes an enqueue for the status banner.
func Summary(added int, skipped []string) string {
	msg := fmt.Sprintf("%d file(s) queued", added)
	if len(skipped) > 0 {
		msg += fmt.Sprintf(", skipped %s", strings.Join(skipped, ", "))
	}
	return msg
}

func (q Queue) StartCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := q.workspace(w, r)
		if !ok {
			return
		}
		if err := ws.StartUploads(q.Pick(ws)); err != nil {
			q.redirect(w, r, "error", err.Error())
			return
		}
		q.redirect(w, r, "status", "uploads started")
	}
}

// CancelCommandHandler cancels the posted id, or every upload with all=1.
func (q Queue) CancelCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := q.workspace(w, r)
		if !ok {
			return
		}
		queue := q.Pick(ws)
		if r.FormValue("all") == "1" {
			n := queue.CancelAll()
			q.redirect(w, r, "status", fmt.Sprintf("%d upload(s) canceled", n))
			return
		}
		if !queue.Cancel(r.FormValue("id")) {
			q.redirect(w, r, "error", "that upload is not running")
			return
		}
		q.redirect(w, r, "status", "upload canceled")
	}
}

// RetryCommandHandler requeues the posted id, or every failed item with
// all=1, and starts the queue.
func (q Queue) RetryCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := q.workspace(w, r)
		if !ok {
			return
		}
		queue := q.Pick(ws)
		if r.FormValue("all") == "1" {
			if queue.RetryFailed() == 0 {
				q.redirect(w, r, "error", "nothing to retry")
				return
			}
		} else if err := queue.Retry(r.FormValue("id")); err != nil {
			q.redirect(w, r, "error", err.Error())
			return
		}
		if err := ws.StartUploads(queue); err != nil {
			q.redirect(w, r, "error", err.Error())
			return
		}
		q.redirect(w, r, "status", "retrying")
	}
}

func (q Queue) RemoveCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := q.workspace(w, r)
		if !ok {
			return
		}
		if err := q.Pick(ws).Remove(r.FormValue("id")); err != nil {
			q.redirect(w, r, "error", err.Error())
			return
		}
		q.redirect(w, r, "status", "removed")
	}
}

// ClearCommandHandler removes finished items, or every idle item with
// which=all.
func (q Queue) ClearCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := q.workspace(w, r)
		if !ok {
			return
		}
		queue := q.Pick(ws)
		var n int
		if r.FormValue("which") == "all" {
			n = queue.Clear()
		} else {
			n = queue.ClearFinished()
		}
		q.redirect(w, r, "status", fmt.Sprintf("cleared %d item(s)", n))
	}
}

// StatusItem is the JSON shape polled by the page script.
type StatusItem struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Target   string   `json:"target,omitempty"`
	Size     int64    `json:"size"`
	Pages    int      `json:"pages,omitempty"`
	Progress int      `json:"progress"`
	Status   string   `json:"status"`
	Error    string   `json:"error,omitempty"`
	Message  string   `json:"message,omitempty"`
	Steps    []string `json:"steps,omitempty"`
}

// StatusResponse is the queue status payload.
type StatusResponse struct {
	Running bool               `json:"running"`
	Counts  uploadqueue.Counts `json:"counts"`
	Items   []StatusItem       `json:"items"`
}

// NewStatus snapshots q for the status endpoint.
func NewStatus(q *uploadqueue.Queue) StatusResponse {
	items := q.Items()
	out := StatusResponse{Running: q.Running(), Counts: q.Counts(), Items: make([]StatusItem, 0, len(items))}
	for _, it := range items {
		out.Items = append(out.Items, StatusItem{
			ID:       it.ID,
			Name:     it.Name,
			Target:   it.Target,
			Size:     it.Size,
			Pages:    it.Pages,
			Progress: it.Progress,
			Status:   string(it.Status),
			Error:    it.Err,
			Message:  it.Message,
			Steps:    it.Steps,
		})
	}
	return out
}

func (q Queue) StatusQueryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := context.GetWorkspaceFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		if err := json.NewEncoder(w).Encode(NewStatus(q.Pick(ws))); err != nil {
			slog.Error("encode upload status failed", slog.Any("err", err))
		}
	}
}
