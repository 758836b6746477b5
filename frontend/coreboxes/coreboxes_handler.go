package coreboxes

import (
	stdcontext "context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Taikiy49/FS-Geolabs/frontend/exports"
	"github.com/Taikiy49/FS-Geolabs/frontend/shared/context"
	"github.com/Taikiy49/FS-Geolabs/frontend/shared/listview"
	"github.com/Taikiy49/FS-Geolabs/frontend/shared/nav"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/backend"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/listing"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/sqlite"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/workspace"
)

const basePath = "/portal/coreboxes"

func redirectError(w http.ResponseWriter, r *http.Request, msg string) {
	http.Redirect(w, r, basePath+"?error="+url.QueryEscape(msg), http.StatusSeeOther)
}

// CoreBoxesPageQueryHandler renders one server-side page of the inventory
// with the year and island filter options.
func CoreBoxesPageQueryHandler() http.HandlerFunc {
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
		if listview.ApplyQuery(w, r, ws.CoreBoxes, basePath) {
			return
		}

		data := PageData{
			Top:          nav.BuildTopNavData(session, basePath),
			Today:        time.Now(),
			Status:       r.URL.Query().Get("status"),
			ErrorMessage: r.URL.Query().Get("error"),
		}
		data.Top.SelectedDB = ws.SelectedDatabase()

		g, ctx := errgroup.WithContext(r.Context())
		g.Go(func() error {
			years, err := ws.Backend.CoreBoxYears(ctx)
			data.Years = years
			return err
		})
		g.Go(func() error {
			islands, err := ws.Backend.CoreBoxIslands(ctx)
			data.Islands = islands
			return err
		})
		listview.Refresh(r.Context(), ws.CoreBoxes, "coreboxes")
		if err := g.Wait(); err != nil {
			slog.Warn("coreboxes: filter options failed", slog.Any("err", err))
			data.OptionsErr = backend.UserMessage(err)
		}
		data.List = ws.CoreBoxes.Snapshot()

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := CoreBoxesPage(data).Render(r.Context(), w); err != nil {
			http.Error(w, "failed to render core boxes page", http.StatusInternalServerError)
			return
		}
	}
}

// ClearFiltersCommandHandler drops every filter and the search text.
func ClearFiltersCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := context.GetWorkspaceFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		ws.CoreBoxes.ClearFilters()
		ws.CoreBoxes.SetSearchText("")
		http.Redirect(w, r, basePath, http.StatusSeeOther)
	}
}

// SelectCommandHandler replaces the label selection with the posted rows.
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
			ws.CoreBoxes.ClearSelection()
		} else {
			listview.ApplySelection(r, ws.CoreBoxes)
		}
		http.Redirect(w, r, basePath, http.StatusSeeOther)
	}
}

// CollectAll pages through every box matching q, up to limit rows.
func CollectAll(ctx stdcontext.Context, b *backend.Client, q listing.Query, limit int) ([]backend.CoreBox, error) {
	bq := workspace.CoreBoxQuery(q)
	bq.PageSize = workspace.CoreBoxMaxPageSize
	var out []backend.CoreBox
	for page := 1; ; page++ {
		bq.Page = page
		res, err := b.CoreBoxes(ctx, bq)
		if err != nil {
			return nil, fmt.Errorf("core boxes page %d: %w", page, err)
		}
		out = append(out, res.Rows...)
		if len(res.Rows) == 0 || len(out) >= res.Total || len(out) >= limit {
			break
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ExportQueryHandler downloads every box matching the current filter.
func ExportQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := context.GetWorkspaceFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		format, err := exports.ParseFormat(r.URL.Query().Get("format"))
		if err != nil {
			redirectError(w, r, err.Error())
			return
		}
		boxes, err := CollectAll(r.Context(), ws.Backend, ws.CoreBoxes.Query(), MaxExportRows)
		if err != nil {
			slog.Error("coreboxes: export load failed", slog.Any("err", err))
			redirectError(w, r, backend.UserMessage(err))
			return
		}
		exports.Serve(w, r, db, ws.Email, format, Table(boxes, time.Now()))
	}
}

// LabelsQueryHandler renders printable labels for the selected boxes.
func LabelsQueryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := context.GetWorkspaceFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		boxes := ws.CoreBoxes.SelectedRows()
		if len(boxes) == 0 {
			redirectError(w, r, "select at least one box to print")
			return
		}
		pdfBytes, err := renderCoreBoxLabelsPDF(boxes, time.Now())
		if err != nil {
			slog.Error("coreboxes: label pdf failed", slog.Any("err", err))
			redirectError(w, r, "failed to build labels: "+err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=core-box-labels-%d.pdf", len(boxes)))
		_, _ = w.Write(pdfBytes)
	}
}
