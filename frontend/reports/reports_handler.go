package reports

import (
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/Taikiy49/FS-Geolabs/frontend/shared/context"
	"github.com/Taikiy49/FS-Geolabs/frontend/shared/listview"
	"github.com/Taikiy49/FS-Geolabs/frontend/shared/nav"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/backend"
)

const basePath = "/portal/reports"

// ReportsPageQueryHandler ranks report files for ?query=, answers against
// a single ?file= and shows ?view= snippets. The indexed file list is a
// list controller below the results.
func ReportsPageQueryHandler() http.HandlerFunc {
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
		if listview.ApplyQuery(w, r, ws.Reports, basePath) {
			return
		}
		query := r.URL.Query()
		if query.Get("reload") == "1" {
			ws.InvalidateReports()
		}

		data := PageData{
			Top:          nav.BuildTopNavData(session, basePath),
			Search:       ParseSearch(query.Get),
			Status:       query.Get("status"),
			ErrorMessage: query.Get("error"),
		}
		data.Top.SelectedDB = ws.SelectedDatabase()
		s := data.Search

		// Each result fills its own fields; failures stay inline.
		var g errgroup.Group
		g.Go(func() error {
			listview.Refresh(r.Context(), ws.Reports, "reports")
			return nil
		})
		if s.Query != "" {
			g.Go(func() error {
				ranked, err := ws.Backend.RankFiles(r.Context(), s.Query, s.Min, s.Max)
				if err != nil {
					slog.Warn("reports: rank failed", slog.Any("err", err))
					data.RankedErr = backend.UserMessage(err)
				}
				data.Ranked = ranked
				return nil
			})
		}
		if s.Query != "" && s.File != "" {
			g.Go(func() error {
				answer, err := ws.Backend.SingleFileAnswer(r.Context(), s.Query, s.File)
				if err != nil {
					slog.Warn("reports: single file answer failed", slog.String("file", s.File), slog.Any("err", err))
					data.AnswerErr = backend.UserMessage(err)
				}
				data.Answer = answer
				return nil
			})
		}
		if s.View != "" {
			g.Go(func() error {
				snippets, err := ws.Backend.QuickView(r.Context(), s.View, s.Query)
				if err != nil {
					slog.Warn("reports: quick view failed", slog.String("file", s.View), slog.Any("err", err))
					data.SnippetsErr = backend.UserMessage(err)
				}
				data.Snippets = snippets
				return nil
			})
		}
		_ = g.Wait()
		data.Files = ws.Reports.Snapshot()

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := ReportsPage(data).Render(r.Context(), w); err != nil {
			http.Error(w, "failed to render reports page", http.StatusInternalServerError)
			return
		}
	}
}
