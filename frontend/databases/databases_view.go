package databases

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/a-h/templ"

	"github.com/Taikiy49/FS-Geolabs/frontend/shared/html"
	"github.com/Taikiy49/FS-Geolabs/frontend/shared/listview"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/workspace"
)

func DatabasesPage(data PageData) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := html.NewWriter(out)
		w.Render(ctx, html.Banner(data.Status, data.ErrorMessage))
		w.Raw(`<div class="list-tools">`)
		w.Render(ctx, listview.Search(basePath, data.List.Query.SearchText, "Search databases"))
		w.Textf(`<a class="button" href="%s?reload=1">Reload</a></div>`, basePath)
		w.Render(ctx, listview.Status(data.List.Loaded, data.List.Err))

		w.Raw(`<table><thead><tr>`)
		w.Render(ctx, listview.SortHeader(basePath, "Database", "name", data.List.Query))
		w.Raw(`<th>Actions</th></tr></thead><tbody>`)
		if data.List.Loaded && len(data.List.Rows) == 0 {
			w.Raw(`<tr><td colspan="2" class="empty">No databases match.</td></tr>`)
		}
		for _, db := range data.List.Rows {
			cls := ""
			if db == data.Selected {
				cls = ` class="selected"`
			}
			w.Raw(`<tr`, cls, `>`)
			w.Textf(`<td><strong>%s</strong> <code>%s</code></td><td>`, workspace.DisplayName(db), db)
			w.Textf(`<a href="%s?open=%s">Files</a> `, basePath, url.QueryEscape(db))
			w.Textf(`<a href="%s?inspect=%s">Inspect</a> `, basePath, url.QueryEscape(db))
			w.Textf(`<form method="post" action="%s/select" class="inline"><input type="hidden" name="db" value="%s">`, basePath, db)
			w.Raw(`<input type="hidden" name="back" value="/portal/ask"><button type="submit">Ask AI</button></form>`)
			w.Raw(`</td></tr>`)
			if db == data.Open {
				w.Render(ctx, filesRow(data))
			}
		}
		w.Raw(`</tbody></table>`)
		w.Render(ctx, listview.Pager(basePath, data.List.Pagination))

		if data.Inspect != "" {
			w.Render(ctx, inspectSection(data))
		}
		return w.Err()
	})
	return html.Page("DB Viewer", data.Top, body)
}

func filesRow(data PageData) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, out io.Writer) error {
		w := html.NewWriter(out)
		w.Raw(`<tr class="expanded"><td colspan="2">`)
		switch {
		case data.FilesErr != "":
			w.Textf(`<div class="banner error">%s</div>`, data.FilesErr)
		case len(data.Files) == 0:
			w.Raw(`<p class="empty">No files in this database.</p>`)
		default:
			w.Raw(`<ul class="files">`)
			for _, f := range data.Files {
				w.Textf(`<li>%s</li>`, f)
			}
			w.Raw(`</ul>`)
		}
		w.Raw(`</td></tr>`)
		return w.Err()
	})
}

func inspectSection(data PageData) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, out io.Writer) error {
		w := html.NewWriter(out)
		w.Textf(`<section class="card"><h2>Structure of %s</h2>`, workspace.DisplayName(data.Inspect))
		if data.InspectEr != "" {
			w.Textf(`<div class="banner error">%s</div>`, data.InspectEr)
		}
		for _, t := range data.Tables {
			w.Textf(`<h3>%s</h3><table class="sample"><thead><tr>`, t.Name)
			for _, c := range t.Columns {
				w.Textf(`<th>%s</th>`, c)
			}
			w.Raw(`</tr></thead><tbody>`)
			for _, row := range t.SampleRows {
				w.Raw(`<tr>`)
				for _, v := range row {
					w.Textf(`<td>%s</td>`, cell(v))
				}
				w.Raw(`</tr>`)
			}
			w.Raw(`</tbody></table>`)
		}
		w.Raw(`</section>`)
		return w.Err()
	})
}

// cell renders one sample value, truncating long text.
func cell(v any) string {
	if v == nil {
		return ""
	}
	s := fmt.Sprint(v)
	if r := []rune(s); len(r) > 120 {
		return string(r[:120]) + "…"
	}
	return s
}
