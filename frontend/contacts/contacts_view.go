package contacts

import (
	"context"
	"io"
	"net/url"

	"github.com/a-h/templ"

	"github.com/Taikiy49/FS-Geolabs/frontend/shared/html"
	"github.com/Taikiy49/FS-Geolabs/frontend/shared/listview"
)

var columns = []struct{ label, field string }{
	{"Name", "name"},
	{"Email", "email"},
	{"Mobile", "mobile"},
	{"Business", "business"},
	{"Title", "title"},
	{"Department", "department"},
	{"Office", "office"},
	{"Company", "company"},
	{"Source", "source"},
}

func ContactsPage(data PageData) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := html.NewWriter(out)
		q := data.List.Query
		w.Render(ctx, html.Banner(data.Status, data.ErrorMessage))

		w.Raw(`<nav class="tabs">`)
		for _, s := range Sources {
			cls := ""
			if s == data.Source {
				cls = ` class="active"`
			}
			w.Textf(`<a href="%s?source=%s"`, basePath, url.QueryEscape(s))
			w.Raw(cls)
			w.Textf(`>%s</a>`, s)
		}
		w.Raw(`</nav>`)

		w.Raw(`<div class="list-tools">`)
		w.Render(ctx, listview.Search(basePath, q.SearchText, "Search name, email, title, department, office or phone"))
		w.Render(ctx, listview.PageSizes(basePath, q.PageSize, 25, 50, 100, 200))
		w.Textf(`<a class="button" href="%s/export">Export CSV</a> <a class="button" href="%s/export?format=xlsx">Export XLSX</a>`, basePath, basePath)
		w.Raw(`</div>`)

		if data.NoToken {
			w.Raw(`<div class="alert">Contacts need a Microsoft sign-in token. Sign out and back in through the company login.</div>`)
		} else {
			w.Render(ctx, listview.Status(data.List.Loaded, data.List.Err))
		}

		w.Raw(`<table><thead><tr>`)
		for _, c := range columns {
			w.Render(ctx, listview.SortHeader(basePath, c.label, c.field, q))
		}
		w.Raw(`</tr></thead><tbody>`)
		if data.List.Loaded && len(data.List.Rows) == 0 {
			w.Raw(`<tr><td colspan="9" class="empty">No contacts match.</td></tr>`)
		}
		for _, c := range data.List.Rows {
			w.Textf(`<tr><td>%s</td><td>`, c.Name)
			if c.Email != "" {
				w.Textf(`<a href="mailto:%s">%s</a>`, c.Email, c.Email)
			}
			w.Textf(`</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>`,
				c.Mobile, c.Business, c.Title, c.Department, c.Office, c.Company, c.Source)
		}
		w.Raw(`</tbody></table>`)
		w.Textf(`<p class="muted">%d contacts</p>`, data.List.Total)
		w.Render(ctx, listview.Pager(basePath, data.List.Pagination))
		return w.Err()
	})
	return html.Page("Contacts", data.Top, body)
}
