// Package listview wires list controllers into page handlers and renders the
// shared table chrome: search box, sortable headers and the page strip.
package listview

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/a-h/templ"

	"github.com/Taikiy49/FS-Geolabs/frontend/shared/html"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/backend"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/listing"
)

// ApplyQuery applies list parameters from the URL. When any were present it
// redirects to path so a reload does not replay them, and reports true.
func ApplyQuery[R any](w http.ResponseWriter, r *http.Request, c *listing.Controller[R], path string) bool {
	if !c.Apply(r.URL.Query()) {
		return false
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
	return true
}

// Refresh reloads c. Failures stay on the snapshot for the page to show.
func Refresh[R any](ctx context.Context, c *listing.Controller[R], screen string) {
	err := c.Refresh(ctx)
	if err == nil || errors.Is(err, listing.ErrSuperseded) || backend.IsCanceled(err) {
		return
	}
	slog.Warn("list refresh failed", slog.String("screen", screen), slog.Any("err", err))
}

// ApplySelection replaces the selection with the posted key values. "all"
// selects every visible row instead.
func ApplySelection[R any](r *http.Request, c *listing.Controller[R]) {
	if r.FormValue("all") == "1" {
		c.SelectAllVisible(true)
		return
	}
	c.SetSelected(r.Form["key"])
}

// ErrorText is the inline message for a failed load.
func ErrorText(err error) string {
	return backend.UserMessage(err)
}

// Search renders the search box. It submits q as a GET so ApplyQuery
// handles it.
func Search(path, text, placeholder string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, out io.Writer) error {
		w := html.NewWriter(out)
		w.Textf(`<form method="get" action="%s" class="search">`, path)
		w.Textf(`<input type="search" name="q" value="%s" placeholder="%s" autocomplete="off">`, text, placeholder)
		w.Raw(`<button type="submit">Search</button>`)
		if text != "" {
			w.Textf(`<a class="clear" href="%s?q=">Clear</a>`, path)
		}
		w.Raw(`</form>`)
		return w.Err()
	})
}

// SortHeader renders a column header that toggles sorting on field.
func SortHeader(path, label, field string, q listing.Query) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, out io.Writer) error {
		w := html.NewWriter(out)
		arrow := ""
		if q.SortField == field {
			arrow = " ▲"
			if q.SortDir == listing.Desc {
				arrow = " ▼"
			}
		}
		v := url.Values{}
		v.Set("sort", field)
		w.Textf(`<th><a href="%s?%s">%s%s</a></th>`, path, v.Encode(), label, arrow)
		return w.Err()
	})
}

// Pager renders the page strip with a range summary.
func Pager(path string, p listing.Pagination) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, out io.Writer) error {
		w := html.NewWriter(out)
		w.Raw(`<nav class="pager">`)
		w.Textf(`<span class="range">%s–%s of %s</span>`, strconv.Itoa(p.From()), strconv.Itoa(p.To()), strconv.Itoa(p.Total))
		if p.HasPrev() {
			w.Textf(`<a href="%s?page=%d" rel="prev">Prev</a>`, path, p.Prev())
		}
		for _, n := range p.Window(7) {
			if n == p.Page {
				w.Textf(`<span class="current">%d</span>`, n)
				continue
			}
			w.Textf(`<a href="%s?page=%d">%d</a>`, path, n, n)
		}
		if p.HasNext() {
			w.Textf(`<a href="%s?page=%d" rel="next">Next</a>`, path, p.Next())
		}
		w.Raw(`</nav>`)
		return w.Err()
	})
}

// PageSizes renders links that change the page size.
func PageSizes(path string, current int, sizes ...int) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, out io.Writer) error {
		w := html.NewWriter(out)
		w.Raw(`<span class="page-sizes">Rows:`)
		for _, n := range sizes {
			if n == current {
				w.Textf(` <strong>%d</strong>`, n)
				continue
			}
			w.Textf(` <a href="%s?size=%d">%d</a>`, path, n, n)
		}
		w.Raw(`</span>`)
		return w.Err()
	})
}

// Checkbox renders a row selection box bound to the surrounding form.
func Checkbox(key string, checked bool) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, out io.Writer) error {
		w := html.NewWriter(out)
		attr := ""
		if checked {
			attr = " checked"
		}
		w.Textf(`<td class="select"><input type="checkbox" name="key" value="%s"`, key)
		w.Raw(attr, `></td>`)
		return w.Err()
	})
}

// Status renders the loading and error state above a table.
func Status(loaded bool, err error) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, out io.Writer) error {
		w := html.NewWriter(out)
		if err != nil {
			w.Textf(`<div class="banner error" role="alert">%s</div>`, ErrorText(err))
		}
		if !loaded && err == nil {
			w.Raw(`<div class="loading">Loading…</div>`)
		}
		return w.Err()
	})
}
