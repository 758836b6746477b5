package reports

import (
	"context"
	"io"
	"net/url"
	"strconv"

	"github.com/a-h/templ"

	"github.com/Taikiy49/FS-Geolabs/frontend/shared/html"
	"github.com/Taikiy49/FS-Geolabs/frontend/shared/listview"
)

// link builds a page URL that keeps the current search.
func link(s Search, file, view string) string {
	v := url.Values{}
	if s.Query != "" {
		v.Set("query", s.Query)
	}
	v.Set("min", strconv.Itoa(s.Min))
	v.Set("max", strconv.Itoa(s.Max))
	if file != "" {
		v.Set("file", file)
	}
	if view != "" {
		v.Set("view", view)
	}
	return basePath + "?" + v.Encode()
}

func ReportsPage(data PageData) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := html.NewWriter(out)
		s := data.Search
		w.Render(ctx, html.Banner(data.Status, data.ErrorMessage))

		w.Textf(`<form method="get" action="%s" class="rank-form">`, basePath)
		w.Textf(`<input type="search" name="query" value="%s" placeholder="What are you looking for?" required>`, s.Query)
		w.Textf(`<label>Min <input type="number" name="min" min="1" max="%d" value="%d"></label>`, MaxResultsLimit, s.Min)
		w.Textf(`<label>Max <input type="number" name="max" min="1" max="%d" value="%d"></label>`, MaxResultsLimit, s.Max)
		w.Raw(`<button type="submit">Rank reports</button></form>`)

		if s.Query != "" {
			w.Raw(`<section class="card"><h2>Ranked reports</h2>`)
			switch {
			case data.RankedErr != "":
				w.Textf(`<p class="error">%s</p>`, data.RankedErr)
			case len(data.Ranked) == 0:
				w.Raw(`<p class="muted">No reports matched.</p>`)
			default:
				w.Raw(`<table><thead><tr><th>#</th><th>File</th><th>Score</th><th></th></tr></thead><tbody>`)
				for i, f := range data.Ranked {
					w.Textf(`<tr><td>%d</td><td>%s</td><td>%.3f</td>`, i+1, f.File, f.Score)
					w.Textf(`<td><a href="%s">Answer</a> <a href="%s">Quick view</a></td></tr>`, link(s, f.File, ""), link(s, "", f.File))
				}
				w.Raw(`</tbody></table>`)
			}
			w.Raw(`</section>`)
		}

		if s.File != "" && s.Query != "" {
			w.Textf(`<section class="card"><h2>Answer from %s</h2>`, s.File)
			if data.AnswerErr != "" {
				w.Textf(`<p class="error">%s</p>`, data.AnswerErr)
			} else {
				w.Textf(`<div class="answer">%s</div>`, data.Answer)
			}
			w.Raw(`</section>`)
		}

		if s.View != "" {
			w.Textf(`<section class="card"><h2>Quick view: %s</h2>`, s.View)
			switch {
			case data.SnippetsErr != "":
				w.Textf(`<p class="error">%s</p>`, data.SnippetsErr)
			case len(data.Snippets) == 0:
				w.Raw(`<p class="muted">No matching passages.</p>`)
			default:
				w.Raw(`<ol class="snippets">`)
				for _, sn := range data.Snippets {
					w.Textf(`<li>%s</li>`, sn)
				}
				w.Raw(`</ol>`)
			}
			w.Raw(`</section>`)
		}

		w.Raw(`<section class="card"><h2>Indexed reports</h2><div class="list-tools">`)
		w.Render(ctx, listview.Search(basePath, data.Files.Query.SearchText, "Filter file names"))
		w.Textf(`<a class="button" href="%s?reload=1">Reload</a></div>`, basePath)
		w.Render(ctx, listview.Status(data.Files.Loaded, data.Files.Err))
		w.Raw(`<table><thead><tr>`)
		w.Render(ctx, listview.SortHeader(basePath, "File", "name", data.Files.Query))
		w.Raw(`<th></th></tr></thead><tbody>`)
		for _, f := range data.Files.Rows {
			w.Textf(`<tr><td>%s</td><td><a href="%s">Quick view</a></td></tr>`, f, link(s, "", f))
		}
		w.Raw(`</tbody></table>`)
		w.Render(ctx, listview.Pager(basePath, data.Files.Pagination))
		w.Raw(`</section>`)
		return w.Err()
	})
	return html.Page("Reports", data.Top, body)
}
