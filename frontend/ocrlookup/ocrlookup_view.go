package ocrlookup

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/Taikiy49/FS-Geolabs/frontend/shared/html"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/listing"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/ocrwizard"
)

var sortColumns = []struct{ label, field string }{
	{"Work Order", ocrwizard.SortWorkOrder},
	{"Client", ocrwizard.SortClient},
	{"Project", ocrwizard.SortProject},
	{"Date", ocrwizard.SortDate},
}

func OCRPage(data PageData) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := html.NewWriter(out)
		st := data.State
		w.Render(ctx, html.Banner(data.Status, data.ErrorMessage))
		if st.Message != "" {
			w.Textf(`<div class="alert">%s</div>`, st.Message)
		}
		switch st.Step {
		case ocrwizard.Reviewing:
			w.Render(ctx, review(st))
		case ocrwizard.Extracting:
			w.Textf(`<p class="muted" data-refresh="1500">Reading work orders from %s&hellip;</p>`, st.ImageName)
		default:
			w.Render(ctx, imageForm())
		}
		return w.Err()
	})
	return html.Page("OCR Lookup", data.Top, body)
}

func imageForm() templ.Component {
	return templ.ComponentFunc(func(_ context.Context, out io.Writer) error {
		w := html.NewWriter(out)
		w.Raw(`<section class="card"><h2>1. Photo of the work-order list</h2>`)
		w.Textf(`<form method="post" action="%s/image" enctype="multipart/form-data" data-busy-label="Reading…">`, basePath)
		w.Raw(`<input type="file" name="image" accept="image/*" capture="environment" required> `)
		w.Raw(`<button type="submit">Extract work orders</button></form></section>`)
		return w.Err()
	})
}

func review(st ocrwizard.State) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, out io.Writer) error {
		w := html.NewWriter(out)
		w.Textf(`<section class="card"><h2>2. Review work orders from %s</h2>`, st.ImageName)
		if st.LookupErr != "" {
			w.Textf(`<p class="error">Lookup failed: %s</p>`, st.LookupErr)
		}
		if st.Looking {
			w.Raw(`<p class="muted" data-refresh="1500">Looking up projects&hellip;</p>`)
		}

		w.Raw(`<table><thead><tr><th>Entered</th>`)
		for _, c := range sortColumns {
			arrow := ""
			if st.SortField == c.field {
				arrow = " ▲"
				if st.SortDir == listing.Desc {
					arrow = " ▼"
				}
			}
			w.Textf(`<th><form method="post" action="%s/sort" class="inline"><input type="hidden" name="field" value="%s">`, basePath, c.field)
			w.Textf(`<button type="submit" class="link">%s%s</button></form></th>`, c.label, arrow)
		}
		w.Raw(`<th>PR</th><th></th></tr></thead><tbody>`)
		for _, row := range st.Rows {
			cls := "found"
			switch {
			case row.Pending:
				cls = "pending"
			case !row.Found:
				cls = "missing"
			}
			w.Textf(`<tr class="%s"><td><form method="post" action="%s/edit" class="inline">`, cls, basePath)
			w.Textf(`<input type="hidden" name="i" value="%d"><input type="text" name="text" value="%s" size="12">`, row.Index, row.WorkOrder)
			w.Raw(`<button type="submit" class="icon" title="Save">&#10003;</button></form></td>`)
			if row.Pending {
				w.Raw(`<td colspan="5" class="muted">waiting for lookup</td>`)
			} else {
				m := row.Match
				w.Textf(`<td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td>`, m.ProjectWO, m.Client, m.Project, m.Date, m.PR)
			}
			w.Textf(`<td><form method="post" action="%s/remove" class="inline"><input type="hidden" name="i" value="%d">`, basePath, row.Index)
			w.Raw(`<button type="submit" class="icon danger" title="Remove">&times;</button></form></td></tr>`)
		}
		w.Raw(`</tbody></table>`)

		w.Textf(`<form method="post" action="%s/add" class="inline"><input type="text" name="text" placeholder="Add work order" required> <button type="submit">Add</button></form> `, basePath)
		w.Textf(`<form method="post" action="%s/lookup" class="inline"><button type="submit">Look up again</button></form> `, basePath)
		w.Textf(`<a class="button" href="%s/export">Export CSV</a> <a class="button" href="%s/export?format=xlsx">Export XLSX</a> `, basePath, basePath)
		w.Textf(`<form method="post" action="%s/reset" class="inline"><button type="submit">Start over</button></form>`, basePath)
		w.Raw(`</section>`)
		return w.Err()
	})
}
