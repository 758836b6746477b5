package coreboxes

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/Taikiy49/FS-Geolabs/frontend/shared/html"
	"github.com/Taikiy49/FS-Geolabs/frontend/shared/listview"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/workspace"
)

var columns = []struct{ label, field string }{
	{"Year", "year"},
	{"Island", "island"},
	{"Work Order", "work_order"},
	{"Project", "project"},
	{"Engineer", "engineer"},
	{"Report Submitted", "report_submission_date"},
	{"Storage Expiry", "storage_expiry_date"},
}

func CoreBoxesPage(data PageData) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := html.NewWriter(out)
		q := data.List.Query
		w.Render(ctx, html.Banner(data.Status, data.ErrorMessage))
		w.Render(ctx, filters(data))
		if data.OptionsErr != "" {
			w.Textf(`<p class="error">Filter options unavailable: %s</p>`, data.OptionsErr)
		}

		w.Raw(`<div class="list-tools">`)
		w.Textf(`<span>%d boxes</span> `, data.List.Total)
		w.Render(ctx, listview.PageSizes(basePath, q.PageSize, 25, 50, 100, 200))
		w.Textf(`<a class="button" href="%s/export">Export CSV</a> <a class="button" href="%s/export?format=xlsx">Export XLSX</a>`, basePath, basePath)
		w.Raw(`</div>`)
		w.Render(ctx, listview.Status(data.List.Loaded, data.List.Err))

		w.Textf(`<form method="post" action="%s/select"><table><thead><tr><th class="select"></th>`, basePath)
		for _, c := range columns {
			w.Render(ctx, listview.SortHeader(basePath, c.label, c.field, q))
		}
		w.Raw(`<th>Complete</th><th>Keep/Dump</th></tr></thead><tbody>`)
		if data.List.Loaded && len(data.List.Rows) == 0 {
			w.Raw(`<tr><td colspan="10" class="empty">No core boxes match.</td></tr>`)
		}
		for _, b := range data.List.Rows {
			cls := ""
			if IsExpired(b, data.Today) {
				cls = ` class="expired"`
			}
			w.Raw(`<tr`, cls, `>`)
			w.Render(ctx, listview.Checkbox(workspace.CoreBoxKey(b), data.List.IsSelected(workspace.CoreBoxKey(b))))
			year := ""
			if b.Year > 0 {
				year = strconv.Itoa(b.Year)
			}
			w.Textf(`<td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>`,
				year, b.Island, b.WorkOrder, b.Project, b.Engineer, b.ReportSubmissionDate, b.StorageExpiryDate, b.Complete, b.KeepOrDump)
		}
		w.Raw(`</tbody></table>`)
		w.Raw(`<button type="submit">Update selection</button> <button type="submit" name="all" value="1">Select page</button> `)
		w.Raw(`<button type="submit" name="none" value="1">Clear selection</button></form>`)
		w.Render(ctx, listview.Pager(basePath, data.List.Pagination))

		if n := len(data.List.Selected); n > 0 {
			w.Textf(`<p><a class="button" href="%s/labels" target="_blank" rel="noopener">Print %d label(s)</a></p>`, basePath, n)
		}
		return w.Err()
	})
	return html.Page("Core Box Inventory", data.Top, body)
}

func option(w *html.Writer, value, label, current string) {
	sel := ""
	if value == current {
		sel = " selected"
	}
	w.Textf(`<option value="%s"`, value)
	w.Raw(sel)
	w.Textf(`>%s</option>`, label)
}

func filters(data PageData) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, out io.Writer) error {
		w := html.NewWriter(out)
		q := data.List.Query
		w.Textf(`<form method="get" action="%s" class="filters">`, basePath)
		w.Textf(`<input type="search" name="q" value="%s" placeholder="Work order, project, engineer">`, q.SearchText)

		w.Textf(`<select name="f.%s">`, workspace.CoreBoxFilterIsland)
		option(w, "", "All islands", q.Filter(workspace.CoreBoxFilterIsland))
		for _, island := range data.Islands {
			option(w, island, island, q.Filter(workspace.CoreBoxFilterIsland))
		}
		w.Raw(`</select>`)

		w.Textf(`<select name="f.%s">`, workspace.CoreBoxFilterYear)
		option(w, "", "All years", q.Filter(workspace.CoreBoxFilterYear))
		for _, y := range data.Years {
			option(w, strconv.Itoa(y), strconv.Itoa(y), q.Filter(workspace.CoreBoxFilterYear))
		}
		w.Raw(`</select>`)

		w.Textf(`<select name="f.%s">`, workspace.CoreBoxFilterDone)
		option(w, "", "Complete: any", q.Filter(workspace.CoreBoxFilterDone))
		option(w, "Yes", "Complete", q.Filter(workspace.CoreBoxFilterDone))
		option(w, "No", "Not complete", q.Filter(workspace.CoreBoxFilterDone))
		w.Raw(`</select>`)

		w.Textf(`<select name="f.%s">`, workspace.CoreBoxFilterKeep)
		option(w, "", "Keep or dump", q.Filter(workspace.CoreBoxFilterKeep))
		option(w, "Keep", "Keep", q.Filter(workspace.CoreBoxFilterKeep))
		option(w, "Dump", "Dump", q.Filter(workspace.CoreBoxFilterKeep))
		w.Raw(`</select>`)

		// The hidden field follows the checkbox so an unchecked box still
		// clears the filter.
		checked := ""
		if q.Filter(workspace.CoreBoxFilterExpired) == "1" {
			checked = " checked"
		}
		w.Textf(`<label><input type="checkbox" name="f.%s" value="1"`, workspace.CoreBoxFilterExpired)
		w.Raw(checked, `> Expired only</label>`)
		w.Textf(`<input type="hidden" name="f.%s" value="">`, workspace.CoreBoxFilterExpired)

		w.Raw(`<button type="submit">Apply</button></form>`)
		w.Textf(`<form method="post" action="%s/clear" class="inline"><button type="submit">Clear filters</button></form>`, basePath)
		return w.Err()
	})
}

