package s3files

import (
	"context"
	"io"
	"net/url"

	"github.com/a-h/templ"

	"github.com/Taikiy49/FS-Geolabs/frontend/shared/html"
	"github.com/Taikiy49/FS-Geolabs/frontend/shared/listview"
	"github.com/Taikiy49/FS-Geolabs/frontend/shared/uploads"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/workspace"
)

func S3Page(data PageData) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := html.NewWriter(out)
		w.Render(ctx, html.Banner(data.Status, data.ErrorMessage))

		if data.CanEdit {
			w.Raw(`<section class="card"><h2>Upload to S3</h2>`)
			w.Render(ctx, uploads.Form(basePath, data.Accepted, uploadFields(data)))
			w.Render(ctx, uploads.Table(basePath, data.Queue))
			w.Raw(`</section>`)
		}

		q := data.List.Query
		w.Raw(`<div class="list-tools">`)
		w.Render(ctx, listview.Search(basePath, q.SearchText, "Search keys"))
		w.Textf(`<form method="get" action="%s" class="inline"><input type="text" name="f.%s" value="%s" placeholder="Folder prefix"><button type="submit">Filter</button></form>`,
			basePath, workspace.S3FilterPrefix, data.Prefix)
		w.Textf(`<a class="button" href="%s?reload=1">Reload</a>`, basePath)
		w.Render(ctx, listview.PageSizes(basePath, q.PageSize, 25, 50, 100, 200))
		w.Raw(`</div>`)
		w.Render(ctx, listview.Status(data.List.Loaded, data.List.Err))

		if data.CanEdit {
			w.Textf(`<form method="post" action="%s/select" id="s3-select">`, basePath)
		}
		w.Raw(`<table><thead><tr>`)
		if data.CanEdit {
			w.Raw(`<th class="select"></th>`)
		}
		w.Render(ctx, listview.SortHeader(basePath, "Key", "name", q))
		w.Render(ctx, listview.SortHeader(basePath, "Modified", "modified", q))
		w.Render(ctx, listview.SortHeader(basePath, "Size", "size", q))
		w.Raw(`<th></th></tr></thead><tbody>`)
		if data.List.Loaded && len(data.List.Rows) == 0 {
			w.Raw(`<tr><td colspan="5" class="empty">No files match.</td></tr>`)
		}
		for _, o := range data.List.Rows {
			w.Raw(`<tr>`)
			if data.CanEdit {
				w.Render(ctx, listview.Checkbox(o.Key, data.List.IsSelected(o.Key)))
			}
			modified := ""
			if !o.LastModified.IsZero() {
				modified = o.LastModified.Local().Format("2006-01-02 15:04")
			}
			w.Textf(`<td>%s</td><td>%s</td><td>%s</td>`, o.Key, modified, uploads.FormatSize(o.Size))
			w.Textf(`<td><a href="%s/download?key=%s" target="_blank" rel="noopener">Download</a></td></tr>`, basePath, url.QueryEscape(o.Key))
		}
		w.Raw(`</tbody></table>`)
		if data.CanEdit {
			w.Raw(`<button type="submit">Update selection</button> `)
			w.Raw(`<button type="submit" name="all" value="1">Select page</button> `)
			w.Raw(`<button type="submit" name="none" value="1">Clear selection</button></form>`)
		}
		w.Render(ctx, listview.Pager(basePath, data.List.Pagination))

		if data.CanEdit {
			w.Render(ctx, bulkActions(data))
		}
		return w.Err()
	})
	return html.Page("S3 Files", data.Top, body)
}

func uploadFields(data PageData) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, out io.Writer) error {
		w := html.NewWriter(out)
		w.Raw(`<fieldset class="target"><legend>Destination</legend>`)
		w.Raw(`<select name="db" required><option value="">Target database</option>`)
		for _, db := range data.Databases {
			sel := ""
			if db == data.Selected {
				sel = " selected"
			}
			w.Textf(`<option value="%s"`, db)
			w.Raw(sel)
			w.Textf(`>%s</option>`, workspace.DisplayName(db))
		}
		w.Raw(`</select> <input type="text" name="prefix" placeholder="optional/prefix">`)
		w.Textf(`<select name="mode"><option value="%s">Chunks</option><option value="%s">General</option></select>`, ModeChunks, ModeGeneral)
		w.Raw(` <label><input type="checkbox" name="index" value="1" checked> Index after upload</label></fieldset>`)
		return w.Err()
	})
}

func bulkActions(data PageData) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, out io.Writer) error {
		w := html.NewWriter(out)
		n := len(data.List.Selected)
		w.Textf(`<section class="card"><h2>Selected: %d</h2>`, n)
		if n == 0 {
			w.Raw(`<p class="muted">Tick files above and press Update selection.</p></section>`)
			return w.Err()
		}
		w.Textf(`<form method="post" action="%s/delete" class="confirm">`, basePath)
		w.Textf(`<input type="text" name="confirmation" placeholder="%s" autocomplete="off" required>`, DeletePhrase(n))
		w.Raw(`<button type="submit" class="danger">Delete selected</button></form>`)

		w.Textf(`<form method="post" action="%s/reindex">`, basePath)
		w.Raw(`<select name="db"><option value="">Database from folder</option>`)
		for _, db := range data.Databases {
			w.Textf(`<option value="%s">%s</option>`, db, workspace.DisplayName(db))
		}
		w.Textf(`</select><select name="mode"><option value="%s">Chunks</option><option value="%s">General</option></select>`, ModeChunks, ModeGeneral)
		w.Raw(`<button type="submit">Index selected</button></form>`)

		if n == 1 {
			key := data.List.Selected[0]
			w.Textf(`<form method="post" action="%s/move"><input type="hidden" name="key" value="%s">`, basePath, key)
			w.Raw(`<input type="text" name="to" placeholder="new/path/under/top-folder.pdf" required> <button type="submit">Move / rename</button></form>`)
		}
		w.Raw(`</section>`)
		return w.Err()
	})
}
