package dbadmin

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/Taikiy49/FS-Geolabs/frontend/shared/html"
	"github.com/Taikiy49/FS-Geolabs/frontend/shared/uploads"
)

const timeLayout = "2006-01-02 15:04"

func DBAdminPage(data PageData) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := html.NewWriter(out)
		w.Render(ctx, html.Banner(data.Status, data.ErrorMessage))

		w.Raw(`<section class="card"><h2>Upload documents</h2>`)
		w.Render(ctx, uploads.Form(basePath, data.AcceptedExt, targetFields(data)))
		w.Render(ctx, uploads.Table(basePath, data.Queue))
		w.Raw(`</section>`)

		w.Raw(`<section class="card"><h2>Databases</h2>`)
		if data.LoadError != "" {
			w.Textf(`<div class="banner error" role="alert">%s</div>`, data.LoadError)
		}
		w.Raw(`<table><thead><tr><th>Name</th><th>File</th><th>Delete</th></tr></thead><tbody>`)
		for _, db := range data.Databases {
			w.Textf(`<tr><td>%s</td><td><code>%s</code></td><td>`, db.DisplayName, db.Name)
			w.Textf(`<form method="post" action="%s/delete" class="inline confirm">`, basePath)
			w.Textf(`<input type="hidden" name="db" value="%s">`, db.Name)
			w.Textf(`<input type="text" name="confirmation" placeholder="%s" autocomplete="off" required>`, ConfirmationPhrase(db.Name))
			w.Raw(`<button type="submit" class="danger">Delete</button></form></td></tr>`)
		}
		w.Raw(`</tbody></table></section>`)

		w.Raw(`<section class="card"><h2>Upload history</h2>`)
		if data.HistoryError != "" {
			w.Textf(`<div class="banner error" role="alert">%s</div>`, data.HistoryError)
		}
		if len(data.History) == 0 && data.HistoryError == "" {
			w.Raw(`<p class="empty">No uploads yet.</p>`)
		}
		for _, batch := range data.History {
			w.Textf(`<details><summary><strong>%s</strong> · %s · %d file(s) · %s</summary><ul>`,
				batch.DB, batch.User, len(batch.Entries), batch.Start.Format(timeLayout))
			for _, e := range batch.Entries {
				w.Textf(`<li>%s <span class="muted">%s</span></li>`, e.File, e.Time)
			}
			w.Raw(`</ul></details>`)
		}
		w.Raw(`</section>`)

		w.Raw(`<section class="card"><h2>Portal upload log</h2>`)
		if len(data.Runs) == 0 {
			w.Raw(`<p class="empty">No finished uploads recorded.</p>`)
		} else {
			w.Raw(`<table><thead><tr><th>When</th><th>User</th><th>File</th><th>Database</th><th>Status</th><th>Message</th></tr></thead><tbody>`)
			for _, run := range data.Runs {
				w.Textf(`<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>`,
					run.CreatedAt.Local().Format(timeLayout), run.Actor, run.FileName, run.Target, run.Status, run.Message)
			}
			w.Raw(`</tbody></table>`)
		}
		w.Raw(`</section>`)
		return w.Err()
	})
	return html.Page("DB Admin", data.Top, body)
}

func targetFields(data PageData) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, out io.Writer) error {
		w := html.NewWriter(out)
		w.Raw(`<fieldset class="target"><legend>Destination</legend>`)
		w.Textf(`<label><input type="radio" name="mode" value="%s" checked> New database</label> `, ModeNew)
		w.Raw(`<input type="text" name="title" placeholder="e.g. Employee Handbook"> `)
		w.Textf(`<label><input type="radio" name="mode" value="%s"> Append to</label> `, ModeAppend)
		w.Raw(`<select name="db"><option value="">Select a database</option>`)
		for _, db := range data.Databases {
			w.Textf(`<option value="%s">%s</option>`, db.Name, db.DisplayName)
		}
		w.Raw(`</select></fieldset>`)
		return w.Err()
	})
}
