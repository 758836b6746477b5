package askai

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/Taikiy49/FS-Geolabs/frontend/shared/html"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/workspace"
)

func AskPage(data PageData) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := html.NewWriter(out)
		w.Render(ctx, html.Banner(data.Status, data.ErrorMessage))
		w.Raw(`<div class="ask-layout"><aside class="ask-side">`)
		w.Render(ctx, databasePicker(data))
		w.Render(ctx, historyList(data))
		w.Raw(`</aside><section class="ask-main">`)
		w.Render(ctx, transcript(data))
		w.Render(ctx, askForm(data))
		w.Raw(`</section></div>`)
		return w.Err()
	})
	return html.Page("Ask AI", data.Top, body)
}

func databasePicker(data PageData) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, out io.Writer) error {
		w := html.NewWriter(out)
		w.Textf(`<form method="post" action="%s/select" class="db-picker">`, basePath)
		w.Raw(`<label>Database <select name="db" onchange="this.form.submit()"><option value="">Choose a database</option>`)
		for _, db := range data.Databases {
			sel := ""
			if db == data.Selected {
				sel = " selected"
			}
			w.Textf(`<option value="%s"`, db)
			w.Raw(sel)
			w.Textf(`>%s</option>`, workspace.DisplayName(db))
		}
		w.Raw(`</select></label> <noscript><button type="submit">Use</button></noscript></form>`)
		if data.DatabasesErr != "" {
			w.Textf(`<p class="error">%s</p>`, data.DatabasesErr)
		}
		return w.Err()
	})
}

func historyList(data PageData) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, out io.Writer) error {
		w := html.NewWriter(out)
		w.Raw(`<h3>History</h3>`)
		switch {
		case data.Selected == "":
			w.Raw(`<p class="muted">Pick a database to see past questions.</p>`)
			return w.Err()
		case data.HistoryErr != "":
			w.Textf(`<p class="error">%s</p>`, data.HistoryErr)
			return w.Err()
		case len(data.History) == 0:
			w.Raw(`<p class="muted">No questions yet.</p>`)
			return w.Err()
		}
		w.Raw(`<ul class="history">`)
		for _, h := range data.History {
			w.Textf(`<li><form method="post" action="%s/history/load" class="inline"><input type="hidden" name="question" value="%s">`, basePath, h.Question)
			w.Textf(`<button type="submit" class="link">%s</button></form>`, h.Question)
			w.Textf(`<form method="post" action="%s/history/delete" class="inline"><input type="hidden" name="question" value="%s">`, basePath, h.Question)
			w.Raw(`<button type="submit" class="icon danger" title="Delete">&times;</button></form></li>`)
		}
		w.Raw(`</ul>`)
		return w.Err()
	})
}

func transcript(data PageData) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, out io.Writer) error {
		w := html.NewWriter(out)
		w.Raw(`<div class="chat">`)
		if len(data.Messages) == 0 {
			if data.Selected == "" {
				w.Raw(`<p class="muted">Select a database, then ask a question about its documents.</p>`)
			} else {
				w.Textf(`<p class="muted">Ask anything about %s.</p>`, workspace.DisplayName(data.Selected))
			}
		}
		for _, m := range data.Messages {
			switch {
			case m.Err != "":
				w.Textf(`<div class="bubble %s error">%s</div>`, m.Role, m.Err)
			case m.Stopped:
				w.Textf(`<div class="bubble %s stopped"><em>%s</em></div>`, m.Role, m.Text)
			default:
				w.Textf(`<div class="bubble %s">%s</div>`, m.Role, m.Text)
			}
		}
		if data.Busy {
			w.Raw(`<div class="bubble assistant pending">Thinking&hellip;</div>`)
		}
		w.Raw(`</div>`)
		return w.Err()
	})
}

func askForm(data PageData) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, out io.Writer) error {
		w := html.NewWriter(out)
		disabled := ""
		if data.Selected == "" {
			disabled = " disabled"
		}
		w.Textf(`<form method="post" action="%s" class="ask-form" data-busy-label="Thinking…">`, basePath)
		w.Raw(`<textarea name="question" rows="3" placeholder="Ask a question" required`, disabled, `></textarea>`)
		cache, web := "", ""
		if data.UseCache {
			cache = " checked"
		}
		if data.UseWeb {
			web = " checked"
		}
		w.Raw(`<label><input type="checkbox" name="cache" value="1"`, cache, `> Use cached answers</label> `)
		w.Raw(`<label><input type="checkbox" name="web" value="1"`, web, `> Search the web</label> `)
		w.Raw(`<button type="submit"`, disabled, `>Ask</button></form>`)

		w.Raw(`<div class="ask-actions">`)
		w.Textf(`<form method="post" action="%s/stop" class="inline"><button type="submit">Stop</button></form>`, basePath)
		if data.CanRegen {
			w.Textf(`<form method="post" action="%s/regenerate" class="inline">`, basePath)
			w.Raw(`<input type="hidden" name="web" value="`)
			if data.UseWeb {
				w.Raw(`1`)
			}
			w.Raw(`"><button type="submit">Regenerate</button></form>`)
		}
		w.Textf(`<form method="post" action="%s/reset" class="inline"><button type="submit">Clear chat</button></form>`, basePath)
		w.Raw(`</div>`)
		return w.Err()
	})
}
