package settings

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/Taikiy49/FS-Geolabs/frontend/shared/html"
)

func checked(on bool) string {
	if on {
		return " checked"
	}
	return ""
}

func SettingsPage(data PageData) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := html.NewWriter(out)
		w.Render(ctx, html.Banner(data.Status, data.ErrorMessage))
		w.Textf(`<section class="card"><h2>Ask AI defaults</h2><form method="post" action="%s">`, basePath)
		w.Raw(`<p><label><input type="checkbox" name="ask_use_cache" value="1"`, checked(data.Prefs.AskUseCache), `> Use cached answers</label></p>`)
		w.Raw(`<p><label><input type="checkbox" name="ask_use_web" value="1"`, checked(data.Prefs.AskUseWeb), `> Search the web</label></p>`)
		w.Raw(`<button type="submit">Save</button></form></section>`)
		return w.Err()
	})
	return html.Page("Settings", data.Top, body)
}
