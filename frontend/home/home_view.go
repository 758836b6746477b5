package home

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/Taikiy49/FS-Geolabs/frontend/shared/html"
)

func HomePage(data PageData) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := html.NewWriter(out)
		w.Render(ctx, html.Banner(data.Status, data.ErrorMessage))
		if len(data.Groups) == 0 {
			w.Raw(`<p class="muted">No screens are enabled for your role yet. Ask an admin for access.</p>`)
		}
		for _, g := range data.Groups {
			w.Textf(`<section class="card-group"><h2>%s</h2><div class="cards">`, g.Title)
			for _, c := range g.Cards {
				w.Textf(`<a class="card link" href="%s"><h3>%s</h3><p>%s</p></a>`, c.Href, c.Title, c.Description)
			}
			w.Raw(`</div></section>`)
		}
		return w.Err()
	})
	return html.Page("Home", data.Top, body)
}
