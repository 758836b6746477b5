package html

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/Taikiy49/FS-Geolabs/frontend/shared/nav"
)

// Page wraps body in the portal shell with the top navigation.
func Page(title string, top nav.TopNavData, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := NewWriter(out)
		w.Raw(`<!doctype html><html lang="en"><head><meta charset="utf-8">`)
		w.Raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		w.Textf(`<title>%s · Geolabs</title>`, title)
		w.Raw(`<link rel="stylesheet" href="/assets/app.css"></head><body>`)
		w.Raw(`<header class="topnav"><a class="brand" href="/portal">Geolabs</a><nav>`)
		for _, l := range top.Links {
			if l.Active {
				w.Textf(`<a class="active" href="%s">%s</a>`, l.Href, l.Label)
				continue
			}
			w.Textf(`<a href="%s">%s</a>`, l.Href, l.Label)
		}
		w.Raw(`</nav><div class="who">`)
		if top.SelectedDB != "" {
			w.Textf(`<span class="db-pill" title="Selected database">%s</span>`, top.SelectedDB)
		}
		w.Textf(`<span>%s</span> <span class="role">%s</span>`, top.Email, top.Role)
		w.Raw(`<form method="post" action="/logout" class="inline"><button type="submit">Sign out</button></form>`)
		w.Raw(`</div></header><main>`)
		w.Textf(`<h1>%s</h1>`, title)
		w.Render(ctx, body)
		w.Raw(`</main>`)
		w.Raw(`<script src="/assets/app.js" defer></script>`)
		w.Raw(`</body></html>`)
		return w.Err()
	})
}

// Bare renders a page without navigation, used before sign-in.
func Bare(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := NewWriter(out)
		w.Raw(`<!doctype html><html lang="en"><head><meta charset="utf-8">`)
		w.Textf(`<title>%s · Geolabs</title>`, title)
		w.Raw(`<link rel="stylesheet" href="/assets/app.css"></head><body class="bare"><main>`)
		w.Render(ctx, body)
		w.Raw(`</main>`)
		w.Raw(`<script src="/assets/app.js" defer></script>`)
		w.Raw(`</body></html>`)
		return w.Err()
	})
}

// Banner shows the ?status= and ?error= messages of a redirect.
func Banner(status, errMsg string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, out io.Writer) error {
		w := NewWriter(out)
		if status != "" {
			w.Textf(`<div class="banner ok" role="status">%s</div>`, status)
		}
		if errMsg != "" {
			w.Textf(`<div class="banner error" role="alert">%s</div>`, errMsg)
		}
		return w.Err()
	})
}
