package login

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/Taikiy49/FS-Geolabs/frontend/shared/html"
)

// LoginScreenData feeds the sign-in page.
type LoginScreenData struct {
	Email        string
	ErrorMessage string
	ProviderURL  string
}

func GetLoginScreen(data LoginScreenData) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := html.NewWriter(out)
		w.Raw(`<section class="login card"><h1>Geolabs Portal</h1>`)
		w.Render(ctx, html.Banner("", data.ErrorMessage))
		if data.Email != "" {
			w.Raw(`<form method="post" action="/login">`)
			w.Textf(`<p>Signed in as <strong>%s</strong>.</p>`, data.Email)
			w.Raw(`<button type="submit">Continue</button></form>`)
		} else {
			w.Raw(`<p>Use your Geolabs Microsoft account to continue.</p>`)
			w.Textf(`<a class="button" href="%s">Sign in with Microsoft</a>`, data.ProviderURL)
		}
		w.Raw(`</section>`)
		return w.Err()
	})
	return html.Bare("Sign in", body)
}
