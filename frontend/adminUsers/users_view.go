package adminusers

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/Taikiy49/FS-Geolabs/frontend/shared/html"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/rbac"
)

func roleSelect(w *html.Writer, actorRole, current string) {
	w.Raw(`<select name="role">`)
	for _, role := range rbac.Roles {
		if role == rbac.RoleOwner && rbac.NormalizeRole(actorRole) != rbac.RoleOwner {
			continue
		}
		sel := ""
		if role == current {
			sel = " selected"
		}
		w.Textf(`<option value="%s"`, role)
		w.Raw(sel)
		w.Textf(`>%s</option>`, rbac.BackendRole(role))
	}
	w.Raw(`</select>`)
}

func UsersListPage(data PageData) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := html.NewWriter(out)
		w.Render(ctx, html.Banner(data.Status, data.ErrorMessage))

		w.Raw(`<section class="card"><h2>Add user</h2>`)
		w.Textf(`<form method="post" action="%s/create" class="inline">`, basePath)
		w.Raw(`<input type="email" name="email" placeholder="name@geolabs.net" required> `)
		roleSelect(w, data.ActorRole, rbac.RoleUser)
		w.Raw(` <button type="submit">Add</button></form></section>`)

		w.Raw(`<section class="card"><h2>Users</h2>`)
		if data.LoadError != "" {
			w.Textf(`<p class="error">%s</p>`, data.LoadError)
		}
		w.Raw(`<table><thead><tr><th>Email</th><th>Role</th><th>Change role</th><th>Delete</th></tr></thead><tbody>`)
		for _, u := range data.Users {
			w.Textf(`<tr><td>%s`, u.Email)
			switch {
			case u.SuperOwner:
				w.Raw(` <span class="badge">super owner</span>`)
			case u.Self:
				w.Raw(` <span class="badge">you</span>`)
			}
			w.Textf(`</td><td>%s</td>`, rbac.BackendRole(u.Role))
			if !u.Editable {
				w.Raw(`<td class="muted">locked</td><td></td></tr>`)
				continue
			}
			w.Textf(`<td><form method="post" action="%s/role" class="inline"><input type="hidden" name="email" value="%s">`, basePath, u.Email)
			roleSelect(w, data.ActorRole, u.Role)
			w.Raw(` <button type="submit">Save</button></form></td>`)
			w.Textf(`<td><form method="post" action="%s/delete" class="inline confirm"><input type="hidden" name="email" value="%s">`, basePath, u.Email)
			w.Textf(`<input type="text" name="confirmation" placeholder="%s" autocomplete="off" required> `, DeletePhrase(u.Email))
			w.Raw(`<button type="submit" class="danger">Delete</button></form></td></tr>`)
		}
		w.Raw(`</tbody></table></section>`)

		w.Raw(`<section class="card"><h2>Recent changes</h2>`)
		if len(data.Audit) == 0 {
			w.Raw(`<p class="muted">Nothing recorded yet.</p>`)
		} else {
			w.Raw(`<table><thead><tr><th>When</th><th>Who</th><th>Action</th><th>Target</th></tr></thead><tbody>`)
			for _, a := range data.Audit {
				w.Textf(`<tr><td>%s</td><td>%s</td><td>%s</td><td>%s: %s</td></tr>`,
					a.CreatedAt.Local().Format("2006-01-02 15:04"), a.Actor, a.Action, a.EntityType, a.EntityID)
			}
			w.Raw(`</tbody></table>`)
		}
		w.Raw(`</section>`)
		return w.Err()
	})
	return html.Page("Admin", data.Top, body)
}
