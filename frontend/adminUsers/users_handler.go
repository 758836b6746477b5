package adminusers

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/Taikiy49/FS-Geolabs/frontend/shared/context"
	"github.com/Taikiy49/FS-Geolabs/frontend/shared/nav"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/audit"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/backend"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/rbac"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/sqlite"
)

const basePath = "/portal/admin/users"

func redirectError(w http.ResponseWriter, r *http.Request, msg string) {
	http.Redirect(w, r, basePath+"?error="+url.QueryEscape(msg), http.StatusSeeOther)
}

func redirectStatus(w http.ResponseWriter, r *http.Request, msg string) {
	http.Redirect(w, r, basePath+"?status="+url.QueryEscape(msg), http.StatusSeeOther)
}

// UsersPageQueryHandler renders the backend users with their roles and the
// recent portal audit log.
func UsersPageQueryHandler(db *sqlite.DB, policy Policy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := context.GetSessionFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		ws, ok := context.GetWorkspaceFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		data := PageData{
			Top:          nav.BuildTopNavData(session, basePath),
			ActorRole:    session.Role,
			Roles:        rbac.Roles,
			Status:       r.URL.Query().Get("status"),
			ErrorMessage: r.URL.Query().Get("error"),
		}
		data.Top.SelectedDB = ws.SelectedDatabase()

		users, err := ws.Backend.Users(r.Context())
		if err != nil {
			slog.Error("admin users: failed to load users", slog.Any("err", err))
			data.LoadError = backend.UserMessage(err)
		}
		data.Users = policy.Views(users, session.Email, session.Role)

		entries, err := audit.Recent(r.Context(), db, 30)
		if err != nil {
			slog.Error("admin users: failed to load audit log", slog.Any("err", err))
		}
		data.Audit = entries

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := UsersListPage(data).Render(r.Context(), w); err != nil {
			http.Error(w, "failed to render users page", http.StatusInternalServerError)
			return
		}
	}
}

// CreateUserCommandHandler registers an email with the backend and, for a
// role other than user, assigns it.
func CreateUserCommandHandler(db *sqlite.DB, auditSvc *audit.Service, policy Policy, sessions Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := context.GetSessionFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		ws, ok := context.GetWorkspaceFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if err := r.ParseForm(); err != nil {
			redirectError(w, r, "invalid form data")
			return
		}
		email, err := NormalizeEmail(r.FormValue("email"))
		if err != nil {
			redirectError(w, r, err.Error())
			return
		}
		role := rbac.NormalizeRole(r.FormValue("role"))
		if err := policy.CheckRoleChange(session.Email, session.Role, email, rbac.RoleUser, role); err != nil {
			redirectError(w, r, err.Error())
			return
		}

		if err := ws.Backend.RegisterUser(r.Context(), email); err != nil && !backend.IsStatus(err, http.StatusConflict) {
			slog.Error("admin users: register failed", slog.String("email", email), slog.Any("err", err))
			redirectError(w, r, backend.UserMessage(err))
			return
		}
		if role != rbac.RoleUser {
			if err := ws.Backend.UpdateRole(r.Context(), email, rbac.BackendRole(role)); err != nil {
				slog.Error("admin users: role assignment failed", slog.String("email", email), slog.Any("err", err))
				redirectError(w, r, backend.UserMessage(err))
				return
			}
		}
		if err := sessions.ApplyRole(r.Context(), db, email, role); err != nil {
			slog.Error("admin users: session role update failed", slog.Any("err", err))
		}
		if err := auditSvc.Record(r.Context(), db, session.Email, audit.ActionRegisterUser, "user", email, nil, map[string]string{"role": role}); err != nil {
			slog.Error("admin users: audit failed", slog.Any("err", err))
		}
		redirectStatus(w, r, email+" added as "+rbac.BackendRole(role))
	}
}

// UpdateRoleCommandHandler changes the role of a user.
func UpdateRoleCommandHandler(db *sqlite.DB, auditSvc *audit.Service, policy Policy, sessions Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := context.GetSessionFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		ws, ok := context.GetWorkspaceFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if err := r.ParseForm(); err != nil {
			redirectError(w, r, "invalid form data")
			return
		}
		email, err := NormalizeEmail(r.FormValue("email"))
		if err != nil {
			redirectError(w, r, err.Error())
			return
		}
		next := rbac.NormalizeRole(r.FormValue("role"))

		users, err := ws.Backend.Users(r.Context())
		if err != nil {
			redirectError(w, r, backend.UserMessage(err))
			return
		}
		current := RoleOf(users, email)
		if err := policy.CheckRoleChange(session.Email, session.Role, email, current, next); err != nil {
			redirectError(w, r, err.Error())
			return
		}
		if current == next {
			redirectStatus(w, r, "No change")
			return
		}

		if err := ws.Backend.UpdateRole(r.Context(), email, rbac.BackendRole(next)); err != nil {
			slog.Error("admin users: update role failed", slog.String("email", email), slog.Any("err", err))
			redirectError(w, r, backend.UserMessage(err))
			return
		}
		if err := sessions.ApplyRole(r.Context(), db, email, next); err != nil {
			slog.Error("admin users: session role update failed", slog.Any("err", err))
		}
		if err := auditSvc.Record(r.Context(), db, session.Email, audit.ActionUpdateRole, "user", email,
			map[string]string{"role": current}, map[string]string{"role": next}); err != nil {
			slog.Error("admin users: audit failed", slog.Any("err", err))
		}
		redirectStatus(w, r, email+" is now "+rbac.BackendRole(next))
	}
}

// DeleteUserCommandHandler removes a user after the typed confirmation.
// A mismatch never reaches the backend.
func DeleteUserCommandHandler(db *sqlite.DB, auditSvc *audit.Service, policy Policy, sessions Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := context.GetSessionFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		ws, ok := context.GetWorkspaceFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if err := r.ParseForm(); err != nil {
			redirectError(w, r, "invalid form data")
			return
		}
		email, err := NormalizeEmail(r.FormValue("email"))
		if err != nil {
			redirectError(w, r, err.Error())
			return
		}
		typed := r.FormValue("confirmation")
		// The confirmation is checked before any backend call.
		if err := policy.CheckDelete(session.Email, session.Role, email, rbac.RoleUser, typed); err != nil {
			redirectError(w, r, err.Error())
			return
		}
		users, err := ws.Backend.Users(r.Context())
		if err != nil {
			redirectError(w, r, backend.UserMessage(err))
			return
		}
		current := RoleOf(users, email)
		if err := policy.CheckDelete(session.Email, session.Role, email, current, typed); err != nil {
			redirectError(w, r, err.Error())
			return
		}

		if err := ws.Backend.DeleteUser(r.Context(), email); err != nil {
			slog.Error("admin users: delete failed", slog.String("email", email), slog.Any("err", err))
			redirectError(w, r, backend.UserMessage(err))
			return
		}
		if err := sessions.Forget(r.Context(), db, email); err != nil {
			slog.Error("admin users: session cleanup failed", slog.Any("err", err))
		}
		if err := auditSvc.Record(r.Context(), db, session.Email, audit.ActionDeleteUser, "user", email,
			map[string]string{"role": current}, nil); err != nil {
			slog.Error("admin users: audit failed", slog.Any("err", err))
		}
		redirectStatus(w, r, email+" deleted")
	}
}
