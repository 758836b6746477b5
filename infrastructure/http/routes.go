package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	adminusers "github.com/Taikiy49/FS-Geolabs/frontend/adminUsers"
	"github.com/Taikiy49/FS-Geolabs/frontend/askai"
	"github.com/Taikiy49/FS-Geolabs/frontend/contacts"
	"github.com/Taikiy49/FS-Geolabs/frontend/coreboxes"
	"github.com/Taikiy49/FS-Geolabs/frontend/databases"
	"github.com/Taikiy49/FS-Geolabs/frontend/dbadmin"
	"github.com/Taikiy49/FS-Geolabs/frontend/home"
	"github.com/Taikiy49/FS-Geolabs/frontend/login"
	"github.com/Taikiy49/FS-Geolabs/frontend/ocrlookup"
	"github.com/Taikiy49/FS-Geolabs/frontend/reports"
	"github.com/Taikiy49/FS-Geolabs/frontend/s3files"
	"github.com/Taikiy49/FS-Geolabs/frontend/settings"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/rbac"
)

var (
	everyone   = rbac.Roles
	privileged = []string{rbac.RoleOwner, rbac.RoleAdmin}
)

// RegisterLoginRoutes registers login/logout routes.
func (s *Server) RegisterLoginRoutes() {
	s.router.Get("/login", login.GetLoginScreenHandler(s.Identity))
	s.router.Post("/login", login.CreateLoginHandler(s.Identity))
	s.router.Post("/logout", login.LogoutHandler(s.Identity, s.Workspaces))
}

// RegisterAdminRoutes registers owner and admin routes.
func (s *Server) RegisterAdminRoutes(r chi.Router) chi.Router {
	policy := adminusers.Policy{SuperOwner: s.Config.Auth.SuperOwner}
	sessions := adminusers.Sessions{Cache: s.SessionCache, Roles: s.RoleCache}

	s.Rbac.AddAll(privileged, "ADMIN_USERS_VIEW", http.MethodGet, "/portal/admin/users")
	r.Get("/admin/users", adminusers.UsersPageQueryHandler(s.DB, policy))
	s.Rbac.AddAll(privileged, "ADMIN_USERS_CREATE", http.MethodPost, "/portal/admin/users/create")
	r.Post("/admin/users/create", adminusers.CreateUserCommandHandler(s.DB, s.Audit, policy, sessions))
	s.Rbac.AddAll(privileged, "ADMIN_USERS_ROLE", http.MethodPost, "/portal/admin/users/role")
	r.Post("/admin/users/role", adminusers.UpdateRoleCommandHandler(s.DB, s.Audit, policy, sessions))
	s.Rbac.AddAll(privileged, "ADMIN_USERS_DELETE", http.MethodPost, "/portal/admin/users/delete")
	r.Post("/admin/users/delete", adminusers.DeleteUserCommandHandler(s.DB, s.Audit, policy, sessions))

	s.Rbac.AddAll(privileged, "DBADMIN_VIEW", http.MethodGet, "/portal/dbadmin")
	r.Get("/dbadmin", dbadmin.DBAdminPageQueryHandler(s.DB, s.Config.Upload))
	s.Rbac.AddAll(privileged, "DBADMIN_DELETE", http.MethodPost, "/portal/dbadmin/delete")
	r.Post("/dbadmin/delete", dbadmin.DeleteDatabaseCommandHandler(s.DB, s.Audit))
	s.registerUploadRoutes(privileged, "DBADMIN_UPLOAD", "/dbadmin")
	dbadmin.Uploads(s.Config.Upload).Mount(r, "/dbadmin")

	return r
}

// RegisterFrontendRoutes registers the screens every signed-in user may open.
func (s *Server) RegisterFrontendRoutes(r chi.Router) chi.Router {
	s.Rbac.AddAll(everyone, "HOME_VIEW", http.MethodGet, "/portal")
	r.Get("/", home.HomePageQueryHandler())

	s.RegisterAskRoutes(r)
	s.RegisterDatabaseRoutes(r)
	s.RegisterProjectFinderRoutes(r)
	s.RegisterS3Routes(r)

	s.Rbac.AddAll(everyone, "CONTACTS_VIEW", http.MethodGet, "/portal/contacts")
	r.Get("/contacts", contacts.ContactsPageQueryHandler())
	s.Rbac.AddAll(everyone, "CONTACTS_EXPORT", http.MethodGet, "/portal/contacts/export")
	r.Get("/contacts/export", contacts.ExportQueryHandler(s.DB))

	s.Rbac.AddAll(everyone, "SETTINGS_VIEW", http.MethodGet, "/portal/settings")
	r.Get("/settings", settings.SettingsPageQueryHandler(s.DB))
	s.Rbac.AddAll(everyone, "SETTINGS_EDIT", http.MethodPost, "/portal/settings")
	r.Post("/settings", settings.SettingsUpdateCommandHandler(s.DB))

	return r
}

func (s *Server) RegisterAskRoutes(r chi.Router) {
	s.Rbac.AddAll(everyone, "ASKAI_VIEW", http.MethodGet, "/portal/ask")
	r.Get("/ask", askai.AskPageQueryHandler(s.DB))
	s.Rbac.AddAll(everyone, "ASKAI_ASK", http.MethodPost, "/portal/ask")
	r.Post("/ask", askai.AskCommandHandler())
	s.Rbac.AddAll(everyone, "ASKAI_SELECT", http.MethodPost, "/portal/ask/select")
	r.Post("/ask/select", askai.SelectDatabaseCommandHandler())
	s.Rbac.AddAll(everyone, "ASKAI_REGENERATE", http.MethodPost, "/portal/ask/regenerate")
	r.Post("/ask/regenerate", askai.RegenerateCommandHandler())
	s.Rbac.AddAll(everyone, "ASKAI_STOP", http.MethodPost, "/portal/ask/stop")
	r.Post("/ask/stop", askai.StopCommandHandler())
	s.Rbac.AddAll(everyone, "ASKAI_RESET", http.MethodPost, "/portal/ask/reset")
	r.Post("/ask/reset", askai.ResetCommandHandler())
	s.Rbac.AddAll(everyone, "ASKAI_HISTORY_LOAD", http.MethodPost, "/portal/ask/history/load")
	r.Post("/ask/history/load", askai.LoadHistoryCommandHandler())
	s.Rbac.AddAll(everyone, "ASKAI_HISTORY_DELETE", http.MethodPost, "/portal/ask/history/delete")
	r.Post("/ask/history/delete", askai.DeleteHistoryCommandHandler(s.DB, s.Audit))
}

func (s *Server) RegisterDatabaseRoutes(r chi.Router) {
	s.Rbac.AddAll(everyone, "DATABASES_VIEW", http.MethodGet, "/portal/databases")
	r.Get("/databases", databases.DatabasesPageQueryHandler())
	s.Rbac.AddAll(everyone, "DATABASES_SELECT", http.MethodPost, "/portal/databases/select")
	r.Post("/databases/select", databases.SelectDatabaseCommandHandler())
}

// RegisterProjectFinderRoutes registers reports, OCR lookup and core boxes.
func (s *Server) RegisterProjectFinderRoutes(r chi.Router) {
	s.Rbac.AddAll(everyone, "REPORTS_VIEW", http.MethodGet, "/portal/reports")
	r.Get("/reports", reports.ReportsPageQueryHandler())

	s.Rbac.AddAll(everyone, "OCR_VIEW", http.MethodGet, "/portal/ocr")
	r.Get("/ocr", ocrlookup.OCRPageQueryHandler())
	s.Rbac.AddAll(everyone, "OCR_EXPORT", http.MethodGet, "/portal/ocr/export")
	r.Get("/ocr/export", ocrlookup.ExportQueryHandler(s.DB))
	s.Rbac.AddAll(everyone, "OCR_EDIT", http.MethodPost, "/portal/ocr/*")
	r.Post("/ocr/image", ocrlookup.SubmitImageCommandHandler())
	r.Post("/ocr/edit", ocrlookup.EditCommandHandler())
	r.Post("/ocr/add", ocrlookup.AddCommandHandler())
	r.Post("/ocr/remove", ocrlookup.RemoveCommandHandler())
	r.Post("/ocr/lookup", ocrlookup.LookupCommandHandler())
	r.Post("/ocr/sort", ocrlookup.SortCommandHandler())
	r.Post("/ocr/reset", ocrlookup.StartOverCommandHandler())

	s.Rbac.AddAll(everyone, "COREBOXES_VIEW", http.MethodGet, "/portal/coreboxes")
	r.Get("/coreboxes", coreboxes.CoreBoxesPageQueryHandler())
	s.Rbac.AddAll(everyone, "COREBOXES_SELECT", http.MethodPost, "/portal/coreboxes/select")
	r.Post("/coreboxes/select", coreboxes.SelectCommandHandler())
	s.Rbac.AddAll(everyone, "COREBOXES_CLEAR", http.MethodPost, "/portal/coreboxes/clear")
	r.Post("/coreboxes/clear", coreboxes.ClearFiltersCommandHandler())
	s.Rbac.AddAll(everyone, "COREBOXES_EXPORT", http.MethodGet, "/portal/coreboxes/export")
	r.Get("/coreboxes/export", coreboxes.ExportQueryHandler(s.DB))
	s.Rbac.AddAll(everyone, "COREBOXES_LABELS", http.MethodGet, "/portal/coreboxes/labels")
	r.Get("/coreboxes/labels", coreboxes.LabelsQueryHandler())
}

// RegisterS3Routes registers the S3 viewer for everyone and the editor
// commands for owners and admins.
func (s *Server) RegisterS3Routes(r chi.Router) {
	s.Rbac.AddAll(everyone, "S3_VIEW", http.MethodGet, "/portal/s3")
	r.Get("/s3", s3files.S3PageQueryHandler(s.Config.Upload))
	s.Rbac.AddAll(everyone, "S3_DOWNLOAD", http.MethodGet, "/portal/s3/download")
	r.Get("/s3/download", s3files.DownloadQueryHandler(s.Storage))

	s.Rbac.AddAll(privileged, "S3_EDIT", http.MethodPost, "/portal/s3/select")
	r.Post("/s3/select", s3files.SelectCommandHandler())
	s.Rbac.AddAll(privileged, "S3_EDIT", http.MethodPost, "/portal/s3/delete")
	r.Post("/s3/delete", s3files.DeleteCommandHandler(s.DB, s.Audit))
	s.Rbac.AddAll(privileged, "S3_EDIT", http.MethodPost, "/portal/s3/move")
	r.Post("/s3/move", s3files.MoveCommandHandler(s.DB, s.Audit))
	s.Rbac.AddAll(privileged, "S3_EDIT", http.MethodPost, "/portal/s3/reindex")
	r.Post("/s3/reindex", s3files.ReindexCommandHandler(s.DB, s.Audit))
	s.registerUploadRoutes(privileged, "S3_EDIT", "/s3")
	s3files.Uploads(s.Config.Upload).Mount(r, "/s3")
}

// registerUploadRoutes grants the upload queue commands mounted under base.
func (s *Server) registerUploadRoutes(roles []string, code, base string) {
	s.Rbac.AddAll(roles, code, http.MethodPost, "/portal"+base+"/uploads")
	s.Rbac.AddAll(roles, code, http.MethodPost, "/portal"+base+"/uploads/*")
	s.Rbac.AddAll(roles, code, http.MethodGet, "/portal"+base+"/uploads/status")
}
