package nav

import (
	"github.com/Taikiy49/FS-Geolabs/infrastructure/rbac"
	"github.com/Taikiy49/FS-Geolabs/models"
)

// Link is one top navigation entry.
type Link struct {
	Label  string
	Href   string
	Active bool
}

// TopNavData is shared with page renderers.
type TopNavData struct {
	Email      string
	Role       string
	SelectedDB string
	Links      []Link
}

type navEntry struct {
	label string
	href  string
	code  string
}

var entries = []navEntry{
	{label: "Home", href: "/portal", code: "HOME_VIEW"},
	{label: "Ask AI", href: "/portal/ask", code: "ASKAI_VIEW"},
	{label: "DB Viewer", href: "/portal/databases", code: "DATABASES_VIEW"},
	{label: "DB Admin", href: "/portal/dbadmin", code: "DBADMIN_VIEW"},
	{label: "Reports", href: "/portal/reports", code: "REPORTS_VIEW"},
	{label: "OCR Lookup", href: "/portal/ocr", code: "OCR_VIEW"},
	{label: "S3 Files", href: "/portal/s3", code: "S3_VIEW"},
	{label: "Core Boxes", href: "/portal/coreboxes", code: "COREBOXES_VIEW"},
	{label: "Contacts", href: "/portal/contacts", code: "CONTACTS_VIEW"},
	{label: "Admin", href: "/portal/admin/users", code: "ADMIN_USERS_VIEW"},
	{label: "Settings", href: "/portal/settings", code: "SETTINGS_VIEW"},
}

// BuildTopNavData lists the screens the session may open. active is the
// href of the current screen.
func BuildTopNavData(session models.Session, active string) TopNavData {
	data := TopNavData{Email: session.Email, Role: rbac.NormalizeRole(session.Role)}
	for _, e := range entries {
		if !session.HasScreen(e.code) {
			continue
		}
		data.Links = append(data.Links, Link{Label: e.label, Href: e.href, Active: e.href == active})
	}
	return data
}
