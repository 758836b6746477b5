package home

import (
	"github.com/Taikiy49/FS-Geolabs/frontend/shared/nav"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/rbac"
	"github.com/Taikiy49/FS-Geolabs/models"
)

// Card links to one screen.
type Card struct {
	Title       string
	Description string
	Href        string
	code        string
}

// Group is a titled row of cards.
type Group struct {
	Title string
	Cards []Card
}

type PageData struct {
	Top          nav.TopNavData
	Groups       []Group
	Status       string
	ErrorMessage string
}

var groups = []struct {
	title      string
	privileged bool
	cards      []Card
}{
	{title: "Document Databases", cards: []Card{
		{Title: "Ask AI", Description: "Ask questions across a document database.", Href: "/portal/ask", code: "ASKAI_VIEW"},
		{Title: "DB Viewer", Description: "Browse databases and their files.", Href: "/portal/databases", code: "DATABASES_VIEW"},
		{Title: "DB Admin", Description: "Upload PDFs and manage databases.", Href: "/portal/dbadmin", code: "DBADMIN_VIEW"},
	}},
	{title: "Project Finder", cards: []Card{
		{Title: "Reports", Description: "Rank and search report files.", Href: "/portal/reports", code: "REPORTS_VIEW"},
		{Title: "OCR Lookup", Description: "Read work orders from a photo and match projects.", Href: "/portal/ocr", code: "OCR_VIEW"},
		{Title: "S3 Viewer", Description: "Find and download stored files.", Href: "/portal/s3", code: "S3_VIEW"},
		{Title: "S3 Editor", Description: "Upload, move, reindex and delete files.", Href: "/portal/s3#edit", code: "S3_EDIT"},
		{Title: "Core Box Inventory", Description: "Track stored core boxes and print labels.", Href: "/portal/coreboxes", code: "COREBOXES_VIEW"},
	}},
	{title: "Admin", privileged: true, cards: []Card{
		{Title: "Users & Roles", Description: "Register users and change roles.", Href: "/portal/admin/users", code: "ADMIN_USERS_VIEW"},
	}},
	{title: "Contacts", cards: []Card{
		{Title: "Contacts", Description: "Company directory and your Outlook contacts.", Href: "/portal/contacts", code: "CONTACTS_VIEW"},
	}},
}

// Groups returns the card groups session may see. Empty groups are left
// out and the admin group needs an owner or admin.
func Groups(session models.Session) []Group {
	var out []Group
	for _, g := range groups {
		if g.privileged && !rbac.IsPrivileged(session.Role) {
			continue
		}
		var cards []Card
		for _, c := range g.cards {
			if session.HasScreen(c.code) {
				cards = append(cards, c)
			}
		}
		if len(cards) > 0 {
			out = append(out, Group{Title: g.title, Cards: cards})
		}
	}
	return out
}
