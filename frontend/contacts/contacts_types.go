package contacts

import (
	"github.com/Taikiy49/FS-Geolabs/frontend/exports"
	"github.com/Taikiy49/FS-Geolabs/frontend/shared/nav"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/graph"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/listing"
)

var Sources = []string{graph.SourceDirectory, graph.SourceMyContacts, graph.SourceBoth}

type PageData struct {
	Top     nav.TopNavData
	List    listing.Snapshot[graph.Contact]
	Source  string
	NoToken bool

	Status       string
	ErrorMessage string
}

// Table is the contact export with the columns Outlook users expect.
func Table(cs []graph.Contact) exports.Table {
	t := exports.Table{
		Name:   "contacts",
		Sheet:  "Contacts",
		Header: []string{"Name", "Email", "Mobile", "Business", "Title", "Department", "Office", "Company", "Source"},
		Rows:   make([][]any, 0, len(cs)),
	}
	for _, c := range cs {
		t.Rows = append(t.Rows, []any{c.Name, c.Email, c.Mobile, c.Business, c.Title, c.Department, c.Office, c.Company, c.Source})
	}
	return t
}
