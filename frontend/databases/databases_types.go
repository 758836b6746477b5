package databases

import (
	"github.com/Taikiy49/FS-Geolabs/frontend/shared/nav"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/backend"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/listing"
)

type PageData struct {
	Top      nav.TopNavData
	List     listing.Snapshot[string]
	Selected string

	// Open is the database whose files are listed.
	Open      string
	Files     []string
	FilesErr  string
	Inspect   string
	Tables    []backend.TableSample
	InspectEr string

	Status       string
	ErrorMessage string
}
