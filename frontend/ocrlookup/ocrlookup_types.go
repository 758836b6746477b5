package ocrlookup

import (
	"github.com/Taikiy49/FS-Geolabs/frontend/exports"
	"github.com/Taikiy49/FS-Geolabs/frontend/shared/nav"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/ocrwizard"
)

// MaxImageBytes bounds the uploaded photo.
const MaxImageBytes = 10 << 20

type PageData struct {
	Top   nav.TopNavData
	State ocrwizard.State

	Status       string
	ErrorMessage string
}

// MatchTable is the export of the review rows in their displayed order.
func MatchTable(rows []ocrwizard.Row) exports.Table {
	t := exports.Table{
		Name:   "work-orders",
		Sheet:  "Work Orders",
		Header: []string{"Entered", "Work Order", "Project WO", "PR", "Client", "Project", "Date", "Found"},
		Rows:   make([][]any, 0, len(rows)),
	}
	for _, row := range rows {
		m := row.Match
		t.Rows = append(t.Rows, []any{row.WorkOrder, m.WorkOrder, m.ProjectWO, m.PR, m.Client, m.Project, m.Date, row.Found})
	}
	return t
}
