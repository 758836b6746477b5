package coreboxes

import (
	"strings"
	"time"

	"github.com/Taikiy49/FS-Geolabs/frontend/exports"
	"github.com/Taikiy49/FS-Geolabs/frontend/shared/nav"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/backend"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/listing"
)

// MaxExportRows bounds an export of the current filter.
const MaxExportRows = 10000

type PageData struct {
	Top        nav.TopNavData
	List       listing.Snapshot[backend.CoreBox]
	Years      []int
	Islands    []string
	OptionsErr string
	Today      time.Time

	Status       string
	ErrorMessage string
}

var dateLayouts = []string{"2006-01-02", "2006-01-02T15:04:05", time.RFC3339, "01/02/2006"}

// ParseDate reads the date formats the inventory uses. ok is false for
// blanks and anything unparseable.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// IsExpired reports whether the storage expiry date is before today.
func IsExpired(b backend.CoreBox, today time.Time) bool {
	exp, ok := ParseDate(b.StorageExpiryDate)
	if !ok {
		return false
	}
	y, m, d := today.Date()
	return exp.Before(time.Date(y, m, d, 0, 0, 0, 0, exp.Location()))
}

// Table is the export of boxes.
func Table(boxes []backend.CoreBox, today time.Time) exports.Table {
	t := exports.Table{
		Name:  "core-boxes",
		Sheet: "Core Boxes",
		Header: []string{
			"Year", "Island", "Work Order", "Project", "Engineer",
			"Report Submission", "Storage Expiry", "Complete", "Keep or Dump", "Expired",
		},
		Rows: make([][]any, 0, len(boxes)),
	}
	for _, b := range boxes {
		t.Rows = append(t.Rows, []any{
			b.Year, b.Island, b.WorkOrder, b.Project, b.Engineer,
			b.ReportSubmissionDate, b.StorageExpiryDate, b.Complete, b.KeepOrDump, IsExpired(b, today),
		})
	}
	return t
}
