package workspace

import (
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/Taikiy49/FS-Geolabs/infrastructure/backend"
)

// ChatHistoryDB stores the Ask AI history and is never listed as a
// document database.
const ChatHistoryDB = "chat_history.db"

var systemDatabases = []string{
	ChatHistoryDB,
	"reports.db",
	"user_roles.db",
	"pr_data.db",
	"users.db",
}

var (
	wordStart   = regexp.MustCompile(`\b\w`)
	spaceRun    = regexp.MustCompile(`\s+`)
	notSlugChar = regexp.MustCompile(`[^a-z0-9_]`)
)

// DisplayName renders a database file name for people:
// "employee_handbook.db" becomes "Employee Handbook".
func DisplayName(db string) string {
	name := strings.TrimSuffix(db, ".db")
	name = strings.ReplaceAll(name, "_", " ")
	return wordStart.ReplaceAllStringFunc(name, strings.ToUpper)
}

// IsSystemDatabase reports databases that hold portal data rather than
// documents.
func IsSystemDatabase(db string) bool {
	return slices.Contains(systemDatabases, db)
}

// DatabaseFileName turns a title such as "Employee Handbook" into
// "employee_handbook.db". It returns "" when nothing usable remains.
func DatabaseFileName(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = spaceRun.ReplaceAllString(slug, "_")
	slug = notSlugChar.ReplaceAllString(slug, "")
	if slug == "" {
		return ""
	}
	return slug + ".db"
}

// UploadBatch is a run of history entries for one database with no gap
// longer than UploadBatchWindow between neighbours.
type UploadBatch struct {
	DB      string
	User    string
	Entries []backend.UploadHistoryEntry
	Start   time.Time
	End     time.Time
}

// UploadBatchWindow is the largest gap inside one upload batch.
const UploadBatchWindow = 10 * time.Minute

// GroupUploads splits history, in the order given, into batches. Neighbours
// merge when they target the same database and lie within UploadBatchWindow
// of each other in either direction. An entry whose time cannot be parsed
// always starts its own batch.
func GroupUploads(history []backend.UploadHistoryEntry) []UploadBatch {
	var (
		out  []UploadBatch
		prev time.Time
	)
	for i, entry := range history {
		at := parseHistoryTime(entry.Time)
		if i > 0 {
			last := &out[len(out)-1]
			gap := at.Sub(prev)
			if gap < 0 {
				gap = -gap
			}
			if entry.DB == last.DB && !at.IsZero() && !prev.IsZero() && gap <= UploadBatchWindow {
				last.Entries = append(last.Entries, entry)
				last.Start = earliest(last.Start, at)
				last.End = latest(last.End, at)
				prev = at
				continue
			}
		}
		out = append(out, UploadBatch{
			DB:      entry.DB,
			User:    entry.User,
			Entries: []backend.UploadHistoryEntry{entry},
			Start:   at,
			End:     at,
		})
		prev = at
	}
	return out
}

var historyLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	time.RFC1123,
}

func parseHistoryTime(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range historyLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func earliest(a, b time.Time) time.Time {
	if a.IsZero() || (!b.IsZero() && b.Before(a)) {
		return b
	}
	return a
}

func latest(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
