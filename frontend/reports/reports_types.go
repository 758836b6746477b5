package reports

import (
	"strconv"
	"strings"

	"github.com/Taikiy49/FS-Geolabs/frontend/shared/nav"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/backend"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/listing"
)

const (
	DefaultMinResults = 5
	DefaultMaxResults = 20
	MaxResultsLimit   = 100
)

// Search is the ranking request read from the page URL.
type Search struct {
	Query string
	Min   int
	Max   int
	File  string
	View  string
}

// ParseSearch reads query, min, max, file and view. Bounds are clamped to
// 1..MaxResultsLimit and min never exceeds max.
func ParseSearch(get func(string) string) Search {
	s := Search{
		Query: strings.TrimSpace(get("query")),
		Min:   bound(get("min"), DefaultMinResults),
		Max:   bound(get("max"), DefaultMaxResults),
		File:  strings.TrimSpace(get("file")),
		View:  strings.TrimSpace(get("view")),
	}
	if s.Min > s.Max {
		s.Min = s.Max
	}
	return s
}

func bound(raw string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return min(max(n, 1), MaxResultsLimit)
}

type PageData struct {
	Top    nav.TopNavData
	Search Search

	Ranked    []backend.RankedFile
	RankedErr string

	Answer    string
	AnswerErr string

	Snippets    []string
	SnippetsErr string

	Files listing.Snapshot[string]

	Status       string
	ErrorMessage string
}
