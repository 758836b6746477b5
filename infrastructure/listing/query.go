// Package listing is the shared list controller behind every table screen:
// search text, column sort, paging, filters and a selection set over rows
// fetched from the backend or derived from a cached full list.
package listing

import (
	"maps"
	"strings"
)

// SortDir is the sort direction of a Query.
type SortDir string

const (
	Asc  SortDir = "asc"
	Desc SortDir = "desc"
)

// ParseSortDir accepts asc/desc in any case and falls back to def.
func ParseSortDir(s string, def SortDir) SortDir {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc":
		return Asc
	case "desc":
		return Desc
	default:
		return def
	}
}

// Flip returns the opposite direction.
func (d SortDir) Flip() SortDir {
	if d == Desc {
		return Asc
	}
	return Desc
}

// Query is the list query state. Page is 1-based.
type Query struct {
	SearchText string
	SortField  string
	SortDir    SortDir
	Page       int
	PageSize   int
	Filters    map[string]string
}

// Offset is the index of the first row of the current page.
func (q Query) Offset() int {
	if q.Page < 1 || q.PageSize < 1 {
		return 0
	}
	return (q.Page - 1) * q.PageSize
}

// Filter returns the value of a filter, empty when unset.
func (q Query) Filter(key string) string {
	return q.Filters[key]
}

func (q Query) clone() Query {
	cp := q
	cp.Filters = maps.Clone(q.Filters)
	return cp
}

// TotalPages is ceil(total/pageSize), never less than one.
func TotalPages(total, pageSize int) int {
	if pageSize < 1 || total <= 0 {
		return 1
	}
	return (total + pageSize - 1) / pageSize
}

// ClampPage clamps n to [1, totalPages].
func ClampPage(n, totalPages int) int {
	if totalPages < 1 {
		totalPages = 1
	}
	if n < 1 {
		return 1
	}
	if n > totalPages {
		return totalPages
	}
	return n
}

// ContainsFold reports whether any field contains needle, ignoring case.
// An empty needle matches everything.
func ContainsFold(needle string, fields ...string) bool {
	needle = strings.ToLower(strings.TrimSpace(needle))
	if needle == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}
