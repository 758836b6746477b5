package listing

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
)

// LoadFunc loads the complete collection.
type LoadFunc[R any] func(ctx context.Context) ([]R, error)

// MatchFunc reports whether r passes the search text and filters of q.
type MatchFunc[R any] func(r R, q Query) bool

// CompareFunc orders two rows ascending.
type CompareFunc[R any] func(a, b R) int

// LocalSource serves pages from a cached full list. Use it for collections
// the backend returns whole.
type LocalSource[R any] struct {
	load    LoadFunc[R]
	match   MatchFunc[R]
	sorters map[string]CompareFunc[R]

	mu     sync.Mutex
	all    []R
	loaded bool
	gen    uint64
}

// NewLocalSource builds a source. match may be nil to accept every row;
// sorters maps sort field names to comparisons. Unknown fields keep load
// order.
func NewLocalSource[R any](load LoadFunc[R], match MatchFunc[R], sorters map[string]CompareFunc[R]) *LocalSource[R] {
	return &LocalSource[R]{load: load, match: match, sorters: sorters}
}

// Invalidate drops the cached list so the next Fetch reloads it.
func (s *LocalSource[R]) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.all = nil
	s.loaded = false
	s.gen++
}

// All returns the cached list, loading it if needed.
func (s *LocalSource[R]) All(ctx context.Context) ([]R, error) {
	s.mu.Lock()
	if s.loaded {
		all := s.all
		s.mu.Unlock()
		return all, nil
	}
	gen := s.gen
	s.mu.Unlock()

	all, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if gen == s.gen {
		s.all = all
		s.loaded = true
	}
	s.mu.Unlock()
	return all, nil
}

// Fetch filters, sorts and pages the cached list. It satisfies FetchFunc.
func (s *LocalSource[R]) Fetch(ctx context.Context, q Query) (Result[R], error) {
	all, err := s.All(ctx)
	if err != nil {
		return Result[R]{}, err
	}
	rows := make([]R, 0, len(all))
	for _, r := range all {
		if s.match == nil || s.match(r, q) {
			rows = append(rows, r)
		}
	}
	if less, ok := s.sorters[q.SortField]; ok {
		slices.SortStableFunc(rows, func(a, b R) int {
			if q.SortDir == Desc {
				return less(b, a)
			}
			return less(a, b)
		})
	}
	total := len(rows)
	if q.PageSize > 0 {
		start := min(q.Offset(), total)
		end := min(start+q.PageSize, total)
		rows = rows[start:end]
	}
	return Result[R]{Rows: rows, Total: total}, nil
}

// ByString orders rows by a string field, ignoring case.
func ByString[R any](field func(R) string) CompareFunc[R] {
	return func(a, b R) int {
		return strings.Compare(strings.ToLower(field(a)), strings.ToLower(field(b)))
	}
}

// ByOrdered orders rows by an ordered field.
func ByOrdered[R any, T cmp.Ordered](field func(R) T) CompareFunc[R] {
	return func(a, b R) int {
		return cmp.Compare(field(a), field(b))
	}
}
