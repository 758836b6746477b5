package listing

import (
	"context"
	"errors"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// ErrSuperseded is returned by Refresh when a newer refresh was issued
// before this one completed. Its response was discarded.
var ErrSuperseded = errors.New("listing: refresh superseded")

// Result is one fetched page plus the total row count across all pages.
type Result[R any] struct {
	Rows  []R
	Total int
}

// FetchFunc loads the rows for q. Server-side sources forward q to the
// backend; LocalSource derives the page from a cached full list.
type FetchFunc[R any] func(ctx context.Context, q Query) (Result[R], error)

// KeyFunc returns the stable selection key of a row.
type KeyFunc[R any] func(R) string

// Options configures a Controller.
type Options struct {
	DefaultSort string
	DefaultDir  SortDir
	PageSize    int
	MaxPageSize int
}

const defaultPageSize = 25

// Controller holds the query state, the last applied result and the
// selection set of one table. It is safe for concurrent use.
type Controller[R any] struct {
	mu    sync.Mutex
	fetch FetchFunc[R]
	key   KeyFunc[R]
	opts  Options

	query    Query
	rows     []R
	total    int
	selected map[string]struct{}

	seq     uint64
	cancel  context.CancelFunc
	loading bool
	loaded  bool
	err     error
}

// New builds a controller with the default query from opts.
func New[R any](fetch FetchFunc[R], key KeyFunc[R], opts Options) *Controller[R] {
	if opts.PageSize < 1 {
		opts.PageSize = defaultPageSize
	}
	if opts.MaxPageSize > 0 && opts.PageSize > opts.MaxPageSize {
		opts.PageSize = opts.MaxPageSize
	}
	if opts.DefaultDir == "" {
		opts.DefaultDir = Asc
	}
	return &Controller[R]{
		fetch: fetch,
		key:   key,
		opts:  opts,
		query: Query{
			SortField: opts.DefaultSort,
			SortDir:   opts.DefaultDir,
			Page:      1,
			PageSize:  opts.PageSize,
		},
		selected: make(map[string]struct{}),
	}
}

// SetSearchText replaces the search text and resets to page one.
func (c *Controller[R]) SetSearchText(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.query.SearchText = text
	c.query.Page = 1
}

// SetSort flips the direction when field is already the sort field,
// otherwise sorts ascending by field. Resets to page one.
func (c *Controller[R]) SetSort(field string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if field == c.query.SortField {
		c.query.SortDir = c.query.SortDir.Flip()
	} else {
		c.query.SortField = field
		c.query.SortDir = Asc
	}
	c.query.Page = 1
}

// SetSortDir sets both field and direction. Resets to page one.
func (c *Controller[R]) SetSortDir(field string, dir SortDir) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.query.SortField = field
	c.query.SortDir = dir
	c.query.Page = 1
}

// SetPage moves to page n clamped to the known page range. Before the
// first successful fetch the range is unknown and only the lower bound
// applies; Refresh clamps once the total arrives.
func (c *Controller[R]) SetPage(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		c.query.Page = max(n, 1)
		return
	}
	c.query.Page = ClampPage(n, TotalPages(c.total, c.query.PageSize))
}

// requestPage keeps n as asked. The next Refresh clamps it against the
// total for the query being fetched.
func (c *Controller[R]) requestPage(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.query.Page = max(n, 1)
}

// SetPageSize changes the page size and resets to page one. Values below
// one restore the default.
func (c *Controller[R]) SetPageSize(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n < 1 {
		n = c.opts.PageSize
	}
	if c.opts.MaxPageSize > 0 && n > c.opts.MaxPageSize {
		n = c.opts.MaxPageSize
	}
	c.query.PageSize = n
	c.query.Page = 1
}

// SetFilter sets or, with an empty value, clears one filter and resets to
// page one.
func (c *Controller[R]) SetFilter(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value = strings.TrimSpace(value)
	if value == "" {
		delete(c.query.Filters, key)
	} else {
		if c.query.Filters == nil {
			c.query.Filters = make(map[string]string)
		}
		c.query.Filters[key] = value
	}
	c.query.Page = 1
}

// ClearFilters drops every filter and resets to page one.
func (c *Controller[R]) ClearFilters() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.query.Filters = nil
	c.query.Page = 1
}

// ToggleSelect flips the selection of the row with key. Keys not present
// in the current rows are ignored. It reports whether the row is selected
// afterwards.
func (c *Controller[R]) ToggleSelect(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasRow(key) {
		return false
	}
	if _, ok := c.selected[key]; ok {
		delete(c.selected, key)
		return false
	}
	c.selected[key] = struct{}{}
	return true
}

// SetSelected replaces the selection with keys present in the current rows.
func (c *Controller[R]) SetSelected(keys []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if c.hasRow(k) {
			c.selected[k] = struct{}{}
		}
	}
}

// SelectAllVisible selects or deselects every row of the current page.
func (c *Controller[R]) SelectAllVisible(checked bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.rows {
		k := c.key(r)
		if checked {
			c.selected[k] = struct{}{}
		} else {
			delete(c.selected, k)
		}
	}
}

// ClearSelection empties the selection set.
func (c *Controller[R]) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.selected)
}

func (c *Controller[R]) hasRow(key string) bool {
	for _, r := range c.rows {
		if c.key(r) == key {
			return true
		}
	}
	return false
}

// Refresh fetches with the current query. A newer Refresh cancels this one
// and wins: a superseded response is never applied and ErrSuperseded is
// returned. On failure the previous rows stay and the error is kept for
// display. When the new total shrinks below the current page, the page is
// clamped and fetched once more.
func (c *Controller[R]) Refresh(ctx context.Context) error {
	err := c.refresh(ctx)
	var clamped bool
	if err == nil {
		c.mu.Lock()
		page := ClampPage(c.query.Page, TotalPages(c.total, c.query.PageSize))
		clamped = page != c.query.Page
		c.query.Page = page
		c.mu.Unlock()
	}
	if clamped {
		return c.refresh(ctx)
	}
	return err
}

func (c *Controller[R]) refresh(ctx context.Context) error {
	c.mu.Lock()
	c.seq++
	token := c.seq
	if c.cancel != nil {
		c.cancel()
	}
	fctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	q := c.query.clone()
	c.loading = true
	c.mu.Unlock()

	res, err := c.fetch(fctx, q)

	c.mu.Lock()
	defer c.mu.Unlock()
	cancel()
	if token != c.seq {
		return ErrSuperseded
	}
	c.cancel = nil
	c.loading = false
	if err != nil {
		c.err = err
		return err
	}

	c.err = nil
	c.loaded = true
	c.rows = res.Rows
	if c.rows == nil {
		c.rows = []R{}
	}
	c.total = res.Total
	keep := make(map[string]struct{}, len(c.selected))
	for _, r := range c.rows {
		k := c.key(r)
		if _, ok := c.selected[k]; ok {
			keep[k] = struct{}{}
		}
	}
	c.selected = keep
	return nil
}

// Stop cancels an in-flight refresh, if any.
func (c *Controller[R]) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}

// Apply reads list commands from URL parameters: q (search text), sort
// (toggle), dir (explicit direction with sort), page, size and f.<key>
// filters. The page is taken as requested and clamped by the next Refresh,
// so deep links survive a fresh controller. It reports whether any
// parameter was recognised.
func (c *Controller[R]) Apply(v url.Values) bool {
	applied := false
	if v.Has("q") {
		c.SetSearchText(v.Get("q"))
		applied = true
	}
	for k := range v {
		if name, ok := strings.CutPrefix(k, "f."); ok && name != "" {
			c.SetFilter(name, v.Get(k))
			applied = true
		}
	}
	if field := strings.TrimSpace(v.Get("sort")); field != "" {
		if dir := v.Get("dir"); dir != "" {
			c.SetSortDir(field, ParseSortDir(dir, Asc))
		} else {
			c.SetSort(field)
		}
		applied = true
	}
	if s := v.Get("size"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			c.SetPageSize(n)
			applied = true
		}
	}
	if s := v.Get("page"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			c.requestPage(n)
			applied = true
		}
	}
	return applied
}

// Snapshot is a consistent copy of the controller state for rendering.
type Snapshot[R any] struct {
	Query      Query
	Rows       []R
	Total      int
	Selected   []string
	Loading    bool
	Loaded     bool
	Err        error
	Pagination Pagination
}

// IsSelected reports whether key is in the selection.
func (s Snapshot[R]) IsSelected(key string) bool {
	return slices.Contains(s.Selected, key)
}

// Snapshot returns the current state. Selected keys are in row order.
func (c *Controller[R]) Snapshot() Snapshot[R] {
	c.mu.Lock()
	defer c.mu.Unlock()
	selected := make([]string, 0, len(c.selected))
	for _, r := range c.rows {
		if k := c.key(r); c.isSelected(k) {
			selected = append(selected, k)
		}
	}
	return Snapshot[R]{
		Query:      c.query.clone(),
		Rows:       slices.Clone(c.rows),
		Total:      c.total,
		Selected:   selected,
		Loading:    c.loading,
		Loaded:     c.loaded,
		Err:        c.err,
		Pagination: NewPagination(c.query.Page, c.query.PageSize, c.total),
	}
}

// SelectedRows returns the selected rows in row order.
func (c *Controller[R]) SelectedRows() []R {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]R, 0, len(c.selected))
	for _, r := range c.rows {
		if c.isSelected(c.key(r)) {
			out = append(out, r)
		}
	}
	return out
}

// Query returns a copy of the current query.
func (c *Controller[R]) Query() Query {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query.clone()
}

func (c *Controller[R]) isSelected(k string) bool {
	_, ok := c.selected[k]
	return ok
}
