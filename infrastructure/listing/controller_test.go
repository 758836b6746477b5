package listing

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type dbRow struct {
	Name  string
	Files int
}

func dbNames(n int) []dbRow {
	rows := make([]dbRow, n)
	for i := range rows {
		rows[i] = dbRow{Name: fmt.Sprintf("db_%02d.db", i+1), Files: i}
	}
	return rows
}

func newLocalController(rows []dbRow, pageSize int) (*Controller[dbRow], *LocalSource[dbRow]) {
	src := NewLocalSource(
		func(context.Context) ([]dbRow, error) { return rows, nil },
		func(r dbRow, q Query) bool { return ContainsFold(q.SearchText, r.Name) },
		map[string]CompareFunc[dbRow]{
			"name":  ByString(func(r dbRow) string { return r.Name }),
			"files": ByOrdered(func(r dbRow) int { return r.Files }),
		},
	)
	ctrl := New(src.Fetch, func(r dbRow) string { return r.Name }, Options{DefaultSort: "name", PageSize: pageSize})
	return ctrl, src
}

func names(rows []dbRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Name
	}
	return out
}

func TestQueryChangesResetPage(t *testing.T) {
	ctrl, _ := newLocalController(dbNames(60), 10)
	if err := ctrl.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	mutations := []struct {
		name string
		fn   func()
	}{
		{name: "search", fn: func() { ctrl.SetSearchText("db_0") }},
		{name: "sort", fn: func() { ctrl.SetSort("files") }},
		{name: "filter", fn: func() { ctrl.SetFilter("island", "Oahu") }},
		{name: "clear filters", fn: func() { ctrl.ClearFilters() }},
		{name: "page size", fn: func() { ctrl.SetPageSize(20) }},
	}
	for _, m := range mutations {
		t.Run(m.name, func(t *testing.T) {
			ctrl.SetSearchText("")
			if err := ctrl.Refresh(context.Background()); err != nil {
				t.Fatalf("refresh: %v", err)
			}
			ctrl.SetPage(3)
			if got := ctrl.Query().Page; got != 3 {
				t.Fatalf("setup page = %d, want 3", got)
			}
			m.fn()
			if got := ctrl.Query().Page; got != 1 {
				t.Fatalf("page after %s = %d, want 1", m.name, got)
			}
		})
	}
}

func TestSetPageClamps(t *testing.T) {
	ctrl, _ := newLocalController(dbNames(25), 10)
	if err := ctrl.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	cases := []struct{ in, want int }{
		{in: -4, want: 1},
		{in: 0, want: 1},
		{in: 1, want: 1},
		{in: 3, want: 3},
		{in: 4, want: 3},
		{in: 999, want: 3},
	}
	for _, tc := range cases {
		ctrl.SetPage(tc.in)
		if got := ctrl.Query().Page; got != tc.want {
			t.Fatalf("SetPage(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestSetSortToggles(t *testing.T) {
	ctrl, _ := newLocalController(dbNames(3), 10)
	start := ctrl.Query()
	if start.SortField != "name" || start.SortDir != Asc {
		t.Fatalf("unexpected default sort %q %q", start.SortField, start.SortDir)
	}

	ctrl.SetSort("name")
	ctrl.SetSort("name")
	if q := ctrl.Query(); q.SortDir != start.SortDir {
		t.Fatalf("double toggle dir = %q, want %q", q.SortDir, start.SortDir)
	}

	ctrl.SetSort("name")
	ctrl.SetSort("files")
	if q := ctrl.Query(); q.SortField != "files" || q.SortDir != Asc {
		t.Fatalf("new field sort = %q %q, want files asc", q.SortField, q.SortDir)
	}
}

func TestLocalSearchFiltersAndRestores(t *testing.T) {
	rows := []dbRow{
		{Name: "employee_handbook.db"},
		{Name: "reports.db"},
		{Name: "safety_manual.db"},
	}
	ctrl, _ := newLocalController(rows, 25)
	ctx := context.Background()

	ctrl.SetSearchText("emp")
	if err := ctrl.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if diff := cmp.Diff([]string{"employee_handbook.db"}, names(ctrl.Snapshot().Rows)); diff != "" {
		t.Fatalf("search rows mismatch (-want +got):\n%s", diff)
	}

	ctrl.SetSearchText("")
	if err := ctrl.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if diff := cmp.Diff(names(rows), names(ctrl.Snapshot().Rows)); diff != "" {
		t.Fatalf("restored rows mismatch (-want +got):\n%s", diff)
	}
}

func TestLocalSortDescending(t *testing.T) {
	ctrl, _ := newLocalController(dbNames(4), 10)
	ctrl.SetSortDir("files", Desc)
	if err := ctrl.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	want := []string{"db_04.db", "db_03.db", "db_02.db", "db_01.db"}
	if diff := cmp.Diff(want, names(ctrl.Snapshot().Rows)); diff != "" {
		t.Fatalf("sorted rows mismatch (-want +got):\n%s", diff)
	}
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	releaseA := make(chan struct{})
	startedA := make(chan struct{})
	fetch := func(ctx context.Context, q Query) (Result[dbRow], error) {
		if q.SearchText == "a" {
			close(startedA)
			<-releaseA
			return Result[dbRow]{Rows: []dbRow{{Name: "from_a.db"}}, Total: 1}, nil
		}
		return Result[dbRow]{Rows: []dbRow{{Name: "from_b.db"}}, Total: 1}, nil
	}
	ctrl := New(fetch, func(r dbRow) string { return r.Name }, Options{})

	ctrl.SetSearchText("a")
	errA := make(chan error, 1)
	go func() { errA <- ctrl.Refresh(context.Background()) }()
	<-startedA

	ctrl.SetSearchText("b")
	if err := ctrl.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh b: %v", err)
	}
	close(releaseA)

	if err := <-errA; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected A to be superseded, got %v", err)
	}
	if diff := cmp.Diff([]string{"from_b.db"}, names(ctrl.Snapshot().Rows)); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestNewerRefreshCancelsInFlightFetch(t *testing.T) {
	started := make(chan struct{})
	var once sync.Once
	fetch := func(ctx context.Context, q Query) (Result[dbRow], error) {
		if q.SearchText == "slow" {
			once.Do(func() { close(started) })
			select {
			case <-ctx.Done():
				return Result[dbRow]{}, ctx.Err()
			case <-time.After(5 * time.Second):
				return Result[dbRow]{}, errors.New("fetch was not canceled")
			}
		}
		return Result[dbRow]{}, nil
	}
	ctrl := New(fetch, func(r dbRow) string { return r.Name }, Options{})
	ctrl.SetSearchText("slow")
	done := make(chan error, 1)
	go func() { done <- ctrl.Refresh(context.Background()) }()
	<-started

	ctrl.SetSearchText("fast")
	if err := ctrl.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if err := <-done; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected superseded, got %v", err)
	}
}

func TestRefreshFailureKeepsRows(t *testing.T) {
	fail := false
	fetch := func(ctx context.Context, q Query) (Result[dbRow], error) {
		if fail {
			return Result[dbRow]{}, errors.New("backend down")
		}
		return Result[dbRow]{Rows: []dbRow{{Name: "a.db"}}, Total: 1}, nil
	}
	ctrl := New(fetch, func(r dbRow) string { return r.Name }, Options{})
	if err := ctrl.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	fail = true
	if err := ctrl.Refresh(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	snap := ctrl.Snapshot()
	if snap.Err == nil || !strings.Contains(snap.Err.Error(), "backend down") {
		t.Fatalf("expected inline error, got %v", snap.Err)
	}
	if diff := cmp.Diff([]string{"a.db"}, names(snap.Rows)); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
	if snap.Loading {
		t.Fatalf("expected loading to resolve")
	}
}

func TestSelectionPrunedOnRefetch(t *testing.T) {
	rows := []dbRow{{Name: "a.db"}, {Name: "b.db"}, {Name: "c.db"}}
	current := rows
	src := NewLocalSource(func(context.Context) ([]dbRow, error) { return current, nil }, nil, nil)
	ctrl := New(src.Fetch, func(r dbRow) string { return r.Name }, Options{})
	ctx := context.Background()
	if err := ctrl.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	ctrl.SelectAllVisible(true)
	if got := ctrl.Snapshot().Selected; len(got) != 3 {
		t.Fatalf("expected 3 selected, got %v", got)
	}
	if ctrl.ToggleSelect("missing.db") {
		t.Fatalf("unknown key must not be selectable")
	}

	current = []dbRow{{Name: "a.db"}, {Name: "c.db"}, {Name: "d.db"}}
	src.Invalidate()
	if err := ctrl.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if diff := cmp.Diff([]string{"a.db", "c.db"}, ctrl.Snapshot().Selected); diff != "" {
		t.Fatalf("selection mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]dbRow{{Name: "a.db"}, {Name: "c.db"}}, ctrl.SelectedRows()); diff != "" {
		t.Fatalf("selected rows mismatch (-want +got):\n%s", diff)
	}

	ctrl.ClearSelection()
	if got := ctrl.Snapshot().Selected; len(got) != 0 {
		t.Fatalf("expected empty selection, got %v", got)
	}
}

func TestRefreshClampsPageWhenTotalShrinks(t *testing.T) {
	current := dbNames(30)
	src := NewLocalSource(func(context.Context) ([]dbRow, error) { return current, nil }, nil, nil)
	ctrl := New(src.Fetch, func(r dbRow) string { return r.Name }, Options{PageSize: 10})
	ctx := context.Background()
	if err := ctrl.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	ctrl.SetPage(3)
	if err := ctrl.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	current = dbNames(12)
	src.Invalidate()
	if err := ctrl.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	snap := ctrl.Snapshot()
	if snap.Query.Page != 2 {
		t.Fatalf("page = %d, want 2", snap.Query.Page)
	}
	if diff := cmp.Diff([]string{"db_11.db", "db_12.db"}, names(snap.Rows)); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyURLParameters(t *testing.T) {
	ctrl, _ := newLocalController(dbNames(50), 10)
	if err := ctrl.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if ctrl.Apply(url.Values{"unrelated": {"1"}}) {
		t.Fatalf("unrelated params must not apply")
	}
	v := url.Values{"q": {"db"}, "sort": {"files"}, "dir": {"DESC"}, "f.island": {"Maui"}, "size": {"5"}, "page": {"2"}}
	if !ctrl.Apply(v) {
		t.Fatalf("expected params to apply")
	}
	want := Query{SearchText: "db", SortField: "files", SortDir: Desc, Page: 2, PageSize: 5, Filters: map[string]string{"island": "Maui"}}
	if diff := cmp.Diff(want, ctrl.Query()); diff != "" {
		t.Fatalf("query mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyPageDeepLink(t *testing.T) {
	ctx := context.Background()
	ctrl, _ := newLocalController(dbNames(45), 10)
	if !ctrl.Apply(url.Values{"page": {"3"}}) {
		t.Fatalf("expected page to apply")
	}
	if got := ctrl.Query().Page; got != 3 {
		t.Fatalf("page before first fetch = %d, want 3", got)
	}
	if err := ctrl.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	snap := ctrl.Snapshot()
	if snap.Query.Page != 3 {
		t.Fatalf("page after fetch = %d, want 3", snap.Query.Page)
	}
	if diff := cmp.Diff([]string{"db_21.db", "db_22.db", "db_23.db", "db_24.db", "db_25.db", "db_26.db", "db_27.db", "db_28.db", "db_29.db", "db_30.db"}, names(snap.Rows)); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}

	short, _ := newLocalController(dbNames(15), 10)
	short.SetPage(7)
	if got := short.Query().Page; got != 7 {
		t.Fatalf("page before first fetch = %d, want 7", got)
	}
	if err := short.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	snap = short.Snapshot()
	if snap.Query.Page != 2 {
		t.Fatalf("page past the end = %d, want 2", snap.Query.Page)
	}
	if diff := cmp.Diff([]string{"db_11.db", "db_12.db", "db_13.db", "db_14.db", "db_15.db"}, names(snap.Rows)); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyPageWithNewSearch(t *testing.T) {
	ctx := context.Background()
	ctrl, _ := newLocalController(dbNames(25), 2)
	ctrl.SetSearchText("db_1")
	if err := ctrl.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := ctrl.Snapshot().Pagination.TotalPages; got != 5 {
		t.Fatalf("filtered pages = %d, want 5", got)
	}

	// Clearing the search grows the list to 13 pages, which only the next
	// fetch knows about.
	ctrl.Apply(url.Values{"q": {""}, "page": {"9"}})
	if got := ctrl.Query().Page; got != 9 {
		t.Fatalf("page = %d, want 9", got)
	}
	if err := ctrl.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	snap := ctrl.Snapshot()
	if snap.Query.Page != 9 {
		t.Fatalf("page after fetch = %d, want 9", snap.Query.Page)
	}
	if diff := cmp.Diff([]string{"db_17.db", "db_18.db"}, names(snap.Rows)); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestMaxPageSize(t *testing.T) {
	ctrl := New(func(context.Context, Query) (Result[dbRow], error) { return Result[dbRow]{}, nil },
		func(r dbRow) string { return r.Name }, Options{PageSize: 25, MaxPageSize: 200})
	ctrl.SetPageSize(1000)
	if got := ctrl.Query().PageSize; got != 200 {
		t.Fatalf("page size = %d, want 200", got)
	}
	ctrl.SetPageSize(0)
	if got := ctrl.Query().PageSize; got != 25 {
		t.Fatalf("page size = %d, want default 25", got)
	}
}
