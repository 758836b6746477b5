package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func newTestClient(t *testing.T, h http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, WithTimeout(5*time.Second))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c, srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewRejectsRelativeURL(t *testing.T) {
	if _, err := New("/api"); err == nil {
		t.Fatalf("expected error for relative base url")
	}
}

func TestAsStampsIdentityHeader(t *testing.T) {
	var seen atomic.Value
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.Store(r.Header.Get("X-User") + "|" + r.Header.Get("X-Request-ID"))
		writeJSON(w, http.StatusOK, map[string]any{"dbs": []string{"a.db"}})
	}))

	if _, err := c.ListDatabases(context.Background()); err != nil {
		t.Fatalf("anonymous list: %v", err)
	}
	parts := strings.SplitN(seen.Load().(string), "|", 2)
	if parts[0] != "" {
		t.Fatalf("expected no identity for anonymous client, got %q", parts[0])
	}
	if parts[1] == "" {
		t.Fatalf("expected request id header")
	}

	as := c.As("kai@geolabs.net")
	if _, err := as.ListDatabases(context.Background()); err != nil {
		t.Fatalf("identified list: %v", err)
	}
	if got := strings.SplitN(seen.Load().(string), "|", 2)[0]; got != "kai@geolabs.net" {
		t.Fatalf("expected identity header, got %q", got)
	}
	if c.Identity() != "" {
		t.Fatalf("As must not mutate the parent client")
	}
}

func TestListDatabasesAcceptsItemsShape(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"items": []string{"employee_handbook.db", "reports.db"}})
	}))
	got, err := c.ListDatabases(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if diff := cmp.Diff([]string{"employee_handbook.db", "reports.db"}, got); diff != "" {
		t.Fatalf("databases mismatch (-want +got):\n%s", diff)
	}
}

func TestAPIErrorDecodesErrorBody(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Confirmation text does not match"})
	}))
	_, err := c.DeleteDatabase(context.Background(), "foo.db", "DELETE foo.db")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadRequest || apiErr.Message != "Confirmation text does not match" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
	if !IsStatus(err, http.StatusBadRequest) {
		t.Fatalf("expected IsStatus 400")
	}
	if got := UserMessage(err); got != "Confirmation text does not match" {
		t.Fatalf("unexpected user message %q", got)
	}
}

func TestAPIErrorPlainTextAndHTML(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		wantMsg string
		wantUI  string
	}{
		{name: "plain text", body: "database locked", wantMsg: "database locked", wantUI: "database locked"},
		{name: "html page", body: "<html><body>Internal Server Error</body></html>", wantMsg: "", wantUI: "Request failed (500)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = io.WriteString(w, tc.body)
			}))
			_, err := c.ListFiles(context.Background(), "x.db")
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.Message != tc.wantMsg {
				t.Fatalf("message = %q, want %q", apiErr.Message, tc.wantMsg)
			}
			if got := UserMessage(err); got != tc.wantUI {
				t.Fatalf("user message = %q, want %q", got, tc.wantUI)
			}
		})
	}
}

func TestUnreachableBackendIsErrUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(url)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = c.ListDatabases(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestProcessFileStreamsMultipartWithProgress(t *testing.T) {
	content := bytes.Repeat([]byte("%PDF-1.4 geolabs "), 4096)
	var gotLength int64
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/process-file" {
			http.NotFound(w, r)
			return
		}
		gotLength = r.ContentLength
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		defer f.Close()
		body, _ := io.ReadAll(f)
		if !bytes.Equal(body, content) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "content mismatch"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message": hdr.Filename + " ingested into " + r.FormValue("db_name"),
			"steps":   []string{"mode=" + r.FormValue("mode"), "user=" + r.FormValue("user")},
		})
	}))

	var lastSent, lastTotal int64
	res, err := c.As("kai@geolabs.net").ProcessFile(context.Background(), "handbook.db", ModeAppend, "",
		Upload{Name: "a.pdf", ContentType: "application/pdf", Size: int64(len(content)), Body: bytes.NewReader(content)},
		func(sent, total int64) { lastSent, lastTotal = sent, total })
	if err != nil {
		t.Fatalf("process file: %v", err)
	}
	if res.Message != "a.pdf ingested into handbook.db" {
		t.Fatalf("unexpected message %q", res.Message)
	}
	if diff := cmp.Diff([]string{"mode=append", "user=kai@geolabs.net"}, res.Steps); diff != "" {
		t.Fatalf("steps mismatch (-want +got):\n%s", diff)
	}
	if lastSent != int64(len(content)) || lastTotal != int64(len(content)) {
		t.Fatalf("expected progress to reach %d, got %d/%d", len(content), lastSent, lastTotal)
	}
	if gotLength <= int64(len(content)) {
		t.Fatalf("expected exact content length larger than file, got %d", gotLength)
	}
}

func TestProcessFileRejectsUnknownMode(t *testing.T) {
	c, _ := newTestClient(t, http.NotFoundHandler())
	_, err := c.ProcessFile(context.Background(), "x.db", "replace", "u", Upload{Name: "a.pdf", Body: strings.NewReader("x"), Size: 1}, nil)
	if err == nil || !strings.Contains(err.Error(), "invalid ingest mode") {
		t.Fatalf("expected invalid mode error, got %v", err)
	}
}

// blockingReader yields one chunk then blocks until released or until ctx
// ends, like a file on a stalled network share.
type blockingReader struct {
	ctx     context.Context
	first   bool
	release chan struct{}
}

func (b *blockingReader) Read(p []byte) (int, error) {
	if !b.first {
		b.first = true
		return copy(p, "%PDF"), nil
	}
	select {
	case <-b.release:
		return 0, io.EOF
	case <-b.ctx.Done():
		return 0, b.ctx.Err()
	}
}

func TestProcessFileCancelAbortsRequest(t *testing.T) {
	started := make(chan struct{})
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		_, _ = io.Copy(io.Discard, r.Body)
		writeJSON(w, http.StatusOK, map[string]string{"message": "late"})
	}))

	release := make(chan struct{})
	defer close(release)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := c.ProcessFile(ctx, "x.db", ModeNew, "u", Upload{Name: "slow.pdf", Size: -1, Body: &blockingReader{ctx: ctx, release: release}}, nil)
		errCh <- err
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatalf("upload never reached the server")
	}
	cancel()

	select {
	case err := <-errCh:
		if !IsCanceled(err) {
			t.Fatalf("expected canceled error, got %v", err)
		}
		if UserMessage(err) != "Stopped" {
			t.Fatalf("expected Stopped message, got %q", UserMessage(err))
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("cancel did not abort the upload")
	}
}

func TestProcessFileCancelWhileServerStalls(t *testing.T) {
	started := make(chan struct{})
	unblock := make(chan struct{})
	defer close(unblock)
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		select {
		case <-unblock:
		case <-r.Context().Done():
		}
	}))

	ctx, cancel := context.WithCancel(context.Background())
	body := bytes.NewReader(make([]byte, 64<<20))
	errCh := make(chan error, 1)
	go func() {
		_, err := c.ProcessFile(ctx, "x.db", ModeNew, "u", Upload{Name: "big.pdf", Size: int64(body.Len()), Body: body}, nil)
		errCh <- err
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatalf("upload never reached the server")
	}
	cancel()

	select {
	case err := <-errCh:
		if !IsCanceled(err) {
			t.Fatalf("expected canceled error, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("cancel did not abort the upload")
	}
}

func TestInspectDatabaseSortsTables(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["db_name"] != "handbook.db" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "wrong db"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"chunks":    map[string]any{"columns": []string{"id", "text"}, "sample_rows": [][]any{{1, "hello"}}},
			"documents": map[string]any{"columns": []string{"id", "name"}, "sample_rows": [][]any{}},
		})
	}))
	tables, err := c.InspectDatabase(context.Background(), "handbook.db")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if len(tables) != 2 || tables[0].Name != "chunks" || tables[1].Name != "documents" {
		t.Fatalf("unexpected tables: %+v", tables)
	}
	if diff := cmp.Diff([]string{"id", "text"}, tables[0].Columns); diff != "" {
		t.Fatalf("columns mismatch (-want +got):\n%s", diff)
	}
}

func TestRecognizedAcceptsStringOrList(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want Recognized
	}{
		{name: "text", raw: `{"recognized_work_orders":"- 8292-05B\n- 8301"}`, want: Recognized{Text: "- 8292-05B\n- 8301"}},
		{name: "list", raw: `{"recognized_work_orders":["8292-05B","8301"]}`, want: Recognized{Items: []string{"8292-05B", "8301"}}},
		{name: "null", raw: `{"recognized_work_orders":null}`, want: Recognized{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var resp struct {
				Recognized Recognized `json:"recognized_work_orders"`
			}
			if err := json.Unmarshal([]byte(tc.raw), &resp); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if diff := cmp.Diff(tc.want, resp.Recognized); diff != "" {
				t.Fatalf("recognized mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestProjectMatchFound(t *testing.T) {
	if (ProjectMatch{ProjectWO: "Not Found"}).Found() {
		t.Fatalf("Not Found sentinel must not count as found")
	}
	if !(ProjectMatch{ProjectWO: "8292-05(B)"}).Found() {
		t.Fatalf("expected match to be found")
	}
}

func TestTimestampLayouts(t *testing.T) {
	cases := []string{
		`"2025-08-12T10:00:00+00:00"`,
		`"2025-08-12T10:00:00"`,
		`"2025-08-12 10:00:00"`,
		`"Tue, 12 Aug 2025 10:00:00 GMT"`,
	}
	for _, raw := range cases {
		var ts Timestamp
		if err := json.Unmarshal([]byte(raw), &ts); err != nil {
			t.Fatalf("unmarshal %s: %v", raw, err)
		}
		if ts.Year() != 2025 || ts.Month() != time.August || ts.Day() != 12 || ts.Hour() != 10 {
			t.Fatalf("unexpected time for %s: %v", raw, ts.Time)
		}
	}
}

func TestCoreBoxQueryValues(t *testing.T) {
	got := CoreBoxQuery{Q: " boring ", Island: "Maui", ExpiredOnly: true, SortBy: "year", SortDir: "asc", Page: 2, PageSize: 50}.Values()
	want := "expired=1&island=Maui&page=2&page_size=50&q=boring&sort_by=year&sort_dir=ASC"
	if got.Encode() != want {
		t.Fatalf("query = %q, want %q", got.Encode(), want)
	}
}
