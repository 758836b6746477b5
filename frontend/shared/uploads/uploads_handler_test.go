package uploads

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	sessioncontext "github.com/Taikiy49/FS-Geolabs/frontend/shared/context"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/backend"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/config"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/uploadqueue"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/workspace"
)

func newWorkspace(t *testing.T) *workspace.Workspace {
	t.Helper()
	b, err := backend.New("http://127.0.0.1:1")
	if err != nil {
		t.Fatalf("backend: %v", err)
	}
	ws := workspace.New(workspace.Options{
		Email:       "kai@geolabs.net",
		Backend:     b.As("kai@geolabs.net"),
		AcceptedExt: []string{".pdf"},
	})
	t.Cleanup(ws.Close)
	return ws
}

func testQueue(t *testing.T) Queue {
	return Queue{
		Path: "/portal/dbadmin",
		Pick: func(ws *workspace.Workspace) *uploadqueue.Queue { return ws.DatabaseUploads },
		Dest: func(r *http.Request, _ *workspace.Workspace) (string, map[string]string, error) {
			return r.FormValue("db"), map[string]string{workspace.ParamMode: "append"}, nil
		},
		Config: config.UploadConfig{SpoolDir: t.TempDir(), MaxFileBytes: 1 << 20},
	}
}

func postFiles(t *testing.T, h http.Handler, ws *workspace.Workspace, names ...string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("db", "handbook.db")
	for _, name := range names {
		part, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		_, _ = part.Write([]byte("%PDF-1.4 not really"))
	}
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/portal/dbadmin/uploads", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req = req.WithContext(sessioncontext.NewContextWithWorkspace(req.Context(), ws))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestEnqueueFiltersAndDeduplicates(t *testing.T) {
	ws := newWorkspace(t)
	q := testQueue(t)
	h := q.EnqueueCommandHandler()

	rec := postFiles(t, h, ws, "a.pdf", "notes.txt")
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	loc, _ := url.Parse(rec.Header().Get("Location"))
	if got := loc.Query().Get("status"); got != "1 file(s) queued, skipped notes.txt" {
		t.Fatalf("unexpected status %q", got)
	}

	rec = postFiles(t, h, ws, "a.pdf", "b.pdf")
	loc, _ = url.Parse(rec.Header().Get("Location"))
	if got := loc.Query().Get("status"); got != "1 file(s) queued, skipped a.pdf" {
		t.Fatalf("unexpected status %q", got)
	}

	var got []string
	for _, it := range ws.DatabaseUploads.Items() {
		got = append(got, it.Name+"@"+it.Target+":"+string(it.Status))
	}
	if diff := cmp.Diff([]string{"a.pdf@handbook.db:ready", "b.pdf@handbook.db:ready"}, got); diff != "" {
		t.Fatalf("queue mismatch (-want +got):\n%s", diff)
	}
}

func TestStatusQueryHandler(t *testing.T) {
	ws := newWorkspace(t)
	q := testQueue(t)
	postFiles(t, q.EnqueueCommandHandler(), ws, "a.pdf")

	req := httptest.NewRequest(http.MethodGet, "/portal/dbadmin/uploads/status", nil)
	req = req.WithContext(sessioncontext.NewContextWithWorkspace(req.Context(), ws))
	rec := httptest.NewRecorder()
	q.StatusQueryHandler().ServeHTTP(rec, req)

	var st StatusResponse
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Running || st.Counts.Ready != 1 || len(st.Items) != 1 || st.Items[0].Status != "ready" {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestRemoveUnknownItem(t *testing.T) {
	ws := newWorkspace(t)
	q := testQueue(t)
	req := httptest.NewRequest(http.MethodPost, "/portal/dbadmin/uploads/remove", strings.NewReader("id=nope"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req = req.WithContext(sessioncontext.NewContextWithWorkspace(req.Context(), ws))
	rec := httptest.NewRecorder()
	q.RemoveCommandHandler().ServeHTTP(rec, req)
	if !strings.Contains(rec.Header().Get("Location"), "error=") {
		t.Fatalf("expected error redirect, got %s", rec.Header().Get("Location"))
	}
}

func TestFormatSize(t *testing.T) {
	cases := map[int64]string{0: "0 B", 1023: "1023 B", 1024: "1.0 KiB", 5 << 20: "5.0 MiB"}
	for n, want := range cases {
		if got := FormatSize(n); got != want {
			t.Errorf("FormatSize(%d) = %q, want %q", n, got, want)
		}
	}
}
