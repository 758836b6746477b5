package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Taikiy49/FS-Geolabs/infrastructure/backend"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/workspace"
)

func TestTargetDatabase(t *testing.T) {
	cases := map[string]string{
		"project_reports.db":  "project_reports.db",
		"Employee Handbook":   "employee_handbook.db",
		"  Pile Tests 2024  ": "pile_tests_2024.db",
		"":                    "",
	}
	for in, want := range cases {
		if got := targetDatabase(in); got != want {
			t.Errorf("targetDatabase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseRole(t *testing.T) {
	for _, in := range []string{"Owner", "admin", " USER "} {
		if _, err := parseRole(in); err != nil {
			t.Errorf("parseRole(%q): %v", in, err)
		}
	}
	if _, err := parseRole("superuser"); err == nil {
		t.Fatal("parseRole accepted an unknown role")
	}
}

func TestRunQueueReportsFailures(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/process-file" {
			http.NotFound(w, r)
			return
		}
		_, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		mu.Lock()
		seen = append(seen, header.Filename+"|"+r.FormValue("db_name")+"|"+r.FormValue("mode")+"|"+r.Header.Get("X-User"))
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		if strings.HasPrefix(header.Filename, "bad") {
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "ingest failed"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "ok"})
	}))
	defer srv.Close()

	client, err := backend.New(srv.URL)
	if err != nil {
		t.Fatalf("backend: %v", err)
	}
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a.pdf", "bad.pdf", "c.pdf", "d.docx"} {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte("%PDF-1.4\n"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		paths = append(paths, p)
	}

	var out bytes.Buffer
	ws := workspace.New(workspace.Options{
		Email:             "kai@geolabs.net",
		Backend:           client.As("kai@geolabs.net"),
		UploadConcurrency: 2,
		AcceptedExt:       []string{".pdf"},
	})
	defer ws.Close()

	failed, err := runQueue(ws, ws.DatabaseUploads, "reports.db", backend.ModeAppend, paths, &out)
	if err != nil {
		t.Fatalf("runQueue: %v", err)
	}
	if failed != 2 {
		t.Fatalf("failed = %d, want 2 (bad.pdf and d.docx)\n%s", failed, out.String())
	}
	if !strings.Contains(out.String(), "2 done, 1 failed, 0 canceled") {
		t.Fatalf("summary missing:\n%s", out.String())
	}

	mu.Lock()
	defer mu.Unlock()
	want := map[string]bool{
		"a.pdf|reports.db|append|kai@geolabs.net":   true,
		"bad.pdf|reports.db|append|kai@geolabs.net": true,
		"c.pdf|reports.db|append|kai@geolabs.net":   true,
	}
	got := map[string]bool{}
	for _, s := range seen {
		got[s] = true
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("backend requests (-want +got):\n%s", diff)
	}
}
