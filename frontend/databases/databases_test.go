package databases

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	portalctx "github.com/Taikiy49/FS-Geolabs/frontend/shared/context"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/backend"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/rbac"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/workspace"
	"github.com/Taikiy49/FS-Geolabs/models"
)

func newViewerWorkspace(t *testing.T) *workspace.Workspace {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/list-dbs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string][]string{"dbs": {"employee_handbook.db", "safety_manual.db", "chat_history.db"}})
	})
	mux.HandleFunc("/api/list-files", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		if body["db_name"] == "safety_manual.db" {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "no such database"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string][]string{"files": {"chapter1.pdf", "chapter2.pdf"}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := backend.New(srv.URL)
	if err != nil {
		t.Fatalf("backend: %v", err)
	}
	ws := workspace.New(workspace.Options{Email: "kai@geolabs.net", Role: rbac.RoleUser, Backend: client.As("kai@geolabs.net")})
	t.Cleanup(ws.Close)
	return ws
}

func serve(ws *workspace.Workspace, h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	ctx := portalctx.NewContextWithSession(req.Context(), models.Session{Email: ws.Email, Role: ws.Role})
	ctx = portalctx.NewContextWithWorkspace(ctx, ws)
	rec := httptest.NewRecorder()
	h(rec, req.WithContext(ctx))
	return rec
}

func TestDatabasesPageListsFilesWithDisplayNames(t *testing.T) {
	ws := newViewerWorkspace(t)
	rec := serve(ws, DatabasesPageQueryHandler(), httptest.NewRequest(http.MethodGet, basePath+"?open=employee_handbook.db", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Employee Handbook", "Safety Manual", "chapter1.pdf", "chapter2.pdf"} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(body, "chat_history.db") {
		t.Errorf("chat history database should not be listed")
	}

	rec = serve(ws, DatabasesPageQueryHandler(), httptest.NewRequest(http.MethodGet, basePath+"?open=safety_manual.db", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "no such database") {
		t.Fatalf("missing database should render the backend error inline")
	}
}

func TestSelectDatabaseStaysInPortal(t *testing.T) {
	ws := newViewerWorkspace(t)
	cases := []struct {
		back, want string
	}{
		{back: "/portal/ask", want: "/portal/ask"},
		{back: "https://evil.example.com/", want: basePath},
		{back: "", want: basePath},
	}
	for _, tc := range cases {
		form := url.Values{"db": {"safety_manual.db"}, "back": {tc.back}}
		req := httptest.NewRequest(http.MethodPost, basePath+"/select", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := serve(ws, SelectDatabaseCommandHandler(), req)
		if got := rec.Header().Get("Location"); rec.Code != http.StatusSeeOther || got != tc.want {
			t.Fatalf("back %q: status %d location %q, want %q", tc.back, rec.Code, got, tc.want)
		}
	}
	if got := ws.SelectedDatabase(); got != "safety_manual.db" {
		t.Fatalf("selected = %q", got)
	}
}
