package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeGraphJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func fakeGraph(t *testing.T, users int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			writeGraphJSON(w, http.StatusUnauthorized, map[string]any{"error": map[string]string{"code": "InvalidAuthenticationToken", "message": "expired"}})
			return
		}
		if r.URL.Query().Get("$top") != "200" || r.URL.Query().Get("$select") == "" {
			t.Errorf("missing $top/$select: %s", r.URL.RawQuery)
		}
		start := 0
		fmt.Sscan(r.URL.Query().Get("skip"), &start)
		var value []map[string]any
		for i := start; i < min(start+200, users); i++ {
			value = append(value, map[string]any{
				"id":                fmt.Sprint(i),
				"displayName":       fmt.Sprintf("User %04d", i),
				"userPrincipalName": fmt.Sprintf("user%d@geolabs.net", i),
				"businessPhones":    []string{"808-555-0100"},
				"jobTitle":          "Engineer",
			})
		}
		body := map[string]any{"value": value}
		if start+200 < users {
			body["@odata.nextLink"] = fmt.Sprintf("%s/users?$top=200&$select=id&skip=%d", srv.URL, start+200)
		}
		writeGraphJSON(w, http.StatusOK, body)
	})
	mux.HandleFunc("/me/contacts", func(w http.ResponseWriter, r *http.Request) {
		writeGraphJSON(w, http.StatusOK, map[string]any{"value": []map[string]any{
			{"id": "c1", "displayName": "Personal Zero", "emailAddresses": []map[string]string{{"address": "USER0@geolabs.net"}}, "mobilePhone": "808-555-0199"},
			{"id": "c2", "displayName": "Kai Contractor", "companyName": "Island Drilling"},
		}})
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestDirectoryFollowsNextLinkUpToCap(t *testing.T) {
	srv := fakeGraph(t, 450)
	c, err := New(srv.URL, 0)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	got, err := c.Directory(context.Background(), "tok")
	if err != nil {
		t.Fatalf("directory: %v", err)
	}
	if len(got) != 450 {
		t.Fatalf("contacts = %d, want 450", len(got))
	}
	want := Contact{ID: "0", Name: "User 0000", Email: "user0@geolabs.net", Business: "808-555-0100", Title: "Engineer", Source: SourceDirectory}
	if diff := cmp.Diff(want, got[0]); diff != "" {
		t.Fatalf("contact mismatch (-want +got):\n%s", diff)
	}

	capped, _ := New(srv.URL, 300)
	got, err = capped.Directory(context.Background(), "tok")
	if err != nil {
		t.Fatalf("directory: %v", err)
	}
	if len(got) != 300 {
		t.Fatalf("capped contacts = %d, want 300", len(got))
	}
}

func TestLoadBothMergesWithDirectoryPrecedence(t *testing.T) {
	srv := fakeGraph(t, 2)
	c, _ := New(srv.URL, 0)
	got, err := c.Load(context.Background(), "tok", SourceBoth)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	var names []string
	for _, ct := range got {
		names = append(names, ct.Name+"|"+ct.Source)
	}
	want := []string{"User 0000|Directory", "Kai Contractor|My Contacts", "User 0001|Directory"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("merge mismatch (-want +got):\n%s", diff)
	}
}

func TestGraphErrors(t *testing.T) {
	srv := fakeGraph(t, 1)
	c, _ := New(srv.URL, 0)
	if _, err := c.Load(context.Background(), "", SourceDirectory); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
	_, err := c.Directory(context.Background(), "stale")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized || apiErr.Code != "InvalidAuthenticationToken" {
		t.Fatalf("expected 401 APIError, got %v", err)
	}
}

func TestNextLinkStaysOnGraphHost(t *testing.T) {
	var foreignHits, foreignAuth atomic.Int32
	foreign := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		foreignHits.Add(1)
		if r.Header.Get("Authorization") != "" {
			foreignAuth.Add(1)
		}
		writeGraphJSON(w, http.StatusOK, map[string]any{"value": []any{}})
	}))
	t.Cleanup(foreign.Close)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeGraphJSON(w, http.StatusOK, map[string]any{
			"value":           []map[string]any{{"id": "1", "displayName": "Only Page", "mail": "only@geolabs.net"}},
			"@odata.nextLink": foreign.URL + "/users?skip=1",
		})
	}))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, 0)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	_, err = c.Directory(context.Background(), "tok")
	if !errors.Is(err, ErrForeignNextLink) {
		t.Fatalf("expected ErrForeignNextLink, got %v", err)
	}
	if foreignHits.Load() != 0 || foreignAuth.Load() != 0 {
		t.Fatalf("foreign host contacted %d times (%d with a token)", foreignHits.Load(), foreignAuth.Load())
	}
}

func TestSessionTokensOnlyForGraphHost(t *testing.T) {
	base, _ := url.Parse("https://graph.microsoft.com/v1.0")
	p := newSessionTokens(base)
	ctx := withToken(context.Background(), "tok")

	own, _ := url.Parse("https://graph.microsoft.com/v1.0/users")
	if got, err := p.GetAuthorizationToken(ctx, own, nil); err != nil || got != "tok" {
		t.Fatalf("graph host token = %q, %v", got, err)
	}
	other, _ := url.Parse("https://evil.example.com/v1.0/users")
	if got, _ := p.GetAuthorizationToken(ctx, other, nil); got != "" {
		t.Fatalf("token leaked to %s", other)
	}
	downgraded, _ := url.Parse("http://graph.microsoft.com/v1.0/users")
	if got, _ := p.GetAuthorizationToken(ctx, downgraded, nil); got != "" {
		t.Fatalf("token sent over plain http")
	}
	if _, err := p.GetAuthorizationToken(context.Background(), own, nil); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken without a session token, got %v", err)
	}
}
