package home

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Taikiy49/FS-Geolabs/infrastructure/rbac"
	"github.com/Taikiy49/FS-Geolabs/models"
)

func titles(gs []Group) []string {
	var out []string
	for _, g := range gs {
		out = append(out, g.Title)
	}
	return out
}

func TestGroupsFollowScreens(t *testing.T) {
	all := map[string]int{}
	for _, g := range groups {
		for _, c := range g.cards {
			all[c.code] = 1
		}
	}

	owner := models.Session{Role: rbac.RoleOwner, ScreenPermissions: all}
	want := []string{"Document Databases", "Project Finder", "Admin", "Contacts"}
	if diff := cmp.Diff(want, titles(Groups(owner))); diff != "" {
		t.Fatalf("owner groups (-want +got):\n%s", diff)
	}

	// A user never sees the admin group even if a route slipped through.
	user := models.Session{Role: rbac.RoleUser, ScreenPermissions: all}
	want = []string{"Document Databases", "Project Finder", "Contacts"}
	if diff := cmp.Diff(want, titles(Groups(user))); diff != "" {
		t.Fatalf("user groups (-want +got):\n%s", diff)
	}

	narrow := models.Session{Role: rbac.RoleUser, ScreenPermissions: map[string]int{"ASKAI_VIEW": 1}}
	got := Groups(narrow)
	if len(got) != 1 || len(got[0].Cards) != 1 || got[0].Cards[0].Href != "/portal/ask" {
		t.Fatalf("narrow groups = %+v", got)
	}
}

func TestHomePageRendersCards(t *testing.T) {
	data := PageData{Groups: []Group{{Title: "Contacts", Cards: []Card{{Title: "Contacts", Href: "/portal/contacts"}}}}}
	var buf bytes.Buffer
	if err := HomePage(data).Render(context.Background(), &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), `href="/portal/contacts"`) {
		t.Fatalf("missing card link in %s", buf.String())
	}
}
