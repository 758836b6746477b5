package ocrlookup

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Taikiy49/FS-Geolabs/infrastructure/backend"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/ocrwizard"
)

func TestMatchTable(t *testing.T) {
	rows := []ocrwizard.Row{
		{WorkOrder: "8292-05(B)", Found: true, Match: backend.ProjectMatch{
			WorkOrder: "8292-05(B)", ProjectWO: "8292-05", PR: "PR-11", Client: "County of Hawaii", Project: "Bridge", Date: "2023-04-01",
		}},
		{WorkOrder: "1111", Match: backend.ProjectMatch{WorkOrder: "1111", ProjectWO: backend.NotFound}},
	}
	got := MatchTable(rows)
	want := [][]any{
		{"8292-05(B)", "8292-05(B)", "8292-05", "PR-11", "County of Hawaii", "Bridge", "2023-04-01", true},
		{"1111", "1111", backend.NotFound, "", "", "", "", false},
	}
	if diff := cmp.Diff(want, got.Rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
	if len(got.Header) != len(want[0]) {
		t.Fatalf("header has %d columns, rows have %d", len(got.Header), len(want[0]))
	}
}
