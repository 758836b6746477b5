package workspace

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Taikiy49/FS-Geolabs/infrastructure/backend"
)

func TestDisplayName(t *testing.T) {
	cases := map[string]string{
		"employee_handbook.db": "Employee Handbook",
		"safety_manual_2024.db": "Safety Manual 2024",
		"reports":               "Reports",
		"lab.db.db":             "Lab.Db",
		"":                      "",
	}
	for in, want := range cases {
		if got := DisplayName(in); got != want {
			t.Errorf("DisplayName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGroupUploads(t *testing.T) {
	entry := func(db, at string) backend.UploadHistoryEntry {
		return backend.UploadHistoryEntry{User: "kai@geolabs.net", File: db + at, DB: db, Time: at}
	}
	history := []backend.UploadHistoryEntry{
		entry("handbook.db", "2026-03-02T10:20:00"),
		entry("handbook.db", "2026-03-02T10:12:00"),
		entry("handbook.db", "2026-03-02T10:03:00"),
		entry("specs.db", "2026-03-02T10:02:00"),
		entry("specs.db", "2026-03-02T09:40:00"),
		entry("specs.db", "not a time"),
		entry("specs.db", "not a time"),
		entry("specs.db", "2026-03-02 09:35:00"),
	}

	var got [][]string
	for _, b := range GroupUploads(history) {
		var files []string
		for _, e := range b.Entries {
			files = append(files, e.File)
		}
		got = append(got, append([]string{b.DB}, files...))
	}
	want := [][]string{
		{"handbook.db", "handbook.db2026-03-02T10:20:00", "handbook.db2026-03-02T10:12:00", "handbook.db2026-03-02T10:03:00"},
		{"specs.db", "specs.db2026-03-02T10:02:00"},
		{"specs.db", "specs.db2026-03-02T09:40:00"},
		{"specs.db", "specs.dbnot a time"},
		{"specs.db", "specs.dbnot a time"},
		{"specs.db", "specs.db2026-03-02 09:35:00"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("batches mismatch (-want +got):\n%s", diff)
	}

	first := GroupUploads(history)[0]
	if first.Start.Format("15:04") != "10:03" || first.End.Format("15:04") != "10:20" {
		t.Fatalf("batch span = %s..%s", first.Start, first.End)
	}
	if GroupUploads(nil) != nil {
		t.Fatalf("empty history should have no batches")
	}
}
