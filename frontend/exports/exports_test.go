package exports

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"github.com/Taikiy49/FS-Geolabs/infrastructure/sqlite"
)

func openTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.OpenDB(filepath.Join(t.TempDir(), "exports.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := sqlite.ApplyMigrations(context.Background(), db, ""); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return db
}

var sample = Table{
	Name:   "core-boxes",
	Sheet:  "Core Boxes",
	Header: []string{"Year", "Work Order", "Complete"},
	Rows: [][]any{
		{2023, "8292-05(B)", true},
		{2021, "W, 12", false},
	},
}

func TestWriteCSV(t *testing.T) {
	var b bytes.Buffer
	if err := writeCSV(&b, sample); err != nil {
		t.Fatalf("writeCSV: %v", err)
	}
	want := "Year,Work Order,Complete\n2023,8292-05(B),Yes\n2021,\"W, 12\",No\n"
	if b.String() != want {
		t.Fatalf("csv = %q, want %q", b.String(), want)
	}
}

func TestWriteXLSX(t *testing.T) {
	var b bytes.Buffer
	if err := writeXLSX(&b, sample); err != nil {
		t.Fatalf("writeXLSX: %v", err)
	}
	f, err := excelize.OpenReader(&b)
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Core Boxes")
	if err != nil {
		t.Fatalf("get rows: %v", err)
	}
	want := [][]string{
		{"Year", "Work Order", "Complete"},
		{"2023", "8292-05(B)", "Yes"},
		{"2021", "W, 12", "No"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestServeRecordsRun(t *testing.T) {
	db := openTestDB(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/portal/coreboxes/export?format=xlsx", nil)
	Serve(rec, req, db, "kai@geolabs.net", FormatXLSX, sample)

	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Fatalf("content type = %q", ct)
	}
	n, err := CountRuns(context.Background(), db, "kai@geolabs.net", "core-boxes_xlsx")
	if err != nil || n != 1 {
		t.Fatalf("CountRuns = %d, %v", n, err)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]string{"": FormatCSV, "csv": FormatCSV, "xlsx": FormatXLSX} {
		if got, err := ParseFormat(in); err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("pdf"); err == nil {
		t.Fatal("pdf accepted")
	}
}
