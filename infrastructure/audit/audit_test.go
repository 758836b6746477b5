package audit

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Taikiy49/FS-Geolabs/infrastructure/sqlite"
)

func openTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.OpenDB(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := sqlite.ApplyMigrations(context.Background(), db, ""); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return db
}

func TestRecordAndRecent(t *testing.T) {
	db := openTestDB(t)
	svc := NewService()
	ctx := context.Background()

	if err := svc.Record(ctx, db, "owner@geolabs.net", ActionDeleteDatabase, "database", "old_reports.db", map[string]string{"db": "old_reports.db"}, nil); err != nil {
		t.Fatalf("record delete: %v", err)
	}
	if err := svc.Record(ctx, db, "owner@geolabs.net", ActionUpdateRole, "user", "kai@geolabs.net", map[string]string{"role": "User"}, map[string]string{"role": "Admin"}); err != nil {
		t.Fatalf("record role: %v", err)
	}

	logs, err := Recent(ctx, db, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("logs = %d, want 2", len(logs))
	}
	if logs[0].Action != ActionUpdateRole || logs[0].AfterJSON != `{"role":"Admin"}` {
		t.Fatalf("unexpected newest entry %+v", logs[0])
	}
	if logs[1].EntityID != "old_reports.db" || logs[1].AfterJSON != "" {
		t.Fatalf("unexpected oldest entry %+v", logs[1])
	}
}
