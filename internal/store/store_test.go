package store

import (
	"errors"
	"path/filepath"
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateAppliesOnFreshDB(t *testing.T) {
	db := testDB(t)

	// testDB already ran Migrate, so a second run must be a no-op.
	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 2 {
		t.Errorf("version = %d, want 2 (settings + event_log)", result.Version)
	}
	if result.From != 2 {
		t.Errorf("from = %d, want 2", result.From)
	}
}

func TestMigrateFreshFileReportsChange(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "fresh.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	v, err := db.SchemaVersion()
	if err != nil {
		t.Fatal(err)
	}
	if v != 0 {
		t.Errorf("fresh SchemaVersion() = %d, want 0", v)
	}

	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if !result.Changed || result.From != 0 || result.Version != 2 {
		t.Errorf("Migrate() = %+v, want 0 -> 2 changed", *result)
	}
}

func TestMigrateRefusesDirtySchema(t *testing.T) {
	db := testDB(t)
	if _, err := db.Exec("UPDATE schema_migrations SET dirty = 1"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); !errors.Is(err, ErrDirty) {
		t.Fatalf("Migrate() error = %v, want ErrDirty", err)
	}
}

func TestMigrateSchemaHasRequiredColumns(t *testing.T) {
	db := testDB(t)

	requiredOps := []struct {
		desc  string
		query string
		args  []any
	}{
		{"insert setting", "INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)", []any{"k", "v", 1000}},
		{"insert event", "INSERT INTO event_log (type, instance, payload, received_at) VALUES (?, ?, ?, ?)", []any{"new_message", "loja-centro", "{}", 1000}},
		{"insert event without instance", "INSERT INTO event_log (type, payload, received_at) VALUES (?, ?, ?)", []any{"heartbeat", "{}", 1000}},
	}

	for _, op := range requiredOps {
		t.Run(op.desc, func(t *testing.T) {
			if _, err := db.Exec(op.query, op.args...); err != nil {
				t.Fatalf("%s failed: %v", op.desc, err)
			}
		})
	}
}

func TestSettingRoundTrip(t *testing.T) {
	db := testDB(t)

	if _, ok, err := db.GetSetting("sla_threshold_minutes"); err != nil || ok {
		t.Fatalf("GetSetting() on empty = ok %v, err %v", ok, err)
	}

	if err := db.PutSetting("sla_threshold_minutes", "30"); err != nil {
		t.Fatal(err)
	}
	if err := db.PutSetting("sla_threshold_minutes", "45"); err != nil {
		t.Fatal(err)
	}

	v, ok, err := db.GetSetting("sla_threshold_minutes")
	if err != nil || !ok || v != "45" {
		t.Errorf("GetSetting() = %q, %v, %v; want 45", v, ok, err)
	}

	all, err := db.ListSettings()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all[0].UpdatedAt == 0 {
		t.Errorf("ListSettings() = %+v", all)
	}

	if err := db.DeleteSetting("sla_threshold_minutes"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := db.GetSetting("sla_threshold_minutes"); ok {
		t.Error("setting still present after delete")
	}
}

func TestEventLog(t *testing.T) {
	db := testDB(t)

	for _, typ := range []string{"new_message", "new_call", "new_message", "groups_updated"} {
		if err := db.AppendEvent(typ, "loja-centro", `{"type":"`+typ+`"}`); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.AppendEvent("message_updated", "", "{}"); err != nil {
		t.Fatal(err)
	}

	recent, err := db.RecentEvents(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 {
		t.Fatalf("RecentEvents(2) len = %d", len(recent))
	}
	if recent[0].Type != "message_updated" || recent[0].Instance != "" {
		t.Errorf("newest = %+v, want message_updated without instance", recent[0])
	}
	if recent[1].Instance != "loja-centro" {
		t.Errorf("second = %+v, want instance loja-centro", recent[1])
	}

	counts, err := db.CountEventsByType()
	if err != nil {
		t.Fatal(err)
	}
	if counts["new_message"] != 2 || counts["new_call"] != 1 {
		t.Errorf("counts = %v", counts)
	}

	deleted, err := db.PruneEvents(3)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 2 {
		t.Errorf("PruneEvents(3) deleted %d, want 2", deleted)
	}
	rest, _ := db.RecentEvents(10)
	if len(rest) != 3 || rest[2].Type != "new_message" {
		t.Errorf("after prune = %+v", rest)
	}
}
