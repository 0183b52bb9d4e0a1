package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4"

	"roomtrack/internal/infra/persistence/postgres/testutil"
	"roomtrack/pkg/domain"
)

func stubStore(t *testing.T) (*Store, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restoreOpen := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	prevMigrate := runMigrations
	runMigrations = func(string, migrate.Logger) error { return nil }
	t.Cleanup(func() {
		restoreOpen()
		runMigrations = prevMigrate
	})
	store, err := NewStore("")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store, conn
}

func TestPostgresStorePersistsDirtyBuckets(t *testing.T) {
	store, conn := stubStore(t)
	ctx := context.Background()
	if err := store.Update(ctx, "/", map[string]any{
		"items/a/name":        "Crate",
		"rooms/roomA/items/a": true,
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(conn.Rows) != 2 || conn.Rows["items"] == nil || conn.Rows["rooms"] == nil {
		t.Fatalf("expected items and rooms rows, got %v", conn.Rows)
	}
	for _, q := range conn.Execs {
		if !strings.Contains(q, "ON CONFLICT") {
			t.Fatalf("expected upserts only, got %s", q)
		}
	}

	// a second write to items replaces the row instead of appending
	if err := store.Write(ctx, "/items/a/name", "Box"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(conn.Rows) != 2 {
		t.Fatalf("expected upsert to keep two rows, got %d", len(conn.Rows))
	}
	if !strings.Contains(string(conn.Rows["items"]), `"Box"`) {
		t.Fatalf("expected items row replaced, got %s", conn.Rows["items"])
	}
}

func TestPostgresStoreDeletesEmptiedBucket(t *testing.T) {
	store, conn := stubStore(t)
	ctx := context.Background()
	_ = store.Write(ctx, "/movements/m1", map[string]any{"id": "m1"})
	if err := store.Write(ctx, "/movements", nil); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(conn.Rows) != 0 {
		t.Fatalf("expected movements row removed, got %v", conn.Rows)
	}
	last := conn.Execs[len(conn.Execs)-1]
	if !strings.HasPrefix(last, "DELETE FROM") {
		t.Fatalf("expected delete statement, got %s", last)
	}
}

func TestPostgresStoreHydratesFromState(t *testing.T) {
	db, conn := testutil.NewStubDB()
	conn.Rows["items"] = []byte(`{"a":{"id":"a","name":"Crate","lastUpdated":1700000000123}}`)
	restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	defer restore()
	prev := runMigrations
	runMigrations = func(string, migrate.Logger) error { return nil }
	defer func() { runMigrations = prev }()

	store, err := NewStore("postgres://example/roomtrack")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	raw, ok, err := store.Read(context.Background(), domain.ItemPath("a"))
	if err != nil || !ok {
		t.Fatalf("expected hydrated item, ok=%v err=%v", ok, err)
	}
	var item domain.Item
	if err := domain.Decode(raw, &item); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if item.Name != "Crate" || item.LastUpdated != 1700000000123 {
		t.Fatalf("unexpected item %+v", item)
	}
}

func TestPostgresStoreCommitFailureLeavesTreeUnchanged(t *testing.T) {
	store, conn := stubStore(t)
	ctx := context.Background()
	_ = store.Write(ctx, "/items/a/name", "Crate")

	conn.FailCommit = true
	if err := store.Write(ctx, "/items/a/name", "Box"); err == nil {
		t.Fatalf("expected commit failure")
	}
	v, _, _ := store.Read(ctx, "/items/a/name")
	if v != "Crate" {
		t.Fatalf("expected unchanged value, got %v", v)
	}
	if strings.Contains(string(conn.Rows["items"]), "Box") {
		t.Fatalf("failed commit must not reach the state table")
	}

	conn.FailCommit = false
	conn.FailBegin = true
	if err := store.Write(ctx, "/items/b/name", "Bin"); err == nil {
		t.Fatalf("expected begin failure")
	}
	if _, ok, _ := store.Read(ctx, "/items/b"); ok {
		t.Fatalf("expected item b absent after failed begin")
	}
}

func TestPostgresStoreOpenErrors(t *testing.T) {
	restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return nil, errors.New("no driver") })
	if _, err := NewStore(""); err == nil {
		t.Fatalf("expected open error")
	}
	restore()

	db, conn := testutil.NewStubDB()
	conn.FailPing = true
	restore = OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	defer restore()
	if _, err := NewStore(""); err == nil || !strings.Contains(err.Error(), "ping") {
		t.Fatalf("expected ping error, got %v", err)
	}

	db2, _ := testutil.NewStubDB()
	restore2 := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db2, nil })
	defer restore2()
	prev := runMigrations
	runMigrations = func(string, migrate.Logger) error { return errors.New("migrate boom") }
	defer func() { runMigrations = prev }()
	if _, err := NewStore(""); err == nil || !strings.Contains(err.Error(), "migrate boom") {
		t.Fatalf("expected migration error, got %v", err)
	}
}

func TestPostgresStoreLoadErrors(t *testing.T) {
	db, conn := testutil.NewStubDB()
	conn.FailQuery = true
	restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	defer restore()
	prev := runMigrations
	runMigrations = func(string, migrate.Logger) error { return nil }
	defer func() { runMigrations = prev }()
	if _, err := NewStore(""); err == nil || !strings.Contains(err.Error(), "select state") {
		t.Fatalf("expected select error, got %v", err)
	}

	db2, conn2 := testutil.NewStubDB()
	conn2.Rows["items"] = []byte(`{broken`)
	restore2 := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db2, nil })
	defer restore2()
	if _, err := NewStore(""); err == nil || !strings.Contains(err.Error(), "decode items") {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestMigrationsAreEmbedded(t *testing.T) {
	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}
	var up, down int
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			up++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			down++
		}
	}
	if up == 0 || up != down {
		t.Fatalf("expected paired migrations, got up=%d down=%d", up, down)
	}
}

func TestMigratorRejectsUnknownScheme(t *testing.T) {
	if err := Migrate("bogus://localhost/roomtrack", nil); err == nil || !strings.Contains(err.Error(), "init migrations") {
		t.Fatalf("expected init error, got %v", err)
	}
	if _, _, err := MigrationVersion("bogus://localhost/roomtrack"); err == nil || !strings.Contains(err.Error(), "init migrations") {
		t.Fatalf("expected init error, got %v", err)
	}
}
