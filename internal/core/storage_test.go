package core

import (
	"context"
	"path/filepath"
	"testing"

	"roomtrack/internal/infra/persistence/memory"
	"roomtrack/internal/infra/persistence/sqlite"
	"roomtrack/pkg/domain"
)

func TestOpenPersistentStoreDrivers(t *testing.T) {
	mem, err := OpenPersistentStore(StorageConfig{Driver: "Memory"})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := mem.(*memory.Store); !ok {
		t.Fatalf("expected memory store, got %T", mem)
	}
	_ = mem.Close()

	path := filepath.Join(t.TempDir(), "state.db")
	store, err := OpenPersistentStore(StorageConfig{SQLitePath: path})
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	if _, ok := store.(*sqlite.Store); !ok {
		t.Fatalf("expected sqlite default, got %T", store)
	}
	svc := NewService(store, WithClock(fixedClock()))
	item, err := svc.AddItem(context.Background(), "RFID1", "Crate", domain.RoomB)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	_ = store.Close()

	reopened, err := OpenPersistentStore(StorageConfig{Driver: StorageSQLite, SQLitePath: path})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	inv, err := NewService(reopened).RoomInventory(context.Background(), domain.RoomB)
	if err != nil || len(inv.Items) != 1 || inv.Items[0] != item {
		t.Fatalf("expected persisted item in Room B, got %+v (%v)", inv, err)
	}
}

func TestOpenPersistentStoreUnknownDriver(t *testing.T) {
	if _, err := OpenPersistentStore(StorageConfig{Driver: "mongo"}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}

func TestMigrateStorageSkipsNonPostgres(t *testing.T) {
	for _, d := range []StorageDriver{"", StorageMemory, StorageSQLite} {
		if err := MigrateStorage(StorageConfig{Driver: d}, nil); err != nil {
			t.Fatalf("%q: expected no-op, got %v", d, err)
		}
		version, dirty, err := SchemaVersion(StorageConfig{Driver: d})
		if err != nil || dirty || version != 0 {
			t.Fatalf("%q: expected unversioned schema, got %d %v %v", d, version, dirty, err)
		}
	}
}
