package core

import (
	"fmt"
	"strings"

	"roomtrack/internal/infra/persistence/memory"
	"roomtrack/internal/infra/persistence/postgres"
	"roomtrack/internal/infra/persistence/sqlite"
	"roomtrack/pkg/domain"
)

// StorageDriver identifies a keyed store backend.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // process memory only
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// StorageConfig selects and configures the keyed store backend.
type StorageConfig struct {
	Driver      StorageDriver
	SQLitePath  string
	PostgresDSN string
}

// OpenPersistentStore opens the backend named by cfg.Driver; sqlite when
// empty.
func OpenPersistentStore(cfg StorageConfig) (domain.PersistentStore, error) {
	driver := StorageDriver(strings.ToLower(strings.TrimSpace(string(cfg.Driver))))
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		return sqlite.NewStore(cfg.SQLitePath)
	case StoragePostgres:
		return postgres.NewStore(cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", cfg.Driver)
	}
}

// MigrateStorage applies schema migrations for backends that version their
// schema. SQLite creates its single table on open and needs none.
func MigrateStorage(cfg StorageConfig, logger *MigrationLogger) error {
	if StorageDriver(strings.ToLower(string(cfg.Driver))) != StoragePostgres {
		return nil
	}
	if logger == nil {
		return postgres.Migrate(cfg.PostgresDSN, nil)
	}
	return postgres.Migrate(cfg.PostgresDSN, logger)
}

// SchemaVersion reports the applied schema version of backends that version
// their schema, and whether the last migration left it dirty. Other drivers
// report version 0.
func SchemaVersion(cfg StorageConfig) (uint, bool, error) {
	if StorageDriver(strings.ToLower(string(cfg.Driver))) != StoragePostgres {
		return 0, false, nil
	}
	return postgres.MigrationVersion(cfg.PostgresDSN)
}
