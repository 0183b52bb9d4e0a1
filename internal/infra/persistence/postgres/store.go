// Package postgres persists the keyed tree to Postgres, one JSONB payload per
// top-level bucket, while the in-memory store handles reads and transactions.
package postgres

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // register the postgres dialect
	_ "github.com/jackc/pgx/v5/stdlib"                  // register pgx as a database/sql driver

	"roomtrack/internal/infra/persistence/memory"
	"roomtrack/pkg/domain"
)

var _ domain.PersistentStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/roomtrack?sslmode=disable"
	stateTable    = "state"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
	dialect = goqu.Dialect("postgres")
)

// Store snapshots dirty buckets to Postgres inside every commit.
type Store struct {
	*memory.Store
	db *sql.DB
}

// NewStore opens the database at dsn (falls back to defaultDSN), applies the
// embedded migrations and hydrates the tree from the state table.
func NewStore(dsn string, opts ...memory.Option) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := runMigrations(dsn, nil); err != nil {
		_ = db.Close()
		return nil, err
	}
	snapshot, err := loadSnapshot(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	mem := memory.NewStore(opts...)
	if err := mem.ImportState(snapshot); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("import snapshot: %w", err)
	}
	s := &Store{Store: mem, db: db}
	s.SetCommitHook(s.persist)
	return s, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Close cancels watchers and closes the pool.
func (s *Store) Close() error {
	_ = s.Store.Close()
	return s.db.Close()
}

func loadSnapshot(ctx context.Context, db *sql.DB) (memory.Snapshot, error) {
	query, args, err := dialect.From(stateTable).Select("bucket", "payload").ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	snapshot := memory.Snapshot{}
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return nil, fmt.Errorf("scan state: %w", err)
		}
		if len(payload) == 0 {
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(payload))
		dec.UseNumber()
		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("decode %s: %w", bucket, err)
		}
		snapshot[bucket] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate state: %w", err)
	}
	return snapshot, nil
}

func (s *Store) persist(ctx context.Context, dirty []string, next memory.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range dirty {
		query, args, err := bucketStatement(bucket, next)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("persist %s: %w", bucket, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// bucketStatement upserts a populated bucket and deletes an emptied one.
func bucketStatement(bucket string, next memory.Snapshot) (string, []any, error) {
	value, ok := next[bucket]
	if !ok {
		return dialect.Delete(stateTable).
			Where(goqu.C("bucket").Eq(bucket)).
			Prepared(true).
			ToSQL()
	}
	data, err := json.Marshal(value)
	if err != nil {
		return "", nil, fmt.Errorf("encode %s: %w", bucket, err)
	}
	return dialect.Insert(stateTable).
		Rows(goqu.Record{"bucket": bucket, "payload": data}).
		OnConflict(goqu.DoUpdate("bucket", goqu.Record{"payload": goqu.L("EXCLUDED.payload")})).
		Prepared(true).
		ToSQL()
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
