// Package testutil provides a stub database/sql driver for the postgres
// snapshot store. It understands only the three statements the store builds
// with goqu: the state select, the bucket upsert and the bucket delete.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync/atomic"
)

var stubSeq atomic.Int64

// StubConn keeps the state table as bucket -> payload. Writes made inside a
// transaction are applied on commit only.
type StubConn struct {
	Rows  map[string][]byte
	Execs []string

	FailPing   bool
	FailBegin  bool
	FailExec   bool
	FailCommit bool
	FailQuery  bool

	tx *stubTx
}

// NewStubDB registers a fresh driver and returns a sql.DB bound to it.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{Rows: make(map[string][]byte)}
	name := fmt.Sprintf("roomtrack-stubpg-%d", stubSeq.Add(1))
	sql.Register(name, stubDriver{conn: conn})
	db, err := sql.Open(name, "")
	if err != nil {
		panic(err)
	}
	db.SetMaxOpenConns(1)
	return db, conn
}

type stubDriver struct{ conn *StubConn }

func (d stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

// Prepare is unused: database/sql prefers ExecContext and QueryContext.
func (c *StubConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("stub: prepare not supported")
}

func (c *StubConn) Close() error { return nil }

func (c *StubConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *StubConn) Ping(context.Context) error {
	if c.FailPing {
		return errors.New("stub: ping failed")
	}
	return nil
}

func (c *StubConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	if c.FailBegin {
		return nil, errors.New("stub: begin failed")
	}
	c.tx = &stubTx{conn: c}
	return c.tx, nil
}

type write struct {
	bucket  string
	payload []byte
	delete  bool
}

func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.Execs = append(c.Execs, query)
	if c.FailExec {
		return nil, errors.New("stub: exec failed")
	}
	w, err := parseWrite(query, args)
	if err != nil {
		return nil, err
	}
	if c.tx != nil {
		c.tx.writes = append(c.tx.writes, w)
	} else {
		c.apply(w)
	}
	return driver.RowsAffected(1), nil
}

func (c *StubConn) apply(w write) {
	if w.delete {
		delete(c.Rows, w.bucket)
		return
	}
	c.Rows[w.bucket] = w.payload
}

func parseWrite(query string, args []driver.NamedValue) (write, error) {
	upper := strings.ToUpper(query)
	switch {
	case strings.HasPrefix(upper, `INSERT INTO "STATE"`) && strings.Contains(upper, "ON CONFLICT"):
		if len(args) != 2 {
			return write{}, fmt.Errorf("stub: upsert expects 2 args, got %d", len(args))
		}
		bucket, _ := args[0].Value.(string)
		var payload []byte
		switch v := args[1].Value.(type) {
		case []byte:
			payload = append(payload, v...)
		case string:
			payload = []byte(v)
		}
		return write{bucket: bucket, payload: payload}, nil
	case strings.HasPrefix(upper, `DELETE FROM "STATE"`):
		if len(args) != 1 {
			return write{}, fmt.Errorf("stub: delete expects 1 arg, got %d", len(args))
		}
		bucket, _ := args[0].Value.(string)
		return write{bucket: bucket, delete: true}, nil
	}
	return write{}, fmt.Errorf("stub: unsupported statement %q", query)
}

func (c *StubConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	if c.FailQuery {
		return nil, errors.New("stub: query failed")
	}
	if !strings.HasPrefix(strings.ToUpper(query), `SELECT "BUCKET", "PAYLOAD" FROM "STATE"`) {
		return nil, fmt.Errorf("stub: unsupported query %q", query)
	}
	buckets := make([]string, 0, len(c.Rows))
	for b := range c.Rows {
		buckets = append(buckets, b)
	}
	sort.Strings(buckets)
	rows := &stubRows{}
	for _, b := range buckets {
		rows.rows = append(rows.rows, []driver.Value{b, c.Rows[b]})
	}
	return rows, nil
}

type stubTx struct {
	conn   *StubConn
	writes []write
}

func (t *stubTx) Commit() error {
	t.conn.tx = nil
	if t.conn.FailCommit {
		return errors.New("stub: commit failed")
	}
	for _, w := range t.writes {
		t.conn.apply(w)
	}
	return nil
}

func (t *stubTx) Rollback() error {
	t.conn.tx = nil
	return nil
}

type stubRows struct {
	rows [][]driver.Value
	idx  int
}

func (r *stubRows) Columns() []string { return []string{"bucket", "payload"} }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}
