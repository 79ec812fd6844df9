// Package testutil provides an in-memory database/sql driver that understands
// the statements issued by the postgres kv store.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

var seq atomic.Uint64

// StubConn records statements and keeps kv rows in a map.
type StubConn struct {
	mu        sync.Mutex
	Execs     []string
	Rows      map[string][]byte
	FailPing  bool
	FailExec  bool
	FailQuery bool
}

// NewStubDB registers a sql.DB backed by a fresh stub connection.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{Rows: make(map[string][]byte)}
	name := fmt.Sprintf("stubkv%d", seq.Add(1))
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

type stubDriver struct {
	conn *StubConn
}

func (d *stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

// Prepare implements driver.Conn.
func (c *StubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) { return stubTx{}, nil }

// Ping implements driver.Pinger.
func (c *StubConn) Ping(context.Context) error {
	if c.FailPing {
		return fmt.Errorf("ping fail")
	}
	return nil
}

// ExecContext implements driver.ExecerContext.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Execs = append(c.Execs, query)
	if c.FailExec {
		return nil, fmt.Errorf("exec fail")
	}
	up := strings.ToUpper(strings.TrimSpace(query))
	switch {
	case strings.HasPrefix(up, "INSERT INTO KV"):
		if len(args) != 2 {
			return nil, fmt.Errorf("insert expects 2 args, got %d", len(args))
		}
		key, _ := args[0].Value.(string)
		payload, _ := args[1].Value.([]byte)
		c.Rows[key] = append([]byte(nil), payload...)
	case strings.HasPrefix(up, "DELETE FROM KV"):
		if len(args) != 1 {
			return nil, fmt.Errorf("delete expects 1 arg")
		}
		key, _ := args[0].Value.(string)
		delete(c.Rows, key)
	}
	return driver.RowsAffected(1), nil
}

// QueryContext implements driver.QueryerContext.
func (c *StubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailQuery {
		return nil, fmt.Errorf("query fail")
	}
	if len(args) != 1 {
		return nil, fmt.Errorf("query expects 1 arg")
	}
	arg, _ := args[0].Value.(string)
	lower := strings.ToLower(query)
	switch {
	case strings.HasPrefix(lower, "select payload from kv"):
		rows := &stubRows{cols: []string{"payload"}}
		if v, ok := c.Rows[arg]; ok {
			rows.rows = [][]driver.Value{{append([]byte(nil), v...)}}
		}
		return rows, nil
	case strings.HasPrefix(lower, "select key from kv"):
		keys := make([]string, 0, len(c.Rows))
		for k := range c.Rows {
			if strings.HasPrefix(k, arg) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		rows := &stubRows{cols: []string{"key"}}
		for _, k := range keys {
			rows.rows = append(rows.rows, []driver.Value{k})
		}
		return rows, nil
	}
	return nil, fmt.Errorf("unsupported query: %s", query)
}

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

type stubRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}
