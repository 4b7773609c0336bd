// Package duckdb registers the "duckdb" backend. Import it for its side
// effect; it is kept apart from package backend because the driver needs
// cgo.
package duckdb

import (
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/chazu/stackviz/pkg/backend"
)

func init() {
	backend.Register("duckdb", func(dsn string) (backend.Backend, error) { return Open(dsn) })
}

// Open opens a DuckDB database file, or an in-memory database when dsn is
// empty.
func Open(dsn string) (*backend.SQL, error) {
	if dsn == ":memory:" {
		dsn = ""
	}
	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if dsn == "" {
		db.SetMaxOpenConns(1)
	}
	s, err := backend.NewSQL(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}
