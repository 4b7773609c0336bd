package backend

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

func init() {
	Register("sqlite", func(dsn string) (Backend, error) { return OpenSQLite(dsn) })
}

// OpenSQLite opens (creating if needed) a sqlite database file. An empty
// dsn or ":memory:" gives a private in-memory database.
func OpenSQLite(dsn string) (*SQL, error) {
	memory := dsn == "" || dsn == ":memory:"
	if memory {
		dsn = ":memory:"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if memory {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	s, err := NewSQL(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}
