package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// filePragmas apply to on-disk databases.
var filePragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA foreign_keys=ON",
	"PRAGMA synchronous=NORMAL",
}

var memoryPragmas = []string{
	"PRAGMA foreign_keys=ON",
}

// Open opens the SQLite database at path and configures pragmas. An
// in-memory database is pinned to a single connection, since each pooled
// connection would otherwise see its own empty database.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}

	pragmas := filePragmas
	if path == MemoryPath {
		db.SetMaxOpenConns(1)
		pragmas = memoryPragmas
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	return db, nil
}
