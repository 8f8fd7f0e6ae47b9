package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema. seq orders rows: items are listed by
// seq descending (newest first), users ascending.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id               TEXT PRIMARY KEY,
    seq              INTEGER NOT NULL,
    name             TEXT NOT NULL,
    role             TEXT NOT NULL DEFAULT '',
    pass             TEXT NOT NULL,
    is_admin         INTEGER NOT NULL DEFAULT 0,
    can_add_items    INTEGER NOT NULL DEFAULT 0,
    can_edit_items   INTEGER NOT NULL DEFAULT 0,
    can_delete_items INTEGER NOT NULL DEFAULT 0,
    can_manage_users INTEGER NOT NULL DEFAULT 0,
    reset_requested  INTEGER NOT NULL DEFAULT 0
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_single_admin
    ON users(is_admin) WHERE is_admin = 1;

CREATE TABLE IF NOT EXISTS items (
    id             TEXT PRIMARY KEY,
    seq            INTEGER NOT NULL,
    code           TEXT NOT NULL,
    description    TEXT NOT NULL DEFAULT '',
    classification TEXT NOT NULL,
    function       TEXT NOT NULL,
    color          TEXT NOT NULL,
    shape          TEXT NOT NULL,
    size           TEXT NOT NULL,
    extras         TEXT NOT NULL,
    entry          INTEGER NOT NULL DEFAULT 0,
    exit           INTEGER NOT NULL DEFAULT 0,
    min_stock      INTEGER NOT NULL DEFAULT 5,
    max_stock      INTEGER NOT NULL DEFAULT 100,
    observations   TEXT NOT NULL DEFAULT '',
    created_by     TEXT NOT NULL DEFAULT '',
    updated_by     TEXT NOT NULL DEFAULT '',
    updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
