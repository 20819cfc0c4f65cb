package knowledge

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is the newest migration this build understands.
const SchemaVersion = 2

type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS package_versions (
  package TEXT NOT NULL,
  version TEXT NOT NULL,
  version_index INTEGER NOT NULL DEFAULT -1,
  scanned_at_utc TEXT NOT NULL DEFAULT (CURRENT_TIMESTAMP),
  PRIMARY KEY (package, version)
);
CREATE TABLE IF NOT EXISTS api_signatures (
  package TEXT NOT NULL,
  version TEXT NOT NULL,
  api_name TEXT NOT NULL,
  parameters TEXT NOT NULL DEFAULT '[]',
  has_return INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (package, version, api_name, parameters, has_return),
  FOREIGN KEY (package, version) REFERENCES package_versions(package, version) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_api_signatures_name ON api_signatures(api_name);
CREATE TABLE IF NOT EXISTS differences (
  package TEXT NOT NULL,
  version TEXT NOT NULL,
  version_index INTEGER NOT NULL,
  api_name TEXT NOT NULL,
  param_list TEXT NOT NULL DEFAULT '[]',
  has_return INTEGER NOT NULL DEFAULT 0,
  marker TEXT NOT NULL CHECK (marker IN ('=', '+', '-')),
  FOREIGN KEY (package, version) REFERENCES package_versions(package, version) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_differences_package ON differences(package, version_index);
`,
	},
	{
		version: 2,
		sql: `
ALTER TABLE api_signatures ADD COLUMN optional TEXT;
`,
	},
}

// EnsureSchema applies pending migrations in order, one transaction each.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  applied_at_utc TEXT NOT NULL DEFAULT (CURRENT_TIMESTAMP)
);
`); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	var current int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("read schema_migrations version: %w", err)
	}
	if current > SchemaVersion {
		return fmt.Errorf("schema version %d is newer than supported version %d", current, SchemaVersion)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations(version) VALUES (?)`, m.version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.version, err)
		}
	}
	return nil
}
