package queue

import (
	"database/sql"
	"strconv"

	"apidrift/internal/core/errors"
)

// spoolMigrations are applied in order; PRAGMA user_version records how many
// have run against a file.
var spoolMigrations = []string{
	`
CREATE TABLE IF NOT EXISTS repair_tasks (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  run_key TEXT NOT NULL,
  task_id TEXT NOT NULL,
  package TEXT NOT NULL DEFAULT '',
  api_name TEXT NOT NULL DEFAULT '',
  reason TEXT NOT NULL DEFAULT '',
  task_json TEXT NOT NULL,
  attempts INTEGER NOT NULL DEFAULT 0,
  available_at INTEGER NOT NULL,
  queued_at INTEGER NOT NULL,
  last_error TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_repair_tasks_available ON repair_tasks(run_key, available_at, id);
`,
	`CREATE INDEX IF NOT EXISTS idx_repair_tasks_api ON repair_tasks(run_key, api_name);`,
}

func migrateSpool(db *sql.DB) error {
	var applied int
	if err := db.QueryRow(`PRAGMA user_version`).Scan(&applied); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "read spool schema version")
	}
	for i := applied; i < len(spoolMigrations); i++ {
		if _, err := db.Exec(spoolMigrations[i]); err != nil {
			return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "migrate spool schema"), "migration", i+1)
		}
		// PRAGMA does not accept bound parameters.
		if _, err := db.Exec(`PRAGMA user_version = `+strconv.Itoa(i+1)); err != nil {
			return errors.Wrap(err, errors.CodeInternal, "record spool schema version")
		}
	}
	return nil
}
