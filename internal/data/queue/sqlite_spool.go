package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"apidrift/internal/core/errors"
	"apidrift/internal/core/ports"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const sqliteDriverName = "sqlite"

var _ ports.RepairSpool = (*SQLiteSpool)(nil)

func errSpoolClosed() error {
	return errors.New(errors.CodeInternal, "repair spool is not open")
}

// SQLiteSpool persists repair tasks until a consumer acknowledges them.
// Rows are partitioned by run key so that several evaluation runs can share
// one file.
type SQLiteSpool struct {
	db     *sql.DB
	runKey string
}

// APICount is the number of pending repairs for one ground-truth API.
type APICount struct {
	API   string
	Count int
}

func OpenSQLiteSpool(path string, runKey string) (*SQLiteSpool, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, errors.New(errors.CodeValidationError, "repair spool path is empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, errors.Newf(errors.CodeValidationError, "repair spool path %q is a directory", cleanPath)
	}
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "create repair spool directory"), errors.CtxPath, cleanPath)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", cleanPath)
	db, err := sql.Open(sqliteDriverName, dsn)
	if err == nil {
		db.SetMaxOpenConns(1)
		err = db.Ping()
	}
	if err == nil {
		err = migrateSpool(db)
	}
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "open repair spool"), errors.CtxPath, cleanPath)
	}

	key := strings.TrimSpace(runKey)
	if key == "" {
		key = "default"
	}
	return &SQLiteSpool{db: db, runKey: key}, nil
}

// Enqueue stores task, assigning an ID and creation time when missing. The
// task id, package, API and reason are kept in their own columns for
// PendingByAPI; the full task travels as JSON.
func (s *SQLiteSpool) Enqueue(ctx context.Context, task ports.RepairTask) error {
	if s == nil || s.db == nil {
		return errSpoolClosed()
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
	raw, err := json.Marshal(task)
	if err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "encode repair task"), errors.CtxTask, task.TaskID)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO repair_tasks (run_key, task_id, package, api_name, reason, task_json, available_at, queued_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, s.runKey, task.TaskID, task.Package, task.Signature.Name, task.Reason, string(raw),
		time.Now().UnixMilli(), task.CreatedAt.UnixMilli())
	if err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "enqueue repair task"), errors.CtxTask, task.TaskID)
	}
	return nil
}

// DequeueBatch returns up to maxItems tasks that are due, oldest first. Rows
// stay in the spool until Ack.
func (s *SQLiteSpool) DequeueBatch(ctx context.Context, maxItems int) ([]ports.SpoolRow, error) {
	if s == nil || s.db == nil {
		return nil, errSpoolClosed()
	}
	maxItems = max(maxItems, 1)
	rows, err := s.db.QueryContext(ctx, `
SELECT id, task_id, task_json, attempts FROM repair_tasks
WHERE run_key = ? AND available_at <= ?
ORDER BY id
LIMIT ?
`, s.runKey, time.Now().UnixMilli(), maxItems)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "select due repair tasks")
	}
	defer rows.Close()

	batch := make([]ports.SpoolRow, 0, maxItems)
	for rows.Next() {
		var (
			row    ports.SpoolRow
			taskID string
			raw    string
		)
		if err := rows.Scan(&row.ID, &taskID, &raw, &row.Attempts); err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "scan repair task")
		}
		if err := json.Unmarshal([]byte(raw), &row.Task); err != nil {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeParseError, "decode repair task"), errors.CtxTask, taskID)
		}
		batch = append(batch, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "iterate repair tasks")
	}
	return batch, nil
}

// Ack removes delivered rows.
func (s *SQLiteSpool) Ack(ctx context.Context, ids []int64) error {
	if s == nil || s.db == nil {
		return errSpoolClosed()
	}
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, 0, len(ids)+1)
	args = append(args, s.runKey)
	for _, id := range ids {
		args = append(args, id)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM repair_tasks WHERE run_key = ? AND id IN (`+placeholders+`)`, args...); err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "acknowledge repair tasks"), "rows", len(ids))
	}
	return nil
}

// Nack pushes rows back with an incremented attempt count, hidden from
// DequeueBatch until nextAttemptAt.
func (s *SQLiteSpool) Nack(ctx context.Context, rows []ports.SpoolRow, nextAttemptAt time.Time, lastErr string) error {
	if s == nil || s.db == nil {
		return errSpoolClosed()
	}
	if len(rows) == 0 {
		return nil
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, row := range rows {
			if _, err := tx.ExecContext(ctx, `
UPDATE repair_tasks SET attempts = ?, available_at = ?, last_error = ?
WHERE run_key = ? AND id = ?
`, row.Attempts+1, nextAttemptAt.UnixMilli(), lastErr, s.runKey, row.ID); err != nil {
				return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "reschedule repair task"), errors.CtxTask, row.Task.TaskID)
			}
		}
		return nil
	})
}

func (s *SQLiteSpool) PendingCount(ctx context.Context) (int, error) {
	if s == nil || s.db == nil {
		return 0, errSpoolClosed()
	}
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM repair_tasks WHERE run_key = ?`, s.runKey).Scan(&count); err != nil {
		return 0, errors.Wrap(err, errors.CodeInternal, "count repair tasks")
	}
	return count, nil
}

// PendingByAPI groups pending tasks by ground-truth API, largest first.
func (s *SQLiteSpool) PendingByAPI(ctx context.Context) ([]APICount, error) {
	if s == nil || s.db == nil {
		return nil, errSpoolClosed()
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT api_name, COUNT(*) AS pending FROM repair_tasks
WHERE run_key = ?
GROUP BY api_name
ORDER BY pending DESC, api_name
`, s.runKey)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "group repair tasks by api")
	}
	defer rows.Close()

	var out []APICount
	for rows.Next() {
		var c APICount
		if err := rows.Scan(&c.API, &c.Count); err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "scan repair task group")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteSpool) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteSpool) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "begin repair spool transaction")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "commit repair spool transaction")
	}
	return nil
}
