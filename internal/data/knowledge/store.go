// Package knowledge persists scanned API signatures and their version
// deltas in SQLite.
package knowledge

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	domainerrors "apidrift/internal/core/errors"
	"apidrift/internal/engine/apidiff"
	"apidrift/internal/engine/apiscan"

	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

// Store is the signature knowledge base. It is safe for concurrent use.
type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("knowledge path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("knowledge path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create knowledge directory %q: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite knowledge base %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite knowledge base %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks the underlying database connection.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("knowledge base not initialized")
	}
	return s.db.PingContext(ctx)
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// SaveSignatures records the APIs of one package version. Re-saving a
// version adds new identities and keeps existing ones.
func (s *Store) SaveSignatures(ctx context.Context, pkg, version string, apis []apidiff.API) error {
	pkg, version = strings.TrimSpace(pkg), strings.TrimSpace(version)
	if pkg == "" || version == "" {
		return domainerrors.New(domainerrors.CodeValidationError, "package and version are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withRetry("save signatures", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO package_versions(package, version) VALUES (?, ?)`, pkg, version); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO api_signatures(package, version, api_name, parameters, has_return, optional)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(package, version, api_name, parameters, has_return) DO UPDATE SET
  optional=COALESCE(excluded.optional, api_signatures.optional)
`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, api := range apis {
			params, err := encodeList(api.Params)
			if err != nil {
				return err
			}
			var optional any
			if api.Optional != nil {
				encoded, err := encodeList(api.Optional)
				if err != nil {
					return err
				}
				optional = encoded
			}
			if _, err := stmt.ExecContext(ctx, pkg, version, api.Name, params, boolInt(api.HasReturn), optional); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}

// Signatures returns every API of pkg at version ordered by name. An
// unknown version yields a NOT_FOUND error.
func (s *Store) Signatures(ctx context.Context, pkg, version string) ([]apidiff.API, error) {
	known, err := s.HasVersion(ctx, pkg, version)
	if err != nil {
		return nil, err
	}
	if !known {
		err := domainerrors.New(domainerrors.CodeNotFound, "package version not in knowledge base")
		err = domainerrors.AddContext(err, domainerrors.CtxPackage, pkg)
		return nil, domainerrors.AddContext(err, domainerrors.CtxVersion, version)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var rows *sql.Rows
	err = s.withRetry("load signatures", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, `
SELECT api_name, parameters, has_return, optional
FROM api_signatures
WHERE package = ? AND version = ?
ORDER BY api_name ASC, parameters ASC, has_return ASC
`, pkg, version)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	apis := make([]apidiff.API, 0)
	for rows.Next() {
		var (
			api       apidiff.API
			paramsRaw string
			hasReturn int
			optional  sql.NullString
		)
		if err := rows.Scan(&api.Name, &paramsRaw, &hasReturn, &optional); err != nil {
			return nil, fmt.Errorf("scan signature row: %w", err)
		}
		if api.Params, err = decodeList(paramsRaw); err != nil {
			return nil, fmt.Errorf("decode parameters of %q: %w", api.Name, err)
		}
		if optional.Valid {
			if api.Optional, err = decodeList(optional.String); err != nil {
				return nil, fmt.Errorf("decode optional parameters of %q: %w", api.Name, err)
			}
		}
		api.HasReturn = hasReturn != 0
		apis = append(apis, api)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signature rows: %w", err)
	}
	return apis, nil
}

// Versions returns the recorded versions of pkg, oldest first.
func (s *Store) Versions(ctx context.Context, pkg string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	versions, err := s.queryStrings(ctx, "load versions", `SELECT version FROM package_versions WHERE package = ?`, pkg)
	if err != nil {
		return nil, err
	}
	apiscan.SortVersions(versions)
	return versions, nil
}

// Packages returns every package with at least one recorded version.
func (s *Store) Packages(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.queryStrings(ctx, "load packages", `SELECT DISTINCT package FROM package_versions ORDER BY package ASC`)
}

func (s *Store) HasVersion(ctx context.Context, pkg, version string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var one int
	err := s.withRetry("check version", func() error {
		return s.db.QueryRowContext(ctx,
			`SELECT 1 FROM package_versions WHERE package = ? AND version = ?`, pkg, version).Scan(&one)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SaveDiff replaces the stored deltas of pkg. Every delta version must
// already have signatures recorded.
func (s *Store) SaveDiff(ctx context.Context, pkg string, deltas []apidiff.VersionDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withRetry("save diff", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `DELETE FROM differences WHERE package = ?`, pkg); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE package_versions SET version_index = -1 WHERE package = ?`, pkg); err != nil {
			return err
		}
		for _, delta := range deltas {
			res, err := tx.ExecContext(ctx,
				`UPDATE package_versions SET version_index = ? WHERE package = ? AND version = ?`,
				delta.Index, pkg, delta.Version)
			if err != nil {
				return err
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return fmt.Errorf("version %s of %s has no recorded signatures", delta.Version, pkg)
			}
			for _, entry := range delta.Entries {
				params, err := encodeList(entry.API.Params)
				if err != nil {
					return err
				}
				if _, err := tx.ExecContext(ctx, `
INSERT INTO differences(package, version, version_index, api_name, param_list, has_return, marker)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, pkg, delta.Version, delta.Index, entry.API.Name, params, boolInt(entry.API.HasReturn), string(entry.Marker)); err != nil {
					return err
				}
			}
		}
		return tx.Commit()
	})
}

// Diff loads the stored deltas of pkg in version order. Versions without
// changes are returned with no entries.
func (s *Store) Diff(ctx context.Context, pkg string) ([]apidiff.VersionDelta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows *sql.Rows
	err := s.withRetry("load diff", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, `
SELECT v.version, v.version_index, d.api_name, d.param_list, d.has_return, d.marker
FROM package_versions v
LEFT JOIN differences d ON d.package = v.package AND d.version = v.version
WHERE v.package = ? AND v.version_index >= 0
ORDER BY v.version_index ASC, d.rowid ASC
`, pkg)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deltas []apidiff.VersionDelta
	for rows.Next() {
		var (
			version   string
			index     int
			name      sql.NullString
			params    sql.NullString
			hasReturn sql.NullInt64
			marker    sql.NullString
		)
		if err := rows.Scan(&version, &index, &name, &params, &hasReturn, &marker); err != nil {
			return nil, fmt.Errorf("scan difference row: %w", err)
		}
		if len(deltas) == 0 || deltas[len(deltas)-1].Version != version {
			deltas = append(deltas, apidiff.VersionDelta{Version: version, Index: index})
		}
		if !name.Valid {
			continue
		}
		decoded, err := decodeList(params.String)
		if err != nil {
			return nil, fmt.Errorf("decode parameters of %q: %w", name.String, err)
		}
		last := &deltas[len(deltas)-1]
		last.Entries = append(last.Entries, apidiff.Entry{
			API:    apidiff.API{Name: name.String, Params: decoded, HasReturn: hasReturn.Int64 != 0},
			Marker: apidiff.Marker(marker.String),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate difference rows: %w", err)
	}
	return deltas, nil
}

func (s *Store) queryStrings(ctx context.Context, op, query string, args ...any) ([]string, error) {
	var rows *sql.Rows
	err := s.withRetry(op, func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, query, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("%s: scan row: %w", op, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate rows: %w", op, err)
	}
	return out, nil
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

// IsCorruptError reports errors that indicate a damaged database file.
func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || errors.Is(err, os.ErrInvalid)
}

func encodeList(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeList(raw string) ([]string, error) {
	out := []string{}
	if strings.TrimSpace(raw) == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
