package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
)

// ResolvedPaths are the absolute locations derived from Paths.
type ResolvedPaths struct {
	Root      string
	Packages  string
	Knowledge string
	Queue     string
	Output    string
}

func ResolvePaths(cfg *Config, cwd string) (ResolvedPaths, error) {
	if strings.TrimSpace(cwd) == "" {
		return ResolvedPaths{}, fmt.Errorf("cwd must not be empty")
	}
	root := ResolveRelative(cwd, cfg.Paths.Root)
	return ResolvedPaths{
		Root:      root,
		Packages:  ResolveRelative(root, cfg.Paths.Packages),
		Knowledge: ResolveRelative(root, cfg.Paths.Knowledge),
		Queue:     ResolveRelative(root, cfg.Paths.Queue),
		Output:    ResolveRelative(root, cfg.Paths.Output),
	}, nil
}

// ResolveRelative joins path onto base unless it is absolute. An empty
// path resolves to base.
func ResolveRelative(base, path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(base, path)
}

// ParseLevel maps a logging.level value to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown level %q", level)
}
