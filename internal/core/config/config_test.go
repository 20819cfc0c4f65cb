package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "apidrift.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
version = 1

[paths]
root = "/srv/bench"
packages = "corpus"
knowledge = "kb/api.db"

[scan]
exclude = ["*tests*", "docs/*"]
workers = 3

[eval]
workers = 8
repair_pinned_only = false
queue = "memory"

[observability]
enabled = true
metrics_address = ":9100"

[logging]
level = "debug"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Paths.Packages != "corpus" || cfg.Paths.Knowledge != "kb/api.db" {
		t.Fatalf("unexpected paths %+v", cfg.Paths)
	}
	if cfg.Paths.Queue != "data/repair.db" {
		t.Fatalf("expected default queue path, got %q", cfg.Paths.Queue)
	}
	if len(cfg.Scan.Exclude) != 2 || cfg.Scan.Workers != 3 {
		t.Fatalf("unexpected scan %+v", cfg.Scan)
	}
	if cfg.Eval.Workers != 8 || cfg.Eval.PinnedOnly() || cfg.Eval.Queue != "memory" {
		t.Fatalf("unexpected eval %+v", cfg.Eval)
	}
	if !cfg.Observability.Enabled || cfg.Observability.MetricsAddress != ":9100" {
		t.Fatalf("unexpected observability %+v", cfg.Observability)
	}
	if cfg.Observability.ServiceName != "apidrift" {
		t.Fatalf("expected default service name, got %q", cfg.Observability.ServiceName)
	}

	resolved, err := ResolvePaths(cfg, "/work")
	if err != nil {
		t.Fatalf("ResolvePaths failed: %v", err)
	}
	if resolved.Packages != filepath.Join("/srv/bench", "corpus") {
		t.Fatalf("unexpected packages path %q", resolved.Packages)
	}
	if resolved.Knowledge != filepath.Join("/srv/bench", "kb", "api.db") {
		t.Fatalf("unexpected knowledge path %q", resolved.Knowledge)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Version != 1 {
		t.Fatalf("expected version 1, got %d", cfg.Version)
	}
	if !cfg.Eval.PinnedOnly() {
		t.Fatal("expected repair_pinned_only to default to true")
	}
	if strings.Join(cfg.Scan.Exclude, ",") != "*test*,setup.py" {
		t.Fatalf("unexpected default excludes %v", cfg.Scan.Exclude)
	}
	if cfg.Eval.Workers < 1 || cfg.Scan.Workers < 1 {
		t.Fatalf("expected positive worker defaults, got %+v", cfg)
	}
	if err := validate(cfg); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("LoadOrDefault failed: %v", err)
	}
	if cfg.Paths.Knowledge != "data/knowledge.db" {
		t.Fatalf("expected defaults, got %+v", cfg.Paths)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unsupported version", "version = 3\n", "unsupported config version"},
		{"bad glob", "[scan]\nexclude = [\"[oops\"]\n", "not a valid glob"},
		{"empty glob", "[scan]\nexclude = [\" \"]\n", "must not be empty"},
		{"bad queue", "[eval]\nqueue = \"redis\"\n", "eval.queue"},
		{"negative repair rate", "[eval]\nrepair_rate = -1.0\n", "eval.repair_rate"},
		{"bad level", "[logging]\nlevel = \"loud\"\n", "logging.level"},
		{"shared state file", "[paths]\nknowledge = \"a.db\"\nqueue = \"a.db\"\n", "must differ"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	if _, err := Load(writeConfig(t, "[paths\n")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("APIDRIFT_PATHS_KNOWLEDGE", "/tmp/kb.db")
	t.Setenv("APIDRIFT_SCAN_EXCLUDE", "*test*, vendor/*")
	t.Setenv("APIDRIFT_EVAL_WORKERS", "12")
	t.Setenv("APIDRIFT_EVAL_REPAIR_PINNED_ONLY", "false")
	t.Setenv("APIDRIFT_OBSERVABILITY_ENABLE_TRACING", "TRUE")
	t.Setenv("APIDRIFT_SCAN_WORKERS", "many")
	t.Setenv("APIDRIFT_EVAL_REPAIR_RATE", "2.5")

	cfg := Default()
	workers := cfg.Scan.Workers
	ApplyEnvOverrides(cfg)

	if cfg.Paths.Knowledge != "/tmp/kb.db" {
		t.Fatalf("knowledge override not applied: %q", cfg.Paths.Knowledge)
	}
	if strings.Join(cfg.Scan.Exclude, "|") != "*test*|vendor/*" {
		t.Fatalf("exclude override not applied: %v", cfg.Scan.Exclude)
	}
	if cfg.Eval.Workers != 12 || cfg.Eval.PinnedOnly() {
		t.Fatalf("eval overrides not applied: %+v", cfg.Eval)
	}
	if cfg.Eval.RepairRate != 2.5 {
		t.Fatalf("repair rate override not applied: %v", cfg.Eval.RepairRate)
	}
	if !cfg.Observability.EnableTracing {
		t.Fatal("tracing override not applied")
	}
	if cfg.Scan.Workers != workers {
		t.Fatalf("invalid int override should be ignored, got %d", cfg.Scan.Workers)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
}

func TestResolveRelative(t *testing.T) {
	if got := ResolveRelative("/base", ""); got != "/base" {
		t.Fatalf("unexpected %q", got)
	}
	if got := ResolveRelative("/base", "/abs/x"); got != "/abs/x" {
		t.Fatalf("unexpected %q", got)
	}
	if got := ResolveRelative("/base", "rel/x"); got != filepath.Join("/base", "rel/x") {
		t.Fatalf("unexpected %q", got)
	}
}
