package config

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

func validate(cfg *Config) error {
	for _, check := range []func(*Config) error{
		validateVersion,
		validatePaths,
		validateScan,
		validateEval,
		validateLogging,
	} {
		if err := check(cfg); err != nil {
			return err
		}
	}
	return nil
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validatePaths(cfg *Config) error {
	if strings.TrimSpace(cfg.Paths.Knowledge) == strings.TrimSpace(cfg.Paths.Queue) {
		return fmt.Errorf("paths.knowledge and paths.queue must differ, both are %q", cfg.Paths.Knowledge)
	}
	return nil
}

func validateScan(cfg *Config) error {
	for i, pattern := range cfg.Scan.Exclude {
		if strings.TrimSpace(pattern) == "" {
			return fmt.Errorf("scan.exclude[%d] must not be empty", i)
		}
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("scan.exclude[%d] %q is not a valid glob: %w", i, pattern, err)
		}
	}
	return nil
}

func validateEval(cfg *Config) error {
	switch strings.ToLower(strings.TrimSpace(cfg.Eval.Queue)) {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("eval.queue must be one of: sqlite, memory; got %q", cfg.Eval.Queue)
	}
	if cfg.Eval.RepairRate < 0 {
		return fmt.Errorf("eval.repair_rate must be >= 0, got %v", cfg.Eval.RepairRate)
	}
	return nil
}

func validateLogging(cfg *Config) error {
	if _, err := ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}
