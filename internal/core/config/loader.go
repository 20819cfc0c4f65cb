package config

import (
	"os"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
)

// DefaultFile is the config file name looked up when none is given.
const DefaultFile = "apidrift.toml"

// Load reads, defaults and validates the TOML config at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads path when it exists and falls back to Default when it
// does not. Any other read or validation error is returned.
func LoadOrDefault(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultFile
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// Default returns the configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if strings.TrimSpace(cfg.Paths.Packages) == "" {
		cfg.Paths.Packages = "packages"
	}
	if strings.TrimSpace(cfg.Paths.Knowledge) == "" {
		cfg.Paths.Knowledge = "data/knowledge.db"
	}
	if strings.TrimSpace(cfg.Paths.Queue) == "" {
		cfg.Paths.Queue = "data/repair.db"
	}
	if strings.TrimSpace(cfg.Paths.Output) == "" {
		cfg.Paths.Output = "output"
	}

	if cfg.Scan.Exclude == nil {
		cfg.Scan.Exclude = []string{"*test*", "setup.py"}
	}
	if cfg.Scan.Workers <= 0 {
		cfg.Scan.Workers = runtime.GOMAXPROCS(0)
	}

	if cfg.Eval.Workers <= 0 {
		cfg.Eval.Workers = runtime.GOMAXPROCS(0)
	}
	if strings.TrimSpace(cfg.Eval.Queue) == "" {
		cfg.Eval.Queue = "sqlite"
	}
	if cfg.Eval.QueueCapacity <= 0 {
		cfg.Eval.QueueCapacity = 1024
	}
	if cfg.Eval.CacheSize <= 0 {
		cfg.Eval.CacheSize = 256
	}
	if cfg.Eval.RepairRate > 0 && cfg.Eval.RepairBurst <= 0 {
		cfg.Eval.RepairBurst = 1
	}

	if strings.TrimSpace(cfg.Observability.MetricsAddress) == "" {
		cfg.Observability.MetricsAddress = "127.0.0.1:9464"
	}
	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		cfg.Observability.ServiceName = "apidrift"
	}

	if strings.TrimSpace(cfg.Logging.Level) == "" {
		cfg.Logging.Level = "info"
	}
}
