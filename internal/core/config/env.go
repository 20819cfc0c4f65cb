package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: APIDRIFT_[SECTION]_[KEY] (e.g., APIDRIFT_EVAL_WORKERS).
func ApplyEnvOverrides(cfg *Config) {
	// Paths
	setEnvString(&cfg.Paths.Root, "APIDRIFT_PATHS_ROOT")
	setEnvString(&cfg.Paths.Packages, "APIDRIFT_PATHS_PACKAGES")
	setEnvString(&cfg.Paths.Knowledge, "APIDRIFT_PATHS_KNOWLEDGE")
	setEnvString(&cfg.Paths.Queue, "APIDRIFT_PATHS_QUEUE")
	setEnvString(&cfg.Paths.Output, "APIDRIFT_PATHS_OUTPUT")

	// Scan
	setEnvList(&cfg.Scan.Exclude, "APIDRIFT_SCAN_EXCLUDE")
	setEnvInt(&cfg.Scan.Workers, "APIDRIFT_SCAN_WORKERS")

	// Eval
	setEnvInt(&cfg.Eval.Workers, "APIDRIFT_EVAL_WORKERS")
	setEnvBoolPtr(&cfg.Eval.RepairPinnedOnly, "APIDRIFT_EVAL_REPAIR_PINNED_ONLY")
	setEnvString(&cfg.Eval.Queue, "APIDRIFT_EVAL_QUEUE")
	setEnvInt(&cfg.Eval.QueueCapacity, "APIDRIFT_EVAL_QUEUE_CAPACITY")
	setEnvFloat(&cfg.Eval.RepairRate, "APIDRIFT_EVAL_REPAIR_RATE")
	setEnvInt(&cfg.Eval.RepairBurst, "APIDRIFT_EVAL_REPAIR_BURST")
	setEnvInt(&cfg.Eval.CacheSize, "APIDRIFT_EVAL_CACHE_SIZE")

	// Observability
	setEnvBool(&cfg.Observability.Enabled, "APIDRIFT_OBSERVABILITY_ENABLED")
	setEnvString(&cfg.Observability.MetricsAddress, "APIDRIFT_OBSERVABILITY_METRICS_ADDRESS")
	setEnvBool(&cfg.Observability.EnableTracing, "APIDRIFT_OBSERVABILITY_ENABLE_TRACING")
	setEnvString(&cfg.Observability.OTLPEndpoint, "APIDRIFT_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvString(&cfg.Observability.ServiceName, "APIDRIFT_OBSERVABILITY_SERVICE_NAME")

	// Logging
	setEnvString(&cfg.Logging.Level, "APIDRIFT_LOGGING_LEVEL")
}

func logOverride(key, val string) {
	slog.Info("applying env override", "key", key, "value", val)
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		logOverride(key, val)
		*target = val
	}
}

func setEnvList(target *[]string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		var items []string
		for _, item := range strings.Split(val, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		logOverride(key, val)
		*target = items
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			logOverride(key, val)
			*target = i
		}
	}
}

func setEnvFloat(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			logOverride(key, val)
			*target = f
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			logOverride(key, val)
			*target = b
		}
	}
}

func setEnvBoolPtr(target **bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			logOverride(key, val)
			*target = &b
		}
	}
}
