package config

// Config is the apidrift.toml document.
type Config struct {
	Version       int           `toml:"version"`
	Paths         Paths         `toml:"paths"`
	Scan          Scan          `toml:"scan"`
	Eval          Eval          `toml:"eval"`
	Observability Observability `toml:"observability"`
	Logging       Logging       `toml:"logging"`
}

// Paths locate the package corpus and the state files. Relative entries
// resolve against Root, which itself resolves against the working directory.
type Paths struct {
	Root      string `toml:"root"`
	Packages  string `toml:"packages"`
	Knowledge string `toml:"knowledge"`
	Queue     string `toml:"queue"`
	Output    string `toml:"output"`
}

type Scan struct {
	// Exclude holds glob patterns for sources left out of signature scans.
	Exclude []string `toml:"exclude"`
	Workers int      `toml:"workers"`
}

type Eval struct {
	Workers int `toml:"workers"`
	// RepairPinnedOnly limits repair hand-off to tasks whose package is
	// pinned by the project manifests. nil means true.
	RepairPinnedOnly *bool `toml:"repair_pinned_only"`
	// Queue selects the repair sink: "sqlite" or "memory".
	Queue         string `toml:"queue"`
	QueueCapacity int    `toml:"queue_capacity"`
	// RepairRate caps repair hand-offs per second; 0 disables throttling.
	RepairRate  float64 `toml:"repair_rate"`
	RepairBurst int     `toml:"repair_burst"`
	// CacheSize bounds the package versions whose signatures stay loaded.
	CacheSize int `toml:"cache_size"`
}

type Observability struct {
	Enabled        bool   `toml:"enabled"`
	MetricsAddress string `toml:"metrics_address"`
	EnableTracing  bool   `toml:"enable_tracing"`
	OTLPEndpoint   string `toml:"otlp_endpoint"`
	ServiceName    string `toml:"service_name"`
}

type Logging struct {
	Level string `toml:"level"`
}

// PinnedOnly reports the effective repair_pinned_only value.
func (e Eval) PinnedOnly() bool {
	return e.RepairPinnedOnly == nil || *e.RepairPinnedOnly
}
