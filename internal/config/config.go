// Package config provides configuration management for Modelbay.
package config

import (
	"strconv"
	"time"
)

// Config is the root configuration structure for Modelbay.
type Config struct {
	Server    ServerConfig     `mapstructure:"server"`
	Database  DatabaseConfig   `mapstructure:"database"`
	Artifacts ArtifactsConfig  `mapstructure:"artifacts"`
	Runner    RunnerConfig     `mapstructure:"runner"`
	Jobs      JobsConfig       `mapstructure:"jobs"`
	History   HistoryConfig    `mapstructure:"history"`
	Policy    PolicyConfig     `mapstructure:"policy"`
	Schedules []ScheduleConfig `mapstructure:"schedules"`
	Logging   LoggingConfig    `mapstructure:"logging"`
	Metrics   MetricsConfig    `mapstructure:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host to bind the server to
	Host string `mapstructure:"host"`

	// Port to listen on
	Port int `mapstructure:"port"`

	// Request timeouts
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`

	// Maximum request body size in bytes
	MaxBodySize int64 `mapstructure:"max_body_size"`

	// Enable CORS
	CORS CORSConfig `mapstructure:"cors"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	// Enable CORS
	Enabled bool `mapstructure:"enabled"`

	// Allowed origins (use ["*"] for all)
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	// Allow credentials
	AllowCredentials bool `mapstructure:"allow_credentials"`

	// Max age for preflight cache
	MaxAge time.Duration `mapstructure:"max_age"`
}

// DatabaseConfig holds database settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string `mapstructure:"path"`

	// Enable WAL mode (recommended)
	WALMode bool `mapstructure:"wal_mode"`

	// Busy timeout
	BusyTimeout time.Duration `mapstructure:"busy_timeout"`

	// Cache size in KB (negative for KB, positive for pages)
	CacheSize int `mapstructure:"cache_size"`

	// Maximum open connections
	MaxOpenConns int `mapstructure:"max_open_conns"`

	// Maximum idle connections
	MaxIdleConns int `mapstructure:"max_idle_conns"`

	// Connection max lifetime
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// ArtifactsConfig holds artifact discovery settings.
type ArtifactsConfig struct {
	// Root directory containing published artifacts
	Root string `mapstructure:"root"`

	// Include glob patterns relative to the root (default: ["*.py"])
	Include []string `mapstructure:"include"`

	// Exclude glob patterns relative to the root
	Exclude []string `mapstructure:"exclude"`

	// Watch the root for changes and rediscover automatically
	Watch bool `mapstructure:"watch"`
}

// RunnerConfig holds sandboxed execution settings.
type RunnerConfig struct {
	// Python interpreter used to run artifacts
	PythonBin string `mapstructure:"python_bin"`

	// Default timeout for standard-class artifacts
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`

	// Default timeout for heavy-class (long-running) artifacts
	HeavyTimeout time.Duration `mapstructure:"heavy_timeout"`

	// Bounds applied to caller-supplied timeout overrides
	MinTimeout time.Duration `mapstructure:"min_timeout"`
	MaxTimeout time.Duration `mapstructure:"max_timeout"`

	// Memory ceiling for child processes in MB (0 disables)
	MemoryLimitMB int `mapstructure:"memory_limit_mb"`

	// Cap on captured stdout/stderr per stream, in bytes
	MaxOutputBytes int `mapstructure:"max_output_bytes"`
}

// JobsConfig holds async job orchestration settings.
type JobsConfig struct {
	// Number of background workers
	Workers int `mapstructure:"workers"`

	// Capacity of the pending-job queue
	QueueSize int `mapstructure:"queue_size"`

	// How long terminal jobs remain queryable
	Retention time.Duration `mapstructure:"retention"`

	// How often the eviction sweep runs
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// HistoryConfig holds run-history persistence settings.
type HistoryConfig struct {
	// How long run records are kept
	Retention time.Duration `mapstructure:"retention"`

	// How often the cleanup loop runs
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`

	// Output snapshots larger than this are gzip-compressed (0 disables)
	CompressThreshold int `mapstructure:"compress_threshold"`
}

// PolicyConfig holds CEL admission rules evaluated before every run.
type PolicyConfig struct {
	// Rules maps rule name to a CEL expression over `artifact` and `request`.
	// Every rule must evaluate to true for a run to be admitted.
	Rules map[string]string `mapstructure:"rules"`
}

// ScheduleConfig defines a recurring artifact run.
type ScheduleConfig struct {
	// Name identifies the schedule in logs and history records
	Name string `mapstructure:"name"`

	// Artifact reference to run
	Artifact string `mapstructure:"artifact"`

	// Entry point to invoke
	Function string `mapstructure:"function"`

	// Cron expression (standard five-field, descriptors allowed)
	Cron string `mapstructure:"cron"`

	// Positional arguments
	Args []any `mapstructure:"args"`

	// Keyword arguments
	Kwargs map[string]any `mapstructure:"kwargs"`

	// Enabled toggles the schedule without removing it
	Enabled bool `mapstructure:"enabled"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `mapstructure:"level"`

	// Log format (json, console)
	Format string `mapstructure:"format"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	// Enable the /metrics endpoint
	Enabled bool `mapstructure:"enabled"`
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return s.Host + ":" + strconv.Itoa(s.Port)
}
