package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

type LoadOptions struct {
	ConfigFile string
	EnvPrefix  string
	Defaults   *Config
}

func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()

	defaults := opts.Defaults
	if defaults == nil {
		defaults = Default()
	}
	setViperDefaults(v, defaults)

	if opts.EnvPrefix == "" {
		opts.EnvPrefix = "MODELBAY"
	}
	v.SetEnvPrefix(opts.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("modelbay")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/modelbay")
		v.AddConfigPath("/etc/modelbay")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func LoadFromFile(path string) (*Config, error) {
	return Load(LoadOptions{ConfigFile: path})
}

func LoadWithDefaults() (*Config, error) {
	return Load(LoadOptions{})
}

func setViperDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("server.host", cfg.Server.Host)
	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("server.read_timeout", cfg.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", cfg.Server.WriteTimeout)
	v.SetDefault("server.idle_timeout", cfg.Server.IdleTimeout)
	v.SetDefault("server.max_body_size", cfg.Server.MaxBodySize)
	v.SetDefault("server.cors.enabled", cfg.Server.CORS.Enabled)
	v.SetDefault("server.cors.allowed_origins", cfg.Server.CORS.AllowedOrigins)
	v.SetDefault("server.cors.allow_credentials", cfg.Server.CORS.AllowCredentials)
	v.SetDefault("server.cors.max_age", cfg.Server.CORS.MaxAge)

	v.SetDefault("database.path", cfg.Database.Path)
	v.SetDefault("database.wal_mode", cfg.Database.WALMode)
	v.SetDefault("database.busy_timeout", cfg.Database.BusyTimeout)
	v.SetDefault("database.max_open_conns", cfg.Database.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", cfg.Database.MaxIdleConns)

	v.SetDefault("artifacts.root", cfg.Artifacts.Root)
	v.SetDefault("artifacts.include", cfg.Artifacts.Include)
	v.SetDefault("artifacts.exclude", cfg.Artifacts.Exclude)
	v.SetDefault("artifacts.watch", cfg.Artifacts.Watch)

	v.SetDefault("runner.python_bin", cfg.Runner.PythonBin)
	v.SetDefault("runner.default_timeout", cfg.Runner.DefaultTimeout)
	v.SetDefault("runner.heavy_timeout", cfg.Runner.HeavyTimeout)
	v.SetDefault("runner.min_timeout", cfg.Runner.MinTimeout)
	v.SetDefault("runner.max_timeout", cfg.Runner.MaxTimeout)
	v.SetDefault("runner.memory_limit_mb", cfg.Runner.MemoryLimitMB)
	v.SetDefault("runner.max_output_bytes", cfg.Runner.MaxOutputBytes)

	v.SetDefault("jobs.workers", cfg.Jobs.Workers)
	v.SetDefault("jobs.queue_size", cfg.Jobs.QueueSize)
	v.SetDefault("jobs.retention", cfg.Jobs.Retention)
	v.SetDefault("jobs.sweep_interval", cfg.Jobs.SweepInterval)

	v.SetDefault("history.retention", cfg.History.Retention)
	v.SetDefault("history.cleanup_interval", cfg.History.CleanupInterval)
	v.SetDefault("history.compress_threshold", cfg.History.CompressThreshold)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
}
