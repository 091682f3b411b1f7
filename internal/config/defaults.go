package config

import "time"

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "127.0.0.1",
			Port:         8090,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 10 * time.Minute,
			IdleTimeout:  2 * time.Minute,
			MaxBodySize:  4 << 20,
			CORS: CORSConfig{
				Enabled:        false,
				AllowedOrigins: []string{"*"},
				MaxAge:         10 * time.Minute,
			},
		},
		Database: DatabaseConfig{
			Path:         "data/modelbay.db",
			WALMode:      true,
			BusyTimeout:  5 * time.Second,
			MaxOpenConns: 10,
			MaxIdleConns: 5,
		},
		Artifacts: ArtifactsConfig{
			Root:    "artifacts",
			Include: []string{"*.py"},
			Watch:   false,
		},
		Runner: RunnerConfig{
			PythonBin:      "python3",
			DefaultTimeout: 20 * time.Second,
			HeavyTimeout:   180 * time.Second,
			MinTimeout:     1 * time.Second,
			MaxTimeout:     300 * time.Second,
			MemoryLimitMB:  512,
			MaxOutputBytes: 1 << 20,
		},
		Jobs: JobsConfig{
			Workers:       4,
			QueueSize:     64,
			Retention:     1 * time.Hour,
			SweepInterval: 1 * time.Minute,
		},
		History: HistoryConfig{
			Retention:         30 * 24 * time.Hour,
			CleanupInterval:   1 * time.Hour,
			CompressThreshold: 8 << 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}
