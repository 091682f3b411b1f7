package config

import "fmt"

// Validate checks a configuration for values that cannot work at runtime.
func Validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port must be between 1 and 65535", ErrInvalidConfig)
	}

	if cfg.Database.Path == "" {
		return fmt.Errorf("%w: database.path is required", ErrInvalidConfig)
	}

	if cfg.Artifacts.Root == "" {
		return fmt.Errorf("%w: artifacts.root is required", ErrInvalidConfig)
	}

	if cfg.Runner.PythonBin == "" {
		return fmt.Errorf("%w: runner.python_bin is required", ErrInvalidConfig)
	}
	if cfg.Runner.MinTimeout <= 0 {
		return fmt.Errorf("%w: runner.min_timeout must be positive", ErrInvalidConfig)
	}
	if cfg.Runner.MaxTimeout < cfg.Runner.MinTimeout {
		return fmt.Errorf("%w: runner.max_timeout must be >= runner.min_timeout", ErrInvalidConfig)
	}
	if cfg.Runner.DefaultTimeout < cfg.Runner.MinTimeout || cfg.Runner.DefaultTimeout > cfg.Runner.MaxTimeout {
		return fmt.Errorf("%w: runner.default_timeout must fall within [min_timeout, max_timeout]", ErrInvalidConfig)
	}
	if cfg.Runner.HeavyTimeout < cfg.Runner.MinTimeout || cfg.Runner.HeavyTimeout > cfg.Runner.MaxTimeout {
		return fmt.Errorf("%w: runner.heavy_timeout must fall within [min_timeout, max_timeout]", ErrInvalidConfig)
	}
	if cfg.Runner.MemoryLimitMB < 0 {
		return fmt.Errorf("%w: runner.memory_limit_mb must not be negative", ErrInvalidConfig)
	}

	if cfg.Jobs.Workers < 1 {
		return fmt.Errorf("%w: jobs.workers must be at least 1", ErrInvalidConfig)
	}
	if cfg.Jobs.QueueSize < 1 {
		return fmt.Errorf("%w: jobs.queue_size must be at least 1", ErrInvalidConfig)
	}
	if cfg.Jobs.Retention <= 0 {
		return fmt.Errorf("%w: jobs.retention must be positive", ErrInvalidConfig)
	}

	for i, s := range cfg.Schedules {
		if s.Name == "" {
			return fmt.Errorf("%w: schedules[%d].name is required", ErrInvalidConfig, i)
		}
		if s.Artifact == "" || s.Function == "" {
			return fmt.Errorf("%w: schedule %q needs both artifact and function", ErrInvalidConfig, s.Name)
		}
		if s.Cron == "" {
			return fmt.Errorf("%w: schedule %q needs a cron expression", ErrInvalidConfig, s.Name)
		}
	}

	return nil
}
