package config

import "github.com/google/wire"

// ProviderSet is the wire provider set for the config package.
// It provides the main *Config and extracts sub-configurations for
// other modules to use.
var ProviderSet = wire.NewSet(
	GetConfig,
	ProvideLoggerConfig,
	ProvideWorkerConfig,
	ProvideJobsConfig,
	ProvideDataConfig,
	ProvideMessagingConfig,
	ProvideGeneratorConfig,
	ProvideObservesConfig,
)

// ProvideLoggerConfig provides the logger configuration.
func ProvideLoggerConfig(cfg *Config) *Logger {
	if cfg == nil {
		return nil
	}
	return cfg.Logger
}

// ProvideWorkerConfig provides the worker pool configuration.
func ProvideWorkerConfig(cfg *Config) *Worker {
	if cfg == nil {
		return nil
	}
	return cfg.Worker
}

// ProvideJobsConfig provides the job lifecycle configuration.
func ProvideJobsConfig(cfg *Config) *Jobs {
	if cfg == nil {
		return nil
	}
	return cfg.Jobs
}

// ProvideDataConfig provides the data layer configuration.
func ProvideDataConfig(cfg *Config) *Data {
	if cfg == nil {
		return nil
	}
	return cfg.Data
}

// ProvideMessagingConfig provides the messaging configuration.
func ProvideMessagingConfig(cfg *Config) *Messaging {
	if cfg == nil {
		return nil
	}
	return cfg.Messaging
}

// ProvideGeneratorConfig provides the SQL generator configuration.
func ProvideGeneratorConfig(cfg *Config) *Generator {
	if cfg == nil {
		return nil
	}
	return cfg.Generator
}

// ProvideObservesConfig provides the observability configuration.
func ProvideObservesConfig(cfg *Config) *Observes {
	if cfg == nil {
		return nil
	}
	return cfg.Observes
}
