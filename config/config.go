package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

var (
	config *Config
	path   string
	mu     sync.RWMutex
	v      = viper.New()
)

// Config represents the configuration implementation.
type Config struct {
	AppName   string
	RunMode   string
	Host      string
	Port      int
	Logger    *Logger
	Worker    *Worker
	Jobs      *Jobs
	Data      *Data
	Messaging *Messaging
	Generator *Generator
	Observes  *Observes
	Viper     *viper.Viper
}

// Addr returns the listen address of the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.RunMode == "" || c.RunMode == "development" || c.RunMode == "debug"
}

// SetPath sets the config file used by Init and Reload.
func SetPath(p string) {
	mu.Lock()
	defer mu.Unlock()
	path = p
}

// Init loads the configuration from the path set by SetPath.
func Init() (*Config, error) {
	mu.Lock()
	defer mu.Unlock()

	cfg, err := load(v, path)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	config = cfg
	return cfg, nil
}

// GetConfig returns the configuration, loading it on first use.
func GetConfig() (*Config, error) {
	mu.RLock()
	cfg := config
	mu.RUnlock()
	if cfg != nil {
		return cfg, nil
	}
	cfg, err := Init()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize config: %w", err)
	}
	return cfg, nil
}

// load reads configPath into vp. An empty path searches the default
// locations and falls back to defaults when no file exists.
func load(vp *viper.Viper, configPath string) (*Config, error) {
	vp.SetEnvPrefix("ASKFLOW")
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	if configPath != "" {
		vp.SetConfigFile(configPath)
	} else {
		vp.SetConfigName("config")
		vp.AddConfigPath(".")
		vp.AddConfigPath("/etc/askflow")
		vp.AddConfigPath("$HOME/.askflow")
		if ex, err := os.Executable(); err == nil {
			vp.AddConfigPath(filepath.Dir(ex))
		}
	}

	if err := vp.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return &Config{
		AppName:   getStringOrDefault(vp, "app_name", "askflow"),
		RunMode:   getStringOrDefault(vp, "run_mode", "development"),
		Host:      getStringOrDefault(vp, "server.host", "0.0.0.0"),
		Port:      getIntOrDefault(vp, "server.port", 5556),
		Logger:    getLoggerConfig(vp),
		Worker:    getWorkerConfig(vp),
		Jobs:      getJobsConfig(vp),
		Data:      getDataConfig(vp),
		Messaging: getMessagingConfig(vp),
		Generator: getGeneratorConfig(vp),
		Observes:  getObservesConfig(vp),
		Viper:     vp,
	}, nil
}

// Reload reloads the configuration from the file.
func Reload() error {
	mu.Lock()
	defer mu.Unlock()

	newConfig, err := load(v, path)
	if err != nil {
		return fmt.Errorf("failed to reload config: %w", err)
	}

	config = newConfig
	return nil
}

// Watch watches the configuration file and reloads it when it changes.
func Watch(callback func(*Config)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		if err := Reload(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reloading config: %v\n", err)
			return
		}
		mu.RLock()
		cfg := config
		mu.RUnlock()
		callback(cfg)
	})
	v.WatchConfig()
}
