package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables that override config keys.
// HANDOFF_DISPATCH_WORKERS overrides dispatch.workers.
const EnvPrefix = "HANDOFF"

// Config represents the complete handoff configuration
type Config struct {
	Dispatch DispatchConfig `mapstructure:"dispatch" yaml:"dispatch"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	TUI      TUIConfig      `mapstructure:"tui" yaml:"tui"`
}

// DispatchConfig controls the worker pool and the dispatcher
type DispatchConfig struct {
	// Workers is the exact number of pool workers. 0 derives it from the CPU count.
	Workers int `mapstructure:"workers" yaml:"workers" validate:"gte=0,lte=4096"`
	// WorkerMultiplier is multiplied by the CPU count when Workers is 0 (default: 8)
	WorkerMultiplier int `mapstructure:"worker_multiplier" yaml:"worker_multiplier" validate:"gte=1,lte=64"`
	// StrictListeners makes Submit refuse tasks that registered a listener twice
	StrictListeners bool `mapstructure:"strict_listeners" yaml:"strict_listeners"`
	// ShutdownTimeoutMs bounds how long shutdown waits for running work (default: 5000)
	ShutdownTimeoutMs int `mapstructure:"shutdown_timeout_ms" yaml:"shutdown_timeout_ms" validate:"gte=0"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether logging is active (default: false)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Level sets the minimum log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	// Dir is the directory that receives handoff.log. Empty logs to stderr.
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// TUIConfig controls the demo terminal UI
type TUIConfig struct {
	// TaskDelayMs is how long each demo task sleeps before finishing (default: 800)
	TaskDelayMs int `mapstructure:"task_delay_ms" yaml:"task_delay_ms" validate:"gte=0,lte=600000"`
	// MaxRows limits how many task rows are shown (default: 20)
	MaxRows int `mapstructure:"max_rows" yaml:"max_rows" validate:"gte=1,lte=500"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Dispatch: DispatchConfig{
			Workers:           0,
			WorkerMultiplier:  8,
			StrictListeners:   false,
			ShutdownTimeoutMs: 5000,
		},
		Logging: LoggingConfig{
			Enabled: false,
			Level:   "info",
			Dir:     "",
		},
		TUI: TUIConfig{
			TaskDelayMs: 800,
			MaxRows:     20,
		},
	}
}

// ShutdownTimeout returns the shutdown timeout as a time.Duration
func (c *DispatchConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMs) * time.Millisecond
}

// TaskDelay returns the demo task delay as a time.Duration
func (c *TUIConfig) TaskDelay() time.Duration {
	return time.Duration(c.TaskDelayMs) * time.Millisecond
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Dispatch defaults
	viper.SetDefault("dispatch.workers", defaults.Dispatch.Workers)
	viper.SetDefault("dispatch.worker_multiplier", defaults.Dispatch.WorkerMultiplier)
	viper.SetDefault("dispatch.strict_listeners", defaults.Dispatch.StrictListeners)
	viper.SetDefault("dispatch.shutdown_timeout_ms", defaults.Dispatch.ShutdownTimeoutMs)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)

	// TUI defaults
	viper.SetDefault("tui.task_delay_ms", defaults.TUI.TaskDelayMs)
	viper.SetDefault("tui.max_rows", defaults.TUI.MaxRows)
}

// BindEnv makes HANDOFF_* environment variables override config keys
func BindEnv() {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "handoff")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".handoff"
	}
	return filepath.Join(home, ".config", "handoff")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
