// Package config loads the settings of the handoff samples from defaults,
// an optional handoff.yaml file, HANDOFF_* environment variables and flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete handoff configuration
type Config struct {
	Mailbox   MailboxConfig   `mapstructure:"mailbox"`
	Countdown CountdownConfig `mapstructure:"countdown"`
	Greet     GreetConfig     `mapstructure:"greet"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// MailboxConfig controls the producer/consumer run
type MailboxConfig struct {
	// Payloads are written in order, followed by the sentinel
	Payloads []string `mapstructure:"payloads"`
	// MaxDelay bounds the random pause after each write and each read (0 = no pause)
	MaxDelay time.Duration `mapstructure:"max_delay"`
	// Timeout cancels the run if it has not finished in time (0 = disabled)
	Timeout time.Duration `mapstructure:"timeout"`
}

// CountdownConfig controls the shared-counter sample
type CountdownConfig struct {
	// Start is the first value counted down from
	Start int `mapstructure:"start"`
	// Workers are the names of the workers racing for the counter
	Workers []string `mapstructure:"workers"`
}

// GreetConfig controls the named-worker sample
type GreetConfig struct {
	// Names are the identities the workers announce
	Names []string `mapstructure:"names"`
}

// LoggingConfig controls diagnostic output
type LoggingConfig struct {
	// Level is one of debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format is console or json
	Format string `mapstructure:"format"`
	// Output is stderr or stdout; stdout interleaves diagnostics with payloads
	Output string `mapstructure:"output"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Mailbox: MailboxConfig{
			Payloads: []string{"message 1", "message 2", "message 3", "message 4"},
			MaxDelay: 2 * time.Second,
		},
		Countdown: CountdownConfig{
			Start:   10,
			Workers: []string{"THREAD-1", "THREAD-2"},
		},
		Greet: GreetConfig{
			Names: []string{"THREAD-1", "THREAD-2", "RUNNABLE-THREAD"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
	}
}

// SetDefaults registers every default value with v.
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("mailbox.payloads", defaults.Mailbox.Payloads)
	v.SetDefault("mailbox.max_delay", defaults.Mailbox.MaxDelay)
	v.SetDefault("mailbox.timeout", defaults.Mailbox.Timeout)

	v.SetDefault("countdown.start", defaults.Countdown.Start)
	v.SetDefault("countdown.workers", defaults.Countdown.Workers)

	v.SetDefault("greet.names", defaults.Greet.Names)

	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)
	v.SetDefault("logging.output", defaults.Logging.Output)
}

// NewViper returns a viper instance with defaults registered, HANDOFF_*
// environment overrides enabled and the config search path set up.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetConfigName("handoff")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(ConfigDir())

	v.SetEnvPrefix("HANDOFF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// ReadFile reads the config file at path, or searches the default locations
// when path is empty. A missing file in the default locations is not an error.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load reads the configuration from v into a Config struct and validates it
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
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
