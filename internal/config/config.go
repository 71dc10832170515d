package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wesheets/promethios-sub003/internal/admission"
)

// Config is the top-level arbiter configuration, loaded from YAML with
// defaults filled for anything omitted.
type Config struct {
	Server   ServerConfig             `yaml:"server"`
	Logging  LoggingConfig            `yaml:"logging"`
	Budget   BudgetConfig             `yaml:"budget"`
	Store    StoreConfig              `yaml:"store"`
	Taxonomy admission.ReasonTaxonomy `yaml:"taxonomy"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// LoggingConfig holds zerolog settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // trace|debug|info|warn|error
}

// BudgetConfig holds the session defaults applied when the caller opens a
// budget without explicit options.
type BudgetConfig struct {
	AutoStop          bool    `yaml:"auto_stop"`
	MaxExchanges      int     `yaml:"max_exchanges"`
	WarningThreshold  float64 `yaml:"warning_threshold"`
	CriticalThreshold float64 `yaml:"critical_threshold"`
}

// Validate checks budget configuration.
func (c *BudgetConfig) Validate() error {
	if c.MaxExchanges <= 0 {
		return fmt.Errorf("budget.max_exchanges must be > 0, got %d", c.MaxExchanges)
	}
	if c.WarningThreshold <= 0 || c.WarningThreshold > 1 {
		return fmt.Errorf("budget.warning_threshold must be in (0, 1], got %f", c.WarningThreshold)
	}
	if c.CriticalThreshold <= 0 || c.CriticalThreshold > 1 {
		return fmt.Errorf("budget.critical_threshold must be in (0, 1], got %f", c.CriticalThreshold)
	}
	if c.WarningThreshold >= c.CriticalThreshold {
		return fmt.Errorf("budget.warning_threshold (%f) must be below critical_threshold (%f)",
			c.WarningThreshold, c.CriticalThreshold)
	}
	return nil
}

// StoreConfig holds persistence settings.
type StoreConfig struct {
	// Path to the SQLite file. Empty disables persistence.
	Path string `yaml:"path"`
}

// Default returns a fully-populated configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         DefaultListenAddr,
			ReadTimeout:  DefaultReadTimeout,
			WriteTimeout: DefaultWriteTimeout,
		},
		Logging: LoggingConfig{Level: DefaultLogLevel},
		Budget: BudgetConfig{
			AutoStop:          DefaultAutoStop,
			MaxExchanges:      DefaultMaxExchanges,
			WarningThreshold:  DefaultWarningThreshold,
			CriticalThreshold: DefaultCriticalThreshold,
		},
		Store:    StoreConfig{Path: DefaultStorePath},
		Taxonomy: admission.DefaultTaxonomy(),
	}
}

// Load reads the YAML file at path over the defaults. A missing file is not
// an error: the defaults stand.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand ${VAR} references before parsing so secrets stay out of the file.
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	return c.Budget.Validate()
}
