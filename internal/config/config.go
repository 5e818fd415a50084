// Package config loads classify's runtime configuration via Viper:
// ruleset file locations, logging, and the classification core's
// concurrency limit.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// RulesConfig points at the ruleset documents to load in addition to
// the compiled-in nv/asfalt/fa rulesets (spec §4.3).
type RulesConfig struct {
	Paths          []string `mapstructure:"paths"`
	DisableBuiltin bool     `mapstructure:"disable_builtin"`
}

// ClassifyConfig tunes the classification core itself.
type ClassifyConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// Config is classify's complete runtime configuration.
type Config struct {
	Environment string          `mapstructure:"environment"`
	Logging     LoggingConfig   `mapstructure:"logging"`
	Rules       RulesConfig     `mapstructure:"rules"`
	Classify    ClassifyConfig  `mapstructure:"classify"`
}

// Manager owns the loaded configuration and supports reloading it.
type Manager struct {
	config *Config
}

// NewManager loads configuration from built-in defaults, ./config.yaml
// (or ./config/, /etc/wastecat-classify/), and environment variables
// prefixed CLASSIFY_, in that order of increasing precedence.
func NewManager() (*Manager, error) {
	m := &Manager{}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

func (m *Manager) loadConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/wastecat-classify/")

	viper.SetEnvPrefix("CLASSIFY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	m.setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = cfg
	return nil
}

func (m *Manager) setDefaults() {
	viper.SetDefault("environment", "development")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")

	viper.SetDefault("rules.paths", []string{})
	viper.SetDefault("rules.disable_builtin", false)

	viper.SetDefault("classify.concurrency", 8)
}

// GetConfig returns the complete configuration.
func (m *Manager) GetConfig() *Config {
	return m.config
}

// GetLoggingConfig returns logging configuration.
func (m *Manager) GetLoggingConfig() *LoggingConfig {
	return &m.config.Logging
}

// GetRulesConfig returns ruleset-loading configuration.
func (m *Manager) GetRulesConfig() *RulesConfig {
	return &m.config.Rules
}

// Reload re-reads configuration from disk and environment.
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate checks the loaded configuration for internally inconsistent
// values that would otherwise surface as confusing failures downstream.
func (m *Manager) Validate() error {
	cfg := m.config

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(cfg.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", cfg.Logging.Level)
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[strings.ToLower(cfg.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s", cfg.Logging.Format)
	}

	if cfg.Classify.Concurrency < 0 {
		return fmt.Errorf("classify.concurrency must be >= 0, got %d", cfg.Classify.Concurrency)
	}

	if cfg.Rules.DisableBuiltin && len(cfg.Rules.Paths) == 0 {
		return fmt.Errorf("rules.disable_builtin requires at least one entry in rules.paths")
	}

	return nil
}

// IsProduction returns true if running in production mode.
func (m *Manager) IsProduction() bool {
	return strings.ToLower(m.config.Environment) == "production"
}

// IsDevelopment returns true if running in development mode.
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(m.config.Environment)
	return env == "development" || env == "dev" || env == ""
}
