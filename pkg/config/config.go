// Package config loads and hot-reloads the pipeline configuration from a
// YAML file. Reloads adjust the emitter's enablement and truncation budget
// without restarting the process.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the routelens configuration document.
type Config struct {
	Emitter   EmitterConfig   `yaml:"emitter"`
	Policy    PolicyConfig    `yaml:"policy"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
	Server    ServerConfig    `yaml:"server"`
}

// EmitterConfig controls the emission pipeline itself.
type EmitterConfig struct {
	Enabled bool `yaml:"enabled"`
	// BudgetBytes caps the combined payload size. Zero selects the
	// built-in transport ceiling.
	BudgetBytes int `yaml:"budget_bytes"`
}

// PolicyConfig points at an optional Rego eligibility rule.
type PolicyConfig struct {
	ModulePath string `yaml:"module_path"`
	Entrypoint string `yaml:"entrypoint"`
}

// TelemetryConfig configures the OTLP export.
type TelemetryConfig struct {
	ServiceName string            `yaml:"service_name"`
	Endpoint    string            `yaml:"endpoint"`
	Environment string            `yaml:"environment"`
	Insecure    bool              `yaml:"insecure"`
	Headers     map[string]string `yaml:"headers"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// ServerConfig configures the demo HTTP server.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Emitter: EmitterConfig{Enabled: true},
		Logging: LoggingConfig{Level: "info"},
		Server:  ServerConfig{Addr: ":8080"},
	}
}

// Load reads and validates a configuration file, applying defaults for
// absent sections.
func Load(path string) (Config, error) {
	// #nosec G304 -- File path is configured at startup
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot honour.
func (c Config) Validate() error {
	if c.Emitter.BudgetBytes < 0 {
		return fmt.Errorf("emitter.budget_bytes must not be negative, got %d", c.Emitter.BudgetBytes)
	}
	if c.Policy.Entrypoint != "" && c.Policy.ModulePath == "" {
		return fmt.Errorf("policy.entrypoint set without policy.module_path")
	}
	return nil
}
