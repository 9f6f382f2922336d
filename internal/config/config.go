package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration for the requirement validator service
type Config struct {
	// Listener. The image binds 0.0.0.0:8000.
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port"`
	// App is the module:attribute locator the launcher serves.
	App             string        `json:"app" yaml:"app"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`

	LogLevel string `json:"log_level" yaml:"log_level"` // debug, info, warn, error
	LogFile  string `json:"log_file" yaml:"log_file"`

	// NLPEnabled turns on the grammatical specificity check.
	NLPEnabled bool `json:"nlp_enabled" yaml:"nlp_enabled"`

	// Validation history. An empty StoragePath keeps records in memory.
	StorageEnabled bool   `json:"storage_enabled" yaml:"storage_enabled"`
	StoragePath    string `json:"storage_path" yaml:"storage_path"`

	// Optional NATS event stream
	NATSURL     string `json:"nats_url" yaml:"nats_url"`
	NATSSubject string `json:"nats_subject" yaml:"nats_subject"`

	// Image builds
	BuildPreset string `json:"build_preset" yaml:"build_preset"`
	BuildTag    string `json:"build_tag" yaml:"build_tag"`
}

// DefaultConfig returns a sane default configuration
func DefaultConfig() *Config {
	return &Config{
		Host:            "0.0.0.0",
		Port:            8000,
		App:             "main:app",
		ShutdownTimeout: 10 * time.Second,
		LogLevel:        "info",
		NLPEnabled:      true,
		StorageEnabled:  true,
		StoragePath:     "",
		NATSSubject:     "requirements.validated",
		BuildPreset:     "go-service",
		BuildTag:        "requirement-validator:latest",
	}
}

// LoadConfigFromFile reads a YAML file on top of the defaults.
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports settings the service cannot start with.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host must not be empty")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.App == "" {
		return fmt.Errorf("app locator must not be empty")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	return nil
}
